package provider

import (
	"path"

	"mxc/depm"
)

// FileSpec is the provider of the files named as entry points of a build.
// Every file defines a class of the unnamed package named after the file and
// every source it produces is a root: entry points are always parsed fresh.
type FileSpec struct {
	fsys  FileSystem
	paths []string
	cache *sourceCache
}

// NewFileSpec creates a new file spec over the given file paths.
func NewFileSpec(fsys FileSystem, paths ...string) *FileSpec {
	return &FileSpec{fsys: fsys, paths: cleanPaths(paths), cache: newSourceCache()}
}

func (fspec *FileSpec) Name() string {
	return "file spec"
}

// Paths returns the entry point paths.
func (fspec *FileSpec) Paths() []string {
	return fspec.paths
}

// FindSource returns the entry point defining q.
func (fspec *FileSpec) FindSource(q depm.QName) (*depm.Source, error) {
	if q.Namespace != "" {
		return nil, nil
	}

	for _, p := range fspec.paths {
		if trimExt(path.Base(p)) == q.Local {
			return fspec.source(p), nil
		}
	}

	return nil, nil
}

// Sources returns the source of every existing entry point.
func (fspec *FileSpec) Sources() []*depm.Source {
	var srcs []*depm.Source
	for _, p := range fspec.paths {
		if s := fspec.source(p); s != nil {
			srcs = append(srcs, s)
		}
	}

	return srcs
}

func (fspec *FileSpec) source(p string) *depm.Source {
	return fspec.cache.lookup(p, func() *depm.Source {
		f := fspec.fsys.File(p)
		if !f.Exists() {
			return nil
		}

		short := trimExt(path.Base(p))
		return depm.NewSource(f, short, short, fspec, false, true)
	})
}

func (fspec *FileSpec) Replace(s *depm.Source) {
	fspec.cache.replace(s.Name(), s)
}

func (fspec *FileSpec) BeginBatch() {
	fspec.cache.beginBatch()
}
