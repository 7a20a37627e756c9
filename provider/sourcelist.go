package provider

import (
	"path"

	"mxc/depm"
)

// SourceList is the provider of an explicit list of files which are compiled
// whether or not anything references them.  The package of each file is given
// by the source path root it lies below.
type SourceList struct {
	fsys  FileSystem
	paths []string
	roots []string
	cache *sourceCache
}

// NewSourceList creates a new source list.  Files outside every root belong to
// the unnamed package.
func NewSourceList(fsys FileSystem, roots []string, paths ...string) *SourceList {
	return &SourceList{fsys: fsys, paths: cleanPaths(paths), roots: roots, cache: newSourceCache()}
}

func (sl *SourceList) Name() string {
	return "source list"
}

// relativePath returns the package-relative path of a listed file without
// extension.
func (sl *SourceList) relativePath(p string) string {
	for _, root := range sl.roots {
		if rel, ok := relativeTo(root, p); ok {
			return trimExt(rel)
		}
	}

	return trimExt(path.Base(p))
}

func (sl *SourceList) FindSource(q depm.QName) (*depm.Source, error) {
	for _, p := range sl.paths {
		if sl.relativePath(p) == q.Path() {
			return sl.source(p), nil
		}
	}

	return nil, nil
}

func (sl *SourceList) Sources() []*depm.Source {
	var srcs []*depm.Source
	for _, p := range sl.paths {
		if s := sl.source(p); s != nil {
			srcs = append(srcs, s)
		}
	}

	return srcs
}

func (sl *SourceList) source(p string) *depm.Source {
	return sl.cache.lookup(p, func() *depm.Source {
		f := sl.fsys.File(p)
		if !f.Exists() {
			return nil
		}

		return depm.NewSource(f, sl.relativePath(p), trimExt(path.Base(p)), sl, false, false)
	})
}

func (sl *SourceList) Replace(s *depm.Source) {
	sl.cache.replace(s.Name(), s)
}

func (sl *SourceList) BeginBatch() {
	sl.cache.beginBatch()
}
