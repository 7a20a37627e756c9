package provider

import (
	"path"
	"strings"

	"mxc/common"
	"mxc/depm"

	"github.com/golang/glog"
)

// SourcePath is the provider which finds the definition of a qualified name by
// probing each root directory for `pkg/sub/Local` with every known source
// extension.  Earlier roots take precedence.
type SourcePath struct {
	fsys  FileSystem
	roots []string
	cache *sourceCache
}

// NewSourcePath creates a new source path over the given roots.
func NewSourcePath(fsys FileSystem, roots ...string) *SourcePath {
	return &SourcePath{fsys: fsys, roots: roots, cache: newSourceCache()}
}

func (sp *SourcePath) Name() string {
	return "source path"
}

// Roots returns the root directories in precedence order.
func (sp *SourcePath) Roots() []string {
	return sp.roots
}

func (sp *SourcePath) FindSource(q depm.QName) (*depm.Source, error) {
	rel := q.Path()
	for _, root := range sp.roots {
		for _, ext := range common.SourceExtensions {
			p := path.Join(root, rel+ext)
			if s := sp.source(p, rel); s != nil {
				glog.V(3).Infof("source path: %s found at %s", q, p)
				return s, nil
			}
		}
	}

	return nil, nil
}

// Sources returns the sources found so far in this batch.
func (sp *SourcePath) Sources() []*depm.Source {
	return sp.cache.handedOut()
}

// All finds every source below every root.  A qualified name defined below
// several roots is only taken from the first one.
func (sp *SourcePath) All() ([]*depm.Source, error) {
	var (
		srcs []*depm.Source
		seen = make(map[string]struct{})
	)

	for _, root := range sp.roots {
		err := sp.fsys.Walk(root, func(p string) {
			if !isSourceFile(p) {
				return
			}

			rel, ok := relativeTo(root, p)
			if !ok {
				return
			}

			rel = trimExt(rel)
			if _, ok := seen[rel]; ok {
				return
			}

			seen[rel] = struct{}{}
			if s := sp.source(p, rel); s != nil {
				srcs = append(srcs, s)
			}
		})

		if err != nil {
			return nil, err
		}
	}

	return srcs, nil
}

func (sp *SourcePath) source(p, rel string) *depm.Source {
	return sp.cache.lookup(p, func() *depm.Source {
		f := sp.fsys.File(p)
		if !f.Exists() {
			return nil
		}

		return depm.NewSource(f, rel, path.Base(rel), sp, false, false)
	})
}

func (sp *SourcePath) Replace(s *depm.Source) {
	sp.cache.replace(s.Name(), s)
}

func (sp *SourcePath) BeginBatch() {
	sp.cache.beginBatch()
}

func isSourceFile(p string) bool {
	ext := strings.ToLower(path.Ext(p))
	for _, se := range common.SourceExtensions {
		if ext == se {
			return true
		}
	}

	return false
}
