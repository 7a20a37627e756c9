package provider

import (
	"mxc/depm"
)

// ResourceContainer is the provider of sources generated while compiling other
// sources, eg. the style class of a markup document.  Generated sources are
// internal: they are needed to compile their owner but only reach the output
// through it.
type ResourceContainer struct {
	files  map[depm.QName]depm.VirtualFile
	owners map[depm.QName]*depm.Source
	cache  *sourceCache
}

// NewResourceContainer creates an empty resource container.
func NewResourceContainer() *ResourceContainer {
	return &ResourceContainer{
		files:  make(map[depm.QName]depm.VirtualFile),
		owners: make(map[depm.QName]*depm.Source),
		cache:  newSourceCache(),
	}
}

func (rc *ResourceContainer) Name() string {
	return "resource container"
}

// AddSource adds or updates a generated source defining q.  If the generated
// file did not change since the last batch, the compiled source is reused.
func (rc *ResourceContainer) AddSource(q depm.QName, f depm.VirtualFile, owner *depm.Source) *depm.Source {
	key := q.String()
	if prev, ok := rc.files[q]; ok && prev != f {
		// a regenerated file replaces the compiled source unless it is
		// identical to it
		if !sameContent(prev, f) {
			rc.cache.remove(key)
		}
	}

	rc.files[q] = f
	rc.owners[q] = owner
	return rc.source(q)
}

// Owner returns the source a generated source was generated for.
func (rc *ResourceContainer) Owner(q depm.QName) (*depm.Source, bool) {
	s, ok := rc.owners[q]
	return s, ok
}

func (rc *ResourceContainer) FindSource(q depm.QName) (*depm.Source, error) {
	if _, ok := rc.files[q]; !ok {
		return nil, nil
	}

	return rc.source(q), nil
}

func (rc *ResourceContainer) Sources() []*depm.Source {
	return rc.cache.handedOut()
}

func (rc *ResourceContainer) source(q depm.QName) *depm.Source {
	return rc.cache.lookup(q.String(), func() *depm.Source {
		return depm.NewSource(rc.files[q], q.Path(), q.Local, rc, true, false)
	})
}

func (rc *ResourceContainer) Replace(s *depm.Source) {
	rc.cache.replace(s.QName().String(), s)
}

func (rc *ResourceContainer) BeginBatch() {
	rc.cache.beginBatch()
}

func sameContent(a, b depm.VirtualFile) bool {
	ad, err := depm.ReadFile(a)
	if err != nil {
		return false
	}

	bd, err := depm.ReadFile(b)
	if err != nil {
		return false
	}

	return string(ad) == string(bd)
}
