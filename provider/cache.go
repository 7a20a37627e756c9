package provider

import (
	"mxc/depm"
)

// sourceCache is the insertion-ordered cache every file-backed provider keeps.
// It holds the last compiled source of each key across batches and the
// sources handed out during the current batch.
type sourceCache struct {
	compiled map[string]*depm.Source
	order    []string

	batch      map[string]*depm.Source
	batchOrder []string
}

func newSourceCache() *sourceCache {
	return &sourceCache{
		compiled: make(map[string]*depm.Source),
		batch:    make(map[string]*depm.Source),
	}
}

// retrieve applies the retrieval contract to the compiled source of a key:
// it returns nil if there is no such source, if the source no longer exists,
// if its unit is not done, if it is stale or if it is a root source.
// Otherwise, it returns a copy of the source.
func (sc *sourceCache) retrieve(key string) *depm.Source {
	s, ok := sc.compiled[key]
	if !ok || !s.Exists() {
		return nil
	}

	if u := s.CompilationUnit(); u == nil || !u.IsDone() || s.IsUpdated() || s.IsRoot() {
		return nil
	}

	return s.Copy()
}

// lookup returns the source of a key for the current batch.  If the key has
// not been handed out yet in this batch, the compiled source is retrieved or,
// failing that, create is called to make a new one.  A nil source from
// create is a miss.
func (sc *sourceCache) lookup(key string, create func() *depm.Source) *depm.Source {
	if s, ok := sc.batch[key]; ok {
		return s
	}

	s := sc.retrieve(key)
	if s == nil {
		if s = create(); s == nil {
			return nil
		}
	}

	sc.batch[key] = s
	sc.batchOrder = append(sc.batchOrder, key)
	return s
}

// replace stores a compiled source for later batches.
func (sc *sourceCache) replace(key string, s *depm.Source) {
	if _, ok := sc.compiled[key]; !ok {
		sc.order = append(sc.order, key)
	}

	sc.compiled[key] = s
}

// remove drops a key from the cache.
func (sc *sourceCache) remove(key string) {
	if _, ok := sc.compiled[key]; !ok {
		return
	}

	delete(sc.compiled, key)
	for i, k := range sc.order {
		if k == key {
			sc.order = append(sc.order[:i], sc.order[i+1:]...)
			break
		}
	}
}

// beginBatch forgets the sources handed out in the previous batch.
func (sc *sourceCache) beginBatch() {
	sc.batch = make(map[string]*depm.Source)
	sc.batchOrder = nil
}

// handedOut returns the sources of the current batch in lookup order.
func (sc *sourceCache) handedOut() []*depm.Source {
	srcs := make([]*depm.Source, len(sc.batchOrder))
	for i, key := range sc.batchOrder {
		srcs[i] = sc.batch[key]
	}

	return srcs
}

// compiledSources returns the compiled sources in insertion order.
func (sc *sourceCache) compiledSources() []*depm.Source {
	srcs := make([]*depm.Source, len(sc.order))
	for i, key := range sc.order {
		srcs[i] = sc.compiled[key]
	}

	return srcs
}
