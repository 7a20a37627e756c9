package depm

import (
	"sort"

	"github.com/dominikbraun/graph"
	"github.com/pkg/errors"
)

// DependencyGraph is a directed graph over string-keyed vertices with a value
// attached to each vertex.  An edge runs from a used vertex to the vertex
// using it, so the head of every edge is the dependent.  Each vertex keeps the
// set of vertices it uses so that DependencyExists never walks the edges.
// Cycles are allowed in the structure.
type DependencyGraph[T any] struct {
	g      graph.Graph[string, string]
	values map[string]T

	// preds maps each vertex to the set of vertices it depends on.
	preds map[string]map[string]struct{}

	// order is the vertex insertion order.
	order []string
}

// NewDependencyGraph creates an empty dependency graph.
func NewDependencyGraph[T any]() *DependencyGraph[T] {
	return &DependencyGraph[T]{
		g:      graph.New(graph.StringHash, graph.Directed()),
		values: make(map[string]T),
		preds:  make(map[string]map[string]struct{}),
	}
}

// AddVertex adds a vertex.  It returns false if the vertex already existed.
func (dg *DependencyGraph[T]) AddVertex(key string) bool {
	if _, ok := dg.preds[key]; ok {
		return false
	}

	// the vertex is known not to exist, so this cannot fail
	_ = dg.g.AddVertex(key)
	dg.preds[key] = make(map[string]struct{})
	dg.order = append(dg.order, key)
	return true
}

// ContainsVertex returns whether a vertex exists.
func (dg *DependencyGraph[T]) ContainsVertex(key string) bool {
	_, ok := dg.preds[key]
	return ok
}

// Put attaches a value to a vertex, adding the vertex if needed.
func (dg *DependencyGraph[T]) Put(key string, value T) {
	dg.AddVertex(key)
	dg.values[key] = value
}

// Get returns the value attached to a vertex.
func (dg *DependencyGraph[T]) Get(key string) (T, bool) {
	v, ok := dg.values[key]
	return v, ok
}

// AddEdge adds an edge from a used vertex to the vertex using it.  Both
// vertices must already exist: an edge to a missing vertex is an invariant
// violation.
func (dg *DependencyGraph[T]) AddEdge(used, user string) error {
	if !dg.ContainsVertex(used) {
		return errors.Wrapf(graph.ErrVertexNotFound, "dependency edge %s -> %s", used, user)
	}

	if !dg.ContainsVertex(user) {
		return errors.Wrapf(graph.ErrVertexNotFound, "dependency edge %s -> %s", used, user)
	}

	if _, ok := dg.preds[user][used]; ok {
		return nil
	}

	if err := dg.g.AddEdge(used, user); err != nil && !errors.Is(err, graph.ErrEdgeAlreadyExists) {
		return errors.Wrapf(err, "dependency edge %s -> %s", used, user)
	}

	dg.preds[user][used] = struct{}{}
	return nil
}

// AddDependency records that user depends on used, inserting either vertex on
// demand.
func (dg *DependencyGraph[T]) AddDependency(user, used string) error {
	dg.AddVertex(user)
	dg.AddVertex(used)
	return dg.AddEdge(used, user)
}

// DependencyExists returns whether user directly depends on used.
func (dg *DependencyGraph[T]) DependencyExists(user, used string) bool {
	_, ok := dg.preds[user][used]
	return ok
}

// Dependencies returns the vertices user directly depends on, sorted.
func (dg *DependencyGraph[T]) Dependencies(user string) []string {
	deps := make([]string, 0, len(dg.preds[user]))
	for used := range dg.preds[user] {
		deps = append(deps, used)
	}

	sort.Strings(deps)
	return deps
}

// Dependents returns the vertices that directly depend on used, sorted.
func (dg *DependencyGraph[T]) Dependents(used string) []string {
	var users []string
	for user, preds := range dg.preds {
		if _, ok := preds[used]; ok {
			users = append(users, user)
		}
	}

	sort.Strings(users)
	return users
}

// RemoveVertex removes a vertex, its value and every edge referencing it.
func (dg *DependencyGraph[T]) RemoveVertex(key string) error {
	if !dg.ContainsVertex(key) {
		return nil
	}

	for used := range dg.preds[key] {
		if err := dg.g.RemoveEdge(used, key); err != nil {
			return errors.Wrapf(err, "removing vertex %s", key)
		}
	}

	for user, preds := range dg.preds {
		if user == key {
			continue
		}

		if _, ok := preds[key]; ok {
			if err := dg.g.RemoveEdge(key, user); err != nil {
				return errors.Wrapf(err, "removing vertex %s", key)
			}

			delete(preds, key)
		}
	}

	if err := dg.g.RemoveVertex(key); err != nil {
		return errors.Wrapf(err, "removing vertex %s", key)
	}

	delete(dg.preds, key)
	delete(dg.values, key)

	for i, k := range dg.order {
		if k == key {
			dg.order = append(dg.order[:i], dg.order[i+1:]...)
			break
		}
	}

	return nil
}

// Vertices returns every vertex in insertion order.
func (dg *DependencyGraph[T]) Vertices() []string {
	return dg.order
}

// Size returns the number of edges.
func (dg *DependencyGraph[T]) Size() int {
	n := 0
	for _, preds := range dg.preds {
		n += len(preds)
	}

	return n
}

// TopologicalOrder returns the vertices ordered so that every vertex comes
// after the vertices it depends on.  Ties are broken by insertion order.  It
// fails if the graph has a cycle.
func (dg *DependencyGraph[T]) TopologicalOrder() ([]string, error) {
	rank := make(map[string]int, len(dg.order))
	for i, k := range dg.order {
		rank[k] = i
	}

	order, err := graph.StableTopologicalSort(dg.g, func(a, b string) bool {
		return rank[a] < rank[b]
	})
	if err != nil {
		return nil, errors.Wrap(err, "ordering dependency graph")
	}

	return order, nil
}

// StronglyConnected returns every group of vertices which mutually depend on
// each other, including single vertices depending on themselves.
func (dg *DependencyGraph[T]) StronglyConnected() ([][]string, error) {
	sccs, err := graph.StronglyConnectedComponents(dg.g)
	if err != nil {
		return nil, errors.Wrap(err, "computing dependency cycles")
	}

	var cyclic [][]string
	for _, scc := range sccs {
		if len(scc) > 1 || dg.DependencyExists(scc[0], scc[0]) {
			sort.Strings(scc)
			cyclic = append(cyclic, scc)
		}
	}

	sort.Slice(cyclic, func(i, j int) bool {
		return cyclic[i][0] < cyclic[j][0]
	})

	return cyclic, nil
}
