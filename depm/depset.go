package depm

// DepKind enumerates the kinds of dependencies a unit accumulates.
type DepKind int

// Enumeration of dependency kinds.
const (
	DepInheritance DepKind = iota // Superclasses and superinterfaces.
	DepType                       // Signature-level field, parameter and return types.
	DepExpression                 // Names referenced in executable code.
	DepNamespace                  // Namespaces opened by the unit.

	NumDepKinds
)

// DepKinds is the list of every dependency kind in order.
var DepKinds = []DepKind{DepInheritance, DepType, DepExpression, DepNamespace}

func (k DepKind) String() string {
	switch k {
	case DepInheritance:
		return "inheritance"
	case DepType:
		return "type"
	case DepExpression:
		return "expression"
	case DepNamespace:
		return "namespace"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------

// NameSet is an insertion-ordered set of multi-names.
type NameSet struct {
	index map[string]int
	names []MultiName
}

// NewNameSet creates a new name set containing names.
func NewNameSet(names ...MultiName) *NameSet {
	ns := &NameSet{index: make(map[string]int)}
	for _, name := range names {
		ns.Add(name)
	}

	return ns
}

// Add adds a name to the set.  It returns false if the name was already
// present.
func (ns *NameSet) Add(mn MultiName) bool {
	key := mn.Key()
	if _, ok := ns.index[key]; ok {
		return false
	}

	ns.index[key] = len(ns.names)
	ns.names = append(ns.names, mn)
	return true
}

// Contains returns whether a name is in the set.
func (ns *NameSet) Contains(mn MultiName) bool {
	if ns == nil {
		return false
	}

	_, ok := ns.index[mn.Key()]
	return ok
}

// Names returns the names in insertion order.
func (ns *NameSet) Names() []MultiName {
	if ns == nil {
		return nil
	}

	return ns.names
}

// Len returns the number of names in the set.
func (ns *NameSet) Len() int {
	if ns == nil {
		return 0
	}

	return len(ns.names)
}

// Clear removes every name from the set.
func (ns *NameSet) Clear() {
	ns.index = make(map[string]int)
	ns.names = nil
}

// Clone returns an independent copy of the set.
func (ns *NameSet) Clone() *NameSet {
	return NewNameSet(ns.Names()...)
}

// -----------------------------------------------------------------------------

// DependencySet is the set of dependencies of one kind that a unit requested
// during the current compile pass, together with what each resolved to.
type DependencySet struct {
	names    *NameSet
	resolved map[string]QName
}

func newDependencySet() *DependencySet {
	return &DependencySet{
		names:    NewNameSet(),
		resolved: make(map[string]QName),
	}
}

// Add adds a name to the set.
func (ds *DependencySet) Add(mn MultiName) bool {
	return ds.names.Add(mn)
}

// Contains returns whether the set holds a name.
func (ds *DependencySet) Contains(mn MultiName) bool {
	return ds.names.Contains(mn)
}

// Names returns the dependency names in insertion order.
func (ds *DependencySet) Names() []MultiName {
	return ds.names.Names()
}

// Len returns the number of names in the set.
func (ds *DependencySet) Len() int {
	return ds.names.Len()
}

// Resolved returns the qualified name a dependency resolved to.
func (ds *DependencySet) Resolved(mn MultiName) (QName, bool) {
	q, ok := ds.resolved[mn.Key()]
	return q, ok
}

// Unresolved returns the names which have not resolved yet in this pass.
func (ds *DependencySet) Unresolved() []MultiName {
	var unresolved []MultiName
	for _, mn := range ds.names.Names() {
		if _, ok := ds.resolved[mn.Key()]; !ok {
			unresolved = append(unresolved, mn)
		}
	}

	return unresolved
}

// QNames returns every qualified name resolved in this pass in order.
func (ds *DependencySet) QNames() []QName {
	var qnames []QName
	for _, mn := range ds.names.Names() {
		if q, ok := ds.resolved[mn.Key()]; ok {
			qnames = append(qnames, q)
		}
	}

	return qnames
}

func (ds *DependencySet) resolve(mn MultiName, q QName) {
	ds.names.Add(mn)
	ds.resolved[mn.Key()] = q
}

func (ds *DependencySet) clear() {
	ds.names.Clear()
	ds.resolved = make(map[string]QName)
}

func (ds *DependencySet) clone() *DependencySet {
	c := &DependencySet{names: ds.names.Clone(), resolved: make(map[string]QName, len(ds.resolved))}
	for k, q := range ds.resolved {
		c.resolved[k] = q
	}

	return c
}

// -----------------------------------------------------------------------------

// History is an append-only multimap from multi-names to every qualified name
// each of them has ever resolved to across the passes run on a unit's lineage.
// Nothing is ever removed from a history.
type History struct {
	keys    []string
	entries map[string]*historyEntry
}

type historyEntry struct {
	name     MultiName
	resolved []QName
}

func newHistory() *History {
	return &History{entries: make(map[string]*historyEntry)}
}

// Record records that mn was requested and, if q is non-zero, that it resolved
// to q.
func (h *History) Record(mn MultiName, q QName) {
	key := mn.Key()
	entry, ok := h.entries[key]
	if !ok {
		entry = &historyEntry{name: mn}
		h.entries[key] = entry
		h.keys = append(h.keys, key)
	}

	if q.IsZero() {
		return
	}

	for _, r := range entry.resolved {
		if r == q {
			return
		}
	}

	entry.resolved = append(entry.resolved, q)
}

// Contains returns whether mn was ever recorded.
func (h *History) Contains(mn MultiName) bool {
	_, ok := h.entries[mn.Key()]
	return ok
}

// Names returns every name ever recorded in first-seen order.
func (h *History) Names() []MultiName {
	names := make([]MultiName, len(h.keys))
	for i, key := range h.keys {
		names[i] = h.entries[key].name
	}

	return names
}

// Resolutions returns every qualified name mn ever resolved to.
func (h *History) Resolutions(mn MultiName) []QName {
	if entry, ok := h.entries[mn.Key()]; ok {
		return entry.resolved
	}

	return nil
}

// QNames returns every distinct qualified name recorded in the history.
func (h *History) QNames() []QName {
	seen := make(map[QName]struct{})
	var qnames []QName
	for _, key := range h.keys {
		for _, q := range h.entries[key].resolved {
			if _, ok := seen[q]; !ok {
				seen[q] = struct{}{}
				qnames = append(qnames, q)
			}
		}
	}

	return qnames
}

// Len returns the number of distinct names recorded.
func (h *History) Len() int {
	return len(h.keys)
}

// merge appends every entry of other into the history.
func (h *History) merge(other *History) {
	for _, key := range other.keys {
		entry := other.entries[key]
		h.Record(entry.name, QName{})
		for _, q := range entry.resolved {
			h.Record(entry.name, q)
		}
	}
}
