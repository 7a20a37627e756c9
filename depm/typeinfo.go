package depm

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strings"
)

// MemberKind enumerates the kinds of class members.
type MemberKind int

// Enumeration of member kinds.
const (
	MemberField MemberKind = iota
	MemberMethod
	MemberGetter
	MemberSetter
)

func (mk MemberKind) String() string {
	switch mk {
	case MemberField:
		return "var"
	case MemberMethod:
		return "function"
	case MemberGetter:
		return "get"
	case MemberSetter:
		return "set"
	default:
		return "?"
	}
}

// Member is a public member of a type signature.
type Member struct {
	Name string
	Kind MemberKind

	// Type is the declared type of a field, or the return type of a method.
	// It is the zero name when the member is untyped.
	Type QName

	// Params are the parameter types of a method.
	Params []QName

	Static bool
}

// TypeInfo is the public signature of a class or interface: everything another
// unit may depend on without seeing the implementation.
type TypeInfo struct {
	Name        QName
	IsInterface bool

	// Super is the superclass (zero for root classes and interfaces).
	Super QName

	// Interfaces are the implemented (or, for interfaces, extended)
	// interfaces.
	Interfaces []QName

	Members []Member

	// Events are the events declared through class metadata.
	Events []string

	// DefaultProperty is the property that child tags without a property tag
	// are assigned to.
	DefaultProperty string
}

// Member returns the member declared directly on the type with the given name.
func (ti *TypeInfo) Member(name string) (*Member, bool) {
	for i := range ti.Members {
		if ti.Members[i].Name == name {
			return &ti.Members[i], true
		}
	}

	return nil, false
}

// HasEvent returns whether the type declares the event directly.
func (ti *TypeInfo) HasEvent(name string) bool {
	for _, ev := range ti.Events {
		if ev == name {
			return true
		}
	}

	return false
}

// Signature returns a canonical text form of the public signature.  Member
// order does not affect it.
func (ti *TypeInfo) Signature() string {
	var sb strings.Builder
	if ti.IsInterface {
		sb.WriteString("interface ")
	} else {
		sb.WriteString("class ")
	}

	sb.WriteString(ti.Name.String())
	if !ti.Super.IsZero() {
		sb.WriteString(" extends ")
		sb.WriteString(ti.Super.String())
	}

	for _, iface := range ti.Interfaces {
		sb.WriteString(" implements ")
		sb.WriteString(iface.String())
	}

	members := make([]string, len(ti.Members))
	for i, m := range ti.Members {
		params := make([]string, len(m.Params))
		for j, p := range m.Params {
			params[j] = p.String()
		}

		members[i] = fmt.Sprintf("%v %s %s(%s):%s", m.Static, m.Kind, m.Name, strings.Join(params, ","), m.Type)
	}

	sort.Strings(members)
	for _, m := range members {
		sb.WriteString("\n")
		sb.WriteString(m)
	}

	events := append([]string(nil), ti.Events...)
	sort.Strings(events)
	for _, ev := range events {
		sb.WriteString("\nevent ")
		sb.WriteString(ev)
	}

	if ti.DefaultProperty != "" {
		sb.WriteString("\ndefault ")
		sb.WriteString(ti.DefaultProperty)
	}

	return sb.String()
}

// Checksum returns the checksum of the public signature.
func (ti *TypeInfo) Checksum() uint64 {
	h := fnv.New64a()
	h.Write([]byte(ti.Signature()))
	return h.Sum64()
}

// Clone returns a deep copy of the type info.
func (ti *TypeInfo) Clone() *TypeInfo {
	if ti == nil {
		return nil
	}

	c := *ti
	c.Interfaces = append([]QName(nil), ti.Interfaces...)
	c.Events = append([]string(nil), ti.Events...)
	c.Members = make([]Member, len(ti.Members))
	for i, m := range ti.Members {
		m.Params = append([]QName(nil), m.Params...)
		c.Members[i] = m
	}

	return &c
}

// -----------------------------------------------------------------------------

// TypeID is a handle to a type registered in a TypeTable.
type TypeID int

// NoType is the handle of no type.
const NoType TypeID = -1

// TypeTable is the arena of every type signature known to a compilation.
// Types refer to each other by name and are looked up through handles so that
// mutually referential and forward-declared types never need to be
// constructed eagerly.
type TypeTable struct {
	types []*TypeInfo
	index map[QName]TypeID
}

// NewTypeTable creates an empty type table.
func NewTypeTable() *TypeTable {
	return &TypeTable{index: make(map[QName]TypeID)}
}

// Register adds or replaces the signature of a type and returns its handle.
// Replacing a type keeps its handle stable.
func (tt *TypeTable) Register(ti *TypeInfo) TypeID {
	if id, ok := tt.index[ti.Name]; ok {
		tt.types[id] = ti
		return id
	}

	id := TypeID(len(tt.types))
	tt.types = append(tt.types, ti)
	tt.index[ti.Name] = id
	return id
}

// Lookup returns the handle of a type by name.
func (tt *TypeTable) Lookup(q QName) (TypeID, bool) {
	id, ok := tt.index[q]
	return id, ok
}

// Get returns the signature behind a handle.
func (tt *TypeTable) Get(id TypeID) *TypeInfo {
	if id < 0 || int(id) >= len(tt.types) {
		return nil
	}

	return tt.types[id]
}

// Find returns the signature of a type by name.
func (tt *TypeTable) Find(q QName) (*TypeInfo, bool) {
	if id, ok := tt.index[q]; ok {
		return tt.types[id], true
	}

	return nil, false
}

// Len returns the number of registered types.
func (tt *TypeTable) Len() int {
	return len(tt.types)
}

// FindMember looks up a member of a type, searching superclasses.  The search
// stops at the first type whose signature is not known and at cycles.
func (tt *TypeTable) FindMember(q QName, name string) (*Member, QName, bool) {
	visited := make(map[QName]struct{})
	for !q.IsZero() {
		if _, ok := visited[q]; ok {
			break
		}
		visited[q] = struct{}{}

		ti, ok := tt.Find(q)
		if !ok {
			break
		}

		if m, ok := ti.Member(name); ok {
			return m, q, true
		}

		q = ti.Super
	}

	return nil, QName{}, false
}

// HasEvent returns whether a type or one of its superclasses declares the
// event.
func (tt *TypeTable) HasEvent(q QName, name string) bool {
	visited := make(map[QName]struct{})
	for !q.IsZero() {
		if _, ok := visited[q]; ok {
			return false
		}
		visited[q] = struct{}{}

		ti, ok := tt.Find(q)
		if !ok {
			return false
		}

		if ti.HasEvent(name) {
			return true
		}

		q = ti.Super
	}

	return false
}

// DefaultProperty returns the default property of a type, searching
// superclasses.
func (tt *TypeTable) DefaultProperty(q QName) string {
	visited := make(map[QName]struct{})
	for !q.IsZero() {
		if _, ok := visited[q]; ok {
			return ""
		}
		visited[q] = struct{}{}

		ti, ok := tt.Find(q)
		if !ok {
			return ""
		}

		if ti.DefaultProperty != "" {
			return ti.DefaultProperty
		}

		q = ti.Super
	}

	return ""
}
