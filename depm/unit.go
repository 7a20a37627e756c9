package depm

import (
	"mxc/common"
	"mxc/report"
)

// UnitContext is the scratch data a sub-compiler threads between the phases of
// one unit.  It is cleared when the unit is done.
type UnitContext struct {
	// Document is the sub-compiler's parsed document when it is not the syntax
	// tree itself: eg. the markup document which outlives the interface pass.
	Document interface{}

	// LineMap maps lines of generated text back to the unit's source.
	LineMap *report.LineMap

	// Delegate is the unit the sub-compiler delegated compilation to.  It is
	// owned exclusively by this context.
	Delegate *CompilationUnit

	// PassState is the progress of a two-pass compilation.
	PassState PassState
}

// ModuleMetadata is the module-level metadata a unit can contribute to the
// linked output.
type ModuleMetadata struct {
	IconFile        string
	LoaderClass     string
	LoaderBaseClass string
}

// CompilationUnit is the mutable record of how far a Source has been compiled.
// It is owned exclusively by its Source.
type CompilationUnit struct {
	source *Source

	// SyntaxTree is the sub-compiler's syntax tree.  It is opaque to the core
	// and is discarded once the unit has bytecode.
	SyntaxTree interface{}

	// Context is the cross-phase scratch data of the sub-compiler.
	Context *UnitContext

	state    State
	workflow Workflow

	deps    [NumDepKinds]*DependencySet
	history [NumDepKinds]*History

	definitions    []QName
	generated      map[QName]*Source
	generatedOrder []QName
	bytecode       []byte
	checksum       uint64
	hasChecksum    bool
	typeInfo       *TypeInfo
	hasTypeInfo    bool

	// Metadata is the accumulated class metadata of the unit.  It is scratch
	// data and is cleared when the unit is done.
	Metadata []string

	// -------------------------------------------------------------------------
	// Derived metadata.  Every field in this section is transplanted by
	// CopyMetaData and must be added there when it is added here.

	// Assets are the embedded resources of the unit keyed by symbol.
	Assets map[string]*Asset

	// AuxGenerateInfo is auxiliary information produced for code generation.
	AuxGenerateInfo map[string]string

	// Styles are the raw style declarations of the unit.
	Styles []string

	// ClassTable is the signatures of every class the unit defines by local
	// class name, including generated helper classes.
	ClassTable map[string]*TypeInfo

	Module ModuleMetadata

	ExtraClasses         []string
	AccessibilityClasses []string
	Mixins               []string
	ResourceBundles      []string

	LicensedClassReqs  map[string]string
	RemoteClassAliases map[string]string
	EffectTriggers     map[string]string

	// DependencyChecksums records the signature checksum of every unit this
	// unit depended on at the time it was compiled.
	DependencyChecksums map[QName]uint64
}

func newCompilationUnit(src *Source) *CompilationUnit {
	u := &CompilationUnit{
		source:              src,
		Context:             &UnitContext{},
		generated:           make(map[QName]*Source),
		Assets:              make(map[string]*Asset),
		AuxGenerateInfo:     make(map[string]string),
		ClassTable:          make(map[string]*TypeInfo),
		LicensedClassReqs:   make(map[string]string),
		RemoteClassAliases:  make(map[string]string),
		EffectTriggers:      make(map[string]string),
		DependencyChecksums: make(map[QName]uint64),
	}

	for i := range u.deps {
		u.deps[i] = newDependencySet()
		u.history[i] = newHistory()
	}

	return u
}

// Source returns the source owning the unit.
func (u *CompilationUnit) Source() *Source {
	return u.source
}

// -----------------------------------------------------------------------------

// State returns the current state flags.
func (u *CompilationUnit) State() State {
	return u.state
}

// IsDone returns whether the unit is done.
func (u *CompilationUnit) IsDone() bool {
	return u.state.Has(StateDone)
}

// SetState adds a state flag to the unit.  Setting a flag that is already set
// does nothing.  Setting a flag has the following side effects:
//
//   - StateHasBytecode drops the syntax tree, disconnects the source from the
//     path resolver and its diagnostic logger, and stores the unit in the
//     source's archive side cache if it has one.
//   - StateDone snapshots whether the unit has type info and drops the
//     context, the metadata and the source fragments.
func (u *CompilationUnit) SetState(flag State) {
	if !isStateFlag(flag) {
		panic(report.NewInternalError("invalid compilation unit state flag: %d", flag))
	}

	if u.state.Has(flag) {
		return
	}

	u.state |= flag

	switch flag {
	case StateHasBytecode:
		u.SyntaxTree = nil

		if u.source != nil {
			u.source.DisconnectPathResolver()
			u.source.disconnectLogger()

			if u.source.sideCache != nil {
				u.source.sideCache[common.UnitSideCacheKey] = u
			}
		}
	case StateDone:
		u.hasTypeInfo = u.typeInfo != nil
		u.SyntaxTree = nil
		u.Context = nil
		u.Metadata = nil

		if u.source != nil {
			u.source.ClearSourceFragments()
		}
	}
}

// Workflow returns the sub-compiler's workflow flags.
func (u *CompilationUnit) Workflow() Workflow {
	return u.workflow
}

// SetWorkflow adds workflow flags.
func (u *CompilationUnit) SetWorkflow(flag Workflow) {
	u.workflow |= flag
}

// -----------------------------------------------------------------------------

// Dependencies returns the current dependency set of a kind.
func (u *CompilationUnit) Dependencies(kind DepKind) *DependencySet {
	return u.deps[kind]
}

// History returns every dependency of a kind ever seen by the unit's lineage.
func (u *CompilationUnit) History(kind DepKind) *History {
	return u.history[kind]
}

// AddDependency requests a dependency in the current pass.  It returns false
// if the name was already requested.
func (u *CompilationUnit) AddDependency(kind DepKind, mn MultiName) bool {
	u.history[kind].Record(mn, QName{})
	return u.deps[kind].Add(mn)
}

// ResolveDependency records what a dependency resolved to in the current set
// and in the history.
func (u *CompilationUnit) ResolveDependency(kind DepKind, mn MultiName, q QName) {
	u.deps[kind].resolve(mn, q)
	u.history[kind].Record(mn, q)
}

// ClearDependencies clears the current set of a kind.  The history is never
// touched.
func (u *CompilationUnit) ClearDependencies(kind DepKind) {
	u.deps[kind].clear()
}

// ResolvedDependencies returns every qualified name resolved in the current
// pass across all kinds, without duplicates.
func (u *CompilationUnit) ResolvedDependencies() []QName {
	seen := make(map[QName]struct{})
	var qnames []QName
	for _, kind := range DepKinds {
		for _, q := range u.deps[kind].QNames() {
			if _, ok := seen[q]; !ok {
				seen[q] = struct{}{}
				qnames = append(qnames, q)
			}
		}
	}

	return qnames
}

// -----------------------------------------------------------------------------

// AddDefinition records a top-level definition of the unit.
func (u *CompilationUnit) AddDefinition(q QName) {
	for _, d := range u.definitions {
		if d == q {
			return
		}
	}

	u.definitions = append(u.definitions, q)
}

// Definitions returns the top-level definitions of the unit.
func (u *CompilationUnit) Definitions() []QName {
	return u.definitions
}

// AddGeneratedSource records a source manufactured while compiling the unit.
func (u *CompilationUnit) AddGeneratedSource(q QName, s *Source) {
	if _, ok := u.generated[q]; !ok {
		u.generatedOrder = append(u.generatedOrder, q)
	}

	u.generated[q] = s
}

// GeneratedSource returns a generated source by name.
func (u *CompilationUnit) GeneratedSource(q QName) (*Source, bool) {
	s, ok := u.generated[q]
	return s, ok
}

// GeneratedSources returns the generated sources in the order they were
// added.
func (u *CompilationUnit) GeneratedSources() []*Source {
	srcs := make([]*Source, len(u.generatedOrder))
	for i, q := range u.generatedOrder {
		srcs[i] = u.generated[q]
	}

	return srcs
}

// -----------------------------------------------------------------------------

// Bytecode returns the unit's bytecode.
func (u *CompilationUnit) Bytecode() []byte {
	return u.bytecode
}

// SetBytecode replaces the unit's bytecode.
func (u *CompilationUnit) SetBytecode(b []byte) {
	u.bytecode = b
}

// Checksum returns the signature checksum if one was computed.
func (u *CompilationUnit) Checksum() (uint64, bool) {
	return u.checksum, u.hasChecksum
}

// SetChecksum sets the signature checksum.
func (u *CompilationUnit) SetChecksum(sum uint64) {
	u.checksum = sum
	u.hasChecksum = true
}

// TypeInfo returns the unit's public type signature.
func (u *CompilationUnit) TypeInfo() *TypeInfo {
	return u.typeInfo
}

// SetTypeInfo sets the unit's public type signature.
func (u *CompilationUnit) SetTypeInfo(ti *TypeInfo) {
	u.typeInfo = ti
	u.hasTypeInfo = ti != nil
}

// HasTypeInfo returns whether the unit has (or had when it was done) a type
// signature.
func (u *CompilationUnit) HasTypeInfo() bool {
	return u.hasTypeInfo
}
