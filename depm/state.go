package depm

import "strings"

// State is the additive set of significant compilation flags of a unit.  Flags
// are only ever added: a unit that must be redone is discarded and replaced.
type State uint8

// Enumeration of state flags.
const (
	StateEmpty       State = 0
	StateSyntaxTree  State = 1 << 0
	StateHasBytecode State = 1 << 1
	StateDone        State = 1 << 2

	stateMask = StateSyntaxTree | StateHasBytecode | StateDone
)

// Has returns whether every bit of flag is set.
func (s State) Has(flag State) bool {
	return s&flag == flag
}

// isStateFlag returns whether flag is exactly one significant state flag.
func isStateFlag(flag State) bool {
	return flag != 0 && flag&^stateMask == 0 && flag&(flag-1) == 0
}

func (s State) String() string {
	if s == StateEmpty {
		return "empty"
	}

	var parts []string
	if s.Has(StateSyntaxTree) {
		parts = append(parts, "syntax-tree")
	}

	if s.Has(StateHasBytecode) {
		parts = append(parts, "bytecode")
	}

	if s.Has(StateDone) {
		parts = append(parts, "done")
	}

	return strings.Join(parts, "|")
}

// -----------------------------------------------------------------------------

// Workflow is a set of flags private to the sub-compiler driving a unit.  The
// core never interprets it; it is kept separate from State so that compiler
// bookkeeping can never be mistaken for unit progress.
type Workflow uint32

// Has returns whether every bit of flag is set.
func (w Workflow) Has(flag Workflow) bool {
	return w&flag == flag
}

// -----------------------------------------------------------------------------

// PassState tracks the progress of a two-pass markup compilation of a unit.
type PassState uint8

// Enumeration of pass states.
const (
	PassNone PassState = iota
	InterfaceParsed
	InterfaceGenerated
	ImplementationParsed
	ImplementationGenerated
)

func (ps PassState) String() string {
	switch ps {
	case InterfaceParsed:
		return "interface-parsed"
	case InterfaceGenerated:
		return "interface-generated"
	case ImplementationParsed:
		return "implementation-parsed"
	case ImplementationGenerated:
		return "implementation-generated"
	default:
		return "none"
	}
}
