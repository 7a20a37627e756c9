package build

import (
	"mxc/depm"
)

// Compiler is a sub-compiler: the compiler of one input language.  The driver
// dispatches every source to the first registered compiler supporting its
// MIME type and moves the source's unit through the phases below in order.
// Phase methods report ordinary compile errors to the session sink; the driver
// installs the source's logger as that sink before each call and treats any
// error reported during a phase as a failure of the unit.
type Compiler interface {
	// IsSupported returns whether the compiler compiles the MIME type.
	IsSupported(mimeType string) bool

	// SupportedMimeTypes returns every MIME type the compiler compiles.
	SupportedMimeTypes() []string

	// Preprocess returns the source to compile in place of s.  It is usually s
	// itself.  A nil source is a failure.
	Preprocess(sess *depm.Session, s *depm.Source) *depm.Source

	// Parse1 parses a source and returns its new unit.  It must register the
	// unit's top-level definitions and at least its inheritance and namespace
	// dependencies.  It returns nil if the source cannot be parsed yet, in
	// which case it is retried in the next driver iteration.
	Parse1(sess *depm.Session, s *depm.Source) *depm.CompilationUnit

	// Parse2 completes the syntax of a unit and requests its type and
	// expression dependencies.
	Parse2(sess *depm.Session, u *depm.CompilationUnit)

	// Analyze1 runs once every inheritance and namespace dependency resolved
	// to a definition with a known type signature.
	Analyze1(sess *depm.Session, u *depm.CompilationUnit)

	// Analyze2 computes the unit's type signature and its checksum.  The
	// driver registers the signature with the symbol table afterwards.
	Analyze2(sess *depm.Session, u *depm.CompilationUnit)

	// Analyze3 runs once every type dependency resolved to a definition with a
	// known type signature.
	Analyze3(sess *depm.Session, u *depm.CompilationUnit)

	// Analyze4 runs the final checks of the unit.
	Analyze4(sess *depm.Session, u *depm.CompilationUnit)

	// Generate produces the unit's bytecode.
	Generate(sess *depm.Session, u *depm.CompilationUnit)

	// Postprocess is called repeatedly once the unit has bytecode.  It
	// receives the names it returned on its previous call (empty on the first
	// call) after the driver tried to resolve them, and returns the names it
	// still waits for.  The unit is done once it returns an empty set.
	Postprocess(sess *depm.Session, u *depm.CompilationUnit, pending *depm.NameSet) *depm.NameSet
}

// selectCompiler returns the first compiler supporting a MIME type.
func selectCompiler(compilers []Compiler, mimeType string) (Compiler, bool) {
	for _, c := range compilers {
		if c.IsSupported(mimeType) {
			return c, true
		}
	}

	return nil, false
}
