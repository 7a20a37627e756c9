package script

import (
	"strings"

	"mxc/depm"
	"mxc/report"
)

// File is the skeleton syntax tree of a script source: its declarations down
// to member signatures.  Function bodies and initializers are kept as text and
// parsed separately.
type File struct {
	// Package is the dotted package name.  It is empty for the top-level
	// package.
	Package string

	Imports []*Import

	// UsedNamespaces are the namespaces opened by `use namespace`.
	UsedNamespaces []*TypeRef

	// Def is the single externally visible definition of the file.
	Def *Definition
}

// Import is an import declaration.
type Import struct {
	Package string

	// Name is the imported definition, or `*` for a wildcard import.
	Name string

	Position *report.TextPosition

	// used indicates that a name resolved through the import.
	used bool
}

// IsWildcard returns whether the import imports a whole package.
func (imp *Import) IsWildcard() bool {
	return imp.Name == "*"
}

// -----------------------------------------------------------------------------

// DefKind enumerates the kinds of top-level definitions.
type DefKind int

// Enumeration of definition kinds.
const (
	DefClass DefKind = iota
	DefInterface
	DefNamespace
)

// Modifier is a set of declaration modifiers.
type Modifier uint16

// Enumeration of modifiers.
const (
	ModPublic Modifier = 1 << iota
	ModPrivate
	ModProtected
	ModInternal
	ModStatic
	ModOverride
	ModFinal
	ModDynamic
	ModNative
)

// Has returns whether every modifier of m is set.
func (mods Modifier) Has(m Modifier) bool {
	return mods&m == m
}

// accessModifiers are the mutually exclusive visibility modifiers.
const accessModifiers = ModPublic | ModPrivate | ModProtected | ModInternal

// Definition is a class, interface or namespace definition.
type Definition struct {
	Kind      DefKind
	Name      string
	Position  *report.TextPosition
	Modifiers Modifier
	Metadata  []*Metadata

	// Super is the superclass of a class.  It is nil for classes without an
	// explicit superclass.
	Super *TypeRef

	// Interfaces are the implemented interfaces of a class or the extended
	// interfaces of an interface.
	Interfaces []*TypeRef

	Members []*MemberDef

	// URI is the URI of a namespace definition.
	URI string
}

// MemberDef is a field or method declaration.
type MemberDef struct {
	Name      string
	Position  *report.TextPosition
	Kind      depm.MemberKind
	Modifiers Modifier
	Metadata  []*Metadata

	// Const indicates a `const` field.
	Const bool

	// Type is the type of a field or the return type of a method.  It is nil
	// if the declaration has no type annotation.
	Type *TypeRef

	Params []*Param

	// Init is the initializer of a field.
	Init *Code

	// Body is the body of a method.  It is nil for interface methods and
	// native methods.
	Body *Code
}

// IsPublicSignature returns whether the member is part of the public type
// signature of its class.
func (md *MemberDef) IsPublicSignature() bool {
	return !md.Modifiers.Has(ModPrivate)
}

// Param is a method parameter.
type Param struct {
	Name    string
	Type    *TypeRef
	Default *Code
	Rest    bool
}

// TypeRef is a reference to a named type as written in the source.
type TypeRef struct {
	// Name is the dotted name as written.
	Name     string
	Position *report.TextPosition
}

// Local returns the unqualified part of the name.
func (tr *TypeRef) Local() string {
	if i := strings.LastIndexByte(tr.Name, '.'); i >= 0 {
		return tr.Name[i+1:]
	}

	return tr.Name
}

// Code is a fragment of unparsed source text: a function body or an
// initializer expression.
type Code struct {
	Text string

	// Line and Col are where the text begins in the source.
	Line, Col int
}

// Metadata is a metadata tag such as `[Event(name="change")]`.
type Metadata struct {
	Name     string
	Position *report.TextPosition

	// Args are the tag's arguments in declaration order.  Positional arguments
	// have an empty key.
	Args []MetadataArg
}

// MetadataArg is one argument of a metadata tag.
type MetadataArg struct {
	Key, Value string
}

// Arg returns the value of the argument with the given key.  The key `` finds
// the first positional argument.
func (md *Metadata) Arg(key string) (string, bool) {
	for _, arg := range md.Args {
		if arg.Key == key {
			return arg.Value, true
		}
	}

	return "", false
}

// String returns the canonical source form of the tag.
func (md *Metadata) String() string {
	var sb strings.Builder
	sb.WriteByte('[')
	sb.WriteString(md.Name)

	if len(md.Args) > 0 {
		sb.WriteByte('(')
		for i, arg := range md.Args {
			if i > 0 {
				sb.WriteString(", ")
			}

			if arg.Key != "" {
				sb.WriteString(arg.Key)
				sb.WriteByte('=')
			}

			sb.WriteString(quote(arg.Value))
		}
		sb.WriteByte(')')
	}

	sb.WriteByte(']')
	return sb.String()
}

// quote returns s as a double quoted string literal.
func quote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\t", `\t`, "\r", `\r`)
	return `"` + r.Replace(s) + `"`
}
