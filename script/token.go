package script

import "mxc/report"

// Token represents a single lexical token.
type Token struct {
	// The kind of the token.  This must be one of the enumerated token kinds.
	Kind int

	// The string value of the token.  The value of a string token has its
	// quotes trimmed and its escapes decoded.
	Value string

	// The text span over which the token exists.
	Position *report.TextPosition

	// Offset and End are the byte offsets of the token's text in the source.
	Offset, End int
}

// Enumeration of token kinds.
const (
	TOK_PACKAGE = iota
	TOK_IMPORT
	TOK_USE
	TOK_NAMESPACE

	TOK_CLASS
	TOK_INTERFACE
	TOK_EXTENDS
	TOK_IMPLEMENTS

	TOK_VAR
	TOK_CONST
	TOK_FUNCTION

	TOK_PUBLIC
	TOK_PRIVATE
	TOK_PROTECTED
	TOK_INTERNAL
	TOK_STATIC
	TOK_OVERRIDE
	TOK_FINAL
	TOK_DYNAMIC
	TOK_NATIVE

	TOK_LPAREN
	TOK_RPAREN
	TOK_LBRACE
	TOK_RBRACE
	TOK_LBRACKET
	TOK_RBRACKET
	TOK_COMMA
	TOK_DOT
	TOK_ELLIPSIS
	TOK_SEMI
	TOK_COLON
	TOK_ASSIGN
	TOK_STAR

	// TOK_OTHER is any other punctuation or operator.  It only appears inside
	// function bodies and initializers, which are not parsed by the skeleton
	// parser.
	TOK_OTHER

	TOK_IDENT
	TOK_NUMLIT
	TOK_STRINGLIT

	TOK_EOF
)

// modifierTokens maps modifier keyword tokens to their modifier flags.
var modifierTokens = map[int]Modifier{
	TOK_PUBLIC:    ModPublic,
	TOK_PRIVATE:   ModPrivate,
	TOK_PROTECTED: ModProtected,
	TOK_INTERNAL:  ModInternal,
	TOK_STATIC:    ModStatic,
	TOK_OVERRIDE:  ModOverride,
	TOK_FINAL:     ModFinal,
	TOK_DYNAMIC:   ModDynamic,
	TOK_NATIVE:    ModNative,
}
