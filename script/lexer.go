package script

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"mxc/report"
)

// Lexer is responsible for tokenizing a script source.  Line numbers start at
// the line the source text begins on so that fragments embedded in other
// documents report positions in their enclosing file.
type Lexer struct {
	src string

	// offset is the byte offset of the next rune.
	offset int

	line, col           int
	startLine, startCol int
	startOffset         int
}

// NewLexer creates a new lexer for the given text starting on line firstLine.
func NewLexer(src string, firstLine int) *Lexer {
	return &Lexer{
		src:  src,
		line: firstLine,
	}
}

// NextToken retrieves the next token from the input.  If the input has ended,
// this will be an EOF token.
func (l *Lexer) NextToken() (*Token, error) {
	for {
		c := l.peek()
		if c == -1 {
			break
		}

		switch c {
		case '\n', '\t', ' ', '\r', '\v', '\f':
			l.skip()
		case '/':
			if ok, err := l.skipComment(); err != nil {
				return nil, err
			} else if !ok {
				l.mark()
				l.skip()
				return l.makeToken(TOK_OTHER, "/"), nil
			}
		case '"', '\'':
			return l.lexStringLit(c)
		default:
			if isDecimalDigit(c) {
				return l.lexNumericLit(), nil
			} else if isFirstIdentChar(c) {
				return l.lexIdentOrKeyword(), nil
			} else {
				return l.lexPunct(), nil
			}
		}
	}

	l.mark()
	return l.makeToken(TOK_EOF, ""), nil
}

// -----------------------------------------------------------------------------

// symbolPatterns maps the punctuation the skeleton parser understands to its
// token kind.
var symbolPatterns = map[string]int{
	"(":   TOK_LPAREN,
	")":   TOK_RPAREN,
	"{":   TOK_LBRACE,
	"}":   TOK_RBRACE,
	"[":   TOK_LBRACKET,
	"]":   TOK_RBRACKET,
	",":   TOK_COMMA,
	".":   TOK_DOT,
	"...": TOK_ELLIPSIS,
	";":   TOK_SEMI,
	":":   TOK_COLON,
	"=":   TOK_ASSIGN,
	"*":   TOK_STAR,
}

// lexPunct lexes a punctuation or operator symbol.  Operators the skeleton
// parser does not understand are lexed one rune at a time as TOK_OTHER.
func (l *Lexer) lexPunct() *Token {
	l.mark()

	if strings.HasPrefix(l.src[l.offset:], "...") {
		l.skip()
		l.skip()
		l.skip()
		return l.makeToken(TOK_ELLIPSIS, "...")
	}

	c := l.peek()
	l.skip()

	// `==` and `=>` are not assignments
	if c == '=' && (l.peek() == '=' || l.peek() == '>') {
		l.skip()
		return l.makeToken(TOK_OTHER, l.src[l.startOffset:l.offset])
	}

	if kind, ok := symbolPatterns[string(c)]; ok {
		return l.makeToken(kind, string(c))
	}

	return l.makeToken(TOK_OTHER, string(c))
}

// keywordPatterns maps keyword strings (patterns) to their keyword token kind.
// `get` and `set` are contextual and lexed as identifiers.
var keywordPatterns = map[string]int{
	"package":   TOK_PACKAGE,
	"import":    TOK_IMPORT,
	"use":       TOK_USE,
	"namespace": TOK_NAMESPACE,

	"class":      TOK_CLASS,
	"interface":  TOK_INTERFACE,
	"extends":    TOK_EXTENDS,
	"implements": TOK_IMPLEMENTS,

	"var":      TOK_VAR,
	"const":    TOK_CONST,
	"function": TOK_FUNCTION,

	"public":    TOK_PUBLIC,
	"private":   TOK_PRIVATE,
	"protected": TOK_PROTECTED,
	"internal":  TOK_INTERNAL,
	"static":    TOK_STATIC,
	"override":  TOK_OVERRIDE,
	"final":     TOK_FINAL,
	"dynamic":   TOK_DYNAMIC,
	"native":    TOK_NATIVE,
}

// lexIdentOrKeyword lexes an identifier or a keyword.
func (l *Lexer) lexIdentOrKeyword() *Token {
	l.mark()
	for c := l.peek(); c != -1 && isIdentChar(c); c = l.peek() {
		l.skip()
	}

	value := l.src[l.startOffset:l.offset]
	if kind, ok := keywordPatterns[value]; ok {
		return l.makeToken(kind, value)
	}

	return l.makeToken(TOK_IDENT, value)
}

// lexNumericLit lexes a numeric literal.  The skeleton parser never inspects
// numbers, so the lexer only needs to find where they end.
func (l *Lexer) lexNumericLit() *Token {
	l.mark()
	for c := l.peek(); c != -1 && (isIdentChar(c) || c == '.'); c = l.peek() {
		l.skip()
	}

	return l.makeToken(TOK_NUMLIT, l.src[l.startOffset:l.offset])
}

// lexStringLit lexes a single or double quoted string literal.
func (l *Lexer) lexStringLit(quote rune) (*Token, error) {
	l.mark()
	l.skip()

	var sb strings.Builder
	for {
		c := l.peek()
		switch c {
		case -1, '\n':
			return nil, report.Raise(report.MKSyntax, l.span(), "unclosed string literal")
		case quote:
			l.skip()
			return l.makeToken(TOK_STRINGLIT, sb.String()), nil
		case '\\':
			l.skip()
			esc := l.peek()
			if esc == -1 {
				return nil, report.Raise(report.MKSyntax, l.span(), "unclosed string literal")
			}

			l.skip()
			switch esc {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			default:
				sb.WriteRune(esc)
			}
		default:
			l.skip()
			sb.WriteRune(c)
		}
	}
}

// skipComment skips a line or block comment.  It returns false if the slash
// does not begin a comment.
func (l *Lexer) skipComment() (bool, error) {
	rest := l.src[l.offset:]
	switch {
	case strings.HasPrefix(rest, "//"):
		for c := l.peek(); c != -1 && c != '\n'; c = l.peek() {
			l.skip()
		}

		return true, nil
	case strings.HasPrefix(rest, "/*"):
		l.mark()
		l.skip()
		l.skip()

		for !strings.HasPrefix(l.src[l.offset:], "*/") {
			if l.peek() == -1 {
				return false, report.Raise(report.MKSyntax, l.span(), "unclosed block comment")
			}

			l.skip()
		}

		l.skip()
		l.skip()
		return true, nil
	}

	return false, nil
}

// -----------------------------------------------------------------------------

// peek returns the next rune without consuming it.  It returns -1 at the end
// of the input.
func (l *Lexer) peek() rune {
	if l.offset >= len(l.src) {
		return -1
	}

	c, _ := utf8.DecodeRuneInString(l.src[l.offset:])
	return c
}

// skip consumes the next rune.
func (l *Lexer) skip() {
	c, size := utf8.DecodeRuneInString(l.src[l.offset:])
	l.offset += size

	if c == '\n' {
		l.line++
		l.col = 0
	} else {
		l.col++
	}
}

// mark marks the beginning of a token.
func (l *Lexer) mark() {
	l.startLine = l.line
	l.startCol = l.col
	l.startOffset = l.offset
}

// span returns the span from the last mark to the current position.
func (l *Lexer) span() *report.TextPosition {
	return &report.TextPosition{
		StartLn:  l.startLine,
		StartCol: l.startCol,
		EndLn:    l.line,
		EndCol:   l.col,
	}
}

// makeToken creates a token spanning from the last mark.
func (l *Lexer) makeToken(kind int, value string) *Token {
	return &Token{
		Kind:     kind,
		Value:    value,
		Position: l.span(),
		Offset:   l.startOffset,
		End:      l.offset,
	}
}

// -----------------------------------------------------------------------------

func isDecimalDigit(c rune) bool {
	return '0' <= c && c <= '9'
}

func isFirstIdentChar(c rune) bool {
	return c == '_' || c == '$' || unicode.IsLetter(c)
}

func isIdentChar(c rune) bool {
	return isFirstIdentChar(c) || unicode.IsDigit(c)
}
