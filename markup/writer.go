package markup

import (
	"fmt"
	"strings"

	"mxc/report"
	"mxc/script"
)

// scriptWriter accumulates generated script text and records which line of
// the document every generated line came from.
type scriptWriter struct {
	sb     strings.Builder
	line   int
	indent int
	lines  *report.LineMap
}

func newScriptWriter() *scriptWriter {
	return &scriptWriter{line: 1, lines: report.NewLineMap()}
}

// writef writes one generated line.  A positive orig is the document line the
// generated line stands for; zero means it has no counterpart.
func (w *scriptWriter) writef(orig int, format string, args ...interface{}) {
	if orig > 0 {
		w.lines.Add(w.line, orig, 1)
	}

	w.sb.WriteString(strings.Repeat("    ", w.indent))
	fmt.Fprintf(&w.sb, format, args...)
	w.sb.WriteByte('\n')
	w.line++
}

// writeVerbatim copies user-authored text which starts on document line orig.
// Every line of included text maps to orig itself.
func (w *scriptWriter) writeVerbatim(text string, orig int, included bool) {
	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	for i, l := range lines {
		if included {
			w.lines.Add(w.line, orig, 1)
		} else {
			w.lines.Add(w.line, orig+i, 1)
		}

		w.sb.WriteString(l)
		w.sb.WriteByte('\n')
		w.line++
	}
}

func (w *scriptWriter) open(orig int, format string, args ...interface{}) {
	w.writef(orig, format+" {", args...)
	w.indent++
}

func (w *scriptWriter) close() {
	w.indent--
	w.writef(0, "}")
}

func (w *scriptWriter) String() string {
	return w.sb.String()
}

// -----------------------------------------------------------------------------

// scriptBlock is a run of script code taken from a <Script> tag, either its
// character data or the file named by its source attribute.
type scriptBlock struct {
	Text string
	Line int

	// Included is set for text read from another file.  Diagnostics in it
	// point at the <Script> tag.
	Included bool

	// Imports are the import directives hoisted out of the block.
	Imports []hoistedImport
}

// hoistedImport is an import directive moved from a script block to the head
// of the generated package.
type hoistedImport struct {
	Text string
	Line int
}

// hoistImports removes the top-level import directives from a script block
// and returns them with the remaining text.  The directives are blanked in
// place so the lines of the remaining text are unchanged.
func hoistImports(text string, firstLine int) ([]hoistedImport, string) {
	lex := script.NewLexer(text, firstLine)
	rest := []byte(text)

	var imports []hoistedImport
	var after *script.Token
	depth := 0
	for {
		tok := after
		if tok == nil {
			var err error
			if tok, err = lex.NextToken(); err != nil {
				break
			}
		}

		after = nil
		if tok.Kind == script.TOK_EOF {
			break
		}

		switch tok.Kind {
		case script.TOK_LBRACE:
			depth++
		case script.TOK_RBRACE:
			depth--
		case script.TOK_IMPORT:
			if depth != 0 {
				continue
			}

			// the directive ends at its semicolon or after its dotted name
			end, last := -1, tok.End
			for end < 0 {
				t, err := lex.NextToken()
				if err != nil {
					return imports, string(rest)
				}

				switch t.Kind {
				case script.TOK_SEMI:
					end = t.End
				case script.TOK_IDENT, script.TOK_DOT, script.TOK_STAR:
					last = t.End
				default:
					end, after = last, t
				}
			}

			imports = append(imports, hoistedImport{
				Text: strings.Join(strings.Fields(text[tok.Offset:end]), " "),
				Line: tok.Position.StartLn,
			})

			for i := tok.Offset; i < end; i++ {
				if rest[i] != '\n' {
					rest[i] = ' '
				}
			}
		}
	}

	return imports, string(rest)
}

// -----------------------------------------------------------------------------

// literal converts an attribute value into a script expression of the given
// type.  Values in braces are bindings and are copied as expressions.  Values
// of class types can only be bindings.
func literal(typ string, value string) (string, bool) {
	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}") {
		return strings.TrimSpace(trimmed[1 : len(trimmed)-1]), true
	}

	switch typ {
	case "Number", "int", "uint":
		if !isNumber(trimmed, typ != "Number") {
			return "", false
		}

		return trimmed, true
	case "Boolean":
		if trimmed != "true" && trimmed != "false" {
			return "", false
		}

		return trimmed, true
	case "String", "Object", "*", "":
		return quote(value), true
	}

	return "", false
}

func isNumber(s string, integer bool) bool {
	if s == "" {
		return false
	}

	if s[0] == '-' || s[0] == '+' {
		s = s[1:]
	}

	if strings.HasPrefix(s, "0x") && len(s) > 2 {
		return strings.Trim(s[2:], "0123456789abcdefABCDEF") == ""
	}

	digits, dot := 0, false
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
			digits++
		case c == '.' && !dot && !integer:
			dot = true
		default:
			return false
		}
	}

	return digits > 0
}

var quoteReplacer = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", `\r`, "\t", `\t`)

func quote(s string) string {
	return `"` + quoteReplacer.Replace(s) + `"`
}
