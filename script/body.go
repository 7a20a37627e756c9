package script

import (
	"sort"
	"strings"
	"unicode"

	"github.com/robertkrimen/otto/ast"
	"github.com/robertkrimen/otto/parser"

	"mxc/report"
)

// initializerPrefix wraps initializers so that they parse as function bodies.
const initializerPrefix = "return ("

// superPlaceholder stands in for `super`, which the ECMAScript parser rejects
// as a reserved word.  It has the same length so columns are unchanged and it
// is never a class name.
const superPlaceholder = "$uper"

// BodyRefs is the result of analyzing a function body or an initializer.
type BodyRefs struct {
	// Names are the free identifiers of the code that name classes: the
	// capitalized identifiers that are neither declared locally nor builtin,
	// sorted.
	Names []string

	// Errors are the syntax errors of the code.
	Errors []*report.LocalCompileError
}

// AnalyzeBody parses a function body with the given parameter names and
// collects the class names it references.
func AnalyzeBody(params []string, code *Code) *BodyRefs {
	return analyzeCode(strings.Join(params, ", "), code.Text, code, 0)
}

// AnalyzeInitializer parses an initializer expression and collects the class
// names it references.
func AnalyzeInitializer(code *Code) *BodyRefs {
	return analyzeCode("", initializerPrefix+code.Text+");", code, len(initializerPrefix))
}

func analyzeCode(params, body string, code *Code, prefix int) *BodyRefs {
	refs := &BodyRefs{}

	fn, err := parser.ParseFunction(params, maskSuper(body))
	if err != nil {
		switch v := err.(type) {
		case parser.ErrorList:
			// later entries follow from the first
			if len(v) > 0 {
				refs.Errors = append(refs.Errors, code.syntaxError(v[0].Position.Line, v[0].Position.Column, prefix, v[0].Message))
			}
		case *parser.Error:
			refs.Errors = append(refs.Errors, code.syntaxError(v.Position.Line, v.Position.Column, prefix, v.Message))
		default:
			refs.Errors = append(refs.Errors, report.Raise(report.MKSyntax, report.LinePosition(code.Line, code.Col), "%s", err.Error()))
		}

		return refs
	}

	decls := &declCollector{names: make(map[string]struct{})}
	ast.Walk(decls, fn)

	free := &refCollector{declared: decls.names, names: make(map[string]struct{})}
	ast.Walk(free, fn)

	for name := range free.names {
		refs.Names = append(refs.Names, name)
	}
	sort.Strings(refs.Names)

	return refs
}

// maskSuper replaces every `super` keyword outside of string literals and
// comments with superPlaceholder.
func maskSuper(text string) string {
	if !strings.Contains(text, "super") {
		return text
	}

	b := []byte(text)
	for i := 0; i < len(b); {
		switch c := b[i]; {
		case c == '"' || c == '\'':
			i++
			for i < len(b) && b[i] != c && b[i] != '\n' {
				if b[i] == '\\' {
					i++
				}
				i++
			}
			i++
		case c == '/' && i+1 < len(b) && b[i+1] == '/':
			for i < len(b) && b[i] != '\n' {
				i++
			}
		case c == '/' && i+1 < len(b) && b[i+1] == '*':
			end := strings.Index(text[i+2:], "*/")
			if end < 0 {
				return string(b)
			}
			i += end + 4
		case isIdentByte(c):
			start := i
			for i < len(b) && isIdentByte(b[i]) {
				i++
			}

			if text[start:i] == "super" {
				copy(b[start:i], superPlaceholder)
			}
		default:
			i++
		}
	}

	return string(b)
}

func isIdentByte(c byte) bool {
	return c == '_' || c == '$' || c >= 0x80 ||
		('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9')
}

// syntaxError converts a position in the text handed to the ECMAScript parser
// into a position in the source.  The parser wraps the text in a function
// expression whose first line holds the parameter list.
func (c *Code) syntaxError(line, col, prefix int, msg string) *report.LocalCompileError {
	textLine := line - 2
	if textLine < 0 {
		textLine, col = 0, 1
	}

	if last := strings.Count(c.Text, "\n"); textLine > last {
		textLine, col = last, 1
	}

	var pos *report.TextPosition
	if textLine == 0 {
		col = col - 1 - prefix
		if col < 0 {
			col = 0
		}

		pos = report.LinePosition(c.Line, c.Col+col)
	} else {
		pos = report.LinePosition(c.Line+textLine, col-1)
	}

	return report.Raise(report.MKSyntax, pos, "%s", msg)
}

// -----------------------------------------------------------------------------

// declCollector collects every name declared anywhere in a function: its
// parameters, variables, nested functions and catch parameters.
type declCollector struct {
	names map[string]struct{}
}

func (dc *declCollector) Enter(n ast.Node) ast.Visitor {
	switch v := n.(type) {
	case *ast.FunctionLiteral:
		if v == nil {
			return nil
		}

		if v.Name != nil {
			dc.names[v.Name.Name] = struct{}{}
		}

		if v.ParameterList != nil {
			for _, p := range v.ParameterList.List {
				dc.names[p.Name] = struct{}{}
			}
		}
	case *ast.VariableExpression:
		if v != nil {
			dc.names[v.Name] = struct{}{}
		}
	case *ast.CatchStatement:
		if v != nil && v.Parameter != nil {
			dc.names[v.Parameter.Name] = struct{}{}
		}
	}

	return dc
}

func (dc *declCollector) Exit(n ast.Node) {}

// refCollector collects the free identifiers which may name classes.
type refCollector struct {
	declared map[string]struct{}
	names    map[string]struct{}
}

func (rc *refCollector) Enter(n ast.Node) ast.Visitor {
	switch v := n.(type) {
	case *ast.DotExpression:
		// only the object of a member access can be free
		if v != nil {
			ast.Walk(rc, v.Left)
		}

		return nil
	case *ast.LabelledStatement:
		if v != nil {
			ast.Walk(rc, v.Statement)
		}

		return nil
	case *ast.BranchStatement:
		return nil
	case *ast.Identifier:
		if v != nil && rc.isClassRef(v.Name) {
			rc.names[v.Name] = struct{}{}
		}
	}

	return rc
}

func (rc *refCollector) Exit(n ast.Node) {}

func (rc *refCollector) isClassRef(name string) bool {
	if name == "" || !unicode.IsUpper([]rune(name)[0]) {
		return false
	}

	if _, ok := rc.declared[name]; ok {
		return false
	}

	if _, ok := builtinGlobals[name]; ok {
		return false
	}

	return !IsBuiltinType(name)
}
