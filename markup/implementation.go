package markup

import (
	"fmt"
	"strings"

	"mxc/common"
	"mxc/depm"
	"mxc/report"
)

// genLine is a generated line and the document line it stands for.
type genLine struct {
	orig int
	text string
}

type lineBuf []genLine

func (lb *lineBuf) add(orig int, format string, args ...interface{}) {
	*lb = append(*lb, genLine{orig, fmt.Sprintf(format, args...)})
}

// implGenerator generates the implementation of a document's class once
// child tag discovery resolved the class of every component tag.  The
// implementation is the interface plus a private field for every component
// without an id, and a constructor building the component tree.
type implGenerator struct {
	sess *depm.Session
	u    *depm.CompilationUnit
	h    *classHeader

	fields   lineBuf
	ctor     lineBuf
	handlers lineBuf

	// counts numbers the generated fields per tag name.
	counts map[string]int

	ok bool
}

// generateImplementation generates the implementation script source of a
// document.  Errors are reported to the session sink; it returns false if
// there were any.
func generateImplementation(sess *depm.Session, u *depm.CompilationUnit, doc *Document) (string, *report.LineMap, bool) {
	h := doc.header
	g := &implGenerator{sess: sess, u: u, h: h, counts: make(map[string]int), ok: true}

	g.component(doc.Root, "this")
	styles := g.styles()

	w := newScriptWriter()
	h.writeOpen(w, nil)

	for _, n := range h.Fields {
		w.writef(n.Line, "public var %s:%s;", n.field, typeRef(n.Type))
	}

	for _, l := range g.fields {
		w.writef(l.orig, "%s", l.text)
	}

	if styles != "" {
		w.writef(0, "private static const STYLES:String = %s.CSS;", styles)
	}

	h.writeScripts(w)

	w.open(h.Root.Line, "public function %s()", h.Name)
	w.writef(0, "super();")
	for _, l := range g.ctor {
		w.writef(l.orig, "%s", l.text)
	}
	w.close()

	for _, l := range g.handlers {
		if l.text == "}" {
			w.indent--
		}

		w.writef(l.orig, "%s", l.text)

		if strings.HasSuffix(l.text, "{") {
			w.indent++
		}
	}

	w.close()
	w.close()
	return w.String(), w.lines, g.ok
}

func (g *implGenerator) errorf(n *Node, kind int, msg string, args ...interface{}) {
	g.sess.Errorf(kind, n.Position(), msg, args...)
	g.ok = false
}

// fieldOf returns the field holding a component, declaring one if the
// component has no id.
func (g *implGenerator) fieldOf(n *Node) string {
	if n.field == "" {
		g.counts[n.Local]++
		n.field = fmt.Sprintf("_%s_%s%d", g.h.Name, n.Local, g.counts[n.Local])
		g.fields.add(n.Line, "private var %s:%s;", n.field, typeRef(n.Type))
	}

	return n.field
}

// construct generates the construction of a child component and returns the
// expression referring to it.
func (g *implGenerator) construct(n *Node) string {
	ref := "this." + g.fieldOf(n)
	g.ctor.add(n.Line, "%s = new %s();", ref, typeRef(n.Type))
	g.component(n, ref)
	return ref
}

// component generates the attribute assignments and the children of a
// component referred to by ref.
func (g *implGenerator) component(n *Node, ref string) {
	for _, a := range n.Attrs {
		g.attribute(n, ref, a)
	}

	for _, child := range n.Children {
		if child.IsLanguageTag() {
			switch child.Local {
			case tagScript, tagStyle, tagMetadata:
				continue
			case tagDeclarations:
				for _, d := range child.Children {
					g.construct(d)
				}

				continue
			}
		}

		if child.Property {
			g.propertyTag(n, ref, child)
			continue
		}

		dp := g.sess.Symbols.Types.DefaultProperty(n.Type)
		if dp == "" {
			g.errorf(child, report.MKProp, "%s has no default property to hold %s", n, child)
			continue
		}

		g.ctor.add(child.Line, "%s.%s.push(%s);", ref, dp, g.construct(child))
	}
}

// attribute generates the assignment of a property or the registration of an
// event handler.
func (g *implGenerator) attribute(n *Node, ref string, a *Attr) {
	switch {
	case a.URI == "" && a.Local == "id":
		return
	case a.URI == "" && a.Local == "implements" && n == g.h.Root:
		return
	case a.URI != "":
		g.errorf(n, report.MKProp, "%s has no property or event named `%s`", n, a.Local)
		return
	}

	if m, _, ok := g.sess.Symbols.Types.FindMember(n.Type, a.Local); ok && !m.Static && m.Kind != depm.MemberMethod {
		value, ok := literal(memberType(m), a.Value)
		if !ok {
			g.errorf(n, report.MKProp, "`%s` is not a valid value for `%s` of type `%s`", a.Value, a.Local, typeRef(m.Type))
			return
		}

		g.ctor.add(n.Line, "%s.%s = %s;", ref, a.Local, value)
		return
	}

	if g.sess.Symbols.Types.HasEvent(n.Type, a.Local) {
		owner := n.field
		if n == g.h.Root {
			owner = g.h.Name
		}

		handler := fmt.Sprintf("__%s_%s", owner, a.Local)
		g.ctor.add(n.Line, "%s.addEventListener(%s, this.%s);", ref, quote(a.Local), handler)
		g.handlers.add(n.Line, "private function %s(event:Object):void {", handler)
		g.handlers.add(n.Line, "%s", strings.TrimSpace(a.Value))
		g.handlers.add(0, "}")
		return
	}

	// builtin classes are dynamic
	if _, known := g.sess.Symbols.TypeInfo(n.Type); !known && n.Type.Namespace == "" {
		value, _ := literal("", a.Value)
		g.ctor.add(n.Line, "%s.%s = %s;", ref, a.Local, value)
		return
	}

	g.errorf(n, report.MKProp, "%s has no property or event named `%s`", n, a.Local)
}

// propertyTag generates the assignment of a property tag: its text, its only
// component or an array of its components.
func (g *implGenerator) propertyTag(parent *Node, ref string, p *Node) {
	m, _, _ := g.sess.Symbols.Types.FindMember(parent.Type, p.Local)

	var values []string
	for _, c := range p.Children {
		values = append(values, g.construct(c))
	}

	switch len(values) {
	case 0:
		value, ok := literal(memberType(m), p.TextContent())
		if !ok {
			g.errorf(p, report.MKProp, "`%s` is not a valid value for `%s` of type `%s`", strings.TrimSpace(p.TextContent()), p.Local, typeRef(m.Type))
			return
		}

		g.ctor.add(p.Line, "%s.%s = %s;", ref, p.Local, value)
	case 1:
		g.ctor.add(p.Line, "%s.%s = %s;", ref, p.Local, values[0])
	default:
		g.ctor.add(p.Line, "%s.%s = [%s];", ref, p.Local, strings.Join(values, ", "))
	}
}

// styles records the style declarations of the document and generates the
// class holding them.  It returns the name of that class, or "" if none was
// generated.
func (g *implGenerator) styles() string {
	if len(g.h.Styles) == 0 {
		return ""
	}

	var css strings.Builder
	for _, n := range g.h.Styles {
		text := strings.TrimSpace(n.TextContent())
		if text == "" {
			continue
		}

		g.u.Styles = append(g.u.Styles, text)
		css.WriteString(text)
		css.WriteByte('\n')
	}

	if css.Len() == 0 || g.sess.Container == nil {
		return ""
	}

	s := g.u.Source()
	q := depm.NewQName(g.h.Package, g.h.Name+"_Styles")

	w := newScriptWriter()
	if q.Namespace != "" {
		w.open(0, "package %s", q.Namespace)
	} else {
		w.open(0, "package")
	}
	w.open(0, "public class %s", q.Local)
	w.writef(0, "public static const CSS:String = %s;", quote(css.String()))
	w.close()
	w.close()

	f := depm.NewTextFile(q.Path()+common.ScriptFileExt, common.MimeScript, w.String(), s.LastModified())
	gs := g.sess.Container.AddSource(q, f, s)
	g.u.AddGeneratedSource(q, gs)

	// the class did not exist when earlier lookups missed it
	g.sess.Symbols.ForgetMisses()

	return q.Local
}

// memberType returns the name of a member's type as literal expects it.
func memberType(m *depm.Member) string {
	if m == nil || m.Type.IsZero() {
		return "*"
	}

	if m.Type.Namespace == "" {
		return m.Type.Local
	}

	return m.Type.Dotted()
}
