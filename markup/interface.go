package markup

import (
	"strings"

	"mxc/common"
	"mxc/depm"
	"mxc/report"
)

// classHeader is the part of a document shared by the interface and the
// implementation of its class: the class declaration, the members declared
// by id attributes and the script blocks.
type classHeader struct {
	Name, Package string
	Root          *Node

	// Super names the class of the root tag.
	Super depm.MultiName

	// Implements are the interfaces listed by the root tag's implements
	// attribute, as written.
	Implements []string

	// Fields are the component tags with an id attribute in document order.
	Fields []*Node

	Scripts  []*scriptBlock
	Metadata []*TextSegment
	Styles   []*Node
}

// readHeader reads the class header of a document.  Errors are reported to
// the session sink; it returns false if there were any.
func readHeader(sess *depm.Session, s *depm.Source, doc *Document, ns *Namespaces) (*classHeader, bool) {
	root := doc.Root
	h := &classHeader{
		Name:    s.ShortName(),
		Package: s.QName().Namespace,
		Root:    root,
	}

	ok := true
	if !common.IsValidIdentifier(h.Name) {
		sess.Errorf(report.MKDef, nil, "`%s` is not a valid class name", h.Name)
		ok = false
	}

	if root.IsLanguageTag() && !isComponentTag(root) {
		sess.Errorf(report.MKDef, root.Position(), "%s cannot be the root tag of a document", root)
		return nil, false
	}

	super, mapped := ns.ComponentName(root.URI, root.Local)
	if !mapped {
		sess.Errorf(report.MKUnresolved, root.Position(), "no namespace maps the tag %s", root)
		return nil, false
	}

	h.Super = super
	root.name = super

	if impl, ok := root.Attr("implements"); ok {
		for _, name := range strings.Split(impl, ",") {
			if name = strings.TrimSpace(name); name != "" {
				h.Implements = append(h.Implements, name)
			}
		}
	}

	ids := map[string]*Node{h.Name: root}
	for _, child := range root.Children {
		child.Walk(func(n *Node) {
			if n.IsLanguageTag() {
				switch n.Local {
				case tagScript, tagStyle, tagMetadata:
					if n.Parent != root {
						sess.Errorf(report.MKDef, n.Position(), "%s must be a child of the root tag", n)
						ok = false
					}
				}
			}

			if inLanguageBlock(n) {
				return
			}

			id := n.ID()
			if id == "" {
				return
			}

			if !common.IsValidIdentifier(id) {
				sess.Errorf(report.MKDef, n.Position(), "`%s` is not a valid id", id)
				ok = false
				return
			}

			if prev, dup := ids[id]; dup {
				if prev == root {
					sess.Errorf(report.MKDef, n.Position(), "the id `%s` is the name of the class", id)
				} else {
					sess.Errorf(report.MKDef, n.Position(), "the id `%s` is already used on line %d", id, prev.Line)
				}

				ok = false
				return
			}
			ids[id] = n

			mn, mapped := ns.ComponentName(n.URI, n.Local)
			if !mapped {
				sess.Errorf(report.MKUnresolved, n.Position(), "no namespace maps the tag %s", n)
				ok = false
				return
			}

			n.name = mn
			n.field = id
			h.Fields = append(h.Fields, n)
		})

		if !child.IsLanguageTag() {
			continue
		}

		switch child.Local {
		case tagScript:
			sb, sok := readScript(sess, s, child)
			if sok {
				h.Scripts = append(h.Scripts, sb)
			}

			ok = ok && sok
		case tagMetadata:
			h.Metadata = append(h.Metadata, child.Text...)
		case tagStyle:
			h.Styles = append(h.Styles, child)
		}
	}

	return h, ok
}

// readScript reads the code of a <Script> tag.  The code is either the tag's
// character data or the file named by its source attribute.
func readScript(sess *depm.Session, s *depm.Source, n *Node) (*scriptBlock, bool) {
	rel, ok := n.Attr("source")
	if !ok {
		sb := &scriptBlock{Line: n.Line}
		if len(n.Text) > 0 {
			sb.Line = n.Text[0].Line
		}

		sb.Text = n.TextContent()
		sb.Imports, sb.Text = hoistImports(sb.Text, sb.Line)
		return sb, true
	}

	f := s.ResolvePath(rel)
	if f == nil {
		sess.Errorf(report.MKIO, n.Position(), "the script `%s` does not exist", rel)
		return nil, false
	}

	text, err := depm.ReadFile(f)
	if err != nil {
		sess.Errorf(report.MKIO, n.Position(), "the script `%s` could not be read: %s", rel, err)
		return nil, false
	}

	s.AddFileInclude(f)

	sb := &scriptBlock{Line: n.Line, Included: true}
	sb.Imports, sb.Text = hoistImports(string(text), n.Line)
	for i := range sb.Imports {
		sb.Imports[i].Line = n.Line
	}

	return sb, true
}

// isComponentTag returns whether a language tag names a component: the
// builtin types do.
func isComponentTag(n *Node) bool {
	switch n.Local {
	case tagScript, tagStyle, tagMetadata, tagDeclarations:
		return false
	}

	return true
}

// inLanguageBlock returns whether a node is a <Script>, <Style> or <Metadata>
// tag or inside one.
func inLanguageBlock(n *Node) bool {
	for ; n != nil; n = n.Parent {
		if n.IsLanguageTag() {
			switch n.Local {
			case tagScript, tagStyle, tagMetadata:
				return true
			}
		}
	}

	return false
}

// -----------------------------------------------------------------------------

// mnRef returns how generated script code refers to the class a multi-name
// denotes before it is resolved.
func mnRef(mn depm.MultiName) string {
	if len(mn.Namespaces) == 1 && mn.Namespaces[0] != "" {
		return mn.Namespaces[0] + "." + mn.Local
	}

	return mn.Local
}

// writeOpen writes the package and class declarations shared by both passes
// and leaves the writer inside the class body.
func (h *classHeader) writeOpen(w *scriptWriter, imports []string) {
	if h.Package != "" {
		w.open(0, "package %s", h.Package)
	} else {
		w.open(0, "package")
	}

	for _, sb := range h.Scripts {
		for _, imp := range sb.Imports {
			w.writef(imp.Line, "%s", imp.Text)
		}
	}

	for _, imp := range imports {
		w.writef(0, "import %s;", imp)
	}

	for _, seg := range h.Metadata {
		if strings.TrimSpace(seg.Text) != "" {
			w.writeVerbatim(seg.Text, seg.Line, false)
		}
	}

	decl := "public class " + h.Name + " extends " + mnRef(h.Super)
	if len(h.Implements) > 0 {
		decl += " implements " + strings.Join(h.Implements, ", ")
	}

	w.open(h.Root.Line, "%s", decl)
}

// writeScripts copies the script blocks into the class body.
func (h *classHeader) writeScripts(w *scriptWriter) {
	for _, sb := range h.Scripts {
		if strings.TrimSpace(sb.Text) != "" {
			w.writeVerbatim(sb.Text, sb.Line, sb.Included)
		}
	}
}

// generateInterface generates the skeleton script source of a document: its
// class declaration, a public field for every component with an id, and its
// script blocks.  It has no constructor: child components only appear in
// the implementation.
func generateInterface(h *classHeader) (string, *report.LineMap) {
	w := newScriptWriter()
	h.writeOpen(w, nil)

	for _, n := range h.Fields {
		w.writef(n.Line, "public var %s:%s;", n.field, mnRef(n.name))
	}

	h.writeScripts(w)

	w.close()
	w.close()
	return w.String(), w.lines
}
