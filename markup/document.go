package markup

import (
	"bytes"
	"errors"
	"io"
	"strings"

	"github.com/jacoelho/xsd/pkg/xmlstream"
	"github.com/jacoelho/xsd/pkg/xmltext"

	"mxc/common"
	"mxc/depm"
	"mxc/report"
)

// Names of the tags of the language namespace.
const (
	tagScript       = "Script"
	tagStyle        = "Style"
	tagMetadata     = "Metadata"
	tagDeclarations = "Declarations"
)

// Document is a parsed markup document.  The tree is kept for the whole
// two-pass compilation: child tag discovery annotates it and the
// implementation pass generates code from it.
type Document struct {
	Root *Node

	// prefixes maps each namespace URI to the first prefix declared for it.
	// It is only used to display tags the way the user wrote them.
	prefixes map[string]string

	// frontier is the level of the tree child tag discovery examines next.
	frontier []*Node

	// discovered is set once child tag discovery converged.
	discovered bool

	// header is the class header read by the interface pass.
	header *classHeader
}

// Node is an element of a markup document.
type Node struct {
	// URI and Local are the namespace and local name of the tag.
	URI, Local string

	Attrs    []*Attr
	Children []*Node
	Parent   *Node

	// Text is the character data directly inside the element in document
	// order.
	Text []*TextSegment

	// Line and Col are the position of the start tag.
	Line, Col int

	// name is the multi-name of the class backing a component tag.
	name depm.MultiName

	// Type is the class backing a component tag.  It is set by child tag
	// discovery.
	Type depm.QName

	// Property is set on tags which name a property of their parent
	// component rather than a component of their own.
	Property bool

	// field is the name of the member holding the component in generated
	// code.
	field string

	doc *Document
}

// Attr is an attribute of a tag.
type Attr struct {
	URI, Local, Value string
}

// TextSegment is a run of character data and the line it begins on.
type TextSegment struct {
	Text string
	Line int
}

// ParseDocument parses the text of a markup document.  Syntax errors are
// returned as *report.LocalCompileError.
func ParseDocument(text []byte) (*Document, error) {
	r, err := xmlstream.NewReader(bytes.NewReader(text))
	if err != nil {
		return nil, report.Raise(report.MKSyntax, nil, "%s", err)
	}

	doc := &Document{prefixes: make(map[string]string)}

	var stack []*Node
	for {
		ev, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return nil, syntaxError(err)
		}

		switch ev.Kind {
		case xmlstream.EventStartElement:
			for _, decl := range r.NamespaceDecls(ev.ScopeDepth) {
				if _, ok := doc.prefixes[decl.URI]; !ok {
					doc.prefixes[decl.URI] = decl.Prefix
				}
			}

			n := &Node{
				URI:   ev.Name.Namespace,
				Local: ev.Name.Local,
				Line:  ev.Line,
				Col:   max(ev.Column-1, 0),
				doc:   doc,
			}

			for _, a := range ev.Attrs {
				n.Attrs = append(n.Attrs, &Attr{URI: a.Name.Namespace, Local: a.Name.Local, Value: string(a.Value)})
			}

			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				n.Parent = parent
				parent.Children = append(parent.Children, n)
			} else {
				doc.Root = n
			}

			stack = append(stack, n)
		case xmlstream.EventEndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case xmlstream.EventCharData:
			if len(stack) > 0 {
				top := stack[len(stack)-1]
				top.Text = append(top.Text, &TextSegment{Text: string(ev.Text), Line: ev.Line})
			}
		}
	}

	if doc.Root == nil {
		return nil, report.Raise(report.MKSyntax, nil, "document has no root tag")
	}

	return doc, nil
}

// syntaxError converts an error of the XML reader into a compile error.
func syntaxError(err error) *report.LocalCompileError {
	var serr *xmltext.SyntaxError
	if errors.As(err, &serr) && serr.Line > 0 {
		msg := err.Error()
		if serr.Err != nil {
			msg = serr.Err.Error()
		}

		return report.Raise(report.MKSyntax, report.LinePosition(serr.Line, max(serr.Column-1, 0)), "%s", msg)
	}

	return report.Raise(report.MKSyntax, nil, "%s", err)
}

// -----------------------------------------------------------------------------

// Position returns the position of the node's start tag.
func (n *Node) Position() *report.TextPosition {
	return report.LinePosition(n.Line, n.Col)
}

// IsLanguageTag returns whether the node is a tag of the language itself.
func (n *Node) IsLanguageTag() bool {
	return n.URI == common.LanguageNamespace
}

// Attr returns the value of an unqualified attribute.
func (n *Node) Attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.URI == "" && a.Local == name {
			return a.Value, true
		}
	}

	return "", false
}

// ID returns the id attribute of the node, if any.
func (n *Node) ID() string {
	id, _ := n.Attr("id")
	return id
}

// TextContent returns the character data directly inside the node.
func (n *Node) TextContent() string {
	var sb strings.Builder
	for _, seg := range n.Text {
		sb.WriteString(seg.Text)
	}

	return sb.String()
}

// String returns the tag as it was written, eg. `<ui:Button>`.
func (n *Node) String() string {
	prefix, ok := "", false
	if n.doc != nil {
		prefix, ok = n.doc.prefixes[n.URI]
	}

	if ok && prefix != "" {
		return "<" + prefix + ":" + n.Local + ">"
	}

	return "<" + n.Local + ">"
}

// Walk calls fn on the node and on every node below it in document order.
func (n *Node) Walk(fn func(*Node)) {
	fn(n)
	for _, child := range n.Children {
		child.Walk(fn)
	}
}
