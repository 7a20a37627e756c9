package markup

import (
	"github.com/golang/glog"

	"mxc/depm"
	"mxc/report"
)

// discover runs child tag discovery: a breadth-first walk of the document
// which resolves the class of every component tag level by level.  A level is
// examined once the classes of the level above are resolved and their type
// signatures are known, since only the signature of a component tells which
// of its child tags are property tags.  discover returns the names it waits
// for; it is done once it returns an empty set.  pending is the set it
// returned last time.
func discover(sess *depm.Session, u *depm.CompilationUnit, doc *Document, ns *Namespaces, pending *depm.NameSet) *depm.NameSet {
	waiting := depm.NewNameSet()

	for len(doc.frontier) > 0 {
		var stuck, next []*Node
		for _, n := range doc.frontier {
			if resolveComponent(sess, u, n) {
				next = append(next, classifyChildren(sess, doc, n, ns)...)
				continue
			}

			if pending.Contains(n.name) && sess.Symbols.HasFailed(n.name) && !isResolved(u, n.name) {
				sess.Symbols.MarkReported(n.name)
				sess.Errorf(report.MKUnresolved, n.Position(), "unresolved component tag %s", n)
				continue
			}

			waiting.Add(n.name)
			stuck = append(stuck, n)
		}

		if len(stuck) > 0 {
			doc.frontier = append(stuck, next...)
			glog.V(2).Infof("markup: discovery waits on %d names", waiting.Len())
			return waiting
		}

		doc.frontier = next
	}

	doc.discovered = true
	return waiting
}

// resolveComponent sets the type of a component tag.  It returns false if the
// class of the tag is not resolved yet or its type signature is not known.
func resolveComponent(sess *depm.Session, u *depm.CompilationUnit, n *Node) bool {
	if !n.Type.IsZero() {
		return true
	}

	if isBuiltin(n.name) {
		n.Type = depm.NewQName("", n.name.Local)
		return true
	}

	for _, kind := range depm.DepKinds {
		q, ok := u.Dependencies(kind).Resolved(n.name)
		if !ok {
			continue
		}

		if _, ok := sess.Symbols.TypeInfo(q); !ok {
			return false
		}

		n.Type = q
		return true
	}

	return false
}

func isResolved(u *depm.CompilationUnit, mn depm.MultiName) bool {
	for _, kind := range depm.DepKinds {
		if _, ok := u.Dependencies(kind).Resolved(mn); ok {
			return true
		}
	}

	return false
}

// classifyChildren sorts the child tags of a resolved component into property
// tags and components, and returns the components: the next level of the
// walk.
func classifyChildren(sess *depm.Session, doc *Document, n *Node, ns *Namespaces) []*Node {
	var next []*Node

	addComponent := func(c *Node) {
		if c.IsLanguageTag() && !isComponentTag(c) {
			sess.Errorf(report.MKProp, c.Position(), "%s cannot be used as a component", c)
			return
		}

		if c.name.Local == "" {
			mn, ok := ns.ComponentName(c.URI, c.Local)
			if !ok {
				sess.Errorf(report.MKUnresolved, c.Position(), "no namespace maps the tag %s", c)
				return
			}

			c.name = mn
		}

		next = append(next, c)
	}

	for _, child := range n.Children {
		if child.IsLanguageTag() {
			switch child.Local {
			case tagScript, tagStyle, tagMetadata:
				continue
			case tagDeclarations:
				if n != doc.Root {
					sess.Errorf(report.MKProp, child.Position(), "%s must be a child of the root tag", child)
					continue
				}

				for _, d := range child.Children {
					addComponent(d)
				}

				continue
			}
		}

		if isPropertyTag(sess, n, child) {
			if child.ID() != "" {
				sess.Errorf(report.MKProp, child.Position(), "the property tag %s cannot have an id", child)
			}

			child.Property = true
			for _, gc := range child.Children {
				addComponent(gc)
			}

			continue
		}

		addComponent(child)
	}

	return next
}

// isPropertyTag returns whether a child tag names a property of its resolved
// parent component.  Property tags share the namespace of their parent.
func isPropertyTag(sess *depm.Session, parent, child *Node) bool {
	if child.URI != parent.URI {
		return false
	}

	m, _, ok := sess.Symbols.Types.FindMember(parent.Type, child.Local)
	return ok && !m.Static && m.Kind != depm.MemberMethod
}
