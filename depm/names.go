package depm

import (
	"strings"
)

// QName is a fully qualified definition name: a package namespace and a local
// identifier.  The unnamed package has an empty namespace.
type QName struct {
	Namespace string
	Local     string
}

// NewQName creates a new qualified name.
func NewQName(ns, local string) QName {
	return QName{Namespace: ns, Local: local}
}

// ParseQName parses a qualified name written either as `pkg.sub:Local` or as
// the dotted form `pkg.sub.Local`.
func ParseQName(s string) QName {
	if i := strings.LastIndexByte(s, ':'); i >= 0 {
		return QName{Namespace: s[:i], Local: s[i+1:]}
	}

	if i := strings.LastIndexByte(s, '.'); i >= 0 {
		return QName{Namespace: s[:i], Local: s[i+1:]}
	}

	return QName{Local: s}
}

func (q QName) String() string {
	if q.Namespace == "" {
		return q.Local
	}

	return q.Namespace + ":" + q.Local
}

// Dotted returns the qualified name in dotted form: `pkg.sub.Local`.
func (q QName) Dotted() string {
	if q.Namespace == "" {
		return q.Local
	}

	return q.Namespace + "." + q.Local
}

// Path returns the slash-separated path of the file expected to define the
// name below a source root, without extension: `pkg/sub/Local`.
func (q QName) Path() string {
	if q.Namespace == "" {
		return q.Local
	}

	return strings.ReplaceAll(q.Namespace, ".", "/") + "/" + q.Local
}

// IsZero returns whether the name is the empty name.
func (q QName) IsZero() bool {
	return q.Local == ""
}

// -----------------------------------------------------------------------------

// MultiName is an unresolved reference: one local identifier together with the
// ordered candidate namespaces it may be defined in.  Resolving a multi-name
// means finding the one qualified name it designates.
type MultiName struct {
	Namespaces []string
	Local      string
}

// NewMultiName creates a new multi-name.
func NewMultiName(local string, namespaces ...string) MultiName {
	return MultiName{Namespaces: namespaces, Local: local}
}

// MultiNameFromQName creates a multi-name whose only candidate is q.
func MultiNameFromQName(q QName) MultiName {
	return MultiName{Namespaces: []string{q.Namespace}, Local: q.Local}
}

// Key returns the canonical string identity of the multi-name.  Two multi-names
// with the same local name and the same candidate namespaces in the same order
// have the same key.
func (mn MultiName) Key() string {
	var sb strings.Builder
	sb.WriteByte('[')
	sb.WriteString(strings.Join(mn.Namespaces, ","))
	sb.WriteString("]::")
	sb.WriteString(mn.Local)
	return sb.String()
}

func (mn MultiName) String() string {
	if len(mn.Namespaces) == 1 {
		return QName{Namespace: mn.Namespaces[0], Local: mn.Local}.String()
	}

	return mn.Local
}

// Candidates returns the qualified names the multi-name may designate in probe
// order.
func (mn MultiName) Candidates() []QName {
	qnames := make([]QName, len(mn.Namespaces))
	for i, ns := range mn.Namespaces {
		qnames[i] = QName{Namespace: ns, Local: mn.Local}
	}

	return qnames
}
