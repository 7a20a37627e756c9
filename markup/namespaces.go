package markup

import (
	"strings"

	"mxc/common"
	"mxc/depm"
	"mxc/script"
)

// Manifest maps the component tags of one namespace URI to the classes
// backing them.
type Manifest map[string]depm.QName

// Namespaces maps the namespace URIs of markup documents to the packages and
// classes their tags name.  Besides manifest URIs, two URI forms name
// packages directly: `*` is the top-level package and `a.b.*` is the package
// `a.b`.
type Namespaces struct {
	manifests map[string]Manifest
}

// NewNamespaces creates a new namespace mapping with the given manifests
// keyed by URI.
func NewNamespaces(manifests map[string]Manifest) *Namespaces {
	if manifests == nil {
		manifests = make(map[string]Manifest)
	}

	return &Namespaces{manifests: manifests}
}

// ParseManifest builds a manifest from a table of tag names to dotted class
// names.  It returns the first invalid entry, if any.
func ParseManifest(entries map[string]string) (Manifest, string, bool) {
	m := make(Manifest, len(entries))
	for tag, class := range entries {
		if !common.IsValidIdentifier(tag) {
			return nil, tag, false
		}

		q := depm.ParseQName(class)
		if !common.IsValidIdentifier(q.Local) || (q.Namespace != "" && !common.IsValidPackageName(q.Namespace)) {
			return nil, tag, false
		}

		m[tag] = q
	}

	return m, "", true
}

// ComponentName returns the name of the class backing a component tag.  The
// second return is false if the tag's namespace maps to no package.  Language
// tags naming builtin types map to those types.
func (ns *Namespaces) ComponentName(uri, local string) (depm.MultiName, bool) {
	switch {
	case uri == common.LanguageNamespace:
		if script.IsBuiltinType(local) {
			return depm.MultiNameFromQName(script.BuiltinQName(local)), true
		}

		return depm.MultiName{}, false
	case uri == "*":
		return depm.NewMultiName(local, ""), true
	case strings.HasSuffix(uri, ".*"):
		pkg := strings.TrimSuffix(uri, ".*")
		if !common.IsValidPackageName(pkg) {
			return depm.MultiName{}, false
		}

		return depm.NewMultiName(local, pkg), true
	}

	if m, ok := ns.manifests[uri]; ok {
		if q, ok := m[local]; ok {
			return depm.MultiNameFromQName(q), true
		}
	}

	return depm.MultiName{}, false
}

// isBuiltin returns whether a component name names a builtin type, which
// needs no resolution.
func isBuiltin(mn depm.MultiName) bool {
	return len(mn.Namespaces) == 1 && mn.Namespaces[0] == "" && script.IsBuiltinType(mn.Local)
}

// typeRef returns how generated script code refers to a class.
func typeRef(q depm.QName) string {
	return q.Dotted()
}
