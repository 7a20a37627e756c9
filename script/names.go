package script

import (
	"strings"

	"mxc/depm"
)

// builtinTypes are the types every script can name without a definition.
// They never become dependencies.
var builtinTypes = map[string]struct{}{
	"*":         {},
	"void":      {},
	"int":       {},
	"uint":      {},
	"Number":    {},
	"String":    {},
	"Boolean":   {},
	"Object":    {},
	"Array":     {},
	"Function":  {},
	"Class":     {},
	"Date":      {},
	"RegExp":    {},
	"Error":     {},
	"XML":       {},
	"XMLList":   {},
	"Namespace": {},
	"QName":     {},
}

// builtinGlobals are the global values bodies can reference without a
// dependency, in addition to the builtin types.
var builtinGlobals = map[string]struct{}{
	"Math":       {},
	"JSON":       {},
	"NaN":        {},
	"Infinity":   {},
	"TypeError":  {},
	"RangeError": {},
}

// IsBuiltinType returns whether a type name denotes a builtin type.
func IsBuiltinType(name string) bool {
	_, ok := builtinTypes[name]
	return ok
}

// BuiltinQName returns the qualified name of a builtin type.
func BuiltinQName(name string) depm.QName {
	return depm.NewQName("", name)
}

// -----------------------------------------------------------------------------

// MultiName returns the multi-name a type reference in the file denotes.  A
// dotted reference denotes exactly one qualified name.  An unqualified
// reference that is imported explicitly denotes the imported name; otherwise
// it is looked up in the file's own package, then in every wildcard import in
// declaration order, then in the top-level package.
func (f *File) MultiName(name string) depm.MultiName {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return depm.NewMultiName(name[i+1:], name[:i])
	}

	for _, imp := range f.Imports {
		if imp.Name == name {
			imp.used = true
			return depm.NewMultiName(name, imp.Package)
		}
	}

	namespaces := []string{f.Package}
	for _, imp := range f.Imports {
		if imp.IsWildcard() && !containsString(namespaces, imp.Package) {
			namespaces = append(namespaces, imp.Package)
		}
	}

	if !containsString(namespaces, "") {
		namespaces = append(namespaces, "")
	}

	return depm.NewMultiName(name, namespaces...)
}

// QName returns the qualified name of the file's definition.
func (f *File) QName() depm.QName {
	return depm.NewQName(f.Package, f.Def.Name)
}

// markWildcardUses marks the wildcard imports through which a resolved name
// was found as used.
func (f *File) markWildcardUses(q depm.QName) {
	for _, imp := range f.Imports {
		if imp.IsWildcard() && imp.Package == q.Namespace {
			imp.used = true
		}
	}
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}

	return false
}
