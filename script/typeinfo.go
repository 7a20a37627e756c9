package script

import (
	"hash/fnv"
	"sort"

	"mxc/depm"
	"mxc/report"
)

// resolvedType returns the qualified name a type reference of a unit resolved
// to.  Builtin types have top-level builtin names.  A reference that has not
// resolved yet is named as written.
func resolvedType(u *depm.CompilationUnit, f *File, ref *TypeRef) depm.QName {
	if ref == nil {
		return depm.QName{}
	}

	if IsBuiltinType(ref.Name) {
		return BuiltinQName(ref.Name)
	}

	mn := f.MultiName(ref.Name)
	for _, kind := range []depm.DepKind{depm.DepInheritance, depm.DepType, depm.DepExpression} {
		if q, ok := u.Dependencies(kind).Resolved(mn); ok {
			return q
		}
	}

	return depm.ParseQName(ref.Name)
}

// buildTypeInfo builds the public signature of a class or interface.
func buildTypeInfo(u *depm.CompilationUnit, f *File) *depm.TypeInfo {
	def := f.Def
	ti := &depm.TypeInfo{
		Name:        f.QName(),
		IsInterface: def.Kind == DefInterface,
	}

	if def.Super != nil {
		ti.Super = resolvedType(u, f, def.Super)
	}

	for _, ref := range def.Interfaces {
		ti.Interfaces = append(ti.Interfaces, resolvedType(u, f, ref))
	}

	for _, md := range def.Members {
		if !md.IsPublicSignature() || md.Name == def.Name {
			continue
		}

		m := depm.Member{
			Name:   md.Name,
			Kind:   md.Kind,
			Type:   resolvedType(u, f, md.Type),
			Static: md.Modifiers.Has(ModStatic),
		}

		for _, p := range md.Params {
			m.Params = append(m.Params, resolvedType(u, f, p.Type))
		}

		ti.Members = append(ti.Members, m)
	}

	for _, meta := range def.Metadata {
		switch meta.Name {
		case "Event":
			if name, ok := meta.Arg("name"); ok {
				ti.Events = append(ti.Events, name)
			}
		case "DefaultProperty":
			if name, ok := meta.Arg(""); ok {
				ti.DefaultProperty = name
			}
		}
	}

	sort.Strings(ti.Events)
	return ti
}

// namespaceChecksum returns the signature checksum of a namespace definition.
func namespaceChecksum(q depm.QName, uri string) uint64 {
	h := fnv.New64a()
	h.Write([]byte("namespace " + q.String() + " = " + uri))
	return h.Sum64()
}

// -----------------------------------------------------------------------------

// checkDuplicateMembers reports members declared twice.  A getter and a setter
// of the same property are one member.
func checkDuplicateMembers(sess *depm.Session, def *Definition) {
	seen := make(map[string]*MemberDef)
	for _, md := range def.Members {
		prev, ok := seen[md.Name]
		if !ok {
			seen[md.Name] = md
			continue
		}

		accessorPair := (prev.Kind == depm.MemberGetter && md.Kind == depm.MemberSetter) ||
			(prev.Kind == depm.MemberSetter && md.Kind == depm.MemberGetter)
		if !accessorPair {
			sess.Errorf(report.MKDef, md.Position, "`%s` is already declared in `%s`", md.Name, def.Name)
		}
	}
}

// checkOverrides reports methods which override nothing or override without
// saying so, and fields which hide inherited members.
func checkOverrides(sess *depm.Session, ti *depm.TypeInfo, def *Definition) {
	for _, md := range def.Members {
		if md.Modifiers.Has(ModStatic) || md.Name == def.Name {
			continue
		}

		inherited, owner, ok := sess.Symbols.Types.FindMember(ti.Super, md.Name)
		switch {
		case md.Modifiers.Has(ModOverride) && !ok:
			sess.Errorf(report.MKTyping, md.Position, "`%s` overrides nothing", md.Name)
		case !ok || inherited.Static:
		case md.Kind == depm.MemberField || inherited.Kind == depm.MemberField:
			sess.Errorf(report.MKTyping, md.Position, "`%s` conflicts with the inherited member of `%s`", md.Name, owner)
		case !md.Modifiers.Has(ModOverride):
			sess.Errorf(report.MKTyping, md.Position, "`%s` overrides a member of `%s` and must be declared `override`", md.Name, owner)
		case len(md.Params) != len(inherited.Params):
			sess.Errorf(report.MKTyping, md.Position, "`%s` is incompatible with the overridden member of `%s`", md.Name, owner)
		}
	}
}

// checkImplements reports interface members a class does not implement.
func checkImplements(sess *depm.Session, ti *depm.TypeInfo, def *Definition) {
	visited := make(map[depm.QName]struct{})

	var check func(iq depm.QName)
	check = func(iq depm.QName) {
		if _, ok := visited[iq]; ok {
			return
		}
		visited[iq] = struct{}{}

		iti, ok := sess.Symbols.TypeInfo(iq)
		if !ok {
			return
		}

		for _, m := range iti.Members {
			if _, _, ok := sess.Symbols.Types.FindMember(ti.Name, m.Name); !ok {
				sess.Errorf(report.MKTyping, def.Position, "`%s` does not implement `%s` of `%s`", def.Name, m.Name, iq)
			}
		}

		for _, super := range iti.Interfaces {
			check(super)
		}
	}

	for _, iq := range ti.Interfaces {
		check(iq)
	}
}
