package depm

// CopyMetaData transplants the derived metadata of one unit onto another
// without re-running analysis.  It is the single transplant used by source
// copies, by resets that keep type info, by archive side cache reuse and by
// the markup implementation pass.  The copy is one-directional: the old unit
// is never modified, and nothing in the new unit shares mutable storage with
// it.
func CopyMetaData(from, to *CompilationUnit) {
	to.Assets = make(map[string]*Asset, len(from.Assets))
	for k, a := range from.Assets {
		to.Assets[k] = a
	}

	to.AuxGenerateInfo = copyStringMap(from.AuxGenerateInfo)
	to.Styles = copyStrings(from.Styles)

	to.typeInfo = from.typeInfo.Clone()
	to.hasTypeInfo = from.hasTypeInfo

	to.ClassTable = make(map[string]*TypeInfo, len(from.ClassTable))
	for k, ti := range from.ClassTable {
		to.ClassTable[k] = ti.Clone()
	}

	to.Module = from.Module

	to.ExtraClasses = copyStrings(from.ExtraClasses)
	to.AccessibilityClasses = copyStrings(from.AccessibilityClasses)
	to.Mixins = copyStrings(from.Mixins)
	to.ResourceBundles = copyStrings(from.ResourceBundles)

	to.LicensedClassReqs = copyStringMap(from.LicensedClassReqs)
	to.RemoteClassAliases = copyStringMap(from.RemoteClassAliases)
	to.EffectTriggers = copyStringMap(from.EffectTriggers)

	to.checksum = from.checksum
	to.hasChecksum = from.hasChecksum

	to.DependencyChecksums = make(map[QName]uint64, len(from.DependencyChecksums))
	for q, sum := range from.DependencyChecksums {
		to.DependencyChecksums[q] = sum
	}
}

// -----------------------------------------------------------------------------
// Per-field transfers used when a unit's results are produced by a delegate
// unit within the same compile pass.

// TransferDefinitions copies the top-level definitions of one unit onto
// another.
func TransferDefinitions(from, to *CompilationUnit) {
	for _, q := range from.definitions {
		to.AddDefinition(q)
	}
}

// TransferDependencies copies every current dependency set together with its
// resolutions, and merges the histories.
func TransferDependencies(from, to *CompilationUnit) {
	for _, kind := range DepKinds {
		for _, mn := range from.deps[kind].Names() {
			if q, ok := from.deps[kind].Resolved(mn); ok {
				to.ResolveDependency(kind, mn, q)
			} else {
				to.AddDependency(kind, mn)
			}
		}

		to.history[kind].merge(from.history[kind])
	}
}

// TransferResolutions resolves every dependency `to` requested which `from`
// already resolved under the same kind.  It is how resolutions made on an
// outer unit reach the delegate compiling it.
func TransferResolutions(from, to *CompilationUnit) {
	for _, kind := range DepKinds {
		for _, mn := range to.deps[kind].Unresolved() {
			if q, ok := from.deps[kind].Resolved(mn); ok {
				to.ResolveDependency(kind, mn, q)
			}
		}
	}
}

// TransferTypeInfo copies the type signature and its checksum.
func TransferTypeInfo(from, to *CompilationUnit) {
	to.SetTypeInfo(from.typeInfo.Clone())

	if from.hasChecksum {
		to.SetChecksum(from.checksum)
	}
}

// TransferBytecode replaces the bytecode of to with a copy of the bytecode of
// from.
func TransferBytecode(from, to *CompilationUnit) {
	to.bytecode = append([]byte(nil), from.bytecode...)
}

// TransferGeneratedSources copies the generated sources map.
func TransferGeneratedSources(from, to *CompilationUnit) {
	for _, q := range from.generatedOrder {
		to.AddGeneratedSource(q, from.generated[q])
	}
}

// -----------------------------------------------------------------------------

func copyStrings(s []string) []string {
	if s == nil {
		return nil
	}

	return append([]string(nil), s...)
}

func copyStringMap(m map[string]string) map[string]string {
	c := make(map[string]string, len(m))
	for k, v := range m {
		c[k] = v
	}

	return c
}
