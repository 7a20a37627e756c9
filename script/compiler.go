package script

import (
	"sort"
	"strconv"

	"github.com/golang/glog"

	"mxc/common"
	"mxc/depm"
	"mxc/provider"
	"mxc/report"
)

// Compiler is the sub-compiler of script sources.  Every source defines one
// class, interface or namespace.  The syntax tree of its units is the
// skeleton *File.
type Compiler struct{}

// NewCompiler creates a new script compiler.
func NewCompiler() *Compiler {
	return &Compiler{}
}

func (c *Compiler) IsSupported(mimeType string) bool {
	return mimeType == common.MimeScript
}

func (c *Compiler) SupportedMimeTypes() []string {
	return []string{common.MimeScript}
}

// Preprocess rejects sources which no longer exist.
func (c *Compiler) Preprocess(sess *depm.Session, s *depm.Source) *depm.Source {
	if !s.Exists() {
		sess.Errorf(report.MKIO, nil, "`%s` does not exist", s.Name())
		return nil
	}

	return s
}

// Parse1 parses the declarations of a source.  It registers the source's
// definition and requests its inheritance, namespace and resource bundle
// dependencies.
func (c *Compiler) Parse1(sess *depm.Session, s *depm.Source) *depm.CompilationUnit {
	defer report.CatchErrors(sess.Sink())

	text, err := s.Read()
	if err != nil {
		sess.Errorf(report.MKIO, nil, "`%s` could not be read: %s", s.Name(), err)
		return nil
	}

	f, perr := ParseFile(string(text), 1)
	if perr != nil {
		panic(perr)
	}

	def := f.Def
	if def.Name != s.ShortName() {
		sess.Errorf(report.MKDef, def.Position, "`%s` must be defined in a file named `%s%s`", def.Name, def.Name, common.ScriptFileExt)
		return nil
	}

	if expected := s.QName().Namespace; expected != "" && expected != f.Package {
		sess.Errorf(report.MKDef, def.Position, "`%s` is in package `%s` but its file is in package `%s`", def.Name, f.Package, expected)
		return nil
	}

	u := s.NewCompilationUnit(f)
	u.AddDefinition(f.QName())

	if def.Super != nil && !IsBuiltinType(def.Super.Name) {
		u.AddDependency(depm.DepInheritance, f.MultiName(def.Super.Name))
	}

	for _, ref := range def.Interfaces {
		u.AddDependency(depm.DepInheritance, f.MultiName(ref.Name))
	}

	for _, ref := range f.UsedNamespaces {
		u.AddDependency(depm.DepNamespace, f.MultiName(ref.Name))
	}

	for _, meta := range def.Metadata {
		u.Metadata = append(u.Metadata, meta.String())

		if meta.Name != "ResourceBundle" {
			continue
		}

		bundle, ok := meta.Arg("")
		if !ok || !common.IsValidIdentifier(bundle) {
			sess.Errorf(report.MKMetadata, meta.Position, "[ResourceBundle] requires a bundle name")
			continue
		}

		u.ResourceBundles = append(u.ResourceBundles, bundle)
		for _, locale := range sess.Locales {
			u.AddDependency(depm.DepExpression, depm.NewMultiName(provider.BundleClassName(bundle, locale), ""))
		}
	}

	embedAssets(sess, s, u, f)

	glog.V(2).Infof("parsed declarations of %s: %d members", f.QName(), len(def.Members))
	return u
}

// embedAssets binds the files named by [Embed] metadata to the members they
// annotate.  An asset carried over from the unit's previous compilation is
// kept as long as neither its file nor its arguments changed.
func embedAssets(sess *depm.Session, s *depm.Source, u *depm.CompilationUnit, f *File) {
	assets := make(map[string]*depm.Asset)

	for _, md := range f.Def.Members {
		for _, meta := range md.Metadata {
			if meta.Name != "Embed" {
				continue
			}

			source, ok := meta.Arg("source")
			if !ok {
				source, ok = meta.Arg("")
			}

			if !ok || source == "" {
				sess.Errorf(report.MKMetadata, meta.Position, "[Embed] requires a source")
				continue
			}

			args := map[string]string{
				"line":   strconv.Itoa(meta.Position.StartLn),
				"column": strconv.Itoa(meta.Position.StartCol),
			}
			for _, arg := range meta.Args {
				key := arg.Key
				if key == "" {
					key = "source"
				}

				args[key] = arg.Value
			}

			symbol := f.Def.Name + "_" + md.Name
			if prev, ok := u.Assets[symbol]; ok && !prev.IsUpdated(args) {
				assets[symbol] = prev
				continue
			}

			file := s.ResolvePath(source)
			if file == nil || !file.Exists() {
				sess.Errorf(report.MKIO, meta.Position, "the embedded file `%s` does not exist", source)
				continue
			}

			data, err := depm.ReadFile(file)
			if err != nil {
				sess.Errorf(report.MKIO, meta.Position, "the embedded file `%s` could not be read: %s", source, err)
				continue
			}

			glog.V(2).Infof("embedded %s into %s", file.Name(), symbol)
			assets[symbol] = depm.NewAsset(symbol, file, args, data)
		}
	}

	u.Assets = assets
}

// Parse2 parses the bodies and initializers of a unit and requests the types
// its signatures name and the classes its code references.
func (c *Compiler) Parse2(sess *depm.Session, u *depm.CompilationUnit) {
	defer report.CatchErrors(sess.Sink())

	f := u.SyntaxTree.(*File)
	def := f.Def

	declared := make(map[string]struct{}, len(def.Members))
	for _, md := range def.Members {
		declared[md.Name] = struct{}{}
	}

	addType := func(ref *TypeRef) {
		if ref != nil && !IsBuiltinType(ref.Name) {
			u.AddDependency(depm.DepType, f.MultiName(ref.Name))
		}
	}

	addRefs := func(refs *BodyRefs) {
		for _, lce := range refs.Errors {
			report.Errorf(sess.Sink(), lce.Kind, lce.Position, "%s", lce.Message)
		}

		for _, name := range refs.Names {
			if _, ok := declared[name]; ok || name == def.Name {
				continue
			}

			u.AddDependency(depm.DepExpression, f.MultiName(name))
		}
	}

	for _, md := range def.Members {
		addType(md.Type)

		var params []string
		for _, p := range md.Params {
			addType(p.Type)
			params = append(params, p.Name)

			if p.Default != nil {
				addRefs(AnalyzeInitializer(p.Default))
			}
		}

		if md.Init != nil {
			addRefs(AnalyzeInitializer(md.Init))
		}

		if md.Body != nil {
			addRefs(AnalyzeBody(params, md.Body))
		}
	}
}

// Analyze1 checks the inheritance of a unit: classes extend classes and
// implement interfaces, interfaces extend interfaces.
func (c *Compiler) Analyze1(sess *depm.Session, u *depm.CompilationUnit) {
	f := u.SyntaxTree.(*File)
	def := f.Def

	if def.Super != nil && !IsBuiltinType(def.Super.Name) {
		if ti, ok := sess.Symbols.TypeInfo(resolvedType(u, f, def.Super)); ok && ti.IsInterface {
			sess.Errorf(report.MKTyping, def.Super.Position, "class `%s` cannot extend interface `%s`", def.Name, def.Super.Name)
		}
	}

	for _, ref := range def.Interfaces {
		if ti, ok := sess.Symbols.TypeInfo(resolvedType(u, f, ref)); ok && !ti.IsInterface {
			if def.Kind == DefInterface {
				sess.Errorf(report.MKTyping, ref.Position, "interface `%s` cannot extend class `%s`", def.Name, ref.Name)
			} else {
				sess.Errorf(report.MKTyping, ref.Position, "`%s` is not an interface", ref.Name)
			}
		}
	}
}

// Analyze2 computes the public signature of a unit and its checksum.
func (c *Compiler) Analyze2(sess *depm.Session, u *depm.CompilationUnit) {
	f := u.SyntaxTree.(*File)

	if f.Def.Kind == DefNamespace {
		u.SetChecksum(namespaceChecksum(f.QName(), f.Def.URI))
		return
	}

	checkDuplicateMembers(sess, f.Def)

	ti := buildTypeInfo(u, f)
	u.SetTypeInfo(ti)
	u.SetChecksum(ti.Checksum())
	u.ClassTable[f.Def.Name] = ti.Clone()
}

// Analyze3 checks the members of a class against its superclass and its
// interfaces.
func (c *Compiler) Analyze3(sess *depm.Session, u *depm.CompilationUnit) {
	f := u.SyntaxTree.(*File)
	if f.Def.Kind != DefClass {
		return
	}

	checkOverrides(sess, u.TypeInfo(), f.Def)
	checkImplements(sess, u.TypeInfo(), f.Def)
}

// Analyze4 warns about unused imports.
func (c *Compiler) Analyze4(sess *depm.Session, u *depm.CompilationUnit) {
	f := u.SyntaxTree.(*File)

	for _, q := range u.ResolvedDependencies() {
		f.markWildcardUses(q)
	}

	for _, imp := range f.Imports {
		if !imp.used {
			sess.Warnf(report.MKImport, imp.Position, "unused import `%s.%s`", imp.Package, imp.Name)
		}
	}
}

// Generate generates the unit's bytecode.
func (c *Compiler) Generate(sess *depm.Session, u *depm.CompilationUnit) {
	f := u.SyntaxTree.(*File)

	ti := u.TypeInfo()
	if ti == nil {
		ti = &depm.TypeInfo{Name: f.QName()}
	}

	g := NewGenerator(f, ti, u.Dependencies(depm.DepExpression).QNames())

	symbols := make([]string, 0, len(u.Assets))
	for symbol := range u.Assets {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	for _, symbol := range symbols {
		g.AddAsset(u.Assets[symbol])
	}

	u.SetBytecode([]byte(g.Generate().String()))
}

// Postprocess has nothing to wait for: script units are complete once they
// have bytecode.
func (c *Compiler) Postprocess(sess *depm.Session, u *depm.CompilationUnit, pending *depm.NameSet) *depm.NameSet {
	return depm.NewNameSet()
}
