package bundle

import (
	"sort"
	"strings"

	"github.com/golang/glog"
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"

	"mxc/common"
	"mxc/depm"
	"mxc/provider"
	"mxc/report"
)

// Table is the syntax tree of a resource bundle unit: the bundle's entries
// for one locale.
type Table struct {
	Bundle, Locale string

	// Entries maps every key to its last definition.
	Entries map[string]*Entry
}

// Keys returns the keys of the table in sorted order.
func (t *Table) Keys() []string {
	keys := make([]string, 0, len(t.Entries))
	for k := range t.Entries {
		keys = append(keys, k)
	}

	sort.Strings(keys)
	return keys
}

// Compiler is the sub-compiler of resource bundles.  A `.properties` file of
// a locale directory defines the class `<bundle>_<locale>_properties` whose
// bytecode holds the bundle's key/value table.  Every key is a static string
// constant of the class, so the class's signature only changes when keys are
// added or removed.
type Compiler struct{}

// NewCompiler creates a new resource bundle compiler.
func NewCompiler() *Compiler {
	return &Compiler{}
}

func (c *Compiler) IsSupported(mimeType string) bool {
	return mimeType == common.MimeProperties
}

func (c *Compiler) SupportedMimeTypes() []string {
	return []string{common.MimeProperties}
}

func (c *Compiler) Preprocess(sess *depm.Session, s *depm.Source) *depm.Source {
	if !s.Exists() {
		sess.Errorf(report.MKIO, nil, "`%s` does not exist", s.Name())
		return nil
	}

	return s
}

// Parse1 parses the properties file.  Keys defined twice are reported as
// warnings; the last definition wins.
func (c *Compiler) Parse1(sess *depm.Session, s *depm.Source) *depm.CompilationUnit {
	defer report.CatchErrors(sess.Sink())

	text, err := s.Read()
	if err != nil {
		sess.Errorf(report.MKIO, nil, "`%s` could not be read: %s", s.Name(), err)
		return nil
	}

	entries, err := ParseProperties(string(text))
	if err != nil {
		panic(err)
	}

	bundle, locale := splitClassName(s.ShortName(), sess.Locales)
	t := &Table{Bundle: bundle, Locale: locale, Entries: make(map[string]*Entry, len(entries))}

	for _, e := range entries {
		if prev, ok := t.Entries[e.Key]; ok {
			sess.Warnf(report.MKDef, e.Position(), "the key `%s` is already defined on line %d", e.Key, prev.Line)
		}

		t.Entries[e.Key] = e
	}

	u := s.NewCompilationUnit(t)
	u.AddDefinition(s.QName())

	glog.V(2).Infof("bundle: %s has %d keys for locale %s", bundle, len(t.Entries), locale)
	return u
}

// A bundle has no code: it neither depends on anything nor needs checking.

func (c *Compiler) Parse2(sess *depm.Session, u *depm.CompilationUnit)   {}
func (c *Compiler) Analyze1(sess *depm.Session, u *depm.CompilationUnit) {}
func (c *Compiler) Analyze3(sess *depm.Session, u *depm.CompilationUnit) {}
func (c *Compiler) Analyze4(sess *depm.Session, u *depm.CompilationUnit) {}

// Analyze2 computes the signature of the bundle class.
func (c *Compiler) Analyze2(sess *depm.Session, u *depm.CompilationUnit) {
	t := u.SyntaxTree.(*Table)

	ti := &depm.TypeInfo{Name: u.Source().QName()}
	for _, key := range t.Keys() {
		ti.Members = append(ti.Members, depm.Member{
			Name:   key,
			Kind:   depm.MemberField,
			Type:   depm.NewQName("", "String"),
			Static: true,
		})
	}

	u.SetTypeInfo(ti)
	u.SetChecksum(ti.Checksum())
	u.ClassTable[ti.Name.Local] = ti.Clone()
}

// Generate emits the table as a module of constant strings.
func (c *Compiler) Generate(sess *depm.Session, u *depm.CompilationUnit) {
	t := u.SyntaxTree.(*Table)
	prefix := u.Source().QName().Dotted()

	mod := ir.NewModule()
	mod.SourceFilename = prefix

	newString := func(name, value string) {
		glob := mod.NewGlobalDef(name, constant.NewCharArrayFromString(value))
		glob.Immutable = true
		glob.Linkage = enum.LinkageExternal
	}

	newString(prefix+".$bundle", t.Bundle)
	newString(prefix+".$locale", t.Locale)

	for _, key := range t.Keys() {
		newString(prefix+"."+key, t.Entries[key].Value)
	}

	initFn := mod.NewFunc(prefix+".$init", types.Void)
	initFn.Linkage = enum.LinkageExternal
	initFn.NewBlock("entry").NewRet(nil)

	u.SetBytecode([]byte(mod.String()))
}

func (c *Compiler) Postprocess(sess *depm.Session, u *depm.CompilationUnit, pending *depm.NameSet) *depm.NameSet {
	return depm.NewNameSet()
}

// splitClassName splits the class name of a bundle into the bundle's name and
// its locale.
func splitClassName(class string, locales []string) (string, string) {
	for _, locale := range locales {
		if suffix := provider.BundleClassName("", locale); strings.HasSuffix(class, suffix) && len(class) > len(suffix) {
			return strings.TrimSuffix(class, suffix), locale
		}
	}

	return class, ""
}
