package bundle

import (
	"strings"
	"testing"
	"time"

	"github.com/kr/pretty"

	"mxc/build"
	"mxc/common"
	"mxc/depm"
	"mxc/provider"
	"mxc/report"
	"mxc/script"
)

var baseTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func TestParseProperties(t *testing.T) {
	text := "# greetings\n" +
		"greeting = Hello, world\n" +
		"! another comment\n" +
		"farewell:Goodbye\n" +
		"long.text = first \\\n" +
		"    second\n" +
		"\n" +
		"key\\ with\\ spaces value\n" +
		"tab=a\\tb\n" +
		"unicode=caf\\u00e9\n" +
		"empty\n"

	entries, err := ParseProperties(text)
	if err != nil {
		t.Fatalf("ParseProperties() error = %v", err)
	}

	want := []*Entry{
		{"greeting", "Hello, world", 2},
		{"farewell", "Goodbye", 4},
		{"long.text", "first second", 5},
		{"key with spaces", "value", 8},
		{"tab", "a\tb", 9},
		{"unicode", "café", 10},
		{"empty", "", 11},
	}
	if diff := pretty.Diff(entries, want); len(diff) > 0 {
		t.Fatalf("entries differ: %v", diff)
	}
}

func TestParsePropertiesErrors(t *testing.T) {
	tests := []string{
		"bad=\\u12",
		"ok=1\nbad=\\uZZZZ",
	}

	for _, text := range tests {
		_, err := ParseProperties(text)
		lce, ok := err.(*report.LocalCompileError)
		if !ok || lce.Kind != report.MKSyntax {
			t.Fatalf("ParseProperties(%q) error = %v, want a syntax error", text, err)
		}
	}
}

func TestSplitClassName(t *testing.T) {
	locales := []string{"en_US", "fr_FR"}

	tests := []struct {
		class, bundle, locale string
	}{
		{"strings_en_US_properties", "strings", "en_US"},
		{"my_strings_fr_FR_properties", "my_strings", "fr_FR"},
		{"strings_de_DE_properties", "strings_de_DE_properties", ""},
	}

	for _, tt := range tests {
		bundle, locale := splitClassName(tt.class, locales)
		if bundle != tt.bundle || locale != tt.locale {
			t.Fatalf("splitClassName(%q) = %q, %q, want %q, %q", tt.class, bundle, locale, tt.bundle, tt.locale)
		}
	}
}

func TestParse1DuplicateKeys(t *testing.T) {
	rep := report.NewReporter(report.LogLevelSilent)
	sess := depm.NewSession(rep, depm.NewSymbolTable(), depm.NewPathResolver())
	sess.Locales = []string{"en_US"}

	f := depm.NewTextFile("locale/en_US/strings.properties", common.MimeProperties, "a=1\nb=2\na=3\n", baseTime)
	s := depm.NewSource(f, "strings_en_US_properties", "strings_en_US_properties", nil, false, false)

	u := NewCompiler().Parse1(sess, s)
	if u == nil {
		t.Fatalf("Parse1() = nil: %v", rep.Messages())
	}

	tab := u.SyntaxTree.(*Table)
	if tab.Bundle != "strings" || tab.Locale != "en_US" || tab.Entries["a"].Value != "3" {
		t.Fatalf("table = %# v", pretty.Formatter(tab))
	}

	msgs := rep.Messages()
	if len(msgs) != 1 || msgs[0].IsError || msgs[0].Message != "the key `a` is already defined on line 1" {
		t.Fatalf("messages = %v", msgs)
	}

	if defs := u.Definitions(); len(defs) != 1 || defs[0] != depm.NewQName("", "strings_en_US_properties") {
		t.Fatalf("Definitions() = %v", defs)
	}
}

func TestCompileBundlesForScripts(t *testing.T) {
	locales := []string{"en_US", "fr_FR"}

	fsys := provider.NewMapFileSystem()
	fsys.Add("app/Greeter.as", "package {\n    [ResourceBundle(\"strings\")]\n    public class Greeter {}\n}\n", baseTime)
	fsys.Add("locale/en_US/strings.properties", "greeting=Hello\nfarewell=Bye\n", baseTime)
	fsys.Add("locale/fr_FR/strings.properties", "greeting=Bonjour\nfarewell=Salut\n", baseTime)

	rep := report.NewReporter(report.LogLevelSilent)
	fspec := provider.NewFileSpec(fsys, "app/Greeter.as")
	drv := build.NewDriver(rep,
		[]build.Compiler{script.NewCompiler(), NewCompiler()},
		fspec, provider.NewResourceBundlePath(fsys, locales, "locale"),
	)
	drv.Locales = locales

	res, err := drv.Compile(build.ProviderRoots(fspec))
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	if n := rep.ErrorCount(); n != 0 {
		t.Fatalf("ErrorCount() = %d, want 0: %v", n, rep.Messages())
	}

	var fr *depm.CompilationUnit
	var names []string
	for _, s := range res.Sources {
		names = append(names, s.ShortName())
		if s.ShortName() == "strings_fr_FR_properties" {
			fr = s.CompilationUnit()
		}
	}

	if len(res.Sources) != 3 || fr == nil {
		t.Fatalf("compiled %v, want Greeter and both bundles", names)
	}

	if !fr.IsDone() {
		t.Fatalf("fr_FR bundle is not done")
	}

	bc := string(fr.Bytecode())
	for _, want := range []string{"strings_fr_FR_properties.greeting", `c"Bonjour"`, `c"fr_FR"`} {
		if !strings.Contains(bc, want) {
			t.Fatalf("bytecode lacks %s:\n%s", want, bc)
		}
	}

	ti := fr.TypeInfo()
	if ti == nil || len(ti.Members) != 2 || ti.Members[0].Name != "farewell" || !ti.Members[0].Static {
		t.Fatalf("type info = %# v", pretty.Formatter(ti))
	}
}

func TestBundleChecksumIgnoresValues(t *testing.T) {
	sum := func(text string) uint64 {
		rep := report.NewReporter(report.LogLevelSilent)
		sess := depm.NewSession(rep, depm.NewSymbolTable(), depm.NewPathResolver())
		sess.Locales = []string{"en_US"}

		f := depm.NewTextFile("locale/en_US/s.properties", common.MimeProperties, text, baseTime)
		s := depm.NewSource(f, "s_en_US_properties", "s_en_US_properties", nil, false, false)

		c := NewCompiler()
		u := c.Parse1(sess, s)
		c.Analyze2(sess, u)

		sum, _ := u.Checksum()
		return sum
	}

	if sum("a=1\nb=2") != sum("b=changed\na=1") {
		t.Fatalf("changing a value changed the checksum")
	}

	if sum("a=1") == sum("a=1\nc=3") {
		t.Fatalf("adding a key did not change the checksum")
	}
}
