package provider

import (
	"testing"
	"time"

	"mxc/archive"
	"mxc/common"
	"mxc/depm"
)

var baseTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// finish drives a source's unit to done the way a compiler would.
func finish(s *depm.Source) {
	u := s.CompilationUnit()
	if u == nil {
		u = s.NewCompilationUnit(nil)
	}

	u.AddDefinition(s.QName())
	u.SetState(depm.StateSyntaxTree)
	u.SetState(depm.StateHasBytecode)
	u.SetState(depm.StateDone)
}

func TestSourcePathRetrievalContract(t *testing.T) {
	fsys := NewMapFileSystem()
	file := fsys.Add("src/controls/Button.as", "package controls { class Button {} }", baseTime)
	sp := NewSourcePath(fsys, "lib", "src")
	q := depm.NewQName("controls", "Button")

	first, err := sp.FindSource(q)
	if err != nil || first == nil {
		t.Fatalf("FindSource() = %v, %v", first, err)
	}

	if first.QName() != q || first.CompilationUnit() != nil {
		t.Fatalf("FindSource() = %v with unit %v, want a fresh controls:Button", first.QName(), first.CompilationUnit())
	}

	if again, _ := sp.FindSource(q); again != first {
		t.Fatalf("FindSource() handed out two sources for one name in a batch")
	}

	// an unfinished source is never reused
	first.NewCompilationUnit(nil)
	sp.Replace(first)
	sp.BeginBatch()
	if s, _ := sp.FindSource(q); s == first || s.CompilationUnit() != nil {
		t.Fatalf("unfinished source was reused")
	}

	// a done and fresh source is reused through a copy
	finish(first)
	sp.Replace(first)
	sp.BeginBatch()
	reused, _ := sp.FindSource(q)
	if reused == first || reused.CompilationUnit() == nil || !reused.CompilationUnit().IsDone() {
		t.Fatalf("done source was not copied forward")
	}

	// a stale source is parsed again
	file.Touch(baseTime.Add(time.Minute))
	sp.BeginBatch()
	if s, _ := sp.FindSource(q); s.CompilationUnit() != nil {
		t.Fatalf("stale source was reused")
	}

	if got := sp.Sources(); len(got) != 1 {
		t.Fatalf("Sources() = %d sources, want 1", len(got))
	}
}

func TestSourcePathPrecedenceAndMiss(t *testing.T) {
	fsys := NewMapFileSystem()
	fsys.Add("a/views/Main.mxml", "<Application/>", baseTime)
	fsys.Add("b/views/Main.as", "class Main {}", baseTime)
	sp := NewSourcePath(fsys, "a", "b")

	s, _ := sp.FindSource(depm.NewQName("views", "Main"))
	if s == nil || s.Name() != "a/views/Main.mxml" || s.MimeType() != common.MimeMarkup {
		t.Fatalf("FindSource() = %v, want the first root's markup file", s)
	}

	if s, _ := sp.FindSource(depm.NewQName("views", "Missing")); s != nil {
		t.Fatalf("FindSource() = %v for a missing name", s.Name())
	}

	all, err := sp.All()
	if err != nil || len(all) != 1 {
		t.Fatalf("All() = %d sources, %v, want 1", len(all), err)
	}
}

func TestFileSpecRootsAreNeverReused(t *testing.T) {
	fsys := NewMapFileSystem()
	fsys.Add("app/Main.mxml", "<Application/>", baseTime)
	fspec := NewFileSpec(fsys, "./app/Main.mxml", "app/Missing.mxml")

	srcs := fspec.Sources()
	if len(srcs) != 1 || !srcs[0].IsRoot() || srcs[0].QName() != depm.NewQName("", "Main") {
		t.Fatalf("Sources() = %v, want the root Main", srcs)
	}

	finish(srcs[0])
	fspec.Replace(srcs[0])
	fspec.BeginBatch()

	s, _ := fspec.FindSource(depm.NewQName("", "Main"))
	if s == nil || s == srcs[0] || s.CompilationUnit() != nil {
		t.Fatalf("root source was copied forward")
	}
}

func TestSourceListPackages(t *testing.T) {
	fsys := NewMapFileSystem()
	fsys.Add("src/util/Strings.as", "", baseTime)
	fsys.Add("Loose.as", "", baseTime)
	sl := NewSourceList(fsys, []string{"src"}, "src/util/Strings.as", "Loose.as")

	srcs := sl.Sources()
	if len(srcs) != 2 {
		t.Fatalf("Sources() = %d sources, want 2", len(srcs))
	}

	if srcs[0].QName() != depm.NewQName("util", "Strings") || srcs[1].QName() != depm.NewQName("", "Loose") {
		t.Fatalf("QName() = %v, %v", srcs[0].QName(), srcs[1].QName())
	}

	if s, _ := sl.FindSource(depm.NewQName("util", "Strings")); s != srcs[0] {
		t.Fatalf("FindSource() did not return the listed source")
	}
}

func TestResourceBundlePath(t *testing.T) {
	fsys := NewMapFileSystem()
	fsys.Add("locale/en_US/strings.properties", "greeting=Hello", baseTime)
	fsys.Add("locale/fr_FR/strings.properties", "greeting=Bonjour", baseTime)
	rbp := NewResourceBundlePath(fsys, []string{"en_US", "fr_FR", "de_DE"}, "locale")

	s, _ := rbp.FindSource(depm.NewQName("", "strings_fr_FR_properties"))
	if s == nil || s.Name() != "locale/fr_FR/strings.properties" {
		t.Fatalf("FindSource() = %v, want the fr_FR bundle", s)
	}

	if s.QName() != depm.NewQName("", "strings_fr_FR_properties") || s.MimeType() != common.MimeProperties {
		t.Fatalf("bundle source = %v %s", s.QName(), s.MimeType())
	}

	if got := rbp.FindBundle(depm.NewQName("", "strings")); len(got) != 2 {
		t.Fatalf("FindBundle() = %d sources, want 2", len(got))
	}

	if s, _ := rbp.FindSource(depm.NewQName("", "Button")); s != nil {
		t.Fatalf("FindSource() found a bundle for a class name")
	}
}

func TestResourceContainerReusesIdenticalSources(t *testing.T) {
	rc := NewResourceContainer()
	q := depm.NewQName("views", "Main_Styles")
	owner := depm.NewSource(depm.NewTextFile("views/Main.mxml", "", "", baseTime), "views/Main", "Main", nil, false, false)

	s := rc.AddSource(q, depm.NewTextFile("Main_Styles.as", "", "class Main_Styles {}", baseTime), owner)
	if !s.IsInternal() || s.QName() != q {
		t.Fatalf("AddSource() = %v internal=%v", s.QName(), s.IsInternal())
	}

	if o, _ := rc.Owner(q); o != owner {
		t.Fatalf("Owner() = %v", o)
	}

	finish(s)
	rc.Replace(s)
	rc.BeginBatch()

	same := rc.AddSource(q, depm.NewTextFile("Main_Styles.as", "", "class Main_Styles {}", baseTime), owner)
	if same == s || same.CompilationUnit() == nil {
		t.Fatalf("identical generated source was not reused")
	}

	rc.BeginBatch()
	changed := rc.AddSource(q, depm.NewTextFile("Main_Styles.as", "", "class Main_Styles { var x; }", baseTime), owner)
	if changed.CompilationUnit() != nil {
		t.Fatalf("changed generated source was reused")
	}
}

func TestArchiveContextSideCacheReuse(t *testing.T) {
	sum := uint64(99)
	lib := archive.NewLibrary("controls.mxa")
	script := archive.NewScript("controls.Button")
	script.Definitions = []depm.QName{depm.NewQName("controls", "Button")}
	script.Dependencies[depm.DepInheritance] = []depm.QName{depm.NewQName("controls", "UIComponent")}
	script.Checksum = &sum
	script.TypeInfo = &depm.TypeInfo{Name: depm.NewQName("controls", "Button"), Super: depm.NewQName("controls", "UIComponent")}
	script.Bytecode = []byte("bytecode")
	lib.Add(script)

	ac := NewArchiveContext(lib)
	s, _ := ac.FindSource(depm.NewQName("controls", "Button"))
	if s == nil || !s.IsInternal() {
		t.Fatalf("FindSource() = %v, want an internal archive source", s)
	}

	u := s.CompilationUnit()
	if !u.IsDone() || !u.HasTypeInfo() || string(u.Bytecode()) != "bytecode" {
		t.Fatalf("materialized unit incomplete: done=%v typeinfo=%v", u.IsDone(), u.HasTypeInfo())
	}

	if script.SideCache[common.UnitSideCacheKey] != u {
		t.Fatalf("materialized unit not stored in the side cache")
	}

	ac.BeginBatch()
	s2, _ := ac.FindSource(depm.NewQName("controls", "Button"))
	u2 := s2.CompilationUnit()
	if u2 == u || !u2.IsDone() {
		t.Fatalf("second batch did not build a new unit")
	}

	if got, ok := u2.Checksum(); !ok || got != 99 {
		t.Fatalf("carried forward Checksum() = %d, %v", got, ok)
	}

	if q, ok := u2.Dependencies(depm.DepInheritance).Resolved(depm.MultiNameFromQName(depm.NewQName("controls", "UIComponent"))); !ok || q.Local != "UIComponent" {
		t.Fatalf("carried forward inheritance dependency = %v, %v", q, ok)
	}

	if len(ac.Sources()) != 1 {
		t.Fatalf("Sources() = %d, want 1", len(ac.Sources()))
	}
}
