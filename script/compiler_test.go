package script

import (
	"strings"
	"testing"
	"time"

	"github.com/kr/pretty"
	"github.com/rogpeppe/go-internal/txtar"

	"mxc/build"
	"mxc/common"
	"mxc/depm"
	"mxc/provider"
	"mxc/report"
)

var baseTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// fixture compiles the files of a txtar archive.  Files under `app/` are the
// entry points; `src/` is the source path.
type fixture struct {
	fsys  *provider.MapFileSystem
	fspec *provider.FileSpec
	rep   *report.Reporter
	drv   *build.Driver
}

func newFixture(archive string) *fixture {
	f := &fixture{fsys: provider.NewMapFileSystem(), rep: report.NewReporter(report.LogLevelSilent)}

	var entries []string
	for _, file := range txtar.Parse([]byte(archive)).Files {
		f.fsys.Add(file.Name, string(file.Data), baseTime)
		if strings.HasPrefix(file.Name, "app/") {
			entries = append(entries, file.Name)
		}
	}

	f.fspec = provider.NewFileSpec(f.fsys, entries...)
	f.drv = build.NewDriver(f.rep, []build.Compiler{NewCompiler()}, f.fspec, provider.NewSourcePath(f.fsys, "src"))
	return f
}

func (f *fixture) compile(t *testing.T) *build.Result {
	t.Helper()

	res, err := f.drv.Compile(build.ProviderRoots(f.fspec))
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	return res
}

// messages returns the messages of a kind and severity.
func (f *fixture) messages(kind int, isError bool) []string {
	var msgs []string
	for _, cm := range f.rep.Messages() {
		if cm.Kind == kind && cm.IsError == isError {
			msgs = append(msgs, cm.Message)
		}
	}

	return msgs
}

func sourceByName(res *build.Result, short string) *depm.Source {
	for _, s := range res.Sources {
		if s.ShortName() == short {
			return s
		}
	}

	return nil
}

// -----------------------------------------------------------------------------

const widgetArchive = `
-- app/Main.as --
package {
    import ui.Button;

    public class Main {
        public function Main() {
            var b = new Button();
            b.click(null, 2);
        }
    }
}
-- src/ui/Component.as --
package ui {
    public class Component {
        public var x:Number;
        public function click(e:Object, times:int = 1):void {}
    }
}
-- src/ui/IClickable.as --
package ui {
    public interface IClickable {
        function click(e:Object, times:int = 1):void;
    }
}
-- src/ui/Button.as --
package ui {
    [Event(name="click")]
    public class Button extends Component implements IClickable {
        public var label:String;

        override public function click(e:Object, times:int = 1):void {
            trace(Label.DEFAULT);
        }
    }
}
-- src/ui/Label.as --
package ui {
    public class Label extends Component {
        public static const DEFAULT:String = "label";
    }
}
`

func TestCompileClasses(t *testing.T) {
	f := newFixture(widgetArchive)
	res := f.compile(t)

	if n := f.rep.ErrorCount(); n != 0 {
		t.Fatalf("ErrorCount() = %d, want 0: %v", n, f.rep.Messages())
	}

	if len(res.Sources) != 5 {
		t.Fatalf("compiled %d sources, want 5", len(res.Sources))
	}

	button := sourceByName(res, "Button").CompilationUnit()
	ti := button.TypeInfo()
	want := &depm.TypeInfo{
		Name:       depm.NewQName("ui", "Button"),
		Super:      depm.NewQName("ui", "Component"),
		Interfaces: []depm.QName{depm.NewQName("ui", "IClickable")},
		Members: []depm.Member{
			{Name: "label", Kind: depm.MemberField, Type: BuiltinQName("String")},
			{Name: "click", Kind: depm.MemberMethod, Type: BuiltinQName("void"), Params: []depm.QName{BuiltinQName("Object"), BuiltinQName("int")}},
		},
		Events: []string{"click"},
	}
	if diff := pretty.Diff(ti, want); len(diff) > 0 {
		t.Fatalf("Button type info differs: %v", diff)
	}

	if sum, ok := button.Checksum(); !ok || sum != want.Checksum() {
		t.Fatalf("Button checksum = %d, %v, want %d", sum, ok, want.Checksum())
	}

	bc := string(button.Bytecode())
	for _, sym := range []string{"ui.Button.$init", "ui.Component.$init", "ui.Label.$init", "ui.Button.click"} {
		if !strings.Contains(bc, sym) {
			t.Fatalf("Button bytecode does not mention %s:\n%s", sym, bc)
		}
	}

	if q, ok := button.Dependencies(depm.DepExpression).Resolved(depm.NewMultiName("Label", "ui", "")); !ok || q != depm.NewQName("ui", "Label") {
		t.Fatalf("Label resolved to %v, %v, want ui:Label", q, ok)
	}

	main := sourceByName(res, "Main").CompilationUnit()
	if qnames := main.Dependencies(depm.DepExpression).QNames(); len(qnames) != 1 || qnames[0] != depm.NewQName("ui", "Button") {
		t.Fatalf("Main expression deps = %v, want [ui:Button]", qnames)
	}

	if warnings := f.messages(report.MKImport, false); len(warnings) != 0 {
		t.Fatalf("import warnings = %v, want none", warnings)
	}
}

func TestCompileTypingErrors(t *testing.T) {
	f := newFixture(widgetArchive + `
-- app/Unimplemented.as --
package {
    import ui.IClickable;

    public class Unimplemented implements IClickable {
        public function press():void {}
    }
}
-- app/Broken.as --
package {
    import ui.Component;

    public class Broken extends Component {
        public function click(e:Object, times:int = 1):void {}
        override public function nothing():void {}
        public var x:int;
    }
}
-- app/Backwards.as --
package {
    import ui.IClickable;

    public class Backwards extends IClickable {
    }
}
`)
	res := f.compile(t)

	got := f.messages(report.MKTyping, true)
	want := []string{
		"`Unimplemented` does not implement `click` of `ui:IClickable`",
		"`click` overrides a member of `ui:Component` and must be declared `override`",
		"`nothing` overrides nothing",
		"`x` conflicts with the inherited member of `ui:Component`",
		"class `Backwards` cannot extend interface `IClickable`",
	}

	for _, msg := range want {
		found := false
		for _, g := range got {
			found = found || g == msg
		}

		if !found {
			t.Fatalf("typing errors = %v, want %q among them", got, msg)
		}
	}

	if len(res.Failed) != 3 {
		t.Fatalf("failed %d sources, want 3", len(res.Failed))
	}
}

func TestCompileUnresolvedReference(t *testing.T) {
	f := newFixture(`
-- app/Lost.as --
package {
    public class Lost {
        public function find():Object {
            return new Missing();
        }
    }
}
`)
	res := f.compile(t)

	if got := f.messages(report.MKUnresolved, true); len(got) != 1 || got[0] != "could not resolve `Missing`" {
		t.Fatalf("unresolved errors = %v, want [could not resolve `Missing`]", got)
	}

	if len(res.Sources) != 0 || len(res.Failed) != 1 {
		t.Fatalf("compiled %d, failed %d, want 0 and 1", len(res.Sources), len(res.Failed))
	}
}

func TestCompileWarnsUnusedImports(t *testing.T) {
	f := newFixture(widgetArchive + `
-- app/Tidy.as --
package {
    import ui.Label;
    import ui.Component;

    public class Tidy {
        public var label:Label;
    }
}
`)
	f.compile(t)

	if got := f.messages(report.MKImport, false); len(got) != 1 || got[0] != "unused import `ui.Component`" {
		t.Fatalf("import warnings = %v, want [unused import `ui.Component`]", got)
	}
}

func TestCompileMisnamedDefinition(t *testing.T) {
	f := newFixture(`
-- app/Wrong.as --
package {
    public class Other {}
}
`)
	f.compile(t)

	if got := f.messages(report.MKDef, true); len(got) != 1 || !strings.Contains(got[0], "must be defined in a file named `Other.as`") {
		t.Fatalf("definition errors = %v", got)
	}
}

func TestParse1ResourceBundleDependencies(t *testing.T) {
	rep := report.NewReporter(report.LogLevelSilent)
	sess := depm.NewSession(rep, depm.NewSymbolTable(), depm.NewPathResolver())
	sess.Locales = []string{"en_US", "fr_FR"}

	text := "package {\n    [ResourceBundle(\"strings\")]\n    public class Greeter {}\n}\n"
	s := depm.NewSource(depm.NewTextFile("Greeter.as", common.MimeScript, text, baseTime), "Greeter", "Greeter", nil, false, true)

	u := NewCompiler().Parse1(sess, s)
	if u == nil {
		t.Fatalf("Parse1() = nil: %v", rep.Messages())
	}

	var got []string
	for _, mn := range u.Dependencies(depm.DepExpression).Names() {
		got = append(got, mn.Local)
	}

	if diff := pretty.Diff(got, []string{"strings_en_US_properties", "strings_fr_FR_properties"}); len(diff) > 0 {
		t.Fatalf("bundle dependencies differ: %v", diff)
	}

	if diff := pretty.Diff(u.ResourceBundles, []string{"strings"}); len(diff) > 0 {
		t.Fatalf("ResourceBundles differ: %v", diff)
	}
}

func TestParse1EmbedsAssets(t *testing.T) {
	rep := report.NewReporter(report.LogLevelSilent)
	sess := depm.NewSession(rep, depm.NewSymbolTable(), depm.NewPathResolver())

	logo := depm.NewTextFile("assets/logo.png", "image/png", "PNG", baseTime)
	sess.Resolver.Register(logo)

	text := "package {\n    public class Logo {\n        [Embed(source=\"assets/logo.png\")]\n        public static var image:Class;\n    }\n}\n"
	s := depm.NewSource(depm.NewTextFile("Logo.as", common.MimeScript, text, baseTime), "Logo", "Logo", nil, false, true)
	s.ConnectPathResolver(sess.Resolver)

	c := NewCompiler()
	u := c.Parse1(sess, s)
	if u == nil || rep.ErrorCount() != 0 {
		t.Fatalf("Parse1() failed: %v", rep.Messages())
	}

	first, ok := u.Assets["Logo_image"]
	if !ok || string(first.Data) != "PNG" || first.Args["source"] != "assets/logo.png" {
		t.Fatalf("Assets = %# v", pretty.Formatter(u.Assets))
	}

	// an unchanged asset survives a reset of its unit
	s.ResetUnit(true)
	if u = c.Parse1(sess, s); u.Assets["Logo_image"] != first {
		t.Fatalf("the unchanged asset was embedded again")
	}

	logo.Touch(baseTime.Add(time.Minute))
	if !s.IsUpdated() {
		t.Fatalf("IsUpdated() = false after the embedded file changed")
	}

	s.ResetUnit(true)
	if u = c.Parse1(sess, s); u.Assets["Logo_image"] == first {
		t.Fatalf("the changed asset was not embedded again")
	}

	c.Generate(sess, u)
	if bc := string(u.Bytecode()); !strings.Contains(bc, "Logo.$asset.Logo_image") || !strings.Contains(bc, `c"PNG"`) {
		t.Fatalf("bytecode lacks the asset:\n%s", bc)
	}
}

func TestParse1EmbedErrors(t *testing.T) {
	rep := report.NewReporter(report.LogLevelSilent)
	sess := depm.NewSession(rep, depm.NewSymbolTable(), depm.NewPathResolver())

	text := "package {\n    public class Logo {\n        [Embed]\n        public var a:Class;\n        [Embed(\"missing.png\")]\n        public var b:Class;\n    }\n}\n"
	s := depm.NewSource(depm.NewTextFile("Logo.as", common.MimeScript, text, baseTime), "Logo", "Logo", nil, false, true)
	s.ConnectPathResolver(sess.Resolver)

	u := NewCompiler().Parse1(sess, s)
	if u == nil {
		t.Fatalf("Parse1() = nil: %v", rep.Messages())
	}

	var got []string
	for _, cm := range rep.Messages() {
		got = append(got, cm.Message)
	}

	want := []string{"[Embed] requires a source", "the embedded file `missing.png` does not exist"}
	if diff := pretty.Diff(got, want); len(diff) > 0 {
		t.Fatalf("messages differ: %v", diff)
	}

	if len(u.Assets) != 0 {
		t.Fatalf("Assets = %v, want none", u.Assets)
	}
}

func TestCompileSuperCalls(t *testing.T) {
	f := newFixture(widgetArchive + `
-- app/Toggle.as --
package {
    import ui.Button;

    public class Toggle extends Button {
        public function Toggle() {
            super();
            label = "off";
        }

        override public function click(e:Object, times:int = 1):void {
            super.click(e, times);
        }
    }
}
`)
	res := f.compile(t)

	if n := f.rep.ErrorCount(); n != 0 {
		t.Fatalf("ErrorCount() = %d, want 0: %v", n, f.rep.Messages())
	}

	if s := sourceByName(res, "Toggle"); s == nil || !strings.Contains(string(s.CompilationUnit().Bytecode()), "Toggle.$ctor") {
		t.Fatalf("Toggle was not generated")
	}
}
