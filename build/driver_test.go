package build

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"mxc/common"
	"mxc/depm"
	"mxc/provider"
	"mxc/report"
)

var baseTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// toyCompiler compiles a line-based toy language.  Each line of a source is a
// directive:
//
//	extends X   inheritance dependency (and superclass)
//	type X      type dependency
//	uses X      expression dependency
//	member m    public member, part of the signature
//	eager X     parse1 is not ready until X has a type signature
//	post X      postprocess waits until X resolves
//	await X     postprocess waits until X is done
//	error       analyze1 reports an error
//
// Other lines are ignored.
type toyCompiler struct {
	calls map[string]map[string]int
}

func newToyCompiler() *toyCompiler {
	return &toyCompiler{calls: make(map[string]map[string]int)}
}

func (tc *toyCompiler) count(s *depm.Source, phase string) {
	if tc.calls[s.ShortName()] == nil {
		tc.calls[s.ShortName()] = make(map[string]int)
	}

	tc.calls[s.ShortName()][phase]++
}

// analyzed returns the number of analyze calls made for a source.
func (tc *toyCompiler) analyzed(name string) int {
	return tc.calls[name]["analyze1"] + tc.calls[name]["analyze2"] + tc.calls[name]["analyze3"] + tc.calls[name]["analyze4"]
}

type directive struct {
	verb, arg string
}

func directives(u *depm.CompilationUnit) []directive {
	return u.SyntaxTree.([]directive)
}

func toyName(arg string) depm.MultiName {
	return depm.MultiNameFromQName(depm.ParseQName(arg))
}

func (tc *toyCompiler) IsSupported(mimeType string) bool {
	return mimeType == common.MimeScript
}

func (tc *toyCompiler) SupportedMimeTypes() []string {
	return []string{common.MimeScript}
}

func (tc *toyCompiler) Preprocess(sess *depm.Session, s *depm.Source) *depm.Source {
	tc.count(s, "preprocess")
	return s
}

func (tc *toyCompiler) Parse1(sess *depm.Session, s *depm.Source) *depm.CompilationUnit {
	tc.count(s, "parse1")

	text, err := s.Read()
	if err != nil {
		sess.Errorf(report.MKIO, nil, "%s", err)
		return nil
	}

	var dirs []directive
	for _, line := range strings.Split(string(text), "\n") {
		fields := strings.Fields(line)
		switch len(fields) {
		case 1:
			dirs = append(dirs, directive{verb: fields[0]})
		case 2:
			dirs = append(dirs, directive{verb: fields[0], arg: fields[1]})
		}
	}

	for _, d := range dirs {
		if d.verb == "eager" {
			if _, ok := sess.Symbols.TypeInfo(depm.ParseQName(d.arg)); !ok {
				return nil
			}
		}
	}

	u := s.NewCompilationUnit(dirs)
	u.AddDefinition(s.QName())
	for _, d := range dirs {
		if d.verb == "extends" {
			u.AddDependency(depm.DepInheritance, toyName(d.arg))
		}
	}

	return u
}

func (tc *toyCompiler) Parse2(sess *depm.Session, u *depm.CompilationUnit) {
	tc.count(u.Source(), "parse2")
	for _, d := range directives(u) {
		switch d.verb {
		case "type":
			u.AddDependency(depm.DepType, toyName(d.arg))
		case "uses":
			u.AddDependency(depm.DepExpression, toyName(d.arg))
		}
	}
}

func (tc *toyCompiler) Analyze1(sess *depm.Session, u *depm.CompilationUnit) {
	tc.count(u.Source(), "analyze1")
	for _, d := range directives(u) {
		if d.verb == "error" {
			sess.Errorf(report.MKTyping, report.LinePosition(1, 0), "toy error")
		}
	}
}

func (tc *toyCompiler) Analyze2(sess *depm.Session, u *depm.CompilationUnit) {
	tc.count(u.Source(), "analyze2")

	ti := &depm.TypeInfo{Name: u.Source().QName()}
	for _, d := range directives(u) {
		switch d.verb {
		case "extends":
			ti.Super, _ = u.Dependencies(depm.DepInheritance).Resolved(toyName(d.arg))
		case "member":
			ti.Members = append(ti.Members, depm.Member{Name: d.arg, Kind: depm.MemberField})
		}
	}

	u.SetTypeInfo(ti)
	u.SetChecksum(ti.Checksum())
}

func (tc *toyCompiler) Analyze3(sess *depm.Session, u *depm.CompilationUnit) {
	tc.count(u.Source(), "analyze3")
}

func (tc *toyCompiler) Analyze4(sess *depm.Session, u *depm.CompilationUnit) {
	tc.count(u.Source(), "analyze4")
}

func (tc *toyCompiler) Generate(sess *depm.Session, u *depm.CompilationUnit) {
	tc.count(u.Source(), "generate")
	u.SetBytecode([]byte(u.Source().QName().String()))
}

func (tc *toyCompiler) Postprocess(sess *depm.Session, u *depm.CompilationUnit, pending *depm.NameSet) *depm.NameSet {
	tc.count(u.Source(), "postprocess")

	next := depm.NewNameSet()
	text, _ := u.Source().Read()
	for _, line := range strings.Split(string(text), "\n") {
		fields := strings.Fields(line)
		if len(fields) != 2 || (fields[0] != "post" && fields[0] != "await") {
			continue
		}

		mn := toyName(fields[1])
		q, ok := u.Dependencies(depm.DepType).Resolved(mn)
		if !ok {
			next.Add(mn)
			continue
		}

		if fields[0] == "await" {
			s, _ := sess.Symbols.SourceOf(q)
			if s == nil || s.CompilationUnit() == nil || !s.CompilationUnit().IsDone() {
				next.Add(mn)
			}
		}
	}

	return next
}

// -----------------------------------------------------------------------------

type fixture struct {
	fsys  *provider.MapFileSystem
	fspec *provider.FileSpec
	sp    *provider.SourcePath
	rep   *report.Reporter
	toy   *toyCompiler
	drv   *Driver
}

// newFixture creates a driver over a file spec of the given entry points and
// a source path rooted at `src`.
func newFixture(files map[string]string, entries ...string) *fixture {
	f := &fixture{fsys: provider.NewMapFileSystem(), rep: report.NewReporter(report.LogLevelSilent), toy: newToyCompiler()}
	for p, text := range files {
		f.fsys.Add(p, text, baseTime)
	}

	f.fspec = provider.NewFileSpec(f.fsys, entries...)
	f.sp = provider.NewSourcePath(f.fsys, "src")
	f.drv = NewDriver(f.rep, []Compiler{f.toy}, f.fspec, f.sp)
	return f
}

func (f *fixture) compile(t *testing.T) *Result {
	t.Helper()

	res, err := f.drv.Compile(ProviderRoots(f.fspec))
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	return res
}

func (f *fixture) errors(kind int) []string {
	var msgs []string
	for _, cm := range f.rep.Messages() {
		if cm.IsError && cm.Kind == kind {
			msgs = append(msgs, cm.Message)
		}
	}

	return msgs
}

func shortNames(srcs []*depm.Source) []string {
	names := make([]string, len(srcs))
	for i, s := range srcs {
		names[i] = s.ShortName()
	}

	return names
}

// -----------------------------------------------------------------------------

func TestCompileInheritanceChain(t *testing.T) {
	f := newFixture(map[string]string{
		"app/Main.as":      "extends Button\nuses Label",
		"src/Button.as":    "extends Component\nmember label",
		"src/Component.as": "member x",
		"src/Label.as":     "type Component",
	}, "app/Main.as")

	res := f.compile(t)
	if !f.rep.ShouldProceed() {
		t.Fatalf("Compile() reported errors: %v", f.rep.Messages())
	}

	pos := make(map[string]int)
	for i, name := range shortNames(res.Sources) {
		pos[name] = i
	}

	if len(res.Sources) != 4 || pos["Component"] > pos["Button"] || pos["Button"] > pos["Main"] {
		t.Fatalf("Sources = %v, want Component before Button before Main", shortNames(res.Sources))
	}

	for _, u := range res.Units() {
		if !u.IsDone() || u.SyntaxTree != nil || u.Context != nil {
			t.Fatalf("unit of %s not done and cleared: %v", u.Source().Name(), u.State())
		}
	}

	ti, ok := f.drv.Session().Symbols.TypeInfo(depm.NewQName("", "Main"))
	if !ok || ti.Super != depm.NewQName("", "Button") {
		t.Fatalf("TypeInfo(Main) = %v, %v", ti, ok)
	}

	if m, owner, ok := f.drv.Session().Symbols.Types.FindMember(depm.NewQName("", "Main"), "x"); !ok || m.Name != "x" || owner.Local != "Component" {
		t.Fatalf("FindMember(Main, x) = %v, %v, %v", m, owner, ok)
	}
}

func TestPostprocessConvergesWithinChainDepth(t *testing.T) {
	const depth = 5

	files := make(map[string]string)
	for i := 0; i < depth; i++ {
		files[fmt.Sprintf("src/P%d.as", i)] = fmt.Sprintf("await P%d", i+1)
	}

	files[fmt.Sprintf("src/P%d.as", depth)] = "member last"

	f := newFixture(files, "src/P0.as")
	res := f.compile(t)

	if !f.rep.ShouldProceed() {
		t.Fatalf("Compile() reported errors: %v", f.rep.Messages())
	}

	if len(res.Sources) != depth+1 || len(res.Failed) != 0 {
		t.Fatalf("Sources = %v, Failed = %v, want %d sources", shortNames(res.Sources), shortNames(res.Failed), depth+1)
	}

	if res.PostprocessRounds > depth+1 {
		t.Fatalf("PostprocessRounds = %d, want at most %d", res.PostprocessRounds, depth+1)
	}

	for _, u := range res.Units() {
		if !u.IsDone() {
			t.Fatalf("unit of %s is %v, want done", u.Source().Name(), u.State())
		}
	}
}

func TestUnresolvableNameTerminates(t *testing.T) {
	f := newFixture(map[string]string{
		"app/A.as": "post Missing",
		"app/B.as": "post Missing",
	}, "app/A.as", "app/B.as")

	res := f.compile(t)

	if len(res.Failed) != 2 || len(res.Sources) != 0 {
		t.Fatalf("Failed = %v, Sources = %v, want both failed", shortNames(res.Failed), shortNames(res.Sources))
	}

	msgs := f.errors(report.MKUnresolved)
	if len(msgs) != 1 || !strings.Contains(msgs[0], "Missing") {
		t.Fatalf("unresolved errors = %q, want one naming Missing", msgs)
	}

	if res.Iterations > 4 {
		t.Fatalf("Iterations = %d, want at most 4", res.Iterations)
	}
}

func TestUnresolvedSuperclass(t *testing.T) {
	f := newFixture(map[string]string{
		"app/A.as": "extends Nowhere",
	}, "app/A.as")

	res := f.compile(t)

	if len(res.Failed) != 1 {
		t.Fatalf("Failed = %v, want A", shortNames(res.Failed))
	}

	if msgs := f.errors(report.MKUnresolved); len(msgs) != 1 || !strings.Contains(msgs[0], "Nowhere") {
		t.Fatalf("unresolved errors = %q, want one naming Nowhere", msgs)
	}
}

func TestInheritanceCycle(t *testing.T) {
	f := newFixture(map[string]string{
		"app/Main.as": "uses X",
		"src/X.as":    "extends Y",
		"src/Y.as":    "extends X",
	}, "app/Main.as")

	res := f.compile(t)

	msgs := f.errors(report.MKCycle)
	if len(msgs) != 1 || !strings.Contains(msgs[0], "`X`") || !strings.Contains(msgs[0], "`Y`") {
		t.Fatalf("cycle errors = %q, want one naming X and Y", msgs)
	}

	failed := strings.Join(shortNames(res.Failed), ",")
	if !strings.Contains(failed, "X") || !strings.Contains(failed, "Y") {
		t.Fatalf("Failed = %s, want X and Y", failed)
	}
}

func TestFailedDependencyFailsDependent(t *testing.T) {
	f := newFixture(map[string]string{
		"app/Main.as":   "extends Broken",
		"src/Broken.as": "error",
	}, "app/Main.as")

	res := f.compile(t)

	if len(res.Failed) != 2 {
		t.Fatalf("Failed = %v, want Main and Broken", shortNames(res.Failed))
	}

	if msgs := f.errors(report.MKUnresolved); len(msgs) != 1 || !strings.Contains(msgs[0], "Broken") {
		t.Fatalf("dependency errors = %q", msgs)
	}

	if f.toy.calls["Main"]["analyze1"] != 0 {
		t.Fatalf("Main was analyzed despite its failed superclass")
	}
}

func TestUnsupportedInput(t *testing.T) {
	f := newFixture(map[string]string{
		"app/Main.as":    "member x",
		"app/readme.txt": "hello",
	}, "app/Main.as", "app/readme.txt")

	res := f.compile(t)

	if msgs := f.errors(report.MKUnsupported); len(msgs) != 1 {
		t.Fatalf("unsupported errors = %q, want 1", msgs)
	}

	if len(res.Failed) != 1 || res.Failed[0].ShortName() != "readme" {
		t.Fatalf("Failed = %v, want readme", shortNames(res.Failed))
	}

	if len(res.Sources) != 1 || res.Sources[0].ShortName() != "Main" {
		t.Fatalf("Sources = %v, want Main", shortNames(res.Sources))
	}
}

func TestParse1ReadyLater(t *testing.T) {
	f := newFixture(map[string]string{
		"app/A.as": "eager B\nextends B",
		"app/B.as": "member b",
	}, "app/A.as", "app/B.as")

	res := f.compile(t)

	if !f.rep.ShouldProceed() || len(res.Sources) != 2 {
		t.Fatalf("Compile() = %v, errors %v", shortNames(res.Sources), f.rep.Messages())
	}

	if got := f.toy.calls["A"]["parse1"]; got != 2 {
		t.Fatalf("parse1 calls for A = %d, want 2", got)
	}

	if got := strings.Join(shortNames(res.Sources), ","); got != "B,A" {
		t.Fatalf("Sources = %s, want B,A", got)
	}
}

func TestParse1NeverReady(t *testing.T) {
	f := newFixture(map[string]string{
		"app/A.as": "eager Nothing",
	}, "app/A.as")

	res := f.compile(t)

	if len(res.Failed) != 1 || len(f.errors(report.MKUnresolved)) != 1 {
		t.Fatalf("Failed = %v, errors = %v", shortNames(res.Failed), f.rep.Messages())
	}
}

func TestDuplicateDefinition(t *testing.T) {
	f := newFixture(map[string]string{
		"app/Main.as": "member x",
		"lib/Main.as": "member y",
	}, "app/Main.as", "lib/Main.as")

	res := f.compile(t)

	if msgs := f.errors(report.MKDef); len(msgs) != 1 || !strings.Contains(msgs[0], "app/Main.as") {
		t.Fatalf("definition errors = %q", msgs)
	}

	if len(res.Failed) != 1 || res.Failed[0].Name() != "lib/Main.as" {
		t.Fatalf("Failed = %v, want lib/Main.as", shortNames(res.Failed))
	}
}

func TestIncrementalChecksumShortCircuit(t *testing.T) {
	f := newFixture(map[string]string{
		"src/B.as": "extends C\nmember b",
		"src/C.as": "member c",
	})

	roots := func() ([]*depm.Source, error) {
		s, err := f.sp.FindSource(depm.NewQName("", "B"))
		return []*depm.Source{s}, err
	}

	compile := func() *Result {
		t.Helper()

		res, err := f.drv.Compile(roots)
		if err != nil {
			t.Fatalf("Compile() error = %v", err)
		}

		if !f.rep.ShouldProceed() {
			t.Fatalf("Compile() reported errors: %v", f.rep.Messages())
		}

		return res
	}

	compile()
	if got := f.toy.analyzed("B"); got != 4 {
		t.Fatalf("analyze calls for B = %d, want 4", got)
	}

	// nothing changed: both units are reused
	res := compile()
	if len(res.Reused) != 2 || f.toy.calls["C"]["parse1"] != 1 {
		t.Fatalf("Reused = %v, want B and C", shortNames(res.Reused))
	}

	// C changes without changing its signature: B is kept
	f.fsys.Add("src/C.as", "member c\ncomment", baseTime.Add(time.Minute))
	res = compile()
	if got := f.toy.analyzed("B"); got != 4 {
		t.Fatalf("analyze calls for B = %d after an unchanged signature, want 4", got)
	}

	if f.toy.calls["C"]["parse1"] != 2 {
		t.Fatalf("C was not recompiled")
	}

	if len(res.Reused) != 1 || res.Reused[0].ShortName() != "B" {
		t.Fatalf("Reused = %v, want B", shortNames(res.Reused))
	}

	// C changes its signature: B is redone
	f.fsys.Add("src/C.as", "member c\nmember d", baseTime.Add(2*time.Minute))
	res = compile()
	if got := f.toy.analyzed("B"); got != 8 {
		t.Fatalf("analyze calls for B = %d after a changed signature, want 8", got)
	}

	if len(res.Reused) != 0 || len(res.Sources) != 2 {
		t.Fatalf("Reused = %v, Sources = %v", shortNames(res.Reused), shortNames(res.Sources))
	}

	u := res.Sources[1].CompilationUnit()
	sum, _ := res.Sources[0].CompilationUnit().Checksum()
	if res.Sources[1].ShortName() != "B" || u.DependencyChecksums[depm.NewQName("", "C")] != sum {
		t.Fatalf("DependencyChecksums = %v, want C's checksum %d", u.DependencyChecksums, sum)
	}
}
