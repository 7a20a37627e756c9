package depm

import (
	"testing"
	"time"

	"mxc/common"
	"mxc/report"
)

var baseTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestSource(name, text string) (*Source, *TextFile) {
	f := NewTextFile(name, "", text, baseTime)
	return NewSource(f, "views/"+name, name, nil, false, false), f
}

func TestSetStateIdempotent(t *testing.T) {
	src, _ := newTestSource("Main.as", "class Main {}")
	u := src.NewCompilationUnit("tree")

	u.SetState(StateSyntaxTree)
	first := u.State()
	u.SetState(StateSyntaxTree)
	if u.State() != first {
		t.Fatalf("State() = %v after repeated SetState, want %v", u.State(), first)
	}

	if u.SyntaxTree != "tree" {
		t.Fatalf("SyntaxTree = %v, want tree to survive SetState(StateSyntaxTree)", u.SyntaxTree)
	}

	u.SetState(StateHasBytecode)
	u.SetState(StateDone)
	u.SetState(StateDone)
	u.SetState(StateSyntaxTree)

	want := StateSyntaxTree | StateHasBytecode | StateDone
	if u.State() != want {
		t.Fatalf("State() = %v, want %v", u.State(), want)
	}
}

func TestSetStateNeverClearsFlags(t *testing.T) {
	flags := []State{StateSyntaxTree, StateHasBytecode, StateDone}

	// every order of setting the flags only ever grows the state
	for _, a := range flags {
		for _, b := range flags {
			src, _ := newTestSource("A.as", "")
			u := src.NewCompilationUnit(nil)

			u.SetState(a)
			before := u.State()
			u.SetState(b)

			if !u.State().Has(before) || !u.State().Has(b) {
				t.Fatalf("SetState(%v) after %v = %v, want superset of %v", b, a, u.State(), before|b)
			}
		}
	}
}

func TestSetStateRejectsInvalidFlags(t *testing.T) {
	for _, flag := range []State{StateEmpty, StateSyntaxTree | StateDone, State(8)} {
		func() {
			defer func() {
				if _, ok := recover().(*report.InternalError); !ok {
					t.Fatalf("SetState(%d) did not panic with an internal error", flag)
				}
			}()

			src, _ := newTestSource("A.as", "")
			src.NewCompilationUnit(nil).SetState(flag)
		}()
	}
}

func TestSetStateHasBytecodeSideEffects(t *testing.T) {
	rep := report.NewReporter(report.LogLevelSilent)

	quiet, _ := newTestSource("Quiet.as", "")
	quiet.ConnectLogger(rep)
	quiet.ConnectPathResolver(NewPathResolver())
	cache := make(map[string]interface{})
	quiet.SetSideCache(cache)

	u := quiet.NewCompilationUnit("tree")
	u.SetState(StateSyntaxTree)
	u.SetState(StateHasBytecode)

	if u.SyntaxTree != nil {
		t.Fatalf("SyntaxTree = %v, want nil after bytecode", u.SyntaxTree)
	}

	if quiet.Logger() != nil {
		t.Fatalf("Logger() = %v, want nil for a source without diagnostics", quiet.Logger())
	}

	if quiet.ResolvePath("x.as") != nil || quiet.resolver != nil {
		t.Fatalf("path resolver still connected after bytecode")
	}

	if cache[common.UnitSideCacheKey] != u {
		t.Fatalf("side cache = %v, want the unit", cache[common.UnitSideCacheKey])
	}

	noisy, _ := newTestSource("Noisy.as", "")
	logger := noisy.ConnectLogger(rep)
	report.Warnf(logger, report.MKDef, nil, "unused import")

	nu := noisy.NewCompilationUnit(nil)
	nu.SetState(StateHasBytecode)

	if noisy.Logger() != logger || logger.Linked() {
		t.Fatalf("logger with diagnostics must be kept but unlinked")
	}
}

func TestSetStateDoneSideEffects(t *testing.T) {
	src, _ := newTestSource("Main.mxml", "")
	delegate, _ := newTestSource("Main.as", "")
	src.SetDelegate(delegate)
	src.AddSourceFragment("inline0", "<Button/>")
	delegate.AddSourceFragment("script0", "var x;")

	u := src.NewCompilationUnit("tree")
	u.Metadata = append(u.Metadata, "Event(name=\"click\")")
	u.Context.PassState = InterfaceParsed
	u.SetTypeInfo(&TypeInfo{Name: NewQName("views", "Main")})

	u.SetState(StateHasBytecode)
	u.SetState(StateDone)

	if u.Context != nil || u.Metadata != nil || u.SyntaxTree != nil {
		t.Fatalf("scratch data not cleared after done: %v %v %v", u.Context, u.Metadata, u.SyntaxTree)
	}

	if _, ok := src.SourceFragment("inline0"); ok {
		t.Fatalf("source fragments not cleared after done")
	}

	if _, ok := delegate.SourceFragment("script0"); ok {
		t.Fatalf("delegate source fragments not cleared after done")
	}

	if !u.HasTypeInfo() {
		t.Fatalf("HasTypeInfo() = false, want the snapshot taken at done")
	}
}

func TestHistorySurvivesClear(t *testing.T) {
	src, _ := newTestSource("A.as", "")
	u := src.NewCompilationUnit(nil)

	btn := NewMultiName("Button", "controls", "")
	u.AddDependency(DepType, btn)
	u.ResolveDependency(DepType, btn, NewQName("controls", "Button"))
	u.ClearDependencies(DepType)

	if u.Dependencies(DepType).Len() != 0 {
		t.Fatalf("current set has %d names after clear, want 0", u.Dependencies(DepType).Len())
	}

	got := u.History(DepType).Resolutions(btn)
	if len(got) != 1 || got[0] != NewQName("controls", "Button") {
		t.Fatalf("History().Resolutions() = %v, want [controls:Button]", got)
	}
}
