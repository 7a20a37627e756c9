package report

import "testing"

func TestLineMapMap(t *testing.T) {
	lm := NewLineMap()
	lm.Add(10, 40, 3)
	lm.Add(2, 7, 2)

	tests := []struct {
		gen    int
		want   int
		wantOK bool
	}{
		{gen: 1, wantOK: false},
		{gen: 2, want: 7, wantOK: true},
		{gen: 3, want: 8, wantOK: true},
		{gen: 4, wantOK: false},
		{gen: 10, want: 40, wantOK: true},
		{gen: 12, want: 42, wantOK: true},
		{gen: 13, wantOK: false},
	}

	for _, tt := range tests {
		got, ok := lm.Map(tt.gen)
		if ok != tt.wantOK || (ok && got != tt.want) {
			t.Fatalf("Map(%d) = %d, %v, want %d, %v", tt.gen, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestRemapperRewritesGeneratedMessages(t *testing.T) {
	rep := NewReporter(LogLevelSilent)
	outer := NewLogger("Main.mxml", rep)

	lm := NewLineMap()
	lm.Add(5, 20, 4)
	r := NewRemapper(outer, "Main.as", "Main.mxml", lm)

	ErrorfAt(r, "Main.as", MKSyntax, LinePosition(6, 3), "unexpected token")
	Errorf(r, MKTyping, LinePosition(1, 0), "boilerplate failure")
	ErrorfAt(r, "Other.as", MKTyping, LinePosition(6, 0), "unrelated")

	msgs := rep.Messages()
	if len(msgs) != 3 {
		t.Fatalf("len(Messages()) = %d, want 3", len(msgs))
	}

	if msgs[0].Path != "Main.mxml" || msgs[0].Position.StartLn != 21 || msgs[0].Position.StartCol != 3 {
		t.Fatalf("remapped message = %v, want Main.mxml:21:4", msgs[0])
	}

	if msgs[1].Path != "Main.mxml" || msgs[1].Position != nil {
		t.Fatalf("unmapped line message = %v, want no position", msgs[1])
	}

	if msgs[2].Path != "Other.as" || msgs[2].Position.StartLn != 6 {
		t.Fatalf("foreign message = %v, want untouched", msgs[2])
	}

	// foreign messages still count against the outer source
	if outer.ErrorCount() != 3 {
		t.Fatalf("outer.ErrorCount() = %d, want 3", outer.ErrorCount())
	}
}

func TestLoggerUnlink(t *testing.T) {
	rep := NewReporter(LogLevelSilent)
	l := NewLogger("A.as", rep)

	Warnf(l, MKDef, nil, "shadowed")
	l.Unlink()
	Errorf(l, MKDef, nil, "after unlink")

	if !l.HasDiagnostics() || len(l.Messages()) != 2 {
		t.Fatalf("Messages() = %v, want both messages recorded", l.Messages())
	}

	if rep.WarningCount() != 1 || rep.ErrorCount() != 0 {
		t.Fatalf("reporter counts = %d errors %d warnings, want 0 and 1", rep.ErrorCount(), rep.WarningCount())
	}

	if l.Messages()[0].Path != "A.as" {
		t.Fatalf("Path = %q, want A.as", l.Messages()[0].Path)
	}
}

func TestCatchErrors(t *testing.T) {
	rep := NewReporter(LogLevelSilent)

	func() {
		defer CatchErrors(rep)
		panic(Raise(MKSyntax, LinePosition(3, 1), "expected %s", "'}'"))
	}()

	msgs := rep.Messages()
	if len(msgs) != 1 || msgs[0].Message != "expected '}'" {
		t.Fatalf("Messages() = %v, want one syntax error", msgs)
	}
}
