package parser

import (
	"testing"

	"github.com/cbegin/barbeat-notation/internal/modulation/token"
)

func TestParseSimpleAssignment(t *testing.T) {
	assigns, err := Parse("velocity += 10")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(assigns) != 1 {
		t.Fatalf("expected 1 assignment, got %d", len(assigns))
	}
	a := assigns[0]
	if a.Parameter != "velocity" || a.Operator != token.OpAdd {
		t.Fatalf("unexpected assignment: %+v", a)
	}
	num, ok := a.Expr.(token.Number)
	if !ok || num.Value != 10 {
		t.Fatalf("expected expr Number(10), got %#v", a.Expr)
	}
}

func TestParseSetOperator(t *testing.T) {
	assigns, err := Parse("duration = 2")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if assigns[0].Operator != token.OpSet {
		t.Fatalf("expected OpSet, got %v", assigns[0].Operator)
	}
}

func TestParsePitchRangePersistsAcrossLines(t *testing.T) {
	src := "C3-C5 velocity += 10\ntiming += 1"
	assigns, err := Parse(src)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(assigns) != 2 {
		t.Fatalf("expected 2 assignments, got %d", len(assigns))
	}
	for i, a := range assigns {
		if !a.HasPitchRange {
			t.Errorf("assignment %d: expected inherited pitch range", i)
		}
	}
	if assigns[0].PitchLow != 60 || assigns[0].PitchHigh != 84 {
		t.Errorf("unexpected pitch range: %d-%d", assigns[0].PitchLow, assigns[0].PitchHigh)
	}
}

func TestParseTimeRangeDoesNotPersist(t *testing.T) {
	src := "1|1-2|1 velocity += 10\nduration += 1"
	assigns, err := Parse(src)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if !assigns[0].HasTimeRange {
		t.Error("expected first assignment to carry a time range")
	}
	if assigns[1].HasTimeRange {
		t.Error("expected time range not to persist to the second assignment")
	}
}

func TestParseExpressionPrecedence(t *testing.T) {
	assigns, err := Parse("velocity = 2 + 3 * 4")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	bin, ok := assigns[0].Expr.(token.BinOp)
	if !ok || bin.Op != "+" {
		t.Fatalf("expected top-level '+', got %#v", assigns[0].Expr)
	}
	right, ok := bin.Right.(token.BinOp)
	if !ok || right.Op != "*" {
		t.Fatalf("expected right side to be a '*' term, got %#v", bin.Right)
	}
}

func TestParsePeriodLiterals(t *testing.T) {
	cases := []struct {
		src     string
		hasBar  bool
		bar     float64
		beat    float64
	}{
		{"velocity = 1t", false, 0, 1},
		{"velocity = 1|0t", true, 1, 0},
		{"velocity = 0|0.5t", true, 0, 0.5},
	}
	for _, c := range cases {
		assigns, err := Parse(c.src)
		if err != nil {
			t.Fatalf("parse(%q) failed: %v", c.src, err)
		}
		p, ok := assigns[0].Expr.(token.Period)
		if !ok {
			t.Fatalf("parse(%q): expected a Period node, got %#v", c.src, assigns[0].Expr)
		}
		if p.HasBar != c.hasBar || p.Bar != c.bar || p.Beat != c.beat {
			t.Errorf("parse(%q): got %+v, want hasBar=%v bar=%v beat=%v", c.src, p, c.hasBar, c.bar, c.beat)
		}
	}
}

func TestParseWaveformCall(t *testing.T) {
	assigns, err := Parse("velocity += 20 * cos(1|0t)")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	bin, ok := assigns[0].Expr.(token.BinOp)
	if !ok || bin.Op != "*" {
		t.Fatalf("expected top-level '*', got %#v", assigns[0].Expr)
	}
	call, ok := bin.Right.(token.Call)
	if !ok || call.Name != "cos" || len(call.Args) != 1 {
		t.Fatalf("expected cos(1|0t) call, got %#v", bin.Right)
	}
}

func TestParseNoteFieldReference(t *testing.T) {
	assigns, err := Parse("velocity = note.pitch")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	field, ok := assigns[0].Expr.(token.NoteField)
	if !ok || field.Field != "pitch" {
		t.Fatalf("expected note.pitch, got %#v", assigns[0].Expr)
	}
}

func TestParseUnknownParameterIsError(t *testing.T) {
	if _, err := Parse("volume = 1"); err == nil {
		t.Error("expected error for unknown parameter")
	}
}

func TestParseBlankLinesAndCommentsSkipped(t *testing.T) {
	src := "// a comment\n\nvelocity += 1\n# another comment\n"
	assigns, err := Parse(src)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(assigns) != 1 {
		t.Fatalf("expected 1 assignment, got %d", len(assigns))
	}
}
