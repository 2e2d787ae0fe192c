package eval

import (
	"math"
	"testing"

	"github.com/cbegin/barbeat-notation/internal/noteevent"
	"github.com/cbegin/barbeat-notation/internal/timemodel"
)

func TestApplyVelocityAdd(t *testing.T) {
	ts := timemodel.DefaultTimeSignature()
	notes := []noteevent.NoteEvent{
		{Pitch: 60, StartTime: 0, Duration: 1, Velocity: 100, Probability: 1},
	}
	diags := Apply(notes, "velocity += 10", ts)
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %+v", diags)
	}
	if notes[0].Velocity != 110 {
		t.Errorf("expected velocity 110, got %d", notes[0].Velocity)
	}
}

func TestApplyVelocityClamps(t *testing.T) {
	ts := timemodel.DefaultTimeSignature()
	notes := []noteevent.NoteEvent{
		{Pitch: 60, StartTime: 0, Duration: 1, Velocity: 120, Probability: 1},
	}
	Apply(notes, "velocity += 50", ts)
	if notes[0].Velocity != 127 {
		t.Errorf("expected velocity clamped to 127, got %d", notes[0].Velocity)
	}
}

func TestApplyPitchRangeFilter(t *testing.T) {
	ts := timemodel.DefaultTimeSignature()
	notes := []noteevent.NoteEvent{
		{Pitch: 60, StartTime: 0, Duration: 1, Velocity: 100, Probability: 1},
		{Pitch: 84, StartTime: 0, Duration: 1, Velocity: 100, Probability: 1},
	}
	Apply(notes, "C3-C4 velocity += 10", ts)
	if notes[0].Velocity != 110 {
		t.Errorf("expected note within range to be modulated, got %d", notes[0].Velocity)
	}
	if notes[1].Velocity != 100 {
		t.Errorf("expected note outside range untouched, got %d", notes[1].Velocity)
	}
}

func TestApplyCosineModulationIn68(t *testing.T) {
	ts := timemodel.TimeSignature{Num: 6, Den: 8}
	// start_time expressed so that position = start_time*den/4 = 3 musical beats.
	notes := []noteevent.NoteEvent{
		{Pitch: 60, StartTime: 1.5, Duration: 1, Velocity: 100, Probability: 1},
	}
	diags := Apply(notes, "velocity += 20 * cos(1|0t)", ts)
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %+v", diags)
	}
	if notes[0].Velocity != 80 {
		t.Errorf("expected velocity 100-20=80, got %d", notes[0].Velocity)
	}
}

func TestApplyDurationFloor(t *testing.T) {
	ts := timemodel.DefaultTimeSignature()
	notes := []noteevent.NoteEvent{
		{Pitch: 60, StartTime: 0, Duration: 0.01, Velocity: 100, Probability: 1},
	}
	Apply(notes, "duration += -1", ts)
	if notes[0].Duration != noteevent.MinDuration {
		t.Errorf("expected duration floored to %v, got %v", noteevent.MinDuration, notes[0].Duration)
	}
}

func TestApplyUnknownFunctionIsNonFatal(t *testing.T) {
	ts := timemodel.DefaultTimeSignature()
	notes := []noteevent.NoteEvent{
		{Pitch: 60, StartTime: 0, Duration: 1, Velocity: 100, Probability: 1},
	}
	diags := Apply(notes, "velocity += bogus(1t)", ts)
	if len(diags) == 0 {
		t.Fatal("expected a modulation-eval-failure diagnostic")
	}
	if notes[0].Velocity != 100 {
		t.Errorf("expected velocity untouched after failed evaluation, got %d", notes[0].Velocity)
	}
}

func TestApplyNonPositivePeriodIsNonFatal(t *testing.T) {
	ts := timemodel.DefaultTimeSignature()
	notes := []noteevent.NoteEvent{
		{Pitch: 60, StartTime: 0, Duration: 1, Velocity: 100, Probability: 1},
	}
	diags := Apply(notes, "velocity += cos(0t)", ts)
	if len(diags) == 0 {
		t.Fatal("expected a modulation-eval-failure diagnostic for a non-positive period")
	}
}

func TestApplyParseFailureLeavesNotesUntouched(t *testing.T) {
	ts := timemodel.DefaultTimeSignature()
	notes := []noteevent.NoteEvent{
		{Pitch: 60, StartTime: 0, Duration: 1, Velocity: 100, Probability: 1},
	}
	diags := Apply(notes, "velocity +=", ts)
	if len(diags) != 1 || diags[0].Class != "modulation-parse-failure" {
		t.Fatalf("expected a single modulation-parse-failure diagnostic, got %+v", diags)
	}
	if notes[0].Velocity != 100 {
		t.Errorf("expected notes untouched, got %+v", notes[0])
	}
}

func TestRampUsesActiveTimeRange(t *testing.T) {
	ts := timemodel.DefaultTimeSignature()
	notes := []noteevent.NoteEvent{
		{Pitch: 60, StartTime: 0, Duration: 1, Velocity: 100, Probability: 1},
		{Pitch: 60, StartTime: 4, Duration: 1, Velocity: 100, Probability: 1},
	}
	Apply(notes, "velocity = 50 + ramp(0, 100)", ts)
	if notes[0].Velocity != 50 {
		t.Errorf("expected velocity 50 at range start, got %d", notes[0].Velocity)
	}
	if notes[1].Velocity != 127 {
		t.Errorf("expected velocity 50+80 clamped to 127 at 4/5 of the range, got %d", notes[1].Velocity)
	}
}

func TestClipRangeMusical(t *testing.T) {
	ts := timemodel.DefaultTimeSignature()
	notes := []noteevent.NoteEvent{
		{Pitch: 60, StartTime: 2, Duration: 1},
		{Pitch: 64, StartTime: 0, Duration: 2},
	}
	start, end := clipRangeMusical(notes, ts)
	if math.Abs(start-0) > 1e-9 || math.Abs(end-3) > 1e-9 {
		t.Errorf("expected clip range [0,3], got [%v,%v]", start, end)
	}
}
