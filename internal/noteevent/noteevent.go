// Package noteevent defines the canonical note record that flows between
// the bar|beat interpreter, the modulation evaluator, and the formatter.
package noteevent

// NoteEvent is the canonical record. Durations and start times are in
// engine beats (quarter-note units); Velocity is MIDI-range after
// modulation (0 is permitted only transiently, as a v0 deletion marker,
// and is filtered out of the interpreter's Events; only the unfiltered
// RawEvents view keeps it — see internal/barbeat/interp).
type NoteEvent struct {
	Pitch             int
	StartTime         float64
	Duration          float64
	Velocity          int
	VelocityDeviation int
	Probability       float64
}

// MinDuration is the floor for any emitted or modulated NoteEvent.
const MinDuration = 0.001

// Valid reports whether e satisfies the invariants for an emitted
// (non-deletion-marker) note: velocity >= 1, velocity+deviation <= 127,
// duration >= MinDuration, 0 <= probability <= 1.
func (e NoteEvent) Valid() bool {
	if e.Velocity < 1 || e.Velocity > 127 {
		return false
	}
	if e.Velocity+e.VelocityDeviation > 127 {
		return false
	}
	if e.Duration < MinDuration {
		return false
	}
	if e.Probability < 0 || e.Probability > 1 {
		return false
	}
	return true
}

// IsDeletionMarker reports whether e is a v0 marker: emitted internally
// with Velocity == 0, never valid in final output.
func (e NoteEvent) IsDeletionMarker() bool {
	return e.Velocity == 0
}
