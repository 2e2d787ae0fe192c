// Package barbeat is the bar|beat notation toolchain's top-level API:
// parse and interpret bar|beat source into note events, apply a
// modulation program to those events, and format events back to
// canonical bar|beat source. Every entry point is a pure function over
// its inputs — no engine handle, no setup/teardown, just value in,
// value(s) out.
package barbeat

import (
	"github.com/cbegin/barbeat-notation/internal/barbeat/formatter"
	"github.com/cbegin/barbeat-notation/internal/barbeat/interp"
	"github.com/cbegin/barbeat-notation/internal/barbeat/parser"
	"github.com/cbegin/barbeat-notation/internal/diag"
	"github.com/cbegin/barbeat-notation/internal/modulation/eval"
	"github.com/cbegin/barbeat-notation/internal/noteevent"
	"github.com/cbegin/barbeat-notation/internal/timemodel"
)

// TimeSignature re-exports internal/timemodel.TimeSignature so callers
// never need to import an internal package directly.
type TimeSignature = timemodel.TimeSignature

// DefaultTimeSignature is 4/4.
func DefaultTimeSignature() TimeSignature {
	return timemodel.DefaultTimeSignature()
}

// NoteEvent re-exports internal/noteevent.NoteEvent.
type NoteEvent = noteevent.NoteEvent

// Diagnostic re-exports internal/diag.Diagnostic.
type Diagnostic = diag.Diagnostic

// InterpretResult is the outcome of one Interpret call.
type InterpretResult struct {
	Events      []NoteEvent
	RawEvents   []NoteEvent
	Diagnostics []Diagnostic
}

// Interpret parses and interprets bar|beat source text into note events.
// A syntax error or out-of-range value is fatal and returned as err;
// anything recoverable is returned as a Diagnostic alongside a
// successful result.
func Interpret(src string, ts TimeSignature) (InterpretResult, error) {
	tokens, err := parser.Parse(src)
	if err != nil {
		return InterpretResult{}, err
	}
	result, err := interp.Interpret(tokens, interp.Config{TimeSignature: ts})
	if err != nil {
		return InterpretResult{}, err
	}
	return InterpretResult{
		Events:      result.Events,
		RawEvents:   result.RawEvents,
		Diagnostics: result.Diagnostics,
	}, nil
}

// ApplyModulations mutates notes in place per the modulation program in
// src and returns any non-fatal diagnostics. A modulation program that
// fails to parse leaves notes untouched.
func ApplyModulations(notes []NoteEvent, src string, ts TimeSignature) []Diagnostic {
	return eval.Apply(notes, src, ts)
}

// Format renders note events back to canonical bar|beat source text.
func Format(events []NoteEvent, ts TimeSignature) string {
	return formatter.Format(events, ts)
}

// BarBeatDurationToEngineBeats converts a "bars:beats" duration string
// to engine beats — an exported convenience the grammar itself does not
// expose.
func BarBeatDurationToEngineBeats(barBeat string, ts TimeSignature) (float64, error) {
	return timemodel.BarBeatDurationToEngineBeats(barBeat, ts)
}

// ClipBridge is the data contract a DAW integration implements to read
// and write a region of a host clip. A host wires bar|beat text through
// Interpret/ApplyModulations/Format and uses its own ClipBridge
// implementation to move NoteEvents in and out of whatever clip
// representation it owns.
type ClipBridge interface {
	// GetNotesInRegion returns every note whose start time falls within
	// [startBeat, endBeat) of the host clip and whose pitch falls within
	// [pitchLow, pitchHigh], in engine beats.
	GetNotesInRegion(startBeat, endBeat float64, pitchLow, pitchHigh int) ([]NoteEvent, error)

	// RemoveNotesInRegion deletes every note in [startBeat, endBeat) with
	// pitch in [pitchLow, pitchHigh] from the host clip.
	RemoveNotesInRegion(startBeat, endBeat float64, pitchLow, pitchHigh int) error

	// AddNewNotes inserts notes into the host clip.
	AddNewNotes(notes []NoteEvent) error
}
