// Package interp implements the bar|beat interpreter: a small stack
// machine whose output-producing step is the time position. A mutable
// runtime state is carried and mutated token-by-token, the way a voice
// cursor is carried through a tick-driven sequencer, generalized here to
// a position-driven emission model instead of playback ticks.
package interp

import (
	"github.com/cbegin/barbeat-notation/internal/barbeat/token"
	"github.com/cbegin/barbeat-notation/internal/diag"
	"github.com/cbegin/barbeat-notation/internal/noteevent"
	"github.com/cbegin/barbeat-notation/internal/timemodel"
)

// Config carries interpreter options as a plain struct with defaults.
type Config struct {
	TimeSignature timemodel.TimeSignature
}

// DefaultConfig returns 4/4.
func DefaultConfig() Config {
	return Config{TimeSignature: timemodel.DefaultTimeSignature()}
}

// Result is everything one interpretation pass produces.
type Result struct {
	// Events is the final output: deletion-filtered, in emission order.
	// Callers that need (start_time, pitch) ordering should sort
	// themselves (the formatter does; the interpreter never reorders).
	Events []noteevent.NoteEvent

	// RawEvents is the unfiltered emission stream, including v0 deletion
	// markers and the notes they would delete — the "merge mode" view an
	// external clip updater may request.
	RawEvents []noteevent.NoteEvent

	Diagnostics []diag.Diagnostic
}

// pitchState is one buffered pitch: the pitch plus the state snapshot
// captured when it was added to the group.
type pitchState struct {
	pitch             int
	velocity          int
	velocityDeviation int
	duration          float64
	probability       float64
}

type state struct {
	cfg Config
	sink diag.Sink

	currentVelocity          int
	currentVelocityDeviation int
	currentDuration          float64
	currentProbability       float64

	currentTimeBar  int
	currentTimeBeat float64

	hasExplicitBarNumber bool
	lastExplicitBar      int

	pitches           []pitchState
	pitchGroupStarted bool
	pitchesEmitted    bool

	stateChangedSinceLastPitch bool
	stateChangedAfterEmission  bool

	// notesByBar maps a bar number to the notes emitted into it, as
	// (offset-within-bar in engine beats, event) pairs, for bar-copy
	// sourcing.
	notesByBar map[int][]barEntry

	raw []noteevent.NoteEvent
}

type barEntry struct {
	offset float64
	event  noteevent.NoteEvent
}

func newState(cfg Config) *state {
	return &state{
		cfg:                 cfg,
		currentVelocity:     100,
		currentDuration:     1,
		currentProbability:  1,
		currentTimeBar:      1,
		currentTimeBeat:     1,
		notesByBar:          make(map[int][]barEntry),
	}
}

// Interpret reduces a parsed bar|beat token stream to a note-event
// sequence. One Result is produced per call; nothing is shared across
// calls — every invocation is stateless.
func Interpret(tokens []token.Token, cfg Config) (Result, error) {
	st := newState(cfg)

	for _, tok := range tokens {
		switch tok.Kind {
		case token.KindPitch:
			if err := st.handlePitch(tok); err != nil {
				return Result{}, err
			}
		case token.KindTimePosition:
			if err := st.handleTimePosition(tok); err != nil {
				return Result{}, err
			}
		case token.KindVelocitySingle:
			if err := st.handleVelocitySingle(tok); err != nil {
				return Result{}, err
			}
		case token.KindVelocityRange:
			if err := st.handleVelocityRange(tok); err != nil {
				return Result{}, err
			}
		case token.KindDuration:
			st.handleDuration(tok)
		case token.KindProbability:
			if err := st.handleProbability(tok); err != nil {
				return Result{}, err
			}
		case token.KindBarCopySingle:
			st.handleBarCopySingle(tok)
		case token.KindBarCopyRange:
			st.handleBarCopyRange(tok)
		case token.KindClearBuffer:
			st.notesByBar = make(map[int][]barEntry)
		}
	}

	if st.pitchGroupStarted && len(st.pitches) > 0 {
		st.sink.Add(diag.ClassBufferWaste, "%d pitch(es) buffered but no time position", len(st.pitches))
	}

	filtered := filterDeletions(st.raw, false)
	return Result{
		Events:      filtered,
		RawEvents:   st.raw,
		Diagnostics: st.sink.Entries(),
	}, nil
}

func (s *state) handlePitch(tok token.Token) error {
	if tok.PitchValue < 0 || tok.PitchValue > 127 {
		return diag.NewRangeError(tok.Pos, "pitch", float64(tok.PitchValue), "pitch out of range [0,127]")
	}
	if !s.pitchGroupStarted {
		s.pitches = nil
		s.pitchGroupStarted = true
		s.pitchesEmitted = false
		s.stateChangedSinceLastPitch = false
		s.stateChangedAfterEmission = false
	}
	s.pitches = append(s.pitches, pitchState{
		pitch:             tok.PitchValue,
		velocity:          s.currentVelocity,
		velocityDeviation: s.currentVelocityDeviation,
		duration:          s.currentDuration,
		probability:       s.currentProbability,
	})
	return nil
}

func (s *state) handleVelocitySingle(tok token.Token) error {
	if tok.VelocityValue < 0 || tok.VelocityValue > 127 {
		return diag.NewRangeError(tok.Pos, "velocity", float64(tok.VelocityValue), "velocity out of range [0,127]")
	}
	s.applyStateChange(func() {
		s.currentVelocity = tok.VelocityValue
		s.currentVelocityDeviation = 0
	})
	return nil
}

func (s *state) handleVelocityRange(tok token.Token) error {
	if tok.VelocityMin < 0 || tok.VelocityMin > 127 {
		return diag.NewRangeError(tok.Pos, "velocity", float64(tok.VelocityMin), "velocity out of range [0,127]")
	}
	if tok.VelocityMax < 0 || tok.VelocityMax > 127 {
		return diag.NewRangeError(tok.Pos, "velocity", float64(tok.VelocityMax), "velocity out of range [0,127]")
	}
	min, max := tok.VelocityMin, tok.VelocityMax
	if max < min {
		min, max = max, min
	}
	s.applyStateChange(func() {
		s.currentVelocity = min
		s.currentVelocityDeviation = max - min
	})
	return nil
}

func (s *state) handleDuration(tok token.Token) {
	s.applyStateChange(func() {
		s.currentDuration = tok.NumberValue
	})
}

func (s *state) handleProbability(tok token.Token) error {
	if tok.NumberValue < 0 || tok.NumberValue > 1 {
		return diag.NewRangeError(tok.Pos, "probability", tok.NumberValue, "probability out of range [0,1]")
	}
	s.applyStateChange(func() {
		s.currentProbability = tok.NumberValue
	})
	return nil
}

// applyStateChange implements the two-regime rule: before any pitch in
// the current group, a state token updates the live value and rewrites
// every already-buffered pitch's matching field; after a pitch has been
// added, it only updates the live value.
func (s *state) applyStateChange(mutateLive func()) {
	if !s.pitchGroupStarted {
		// Run the mutation against each pitch's own snapshot so only the
		// field(s) the token sets are rewritten, then against the live values.
		vel, dev, dur, prob := s.currentVelocity, s.currentVelocityDeviation, s.currentDuration, s.currentProbability
		for i := range s.pitches {
			ps := &s.pitches[i]
			s.currentVelocity, s.currentVelocityDeviation, s.currentDuration, s.currentProbability = ps.velocity, ps.velocityDeviation, ps.duration, ps.probability
			mutateLive()
			ps.velocity, ps.velocityDeviation, ps.duration, ps.probability = s.currentVelocity, s.currentVelocityDeviation, s.currentDuration, s.currentProbability
		}
		s.currentVelocity, s.currentVelocityDeviation, s.currentDuration, s.currentProbability = vel, dev, dur, prob
		mutateLive()
		if len(s.pitches) > 0 {
			s.stateChangedAfterEmission = true
		}
		return
	}
	mutateLive()
	s.stateChangedSinceLastPitch = true
	s.sink.Add(diag.ClassBufferWaste, "state change after pitch but before time position won't affect this group")
}

func (s *state) resolveBar(tok token.Token) int {
	if tok.Bar != nil {
		s.hasExplicitBarNumber = true
		s.lastExplicitBar = *tok.Bar
		return *tok.Bar
	}
	if s.hasExplicitBarNumber {
		return s.lastExplicitBar
	}
	return 1
}

func (s *state) handleTimePosition(tok token.Token) error {
	bar := s.resolveBar(tok)
	ts := s.cfg.TimeSignature

	times := 1
	if tok.IsRepeat {
		times = tok.RepeatTimes
		if times > 100 {
			s.sink.Add(diag.ClassExcessiveRepeat, "repeat pattern expands to %d positions (>100)", times)
		}
	}
	step := s.currentDuration
	if tok.HasStep {
		step = tok.RepeatStep
	}
	stepEngine := timemodel.MusicalBeatsToEngineBeats(step, ts)
	startEngine := timemodel.BarBeatToEngineBeats(bar, tok.Beat, ts)

	if len(s.pitches) == 0 {
		s.sink.Add(diag.ClassEmptyTimePosition, "time position at bar %d beat %s has no pitches", bar, timemodel.FormatBeat(tok.Beat))
	}

	var lastBar int
	var lastBeat float64
	for i := 0; i < times; i++ {
		engineBeats := startEngine + float64(i)*stepEngine
		posBar, posBeat := timemodel.EngineBeatsToBarBeat(engineBeats, ts)
		lastBar, lastBeat = posBar, posBeat

		barLen := barLengthEngineBeats(ts)
		offset := engineBeats - float64(posBar-1)*barLen

		for _, ps := range s.pitches {
			ev := noteevent.NoteEvent{
				Pitch:             ps.pitch,
				StartTime:         engineBeats,
				Duration:          timemodel.MusicalBeatsToEngineBeats(ps.duration, ts),
				Velocity:          ps.velocity,
				VelocityDeviation: ps.velocityDeviation,
				Probability:       ps.probability,
			}
			s.raw = append(s.raw, ev)
			s.notesByBar[posBar] = append(s.notesByBar[posBar], barEntry{offset: offset, event: ev})
		}
	}

	if len(s.pitches) > 0 {
		s.pitchesEmitted = true
		s.currentTimeBar = lastBar
		s.currentTimeBeat = lastBeat
	}
	s.pitchGroupStarted = false
	s.stateChangedSinceLastPitch = false
	s.stateChangedAfterEmission = false
	return nil
}

func barLengthEngineBeats(ts timemodel.TimeSignature) float64 {
	return float64(ts.Num) * timemodel.EngineBeatsPerMusicalBeat(ts.Den)
}

// flushBufferBeforeCopy implements the pre-bar-copy validation and the
// "pitch buffer cleared without emission" rule.
func (s *state) flushBufferBeforeCopy() {
	if s.pitchGroupStarted && len(s.pitches) > 0 && (s.stateChangedSinceLastPitch || s.stateChangedAfterEmission) {
		s.sink.Add(diag.ClassBufferWaste, "%d pitch(es) buffered but not emitted before bar copy", len(s.pitches))
	}
	s.pitches = nil
	s.pitchGroupStarted = false
	s.pitchesEmitted = false
	s.stateChangedSinceLastPitch = false
	s.stateChangedAfterEmission = false
}

func (s *state) copyBar(src, dest int) {
	barLen := barLengthEngineBeats(s.cfg.TimeSignature)
	shift := float64(dest-src) * barLen
	entries := s.notesByBar[src]
	copied := make([]barEntry, 0, len(entries))
	for _, be := range entries {
		ev := be.event
		ev.StartTime += shift
		s.raw = append(s.raw, ev)
		copied = append(copied, barEntry{offset: be.offset, event: ev})
	}
	s.notesByBar[dest] = append(s.notesByBar[dest], copied...)
}

func (s *state) handleBarCopySingle(tok token.Token) {
	s.flushBufferBeforeCopy()
	src := tok.Source
	if tok.SourceOmitted {
		src = s.currentTimeBar
	}
	s.copyBar(src, tok.Destination)
}

func (s *state) handleBarCopyRange(tok token.Token) {
	s.flushBufferBeforeCopy()

	if !tok.SourceIsRange {
		src := tok.SourceStart
		if tok.SourceOmitted {
			src = s.currentTimeBar
		}
		for dest := tok.DestStart; dest <= tok.DestEnd; dest++ {
			s.copyBar(src, dest)
		}
		return
	}

	span := tok.SourceEnd - tok.SourceStart + 1
	for dest := tok.DestStart; dest <= tok.DestEnd; dest++ {
		offset := mod(dest-tok.DestStart, span)
		src := tok.SourceStart + offset
		s.copyBar(src, dest)
	}
}

func mod(a, m int) int {
	r := a % m
	if r < 0 {
		r += m
	}
	return r
}

// filterDeletions applies the v0-deletion pass: every v0 marker anywhere
// in events deletes every entry sharing its (pitch, start_time), using
// the millibeat tolerance, regardless of whether that entry appears
// before or after the marker in the raw emission stream. Bar copies
// insert their copied events at the position the copy token is
// processed, not at the source bar's original position, so matching
// must be position-independent for deletion to commute with bar-copy
// order. If keepMarkers is true the v0 entries themselves are retained
// (the notes they match are still removed); otherwise they are dropped.
// The unfiltered "merge mode" view is Result.RawEvents, not this output.
func filterDeletions(events []noteevent.NoteEvent, keepMarkers bool) []noteevent.NoteEvent {
	type deletionKey struct {
		pitch     int
		startTime float64
	}
	var markers []deletionKey
	for _, e := range events {
		if e.IsDeletionMarker() {
			markers = append(markers, deletionKey{pitch: e.Pitch, startTime: e.StartTime})
		}
	}

	out := make([]noteevent.NoteEvent, 0, len(events))
	for _, e := range events {
		if e.IsDeletionMarker() {
			if keepMarkers {
				out = append(out, e)
			}
			continue
		}
		deleted := false
		for _, m := range markers {
			if e.Pitch == m.pitch && timemodel.NearlyEqual(e.StartTime, m.startTime) {
				deleted = true
				break
			}
		}
		if !deleted {
			out = append(out, e)
		}
	}
	return out
}
