// Package formatter serializes a note-event stream back to canonical
// bar|beat source text. It is the mirror image of
// internal/barbeat/parser: where the parser reads tokens off a byte
// stream, the formatter writes them, tracking the same mutable state
// (velocity, duration, probability) the interpreter tracks, so that
// re-parsing its output reproduces the same note events.
package formatter

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cbegin/barbeat-notation/internal/noteevent"
	"github.com/cbegin/barbeat-notation/internal/timemodel"
)

// defaultVelocity, defaultDuration and defaultProbability are the
// interpreter's initial state (internal/barbeat/interp.newState); the
// formatter only emits a state token when a note's value differs from
// whichever of these is currently tracked.
const (
	defaultVelocity          = 100
	defaultVelocityDeviation = 0
	defaultDuration          = 1.0
	defaultProbability       = 1.0
)

// Format renders events as canonical bar|beat source. It always
// stable-sorts events by (start_time, pitch) first — the formatter does
// not trust caller order.
//
// Velocity values are clamped defensively to [1,127] and durations to
// >= noteevent.MinDuration before emission; this is the one place the
// formatter repairs out-of-contract values rather than rejecting them,
// since a formatter that refuses to print a note is a worse failure
// mode than one that prints a clamped approximation of it.
func Format(events []noteevent.NoteEvent, ts timemodel.TimeSignature) string {
	sorted := make([]noteevent.NoteEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !timemodel.NearlyEqual(sorted[i].StartTime, sorted[j].StartTime) {
			return sorted[i].StartTime < sorted[j].StartTime
		}
		return sorted[i].Pitch < sorted[j].Pitch
	})

	var b strings.Builder
	st := trackedState{velocity: defaultVelocity, duration: defaultDuration, probability: defaultProbability}

	i := 0
	for i < len(sorted) {
		j := i + 1
		for j < len(sorted) && timemodel.NearlyEqual(sorted[j].StartTime, sorted[i].StartTime) {
			j++
		}
		group := sorted[i:j]

		for _, ev := range group {
			writeStateTokens(&b, &st, ev, ts)
		}
		writeTimePosition(&b, sorted[i].StartTime, ts)
		i = j
	}

	return b.String()
}

type trackedState struct {
	velocity          int
	velocityDeviation int
	duration          float64
	probability       float64
}

func writeStateTokens(b *strings.Builder, st *trackedState, ev noteevent.NoteEvent, ts timemodel.TimeSignature) {
	vel := clampVelocity(ev.Velocity)
	dev := ev.VelocityDeviation
	if dev < 0 {
		dev = 0
	}
	if vel+dev > 127 {
		dev = 127 - vel
	}
	// ev.Duration is in engine beats; the "t" token and trackedState.duration
	// are in musical beats, the same unit the interpreter's duration state
	// tracks.
	dur := timemodel.EngineBeatsToMusicalBeats(ev.Duration, ts)
	if dur < noteevent.MinDuration {
		dur = noteevent.MinDuration
	}
	prob := ev.Probability
	if prob < 0 {
		prob = 0
	} else if prob > 1 {
		prob = 1
	}

	if vel != st.velocity || dev != st.velocityDeviation {
		if dev > 0 {
			fmt.Fprintf(b, "v%d-%d ", vel, vel+dev)
		} else {
			fmt.Fprintf(b, "v%d ", vel)
		}
		st.velocity = vel
		st.velocityDeviation = dev
	}
	if !timemodel.NearlyEqual(dur, st.duration) {
		fmt.Fprintf(b, "t%s ", timemodel.FormatBeat(dur))
		st.duration = dur
	}
	if !timemodel.NearlyEqual(prob, st.probability) {
		fmt.Fprintf(b, "p%s ", timemodel.FormatBeat(prob))
		st.probability = prob
	}

	fmt.Fprint(b, pitchName(ev.Pitch), " ")
}

func clampVelocity(v int) int {
	if v < 1 {
		return 1
	}
	if v > 127 {
		return 127
	}
	return v
}

func writeTimePosition(b *strings.Builder, startEngine float64, ts timemodel.TimeSignature) {
	bar, beat := timemodel.EngineBeatsToBarBeat(startEngine, ts)
	fmt.Fprintf(b, "%d|%s\n", bar, timemodel.FormatBeat(beat))
}

var pitchLetters = [12]struct {
	letter rune
	accidental string
}{
	{'C', ""}, {'C', "#"}, {'D', ""}, {'D', "#"}, {'E', ""}, {'F', ""},
	{'F', "#"}, {'G', ""}, {'G', "#"}, {'A', ""}, {'A', "#"}, {'B', ""},
}

// pitchName renders a MIDI pitch back to bar|beat surface syntax,
// preferring sharps for every chromatic step that has one; flats are
// accepted on input but never required on output.
func pitchName(midi int) string {
	octave := midi/12 - 2
	class := midi % 12
	if class < 0 {
		class += 12
		octave--
	}
	entry := pitchLetters[class]
	return fmt.Sprintf("%c%s%d", entry.letter, entry.accidental, octave)
}
