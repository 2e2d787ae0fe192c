// Package timemodel converts between musical beats (numerator-dependent,
// the notation's native unit) and engine beats (quarter-note units, the
// unit NoteEvent start/duration fields use).
package timemodel

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// millibeatEpsilon is the rounding/comparison tolerance used throughout the
// core, in engine-beat (or musical-beat, depending on context) units.
const millibeatEpsilon = 1e-3

// TimeSignature is numerator/denominator, e.g. {4,4} or {6,8}.
type TimeSignature struct {
	Num int
	Den int
}

// DefaultTimeSignature is 4/4.
func DefaultTimeSignature() TimeSignature {
	return TimeSignature{Num: 4, Den: 4}
}

// EngineBeatsPerMusicalBeat is the scale factor from musical beats to
// engine (quarter-note) beats for a given denominator.
func EngineBeatsPerMusicalBeat(den int) float64 {
	return 4.0 / float64(den)
}

// BarBeatToEngineBeats converts a 1-indexed (bar, beat) position to engine
// beats: ((bar-1)*num + (beat-1)) * (4/den).
func BarBeatToEngineBeats(bar int, beat float64, ts TimeSignature) float64 {
	musical := float64(bar-1)*float64(ts.Num) + (beat - 1)
	return musical * EngineBeatsPerMusicalBeat(ts.Den)
}

// EngineBeatsToBarBeat is the inverse of BarBeatToEngineBeats. The result is
// rounded to the nearest millibeat to absorb floating-point noise before
// the bar/beat split, so values landing exactly on a bar boundary report
// the next bar at beat 1 rather than the prior bar at beat N+1.
func EngineBeatsToBarBeat(engineBeats float64, ts TimeSignature) (bar int, beat float64) {
	musical := engineBeats / EngineBeatsPerMusicalBeat(ts.Den)
	musical = RoundToMillibeat(musical)

	barIndex := math.Floor(musical/float64(ts.Num) + millibeatEpsilon)
	beatInBar := musical - barIndex*float64(ts.Num) + 1
	return int(barIndex) + 1, RoundToMillibeat(beatInBar)
}

// BarBeatDurationToEngineBeats converts a "a:b" bar:beat duration (a whole
// bars plus b beats) to engine beats: (a*num + b) * (4/den). This is an
// exported convenience for host callers; the bar|beat grammar itself never
// emits this token shape — durations in the grammar are numeric musical
// beats only.
func BarBeatDurationToEngineBeats(barBeat string, ts TimeSignature) (float64, error) {
	parts := strings.SplitN(barBeat, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("timemodel: invalid bar:beat duration %q", barBeat)
	}
	a, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, fmt.Errorf("timemodel: invalid bar component in %q: %w", barBeat, err)
	}
	b, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, fmt.Errorf("timemodel: invalid beat component in %q: %w", barBeat, err)
	}
	musical := a*float64(ts.Num) + b
	return musical * EngineBeatsPerMusicalBeat(ts.Den), nil
}

// MusicalBeatsToEngineBeats converts a duration in musical beats to engine
// beats using the time signature's denominator.
func MusicalBeatsToEngineBeats(musicalBeats float64, ts TimeSignature) float64 {
	return musicalBeats * EngineBeatsPerMusicalBeat(ts.Den)
}

// EngineBeatsToMusicalBeats is the inverse scale (no bar/beat split).
func EngineBeatsToMusicalBeats(engineBeats float64, ts TimeSignature) float64 {
	return engineBeats / EngineBeatsPerMusicalBeat(ts.Den)
}

// RoundToMillibeat rounds v to the nearest 1/1000th, the tolerance used for
// all beat comparisons and positional keys.
func RoundToMillibeat(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// NearlyEqual reports whether a and b are within one millibeat of each
// other, the tolerance used throughout for beat comparisons.
func NearlyEqual(a, b float64) bool {
	return math.Abs(a-b) < millibeatEpsilon
}

// FormatBeat renders a beat value with the trailing-zero rule: "0.500"
// becomes "0.5", integers get no decimal point at all.
func FormatBeat(beat float64) string {
	rounded := RoundToMillibeat(beat)
	s := strconv.FormatFloat(rounded, 'f', 3, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	return s
}
