// Package token defines the bar|beat grammar's token stream: a tagged
// sum — one struct, a Kind selector, many fields that are only
// meaningful for some kinds.
package token

import "github.com/cbegin/barbeat-notation/internal/diag"

// Kind selects which fields of a Token are meaningful.
type Kind int

const (
	KindTimePosition Kind = iota
	KindPitch
	KindVelocitySingle
	KindVelocityRange
	KindDuration
	KindProbability
	KindBarCopySingle
	KindBarCopyRange
	KindClearBuffer
)

func (k Kind) String() string {
	switch k {
	case KindTimePosition:
		return "TimePosition"
	case KindPitch:
		return "Pitch"
	case KindVelocitySingle:
		return "Velocity"
	case KindVelocityRange:
		return "VelocityRange"
	case KindDuration:
		return "Duration"
	case KindProbability:
		return "Probability"
	case KindBarCopySingle:
		return "BarCopySingle"
	case KindBarCopyRange:
		return "BarCopyRange"
	case KindClearBuffer:
		return "ClearBuffer"
	default:
		return "Unknown"
	}
}

// Token is one element of the parsed bar|beat program.
type Token struct {
	Kind Kind
	Pos  diag.Position

	// KindTimePosition. Bar is nil when the bar number was omitted
	// (the "|beat" form — implicit-bar-number rule).
	Bar         *int
	Beat        float64
	IsRepeat    bool
	RepeatTimes int
	HasStep     bool
	RepeatStep  float64

	// KindPitch. PitchValue is the raw computed MIDI number, not yet
	// range-validated (validation happens in the interpreter).
	PitchValue int

	// KindVelocitySingle / KindVelocityRange.
	VelocityValue int
	VelocityMin   int
	VelocityMax   int

	// KindDuration / KindProbability.
	NumberValue float64

	// KindBarCopySingle: @Destination=Source, or @Destination= (SourceOmitted).
	Destination   int
	Source        int
	SourceOmitted bool

	// KindBarCopyRange: @DestStart-DestEnd=Source[-SourceEnd].
	DestStart     int
	DestEnd       int
	SourceStart   int
	SourceEnd     int
	SourceIsRange bool
}
