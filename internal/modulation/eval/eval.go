// Package eval implements the modulation evaluator: the per-note,
// per-assignment walk that turns a parsed modulation program into
// in-place mutations of a note-event vector — an ordered pipeline of
// assignments applied to one note at a time, the way an effects chain
// applies an ordered list of processing steps to one sample at a time.
package eval

import (
	"fmt"
	"math"

	"github.com/cbegin/barbeat-notation/internal/diag"
	"github.com/cbegin/barbeat-notation/internal/modulation/parser"
	"github.com/cbegin/barbeat-notation/internal/modulation/token"
	"github.com/cbegin/barbeat-notation/internal/noteevent"
	"github.com/cbegin/barbeat-notation/internal/timemodel"
	"github.com/cbegin/barbeat-notation/internal/waveform"
)

// timeRangeTolerance is the millibeat tolerance applied to time-range
// membership checks, matching timemodel's comparison tolerance.
const timeRangeTolerance = 1e-3

// Apply mutates notes in place according to src, and returns the
// non-fatal diagnostics produced along the way. A modulation source that
// fails to parse aborts cleanly: notes are left untouched and a single
// ClassModulationParseFailure diagnostic is returned. Apply never
// returns an error: every fatal condition met while evaluating an
// expression (unknown functions, bad ramp arguments, non-positive periods) is
// caught per note, per assignment, logged as ClassModulationEvalFailure,
// and skipped — a failure in one parameter never blocks the rest.
func Apply(notes []noteevent.NoteEvent, src string, ts timemodel.TimeSignature) []diag.Diagnostic {
	var sink diag.Sink

	assignments, err := parser.Parse(src)
	if err != nil {
		sink.Add(diag.ClassModulationParseFailure, "modulation source failed to parse: %v", err)
		return sink.Entries()
	}
	if len(notes) == 0 || len(assignments) == 0 {
		return sink.Entries()
	}

	clipStart, clipEnd := clipRangeMusical(notes, ts)

	for i := range notes {
		position := timemodel.EngineBeatsToMusicalBeats(notes[i].StartTime, ts)
		bar, beat := timemodel.EngineBeatsToBarBeat(notes[i].StartTime, ts)

		for _, assign := range assignments {
			if assign.HasPitchRange && (notes[i].Pitch < assign.PitchLow || notes[i].Pitch > assign.PitchHigh) {
				continue
			}

			rangeStart, rangeEnd := clipStart, clipEnd
			if assign.HasTimeRange {
				rStart := timemodel.EngineBeatsToMusicalBeats(
					timemodel.BarBeatToEngineBeats(assign.TimeStartBar, assign.TimeStartBeat, ts), ts)
				rEnd := timemodel.EngineBeatsToMusicalBeats(
					timemodel.BarBeatToEngineBeats(assign.TimeEndBar, assign.TimeEndBeat, ts), ts)
				if !inRangeInclusive(position, rStart, rEnd) {
					continue
				}
				rangeStart, rangeEnd = rStart, rEnd
			}

			ctx := evalContext{position: position, rangeStart: rangeStart, rangeEnd: rangeEnd, note: notes[i], ts: ts}
			value, err := evalExpr(assign.Expr, ctx)
			if err != nil {
				sink.Add(diag.ClassModulationEvalFailure, "bar %d beat %s, parameter %s: %v",
					bar, timemodel.FormatBeat(beat), assign.Parameter, err)
				continue
			}
			applyMutation(&notes[i], assign.Parameter, assign.Operator, value)
		}
	}
	return sink.Entries()
}

func inRangeInclusive(v, lo, hi float64) bool {
	return v+timeRangeTolerance >= lo && v-timeRangeTolerance <= hi
}

func clipRangeMusical(notes []noteevent.NoteEvent, ts timemodel.TimeSignature) (start, end float64) {
	startEngine := notes[0].StartTime
	endEngine := notes[0].StartTime + notes[0].Duration
	for _, n := range notes[1:] {
		if n.StartTime < startEngine {
			startEngine = n.StartTime
		}
		if n.StartTime+n.Duration > endEngine {
			endEngine = n.StartTime + n.Duration
		}
	}
	return timemodel.EngineBeatsToMusicalBeats(startEngine, ts), timemodel.EngineBeatsToMusicalBeats(endEngine, ts)
}

func applyMutation(note *noteevent.NoteEvent, parameter string, op token.Operator, value float64) {
	switch parameter {
	case "velocity":
		v := float64(note.Velocity)
		if op == token.OpAdd {
			v += value
		} else {
			v = value
		}
		vi := int(math.Round(v))
		if vi < 1 {
			vi = 1
		} else if vi > 127 {
			vi = 127
		}
		note.Velocity = vi
	case "timing":
		if op == token.OpAdd {
			note.StartTime += value
		} else {
			note.StartTime = value
		}
	case "duration":
		d := note.Duration
		if op == token.OpAdd {
			d += value
		} else {
			d = value
		}
		if d < noteevent.MinDuration {
			d = noteevent.MinDuration
		}
		note.Duration = d
	case "probability":
		pr := note.Probability
		if op == token.OpAdd {
			pr += value
		} else {
			pr = value
		}
		if pr < 0 {
			pr = 0
		} else if pr > 1 {
			pr = 1
		}
		note.Probability = pr
	}
}

type evalContext struct {
	position   float64 // musical beats
	rangeStart float64 // active time range, musical beats
	rangeEnd   float64
	note       noteevent.NoteEvent
	ts         timemodel.TimeSignature
}

func evalExpr(e token.Expr, ctx evalContext) (float64, error) {
	switch n := e.(type) {
	case token.Number:
		return n.Value, nil
	case token.Period:
		if n.HasBar {
			return n.Bar*float64(ctx.ts.Num) + n.Beat, nil
		}
		return n.Beat, nil
	case token.NoteField:
		return evalNoteField(n.Field, ctx.note)
	case token.BinOp:
		left, err := evalExpr(n.Left, ctx)
		if err != nil {
			return 0, err
		}
		right, err := evalExpr(n.Right, ctx)
		if err != nil {
			return 0, err
		}
		switch n.Op {
		case "+":
			return left + right, nil
		case "-":
			return left - right, nil
		case "*":
			return left * right, nil
		case "/":
			if right == 0 {
				return 0, nil
			}
			return left / right, nil
		}
		return 0, fmt.Errorf("unknown operator %q", n.Op)
	case token.Call:
		return evalCall(n, ctx)
	}
	return 0, fmt.Errorf("unhandled expression node %T", e)
}

func evalNoteField(field string, note noteevent.NoteEvent) (float64, error) {
	switch field {
	case "pitch":
		return float64(note.Pitch), nil
	case "start":
		return note.StartTime, nil
	case "velocity":
		return float64(note.Velocity), nil
	case "velocityDeviation":
		return float64(note.VelocityDeviation), nil
	case "duration":
		return note.Duration, nil
	case "probability":
		return note.Probability, nil
	}
	return 0, fmt.Errorf("unknown note field %q", field)
}

func evalCall(c token.Call, ctx evalContext) (float64, error) {
	switch c.Name {
	case "noise":
		return waveform.Noise(), nil
	case "cos", "tri", "saw":
		period, offset, err := periodicArgs(c, ctx)
		if err != nil {
			return 0, err
		}
		phase := ctx.position/period + offset
		switch c.Name {
		case "cos":
			return waveform.Cos(phase), nil
		case "tri":
			return waveform.Tri(phase), nil
		default:
			return waveform.Saw(phase), nil
		}
	case "square":
		if len(c.Args) < 1 {
			return 0, fmt.Errorf("square requires a period argument")
		}
		period, err := evalExpr(c.Args[0], ctx)
		if err != nil {
			return 0, err
		}
		if period <= 0 {
			return 0, fmt.Errorf("non-positive waveform period")
		}
		offset := 0.0
		if len(c.Args) > 1 {
			offset, err = evalExpr(c.Args[1], ctx)
			if err != nil {
				return 0, err
			}
		}
		pulseWidth := 0.5
		if len(c.Args) > 2 {
			pulseWidth, err = evalExpr(c.Args[2], ctx)
			if err != nil {
				return 0, err
			}
		}
		return waveform.Square(ctx.position/period+offset, pulseWidth), nil
	case "ramp":
		if len(c.Args) < 2 {
			return 0, fmt.Errorf("ramp requires start and end arguments")
		}
		start, err := evalExpr(c.Args[0], ctx)
		if err != nil {
			return 0, err
		}
		end, err := evalExpr(c.Args[1], ctx)
		if err != nil {
			return 0, err
		}
		speed := 1.0
		if len(c.Args) > 2 {
			speed, err = evalExpr(c.Args[2], ctx)
			if err != nil {
				return 0, err
			}
			if speed <= 0 {
				return 0, fmt.Errorf("ramp speed must be > 0")
			}
		}
		var phi float64
		if ctx.rangeEnd != ctx.rangeStart {
			phi = (ctx.position - ctx.rangeStart) / (ctx.rangeEnd - ctx.rangeStart)
		}
		return waveform.Ramp(phi, start, end, speed), nil
	}
	return 0, fmt.Errorf("unknown function %q", c.Name)
}

func periodicArgs(c token.Call, ctx evalContext) (period, offset float64, err error) {
	if len(c.Args) < 1 {
		return 0, 0, fmt.Errorf("%s requires a period argument", c.Name)
	}
	period, err = evalExpr(c.Args[0], ctx)
	if err != nil {
		return 0, 0, err
	}
	if period <= 0 {
		return 0, 0, fmt.Errorf("non-positive waveform period")
	}
	if len(c.Args) > 1 {
		offset, err = evalExpr(c.Args[1], ctx)
		if err != nil {
			return 0, 0, err
		}
	}
	return period, offset, nil
}
