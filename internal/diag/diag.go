// Package diag defines a two-tier error model: fatal errors that stop
// interpretation, carried as plain Go errors with position info, and a
// non-fatal diagnostics channel (a plain slice of Diagnostic values, each
// a Class plus a message) that accompanies otherwise-successful output. Neither tier
// writes to a global logger — callers own the sink.
package diag

import "fmt"

// Position is an offset/line/column triple attached to fatal parse and
// range errors.
type Position struct {
	Offset int
	Line   int
	Column int
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// SyntaxError is a fatal error raised by a grammar parser.
type SyntaxError struct {
	Pos     Position
	Message string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at %s: %s", e.Pos, e.Message)
}

// NewSyntaxError constructs a SyntaxError at the given position.
func NewSyntaxError(pos Position, format string, args ...any) *SyntaxError {
	return &SyntaxError{Pos: pos, Message: fmt.Sprintf(format, args...)}
}

// RangeError is a fatal error for a value parsed correctly but outside its
// legal numeric range (pitch, velocity, probability).
type RangeError struct {
	Pos     Position
	Field   string
	Value   float64
	Message string
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("range error at %s: %s (%s=%v)", e.Pos, e.Message, e.Field, e.Value)
}

// NewRangeError constructs a RangeError.
func NewRangeError(pos Position, field string, value float64, format string, args ...any) *RangeError {
	return &RangeError{Pos: pos, Field: field, Value: value, Message: fmt.Sprintf(format, args...)}
}

// Class distinguishes diagnostic categories for testing; wording is not
// a stable contract, but the class of a given diagnostic is.
type Class string

const (
	ClassSyntaxError            Class = "syntax-error"
	ClassOutOfRange             Class = "out-of-range"
	ClassBufferWaste            Class = "buffer-waste"
	ClassEmptyTimePosition      Class = "empty-time-position"
	ClassExcessiveRepeat        Class = "excessive-repeat"
	ClassModulationParseFailure Class = "modulation-parse-failure"
	ClassModulationEvalFailure  Class = "modulation-eval-failure"
)

// Diagnostic is one non-fatal entry on the side channel.
type Diagnostic struct {
	Class   Class
	Message string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("[%s] %s", d.Class, d.Message)
}

// Sink collects diagnostics during one interpretation/evaluation pass. The
// zero value is ready to use. Add is the single write path; each pass owns
// its Sink and returns Entries() in bulk when it finishes, so there is no
// hook for a host callback to receive diagnostics live.
type Sink struct {
	entries []Diagnostic
}

// Add appends a diagnostic of the given class.
func (s *Sink) Add(class Class, format string, args ...any) {
	s.entries = append(s.entries, Diagnostic{Class: class, Message: fmt.Sprintf(format, args...)})
}

// Entries returns the accumulated diagnostics in emission order.
func (s *Sink) Entries() []Diagnostic {
	return s.entries
}
