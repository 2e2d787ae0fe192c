// Package waveform implements the modulation DSL's periodic functions as
// pure functions of a given phase, evaluated once per note rather than
// accumulating phase sample-by-sample the way an audio oscillator would;
// the evaluator computes phase directly from musical position.
package waveform

import (
	"math"
	"math/rand/v2"
)

// Mod1 reduces phi modulo 1, correcting Go's floating modulo for
// negative inputs so phase always lands in [0,1).
func Mod1(phi float64) float64 {
	m := math.Mod(phi, 1)
	if m < 0 {
		m += 1
	}
	return m
}

// Cos computes cos(2π·φ). Range [-1,1].
func Cos(phi float64) float64 {
	phi = Mod1(phi)
	return math.Cos(2 * math.Pi * phi)
}

// Tri computes a triangle wave starting at 1, descending linearly to -1
// at φ=0.5, and back up to 1 at φ=1.
func Tri(phi float64) float64 {
	phi = Mod1(phi)
	if phi <= 0.5 {
		return 1 - 4*phi
	}
	return -3 + 4*phi
}

// Saw computes a sawtooth wrapping back to 1 at every integer phase.
func Saw(phi float64) float64 {
	phi = Mod1(phi)
	return 1 - 2*phi
}

// Square computes a pulse wave: 1 while φ < pulseWidth, else -1.
func Square(phi, pulseWidth float64) float64 {
	phi = Mod1(phi)
	if phi < pulseWidth {
		return 1
	}
	return -1
}

// Noise returns a uniform pseudo-random value in [-1,1]. It is the only
// impure waveform; every other function here is deterministic in phase.
func Noise() float64 {
	return rand.Float64()*2 - 1
}

// Ramp implements ramp(φ, start, end, speed): linear interpolation
// between start and end, looping every 1/speed cycles of φ.
func Ramp(phi, start, end, speed float64) float64 {
	t := Mod1(phi * speed)
	return start + (end-start)*t
}
