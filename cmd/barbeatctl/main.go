package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/cbegin/barbeat-notation"
)

const defaultSource = "C4 E4 G4 1|1"

func main() {
	var (
		num           = flag.Int("num", 4, "time signature numerator")
		den           = flag.Int("den", 4, "time signature denominator")
		barBeatPath   = flag.String("file", "", "path to a bar|beat source file")
		barBeatInline = flag.String("src", "", "inline bar|beat source string")
		modPath       = flag.String("mod-file", "", "path to a modulation program file")
		modInline     = flag.String("mod", "", "inline modulation program string")
		reformat      = flag.Bool("format", false, "print the canonical reformatted source instead of the note list")
	)
	flag.Parse()

	src, err := resolveInput(*barBeatPath, *barBeatInline, defaultSource)
	if err != nil {
		log.Fatal(err)
	}

	ts := barbeat.TimeSignature{Num: *num, Den: *den}

	result, err := barbeat.Interpret(src, ts)
	if err != nil {
		log.Fatalf("interpret: %v", err)
	}
	for _, d := range result.Diagnostics {
		fmt.Fprintf(os.Stderr, "%s\n", d)
	}

	modSrc, err := resolveInput(*modPath, *modInline, "")
	if err != nil {
		log.Fatal(err)
	}
	events := result.Events
	if strings.TrimSpace(modSrc) != "" {
		diags := barbeat.ApplyModulations(events, modSrc, ts)
		for _, d := range diags {
			fmt.Fprintf(os.Stderr, "%s\n", d)
		}
	}

	if *reformat {
		fmt.Print(barbeat.Format(events, ts))
		return
	}
	for _, ev := range events {
		fmt.Printf("pitch=%d start=%.3f duration=%.3f velocity=%d velocityDeviation=%d probability=%.3f\n",
			ev.Pitch, ev.StartTime, ev.Duration, ev.Velocity, ev.VelocityDeviation, ev.Probability)
	}
}

func resolveInput(path, inline, fallback string) (string, error) {
	if strings.TrimSpace(inline) != "" {
		return inline, nil
	}
	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	return fallback, nil
}
