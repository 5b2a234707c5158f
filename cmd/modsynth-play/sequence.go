package main

import (
	"context"
	"time"

	"github.com/yuu528/ModSynth"
	"github.com/yuu528/ModSynth/engine"
)

type timedEvent struct {
	at float64 // seconds from the start of the cycle
	ev modsynth.MIDIEvent
}

// demoNotes is played when there is no MIDI input.
var demoNotes = []uint8{60, 64, 67, 72, 67, 64}

const (
	noteLength   = 0.3
	noteGap      = 0.1
	demoVelocity = 100
)

// cycle returns one pass over the notes and its length in seconds.
func cycle(notes []uint8) ([]timedEvent, float64) {
	ret := make([]timedEvent, 0, len(notes)*2)
	var t float64
	for _, n := range notes {
		ret = append(ret, timedEvent{at: t, ev: modsynth.MIDIEvent{On: true, Note: n, Velocity: demoVelocity}})
		t += noteLength
		ret = append(ret, timedEvent{at: t, ev: modsynth.MIDIEvent{On: false, Note: n}})
		t += noteGap
	}
	return ret, t
}

// render renders the demo sequence offline, repeating it until seconds. An
// event is pushed when the render reaches its frame.
func render(e *engine.Engine, push func(modsynth.MIDIEvent) bool, seconds float64) modsynth.AudioBuffer {
	rate := e.SampleRate()
	frames := int(seconds * rate)
	buf := make(modsynth.AudioBuffer, 0, frames)
	events, length := cycle(demoNotes)
	for offset := 0.0; len(buf) < frames; offset += length {
		for _, te := range events {
			at := min(frames, int((offset+te.at)*rate))
			if at > len(buf) {
				buf = append(buf, e.Render(at-len(buf))...)
			}
			if at >= frames {
				break
			}
			push(te.ev)
		}
	}
	return buf
}

// loopSequence plays the demo sequence in real time until ctx is done.
func loopSequence(ctx context.Context, push func(modsynth.MIDIEvent) bool) {
	events, length := cycle(demoNotes)
	start := time.Now()
	for offset := 0.0; ; offset += length {
		for _, te := range events {
			due := start.Add(time.Duration((offset + te.at) * float64(time.Second)))
			timer := time.NewTimer(time.Until(due))
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
			push(te.ev)
		}
	}
}
