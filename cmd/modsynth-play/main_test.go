package main

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/yuu528/ModSynth"
	"github.com/yuu528/ModSynth/config"
	"github.com/yuu528/ModSynth/engine"
	"github.com/yuu528/ModSynth/patch"
)

func TestPrintPalette(t *testing.T) {
	var buf bytes.Buffer
	if err := printPalette(&buf, config.Default().List.Template); err != nil {
		t.Fatalf("printPalette: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Sources", "Filters", "Visuals", "oscillator", "freqCvInput", "16000 Hz"} {
		if !strings.Contains(out, want) {
			t.Errorf("palette listing is missing %q:\n%s", want, out)
		}
	}
}

func TestPrintPaletteSprig(t *testing.T) {
	var buf bytes.Buffer
	if err := printPalette(&buf, `{{ range . }}{{ .Name | upper }} {{ len .Modules }};{{ end }}`); err != nil {
		t.Fatalf("printPalette: %v", err)
	}
	if got, want := buf.String(), "SOURCE 5;FILTER 10;VISUAL 1;"; got != want {
		t.Errorf("listing = %q, want %q", got, want)
	}
	if err := printPalette(&buf, "{{ range }"); err == nil {
		t.Errorf("printPalette accepted a malformed template")
	}
}

func TestPrintDevices(t *testing.T) {
	var buf bytes.Buffer
	if err := printDevices(&buf, modsynth.NullDevices{}); err != nil {
		t.Fatalf("printDevices: %v", err)
	}
	if got, want := buf.String(), "Audio inputs:\n  (none)\nMIDI inputs:\n  (none)\n"; got != want {
		t.Errorf("printDevices = %q, want %q", got, want)
	}
}

func TestCycle(t *testing.T) {
	events, length := cycle(demoNotes)
	if len(events) != 2*len(demoNotes) {
		t.Fatalf("cycle has %d events, want %d", len(events), 2*len(demoNotes))
	}
	if want := float64(len(demoNotes)) * (noteLength + noteGap); math.Abs(length-want) > 1e-9 {
		t.Errorf("cycle length = %v, want %v", length, want)
	}
	for i, te := range events {
		if te.ev.On != (i%2 == 0) {
			t.Errorf("event %d: On = %v", i, te.ev.On)
		}
		if i > 0 && te.at < events[i-1].at {
			t.Errorf("event %d at %v precedes event %d", i, te.at, i-1)
		}
	}
}

func TestRenderDefaultPatch(t *testing.T) {
	const rate = 48000
	e := engine.New(rate)
	p := patch.New(e)
	defer p.Close()
	_, in, err := buildPatch(p)
	if err != nil {
		t.Fatalf("buildPatch: %v", err)
	}
	p.Update()
	if got, want := len(p.Cables()), 5; got != want {
		t.Fatalf("default patch has %d cables, want %d", got, want)
	}
	buf := render(e, in.Push, 1)
	if len(buf) != rate {
		t.Fatalf("rendered %d frames, want %d", len(buf), rate)
	}
	var peak float64
	crossings := 0
	from, to := int(0.05*rate), int(0.3*rate)
	for i := from; i < to; i++ {
		peak = max(peak, math.Abs(float64(buf[i][0])))
		if buf[i-1][0] < 0 && buf[i][0] >= 0 {
			crossings++
		}
	}
	if peak < 0.1 {
		t.Errorf("first note peak = %v, want an audible note", peak)
	}
	// middle C for a quarter of a second
	if want := 261.63 * 0.25; math.Abs(float64(crossings)-want) > 3 {
		t.Errorf("%d rising crossings, want about %v", crossings, want)
	}
}
