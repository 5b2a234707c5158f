package dsp_test

import (
	"testing"

	"github.com/yuu528/ModSynth"
	"github.com/yuu528/ModSynth/dsp"
)

func noteOn(note, vel uint8) modsynth.MIDIEvent {
	return modsynth.MIDIEvent{On: true, Note: note, Velocity: vel}
}

func noteOff(note uint8) modsynth.MIDIEvent {
	return modsynth.MIDIEvent{Note: note}
}

func process(c *dsp.Converter) [][]float32 {
	out := make([][]float32, dsp.NumConverterOutputs)
	for i := range out {
		out[i] = make([]float32, 8)
	}
	c.Process(nil, out)
	return out
}

func TestConverterLastNotePriority(t *testing.T) {
	type state struct {
		gate, velocity, pitch float32
	}
	c := dsp.NewConverter()
	for _, step := range []struct {
		name   string
		events []modsynth.MIDIEvent
		want   state
	}{
		{"press A", []modsynth.MIDIEvent{noteOn(60, 100)}, state{1, dsp.VelocityCV(100), dsp.PitchCV(60)}},
		{"press B", []modsynth.MIDIEvent{noteOn(64, 90)}, state{1, dsp.VelocityCV(90), dsp.PitchCV(64)}},
		{"release B", []modsynth.MIDIEvent{noteOff(64)}, state{1, dsp.VelocityCV(100), dsp.PitchCV(60)}},
		{"release A", []modsynth.MIDIEvent{noteOff(60)}, state{0, 0, dsp.PitchCV(60)}},
	} {
		for _, ev := range step.events {
			if !c.Push(ev) {
				t.Fatalf("%s: event dropped", step.name)
			}
		}
		out := process(c)
		got := state{out[dsp.GateOutput][7], out[dsp.VelocityOutput][7], out[dsp.PitchOutput][7]}
		if got != step.want {
			t.Fatalf("%s: got %+v, want %+v", step.name, got, step.want)
		}
	}
}

func TestConverterReleaseNonTopNote(t *testing.T) {
	c := dsp.NewConverter()
	c.Push(noteOn(60, 100))
	c.Push(noteOn(64, 90))
	c.Push(noteOff(60))
	process(c)
	if c.Gate() != 1 || c.Pitch() != dsp.PitchCV(64) || c.Velocity() != dsp.VelocityCV(90) {
		t.Fatalf("releasing a held non-top note changed the output: gate %v pitch %v", c.Gate(), c.Pitch())
	}
	c.Push(noteOff(64))
	process(c)
	if c.Gate() != 0 {
		t.Fatalf("gate = %v after releasing every note, want 0", c.Gate())
	}
}

func TestConverterZeroVelocityIsNoteOff(t *testing.T) {
	c := dsp.NewConverter()
	c.Push(noteOn(70, 80))
	c.Push(modsynth.MIDIEvent{On: true, Note: 70, Velocity: 0})
	process(c)
	if c.Gate() != 0 || c.Velocity() != 0 || c.Pitch() != dsp.PitchCV(70) {
		t.Fatalf("got gate %v velocity %v pitch %v", c.Gate(), c.Velocity(), c.Pitch())
	}
}

func TestConverterRepressMovesToTop(t *testing.T) {
	c := dsp.NewConverter()
	for _, ev := range []modsynth.MIDIEvent{noteOn(60, 10), noteOn(62, 20), noteOn(60, 30), noteOff(60)} {
		c.Push(ev)
	}
	process(c)
	if c.Pitch() != dsp.PitchCV(62) || c.Velocity() != dsp.VelocityCV(20) || c.Gate() != 1 {
		t.Fatalf("got pitch %v velocity %v gate %v, want note 62 sounding", c.Pitch(), c.Velocity(), c.Gate())
	}
}

func TestPitchCVRange(t *testing.T) {
	if got := dsp.PitchCV(0); got != 0 {
		t.Errorf("PitchCV(0) = %v, want 0", got)
	}
	if got := dsp.PitchCV(127); got != 1 {
		t.Errorf("PitchCV(127) = %v, want 1", got)
	}
	if got := dsp.VelocityCV(127); got != 1 {
		t.Errorf("VelocityCV(127) = %v, want 1", got)
	}
	f := dsp.CVToFreq(float64(dsp.PitchCV(69)))
	if f < 439.9 || f > 440.1 {
		t.Errorf("CVToFreq(PitchCV(69)) = %v, want 440", f)
	}
}

func TestNoteStack(t *testing.T) {
	var s dsp.NoteStack
	if _, ok := s.Top(); ok {
		t.Fatal("empty stack has a top")
	}
	for n := 0; n < 128; n++ {
		s.Push(uint8(n), 1)
	}
	s.Push(5, 2)
	if s.Len() != 128 {
		t.Fatalf("Len() = %d, want 128", s.Len())
	}
	if top, _ := s.Top(); top.Note != 5 || top.Velocity != 2 {
		t.Fatalf("Top() = %+v, want note 5", top)
	}
	if !s.Remove(72) {
		t.Fatal("Remove of a held note failed")
	}
	if s.Remove(72) {
		t.Fatal("Remove of a released note succeeded")
	}
}

func TestRing(t *testing.T) {
	r := dsp.NewRing[int](3)
	if r.Cap() != 4 {
		t.Fatalf("Cap() = %d, want 4", r.Cap())
	}
	for i := 0; i < 4; i++ {
		if !r.Push(i) {
			t.Fatalf("Push(%d) failed", i)
		}
	}
	if r.Push(4) {
		t.Fatal("Push into a full ring succeeded")
	}
	for i := 0; i < 4; i++ {
		v, ok := r.Pop()
		if !ok || v != i {
			t.Fatalf("Pop() = %v, %v; want %d", v, ok, i)
		}
	}
	if _, ok := r.Pop(); ok {
		t.Fatal("Pop from an empty ring succeeded")
	}
}

func TestRingConcurrent(t *testing.T) {
	r := dsp.NewRing[int](16)
	const n = 10000
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < n; {
			if r.Push(i) {
				i++
			}
		}
	}()
	for want := 0; want < n; {
		if v, ok := r.Pop(); ok {
			if v != want {
				t.Fatalf("Pop() = %d, want %d", v, want)
			}
			want++
		}
	}
	<-done
}
