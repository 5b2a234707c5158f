package modsynth_test

import (
	"testing"

	"github.com/yuu528/ModSynth"
)

func TestOrient(t *testing.T) {
	for _, c := range []struct {
		a, b     modsynth.JackRole
		srcFirst bool
		ok       bool
	}{
		{modsynth.AudioOutput, modsynth.AudioInput, true, true},
		{modsynth.AudioInput, modsynth.AudioOutput, false, true},
		{modsynth.ControlOutput, modsynth.ControlInput, true, true},
		{modsynth.ControlInput, modsynth.ControlOutput, false, true},
		{modsynth.AudioOutput, modsynth.AudioOutput, false, false},
		{modsynth.AudioInput, modsynth.AudioInput, false, false},
		{modsynth.ControlOutput, modsynth.AudioInput, false, false},
		{modsynth.AudioOutput, modsynth.ControlInput, false, false},
	} {
		srcFirst, ok := modsynth.Orient(c.a, c.b)
		if ok != c.ok || (ok && srcFirst != c.srcFirst) {
			t.Errorf("Orient(%v, %v) = %v, %v; want %v, %v", c.a, c.b, srcFirst, ok, c.srcFirst, c.ok)
		}
	}
}

func TestParseJackKey(t *testing.T) {
	key := modsynth.JackKey{Module: modsynth.Handle{Index: 3, Gen: 2}, Jack: "output"}
	got, err := modsynth.ParseJackKey(key.String())
	if err != nil || got != key {
		t.Fatalf("ParseJackKey(%q) = %v, %v", key.String(), got, err)
	}
	got, err = modsynth.ParseJackKey("master")
	if err != nil || !got.IsMaster() {
		t.Fatalf("ParseJackKey(master) = %v, %v", got, err)
	}
	for _, s := range []string{"", "m1:out", "x1.1:out", "m1.0:out", "m1.1:", "m-1.1:out"} {
		if _, err := modsynth.ParseJackKey(s); err == nil {
			t.Errorf("ParseJackKey(%q) should fail", s)
		}
	}
}

func TestModuleCloneDropsHandle(t *testing.T) {
	m := &modsynth.Module{
		Descriptor: modsynth.Descriptor{
			ID:     "test",
			Params: modsynth.Params{{ID: "gain", Kind: modsynth.Number, Max: 1, Value: 0.5}},
			Jacks:  []modsynth.Jack{{ID: "output", Role: modsynth.AudioOutput}},
		},
		Handle: modsynth.Handle{Index: 1, Gen: 1},
	}
	c := m.Clone()
	if c.Handle.Valid() {
		t.Errorf("clone should not be placed")
	}
	c.Params[0].Value = 1.0
	if m.Params.Float("gain") != 0.5 {
		t.Errorf("clone shares parameters with the original")
	}
	if _, ok := c.Jack("output"); !ok {
		t.Errorf("clone lost its jacks")
	}
}
