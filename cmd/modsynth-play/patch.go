package main

import (
	"fmt"

	"github.com/yuu528/ModSynth"
	"github.com/yuu528/ModSynth/modules"
	"github.com/yuu528/ModSynth/patch"
)

// envelope of the default patch, snappier than the palette defaults
var envelope = map[string]float64{
	"attack":  0.01,
	"hold":    0,
	"decay":   0.15,
	"sustain": 0.6,
	"release": 0.2,
}

// buildPatch places the default patch: a MIDI input driving the pitch of an
// oscillator and, through an ADSR, the gain of a volume module that feeds
// the master output.
func buildPatch(p *patch.Patch) (*modsynth.Module, *modules.MIDIInput, error) {
	placed := map[string]*modsynth.Module{}
	for _, id := range []string{"midiInput", "oscillator", "adsr", "volume"} {
		m, ok := modules.New(id)
		if !ok {
			return nil, nil, fmt.Errorf("no module kind %q", id)
		}
		p.AddModule(m)
		placed[id] = m
	}
	for id, v := range envelope {
		p.UpdateValue(placed["adsr"].Handle, id, v)
	}
	key := func(id, jack string) modsynth.JackKey {
		return modsynth.JackKey{Module: placed[id].Handle, Jack: jack}
	}
	cables := []modsynth.Cable{
		{Src: key("midiInput", "gateOutput"), Dst: key("adsr", "gateInput")},
		{Src: key("midiInput", "pitchOutput"), Dst: key("oscillator", "freqCvInput")},
		{Src: key("oscillator", "output"), Dst: key("volume", "input")},
		{Src: key("adsr", "output"), Dst: key("volume", "gainCvInput")},
		{Src: key("volume", "output"), Dst: modsynth.MasterKey},
	}
	for _, c := range cables {
		if !p.Connect(c.Src, c.Dst) {
			return nil, nil, fmt.Errorf("cannot connect %v", c)
		}
	}
	m := placed["midiInput"]
	in, ok := m.Kind.(*modules.MIDIInput)
	if !ok {
		return nil, nil, fmt.Errorf("module %q is not a MIDI input", m.ID)
	}
	return m, in, nil
}
