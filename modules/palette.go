package modules

import (
	"math"

	"github.com/yuu528/ModSynth"
)

var waveItems = []modsynth.Item{
	{Label: "Sine", Value: "sine"},
	{Label: "Square", Value: "square"},
	{Label: "Sawtooth", Value: "sawtooth"},
	{Label: "Triangle", Value: "triangle"},
}

var filterItems = []modsynth.Item{
	{Label: "Lowpass", Value: "lowpass"},
	{Label: "Highpass", Value: "highpass"},
	{Label: "Bandpass", Value: "bandpass"},
	{Label: "Lowshelf", Value: "lowshelf"},
	{Label: "Highshelf", Value: "highshelf"},
	{Label: "Peaking", Value: "peaking"},
	{Label: "Notch", Value: "notch"},
	{Label: "Allpass", Value: "allpass"},
}

func num(id, name string, min, max, step, value float64) modsynth.Param {
	return modsynth.Param{ID: id, Name: name, Kind: modsynth.Number, Min: min, Max: max, Step: step, Value: value}
}

func withUnit(p modsynth.Param, unit string, si bool) modsynth.Param {
	p.Unit = unit
	p.SI = si
	return p
}

func disabled(p modsynth.Param) modsynth.Param {
	p.Disabled = true
	return p
}

func enum(id, name string, items []modsynth.Item) modsynth.Param {
	return modsynth.Param{ID: id, Name: name, Kind: modsynth.Enum, Items: items, Value: items[0].Value}
}

func device(id string) modsynth.Param {
	return modsynth.Param{ID: id, Name: "Device", Kind: modsynth.Enum, Value: ""}
}

var (
	audioOut = modsynth.Jack{ID: "output", Name: "Out", Role: modsynth.AudioOutput}
	audioIn  = modsynth.Jack{ID: "input", Name: "In", Role: modsynth.AudioInput}
	cvOut    = modsynth.Jack{ID: "output", Name: "Out", Role: modsynth.ControlOutput}
)

func cvIn(id, name string) modsynth.Jack {
	return modsynth.Jack{ID: id, Name: name, Role: modsynth.ControlInput}
}

var palette = []entry{
	{modsynth.Descriptor{ID: "audioPlayer", Name: "Audio Player", Category: modsynth.Source,
		Params: modsynth.Params{
			{ID: "file", Name: "File", Kind: modsynth.File, Value: ""},
			{ID: "play", Name: "Play", Kind: modsynth.Bool, Value: false, Disabled: true},
			withUnit(num("seek", "Seek", 0, 0, 1, 0), "s", false),
			num("volume", "Vol", 0, 1, 0.01, 0.5),
			num("speed", "Speed", 0.1, 16, 0.1, 1),
		},
		Jacks: []modsynth.Jack{audioOut}},
		func() modsynth.Kind { return &audioPlayer{} }},
	{modsynth.Descriptor{ID: "inputDevice", Name: "Input Device", Category: modsynth.Source,
		Params: modsynth.Params{
			device("device"),
			num("volume", "Vol", 0, 2, 0.01, 1),
		},
		Jacks: []modsynth.Jack{audioOut}},
		func() modsynth.Kind { return &inputDevice{} }},
	{modsynth.Descriptor{ID: "midiInput", Name: "MIDI Input", Category: modsynth.Source,
		Params: modsynth.Params{device("device")},
		Jacks: []modsynth.Jack{
			{ID: "gateOutput", Name: "Gate", Role: modsynth.ControlOutput},
			{ID: "velocityOutput", Name: "Velocity", Role: modsynth.ControlOutput},
			{ID: "pitchOutput", Name: "Pitch", Role: modsynth.ControlOutput},
		}},
		func() modsynth.Kind { return &MIDIInput{} }},
	{modsynth.Descriptor{ID: "oscillator", Name: "Osc", Category: modsynth.Source,
		Params: modsynth.Params{
			enum("type", "Type", waveItems),
			withUnit(num("frequency", "Freq", 1, 16000, 1, 1000), "Hz", true),
			num("volume", "Vol", 0, 2, 0.01, 1),
		},
		Jacks: []modsynth.Jack{cvIn("freqCvInput", "Freq CV"), audioOut}},
		func() modsynth.Kind { return &oscillator{} }},
	{modsynth.Descriptor{ID: "lfo", Name: "LFO", Category: modsynth.Source,
		Params: modsynth.Params{
			enum("type", "Type", waveItems),
			withUnit(num("frequency", "Freq", 0.1, 50, 0.1, 10), "Hz", true),
			num("volume", "Vol", 0, 2, 0.01, 0.5),
			num("offset", "Offset", -1, 1, 0.1, 1),
		},
		Jacks: []modsynth.Jack{cvOut}},
		func() modsynth.Kind { return &lfo{} }},

	{modsynth.Descriptor{ID: "merger", Name: "Merger", Category: modsynth.Filter,
		Jacks: []modsynth.Jack{
			{ID: "inputL", Name: "In L", Role: modsynth.AudioInput, Channel: 0},
			{ID: "inputR", Name: "In R", Role: modsynth.AudioInput, Channel: 1},
			audioOut,
		}},
		func() modsynth.Kind { return &merger{} }},
	{modsynth.Descriptor{ID: "splitter", Name: "Splitter", Category: modsynth.Filter,
		Jacks: []modsynth.Jack{
			audioIn,
			{ID: "outputL", Name: "Out L", Role: modsynth.AudioOutput, Channel: 0},
			{ID: "outputR", Name: "Out R", Role: modsynth.AudioOutput, Channel: 1},
		}},
		func() modsynth.Kind { return &splitter{} }},
	{modsynth.Descriptor{ID: "volume", Name: "Volume", Category: modsynth.Filter,
		Params: modsynth.Params{
			num("volume", "Vol", 0, 2, 0.01, 0.5),
			num("offset", "Offset", -1, 1, 0.1, 0),
		},
		Jacks: []modsynth.Jack{cvIn("gainCvInput", "Gain CV"), audioIn, audioOut}},
		func() modsynth.Kind { return &volume{} }},
	{modsynth.Descriptor{ID: "stereoPanner", Name: "Stereo Panner", Category: modsynth.Filter,
		Params: modsynth.Params{num("pan", "Pan", -1, 1, 0.01, 0)},
		Jacks:  []modsynth.Jack{audioIn, audioOut}},
		func() modsynth.Kind { return &stereoPanner{} }},
	{modsynth.Descriptor{ID: "delay", Name: "Delay", Category: modsynth.Filter,
		Params: modsynth.Params{withUnit(num("time", "Time", 0, 1, 1e-3, 0.5), "s", true)},
		Jacks:  []modsynth.Jack{audioIn, audioOut}},
		func() modsynth.Kind { return &delay{} }},
	{modsynth.Descriptor{ID: "adsr", Name: "ADSR", Category: modsynth.Filter,
		Params: modsynth.Params{
			withUnit(num("attack", "Atk", 0, 5, 0.01, 0.5), "s", true),
			withUnit(num("hold", "Hold", 0, 5, 0.01, 0.5), "s", true),
			withUnit(num("decay", "Dec", 0, 5, 0.01, 0.5), "s", true),
			num("sustain", "Sus", 0, 1, 0.01, 0.5),
			withUnit(num("release", "Rel", 0, 5, 0.01, 0.5), "s", true),
		},
		Jacks: []modsynth.Jack{cvIn("gateInput", "Gate"), cvOut}},
		func() modsynth.Kind { return &adsr{} }},
	{modsynth.Descriptor{ID: "echo", Name: "Echo / Reverb", Category: modsynth.Filter,
		Params: modsynth.Params{
			withUnit(num("time", "Time", 0, 1, 1e-3, 0.1), "s", true),
			num("sustain", "Sus", 0, 0.94, 0.01, 0.5),
			num("mix", "Mix", 0, 1, 0.01, 0.5),
			num("gain", "Gain", 0, 1, 0.01, 1),
		},
		Jacks: []modsynth.Jack{audioIn, audioOut}},
		func() modsynth.Kind { return &echo{} }},
	{modsynth.Descriptor{ID: "paramEQ", Name: "Parametric EQ", Category: modsynth.Filter,
		Params: modsynth.Params{
			enum("type", "Type", filterItems),
			withUnit(num("frequency", "Freq", 10, 24000, 1, 350), "Hz", true),
			num("q", "Q", 0.0001, 1000, 0.01, 1),
			disabled(withUnit(num("gain", "Gain", -40, 40, 1, 0), "dB", false)),
		},
		Jacks: []modsynth.Jack{
			cvIn("freqCvInput", "Freq CV"),
			cvIn("qCvInput", "Q CV"),
			cvIn("gainCvInput", "Gain CV"),
			audioIn,
			audioOut,
		}},
		func() modsynth.Kind { return &paramEQ{} }},
	{modsynth.Descriptor{ID: "compressor", Name: "Compressor", Category: modsynth.Filter,
		Params: modsynth.Params{
			withUnit(num("threshold", "Threshold", -100, 0, 1, -24), "dB", false),
			withUnit(num("knee", "Knee", 0, 40, 1, 30), "dB", false),
			num("ratio", "Ratio", 1, 20, 1, 12),
			withUnit(num("attack", "Attack", 0, 1, 1e-3, 3e-3), "s", true),
			withUnit(num("release", "Release", 0, 1, 1e-3, 0.25), "s", true),
			disabled(withUnit(num("reduction", "Reduction", -20, 0, 0, 0), "dB", false)),
		},
		Jacks: []modsynth.Jack{audioIn, audioOut}},
		func() modsynth.Kind { return &compressor{} }},
	{modsynth.Descriptor{ID: "panner", Name: "Panner", Category: modsynth.Filter,
		Params: modsynth.Params{
			num("innerAngle", "Inner Angle", 0, 360, 1, 60),
			num("outerAngle", "Outer Angle", 0, 360, 1, 90),
			num("outerGain", "Outer Gain", 0, 1, 0.1, 0),
			num("distanceModel", "Dist Type", 0, 2, 1, 1),
			num("hDeg", "H Rot", -360, 360, 1, 0),
			num("vDeg", "V Rot", -360, 360, 1, 0),
			num("panningModel", "Pan Type", 0, 1, 1, 0),
			num("x", "X", -100, 100, 1, 0),
			num("y", "Y", -100, 100, 1, 0),
			num("z", "Z", -100, 100, 1, 1),
		},
		Jacks: []modsynth.Jack{audioIn, audioOut}},
		func() modsynth.Kind { return &panner{} }},

	{modsynth.Descriptor{ID: "monitor", Name: "Monitor", Category: modsynth.Visual,
		Params: modsynth.Params{
			withUnit(num("fftMax", "FFT Max", 1000, 16000, 1000, 16000), "Hz", true),
			num("scopeSize", "Scope Size", 1, 16, 1, 8),
			num("scopeAmp", "Scope Amp", 1, 16, 1, 1),
			withUnit(num("minLevel", "Min Level", -100, 0, 1, -100), "dB", false),
			withUnit(num("maxLevel", "Max Level", -100, 0, 1, -30), "dB", false),
		},
		Jacks: []modsynth.Jack{audioIn}},
		func() modsynth.Kind { return &Monitor{} }},
}

// nyquist returns the highest frequency a filter can be set to.
func nyquist(r modsynth.Routing) float64 {
	return math.Floor(r.SampleRate() / 2)
}
