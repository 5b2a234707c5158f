package modules

import (
	"github.com/yuu528/ModSynth"
	"github.com/yuu528/ModSynth/dsp"
)

type (
	merger   struct{ graph }
	splitter struct{ graph }

	// volume scales its input. A cable on gainCvInput replaces the unity
	// gain of the output stage, so an envelope on the cv shapes the level.
	volume struct {
		graph
		in, offset, out modsynth.Node
		cables          int
	}

	stereoPanner struct {
		graph
		pan modsynth.Node
	}

	delay struct {
		graph
		delay modsynth.Node
	}

	adsr struct {
		graph
		env *dsp.ADSR
	}

	// echo feeds the delayed signal back into the delay line:
	//
	//	input -> mixer -> delay -> feedback -> mixer
	//	mixer -> wet -> output
	//	input -> dry -> output
	echo struct {
		graph
		delay, feedback, dry, wet, out modsynth.Node
	}

	paramEQ struct {
		graph
		filter modsynth.Node
	}

	compressor struct {
		graph
		comp modsynth.Node
	}

	panner struct {
		graph
		panner modsynth.Node
	}
)

var (
	_ modsynth.ConnectHook = (*volume)(nil)
	_ modsynth.Refresher   = (*compressor)(nil)
	_ modsynth.Linker      = (*paramEQ)(nil)
	_ modsynth.Linker      = (*Monitor)(nil)
)

func (k *merger) Clone() modsynth.Kind { return &merger{} }

func (k *merger) Enable(m *modsynth.Module, h modsynth.Host) error {
	k.enable(h)
	n := k.node(modsynth.NodeMerger, nil)
	for _, j := range m.Jacks {
		if j.Role.IsInput() {
			k.port(j.ID, n, j.Channel)
		}
	}
	k.port("output", n, 0)
	return k.done()
}

func (k *merger) UpdateValue(*modsynth.Module, modsynth.Host, string) {}

func (k *splitter) Clone() modsynth.Kind { return &splitter{} }

func (k *splitter) Enable(m *modsynth.Module, h modsynth.Host) error {
	k.enable(h)
	n := k.node(modsynth.NodeSplitter, nil)
	k.port("input", n, 0)
	for _, j := range m.Jacks {
		if j.Role.IsOutput() {
			k.port(j.ID, n, j.Channel)
		}
	}
	return k.done()
}

func (k *splitter) UpdateValue(*modsynth.Module, modsynth.Host, string) {}

func (k *volume) Clone() modsynth.Kind { return &volume{} }

func (k *volume) Enable(m *modsynth.Module, h modsynth.Host) error {
	k.enable(h)
	k.in = k.node(modsynth.NodeGain, modsynth.Options{"gain": m.Params.Float("volume")})
	k.offset = k.node(modsynth.NodeConstant, modsynth.Options{"offset": m.Params.Float("offset")})
	k.out = k.node(modsynth.NodeGain, modsynth.Options{"gain": 1.0})
	cv := k.node(modsynth.NodeGain, modsynth.Options{"gain": 1.0})
	k.connect(k.in, k.out)
	k.connect(k.offset, k.out)
	k.modulate(cv, k.out, "gain")
	k.port("gainCvInput", cv, 0)
	k.port("input", k.in, 0)
	k.port("output", k.out, 0)
	return k.done()
}

func (k *volume) UpdateValue(m *modsynth.Module, h modsynth.Host, id string) {
	switch id {
	case "volume":
		set(h, k.in, "gain", m.Params.Float("volume"))
	case "offset":
		set(h, k.offset, "offset", m.Params.Float("offset"))
	}
}

func (k *volume) OnConnected(_ *modsynth.Module, h modsynth.Host, jack string) {
	if jack != "gainCvInput" {
		return
	}
	k.cables++
	set(h, k.out, "gain", 0)
}

func (k *volume) OnDisconnected(_ *modsynth.Module, h modsynth.Host, jack string) {
	if jack != "gainCvInput" {
		return
	}
	if k.cables--; k.cables > 0 {
		return
	}
	k.cables = 0
	set(h, k.out, "gain", 1)
}

func (k *stereoPanner) Clone() modsynth.Kind { return &stereoPanner{} }

func (k *stereoPanner) Enable(m *modsynth.Module, h modsynth.Host) error {
	k.enable(h)
	k.pan = k.node(modsynth.NodeStereoPanner, modsynth.Options{"pan": m.Params.Float("pan")})
	k.port("input", k.pan, 0)
	k.port("output", k.pan, 0)
	return k.done()
}

func (k *stereoPanner) UpdateValue(m *modsynth.Module, h modsynth.Host, id string) {
	if id == "pan" {
		set(h, k.pan, "pan", m.Params.Float("pan"))
	}
}

func (k *delay) Clone() modsynth.Kind { return &delay{} }

func (k *delay) Enable(m *modsynth.Module, h modsynth.Host) error {
	k.enable(h)
	k.delay = k.node(modsynth.NodeDelay, modsynth.Options{
		"maxDelayTime": 1.0,
		"delayTime":    m.Params.Float("time"),
	})
	k.port("input", k.delay, 0)
	k.port("output", k.delay, 0)
	return k.done()
}

func (k *delay) UpdateValue(m *modsynth.Module, h modsynth.Host, id string) {
	if id == "time" {
		set(h, k.delay, "delayTime", m.Params.Float("time"))
	}
}

func (k *adsr) Clone() modsynth.Kind { return &adsr{} }

func (k *adsr) Enable(m *modsynth.Module, h modsynth.Host) error {
	k.enable(h)
	k.env = dsp.NewADSR(h.Routing().SampleRate())
	k.apply(m.Params)
	n := k.node(modsynth.NodeProcessor, modsynth.Options{
		"processor": k.env,
		"inputs":    1,
		"outputs":   1,
	})
	k.port("gateInput", n, 0)
	k.port("output", n, 0)
	return k.done()
}

func (k *adsr) apply(p modsynth.Params) {
	k.env.Set(p.Float("attack"), p.Float("hold"), p.Float("decay"), p.Float("sustain"), p.Float("release"))
}

func (k *adsr) UpdateValue(m *modsynth.Module, _ modsynth.Host, _ string) {
	k.apply(m.Params)
}

func (k *echo) Clone() modsynth.Kind { return &echo{} }

func (k *echo) Enable(m *modsynth.Module, h modsynth.Host) error {
	k.enable(h)
	p := m.Params
	in := k.node(modsynth.NodeGain, modsynth.Options{"gain": 1.0})
	mixer := k.node(modsynth.NodeGain, modsynth.Options{"gain": 1.0})
	k.delay = k.node(modsynth.NodeDelay, modsynth.Options{
		"maxDelayTime": 1.0,
		"delayTime":    p.Float("time"),
	})
	k.feedback = k.node(modsynth.NodeGain, modsynth.Options{"gain": p.Float("sustain")})
	k.dry = k.node(modsynth.NodeGain, modsynth.Options{"gain": 1 - p.Float("mix")})
	k.wet = k.node(modsynth.NodeGain, modsynth.Options{"gain": p.Float("mix")})
	k.out = k.node(modsynth.NodeGain, modsynth.Options{"gain": p.Float("gain")})
	k.connect(in, mixer)
	k.connect(mixer, k.delay)
	k.connect(k.delay, k.feedback)
	k.connect(k.feedback, mixer)
	k.connect(mixer, k.wet)
	k.connect(k.wet, k.out)
	k.connect(in, k.dry)
	k.connect(k.dry, k.out)
	k.port("input", in, 0)
	k.port("output", k.out, 0)
	return k.done()
}

func (k *echo) UpdateValue(m *modsynth.Module, h modsynth.Host, id string) {
	p := m.Params
	switch id {
	case "time":
		set(h, k.delay, "delayTime", p.Float("time"))
	case "sustain":
		set(h, k.feedback, "gain", p.Float("sustain"))
	case "mix":
		set(h, k.dry, "gain", 1-p.Float("mix"))
		set(h, k.wet, "gain", p.Float("mix"))
	case "gain":
		set(h, k.out, "gain", p.Float("gain"))
	}
}

func (k *paramEQ) Clone() modsynth.Kind { return &paramEQ{} }

func (k *paramEQ) Enable(m *modsynth.Module, h modsynth.Host) error {
	k.enable(h)
	p := m.Params
	freq, _ := p.Find("frequency")
	freq.Max = nyquist(h.Routing())
	freq.Value = modsynth.Clamp(freq.Float(), freq.Min, freq.Max)
	q, _ := p.Find("q")
	gain, _ := p.Find("gain")
	k.filter = k.node(modsynth.NodeBiquad, modsynth.Options{
		"type":      p.String("type"),
		"frequency": freq.Float(),
		"Q":         q.Float(),
		"gain":      gain.Float(),
	})
	for _, cv := range []struct {
		jack, param string
		scale       float64
	}{
		{"freqCvInput", "frequency", freq.Max / 2},
		{"qCvInput", "Q", q.Max / 2},
		{"gainCvInput", "gain", gain.Max / 2},
	} {
		n := k.node(modsynth.NodeGain, modsynth.Options{"gain": cv.scale})
		k.modulate(n, k.filter, cv.param)
		k.port(cv.jack, n, 0)
	}
	k.port("input", k.filter, 0)
	k.port("output", k.filter, 0)
	toggleFilterParams(p)
	return k.done()
}

func (k *paramEQ) UpdateValue(m *modsynth.Module, h modsynth.Host, id string) {
	p := m.Params
	switch id {
	case "type":
		option(h, k.filter, "type", p.String("type"))
	case "frequency":
		set(h, k.filter, "frequency", p.Float("frequency"))
	case "q":
		set(h, k.filter, "Q", p.Float("q"))
	case "gain":
		set(h, k.filter, "gain", p.Float("gain"))
	}
}

func (k *paramEQ) LinkParams(p modsynth.Params, id string) {
	if id == "type" {
		toggleFilterParams(p)
	}
}

// Response is the magnitude response of the filter at freq Hz. It reports
// false while the module is not enabled.
func (k *paramEQ) Response(freq float64) (float64, bool) {
	r, ok := k.filter.(modsynth.Responder)
	if !ok {
		return 0, false
	}
	return r.Response(freq), true
}

// toggleFilterParams disables the parameters the selected filter type does
// not use: shelves have no Q, and only shelves and peaking have a gain.
func toggleFilterParams(p modsynth.Params) {
	t := p.String("type")
	shelf := t == "lowshelf" || t == "highshelf"
	p.SetDisabled("q", shelf)
	p.SetDisabled("gain", !shelf && t != "peaking")
}

func (k *compressor) Clone() modsynth.Kind { return &compressor{} }

var compressorParams = []string{"threshold", "knee", "ratio", "attack", "release"}

func (k *compressor) Enable(m *modsynth.Module, h modsynth.Host) error {
	k.enable(h)
	opts := modsynth.Options{}
	for _, id := range compressorParams {
		opts[id] = m.Params.Float(id)
	}
	k.comp = k.node(modsynth.NodeCompressor, opts)
	k.port("input", k.comp, 0)
	k.port("output", k.comp, 0)
	return k.done()
}

func (k *compressor) UpdateValue(m *modsynth.Module, h modsynth.Host, id string) {
	if id != "reduction" {
		set(h, k.comp, id, m.Params.Float(id))
	}
}

// Refresh reads the current gain reduction into the meter parameter.
func (k *compressor) Refresh(m *modsynth.Module) {
	if k.comp == nil {
		return
	}
	p, ok := m.Params.Find("reduction")
	if !ok {
		return
	}
	if v, ok := k.comp.Get("reduction"); ok {
		p.Value = modsynth.Clamp(v, p.Min, p.Max)
	}
}

func (k *panner) Clone() modsynth.Kind { return &panner{} }

var (
	distanceModels = []string{"linear", "inverse", "exponential"}
	panningModels  = []string{"equalpower", "HRTF"}
)

func (k *panner) Enable(m *modsynth.Module, h modsynth.Host) error {
	k.enable(h)
	p := m.Params
	x, y, z := orientation(p)
	k.panner = k.node(modsynth.NodePanner, modsynth.Options{
		"coneInnerAngle": p.Float("innerAngle"),
		"coneOuterAngle": p.Float("outerAngle"),
		"coneOuterGain":  p.Float("outerGain"),
		"distanceModel":  pick(distanceModels, p.Float("distanceModel")),
		"panningModel":   pick(panningModels, p.Float("panningModel")),
		"positionX":      p.Float("x"),
		"positionY":      p.Float("y"),
		"positionZ":      -p.Float("z"),
		"orientationX":   x,
		"orientationY":   y,
		"orientationZ":   z,
	})
	k.port("input", k.panner, 0)
	k.port("output", k.panner, 0)
	return k.done()
}

func (k *panner) UpdateValue(m *modsynth.Module, h modsynth.Host, id string) {
	p := m.Params
	switch id {
	case "innerAngle":
		set(h, k.panner, "coneInnerAngle", p.Float(id))
	case "outerAngle":
		set(h, k.panner, "coneOuterAngle", p.Float(id))
	case "outerGain":
		set(h, k.panner, "coneOuterGain", p.Float(id))
	case "distanceModel":
		option(h, k.panner, "distanceModel", pick(distanceModels, p.Float(id)))
	case "panningModel":
		option(h, k.panner, "panningModel", pick(panningModels, p.Float(id)))
	case "hDeg", "vDeg":
		x, y, z := orientation(p)
		set(h, k.panner, "orientationX", x)
		set(h, k.panner, "orientationY", y)
		set(h, k.panner, "orientationZ", z)
	case "x":
		set(h, k.panner, "positionX", p.Float(id))
	case "y":
		set(h, k.panner, "positionY", p.Float(id))
	case "z":
		// the listener looks down -z; the parameter counts distance ahead
		set(h, k.panner, "positionZ", -p.Float(id))
	}
}

func orientation(p modsynth.Params) (x, y, z float64) {
	return modsynth.DegToVector(p.Float("hDeg")-90, p.Float("vDeg"))
}

func pick(names []string, v float64) string {
	i := int(modsynth.Clamp(v, 0, float64(len(names)-1)))
	return names[i]
}
