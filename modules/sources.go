package modules

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/yuu528/ModSynth"
	"github.com/yuu528/ModSynth/dsp"
)

type (
	// oscillator is an audio oscillator. A cable on freqCvInput takes over
	// the frequency: the cv spans the pitch range of the MIDI converter, so
	// the pitch output of a MIDI input plays the note it received.
	oscillator struct {
		graph
		osc, cv, out modsynth.Node
		cables       int
	}

	lfo struct {
		graph
		osc, offset, out modsynth.Node
	}

	// MIDIInput turns note events of a MIDI port into gate, velocity and
	// pitch control signals.
	MIDIInput struct {
		graph
		conv     *dsp.Converter
		listener io.Closer
	}

	// inputDevice plays an audio capture stream. Changing the device
	// acquires a new stream and swaps it in under the existing cables.
	inputDevice struct {
		graph
		out    modsynth.Node
		src    modsynth.Node
		stream io.Closer
	}

	audioPlayer struct {
		graph
		player, out modsynth.Node
	}

	// decoded is a decoded audio file on its way from the decoder goroutine.
	decoded struct {
		*modsynth.Sample
	}
)

var (
	_ modsynth.ConnectHook = (*oscillator)(nil)
	_ modsynth.Acquirer    = (*MIDIInput)(nil)
	_ modsynth.Initializer = (*MIDIInput)(nil)
	_ modsynth.Acquirer    = (*inputDevice)(nil)
	_ modsynth.Initializer = (*inputDevice)(nil)
	_ modsynth.Acquirer    = (*audioPlayer)(nil)
	_ modsynth.Refresher   = (*audioPlayer)(nil)
)

func (k *oscillator) Clone() modsynth.Kind { return &oscillator{} }

func (k *oscillator) Enable(m *modsynth.Module, h modsynth.Host) error {
	k.enable(h)
	lo, hi := dsp.FreqSpan()
	k.osc = k.node(modsynth.NodeOscillator, modsynth.Options{
		"type":      m.Params.String("type"),
		"frequency": m.Params.Float("frequency"),
	})
	k.cv = k.node(modsynth.NodeGain, modsynth.Options{"gain": hi - lo})
	k.out = k.node(modsynth.NodeGain, modsynth.Options{"gain": m.Params.Float("volume")})
	k.modulate(k.cv, k.osc, "frequency")
	k.connect(k.osc, k.out)
	k.port("freqCvInput", k.cv, 0)
	k.port("output", k.out, 0)
	return k.done()
}

func (k *oscillator) UpdateValue(m *modsynth.Module, h modsynth.Host, id string) {
	switch id {
	case "type":
		option(h, k.osc, "type", m.Params.String("type"))
	case "frequency":
		set(h, k.osc, "frequency", m.Params.Float("frequency"))
	case "volume":
		set(h, k.out, "gain", m.Params.Float("volume"))
	}
}

func (k *oscillator) OnConnected(m *modsynth.Module, h modsynth.Host, jack string) {
	if jack != "freqCvInput" {
		return
	}
	k.cables++
	lo, _ := dsp.FreqSpan()
	m.Params.SetDisabled("frequency", true)
	set(h, k.osc, "frequency", lo)
}

func (k *oscillator) OnDisconnected(m *modsynth.Module, h modsynth.Host, jack string) {
	if jack != "freqCvInput" {
		return
	}
	if k.cables--; k.cables > 0 {
		return
	}
	k.cables = 0
	m.Params.SetDisabled("frequency", false)
	set(h, k.osc, "frequency", m.Params.Float("frequency"))
}

func (k *lfo) Clone() modsynth.Kind { return &lfo{} }

func (k *lfo) Enable(m *modsynth.Module, h modsynth.Host) error {
	k.enable(h)
	k.osc = k.node(modsynth.NodeOscillator, modsynth.Options{
		"type":      m.Params.String("type"),
		"frequency": m.Params.Float("frequency"),
	})
	k.offset = k.node(modsynth.NodeConstant, modsynth.Options{"offset": m.Params.Float("offset")})
	k.out = k.node(modsynth.NodeGain, modsynth.Options{"gain": m.Params.Float("volume")})
	k.connect(k.osc, k.out)
	k.connect(k.offset, k.out)
	k.port("output", k.out, 0)
	return k.done()
}

func (k *lfo) UpdateValue(m *modsynth.Module, h modsynth.Host, id string) {
	switch id {
	case "type":
		option(h, k.osc, "type", m.Params.String("type"))
	case "frequency":
		set(h, k.osc, "frequency", m.Params.Float("frequency"))
	case "offset":
		set(h, k.offset, "offset", m.Params.Float("offset"))
	case "volume":
		set(h, k.out, "gain", m.Params.Float("volume"))
	}
}

func (k *MIDIInput) Clone() modsynth.Kind { return &MIDIInput{} }

// Init lists the MIDI ports and selects the first one.
func (k *MIDIInput) Init(m *modsynth.Module, d modsynth.Devices) {
	initDevices(m, d.MIDIInputs)
}

func (k *MIDIInput) Enable(m *modsynth.Module, h modsynth.Host) error {
	k.enable(h)
	k.conv = dsp.NewConverter()
	n := k.node(modsynth.NodeProcessor, modsynth.Options{
		"processor": k.conv,
		"inputs":    0,
		"outputs":   dsp.NumConverterOutputs,
	})
	k.port("gateOutput", n, dsp.GateOutput)
	k.port("velocityOutput", n, dsp.VelocityOutput)
	k.port("pitchOutput", n, dsp.PitchOutput)
	if err := k.done(); err != nil {
		return err
	}
	k.listen(h, m.Params.String("device"))
	return nil
}

func (k *MIDIInput) listen(h modsynth.Host, id string) {
	if id == "" {
		return
	}
	d, conv := h.Devices(), k.conv
	h.Acquire(func(context.Context) (io.Closer, error) {
		stop, err := d.ListenMIDI(id, func(ev modsynth.MIDIEvent) { conv.Push(ev) })
		if err != nil {
			return nil, fmt.Errorf("listen to MIDI port %q: %w", id, err)
		}
		return closerFunc(stop), nil
	})
}

func (k *MIDIInput) UpdateValue(m *modsynth.Module, h modsynth.Host, id string) {
	if id == "device" {
		k.listen(h, m.Params.String("device"))
	}
}

// OnAcquired swaps in the new port subscription. The converter keeps its
// held notes across the swap.
func (k *MIDIInput) OnAcquired(_ *modsynth.Module, _ modsynth.Host, res io.Closer) {
	if k.listener != nil {
		k.listener.Close()
	}
	k.listener = res
}

func (k *MIDIInput) Disable(modsynth.Host) {
	if k.listener != nil {
		k.listener.Close()
		k.listener = nil
	}
	k.release()
}

// Push feeds a note event to the converter as if it came from the port. It
// reports false when the module is not enabled or the event queue is full.
func (k *MIDIInput) Push(ev modsynth.MIDIEvent) bool {
	if k.conv == nil {
		return false
	}
	return k.conv.Push(ev)
}

func (k *inputDevice) Clone() modsynth.Kind { return &inputDevice{} }

func (k *inputDevice) Init(m *modsynth.Module, d modsynth.Devices) {
	initDevices(m, d.AudioInputs)
}

func (k *inputDevice) Enable(m *modsynth.Module, h modsynth.Host) error {
	k.enable(h)
	k.out = k.node(modsynth.NodeGain, modsynth.Options{"gain": m.Params.Float("volume")})
	k.port("output", k.out, 0)
	if err := k.done(); err != nil {
		return err
	}
	k.open(h, m.Params.String("device"))
	return nil
}

func (k *inputDevice) open(h modsynth.Host, id string) {
	d := h.Devices()
	h.Acquire(func(ctx context.Context) (io.Closer, error) {
		s, err := d.OpenAudioInput(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("open audio input %q: %w", id, err)
		}
		return s, nil
	})
}

func (k *inputDevice) UpdateValue(m *modsynth.Module, h modsynth.Host, id string) {
	switch id {
	case "device":
		k.open(h, m.Params.String("device"))
	case "volume":
		set(h, k.out, "gain", m.Params.Float("volume"))
	}
}

// OnAcquired replaces the stream node. The cables of the output are taken
// off while the graph changes and put back afterwards.
func (k *inputDevice) OnAcquired(m *modsynth.Module, h modsynth.Host, res io.Closer) {
	s, ok := res.(modsynth.AudioStream)
	if !ok {
		res.Close()
		return
	}
	cables := h.Disconnect("output")
	if k.src != nil {
		k.drop(k.src)
		k.src = nil
	}
	if k.stream != nil {
		k.stream.Close()
	}
	k.stream = s
	src, err := h.Routing().CreateNode(modsynth.NodeStream, modsynth.Options{"stream": s})
	if err == nil {
		err = h.Routing().Connect(src, 0, k.out, 0)
		k.nodes = append(k.nodes, src)
		k.src = src
	}
	if err != nil {
		h.Log().WithError(err).Warn("cannot play audio input")
	}
	for _, c := range cables {
		h.Connect(c.Src, c.Dst)
	}
}

func (k *inputDevice) Disable(modsynth.Host) {
	k.release()
	if k.stream != nil {
		k.stream.Close()
		k.stream = nil
	}
	k.src = nil
}

func (k *audioPlayer) Clone() modsynth.Kind { return &audioPlayer{} }

func (k *audioPlayer) Enable(m *modsynth.Module, h modsynth.Host) error {
	k.enable(h)
	k.player = k.node(modsynth.NodeBufferSource, modsynth.Options{"playbackRate": m.Params.Float("speed")})
	k.out = k.node(modsynth.NodeGain, modsynth.Options{"gain": m.Params.Float("volume")})
	k.connect(k.player, k.out)
	k.port("output", k.out, 0)
	if err := k.done(); err != nil {
		return err
	}
	k.load(h, m.Params.String("file"))
	return nil
}

func (k *audioPlayer) load(h modsynth.Host, path string) {
	if path == "" {
		return
	}
	h.Acquire(func(context.Context) (io.Closer, error) {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		data, rate, err := modsynth.DecodeWav(f)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		return decoded{&modsynth.Sample{Data: data, SampleRate: rate}}, nil
	})
}

func (k *audioPlayer) UpdateValue(m *modsynth.Module, h modsynth.Host, id string) {
	p := m.Params
	switch id {
	case "file":
		option(h, k.player, "playing", false)
		if play, ok := p.Find("play"); ok {
			play.Value, play.Disabled = false, true
		}
		k.load(h, p.String("file"))
	case "play":
		var on bool
		if play, ok := p.Find("play"); ok {
			on = play.Bool()
		}
		option(h, k.player, "playing", on)
	case "seek":
		option(h, k.player, "position", p.Float("seek"))
	case "volume":
		set(h, k.out, "gain", p.Float("volume"))
	case "speed":
		set(h, k.player, "playbackRate", p.Float("speed"))
	}
}

func (k *audioPlayer) OnAcquired(m *modsynth.Module, h modsynth.Host, res io.Closer) {
	d, ok := res.(decoded)
	if !ok {
		res.Close()
		return
	}
	option(h, k.player, "buffer", d.Sample)
	if seek, ok := m.Params.Find("seek"); ok {
		seek.Max = d.Duration()
		seek.Value = 0.0
	}
	if play, ok := m.Params.Find("play"); ok {
		play.Value, play.Disabled = false, false
	}
}

// Refresh follows the play position and the end of the file.
func (k *audioPlayer) Refresh(m *modsynth.Module) {
	if k.player == nil {
		return
	}
	if seek, ok := m.Params.Find("seek"); ok {
		if v, ok := k.player.Get("position"); ok {
			seek.Value = modsynth.Clamp(v, seek.Min, seek.Max)
		}
	}
	if play, ok := m.Params.Find("play"); ok && !play.Disabled {
		if v, ok := k.player.Get("playing"); ok {
			play.Value = v != 0
		}
	}
}

func (decoded) Close() error { return nil }

// initDevices fills the device choices of m and selects the first device
// when none is selected yet. An error of the device capability leaves the
// list empty.
func initDevices(m *modsynth.Module, list func() ([]modsynth.DeviceInfo, error)) {
	p, ok := m.Params.Find("device")
	if !ok {
		return
	}
	infos, err := list()
	if err != nil {
		infos = nil
	}
	p.Items = p.Items[:0]
	for _, d := range infos {
		p.Items = append(p.Items, modsynth.Item{Label: d.Name, Value: d.ID})
	}
	if p.Index() < 0 {
		p.Value = ""
		if len(p.Items) > 0 {
			p.Value = p.Items[0].Value
		}
	}
}
