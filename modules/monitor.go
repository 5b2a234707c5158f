package modules

import (
	"github.com/yuu528/ModSynth"
)

// Monitor shows its input as an oscilloscope trace and a spectrum.
type Monitor struct {
	graph
	analyser modsynth.Node
	params   modsynth.Params
	wave     []float32
	bins     []float32
}

const fftSize = 2048

func (k *Monitor) Clone() modsynth.Kind { return &Monitor{} }

func (k *Monitor) Enable(m *modsynth.Module, h modsynth.Host) error {
	k.enable(h)
	k.params = m.Params
	k.analyser = k.node(modsynth.NodeAnalyser, modsynth.Options{"fftSize": fftSize})
	k.port("input", k.analyser, 0)
	if err := k.done(); err != nil {
		return err
	}
	if _, ok := k.analyser.(modsynth.Analyser); !ok {
		k.release()
		return modsynth.ErrUnsupportedKind
	}
	return nil
}

func (k *Monitor) UpdateValue(*modsynth.Module, modsynth.Host, string) {}

// LinkParams keeps minLevel <= maxLevel by moving the bound of the other
// level parameter and clamping its value.
func (k *Monitor) LinkParams(p modsynth.Params, id string) {
	lo, ok := p.Find("minLevel")
	if !ok {
		return
	}
	hi, ok := p.Find("maxLevel")
	if !ok {
		return
	}
	switch id {
	case "maxLevel":
		lo.Max = hi.Float()
		lo.Value = modsynth.Clamp(lo.Float(), lo.Min, lo.Max)
	case "minLevel":
		hi.Min = lo.Float()
		hi.Value = modsynth.Clamp(hi.Float(), hi.Min, hi.Max)
	}
}

// Scope returns the latest waveform, scaled by scopeAmp and clipped to
// [-1, 1]. A larger scopeSize shows a longer stretch of the signal.
func (k *Monitor) Scope() []float32 {
	a, ok := k.analyser.(modsynth.Analyser)
	if !ok {
		return nil
	}
	size := k.params.Float("scopeSize")
	maxSize := 16.0
	if p, ok := k.params.Find("scopeSize"); ok {
		maxSize = p.Max
	}
	n := int(float64(a.FFTSize()/2) / (maxSize - size + 1))
	if cap(k.wave) < n {
		k.wave = make([]float32, n)
	}
	k.wave = k.wave[:n]
	got := a.TimeDomain(k.wave)
	amp := float32(k.params.Float("scopeAmp"))
	for i, v := range k.wave[:got] {
		k.wave[i] = min(1, max(-1, v*amp))
	}
	return k.wave[:got]
}

// Spectrum returns the magnitudes of the bins up to fftMax, mapped from
// [minLevel, maxLevel] dB to [0, 1]. Bin i is centered at i*FreqStep() Hz.
func (k *Monitor) Spectrum() []float32 {
	a, ok := k.analyser.(modsynth.Analyser)
	if !ok {
		return nil
	}
	if len(k.bins) != a.FFTSize()/2 {
		k.bins = make([]float32, a.FFTSize()/2)
	}
	got := a.Spectrum(k.bins)
	step := k.FreqStep()
	n := got
	if step > 0 {
		n = min(got, int(k.params.Float("fftMax")/step)+1)
	}
	lo, hi := k.params.Float("minLevel"), k.params.Float("maxLevel")
	for i, v := range k.bins[:n] {
		if hi <= lo {
			k.bins[i] = 0
			if float64(v) >= hi {
				k.bins[i] = 1
			}
			continue
		}
		k.bins[i] = float32(modsynth.Clamp(modsynth.Map(float64(v), lo, hi, 0, 1), 0, 1))
	}
	return k.bins[:n]
}

// FreqStep is the bin spacing of Spectrum in Hz.
func (k *Monitor) FreqStep() float64 {
	if k.r == nil {
		return 0
	}
	return k.r.SampleRate() / fftSize
}

// Peak is the largest absolute sample of the latest block.
func (k *Monitor) Peak() float64 {
	if k.analyser == nil {
		return 0
	}
	v, _ := k.analyser.Get("peak")
	return v
}
