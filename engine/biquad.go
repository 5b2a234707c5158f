package engine

import (
	"fmt"
	"math"
	"math/cmplx"
	"sync/atomic"

	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
	"github.com/cwbudde/algo-dsp/dsp/filter/design"
	"github.com/yuu528/ModSynth"
)

type (
	// FilterType is the response of a biquad filter.
	FilterType int32

	biquadFilter struct {
		sampleRate float64
		frequency  *param
		q          *param
		gain       *param
		filter     atomic.Int32
		sections   [2]*biquad.Section
	}

	biquadNode struct {
		*node
		filter *biquadFilter
	}
)

var _ modsynth.Responder = biquadNode{}

const (
	Lowpass FilterType = iota
	Highpass
	Bandpass
	Lowshelf
	Highshelf
	Peaking
	Notch
	Allpass
)

var filterNames = [...]string{"lowpass", "highpass", "bandpass", "lowshelf", "highshelf", "peaking", "notch", "allpass"}

func (f FilterType) String() string {
	if f < 0 || int(f) >= len(filterNames) {
		return "unknown"
	}
	return filterNames[f]
}

func ParseFilterType(name string) (FilterType, bool) {
	for i, n := range filterNames {
		if n == name {
			return FilterType(i), true
		}
	}
	return 0, false
}

// FilterNames lists the filter types in order.
func FilterNames() []string {
	return filterNames[:]
}

// UsesQ reports whether the Q parameter affects the filter type.
func (f FilterType) UsesQ() bool {
	return f != Lowshelf && f != Highshelf
}

// UsesGain reports whether the gain parameter affects the filter type.
func (f FilterType) UsesGain() bool {
	return f == Lowshelf || f == Highshelf || f == Peaking
}

// shelfQ gives the shelves a slope of 1.
const shelfQ = math.Sqrt2 / 2

// Coefficients designs the normalized section of filter type t. freq is in
// Hz, gainDb in decibels. q is ignored by the shelves.
func Coefficients(t FilterType, freq, q, gainDb, sampleRate float64) biquad.Coefficients {
	freq = math.Max(1e-3, math.Min(sampleRate/2*0.9999, freq))
	q = math.Max(1e-4, q)
	switch t {
	case Highpass:
		return design.Highpass(freq, q, sampleRate)
	case Lowshelf:
		return design.LowShelf(freq, gainDb, shelfQ, sampleRate)
	case Highshelf:
		return design.HighShelf(freq, gainDb, shelfQ, sampleRate)
	case Peaking:
		return design.Peak(freq, gainDb, q, sampleRate)
	case Bandpass, Notch, Allpass:
		return cookbook(t, freq, q, sampleRate)
	}
	return design.Lowpass(freq, q, sampleRate)
}

// cookbook builds the constant 0 dB peak gain bandpass, the notch and the
// allpass of the Audio EQ Cookbook.
func cookbook(t FilterType, freq, q, sampleRate float64) biquad.Coefficients {
	w0 := 2 * math.Pi * freq / sampleRate
	cos, sin := math.Cos(w0), math.Sin(w0)
	alpha := sin / (2 * q)
	a0 := 1 + alpha
	c := biquad.Coefficients{A1: -2 * cos / a0, A2: (1 - alpha) / a0}
	switch t {
	case Bandpass:
		c.B0, c.B1, c.B2 = alpha/a0, 0, -alpha/a0
	case Notch:
		c.B0, c.B1, c.B2 = 1/a0, -2*cos/a0, 1/a0
	default:
		c.B0, c.B1, c.B2 = (1-alpha)/a0, -2*cos/a0, 1
	}
	return c
}

// Gain is the magnitude response of c at freq Hz.
func Gain(c biquad.Coefficients, freq, sampleRate float64) float64 {
	return cmplx.Abs(biquad.NewSection(c).Response(freq, sampleRate))
}

func buildBiquad(e *Engine, _ modsynth.Options) (*node, error) {
	n := e.newNode(modsynth.NodeBiquad, []int{2}, []int{2})
	b := &biquadFilter{
		sampleRate: e.sampleRate,
		frequency:  n.addParam("frequency", 350, 0, e.sampleRate/2),
		q:          n.addParam("Q", 1, 1e-4, 1000),
		gain:       n.addParam("gain", 0, -40, 40),
	}
	for c := range b.sections {
		b.sections[c] = biquad.NewSection(biquad.Coefficients{B0: 1})
	}
	n.impl = b
	n.handle = biquadNode{node: n, filter: b}
	return n, nil
}

func (b *biquadFilter) setOption(name string, value any) error {
	if name != "type" {
		return fmt.Errorf("biquad has no option %q: %w", name, modsynth.ErrNotFound)
	}
	switch v := value.(type) {
	case FilterType:
		if v < 0 || int(v) >= len(filterNames) {
			return fmt.Errorf("unknown filter type %d", v)
		}
		b.filter.Store(int32(v))
	case string:
		t, ok := ParseFilterType(v)
		if !ok {
			return fmt.Errorf("unknown filter type %q", v)
		}
		b.filter.Store(int32(t))
	default:
		return fmt.Errorf("filter type must be a string, got %T", value)
	}
	return nil
}

func (n biquadNode) Response(freq float64) float64 { return n.filter.Response(freq) }

// Response is the magnitude response at freq in Hz for the current intrinsic
// parameter values. It is meant for the control domain.
func (b *biquadFilter) Response(freq float64) float64 {
	c := Coefficients(FilterType(b.filter.Load()), b.frequency.load(), b.q.load(), b.gain.load(), b.sampleRate)
	return Gain(c, freq, b.sampleRate)
}

// process redesigns the sections from the first frame of the parameter
// buffers once per block.
func (b *biquadFilter) process(n *node) {
	in, out := n.in[0], n.out[0]
	c := b.coeffs()
	for ch, s := range b.sections {
		s.Coefficients = c
		dst := out[ch]
		if in == nil {
			// let the filter ring out
			for i := range dst {
				dst[i] = float32(s.ProcessSample(0))
			}
			continue
		}
		for i, x := range in[ch] {
			dst[i] = float32(s.ProcessSample(float64(x)))
		}
	}
}

func (b *biquadFilter) coeffs() biquad.Coefficients {
	return Coefficients(FilterType(b.filter.Load()), float64(b.frequency.buf[0]), float64(b.q.buf[0]), float64(b.gain.buf[0]), b.sampleRate)
}
