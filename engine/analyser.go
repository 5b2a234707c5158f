package engine

import (
	"fmt"
	"math"
	"math/cmplx"
	"sync"
	"sync/atomic"

	"github.com/madelynnblue/go-dsp/fft"
	"github.com/viterin/vek/vek32"
	"github.com/yuu528/ModSynth"
	"github.com/yuu528/ModSynth/dsp"
)

type (
	// analyser passes its input through and taps the mono down-mix into a
	// ring that the control domain drains on demand.
	analyser struct {
		tap  *dsp.Ring[float32]
		tmp  []float32
		abs  []float32
		peak atomic.Uint64 // float64 bits of the peak level of the last block

		mu       sync.Mutex // guards the control-side state below
		history  []float32 // circular, oldest sample at pos
		pos      int
		ordered  []float32
		window   []float64
		winSum   float64
		smoothed []float64
		frame    []float64
	}

	analyserNode struct {
		*node
		a *analyser
	}
)

const smoothing = 0.8

var _ modsynth.Analyser = analyserNode{}

func buildAnalyser(e *Engine, opts modsynth.Options) (*node, error) {
	size := 2048
	if v, ok := opts["fftSize"]; ok {
		f, ok := toFloat(v)
		k := int(f)
		if !ok || k < 32 || k > 32768 || k&(k-1) != 0 {
			return nil, fmt.Errorf("fftSize must be a power of two in [32, 32768], got %v", v)
		}
		size = k
	}
	n := e.newNode(modsynth.NodeAnalyser, []int{2}, []int{2})
	a := &analyser{
		tap:      dsp.NewRing[float32](4 * size),
		tmp:      make([]float32, BlockSize),
		abs:      make([]float32, BlockSize),
		history:  make([]float32, size),
		ordered:  make([]float32, size),
		window:   make([]float64, size),
		smoothed: make([]float64, size/2),
		frame:    make([]float64, size),
	}
	for i := range a.window {
		// Hann window
		w := 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(size-1)))
		a.window[i] = w
		a.winSum += w
	}
	n.impl = a
	n.handle = analyserNode{node: n, a: a}
	return n, nil
}

func (a *analyser) process(n *node) {
	in, out := n.in[0], n.out[0]
	if in == nil {
		silence(out)
		for i := 0; i < BlockSize; i++ {
			a.tap.Push(0)
		}
		a.peak.Store(0)
		return
	}
	for c := range out {
		copy(out[c], in[c])
	}
	m := mono(in, a.tmp)
	vek32.Abs_Into(a.abs, m)
	a.peak.Store(math.Float64bits(float64(vek32.Max(a.abs))))
	for _, v := range m {
		if !a.tap.Push(v) {
			break
		}
	}
}

// get reads "peak", the largest absolute sample of the last block.
func (a *analyser) get(name string) (float64, bool) {
	if name == "peak" {
		return math.Float64frombits(a.peak.Load()), true
	}
	return 0, false
}

// drain moves the tapped samples into the history and returns it oldest
// first. The caller holds a.mu.
func (a *analyser) drain() []float32 {
	for {
		v, ok := a.tap.Pop()
		if !ok {
			break
		}
		a.history[a.pos] = v
		a.pos = (a.pos + 1) % len(a.history)
	}
	k := copy(a.ordered, a.history[a.pos:])
	copy(a.ordered[k:], a.history[:a.pos])
	return a.ordered
}

func (n analyserNode) FFTSize() int { return len(n.a.history) }

func (n analyserNode) TimeDomain(dst []float32) int {
	a := n.a
	a.mu.Lock()
	defer a.mu.Unlock()
	h := a.drain()
	return copy(dst, h[max(0, len(h)-len(dst)):])
}

func (n analyserNode) Spectrum(dst []float32) int {
	a := n.a
	a.mu.Lock()
	defer a.mu.Unlock()
	for i, v := range a.drain() {
		x := float64(v)
		if math.IsNaN(x) || math.IsInf(x, 0) {
			x = 0
		}
		a.frame[i] = x * a.window[i]
	}
	bins := fft.FFTReal(a.frame)
	for i := range a.smoothed {
		m := cmplx.Abs(bins[i]) / a.winSum
		a.smoothed[i] = smoothing*a.smoothed[i] + (1-smoothing)*m
	}
	k := min(len(dst), len(a.smoothed))
	for i := 0; i < k; i++ {
		dst[i] = float32(20 * math.Log10(math.Max(a.smoothed[i], 1e-10)))
	}
	return k
}
