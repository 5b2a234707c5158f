package engine

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/viterin/vek/vek32"
	"github.com/yuu528/ModSynth"
)

type (
	gain struct {
		gain *param
	}

	delay struct {
		sampleRate float64
		time       *param
		maxSamples float64
		lines      [2][]float32
		w          int
	}

	compressor struct {
		sampleRate float64
		threshold  *param
		knee       *param
		ratio      *param
		attack     *param
		release    *param
		gainDb     float64
		reduction  atomic.Uint64 // float64 bits, dB
	}

	stereoPanner struct {
		pan *param
	}

	merger struct{}

	splitter struct{}

	processorNode struct {
		proc modsynth.Processor
		in   [][]float32
		out  [][]float32
	}
)

var builders = map[modsynth.NodeKind]func(*Engine, modsynth.Options) (*node, error){
	modsynth.NodeGain:         buildGain,
	modsynth.NodeOscillator:   buildOscillator,
	modsynth.NodeConstant:     buildConstant,
	modsynth.NodeDelay:        buildDelay,
	modsynth.NodeBiquad:       buildBiquad,
	modsynth.NodeCompressor:   buildCompressor,
	modsynth.NodeStereoPanner: buildStereoPanner,
	modsynth.NodePanner:       buildPanner,
	modsynth.NodeMerger:       buildMerger,
	modsynth.NodeSplitter:     buildSplitter,
	modsynth.NodeAnalyser:     buildAnalyser,
	modsynth.NodeBufferSource: buildBufferSource,
	modsynth.NodeStream:       buildStream,
	modsynth.NodeProcessor:    buildProcessor,
}

func buildGain(e *Engine, _ modsynth.Options) (*node, error) {
	n := e.newNode(modsynth.NodeGain, []int{2}, []int{2})
	n.impl = &gain{gain: n.addParam("gain", 1, math.Inf(-1), math.Inf(1))}
	return n, nil
}

func (g *gain) process(n *node) {
	in, out := n.in[0], n.out[0]
	if in == nil {
		silence(out)
		return
	}
	for c := range out {
		vek32.Mul_Into(out[c], in[c], g.gain.buf)
	}
}

func buildDelay(e *Engine, opts modsynth.Options) (*node, error) {
	maxTime := 1.0
	if v, ok := opts["maxDelayTime"]; ok {
		f, ok := toFloat(v)
		if !ok || f <= 0 || f > 180 {
			return nil, fmt.Errorf("maxDelayTime must be in (0, 180] seconds, got %v", v)
		}
		maxTime = f
	}
	n := e.newNode(modsynth.NodeDelay, []int{2}, []int{2})
	d := &delay{
		sampleRate: e.sampleRate,
		time:       n.addParam("delayTime", 0, 0, maxTime),
		maxSamples: maxTime * e.sampleRate,
	}
	size := int(math.Ceil(d.maxSamples)) + 2
	for c := range d.lines {
		d.lines[c] = make([]float32, size)
	}
	n.impl = d
	return n, nil
}

func (d *delay) process(n *node) {
	in, out := n.in[0], n.out[0]
	size := len(d.lines[0])
	t := d.time.buf
	for i := 0; i < BlockSize; i++ {
		for c := range d.lines {
			var v float32
			if in != nil {
				v = in[c][i]
			}
			d.lines[c][d.w] = v
		}
		lag := math.Max(0, math.Min(d.maxSamples, float64(t[i])*d.sampleRate))
		pos := float64(d.w) - lag
		if pos < 0 {
			pos += float64(size)
		}
		j := int(pos)
		frac := float32(pos - float64(j))
		k := j + 1
		if k >= size {
			k = 0
		}
		for c := range d.lines {
			a, b := d.lines[c][j], d.lines[c][k]
			out[c][i] = a + (b-a)*frac
		}
		d.w++
		if d.w >= size {
			d.w = 0
		}
	}
}

func buildCompressor(e *Engine, _ modsynth.Options) (*node, error) {
	n := e.newNode(modsynth.NodeCompressor, []int{2}, []int{2})
	n.impl = &compressor{
		sampleRate: e.sampleRate,
		threshold:  n.addParam("threshold", -24, -100, 0),
		knee:       n.addParam("knee", 30, 0, 40),
		ratio:      n.addParam("ratio", 12, 1, 20),
		attack:     n.addParam("attack", 0.003, 0, 1),
		release:    n.addParam("release", 0.25, 0, 1),
	}
	return n, nil
}

func (c *compressor) get(name string) (float64, bool) {
	if name == "reduction" {
		return math.Float64frombits(c.reduction.Load()), true
	}
	return 0, false
}

// curve is the static gain curve with a soft knee centered at the threshold.
func curve(x, threshold, knee, ratio float64) float64 {
	over := x - threshold
	switch {
	case 2*over < -knee:
		return x
	case knee > 0 && 2*math.Abs(over) <= knee:
		k := over + knee/2
		return x + (1/ratio-1)*k*k/(2*knee)
	}
	return threshold + over/ratio
}

func (c *compressor) process(n *node) {
	in, out := n.in[0], n.out[0]
	if in == nil {
		silence(out)
		return
	}
	threshold := float64(c.threshold.buf[0])
	knee := float64(c.knee.buf[0])
	ratio := math.Max(1, float64(c.ratio.buf[0]))
	attack := math.Exp(-1 / math.Max(1, float64(c.attack.buf[0])*c.sampleRate))
	release := math.Exp(-1 / math.Max(1, float64(c.release.buf[0])*c.sampleRate))
	for i := 0; i < BlockSize; i++ {
		peak := math.Max(math.Abs(float64(in[0][i])), math.Abs(float64(in[1][i])))
		level := 20 * math.Log10(math.Max(peak, 1e-9))
		target := curve(level, threshold, knee, ratio) - level
		coeff := release
		if target < c.gainDb {
			coeff = attack
		}
		c.gainDb = coeff*c.gainDb + (1-coeff)*target
		g := float32(math.Pow(10, c.gainDb/20))
		out[0][i] = in[0][i] * g
		out[1][i] = in[1][i] * g
	}
	c.reduction.Store(math.Float64bits(c.gainDb))
}

func buildStereoPanner(e *Engine, _ modsynth.Options) (*node, error) {
	n := e.newNode(modsynth.NodeStereoPanner, []int{2}, []int{2})
	n.impl = &stereoPanner{pan: n.addParam("pan", 0, -1, 1)}
	return n, nil
}

// process pans a stereo input with the equal-power law.
func (p *stereoPanner) process(n *node) {
	in, out := n.in[0], n.out[0]
	if in == nil {
		silence(out)
		return
	}
	for i := 0; i < BlockSize; i++ {
		pan := math.Max(-1, math.Min(1, float64(p.pan.buf[i])))
		l, r := in[0][i], in[1][i]
		if pan <= 0 {
			x := (pan + 1) * math.Pi / 2
			gl, gr := float32(math.Cos(x)), float32(math.Sin(x))
			out[0][i] = l + r*gl
			out[1][i] = r * gr
		} else {
			x := pan * math.Pi / 2
			gl, gr := float32(math.Cos(x)), float32(math.Sin(x))
			out[0][i] = l * gl
			out[1][i] = r + l*gr
		}
	}
}

func buildMerger(e *Engine, _ modsynth.Options) (*node, error) {
	n := e.newNode(modsynth.NodeMerger, []int{1, 1}, []int{2})
	n.impl = merger{}
	return n, nil
}

func (merger) process(n *node) {
	for c := range n.out[0] {
		if n.in[c] == nil {
			clear(n.out[0][c])
			continue
		}
		copy(n.out[0][c], n.in[c][0])
	}
}

func buildSplitter(e *Engine, _ modsynth.Options) (*node, error) {
	n := e.newNode(modsynth.NodeSplitter, []int{2}, []int{1, 1})
	n.impl = splitter{}
	return n, nil
}

func (splitter) process(n *node) {
	in := n.in[0]
	for c := range n.out {
		if in == nil {
			clear(n.out[c][0])
			continue
		}
		copy(n.out[c][0], in[c])
	}
}

func buildProcessor(e *Engine, opts modsynth.Options) (*node, error) {
	proc, ok := opts["processor"].(modsynth.Processor)
	if !ok {
		return nil, fmt.Errorf("option \"processor\" must be a modsynth.Processor")
	}
	inputs, _ := opts["inputs"].(int)
	outputs, ok := opts["outputs"].(int)
	if !ok {
		outputs = 1
	}
	if inputs < 0 || outputs < 0 {
		return nil, fmt.Errorf("negative input or output count")
	}
	monoChannels := func(k int) []int {
		ret := make([]int, k)
		for i := range ret {
			ret[i] = 1
		}
		return ret
	}
	n := e.newNode(modsynth.NodeProcessor, monoChannels(inputs), monoChannels(outputs))
	p := &processorNode{
		proc: proc,
		in:   make([][]float32, inputs),
		out:  make([][]float32, outputs),
	}
	for i := range p.out {
		p.out[i] = n.out[i][0]
	}
	n.impl = p
	return n, nil
}

func (p *processorNode) process(n *node) {
	for i := range p.in {
		if n.in[i] == nil {
			p.in[i] = nil
			continue
		}
		p.in[i] = n.in[i][0]
	}
	p.proc.Process(p.in, p.out)
}
