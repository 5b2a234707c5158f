package engine

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/yuu528/ModSynth"
)

type (
	node struct {
		id        int
		kind      modsynth.NodeKind
		eng       *Engine
		params    map[string]*param
		paramList []*param
		impl      impl
		inCh      []int         // channel count of each input
		outCh     []int         // channel count of each output
		inBuf     [][][]float32 // [input][channel][frame]
		in        [][][]float32 // inBuf, or nil for inputs without links; set per block
		out       [][][]float32 // [output][channel][frame]
		handle    modsynth.Node // what CreateNode returns when the kind adds methods, e.g. an analyser
	}

	// param is an automatable value: an intrinsic value set from the control
	// domain plus the signals linked to it, resolved per block into buf.
	param struct {
		bits     atomic.Uint64
		min, max float64
		buf      []float32
	}

	impl interface {
		process(n *node)
	}

	optionSetter interface {
		setOption(name string, value any) error
	}

	meter interface {
		get(name string) (float64, bool)
	}
)

// constructOnly are options consumed when a node is built.
var constructOnly = map[string]bool{
	"maxDelayTime": true,
	"processor":    true,
	"inputs":       true,
	"outputs":      true,
	"stream":       true,
	"fftSize":      true,
}

func (e *Engine) newNode(kind modsynth.NodeKind, inCh, outCh []int) *node {
	e.nextID++
	n := &node{
		id:     e.nextID,
		kind:   kind,
		eng:    e,
		params: map[string]*param{},
		inCh:   inCh,
		outCh:  outCh,
		inBuf:  make([][][]float32, len(inCh)),
		in:     make([][][]float32, len(inCh)),
		out:    make([][][]float32, len(outCh)),
	}
	for i, c := range inCh {
		n.inBuf[i] = channels(c)
	}
	for i, c := range outCh {
		n.out[i] = channels(c)
	}
	return n
}

func (n *node) addParam(name string, value, min, max float64) *param {
	p := &param{min: min, max: max, buf: make([]float32, BlockSize)}
	p.set(value)
	n.params[name] = p
	n.paramList = append(n.paramList, p)
	return p
}

func (n *node) Kind() modsynth.NodeKind { return n.kind }

func (n *node) base() *node { return n }

func (n *node) String() string {
	return fmt.Sprintf("%v#%d", n.kind, n.id)
}

func (n *node) Set(name string, value float64) error {
	p, ok := n.params[name]
	if !ok {
		return fmt.Errorf("%v has no parameter %q: %w", n, name, modsynth.ErrNotFound)
	}
	if math.IsNaN(value) {
		return fmt.Errorf("%v: parameter %q cannot be NaN", n, name)
	}
	p.set(value)
	return nil
}

func (n *node) Get(name string) (float64, bool) {
	if p, ok := n.params[name]; ok {
		return p.load(), true
	}
	if m, ok := n.impl.(meter); ok {
		return m.get(name)
	}
	return 0, false
}

func (n *node) SetOption(name string, value any) error {
	if s, ok := n.impl.(optionSetter); ok {
		return s.setOption(name, value)
	}
	return fmt.Errorf("%v has no option %q: %w", n, name, modsynth.ErrNotFound)
}

func (p *param) set(v float64) {
	p.bits.Store(math.Float64bits(math.Max(p.min, math.Min(p.max, v))))
}

func (p *param) load() float64 {
	return math.Float64frombits(p.bits.Load())
}

// fill resolves the parameter for one block. It runs in the render loop.
func (p *param) fill(srcs []source) {
	v := float32(p.load())
	for i := range p.buf {
		p.buf[i] = v
	}
	for _, s := range srcs {
		mixMono(p.buf, s.node.out[s.output])
	}
}

func channels(n int) [][]float32 {
	ret := make([][]float32, n)
	for i := range ret {
		ret[i] = make([]float32, BlockSize)
	}
	return ret
}

type destination struct{}

func (destination) process(*node) {}
