// Package engine is a software implementation of the signal-routing
// capability: a graph of nodes rendered in blocks of BlockSize frames.
//
// Topology changes happen in the control domain and are published to the
// render loop as an immutable plan through an atomic pointer; parameter
// values are atomic as well. The render loop (Read or Render) takes no locks
// and does not allocate.
package engine

import (
	"encoding/binary"
	"fmt"
	"math"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/yuu528/ModSynth"
)

// BlockSize is the number of frames rendered at a time.
const BlockSize = 128

type (
	// Engine renders a node graph at a fixed sample rate. The control-domain
	// methods may be called from any goroutine; Read and Render must be
	// called from one goroutine at a time.
	Engine struct {
		sampleRate float64

		mu     sync.Mutex // serializes topology changes
		nodes  []*node
		links  []link
		nextID int
		dest   *node

		plan   atomic.Pointer[plan]
		frames atomic.Int64

		cursor int // frames of the current block already read
	}

	link struct {
		src    *node
		output int
		dst    *node
		input  int    // -1 when the link targets a parameter
		param  string // parameter name of dst, if input == -1
	}

	plan struct {
		steps []step
	}

	step struct {
		node   *node
		inputs [][]source
		params []paramStep
	}

	paramStep struct {
		param *param
		srcs  []source
	}

	source struct {
		node   *node
		output int
	}
)

var _ modsynth.Routing = (*Engine)(nil)

// New returns an engine with an empty graph holding only the destination.
func New(sampleRate float64) *Engine {
	if sampleRate <= 0 {
		sampleRate = 48000
	}
	e := &Engine{sampleRate: sampleRate, cursor: BlockSize}
	e.dest = e.newNode(modsynth.NodeDestination, []int{2}, nil)
	e.dest.impl = destination{}
	e.nodes = append(e.nodes, e.dest)
	e.publish()
	return e
}

func (e *Engine) SampleRate() float64 { return e.sampleRate }

// CurrentTime is the number of rendered frames in seconds.
func (e *Engine) CurrentTime() float64 {
	return float64(e.frames.Load()) / e.sampleRate
}

func (e *Engine) Destination() modsynth.Node { return e.dest }

// CreateNode creates a node and applies opts. Numeric options set the
// initial value of the parameter with the same name.
func (e *Engine) CreateNode(kind modsynth.NodeKind, opts modsynth.Options) (modsynth.Node, error) {
	build, ok := builders[kind]
	if !ok {
		return nil, fmt.Errorf("cannot create %v node: %w", kind, modsynth.ErrUnsupportedKind)
	}
	n, err := build(e, opts)
	if err != nil {
		return nil, fmt.Errorf("cannot create %v node: %w", kind, err)
	}
	for k, v := range opts {
		if constructOnly[k] {
			continue
		}
		if p, ok := n.params[k]; ok {
			f, ok := toFloat(v)
			if !ok {
				return nil, fmt.Errorf("option %q of %v node is not a number", k, kind)
			}
			p.set(f)
			continue
		}
		if err := n.SetOption(k, v); err != nil {
			return nil, err
		}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nodes = append(e.nodes, n)
	e.publish()
	if n.handle != nil {
		return n.handle, nil
	}
	return n, nil
}

// Connect links an output of src to an input of dst. Linking the same pair
// twice has no effect.
func (e *Engine) Connect(src modsynth.Node, output int, dst modsynth.Node, input int) error {
	s, d, err := e.pair(src, dst)
	if err != nil {
		return err
	}
	if output < 0 || output >= len(s.outCh) {
		return fmt.Errorf("%v node has no output %d: %w", s.kind, output, modsynth.ErrNotFound)
	}
	if input < 0 || input >= len(d.inCh) {
		return fmt.Errorf("%v node has no input %d: %w", d.kind, input, modsynth.ErrNotFound)
	}
	e.addLink(link{src: s, output: output, dst: d, input: input})
	return nil
}

// ConnectParam links an output of src to a parameter of dst; the signal is
// added to the intrinsic value of the parameter.
func (e *Engine) ConnectParam(src modsynth.Node, output int, dst modsynth.Node, param string) error {
	s, d, err := e.pair(src, dst)
	if err != nil {
		return err
	}
	if output < 0 || output >= len(s.outCh) {
		return fmt.Errorf("%v node has no output %d: %w", s.kind, output, modsynth.ErrNotFound)
	}
	if _, ok := d.params[param]; !ok {
		return fmt.Errorf("%v node has no parameter %q: %w", d.kind, param, modsynth.ErrNotFound)
	}
	e.addLink(link{src: s, output: output, dst: d, input: -1, param: param})
	return nil
}

func (e *Engine) Disconnect(src modsynth.Node, output int, dst modsynth.Node, input int) {
	e.removeLink(link{src: asNode(src), output: output, dst: asNode(dst), input: input})
}

func (e *Engine) DisconnectParam(src modsynth.Node, output int, dst modsynth.Node, param string) {
	e.removeLink(link{src: asNode(src), output: output, dst: asNode(dst), input: -1, param: param})
}

// Release removes a node and all links touching it. The destination cannot
// be released.
func (e *Engine) Release(mn modsynth.Node) {
	n := asNode(mn)
	if n == nil || n == e.dest || n.eng != e {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	i := slices.Index(e.nodes, n)
	if i < 0 {
		return
	}
	e.nodes = slices.Delete(e.nodes, i, i+1)
	e.links = slices.DeleteFunc(e.links, func(l link) bool { return l.src == n || l.dst == n })
	e.publish()
}

// Links returns the number of links in the graph.
func (e *Engine) Links() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.links)
}

// Nodes returns the number of nodes in the graph, the destination included.
func (e *Engine) Nodes() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.nodes)
}

// Read renders interleaved little-endian float32 stereo frames into p. It
// fills whole frames only and never fails, so it can feed an audio player
// directly.
func (e *Engine) Read(p []byte) (int, error) {
	frames := len(p) / 8
	for f := 0; f < frames; f++ {
		l, r := e.next()
		binary.LittleEndian.PutUint32(p[f*8:], math.Float32bits(l))
		binary.LittleEndian.PutUint32(p[f*8+4:], math.Float32bits(r))
	}
	return frames * 8, nil
}

// Render renders the given number of frames into a new buffer.
func (e *Engine) Render(frames int) modsynth.AudioBuffer {
	ret := make(modsynth.AudioBuffer, frames)
	for i := range ret {
		l, r := e.next()
		ret[i] = [2]float32{l, r}
	}
	return ret
}

func (e *Engine) next() (float32, float32) {
	if e.cursor >= BlockSize {
		e.renderBlock()
		e.cursor = 0
	}
	i := e.cursor
	e.cursor++
	in := e.dest.in[0]
	if in == nil {
		return 0, 0
	}
	return clampSample(in[0][i]), clampSample(in[1][i])
}

func (e *Engine) renderBlock() {
	p := e.plan.Load()
	for i := range p.steps {
		s := &p.steps[i]
		n := s.node
		for j, srcs := range s.inputs {
			if len(srcs) == 0 {
				n.in[j] = nil
				continue
			}
			buf := n.inBuf[j]
			for _, ch := range buf {
				clear(ch)
			}
			for _, src := range srcs {
				mixInto(buf, src.node.out[src.output])
			}
			n.in[j] = buf
		}
		for _, ps := range s.params {
			ps.param.fill(ps.srcs)
		}
		n.impl.process(n)
	}
	e.frames.Add(BlockSize)
}

func (e *Engine) pair(src, dst modsynth.Node) (*node, *node, error) {
	s, d := asNode(src), asNode(dst)
	if s == nil || s.eng != e || d == nil || d.eng != e {
		return nil, nil, fmt.Errorf("node does not belong to this engine: %w", modsynth.ErrNotFound)
	}
	return s, d, nil
}

func (e *Engine) addLink(l link) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !slices.Contains(e.nodes, l.src) || !slices.Contains(e.nodes, l.dst) {
		return
	}
	if slices.Contains(e.links, l) {
		return
	}
	e.links = append(e.links, l)
	e.publish()
}

func (e *Engine) removeLink(l link) {
	if l.src == nil || l.dst == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	i := slices.Index(e.links, l)
	if i < 0 {
		return
	}
	e.links = slices.Delete(e.links, i, i+1)
	e.publish()
}

// publish builds a new plan from the current topology. Nodes are ordered so
// that sources run before the nodes they feed; a link closing a cycle reads
// the block rendered before.
func (e *Engine) publish() {
	order := e.order()
	steps := make([]step, len(order))
	for i, n := range order {
		s := step{node: n, inputs: make([][]source, len(n.inCh))}
		for _, p := range n.paramList {
			s.params = append(s.params, paramStep{param: p})
		}
		for _, l := range e.links {
			if l.dst != n {
				continue
			}
			src := source{node: l.src, output: l.output}
			if l.input >= 0 {
				s.inputs[l.input] = append(s.inputs[l.input], src)
				continue
			}
			target := n.params[l.param]
			for j := range s.params {
				if s.params[j].param == target {
					s.params[j].srcs = append(s.params[j].srcs, src)
				}
			}
		}
		steps[i] = s
	}
	e.plan.Store(&plan{steps: steps})
}

func (e *Engine) order() []*node {
	indegree := make(map[*node]int, len(e.nodes))
	for _, l := range e.links {
		if l.src != l.dst {
			indegree[l.dst]++
		}
	}
	done := make(map[*node]bool, len(e.nodes))
	ret := make([]*node, 0, len(e.nodes))
	for len(ret) < len(e.nodes) {
		var next *node
		for _, n := range e.nodes {
			if !done[n] && indegree[n] == 0 {
				next = n
				break
			}
		}
		if next == nil {
			// only cycles and what they feed remain: break the cycle of the
			// oldest node that is on one
			for _, n := range e.nodes {
				if done[n] {
					continue
				}
				if next == nil {
					next = n
				}
				if e.onCycle(n, done) {
					next = n
					break
				}
			}
		}
		done[next] = true
		ret = append(ret, next)
		for _, l := range e.links {
			if l.src == next && l.dst != next && !done[l.dst] {
				indegree[l.dst]--
			}
		}
	}
	return ret
}

// onCycle reports whether n reaches itself through nodes not yet done.
func (e *Engine) onCycle(n *node, done map[*node]bool) bool {
	seen := map[*node]bool{}
	stack := []*node{n}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, l := range e.links {
			if l.src != cur || done[l.dst] {
				continue
			}
			if l.dst == n {
				return true
			}
			if !seen[l.dst] {
				seen[l.dst] = true
				stack = append(stack, l.dst)
			}
		}
	}
	return false
}

func asNode(n modsynth.Node) *node {
	if b, ok := n.(interface{ base() *node }); ok {
		return b.base()
	}
	return nil
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	}
	return 0, false
}

func clampSample(v float32) float32 {
	if v != v {
		return 0
	}
	return max(-1, min(1, v))
}
