// Package modules implements the module kinds of the palette: sources,
// filters and the monitor. Every kind builds its nodes through the routing
// capability of the patch it is placed into, so the package works against
// any host implementing modsynth.Routing.
package modules

import (
	"fmt"

	"github.com/yuu528/ModSynth"
)

type entry struct {
	desc modsynth.Descriptor
	kind func() modsynth.Kind
}

// Palette returns a fresh module of every kind, sources first, then filters,
// then the visual modules.
func Palette() []*modsynth.Module {
	ret := make([]*modsynth.Module, len(palette))
	for i := range palette {
		ret[i] = instance(&palette[i])
	}
	return ret
}

// New returns a fresh module of the kind with the given id.
func New(id string) (*modsynth.Module, bool) {
	for i := range palette {
		if palette[i].desc.ID == id {
			return instance(&palette[i]), true
		}
	}
	return nil, false
}

// IDs lists the kind ids in palette order.
func IDs() []string {
	ret := make([]string, len(palette))
	for i := range palette {
		ret[i] = palette[i].desc.ID
	}
	return ret
}

func instance(e *entry) *modsynth.Module {
	return &modsynth.Module{Descriptor: e.desc.Copy(), Kind: e.kind()}
}

// graph holds the nodes of one module instance and the jacks they serve.
// Node creation and linking errors are sticky: after the first failure the
// remaining calls do nothing and done releases what was built.
type graph struct {
	r     modsynth.Routing
	nodes []modsynth.Node
	ports map[string]modsynth.Endpoint
	err   error
}

func (g *graph) enable(h modsynth.Host) {
	if g.r != nil {
		panic("modules: module enabled twice")
	}
	g.r = h.Routing()
	g.ports = map[string]modsynth.Endpoint{}
}

func (g *graph) node(kind modsynth.NodeKind, opts modsynth.Options) modsynth.Node {
	if g.err != nil {
		return nil
	}
	n, err := g.r.CreateNode(kind, opts)
	if err != nil {
		g.err = fmt.Errorf("create %v node: %w", kind, err)
		return nil
	}
	g.nodes = append(g.nodes, n)
	return n
}

func (g *graph) connect(src, dst modsynth.Node) {
	g.link(src, 0, dst, 0)
}

func (g *graph) link(src modsynth.Node, output int, dst modsynth.Node, input int) {
	if g.err != nil {
		return
	}
	if err := g.r.Connect(src, output, dst, input); err != nil {
		g.err = fmt.Errorf("connect %v to %v: %w", src.Kind(), dst.Kind(), err)
	}
}

func (g *graph) modulate(src, dst modsynth.Node, param string) {
	if g.err != nil {
		return
	}
	if err := g.r.ConnectParam(src, 0, dst, param); err != nil {
		g.err = fmt.Errorf("connect %v to %v.%s: %w", src.Kind(), dst.Kind(), param, err)
	}
}

func (g *graph) port(jack string, n modsynth.Node, index int) {
	g.ports[jack] = modsynth.Endpoint{Node: n, Index: index}
}

func (g *graph) done() error {
	if g.err != nil {
		g.release()
	}
	return g.err
}

func (g *graph) release() {
	if g.r == nil {
		return
	}
	for _, n := range g.nodes {
		g.r.Release(n)
	}
	g.nodes = nil
	clear(g.ports)
}

func (g *graph) drop(n modsynth.Node) {
	for i, x := range g.nodes {
		if x == n {
			g.r.Release(n)
			g.nodes = append(g.nodes[:i], g.nodes[i+1:]...)
			return
		}
	}
}

func (g *graph) Endpoint(jack string) (modsynth.Endpoint, bool) {
	ep, ok := g.ports[jack]
	return ep, ok && ep.Node != nil
}

func (g *graph) Disable(modsynth.Host) { g.release() }

// set applies a value to a node parameter. Values come out of Param.Coerce,
// so a failure means the node does not have the parameter.
func set(h modsynth.Host, n modsynth.Node, param string, value float64) {
	if n == nil {
		return
	}
	if err := n.Set(param, value); err != nil {
		h.Log().WithError(err).Warn("cannot apply parameter")
	}
}

func option(h modsynth.Host, n modsynth.Node, name string, value any) {
	if n == nil {
		return
	}
	if err := n.SetOption(name, value); err != nil {
		h.Log().WithError(err).Warn("cannot apply option")
	}
}

// closerFunc adapts an unsubscribe function to io.Closer.
type closerFunc func()

func (f closerFunc) Close() error {
	f()
	return nil
}
