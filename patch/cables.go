package patch

import (
	"slices"

	"github.com/sirupsen/logrus"
	"github.com/yuu528/ModSynth"
)

var masterJack = modsynth.Jack{ID: modsynth.MasterJack, Name: "Master", Role: modsynth.AudioInput}

// Connect creates a cable between two jacks, in whichever order they are
// given. Two outputs, two inputs, audio against control, unknown jacks and
// duplicates are ignored and reported as false. The link is made at once
// when both modules have their nodes, otherwise as soon as they do.
func (p *Patch) Connect(a, b modsynth.JackKey) bool {
	ja, ok := p.Jack(a)
	if !ok {
		return false
	}
	jb, ok := p.Jack(b)
	if !ok {
		return false
	}
	srcFirst, ok := modsynth.Orient(ja.Role, jb.Role)
	if !ok {
		return false
	}
	c := modsynth.Cable{Src: a, Dst: b}
	if !srcFirst {
		c = modsynth.Cable{Src: b, Dst: a}
	}
	if slices.ContainsFunc(p.cables, func(x cable) bool { return x.Cable == c }) {
		return false
	}
	p.cables = append(p.cables, cable{Cable: c})
	p.link(&p.cables[len(p.cables)-1])
	return true
}

// Disconnect removes and returns every cable touching key. The returned
// cables can be passed back to Connect after the node behind key has been
// replaced.
func (p *Patch) Disconnect(key modsynth.JackKey) []modsynth.Cable {
	return p.unlinkWhere(func(c modsynth.Cable) bool { return c.Touches(key) })
}

// Jack resolves a global jack key. The master key resolves to the terminal
// output of the routing capability.
func (p *Patch) Jack(key modsynth.JackKey) (modsynth.Jack, bool) {
	if key.IsMaster() {
		return masterJack, true
	}
	s, ok := p.slot(key.Module)
	if !ok {
		return modsynth.Jack{}, false
	}
	return s.module.Jack(key.Jack)
}

// Cables returns a copy of the cable list.
func (p *Patch) Cables() []modsynth.Cable {
	ret := make([]modsynth.Cable, len(p.cables))
	for i, c := range p.cables {
		ret[i] = c.Cable
	}
	return ret
}

// Linked reports whether the routing capability currently carries a cable.
func (p *Patch) Linked(c modsynth.Cable) bool {
	i := slices.IndexFunc(p.cables, func(x cable) bool { return x.Cable == c })
	return i >= 0 && p.cables[i].linked
}

// Modules returns the placed modules in display order.
func (p *Patch) Modules() []*modsynth.Module {
	ret := make([]*modsynth.Module, 0, len(p.order))
	for _, h := range p.order {
		if s, ok := p.slot(h); ok {
			ret = append(ret, s.module)
		}
	}
	return ret
}

// Module returns the module with the given handle.
func (p *Patch) Module(h modsynth.Handle) (*modsynth.Module, bool) {
	s, ok := p.slot(h)
	if !ok {
		return nil, false
	}
	return s.module, true
}

// Enabled reports whether the module has its nodes.
func (p *Patch) Enabled(h modsynth.Handle) bool {
	s, ok := p.slot(h)
	return ok && s.enabled
}

// Len is the number of placed modules.
func (p *Patch) Len() int { return len(p.order) }

func (p *Patch) unlinkWhere(match func(modsynth.Cable) bool) []modsynth.Cable {
	var removed []modsynth.Cable
	kept := p.cables[:0]
	var unlink []cable
	for _, c := range p.cables {
		if match(c.Cable) {
			removed = append(removed, c.Cable)
			unlink = append(unlink, c)
			continue
		}
		kept = append(kept, c)
	}
	clear(p.cables[len(kept):])
	p.cables = kept
	for i := range unlink {
		p.unlink(&unlink[i])
	}
	return removed
}

// endpoint resolves the node behind a jack, if it exists yet.
func (p *Patch) endpoint(key modsynth.JackKey) (modsynth.Endpoint, bool) {
	if key.IsMaster() {
		return modsynth.Endpoint{Node: p.routing.Destination()}, true
	}
	s, ok := p.slot(key.Module)
	if !ok || !s.enabled {
		return modsynth.Endpoint{}, false
	}
	return s.module.Kind.Endpoint(key.Jack)
}

func (p *Patch) link(c *cable) {
	if c.linked {
		return
	}
	src, ok := p.endpoint(c.Src)
	if !ok {
		return
	}
	dst, ok := p.endpoint(c.Dst)
	if !ok {
		return
	}
	var err error
	if dst.Param != "" {
		err = p.routing.ConnectParam(src.Node, src.Index, dst.Node, dst.Param)
	} else {
		err = p.routing.Connect(src.Node, src.Index, dst.Node, dst.Index)
	}
	if err != nil {
		p.log.WithFields(logrus.Fields{"cable": c.Cable}).WithError(err).Warn("cannot link cable")
		return
	}
	c.linked = true
	p.hook(c.Dst, true)
}

func (p *Patch) unlink(c *cable) {
	if !c.linked {
		return
	}
	c.linked = false
	src, ok := p.endpoint(c.Src)
	if !ok {
		return
	}
	dst, ok := p.endpoint(c.Dst)
	if !ok {
		return
	}
	if dst.Param != "" {
		p.routing.DisconnectParam(src.Node, src.Index, dst.Node, dst.Param)
	} else {
		p.routing.Disconnect(src.Node, src.Index, dst.Node, dst.Index)
	}
	p.hook(c.Dst, false)
}

func (p *Patch) hook(key modsynth.JackKey, connected bool) {
	if key.IsMaster() {
		return
	}
	s, ok := p.slot(key.Module)
	if !ok || !s.enabled {
		return
	}
	hk, ok := s.module.Kind.(modsynth.ConnectHook)
	if !ok {
		return
	}
	if connected {
		hk.OnConnected(s.module, p.host(key.Module), key.Jack)
	} else {
		hk.OnDisconnected(s.module, p.host(key.Module), key.Jack)
	}
}

// relink links the cables whose endpoints have appeared since they were
// created.
func (p *Patch) relink() {
	for i := 0; i < len(p.cables); i++ {
		p.link(&p.cables[i])
	}
}
