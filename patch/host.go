package patch

import (
	"github.com/sirupsen/logrus"
	"github.com/yuu528/ModSynth"
)

// host is the view of the patch given to one module.
type host struct {
	p *Patch
	h modsynth.Handle
}

var _ modsynth.Host = host{}

func (p *Patch) host(h modsynth.Handle) host { return host{p: p, h: h} }

func (h host) Handle() modsynth.Handle { return h.h }

func (h host) Routing() modsynth.Routing { return h.p.routing }

func (h host) Devices() modsynth.Devices { return h.p.devices }

func (h host) Acquire(fn modsynth.AcquireFunc) { h.p.acquire(h.h, fn) }

func (h host) Log() logrus.FieldLogger {
	f := logrus.Fields{"handle": h.h}
	if m, ok := h.p.Module(h.h); ok {
		f["module"] = m.ID
	}
	return h.p.log.WithFields(f)
}

func (h host) Disconnect(jack string) []modsynth.Cable {
	return h.p.Disconnect(modsynth.JackKey{Module: h.h, Jack: jack})
}

func (h host) Connect(a, b modsynth.JackKey) bool { return h.p.Connect(a, b) }
