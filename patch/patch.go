// Package patch implements the patch graph manager: the controller object
// that owns the placed modules, their display order and the cables between
// their jacks, and mediates every link against the routing capability.
//
// A Patch belongs to the control domain. Its methods are not safe for
// concurrent use; acquisitions started by modules run on their own goroutines
// and report back through a channel that Update and Wait drain.
package patch

import (
	"context"
	"io"
	"slices"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/yuu528/ModSynth"
)

type (
	Patch struct {
		routing modsynth.Routing
		devices modsynth.Devices
		log     logrus.FieldLogger

		slots  []slot
		free   []int
		order  []modsynth.Handle
		cables []cable

		inbox  chan acquired
		ctx    context.Context
		cancel context.CancelFunc
		wg     sync.WaitGroup
		closed bool
	}

	// Option configures a Patch.
	Option func(*Patch)

	slot struct {
		module  *modsynth.Module
		gen     uint32
		enabled bool
		pending bool   // enable queued for the next Update
		ticket  uint64 // id of the latest acquisition; older results are stale
	}

	cable struct {
		modsynth.Cable
		linked bool // the routing capability carries the link
	}

	acquired struct {
		handle modsynth.Handle
		ticket uint64
		res    io.Closer
		err    error
	}
)

const inboxSize = 64

// WithLogger sets the logger for module lifecycle events.
func WithLogger(l logrus.FieldLogger) Option {
	return func(p *Patch) { p.log = l }
}

// WithDevices sets the device capability offered to the modules.
func WithDevices(d modsynth.Devices) Option {
	return func(p *Patch) { p.devices = d }
}

// New returns an empty patch linking through routing.
func New(routing modsynth.Routing, opts ...Option) *Patch {
	ctx, cancel := context.WithCancel(context.Background())
	p := &Patch{
		routing: routing,
		devices: modsynth.NullDevices{},
		inbox:   make(chan acquired, inboxSize),
		ctx:     ctx,
		cancel:  cancel,
	}
	for _, o := range opts {
		o(p)
	}
	if p.log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		p.log = l
	}
	return p
}

// AddModule places m into a free slot and returns its handle. The module is
// enabled on the next Update, not during the call.
func (p *Patch) AddModule(m *modsynth.Module) modsynth.Handle {
	var i int
	if n := len(p.free); n > 0 {
		i = p.free[n-1]
		p.free = p.free[:n-1]
	} else {
		i = len(p.slots)
		p.slots = append(p.slots, slot{gen: 1})
	}
	return p.place(m, i)
}

// AddModuleAt places m into the slot with the given index, which must be
// free. It reports false when the slot is taken.
func (p *Patch) AddModuleAt(m *modsynth.Module, index int) (modsynth.Handle, bool) {
	if index < 0 {
		return modsynth.Handle{}, false
	}
	for len(p.slots) <= index {
		p.free = append(p.free, len(p.slots))
		p.slots = append(p.slots, slot{gen: 1})
	}
	if p.slots[index].module != nil {
		return modsynth.Handle{}, false
	}
	p.free = slices.DeleteFunc(p.free, func(i int) bool { return i == index })
	return p.place(m, index), true
}

func (p *Patch) place(m *modsynth.Module, i int) modsynth.Handle {
	s := &p.slots[i]
	h := modsynth.Handle{Index: i, Gen: s.gen}
	m.Handle = h
	s.module = m
	s.pending = true
	p.order = append(p.order, h)
	if in, ok := m.Kind.(modsynth.Initializer); ok {
		in.Init(m, p.devices)
	}
	p.log.WithFields(logrus.Fields{"module": m.ID, "handle": h}).Debug("module added")
	return h
}

// RemoveModule disconnects every cable touching the module, releases its
// nodes and frees the slot. It is safe while the enable or an acquisition is
// still pending; a late acquisition result is closed on arrival.
func (p *Patch) RemoveModule(h modsynth.Handle) bool {
	s, ok := p.slot(h)
	if !ok {
		return false
	}
	m := s.module
	p.unlinkWhere(func(c modsynth.Cable) bool { return c.TouchesModule(h) })
	if s.enabled {
		m.Kind.Disable(p.host(h))
	}
	s.module = nil
	s.enabled = false
	s.pending = false
	s.ticket = 0
	s.gen++
	if s.gen == 0 {
		s.gen = 1
	}
	p.free = append(p.free, h.Index)
	p.order = slices.DeleteFunc(p.order, func(o modsynth.Handle) bool { return o == h })
	m.Handle = modsynth.Handle{}
	p.log.WithFields(logrus.Fields{"module": m.ID, "handle": h}).Debug("module removed")
	return true
}

// Reorder moves the module from before the module to in the display order,
// or to the end when to is the zero handle. The signal topology is not
// affected.
func (p *Patch) Reorder(from, to modsynth.Handle) bool {
	i := slices.Index(p.order, from)
	if i < 0 || from == to {
		return false
	}
	p.order = slices.Delete(p.order, i, i+1)
	j := len(p.order)
	if to.Valid() {
		if k := slices.Index(p.order, to); k >= 0 {
			j = k
		}
	}
	p.order = slices.Insert(p.order, j, from)
	return true
}

// UpdateValue sets parameter id of the module to value and applies it to the
// live nodes. Values of the wrong kind and disabled parameters are ignored.
func (p *Patch) UpdateValue(h modsynth.Handle, id string, value any) bool {
	s, ok := p.slot(h)
	if !ok {
		return false
	}
	m := s.module
	par, ok := m.Params.Find(id)
	if !ok || par.Disabled {
		return false
	}
	v, ok := par.Coerce(value)
	if !ok {
		return false
	}
	par.Value = v
	if l, ok := m.Kind.(modsynth.Linker); ok {
		l.LinkParams(m.Params, id)
	}
	if s.enabled {
		m.Kind.UpdateValue(m, p.host(h), id)
		p.relink()
	}
	return true
}

// RefreshMeters updates the read-only meter parameters of the enabled
// modules.
func (p *Patch) RefreshMeters() {
	for i := range p.slots {
		s := &p.slots[i]
		if !s.enabled {
			continue
		}
		if r, ok := s.module.Kind.(modsynth.Refresher); ok {
			r.Refresh(s.module)
		}
	}
}

// Update enables the modules added since the last call and delivers the
// finished acquisitions. It does not block.
func (p *Patch) Update() {
	p.update()
}

// update returns the number of delivered acquisitions.
func (p *Patch) update() int {
	for i := range p.slots {
		s := &p.slots[i]
		if s.module == nil || !s.pending {
			continue
		}
		s.pending = false
		p.enable(modsynth.Handle{Index: i, Gen: s.gen}, s)
	}
	n := 0
	for {
		select {
		case msg := <-p.inbox:
			p.deliver(msg)
			n++
		default:
			p.relink()
			return n
		}
	}
}

// Wait runs Update and, when it delivered nothing, blocks until an
// acquisition finishes or ctx is done.
func (p *Patch) Wait(ctx context.Context) error {
	if p.closed {
		return modsynth.ErrClosed
	}
	if p.update() > 0 {
		return nil
	}
	select {
	case msg := <-p.inbox:
		p.deliver(msg)
	case <-ctx.Done():
		return ctx.Err()
	}
	p.Update()
	return nil
}

// Close removes every module, cancels the outstanding acquisitions and waits
// for them to finish. Results that arrive late are closed.
func (p *Patch) Close() {
	if p.closed {
		return
	}
	for _, h := range slices.Clone(p.order) {
		p.RemoveModule(h)
	}
	p.closed = true
	p.cancel()
	p.wg.Wait()
	for {
		select {
		case msg := <-p.inbox:
			p.deliver(msg)
		default:
			return
		}
	}
}

func (p *Patch) enable(h modsynth.Handle, s *slot) {
	m := s.module
	log := p.log.WithFields(logrus.Fields{"module": m.ID, "handle": h})
	if err := m.Kind.Enable(m, p.host(h)); err != nil {
		log.WithError(err).Warn("cannot enable module")
		return
	}
	s.enabled = true
	log.Debug("module enabled")
}

func (p *Patch) acquire(h modsynth.Handle, fn modsynth.AcquireFunc) {
	s, ok := p.slot(h)
	if !ok || p.closed {
		return
	}
	s.ticket++
	ticket := s.ticket
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		res, err := fn(p.ctx)
		msg := acquired{handle: h, ticket: ticket, res: res, err: err}
		select {
		case p.inbox <- msg:
		case <-p.ctx.Done():
			if res != nil {
				res.Close()
			}
		}
	}()
}

func (p *Patch) deliver(msg acquired) {
	s, ok := p.slot(msg.handle)
	log := p.log.WithField("handle", msg.handle)
	if !ok || !s.enabled || s.ticket != msg.ticket {
		if msg.res != nil {
			msg.res.Close()
		}
		log.Debug("stale acquisition released")
		return
	}
	m := s.module
	log = log.WithField("module", m.ID)
	if msg.err != nil {
		log.WithError(msg.err).Warn("acquisition failed")
		return
	}
	a, ok := m.Kind.(modsynth.Acquirer)
	if !ok {
		if msg.res != nil {
			msg.res.Close()
		}
		return
	}
	a.OnAcquired(m, p.host(msg.handle), msg.res)
	p.relink()
}

func (p *Patch) slot(h modsynth.Handle) (*slot, bool) {
	if !h.Valid() || h.Index < 0 || h.Index >= len(p.slots) {
		return nil, false
	}
	s := &p.slots[h.Index]
	if s.module == nil || s.gen != h.Gen {
		return nil, false
	}
	return s, true
}
