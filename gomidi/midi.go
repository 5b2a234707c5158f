package gomidi

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/yuu528/ModSynth"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

type (
	// Context lists the MIDI input ports of a driver and shares each opened
	// port among its listeners: a port is opened on the first ListenMIDI and
	// closed when the last listener stops.
	Context struct {
		ports  func() ([]port, error)
		closer func() error
		log    logrus.FieldLogger

		mu   sync.Mutex
		open map[string]*listening
	}

	port struct {
		name   string
		listen func(recv func(midi.Message, int32)) (stop func(), err error)
		close  func() error
	}

	listening struct {
		port     port
		stop     func()
		handlers map[int]func(modsynth.MIDIEvent)
		next     int
	}
)

// NewContext wraps a driver, typically rtmididrv. A nil driver gives a
// context without ports.
func NewContext(drv drivers.Driver, log logrus.FieldLogger) *Context {
	c := newContext(nil, nil, log)
	if drv == nil {
		return c
	}
	c.closer = drv.Close
	c.ports = func() ([]port, error) {
		ins, err := drv.Ins()
		if err != nil {
			return nil, fmt.Errorf("listing MIDI inputs failed: %w", err)
		}
		ret := make([]port, len(ins))
		for i, in := range ins {
			ret[i] = driverPort(in)
		}
		return ret, nil
	}
	return c
}

func driverPort(in drivers.In) port {
	return port{
		name: in.String(),
		listen: func(recv func(midi.Message, int32)) (func(), error) {
			if !in.IsOpen() {
				if err := in.Open(); err != nil {
					return nil, fmt.Errorf("opening MIDI input failed: %w", err)
				}
			}
			return midi.ListenTo(in, recv)
		},
		close: in.Close,
	}
}

func newContext(ports func() ([]port, error), closer func() error, log logrus.FieldLogger) *Context {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	if ports == nil {
		ports = func() ([]port, error) { return nil, nil }
	}
	return &Context{ports: ports, closer: closer, log: log, open: map[string]*listening{}}
}

func (c *Context) MIDIInputs() ([]modsynth.DeviceInfo, error) {
	ports, err := c.ports()
	if err != nil {
		return nil, err
	}
	ret := make([]modsynth.DeviceInfo, len(ports))
	for i, p := range ports {
		ret[i] = modsynth.DeviceInfo{ID: p.name, Name: p.name}
	}
	return ret, nil
}

// ListenMIDI subscribes handler to the port named id. The handler runs on
// the driver goroutine.
func (c *Context) ListenMIDI(id string, handler func(modsynth.MIDIEvent)) (func(), error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.open[id]
	if !ok {
		p, err := c.find(id)
		if err != nil {
			return nil, err
		}
		l = &listening{port: p, handlers: map[int]func(modsynth.MIDIEvent){}}
		stop, err := p.listen(func(msg midi.Message, _ int32) { c.dispatch(l, msg) })
		if err != nil {
			return nil, err
		}
		l.stop = stop
		c.open[id] = l
		c.log.WithField("port", id).Debug("MIDI input opened")
	}
	key := l.next
	l.next++
	l.handlers[key] = handler
	var once sync.Once
	return func() { once.Do(func() { c.unsubscribe(id, l, key) }) }, nil
}

// TryToOpenBy returns the first port whose name starts with prefix, or the
// first port at all when takeFirst is set and none matches.
func (c *Context) TryToOpenBy(prefix string, takeFirst bool) (string, bool) {
	ports, err := c.ports()
	if err != nil {
		c.log.WithError(err).Warn("cannot list MIDI inputs")
		return "", false
	}
	if prefix != "" {
		for _, p := range ports {
			if strings.HasPrefix(p.name, prefix) {
				return p.name, true
			}
		}
	}
	if (takeFirst || prefix == "") && len(ports) > 0 {
		return ports[0].name, true
	}
	return "", false
}

// Close stops every listener and closes the driver.
func (c *Context) Close() error {
	c.mu.Lock()
	open := c.open
	c.open = map[string]*listening{}
	c.mu.Unlock()
	var errs []error
	for _, l := range open {
		errs = append(errs, c.shut(l))
	}
	if c.closer != nil {
		errs = append(errs, c.closer())
	}
	return errors.Join(errs...)
}

func (c *Context) find(id string) (port, error) {
	ports, err := c.ports()
	if err != nil {
		return port{}, err
	}
	for _, p := range ports {
		if p.name == id {
			return p, nil
		}
	}
	return port{}, fmt.Errorf("MIDI input %q: %w", id, modsynth.ErrNoDevice)
}

func (c *Context) dispatch(l *listening, msg midi.Message) {
	ev, ok := Decode(msg)
	if !ok {
		return
	}
	c.mu.Lock()
	handlers := make([]func(modsynth.MIDIEvent), 0, len(l.handlers))
	for _, h := range l.handlers {
		handlers = append(handlers, h)
	}
	c.mu.Unlock()
	for _, h := range handlers {
		h(ev)
	}
}

func (c *Context) unsubscribe(id string, l *listening, key int) {
	c.mu.Lock()
	delete(l.handlers, key)
	last := len(l.handlers) == 0 && c.open[id] == l
	if last {
		delete(c.open, id)
	}
	c.mu.Unlock()
	if !last {
		return
	}
	if err := c.shut(l); err != nil {
		c.log.WithError(err).WithField("port", id).Warn("cannot close MIDI input")
		return
	}
	c.log.WithField("port", id).Debug("MIDI input closed")
}

func (c *Context) shut(l *listening) error {
	if l.stop != nil {
		l.stop()
	}
	if l.port.close != nil {
		return l.port.close()
	}
	return nil
}

// Decode converts a note message into an event. A note-on with zero velocity
// is a note-off. Other messages report false.
func Decode(msg midi.Message) (modsynth.MIDIEvent, bool) {
	var channel, key, velocity uint8
	switch {
	case msg.GetNoteOn(&channel, &key, &velocity):
		return modsynth.MIDIEvent{On: velocity > 0, Note: key, Velocity: velocity}, true
	case msg.GetNoteOff(&channel, &key, &velocity):
		return modsynth.MIDIEvent{On: false, Note: key, Velocity: velocity}, true
	}
	return modsynth.MIDIEvent{}, false
}
