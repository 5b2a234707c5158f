package modsynth

import (
	"context"
	"io"
	"slices"

	"github.com/sirupsen/logrus"
)

type (
	// Descriptor is the identity, parameters and jacks of a module.
	Descriptor struct {
		ID       string // kind id, e.g. "oscillator"
		Name     string
		Category Category
		Params   Params
		Jacks    []Jack
	}

	// Module is an instance of a module kind. Handle is zero until the module
	// is placed into a patch.
	Module struct {
		Descriptor
		Handle Handle
		Kind   Kind
	}

	// Kind is the behaviour of a module kind. A Kind value holds the
	// per-instance processing state (its nodes), so every Module owns its own
	// Kind value.
	Kind interface {
		// Enable creates and wires the internal nodes of the module using the
		// current parameter values. The patch calls it exactly once.
		Enable(m *Module, h Host) error
		// UpdateValue applies the already stored value of parameter id to
		// the live nodes. It runs only while the module is enabled.
		UpdateValue(m *Module, h Host, id string)
		// Endpoint resolves a local jack id to the node behind it. It returns
		// false while the node does not exist, e.g. before Enable or while an
		// acquisition is pending.
		Endpoint(jack string) (Endpoint, bool)
		// Disable releases nodes and acquired resources.
		Disable(h Host)
		// Clone returns a fresh Kind without nodes.
		Clone() Kind
	}

	// ConnectHook is implemented by kinds that reroute internally when one
	// of their control inputs gets or loses a cable.
	ConnectHook interface {
		OnConnected(m *Module, h Host, jack string)
		OnDisconnected(m *Module, h Host, jack string)
	}

	// Acquirer is implemented by kinds that call Host.Acquire. OnAcquired
	// runs in the control domain with the resource produced by the acquire
	// function; the kind owns res afterwards.
	Acquirer interface {
		OnAcquired(m *Module, h Host, res io.Closer)
	}

	// Initializer is implemented by kinds that fill parameter choices from
	// the device capability before the module is placed.
	Initializer interface {
		Init(m *Module, d Devices)
	}

	// Linker is implemented by kinds whose parameters constrain each
	// other. LinkParams runs after every accepted value change of id,
	// whether or not the module is enabled, and may change the metadata of
	// the other parameters.
	Linker interface {
		LinkParams(p Params, id string)
	}

	// Refresher is implemented by kinds with read-only meter parameters.
	Refresher interface {
		Refresh(m *Module)
	}

	// AcquireFunc produces a resource asynchronously, e.g. a device stream.
	// It must return promptly when ctx is done.
	AcquireFunc func(ctx context.Context) (io.Closer, error)

	// Host is what a patch offers to one of its modules.
	Host interface {
		Handle() Handle
		Routing() Routing
		Devices() Devices
		Log() logrus.FieldLogger
		// Acquire runs fn outside the control domain. Only the result of the
		// latest Acquire of a module is delivered to Acquirer.OnAcquired;
		// superseded results and results for removed modules are closed.
		Acquire(fn AcquireFunc)
		// Disconnect removes and returns the cables touching a jack of the
		// module.
		Disconnect(jack string) []Cable
		// Connect connects two jacks anywhere in the patch.
		Connect(a, b JackKey) bool
	}
)

// Jack returns the jack with the given local id.
func (d *Descriptor) Jack(id string) (Jack, bool) {
	i := slices.IndexFunc(d.Jacks, func(j Jack) bool { return j.ID == id })
	if i < 0 {
		return Jack{}, false
	}
	return d.Jacks[i], true
}

// Copy returns a deep copy of the descriptor.
func (d *Descriptor) Copy() Descriptor {
	ret := *d
	ret.Params = d.Params.Copy()
	ret.Jacks = slices.Clone(d.Jacks)
	return ret
}

// Clone returns a fresh placeable copy of the module: parameters are copied,
// nodes are not.
func (m *Module) Clone() *Module {
	ret := &Module{Descriptor: m.Descriptor.Copy()}
	if m.Kind != nil {
		ret.Kind = m.Kind.Clone()
	}
	return ret
}

// Key returns the global key of a jack of this module.
func (m *Module) Key(jack string) JackKey {
	return JackKey{Module: m.Handle, Jack: jack}
}
