// Package modsynth contains the data model of a modular synthesizer patch:
// module descriptors with their parameters and jacks, the cables between
// jacks, and the capabilities (signal routing and devices) that module kinds
// drive when they are placed into a patch.
package modsynth

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

type (
	// Category groups module kinds in a palette.
	Category int

	// Handle identifies a module placed in a patch. Index is the arena slot
	// and Gen is the generation of the slot, so a handle of a removed module
	// never resolves to a module that later reused the same slot. The zero
	// Handle never refers to a live module.
	Handle struct {
		Index int
		Gen   uint32
	}

	// JackKey is the global key of a jack: the owning module plus the jack id
	// local to that module.
	JackKey struct {
		Module Handle
		Jack   string
	}

	// Cable links an output jack (Src) to an input jack (Dst).
	Cable struct {
		Src JackKey
		Dst JackKey
	}
)

const (
	Source Category = iota
	Filter
	Visual
	Other
)

// MasterJack is the jack id of the reserved master key. A JackKey with a zero
// Module handle and this jack id resolves to the terminal output of the
// routing capability instead of a module jack.
const MasterJack = "master"

// MasterKey is the destination key of the patch output.
var MasterKey = JackKey{Jack: MasterJack}

var (
	ErrNotFound        = errors.New("not found")
	ErrUnsupportedKind = errors.New("unsupported node kind")
	ErrNoDevice        = errors.New("no device available")
	ErrClosed          = errors.New("closed")
)

var categoryNames = [...]string{"source", "filter", "visual", "other"}

func (c Category) String() string {
	if c < 0 || int(c) >= len(categoryNames) {
		return "unknown"
	}
	return categoryNames[c]
}

// Valid reports whether the handle could refer to a live module.
func (h Handle) Valid() bool {
	return h.Gen != 0
}

func (h Handle) String() string {
	return fmt.Sprintf("m%d.%d", h.Index, h.Gen)
}

// IsMaster reports whether the key is the reserved master output key.
func (k JackKey) IsMaster() bool {
	return !k.Module.Valid() && k.Jack == MasterJack
}

// String formats the key as "m<index>.<gen>:<jack>", or "master".
func (k JackKey) String() string {
	if k.IsMaster() {
		return MasterJack
	}
	return k.Module.String() + ":" + k.Jack
}

// ParseJackKey parses a key formatted by JackKey.String.
func ParseJackKey(s string) (JackKey, error) {
	if s == MasterJack {
		return MasterKey, nil
	}
	mod, jack, ok := strings.Cut(s, ":")
	if !ok || jack == "" || !strings.HasPrefix(mod, "m") {
		return JackKey{}, fmt.Errorf("malformed jack key %q", s)
	}
	idx, gen, ok := strings.Cut(mod[1:], ".")
	if !ok {
		return JackKey{}, fmt.Errorf("malformed jack key %q", s)
	}
	i, err := strconv.Atoi(idx)
	if err != nil || i < 0 {
		return JackKey{}, fmt.Errorf("malformed module index in %q", s)
	}
	g, err := strconv.ParseUint(gen, 10, 32)
	if err != nil || g == 0 {
		return JackKey{}, fmt.Errorf("malformed module generation in %q", s)
	}
	return JackKey{Module: Handle{Index: i, Gen: uint32(g)}, Jack: jack}, nil
}

// Touches reports whether either end of the cable is the given key.
func (c Cable) Touches(k JackKey) bool {
	return c.Src == k || c.Dst == k
}

// TouchesModule reports whether either end of the cable belongs to h.
func (c Cable) TouchesModule(h Handle) bool {
	return c.Src.Module == h || c.Dst.Module == h
}

func (c Cable) String() string {
	return c.Src.String() + " -> " + c.Dst.String()
}
