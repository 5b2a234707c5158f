package engine

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/yuu528/ModSynth"
)

type (
	// Wave is the waveform of an oscillator.
	Wave int32

	oscillator struct {
		sampleRate float64
		frequency  *param
		wave       atomic.Int32
		phase      float64
	}

	constant struct {
		offset *param
	}

	bufferSource struct {
		sampleRate   float64
		playbackRate *param
		sample       atomic.Pointer[modsynth.Sample]
		playing      atomic.Bool
		seek         atomic.Uint64 // float64 bits + 1 of the requested position, 0 when none
		position     atomic.Uint64 // float64 bits of the position in seconds
		loop         atomic.Bool
		pos          float64 // render position in sample frames
	}

	streamSource struct {
		stream modsynth.AudioStream
	}
)

const (
	Sine Wave = iota
	Square
	Sawtooth
	Triangle
)

var waveNames = [...]string{"sine", "square", "sawtooth", "triangle"}

func (w Wave) String() string {
	if w < 0 || int(w) >= len(waveNames) {
		return "unknown"
	}
	return waveNames[w]
}

// ParseWave returns the wave with the given name.
func ParseWave(name string) (Wave, bool) {
	for i, n := range waveNames {
		if n == name {
			return Wave(i), true
		}
	}
	return 0, false
}

// WaveNames lists the oscillator types in order.
func WaveNames() []string {
	return waveNames[:]
}

func buildOscillator(e *Engine, _ modsynth.Options) (*node, error) {
	n := e.newNode(modsynth.NodeOscillator, nil, []int{1})
	n.impl = &oscillator{
		sampleRate: e.sampleRate,
		frequency:  n.addParam("frequency", 440, -e.sampleRate/2, e.sampleRate/2),
	}
	return n, nil
}

func (o *oscillator) setOption(name string, value any) error {
	if name != "type" {
		return fmt.Errorf("oscillator has no option %q: %w", name, modsynth.ErrNotFound)
	}
	var w Wave
	switch v := value.(type) {
	case string:
		var ok bool
		if w, ok = ParseWave(v); !ok {
			return fmt.Errorf("unknown oscillator type %q", v)
		}
	case Wave:
		w = v
	default:
		return fmt.Errorf("oscillator type must be a string, got %T", value)
	}
	o.wave.Store(int32(w))
	return nil
}

func (o *oscillator) process(n *node) {
	out := n.out[0][0]
	freq := o.frequency.buf
	wave := Wave(o.wave.Load())
	for i := range out {
		out[i] = float32(wave.at(o.phase))
		o.phase += float64(freq[i]) / o.sampleRate
		o.phase -= math.Floor(o.phase)
	}
}

// at returns the wave at phase in [0, 1).
func (w Wave) at(phase float64) float64 {
	switch w {
	case Square:
		if phase < 0.5 {
			return 1
		}
		return -1
	case Sawtooth:
		t := phase + 0.5
		return 2*(t-math.Floor(t)) - 1
	case Triangle:
		t := phase + 0.25
		t -= math.Floor(t)
		return 1 - 4*math.Abs(t-0.5)
	}
	return math.Sin(2 * math.Pi * phase)
}

func buildConstant(e *Engine, _ modsynth.Options) (*node, error) {
	n := e.newNode(modsynth.NodeConstant, nil, []int{1})
	n.impl = &constant{offset: n.addParam("offset", 1, math.Inf(-1), math.Inf(1))}
	return n, nil
}

func (c *constant) process(n *node) {
	copy(n.out[0][0], c.offset.buf)
}

func buildBufferSource(e *Engine, _ modsynth.Options) (*node, error) {
	n := e.newNode(modsynth.NodeBufferSource, nil, []int{2})
	n.impl = &bufferSource{
		sampleRate:   e.sampleRate,
		playbackRate: n.addParam("playbackRate", 1, 0, 16),
	}
	return n, nil
}

// setOption accepts "buffer" (*modsynth.Sample), "playing" (bool), "loop"
// (bool) and "position" (seconds, float64).
func (b *bufferSource) setOption(name string, value any) error {
	switch name {
	case "buffer":
		s, ok := value.(*modsynth.Sample)
		if !ok {
			return fmt.Errorf("buffer must be a *modsynth.Sample, got %T", value)
		}
		b.sample.Store(s)
		b.seek.Store(1)
		return nil
	case "playing", "loop":
		v, ok := value.(bool)
		if !ok {
			return fmt.Errorf("%s must be a bool, got %T", name, value)
		}
		if name == "loop" {
			b.loop.Store(v)
		} else {
			b.playing.Store(v)
		}
		return nil
	case "position":
		f, ok := toFloat(value)
		if !ok || f < 0 || math.IsNaN(f) {
			return fmt.Errorf("position must be a non-negative number, got %v", value)
		}
		b.seek.Store(math.Float64bits(f) + 1)
		return nil
	}
	return fmt.Errorf("buffer source has no option %q: %w", name, modsynth.ErrNotFound)
}

func (b *bufferSource) get(name string) (float64, bool) {
	switch name {
	case "position":
		return math.Float64frombits(b.position.Load()), true
	case "duration":
		s := b.sample.Load()
		if s == nil || s.SampleRate <= 0 {
			return 0, true
		}
		return float64(len(s.Data)) / s.SampleRate, true
	case "playing":
		if b.playing.Load() {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func (b *bufferSource) process(n *node) {
	l, r := n.out[0][0], n.out[0][1]
	s := b.sample.Load()
	if seek := b.seek.Swap(0); seek != 0 && s != nil {
		b.pos = math.Float64frombits(seek-1) * s.SampleRate
	}
	if s == nil || len(s.Data) == 0 || s.SampleRate <= 0 || !b.playing.Load() {
		clear(l)
		clear(r)
		return
	}
	rate := b.playbackRate.buf
	step := s.SampleRate / b.sampleRate
	end := float64(len(s.Data))
	for i := range l {
		if b.pos >= end {
			if !b.loop.Load() {
				clear(l[i:])
				clear(r[i:])
				b.playing.Store(false)
				b.pos = 0
				break
			}
			b.pos = math.Mod(b.pos, end)
		}
		j := int(b.pos)
		frac := float32(b.pos - float64(j))
		a := s.Data[j]
		c := a
		if j+1 < len(s.Data) {
			c = s.Data[j+1]
		}
		l[i] = a[0] + (c[0]-a[0])*frac
		r[i] = a[1] + (c[1]-a[1])*frac
		b.pos += step * float64(rate[i])
	}
	b.position.Store(math.Float64bits(b.pos / s.SampleRate))
}

func buildStream(e *Engine, opts modsynth.Options) (*node, error) {
	s, ok := opts["stream"].(modsynth.AudioStream)
	if !ok {
		return nil, fmt.Errorf("option \"stream\" must be a modsynth.AudioStream")
	}
	n := e.newNode(modsynth.NodeStream, nil, []int{1})
	n.impl = &streamSource{stream: s}
	return n, nil
}

func (s *streamSource) process(n *node) {
	out := n.out[0][0]
	got := s.stream.ReadSamples(out)
	clear(out[got:])
}
