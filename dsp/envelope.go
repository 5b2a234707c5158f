package dsp

import (
	"math"
	"sync/atomic"
)

type (
	// Phase is the stage of an envelope.
	Phase int

	// EnvelopeCoeffs are the per-sample increments of an envelope, derived
	// from times in seconds by NewEnvelopeCoeffs.
	EnvelopeCoeffs struct {
		attack  float64 // level increment per sample
		hold    float64 // hold length in samples
		decay   float64 // level decrement per sample
		sustain float64
		release float64 // level decrement per sample
	}

	// Envelope is the attack-hold-decay-sustain-release state machine. It is
	// advanced one sample at a time with Step and has no other state than
	// its phase, level and sample counter.
	Envelope struct {
		phase   Phase
		level   float64
		samples int
	}

	// ADSR is a block processor running an Envelope on its first input. The
	// coefficients are handed over from the control domain with an atomic
	// pointer and read once per block.
	ADSR struct {
		sampleRate float64
		coeffs     atomic.Pointer[EnvelopeCoeffs]
		env        Envelope
	}
)

const (
	Idle Phase = iota
	Attack
	Hold
	Decay
	Sustain
	Release
)

var phaseNames = [...]string{"idle", "attack", "hold", "decay", "sustain", "release"}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return "unknown"
	}
	return phaseNames[p]
}

// NewEnvelopeCoeffs converts times in seconds and a sustain level in [0, 1]
// to increments. Times shorter than one sample count as one sample and the
// sustain level is clamped, so the increments are always finite.
func NewEnvelopeCoeffs(attack, hold, decay, sustain, release, sampleRate float64) EnvelopeCoeffs {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		sampleRate = 1
	}
	sustain = clamp01(sustain)
	return EnvelopeCoeffs{
		attack:  1 / samples(attack, sampleRate),
		hold:    math.Max(0, finite(hold)*sampleRate),
		decay:   (1 - sustain) / samples(decay, sampleRate),
		sustain: sustain,
		release: 1 / samples(release, sampleRate),
	}
}

// Step advances the envelope by one sample and returns the new level.
func (e *Envelope) Step(gate bool, c *EnvelopeCoeffs) float64 {
	if e.phase != Idle {
		e.samples++
	}
	if gate {
		switch e.phase {
		case Idle, Release:
			e.enter(Attack)
			fallthrough
		case Attack:
			e.level += c.attack
			if e.level >= 1 {
				e.level = 1
				e.enter(Hold)
			}
		case Hold:
			e.level = 1
			if float64(e.samples) >= c.hold {
				e.enter(Decay)
			}
		case Decay:
			e.level -= c.decay
			if e.level <= c.sustain {
				e.enter(Sustain)
			}
		case Sustain:
			e.level = c.sustain
		}
		return e.level
	}
	switch e.phase {
	case Idle:
		e.level = 0
	case Attack, Hold, Decay, Sustain:
		e.enter(Release)
		fallthrough
	case Release:
		e.level -= c.release
		if e.level <= 0 {
			e.level = 0
			e.enter(Idle)
		}
	}
	return e.level
}

func (e *Envelope) Phase() Phase { return e.phase }

func (e *Envelope) Level() float64 { return e.level }

func (e *Envelope) enter(p Phase) {
	e.phase = p
	e.samples = 0
}

func NewADSR(sampleRate float64) *ADSR {
	a := &ADSR{sampleRate: sampleRate}
	a.Set(0.5, 0.5, 0.5, 0.5, 0.5)
	return a
}

// Set publishes new envelope times. It is called from the control domain.
func (a *ADSR) Set(attack, hold, decay, sustain, release float64) {
	c := NewEnvelopeCoeffs(attack, hold, decay, sustain, release, a.sampleRate)
	a.coeffs.Store(&c)
}

// Process implements modsynth.Processor. Without a gate input the envelope
// is frozen and the output is silent.
func (a *ADSR) Process(in, out [][]float32) {
	if len(out) == 0 {
		return
	}
	dst := out[0]
	if len(in) == 0 || in[0] == nil {
		clear(dst)
		return
	}
	c := a.coeffs.Load()
	for i, v := range in[0] {
		if i >= len(dst) {
			break
		}
		dst[i] = float32(a.env.Step(v > 0, c))
	}
}

func samples(seconds, sampleRate float64) float64 {
	return math.Max(1, finite(seconds)*sampleRate)
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func clamp01(v float64) float64 {
	return math.Min(1, math.Max(0, finite(v)))
}
