package dsp

import (
	"sync"

	"github.com/yuu528/ModSynth"
)

// Outputs of a Converter block.
const (
	GateOutput = iota
	VelocityOutput
	PitchOutput
	NumConverterOutputs
)

// Converter turns note events into gate, velocity and pitch control signals
// with monophonic last-note priority. Events are queued by Push from any
// goroutine and applied by Process at the start of the next block.
type Converter struct {
	producer sync.Mutex // serializes Push; never taken by Process
	events   *Ring[modsynth.MIDIEvent]

	stack    NoteStack
	gate     float32
	velocity float32
	pitch    float32
}

func NewConverter() *Converter {
	return &Converter{events: NewRing[modsynth.MIDIEvent](1024)}
}

// Push queues an event and reports false when the queue is full and the
// event was dropped.
func (c *Converter) Push(ev modsynth.MIDIEvent) bool {
	c.producer.Lock()
	defer c.producer.Unlock()
	return c.events.Push(ev)
}

// Process implements modsynth.Processor. The converter has no inputs.
func (c *Converter) Process(_, out [][]float32) {
	for {
		ev, ok := c.events.Pop()
		if !ok {
			break
		}
		c.apply(ev)
	}
	values := [NumConverterOutputs]float32{c.gate, c.velocity, c.pitch}
	for i, dst := range out {
		if i >= NumConverterOutputs {
			break
		}
		v := values[i]
		for j := range dst {
			dst[j] = v
		}
	}
}

// Gate, Velocity and Pitch return the current outputs. They may only be
// called by the goroutine running Process.
func (c *Converter) Gate() float32     { return c.gate }
func (c *Converter) Velocity() float32 { return c.velocity }
func (c *Converter) Pitch() float32    { return c.pitch }

func (c *Converter) apply(ev modsynth.MIDIEvent) {
	if ev.On && ev.Velocity > 0 {
		c.stack.Push(ev.Note, ev.Velocity)
		c.sound(ev.Note, ev.Velocity)
		return
	}
	c.stack.Remove(ev.Note)
	if top, ok := c.stack.Top(); ok {
		c.sound(top.Note, top.Velocity)
		return
	}
	c.gate = 0
	c.velocity = 0
}

func (c *Converter) sound(note, velocity uint8) {
	c.gate = 1
	c.velocity = VelocityCV(velocity)
	c.pitch = PitchCV(note)
}

var (
	minFreq = modsynth.NoteToFreq(0)
	maxFreq = modsynth.NoteToFreq(127)
)

// VelocityCV normalizes a MIDI velocity to [0, 1].
func VelocityCV(velocity uint8) float32 {
	return float32(modsynth.Map(float64(velocity&0x7f), 0, 127, 0, 1))
}

// PitchCV maps the frequency of a note to [0, 1], note 0 to 0 and note 127
// to 1.
func PitchCV(note uint8) float32 {
	return float32(modsynth.Map(modsynth.NoteToFreq(float64(note&0x7f)), minFreq, maxFreq, 0, 1))
}

// CVToFreq is the inverse of PitchCV for a continuous control value.
func CVToFreq(cv float64) float64 {
	return modsynth.Map(cv, 0, 1, minFreq, maxFreq)
}

// FreqSpan is the frequency range covered by a pitch control value.
func FreqSpan() (min, max float64) {
	return minFreq, maxFreq
}
