//go:build cgo

package portaudio

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/sirupsen/logrus"
	"github.com/yuu528/ModSynth"
	"github.com/yuu528/ModSynth/dsp"
)

type (
	// Context lists and opens the capture devices of PortAudio. The stream
	// sample rate is the one of the engine the samples are read into.
	Context struct {
		sampleRate float64
		log        logrus.FieldLogger
	}

	// Stream is an open mono capture stream. The PortAudio callback pushes
	// into a ring that ReadSamples drains.
	Stream struct {
		stream *portaudio.Stream
		ring   *dsp.Ring[float32]
		rate   float64
		once   sync.Once
		err    error
	}
)

// ringFrames is the capture backlog kept between two reads.
const ringFrames = 1 << 14

// NewContext initializes PortAudio; Close terminates it.
func NewContext(sampleRate float64, log logrus.FieldLogger) (*Context, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("cannot initialize portaudio: %w", err)
	}
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Context{sampleRate: sampleRate, log: log}, nil
}

func (c *Context) Close() error {
	if err := portaudio.Terminate(); err != nil {
		return fmt.Errorf("cannot terminate portaudio: %w", err)
	}
	return nil
}

// AudioInputs returns the devices with at least one input channel. The
// device name is its id.
func (c *Context) AudioInputs() ([]modsynth.DeviceInfo, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("cannot list audio devices: %w", err)
	}
	var ret []modsynth.DeviceInfo
	for _, d := range devices {
		if d.MaxInputChannels > 0 {
			ret = append(ret, modsynth.DeviceInfo{ID: d.Name, Name: d.Name})
		}
	}
	return ret, nil
}

// OpenAudioInput opens the device named id, or the default input device when
// id is empty, and starts capturing.
func (c *Context) OpenAudioInput(ctx context.Context, id string) (modsynth.AudioStream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dev, err := c.device(id)
	if err != nil {
		return nil, err
	}
	params := portaudio.LowLatencyParameters(dev, nil)
	params.Input.Channels = 1
	params.SampleRate = c.sampleRate
	s := &Stream{ring: dsp.NewRing[float32](ringFrames), rate: c.sampleRate}
	s.stream, err = portaudio.OpenStream(params, s.capture)
	if err != nil {
		return nil, fmt.Errorf("cannot open audio input %q: %w", dev.Name, err)
	}
	if err := s.stream.Start(); err != nil {
		s.stream.Close()
		return nil, fmt.Errorf("cannot start audio input %q: %w", dev.Name, err)
	}
	if err := ctx.Err(); err != nil {
		s.Close()
		return nil, err
	}
	c.log.WithField("device", dev.Name).Debug("audio input opened")
	return s, nil
}

func (c *Context) device(id string) (*portaudio.DeviceInfo, error) {
	if id == "" {
		dev, err := portaudio.DefaultInputDevice()
		if err != nil {
			return nil, fmt.Errorf("default audio input: %w", modsynth.ErrNoDevice)
		}
		return dev, nil
	}
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("cannot list audio devices: %w", err)
	}
	for _, d := range devices {
		if d.Name == id && d.MaxInputChannels > 0 {
			return d, nil
		}
	}
	return nil, fmt.Errorf("audio input %q: %w", id, modsynth.ErrNoDevice)
}

// capture runs on the PortAudio thread. Samples that do not fit the ring are
// dropped.
func (s *Stream) capture(in []float32) {
	for _, v := range in {
		if !s.ring.Push(v) {
			return
		}
	}
}

func (s *Stream) ReadSamples(dst []float32) int {
	n := 0
	for n < len(dst) {
		v, ok := s.ring.Pop()
		if !ok {
			break
		}
		dst[n] = v
		n++
	}
	return n
}

func (s *Stream) SampleRate() float64 { return s.rate }

func (s *Stream) Close() error {
	s.once.Do(func() {
		if err := s.stream.Stop(); err != nil {
			s.err = fmt.Errorf("cannot stop audio input: %w", err)
		}
		if err := s.stream.Close(); err != nil && s.err == nil {
			s.err = fmt.Errorf("cannot close audio input: %w", err)
		}
	})
	return s.err
}
