package modsynth

import "context"

type (
	// DeviceInfo describes an audio input device or a MIDI input port.
	DeviceInfo struct {
		ID   string
		Name string
	}

	// MIDIEvent is a note event of a MIDI input. A note-on with zero
	// velocity is reported as On == false.
	MIDIEvent struct {
		On       bool
		Note     uint8
		Velocity uint8
	}

	// AudioStream is a live capture stream of an audio input device.
	// ReadSamples is called from the sample-rate domain and must not block:
	// it copies at most len(dst) mono samples and returns how many.
	AudioStream interface {
		ReadSamples(dst []float32) int
		SampleRate() float64
		Close() error
	}

	// Devices is the device capability of the host.
	Devices interface {
		AudioInputs() ([]DeviceInfo, error)
		// OpenAudioInput acquires a capture stream; it may block while the
		// host asks for permission, and gives up when ctx is done.
		OpenAudioInput(ctx context.Context, id string) (AudioStream, error)
		MIDIInputs() ([]DeviceInfo, error)
		// ListenMIDI subscribes handler to the port. The handler is called
		// from a driver goroutine. stop unsubscribes; calling it twice is
		// harmless.
		ListenMIDI(id string, handler func(MIDIEvent)) (stop func(), err error)
	}

	// NullDevices is a Devices without any device, used when the host has
	// no audio input or MIDI support.
	NullDevices struct{}
)

func (NullDevices) AudioInputs() ([]DeviceInfo, error) { return nil, nil }

func (NullDevices) OpenAudioInput(context.Context, string) (AudioStream, error) {
	return nil, ErrNoDevice
}

func (NullDevices) MIDIInputs() ([]DeviceInfo, error) { return nil, nil }

func (NullDevices) ListenMIDI(string, func(MIDIEvent)) (func(), error) {
	return nil, ErrNoDevice
}
