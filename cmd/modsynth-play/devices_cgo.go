//go:build cgo

package main

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/yuu528/ModSynth"
	"github.com/yuu528/ModSynth/config"
	"github.com/yuu528/ModSynth/gomidi"
	"github.com/yuu528/ModSynth/portaudio"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

type cgoDevices struct {
	audio *portaudio.Context // nil when PortAudio is unavailable
	midi  *gomidi.Context
}

// openDevices opens rtmidi and PortAudio. A host missing either still gets
// the other.
func openDevices(sampleRate float64, log logrus.FieldLogger) hostDevices {
	d := &cgoDevices{}
	if drv, err := rtmididrv.New(); err != nil {
		log.WithError(err).Warn("no MIDI driver available")
		d.midi = gomidi.NewContext(nil, log)
	} else {
		d.midi = gomidi.NewContext(drv, log)
	}
	audio, err := portaudio.NewContext(sampleRate, log)
	if err != nil {
		log.WithError(err).Warn("no audio input available")
	} else {
		d.audio = audio
	}
	return d
}

func (d *cgoDevices) AudioInputs() ([]modsynth.DeviceInfo, error) {
	if d.audio == nil {
		return nil, nil
	}
	return d.audio.AudioInputs()
}

func (d *cgoDevices) OpenAudioInput(ctx context.Context, id string) (modsynth.AudioStream, error) {
	if d.audio == nil {
		return nil, modsynth.ErrNoDevice
	}
	return d.audio.OpenAudioInput(ctx, id)
}

func (d *cgoDevices) MIDIInputs() ([]modsynth.DeviceInfo, error) {
	return d.midi.MIDIInputs()
}

func (d *cgoDevices) ListenMIDI(id string, handler func(modsynth.MIDIEvent)) (func(), error) {
	return d.midi.ListenMIDI(id, handler)
}

func (d *cgoDevices) midiPort(cfg config.MIDI) (string, bool) {
	return d.midi.TryToOpenBy(cfg.Input, cfg.TakeFirst)
}

func (d *cgoDevices) Close() error {
	err := d.midi.Close()
	if d.audio != nil {
		if aerr := d.audio.Close(); err == nil {
			err = aerr
		}
	}
	return err
}
