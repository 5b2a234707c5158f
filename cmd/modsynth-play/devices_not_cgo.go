//go:build !cgo

package main

import (
	"github.com/sirupsen/logrus"
	"github.com/yuu528/ModSynth"
	"github.com/yuu528/ModSynth/config"
)

// with no cgo, there is neither rtmidi nor PortAudio
type nullDevices struct {
	modsynth.NullDevices
}

func openDevices(float64, logrus.FieldLogger) hostDevices { return nullDevices{} }

func (nullDevices) midiPort(config.MIDI) (string, bool) { return "", false }

func (nullDevices) Close() error { return nil }
