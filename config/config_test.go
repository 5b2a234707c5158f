package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/yuu528/ModSynth/config"
)

func TestDefault(t *testing.T) {
	c := config.Default()
	if c.Audio.SampleRate != 48000 || c.Audio.Channels != 2 || c.Audio.BufferSize != 1024 {
		t.Errorf("audio defaults = %+v", c.Audio)
	}
	if !c.MIDI.TakeFirst || c.MIDI.Input != "" {
		t.Errorf("midi defaults = %+v", c.MIDI)
	}
	if lvl, err := c.LogLevel(); err != nil || lvl != logrus.InfoLevel {
		t.Errorf("LogLevel = %v, %v, want info", lvl, err)
	}
	if !strings.Contains(c.List.Template, "range .Modules") {
		t.Errorf("default list template is missing: %q", c.List.Template)
	}
}

func TestDecodeOverrides(t *testing.T) {
	tests := []struct {
		name  string
		doc   string
		check func(config.Config) bool
	}{
		{"sample rate", "audio:\n  sampleRate: 44100\n", func(c config.Config) bool {
			return c.Audio.SampleRate == 44100 && c.Audio.BufferSize == 1024
		}},
		{"midi", "midi:\n  input: Keystation\n  takeFirst: false\n", func(c config.Config) bool {
			return c.MIDI.Input == "Keystation" && !c.MIDI.TakeFirst
		}},
		{"log level", "log:\n  level: debug\n", func(c config.Config) bool {
			lvl, err := c.LogLevel()
			return err == nil && lvl == logrus.DebugLevel
		}},
		{"empty", "", func(c config.Config) bool {
			return c.Audio.SampleRate == 48000
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := config.Default()
			if err := config.Decode(strings.NewReader(tt.doc), &c); err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if !tt.check(c) {
				t.Errorf("unexpected config %+v", c)
			}
		})
	}
}

func TestDecodeRejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"unknown key", "audio:\n  latency: 3\n"},
		{"mono", "audio:\n  channels: 1\n"},
		{"zero rate", "audio:\n  sampleRate: 0\n"},
		{"bad level", "log:\n  level: loud\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := config.Default()
			if err := config.Decode(strings.NewReader(tt.doc), &c); err == nil {
				t.Errorf("Decode(%q) succeeded", tt.doc)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	if err := os.WriteFile(path, []byte("audioInput:\n  device: USB Mic\n"), 0644); err != nil {
		t.Fatal(err)
	}
	c, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.AudioInput.Device != "USB Mic" || c.Audio.SampleRate != 48000 {
		t.Errorf("Load = %+v", c)
	}
	if _, err := config.Load(filepath.Join(dir, "missing.yml")); err == nil {
		t.Errorf("Load of a missing explicit file succeeded")
	}
}
