package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

type (
	Config struct {
		Audio      Audio      `yaml:"audio"`
		MIDI       MIDI       `yaml:"midi"`
		AudioInput AudioInput `yaml:"audioInput"`
		Log        Log        `yaml:"log"`
		List       List       `yaml:"list"`
	}

	Audio struct {
		SampleRate int `yaml:"sampleRate"`
		Channels   int `yaml:"channels"`
		BufferSize int `yaml:"bufferSize"` // sound card buffer in frames
	}

	MIDI struct {
		Input     string `yaml:"input"` // port name prefix
		TakeFirst bool   `yaml:"takeFirst"`
	}

	AudioInput struct {
		Device string `yaml:"device"` // empty means the default device
	}

	Log struct {
		Level string `yaml:"level"`
	}

	List struct {
		Template string `yaml:"template"`
	}
)

//go:embed default.yml
var defaultYaml []byte

// Default returns the embedded configuration.
func Default() Config {
	var c Config
	if err := Decode(bytes.NewReader(defaultYaml), &c); err != nil {
		panic(fmt.Errorf("failed to unmarshal default config: %w", err))
	}
	return c
}

// Path is the user configuration file.
func Path() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "modsynth", "config.yml"), nil
}

// Load returns the defaults overridden by the keys of the file at path. An
// empty path means the user configuration file, which may be missing.
func Load(path string) (Config, error) {
	c := Default()
	optional := path == ""
	if optional {
		p, err := Path()
		if err != nil {
			return c, nil
		}
		path = p
	}
	f, err := os.Open(path)
	if err != nil {
		if optional && errors.Is(err, fs.ErrNotExist) {
			return c, nil
		}
		return c, fmt.Errorf("cannot read config: %w", err)
	}
	defer f.Close()
	if err := Decode(f, &c); err != nil {
		return Default(), fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Decode overrides the fields of c that the document in r sets. Unknown keys
// are an error; an empty document changes nothing.
func Decode(r io.Reader, c *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("invalid config: %w", err)
	}
	return c.Validate()
}

func (c *Config) Validate() error {
	if c.Audio.SampleRate <= 0 {
		return fmt.Errorf("invalid config: audio.sampleRate must be positive, got %d", c.Audio.SampleRate)
	}
	if c.Audio.Channels != 2 {
		return fmt.Errorf("invalid config: audio.channels must be 2, got %d", c.Audio.Channels)
	}
	if c.Audio.BufferSize < 0 {
		return fmt.Errorf("invalid config: audio.bufferSize must not be negative, got %d", c.Audio.BufferSize)
	}
	if _, err := c.LogLevel(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func (c *Config) LogLevel() (logrus.Level, error) {
	return logrus.ParseLevel(c.Log.Level)
}
