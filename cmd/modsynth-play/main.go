package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yuu528/ModSynth"
	"github.com/yuu528/ModSynth/config"
	"github.com/yuu528/ModSynth/engine"
	"github.com/yuu528/ModSynth/oto"
	"github.com/yuu528/ModSynth/patch"
	"github.com/yuu528/ModSynth/version"
)

// meterInterval is how often meters are refreshed while playing.
const meterInterval = 50 * time.Millisecond

func main() {
	list := flag.Bool("list", false, "Print the module palette.")
	devicesFlag := flag.Bool("devices", false, "List the audio and MIDI inputs.")
	duration := flag.Float64("d", 5, "Duration of the offline render in seconds.")
	wavOut := flag.String("w", "", "Render offline to the given .wav file instead of playing.")
	rawOut := flag.String("r", "", "Render offline to the given .raw file instead of playing. By default, saves a stereo float32 buffer.")
	pcm := flag.Bool("c", false, "Convert audio to 16-bit signed PCM when outputting.")
	configPath := flag.String("config", "", "Configuration file. By default, the modsynth/config.yml of the user config dir is used if it exists.")
	versionFlag := flag.Bool("v", false, "Print version.")
	help := flag.Bool("h", false, "Show help.")
	flag.Usage = printUsage
	flag.Parse()
	if *versionFlag {
		fmt.Println(version.VersionOrHash)
		os.Exit(0)
	}
	if *help {
		flag.Usage()
		os.Exit(0)
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not load config: %v\n", err)
		os.Exit(1)
	}
	level, _ := cfg.LogLevel()
	logrus.SetOutput(os.Stderr)
	logrus.SetLevel(level)
	log := logrus.StandardLogger()
	switch {
	case *list:
		if err := printPalette(os.Stdout, cfg.List.Template); err != nil {
			fmt.Fprintf(os.Stderr, "could not print the palette: %v\n", err)
			os.Exit(1)
		}
	case *devicesFlag:
		d := openDevices(float64(cfg.Audio.SampleRate), log)
		defer d.Close()
		if err := printDevices(os.Stdout, d); err != nil {
			fmt.Fprintf(os.Stderr, "could not list devices: %v\n", err)
			os.Exit(1)
		}
	case *wavOut != "" || *rawOut != "":
		if *duration <= 0 {
			fmt.Fprintf(os.Stderr, "the render duration must be positive, got %v\n", *duration)
			os.Exit(1)
		}
		if err := renderFiles(cfg, log, *duration, *wavOut, *rawOut, *pcm); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
	default:
		if err := play(cfg, log); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
	}
}

func renderFiles(cfg config.Config, log logrus.FieldLogger, seconds float64, wavPath, rawPath string, pcm bool) error {
	e := engine.New(float64(cfg.Audio.SampleRate))
	p := patch.New(e, patch.WithLogger(log))
	defer p.Close()
	_, in, err := buildPatch(p)
	if err != nil {
		return err
	}
	p.Update()
	buffer := render(e, in.Push, seconds)
	if wavPath != "" {
		bitDepth := 24
		if pcm {
			bitDepth = 16
		}
		f, err := os.Create(wavPath)
		if err != nil {
			return fmt.Errorf("could not create file %v: %w", wavPath, err)
		}
		defer f.Close()
		if err := buffer.Wav(f, cfg.Audio.SampleRate, bitDepth); err != nil {
			return fmt.Errorf("could not write file %v: %w", wavPath, err)
		}
	}
	if rawPath != "" {
		raw, err := buffer.Raw(pcm)
		if err != nil {
			return fmt.Errorf("could not generate .raw file: %w", err)
		}
		if err := os.WriteFile(rawPath, raw, 0644); err != nil {
			return fmt.Errorf("could not write file %v: %w", rawPath, err)
		}
	}
	log.WithField("frames", len(buffer)).Info("render finished")
	return nil
}

func play(cfg config.Config, log logrus.FieldLogger) error {
	d := openDevices(float64(cfg.Audio.SampleRate), log)
	defer d.Close()
	e := engine.New(float64(cfg.Audio.SampleRate))
	p := patch.New(e, patch.WithLogger(log), patch.WithDevices(d))
	defer p.Close()
	midi, in, err := buildPatch(p)
	if err != nil {
		return err
	}
	if port, ok := d.midiPort(cfg.MIDI); ok {
		p.UpdateValue(midi.Handle, "device", port)
	}
	p.Update()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	audio, err := oto.NewContext(cfg.Audio.SampleRate, cfg.Audio.BufferSize)
	if err != nil {
		return fmt.Errorf("could not acquire oto AudioContext: %w", err)
	}
	player := audio.Play(e)
	defer player.Close()
	if port := midi.Params.String("device"); port != "" {
		log.WithField("port", port).Info("playing from MIDI input, press Ctrl+C to stop")
	} else {
		log.Info("no MIDI input, playing a demo sequence, press Ctrl+C to stop")
		go loopSequence(ctx, in.Push)
	}
	for ctx.Err() == nil {
		wctx, cancel := context.WithTimeout(ctx, meterInterval)
		p.Wait(wctx)
		cancel()
		p.RefreshMeters()
		if err := player.Err(); err != nil {
			return fmt.Errorf("playback failed: %w", err)
		}
	}
	return nil
}

// hostDevices is the device capability of the binary. Without cgo it has no
// devices.
type hostDevices interface {
	modsynth.Devices
	// midiPort returns the MIDI input selected by the configuration.
	midiPort(cfg config.MIDI) (string, bool)
	Close() error
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "ModSynth command line player: builds the default patch and plays it from the MIDI input, or renders it offline.\nUsage: %s [flags]\n", os.Args[0])
	flag.PrintDefaults()
}
