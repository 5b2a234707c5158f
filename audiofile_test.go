package modsynth_test

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/yuu528/ModSynth"
)

func TestWavDecodesBack(t *testing.T) {
	buf := make(modsynth.AudioBuffer, 441)
	for i := range buf {
		v := float32(math.Sin(2 * math.Pi * float64(i) / 441))
		buf[i] = [2]float32{v, -v / 2}
	}
	path := filepath.Join(t.TempDir(), "sine.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := buf.Wav(f, 44100, 16); err != nil {
		t.Fatalf("Wav failed: %v", err)
	}
	f.Close()
	f, err = os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	got, sr, err := modsynth.DecodeWav(f)
	if err != nil {
		t.Fatalf("DecodeWav failed: %v", err)
	}
	if sr != 44100 {
		t.Errorf("sample rate = %v, want 44100", sr)
	}
	if len(got) != len(buf) {
		t.Fatalf("decoded %d frames, want %d", len(got), len(buf))
	}
	for i := range buf {
		for c := 0; c < 2; c++ {
			if math.Abs(float64(got[i][c]-buf[i][c])) > 1e-3 {
				t.Fatalf("frame %d channel %d = %v, want %v", i, c, got[i][c], buf[i][c])
			}
		}
	}
}

func TestWavRejectsBitDepth(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "bad.wav"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := (modsynth.AudioBuffer{{0, 0}}).Wav(f, 44100, 12); err == nil {
		t.Fatal("12-bit wav should be rejected")
	}
}

func TestRawPCM16(t *testing.T) {
	raw, err := modsynth.AudioBuffer{{1, -1}, {0, 2}}.Raw(true)
	if err != nil {
		t.Fatal(err)
	}
	if len(raw) != 8 {
		t.Fatalf("raw length = %d, want 8", len(raw))
	}
	want := []int16{math.MaxInt16, -math.MaxInt16, 0, math.MaxInt16}
	for i, w := range want {
		if got := int16(binary.LittleEndian.Uint16(raw[2*i:])); got != w {
			t.Errorf("sample %d = %d, want %d", i, got, w)
		}
	}
	raw, err = modsynth.AudioBuffer{{0.5, 0.25}}.Raw(false)
	if err != nil {
		t.Fatal(err)
	}
	if got := math.Float32frombits(binary.LittleEndian.Uint32(raw[4:])); got != 0.25 {
		t.Errorf("float sample = %v, want 0.25", got)
	}
}
