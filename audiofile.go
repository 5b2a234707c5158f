package modsynth

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Raw returns the buffer as interleaved little-endian samples: float32, or
// int16 when pcm16 is set.
func (b AudioBuffer) Raw(pcm16 bool) ([]byte, error) {
	buf := new(bytes.Buffer)
	var err error
	if pcm16 {
		int16data := make([]int16, 0, len(b)*2)
		for _, frame := range b {
			int16data = append(int16data, toInt16(frame[0]), toInt16(frame[1]))
		}
		err = binary.Write(buf, binary.LittleEndian, int16data)
	} else {
		err = binary.Write(buf, binary.LittleEndian, b)
	}
	if err != nil {
		return nil, fmt.Errorf("could not binary write data to binary buffer: %w", err)
	}
	return buf.Bytes(), nil
}

// Wav encodes the buffer as a stereo PCM .wav file with the given bit depth
// (16 or 24).
func (b AudioBuffer) Wav(w io.WriteSeeker, sampleRate, bitDepth int) error {
	if bitDepth != 16 && bitDepth != 24 {
		return fmt.Errorf("unsupported wav bit depth %d", bitDepth)
	}
	enc := wav.NewEncoder(w, sampleRate, bitDepth, 2, 1)
	scale := float64(int(1)<<(bitDepth-1) - 1)
	intBuf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 2, SampleRate: sampleRate},
		Data:           make([]int, 0, len(b)*2),
		SourceBitDepth: bitDepth,
	}
	for _, frame := range b {
		for _, v := range frame {
			intBuf.Data = append(intBuf.Data, int(Clamp(float64(v), -1, 1)*scale))
		}
	}
	if err := enc.Write(intBuf); err != nil {
		return fmt.Errorf("could not write wav data: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("could not finish wav file: %w", err)
	}
	return nil
}

// DecodeWav reads a PCM .wav file into a stereo buffer. Mono files are
// copied to both channels; channels beyond the second are dropped.
func DecodeWav(r io.ReadSeeker) (AudioBuffer, float64, error) {
	decoder := wav.NewDecoder(r)
	if !decoder.IsValidFile() {
		return nil, 0, errors.New("invalid wav file")
	}
	if err := decoder.FwdToPCM(); err != nil {
		return nil, 0, fmt.Errorf("could not find wav data: %w", err)
	}
	format := decoder.Format()
	bitDepth := int(decoder.SampleBitDepth())
	if bitDepth == 0 || format == nil || format.NumChannels == 0 {
		return nil, 0, errors.New("unknown wav sample format")
	}
	bytesPerSample := (bitDepth-1)/8 + 1
	nsamples := int(decoder.PCMLen()) / bytesPerSample
	nch := format.NumChannels
	buf := &audio.IntBuffer{
		Format:         format,
		Data:           make([]int, nsamples),
		SourceBitDepth: bitDepth,
	}
	n, err := decoder.PCMBuffer(buf)
	if err != nil {
		return nil, 0, fmt.Errorf("could not decode wav data: %w", err)
	}
	factor := math.Pow(2, float64(bitDepth-1))
	ret := make(AudioBuffer, n/nch)
	for i := range ret {
		l := float32(float64(buf.Data[i*nch]) / factor)
		r := l
		if nch > 1 {
			r = float32(float64(buf.Data[i*nch+1]) / factor)
		}
		ret[i] = [2]float32{l, r}
	}
	return ret, float64(format.SampleRate), nil
}

func toInt16(v float32) int16 {
	return int16(Clamp(float64(v)*math.MaxInt16, math.MinInt16, math.MaxInt16))
}
