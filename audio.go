package modsynth

type (
	// AudioBuffer is an in-memory stereo buffer, one [left, right] pair per
	// frame.
	AudioBuffer [][2]float32

	// Sample is a decoded audio file, the content of a buffer source.
	Sample struct {
		Data       AudioBuffer
		SampleRate float64
	}
)

// Duration returns the length of the buffer in seconds.
func (b AudioBuffer) Duration(sampleRate float64) float64 {
	if sampleRate <= 0 {
		return 0
	}
	return float64(len(b)) / sampleRate
}

// Duration returns the length of the sample in seconds.
func (s *Sample) Duration() float64 {
	return s.Data.Duration(s.SampleRate)
}
