package modsynth

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// NoteToFreq returns the equal-tempered frequency of a MIDI note, A4 (69) =
// 440 Hz.
func NoteToFreq(note float64) float64 {
	return 440 * math.Pow(2, (note-69)/12)
}

// FreqToNote is the inverse of NoteToFreq.
func FreqToNote(freq float64) float64 {
	return 69 + 12*math.Log2(freq/440)
}

// Map maps value linearly from [inMin, inMax] to [outMin, outMax]. The
// result is not clamped.
func Map(value, inMin, inMax, outMin, outMax float64) float64 {
	return (value-inMin)*(outMax-outMin)/(inMax-inMin) + outMin
}

// Clamp limits value to [min, max].
func Clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

func DegToRad(deg float64) float64 {
	return deg * math.Pi / 180
}

func RadToDeg(rad float64) float64 {
	return rad * 180 / math.Pi
}

// DegToVector converts a horizontal and a vertical angle, in degrees, to a
// unit vector. Horizontal 0 points along +x, horizontal 90 along +z;
// vertical 90 points along +y.
func DegToVector(hDeg, vDeg float64) (x, y, z float64) {
	h, v := DegToRad(hDeg), DegToRad(vDeg)
	return math.Cos(v) * math.Cos(h), math.Sin(v), math.Cos(v) * math.Sin(h)
}

var siPrefixes = []struct {
	prefix string
	scale  float64
}{
	{"G", 1e9}, {"M", 1e6}, {"k", 1e3}, {"", 1}, {"m", 1e-3}, {"u", 1e-6}, {"n", 1e-9},
}

// FormatSI formats value with an SI prefix and at most digits decimals, e.g.
// FormatSI(1500, 3) == "1.5k" and FormatSI(0.003, 3) == "3m".
func FormatSI(value float64, digits int) string {
	if value == 0 || math.IsInf(value, 0) || math.IsNaN(value) {
		return formatFloat(value)
	}
	abs := math.Abs(value)
	for _, p := range siPrefixes {
		if abs >= p.scale {
			return trimDecimals(value/p.scale, digits) + p.prefix
		}
	}
	last := siPrefixes[len(siPrefixes)-1]
	return trimDecimals(value/last.scale, digits) + last.prefix
}

// ParseSI parses a number with an optional SI prefix suffix, as produced by
// FormatSI. "µ" is accepted as well as "u".
func ParseSI(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty number")
	}
	s = strings.Replace(s, "µ", "u", 1)
	for _, p := range siPrefixes {
		if p.prefix != "" && strings.HasSuffix(s, p.prefix) {
			v, err := strconv.ParseFloat(strings.TrimSuffix(s, p.prefix), 64)
			if err != nil {
				return 0, fmt.Errorf("could not parse %q: %w", s, err)
			}
			return v * p.scale, nil
		}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("could not parse %q: %w", s, err)
	}
	return v, nil
}

// NiceRound rounds value down to its count most significant digits, e.g.
// NiceRound(16348, 2) == 16000. It gives ruler maxima for spectrum displays.
func NiceRound(value float64, count int) float64 {
	if value <= 0 || count < 1 {
		return 0
	}
	digits := math.Floor(math.Log10(value)) + 1
	offset := math.Pow(10, digits-float64(count))
	return math.Floor(value/offset) * offset
}

func trimDecimals(f float64, digits int) string {
	s := strconv.FormatFloat(f, 'f', digits, 64)
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}
	return s
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
