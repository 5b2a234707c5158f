package engine

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/yuu528/ModSynth"
)

type (
	// DistanceModel selects how a panner attenuates with distance.
	DistanceModel int32

	vec3 [3]float64

	// panner positions a source around a listener at the origin that faces
	// -z with +y up. Panning uses the equal-power law on the mono down-mix
	// of the input; "HRTF" is accepted as a panning model and rendered the
	// same way.
	panner struct {
		position    [3]*param
		orientation [3]*param
		coneInner   *param
		coneOuter   *param
		coneGain    *param
		model       atomic.Int32
		refDistance atomic.Uint64
		maxDistance atomic.Uint64
		rolloff     atomic.Uint64
		tmp         []float32
	}
)

const (
	Linear DistanceModel = iota
	Inverse
	Exponential
)

var distanceModelNames = [...]string{"linear", "inverse", "exponential"}

func (m DistanceModel) String() string {
	if m < 0 || int(m) >= len(distanceModelNames) {
		return "unknown"
	}
	return distanceModelNames[m]
}

var (
	listenerForward = vec3{0, 0, -1}
	listenerUp      = vec3{0, 1, 0}
	listenerRight   = vec3{1, 0, 0}
)

func buildPanner(e *Engine, _ modsynth.Options) (*node, error) {
	n := e.newNode(modsynth.NodePanner, []int{2}, []int{2})
	inf := math.Inf(1)
	p := &panner{
		position: [3]*param{
			n.addParam("positionX", 0, -inf, inf),
			n.addParam("positionY", 0, -inf, inf),
			n.addParam("positionZ", 0, -inf, inf),
		},
		orientation: [3]*param{
			n.addParam("orientationX", 1, -inf, inf),
			n.addParam("orientationY", 0, -inf, inf),
			n.addParam("orientationZ", 0, -inf, inf),
		},
		coneInner: n.addParam("coneInnerAngle", 360, 0, 360),
		coneOuter: n.addParam("coneOuterAngle", 360, 0, 360),
		coneGain:  n.addParam("coneOuterGain", 0, 0, 1),
		tmp:       make([]float32, BlockSize),
	}
	p.model.Store(int32(Inverse))
	p.refDistance.Store(math.Float64bits(1))
	p.maxDistance.Store(math.Float64bits(10000))
	p.rolloff.Store(math.Float64bits(1))
	n.impl = p
	return n, nil
}

func (p *panner) setOption(name string, value any) error {
	switch name {
	case "distanceModel":
		switch v := value.(type) {
		case DistanceModel:
			if v < 0 || int(v) >= len(distanceModelNames) {
				return fmt.Errorf("unknown distance model %d", v)
			}
			p.model.Store(int32(v))
		case string:
			for i, m := range distanceModelNames {
				if m == v {
					p.model.Store(int32(i))
					return nil
				}
			}
			return fmt.Errorf("unknown distance model %q", v)
		default:
			return fmt.Errorf("distance model must be a string, got %T", value)
		}
	case "panningModel":
		if v, ok := value.(string); !ok || (v != "equalpower" && v != "HRTF") {
			return fmt.Errorf("unknown panning model %v", value)
		}
	case "refDistance", "maxDistance", "rolloffFactor":
		f, ok := toFloat(value)
		if !ok || f < 0 || math.IsNaN(f) {
			return fmt.Errorf("%s must be a non-negative number, got %v", name, value)
		}
		switch name {
		case "refDistance":
			p.refDistance.Store(math.Float64bits(f))
		case "maxDistance":
			p.maxDistance.Store(math.Float64bits(f))
		default:
			p.rolloff.Store(math.Float64bits(f))
		}
	default:
		return fmt.Errorf("panner has no option %q: %w", name, modsynth.ErrNotFound)
	}
	return nil
}

func (p *panner) process(n *node) {
	out := n.out[0]
	in := n.in[0]
	if in == nil {
		silence(out)
		return
	}
	var pos, dir vec3
	for i := range pos {
		pos[i] = float64(p.position[i].buf[0])
		dir[i] = float64(p.orientation[i].buf[0])
	}
	azimuth, _ := angles(pos)
	gl, gr := equalPower(azimuth)
	g := p.distanceGain(pos.length()) * coneGain(pos, dir,
		float64(p.coneInner.buf[0]), float64(p.coneOuter.buf[0]), float64(p.coneGain.buf[0]))
	l, r := float32(gl*g), float32(gr*g)
	m := mono(in, p.tmp)
	for i := 0; i < BlockSize; i++ {
		out[0][i] = m[i] * l
		out[1][i] = m[i] * r
	}
}

func (p *panner) distanceGain(d float64) float64 {
	ref := math.Float64frombits(p.refDistance.Load())
	maxd := math.Float64frombits(p.maxDistance.Load())
	rolloff := math.Float64frombits(p.rolloff.Load())
	switch DistanceModel(p.model.Load()) {
	case Linear:
		if maxd <= ref {
			return 1
		}
		d = math.Max(ref, math.Min(maxd, d))
		return 1 - math.Min(1, rolloff)*(d-ref)/(maxd-ref)
	case Exponential:
		if ref == 0 {
			return 1
		}
		return math.Pow(math.Max(d, ref)/ref, -rolloff)
	}
	d = math.Max(d, ref)
	if ref+rolloff*(d-ref) == 0 {
		return 1
	}
	return ref / (ref + rolloff*(d-ref))
}

// angles returns the azimuth and elevation in degrees of a source at pos.
// Azimuth is 0 straight ahead, positive to the right.
func angles(pos vec3) (azimuth, elevation float64) {
	if pos.length() == 0 {
		return 0, 0
	}
	s := pos.normalize()
	up := s.dot(listenerUp)
	proj := s.sub(listenerUp.scale(up)).normalize()
	azimuth = acosDeg(proj.dot(listenerRight))
	if proj.dot(listenerForward) < 0 {
		azimuth = 360 - azimuth
	}
	if azimuth <= 90 {
		azimuth = 90 - azimuth
	} else {
		azimuth = 450 - azimuth
	}
	if azimuth > 180 {
		azimuth -= 360
	}
	elevation = 90 - acosDeg(up)
	switch {
	case elevation > 90:
		elevation = 180 - elevation
	case elevation < -90:
		elevation = -180 - elevation
	}
	return azimuth, elevation
}

func equalPower(azimuth float64) (left, right float64) {
	azimuth = math.Max(-180, math.Min(180, azimuth))
	switch {
	case azimuth < -90:
		azimuth = -180 - azimuth
	case azimuth > 90:
		azimuth = 180 - azimuth
	}
	x := (azimuth + 90) / 180 * math.Pi / 2
	return math.Cos(x), math.Sin(x)
}

func coneGain(pos, dir vec3, inner, outer, outerGain float64) float64 {
	if dir.length() == 0 || (inner >= 360 && outer >= 360) {
		return 1
	}
	if pos.length() == 0 {
		return 1
	}
	toListener := pos.scale(-1).normalize()
	angle := acosDeg(toListener.dot(dir.normalize()))
	in, out := inner/2, outer/2
	switch {
	case angle <= in:
		return 1
	case angle >= out:
		return outerGain
	}
	x := (angle - in) / (out - in)
	return (1 - x) + outerGain*x
}

func acosDeg(x float64) float64 {
	return math.Acos(math.Max(-1, math.Min(1, x))) * 180 / math.Pi
}

func (v vec3) dot(w vec3) float64 { return v[0]*w[0] + v[1]*w[1] + v[2]*w[2] }
func (v vec3) length() float64    { return math.Sqrt(v.dot(v)) }
func (v vec3) scale(s float64) vec3 {
	return vec3{v[0] * s, v[1] * s, v[2] * s}
}
func (v vec3) sub(w vec3) vec3 { return vec3{v[0] - w[0], v[1] - w[1], v[2] - w[2]} }

func (v vec3) normalize() vec3 {
	l := v.length()
	if l == 0 {
		return v
	}
	return v.scale(1 / l)
}
