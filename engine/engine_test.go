package engine_test

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/yuu528/ModSynth"
	"github.com/yuu528/ModSynth/engine"
)

const sampleRate = 48000

func mustCreate(t *testing.T, e *engine.Engine, kind modsynth.NodeKind, opts modsynth.Options) modsynth.Node {
	t.Helper()
	n, err := e.CreateNode(kind, opts)
	if err != nil {
		t.Fatalf("CreateNode(%v): %v", kind, err)
	}
	return n
}

func mustConnect(t *testing.T, e *engine.Engine, src modsynth.Node, output int, dst modsynth.Node, input int) {
	t.Helper()
	if err := e.Connect(src, output, dst, input); err != nil {
		t.Fatalf("Connect: %v", err)
	}
}

func near(a, b, tol float64) bool { return math.Abs(a-b) <= tol }

func TestSilentGraph(t *testing.T) {
	e := engine.New(sampleRate)
	for i, f := range e.Render(300) {
		if f != [2]float32{} {
			t.Fatalf("frame %d = %v, want silence", i, f)
		}
	}
	if got, want := e.CurrentTime(), float64(3*engine.BlockSize)/sampleRate; !near(got, want, 1e-12) {
		t.Errorf("CurrentTime = %v, want %v", got, want)
	}
}

func TestConstantThroughGain(t *testing.T) {
	e := engine.New(sampleRate)
	c := mustCreate(t, e, modsynth.NodeConstant, modsynth.Options{"offset": 0.8})
	g := mustCreate(t, e, modsynth.NodeGain, modsynth.Options{"gain": 0.5})
	mustConnect(t, e, c, 0, g, 0)
	mustConnect(t, e, g, 0, e.Destination(), 0)
	for i, f := range e.Render(200) {
		if !near(float64(f[0]), 0.4, 1e-6) || !near(float64(f[1]), 0.4, 1e-6) {
			t.Fatalf("frame %d = %v, want 0.4 on both channels", i, f)
		}
	}
}

func TestSumming(t *testing.T) {
	e := engine.New(sampleRate)
	a := mustCreate(t, e, modsynth.NodeConstant, modsynth.Options{"offset": 0.25})
	b := mustCreate(t, e, modsynth.NodeConstant, modsynth.Options{"offset": 0.5})
	mustConnect(t, e, a, 0, e.Destination(), 0)
	mustConnect(t, e, b, 0, e.Destination(), 0)
	if f := e.Render(1)[0]; !near(float64(f[0]), 0.75, 1e-6) {
		t.Errorf("sum = %v, want 0.75", f[0])
	}
}

func TestOutputIsClamped(t *testing.T) {
	e := engine.New(sampleRate)
	c := mustCreate(t, e, modsynth.NodeConstant, modsynth.Options{"offset": 3})
	mustConnect(t, e, c, 0, e.Destination(), 0)
	if f := e.Render(1)[0]; f != [2]float32{1, 1} {
		t.Errorf("frame = %v, want [1 1]", f)
	}
}

func TestDuplicateLinkAndIdempotentDisconnect(t *testing.T) {
	e := engine.New(sampleRate)
	c := mustCreate(t, e, modsynth.NodeConstant, modsynth.Options{"offset": 0.5})
	mustConnect(t, e, c, 0, e.Destination(), 0)
	mustConnect(t, e, c, 0, e.Destination(), 0)
	if got := e.Links(); got != 1 {
		t.Fatalf("Links = %d after duplicate connect, want 1", got)
	}
	if f := e.Render(1)[0]; !near(float64(f[0]), 0.5, 1e-6) {
		t.Errorf("frame = %v, duplicate link must not double the signal", f)
	}
	e.Disconnect(c, 0, e.Destination(), 0)
	e.Disconnect(c, 0, e.Destination(), 0)
	if got := e.Links(); got != 0 {
		t.Errorf("Links = %d after disconnect, want 0", got)
	}
}

func TestConnectErrors(t *testing.T) {
	e := engine.New(sampleRate)
	c := mustCreate(t, e, modsynth.NodeConstant, nil)
	if err := e.Connect(c, 1, e.Destination(), 0); !errors.Is(err, modsynth.ErrNotFound) {
		t.Errorf("bad output: err = %v, want ErrNotFound", err)
	}
	if err := e.ConnectParam(c, 0, e.Destination(), "nope"); !errors.Is(err, modsynth.ErrNotFound) {
		t.Errorf("bad param: err = %v, want ErrNotFound", err)
	}
	other := engine.New(sampleRate)
	if err := e.Connect(c, 0, other.Destination(), 0); err == nil {
		t.Errorf("connecting across engines succeeded")
	}
	if _, err := e.CreateNode(modsynth.NodeDestination, nil); !errors.Is(err, modsynth.ErrUnsupportedKind) {
		t.Errorf("CreateNode(destination): err = %v, want ErrUnsupportedKind", err)
	}
}

func TestReleaseDropsLinks(t *testing.T) {
	e := engine.New(sampleRate)
	c := mustCreate(t, e, modsynth.NodeConstant, nil)
	g := mustCreate(t, e, modsynth.NodeGain, nil)
	mustConnect(t, e, c, 0, g, 0)
	mustConnect(t, e, g, 0, e.Destination(), 0)
	e.Release(g)
	if e.Links() != 0 || e.Nodes() != 2 {
		t.Errorf("after release: %d links, %d nodes; want 0, 2", e.Links(), e.Nodes())
	}
	e.Release(e.Destination())
	if e.Nodes() != 2 {
		t.Errorf("destination was released")
	}
	if f := e.Render(1)[0]; f != [2]float32{} {
		t.Errorf("frame = %v, want silence", f)
	}
}

func TestParamModulationAddsToIntrinsicValue(t *testing.T) {
	e := engine.New(sampleRate)
	c := mustCreate(t, e, modsynth.NodeConstant, modsynth.Options{"offset": 1})
	mod := mustCreate(t, e, modsynth.NodeConstant, modsynth.Options{"offset": 0.25})
	g := mustCreate(t, e, modsynth.NodeGain, modsynth.Options{"gain": 0.5})
	mustConnect(t, e, c, 0, g, 0)
	if err := e.ConnectParam(mod, 0, g, "gain"); err != nil {
		t.Fatal(err)
	}
	mustConnect(t, e, g, 0, e.Destination(), 0)
	if f := e.Render(1)[0]; !near(float64(f[0]), 0.75, 1e-6) {
		t.Errorf("frame = %v, want 0.75", f)
	}
	e.DisconnectParam(mod, 0, g, "gain")
	e.Render(engine.BlockSize - 1)
	if f := e.Render(1)[0]; !near(float64(f[0]), 0.5, 1e-6) {
		t.Errorf("frame after DisconnectParam = %v, want 0.5", f)
	}
}

func TestFeedbackCycleReadsPreviousBlock(t *testing.T) {
	e := engine.New(sampleRate)
	c := mustCreate(t, e, modsynth.NodeConstant, modsynth.Options{"offset": 0.25})
	a := mustCreate(t, e, modsynth.NodeGain, nil)
	b := mustCreate(t, e, modsynth.NodeGain, modsynth.Options{"gain": 0.5})
	mustConnect(t, e, c, 0, a, 0)
	mustConnect(t, e, a, 0, b, 0)
	mustConnect(t, e, b, 0, a, 0)
	mustConnect(t, e, a, 0, e.Destination(), 0)
	out := e.Render(4 * engine.BlockSize)
	// each block adds half of the previous one: 0.25, 0.375, 0.4375, ...
	want := 0.25
	for blk := 0; blk < 4; blk++ {
		got := float64(out[blk*engine.BlockSize][0])
		if !near(got, want, 1e-6) {
			t.Errorf("block %d = %v, want %v", blk, got, want)
		}
		want = 0.25 + want/2
	}
}

func TestOscillator(t *testing.T) {
	e := engine.New(sampleRate)
	o := mustCreate(t, e, modsynth.NodeOscillator, modsynth.Options{"frequency": 375.0, "type": "square"})
	mustConnect(t, e, o, 0, e.Destination(), 0)
	out := e.Render(128)
	// 128 samples per period
	for i, f := range out {
		want := float32(1)
		if i >= 64 {
			want = -1
		}
		if f[0] != want {
			t.Fatalf("sample %d = %v, want %v", i, f[0], want)
		}
	}
	if err := o.SetOption("type", "noise"); err == nil {
		t.Errorf("unknown wave accepted")
	}
	if _, err := e.CreateNode(modsynth.NodeOscillator, modsynth.Options{"frequency": "high"}); err == nil {
		t.Errorf("non-numeric parameter option accepted")
	}
}

func TestMergerAndSplitter(t *testing.T) {
	e := engine.New(sampleRate)
	l := mustCreate(t, e, modsynth.NodeConstant, modsynth.Options{"offset": 0.1})
	r := mustCreate(t, e, modsynth.NodeConstant, modsynth.Options{"offset": 0.2})
	m := mustCreate(t, e, modsynth.NodeMerger, nil)
	s := mustCreate(t, e, modsynth.NodeSplitter, nil)
	m2 := mustCreate(t, e, modsynth.NodeMerger, nil)
	mustConnect(t, e, l, 0, m, 0)
	mustConnect(t, e, r, 0, m, 1)
	mustConnect(t, e, m, 0, s, 0)
	// swap the channels
	mustConnect(t, e, s, 0, m2, 1)
	mustConnect(t, e, s, 1, m2, 0)
	mustConnect(t, e, m2, 0, e.Destination(), 0)
	f := e.Render(1)[0]
	if !near(float64(f[0]), 0.2, 1e-6) || !near(float64(f[1]), 0.1, 1e-6) {
		t.Errorf("frame = %v, want [0.2 0.1]", f)
	}
}

func TestStereoPanner(t *testing.T) {
	e := engine.New(sampleRate)
	c := mustCreate(t, e, modsynth.NodeConstant, modsynth.Options{"offset": 0.5})
	p := mustCreate(t, e, modsynth.NodeStereoPanner, modsynth.Options{"pan": 1})
	mustConnect(t, e, c, 0, p, 0)
	mustConnect(t, e, p, 0, e.Destination(), 0)
	f := e.Render(1)[0]
	if !near(float64(f[0]), 0, 1e-6) || !near(float64(f[1]), 1, 1e-6) {
		t.Errorf("hard right = %v, want [0 1]", f)
	}
}

func TestPanner(t *testing.T) {
	for _, tc := range []struct {
		name        string
		x, z        float64
		left, right float64
	}{
		{"ahead", 0, -1, math.Sqrt2 / 2, math.Sqrt2 / 2},
		{"right", 1, 0, 0, 1},
		{"left", -1, 0, 1, 0},
		{"far right", 4, 0, 0, 0.25},
	} {
		t.Run(tc.name, func(t *testing.T) {
			e := engine.New(sampleRate)
			c := mustCreate(t, e, modsynth.NodeConstant, nil)
			p := mustCreate(t, e, modsynth.NodePanner, modsynth.Options{"positionX": tc.x, "positionZ": tc.z})
			mustConnect(t, e, c, 0, p, 0)
			mustConnect(t, e, p, 0, e.Destination(), 0)
			f := e.Render(1)[0]
			if !near(float64(f[0]), tc.left, 1e-5) || !near(float64(f[1]), tc.right, 1e-5) {
				t.Errorf("frame = %v, want [%v %v]", f, tc.left, tc.right)
			}
		})
	}
}

func TestDelay(t *testing.T) {
	e := engine.New(sampleRate)
	c := mustCreate(t, e, modsynth.NodeConstant, modsynth.Options{"offset": 0.5})
	d := mustCreate(t, e, modsynth.NodeDelay, modsynth.Options{"maxDelayTime": 0.01, "delayTime": 100.0 / sampleRate})
	mustConnect(t, e, c, 0, d, 0)
	mustConnect(t, e, d, 0, e.Destination(), 0)
	out := e.Render(200)
	if !near(float64(out[99][0]), 0, 1e-4) {
		t.Errorf("sample 99 = %v, want 0", out[99][0])
	}
	if !near(float64(out[100][0]), 0.5, 1e-4) {
		t.Errorf("sample 100 = %v, want 0.5", out[100][0])
	}
	if _, err := e.CreateNode(modsynth.NodeDelay, modsynth.Options{"maxDelayTime": 200.0}); err == nil {
		t.Errorf("maxDelayTime above 180 s accepted")
	}
}

func TestCompressorReducesLoudSignal(t *testing.T) {
	e := engine.New(sampleRate)
	c := mustCreate(t, e, modsynth.NodeConstant, modsynth.Options{"offset": 0.9})
	k := mustCreate(t, e, modsynth.NodeCompressor, modsynth.Options{"threshold": -20.0, "knee": 0.0, "ratio": 4.0})
	mustConnect(t, e, c, 0, k, 0)
	mustConnect(t, e, k, 0, e.Destination(), 0)
	out := e.Render(sampleRate / 2)
	last := out[len(out)-1][0]
	if last >= 0.9 || last <= 0 {
		t.Errorf("compressed = %v, want in (0, 0.9)", last)
	}
	if r, ok := k.Get("reduction"); !ok || r >= 0 {
		t.Errorf("reduction = %v, %v; want a negative dB value", r, ok)
	}
}

func TestBiquadResponse(t *testing.T) {
	e := engine.New(sampleRate)
	n := mustCreate(t, e, modsynth.NodeBiquad, modsynth.Options{"type": "lowpass", "frequency": 1000.0, "Q": math.Sqrt2 / 2})
	r, ok := n.(modsynth.Responder)
	if !ok {
		t.Fatalf("biquad node does not implement Responder")
	}
	if g := r.Response(10); !near(g, 1, 1e-3) {
		t.Errorf("passband gain = %v, want 1", g)
	}
	if g := r.Response(1000); !near(g, math.Sqrt2/2, 1e-2) {
		t.Errorf("cutoff gain = %v, want -3 dB", g)
	}
	if g := r.Response(20000); g > 0.01 {
		t.Errorf("stopband gain = %v, want < 0.01", g)
	}
	if err := n.SetOption("type", "peaking"); err != nil {
		t.Fatal(err)
	}
	if err := n.Set("gain", 6); err != nil {
		t.Fatal(err)
	}
	if g := r.Response(1000); !near(20*math.Log10(g), 6, 0.1) {
		t.Errorf("peaking gain at center = %v dB, want 6", 20*math.Log10(g))
	}
}

func TestBiquadFiltersDC(t *testing.T) {
	e := engine.New(sampleRate)
	c := mustCreate(t, e, modsynth.NodeConstant, modsynth.Options{"offset": 0.5})
	n := mustCreate(t, e, modsynth.NodeBiquad, modsynth.Options{"type": "highpass", "frequency": 2000.0})
	mustConnect(t, e, c, 0, n, 0)
	mustConnect(t, e, n, 0, e.Destination(), 0)
	out := e.Render(sampleRate / 10)
	if v := out[len(out)-1][0]; math.Abs(float64(v)) > 1e-4 {
		t.Errorf("highpassed DC = %v, want 0", v)
	}
}

func TestBiquadCoefficients(t *testing.T) {
	for _, c := range []struct {
		typ    engine.FilterType
		at, db float64
		wantDb float64
		tol    float64
	}{
		{engine.Lowshelf, 20, 6, 6, 0.1},
		{engine.Lowshelf, 20000, 6, 0, 0.1},
		{engine.Highshelf, 20000, -6, -6, 0.2},
		{engine.Highshelf, 20, -6, 0, 0.1},
		{engine.Bandpass, 1000, 0, 0, 1e-6},
		{engine.Allpass, 300, 0, 0, 1e-6},
		{engine.Allpass, 5000, 0, 0, 1e-6},
	} {
		co := engine.Coefficients(c.typ, 1000, 1, c.db, sampleRate)
		if g := 20 * math.Log10(engine.Gain(co, c.at, sampleRate)); !near(g, c.wantDb, c.tol) {
			t.Errorf("%v %+v dB at %v Hz = %v dB, want %v", c.typ, c.db, c.at, g, c.wantDb)
		}
	}
	if g := engine.Gain(engine.Coefficients(engine.Notch, 1000, 1, 0, sampleRate), 1000, sampleRate); g > 1e-6 {
		t.Errorf("notch center gain = %v, want 0", g)
	}
	for _, ft := range []engine.FilterType{engine.Lowshelf, engine.Highshelf} {
		if ft.UsesQ() || !ft.UsesGain() {
			t.Errorf("%v: UsesQ = %v, UsesGain = %v", ft, ft.UsesQ(), ft.UsesGain())
		}
	}
}

func TestBiquadFollowsFrequencyCV(t *testing.T) {
	e := engine.New(sampleRate)
	o := mustCreate(t, e, modsynth.NodeOscillator, modsynth.Options{"frequency": 2000.0})
	n := mustCreate(t, e, modsynth.NodeBiquad, modsynth.Options{"type": "lowpass", "frequency": 100.0})
	cv := mustCreate(t, e, modsynth.NodeConstant, modsynth.Options{"offset": 0.0})
	mustConnect(t, e, o, 0, n, 0)
	mustConnect(t, e, n, 0, e.Destination(), 0)
	if err := e.ConnectParam(cv, 0, n, "frequency"); err != nil {
		t.Fatal(err)
	}
	peak := func() float64 {
		e.Render(sampleRate / 10)
		var p float64
		for _, f := range e.Render(sampleRate / 100) {
			p = math.Max(p, math.Abs(float64(f[0])))
		}
		return p
	}
	if p := peak(); p > 0.01 {
		t.Errorf("peak below the tone = %v, want < 0.01", p)
	}
	if err := cv.Set("offset", 15000); err != nil {
		t.Fatal(err)
	}
	if p := peak(); !near(p, 1, 0.05) {
		t.Errorf("peak with the cutoff raised by cv = %v, want 1", p)
	}
}

type counter struct{ calls int }

func (c *counter) Process(in, out [][]float32) {
	c.calls++
	for i := range out[0] {
		v := float32(0.125)
		if in[0] != nil {
			v += in[0][i]
		}
		out[0][i] = v
	}
}

func TestProcessorNode(t *testing.T) {
	e := engine.New(sampleRate)
	proc := &counter{}
	p := mustCreate(t, e, modsynth.NodeProcessor, modsynth.Options{"processor": proc, "inputs": 1})
	mustConnect(t, e, p, 0, e.Destination(), 0)
	if f := e.Render(1)[0]; !near(float64(f[0]), 0.125, 1e-6) {
		t.Errorf("unconnected input: frame = %v, want 0.125", f)
	}
	c := mustCreate(t, e, modsynth.NodeConstant, modsynth.Options{"offset": 0.5})
	mustConnect(t, e, c, 0, p, 0)
	e.Render(engine.BlockSize - 1)
	if f := e.Render(1)[0]; !near(float64(f[0]), 0.625, 1e-6) {
		t.Errorf("connected input: frame = %v, want 0.625", f)
	}
	if proc.calls != 2 {
		t.Errorf("Process called %d times, want 2", proc.calls)
	}
	if _, err := e.CreateNode(modsynth.NodeProcessor, nil); err == nil {
		t.Errorf("processor node without a processor accepted")
	}
}

func TestBufferSource(t *testing.T) {
	e := engine.New(sampleRate)
	data := make(modsynth.AudioBuffer, 10)
	for i := range data {
		data[i] = [2]float32{float32(i) / 10, -float32(i) / 10}
	}
	n := mustCreate(t, e, modsynth.NodeBufferSource, nil)
	mustConnect(t, e, n, 0, e.Destination(), 0)
	if err := n.SetOption("buffer", &modsynth.Sample{Data: data, SampleRate: sampleRate}); err != nil {
		t.Fatal(err)
	}
	if d, _ := n.Get("duration"); !near(d, 10.0/sampleRate, 1e-12) {
		t.Errorf("duration = %v", d)
	}
	if f := e.Render(1)[0]; f != [2]float32{} {
		t.Errorf("not playing: frame = %v, want silence", f)
	}
	e.Render(engine.BlockSize - 1)
	if err := n.SetOption("playing", true); err != nil {
		t.Fatal(err)
	}
	out := e.Render(20)
	for i := 0; i < 10; i++ {
		if !near(float64(out[i][0]), float64(i)/10, 1e-6) || !near(float64(out[i][1]), -float64(i)/10, 1e-6) {
			t.Fatalf("frame %d = %v", i, out[i])
		}
	}
	if out[15] != [2]float32{} {
		t.Errorf("past the end: frame = %v, want silence", out[15])
	}
	if p, _ := n.Get("playing"); p != 0 {
		t.Errorf("still playing after the end")
	}
}

type fixedStream struct{ v float32 }

func (s fixedStream) ReadSamples(dst []float32) int {
	half := len(dst) / 2
	for i := range dst[:half] {
		dst[i] = s.v
	}
	return half
}
func (fixedStream) SampleRate() float64 { return sampleRate }
func (fixedStream) Close() error        { return nil }

func TestStreamZeroesMissingSamples(t *testing.T) {
	e := engine.New(sampleRate)
	n := mustCreate(t, e, modsynth.NodeStream, modsynth.Options{"stream": fixedStream{0.5}})
	mustConnect(t, e, n, 0, e.Destination(), 0)
	out := e.Render(engine.BlockSize)
	if out[0][0] != 0.5 || out[engine.BlockSize-1][0] != 0 {
		t.Errorf("first = %v, last = %v; want 0.5, 0", out[0][0], out[engine.BlockSize-1][0])
	}
}

func TestAnalyser(t *testing.T) {
	e := engine.New(sampleRate)
	// bin 16 of a 1024 point transform
	freq := 16 * float64(sampleRate) / 1024
	o := mustCreate(t, e, modsynth.NodeOscillator, modsynth.Options{"frequency": freq})
	n := mustCreate(t, e, modsynth.NodeAnalyser, modsynth.Options{"fftSize": 1024})
	mustConnect(t, e, o, 0, n, 0)
	mustConnect(t, e, n, 0, e.Destination(), 0)
	a, ok := n.(modsynth.Analyser)
	if !ok {
		t.Fatalf("analyser node does not implement modsynth.Analyser")
	}
	if a.FFTSize() != 1024 {
		t.Errorf("FFTSize = %d", a.FFTSize())
	}
	bins := make([]float32, 512)
	for i := 0; i < 20; i++ {
		e.Render(1024)
		if k := a.Spectrum(bins); k != 512 {
			t.Fatalf("Spectrum returned %d bins", k)
		}
	}
	peak := 0
	for i, v := range bins {
		if v > bins[peak] {
			peak = i
		}
	}
	if peak != 16 {
		t.Errorf("spectral peak at bin %d, want 16", peak)
	}
	wave := make([]float32, 256)
	if k := a.TimeDomain(wave); k != 256 {
		t.Errorf("TimeDomain returned %d samples", k)
	}
	if p, ok := n.Get("peak"); !ok || p < 0.99 || p > 1 {
		t.Errorf("peak = %v, %v, want about 1", p, ok)
	}
	if _, err := e.CreateNode(modsynth.NodeAnalyser, modsynth.Options{"fftSize": 1000}); err == nil {
		t.Errorf("fftSize that is not a power of two accepted")
	}
}

func TestRead(t *testing.T) {
	e := engine.New(sampleRate)
	c := mustCreate(t, e, modsynth.NodeConstant, modsynth.Options{"offset": 0.5})
	mustConnect(t, e, c, 0, e.Destination(), 0)
	p := make([]byte, 8*3+5)
	n, err := e.Read(p)
	if err != nil || n != 24 {
		t.Fatalf("Read = %d, %v; want 24, nil", n, err)
	}
	if v := math.Float32frombits(binary.LittleEndian.Uint32(p[12:])); v != 0.5 {
		t.Errorf("right channel of frame 1 = %v, want 0.5", v)
	}
}
