package modsynth

type (
	// NodeKind selects the signal-processing primitive created by
	// Routing.CreateNode.
	NodeKind int

	// Options are the creation parameters of a node. Numeric entries set the
	// initial intrinsic value of the parameter with the same name; other
	// entries are kind specific, e.g. "type" of an oscillator or "processor"
	// of a processor node.
	Options map[string]any

	// Routing is the signal-routing capability of the host audio engine. All
	// methods are called from the control domain. Disconnecting a link that
	// does not exist is a no-op.
	Routing interface {
		CreateNode(kind NodeKind, opts Options) (Node, error)
		Connect(src Node, output int, dst Node, input int) error
		ConnectParam(src Node, output int, dst Node, param string) error
		Disconnect(src Node, output int, dst Node, input int)
		DisconnectParam(src Node, output int, dst Node, param string)
		// Release drops a node and every link touching it.
		Release(n Node)
		// Destination is the terminal output node, with a single input.
		Destination() Node
		// CurrentTime is the monotonic sample clock in seconds.
		CurrentTime() float64
		SampleRate() float64
	}

	// Node is a handle to one node of the routing capability.
	Node interface {
		Kind() NodeKind
		// Set changes the intrinsic value of a parameter.
		Set(param string, value float64) error
		// Get reads a parameter or a read-only meter (e.g. "reduction" of a
		// compressor).
		Get(name string) (float64, bool)
		// SetOption changes a non-numeric setting such as the oscillator type
		// or the buffer of a buffer source.
		SetOption(name string, value any) error
	}

	// Analyser is implemented by analyser nodes.
	Analyser interface {
		// TimeDomain copies the latest samples into dst and returns the count.
		TimeDomain(dst []float32) int
		// Spectrum copies magnitudes in dB of the latest spectrum into dst
		// and returns the count. Bin i is centered at i*sampleRate/FFTSize.
		Spectrum(dst []float32) int
		FFTSize() int
	}

	// Responder is implemented by filter nodes.
	Responder interface {
		// Response is the magnitude response at freq Hz.
		Response(freq float64) float64
	}

	// Processor is a block generator hosted by a processor node. Process runs
	// in the sample-rate domain: it must not block or allocate. in[i] is nil
	// when nothing is connected to input i; out[i] has the block length.
	Processor interface {
		Process(in, out [][]float32)
	}

	// Endpoint locates the node behind a jack: an output or input index of
	// Node, or, when Param is not empty, a parameter of Node.
	Endpoint struct {
		Node  Node
		Index int
		Param string
	}
)

const (
	NodeGain NodeKind = iota
	NodeOscillator
	NodeConstant
	NodeDelay
	NodeBiquad
	NodeCompressor
	NodeStereoPanner
	NodePanner
	NodeMerger
	NodeSplitter
	NodeAnalyser
	NodeBufferSource
	NodeStream
	NodeProcessor
	NodeDestination
)

var nodeKindNames = [...]string{
	"gain", "oscillator", "constant", "delay", "biquad", "compressor",
	"stereoPanner", "panner", "merger", "splitter", "analyser",
	"bufferSource", "stream", "processor", "destination",
}

func (k NodeKind) String() string {
	if k < 0 || int(k) >= len(nodeKindNames) {
		return "unknown"
	}
	return nodeKindNames[k]
}
