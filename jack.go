package modsynth

type (
	// JackRole is the signal type and direction of a jack.
	JackRole int

	// Jack is a typed connection point of a module. Channel selects the
	// input or output index of the underlying node when one logical port maps
	// to one channel of a multi-channel node, e.g. the left and right inputs of
	// a merger.
	Jack struct {
		ID      string
		Name    string
		Role    JackRole
		Channel int
	}
)

const (
	AudioInput JackRole = iota
	AudioOutput
	ControlInput
	ControlOutput
)

func (r JackRole) IsInput() bool {
	return r == AudioInput || r == ControlInput
}

func (r JackRole) IsOutput() bool {
	return r == AudioOutput || r == ControlOutput
}

func (r JackRole) IsAudio() bool {
	return r == AudioInput || r == AudioOutput
}

func (r JackRole) String() string {
	switch r {
	case AudioInput:
		return "audio in"
	case AudioOutput:
		return "audio out"
	case ControlInput:
		return "cv in"
	case ControlOutput:
		return "cv out"
	}
	return "unknown"
}

// Orient decides which of two roles is the source of a cable. It returns
// srcFirst == true when a is the output and b the input, false when the
// reverse holds, and ok == false when the roles cannot be connected: two
// outputs, two inputs, or audio against control.
func Orient(a, b JackRole) (srcFirst bool, ok bool) {
	if a.IsAudio() != b.IsAudio() {
		return false, false
	}
	switch {
	case a.IsOutput() && b.IsInput():
		return true, true
	case a.IsInput() && b.IsOutput():
		return false, true
	}
	return false, false
}
