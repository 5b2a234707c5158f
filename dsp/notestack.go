package dsp

// NoteStack holds the currently pressed notes in press order. A note is held
// at most once; pressing a held note again moves it to the top. It never
// allocates.
type NoteStack struct {
	notes [128]HeldNote
	n     int
}

// HeldNote is a pressed note and its velocity.
type HeldNote struct {
	Note     uint8
	Velocity uint8
}

// Push puts the note on top of the stack.
func (s *NoteStack) Push(note, velocity uint8) {
	note &= 0x7f
	s.Remove(note)
	s.notes[s.n] = HeldNote{Note: note, Velocity: velocity}
	s.n++
}

// Remove drops the note wherever it is in the stack and reports whether it
// was held.
func (s *NoteStack) Remove(note uint8) bool {
	note &= 0x7f
	for i := 0; i < s.n; i++ {
		if s.notes[i].Note == note {
			copy(s.notes[i:s.n], s.notes[i+1:s.n])
			s.n--
			return true
		}
	}
	return false
}

// Top returns the most recently pressed note still held.
func (s *NoteStack) Top() (HeldNote, bool) {
	if s.n == 0 {
		return HeldNote{}, false
	}
	return s.notes[s.n-1], true
}

func (s *NoteStack) Len() int { return s.n }

func (s *NoteStack) Reset() { s.n = 0 }
