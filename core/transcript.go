package core

// Transcript is the ordered, append-only record of turns exchanged during one
// run. It is owned exclusively by the runner; agents only ever receive copies
// produced by Snapshot or Last. Sequence numbers start at 1 and are assigned
// on append, never reused.
//
// Transcript is not safe for concurrent use. A run is strictly sequential by
// design, so no locking is needed; independent runs own independent
// transcripts.
type Transcript struct {
	turns   []Turn
	nextSeq int
}

// NewTranscript creates an empty transcript.
func NewTranscript() *Transcript {
	return &Transcript{nextSeq: 1}
}

// Append assigns the next sequence number to the turn, stores it and returns
// the stored value.
func (t *Transcript) Append(turn Turn) Turn {
	turn.Seq = t.nextSeq
	t.nextSeq++
	t.turns = append(t.turns, turn)
	return turn
}

// Len returns the number of turns recorded so far.
func (t *Transcript) Len() int { return len(t.turns) }

// Snapshot returns a copy of all turns. Mutating the returned slice does not
// affect the transcript.
func (t *Transcript) Snapshot() []Turn {
	out := make([]Turn, len(t.turns))
	copy(out, t.turns)
	return out
}

// Last returns a copy of the trailing n turns (all turns when n exceeds the
// transcript length).
func (t *Transcript) Last(n int) []Turn {
	if n > len(t.turns) {
		n = len(t.turns)
	}
	out := make([]Turn, n)
	copy(out, t.turns[len(t.turns)-n:])
	return out
}

// LastTurn returns the most recently appended turn and true, or a zero Turn
// and false when the transcript is empty.
func (t *Transcript) LastTurn() (Turn, bool) {
	if len(t.turns) == 0 {
		return Turn{}, false
	}
	return t.turns[len(t.turns)-1], true
}
