package model

// Pitch is a MIDI-compatible semitone number (60 = C4). Values outside
// 0-127 are legal here and only get dropped at an output sink.
type Pitch int

type Notes = []Pitch

// Quality names an interval formula, e.g. "major" or "7".
type Quality string

// ChordID identifies one triggered performance of a chord.
type ChordID string

type Chord struct {
	ID      ChordID
	Root    Pitch
	Quality Quality
	Pitches Notes
}

// Contains reports whether p is one of the chord's pitches.
func (c Chord) Contains(p Pitch) bool {
	for _, v := range c.Pitches {
		if v == p {
			return true
		}
	}
	return false
}
