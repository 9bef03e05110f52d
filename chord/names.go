package chord

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jsphweid/chordsmith/model"
	"github.com/pkg/errors"
)

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

var letterOffsets = map[byte]int{
	'C': 0, 'D': 2, 'E': 4, 'F': 5, 'G': 7, 'A': 9, 'B': 11,
}

// suffix -> quality for chord symbols ("Am7" -> "m7" -> min7)
var symbolSuffixes = map[string]model.Quality{
	"":        "major",
	"maj":     "major",
	"M":       "major",
	"m":       "minor",
	"min":     "minor",
	"-":       "minor",
	"dim":     "diminished",
	"o":       "diminished",
	"aug":     "augmented",
	"+":       "augmented",
	"sus2":    "sus2",
	"sus4":    "sus4",
	"sus":     "sus4",
	"maj7":    "maj7",
	"M7":      "maj7",
	"7":       "7",
	"dom7":    "7",
	"m7":      "min7",
	"min7":    "min7",
	"-7":      "min7",
	"m7b5":    "m7b5",
	"ø":       "m7b5",
	"dim7":    "dim7",
	"o7":      "dim7",
	"augmaj7": "augmaj7",
	"+maj7":   "augmaj7",
}

func PitchClass(p model.Pitch) int {
	return ((int(p) % 12) + 12) % 12
}

func PitchClassName(pc int) string {
	return noteNames[((pc%12)+12)%12]
}

// NoteName renders a pitch as e.g. "C4" or "F#3".
func NoteName(p model.Pitch) string {
	oct := int(p)/12 - 1
	if p < 0 && int(p)%12 != 0 {
		oct--
	}
	return fmt.Sprintf("%s%d", noteNames[PitchClass(p)], oct)
}

func NoteNames(pitches []model.Pitch) []string {
	res := make([]string, len(pitches))
	for i, p := range pitches {
		res[i] = NoteName(p)
	}
	return res
}

// parsePitchClass reads a letter and an optional accidental from the start
// of s and returns the pitch class and the number of bytes consumed.
func parsePitchClass(s string) (int, int, error) {
	if len(s) == 0 {
		return 0, 0, errors.New("empty note name")
	}
	letter := strings.ToUpper(s[:1])[0]
	pc, ok := letterOffsets[letter]
	if !ok {
		return 0, 0, errors.Errorf("invalid note letter %q", s[:1])
	}
	n := 1
	if len(s) > 1 {
		switch s[1] {
		case '#':
			pc++
			n++
		case 'b':
			pc--
			n++
		}
	}
	return (pc + 12) % 12, n, nil
}

// ParsePitchClass parses "C", "F#", "Bb".
func ParsePitchClass(s string) (int, error) {
	pc, n, err := parsePitchClass(s)
	if err != nil {
		return 0, err
	}
	if n != len(s) {
		return 0, errors.Errorf("invalid pitch class %q", s)
	}
	return pc, nil
}

// ParseNoteName parses names like "E1", "C4", "F#3", "Bb2" where C4 = 60.
func ParseNoteName(name string) (model.Pitch, error) {
	pc, n, err := parsePitchClass(name)
	if err != nil {
		return 0, err
	}
	if n >= len(name) {
		return 0, errors.Errorf("missing octave in note name %q", name)
	}
	octave, err := strconv.Atoi(name[n:])
	if err != nil {
		return 0, errors.Wrapf(err, "invalid octave in note name %q", name)
	}
	letterPc := letterOffsets[strings.ToUpper(name[:1])[0]]
	p := Root(pc, octave)
	// Cb4 is B3 and B#3 is C4: the accidental crosses the octave line
	if letterPc == 0 && pc == 11 {
		p -= 12
	} else if letterPc == 11 && pc == 0 {
		p += 12
	}
	return p, nil
}

// ParseSymbol splits a chord symbol such as "Am7" or "F#dim7" into a root
// pitch in the given octave and a quality.
func ParseSymbol(symbol string, octave int) (model.Pitch, model.Quality, error) {
	symbol = strings.TrimSpace(symbol)
	pc, n, err := parsePitchClass(symbol)
	if err != nil {
		return 0, "", errors.Wrapf(err, "invalid chord root in %q", symbol)
	}
	q, ok := symbolSuffixes[symbol[n:]]
	if !ok {
		return 0, "", errors.Wrapf(ErrUnknownQuality, "%q", symbol[n:])
	}
	return Root(pc, octave), q, nil
}
