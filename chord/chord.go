package chord

import (
	"sort"
	"sync"

	"github.com/jsphweid/chordsmith/model"
	"github.com/pkg/errors"
)

var ErrUnknownQuality = errors.New("unknown chord quality")

type Formula struct {
	Quality model.Quality
	Offsets []int
}

var (
	formulasMu sync.RWMutex
	formulas   = map[model.Quality][]int{
		// triads
		"major":      {0, 4, 7},
		"minor":      {0, 3, 7},
		"diminished": {0, 3, 6},
		"augmented":  {0, 4, 8},
		"sus2":       {0, 2, 7},
		"sus4":       {0, 5, 7},

		// sevenths
		"maj7":    {0, 4, 7, 11},
		"7":       {0, 4, 7, 10},
		"min7":    {0, 3, 7, 10},
		"m7b5":    {0, 3, 6, 10},
		"dim7":    {0, 3, 6, 9},
		"augmaj7": {0, 4, 8, 11},
	}
	aliases = map[model.Quality]model.Quality{
		"maj":    "major",
		"min":    "minor",
		"m":      "minor",
		"dim":    "diminished",
		"aug":    "augmented",
		"dom7":   "7",
		"m7":     "min7",
		"min7b5": "m7b5",
	}
)

// NewFormula validates offsets: non-negative, strictly ascending, and
// within a single octave span of the first offset.
func NewFormula(q model.Quality, offsets []int) (Formula, error) {
	if len(offsets) == 0 {
		return Formula{}, errors.Errorf("formula %q has no offsets", q)
	}
	for i, o := range offsets {
		if o < 0 {
			return Formula{}, errors.Errorf("formula %q: negative offset %d", q, o)
		}
		if i > 0 && o <= offsets[i-1] {
			return Formula{}, errors.Errorf("formula %q: offsets must be strictly ascending", q)
		}
	}
	if offsets[len(offsets)-1]-offsets[0] >= 12 {
		return Formula{}, errors.Errorf("formula %q spans more than an octave", q)
	}
	cp := make([]int, len(offsets))
	copy(cp, offsets)
	return Formula{Quality: q, Offsets: cp}, nil
}

// Register adds or replaces a named formula.
func Register(q model.Quality, offsets []int) error {
	f, err := NewFormula(q, offsets)
	if err != nil {
		return err
	}
	formulasMu.Lock()
	defer formulasMu.Unlock()
	formulas[q] = f.Offsets
	return nil
}

// Lookup resolves aliases and returns a copy of the formula's offsets.
func Lookup(q model.Quality) (Formula, error) {
	formulasMu.RLock()
	defer formulasMu.RUnlock()
	if a, ok := aliases[q]; ok {
		q = a
	}
	offsets, ok := formulas[q]
	if !ok {
		return Formula{}, errors.Wrapf(ErrUnknownQuality, "%q", q)
	}
	cp := make([]int, len(offsets))
	copy(cp, offsets)
	return Formula{Quality: q, Offsets: cp}, nil
}

// Qualities lists the registered quality names in sorted order.
func Qualities() []model.Quality {
	formulasMu.RLock()
	defer formulasMu.RUnlock()
	res := make([]model.Quality, 0, len(formulas))
	for q := range formulas {
		res = append(res, q)
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i] < res[j]
	})
	return res
}

func FromFormula(root model.Pitch, intervals []int) []model.Pitch {
	res := make([]model.Pitch, len(intervals))
	for i, v := range intervals {
		res[i] = root + model.Pitch(v)
	}
	return res
}

func Transpose(pitches []model.Pitch, semitones int) []model.Pitch {
	res := make([]model.Pitch, len(pitches))
	for i, p := range pitches {
		res[i] = p + model.Pitch(semitones)
	}
	return res
}

func Build(root model.Pitch, q model.Quality) ([]model.Pitch, error) {
	f, err := Lookup(q)
	if err != nil {
		return nil, err
	}
	return FromFormula(root, f.Offsets), nil
}

// Root returns the pitch of a pitch class in an octave, C4 = 60.
func Root(pitchClass, octave int) model.Pitch {
	pc := ((pitchClass % 12) + 12) % 12
	return model.Pitch((octave+1)*12 + pc)
}
