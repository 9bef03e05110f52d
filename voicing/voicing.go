package voicing

import (
	"sort"
	"strings"

	"github.com/jsphweid/chordsmith/model"
	"github.com/pkg/errors"
)

var ErrUnknownPolicy = errors.New("unknown voicing policy")

type Policy string

const (
	Close  Policy = "close"
	Open   Policy = "open"
	First  Policy = "inv1"
	Second Policy = "inv2"
	Drop2  Policy = "drop2"
)

var policies = []Policy{Close, Open, First, Second, Drop2}

var policyAliases = map[string]Policy{
	"":       Close,
	"root":   Close,
	"1st":    First,
	"first":  First,
	"2nd":    Second,
	"second": Second,
	"drop-2": Drop2,
}

// minSize is the smallest chord the non-close policies act on.
const minSize = 3

func Policies() []Policy {
	res := make([]Policy, len(policies))
	copy(res, policies)
	return res
}

func ParsePolicy(s string) (Policy, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if p, ok := policyAliases[s]; ok {
		return p, nil
	}
	for _, p := range policies {
		if string(p) == s {
			return p, nil
		}
	}
	return "", errors.Wrapf(ErrUnknownPolicy, "%q", s)
}

func sorted(pitches []model.Pitch) []model.Pitch {
	res := make([]model.Pitch, len(pitches))
	copy(res, pitches)
	sort.Slice(res, func(i, j int) bool {
		return res[i] < res[j]
	})
	return res
}

// Apply redistributes pitches across octaves. The input is never mutated and
// the result always has the same length, sorted ascending. Chords with fewer
// than three notes come back sorted but otherwise untouched for every policy.
// Unknown policies behave like Close.
func Apply(pitches []model.Pitch, policy Policy) []model.Pitch {
	res := sorted(pitches)
	if len(res) < minSize {
		return res
	}

	switch policy {
	case First:
		res = invert(res, 1)
	case Second:
		res = invert(res, 2)
	case Open:
		// interior odd indices; the bass and the top note stay put
		for i := 1; i < len(res)-1; i += 2 {
			res[i] += 12
		}
	case Drop2:
		res[len(res)-2] -= 12
	default:
		return res
	}

	return sorted(res)
}

func invert(res []model.Pitch, n int) []model.Pitch {
	for i := 0; i < n; i++ {
		res[i] += 12
	}
	return res
}
