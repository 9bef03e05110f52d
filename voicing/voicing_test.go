package voicing

import (
	"fmt"
	"testing"

	"github.com/jsphweid/chordsmith/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApply(t *testing.T) {
	cases := []struct {
		policy   Policy
		input    []model.Pitch
		expected []model.Pitch
	}{
		{Close, []model.Pitch{67, 60, 64}, []model.Pitch{60, 64, 67}},
		{First, []model.Pitch{60, 64, 67}, []model.Pitch{64, 67, 72}},
		{Second, []model.Pitch{60, 64, 67}, []model.Pitch{67, 72, 76}},
		{Open, []model.Pitch{60, 64, 67}, []model.Pitch{60, 67, 76}},
		{Open, []model.Pitch{60, 64, 67, 70}, []model.Pitch{60, 67, 70, 76}},
		{Open, []model.Pitch{60, 64, 67, 70, 74}, []model.Pitch{60, 67, 74, 76, 82}},
		{Drop2, []model.Pitch{60, 64, 67}, []model.Pitch{52, 60, 67}},
		{Drop2, []model.Pitch{60, 64, 67, 70}, []model.Pitch{55, 60, 64, 70}},
	}
	for _, c := range cases {
		t.Run(fmt.Sprintf("%v %v", c.policy, c.input), func(t *testing.T) {
			assert.Equal(t, c.expected, Apply(c.input, c.policy))
		})
	}
}

func TestApplyPreservesLength(t *testing.T) {
	chords := [][]model.Pitch{
		{60, 64, 67},
		{60, 64, 67, 70},
		{48, 55, 64, 67, 71},
		{60},
		{60, 67},
		{},
	}
	for _, c := range chords {
		for _, p := range Policies() {
			assert.Len(t, Apply(c, p), len(c), "%v %v", p, c)
		}
	}
}

func TestShortChordsAreIdentity(t *testing.T) {
	for _, p := range Policies() {
		assert.Equal(t, []model.Pitch{60, 67}, Apply([]model.Pitch{67, 60}, p), p)
		assert.Equal(t, []model.Pitch{62}, Apply([]model.Pitch{62}, p), p)
	}
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	in := []model.Pitch{60, 64, 67, 70}
	Apply(in, Drop2)
	Apply(in, Second)
	assert.Equal(t, []model.Pitch{60, 64, 67, 70}, in)
}

func TestParsePolicy(t *testing.T) {
	cases := map[string]Policy{
		"close":  Close,
		"root":   Close,
		"open":   Open,
		"inv1":   First,
		"1st":    First,
		"2nd":    Second,
		"drop2":  Drop2,
		"Drop-2": Drop2,
	}
	for in, expected := range cases {
		p, err := ParsePolicy(in)
		require.NoError(t, err, in)
		assert.Equal(t, expected, p)
	}

	_, err := ParsePolicy("drop3")
	assert.ErrorIs(t, err, ErrUnknownPolicy)
}
