package controller

import (
	"time"

	"github.com/jsphweid/chordsmith/model"
	"github.com/jsphweid/chordsmith/scheduler"
	"github.com/jsphweid/chordsmith/util"
	"github.com/jsphweid/chordsmith/voicing"
)

const (
	DefaultHold       = 500 * time.Millisecond
	DefaultStrumDelay = 25 * time.Millisecond
	DefaultVelocity   = 100
	DefaultOctave     = 4

	MinOctave = -1
	MaxOctave = 9
)

// Params is everything a controller needs to build and perform a chord.
type Params struct {
	Root      int              `json:"root" yaml:"root"`
	Octave    int              `json:"octave" yaml:"octave"`
	Quality   model.Quality    `json:"quality" yaml:"quality"`
	Voicing   voicing.Policy   `json:"voicing" yaml:"voicing"`
	Transpose int              `json:"transpose" yaml:"transpose"`
	Mode      model.Mode       `json:"mode" yaml:"mode"`
	Latch     bool             `json:"latch" yaml:"latch"`
	Velocity  int              `json:"velocity" yaml:"velocity"`
	Timing    scheduler.Timing `json:"timing" yaml:"timing"`
}

func DefaultParams() Params {
	return Params{
		Root:     0,
		Octave:   DefaultOctave,
		Quality:  "major",
		Voicing:  voicing.Close,
		Mode:     model.ModeChord,
		Velocity: DefaultVelocity,
		Timing: scheduler.Timing{
			Hold:       DefaultHold,
			StrumDelay: DefaultStrumDelay,
			Rate:       scheduler.DefaultRate,
			Gate:       scheduler.DefaultGate,
		},
	}
}

// Normalize clamps out of range values instead of rejecting them.
func (p Params) Normalize() Params {
	p.Root = ((p.Root % 12) + 12) % 12
	p.Octave = util.Clamp(p.Octave, MinOctave, MaxOctave)
	p.Velocity = util.Clamp(p.Velocity, 1, 127)
	if p.Mode == "" {
		p.Mode = model.ModeChord
	}
	if p.Voicing == "" {
		p.Voicing = voicing.Close
	}
	if p.Quality == "" {
		p.Quality = "major"
	}
	p.Timing.StrumDelay = util.Max(p.Timing.StrumDelay, 0)
	return p
}

// changesChord reports whether moving from p to next invalidates whatever
// is sounding.
func (p Params) changesChord(next Params) bool {
	return p.Root != next.Root ||
		p.Octave != next.Octave ||
		p.Quality != next.Quality ||
		p.Voicing != next.Voicing ||
		p.Transpose != next.Transpose ||
		p.Mode != next.Mode
}
