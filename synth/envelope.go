package synth

import (
	"math"

	"github.com/jsphweid/chordsmith/util"
)

// Epsilon is the amplitude floor. Exponential ramps start from and end at
// it instead of zero.
const Epsilon = 1e-4

const (
	MaxAttack  = 5
	MaxDecay   = 5
	MaxSustain = 1
	MaxRelease = 8

	// minimum segment lengths so no ramp is instantaneous
	minAttack  = 0.001
	minDecay   = 0.001
	minRelease = 0.01

	// forceRelease is used when a pitch is re-struck while still sounding.
	forceRelease = 0.005

	// oscillators keep running this long past the end of their release
	stopSlack = 0.02

	minPeak = 0.2
	minVel  = 0.05
)

// Envelope is an ADSR shape in seconds; Sustain is a level in [0, 1]
// relative to the note's peak.
type Envelope struct {
	Attack  float64 `json:"attack" yaml:"attack"`
	Decay   float64 `json:"decay" yaml:"decay"`
	Sustain float64 `json:"sustain" yaml:"sustain"`
	Release float64 `json:"release" yaml:"release"`
}

func DefaultEnvelope() Envelope {
	return Envelope{Attack: 0.01, Decay: 0.12, Sustain: 0.6, Release: 0.18}
}

func clampFinite(v, hi float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return util.Clamp(v, 0, hi)
}

// Clamp limits every stage to its documented range.
func (e Envelope) Clamp() Envelope {
	return Envelope{
		Attack:  clampFinite(e.Attack, MaxAttack),
		Decay:   clampFinite(e.Decay, MaxDecay),
		Sustain: clampFinite(e.Sustain, MaxSustain),
		Release: clampFinite(e.Release, MaxRelease),
	}
}

func (e Envelope) attackTime() float64 {
	return math.Max(minAttack, e.Attack)
}

func (e Envelope) decayTime() float64 {
	return math.Max(minDecay, e.Decay)
}

func (e Envelope) releaseTime() float64 {
	return math.Max(minRelease, e.Release)
}

// peakLevel maps a MIDI velocity to the envelope's peak amplitude.
func peakLevel(velocity int) float64 {
	v := util.Clamp(float64(velocity)/127, minVel, 1)
	return math.Max(minPeak, v)
}

// sustainLevel scales the sustain fraction by velocity, floored at Epsilon.
func (e Envelope) sustainLevel(velocity int) float64 {
	v := util.Clamp(float64(velocity)/127, minVel, 1)
	return math.Max(Epsilon, e.Sustain*v)
}
