package synth

import (
	"github.com/jsphweid/chordsmith/audio"
	"github.com/jsphweid/chordsmith/clock"
	"github.com/jsphweid/chordsmith/model"
	"github.com/jsphweid/chordsmith/util"
)

type State int

const (
	Idle State = iota
	Attacking
	Decaying
	Sustaining
	Releasing
)

func (s State) String() string {
	switch s {
	case Attacking:
		return "attacking"
	case Decaying:
		return "decaying"
	case Sustaining:
		return "sustaining"
	case Releasing:
		return "releasing"
	}
	return "idle"
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

type voice struct {
	pitch    model.Pitch
	velocity int
	osc      audio.Oscillator
	amp      audio.Gain
	env      Envelope
	onset    float64

	released   bool
	releaseAt  float64
	releaseEnd float64
	dealloc    clock.Handle
}

// state derives the envelope stage at context time t.
func (v *voice) state(t float64) State {
	if v.released {
		if t >= v.releaseEnd {
			return Idle
		}
		return Releasing
	}
	switch {
	case t < v.onset+v.env.attackTime():
		return Attacking
	case t < v.onset+v.env.attackTime()+v.env.decayTime():
		return Decaying
	}
	return Sustaining
}

// VoiceInfo is a snapshot of one voice.
type VoiceInfo struct {
	Pitch model.Pitch `json:"pitch"`
	State State       `json:"state"`
	Level float64     `json:"level"`
}

// voiceTable holds at most one voice per pitch.
type voiceTable struct {
	voices map[model.Pitch]*voice
}

func newVoiceTable() *voiceTable {
	return &voiceTable{voices: make(map[model.Pitch]*voice)}
}

func (t *voiceTable) get(p model.Pitch) *voice {
	return t.voices[p]
}

// insert stores v and returns the voice it displaced, if any.
func (t *voiceTable) insert(v *voice) *voice {
	prev := t.voices[v.pitch]
	t.voices[v.pitch] = v
	return prev
}

func (t *voiceTable) evict(p model.Pitch) *voice {
	v, ok := t.voices[p]
	if !ok {
		return nil
	}
	delete(t.voices, p)
	return v
}

func (t *voiceTable) pitches() []model.Pitch {
	return util.SortedKeys(t.voices)
}

func (t *voiceTable) len() int {
	return len(t.voices)
}
