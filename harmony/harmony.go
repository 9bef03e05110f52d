// Package harmony turns incoming notes into chords: each note sounds with a
// triad quantised to a key and a fifth that enters after a delay.
package harmony

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jsphweid/chordsmith/model"
	"github.com/jsphweid/chordsmith/scheduler"
	"github.com/jsphweid/chordsmith/util"
	"github.com/pkg/errors"
	"gitlab.com/gomidi/midi/v2"
)

const DefaultDelay = 500 * time.Millisecond

type Scale string

const (
	Major      Scale = "Major"
	Minor      Scale = "Minor"
	Dorian     Scale = "Dorian"
	Mixolydian Scale = "Mixolydian"
)

// scale degrees 1-3-5
var triads = map[Scale][]int{
	Major:      {0, 4, 7},
	Minor:      {0, 3, 7},
	Dorian:     {0, 3, 7},
	Mixolydian: {0, 4, 7},
}

func ParseScale(s string) (Scale, error) {
	for sc := range triads {
		if strings.EqualFold(string(sc), s) {
			return sc, nil
		}
	}
	return "", errors.Errorf("unknown scale %q", s)
}

type Settings struct {
	Key   int           `json:"key" yaml:"key"`
	Scale Scale         `json:"scale" yaml:"scale"`
	Chord bool          `json:"chord" yaml:"chord"`
	Delay time.Duration `json:"delay" yaml:"delay"`
}

func DefaultSettings() Settings {
	return Settings{Key: 0, Scale: Major, Chord: true, Delay: DefaultDelay}
}

type Player interface {
	Play(id model.ChordID, pitches []model.Pitch, mode model.Mode, timing scheduler.Timing, velocity int) scheduler.Token
	Release(id model.ChordID)
}

// Follower remembers which input notes are held so that each note off
// releases exactly what its note on generated.
type Follower struct {
	mu       sync.Mutex
	player   Player
	settings Settings
	held     map[model.Pitch]bool
}

func New(player Player, s Settings) *Follower {
	return &Follower{player: player, settings: normalize(s), held: make(map[model.Pitch]bool)}
}

func normalize(s Settings) Settings {
	s.Key = ((s.Key % 12) + 12) % 12
	if _, ok := triads[s.Scale]; !ok {
		s.Scale = Major
	}
	s.Delay = util.Max(s.Delay, 0)
	return s
}

func (f *Follower) SetSettings(s Settings) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settings = normalize(s)
}

func (f *Follower) Settings() Settings {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.settings
}

// Quantize moves note to the nearest triad degree of the key, keeping its
// octave.
func (s Settings) Quantize(note model.Pitch) model.Pitch {
	octave := int(note) / 12
	rel := ((int(note)%12 - s.Key) + 12) % 12
	closest, best := 0, 12
	for _, interval := range triads[s.Scale] {
		d := rel - interval
		if d < 0 {
			d = -d
		}
		d = util.Min(d, 12-d)
		if d < best {
			best, closest = d, interval
		}
	}
	return model.Pitch(octave*12 + (s.Key+closest)%12)
}

// Triad builds the scale's triad on root.
func (s Settings) Triad(root model.Pitch) []model.Pitch {
	res := make([]model.Pitch, 0, 3)
	for _, interval := range triads[s.Scale] {
		res = append(res, root+model.Pitch(interval))
	}
	return res
}

func chordID(note model.Pitch) model.ChordID {
	return model.ChordID(fmt.Sprintf("harmony-%d", note))
}

func fifthID(note model.Pitch) model.ChordID {
	return model.ChordID(fmt.Sprintf("harmony-%d-fifth", note))
}

func (f *Follower) NoteOn(note model.Pitch, velocity int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.held[note] {
		f.release(note)
	}
	s := f.settings

	pitches := []model.Pitch{note}
	if s.Chord {
		for _, p := range s.Triad(s.Quantize(note)) {
			if p != note {
				pitches = append(pitches, p)
			}
		}
	}
	f.player.Play(chordID(note), pitches, model.ModeChord, scheduler.Timing{}, velocity)
	f.player.Play(fifthID(note), []model.Pitch{note + 7}, model.ModeChord, scheduler.Timing{Offset: s.Delay}, velocity)
	f.held[note] = true
}

// NoteOff releases everything the matching note on produced, including a
// fifth that has not entered yet.
func (f *Follower) NoteOff(note model.Pitch) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.held[note] {
		f.release(note)
	}
}

func (f *Follower) release(note model.Pitch) {
	f.player.Release(chordID(note))
	f.player.Release(fifthID(note))
	delete(f.held, note)
}

// Stop releases every held input note.
func (f *Follower) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, note := range util.SortedKeys(f.held) {
		f.release(note)
	}
}

// HandleMessage decodes a raw channel message. Anything other than a note
// start or end is ignored.
func (f *Follower) HandleMessage(msg []byte) {
	var ch, key, vel uint8
	m := midi.Message(msg)
	switch {
	case m.GetNoteStart(&ch, &key, &vel):
		f.NoteOn(model.Pitch(key), int(vel))
	case m.GetNoteEnd(&ch, &key):
		f.NoteOff(model.Pitch(key))
	}
}
