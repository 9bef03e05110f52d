package sink

import (
	"sync"
	"time"

	"github.com/jsphweid/chordsmith/clock"
	"github.com/jsphweid/chordsmith/model"
	"github.com/jsphweid/chordsmith/util"
)

// Recorder keeps a timestamped log of everything it receives, relative to
// the clock reading at construction.
type Recorder struct {
	mu     sync.Mutex
	clock  clock.Clock
	start  time.Time
	events []model.Event
	on     map[model.Pitch]bool
}

func NewRecorder(c clock.Clock) *Recorder {
	return &Recorder{clock: c, start: c.Now(), on: make(map[model.Pitch]bool)}
}

func (r *Recorder) NoteOn(p model.Pitch, velocity int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.on[p] = true
	r.events = append(r.events, model.Event{
		Kind:     model.NoteOn,
		Pitch:    p,
		Velocity: velocity,
		At:       r.clock.Now().Sub(r.start),
	})
}

func (r *Recorder) NoteOff(p model.Pitch) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.on, p)
	r.events = append(r.events, model.Event{
		Kind:  model.NoteOff,
		Pitch: p,
		At:    r.clock.Now().Sub(r.start),
	})
}

func (r *Recorder) Events() []model.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	res := make([]model.Event, len(r.events))
	copy(res, r.events)
	return res
}

// Sounding lists pitches whose last event was a note on.
func (r *Recorder) Sounding() []model.Pitch {
	r.mu.Lock()
	defer r.mu.Unlock()
	return util.SortedKeys(r.on)
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
	r.on = make(map[model.Pitch]bool)
	r.start = r.clock.Now()
}
