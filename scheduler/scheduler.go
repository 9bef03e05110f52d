package scheduler

import (
	"log/slog"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/jsphweid/chordsmith/clock"
	"github.com/jsphweid/chordsmith/model"
	"github.com/jsphweid/chordsmith/sink"
	"github.com/jsphweid/chordsmith/util"
)

const (
	DefaultRate = 150 * time.Millisecond
	DefaultGate = 0.7
	MinGate     = 0.6
	MaxGate     = 0.8
)

// Timing holds the mode-specific durations of a performance. A Hold of zero
// or less sustains the notes until the chord is released. Offset delays the
// first onset in every mode.
type Timing struct {
	Offset     time.Duration `json:"offset" yaml:"offset"`
	Hold       time.Duration `json:"hold" yaml:"hold"`
	StrumDelay time.Duration `json:"strum_delay" yaml:"strum_delay"`
	Rate       time.Duration `json:"rate" yaml:"rate"`
	Gate       float64       `json:"gate" yaml:"gate"`
}

// Token identifies one Play call. It goes stale once the performance ends
// or the same chord id is played again.
type Token struct {
	ID  model.ChordID
	gen uint64
}

type Option func(*Scheduler)

// WithSeed fixes the source used for arp-random permutations.
func WithSeed(seed int64) Option {
	return func(s *Scheduler) {
		s.rng = rand.New(rand.NewSource(seed))
	}
}

// Scheduler turns chords into timed note events on a sink.
//
// Every piece of state sits behind one mutex and every timer callback takes
// that mutex and checks its task's cancelled flag before doing anything, so
// once Release, Cancel, StopArpeggio or SilenceAll returns none of the work
// they cancelled can reach the sink.
//
// Per pitch, note on and note off strictly alternate at the sink: a note on
// for a sounding pitch sends a note off first, and a note off is only sent by
// the event that currently owns the pitch.
type Scheduler struct {
	mu    sync.Mutex
	clock clock.Clock
	sink  sink.Sink
	rng   *rand.Rand

	gen   uint64
	seq   uint64
	perfs map[model.ChordID]*performance
	on    map[model.Pitch]owner
}

type owner struct {
	perf *performance
	seq  uint64
}

type performance struct {
	id    model.ChordID
	gen   uint64
	tasks map[*task]struct{}
	arp   *arpeggiator
}

type task struct {
	handle    clock.Handle
	cancelled bool
	tick      bool
}

func New(c clock.Clock, out sink.Sink, opts ...Option) *Scheduler {
	if out == nil {
		out = sink.Nop{}
	}
	s := &Scheduler{
		clock: c,
		sink:  out,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
		perfs: make(map[model.ChordID]*performance),
		on:    make(map[model.Pitch]owner),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetSink swaps the output. Pitches sounding on the old sink are turned off
// there; their pending note offs will not reach the new one.
func (s *Scheduler) SetSink(out sink.Sink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range util.SortedKeys(s.on) {
		s.sink.NoteOff(p)
	}
	s.on = make(map[model.Pitch]owner)
	if out == nil {
		out = sink.Nop{}
	}
	s.sink = out
}

// Play schedules pitches in the given mode and returns a token for the
// performance. Playing an id that is still active releases it first.
func (s *Scheduler) Play(id model.ChordID, pitches []model.Pitch, mode model.Mode, timing Timing, velocity int) Token {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.perfs[id]; ok {
		s.release(prev)
	}

	s.gen++
	perf := &performance{id: id, gen: s.gen, tasks: make(map[*task]struct{})}
	s.perfs[id] = perf

	notes := make([]model.Pitch, len(pitches))
	copy(notes, pitches)
	sort.Slice(notes, func(i, j int) bool {
		return notes[i] < notes[j]
	})

	slog.Debug("play", "chord", id, "mode", mode, "pitches", notes)

	switch {
	case mode.IsArpeggio():
		s.startArpeggio(perf, notes, mode, timing, velocity)
	case mode == model.ModeStrum:
		delay := util.Max(timing.StrumDelay, 0)
		for i, p := range notes {
			s.onset(perf, p, velocity, timing.Offset+time.Duration(i)*delay, timing.Hold)
		}
	default:
		for _, p := range notes {
			s.onset(perf, p, velocity, timing.Offset, timing.Hold)
		}
	}

	tok := Token{ID: id, gen: perf.gen}
	s.finishIfIdle(perf)
	return tok
}

// onset plays p after delay and, for a positive hold, schedules its note off
// hold after its own onset.
func (s *Scheduler) onset(perf *performance, p model.Pitch, velocity int, delay, hold time.Duration) {
	fire := func() {
		seq := s.noteOn(perf, p, velocity)
		if hold > 0 {
			s.after(perf, hold, func() {
				s.noteOff(p, seq)
			})
		}
	}
	if delay <= 0 {
		fire()
		return
	}
	s.after(perf, delay, fire)
}

// after schedules f on the clock on behalf of perf. Callers hold s.mu.
func (s *Scheduler) after(perf *performance, d time.Duration, f func()) *task {
	t := &task{}
	perf.tasks[t] = struct{}{}
	t.handle = s.clock.AfterFunc(d, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if t.cancelled {
			return
		}
		delete(perf.tasks, t)
		f()
		s.finishIfIdle(perf)
	})
	return t
}

func (s *Scheduler) noteOn(perf *performance, p model.Pitch, velocity int) uint64 {
	prev, sounding := s.on[p]
	if sounding {
		s.sink.NoteOff(p)
	}
	s.seq++
	s.on[p] = owner{perf: perf, seq: s.seq}
	s.sink.NoteOn(p, velocity)
	if sounding && prev.perf != perf {
		s.finishIfIdle(prev.perf)
	}
	return s.seq
}

func (s *Scheduler) noteOff(p model.Pitch, seq uint64) {
	o, ok := s.on[p]
	if !ok || o.seq != seq {
		return
	}
	delete(s.on, p)
	s.sink.NoteOff(p)
}

func (s *Scheduler) owns(perf *performance) bool {
	for _, o := range s.on {
		if o.perf == perf {
			return true
		}
	}
	return false
}

// finishIfIdle forgets a performance that has nothing left to do.
func (s *Scheduler) finishIfIdle(perf *performance) {
	if len(perf.tasks) > 0 || perf.arp.isRunning() || s.owns(perf) {
		return
	}
	if cur, ok := s.perfs[perf.id]; ok && cur == perf {
		delete(s.perfs, perf.id)
	}
}

func (s *Scheduler) cancelTasks(perf *performance) {
	for t := range perf.tasks {
		t.cancelled = true
		t.handle.Stop()
	}
	perf.tasks = make(map[*task]struct{})
	if perf.arp != nil {
		perf.arp.running = false
	}
}

func (s *Scheduler) release(perf *performance) {
	s.cancelTasks(perf)
	for _, p := range util.SortedKeys(s.on) {
		if s.on[p].perf == perf {
			delete(s.on, p)
			s.sink.NoteOff(p)
		}
	}
	delete(s.perfs, perf.id)
}

// Release cancels everything still pending for the chord, onsets included,
// and turns off every pitch it holds right away.
func (s *Scheduler) Release(id model.ChordID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if perf, ok := s.perfs[id]; ok {
		s.release(perf)
	}
}

// Cancel releases the performance behind tok. Stale tokens are ignored.
func (s *Scheduler) Cancel(tok Token) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if perf, ok := s.perfs[tok.ID]; ok && perf.gen == tok.gen {
		s.release(perf)
	}
}

// SilenceAll clears every pending timer and sends a note off for every
// pitch in the on state, including sustained notes with no timer.
func (s *Scheduler) SilenceAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, perf := range s.perfs {
		s.cancelTasks(perf)
	}
	s.perfs = make(map[model.ChordID]*performance)
	for _, p := range util.SortedKeys(s.on) {
		s.sink.NoteOff(p)
	}
	s.on = make(map[model.Pitch]owner)
}

// Pending is the number of scheduled callbacks not yet fired or cancelled.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, perf := range s.perfs {
		n += len(perf.tasks)
	}
	return n
}

// Active lists the pitches currently in the on state, ascending.
func (s *Scheduler) Active() []model.Pitch {
	s.mu.Lock()
	defer s.mu.Unlock()
	return util.SortedKeys(s.on)
}

// Playing reports whether the chord still has pending events, a running
// arpeggio or sounding notes.
func (s *Scheduler) Playing(id model.ChordID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.perfs[id]
	return ok
}
