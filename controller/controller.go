// Package controller owns the parameters of one chord widget and drives the
// chord, voicing and scheduling packages on its behalf.
package controller

import (
	"log/slog"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/google/uuid"
	"github.com/jsphweid/chordsmith/chord"
	"github.com/jsphweid/chordsmith/model"
	"github.com/jsphweid/chordsmith/scheduler"
	"github.com/jsphweid/chordsmith/util"
	"github.com/jsphweid/chordsmith/voicing"
)

const DefaultDebounce = 150 * time.Millisecond

// Player is the part of the scheduler a controller uses.
type Player interface {
	Play(id model.ChordID, pitches []model.Pitch, mode model.Mode, timing scheduler.Timing, velocity int) scheduler.Token
	Release(id model.ChordID)
	Playing(id model.ChordID) bool
}

// Silencer force-releases every voice it holds; synth.Engine is one.
type Silencer interface {
	Silence()
}

type Option func(*Controller)

// WithVoices attaches a voice engine that is force-released whenever the
// controller silences.
func WithVoices(s Silencer) Option {
	return func(c *Controller) { c.voices = s }
}

// WithDebounce sets how long parameter changes must settle before a latched
// chord is played again. Zero re-triggers immediately.
func WithDebounce(d time.Duration) Option {
	return func(c *Controller) {
		if d <= 0 {
			c.retrigger = func(f func()) { f() }
			return
		}
		c.retrigger = debounce.New(d)
	}
}

func WithParams(p Params) Option {
	return func(c *Controller) { c.params = p.Normalize() }
}

type Controller struct {
	mu        sync.Mutex
	player    Player
	voices    Silencer
	params    Params
	current   model.ChordID
	owned     map[model.ChordID]struct{}
	latched   bool
	closed    bool
	retrigger func(func())
}

func New(player Player, opts ...Option) *Controller {
	c := &Controller{
		player:    player,
		params:    DefaultParams(),
		owned:     make(map[model.ChordID]struct{}),
		retrigger: debounce.New(DefaultDebounce),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Chord builds the current pitches: formula, then voicing, then transpose.
func (c *Controller) Chord() ([]model.Pitch, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return build(c.params)
}

func build(p Params) ([]model.Pitch, error) {
	pitches, err := chord.Build(chord.Root(p.Root, p.Octave), p.Quality)
	if err != nil {
		return nil, err
	}
	return chord.Transpose(voicing.Apply(pitches, p.Voicing), p.Transpose), nil
}

func (c *Controller) play(timing scheduler.Timing) model.ChordID {
	pitches, err := build(c.params)
	if err != nil {
		slog.Warn("cannot build chord", "quality", c.params.Quality, "err", err)
		return ""
	}
	for old := range c.owned {
		if !c.player.Playing(old) {
			delete(c.owned, old)
		}
	}
	id := model.ChordID(uuid.New().String())
	c.player.Play(id, pitches, c.params.Mode, timing, c.params.Velocity)
	c.owned[id] = struct{}{}
	c.current = id
	slog.Debug("chord", "chord", id, "pitches", chord.NoteNames(pitches))
	return id
}

// Press starts the chord and sustains it until Release, whatever the
// configured hold. With latch on, pressing while the latched chord still
// sounds releases it instead.
func (c *Controller) Press() model.ChordID {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ""
	}
	timing := c.params.Timing
	timing.Hold = 0
	if c.params.Latch {
		if c.latched && c.player.Playing(c.current) {
			c.player.Release(c.current)
			c.latched = false
			c.current = ""
			return ""
		}
		id := c.play(timing)
		c.latched = id != ""
		return id
	}
	if c.current != "" {
		c.player.Release(c.current)
	}
	return c.play(timing)
}

// Release ends a momentary press. Latched chords ignore it.
func (c *Controller) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.params.Latch || c.current == "" {
		return
	}
	c.player.Release(c.current)
	c.current = ""
}

// Trigger plays the chord as a one-shot: chord and strum notes end after
// the hold (DefaultHold when unset). Arpeggios run until Stop.
func (c *Controller) Trigger() model.ChordID {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ""
	}
	timing := c.params.Timing
	if timing.Hold <= 0 {
		timing.Hold = DefaultHold
	}
	return c.play(timing)
}

// Playing reports whether the most recent chord still has anything going.
func (c *Controller) Playing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed && c.current != "" && c.player.Playing(c.current)
}

func (c *Controller) Latched() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.latched
}

func (c *Controller) Params() Params {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.params
}

// silence cuts every chord this controller started, pending events
// included. Voices are force-released first so the note offs that follow
// find nothing left to ring out. Callers hold c.mu.
func (c *Controller) silence() {
	if c.voices != nil {
		c.voices.Silence()
	}
	for _, id := range util.SortedKeys(c.owned) {
		c.player.Release(id)
	}
	c.owned = make(map[model.ChordID]struct{})
	c.latched = false
	c.current = ""
}

// update applies f to the parameters. A change that alters the chord
// silences immediately; a latched chord comes back once changes settle.
func (c *Controller) update(f func(p *Params)) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	before := c.params
	f(&c.params)
	c.params = c.params.Normalize()

	relatch := false
	switch {
	case before.changesChord(c.params):
		relatch = c.latched && c.params.Latch
		c.silence()
	case before.Latch && !c.params.Latch && c.latched:
		c.silence()
	}
	c.mu.Unlock()

	if relatch {
		c.retrigger(c.relatch)
	}
}

func (c *Controller) relatch() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || !c.params.Latch || c.latched {
		return
	}
	timing := c.params.Timing
	timing.Hold = 0
	c.latched = c.play(timing) != ""
}

func (c *Controller) SetParams(p Params) error {
	if _, err := chord.Lookup(p.Quality); p.Quality != "" && err != nil {
		return err
	}
	c.update(func(cur *Params) { *cur = p })
	return nil
}

func (c *Controller) SetRoot(pitchClass int) {
	c.update(func(p *Params) { p.Root = pitchClass })
}

func (c *Controller) SetOctave(octave int) {
	c.update(func(p *Params) { p.Octave = octave })
}

func (c *Controller) SetQuality(q model.Quality) error {
	if _, err := chord.Lookup(q); err != nil {
		return err
	}
	c.update(func(p *Params) { p.Quality = q })
	return nil
}

func (c *Controller) SetVoicing(v voicing.Policy) {
	c.update(func(p *Params) { p.Voicing = v })
}

func (c *Controller) SetTranspose(semitones int) {
	c.update(func(p *Params) { p.Transpose = semitones })
}

func (c *Controller) SetMode(m model.Mode) {
	c.update(func(p *Params) { p.Mode = m })
}

func (c *Controller) SetLatch(on bool) {
	c.update(func(p *Params) { p.Latch = on })
}

func (c *Controller) SetVelocity(v int) {
	c.update(func(p *Params) { p.Velocity = v })
}

func (c *Controller) SetTiming(t scheduler.Timing) {
	c.update(func(p *Params) { p.Timing = t })
}

// Stop silences everything this controller started.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.silence()
}

// Close stops and detaches the controller. Every later call is a no-op.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.silence()
	c.closed = true
	c.voices = nil
	c.player = nil
}
