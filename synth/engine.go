// Package synth renders note events with oscillator voices shaped by an
// ADSR envelope and mixed through a fixed effects chain.
package synth

import (
	"log/slog"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/jsphweid/chordsmith/audio"
	"github.com/jsphweid/chordsmith/clock"
	"github.com/jsphweid/chordsmith/model"
	"github.com/jsphweid/chordsmith/util"
)

// Engine is a polyphonic voice engine. It satisfies sink.Sink.
//
// The voice table holds the voices that have not been released; at most one
// per pitch. Released voices ring out in tails until a clock callback
// disconnects them.
type Engine struct {
	mu       sync.Mutex
	ctx      audio.Context
	clock    clock.Clock
	env      Envelope
	fx       Effects
	waveform audio.Waveform
	table    *voiceTable
	tails    map[*voice]struct{}
	chain    *chain
	closed   bool
}

type Option func(*engineOptions)

type engineOptions struct {
	env      Envelope
	fx       Effects
	waveform audio.Waveform
	seed     int64
}

func WithEnvelope(e Envelope) Option {
	return func(o *engineOptions) { o.env = e.Clamp() }
}

func WithEffects(fx Effects) Option {
	return func(o *engineOptions) { o.fx = fx.Clamp() }
}

func WithWaveform(w audio.Waveform) Option {
	return func(o *engineOptions) { o.waveform = w }
}

// WithSeed fixes the noise used for the reverb impulse response.
func WithSeed(seed int64) Option {
	return func(o *engineOptions) { o.seed = seed }
}

func New(ctx audio.Context, c clock.Clock, opts ...Option) *Engine {
	o := engineOptions{
		env:      DefaultEnvelope(),
		fx:       DefaultEffects(),
		waveform: audio.Sine,
		seed:     time.Now().UnixNano(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Engine{
		ctx:      ctx,
		clock:    c,
		env:      o.env,
		fx:       o.fx,
		waveform: o.waveform,
		table:    newVoiceTable(),
		tails:    make(map[*voice]struct{}),
		chain:    newChain(ctx, o.fx, rand.New(rand.NewSource(o.seed))),
	}
}

// NoteOn starts a voice for p. A voice already sounding at p is released
// over a few milliseconds first. Pitches outside 0-127 are ignored.
func (e *Engine) NoteOn(p model.Pitch, velocity int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || !util.InRange(p, 0, 127) {
		return
	}
	if old := e.table.evict(p); old != nil {
		e.release(old, forceRelease)
	}

	now := e.ctx.CurrentTime()
	env := e.env
	v := &voice{
		pitch:    p,
		velocity: velocity,
		osc:      e.ctx.NewOscillator(),
		amp:      e.ctx.NewGain(),
		env:      env,
		onset:    now,
	}
	v.osc.SetType(e.waveform)
	v.osc.Frequency().SetValueAtTime(audio.Frequency(int(p)), now)

	g := v.amp.Gain()
	g.SetValueAtTime(Epsilon, now)
	e.ramp(g, peakLevel(velocity), now+env.attackTime())
	e.ramp(g, env.sustainLevel(velocity), now+env.attackTime()+env.decayTime())

	v.osc.Connect(v.amp)
	v.amp.Connect(e.chain.bus)
	v.osc.Start(now)
	e.table.insert(v)
}

// ramp is an exponential ramp with the target floored at Epsilon.
func (e *Engine) ramp(p audio.Param, target, at float64) {
	if err := p.ExponentialRampToValueAtTime(math.Max(Epsilon, target), at); err != nil {
		slog.Debug("envelope ramp rejected", "target", target, "err", err)
	}
}

// NoteOff releases the voice at p. Without one it does nothing.
func (e *Engine) NoteOff(p model.Pitch) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if v := e.table.evict(p); v != nil {
		e.release(v, v.env.releaseTime())
	}
}

// release ramps v from its current level to Epsilon over dur and schedules
// its removal once the tail has finished. Callers hold e.mu.
func (e *Engine) release(v *voice, dur float64) {
	now := e.ctx.CurrentTime()
	g := v.amp.Gain()
	level := math.Max(Epsilon, g.ValueAt(now))
	g.CancelScheduledValues(now)
	g.SetValueAtTime(level, now)
	e.ramp(g, Epsilon, now+dur)
	v.osc.Stop(now + dur + stopSlack)

	v.released = true
	v.releaseAt = now
	v.releaseEnd = now + dur
	e.tails[v] = struct{}{}
	wait := time.Duration((dur + stopSlack) * float64(time.Second))
	v.dealloc = e.clock.AfterFunc(wait, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		e.deallocate(v)
	})
}

func (e *Engine) deallocate(v *voice) {
	if _, ok := e.tails[v]; !ok {
		return
	}
	delete(e.tails, v)
	v.osc.Disconnect()
	v.amp.Disconnect()
}

// ReleaseAll releases every voice with its own release time.
func (e *Engine) ReleaseAll() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, p := range e.table.pitches() {
		v := e.table.evict(p)
		e.release(v, v.env.releaseTime())
	}
}

// Silence force-releases every voice in a few milliseconds.
func (e *Engine) Silence() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, p := range e.table.pitches() {
		e.release(e.table.evict(p), forceRelease)
	}
}

// Close silences the engine and tears down every voice immediately. Later
// calls are ignored.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	for _, p := range e.table.pitches() {
		e.release(e.table.evict(p), forceRelease)
	}
	for v := range e.tails {
		v.dealloc.Stop()
		e.deallocate(v)
	}
}

// SetEnvelope changes the ADSR used by voices started from now on.
func (e *Engine) SetEnvelope(env Envelope) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.env = env.Clamp()
}

func (e *Engine) Envelope() Envelope {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.env
}

// RetargetLive moves sustaining voices to the current envelope's sustain
// level. Voices in other stages keep the envelope they started with.
func (e *Engine) RetargetLive() {
	e.mu.Lock()
	defer e.mu.Unlock()
	now := e.ctx.CurrentTime()
	for _, v := range e.table.voices {
		if v.state(now) != Sustaining {
			continue
		}
		v.env.Sustain = e.env.Sustain
		g := v.amp.Gain()
		g.CancelScheduledValues(now)
		g.SetValueAtTime(math.Max(Epsilon, g.ValueAt(now)), now)
		g.SetTargetAtTime(v.env.sustainLevel(v.velocity), now, SmoothingTime)
	}
}

func (e *Engine) SetWaveform(w audio.Waveform) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.waveform = w
}

// SetEffects smooths every chain control toward fx.
func (e *Engine) SetEffects(fx Effects) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fx = fx.Clamp()
	e.chain.set(e.fx, e.ctx.CurrentTime(), SmoothingTime)
}

func (e *Engine) Effects() Effects {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.fx
}

func (e *Engine) Analyser() audio.Analyser {
	return e.chain.analyser
}

// Active lists pitches with an unreleased voice.
func (e *Engine) Active() []model.Pitch {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.table.pitches()
}

// Tails is the number of released voices still connected.
func (e *Engine) Tails() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.tails)
}

// VoiceState reports the stage of the voice at p, falling back to the most
// recent released voice for that pitch.
func (e *Engine) VoiceState(p model.Pitch) State {
	e.mu.Lock()
	defer e.mu.Unlock()
	v := e.table.get(p)
	if v == nil {
		for t := range e.tails {
			if t.pitch == p && (v == nil || t.releaseAt > v.releaseAt) {
				v = t
			}
		}
	}
	if v == nil {
		return Idle
	}
	return v.state(e.ctx.CurrentTime())
}

func (e *Engine) Voices() []VoiceInfo {
	e.mu.Lock()
	defer e.mu.Unlock()
	now := e.ctx.CurrentTime()
	res := make([]VoiceInfo, 0, e.table.len())
	for _, p := range e.table.pitches() {
		v := e.table.get(p)
		res = append(res, VoiceInfo{Pitch: p, State: v.state(now), Level: v.amp.Gain().ValueAt(now)})
	}
	return res
}
