package synth

import (
	"math"
	"testing"
	"time"

	"github.com/jsphweid/chordsmith/audio"
	"github.com/jsphweid/chordsmith/clock"
	"github.com/jsphweid/chordsmith/model"
	"github.com/jsphweid/chordsmith/sink"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rate = 8000

var _ sink.Sink = (*Engine)(nil)

func newTestEngine(opts ...Option) (*audio.Graph, *clock.Manual, *Engine) {
	g := audio.NewGraph(rate)
	c := clock.NewManual(time.Unix(0, 0))
	return g, c, New(g, c, append([]Option{WithSeed(1)}, opts...)...)
}

func seconds(s float64) int {
	return int(s * rate)
}

func peak(samples []float64) float64 {
	m := 0.0
	for _, s := range samples {
		m = math.Max(m, math.Abs(s))
	}
	return m
}

func TestNoteOnProducesSound(t *testing.T) {
	g, _, e := newTestEngine()
	e.NoteOn(69, 127)
	assert.Equal(t, []model.Pitch{69}, e.Active())
	assert.Greater(t, peak(g.Render(seconds(0.1))), 0.05)
}

func TestRetriggerKeepsOneVoice(t *testing.T) {
	g, c, e := newTestEngine()
	e.NoteOn(60, 100)
	g.Render(seconds(0.05))
	e.NoteOn(60, 100)

	assert.Equal(t, []model.Pitch{60}, e.Active())
	assert.Len(t, e.Voices(), 1)
	assert.Equal(t, 1, e.Tails())

	c.Advance(30 * time.Millisecond)
	assert.Equal(t, 0, e.Tails())
	assert.Equal(t, []model.Pitch{60}, e.Active())
}

func TestNoteOffIsIdempotent(t *testing.T) {
	_, _, e := newTestEngine()
	e.NoteOn(60, 100)
	e.NoteOff(60)
	assert.Empty(t, e.Active())
	assert.Equal(t, 1, e.Tails())

	assert.NotPanics(t, func() {
		e.NoteOff(60)
		e.NoteOff(72)
	})
	assert.Empty(t, e.Active())
	assert.Equal(t, 1, e.Tails())
}

func TestVoiceStates(t *testing.T) {
	g, c, e := newTestEngine()
	e.NoteOn(60, 127)
	assert.Equal(t, Attacking, e.VoiceState(60))

	g.Render(seconds(0.05))
	assert.Equal(t, Decaying, e.VoiceState(60))

	g.Render(seconds(0.15))
	assert.Equal(t, Sustaining, e.VoiceState(60))
	require.Len(t, e.Voices(), 1)
	assert.InDelta(t, 0.6, e.Voices()[0].Level, 1e-9)

	e.NoteOff(60)
	assert.Equal(t, Releasing, e.VoiceState(60))

	g.Render(seconds(0.2))
	assert.Equal(t, Idle, e.VoiceState(60))
	c.Advance(time.Second)
	assert.Equal(t, Idle, e.VoiceState(60))
	assert.Equal(t, 0, e.Tails())
}

func TestAmplitudeNeverReachesZero(t *testing.T) {
	g, _, e := newTestEngine(WithEnvelope(Envelope{Attack: 0, Decay: 0, Sustain: 0, Release: 0}))
	e.NoteOn(60, 1)
	v := e.table.get(60)
	require.NotNil(t, v)
	gain := v.amp.Gain()

	for i := 0; i <= 100; i++ {
		assert.GreaterOrEqual(t, gain.ValueAt(float64(i)*0.001), Epsilon*(1-1e-9))
	}

	g.Render(seconds(0.1))
	e.NoteOff(60)
	now := g.CurrentTime()
	for i := 0; i <= 100; i++ {
		assert.GreaterOrEqual(t, gain.ValueAt(now+float64(i)*0.001), Epsilon*(1-1e-9))
	}
	assert.InDelta(t, Epsilon, gain.ValueAt(now+1), 1e-12)
}

func TestEnvelopeChangeOnlyAffectsNewVoices(t *testing.T) {
	g, _, e := newTestEngine()
	e.NoteOn(60, 127)
	e.SetEnvelope(Envelope{Attack: 1, Decay: 0.5, Sustain: 0.3, Release: 2})
	e.NoteOn(64, 127)

	assert.Equal(t, DefaultEnvelope(), e.table.get(60).env)
	assert.Equal(t, 1.0, e.table.get(64).env.Attack)

	g.Render(seconds(0.05))
	levels := map[model.Pitch]float64{}
	for _, v := range e.Voices() {
		levels[v.Pitch] = v.Level
	}
	assert.Greater(t, levels[60], levels[64])
	assert.Equal(t, Decaying, e.VoiceState(60))
	assert.Equal(t, Attacking, e.VoiceState(64))
}

func TestEnvelopeClamp(t *testing.T) {
	assert.Equal(t,
		Envelope{Attack: 5, Decay: 0, Sustain: 1, Release: 8},
		Envelope{Attack: 10, Decay: -1, Sustain: 2, Release: 20}.Clamp())
	assert.Equal(t, 0.0, Envelope{Attack: math.NaN()}.Clamp().Attack)
}

func TestRetargetLive(t *testing.T) {
	g, _, e := newTestEngine()
	e.NoteOn(60, 127)
	g.Render(seconds(0.3))
	e.SetEnvelope(Envelope{Attack: 0.01, Decay: 0.12, Sustain: 0.2, Release: 0.18})
	e.RetargetLive()
	g.Render(seconds(0.2))

	require.Len(t, e.Voices(), 1)
	assert.InDelta(t, 0.2, e.Voices()[0].Level, 0.01)
}

func TestEffectsAreSmoothed(t *testing.T) {
	g, _, e := newTestEngine()
	fx := DefaultEffects()
	fx.Master = 0.5
	fx.Reverb = 5
	e.SetEffects(fx)

	master := e.chain.master.Gain()
	assert.InDelta(t, 0.9, master.Value(), 1e-9)
	g.Render(seconds(0.2))
	assert.InDelta(t, 0.5, master.Value(), 1e-3)
	assert.Equal(t, 1.0, e.Effects().Reverb)
}

func TestSilence(t *testing.T) {
	g, c, e := newTestEngine()
	for _, p := range []model.Pitch{60, 64, 67} {
		e.NoteOn(p, 100)
	}
	g.Render(seconds(0.2))
	e.Silence()
	assert.Empty(t, e.Active())
	assert.Equal(t, 3, e.Tails())

	c.Advance(time.Second)
	assert.Equal(t, 0, e.Tails())
	g.Render(seconds(3))
	assert.Less(t, peak(g.Render(seconds(0.1))), 1e-3)
}

func TestReleaseAll(t *testing.T) {
	_, c, e := newTestEngine()
	e.NoteOn(60, 100)
	e.NoteOn(64, 100)
	e.ReleaseAll()
	assert.Empty(t, e.Active())
	c.Advance(100 * time.Millisecond)
	assert.Equal(t, 2, e.Tails())
	c.Advance(time.Second)
	assert.Equal(t, 0, e.Tails())
}

func TestClose(t *testing.T) {
	_, c, e := newTestEngine()
	e.NoteOn(60, 100)
	e.NoteOff(60)
	e.NoteOn(64, 100)
	e.Close()
	assert.Equal(t, 0, e.Tails())
	assert.Equal(t, 0, c.Pending())

	e.NoteOn(67, 100)
	assert.Empty(t, e.Active())
	assert.NotPanics(t, e.Close)
}

func TestOutOfRangePitchIgnored(t *testing.T) {
	_, _, e := newTestEngine()
	e.NoteOn(-1, 100)
	e.NoteOn(128, 100)
	assert.Empty(t, e.Active())
}
