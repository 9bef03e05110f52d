package scheduler

import (
	"fmt"
	"testing"
	"time"

	"github.com/jsphweid/chordsmith/clock"
	"github.com/jsphweid/chordsmith/model"
	"github.com/jsphweid/chordsmith/sink"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ms = time.Millisecond

func setup(opts ...Option) (*clock.Manual, *sink.Recorder, *Scheduler) {
	c := clock.NewManual(time.Unix(0, 0))
	rec := sink.NewRecorder(c)
	return c, rec, New(c, rec, opts...)
}

func on(p model.Pitch, at time.Duration) model.Event {
	return model.Event{Kind: model.NoteOn, Pitch: p, Velocity: 100, At: at}
}

func off(p model.Pitch, at time.Duration) model.Event {
	return model.Event{Kind: model.NoteOff, Pitch: p, At: at}
}

func onsets(events []model.Event) []model.Pitch {
	var res []model.Pitch
	for _, e := range events {
		if e.Kind == model.NoteOn {
			res = append(res, e.Pitch)
		}
	}
	return res
}

// assertAlternates checks that no pitch gets two ons or two offs in a row
// and that everything ends up off.
func assertAlternates(t *testing.T, events []model.Event) {
	t.Helper()
	sounding := make(map[model.Pitch]bool)
	for i, e := range events {
		if e.Kind == model.NoteOn {
			assert.False(t, sounding[e.Pitch], "double note on at %d: %v", i, e)
			sounding[e.Pitch] = true
		} else {
			assert.True(t, sounding[e.Pitch], "unmatched note off at %d: %v", i, e)
			sounding[e.Pitch] = false
		}
	}
	for p, s := range sounding {
		assert.False(t, s, "pitch %d left on", p)
	}
}

func TestChordMode(t *testing.T) {
	c, rec, s := setup()
	s.Play("a", []model.Pitch{67, 60, 64}, model.ModeChord, Timing{Hold: 500 * ms}, 100)
	c.Advance(time.Second)

	assert.Equal(t, []model.Event{
		on(60, 0), on(64, 0), on(67, 0),
		off(60, 500*ms), off(64, 500*ms), off(67, 500*ms),
	}, rec.Events())
	assert.False(t, s.Playing("a"))
	assert.Equal(t, 0, s.Pending())
}

func TestStrum(t *testing.T) {
	c, rec, s := setup()
	s.Play("a", []model.Pitch{60, 64, 67}, model.ModeStrum, Timing{Hold: 500 * ms, StrumDelay: 25 * ms}, 100)
	c.Advance(time.Second)

	assert.Equal(t, []model.Event{
		on(60, 0), on(64, 25*ms), on(67, 50*ms),
		off(60, 500*ms), off(64, 525*ms), off(67, 550*ms),
	}, rec.Events())
}

func TestArpeggioDown(t *testing.T) {
	c, rec, s := setup()
	s.Play("a", []model.Pitch{60, 64, 67}, model.ModeArpDown, Timing{Rate: 150 * ms}, 100)
	c.Advance(899 * ms)

	events := rec.Events()
	assert.Equal(t, []model.Pitch{67, 64, 60, 67, 64, 60}, onsets(events))
	var times []time.Duration
	for _, e := range events {
		if e.Kind == model.NoteOn {
			times = append(times, e.At)
		}
	}
	assert.Equal(t, []time.Duration{0, 150 * ms, 300 * ms, 450 * ms, 600 * ms, 750 * ms}, times)
	assert.True(t, s.Running("a"))

	s.StopArpeggio("a")
	assert.False(t, s.Running("a"))
	before := len(onsets(rec.Events()))
	c.Advance(5 * time.Second)

	assert.Len(t, onsets(rec.Events()), before, "no note may fire after stop")
	assertAlternates(t, rec.Events())
	assert.Equal(t, 0, s.Pending())
	assert.Equal(t, 0, c.Pending())
}

func TestArpeggioGateIsShorterThanRate(t *testing.T) {
	c, rec, s := setup()
	s.Play("a", []model.Pitch{60, 64}, model.ModeArpUp, Timing{Rate: 100 * ms, Gate: 0.95}, 100)
	c.Advance(150 * ms)

	assert.Equal(t, []model.Event{
		on(60, 0), off(60, 80*ms), on(64, 100*ms),
	}, rec.Events())
}

func TestArpeggioDefaultGate(t *testing.T) {
	c, rec, s := setup()
	s.Play("a", []model.Pitch{60}, model.ModeArpUp, Timing{}, 100)
	c.Advance(120 * ms)

	assert.Equal(t, []model.Event{on(60, 0), off(60, 105*ms)}, rec.Events())
}

func TestArpeggioRandomIsFixedPerTrigger(t *testing.T) {
	notes := []model.Pitch{60, 62, 64, 65, 67, 69, 71}

	c, rec, s := setup(WithSeed(7))
	s.Play("a", notes, model.ModeArpRandom, Timing{Rate: 100 * ms}, 100)
	c.Advance(3*700*ms - ms)
	s.SilenceAll()

	played := onsets(rec.Events())
	require.Len(t, played, 21)
	first := played[:7]
	assert.ElementsMatch(t, notes, first)
	assert.Equal(t, first, played[7:14])
	assert.Equal(t, first, played[14:21])

	c2, rec2, s2 := setup(WithSeed(7))
	s2.Play("a", notes, model.ModeArpRandom, Timing{Rate: 100 * ms}, 100)
	c2.Advance(700*ms - ms)
	assert.Equal(t, first, onsets(rec2.Events()))
}

func TestSustainUntilRelease(t *testing.T) {
	c, rec, s := setup()
	s.Play("a", []model.Pitch{60, 64, 67}, model.ModeChord, Timing{}, 100)
	c.Advance(10 * time.Second)
	assert.Len(t, rec.Events(), 3)
	assert.True(t, s.Playing("a"))

	s.Release("a")
	assert.Equal(t, []model.Event{
		on(60, 0), on(64, 0), on(67, 0),
		off(60, 10*time.Second), off(64, 10*time.Second), off(67, 10*time.Second),
	}, rec.Events())
	assert.False(t, s.Playing("a"))
}

func TestReleaseCancelsPendingOnsets(t *testing.T) {
	c, rec, s := setup()
	s.Play("a", []model.Pitch{60, 64, 67}, model.ModeStrum, Timing{Hold: time.Second, StrumDelay: 100 * ms}, 100)
	c.Advance(50 * ms)
	s.Release("a")
	c.Advance(5 * time.Second)

	assert.Equal(t, []model.Event{on(60, 0), off(60, 50*ms)}, rec.Events())
	assert.Equal(t, 0, c.Pending())
}

func TestCancelIgnoresStaleToken(t *testing.T) {
	c, rec, s := setup()
	first := s.Play("a", []model.Pitch{60}, model.ModeChord, Timing{}, 100)
	s.Play("a", []model.Pitch{62}, model.ModeChord, Timing{}, 100)
	s.Cancel(first)
	assert.Equal(t, []model.Pitch{62}, s.Active())

	c.Advance(ms)
	assert.Equal(t, []model.Event{on(60, 0), off(60, 0), on(62, 0)}, rec.Events())
}

func TestRetriggerSamePitch(t *testing.T) {
	c, rec, s := setup()
	s.Play("a", []model.Pitch{60}, model.ModeChord, Timing{Hold: 500 * ms}, 100)
	c.Advance(100 * ms)
	s.Play("b", []model.Pitch{60}, model.ModeChord, Timing{Hold: 500 * ms}, 100)
	c.Advance(time.Second)

	assert.Equal(t, []model.Event{
		on(60, 0), off(60, 100*ms), on(60, 100*ms), off(60, 600*ms),
	}, rec.Events())
	assert.False(t, s.Playing("a"))
	assert.False(t, s.Playing("b"))
}

func TestOverlappingTriggersAlternatePerPitch(t *testing.T) {
	c, rec, s := setup(WithSeed(3))
	modes := []model.Mode{model.ModeStrum, model.ModeArpUp, model.ModeChord, model.ModeArpRandom, model.ModeArpDown}
	for i := 0; i < 20; i++ {
		id := model.ChordID(fmt.Sprint(i % 4))
		root := model.Pitch(60 + i%5)
		s.Play(id, []model.Pitch{root, root + 4, root + 7}, modes[i%len(modes)],
			Timing{Hold: 300 * ms, StrumDelay: 30 * ms, Rate: 70 * ms}, 100)
		c.Advance(time.Duration(37*(i%3)+11) * ms)
	}
	s.SilenceAll()
	assertAlternates(t, rec.Events())
}

func TestSilenceAll(t *testing.T) {
	c, rec, s := setup()
	for i := 0; i < 5; i++ {
		id := model.ChordID(fmt.Sprint(i))
		root := model.Pitch(48 + 3*i)
		s.Play(id, []model.Pitch{root, root + 4, root + 7}, model.ModeStrum, Timing{Hold: time.Second, StrumDelay: 40 * ms}, 100)
		s.Play(id+"-arp", []model.Pitch{root + 12, root + 16}, model.ModeArpUp, Timing{Rate: 90 * ms}, 100)
		c.Advance(30 * ms)
	}
	s.Play("held", []model.Pitch{36}, model.ModeChord, Timing{}, 100)
	require.NotZero(t, s.Pending())

	s.SilenceAll()
	assert.Empty(t, s.Active())
	assert.Equal(t, 0, s.Pending())
	assert.Equal(t, 0, c.Pending())
	assert.Empty(t, rec.Sounding())

	n := len(rec.Events())
	c.Advance(10 * time.Second)
	assert.Len(t, rec.Events(), n)
	assertAlternates(t, rec.Events())
}

func TestSetSinkMovesOutput(t *testing.T) {
	c, rec, s := setup()
	other := sink.NewRecorder(c)
	s.Play("a", []model.Pitch{60, 64}, model.ModeStrum, Timing{Hold: 500 * ms, StrumDelay: 100 * ms}, 100)
	c.Advance(50 * ms)
	s.SetSink(other)
	c.Advance(time.Second)

	assert.Equal(t, []model.Event{on(60, 0), off(60, 50*ms)}, rec.Events())
	assert.Equal(t, []model.Event{on(64, 100*ms), off(64, 600*ms)}, other.Events())
}

func TestNilSink(t *testing.T) {
	c := clock.NewManual(time.Unix(0, 0))
	s := New(c, nil)
	assert.NotPanics(t, func() {
		s.Play("a", []model.Pitch{60}, model.ModeArpUp, Timing{}, 100)
		c.Advance(time.Second)
		s.SilenceAll()
	})
}

func TestRealClock(t *testing.T) {
	c := clock.Real{}
	rec := sink.NewRecorder(c)
	s := New(c, rec)
	s.Play("a", []model.Pitch{60, 64, 67}, model.ModeArpUp, Timing{Rate: 5 * ms}, 100)
	time.Sleep(30 * ms)
	s.SilenceAll()
	n := len(rec.Events())
	time.Sleep(30 * ms)

	assert.Len(t, rec.Events(), n)
	assert.Empty(t, rec.Sounding())
}

func TestOffsetDelaysFirstOnset(t *testing.T) {
	c, rec, s := setup()
	s.Play("a", []model.Pitch{60, 64}, model.ModeStrum, Timing{Offset: 100 * ms, StrumDelay: 10 * ms, Hold: 50 * ms}, 100)
	s.Play("b", []model.Pitch{72}, model.ModeArpUp, Timing{Offset: 300 * ms, Rate: 100 * ms}, 100)
	assert.True(t, s.Running("b"))
	c.Advance(350 * ms)

	assert.Equal(t, []model.Event{
		on(60, 100*ms), on(64, 110*ms), off(60, 150*ms), off(64, 160*ms), on(72, 300*ms),
	}, rec.Events())
}
