package harmony

import (
	"testing"
	"time"

	"github.com/jsphweid/chordsmith/clock"
	"github.com/jsphweid/chordsmith/model"
	"github.com/jsphweid/chordsmith/scheduler"
	"github.com/jsphweid/chordsmith/sink"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(s Settings) (*clock.Manual, *sink.Recorder, *scheduler.Scheduler, *Follower) {
	c := clock.NewManual(time.Unix(0, 0))
	rec := sink.NewRecorder(c)
	sched := scheduler.New(c, rec)
	return c, rec, sched, New(sched, s)
}

func TestQuantize(t *testing.T) {
	s := DefaultSettings()
	assert.Equal(t, model.Pitch(60), s.Quantize(60))
	assert.Equal(t, model.Pitch(60), s.Quantize(61))
	assert.Equal(t, model.Pitch(64), s.Quantize(65))
	assert.Equal(t, model.Pitch(67), s.Quantize(69))
	assert.Equal(t, model.Pitch(60), s.Quantize(71))

	s.Key = 2
	assert.Equal(t, model.Pitch(62), s.Quantize(62))
	assert.Equal(t, model.Pitch(66), s.Quantize(66))

	s.Scale = Minor
	assert.Equal(t, model.Pitch(65), s.Quantize(66))
}

func TestNoteProducesTriadAndDelayedFifth(t *testing.T) {
	c, rec, _, f := setup(DefaultSettings())
	f.NoteOn(62, 90)
	assert.Equal(t, []model.Pitch{60, 62, 64, 67}, rec.Sounding())

	c.Advance(499 * time.Millisecond)
	assert.NotContains(t, rec.Sounding(), model.Pitch(69))
	c.Advance(time.Millisecond)
	assert.Contains(t, rec.Sounding(), model.Pitch(69))

	f.NoteOff(62)
	assert.Empty(t, rec.Sounding())
}

func TestNoteOffBeforeFifthCancelsIt(t *testing.T) {
	c, rec, sched, f := setup(DefaultSettings())
	f.NoteOn(62, 90)
	c.Advance(100 * time.Millisecond)
	f.NoteOff(62)
	c.Advance(time.Second)

	assert.Empty(t, rec.Sounding())
	assert.Equal(t, 0, sched.Pending())
	for _, e := range rec.Events() {
		assert.NotEqual(t, model.Pitch(69), e.Pitch)
	}
}

func TestFifthOverlappingTriad(t *testing.T) {
	c, rec, _, f := setup(DefaultSettings())
	f.NoteOn(60, 90)
	c.Advance(time.Second)
	assert.Equal(t, []model.Pitch{60, 64, 67}, rec.Sounding())

	f.NoteOff(60)
	assert.Empty(t, rec.Sounding())
}

func TestChordOff(t *testing.T) {
	s := DefaultSettings()
	s.Chord = false
	s.Delay = 0
	_, rec, _, f := setup(s)
	f.NoteOn(50, 90)
	assert.Equal(t, []model.Pitch{50, 57}, rec.Sounding())
}

func TestHandleMessage(t *testing.T) {
	c, rec, _, f := setup(DefaultSettings())
	f.HandleMessage([]byte{0x90, 60, 100})
	c.Advance(time.Second)
	require.NotEmpty(t, rec.Sounding())

	f.HandleMessage([]byte{0x90, 60, 0})
	assert.Empty(t, rec.Sounding())

	f.HandleMessage([]byte{0x91, 48, 100})
	f.HandleMessage([]byte{0x81, 48, 0})
	f.HandleMessage([]byte{0xB0, 7, 100})
	assert.Empty(t, rec.Sounding())
}

func TestStop(t *testing.T) {
	c, rec, sched, f := setup(DefaultSettings())
	f.NoteOn(60, 90)
	f.NoteOn(65, 90)
	f.Stop()
	c.Advance(time.Second)
	assert.Empty(t, rec.Sounding())
	assert.Equal(t, 0, sched.Pending())
}

func TestParseScale(t *testing.T) {
	s, err := ParseScale("dorian")
	require.NoError(t, err)
	assert.Equal(t, Dorian, s)
	_, err = ParseScale("lydian")
	assert.Error(t, err)
}
