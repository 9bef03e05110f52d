package midi

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/jsphweid/chordsmith/clock"
	"github.com/jsphweid/chordsmith/model"
	"github.com/jsphweid/chordsmith/sink"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

const ms = time.Millisecond

func strum() []model.Event {
	return []model.Event{
		{Kind: model.NoteOn, Pitch: 60, Velocity: 100, At: 0},
		{Kind: model.NoteOn, Pitch: 64, Velocity: 100, At: 25 * ms},
		{Kind: model.NoteOn, Pitch: 67, Velocity: 100, At: 50 * ms},
		{Kind: model.NoteOff, Pitch: 60, At: 500 * ms},
		{Kind: model.NoteOff, Pitch: 64, At: 525 * ms},
		{Kind: model.NoteOff, Pitch: 67, At: 550 * ms},
	}
}

func decode(t *testing.T, data []byte) []model.Event {
	s, err := smf.ReadFrom(bytes.NewReader(data))
	require.NoError(t, err)
	events, err := Events(s)
	require.NoError(t, err)
	return events
}

func TestEncodeKeepsMillisecondTiming(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, strum(), 1))
	assert.Equal(t, strum(), decode(t, buf.Bytes()))
}

func TestEncodeDropsOutOfRangePitches(t *testing.T) {
	events := []model.Event{
		{Kind: model.NoteOn, Pitch: -3, Velocity: 100},
		{Kind: model.NoteOn, Pitch: 60, Velocity: 500, At: 10 * ms},
		{Kind: model.NoteOff, Pitch: 130, At: 20 * ms},
	}
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, events, 3))

	assert.Equal(t, []model.Event{
		{Kind: model.NoteOn, Pitch: 60, Velocity: 127, At: 10 * ms},
	}, decode(t, buf.Bytes()))
}

func TestEncodeUsesChannel(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, strum()[:1], 10))
	s, err := smf.ReadFrom(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)

	var ch, key, vel uint8
	found := false
	for _, ev := range s.Tracks[0] {
		if gomidi.Message(ev.Message).GetNoteStart(&ch, &key, &vel) {
			found = true
			assert.Equal(t, uint8(9), ch)
		}
	}
	assert.True(t, found)
}

func TestEventsHonoursTempoTrack(t *testing.T) {
	var tempo, notes smf.Track
	tempo.Add(0, smf.MetaTempo(120))
	tempo.Close(0)
	notes.Add(480, gomidi.NoteOn(0, 60, 90))
	notes.Add(960, gomidi.NoteOff(0, 60))
	notes.Close(0)

	s := smf.New()
	s.TimeFormat = smf.MetricTicks(960)
	require.NoError(t, s.Add(tempo))
	require.NoError(t, s.Add(notes))

	events, err := Events(s)
	require.NoError(t, err)
	assert.Equal(t, []model.Event{
		{Kind: model.NoteOn, Pitch: 60, Velocity: 90, At: 250 * ms},
		{Kind: model.NoteOff, Pitch: 60, At: 750 * ms},
	}, events)
}

func TestWriteAndReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "strum.mid")
	require.NoError(t, WriteSMF(path, strum(), 1))

	s, err := ReadMidiFile(path)
	require.NoError(t, err)
	events, err := Events(s)
	require.NoError(t, err)
	assert.Equal(t, strum(), events)
}

func TestReadMidiFileMissing(t *testing.T) {
	_, err := ReadMidiFile(filepath.Join(t.TempDir(), "missing.mid"))
	assert.Error(t, err)
}

func TestReplay(t *testing.T) {
	c := clock.NewManual(time.Unix(0, 0))
	rec := sink.NewRecorder(c)
	cancel := Replay(c, strum(), rec)

	c.Advance(100 * ms)
	assert.Equal(t, []model.Pitch{60, 64, 67}, rec.Sounding())

	cancel()
	c.Advance(time.Second)
	assert.Equal(t, []model.Pitch{60, 64, 67}, rec.Sounding())
	assert.Len(t, rec.Events(), 3)
	assert.Equal(t, 550*ms, Duration(strum()))
}
