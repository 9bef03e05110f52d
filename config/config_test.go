package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jsphweid/chordsmith/chord"
	"github.com/jsphweid/chordsmith/model"
	"github.com/jsphweid/chordsmith/voicing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	path := filepath.Join(t.TempDir(), "chordsmith.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestMissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, `
performance:
  root: 2
  octave: 3
  quality: min7
  voicing: drop2
  mode: strum
  timing:
    hold: 1s
    strum_delay: 40ms
envelope:
  attack: 0.2
  release: 20
midi:
  out: IAC
  channel: 10
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	p := cfg.Performance
	assert.Equal(t, 2, p.Root)
	assert.Equal(t, 3, p.Octave)
	assert.Equal(t, model.Quality("min7"), p.Quality)
	assert.Equal(t, voicing.Drop2, p.Voicing)
	assert.Equal(t, model.ModeStrum, p.Mode)
	assert.Equal(t, time.Second, p.Timing.Hold)
	assert.Equal(t, 40*time.Millisecond, p.Timing.StrumDelay)

	assert.Equal(t, 0.2, cfg.Envelope.Attack)
	assert.Equal(t, 8.0, cfg.Envelope.Release)
	assert.Equal(t, "IAC", cfg.MIDI.Out)
	assert.Equal(t, 10, cfg.MIDI.Channel)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "midi:\n  out: IAC\n")
	t.Setenv("CHORDSMITH_MIDI_OUT", "loopMIDI")
	t.Setenv("CHORDSMITH_CHANNEL", "40")
	t.Setenv("CHORDSMITH_VELOCITY", "0")
	t.Setenv("CHORDSMITH_SEED", "42")
	t.Setenv("CHORDSMITH_HTTP_ADDR", ":9000")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "loopMIDI", cfg.MIDI.Out)
	assert.Equal(t, 16, cfg.MIDI.Channel)
	assert.Equal(t, 1, cfg.Performance.Velocity)
	assert.Equal(t, int64(42), cfg.Seed)
	assert.Equal(t, ":9000", cfg.HTTP.Addr)
}

func TestBadEnvValue(t *testing.T) {
	t.Setenv("CHORDSMITH_CHANNEL", "ten")
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestBadYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "performance: [1, 2"))
	assert.Error(t, err)
}

func TestQualitiesAreRegistered(t *testing.T) {
	path := writeConfig(t, "qualities:\n  add9ish: [0, 2, 4, 7]\n")
	_, err := Load(path)
	require.NoError(t, err)

	res, err := chord.Build(60, "add9ish")
	require.NoError(t, err)
	assert.Equal(t, []model.Pitch{60, 62, 64, 67}, res)
}

func TestInvalidQualityRejected(t *testing.T) {
	_, err := Load(writeConfig(t, "qualities:\n  broken: [0, 7, 4]\n"))
	assert.Error(t, err)
}
