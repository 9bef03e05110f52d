// Package config loads chordsmith settings from defaults, an optional YAML
// file and the environment, in that order.
package config

import (
	"os"
	"strconv"

	"github.com/jsphweid/chordsmith/chord"
	"github.com/jsphweid/chordsmith/controller"
	"github.com/jsphweid/chordsmith/harmony"
	"github.com/jsphweid/chordsmith/model"
	"github.com/jsphweid/chordsmith/sink"
	"github.com/jsphweid/chordsmith/synth"
	"github.com/jsphweid/chordsmith/util"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "chordsmith.yaml"

type MIDI struct {
	// Out is a port name (substring match) or index; empty means the first
	// port.
	Out     string `yaml:"out"`
	In      string `yaml:"in"`
	Channel int    `yaml:"channel"`
}

type HTTP struct {
	Addr    string   `yaml:"addr"`
	Origins []string `yaml:"origins"`
}

type Audio struct {
	SampleRate float64 `yaml:"sample_rate"`
	Waveform   string  `yaml:"waveform"`
}

type Config struct {
	Performance controller.Params `yaml:"performance"`
	Envelope    synth.Envelope    `yaml:"envelope"`
	Effects     synth.Effects     `yaml:"effects"`
	Harmony     harmony.Settings  `yaml:"harmony"`
	MIDI        MIDI              `yaml:"midi"`
	HTTP        HTTP              `yaml:"http"`
	Audio       Audio             `yaml:"audio"`
	Seed        int64             `yaml:"seed"`

	// Qualities adds or replaces chord formulas by name.
	Qualities map[model.Quality][]int `yaml:"qualities"`
}

func Default() Config {
	return Config{
		Performance: controller.DefaultParams(),
		Envelope:    synth.DefaultEnvelope(),
		Effects:     synth.DefaultEffects(),
		Harmony:     harmony.DefaultSettings(),
		MIDI:        MIDI{Channel: sink.MinChannel},
		HTTP:        HTTP{Addr: ":8080", Origins: []string{"*"}},
		Audio:       Audio{SampleRate: 44100, Waveform: "triangle"},
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath
	}
	dat, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(dat, &cfg); err != nil {
			return cfg, errors.Wrapf(err, "could not parse config %s", path)
		}
	case os.IsNotExist(err):
	default:
		return cfg, errors.Wrapf(err, "could not read config %s", path)
	}

	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback, errors.Wrapf(err, "invalid %s", key)
	}
	return n, nil
}

func (c *Config) applyEnv() error {
	c.MIDI.Out = getEnv("CHORDSMITH_MIDI_OUT", c.MIDI.Out)
	c.MIDI.In = getEnv("CHORDSMITH_MIDI_IN", c.MIDI.In)
	c.HTTP.Addr = getEnv("CHORDSMITH_HTTP_ADDR", c.HTTP.Addr)

	var err error
	if c.MIDI.Channel, err = getEnvInt("CHORDSMITH_CHANNEL", c.MIDI.Channel); err != nil {
		return err
	}
	if c.Performance.Velocity, err = getEnvInt("CHORDSMITH_VELOCITY", c.Performance.Velocity); err != nil {
		return err
	}
	seed, err := getEnvInt("CHORDSMITH_SEED", int(c.Seed))
	if err != nil {
		return err
	}
	c.Seed = int64(seed)
	return nil
}

// Validate clamps numeric settings into range and registers custom
// qualities. Only malformed formulas are rejected.
func (c *Config) Validate() error {
	c.MIDI.Channel = util.Clamp(c.MIDI.Channel, sink.MinChannel, sink.MaxChannel)
	c.Performance = c.Performance.Normalize()
	c.Envelope = c.Envelope.Clamp()
	c.Effects = c.Effects.Clamp()
	if c.Audio.SampleRate <= 0 {
		c.Audio.SampleRate = Default().Audio.SampleRate
	}
	for _, q := range util.SortedKeys(c.Qualities) {
		if err := chord.Register(q, c.Qualities[q]); err != nil {
			return errors.Wrap(err, "invalid quality in config")
		}
	}
	return nil
}
