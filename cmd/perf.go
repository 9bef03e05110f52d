package cmd

import (
	"time"

	"github.com/jsphweid/chordsmith/chord"
	"github.com/jsphweid/chordsmith/controller"
	"github.com/jsphweid/chordsmith/model"
	"github.com/jsphweid/chordsmith/voicing"
	"github.com/spf13/cobra"
)

// perfFlags are the performance overrides shared by the playing commands.
// Only flags given on the command line replace configured values.
type perfFlags struct {
	mode      string
	voicing   string
	octave    int
	transpose int
	velocity  int
	hold      time.Duration
	strum     time.Duration
	rate      time.Duration
	gate      float64
}

func (f *perfFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.mode, "mode", "", "chord, strum, arp-up, arp-down or arp-random")
	fs.StringVar(&f.voicing, "voicing", "", "close, open, inv1, inv2 or drop2")
	fs.IntVar(&f.octave, "octave", controller.DefaultOctave, "octave of the root, C4 = 60")
	fs.IntVar(&f.transpose, "transpose", 0, "semitones applied after voicing")
	fs.IntVar(&f.velocity, "velocity", controller.DefaultVelocity, "note velocity 1-127")
	fs.DurationVar(&f.hold, "hold", controller.DefaultHold, "how long each note sounds, 0 sustains")
	fs.DurationVar(&f.strum, "strum", controller.DefaultStrumDelay, "delay between strummed notes")
	fs.DurationVar(&f.rate, "rate", 0, "arpeggio step")
	fs.Float64Var(&f.gate, "gate", 0, "arpeggio gate as a fraction of the step")
}

func (f *perfFlags) apply(cmd *cobra.Command, p controller.Params) (controller.Params, error) {
	fs := cmd.Flags()
	if fs.Changed("mode") {
		m, err := model.ParseMode(f.mode)
		if err != nil {
			return p, err
		}
		p.Mode = m
	}
	if fs.Changed("voicing") {
		v, err := voicing.ParsePolicy(f.voicing)
		if err != nil {
			return p, err
		}
		p.Voicing = v
	}
	if fs.Changed("octave") {
		p.Octave = f.octave
	}
	if fs.Changed("transpose") {
		p.Transpose = f.transpose
	}
	if fs.Changed("velocity") {
		p.Velocity = f.velocity
	}
	if fs.Changed("hold") {
		p.Timing.Hold = f.hold
	}
	if fs.Changed("strum") {
		p.Timing.StrumDelay = f.strum
	}
	if fs.Changed("rate") {
		p.Timing.Rate = f.rate
	}
	if fs.Changed("gate") {
		p.Timing.Gate = f.gate
	}
	return p.Normalize(), nil
}

// withSymbol points p at a chord symbol such as "Am7" in p's octave.
func withSymbol(p controller.Params, symbol string) (controller.Params, error) {
	root, q, err := chord.ParseSymbol(symbol, p.Octave)
	if err != nil {
		return p, err
	}
	p.Root = chord.PitchClass(root)
	p.Quality = q
	return p, nil
}

// sleep waits for d or until done closes, reporting whether the full time
// passed.
func sleep(done <-chan struct{}, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-done:
		return false
	}
}
