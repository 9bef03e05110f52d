package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jsphweid/chordsmith/audio"
	"github.com/jsphweid/chordsmith/audio/speaker"
	"github.com/jsphweid/chordsmith/clock"
	"github.com/jsphweid/chordsmith/config"
	"github.com/jsphweid/chordsmith/controller"
	"github.com/jsphweid/chordsmith/midi"
	"github.com/jsphweid/chordsmith/scheduler"
	"github.com/jsphweid/chordsmith/sink"
	"github.com/jsphweid/chordsmith/synth"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // autoregisters driver
)

// Output selects where a rig sends notes.
type Output string

const (
	OutputMIDI  Output = "midi"
	OutputSynth Output = "synth"
	OutputBoth  Output = "both"
	OutputNone  Output = "none"
)

var output string

func addOutputFlag(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&output, "output", "o", string(OutputMIDI), "midi, synth, both or none")
}

// Rig is the runtime stack every performing command shares: a scheduler
// driving a switchable output, plus the synthesizer when one is in use.
type Rig struct {
	Clock     clock.Clock
	Scheduler *scheduler.Scheduler
	Out       *sink.Switch
	Engine    *synth.Engine

	closers []func()
}

// NewRig opens the requested output. With OutputNone notes go nowhere,
// which is what tests and dry runs want.
func NewRig(c config.Config, out Output, clk clock.Clock) (*Rig, error) {
	r := &Rig{Clock: clk, Out: sink.NewSwitch(sink.Nop{})}
	r.Scheduler = scheduler.New(clk, r.Out, scheduler.WithSeed(c.Seed))

	var target sink.Sink
	switch out {
	case OutputSynth:
		if err := r.openSynth(c); err != nil {
			return nil, err
		}
		target = r.Engine
	case OutputMIDI:
		fwd, err := r.openMIDI(c)
		if err != nil {
			return nil, err
		}
		target = fwd
	case OutputBoth:
		fwd, err := r.openMIDI(c)
		if err != nil {
			return nil, err
		}
		if err := r.openSynth(c); err != nil {
			r.Close()
			return nil, err
		}
		target = sink.Tee{fwd, r.Engine}
	case OutputNone:
		return r, nil
	default:
		return nil, errors.Errorf("unknown output %q", out)
	}
	r.Out.Set(target)
	return r, nil
}

func (r *Rig) openSynth(c config.Config) error {
	wf, err := audio.ParseWaveform(c.Audio.Waveform)
	if err != nil {
		return err
	}
	g := audio.NewGraph(c.Audio.SampleRate)
	r.Engine = synth.New(g, r.Clock,
		synth.WithEnvelope(c.Envelope),
		synth.WithEffects(c.Effects),
		synth.WithWaveform(wf),
		synth.WithSeed(c.Seed),
	)
	if err := speaker.Play(g, speaker.DefaultLatency); err != nil {
		return err
	}
	r.closers = append(r.closers, r.Engine.Close, speaker.Close)
	return nil
}

func (r *Rig) openMIDI(c config.Config) (*sink.Forwarder, error) {
	port, err := midi.OpenOut(c.MIDI.Out)
	if err != nil {
		return nil, err
	}
	slog.Info("sending to MIDI port", "port", port.String(), "channel", c.MIDI.Channel)
	r.closers = append(r.closers, midi.CloseDriver)
	return sink.NewForwarder(port, c.MIDI.Channel), nil
}

// Controller builds a controller over the rig's scheduler.
func (r *Rig) Controller(p controller.Params, opts ...controller.Option) *controller.Controller {
	all := []controller.Option{controller.WithParams(p)}
	if r.Engine != nil {
		all = append(all, controller.WithVoices(r.Engine))
	}
	return controller.New(r.Scheduler, append(all, opts...)...)
}

// Close silences everything and releases devices in reverse order of
// opening. Notes sent straight to Out, as replay does, are turned off too.
func (r *Rig) Close() {
	r.Scheduler.SilenceAll()
	r.Out.Set(nil)
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
	r.closers = nil
}

// signalContext is cancelled on Ctrl-C or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}
