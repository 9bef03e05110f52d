package cmd

import (
	"time"

	"github.com/jsphweid/chordsmith/chord"
	"github.com/jsphweid/chordsmith/clock"
	"github.com/jsphweid/chordsmith/harmony"
	"github.com/jsphweid/chordsmith/midi"
	"github.com/spf13/cobra"
)

var (
	harmonizeIn      string
	harmonizeKey     string
	harmonizeScale   string
	harmonizeDelay   time.Duration
	harmonizeNoChord bool
)

func init() {
	addOutputFlag(harmonizeCmd)
	fs := harmonizeCmd.Flags()
	fs.StringVar(&harmonizeIn, "in", "", "MIDI input port name or index")
	fs.StringVar(&harmonizeKey, "key", "", "key root, e.g. C or F#")
	fs.StringVar(&harmonizeScale, "scale", "", "Major, Minor, Dorian or Mixolydian")
	fs.DurationVar(&harmonizeDelay, "delay", harmony.DefaultDelay, "delay before the fifth enters")
	fs.BoolVar(&harmonizeNoChord, "no-chord", false, "only add the delayed fifth")
	rootCmd.AddCommand(harmonizeCmd)
}

var harmonizeCmd = &cobra.Command{
	Use:   "harmonize",
	Short: "Adds a triad and a delayed fifth to every note played on a MIDI input",
	RunE: func(cmd *cobra.Command, args []string) error {
		s := cfg.Harmony
		if cmd.Flags().Changed("key") {
			pc, err := chord.ParsePitchClass(harmonizeKey)
			if err != nil {
				return err
			}
			s.Key = pc
		}
		if cmd.Flags().Changed("scale") {
			sc, err := harmony.ParseScale(harmonizeScale)
			if err != nil {
				return err
			}
			s.Scale = sc
		}
		if cmd.Flags().Changed("delay") {
			s.Delay = harmonizeDelay
		}
		if harmonizeNoChord {
			s.Chord = false
		}
		inName := cfg.MIDI.In
		if cmd.Flags().Changed("in") {
			inName = harmonizeIn
		}

		rig, err := NewRig(cfg, Output(output), clock.Real{})
		if err != nil {
			return err
		}
		defer rig.Close()

		in, err := midi.FindInPort(inName)
		if err != nil {
			return err
		}
		follower := harmony.New(rig.Scheduler, s)
		defer follower.Stop()

		stop, err := midi.Listen(in, follower.HandleMessage)
		if err != nil {
			return err
		}
		defer stop()

		cmd.Printf("harmonizing %s in %s %s, ctrl-c to stop\n", in, chord.PitchClassName(s.Key), s.Scale)
		ctx, cancel := signalContext(cmd)
		defer cancel()
		<-ctx.Done()
		return nil
	},
}
