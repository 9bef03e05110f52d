package cmd

import (
	"time"

	"github.com/jsphweid/chordsmith/clock"
	"github.com/jsphweid/chordsmith/midi"
	"github.com/spf13/cobra"
)

func init() {
	addOutputFlag(replayCmd)
	rootCmd.AddCommand(replayCmd)
}

var replayCmd = &cobra.Command{
	Use:   "replay FILE",
	Short: "Plays the notes of a Standard MIDI File",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := midi.ReadMidiFile(args[0])
		if err != nil {
			return err
		}
		events, err := midi.Events(s)
		if err != nil {
			return err
		}
		rig, err := NewRig(cfg, Output(output), clock.Real{})
		if err != nil {
			return err
		}
		defer rig.Close()

		ctx, cancel := signalContext(cmd)
		defer cancel()
		stop := midi.Replay(rig.Clock, events, rig.Out)
		defer stop()
		sleep(ctx.Done(), midi.Duration(events)+100*time.Millisecond)
		return nil
	},
}
