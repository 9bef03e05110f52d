package cmd

import (
	"fmt"
	"time"

	"github.com/jsphweid/chordsmith/chord"
	"github.com/jsphweid/chordsmith/clock"
	"github.com/spf13/cobra"
)

var (
	playPerf  perfFlags
	playEvery time.Duration
)

func init() {
	playPerf.register(playCmd)
	addOutputFlag(playCmd)
	playCmd.Flags().DurationVar(&playEvery, "every", time.Second, "time between chord starts")
	rootCmd.AddCommand(playCmd)
}

var playCmd = &cobra.Command{
	Use:   "play SYMBOL...",
	Short: "Plays a progression of chord symbols",
	Long: `Plays each chord symbol in turn, e.g.

  chordsmith play C Am7 Fmaj7 G7 --mode strum --voicing drop2`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := playPerf.apply(cmd, cfg.Performance)
		if err != nil {
			return err
		}
		rig, err := NewRig(cfg, Output(output), clock.Real{})
		if err != nil {
			return err
		}
		defer rig.Close()
		ctrl := rig.Controller(p)
		defer ctrl.Close()

		ctx, cancel := signalContext(cmd)
		defer cancel()

		for _, symbol := range args {
			next, err := withSymbol(ctrl.Params(), symbol)
			if err != nil {
				return err
			}
			if err := ctrl.SetParams(next); err != nil {
				return err
			}
			pitches, _ := ctrl.Chord()
			fmt.Fprintf(cmd.OutOrStdout(), "%-8s %v\n", symbol, chord.NoteNames(pitches))
			ctrl.Trigger()
			if !sleep(ctx.Done(), playEvery) {
				break
			}
		}
		ctrl.Stop()
		return nil
	},
}
