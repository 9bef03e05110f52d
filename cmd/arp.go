package cmd

import (
	"fmt"
	"time"

	"github.com/jsphweid/chordsmith/chord"
	"github.com/jsphweid/chordsmith/clock"
	"github.com/jsphweid/chordsmith/model"
	"github.com/jsphweid/chordsmith/scheduler"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var (
	arpPerf      perfFlags
	arpDirection string
	arpFor       time.Duration
)

func init() {
	arpPerf.register(arpCmd)
	addOutputFlag(arpCmd)
	arpCmd.Flags().StringVarP(&arpDirection, "direction", "d", "up", "up, down or random")
	arpCmd.Flags().DurationVar(&arpFor, "for", 0, "stop after this long, 0 runs until interrupted")
	rootCmd.AddCommand(arpCmd)
}

var arpCmd = &cobra.Command{
	Use:   "arp SYMBOL",
	Short: "Arpeggiates a chord until stopped",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := arpPerf.apply(cmd, cfg.Performance)
		if err != nil {
			return err
		}
		if p, err = withSymbol(p, args[0]); err != nil {
			return err
		}
		mode, err := model.ParseMode(arpDirection)
		if err != nil {
			return err
		}
		if !mode.IsArpeggio() {
			return errors.Errorf("%q is not an arpeggio direction", arpDirection)
		}
		p.Mode = mode
		p.Latch = true

		rig, err := NewRig(cfg, Output(output), clock.Real{})
		if err != nil {
			return err
		}
		defer rig.Close()
		ctrl := rig.Controller(p)
		defer ctrl.Close()

		pitches, err := ctrl.Chord()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s %v\n", args[0], mode, chord.NoteNames(pitches))

		ctx, cancel := signalContext(cmd)
		defer cancel()
		id := ctrl.Press()
		if arpFor > 0 {
			if sleep(ctx.Done(), arpFor) {
				// no new steps, but the sounding one finishes its gate
				rig.Scheduler.StopArpeggio(id)
				sleep(ctx.Done(), stepOf(p.Timing))
			}
		} else {
			<-ctx.Done()
		}
		ctrl.Stop()
		return nil
	},
}

func stepOf(t scheduler.Timing) time.Duration {
	if t.Rate <= 0 {
		return scheduler.DefaultRate
	}
	return t.Rate
}
