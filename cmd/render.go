package cmd

import (
	"time"

	"github.com/jsphweid/chordsmith/clock"
	"github.com/jsphweid/chordsmith/config"
	"github.com/jsphweid/chordsmith/controller"
	"github.com/jsphweid/chordsmith/midi"
	"github.com/jsphweid/chordsmith/model"
	"github.com/jsphweid/chordsmith/sink"
	"github.com/spf13/cobra"
)

var (
	renderPerf  perfFlags
	renderEvery time.Duration
	renderFile  string
)

func init() {
	renderPerf.register(renderCmd)
	renderCmd.Flags().DurationVar(&renderEvery, "every", time.Second, "time between chord starts")
	renderCmd.Flags().StringVarP(&renderFile, "file", "f", "out.mid", "Standard MIDI File to write")
	rootCmd.AddCommand(renderCmd)
}

var renderCmd = &cobra.Command{
	Use:   "render SYMBOL...",
	Short: "Renders a progression to a Standard MIDI File",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := renderPerf.apply(cmd, cfg.Performance)
		if err != nil {
			return err
		}
		events, err := Render(cfg, p, args, renderEvery)
		if err != nil {
			return err
		}
		if err := midi.WriteSMF(renderFile, events, cfg.MIDI.Channel); err != nil {
			return err
		}
		cmd.Printf("wrote %d events (%v) to %s\n", len(events), midi.Duration(events), renderFile)
		return nil
	},
}

// Render performs symbols against a manual clock, one every step, and
// returns what an output would have received. Arpeggios run for a full step
// each and the final one stops ticking at the end; everything still
// sounding after the tail is released.
func Render(c config.Config, p controller.Params, symbols []string, every time.Duration) ([]model.Event, error) {
	clk := clock.NewManual(time.Unix(0, 0))
	rig, err := NewRig(c, OutputNone, clk)
	if err != nil {
		return nil, err
	}
	rec := sink.NewRecorder(clk)
	rig.Out.Set(rec)
	ctrl := rig.Controller(p, controller.WithDebounce(0))

	var arp model.ChordID
	for _, symbol := range symbols {
		next, err := withSymbol(ctrl.Params(), symbol)
		if err != nil {
			return nil, err
		}
		if err := ctrl.SetParams(next); err != nil {
			return nil, err
		}
		if next.Mode.IsArpeggio() {
			arp = ctrl.Press()
		} else {
			ctrl.Trigger()
		}
		clk.Advance(every)
	}
	// the last arpeggio step keeps its gate; held notes finish before
	// anything still sounding is cut
	if arp != "" {
		rig.Scheduler.StopArpeggio(arp)
	}
	tail := ctrl.Params().Timing.Hold
	if tail <= 0 {
		tail = controller.DefaultHold
	}
	clk.Advance(tail)
	ctrl.Close()
	rig.Close()
	return rec.Events(), nil
}
