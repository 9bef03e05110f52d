package cmd

import (
	"fmt"

	"github.com/jsphweid/chordsmith/midi"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(portsCmd)
}

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "Lists MIDI ports",
	Run: func(cmd *cobra.Command, args []string) {
		defer midi.CloseDriver()
		ins, outs := midi.Ports()
		w := cmd.OutOrStdout()
		fmt.Fprintln(w, "inputs:")
		for i, name := range ins {
			fmt.Fprintf(w, "  %d: %s\n", i, name)
		}
		fmt.Fprintln(w, "outputs:")
		for i, name := range outs {
			fmt.Fprintf(w, "  %d: %s\n", i, name)
		}
	},
}
