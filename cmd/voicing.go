package cmd

import (
	"fmt"
	"io"

	"github.com/jsphweid/chordsmith/chord"
	"github.com/jsphweid/chordsmith/voicing"
	"github.com/spf13/cobra"
)

var (
	voicingOctave    int
	voicingTranspose int
)

func init() {
	voicingCmd.Flags().IntVar(&voicingOctave, "octave", 4, "octave of the root")
	voicingCmd.Flags().IntVar(&voicingTranspose, "transpose", 0, "semitones applied after voicing")
	rootCmd.AddCommand(voicingCmd)
}

var voicingCmd = &cobra.Command{
	Use:   "voicing SYMBOL",
	Short: "Prints a chord under every voicing policy",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return printVoicings(cmd.OutOrStdout(), args[0], voicingOctave, voicingTranspose)
	},
}

func printVoicings(w io.Writer, symbol string, octave, transpose int) error {
	root, q, err := chord.ParseSymbol(symbol, octave)
	if err != nil {
		return err
	}
	pitches, err := chord.Build(root, q)
	if err != nil {
		return err
	}
	for _, policy := range voicing.Policies() {
		voiced := chord.Transpose(voicing.Apply(pitches, policy), transpose)
		fmt.Fprintf(w, "%-6s %v %v\n", policy, voiced, chord.NoteNames(voiced))
	}
	return nil
}
