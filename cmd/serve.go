package cmd

import (
	"github.com/jsphweid/chordsmith/clock"
	"github.com/jsphweid/chordsmith/server"
	"github.com/spf13/cobra"
)

var serveAddr string

func init() {
	addOutputFlag(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address, overrides the config")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serves the controller over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := cfg.HTTP.Addr
		if serveAddr != "" {
			addr = serveAddr
		}
		rig, err := NewRig(cfg, Output(output), clock.Real{})
		if err != nil {
			return err
		}
		defer rig.Close()
		ctrl := rig.Controller(cfg.Performance)
		defer ctrl.Close()

		var s server.Synth
		if rig.Engine != nil {
			s = rig.Engine
		}
		ctx, cancel := signalContext(cmd)
		defer cancel()
		return server.New(ctrl, s, cfg.HTTP.Origins).ListenAndServe(ctx, addr)
	},
}
