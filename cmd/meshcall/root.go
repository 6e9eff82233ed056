package main

import (
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "meshcall",
	Short: "Full-mesh WebRTC calls through a signaling relay",
	Long: `meshcall joins a room on a MeshCall relay and opens a direct WebRTC
connection to every other member. Media comes from Ogg/Opus and IVF/VP8
files or from silent synthetic tracks.`,
}

func Execute() {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("meshcall failed")
		os.Exit(1)
	}
}
