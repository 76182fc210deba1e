package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var logger *slog.Logger

var rootCmd = &cobra.Command{
	Use:   "neonfs",
	Short: "NeonFS is an encrypted block-storage container",
	Long: `NeonFS manages fixed-geometry container files whose blocks are
encrypted and authenticated with AES-256-GCM before they reach disk.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger = slog.New(slog.NewJSONHandler(os.Stderr, nil))
	},
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
