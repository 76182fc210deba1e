package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/neonfs/neonfs/storage"
)

var (
	createBlockSize uint64
	createTotalSize uint64
)

var createCmd = &cobra.Command{
	Use:   "create <path>",
	Short: "Create a zero-filled container file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		cfg := storage.Config{BlockSize: createBlockSize, TotalSize: createTotalSize}
		if err := storage.Create(path, cfg); err != nil {
			return fmt.Errorf("creating container: %w", err)
		}
		logger.Info("container created",
			"path", path,
			"block_size", cfg.BlockSize,
			"total_size", cfg.TotalSize,
			"block_count", cfg.BlockCount(),
		)
		return nil
	},
}

func init() {
	createCmd.Flags().Uint64Var(&createBlockSize, "block-size", 4096, "block size in bytes")
	createCmd.Flags().Uint64Var(&createTotalSize, "size", 4096*1024, "container size in bytes (multiple of block size)")
	rootCmd.AddCommand(createCmd)
}
