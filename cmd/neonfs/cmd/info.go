package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/neonfs/neonfs/storage"
)

var (
	infoBlockSize uint64
	infoTotalSize uint64
)

var infoCmd = &cobra.Command{
	Use:   "info <path>",
	Short: "Verify a container against a declared geometry",
	Long: `Mounts the container with the given geometry and reports its block
layout. The container file is headerless, so the geometry must be supplied
out-of-band; a length mismatch is reported as an error.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := storage.Config{BlockSize: infoBlockSize, TotalSize: infoTotalSize}
		bs, err := storage.NewBlockStorage(args[0], cfg)
		if err != nil {
			return err
		}
		if err := bs.Mount(); err != nil {
			return fmt.Errorf("mounting container (code %d): %w", storage.Code(err), err)
		}
		defer bs.Close()

		fmt.Fprintf(cmd.OutOrStdout(), "path:        %s\nblock size:  %d\nblock count: %d\ntotal size:  %d\n",
			bs.Path(), bs.BlockSize(), bs.BlockCount(), cfg.TotalSize)
		return bs.Unmount()
	},
}

func init() {
	infoCmd.Flags().Uint64Var(&infoBlockSize, "block-size", 4096, "block size in bytes")
	infoCmd.Flags().Uint64Var(&infoTotalSize, "size", 4096*1024, "container size in bytes")
	rootCmd.AddCommand(infoCmd)
}
