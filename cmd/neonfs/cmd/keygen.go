package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/neonfs/neonfs/internal/util"
	"github.com/neonfs/neonfs/secure"
	"github.com/neonfs/neonfs/security"
)

var keygenSize int

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate a random master key",
	Long: `Generates a cryptographically random master key and prints it as hex
together with a fresh key ID. The key is the only way to decrypt a
container; store it in a real secret store, not next to the container.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := secure.InitDefault(); err != nil {
			return fmt.Errorf("initializing secure heap: %w", err)
		}

		key, err := security.GenerateMasterKey(keygenSize)
		if err != nil {
			return err
		}
		id := security.GenerateKeyID()
		fmt.Fprintf(cmd.OutOrStdout(), "key-id: %s\nkey:    %s\n", id, util.HexEncode(key.Data()))
		key.Destroy()

		if err := secure.Shutdown(); err != nil {
			return fmt.Errorf("shutting down secure heap: %w", err)
		}
		logger.Info("master key generated", "key_id", id, "size", keygenSize)
		return nil
	},
}

func init() {
	keygenCmd.Flags().IntVar(&keygenSize, "size", security.DefaultKeySize, "key size in bytes (1..512)")
	rootCmd.AddCommand(keygenCmd)
}
