package cli

import (
	"encoding/base64"
	"fmt"

	"github.com/gorilla/securecookie"
	"github.com/spf13/cobra"

	"github.com/example/dine-composer/internal/internaltypes"
)

func newKeysCmd() *cobra.Command {
	var (
		blockSize int
		dotenv    bool
	)
	c := &cobra.Command{
		Use:   "keys",
		Short: "Generate base64 session keys for SESSION_HASH_KEY and SESSION_BLOCK_KEY",
		Long: "Generate a 64-byte signing key and, unless --block-size is 0, an AES key that\n" +
			"encrypts the stored session (user id, role and API token).",
		RunE: func(cmd *cobra.Command, args []string) error {
			switch blockSize {
			case 0, 16, 24, 32:
			default:
				return internaltypes.Invalid("--block-size must be 0, 16, 24 or 32")
			}
			prefix := "export "
			if dotenv {
				prefix = ""
			}
			out := cmd.OutOrStdout()
			line := func(name string, key []byte) error {
				if key == nil {
					return fmt.Errorf("generate %s: random source failed", name)
				}
				_, err := fmt.Fprintf(out, "%s%s=%s\n", prefix, name, base64.StdEncoding.EncodeToString(key))
				return err
			}
			if err := line("SESSION_HASH_KEY", securecookie.GenerateRandomKey(64)); err != nil {
				return err
			}
			if blockSize == 0 {
				return nil
			}
			return line("SESSION_BLOCK_KEY", securecookie.GenerateRandomKey(blockSize))
		},
	}
	c.Flags().IntVar(&blockSize, "block-size", 32, "encryption key length in bytes (0 signs without encrypting)")
	c.Flags().BoolVar(&dotenv, "dotenv", false, "print KEY=value lines for a .env file instead of export statements")
	return c
}
