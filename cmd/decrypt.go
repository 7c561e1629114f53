package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"drivesend/internal/encrypt"

	"github.com/spf13/cobra"
)

var decryptKey string

var decryptCmd = &cobra.Command{
	Use:   "decrypt [path]",
	Short: "Decrypt a downloaded .enc file, or every .enc file under a directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := decryptKey
		if key == "" {
			key = encrypt.ResolveKey(cfg.EncryptionKey)
		}
		if key == "" {
			return encrypt.ErrNoKey
		}

		info, err := os.Stat(args[0])
		if err != nil {
			return err
		}

		if !info.IsDir() {
			out, err := encrypt.DecryptFile(args[0], key)
			if err != nil {
				return err
			}

			fmt.Printf("decrypted: %s\n", out)
			return nil
		}

		var done, failed int
		err = filepath.WalkDir(args[0], func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !strings.HasSuffix(path, encrypt.Suffix) {
				return nil
			}

			out, err := encrypt.DecryptFile(path, key)
			if err != nil {
				failed++
				fmt.Printf("failed:    %s (%v)\n", path, err)
				return nil
			}

			done++
			fmt.Printf("decrypted: %s\n", out)
			return nil
		})
		if err != nil {
			return err
		}

		fmt.Printf("done: %d decrypted, %d failed\n", done, failed)
		return nil
	},
}

func init() {
	decryptCmd.Flags().StringVar(&decryptKey, "key", "", "encryption key (defaults to config/environment)")
	rootCmd.AddCommand(decryptCmd)
}
