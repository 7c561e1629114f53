package cmd

import (
	"fmt"

	"drivesend/internal/encrypt"

	"github.com/spf13/cobra"
)

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate a new encryption key",
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := encrypt.GenerateKey()
		if err != nil {
			return err
		}

		fmt.Println(key)
		fmt.Println()
		fmt.Println("Store this key safely, files cannot be decrypted without it.")
		fmt.Println("Set it as DRIVESEND_ENCRYPTION_KEY or as encryption_key in the config file.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(keygenCmd)
}
