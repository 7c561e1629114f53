package cmd

import (
	"fmt"

	"drivesend/internal/auth"

	"github.com/spf13/cobra"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authorize Google Drive access via OAuth",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := auth.Authorize(); err != nil {
			return err
		}

		fmt.Println("Authenticated with Google Drive")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(authCmd)
}
