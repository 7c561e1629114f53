package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"drivesend/internal/model"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "View daemon status",
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := http.Get(daemonURL("/status"))
		if err != nil {
			return fmt.Errorf("daemon not running: %w", err)
		}

		defer func(Body io.ReadCloser) {
			_ = Body.Close()
		}(resp.Body)

		var snap model.SessionSnapshot
		if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
			return fmt.Errorf("failed to decode status response: %w", err)
		}

		if !snap.Running {
			fmt.Println("monitor not running")
			return nil
		}

		fmt.Printf("watching:   %s\n", snap.WatchDir)
		fmt.Printf("auth:       %s\n", snap.AuthMethod)
		fmt.Printf("recursive:  %t\n", snap.Recursive)
		fmt.Printf("encryption: %t\n", snap.Encrypt)
		fmt.Printf("uptime:     %s\n", time.Since(snap.StartedAt).Round(time.Second))
		fmt.Printf("queued:     %d\n", snap.Queued)
		fmt.Printf("uploaded:   %d  failed: %d  abandoned: %d  retries: %d\n",
			snap.Uploaded, snap.Failed, snap.Abandoned, snap.Retries)

		if snap.LastUpload != nil {
			fmt.Printf("last:       %s\n", snap.LastUpload.Format("2006-01-02 15:04:05"))
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
