package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"drivesend/internal/model"

	"github.com/spf13/cobra"
)

var historyN int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View upload history",
	RunE: func(cmd *cobra.Command, args []string) error {
		url := fmt.Sprintf("%s?n=%d", daemonURL("/history"), historyN)
		resp, err := http.Get(url)
		if err != nil {
			return fmt.Errorf("daemon not running: %w", err)
		}

		defer func(Body io.ReadCloser) {
			_ = Body.Close()
		}(resp.Body)

		var uploads []model.Upload
		if err := json.NewDecoder(resp.Body).Decode(&uploads); err != nil {
			return err
		}

		if len(uploads) == 0 {
			fmt.Println("no uploads yet")
			return nil
		}

		for _, u := range uploads {
			status := "✓"
			if u.Status != model.StatusSuccess {
				status = "✗"
			}

			fmt.Printf("%s [%s] %-9s %s\n",
				status,
				u.UploadedAt.Format("2006-01-02 15:04:05"),
				u.Status,
				u.Path,
			)
		}

		return nil
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyN, "n", 20, "number of history entries to show")
	rootCmd.AddCommand(historyCmd)
}
