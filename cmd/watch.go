package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"drivesend/internal/daemon"
	"drivesend/internal/logger"
	"drivesend/internal/repository"
	"drivesend/internal/session"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	watchDir      string
	watchEncrypt  bool
	watchFolderID string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Start the upload daemon",
	RunE:  runDaemon,
}

func runDaemon(cmd *cobra.Command, args []string) error {
	defer logger.Sync()

	if watchDir != "" {
		cfg.WatchDir = watchDir
	}
	if cmd.Flags().Changed("encrypt") {
		cfg.Encrypt = watchEncrypt
	}
	if watchFolderID != "" {
		cfg.FolderID = watchFolderID
	}

	manager := session.NewManager()
	repo := repository.NewUploadRepository()

	if err := manager.Start(session.Options{
		Config:   cfg,
		Recorder: repo,
	}); err != nil {
		return err
	}

	srv := daemon.NewServer(manager, cfg)
	srv.Start()

	logger.Log.Info("drivesend daemon started",
		zap.String("dir", cfg.WatchDir),
		zap.Int("port", cfg.DaemonPort))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Log.Info("shutting down",
			zap.String("signal", sig.String()))
	case <-srv.StopCh():
		logger.Log.Info("stop requested via API")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Stop(ctx)
}

func init() {
	watchCmd.Flags().StringVar(&watchDir, "dir", "", "directory to watch (overrides config)")
	watchCmd.Flags().BoolVar(&watchEncrypt, "encrypt", false, "encrypt files before upload (overrides config)")
	watchCmd.Flags().StringVar(&watchFolderID, "folder", "", "Google Drive folder ID (overrides config)")
	rootCmd.AddCommand(watchCmd)
}
