package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	WatchDir       string        `mapstructure:"watch_dir"`
	CreateWatchDir bool          `mapstructure:"create_watch_dir"`
	Recursive      bool          `mapstructure:"recursive"`
	Extensions     []string      `mapstructure:"extensions"`
	Encrypt        bool          `mapstructure:"encrypt"`
	EncryptionKey  string        `mapstructure:"encryption_key"`
	PostDeleteEnc  bool          `mapstructure:"post_delete_enc"`
	FolderID       string        `mapstructure:"folder_id"`
	AuthMethod     string        `mapstructure:"auth_method"`
	OwnerEmail     string        `mapstructure:"owner_email"`
	PollInterval   time.Duration `mapstructure:"poll_interval"`
	StableTimeout  time.Duration `mapstructure:"stable_timeout"`
	RetryBase      time.Duration `mapstructure:"retry_base"`
	RetryCap       time.Duration `mapstructure:"retry_cap"`
	MaxAttempts    int           `mapstructure:"max_attempts"`
	DedupTTL       time.Duration `mapstructure:"dedup_ttl"`
	BufferSize     int           `mapstructure:"buffer_size"`
	DaemonPort     int           `mapstructure:"daemon_port"`
	DBPath         string        `mapstructure:"db_path"`
}

var Default = Config{
	CreateWatchDir: true,
	Recursive:      true,
	Extensions:     []string{".png", ".jpg", ".jpeg", ".webp", ".gif", ".mp4", ".avi", ".mov"},
	AuthMethod:     "oauth",
	PollInterval:   500 * time.Millisecond,
	StableTimeout:  10 * time.Second,
	RetryBase:      time.Second,
	RetryCap:       time.Minute,
	MaxAttempts:    5,
	DedupTTL:       0, // session lifetime
	BufferSize:     100,
	DaemonPort:     9131,
	DBPath:         "drivesend.db",
}

func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home dir: %w", err)
	}

	dir := filepath.Join(home, ".drivesend")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create config dir: %w", err)
	}

	return dir, nil
}

func Load() (*Config, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(dir)

	viper.SetDefault("create_watch_dir", Default.CreateWatchDir)
	viper.SetDefault("recursive", Default.Recursive)
	viper.SetDefault("extensions", Default.Extensions)
	viper.SetDefault("auth_method", Default.AuthMethod)
	viper.SetDefault("poll_interval", Default.PollInterval)
	viper.SetDefault("stable_timeout", Default.StableTimeout)
	viper.SetDefault("retry_base", Default.RetryBase)
	viper.SetDefault("retry_cap", Default.RetryCap)
	viper.SetDefault("max_attempts", Default.MaxAttempts)
	viper.SetDefault("dedup_ttl", Default.DedupTTL)
	viper.SetDefault("buffer_size", Default.BufferSize)
	viper.SetDefault("daemon_port", Default.DaemonPort)
	viper.SetDefault("db_path", filepath.Join(dir, Default.DBPath))

	viper.SetEnvPrefix("DRIVESEND")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := errors.AsType[viper.ConfigFileNotFoundError](err); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.FolderID == "" {
		cfg.FolderID = os.Getenv("GOOGLE_DRIVE_FOLDER_ID")
	}
	if cfg.OwnerEmail == "" {
		cfg.OwnerEmail = os.Getenv("GOOGLE_OWNER_EMAIL")
	}

	return &cfg, nil
}
