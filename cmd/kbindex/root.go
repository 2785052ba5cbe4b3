package main

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"kbindex/internal/config"
)

var (
	envFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "kbindex",
	Short: "Build a chunked, embedded knowledge-base index",
	Long: `kbindex collects paper extracts, derived notes and video notes/claims,
splits them into overlapping chunks, embeds every chunk and writes
a sharded JSON index with a manifest.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Optional .env file with configuration")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
}

// loadConfig переносит непустые флаги в окружение, подгружает .env и парсит конфиг.
// Флаги важнее .env: godotenv не перезаписывает уже заданные переменные.
func loadConfig(cmd *cobra.Command, flagEnv map[string]string) (*config.Config, *slog.Logger, error) {
	if logLevel != "" {
		flagEnv["LOG_LEVEL"] = logLevel
	}
	for k, v := range flagEnv {
		if v == "" {
			continue
		}
		if err := os.Setenv(k, v); err != nil {
			return nil, nil, err
		}
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, nil, err
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: cfg.Level()}))
	return cfg, logger, nil
}
