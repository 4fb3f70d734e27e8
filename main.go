// pairquiz-backend serves realtime duels between two users over a websocket.
//
// Usage:
//
//	pairquiz-backend serve           - Start the http and websocket server
//	pairquiz-backend migrate         - Apply database migrations
//	pairquiz-backend seed            - Load the question bank and users
//	pairquiz-backend token <userId>  - Issue a join token
//
// Global flags:
//
//	--env <path>  - Load this .env file instead of ./.env
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"pairquiz-backend/internal/config"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var flagEnvPath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "pairquiz-backend",
	Short: "Realtime pair quiz backend",
	Long: `pairquiz-backend runs the realtime side of a two player quiz:
presence, game invitations, duel sessions, answer exchange and read
receipts over a single websocket, plus the question bank and results
REST endpoints.

Configuration is read from the environment, optionally preloaded from
a .env file.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagEnvPath, "env", "", "Path to a .env file (default ./.env when present)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(tokenCmd)
}

// loadConfig reads the configuration and installs the process logger.
func loadConfig() (config.Config, error) {
	cfg, err := config.LoadConfig(flagEnvPath)
	if err != nil {
		return cfg, err
	}
	if err := setupLogger(cfg.Log); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func setupLogger(conf config.LogConf) error {
	level, err := log.ParseLevel(conf.Level)
	if err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}

	var formatter log.Formatter
	switch strings.ToLower(conf.Format) {
	case "", "text":
		formatter = log.TextFormatter
	case "json":
		formatter = log.JSONFormatter
	case "logfmt":
		formatter = log.LogfmtFormatter
	default:
		return fmt.Errorf("LOG_FORMAT: unknown format %q", conf.Format)
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "pairquiz",
		Level:           level,
		Formatter:       formatter,
	})
	slog.SetDefault(slog.New(logger))

	return nil
}
