package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "gofer",
	Short:         "Campus errand marketplace service",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		// A missing .env is normal outside local development.
		_ = godotenv.Load()
		setupLogging(os.Getenv("GOFER_LOG_LEVEL"), os.Getenv("GOFER_LOG_FORMAT"))
	},
}

func main() {
	rootCmd.AddCommand(serveCmd, migrateCmd, moderateCmd)
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("gofer failed")
		os.Exit(1)
	}
}

func setupLogging(levelName, format string) {
	level, err := zerolog.ParseLevel(levelName)
	if err != nil || levelName == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if format == "text" {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
}
