package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/dgallion1/paperchat/internal/config"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "paperchat",
	Short: "Ask questions about a document, one section at a time",
	Long: `paperchat splits a document into abstract, introduction, methodology,
results, discussion and conclusion sections, then answers questions using
either one section or the whole text as context.

Prefix a question with a section name to narrow the context:
  paperchat ask paper.pdf "results: What was the main finding?"`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to stderr")

	rootCmd.AddCommand(
		sectionsCmd(),
		askCmd(),
		modelsCmd(),
	)
}

func main() {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
