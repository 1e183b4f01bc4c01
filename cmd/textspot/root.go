package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"textspot/version"
)

var (
	cfgFile   string
	verbosity int
)

var rootCmd = &cobra.Command{
	Use:   "textspot",
	Short: "Extract structured, source-grounded data from text with LLMs",
	Long: `Textspot extracts structured data from long documents using an LLM,
grounding every extraction back to an exact character span in the source.

The pipeline:
  - Splits the document into overlapping windows
  - Dispatches windows to the model concurrently with bounded retries
  - Tolerantly parses model output into extraction records
  - Aligns each extraction to a character interval (exact, then
    case-insensitive, then whitespace-flexible, then fuzzy matching)
  - Translates window-local offsets to document-global offsets`,
	Version: version.GitRelease,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.textspot/config.yaml)",
	)
	rootCmd.PersistentFlags().CountVarP(
		&verbosity, "verbose", "v", "increase log verbosity (-v for debug)",
	)

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		slog.SetDefault(newLogger())
	}

	rootCmd.AddCommand(versionCmd)
}

// newLogger builds the process logger. Logs go to stderr so result output
// on stdout stays clean.
func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbosity > 0 {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}
