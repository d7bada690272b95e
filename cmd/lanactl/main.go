package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/Amund211/lana/internal/constants"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

func newLogger(verbose bool) *slog.Logger {
	level := log.InfoLevel
	if verbose {
		level = log.DebugLevel
	}
	handler := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "lanactl",
		Level:           level,
	})
	return slog.New(handler)
}

func main() {
	var verbose bool

	root := &cobra.Command{
		Use:          "lanactl",
		Short:        "Operator tooling for the lana backend",
		Version:      constants.VERSION,
		SilenceUsage: true,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	logger := func() *slog.Logger {
		return newLogger(verbose)
	}

	root.AddCommand(
		newFingerprintCmd(),
		newWarmCmd(logger),
		newStatsCmd(logger),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
