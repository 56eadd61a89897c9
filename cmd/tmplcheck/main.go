package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tmplcheck/internal/version"
)

// errDiagnostics reports that errors were printed; main only sets the exit code.
var errDiagnostics = errors.New("template check failed")

var rootCmd = &cobra.Command{
	Use:           "tmplcheck",
	Short:         "Type-check component templates against their Go declarations",
	Long:          `tmplcheck scans //tmpl: markers, resolves module scopes and type-checks every component template through synthesized Go code`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		cleanup, err := setupTracing(cmd)
		if err != nil {
			return err
		}
		traceCleanup = cleanup
		return nil
	},
}

var traceCleanup func()

func init() {
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(tcbCmd)
	rootCmd.AddCommand(versionCmd)

	// Глобальные флаги
	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().Bool("timings", false, "show timing information")
	rootCmd.PersistentFlags().Int("max-diagnostics", 100, "maximum number of diagnostics to show (0 = unlimited)")
	rootCmd.PersistentFlags().String("trace", "", "trace output file (- for stderr)")
	rootCmd.PersistentFlags().String("trace-level", "off", "trace level (off|error|phase|detail|debug)")
	rootCmd.PersistentFlags().String("trace-mode", "stream", "trace storage (stream|ring|both)")
	rootCmd.PersistentFlags().String("trace-format", "auto", "trace format (auto|text|ndjson)")
	rootCmd.PersistentFlags().Int("trace-ring-size", 4096, "events kept in ring mode")
}

func main() {
	rootCmd.Version = version.Version
	err := rootCmd.Execute()
	if traceCleanup != nil {
		traceCleanup()
	}
	if err == nil {
		return
	}
	if !errors.Is(err, errDiagnostics) {
		fmt.Fprintln(os.Stderr, "tmplcheck:", err)
	}
	os.Exit(1)
}
