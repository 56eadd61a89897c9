package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"tmplcheck/internal/diag"
	"tmplcheck/internal/diagfmt"
	"tmplcheck/internal/driver"
	"tmplcheck/internal/incremental"
	"tmplcheck/internal/trace"
	"tmplcheck/internal/transform"
)

var checkCmd = &cobra.Command{
	Use:   "check [dir]",
	Short: "Analyze markers and type-check templates",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCheck,
}

func init() {
	checkCmd.Flags().String("format", "pretty", "output format (pretty|short|json)")
	checkCmd.Flags().Bool("with-notes", false, "include diagnostic notes in output")
	checkCmd.Flags().Bool("fullpath", false, "emit absolute file paths in output")
	checkCmd.Flags().Bool("cache", false, "store the dependency baseline for the plan command")
	checkCmd.Flags().Bool("no-warnings", false, "drop warnings from the output")
	addTypeCheckFlags(checkCmd)
}

// runCheck executes one full pass over the module governing the target
// directory, prints the diagnostics and fails when any of them is an error.
func runCheck(cmd *cobra.Command, args []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	format = strings.ToLower(format)
	switch format {
	case "pretty", "short", "json":
	default:
		return fmt.Errorf("unknown format %q (must be pretty, short or json)", format)
	}
	withNotes, err := cmd.Flags().GetBool("with-notes")
	if err != nil {
		return fmt.Errorf("failed to get with-notes flag: %w", err)
	}
	fullPath, err := cmd.Flags().GetBool("fullpath")
	if err != nil {
		return fmt.Errorf("failed to get fullpath flag: %w", err)
	}
	writeCache, err := cmd.Flags().GetBool("cache")
	if err != nil {
		return fmt.Errorf("failed to get cache flag: %w", err)
	}
	noWarnings, err := cmd.Flags().GetBool("no-warnings")
	if err != nil {
		return fmt.Errorf("failed to get no-warnings flag: %w", err)
	}
	maxDiagnostics, err := cmd.Root().PersistentFlags().GetInt("max-diagnostics")
	if err != nil {
		return fmt.Errorf("failed to get max-diagnostics flag: %w", err)
	}
	showTimings, err := cmd.Root().PersistentFlags().GetBool("timings")
	if err != nil {
		return fmt.Errorf("failed to get timings flag: %w", err)
	}
	colorMode, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return fmt.Errorf("failed to get color flag: %w", err)
	}

	cfg, prog, err := loadProgram(cmd, targetDir(args))
	if err != nil {
		return err
	}
	tcOpts, err := typeCheckOptions(cmd, cfg)
	if err != nil {
		return err
	}

	c := driver.New(driver.Options{TypeCheck: tcOpts, Timings: showTimings})
	if err := c.Analyze(cmd.Context(), prog, nil); err != nil {
		var spe *transform.StructuralParseError
		if !errors.As(err, &spe) {
			dumpTrace(trace.FromContext(cmd.Context()), cmd.ErrOrStderr())
			return err
		}
	}

	all := c.AllDiagnostics()
	bag := diag.NewBag(maxDiagnostics)
	for _, d := range all {
		if noWarnings && d.Severity < diag.SevError {
			continue
		}
		if !bag.Add(d) {
			break
		}
	}

	pathMode := diagfmt.PathModeRelative
	if fullPath {
		pathMode = diagfmt.PathModeAbsolute
	}
	out := cmd.OutOrStdout()
	fs := prog.FileSet()
	switch format {
	case "pretty":
		useColor, err := diagfmt.ColorEnabled(colorMode, stdoutFile(cmd))
		if err != nil {
			return err
		}
		diagfmt.Pretty(out, bag, fs, diagfmt.PrettyOpts{Color: useColor, PathMode: pathMode, ShowNotes: withNotes})
		if bag.Len() > 0 {
			fmt.Fprintf(out, "\n%s\n", summary(all))
		}
	case "short":
		if err := diagfmt.Short(out, bag, fs, withNotes); err != nil {
			return err
		}
	case "json":
		if err := diagfmt.JSON(out, bag, fs, diagfmt.JSONOpts{IncludePositions: true, PathMode: pathMode, IncludeNotes: withNotes}); err != nil {
			return err
		}
	}

	if showTimings {
		printTimings(cmd.ErrOrStderr(), c.Timer().Report())
	}
	if writeCache {
		if b, ok := c.Incremental().Baseline(); ok {
			if err := incremental.SaveBaseline(incremental.BaselinePath(cfg.Root), b); err != nil {
				return fmt.Errorf("save baseline: %w", err)
			}
		}
	}
	if c.HasErrors() {
		return errDiagnostics
	}
	return nil
}

func summary(ds []diag.Diagnostic) string {
	var errs, warns int
	for _, d := range ds {
		switch d.Severity {
		case diag.SevError:
			errs++
		case diag.SevWarning:
			warns++
		}
	}
	return fmt.Sprintf("%d error(s), %d warning(s)", errs, warns)
}

func stdoutFile(cmd *cobra.Command) *os.File {
	if f, ok := cmd.OutOrStdout().(*os.File); ok {
		return f
	}
	return nil
}
