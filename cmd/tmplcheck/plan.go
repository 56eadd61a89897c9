package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"tmplcheck/internal/incremental"
	"tmplcheck/internal/source"
)

var planCmd = &cobra.Command{
	Use:   "plan [dir]",
	Short: "Show which files the next pass would re-analyze",
	Long:  `Compare the current tree with the baseline stored by "tmplcheck check --cache" and print the invalidation set`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runPlan,
}

func init() {
	planCmd.Flags().String("format", "text", "output format (text|json)")
}

type planPayload struct {
	Baseline         bool     `json:"baseline"`
	Full             bool     `json:"full"`
	Changed          []string `json:"changed"`
	ChangedResources []string `json:"changed_resources"`
	Invalidated      []string `json:"invalidated"`
	Carried          int      `json:"carried"`
}

func runPlan(cmd *cobra.Command, args []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	format = strings.ToLower(format)
	if format != "text" && format != "json" {
		return fmt.Errorf("unknown format %q (must be text or json)", format)
	}
	cfg, prog, err := loadProgram(cmd, targetDir(args))
	if err != nil {
		return err
	}
	b, ok, err := incremental.LoadBaseline(incremental.BaselinePath(cfg.Root))
	if err != nil {
		return err
	}
	rel := func(paths []string) []string {
		out := make([]string, 0, len(paths))
		for _, p := range paths {
			out = append(out, source.RelativePath(p, cfg.Root))
		}
		return out
	}
	payload := planPayload{Baseline: ok, Full: true, Invalidated: rel(prog.SourceFiles())}
	if ok {
		p := b.Plan(prog)
		payload = planPayload{
			Baseline:         true,
			Full:             p.Full,
			Changed:          rel(p.Changed),
			ChangedResources: rel(p.ChangedResources),
			Invalidated:      rel(p.Invalidated),
			Carried:          len(p.Carried),
		}
	}
	if format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(payload)
	}
	renderPlan(cmd.OutOrStdout(), payload)
	return nil
}

func renderPlan(out io.Writer, p planPayload) {
	if !p.Baseline {
		fmt.Fprintln(out, "no baseline found, run `tmplcheck check --cache` first; every file is analyzed")
	} else if p.Full {
		fmt.Fprintln(out, "the file set changed; every file is analyzed")
	}
	list := func(title string, items []string) {
		if len(items) == 0 {
			return
		}
		fmt.Fprintf(out, "%s:\n", title)
		for _, it := range items {
			fmt.Fprintf(out, "  %s\n", it)
		}
	}
	list("changed", p.Changed)
	list("changed resources", p.ChangedResources)
	list("invalidated", p.Invalidated)
	fmt.Fprintf(out, "%d invalidated, %d carried\n", len(p.Invalidated), p.Carried)
}
