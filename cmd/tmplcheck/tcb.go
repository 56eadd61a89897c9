package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tmplcheck/internal/driver"
	"tmplcheck/internal/source"
)

var tcbCmd = &cobra.Command{
	Use:   "tcb [dir]",
	Short: "Print the synthesized type-check files",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTCB,
}

func init() {
	addTypeCheckFlags(tcbCmd)
}

func runTCB(cmd *cobra.Command, args []string) error {
	cfg, prog, err := loadProgram(cmd, targetDir(args))
	if err != nil {
		return err
	}
	opts, err := typeCheckOptions(cmd, cfg)
	if err != nil {
		return err
	}
	c := driver.New(driver.Options{TypeCheck: opts})
	if err := c.Analyze(cmd.Context(), prog, nil); err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	files := c.TypeCheckFiles()
	if len(files) == 0 {
		fmt.Fprintln(out, "// no type-check files")
		return nil
	}
	for i, f := range files {
		if i > 0 {
			fmt.Fprintln(out)
		}
		header := "// " + source.RelativePath(f.Path(), cfg.Root)
		if r := f.Replaces(); r != "" {
			header += " (replaces " + source.RelativePath(r, cfg.Root) + ")"
		}
		fmt.Fprintln(out, header)
		fmt.Fprint(out, f.RenderText())
	}
	return nil
}
