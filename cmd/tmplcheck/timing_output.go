package main

import (
	"fmt"
	"io"

	"tmplcheck/internal/observ"
)

func printTimings(out io.Writer, r observ.Report) {
	for _, p := range r.Phases {
		if p.Note != "" {
			fmt.Fprintf(out, "%-10s %7.1f ms  %s\n", p.Name, p.DurationMS, p.Note)
			continue
		}
		fmt.Fprintf(out, "%-10s %7.1f ms\n", p.Name, p.DurationMS)
	}
	fmt.Fprintf(out, "%-10s %7.1f ms\n", "total", r.TotalMS)
}
