package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"fortio.org/safecast"
	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"tmplcheck/internal/diag"
	"tmplcheck/internal/source"
)

type palette struct {
	err, warn, info, note, loc, gutter, caret *color.Color
}

func newPalette(enabled bool) palette {
	mk := func(attrs ...color.Attribute) *color.Color {
		c := color.New(attrs...)
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
		return c
	}
	return palette{
		err:    mk(color.FgRed, color.Bold),
		warn:   mk(color.FgYellow, color.Bold),
		info:   mk(color.FgCyan, color.Bold),
		note:   mk(color.FgBlue, color.Bold),
		loc:    mk(color.Bold),
		gutter: mk(color.FgBlue),
		caret:  mk(color.FgGreen, color.Bold),
	}
}

func (p palette) severity(s diag.Severity) *color.Color {
	switch s {
	case diag.SevError:
		return p.err
	case diag.SevWarning:
		return p.warn
	}
	return p.info
}

// Pretty форматирует диагностики в человекочитаемый вид.
// Идёт по bag.Items() (ожидается bag.Sort() заранее).
// Для каждого diag печатает:
//
//	<path>:<line>:<col>: <sev> <CODE>: <Message>
//
// затем строку исходника с подчёркиванием ^~~~ по Span, затем Notes.
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) {
	p := newPalette(opts.Color)
	for i, d := range bag.Items() {
		if i > 0 {
			fmt.Fprintln(w)
		}
		sev := p.severity(d.Severity)
		loc := location(fs, d.Primary, opts.PathMode)
		msg := d.Message
		if d.Template != nil && d.Template.Declaration != "" {
			msg += " (template of " + d.Template.Declaration + ")"
		}
		fmt.Fprintf(w, "%s %s %s\n", p.loc.Sprint(loc+":"), sev.Sprintf("%s %s:", diag.SeverityLabel(d.Severity), d.Code.ID()), msg)
		snippet(w, fs, d.Primary, opts.Context, p, sev)
		if !opts.ShowNotes {
			continue
		}
		for _, n := range d.Notes {
			fmt.Fprintf(w, "  %s %s %s\n", p.note.Sprint("note:"), p.loc.Sprint(location(fs, n.Span, opts.PathMode)), n.Msg)
			snippet(w, fs, n.Span, 0, p, p.note)
		}
	}
}

func location(fs *source.FileSet, sp source.Span, mode PathMode) string {
	if int(sp.File) >= fs.Len() {
		return "<unknown>"
	}
	f := fs.Get(sp.File)
	start, _ := fs.Resolve(sp)
	base := ""
	if mode == PathModeRelative {
		base = fs.BaseDir()
	}
	return fmt.Sprintf("%s:%d:%d", f.FormatPath(mode.String(), base), start.Line, start.Col)
}

// snippet prints the primary line with a caret underline. Columns are
// measured in display cells so wide runes stay aligned.
func snippet(w io.Writer, fs *source.FileSet, sp source.Span, context int8, p palette, underline *color.Color) {
	if int(sp.File) >= fs.Len() {
		return
	}
	f := fs.Get(sp.File)
	start, end := fs.Resolve(sp)
	if start.Line == 0 {
		return
	}
	around, err := safecast.Conv[uint32](max(0, context))
	if err != nil {
		panic(fmt.Errorf("context overflow: %w", err))
	}
	lines, err := safecast.Conv[uint32](len(f.LineIdx) + 1)
	if err != nil {
		panic(fmt.Errorf("line count overflow: %w", err))
	}
	first := start.Line - min(around, start.Line-1)
	last := min(start.Line+around, lines)
	width := len(fmt.Sprint(last))
	for ln := first; ln <= last; ln++ {
		text := strings.ReplaceAll(f.GetLine(ln), "\t", "    ")
		fmt.Fprintf(w, "%s %s\n", p.gutter.Sprintf("%*d |", width, ln), text)
		if ln != start.Line {
			continue
		}
		lead, mark := caretRange(f.GetLine(ln), start, end)
		fmt.Fprintf(w, "%s %s%s\n", p.gutter.Sprintf("%*s |", width, ""), strings.Repeat(" ", lead), underline.Sprint("^"+strings.Repeat("~", mark-1)))
	}
}

// caretRange converts byte columns into display cells. Spans that cross
// the line end are underlined to the end of the line.
func caretRange(line string, start, end source.LineCol) (lead, mark int) {
	col := min(int(start.Col)-1, len(line))
	stop := len(line)
	if end.Line == start.Line {
		stop = min(max(int(end.Col)-1, col), len(line))
	}
	expand := func(s string) string { return strings.ReplaceAll(s, "\t", "    ") }
	lead = runewidth.StringWidth(expand(line[:col]))
	mark = max(1, runewidth.StringWidth(expand(line[col:stop])))
	return lead, mark
}
