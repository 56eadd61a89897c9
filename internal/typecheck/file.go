package typecheck

import (
	"sort"
	"strings"

	"tmplcheck/internal/source"
)

// File is a synthetic unit accumulating check blocks.
type File interface {
	// Path is where the unit lives in the synthetic program.
	Path() string
	// Replaces names the root unit this one supersedes, if any.
	Replaces() string
	// RenderText renders every block added so far.
	RenderText() string
	// Blocks lists block names in the order they were added.
	Blocks() []string

	layout() (string, []placed)
	// discards reports whether a checker finding at off is not ours to report.
	discards(off int) bool
}

// block is one rendered check block.
type block struct {
	name          string
	decl          string
	componentFile source.FileID
	nameSpan      source.Span
	body          piece
}

// placed is a block positioned inside rendered text.
type placed struct {
	*block
	start int
	end   int
}

// blocks is the append-only list shared by both file kinds.
type blocks struct {
	list []*block
}

func (bs *blocks) add(b *block) { bs.list = append(bs.list, b) }

func (bs *blocks) names() []string {
	out := make([]string, len(bs.list))
	for i, b := range bs.list {
		out[i] = b.name
	}
	return out
}

// render appends every block to sb, recording where each one landed.
func (bs *blocks) render(sb *strings.Builder) []placed {
	out := make([]placed, 0, len(bs.list))
	for _, b := range bs.list {
		sb.WriteByte('\n')
		start := sb.Len()
		sb.WriteString(b.body.text)
		out = append(out, placed{block: b, start: start, end: sb.Len()})
	}
	return out
}

// locate finds the block containing off and the innermost mapping there.
func locate(in []placed, start, end int) (*placed, *mapping) {
	i := sort.Search(len(in), func(i int) bool { return in[i].end > start })
	if i == len(in) || in[i].start > start {
		return nil, nil
	}
	p := &in[i]
	lo, hi := start-p.start, end-p.start
	if hi < lo {
		hi = lo
	}
	var best *mapping
	for j := range p.body.maps {
		m := &p.body.maps[j]
		if m.start > lo || m.end < hi || m.end == m.start {
			continue
		}
		if best == nil || m.end-m.start < best.end-best.start {
			best = m
		}
	}
	return p, best
}

func writeHelpers(sb *strings.Builder, env *environment) {
	el, ev, fn := env.helper("_tcbElement"), env.helper("_tcbDOMEvent"), env.helper("_tcbEvent")
	sb.WriteString("\ntype " + el + " struct {\n\tTag     string\n\tID      string\n\tValue   string\n\tChecked bool\n}\n")
	sb.WriteString("\ntype " + ev + " struct {\n\tType   string\n\tTarget *" + el + "\n}\n")
	sb.WriteString("\nfunc " + fn + "[T any](func(T)) T {\n\tvar v T\n\treturn v\n}\n")
	if len(env.pipes) == 0 {
		return
	}
	sb.WriteByte('\n')
	for _, p := range env.pipes {
		sb.WriteString("var " + p.name + " " + p.typ + "\n")
	}
}
