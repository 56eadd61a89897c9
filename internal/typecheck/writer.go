package typecheck

import (
	"strconv"
	"strings"

	"tmplcheck/internal/source"
)

// mapping ties a synthetic range to the template span it came from.
type mapping struct {
	start int
	end   int
	span  source.Span
}

// piece is rendered code plus mappings relative to its first byte.
type piece struct {
	text string
	maps []mapping
}

func plain(s string) piece { return piece{text: s} }

// cat joins pieces, shifting their mappings.
func cat(parts ...piece) piece {
	var out piece
	for _, p := range parts {
		base := len(out.text)
		out.text += p.text
		for _, m := range p.maps {
			m.start += base
			m.end += base
			out.maps = append(out.maps, m)
		}
	}
	return out
}

// covering wraps p with an outer mapping over all of its text.
func covering(p piece, span source.Span) piece {
	p.maps = append(p.maps, mapping{start: 0, end: len(p.text), span: span})
	return p
}

type writer struct {
	buf   strings.Builder
	maps  []mapping
	depth int
}

// line writes one indented line made of pieces.
func (w *writer) line(parts ...piece) {
	for range w.depth {
		w.buf.WriteByte('\t')
	}
	for _, p := range parts {
		base := w.buf.Len()
		w.buf.WriteString(p.text)
		for _, m := range p.maps {
			m.start += base
			m.end += base
			w.maps = append(w.maps, m)
		}
	}
	w.buf.WriteByte('\n')
}

func (w *writer) open(parts ...piece) {
	if len(parts) == 0 {
		w.line(plain("{"))
	} else {
		w.line(append(parts, plain(" {"))...)
	}
	w.depth++
}

func (w *writer) close() {
	w.depth--
	w.line(plain("}"))
}

func itoa(n int) string { return strconv.Itoa(n) }
