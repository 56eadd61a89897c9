package source

import (
	"fmt"

	"fortio.org/safecast"
)

// Span is a half-open byte range inside one file version.
type Span struct {
	File  FileID
	Start uint32 // в байтах включительно
	End   uint32 // в байтах не включительно
}

// SpanOf builds a span from int offsets, panicking on overflow like the rest of the package.
func SpanOf(file FileID, start, end int) Span {
	return Span{File: file, Start: Offset(start), End: Offset(end)}
}

// Offset converts an int byte offset into the uint32 representation used by spans.
func Offset(n int) uint32 {
	off, err := safecast.Conv[uint32](n)
	if err != nil {
		panic(fmt.Errorf("offset overflow: %w", err))
	}
	return off
}

func (s Span) Empty() bool {
	return s.Start == s.End
}

func (s Span) Len() uint32 {
	return s.End - s.Start
}

func (s Span) String() string {
	return fmt.Sprintf("%d:%d-%d", s.File, s.Start, s.End)
}

// Contains reports whether other lies fully inside s.
func (s Span) Contains(other Span) bool {
	return s.File == other.File && s.Start <= other.Start && other.End <= s.End
}

// ContainsOffset reports whether off is inside [Start, End).
// Empty spans contain their own start so zero-width mappings stay addressable.
func (s Span) ContainsOffset(off uint32) bool {
	if s.Empty() {
		return off == s.Start
	}
	return s.Start <= off && off < s.End
}

// ShiftLeft moves the span towards the file start, clamping at zero.
func (s Span) ShiftLeft(n uint32) Span {
	start, end := s.Start, s.End
	if n > start {
		start = 0
	} else {
		start -= n
	}
	if n > end {
		end = 0
	} else {
		end -= n
	}
	return Span{File: s.File, Start: start, End: end}
}

