package source

import "testing"

func TestSpanShiftLeftClamps(t *testing.T) {
	tests := []struct {
		name  string
		span  Span
		shift uint32
		want  Span
	}{
		{"normal", Span{File: 1, Start: 10, End: 20}, 5, Span{File: 1, Start: 5, End: 15}},
		{"zero", Span{File: 1, Start: 10, End: 20}, 0, Span{File: 1, Start: 10, End: 20}},
		{"past start", Span{File: 1, Start: 10, End: 20}, 15, Span{File: 1, Start: 0, End: 5}},
		{"past end", Span{File: 1, Start: 10, End: 20}, 30, Span{File: 1, Start: 0, End: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.span.ShiftLeft(tt.shift); got != tt.want {
				t.Fatalf("ShiftLeft = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSpanContains(t *testing.T) {
	outer := Span{File: 2, Start: 10, End: 20}
	if !outer.Contains(Span{File: 2, Start: 10, End: 20}) {
		t.Fatalf("span must contain itself")
	}
	if !outer.Contains(Span{File: 2, Start: 12, End: 13}) {
		t.Fatalf("inner span not contained")
	}
	if outer.Contains(Span{File: 3, Start: 12, End: 13}) {
		t.Fatalf("span in another file reported as contained")
	}
	if outer.Contains(Span{File: 2, Start: 19, End: 21}) {
		t.Fatalf("overlapping span reported as contained")
	}
	if !(Span{Start: 4, End: 4}).ContainsOffset(4) {
		t.Fatalf("empty span must contain its start")
	}
	if outer.ContainsOffset(20) {
		t.Fatalf("end offset is exclusive")
	}
}

func TestRelativePath(t *testing.T) {
	if got := RelativePath("/proj/app/hero.go", "/proj"); got != "app/hero.go" {
		t.Fatalf("RelativePath inside = %q", got)
	}
	if got := RelativePath("/other/hero.go", "/proj"); got != "/other/hero.go" {
		t.Fatalf("RelativePath outside = %q", got)
	}
}
