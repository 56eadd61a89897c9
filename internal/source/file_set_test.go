package source

import (
	"testing"
)

func TestFileSetVersioning(t *testing.T) {
	fs := NewFileSet()

	id1 := fs.Add("app/hero.go", []byte("package app"), 0)
	id2 := fs.Add("app/hero.go", []byte("package app // v2"), 0)
	if id1 == id2 {
		t.Fatalf("Add must always create a new version, got %d twice", id1)
	}
	latest, ok := fs.GetLatest("app/hero.go")
	if !ok || latest != id2 {
		t.Fatalf("GetLatest = %d, %v; want %d, true", latest, ok, id2)
	}
	if got := string(fs.Get(id1).Content); got != "package app" {
		t.Fatalf("old version content = %q", got)
	}
}

func TestFileSetEnsureReusesIdenticalContent(t *testing.T) {
	fs := NewFileSet()
	id1 := fs.Ensure("a.go", []byte("package a\n"), 0)
	id2 := fs.Ensure("a.go", []byte("package a\n"), 0)
	if id1 != id2 {
		t.Fatalf("Ensure with identical content = %d, want %d", id2, id1)
	}
	id3 := fs.Ensure("a.go", []byte("package b\n"), 0)
	if id3 == id1 {
		t.Fatalf("Ensure with new content must add a version")
	}
	if fs.Len() != 2 {
		t.Fatalf("Len = %d, want 2", fs.Len())
	}
}

func TestResolveLineCol(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("x.go", []byte("ab\ncd\n\nef"))
	tests := []struct {
		off  uint32
		want LineCol
	}{
		{0, LineCol{1, 1}},
		{2, LineCol{1, 3}}, // the newline itself
		{3, LineCol{2, 1}},
		{4, LineCol{2, 2}},
		{6, LineCol{3, 1}},
		{7, LineCol{4, 1}},
		{8, LineCol{4, 2}},
	}
	for _, tt := range tests {
		got, _ := fs.Resolve(Span{File: id, Start: tt.off, End: tt.off})
		if got != tt.want {
			t.Fatalf("Resolve(%d) = %+v, want %+v", tt.off, got, tt.want)
		}
	}
}

func TestGetLine(t *testing.T) {
	fs := NewFileSet()
	f := fs.Get(fs.AddVirtual("x.go", []byte("first\nsecond\nthird")))
	for i, want := range []string{"first", "second", "third", ""} {
		if got := f.GetLine(uint32(i + 1)); got != want {
			t.Fatalf("GetLine(%d) = %q, want %q", i+1, got, want)
		}
	}
	if got := f.GetLine(0); got != "" {
		t.Fatalf("GetLine(0) = %q, want empty", got)
	}
}

func TestNormalize(t *testing.T) {
	in := append([]byte{0xEF, 0xBB, 0xBF}, []byte("a\r\nb\rc")...)
	out, flags := Normalize(in)
	if string(out) != "a\nb\rc" {
		t.Fatalf("Normalize content = %q", out)
	}
	if flags&FileHadBOM == 0 || flags&FileNormalizedCRLF == 0 {
		t.Fatalf("Normalize flags = %b", flags)
	}
}
