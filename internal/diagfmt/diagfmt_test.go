package diagfmt

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"tmplcheck/internal/diag"
	"tmplcheck/internal/source"
)

const cardText = "package app\n\ntype Card struct {\n\tTitle string\n}\n"

func fixture() (*source.FileSet, *diag.Bag, source.FileID, source.FileID) {
	fs := source.NewFileSetWithBase("/work")
	card := fs.AddVirtual("/work/app/card.go", []byte(cardText))
	html := fs.Ensure("/work/app/card.html", []byte("<p>{{ Заголовок }}</p>\n"), source.FileResource)

	bag := diag.NewBag(0)
	start := strings.Index(cardText, "Card")
	w := diag.NewWarning(diag.AnlUnknownField, source.SpanOf(card, start, start+4), "unknown field Colour")
	bag.Add(w.WithNote(source.SpanOf(card, 0, 7), "marker is here"))
	s := strings.Index("<p>{{ Заголовок }}</p>\n", "Заголовок")
	e := diag.NewError(diag.TcbTypeError, source.SpanOf(html, s, s+len("Заголовок")), "undefined: Заголовок")
	bag.Add(e.AsTemplate(card, "Card"))
	bag.Sort()
	return fs, bag, card, html
}

func TestPretty(t *testing.T) {
	fs, bag, _, _ := fixture()
	var buf bytes.Buffer
	Pretty(&buf, bag, fs, PrettyOpts{PathMode: PathModeRelative, ShowNotes: true})
	want := strings.Join([]string{
		"app/card.go:3:6: warning ANL3005: unknown field Colour",
		"3 | type Card struct {",
		"  |      ^~~~",
		"  note: app/card.go:1:1 marker is here",
		"1 | package app",
		"  | ^~~~~~~",
		"",
		"app/card.html:1:7: error TCB5001: undefined: Заголовок (template of Card)",
		"1 | <p>{{ Заголовок }}</p>",
		"  |       ^~~~~~~~~",
		"",
	}, "\n")
	if got := buf.String(); got != want {
		t.Fatalf("pretty output:\n%s\nwant:\n%s", got, want)
	}
}

func TestPrettyContextLines(t *testing.T) {
	fs := source.NewFileSetWithBase("/work")
	id := fs.AddVirtual("/work/a.go", []byte(cardText))
	bag := diag.NewBag(0)
	off := strings.Index(cardText, "Title")
	bag.Add(diag.NewError(diag.AnlNotStruct, source.SpanOf(id, off, off+5), "boom"))
	var buf bytes.Buffer
	Pretty(&buf, bag, fs, PrettyOpts{PathMode: PathModeBasename, Context: 1})
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 5 || !strings.HasPrefix(lines[0], "a.go:4:2:") {
		t.Fatalf("unexpected output:\n%s", buf.String())
	}
	if lines[3] != "  |     ^~~~~" {
		t.Fatalf("caret line = %q", lines[3])
	}
}

func TestCaretRangeWideRunes(t *testing.T) {
	line := "x := \"日本\" + y"
	start := source.LineCol{Line: 1, Col: uint32(strings.Index(line, "\"")) + 1}
	end := source.LineCol{Line: 1, Col: uint32(strings.LastIndex(line, "\"")) + 2}
	lead, mark := caretRange(line, start, end)
	if lead != 5 || mark != 6 {
		t.Fatalf("caretRange = (%d, %d), want (5, 6)", lead, mark)
	}
	_, mark = caretRange(line, start, source.LineCol{Line: 2, Col: 1})
	if mark != 10 {
		t.Fatalf("multi-line mark = %d, want 10", mark)
	}
}

func TestShort(t *testing.T) {
	fs, bag, _, _ := fixture()
	var buf bytes.Buffer
	if err := Short(&buf, bag, fs, false); err != nil {
		t.Fatal(err)
	}
	want := "warning ANL3005 app/card.go:3:6 unknown field Colour\n" +
		"error TCB5001 app/card.html:1:7 undefined: Заголовок (template of Card)\n"
	if got := buf.String(); got != want {
		t.Fatalf("short output = %q, want %q", got, want)
	}
}

func TestJSON(t *testing.T) {
	fs, bag, _, _ := fixture()
	var buf bytes.Buffer
	if err := JSON(&buf, bag, fs, JSONOpts{PathMode: PathModeRelative, IncludePositions: true, IncludeNotes: true}); err != nil {
		t.Fatalf("JSON: %v", err)
	}
	var out DiagnosticsOutput
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if out.Count != 2 || out.Errors != 1 {
		t.Fatalf("count = %d errors = %d", out.Count, out.Errors)
	}
	tpl := out.Diagnostics[1]
	if tpl.Template == nil || tpl.Template.Declaration != "Card" || tpl.Template.ComponentFile != "app/card.go" {
		t.Fatalf("template origin = %+v", tpl.Template)
	}
	if tpl.Location.File != "app/card.html" || tpl.Location.StartLine != 1 || tpl.Location.StartCol != 7 {
		t.Fatalf("location = %+v", tpl.Location)
	}
	if len(out.Diagnostics[0].Notes) != 1 {
		t.Fatalf("notes = %+v", out.Diagnostics[0].Notes)
	}

	buf.Reset()
	if err := JSON(&buf, bag, fs, JSONOpts{Max: 1}); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil || out.Count != 1 {
		t.Fatalf("Max not honoured: %v %+v", err, out)
	}
}

func TestColorEnabled(t *testing.T) {
	tests := []struct {
		mode    string
		want    bool
		wantErr bool
	}{
		{"on", true, false},
		{"off", false, false},
		{"auto", false, false},
		{"sometimes", false, true},
	}
	for _, tt := range tests {
		got, err := ColorEnabled(tt.mode, nil)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Fatalf("ColorEnabled(%q) = %v, %v", tt.mode, got, err)
		}
	}
}
