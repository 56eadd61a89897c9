package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"tmplcheck/internal/project"
)

func TestExcludeFunc(t *testing.T) {
	exclude := excludeFunc("/work", []string{"gen", "*_mock.go", "web/legacy/"})
	tests := []struct {
		path string
		want bool
	}{
		{"/work/gen/a.go", true},
		{"/work/generated/a.go", false},
		{"/work/app/card_mock.go", true},
		{"/work/web/legacy/old.go", true},
		{"/work/web/card.go", false},
	}
	for _, tt := range tests {
		if got := exclude(tt.path); got != tt.want {
			t.Fatalf("exclude(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
	if excludeFunc("/work", nil) != nil {
		t.Fatalf("no patterns must disable the filter")
	}
}

func TestTypeCheckOptionsFlagsOverrideConfig(t *testing.T) {
	cmd := &cobra.Command{Use: "x"}
	addTypeCheckFlags(cmd)
	on := true
	cfg := &project.Config{}
	cfg.TypeCheck.StrictTemplates = true
	cfg.TypeCheck.StrictDomEventTypes = &on
	if err := cmd.Flags().Parse([]string{"--strict-templates=false", "--strict-input-types"}); err != nil {
		t.Fatal(err)
	}
	opts, err := typeCheckOptions(cmd, cfg)
	if err != nil {
		t.Fatalf("typeCheckOptions: %v", err)
	}
	if opts.StrictTemplates {
		t.Fatalf("flag must override the config file")
	}
	if opts.StrictInputTypes == nil || !*opts.StrictInputTypes {
		t.Fatalf("strict-input-types not applied")
	}
	if opts.StrictDomEventTypes == nil || !*opts.StrictDomEventTypes || opts.TemplateTypeCheck != nil {
		t.Fatalf("unset flags must keep config values: %+v", opts)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestCheckAndPlan(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "go.mod"), "module example.com/app\n\ngo 1.22\n")
	writeFile(t, filepath.Join(root, "tmplcheck.toml"), "[typecheck]\nstrict_templates = true\n")
	writeFile(t, filepath.Join(root, "app", "card.go"), `package app

//tmpl:component{Selector: "app-card", Template: "<h1>{{ Missing }}</h1>"}
type Card struct {
	Title string
}
`)

	out, err := execute(t, "check", "--format", "short", "--cache", root)
	if !errors.Is(err, errDiagnostics) {
		t.Fatalf("check err = %v, want errDiagnostics\n%s", err, out)
	}
	if !strings.Contains(out, "TCB5001 app/card.go:3:") {
		t.Fatalf("missing template diagnostic:\n%s", out)
	}
	if _, err := os.Stat(filepath.Join(root, ".tmplcheck", "baseline.mp")); err != nil {
		t.Fatalf("baseline not written: %v", err)
	}

	out, err = execute(t, "plan", "--format", "json", root)
	if err != nil {
		t.Fatalf("plan: %v\n%s", err, out)
	}
	var p planPayload
	if err := json.Unmarshal([]byte(out), &p); err != nil {
		t.Fatalf("plan output is not JSON: %v\n%s", err, out)
	}
	if !p.Baseline || p.Full || len(p.Invalidated) != 0 || p.Carried != 1 {
		t.Fatalf("plan = %+v, want everything carried", p)
	}

	writeFile(t, filepath.Join(root, "app", "card.go"), `package app

//tmpl:component{Selector: "app-card", Template: "<h1>{{ Title }}</h1>"}
type Card struct {
	Title string
}
`)
	out, err = execute(t, "plan", "--format", "json", root)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if err := json.Unmarshal([]byte(out), &p); err != nil {
		t.Fatal(err)
	}
	if len(p.Invalidated) != 1 || p.Invalidated[0] != "app/card.go" {
		t.Fatalf("plan = %+v, want card.go invalidated", p)
	}

	if out, err = execute(t, "check", "--format", "short", root); err != nil {
		t.Fatalf("fixed template still fails: %v\n%s", err, out)
	}
}

func TestVersionJSON(t *testing.T) {
	out, err := execute(t, "version", "--format", "json")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	var v versionPayload
	if err := json.Unmarshal([]byte(out), &v); err != nil || v.Tool != "tmplcheck" || v.Version == "" {
		t.Fatalf("version output = %q (%v)", out, err)
	}
}
