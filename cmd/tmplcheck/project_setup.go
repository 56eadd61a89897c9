package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"tmplcheck/internal/host/gohost"
	"tmplcheck/internal/project"
	"tmplcheck/internal/typecheck"
)

// strictFlags maps CLI flags onto the per-toggle overrides.
var strictFlags = []struct {
	name  string
	usage string
	field func(*typecheck.Options) **bool
}{
	{"strict-input-types", "check input binding types", func(o *typecheck.Options) **bool { return &o.StrictInputTypes }},
	{"strict-null-input-types", "reject nil for non-nilable inputs", func(o *typecheck.Options) **bool { return &o.StrictNullInputTypes }},
	{"strict-attribute-types", "check text attributes bound to inputs", func(o *typecheck.Options) **bool { return &o.StrictAttributeTypes }},
	{"strict-output-event-types", "check output handler payloads", func(o *typecheck.Options) **bool { return &o.StrictOutputEventTypes }},
	{"strict-dom-event-types", "check DOM event handlers", func(o *typecheck.Options) **bool { return &o.StrictDomEventTypes }},
	{"strict-dom-local-ref-types", "type element references", func(o *typecheck.Options) **bool { return &o.StrictDomLocalRefTypes }},
	{"strict-context-generics", "infer generic directive parameters", func(o *typecheck.Options) **bool { return &o.StrictContextGenerics }},
}

func addTypeCheckFlags(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.Bool("template-type-check", true, "type-check templates at all")
	fs.Bool("full-template-type-check", false, "also check guards, structural bodies and references")
	fs.Bool("strict-templates", false, "enable every template check")
	for _, f := range strictFlags {
		fs.Bool(f.name, false, f.usage)
	}
}

// typeCheckOptions starts from the config file and applies the flags the
// user set explicitly.
func typeCheckOptions(cmd *cobra.Command, cfg *project.Config) (typecheck.Options, error) {
	opts := cfg.TypeCheck
	flags := cmd.Flags()
	if flags.Changed("template-type-check") {
		v, err := flags.GetBool("template-type-check")
		if err != nil {
			return opts, err
		}
		opts.TemplateTypeCheck = &v
	}
	for name, dst := range map[string]*bool{
		"full-template-type-check": &opts.FullTemplateTypeCheck,
		"strict-templates":         &opts.StrictTemplates,
	} {
		if !flags.Changed(name) {
			continue
		}
		v, err := flags.GetBool(name)
		if err != nil {
			return opts, err
		}
		*dst = v
	}
	for _, f := range strictFlags {
		if !flags.Changed(f.name) {
			continue
		}
		v, err := flags.GetBool(f.name)
		if err != nil {
			return opts, fmt.Errorf("failed to get %s flag: %w", f.name, err)
		}
		*f.field(&opts) = &v
	}
	return opts, nil
}

// loadProgram reads the config governing dir and loads the module sources.
func loadProgram(cmd *cobra.Command, dir string) (*project.Config, *gohost.Program, error) {
	cfg, err := project.Load(dir)
	if err != nil {
		return nil, nil, err
	}
	prog, err := gohost.Load(cmd.Context(), cfg.Root, gohost.LoadOptions{
		RootDirs: cfg.RootDirs(),
		Exclude:  excludeFunc(cfg.Root, cfg.Project.Exclude),
		Jobs:     cfg.Project.Jobs,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("load %s: %w", cfg.Root, err)
	}
	prog.FileSet().SetBaseDir(cfg.Root)
	return cfg, prog, nil
}

// excludeFunc matches slash-separated patterns against paths relative to
// root. A pattern without glob characters excludes a whole subtree.
func excludeFunc(root string, patterns []string) func(string) bool {
	if len(patterns) == 0 {
		return nil
	}
	return func(path string) bool {
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return false
		}
		rel = filepath.ToSlash(rel)
		for _, p := range patterns {
			p = strings.TrimSuffix(filepath.ToSlash(p), "/")
			if rel == p || strings.HasPrefix(rel, p+"/") {
				return true
			}
			if ok, _ := filepath.Match(p, rel); ok {
				return true
			}
			if ok, _ := filepath.Match(p, filepath.Base(rel)); ok {
				return true
			}
		}
		return false
	}
}

func targetDir(args []string) string {
	if len(args) == 0 {
		return "."
	}
	return args[0]
}
