// Package project locates and loads tmplcheck.toml / tmplcheck.yaml.
package project

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"tmplcheck/internal/typecheck"
)

// Config is the loaded project configuration. Path is empty when no
// config file was found and defaults are in effect.
type Config struct {
	Path string
	Root string

	Project   Settings          `toml:"project" yaml:"project"`
	TypeCheck typecheck.Options `toml:"typecheck" yaml:"typecheck"`
}

// Settings is the [project] table.
type Settings struct {
	// Roots are source directories relative to Root; empty means Root.
	Roots   []string `toml:"roots" yaml:"roots"`
	Exclude []string `toml:"exclude" yaml:"exclude"`
	Jobs    int      `toml:"jobs" yaml:"jobs"`
}

// Load finds the config governing startDir. Without a config file the
// module root (the go.mod directory) is used, falling back to startDir.
// Environment overrides are applied last.
func Load(startDir string) (*Config, error) {
	path, ok, err := FindConfig(startDir)
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	if ok {
		if err := decode(path, cfg); err != nil {
			return nil, err
		}
		cfg.Path = path
		cfg.Root = filepath.Dir(path)
	} else {
		root, found, err := FindModuleRoot(startDir)
		if err != nil {
			return nil, err
		}
		if !found {
			if root, err = filepath.Abs(startDir); err != nil {
				return nil, fmt.Errorf("failed to resolve start directory: %w", err)
			}
		}
		cfg.Root = root
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, cfg.validate()
}

func decode(path string, cfg *Config) error {
	if strings.HasSuffix(path, ".toml") {
		meta, err := toml.DecodeFile(path, cfg)
		if err != nil {
			return fmt.Errorf("%s: failed to parse TOML: %w", path, err)
		}
		if keys := meta.Undecoded(); len(keys) > 0 {
			return fmt.Errorf("%s: unknown key %s", path, keys[0])
		}
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%s: failed to parse YAML: %w", path, err)
	}
	return nil
}

func (c *Config) validate() error {
	where := c.Path
	if where == "" {
		where = c.Root
	}
	for _, r := range c.Project.Roots {
		clean := filepath.ToSlash(filepath.Clean(r))
		if filepath.IsAbs(r) || clean == ".." || strings.HasPrefix(clean, "../") {
			return fmt.Errorf("%s: [project].roots entry %q must stay inside the project", where, r)
		}
	}
	if c.Project.Jobs < 0 {
		return fmt.Errorf("%s: [project].jobs must not be negative", where)
	}
	return nil
}

// RootDirs returns the absolute source roots.
func (c *Config) RootDirs() []string {
	if len(c.Project.Roots) == 0 {
		return []string{c.Root}
	}
	out := make([]string, 0, len(c.Project.Roots))
	for _, r := range c.Project.Roots {
		out = append(out, filepath.Join(c.Root, filepath.FromSlash(r)))
	}
	return out
}

// envFlags maps TMPLCHECK_* variables onto the strictness toggles.
var envFlags = map[string]func(*typecheck.Options) **bool{
	"TMPLCHECK_TEMPLATE_TYPE_CHECK":        func(o *typecheck.Options) **bool { return &o.TemplateTypeCheck },
	"TMPLCHECK_STRICT_INPUT_TYPES":         func(o *typecheck.Options) **bool { return &o.StrictInputTypes },
	"TMPLCHECK_STRICT_NULL_INPUT_TYPES":    func(o *typecheck.Options) **bool { return &o.StrictNullInputTypes },
	"TMPLCHECK_STRICT_ATTRIBUTE_TYPES":     func(o *typecheck.Options) **bool { return &o.StrictAttributeTypes },
	"TMPLCHECK_STRICT_OUTPUT_EVENT_TYPES":  func(o *typecheck.Options) **bool { return &o.StrictOutputEventTypes },
	"TMPLCHECK_STRICT_DOM_EVENT_TYPES":     func(o *typecheck.Options) **bool { return &o.StrictDomEventTypes },
	"TMPLCHECK_STRICT_DOM_LOCAL_REF_TYPES": func(o *typecheck.Options) **bool { return &o.StrictDomLocalRefTypes },
	"TMPLCHECK_STRICT_CONTEXT_GENERICS":    func(o *typecheck.Options) **bool { return &o.StrictContextGenerics },
}

// applyEnv reads <root>/.env and the process environment; the process
// environment wins.
func (c *Config) applyEnv() error {
	vars := map[string]string{}
	envPath := filepath.Join(c.Root, ".env")
	if _, err := os.Stat(envPath); err == nil {
		m, err := godotenv.Read(envPath)
		if err != nil {
			return fmt.Errorf("%s: %w", envPath, err)
		}
		vars = m
	}
	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := vars[key]
		return v, ok
	}
	for key, field := range envFlags {
		raw, ok := lookup(key)
		if !ok {
			continue
		}
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*field(&c.TypeCheck) = &v
	}
	for key, field := range map[string]*bool{
		"TMPLCHECK_STRICT_TEMPLATES":         &c.TypeCheck.StrictTemplates,
		"TMPLCHECK_FULL_TEMPLATE_TYPE_CHECK": &c.TypeCheck.FullTemplateTypeCheck,
	} {
		raw, ok := lookup(key)
		if !ok {
			continue
		}
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*field = v
	}
	return nil
}
