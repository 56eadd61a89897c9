package gohost

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/mod/modfile"
	"golang.org/x/sync/errgroup"

	"tmplcheck/internal/source"
)

// LoadOptions tune Load.
type LoadOptions struct {
	RootDirs  []string // relative to root; the root itself when empty
	Resources map[string]string
	Exclude   func(path string) bool
	Jobs      int // parallel readers, GOMAXPROCS when <= 0
}

// ReadModulePath extracts the module path from root/go.mod.
func ReadModulePath(root string) (string, error) {
	// #nosec G304 -- go.mod of the project being checked
	data, err := os.ReadFile(filepath.Join(root, "go.mod"))
	if err != nil {
		return "", fmt.Errorf("read go.mod: %w", err)
	}
	mp := modfile.ModulePath(data)
	if mp == "" {
		return "", fmt.Errorf("%s/go.mod: %w", root, ErrNoModulePath)
	}
	return mp, nil
}

// listGoFiles возвращает отсортированный список .go файлов под dirs.
func listGoFiles(dirs []string, exclude func(string) bool) ([]string, error) {
	var files []string
	seen := make(map[string]struct{})
	for _, dir := range dirs {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			name := d.Name()
			if d.IsDir() {
				if path != dir && skipDir(name) {
					return filepath.SkipDir
				}
				return nil
			}
			if !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
				return nil
			}
			path = filepath.ToSlash(path)
			if exclude != nil && exclude(path) {
				return nil
			}
			if _, dup := seen[path]; !dup {
				seen[path] = struct{}{}
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	sort.Strings(files)
	return files, nil
}

func skipDir(name string) bool {
	switch name {
	case "vendor", "testdata", "node_modules":
		return true
	}
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")
}

// Load reads every Go source under the root directories of a module.
func Load(ctx context.Context, root string, opts LoadOptions) (*Program, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	modulePath, err := ReadModulePath(root)
	if err != nil {
		return nil, err
	}
	dirs := make([]string, 0, len(opts.RootDirs))
	for _, d := range opts.RootDirs {
		if !filepath.IsAbs(d) {
			d = filepath.Join(root, d)
		}
		dirs = append(dirs, filepath.Clean(d))
	}
	if len(dirs) == 0 {
		dirs = append(dirs, root)
	}
	files, err := listGoFiles(dirs, opts.Exclude)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}

	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	// индексы уникальны для каждой горутины, мьютекс не нужен
	contents := make([][]byte, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, min(jobs, len(files))))
	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			// #nosec G304 -- path comes from walking the module tree
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
			contents[i], _ = source.Normalize(data)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	srcs := make(map[string]string, len(files))
	for i, path := range files {
		srcs[path] = string(contents[i])
	}
	return New(Options{
		Root:       root,
		ModulePath: modulePath,
		RootDirs:   dirs,
		Files:      srcs,
		Resources:  opts.Resources,
		Exclude:    opts.Exclude,
	})
}
