package typecheck

import (
	"path/filepath"
	"strings"
)

const (
	// ExternalFileName is the base name of the shared type-check file.
	ExternalFileName = "__tmpl_typecheck__.go"
	// ExternalPackage is the package clause of the shared type-check file.
	ExternalPackage = "tmpltypecheck"
	// ShadowSuffix is inserted before ".go" to name inline shadows.
	ShadowSuffix = "__shadow"
)

// IsSyntheticPath reports whether path names a file this package generates.
// Such files are never scanned for declarations.
func IsSyntheticPath(path string) bool {
	base := filepath.Base(path)
	return base == ExternalFileName || strings.HasSuffix(base, ShadowSuffix+".go")
}

// ExternalPath places the shared file in the shortest root directory.
func ExternalPath(rootDirs []string) string {
	best := ""
	for _, d := range rootDirs {
		if best == "" || len(d) < len(best) || len(d) == len(best) && d < best {
			best = d
		}
	}
	return filepath.ToSlash(filepath.Join(best, ExternalFileName))
}

// ShadowPath names the inline shadow of a source file.
func ShadowPath(path string) string {
	return strings.TrimSuffix(path, ".go") + ShadowSuffix + ".go"
}

// stem turns a file's base name into an identifier suffix.
func stem(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), ".go")
	var b strings.Builder
	for _, r := range base {
		switch {
		case r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

func dirOf(path string) string {
	return filepath.ToSlash(filepath.Dir(path))
}
