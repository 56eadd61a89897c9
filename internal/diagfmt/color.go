package diagfmt

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

// ColorEnabled resolves a --color value (auto|on|off) for out.
func ColorEnabled(mode string, out *os.File) (bool, error) {
	switch strings.ToLower(mode) {
	case "on", "always", "true":
		return true, nil
	case "off", "never", "false":
		return false, nil
	case "auto", "":
		if os.Getenv("NO_COLOR") != "" || out == nil {
			return false, nil
		}
		return term.IsTerminal(int(out.Fd())), nil
	}
	return false, fmt.Errorf("invalid color mode %q (expected auto|on|off)", mode)
}
