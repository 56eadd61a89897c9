// Package selector parses element selectors such as `app-card`,
// `[appTooltip]` or `input[type][appMask], textarea[appMask]` and matches
// them against template elements.
package selector

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Compound is one alternative: an optional tag plus required attributes.
type Compound struct {
	Tag   string
	Attrs []string
}

// Selector is a list of alternatives; any of them may match.
type Selector struct {
	Alternatives []Compound
}

// Normalize brings tag and attribute names into NFC.
func Normalize(name string) string {
	return norm.NFC.String(name)
}

// Parse parses a comma separated selector list.
func Parse(s string) (Selector, error) {
	var sel Selector
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			return Selector{}, fmt.Errorf("empty selector alternative in %q", s)
		}
		c, err := parseCompound(part)
		if err != nil {
			return Selector{}, err
		}
		sel.Alternatives = append(sel.Alternatives, c)
	}
	return sel, nil
}

func parseCompound(s string) (Compound, error) {
	var c Compound
	i := 0
	for i < len(s) && s[i] != '[' {
		i++
	}
	c.Tag = Normalize(strings.TrimSpace(s[:i]))
	if strings.ContainsAny(c.Tag, " \t]") {
		return Compound{}, fmt.Errorf("invalid tag name %q", c.Tag)
	}
	for i < len(s) {
		if s[i] != '[' {
			return Compound{}, fmt.Errorf("unexpected %q in selector %q", s[i], s)
		}
		end := strings.IndexByte(s[i:], ']')
		if end < 0 {
			return Compound{}, fmt.Errorf("unterminated attribute in selector %q", s)
		}
		name := strings.TrimSpace(s[i+1 : i+end])
		if name == "" || strings.ContainsAny(name, "[ \t") {
			return Compound{}, fmt.Errorf("invalid attribute name %q in selector %q", name, s)
		}
		c.Attrs = append(c.Attrs, Normalize(name))
		i += end + 1
	}
	if c.Tag == "" && len(c.Attrs) == 0 {
		return Compound{}, fmt.Errorf("empty selector %q", s)
	}
	return c, nil
}

// MustParse is Parse for constant selectors in tests.
func MustParse(s string) Selector {
	sel, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return sel
}

// IsElement reports whether some alternative names a tag.
func (s Selector) IsElement() bool {
	for _, c := range s.Alternatives {
		if c.Tag != "" {
			return true
		}
	}
	return false
}

// Matches reports whether an element with the given tag and attribute
// names satisfies any alternative. Names are compared after normalization.
func (s Selector) Matches(tag string, attrs []string) bool {
	tag = Normalize(tag)
	have := make(map[string]struct{}, len(attrs))
	for _, a := range attrs {
		have[Normalize(a)] = struct{}{}
	}
	for _, c := range s.Alternatives {
		if c.Tag != "" && c.Tag != tag {
			continue
		}
		ok := true
		for _, a := range c.Attrs {
			if _, found := have[a]; !found {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}

func (s Selector) String() string {
	parts := make([]string, 0, len(s.Alternatives))
	for _, c := range s.Alternatives {
		var b strings.Builder
		b.WriteString(c.Tag)
		for _, a := range c.Attrs {
			b.WriteString("[" + a + "]")
		}
		parts = append(parts, b.String())
	}
	return strings.Join(parts, ", ")
}
