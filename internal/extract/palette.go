package extract

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/cases"
)

// ErrUnknownCategory is attached to the diagnostic logged when a row's
// category has no color in the palette.
var ErrUnknownCategory = errors.New("unknown menu category")

// DefaultColor is used for categories missing from the palette.
const DefaultColor = "#f0eb93"

var defaultCategoryColors = map[string]string{
	"soep":               "#fdb85b",
	"soup":               "#fdb85b",
	"menu 1":             "#68b6f3",
	"dag menu":           "#68b6f3",
	"dagmenu":            "#68b6f3",
	"health":             "#ff9861",
	"menu 2":             "#cc93d5",
	"meals of the world": "#cc93d5",
	"fairtrade":          "#cc93d5",
	"fairtrade menu":     "#cc93d5",
	"veggie":             "#87b164",
	"veggiedag":          "#87b164",
	"pasta":              "#de694a",
	"pasta bar":          "#de694a",
	"wok":                "#6c4c42",
}

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// Palette maps menu categories to display colors. Lookups are exact matches
// after case folding. A Palette is read-only once built.
type Palette struct {
	colors   map[string]string
	fallback string
}

// DefaultPalette returns the built-in category table.
func DefaultPalette() Palette {
	p, _ := NewPalette(defaultCategoryColors, DefaultColor)
	return p
}

// DefaultCategoryColors returns a copy of the built-in category table.
func DefaultCategoryColors() map[string]string {
	out := make(map[string]string, len(defaultCategoryColors))
	for k, v := range defaultCategoryColors {
		out[k] = v
	}
	return out
}

// NewPalette validates colors and builds a palette. An empty fallback means
// DefaultColor.
func NewPalette(colors map[string]string, fallback string) (Palette, error) {
	if strings.TrimSpace(fallback) == "" {
		fallback = DefaultColor
	}
	if !hexColor.MatchString(fallback) {
		return Palette{}, fmt.Errorf("default color %q is not #rrggbb", fallback)
	}
	m := make(map[string]string, len(colors))
	for name, color := range colors {
		key := foldCategory(name)
		if key == "" {
			return Palette{}, errors.New("palette: empty category name")
		}
		if !hexColor.MatchString(color) {
			return Palette{}, fmt.Errorf("palette: color %q for %q is not #rrggbb", color, name)
		}
		m[key] = strings.ToLower(color)
	}
	return Palette{colors: m, fallback: strings.ToLower(fallback)}, nil
}

// Color returns the color for category and whether it was found. When not
// found the palette's fallback color is returned.
func (p Palette) Color(category string) (string, bool) {
	if c, ok := p.colors[foldCategory(category)]; ok {
		return c, true
	}
	return p.fallback, false
}

// Fallback is the color used for unknown categories.
func (p Palette) Fallback() string { return p.fallback }

// Categories lists the known category keys in sorted order.
func (p Palette) Categories() []string {
	out := make([]string, 0, len(p.colors))
	for k := range p.colors {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func foldCategory(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}
