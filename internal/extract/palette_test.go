package extract

import (
	"strings"
	"testing"
)

func TestDefaultPalette_Table(t *testing.T) {
	p := DefaultPalette()
	cases := map[string]string{
		"Soep":               "#fdb85b",
		"SOUP":               "#fdb85b",
		"Menu 1":             "#68b6f3",
		"Dag Menu":           "#68b6f3",
		"dagmenu":            "#68b6f3",
		"Health":             "#ff9861",
		"menu 2":             "#cc93d5",
		"Meals of the World": "#cc93d5",
		"Fairtrade":          "#cc93d5",
		"Fairtrade Menu":     "#cc93d5",
		"Veggie":             "#87b164",
		"Veggiedag":          "#87b164",
		"Pasta":              "#de694a",
		"Pasta Bar":          "#de694a",
		"WOK":                "#6c4c42",
	}
	for name, want := range cases {
		got, ok := p.Color(name)
		if !ok || got != want {
			t.Fatalf("Color(%q)=%q,%v want %q", name, got, ok, want)
		}
	}
}

func TestDefaultPalette_UnknownIsDefault(t *testing.T) {
	p := DefaultPalette()
	for _, name := range []string{"Menu", "Grill", "soep ", "pastabar", "menu1", ""} {
		got, ok := p.Color(name)
		// surrounding whitespace is ignored, so "soep " is a hit
		if strings.TrimSpace(name) == "soep" {
			if !ok {
				t.Fatalf("expected %q to match", name)
			}
			continue
		}
		if ok || got != DefaultColor {
			t.Fatalf("Color(%q)=%q,%v want default", name, got, ok)
		}
	}
}

func TestNewPalette_Validation(t *testing.T) {
	if _, err := NewPalette(map[string]string{"soep": "yellow"}, ""); err == nil {
		t.Fatalf("expected error for non-hex color")
	}
	if _, err := NewPalette(map[string]string{" ": "#ffffff"}, ""); err == nil {
		t.Fatalf("expected error for empty category")
	}
	if _, err := NewPalette(nil, "#fff"); err == nil {
		t.Fatalf("expected error for short default color")
	}
	p, err := NewPalette(map[string]string{"Grill": "#AABBCC"}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c, ok := p.Color("grill"); !ok || c != "#aabbcc" {
		t.Fatalf("grill=%q,%v", c, ok)
	}
	if p.Fallback() != DefaultColor {
		t.Fatalf("fallback=%q", p.Fallback())
	}
}
