package dates

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// Locale is a fixed month-name table for one source language. Keys are
// case-folded full month names.
type Locale struct {
	Code   string
	months map[string]time.Month
}

// foldCase builds a fresh Caser each call; Casers are stateful and the
// tables are read from concurrent extraction runs.
func foldCase(s string) string {
	return cases.Fold().String(s)
}

func newLocale(code string, names [12]string) Locale {
	m := make(map[string]time.Month, len(names))
	for i, n := range names {
		m[foldCase(n)] = time.Month(i + 1)
	}
	return Locale{Code: code, months: m}
}

var (
	// Dutch is the locale of the catering pages.
	Dutch = newLocale("nl", [12]string{
		"januari", "februari", "maart", "april", "mei", "juni",
		"juli", "augustus", "september", "oktober", "november", "december",
	})
	English = newLocale("en", [12]string{
		"january", "february", "march", "april", "may", "june",
		"july", "august", "september", "october", "november", "december",
	})
)

var locales = map[string]Locale{
	Dutch.Code:   Dutch,
	English.Code: English,
}

// LookupLocale returns the locale for code. An empty code means Dutch.
func LookupLocale(code string) (Locale, error) {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return Dutch, nil
	}
	l, ok := locales[code]
	if !ok {
		return Locale{}, fmt.Errorf("unknown locale %q (known: %s)", code, strings.Join(LocaleCodes(), ", "))
	}
	return l, nil
}

// LocaleCodes lists the supported locale codes in sorted order.
func LocaleCodes() []string {
	out := make([]string, 0, len(locales))
	for c := range locales {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Month looks up a month name case-insensitively.
func (l Locale) Month(name string) (time.Month, bool) {
	m, ok := l.months[foldCase(strings.TrimSpace(name))]
	return m, ok
}
