package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"github.com/hyperifyio/vubresto/internal/dates"
	"github.com/hyperifyio/vubresto/internal/menu"
)

// Selectors locate the parts of a menu page.
type Selectors struct {
	// Day matches one block per calendar day, in display order.
	Day string
	// Date matches the day label inside a day block; only the first match
	// is read.
	Date string
	// Rows matches the rows of the day's menu table.
	Rows string
	// Image matches an icon inside the first cell of a row.
	Image string
}

// DefaultSelectors match the catering site's markup.
var DefaultSelectors = Selectors{
	Day:   "#content .views-row",
	Date:  ".date-display-single",
	Rows:  "table tr",
	Image: "img",
}

func (s Selectors) withDefaults() Selectors {
	if s.Day == "" {
		s.Day = DefaultSelectors.Day
	}
	if s.Date == "" {
		s.Date = DefaultSelectors.Date
	}
	if s.Rows == "" {
		s.Rows = DefaultSelectors.Rows
	}
	if s.Image == "" {
		s.Image = DefaultSelectors.Image
	}
	return s
}

// DefaultVeggieMarker is the substring of the icon path used on vegetarian
// days.
const DefaultVeggieMarker = "veggiedag"

const (
	veggieCategory  = "Veggiedag"
	genericCategory = "Menu"
)

// Stats counts the repairs made while extracting one document.
type Stats struct {
	Days              int
	Items             int
	FallbackDays      int
	DroppedDays       int
	DroppedRows       int
	// UnknownCategories counts kept items that got the default color.
	UnknownCategories int
}

// TableExtractor reads day blocks holding a two-column category/dish table.
// It holds no state between calls and is safe for concurrent use.
type TableExtractor struct {
	Locale       dates.Locale
	Palette      Palette
	Selectors    Selectors
	VeggieMarker string
	// Log should carry the restaurant identity; diagnostics are added to it.
	Log zerolog.Logger
}

// Extract implements Extractor.
func (e TableExtractor) Extract(doc *goquery.Document) []menu.DayMenu {
	days, _ := e.ExtractWithStats(doc)
	return days
}

// ExtractWithStats returns the day menus in document order together with
// counts of the fallbacks applied. Days whose date cannot be determined are
// left out.
func (e TableExtractor) ExtractWithStats(doc *goquery.Document) ([]menu.DayMenu, Stats) {
	var stats Stats
	days := []menu.DayMenu{}
	if doc == nil {
		return days, stats
	}
	sel := e.Selectors.withDefaults()
	palette := e.Palette
	if palette.fallback == "" {
		palette = DefaultPalette()
	}
	marker := e.VeggieMarker
	if marker == "" {
		marker = DefaultVeggieMarker
	}
	locale := e.Locale
	if locale.Code == "" {
		locale = dates.Dutch
	}
	resolver := dates.Resolver{Locale: locale, Log: e.Log}

	var produced []menu.Date
	doc.Find(sel.Day).Each(func(_ int, block *goquery.Selection) {
		raw := normalizeText(block.Find(sel.Date).First().Text())
		res := resolver.Resolve(raw, produced)
		switch res.Outcome {
		case dates.Unresolved:
			stats.DroppedDays++
			return
		case dates.Fallback:
			stats.FallbackDays++
		}

		items := make([]menu.MenuItem, 0, 8)
		block.Find(sel.Rows).Each(func(_ int, tr *goquery.Selection) {
			row := e.classifyRow(tr, sel, palette, marker, res.Date)
			if row.outcome == rowDropped {
				stats.DroppedRows++
				return
			}
			if row.unknownCategory {
				stats.UnknownCategories++
			}
			items = append(items, row.item)
		})
		days = append(days, menu.NewDayMenu(res.Date, items))
		produced = append(produced, res.Date)
		stats.Items += len(items)
	})
	stats.Days = len(days)
	return days, stats
}

type rowOutcome int

const (
	rowKept rowOutcome = iota
	rowDropped
)

// rowResult is the single keep/drop decision for a table row.
type rowResult struct {
	item            menu.MenuItem
	outcome         rowOutcome
	unknownCategory bool
}

func (e TableExtractor) classifyRow(tr *goquery.Selection, sel Selectors, palette Palette, marker string, date menu.Date) rowResult {
	cells := tr.Children()
	first := cells.Eq(0)
	name := normalizeText(first.Text())
	dish := normalizeText(cells.Eq(1).Text())

	// Some rows carry their category only as an icon.
	if name == "" {
		name = genericCategory
		if src, ok := first.Find(sel.Image).First().Attr("src"); ok && strings.Contains(src, marker) {
			name = veggieCategory
		}
	}

	color, known := palette.Color(name)
	if !known {
		e.Log.Warn().
			Err(ErrUnknownCategory).
			Str("category", name).
			Stringer("date", date).
			Str("color", color).
			Msg("no color for menu category; using default")
	}
	res := rowResult{
		item:            menu.MenuItem{Name: name, Dish: dish, Color: color},
		unknownCategory: !known,
	}
	if dish == "" {
		res.outcome = rowDropped
	}
	return res
}

// normalizeText turns non-breaking spaces into plain spaces and trims.
func normalizeText(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\u00a0", " "))
}
