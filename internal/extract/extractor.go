package extract

import (
	"github.com/PuerkitoBio/goquery"

	"github.com/hyperifyio/vubresto/internal/menu"
)

// Extractor turns a parsed menu page into day menus.
// Implementations must be deterministic: the same document always yields
// the same records.
type Extractor interface {
	Extract(doc *goquery.Document) []menu.DayMenu
}

var _ Extractor = TableExtractor{}
