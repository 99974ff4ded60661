package menu

import (
	"strings"
	"unicode"
)

// MenuItem is one classified row of a day's menu table.
type MenuItem struct {
	Name  string `json:"name"`
	Dish  string `json:"dish"`
	Color string `json:"color"`
}

// DayMenu groups the items served on a single calendar day. Menus keeps the
// row order of the source table and is never nil once built by NewDayMenu.
type DayMenu struct {
	Date  Date       `json:"date"`
	Menus []MenuItem `json:"menus"`
}

// NewDayMenu copies items so the returned value does not share backing
// storage with the caller.
func NewDayMenu(date Date, items []MenuItem) DayMenu {
	menus := make([]MenuItem, len(items))
	copy(menus, items)
	return DayMenu{Date: date, Menus: menus}
}

// Identity names a restaurant source. Locale selects the month-name table
// used to read its date labels.
type Identity struct {
	Name   string `json:"name" yaml:"name"`
	Locale string `json:"locale" yaml:"locale"`
}

func (id Identity) String() string {
	if id.Locale == "" {
		return id.Name
	}
	return id.Name + " (" + id.Locale + ")"
}

// FileName is the persisted document name for the identity: the slugified
// restaurant name with a .json extension.
func (id Identity) FileName() string {
	return Slugify(id.Name) + ".json"
}

// RestaurantMenu is the unit written once per run for an identity.
type RestaurantMenu struct {
	Identity Identity
	Days     []DayMenu
}

// Document returns the persisted form: the day list, never nil, with every
// day's menus never nil. The identity is carried by the file name.
func (r RestaurantMenu) Document() []DayMenu {
	out := make([]DayMenu, 0, len(r.Days))
	for _, d := range r.Days {
		if d.Menus == nil {
			d.Menus = []MenuItem{}
		}
		out = append(out, d)
	}
	return out
}

// ItemCount returns the number of menu items across all days.
func (r RestaurantMenu) ItemCount() int {
	n := 0
	for _, d := range r.Days {
		n += len(d.Menus)
	}
	return n
}

// Slugify lowercases s and replaces runs of anything other than letters and
// digits with a single hyphen.
func Slugify(s string) string {
	var b strings.Builder
	lastHyphen := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastHyphen = false
			continue
		}
		if !lastHyphen && b.Len() > 0 {
			b.WriteByte('-')
			lastHyphen = true
		}
	}
	out := strings.TrimSuffix(b.String(), "-")
	if out == "" {
		return "restaurant"
	}
	return out
}
