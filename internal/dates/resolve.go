package dates

import (
	"errors"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/hyperifyio/vubresto/internal/menu"
)

// ErrUnresolvable marks a day label that could not be parsed and had no
// earlier date in the run to extrapolate from.
var ErrUnresolvable = errors.New("date unresolvable")

// Outcome tags how a Resolution was obtained.
type Outcome int

const (
	// Parsed means the label named an explicit, valid date.
	Parsed Outcome = iota
	// Fallback means the label was unreadable and the date is the previous
	// resolved date plus one day.
	Fallback
	// Unresolved means neither the label nor a previous date could be used.
	Unresolved
)

func (o Outcome) String() string {
	switch o {
	case Parsed:
		return "parsed"
	case Fallback:
		return "fallback"
	case Unresolved:
		return "unresolved"
	}
	return "outcome(" + strconv.Itoa(int(o)) + ")"
}

// Resolution is the result of Resolver.Resolve. Date is only meaningful when
// OK reports true.
type Resolution struct {
	Date    menu.Date
	Outcome Outcome
}

func (r Resolution) OK() bool { return r.Outcome != Unresolved }

// Resolver turns day labels of the form "<weekday> <day> <month> <year>"
// into calendar dates.
type Resolver struct {
	Locale Locale
	// Log receives a diagnostic whenever the label cannot be parsed. The
	// caller is expected to attach the restaurant identity to it.
	Log zerolog.Logger
}

// Resolve parses raw and, when that fails, falls back to the last entry of
// prior plus one day. prior must hold the dates already produced in the
// current run, in output order.
func (r Resolver) Resolve(raw string, prior []menu.Date) Resolution {
	if d, ok := r.parse(raw); ok {
		return Resolution{Date: d, Outcome: Parsed}
	}
	if len(prior) == 0 {
		r.Log.Warn().
			Err(ErrUnresolvable).
			Str("raw", raw).
			Str("outcome", Unresolved.String()).
			Msg("could not read day label and no earlier date to extrapolate from; dropping day")
		return Resolution{Outcome: Unresolved}
	}
	next := prior[len(prior)-1].AddDays(1)
	r.Log.Warn().
		Str("raw", raw).
		Str("outcome", Fallback.String()).
		Stringer("date", next).
		Msg("could not read day label; using previous date plus one day")
	return Resolution{Date: next, Outcome: Fallback}
}

// parse reads "<weekday> <day> <month> <year>"; trailing tokens are ignored.
func (r Resolver) parse(raw string) (menu.Date, bool) {
	fields := strings.Fields(strings.ToLower(normalizeSpace(raw)))
	if len(fields) < 4 {
		return menu.Date{}, false
	}
	// fields[0] is the weekday
	dayTok, monthTok, yearTok := fields[1], fields[2], fields[3]
	month, ok := r.Locale.Month(monthTok)
	if !ok {
		return menu.Date{}, false
	}
	day, err := strconv.Atoi(dayTok)
	if err != nil {
		return menu.Date{}, false
	}
	year, err := strconv.Atoi(yearTok)
	if err != nil {
		return menu.Date{}, false
	}
	return menu.NewDate(year, month, day)
}

func normalizeSpace(s string) string {
	return strings.ReplaceAll(s, "\u00a0", " ")
}
