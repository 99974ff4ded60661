package menu

import (
	"encoding/json"
	"testing"
	"time"
)

func TestNewDate_RejectsImpossibleDays(t *testing.T) {
	if _, ok := NewDate(2024, time.February, 30); ok {
		t.Fatalf("expected 2024-02-30 to be rejected")
	}
	if _, ok := NewDate(2023, time.February, 29); ok {
		t.Fatalf("expected 2023-02-29 to be rejected")
	}
	d, ok := NewDate(2024, time.February, 29)
	if !ok || d.String() != "2024-02-29" {
		t.Fatalf("leap day: got %v ok=%v", d, ok)
	}
}

func TestAddDays_Rollover(t *testing.T) {
	cases := []struct {
		in   Date
		want string
	}{
		{Date{2024, time.September, 30}, "2024-10-01"},
		{Date{2024, time.December, 31}, "2025-01-01"},
		{Date{2024, time.February, 28}, "2024-02-29"},
		{Date{2023, time.February, 28}, "2023-03-01"},
	}
	for _, c := range cases {
		if got := c.in.AddDays(1).String(); got != c.want {
			t.Fatalf("%s + 1 = %s, want %s", c.in, got, c.want)
		}
	}
}

func TestDayMenu_JSONShape(t *testing.T) {
	d := NewDayMenu(Date{2024, time.September, 29}, nil)
	b, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"date":"2024-09-29","menus":[]}` {
		t.Fatalf("unexpected JSON: %s", b)
	}
}

func TestRestaurantMenu_DocumentNeverNull(t *testing.T) {
	r := RestaurantMenu{Identity: Identity{Name: "Jette"}, Days: []DayMenu{{Date: Date{2024, time.May, 2}}}}
	b, err := json.Marshal(r.Document())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `[{"date":"2024-05-02","menus":[]}]` {
		t.Fatalf("expected empty menus array, got %s", b)
	}
	b, err = json.Marshal(RestaurantMenu{}.Document())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != "[]" {
		t.Fatalf("expected [], got %s", b)
	}
}

func TestRestaurantMenu_PreservesNonASCII(t *testing.T) {
	r := RestaurantMenu{Days: []DayMenu{NewDayMenu(Date{2024, time.October, 1}, []MenuItem{
		{Name: "Soep", Dish: "Crème de légumes", Color: "#fdb85b"},
	})}}
	b, err := json.Marshal(r.Document())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `[{"date":"2024-10-01","menus":[{"name":"Soep","dish":"Crème de légumes","color":"#fdb85b"}]}]`
	if string(b) != want {
		t.Fatalf("got %s\nwant %s", b, want)
	}
	var back []DayMenu
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back[0].Date != (Date{2024, time.October, 1}) {
		t.Fatalf("date round trip: got %v", back[0].Date)
	}
}

func TestIdentity_FileName(t *testing.T) {
	cases := map[string]string{
		"Etterbeek":       "etterbeek.json",
		"Jette":           "jette.json",
		"Etterbeek EN":    "etterbeek-en.json",
		"  Campus / Main ": "campus-main.json",
		"":                "restaurant.json",
	}
	for name, want := range cases {
		if got := (Identity{Name: name}).FileName(); got != want {
			t.Fatalf("FileName(%q)=%q, want %q", name, got, want)
		}
	}
}
