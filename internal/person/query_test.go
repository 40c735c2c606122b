package person

import "testing"

func TestClassifyQueryText(t *testing.T) {
	q := ClassifyQuery("  Иванов  ")
	if q.Raw != "Иванов" || q.Text != "иванов" {
		t.Fatalf("unexpected classification: %+v", q)
	}
	if q.Numeric {
		t.Fatal("name query classified as numeric")
	}
}

func TestClassifyQueryNumeric(t *testing.T) {
	q := ClassifyQuery("8 (999) 123-45-67")
	if !q.Numeric {
		t.Fatalf("phone-shaped query not numeric: %+v", q)
	}
	if q.Phone != "79991234567" {
		t.Fatalf("unexpected normalized phone: %q", q.Phone)
	}
}

func TestClassifyQueryShortDigitsStayText(t *testing.T) {
	// A house number or year is not a phone.
	if q := ClassifyQuery("дом 23"); q.Numeric {
		t.Fatalf("short digit run classified as numeric: %+v", q)
	}
}

func TestMatches(t *testing.T) {
	p := Person{
		FIO:       "Иванов Иван Иванович",
		Phone:     "79991234567",
		Birth:     "1990-05-20",
		CarNumber: "A123AA123",
		Address:   "г. Москва, ул. Ленина, д. 1",
		Passport:  "1234 567890",
	}
	matching := []string{
		"Иванов",
		"иванов",          // case-insensitive on name
		"a123aa",          // case-insensitive on car plate
		"ленина",          // address
		"79991234567",     // exact phone
		"89991234567",     // raw 8-form normalizes to the stored 7-form
		"8 999 123 45 67", // formatted phone
		"1234 567890",     // passport, numeric-ish
	}
	for _, raw := range matching {
		if !ClassifyQuery(raw).Matches(p) {
			t.Fatalf("query %q did not match", raw)
		}
	}
	nonMatching := []string{"Петров", "70000000000", ""}
	for _, raw := range nonMatching {
		if ClassifyQuery(raw).Matches(p) {
			t.Fatalf("query %q unexpectedly matched", raw)
		}
	}
}
