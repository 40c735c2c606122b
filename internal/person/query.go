package person

import (
	"strings"

	"kartoteka.org/internal/validate"
)

// numericQueryDigits is the smallest digit-only projection that makes a query
// numeric-ish: shorter runs of digits (house numbers, years) still go through
// the text fields.
const numericQueryDigits = 7

// Query is a search query classified once so both store adapters match the
// same way.
type Query struct {
	Raw    string // trimmed original input
	Text   string // lowercased form for case-insensitive matching
	Digits string // digit-only projection of the input

	// Numeric marks phone/passport-shaped queries. Phone then holds the
	// normalized 11-digit form, which covers partially formatted numbers
	// like "8 (999) 123-45-67".
	Numeric bool
	Phone   string
}

// ClassifyQuery normalizes raw input into a Query.
func ClassifyQuery(raw string) Query {
	q := Query{Raw: strings.TrimSpace(raw)}
	q.Text = strings.ToLower(q.Raw)
	q.Digits = validate.DigitsOnly(q.Raw)
	if len(q.Digits) >= numericQueryDigits {
		q.Numeric = true
		q.Phone = validate.NormalizePhone(q.Raw)
	}
	return q
}

// Matches implements the matching contract for the in-memory adapter; the
// Postgres adapter expresses the same rules in SQL.
func (q Query) Matches(p Person) bool {
	if q.Raw == "" {
		return false
	}
	if q.Numeric {
		return strings.Contains(p.Phone, q.Phone) ||
			strings.Contains(p.Phone, q.Raw) ||
			strings.Contains(p.Passport, q.Phone) ||
			strings.Contains(p.Passport, q.Raw)
	}
	return strings.Contains(strings.ToLower(p.FIO), q.Text) ||
		strings.Contains(strings.ToLower(p.CarNumber), q.Text) ||
		strings.Contains(strings.ToLower(p.Address), q.Text) ||
		strings.Contains(p.Phone, q.Raw) ||
		strings.Contains(p.Passport, q.Raw)
}
