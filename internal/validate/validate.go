// Package validate holds the pure field rules behind the add wizard.
// Every validator returns a pass flag plus a human-readable reason shown to
// the user verbatim; none of them touch the store.
package validate

import (
	"regexp"
	"strings"
	"time"
)

const maxFIOLen = 200

var (
	fioRe       = regexp.MustCompile(`^[а-яА-ЯёЁa-zA-Z\s\-]+$`)
	birthRe     = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	nonDigitsRe = regexp.MustCompile(`\D`)
)

// FIO validates a full name: at least surname and name, letters of the two
// supported alphabets, spaces and hyphens only.
func FIO(raw string) (bool, string) {
	fio := strings.TrimSpace(raw)
	if fio == "" {
		return false, "ФИО не может быть пустым"
	}
	if len(strings.Fields(fio)) < 2 {
		return false, "ФИО должно содержать минимум фамилию и имя"
	}
	if len([]rune(fio)) > maxFIOLen {
		return false, "ФИО слишком длинное (максимум 200 символов)"
	}
	if !fioRe.MatchString(fio) {
		return false, "ФИО содержит недопустимые символы"
	}
	return true, ""
}

// Phone validates a phone number in any formatting: after stripping
// non-digits it must be 11 digits starting with 7 or 8.
func Phone(raw string) (bool, string) {
	digits := DigitsOnly(raw)
	if digits == "" {
		return false, "Телефон должен содержать цифры"
	}
	if len(digits) != 11 {
		return false, "Телефон должен содержать 11 цифр"
	}
	if digits[0] != '7' && digits[0] != '8' {
		return false, "Телефон должен начинаться с 7 или 8"
	}
	return true, ""
}

// BirthDate validates a YYYY-MM-DD calendar date between 1900 and the
// current year. The pattern check runs before the parse so that ambiguous
// partial dates do not slip through time.Parse.
func BirthDate(raw string) (bool, string) {
	date := strings.TrimSpace(raw)
	if !birthRe.MatchString(date) {
		return false, "Неверный формат даты. Используйте: YYYY-MM-DD"
	}
	parsed, err := time.Parse("2006-01-02", date)
	if err != nil {
		return false, "Неверная дата. Проверьте правильность ввода"
	}
	if year := parsed.Year(); year > time.Now().Year() {
		return false, "Дата не может быть в будущем"
	} else if year < 1900 {
		return false, "Дата слишком старая (минимум 1900 год)"
	}
	return true, ""
}

// DigitsOnly strips everything but digits.
func DigitsOnly(s string) string {
	return nonDigitsRe.ReplaceAllString(s, "")
}

// NormalizePhone brings a phone to the canonical 11-digit form with a
// leading 7: a leading 8 is replaced, a 10-digit number is prefixed.
// Inputs that do not reduce to a phone shape come back unchanged.
func NormalizePhone(raw string) string {
	digits := DigitsOnly(raw)
	switch {
	case len(digits) == 11 && digits[0] == '8':
		return "7" + digits[1:]
	case len(digits) == 11:
		return digits
	case len(digits) == 10:
		return "7" + digits
	default:
		return digits
	}
}
