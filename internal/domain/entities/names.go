package entities

import (
	"strconv"
	"strings"
	"time"
)

// dateLayouts are the accepted spellings of genealogical dates, most precise first.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"2006-01",
	"2006",
}

// ParseDate parses a stored date string. Partial dates ("1950", "1950-04")
// resolve to the first day of the period.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// NormalizeName converts a name to lowercase for case-insensitive matching.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// FullName returns "First Last", with the maiden name appended when present.
func (p *Person) FullName() string {
	name := strings.TrimSpace(p.FirstName + " " + p.LastName)
	if p.MaidenName != "" {
		name += " (née " + p.MaidenName + ")"
	}
	return name
}

// LifeSpan renders the birth and death years, e.g. "b. 1950" or "1950 - 2010".
func (p *Person) LifeSpan() string {
	birth := yearOf(p.BirthDate)
	death := yearOf(p.DeathDate)

	if p.IsLiving {
		if birth != "" {
			return "b. " + birth
		}
		return ""
	}

	switch {
	case birth != "" && death != "":
		return birth + " - " + death
	case birth != "":
		return "b. " + birth
	case death != "":
		return "d. " + death
	}
	return ""
}

// Age returns the age in whole years at death, or at now for the living.
// ok is false when the birth date is unknown.
func (p *Person) Age(now time.Time) (age int, ok bool) {
	birth, ok := ParseDate(p.BirthDate)
	if !ok {
		return 0, false
	}

	end := now
	if death, hasDeath := ParseDate(p.DeathDate); hasDeath {
		end = death
	}

	age = end.Year() - birth.Year()
	if end.Month() < birth.Month() || (end.Month() == birth.Month() && end.Day() < birth.Day()) {
		age--
	}
	return age, true
}

func yearOf(s string) string {
	t, ok := ParseDate(s)
	if !ok {
		return ""
	}
	return strconv.Itoa(t.Year())
}
