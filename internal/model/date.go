// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data — similar to classes in other languages,
// but without inheritance. Go favours composition over inheritance.
package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// dateLayout is the ISO-8601 calendar date form, e.g. "2025-06-05".
// This is the only wire and storage representation of a Date.
const dateLayout = "2006-01-02"

// Date is a civil calendar date — a day on the wall calendar, with no time
// of day and no time zone attached.
//
// WHY NOT time.Time?
// time.Time carries a clock and a location, which is exactly what a poll over
// "days of the month" must NOT care about: 2025-06-05 is the same candidate
// date whether the voter is in Tokyo or Lisbon. A small comparable struct
// sidesteps all the midnight/UTC normalisation bugs, and can be used directly
// as a map key for selection sets.
type Date struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
	Day   int        `json:"day"`
}

// NewDate builds a Date. Arguments are normalised the same way time.Date
// normalises them (month 13 rolls into the next year, day 0 into the previous
// month), so a Date built from valid calendar inputs is always valid.
func NewDate(year int, month time.Month, day int) Date {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// DateOf extracts the calendar date from a time.Time, in that value's location.
func DateOf(t time.Time) Date {
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// ParseDate parses an ISO "YYYY-MM-DD" string.
// Rejects anything else — including valid timestamps with a time component —
// because callback payloads are untrusted input.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("model: parsing date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// String returns the ISO form, "2025-06-05".
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Compare orders dates chronologically: negative if d is before other,
// zero if equal, positive if after. Shaped for slices.SortFunc.
func (d Date) Compare(other Date) int {
	switch {
	case d.Year != other.Year:
		return d.Year - other.Year
	case d.Month != other.Month:
		return int(d.Month) - int(other.Month)
	default:
		return d.Day - other.Day
	}
}

// IsZero reports whether d is the zero value (no date at all).
func (d Date) IsZero() bool {
	return d == Date{}
}

// MarshalJSON encodes the date as its ISO string, not as a struct.
// The API and the database agree on one representation.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON decodes an ISO date string.
func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("model: date must be a string: %w", err)
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MonthDates returns every day of `today`'s calendar month, ascending from
// the 1st through the last day. Pure function of the input — no clock access.
//
// LAST DAY OF MONTH TRICK:
// time.Date normalises out-of-range days, so day 0 of month+1 is the last
// day of the current month. That one call handles 28/29/30/31 and leap years
// via the standard library's Gregorian rules — no month-length table needed.
func MonthDates(today time.Time) []Date {
	year, month := today.Year(), today.Month()
	lastDay := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()

	dates := make([]Date, 0, lastDay)
	for day := 1; day <= lastDay; day++ {
		dates = append(dates, Date{Year: year, Month: month, Day: day})
	}
	return dates
}
