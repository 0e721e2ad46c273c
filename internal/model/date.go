package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// DateLayout is the ISO 8601 calendar date layout used on the wire and in the sheet.
const DateLayout = "2006-01-02"

// Date is a calendar date without time of day. The zero value means "missing".
type Date struct {
	t time.Time
}

// NewDate returns the calendar date y-m-d.
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar date of t as observed in t's location.
func DateOf(t time.Time) Date {
	if t.IsZero() {
		return Date{}
	}
	y, m, d := t.Date()
	return NewDate(y, m, d)
}

// ParseDate parses an ISO date. Empty input yields the zero Date.
func ParseDate(s string) (Date, error) {
	if s == "" {
		return Date{}, nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, err
	}
	return Date{t: t}, nil
}

func (d Date) IsZero() bool { return d.t.IsZero() }

func (d Date) Year() int { return d.t.Year() }

// Time returns midnight UTC of the date.
func (d Date) Time() time.Time { return d.t }

func (d Date) Before(o Date) bool { return d.t.Before(o.t) }

func (d Date) After(o Date) bool { return d.t.After(o.t) }

func (d Date) Equal(o Date) bool { return d.t.Equal(o.t) }

// AddDays returns the date n days later (earlier for negative n).
func (d Date) AddDays(n int) Date {
	if d.IsZero() {
		return d
	}
	return Date{t: d.t.AddDate(0, 0, n)}
}

// String returns YYYY-MM-DD, or "" for a missing date.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(DateLayout)
}

// DayMonth formats the date as dd/mm, the stamp used in issue log entries.
func (d Date) DayMonth() string {
	return d.t.Format("02/01")
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	*d = parsed
	return nil
}
