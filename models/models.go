package models

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// StudentCount is the fixed number of roster slots per class
const StudentCount = 100

// DateLayout is the ISO calendar date format used for record keys
const DateLayout = "2006-01-02"

// AttendanceMark is the attendance state of one slot on one date.
// The string values are the ones persisted inside a DayRecord.
type AttendanceMark string

const (
	Present     AttendanceMark = "1"
	HalfPresent AttendanceMark = "0.5"
	Absent      AttendanceMark = "0"
	// NoMark means every box of a row is cleared. It is never persisted.
	NoMark AttendanceMark = ""
)

const (
	// RenderDefaultMark is shown for a slot with no stored mark on the rendered date.
	RenderDefaultMark = Present
	// CollectDefaultMark is stored for a row that has no box selected when collected.
	CollectDefaultMark = Absent
)

// Marks lists the selectable marks in grid column order
var Marks = []AttendanceMark{Present, HalfPresent, Absent}

// ParseMark accepts either the stored value or a readable alias
func ParseMark(s string) (AttendanceMark, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "present":
		return Present, nil
	case "0.5", "half", "halfpresent", "half_present":
		return HalfPresent, nil
	case "0", "absent":
		return Absent, nil
	}
	return NoMark, errors.Errorf("unknown attendance mark %q", s)
}

// Valid reports whether m is one of the three persisted marks
func (m AttendanceMark) Valid() bool {
	return m == Present || m == HalfPresent || m == Absent
}

// Weight is the fraction of a day the mark counts for
func (m AttendanceMark) Weight() float64 {
	switch m {
	case Present:
		return 1.0
	case HalfPresent:
		return 0.5
	}
	return 0.0
}

// Label is the status text written to exported spreadsheets
func (m AttendanceMark) Label() string {
	switch m {
	case Present:
		return "100% Present"
	case HalfPresent:
		return "50% Present"
	}
	return "Absent"
}

// DayRecord maps slot number to the mark recorded for one date
type DayRecord map[int]AttendanceMark

// Total sums the weights of every mark in the record
func (d DayRecord) Total() float64 {
	var total float64
	for _, m := range d {
		total += m.Weight()
	}
	return total
}

// ClassRecord is everything persisted for one class
type ClassRecord struct {
	Students map[int]string       `json:"students"` // slot -> neutralized display name
	Records  map[string]DayRecord `json:"records"`  // YYYY-MM-DD -> marks
}

// NewClassRecord returns an empty record with both maps allocated
func NewClassRecord() ClassRecord {
	return ClassRecord{
		Students: map[int]string{},
		Records:  map[string]DayRecord{},
	}
}

// Normalize replaces nil maps so callers can write into the record
func (r *ClassRecord) Normalize() {
	if r.Students == nil {
		r.Students = map[int]string{}
	}
	if r.Records == nil {
		r.Records = map[string]DayRecord{}
	}
	for date, day := range r.Records {
		if day == nil {
			r.Records[date] = DayRecord{}
		}
	}
}

// Validate checks slot ranges, date keys and mark values
func (r ClassRecord) Validate() error {
	for slot := range r.Students {
		if !ValidSlot(slot) {
			return errors.Errorf("student slot %d out of range", slot)
		}
	}
	for date, day := range r.Records {
		if _, err := ParseDate(date); err != nil {
			return err
		}
		for slot, mark := range day {
			if !ValidSlot(slot) {
				return errors.Errorf("record %s: slot %d out of range", date, slot)
			}
			if !mark.Valid() {
				return errors.Errorf("record %s: slot %d has invalid mark %q", date, slot, string(mark))
			}
		}
	}
	return nil
}

// NameFor returns the stored name for slot or its default
func (r ClassRecord) NameFor(slot int) string {
	if name, ok := r.Students[slot]; ok && name != "" {
		return name
	}
	return DefaultStudentName(slot)
}

// ValidSlot reports whether slot is within 1..StudentCount
func ValidSlot(slot int) bool {
	return slot >= 1 && slot <= StudentCount
}

// DefaultStudentName is the placeholder shown for a slot without a name
func DefaultStudentName(slot int) string {
	return fmt.Sprintf("Student %d", slot)
}

// ParseDate validates an ISO YYYY-MM-DD date string
func ParseDate(date string) (time.Time, error) {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "invalid date %q", date)
	}
	return t, nil
}

// FormatDate renders an ISO date the long way, e.g. "October 19, 2026".
// Unparseable input is returned as is.
func FormatDate(date string) string {
	t, err := ParseDate(date)
	if err != nil {
		return date
	}
	return t.Format("January 2, 2006")
}

// NeutralizeName turns fresh user input into a name that is safe to store and
// embed in markup. Input is taken literally; only stored names go through PlainName.
func NeutralizeName(raw string) string {
	plain := strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, strings.TrimSpace(raw))
	return html.EscapeString(plain)
}

// PlainName is the literal text a neutralized name stands for
func PlainName(name string) string {
	return html.UnescapeString(name)
}
