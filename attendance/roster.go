package attendance

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"attendance-server-go/export"
	"attendance-server-go/models"
)

// HiddenRowPolicy decides whether rows hidden by the search filter take part in
// collection. Save and export always use the same policy.
type HiddenRowPolicy int

const (
	// IncludeHidden treats filtering as presentation only
	IncludeHidden HiddenRowPolicy = iota
	// ExcludeHidden collects visible rows only
	ExcludeHidden
)

// ParseHiddenRowPolicy maps the configuration value onto a policy
func ParseHiddenRowPolicy(s string) (HiddenRowPolicy, error) {
	switch strings.ToLower(s) {
	case "", "include":
		return IncludeHidden, nil
	case "exclude":
		return ExcludeHidden, nil
	}
	return IncludeHidden, errors.Errorf("unknown hidden row policy %q", s)
}

// Row describes one roster slot as currently rendered
type Row struct {
	Slot   int                   `json:"slot"`
	Name   string                `json:"name"`
	Mark   models.AttendanceMark `json:"mark"`
	Hidden bool                  `json:"hidden"`
}

// RowListener is told about every row the view changes
type RowListener func(Row)

// RosterView holds the edit buffer for one class/date. The listener is bound once
// for the view's lifetime; Render only rebuilds the slot table.
type RosterView struct {
	rows     []Row          // index slot-1
	students map[int]string // names as loaded
	staged   map[int]string // committed name edits awaiting save
	filter   string
	dirty    bool
	policy   HiddenRowPolicy
	listener RowListener
}

// NewRosterView creates an empty view. listener may be nil.
func NewRosterView(policy HiddenRowPolicy, listener RowListener) *RosterView {
	return &RosterView{
		policy:   policy,
		listener: listener,
		students: map[int]string{},
		staged:   map[int]string{},
	}
}

// Render replaces the buffer with one row per slot, ascending, for date.
// Slots without a stored mark show RenderDefaultMark. Pending edits are dropped.
func (v *RosterView) Render(rec models.ClassRecord, date string) []Row {
	day := rec.Records[date]

	v.students = make(map[int]string, len(rec.Students))
	for slot, name := range rec.Students {
		v.students[slot] = name
	}
	v.staged = map[int]string{}
	v.dirty = false

	v.rows = make([]Row, models.StudentCount)
	for slot := 1; slot <= models.StudentCount; slot++ {
		mark, ok := day[slot]
		if !ok || !mark.Valid() {
			mark = models.RenderDefaultMark
		}
		v.rows[slot-1] = Row{
			Slot: slot,
			Name: rec.NameFor(slot),
			Mark: mark,
		}
	}
	v.applyFilter()
	return v.Rows()
}

// Rows returns a copy of every rendered row
func (v *RosterView) Rows() []Row {
	out := make([]Row, len(v.rows))
	copy(out, v.rows)
	return out
}

// Dirty reports whether an edit happened since the last render or save
func (v *RosterView) Dirty() bool {
	return v.dirty
}

func (v *RosterView) row(slot int) (*Row, error) {
	if !models.ValidSlot(slot) || len(v.rows) == 0 {
		return nil, errors.Wrapf(ErrInvalidSlot, "slot %d", slot)
	}
	return &v.rows[slot-1], nil
}

func (v *RosterView) changed(r *Row) {
	v.dirty = true
	if v.listener != nil {
		v.listener(*r)
	}
}

// ToggleMark checks or unchecks one mark box of a slot. Checking a box clears
// the other boxes of that row; unchecking the selected box leaves none selected.
func (v *RosterView) ToggleMark(slot int, mark models.AttendanceMark, checked bool) (Row, error) {
	r, err := v.row(slot)
	if err != nil {
		return Row{}, err
	}
	if !mark.Valid() {
		return Row{}, errors.Wrapf(ErrInvalidMark, "%q", string(mark))
	}

	switch {
	case checked && r.Mark != mark:
		r.Mark = mark
	case !checked && r.Mark == mark:
		r.Mark = models.NoMark
	default:
		return *r, nil
	}
	v.changed(r)
	return *r, nil
}

// CommitName applies a finished name edit. Blank input reverts to the default name.
func (v *RosterView) CommitName(slot int, raw string) (Row, error) {
	r, err := v.row(slot)
	if err != nil {
		return Row{}, err
	}

	name := models.NeutralizeName(raw)
	if name == "" {
		name = models.DefaultStudentName(slot)
	}
	if name == r.Name {
		return *r, nil
	}
	r.Name = name
	v.staged[slot] = name
	v.applyFilterTo(r)
	v.changed(r)
	return *r, nil
}

// SetFilter hides rows whose slot and name text does not contain query,
// case-insensitively. It returns the number of visible rows.
func (v *RosterView) SetFilter(query string) int {
	v.filter = strings.ToLower(strings.TrimSpace(query))
	return v.applyFilter()
}

func (v *RosterView) applyFilter() int {
	visible := 0
	for i := range v.rows {
		if !v.applyFilterTo(&v.rows[i]) {
			visible++
		}
	}
	return visible
}

func (v *RosterView) applyFilterTo(r *Row) bool {
	text := strings.ToLower(strconv.Itoa(r.Slot) + " " + models.PlainName(r.Name))
	r.Hidden = v.filter != "" && !strings.Contains(text, v.filter)
	return r.Hidden
}

func (v *RosterView) collectable() []Row {
	rows := make([]Row, 0, len(v.rows))
	for _, r := range v.rows {
		if r.Hidden && v.policy == ExcludeHidden {
			continue
		}
		rows = append(rows, r)
	}
	return rows
}

// Collect turns the buffer into the names and marks to persist. A row with no box
// selected collects as CollectDefaultMark. Names that equal the default are dropped.
func (v *RosterView) Collect() (map[int]string, models.DayRecord, error) {
	rows := v.collectable()
	if len(rows) == 0 {
		return nil, nil, ErrEmptyCollection
	}

	day := make(models.DayRecord, len(rows))
	for _, r := range rows {
		mark := r.Mark
		if !mark.Valid() {
			mark = models.CollectDefaultMark
		}
		day[r.Slot] = mark
	}

	students := make(map[int]string, len(v.students)+len(v.staged))
	for slot, name := range v.students {
		students[slot] = name
	}
	for slot, name := range v.staged {
		if name == models.DefaultStudentName(slot) {
			delete(students, slot)
			continue
		}
		students[slot] = name
	}
	return students, day, nil
}

// HasNameEdits reports whether names were committed since the last render or save
func (v *RosterView) HasNameEdits() bool {
	return len(v.staged) > 0
}

// MarkSaved records that students were persisted and clears the dirty flag
func (v *RosterView) MarkSaved(students map[int]string) {
	v.students = make(map[int]string, len(students))
	for slot, name := range students {
		v.students[slot] = name
	}
	v.staged = map[int]string{}
	v.dirty = false
}

// ExportRows lists the rows the export collaborator receives, using the same
// hidden-row policy and fallback mark as Collect
func (v *RosterView) ExportRows() []export.Row {
	rows := v.collectable()
	out := make([]export.Row, 0, len(rows))
	for _, r := range rows {
		mark := r.Mark
		if !mark.Valid() {
			mark = models.CollectDefaultMark
		}
		out = append(out, export.Row{
			Slot:   r.Slot,
			Name:   models.PlainName(r.Name),
			Status: mark.Label(),
		})
	}
	return out
}

// Total sums the weights of the marks currently shown
func (v *RosterView) Total() float64 {
	var total float64
	for _, r := range v.rows {
		total += r.Mark.Weight()
	}
	return total
}
