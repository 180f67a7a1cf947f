package attendance

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/pkg/errors"

	"attendance-server-go/export"
	"attendance-server-go/models"
)

// ClassRepository is the persistence the session needs
type ClassRepository interface {
	Load(ctx context.Context, className string) models.ClassRecord
	LoadForUpdate(ctx context.Context, className string) (models.ClassRecord, error)
	Save(ctx context.Context, className string, rec models.ClassRecord) error
}

// State is the session's position in its lifecycle
type State int

const (
	Idle State = iota
	Open
)

func (s State) String() string {
	if s == Open {
		return "open"
	}
	return "idle"
}

// Status is a snapshot of the session for presentation
type Status struct {
	State     string  `json:"state"`
	ClassName string  `json:"className,omitempty"`
	Date      string  `json:"date,omitempty"`
	Dirty     bool    `json:"dirty"`
	Total     float64 `json:"total"`
}

// Option configures a Session
type Option func(*Session)

// WithClock sets the source of "today"
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithHiddenRowPolicy sets how filtered rows are collected
func WithHiddenRowPolicy(p HiddenRowPolicy) Option {
	return func(s *Session) { s.policy = p }
}

// WithRowListener binds a listener to every row change of the session's view
func WithRowListener(l RowListener) Option {
	return func(s *Session) { s.listener = l }
}

// Session tracks the single class/date being edited. It is not safe for
// concurrent use; callers serialize access the way one UI thread would.
type Session struct {
	repo      ClassRepository
	view      *RosterView
	state     State
	className string
	date      string

	now      func() time.Time
	policy   HiddenRowPolicy
	listener RowListener
}

// NewSession starts Idle
func NewSession(repo ClassRepository, opts ...Option) *Session {
	s := &Session{
		repo: repo,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.view = NewRosterView(s.policy, s.listener)
	return s
}

func (s *Session) today() string {
	return s.now().Format(models.DateLayout)
}

// State reports Idle or Open
func (s *Session) State() State { return s.state }

// ClassName is the open class, empty when Idle
func (s *Session) ClassName() string { return s.className }

// Date is the open date, empty when Idle
func (s *Session) Date() string { return s.date }

// HasUnsavedChanges reports the dirty flag of the open view
func (s *Session) HasUnsavedChanges() bool {
	return s.state == Open && s.view.Dirty()
}

// Status snapshots the session
func (s *Session) Status() Status {
	st := Status{State: s.state.String(), ClassName: s.className, Date: s.date}
	if s.state == Open {
		st.Dirty = s.view.Dirty()
		st.Total = s.view.Total()
	}
	return st
}

func (s *Session) requireOpen() error {
	if s.state != Open {
		return ErrNoClassSelected
	}
	return nil
}

func (s *Session) requireClean() error {
	if s.HasUnsavedChanges() {
		return errors.Wrapf(ErrUnsavedChanges, "%s on %s", s.className, s.date)
	}
	return nil
}

// Discard drops pending edits by re-rendering from storage. It is how a caller
// confirms leaving a dirty view.
func (s *Session) Discard(ctx context.Context) {
	if s.state != Open {
		return
	}
	s.render(ctx)
}

func (s *Session) render(ctx context.Context) []Row {
	rec := s.repo.Load(ctx, s.className)
	return s.view.Render(rec, s.date)
}

// SelectClass opens name at today's date
func (s *Session) SelectClass(ctx context.Context, name string) ([]Row, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNoClassSelected
	}
	if err := s.requireClean(); err != nil {
		return nil, err
	}

	s.state = Open
	s.className = name
	s.date = s.today()
	slog.Debug("class opened", "class", name, "date", s.date)
	return s.render(ctx), nil
}

// SelectDate re-renders the open class at date
func (s *Session) SelectDate(ctx context.Context, date string) ([]Row, error) {
	if err := s.requireOpen(); err != nil {
		return nil, err
	}
	date = strings.TrimSpace(date)
	if date == "" {
		return nil, ErrNoDateSelected
	}
	if _, err := models.ParseDate(date); err != nil {
		return nil, errors.Wrap(ErrInvalidDate, err.Error())
	}
	if err := s.requireClean(); err != nil {
		return nil, err
	}

	s.date = date
	return s.render(ctx), nil
}

// Rows returns the rendered rows of the open view
func (s *Session) Rows() ([]Row, error) {
	if err := s.requireOpen(); err != nil {
		return nil, err
	}
	return s.view.Rows(), nil
}

// ToggleMark forwards a mark box change to the view
func (s *Session) ToggleMark(slot int, mark models.AttendanceMark, checked bool) (Row, error) {
	if err := s.requireOpen(); err != nil {
		return Row{}, err
	}
	return s.view.ToggleMark(slot, mark, checked)
}

// CommitName forwards a finished name edit to the view
func (s *Session) CommitName(slot int, name string) (Row, error) {
	if err := s.requireOpen(); err != nil {
		return Row{}, err
	}
	return s.view.CommitName(slot, name)
}

// SetFilter applies a search query and returns the visible row count
func (s *Session) SetFilter(query string) (int, error) {
	if err := s.requireOpen(); err != nil {
		return 0, err
	}
	return s.view.SetFilter(query), nil
}

// Save persists the open date's marks, and names if any were edited. The class
// record is reloaded and fully overwritten in this one call. On failure the view
// keeps its edits and stays dirty.
func (s *Session) Save(ctx context.Context) error {
	if err := s.requireOpen(); err != nil {
		return err
	}
	if s.date == "" {
		return ErrNoDateSelected
	}

	students, day, err := s.view.Collect()
	if err != nil {
		return err
	}

	rec, err := s.repo.LoadForUpdate(ctx, s.className)
	if err != nil {
		slog.Error("reloading class before save failed", "class", s.className, "error", err)
		return err
	}
	if s.view.HasNameEdits() {
		rec.Students = students
	}
	rec.Records[s.date] = day

	if err := s.repo.Save(ctx, s.className, rec); err != nil {
		slog.Error("save attendance failed", "class", s.className, "date", s.date, "error", err)
		return err
	}
	s.view.MarkSaved(rec.Students)
	slog.Info("attendance saved", "class", s.className, "date", s.date, "total", day.Total())
	return nil
}

// Export returns the download name and rows for the open view
func (s *Session) Export() (string, []export.Row, error) {
	if err := s.requireOpen(); err != nil {
		return "", nil, err
	}
	if s.date == "" {
		return "", nil, ErrNoDateSelected
	}
	return export.FileName(s.className, s.date), s.view.ExportRows(), nil
}

// Close returns to Idle
func (s *Session) Close() error {
	if err := s.requireClean(); err != nil {
		return err
	}
	s.state = Idle
	s.className = ""
	s.date = ""
	s.view = NewRosterView(s.policy, s.listener)
	return nil
}
