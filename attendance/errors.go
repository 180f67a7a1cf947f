package attendance

import "github.com/pkg/errors"

var (
	ErrNoClassSelected = errors.New("no class selected")
	ErrNoDateSelected  = errors.New("no date selected")
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidSlot     = errors.New("invalid slot")
	ErrInvalidMark     = errors.New("invalid attendance mark")
	ErrEmptyCollection = errors.New("no attendance data to save")
	ErrUnsavedChanges  = errors.New("unsaved changes")
	ErrExport          = errors.New("export failed")
)
