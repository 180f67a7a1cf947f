package attendance

import (
	"fmt"

	"github.com/pkg/errors"

	"attendance-server-go/db"
	"attendance-server-go/models"
)

// Level is the severity of a notice
type Level string

const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelError   Level = "error"
)

// Notice is a short message for the person using the tracker
type Notice struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

// UnexpectedNotice is shown when a fault escapes every operation boundary
var UnexpectedNotice = Notice{LevelError, "An unexpected error occurred. Please refresh the page."}

// NoticeFor converts an operation error into the message to show
func NoticeFor(err error) Notice {
	switch {
	case err == nil:
		return Notice{LevelSuccess, "Done"}
	case errors.Is(err, db.ErrQuotaExceeded):
		return Notice{LevelError, "Storage is full. Please clear some old records."}
	case errors.Is(err, db.ErrStorage):
		return Notice{LevelError, "Failed to save attendance. Please try again."}
	case errors.Is(err, ErrNoClassSelected):
		return Notice{LevelError, "Please select a class first"}
	case errors.Is(err, ErrNoDateSelected):
		return Notice{LevelError, "Please select a date"}
	case errors.Is(err, ErrInvalidDate):
		return Notice{LevelError, "Please enter a date as YYYY-MM-DD"}
	case errors.Is(err, ErrInvalidSlot):
		return Notice{LevelError, fmt.Sprintf("Register number must be between 1 and %d", models.StudentCount)}
	case errors.Is(err, ErrInvalidMark):
		return Notice{LevelError, "Unknown attendance mark"}
	case errors.Is(err, ErrEmptyCollection):
		return Notice{LevelError, "No attendance data to save"}
	case errors.Is(err, ErrUnsavedChanges):
		return Notice{LevelError, "You have unsaved changes. Save or discard them first."}
	case errors.Is(err, ErrExport):
		return Notice{LevelError, "Failed to export Excel file. Please try again."}
	}
	return UnexpectedNotice
}

// SavedNotice confirms a successful save
func SavedNotice(date string) Notice {
	return Notice{LevelSuccess, "Attendance saved successfully for " + models.FormatDate(date)}
}

// LoadedNotice confirms a date switch
func LoadedNotice(date string) Notice {
	return Notice{LevelInfo, "Loaded attendance for " + models.FormatDate(date)}
}
