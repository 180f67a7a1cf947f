// Package export writes attendance snapshots as xlsx workbooks.
package export

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
)

// SheetName is the single sheet every workbook carries
const SheetName = "Attendance"

// Header is the first row of the sheet
var Header = []string{"Register No.", "Student Name", "Attendance Status"}

var columnWidths = []float64{15, 30, 18}

// Row is one exported student line
type Row struct {
	Slot   int
	Name   string // literal text, not markup
	Status string
}

// FileName is the download name for a class/date snapshot
func FileName(className, date string) string {
	return fmt.Sprintf("%s_Attendance_%s.xlsx", className, date)
}

// Workbook renders rows into an in-memory xlsx document
func Workbook(rows []Row) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	// NewFile starts with "Sheet1"
	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return nil, errors.Wrap(err, "naming sheet")
	}

	if err := f.SetSheetRow(SheetName, "A1", &Header); err != nil {
		return nil, errors.Wrap(err, "writing header")
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, errors.Wrap(err, "addressing row")
		}
		values := []interface{}{row.Slot, row.Name, row.Status}
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return nil, errors.Wrapf(err, "writing row for slot %d", row.Slot)
		}
	}
	for i, width := range columnWidths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, errors.Wrap(err, "addressing column")
		}
		if err := f.SetColWidth(SheetName, col, col, width); err != nil {
			return nil, errors.Wrap(err, "setting column width")
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, errors.Wrap(err, "encoding workbook")
	}
	return buf, nil
}

// Write renders rows and copies the finished workbook to w.
// Nothing is written to w if rendering fails.
func Write(w io.Writer, rows []Row) error {
	buf, err := Workbook(rows)
	if err != nil {
		return err
	}
	_, err = buf.WriteTo(w)
	return errors.Wrap(err, "writing workbook")
}

// SaveFile writes the workbook into dir under FileName(className, date).
// The file appears only once it is complete.
func SaveFile(dir, className, date string, rows []Row) (string, error) {
	buf, err := Workbook(rows)
	if err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(dir, ".attendance-*.xlsx")
	if err != nil {
		return "", errors.Wrap(err, "creating temp file")
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := buf.WriteTo(tmp); err != nil {
		tmp.Close()
		cleanup()
		return "", errors.Wrap(err, "writing temp file")
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", errors.Wrap(err, "closing temp file")
	}

	path := filepath.Join(dir, strings.NewReplacer("/", "_", "\\", "_").Replace(FileName(className, date)))
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return "", errors.Wrapf(err, "renaming to %s", path)
	}
	return path, nil
}
