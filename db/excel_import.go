package db

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"attendance-server-go/models"
)

// ImportResult summarises one roster import
type ImportResult struct {
	Imported int `json:"importedCount"`
	Skipped  int `json:"skippedCount"`
}

// ImportStudentsFromExcel reads slot numbers (column A) and names (column B) from the
// first sheet and merges them into the class's students. Marks are left alone.
func (r *ClassRepository) ImportStudentsFromExcel(ctx context.Context, file io.Reader, className string) (ImportResult, error) {
	var res ImportResult
	if className == "" {
		return res, errors.New("class name is required")
	}

	f, err := excelize.OpenReader(file)
	if err != nil {
		return res, errors.Wrap(err, "failed to open excel file")
	}
	defer func() {
		if err := f.Close(); err != nil {
			slog.Warn("closing excel file failed", "error", err)
		}
	}()

	// Assuming data is in the first sheet
	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return res, errors.New("excel file does not contain any sheets")
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return res, errors.Wrapf(err, "failed to get rows from sheet %s", sheetName)
	}

	names := make(map[int]string)
	for i, row := range rows {
		if i == 0 {
			continue // Skip header row
		}

		var slotCell, nameCell string
		if len(row) > 0 {
			slotCell = strings.TrimSpace(row[0])
		}
		if len(row) > 1 {
			nameCell = row[1]
		}

		slot, err := strconv.Atoi(slotCell)
		name := models.NeutralizeName(nameCell)
		if err != nil || !models.ValidSlot(slot) || name == "" {
			slog.Debug("skipping roster row", "row", i+1, "slot", slotCell, "name", nameCell)
			res.Skipped++
			continue
		}
		names[slot] = name
	}

	if len(names) == 0 {
		return res, nil
	}

	rec, err := r.LoadForUpdate(ctx, className)
	if err != nil {
		return res, err
	}
	for slot, name := range names {
		rec.Students[slot] = name
	}
	if err := r.Save(ctx, className, rec); err != nil {
		return res, err
	}
	res.Imported = len(names)

	slog.Info("imported roster", "class", className, "imported", res.Imported, "skipped", res.Skipped)
	return res, nil
}
