package db

import (
	"bytes"
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"attendance-server-go/models"
)

func rosterWorkbook(t *testing.T, rows [][]interface{}) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestImportStudentsFromExcel(t *testing.T) {
	ctx := context.Background()
	repo := NewClassRepository(NewMemoryStore(0), 0)

	existing := sampleRecord()
	require.NoError(t, repo.Save(ctx, "Violin", existing))

	file := rosterWorkbook(t, [][]interface{}{
		{"Register No.", "Student Name"},
		{1, "Asha"},
		{"7", "  Anita Rao "},
		{8, "<b>Bold</b>"},
		{"x", "Not a slot"},
		{101, "Too far"},
		{9, ""},
	})

	res, err := repo.ImportStudentsFromExcel(ctx, file, "Violin")
	require.NoError(t, err)
	assert.Equal(t, ImportResult{Imported: 3, Skipped: 3}, res)

	rec := repo.Load(ctx, "Violin")
	assert.Equal(t, map[int]string{1: "Asha", 7: "Anita Rao", 8: "&lt;b&gt;Bold&lt;/b&gt;"}, rec.Students)
	assert.Equal(t, existing.Records, rec.Records, "marks are untouched")
}

func TestImportStudentsFromExcel_Errors(t *testing.T) {
	ctx := context.Background()
	repo := NewClassRepository(NewMemoryStore(0), 0)

	_, err := repo.ImportStudentsFromExcel(ctx, bytes.NewBufferString("not a workbook"), "Violin")
	assert.Error(t, err)

	_, err = repo.ImportStudentsFromExcel(ctx, rosterWorkbook(t, nil), "")
	assert.Error(t, err)

	res, err := repo.ImportStudentsFromExcel(ctx, rosterWorkbook(t, [][]interface{}{{"Register No.", "Student Name"}}), "Empty")
	require.NoError(t, err)
	assert.Zero(t, res.Imported)
	_, found, _ := repo.store.Get(ctx, "Empty")
	assert.False(t, found, "nothing to import means nothing is written")
	assert.Equal(t, models.NewClassRecord(), repo.Load(ctx, "Empty"))
}

func TestImportStudentsFromExcel_ReadFailureWritesNothing(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(0)
	require.NoError(t, NewClassRepository(store, 0).Save(ctx, "Violin", sampleRecord()))
	before, _, _ := store.Get(ctx, "Violin")

	repo := NewClassRepository(unreadableStore{store}, 0)
	file := rosterWorkbook(t, [][]interface{}{
		{"Register No.", "Student Name"},
		{1, "Asha"},
	})

	res, err := repo.ImportStudentsFromExcel(ctx, file, "Violin")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStorage))
	assert.Zero(t, res.Imported)

	after, _, _ := store.Get(ctx, "Violin")
	assert.Equal(t, before, after, "marks and names from other dates survive")
}
