package export

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func readRows(t *testing.T, data []byte) [][]string {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	return rows
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "Violin A_Attendance_2026-10-19.xlsx", FileName("Violin A", "2026-10-19"))
}

func TestWrite(t *testing.T) {
	rows := []Row{
		{Slot: 1, Name: "Student 1", Status: "100% Present"},
		{Slot: 3, Name: "<b>Mira</b>", Status: "50% Present"},
	}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, rows))

	got := readRows(t, buf.Bytes())
	require.Len(t, got, 3)
	assert.Equal(t, Header, got[0])
	assert.Equal(t, []string{"1", "Student 1", "100% Present"}, got[1])
	assert.Equal(t, []string{"3", "<b>Mira</b>", "50% Present"}, got[2])
}

func TestWorkbookColumnWidths(t *testing.T) {
	buf, err := Workbook(nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetName}, f.GetSheetList())
	for i, want := range columnWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		width, err := f.GetColWidth(SheetName, col)
		require.NoError(t, err)
		assert.InDelta(t, want, width, 0.01, "column %s", col)
	}
}

func TestSaveFile(t *testing.T) {
	dir := t.TempDir()
	rows := make([]Row, 0, 100)
	for i := 1; i <= 100; i++ {
		rows = append(rows, Row{Slot: i, Name: "Student " + strconv.Itoa(i), Status: "Absent"})
	}

	path, err := SaveFile(dir, "Choir", "2026-10-19", rows)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "Choir_Attendance_2026-10-19.xlsx"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, readRows(t, data), 101)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files should remain")
}

func TestSaveFileStaysInDir(t *testing.T) {
	dir := t.TempDir()

	path, err := SaveFile(dir, "../escape", "2026-10-19", nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, ".._escape_Attendance_2026-10-19.xlsx"), path)
}

func TestSaveFileMissingDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "missing")

	_, err := SaveFile(dir, "Choir", "2026-10-19", nil)
	require.Error(t, err)
	_, statErr := os.Stat(filepath.Join(dir, FileName("Choir", "2026-10-19")))
	assert.True(t, os.IsNotExist(statErr))
}
