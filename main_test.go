package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attendance-server-go/attendance"
	"attendance-server-go/config"
	"attendance-server-go/db"
	"attendance-server-go/models"
)

func TestRootCommand(t *testing.T) {
	cmd := newRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "attendance", cmd.Use)

	for _, name := range []string{"serve", "export"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}

	verbose := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verbose)
	assert.Equal(t, "v", verbose.Shorthand)
}

func TestExportCommandFlags(t *testing.T) {
	cmd := newRootCommand()
	exportCmd, _, err := cmd.Find([]string{"export"})
	require.NoError(t, err)

	require.NotNil(t, exportCmd.Flags().Lookup("class"))
	require.NotNil(t, exportCmd.Flags().Lookup("date"))
	out := exportCmd.Flags().Lookup("out")
	require.NotNil(t, out)
	assert.Equal(t, "o", out.Shorthand)
}

func TestOpenRepository_Memory(t *testing.T) {
	repo, closeFn, err := openRepository(context.Background(), config.Config{Store: "memory"})
	require.NoError(t, err)
	defer closeFn()
	assert.NotNil(t, repo)
}

func TestSeedDemoClass(t *testing.T) {
	ctx := context.Background()
	repo := db.NewClassRepository(db.NewMemoryStore(0), 0)

	require.NoError(t, seedDemoClass(ctx, repo))
	assert.Equal(t, "Alice", repo.Load(ctx, demoClassName).Students[1])

	// a second run leaves existing data alone
	rec := repo.Load(ctx, demoClassName)
	rec.Students[1] = "Alicia"
	require.NoError(t, repo.Save(ctx, demoClassName, rec))
	require.NoError(t, seedDemoClass(ctx, repo))
	assert.Equal(t, "Alicia", repo.Load(ctx, demoClassName).Students[1])
}

func TestExportSnapshot(t *testing.T) {
	ctx := context.Background()
	repo := db.NewClassRepository(db.NewMemoryStore(0), 0)
	rec := models.NewClassRecord()
	rec.Records["2026-10-18"] = models.DayRecord{3: models.HalfPresent}
	require.NoError(t, repo.Save(ctx, "Choir", rec))

	session := attendance.NewSession(repo, attendance.WithClock(func() time.Time {
		return time.Date(2026, time.October, 19, 0, 0, 0, 0, time.UTC)
	}))
	dir := t.TempDir()

	path, err := exportSnapshot(ctx, session, &exportOptions{ClassName: "Choir", Date: "2026-10-18", OutDir: dir})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "Choir_Attendance_2026-10-18.xlsx"), path)

	_, err = exportSnapshot(ctx, attendance.NewSession(repo), &exportOptions{ClassName: "Choir", Date: "bad", OutDir: dir})
	assert.ErrorIs(t, err, attendance.ErrInvalidDate)

	_, err = exportSnapshot(ctx, attendance.NewSession(repo), &exportOptions{ClassName: "Choir", OutDir: filepath.Join(dir, "missing")})
	assert.ErrorIs(t, err, attendance.ErrExport)
}
