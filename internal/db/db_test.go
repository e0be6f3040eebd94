package db

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	database, err := NewDB(filepath.Join(t.TempDir(), "saber.db"))
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

func TestMigrateUpIsIdempotent(t *testing.T) {
	database := testDB(t)
	migrationsFS, err := getMigrationsFS()
	if err != nil {
		t.Fatalf("getMigrationsFS: %v", err)
	}
	if err := database.MigrateUp(migrationsFS); err != nil {
		t.Fatalf("second MigrateUp: %v", err)
	}
	version, dirty, err := database.MigrateVersion(migrationsFS)
	if err != nil {
		t.Fatalf("MigrateVersion: %v", err)
	}
	if dirty {
		t.Error("database is dirty after clean migration")
	}
	latest, err := GetLatestMigrationVersion(migrationsFS)
	if err != nil {
		t.Fatalf("GetLatestMigrationVersion: %v", err)
	}
	if version != latest {
		t.Errorf("version = %d, want latest %d", version, latest)
	}
}

func TestDevModeMigrationsDir(t *testing.T) {
	embedded, err := getMigrationsFS()
	if err != nil {
		t.Fatalf("getMigrationsFS: %v", err)
	}
	wantLatest, err := GetLatestMigrationVersion(embedded)
	if err != nil {
		t.Fatalf("GetLatestMigrationVersion: %v", err)
	}

	// Copy the embedded .sql files into a scratch directory.
	dir := t.TempDir()
	entries, err := fs.ReadDir(embedded, ".")
	if err != nil {
		t.Fatalf("reading embedded migrations: %v", err)
	}
	for _, e := range entries {
		raw, err := fs.ReadFile(embedded, e.Name())
		if err != nil {
			t.Fatalf("reading %s: %v", e.Name(), err)
		}
		if err := os.WriteFile(filepath.Join(dir, e.Name()), raw, 0o644); err != nil {
			t.Fatalf("writing %s: %v", e.Name(), err)
		}
	}

	DevMode, MigrationsDir = true, dir
	t.Cleanup(func() { DevMode, MigrationsDir = false, "internal/db/migrations" })

	onDisk, err := getMigrationsFS()
	if err != nil {
		t.Fatalf("getMigrationsFS (dev): %v", err)
	}
	database, err := OpenDB(filepath.Join(t.TempDir(), "saber.db"))
	if err != nil {
		t.Fatalf("OpenDB: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	if err := database.MigrateUp(onDisk); err != nil {
		t.Fatalf("MigrateUp from directory: %v", err)
	}
	version, dirty, err := database.MigrateVersion(onDisk)
	if err != nil {
		t.Fatalf("MigrateVersion: %v", err)
	}
	if dirty || version != wantLatest {
		t.Errorf("version = %d (dirty %v), want clean %d", version, dirty, wantLatest)
	}

	// A missing directory is an error, not a silent fallback.
	MigrationsDir = filepath.Join(dir, "gone")
	if _, err := getMigrationsFS(); err == nil {
		t.Error("expected error for missing migrations directory")
	}
}

func TestMigrateDownAndUp(t *testing.T) {
	database := testDB(t)
	migrationsFS, err := getMigrationsFS()
	if err != nil {
		t.Fatalf("getMigrationsFS: %v", err)
	}
	if err := database.MigrateDown(migrationsFS); err != nil {
		t.Fatalf("MigrateDown: %v", err)
	}
	if err := database.MigrateUp(migrationsFS); err != nil {
		t.Fatalf("MigrateUp after down: %v", err)
	}
}

func TestRecordAndListRuns(t *testing.T) {
	database := testDB(t)

	run := &Run{
		Kind:       "micrograph",
		Input:      "image.mrc",
		Output:     "masks.zarr",
		Model:      "sam2-hiera-base",
		NumMasks:   12,
		DurationMs: 1500,
	}
	require.NoError(t, database.RecordRun(run))
	require.NotEmpty(t, run.ID, "RecordRun should assign an ID")

	got, err := database.GetRun(run.ID)
	require.NoError(t, err)
	assert.Equal(t, "micrograph", got.Kind)
	assert.Equal(t, 12, got.NumMasks)
	assert.Equal(t, int64(1500), got.DurationMs)

	require.NoError(t, database.RecordRun(&Run{Kind: "tomogram", Input: "run1", Output: "seg.zarr"}))

	runs, err := database.ListRuns("micrograph", 10)
	require.NoError(t, err)
	require.Len(t, runs, 1, "kind filter should keep only the micrograph run")
	assert.Equal(t, run.ID, runs[0].ID)

	all, err := database.ListRuns("", 10)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = database.GetRun("no-such-id")
	assert.Error(t, err, "unknown run should not resolve")
}

func TestOpenSessionResumes(t *testing.T) {
	database := testDB(t)

	first, err := database.OpenSession("/data/train.zarr", []string{"carbon", "ice"}, 40)
	if err != nil {
		t.Fatalf("OpenSession: %v", err)
	}
	second, err := database.OpenSession("/data/train.zarr", []string{"ignored"}, 99)
	if err != nil {
		t.Fatalf("OpenSession resume: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("resumed session id = %s, want %s", second.ID, first.ID)
	}
	if diff := cmp.Diff([]string{"carbon", "ice"}, second.ClassNames); diff != "" {
		t.Errorf("class names mismatch (-want +got):\n%s", diff)
	}
	if second.NumItems != 40 {
		t.Errorf("num items = %d, want original 40", second.NumItems)
	}
}

func TestSetItemLabelsIdempotent(t *testing.T) {
	database := testDB(t)
	session, err := database.OpenSession("/data/train.zarr", []string{"a", "b", "c"}, 10)
	if err != nil {
		t.Fatalf("OpenSession: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := database.SetItemLabels(session.ID, 3, []int{2, 1}); err != nil {
			t.Fatalf("SetItemLabels (pass %d): %v", i, err)
		}
	}
	classes, err := database.ItemLabels(session.ID, 3)
	if err != nil {
		t.Fatalf("ItemLabels: %v", err)
	}
	if diff := cmp.Diff([]int{1, 2}, classes); diff != "" {
		t.Errorf("labels mismatch (-want +got):\n%s", diff)
	}

	// Replacing shrinks the set.
	if err := database.SetItemLabels(session.ID, 3, []int{0}); err != nil {
		t.Fatalf("SetItemLabels replace: %v", err)
	}
	classes, err = database.ItemLabels(session.ID, 3)
	if err != nil {
		t.Fatalf("ItemLabels: %v", err)
	}
	if diff := cmp.Diff([]int{0}, classes); diff != "" {
		t.Errorf("replaced labels mismatch (-want +got):\n%s", diff)
	}

	unlabeled, err := database.ItemLabels(session.ID, 7)
	if err != nil {
		t.Fatalf("ItemLabels unlabeled: %v", err)
	}
	if len(unlabeled) != 0 {
		t.Errorf("unlabeled item = %v, want empty", unlabeled)
	}
}

func TestAllLabelsAndProgress(t *testing.T) {
	database := testDB(t)
	session, err := database.OpenSession("/data/train.zarr", []string{"a", "b"}, 10)
	if err != nil {
		t.Fatalf("OpenSession: %v", err)
	}

	if err := database.SetItemLabels(session.ID, 0, []int{0}); err != nil {
		t.Fatalf("SetItemLabels: %v", err)
	}
	if err := database.SetItemLabels(session.ID, 4, []int{0, 1}); err != nil {
		t.Fatalf("SetItemLabels: %v", err)
	}

	all, err := database.AllLabels(session.ID)
	if err != nil {
		t.Fatalf("AllLabels: %v", err)
	}
	want := map[int][]int{0: {0}, 4: {0, 1}}
	if diff := cmp.Diff(want, all); diff != "" {
		t.Errorf("all labels mismatch (-want +got):\n%s", diff)
	}

	labeled, err := database.Progress(session.ID)
	if err != nil {
		t.Fatalf("Progress: %v", err)
	}
	if labeled != 2 {
		t.Errorf("progress = %d, want 2", labeled)
	}
}
