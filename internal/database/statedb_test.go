package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/nao1215/extlinks/internal/cache"
	"github.com/nao1215/extlinks/internal/model"
)

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) *StateDB {
	t.Helper()

	db, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

// TestOpen tests database opening and creation.
func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "newdir", "subdir")
		db, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		if _, err := os.Stat(filepath.Join(dbDir, FileName)); os.IsNotExist(err) {
			t.Error("database file was not created")
		}
		if db.Path() != filepath.Join(dbDir, FileName) {
			t.Errorf("Path() = %s", db.Path())
		}
	})

	t.Run("CreateIfNotExists=false returns error when database does not exist", func(t *testing.T) {
		t.Parallel()

		_, err := Open(filepath.Join(t.TempDir(), "missing"), Options{CreateIfNotExists: false})
		if err == nil {
			t.Error("expected error when database does not exist")
		}
	})

	t.Run("CreateIfNotExists=false opens existing database", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		db, err := Open(dir, DefaultOptions())
		if err != nil {
			t.Fatal(err)
		}
		_ = db.Close()

		db, err = Open(dir, Options{CreateIfNotExists: false, EnableWAL: true})
		if err != nil {
			t.Fatalf("failed to reopen database: %v", err)
		}
		_ = db.Close()
	})
}

// TestStateDBLoad tests loading from an empty database.
func TestStateDBLoad(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	st, err := db.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !st.Exclusions.IsZero() {
		t.Errorf("expected zero exclusions, got %+v", st.Exclusions)
	}
	if st.Exclusions.URLPatterns == nil {
		t.Error("expected non-nil URL patterns")
	}
	if st.LinkCache.Len() != 0 {
		t.Errorf("expected empty cache, got %d entries", st.LinkCache.Len())
	}
	if st.Saved {
		t.Error("an empty database should not count as saved")
	}
}

// TestStateDBRoundTrip tests that Save followed by Load returns the same state.
func TestStateDBRoundTrip(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	want := model.NewState()
	want.Exclusions = model.Exclusions{
		PathPattern: "^private/",
		URLPatterns: []string{`^https://other\.org`, `\.pdf$`},
	}
	want.LinkCache = cache.FromEntries([]cache.Entry{
		{Path: "z.md", Links: []string{"https://z.example"}},
		{Path: "notes/a.md", Links: []string{"https://b.example", "https://a.example"}},
	})

	if err := db.Save(ctx, want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, err := db.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if diff := cmp.Diff(want.Exclusions, got.Exclusions); diff != "" {
		t.Errorf("exclusions mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want.LinkCache.Entries(), got.LinkCache.Entries()); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
	if !got.Saved {
		t.Error("expected a saved database to report Saved")
	}
}

// TestStateDBSavedEmptySettings tests that saving empty exclusions still
// marks the database as saved.
func TestStateDBSavedEmptySettings(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()
	if err := db.Save(ctx, model.NewState()); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, err := db.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !got.Saved || !got.Exclusions.IsZero() {
		t.Errorf("Saved = %v, Exclusions = %+v", got.Saved, got.Exclusions)
	}
}

// TestStateDBSaveReplaces tests that Save drops rows missing from the new state.
func TestStateDBSaveReplaces(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	first := model.NewState()
	first.Exclusions.URLPatterns = []string{"a", "b"}
	first.LinkCache.Set("old.md", []string{"https://old.example"})
	if err := db.Save(ctx, first); err != nil {
		t.Fatal(err)
	}

	second := model.NewState()
	second.LinkCache.Set("new.md", []string{"https://new.example"})
	if err := db.Save(ctx, second); err != nil {
		t.Fatal(err)
	}

	got, err := db.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Exclusions.URLPatterns) != 0 {
		t.Errorf("URLPatterns = %v, want empty", got.Exclusions.URLPatterns)
	}
	if diff := cmp.Diff([]string{"new.md"}, got.LinkCache.Paths()); diff != "" {
		t.Errorf("paths mismatch (-want +got):\n%s", diff)
	}
}

// TestStateDBPersistsAcrossReopen tests durability across connections.
func TestStateDBPersistsAcrossReopen(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	ctx := context.Background()

	db, err := Open(dir, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	st := model.NewState()
	st.LinkCache.Set("a.md", []string{"https://a.example"})
	if err := db.Save(ctx, st); err != nil {
		t.Fatal(err)
	}
	if err := db.Close(); err != nil {
		t.Fatal(err)
	}

	db, err = Open(dir, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	got, err := db.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !got.LinkCache.Equal(st.LinkCache) {
		t.Error("expected cache to survive reopening")
	}
}

// TestStateDBCorruptSetting tests that unreadable settings are a persistence error.
func TestStateDBCorruptSetting(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	if _, err := db.db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?)`, keyURLPatterns, "{broken",
	); err != nil {
		t.Fatal(err)
	}

	_, err := db.Load(ctx)
	if !errors.Is(err, model.ErrPersistence) {
		t.Errorf("expected ErrPersistence, got %v", err)
	}
}

// TestStateDBClosed tests operations on a closed database.
func TestStateDBClosed(t *testing.T) {
	t.Parallel()

	db, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	_ = db.Close()

	var perr *model.PersistenceError
	if err := db.Save(context.Background(), model.NewState()); !errors.As(err, &perr) || perr.Op != "save" {
		t.Errorf("expected save PersistenceError, got %v", err)
	}
	if _, err := db.Load(context.Background()); !errors.As(err, &perr) || perr.Op != "load" {
		t.Errorf("expected load PersistenceError, got %v", err)
	}
}
