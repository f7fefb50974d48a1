package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/extlinks/internal/cache"
	"github.com/nao1215/extlinks/internal/model"
	"github.com/nao1215/extlinks/internal/state"
)

// FileName is the database file created inside the data directory.
const FileName = "extlinks.db"

// Settings keys.
const (
	keyPathPattern = "excludePathRegex"
	keyURLPatterns = "excludePatterns"
)

var _ state.Store = (*StateDB)(nil)

// StateDB stores the persisted state in SQLite.
//
// Design decision: The link list of each document is a JSON array column
// rather than a child table. Links are always read and written as a whole
// with their document. The position column orders the documents; the array
// orders the links within one document.
type StateDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures StateDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging so readers do not block the
	// writer.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a StateDB in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*StateDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a new file; mode=rwc allows it.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	sdb := &StateDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := sdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return sdb, nil
}

// Path returns the database file path.
func (sdb *StateDB) Path() string {
	return sdb.dbPath
}

// Close closes the database connection.
func (sdb *StateDB) Close() error {
	return sdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (sdb *StateDB) createTables() error {
	schema := `
	-- Exclusion settings as key/value pairs
	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	-- One row per document that has at least one link
	CREATE TABLE IF NOT EXISTS link_cache (
		path TEXT PRIMARY KEY,
		position INTEGER NOT NULL,
		links TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_link_cache_position ON link_cache(position);
	`

	_, err := sdb.db.ExecContext(context.Background(), schema)
	return err
}

// Load returns the stored state. An empty database yields the default state.
func (sdb *StateDB) Load(ctx context.Context) (*model.State, error) {
	st := model.NewState()

	ex, saved, err := sdb.loadSettings(ctx)
	if err != nil {
		return nil, &model.PersistenceError{Op: "load", Err: err}
	}
	st.Exclusions = ex
	st.Saved = saved

	entries, err := sdb.loadLinkCache(ctx)
	if err != nil {
		return nil, &model.PersistenceError{Op: "load", Err: err}
	}
	st.LinkCache = cache.FromEntries(entries)

	return st, nil
}

// loadSettings returns the stored exclusions and whether Save ever ran.
// Save always writes the URL pattern array, at least "[]", so its row
// marks a database that has been saved.
func (sdb *StateDB) loadSettings(ctx context.Context) (model.Exclusions, bool, error) {
	ex := model.Exclusions{URLPatterns: []string{}}

	pathPattern, err := sdb.setting(ctx, keyPathPattern)
	if err != nil {
		return ex, false, err
	}
	ex.PathPattern = pathPattern

	raw, err := sdb.setting(ctx, keyURLPatterns)
	if err != nil {
		return ex, false, err
	}
	if raw == "" {
		return ex, false, nil
	}
	if err := json.Unmarshal([]byte(raw), &ex.URLPatterns); err != nil {
		return ex, false, fmt.Errorf("failed to parse %s: %w", keyURLPatterns, err)
	}
	if ex.URLPatterns == nil {
		ex.URLPatterns = []string{}
	}
	return ex, true, nil
}

// setting returns the value stored under key, or "" if there is none.
func (sdb *StateDB) setting(ctx context.Context, key string) (string, error) {
	var value string
	err := sdb.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get setting %s: %w", key, err)
	}
	return value, nil
}

func (sdb *StateDB) loadLinkCache(ctx context.Context) ([]cache.Entry, error) {
	rows, err := sdb.db.QueryContext(ctx, `SELECT path, links FROM link_cache ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("failed to query link cache: %w", err)
	}
	defer rows.Close()

	var entries []cache.Entry
	for rows.Next() {
		var (
			path      string
			linksJSON string
			links     []string
		)
		if err := rows.Scan(&path, &linksJSON); err != nil {
			return nil, fmt.Errorf("failed to scan link cache row: %w", err)
		}
		if err := json.Unmarshal([]byte(linksJSON), &links); err != nil {
			return nil, fmt.Errorf("failed to parse links for %s: %w", path, err)
		}
		entries = append(entries, cache.Entry{Path: path, Links: links})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read link cache: %w", err)
	}
	return entries, nil
}

// Save replaces the stored settings and link cache in one transaction.
func (sdb *StateDB) Save(ctx context.Context, st *model.State) error {
	if err := sdb.save(ctx, st); err != nil {
		return &model.PersistenceError{Op: "save", Err: err}
	}
	return nil
}

func (sdb *StateDB) save(ctx context.Context, st *model.State) (err error) {
	patterns := st.Exclusions.URLPatterns
	if patterns == nil {
		patterns = []string{}
	}
	patternsJSON, err := json.Marshal(patterns)
	if err != nil {
		return fmt.Errorf("failed to serialize %s: %w", keyURLPatterns, err)
	}

	tx, err := sdb.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const upsert = `
	INSERT INTO settings (key, value) VALUES (?, ?)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`
	if _, err = tx.ExecContext(ctx, upsert, keyPathPattern, st.Exclusions.PathPattern); err != nil {
		return fmt.Errorf("failed to save %s: %w", keyPathPattern, err)
	}
	if _, err = tx.ExecContext(ctx, upsert, keyURLPatterns, string(patternsJSON)); err != nil {
		return fmt.Errorf("failed to save %s: %w", keyURLPatterns, err)
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM link_cache`); err != nil {
		return fmt.Errorf("failed to clear link cache: %w", err)
	}
	if st.LinkCache != nil {
		for i, e := range st.LinkCache.Entries() {
			var linksJSON []byte
			linksJSON, err = json.Marshal(e.Links)
			if err != nil {
				return fmt.Errorf("failed to serialize links for %s: %w", e.Path, err)
			}
			if _, err = tx.ExecContext(ctx,
				`INSERT INTO link_cache (path, position, links) VALUES (?, ?, ?)`,
				e.Path, i, string(linksJSON),
			); err != nil {
				return fmt.Errorf("failed to save links for %s: %w", e.Path, err)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit state: %w", err)
	}
	return nil
}
