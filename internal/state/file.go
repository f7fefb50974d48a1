package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/nao1215/extlinks/internal/model"
)

var _ Store = (*FileStore)(nil)

// FileStore keeps the state as one JSON object in a file.
//
// Design decision: Save writes a temporary file in the same directory and
// renames it over the target, so a crash mid-write leaves the previous state
// intact rather than a truncated file.
type FileStore struct {
	path string
}

// NewFileStore returns a FileStore backed by path. The file is created on
// the first Save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file path.
func (f *FileStore) Path() string {
	return f.path
}

// Load implements Store.
func (f *FileStore) Load(_ context.Context) (*model.State, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return model.NewState(), nil
	}
	if err != nil {
		return nil, &model.PersistenceError{Op: "load", Err: err}
	}

	st := model.NewState()
	if err := json.Unmarshal(data, st); err != nil {
		return nil, &model.PersistenceError{
			Op:  "load",
			Err: fmt.Errorf("failed to parse %s: %w", f.path, err),
		}
	}
	st.Saved = true
	return st, nil
}

// Save implements Store.
func (f *FileStore) Save(_ context.Context, st *model.State) error {
	if err := f.write(st); err != nil {
		return &model.PersistenceError{Op: "save", Err: err}
	}
	return nil
}

func (f *FileStore) write(st *model.State) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".extlinks-state-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName) //nolint:errcheck // gone after a successful rename
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write state: %w", err)
	}
	if err := tmp.Chmod(0600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to set state permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close state file: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}

// Close implements Store. A FileStore holds no open resources.
func (f *FileStore) Close() error {
	return nil
}
