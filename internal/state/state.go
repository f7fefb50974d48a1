package state

import (
	"context"
	"errors"
	"log/slog"

	"github.com/nao1215/extlinks/internal/model"
)

// Store loads and saves the durable state.
type Store interface {
	// Load returns the saved state, or the default state if nothing was
	// saved yet. Failures are *model.PersistenceError.
	Load(ctx context.Context) (*model.State, error)

	// Save replaces the saved state with st.
	Save(ctx context.Context, st *model.State) error

	// Close releases the store.
	Close() error
}

// LoadOrDefault loads the state from s. Any failure is logged as a warning
// and the default state is returned instead; a broken store never prevents
// startup.
func LoadOrDefault(ctx context.Context, s Store, logger *slog.Logger) *model.State {
	st, err := s.Load(ctx)
	if err != nil {
		var perr *model.PersistenceError
		if !errors.As(err, &perr) {
			err = &model.PersistenceError{Op: "load", Err: err}
		}
		logger.Warn("using default state", "error", err)
		return model.NewState()
	}
	if st == nil {
		return model.NewState()
	}
	return st
}

// SaveOrWarn saves st and logs a warning on failure. It reports whether the
// save succeeded.
func SaveOrWarn(ctx context.Context, s Store, st *model.State, logger *slog.Logger) bool {
	if err := s.Save(ctx, st); err != nil {
		logger.Warn("failed to save state", "error", err)
		return false
	}
	return true
}
