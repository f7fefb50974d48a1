package indexer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/nao1215/extlinks/internal/cache"
	"github.com/nao1215/extlinks/internal/extract"
	"github.com/nao1215/extlinks/internal/filter"
	"github.com/nao1215/extlinks/internal/model"
	"github.com/nao1215/extlinks/internal/store"
	"github.com/nao1215/extlinks/internal/view"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is the number of documents read in parallel during a
// full rescan.
const DefaultConcurrency = 8

// RescanResult describes a completed full rescan.
type RescanResult struct {
	// Documents is the number of documents in the store.
	Documents int

	// Excluded is the number skipped by the path filter.
	Excluded int

	// Failed is the number that could not be read.
	Failed int

	// Cached is the number of cache entries after the rescan.
	Cached int

	// Links is the total number of links after the rescan.
	Links int

	// Elapsed is the wall time of the rescan.
	Elapsed time.Duration
}

// Synchronizer maintains a LinkCache for a document store.
type Synchronizer struct {
	mu          sync.Mutex
	reader      store.Reader
	cache       *cache.LinkCache
	rules       *filter.Rules
	renderer    view.Renderer
	logger      *slog.Logger
	concurrency int
	fresh       bool
}

// Option configures a Synchronizer.
type Option func(*Synchronizer)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Synchronizer) {
		s.logger = logger
	}
}

// WithRenderer sets the renderer notified after every cache change.
func WithRenderer(r view.Renderer) Option {
	return func(s *Synchronizer) {
		s.renderer = r
	}
}

// WithConcurrency sets how many documents a full rescan reads at once.
func WithConcurrency(n int) Option {
	return func(s *Synchronizer) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithRules sets the compiled exclusion rules.
func WithRules(r *filter.Rules) Option {
	return func(s *Synchronizer) {
		s.rules = r
	}
}

// WithFreshRescan makes full rescans bypass the store's content cache.
// Incremental updates always use the cached read.
func WithFreshRescan(fresh bool) Option {
	return func(s *Synchronizer) {
		s.fresh = fresh
	}
}

// New creates a Synchronizer over reader with an empty cache.
func New(reader store.Reader, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		reader:      reader,
		cache:       cache.New(),
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Restore hydrates the synchronizer from persisted state. The exclusions are
// compiled first; a malformed pattern returns a *filter.ConfigError and
// leaves the synchronizer unchanged.
func (s *Synchronizer) Restore(st *model.State) error {
	rules, err := filter.Compile(st.Exclusions)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.rules = rules
	if st.LinkCache != nil {
		s.cache = st.LinkCache.Clone()
	} else {
		s.cache = cache.New()
	}
	s.logger.Debug("state restored",
		"documents", s.cache.Len(),
		"links", s.cache.LinkCount(),
	)
	return nil
}

// FullRescan rebuilds the cache from every document in the store.
//
// Documents excluded by the path filter are not read. A document that
// cannot be read is logged and skipped; the rescan always runs to the end.
// If the store cannot be enumerated the cache is left untouched.
func (s *Synchronizer) FullRescan(ctx context.Context) (RescanResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.rescanLocked(ctx)
	if err != nil {
		return res, err
	}
	s.notifyLocked()
	return res, nil
}

// rescanLocked performs the rescan. The caller holds s.mu.
func (s *Synchronizer) rescanLocked(ctx context.Context) (RescanResult, error) {
	start := time.Now()
	// A rescan is never abandoned half way.
	ctx = context.WithoutCancel(ctx)

	paths, err := s.reader.List(ctx)
	if err != nil {
		return RescanResult{}, fmt.Errorf("failed to enumerate documents: %w", err)
	}

	res := RescanResult{Documents: len(paths)}
	links := make([][]string, len(paths))
	failed := make([]bool, len(paths))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, p := range paths {
		if s.rules.PathExcluded(p) {
			res.Excluded++
			continue
		}
		g.Go(func() error {
			content, err := s.read(ctx, p)
			if err != nil {
				failed[i] = true
				s.logger.Warn("skipping unreadable document",
					"path", p,
					"error", &model.ContentReadError{Path: p, Err: err},
				)
				return nil
			}
			links[i] = extract.Links(content, s.rules)
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // workers never return errors

	entries := make([]cache.Entry, 0, len(paths))
	for i, p := range paths {
		if failed[i] {
			res.Failed++
			continue
		}
		if len(links[i]) == 0 {
			continue
		}
		entries = append(entries, cache.Entry{Path: p, Links: links[i]})
	}
	s.cache.Replace(entries)

	res.Cached = s.cache.Len()
	res.Links = s.cache.LinkCount()
	res.Elapsed = time.Since(start)

	s.logger.Info("full rescan complete",
		"documents", res.Documents,
		"excluded", res.Excluded,
		"failed", res.Failed,
		"cached", res.Cached,
		"links", res.Links,
		"elapsed", res.Elapsed,
	)
	return res, nil
}

// read fetches content for a full rescan.
func (s *Synchronizer) read(ctx context.Context, p string) (string, error) {
	if s.fresh {
		return s.reader.ReadFresh(ctx, p)
	}
	return s.reader.Read(ctx, p)
}

// UpdateDocument re-evaluates a single document after its content changed.
//
// An excluded path loses its entry. Otherwise the document is read and its
// entry replaced wholesale, or deleted if no link remains. A document that
// no longer exists is treated as deleted. Any other read failure returns a
// *model.ContentReadError and leaves the entry as it was.
func (s *Synchronizer) UpdateDocument(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.updateLocked(ctx, store.NormalizePath(path))
}

// updateLocked implements UpdateDocument. The caller holds s.mu.
func (s *Synchronizer) updateLocked(ctx context.Context, p string) error {
	if s.rules.PathExcluded(p) {
		if s.cache.Delete(p) {
			s.logger.Debug("document excluded", "path", p)
			s.notifyLocked()
		}
		return nil
	}

	content, err := s.reader.Read(ctx, p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			if s.cache.Delete(p) {
				s.notifyLocked()
			}
			return nil
		}
		return &model.ContentReadError{Path: p, Err: err}
	}

	links := extract.Links(content, s.rules)
	before, had := s.cache.Get(p)
	s.cache.Set(p, links)
	if had == (len(links) > 0) && slices.Equal(before, links) {
		return nil
	}

	s.logger.Debug("document updated", "path", p, "links", len(links))
	s.notifyLocked()
	return nil
}

// RemoveDocument deletes the entry for path. It is safe to call for a path
// that was never cached, and reports whether an entry was removed.
func (s *Synchronizer) RemoveDocument(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := store.NormalizePath(path)
	if !s.cache.Delete(p) {
		return false
	}
	s.logger.Debug("document removed", "path", p)
	s.notifyLocked()
	return true
}

// RenameDocument moves the entry for oldPath to newPath without reading the
// document; a rename does not change content.
//
// If the new path is excluded by the path filter, the entry is dropped. If
// oldPath had no entry because it was excluded and newPath is not, the
// document is read under its new name. Otherwise a source without an entry
// has no links, so any entry under newPath is dropped.
func (s *Synchronizer) RenameDocument(ctx context.Context, oldPath, newPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	oldPath, newPath = store.NormalizePath(oldPath), store.NormalizePath(newPath)

	if s.cache.Has(oldPath) {
		if s.rules.PathExcluded(newPath) {
			s.cache.Delete(oldPath)
			s.logger.Debug("document renamed into excluded path", "from", oldPath, "to", newPath)
		} else {
			s.cache.Rename(oldPath, newPath)
			s.logger.Debug("document renamed", "from", oldPath, "to", newPath)
		}
		s.notifyLocked()
		return nil
	}

	if s.rules.PathExcluded(oldPath) && !s.rules.PathExcluded(newPath) {
		return s.updateLocked(ctx, newPath)
	}

	// The source had no links, so whatever was stored under newPath
	// belonged to the document the rename replaced.
	if s.cache.Delete(newPath) {
		s.logger.Debug("document replaced by rename", "from", oldPath, "to", newPath)
		s.notifyLocked()
	}
	return nil
}

// HandleEvent applies the incremental operation for ev.
func (s *Synchronizer) HandleEvent(ctx context.Context, ev store.Event) error {
	switch ev.Kind {
	case store.EventCreated, store.EventModified:
		return s.UpdateDocument(ctx, ev.Path)
	case store.EventDeleted:
		s.RemoveDocument(ev.Path)
		return nil
	case store.EventRenamed:
		return s.RenameDocument(ctx, ev.OldPath, ev.Path)
	default:
		return fmt.Errorf("unknown event kind %d", ev.Kind)
	}
}

// Run handles events one at a time until the channel is closed or ctx is
// done. Per-event failures are logged and do not stop the loop.
func (s *Synchronizer) Run(ctx context.Context, events <-chan store.Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			s.logger.Debug("event received", "event", ev.String())
			if err := s.HandleEvent(ctx, ev); err != nil {
				s.logger.Warn("failed to apply change", "event", ev.String(), "error", err)
			}
		}
	}
}

// SetExclusions replaces the exclusion settings and rebuilds the cache.
//
// A malformed pattern returns a *filter.ConfigError before anything changes.
// If the rescan cannot enumerate the store, the previous rules are restored
// and the cache is left untouched.
func (s *Synchronizer) SetExclusions(ctx context.Context, ex model.Exclusions) (RescanResult, error) {
	rules, err := filter.Compile(ex)
	if err != nil {
		return RescanResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.rules
	s.rules = rules
	res, err := s.rescanLocked(ctx)
	if err != nil {
		s.rules = prev
		return res, err
	}
	s.notifyLocked()
	return res, nil
}

// Projection returns the current render-ready view of the cache.
func (s *Synchronizer) Projection() view.Projection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return view.Project(s.cache)
}

// Exclusions returns the active exclusion settings.
func (s *Synchronizer) Exclusions() model.Exclusions {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rules.Exclusions()
}

// Links returns the cached links for path.
func (s *Synchronizer) Links(path string) ([]string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache.Get(store.NormalizePath(path))
}

// State returns a snapshot suitable for persisting.
func (s *Synchronizer) State() *model.State {
	s.mu.Lock()
	defer s.mu.Unlock()

	ex := s.rules.Exclusions()
	if ex.URLPatterns == nil {
		ex.URLPatterns = []string{}
	}
	return &model.State{
		Exclusions: ex,
		LinkCache:  s.cache.Clone(),
	}
}

// notifyLocked renders the current projection. Render failures are logged,
// never returned: the cache is already updated. The caller holds s.mu.
func (s *Synchronizer) notifyLocked() {
	if s.renderer == nil {
		return
	}
	if err := s.renderer.Render(view.Project(s.cache)); err != nil {
		s.logger.Warn("failed to render link list", "error", err)
	}
}
