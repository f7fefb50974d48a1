package indexer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/nao1215/extlinks/internal/cache"
	"github.com/nao1215/extlinks/internal/filter"
	"github.com/nao1215/extlinks/internal/model"
	"github.com/nao1215/extlinks/internal/store"
	"github.com/nao1215/extlinks/internal/view"
)

const sampleContent = "See [Site](https://example.com/page) and also https://example.com/page again, plus https://other.org"

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recorder is a renderer that keeps every projection it receives.
type recorder struct {
	mu    sync.Mutex
	calls []view.Projection
}

func (r *recorder) Render(p view.Projection) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, p)
	return nil
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func (r *recorder) last() view.Projection {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[len(r.calls)-1]
}

func newSync(t *testing.T, docs map[string]string, opts ...Option) (*Synchronizer, *store.Memory) {
	t.Helper()
	mem := store.NewMemory(docs)
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	return New(mem, opts...), mem
}

func mustCompile(t *testing.T, ex model.Exclusions) *filter.Rules {
	t.Helper()
	r, err := filter.Compile(ex)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	return r
}

// TestFullRescan tests rebuilding the cache from the store.
func TestFullRescan(t *testing.T) {
	t.Parallel()

	t.Run("extracts links from every document", func(t *testing.T) {
		t.Parallel()

		s, _ := newSync(t, map[string]string{
			"a.md":     sampleContent,
			"b.md":     "no links here",
			"dir/c.md": "https://c.example",
		})

		res, err := s.FullRescan(context.Background())
		if err != nil {
			t.Fatalf("FullRescan() error = %v", err)
		}
		if res.Documents != 3 || res.Cached != 2 || res.Links != 3 {
			t.Errorf("unexpected result %+v", res)
		}

		want := []view.Group{
			{Path: "a.md", Links: []string{"https://example.com/page", "https://other.org"}},
			{Path: "dir/c.md", Links: []string{"https://c.example"}},
		}
		if diff := cmp.Diff(want, s.Projection().Groups); diff != "" {
			t.Errorf("groups mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("is idempotent", func(t *testing.T) {
		t.Parallel()

		s, _ := newSync(t, map[string]string{
			"a.md": sampleContent,
			"b.md": "https://b.example",
		})
		if _, err := s.FullRescan(context.Background()); err != nil {
			t.Fatal(err)
		}
		first := s.State().LinkCache
		if _, err := s.FullRescan(context.Background()); err != nil {
			t.Fatal(err)
		}
		if !first.Equal(s.State().LinkCache) {
			t.Error("expected identical cache after second rescan")
		}
	})

	t.Run("excluded paths are not read or cached", func(t *testing.T) {
		t.Parallel()

		s, mem := newSync(t, map[string]string{
			"private/notes.md": "https://secret.example",
			"public.md":        "https://public.example",
		}, WithRules(mustCompile(t, model.Exclusions{PathPattern: "^private/"})))

		res, err := s.FullRescan(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if res.Excluded != 1 {
			t.Errorf("Excluded = %d, want 1", res.Excluded)
		}
		if _, ok := s.Links("private/notes.md"); ok {
			t.Error("expected no entry for excluded path")
		}
		if mem.Reads() != 1 {
			t.Errorf("Reads() = %d, want 1", mem.Reads())
		}
	})

	t.Run("unreadable documents are skipped", func(t *testing.T) {
		t.Parallel()

		s, mem := newSync(t, map[string]string{
			"bad.md":  "https://bad.example",
			"good.md": "https://good.example",
		})
		mem.FailReads("bad.md", errors.New("permission denied"))

		res, err := s.FullRescan(context.Background())
		if err != nil {
			t.Fatalf("FullRescan() error = %v", err)
		}
		if res.Failed != 1 || res.Cached != 1 {
			t.Errorf("unexpected result %+v", res)
		}
		if _, ok := s.Links("good.md"); !ok {
			t.Error("expected good.md to be cached")
		}
	})

	t.Run("drops entries for documents that vanished", func(t *testing.T) {
		t.Parallel()

		s, mem := newSync(t, map[string]string{
			"a.md": "https://a.example",
			"b.md": "https://b.example",
		})
		if _, err := s.FullRescan(context.Background()); err != nil {
			t.Fatal(err)
		}
		mem.Delete("a.md")
		if _, err := s.FullRescan(context.Background()); err != nil {
			t.Fatal(err)
		}
		if _, ok := s.Links("a.md"); ok {
			t.Error("expected a.md to be gone")
		}
	})

	t.Run("fresh reads with a single worker", func(t *testing.T) {
		t.Parallel()

		s, _ := newSync(t, map[string]string{"a.md": "https://a.example"}, WithFreshRescan(true), WithConcurrency(1))
		res, err := s.FullRescan(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if res.Cached != 1 {
			t.Errorf("Cached = %d, want 1", res.Cached)
		}
	})
}

// TestUpdateDocument tests the incremental content update.
func TestUpdateDocument(t *testing.T) {
	t.Parallel()

	t.Run("reads exactly one document", func(t *testing.T) {
		t.Parallel()

		s, mem := newSync(t, map[string]string{
			"a.md": "https://a.example",
			"b.md": "https://b.example",
			"c.md": "https://c.example",
		})
		if _, err := s.FullRescan(context.Background()); err != nil {
			t.Fatal(err)
		}
		before := mem.Reads()

		mem.Put("b.md", "https://b2.example")
		if err := s.UpdateDocument(context.Background(), "b.md"); err != nil {
			t.Fatalf("UpdateDocument() error = %v", err)
		}
		if got := mem.Reads() - before; got != 1 {
			t.Errorf("reads during update = %d, want 1", got)
		}
		links, _ := s.Links("b.md")
		if diff := cmp.Diff([]string{"https://b2.example"}, links); diff != "" {
			t.Errorf("links mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("losing every link deletes the entry", func(t *testing.T) {
		t.Parallel()

		s, mem := newSync(t, map[string]string{"a.md": "https://a.example"})
		if _, err := s.FullRescan(context.Background()); err != nil {
			t.Fatal(err)
		}
		mem.Put("a.md", "plain text")
		if err := s.UpdateDocument(context.Background(), "a.md"); err != nil {
			t.Fatal(err)
		}
		if _, ok := s.Links("a.md"); ok {
			t.Error("expected entry to be removed")
		}
	})

	t.Run("excluded path removes the entry without reading", func(t *testing.T) {
		t.Parallel()

		s, mem := newSync(t, map[string]string{"private/a.md": "https://a.example"})
		s.cache.Set("private/a.md", []string{"https://a.example"})
		s.rules = mustCompile(t, model.Exclusions{PathPattern: "^private/"})

		if err := s.UpdateDocument(context.Background(), "private/a.md"); err != nil {
			t.Fatal(err)
		}
		if mem.Reads() != 0 {
			t.Errorf("Reads() = %d, want 0", mem.Reads())
		}
		if _, ok := s.Links("private/a.md"); ok {
			t.Error("expected excluded entry to be removed")
		}
	})

	t.Run("read failure leaves the entry untouched", func(t *testing.T) {
		t.Parallel()

		s, mem := newSync(t, map[string]string{"a.md": "https://a.example"})
		if _, err := s.FullRescan(context.Background()); err != nil {
			t.Fatal(err)
		}
		mem.FailReads("a.md", errors.New("device busy"))

		err := s.UpdateDocument(context.Background(), "a.md")
		if !errors.Is(err, model.ErrContentRead) {
			t.Fatalf("expected ErrContentRead, got %v", err)
		}
		var readErr *model.ContentReadError
		if !errors.As(err, &readErr) || readErr.Path != "a.md" {
			t.Errorf("expected ContentReadError for a.md, got %v", err)
		}
		if _, ok := s.Links("a.md"); !ok {
			t.Error("expected entry to survive the failed read")
		}
	})

	t.Run("missing document is treated as deleted", func(t *testing.T) {
		t.Parallel()

		s, mem := newSync(t, map[string]string{"a.md": "https://a.example"})
		if _, err := s.FullRescan(context.Background()); err != nil {
			t.Fatal(err)
		}
		mem.Delete("a.md")
		if err := s.UpdateDocument(context.Background(), "a.md"); err != nil {
			t.Fatalf("UpdateDocument() error = %v", err)
		}
		if _, ok := s.Links("a.md"); ok {
			t.Error("expected entry to be removed")
		}
	})

	t.Run("keeps the entry position", func(t *testing.T) {
		t.Parallel()

		s, mem := newSync(t, map[string]string{
			"a.md": "https://a.example",
			"b.md": "https://b.example",
		})
		if _, err := s.FullRescan(context.Background()); err != nil {
			t.Fatal(err)
		}
		mem.Put("a.md", "https://a2.example")
		if err := s.UpdateDocument(context.Background(), "a.md"); err != nil {
			t.Fatal(err)
		}
		groups := s.Projection().Groups
		if groups[0].Path != "a.md" {
			t.Errorf("first group = %s, want a.md", groups[0].Path)
		}
	})
}

// TestRemoveDocument tests entry removal.
func TestRemoveDocument(t *testing.T) {
	t.Parallel()

	s, mem := newSync(t, map[string]string{"a.md": "https://a.example"})
	if _, err := s.FullRescan(context.Background()); err != nil {
		t.Fatal(err)
	}
	before := mem.Reads()

	if !s.RemoveDocument("a.md") {
		t.Error("expected first removal to report true")
	}
	if s.RemoveDocument("a.md") {
		t.Error("expected second removal to report false")
	}
	if s.RemoveDocument("never.md") {
		t.Error("expected removal of unknown path to report false")
	}
	if mem.Reads() != before {
		t.Error("expected removal to perform no reads")
	}
}

// TestRenameDocument tests moving entries between paths.
func TestRenameDocument(t *testing.T) {
	t.Parallel()

	t.Run("links move unchanged without reading", func(t *testing.T) {
		t.Parallel()

		s, mem := newSync(t, map[string]string{"old.md": sampleContent, "z.md": "https://z.example"})
		if _, err := s.FullRescan(context.Background()); err != nil {
			t.Fatal(err)
		}
		want, _ := s.Links("old.md")
		before := mem.Reads()

		if err := mem.Move("old.md", "new.md"); err != nil {
			t.Fatal(err)
		}
		if err := s.RenameDocument(context.Background(), "old.md", "new.md"); err != nil {
			t.Fatal(err)
		}
		if mem.Reads() != before {
			t.Error("expected rename to perform no reads")
		}
		got, ok := s.Links("new.md")
		if !ok {
			t.Fatal("expected entry under new path")
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("links changed (-want +got):\n%s", diff)
		}
		if _, ok := s.Links("old.md"); ok {
			t.Error("expected no entry under old path")
		}
		if s.Projection().Groups[0].Path != "new.md" {
			t.Error("expected renamed entry to keep its position")
		}
	})

	t.Run("renaming into an excluded path drops the entry", func(t *testing.T) {
		t.Parallel()

		s, _ := newSync(t, map[string]string{"a.md": "https://a.example"},
			WithRules(mustCompile(t, model.Exclusions{PathPattern: "^archive/"})))
		if _, err := s.FullRescan(context.Background()); err != nil {
			t.Fatal(err)
		}
		if err := s.RenameDocument(context.Background(), "a.md", "archive/a.md"); err != nil {
			t.Fatal(err)
		}
		if s.Projection().Summary.Documents != 0 {
			t.Error("expected no entries after renaming into excluded path")
		}
	})

	t.Run("renaming out of an excluded path reads the document", func(t *testing.T) {
		t.Parallel()

		s, mem := newSync(t, map[string]string{"archive/a.md": "https://a.example"},
			WithRules(mustCompile(t, model.Exclusions{PathPattern: "^archive/"})))
		if _, err := s.FullRescan(context.Background()); err != nil {
			t.Fatal(err)
		}
		if err := mem.Move("archive/a.md", "a.md"); err != nil {
			t.Fatal(err)
		}
		if err := s.RenameDocument(context.Background(), "archive/a.md", "a.md"); err != nil {
			t.Fatal(err)
		}
		if _, ok := s.Links("a.md"); !ok {
			t.Error("expected a.md to be indexed after leaving the excluded path")
		}
	})

	t.Run("renaming a document without links over a cached one drops the target", func(t *testing.T) {
		t.Parallel()

		rec := &recorder{}
		s, mem := newSync(t, map[string]string{"a.md": "no links here", "b.md": "https://b.example"}, WithRenderer(rec))
		if _, err := s.FullRescan(context.Background()); err != nil {
			t.Fatal(err)
		}
		renders := rec.count()
		before := mem.Reads()

		if err := mem.Move("a.md", "b.md"); err != nil {
			t.Fatal(err)
		}
		if err := s.HandleEvent(context.Background(), store.Renamed("a.md", "b.md")); err != nil {
			t.Fatal(err)
		}
		if links, ok := s.Links("b.md"); ok {
			t.Errorf("expected no entry for b.md, got %v", links)
		}
		if mem.Reads() != before {
			t.Error("expected rename to perform no reads")
		}
		if rec.count() != renders+1 {
			t.Errorf("renders = %d, want %d", rec.count(), renders+1)
		}
	})

	t.Run("renaming an uncached document does nothing", func(t *testing.T) {
		t.Parallel()

		rec := &recorder{}
		s, mem := newSync(t, map[string]string{"a.md": "plain"}, WithRenderer(rec))
		if err := s.RenameDocument(context.Background(), "a.md", "b.md"); err != nil {
			t.Fatal(err)
		}
		if mem.Reads() != 0 || rec.count() != 0 {
			t.Error("expected no reads and no render")
		}
	})
}

// TestSetExclusions tests the settings-change hook.
func TestSetExclusions(t *testing.T) {
	t.Parallel()

	t.Run("valid settings trigger a full rescan", func(t *testing.T) {
		t.Parallel()

		s, _ := newSync(t, map[string]string{"a.md": sampleContent})
		if _, err := s.FullRescan(context.Background()); err != nil {
			t.Fatal(err)
		}

		ex := model.Exclusions{URLPatterns: []string{`^https://other\.org`}}
		if _, err := s.SetExclusions(context.Background(), ex); err != nil {
			t.Fatalf("SetExclusions() error = %v", err)
		}
		links, _ := s.Links("a.md")
		if diff := cmp.Diff([]string{"https://example.com/page"}, links); diff != "" {
			t.Errorf("links mismatch (-want +got):\n%s", diff)
		}
		if !s.Exclusions().Equal(ex) {
			t.Errorf("Exclusions() = %+v, want %+v", s.Exclusions(), ex)
		}
	})

	t.Run("invalid pattern leaves rules and cache untouched", func(t *testing.T) {
		t.Parallel()

		s, mem := newSync(t, map[string]string{"a.md": sampleContent})
		if _, err := s.FullRescan(context.Background()); err != nil {
			t.Fatal(err)
		}
		before := s.State()
		reads := mem.Reads()

		_, err := s.SetExclusions(context.Background(), model.Exclusions{PathPattern: "("})
		var cfgErr *filter.ConfigError
		if !errors.As(err, &cfgErr) {
			t.Fatalf("expected ConfigError, got %v", err)
		}
		if !errors.Is(err, filter.ErrInvalidPattern) {
			t.Error("expected ErrInvalidPattern in chain")
		}
		if mem.Reads() != reads {
			t.Error("expected no rescan")
		}
		after := s.State()
		if !before.LinkCache.Equal(after.LinkCache) || !before.Exclusions.Equal(after.Exclusions) {
			t.Error("expected state to be unchanged")
		}
	})
}

// TestRestore tests hydrating from persisted state.
func TestRestore(t *testing.T) {
	t.Parallel()

	t.Run("valid state", func(t *testing.T) {
		t.Parallel()

		s, _ := newSync(t, nil)
		st := model.NewState()
		st.Exclusions.PathPattern = "^x/"
		st.LinkCache.Set("a.md", []string{"https://a.example"})

		if err := s.Restore(st); err != nil {
			t.Fatalf("Restore() error = %v", err)
		}
		if s.Exclusions().PathPattern != "^x/" {
			t.Error("expected path pattern to be restored")
		}
		if _, ok := s.Links("a.md"); !ok {
			t.Error("expected cache to be restored")
		}

		st.LinkCache.Clear()
		if _, ok := s.Links("a.md"); !ok {
			t.Error("expected restored cache to be independent of the input")
		}
	})

	t.Run("invalid pattern", func(t *testing.T) {
		t.Parallel()

		s, _ := newSync(t, nil)
		st := model.NewState()
		st.Exclusions.URLPatterns = []string{"ok", "[bad"}

		err := s.Restore(st)
		var cfgErr *filter.ConfigError
		if !errors.As(err, &cfgErr) {
			t.Fatalf("expected ConfigError, got %v", err)
		}
		if cfgErr.Index != 1 {
			t.Errorf("Index = %d, want 1", cfgErr.Index)
		}
	})
}

// TestHandleEvent tests event dispatch.
func TestHandleEvent(t *testing.T) {
	t.Parallel()

	s, mem := newSync(t, map[string]string{"a.md": "https://a.example"})
	ctx := context.Background()

	mem.Put("b.md", "https://b.example")
	if err := s.HandleEvent(ctx, store.Created("b.md")); err != nil {
		t.Fatal(err)
	}
	if err := mem.Move("b.md", "c.md"); err != nil {
		t.Fatal(err)
	}
	if err := s.HandleEvent(ctx, store.Renamed("b.md", "c.md")); err != nil {
		t.Fatal(err)
	}
	if err := s.HandleEvent(ctx, store.Modified("a.md")); err != nil {
		t.Fatal(err)
	}
	if err := s.HandleEvent(ctx, store.Deleted("a.md")); err != nil {
		t.Fatal(err)
	}

	want := []view.Group{{Path: "c.md", Links: []string{"https://b.example"}}}
	if diff := cmp.Diff(want, s.Projection().Groups); diff != "" {
		t.Errorf("groups mismatch (-want +got):\n%s", diff)
	}

	if err := s.HandleEvent(ctx, store.Event{Kind: store.EventKind(99)}); err == nil {
		t.Error("expected error for unknown event kind")
	}
}

// TestRun tests the serial event loop against a watched memory store.
func TestRun(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	s, mem := newSync(t, map[string]string{}, WithRenderer(rec))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := mem.Watch(ctx)
	if err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx, events)
	}()

	mem.Put("a.md", "https://a.example")
	mem.Put("b.md", "plain")
	mem.FailReads("c.md", errors.New("boom"))
	mem.Put("c.md", "https://c.example")
	mem.Put("b.md", "https://b.example")

	deadline := time.After(5 * time.Second)
	for {
		if _, ok := s.Links("b.md"); ok {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for events to be applied")
		case <-time.After(10 * time.Millisecond):
		}
	}

	if err := mem.Close(); err != nil {
		t.Fatal(err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after channel close")
	}

	if _, ok := s.Links("c.md"); ok {
		t.Error("expected failed read to leave c.md uncached")
	}
	if got := rec.last().Summary.Documents; got != 2 {
		t.Errorf("last render documents = %d, want 2", got)
	}
}

// TestRendererNotification tests render calls and render failure handling.
func TestRendererNotification(t *testing.T) {
	t.Parallel()

	t.Run("render after each change", func(t *testing.T) {
		t.Parallel()

		rec := &recorder{}
		s, mem := newSync(t, map[string]string{"a.md": "https://a.example"}, WithRenderer(rec))
		ctx := context.Background()

		if _, err := s.FullRescan(ctx); err != nil {
			t.Fatal(err)
		}
		if rec.count() != 1 {
			t.Fatalf("renders after rescan = %d, want 1", rec.count())
		}

		// Unchanged content does not re-render.
		if err := s.UpdateDocument(ctx, "a.md"); err != nil {
			t.Fatal(err)
		}
		if rec.count() != 1 {
			t.Errorf("renders after no-op update = %d, want 1", rec.count())
		}

		mem.Put("a.md", "https://a2.example")
		if err := s.UpdateDocument(ctx, "a.md"); err != nil {
			t.Fatal(err)
		}
		s.RemoveDocument("a.md")
		if rec.count() != 3 {
			t.Errorf("renders = %d, want 3", rec.count())
		}
		if !rec.last().IsEmpty() {
			t.Error("expected final projection to be empty")
		}
	})

	t.Run("render failure is not fatal", func(t *testing.T) {
		t.Parallel()

		failing := view.RendererFunc(func(view.Projection) error {
			return errors.New("terminal gone")
		})
		s, _ := newSync(t, map[string]string{"a.md": "https://a.example"}, WithRenderer(failing))
		if _, err := s.FullRescan(context.Background()); err != nil {
			t.Fatalf("FullRescan() error = %v", err)
		}
		if _, ok := s.Links("a.md"); !ok {
			t.Error("expected cache to be updated despite render failure")
		}
	})
}

// TestState tests the persisted snapshot.
func TestState(t *testing.T) {
	t.Parallel()

	s, _ := newSync(t, map[string]string{"a.md": "https://a.example"})
	if _, err := s.FullRescan(context.Background()); err != nil {
		t.Fatal(err)
	}
	st := s.State()
	if st.Exclusions.URLPatterns == nil {
		t.Error("expected non-nil URL patterns")
	}
	st.LinkCache.Clear()
	if _, ok := s.Links("a.md"); !ok {
		t.Error("expected snapshot to be independent of the live cache")
	}
	if !cache.New().Equal(st.LinkCache) {
		t.Error("expected cleared snapshot to be empty")
	}
}
