package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Default Vault settings.
const (
	// DefaultExtension is the only document extension indexed by default.
	DefaultExtension = ".md"

	// DefaultRenamePairWindow is how long a Rename event waits for the Create
	// event carrying the new name. fsnotify reports a rename as two events;
	// on Linux they arrive back to back, so a short window is enough.
	DefaultRenamePairWindow = 100 * time.Millisecond
)

// ErrNotDirectory is returned by NewVault when root is not a directory.
var ErrNotDirectory = errors.New("vault root is not a directory")

// cachedContent is a document body remembered by Read.
type cachedContent struct {
	size    int64
	modTime time.Time
	content string
}

// Vault is a document store backed by a directory tree.
// Hidden files and directories (name starting with ".") are ignored, as are
// files whose extension is not configured.
type Vault struct {
	root       string
	extensions []string
	pairWindow time.Duration
	logger     *slog.Logger

	mu       sync.Mutex
	contents map[string]cachedContent
	watcher  *fsnotify.Watcher
}

// VaultOption configures a Vault.
type VaultOption func(*Vault)

// WithExtensions sets the file extensions treated as documents, such as ".md".
// Matching is case-insensitive. An empty list keeps the default.
func WithExtensions(exts ...string) VaultOption {
	return func(v *Vault) {
		if len(exts) == 0 {
			return
		}
		v.extensions = make([]string, 0, len(exts))
		for _, e := range exts {
			e = strings.ToLower(strings.TrimSpace(e))
			if e == "" {
				continue
			}
			if !strings.HasPrefix(e, ".") {
				e = "." + e
			}
			v.extensions = append(v.extensions, e)
		}
	}
}

// WithRenamePairWindow sets how long a rename waits for its second half.
func WithRenamePairWindow(d time.Duration) VaultOption {
	return func(v *Vault) {
		if d > 0 {
			v.pairWindow = d
		}
	}
}

// WithVaultLogger sets the logger used for watcher errors.
func WithVaultLogger(logger *slog.Logger) VaultOption {
	return func(v *Vault) {
		v.logger = logger
	}
}

// NewVault opens the directory at root as a document store.
func NewVault(root string, opts ...VaultOption) (*Vault, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve vault path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to open vault: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, abs)
	}

	v := &Vault{
		root:       abs,
		extensions: []string{DefaultExtension},
		pairWindow: DefaultRenamePairWindow,
		contents:   make(map[string]cachedContent),
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.logger == nil {
		v.logger = slog.Default()
	}
	return v, nil
}

// Root returns the absolute path of the vault directory.
func (v *Vault) Root() string {
	return v.root
}

// List implements Reader.
func (v *Vault) List(ctx context.Context) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(v.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == v.root {
				return err
			}
			// Unreadable subtrees are skipped, not fatal.
			v.logger.Warn("skipping unreadable path", "path", p, "error", err)
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if p == v.root {
			return nil
		}
		if isHidden(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !v.isDocument(d.Name()) {
			return nil
		}
		rel, err := filepath.Rel(v.root, p)
		if err != nil {
			return nil
		}
		paths = append(paths, NormalizePath(filepath.ToSlash(rel)))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list vault: %w", err)
	}
	sort.Strings(paths)
	return paths, nil
}

// Read implements Reader. Content is reused while the file's size and
// modification time are unchanged and no change notification arrived for
// the path since it was read.
func (v *Vault) Read(ctx context.Context, p string) (string, error) {
	p = NormalizePath(p)
	info, err := os.Stat(v.abs(p))
	if err != nil {
		v.forget(p)
		return "", err
	}

	v.mu.Lock()
	c, ok := v.contents[p]
	v.mu.Unlock()
	if ok && c.size == info.Size() && c.modTime.Equal(info.ModTime()) {
		return c.content, nil
	}

	return v.ReadFresh(ctx, p)
}

// ReadFresh implements Reader.
func (v *Vault) ReadFresh(_ context.Context, p string) (string, error) {
	p = NormalizePath(p)
	full := v.abs(p)

	info, err := os.Stat(full)
	if err != nil {
		v.forget(p)
		return "", err
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s: is a directory", p)
	}
	data, err := os.ReadFile(full) //nolint:gosec // path is confined to the vault root
	if err != nil {
		v.forget(p)
		return "", err
	}

	content := string(data)
	v.mu.Lock()
	v.contents[p] = cachedContent{size: info.Size(), modTime: info.ModTime(), content: content}
	v.mu.Unlock()
	return content, nil
}

// Watch implements Watcher. Directories created later are watched too.
func (v *Vault) Watch(ctx context.Context) (<-chan Event, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := v.addWatchDirs(w, v.root); err != nil {
		_ = w.Close() //nolint:errcheck // best effort cleanup
		return nil, fmt.Errorf("failed to watch vault: %w", err)
	}

	known, err := v.List(ctx)
	if err != nil {
		_ = w.Close() //nolint:errcheck // best effort cleanup
		return nil, err
	}

	v.mu.Lock()
	v.watcher = w
	v.mu.Unlock()

	out := make(chan Event, 64)
	t := newTranslator(v, known)
	go v.watchLoop(ctx, w, t, out)
	return out, nil
}

// Close implements Watcher.
func (v *Vault) Close() error {
	v.mu.Lock()
	w := v.watcher
	v.watcher = nil
	v.mu.Unlock()

	if w == nil {
		return nil
	}
	return w.Close()
}

// watchLoop turns fsnotify events into store events until ctx is done or the
// watcher is closed.
func (v *Vault) watchLoop(ctx context.Context, w *fsnotify.Watcher, t *translator, out chan<- Event) {
	defer close(out)

	timer := time.NewTimer(v.pairWindow)
	timer.Stop()
	defer timer.Stop()

	send := func(events []Event) bool {
		for _, ev := range events {
			select {
			case out <- ev:
			case <-ctx.Done():
				return false
			}
		}
		return true
	}

	for {
		select {
		case <-ctx.Done():
			return

		case fe, ok := <-w.Events:
			if !ok {
				send(t.expire())
				return
			}
			events := t.handle(fe)
			if t.pending != "" {
				timer.Reset(v.pairWindow)
			}
			if !send(events) {
				return
			}

		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			v.logger.Warn("watcher error", "error", err)

		case <-timer.C:
			if !send(t.expire()) {
				return
			}
		}
	}
}

// addWatchDirs adds root and every non-hidden directory below it.
func (v *Vault) addWatchDirs(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if p != v.root && isHidden(d.Name()) {
			return filepath.SkipDir
		}
		return w.Add(p)
	})
}

// watchDir adds a directory created after Watch started.
func (v *Vault) watchDir(abs string) {
	v.mu.Lock()
	w := v.watcher
	v.mu.Unlock()
	if w == nil {
		return
	}
	if err := v.addWatchDirs(w, abs); err != nil {
		v.logger.Warn("failed to watch new directory", "path", abs, "error", err)
	}
}

// listUnder returns the documents below the relative directory dir.
func (v *Vault) listUnder(dir string) []string {
	var paths []string
	base := v.abs(dir)
	_ = filepath.WalkDir(base, func(p string, d fs.DirEntry, err error) error { //nolint:errcheck // walk errors are skipped
		if err != nil {
			return nil
		}
		if p != base && isHidden(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !v.isDocument(d.Name()) {
			return nil
		}
		if rel, err := filepath.Rel(v.root, p); err == nil {
			paths = append(paths, NormalizePath(filepath.ToSlash(rel)))
		}
		return nil
	})
	sort.Strings(paths)
	return paths
}

// relative converts an absolute event path into a document key.
// It returns false for paths outside the vault or inside hidden directories.
func (v *Vault) relative(abs string) (string, bool) {
	rel, err := filepath.Rel(v.root, abs)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", false
	}
	rel = NormalizePath(filepath.ToSlash(rel))
	for _, part := range strings.Split(rel, "/") {
		if isHidden(part) {
			return "", false
		}
	}
	return rel, true
}

// abs converts a document key into an absolute filesystem path.
func (v *Vault) abs(p string) string {
	return filepath.Join(v.root, filepath.FromSlash(NormalizePath(p)))
}

// isDocument reports whether name has a configured extension.
func (v *Vault) isDocument(name string) bool {
	return slices.Contains(v.extensions, strings.ToLower(filepath.Ext(name)))
}

// forget drops cached content for p.
func (v *Vault) forget(p string) {
	v.mu.Lock()
	delete(v.contents, p)
	v.mu.Unlock()
}

// isHidden reports whether a file or directory name is hidden.
func isHidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}
