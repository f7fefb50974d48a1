package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"sort"
	"sync"
)

// ErrClosed is returned by Watch after Close.
var ErrClosed = errors.New("store closed")

// Memory is an in-memory document store.
// Mutations made through Put, Delete and Move are reported to watchers.
type Memory struct {
	mu       sync.Mutex
	docs     map[string]string
	failures map[string]error
	watchers []chan Event
	closed   bool
	reads    int
}

// NewMemory creates a Memory store holding docs (path to content).
func NewMemory(docs map[string]string) *Memory {
	m := &Memory{
		docs:     make(map[string]string, len(docs)),
		failures: make(map[string]error),
	}
	for p, c := range docs {
		m.docs[NormalizePath(p)] = c
	}
	return m
}

// List implements Reader.
func (m *Memory) List(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	paths := make([]string, 0, len(m.docs))
	for p := range m.docs {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths, nil
}

// Read implements Reader.
func (m *Memory) Read(ctx context.Context, p string) (string, error) {
	return m.ReadFresh(ctx, p)
}

// ReadFresh implements Reader.
func (m *Memory) ReadFresh(_ context.Context, p string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.reads++
	p = NormalizePath(p)
	if err, ok := m.failures[p]; ok {
		return "", err
	}
	c, ok := m.docs[p]
	if !ok {
		return "", fmt.Errorf("%s: %w", p, fs.ErrNotExist)
	}
	return c, nil
}

// Reads returns how many times document content was read.
func (m *Memory) Reads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads
}

// FailReads makes every read of p return err until cleared with a nil err.
func (m *Memory) FailReads(p string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p = NormalizePath(p)
	if err == nil {
		delete(m.failures, p)
		return
	}
	m.failures[p] = err
}

// Put creates or replaces a document and emits EventCreated or EventModified.
func (m *Memory) Put(p, content string) {
	m.mu.Lock()
	p = NormalizePath(p)
	_, existed := m.docs[p]
	m.docs[p] = content
	m.mu.Unlock()

	if existed {
		m.emit(Modified(p))
		return
	}
	m.emit(Created(p))
}

// Delete removes a document and emits EventDeleted. Deleting an absent
// document does nothing.
func (m *Memory) Delete(p string) {
	m.mu.Lock()
	p = NormalizePath(p)
	_, existed := m.docs[p]
	delete(m.docs, p)
	m.mu.Unlock()

	if existed {
		m.emit(Deleted(p))
	}
}

// Move renames a document and emits EventRenamed.
func (m *Memory) Move(oldPath, newPath string) error {
	m.mu.Lock()
	oldPath, newPath = NormalizePath(oldPath), NormalizePath(newPath)
	c, ok := m.docs[oldPath]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%s: %w", oldPath, fs.ErrNotExist)
	}
	delete(m.docs, oldPath)
	m.docs[newPath] = c
	m.mu.Unlock()

	m.emit(Renamed(oldPath, newPath))
	return nil
}

// Watch implements Watcher. Events are buffered; a slow consumer never
// blocks Put, Delete or Move.
func (m *Memory) Watch(ctx context.Context) (<-chan Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}
	ch := make(chan Event, 256)
	m.watchers = append(m.watchers, ch)

	go func() {
		<-ctx.Done()
		m.detach(ch)
	}()
	return ch, nil
}

// Close implements Watcher.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true
	for _, ch := range m.watchers {
		close(ch)
	}
	m.watchers = nil
	return nil
}

// detach closes and forgets a single watcher channel.
func (m *Memory) detach(ch chan Event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := slices.Index(m.watchers, ch)
	if i < 0 {
		return
	}
	m.watchers = slices.Delete(m.watchers, i, i+1)
	close(ch)
}

// emit sends ev to every watcher without blocking.
func (m *Memory) emit(ev Event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, ch := range m.watchers {
		select {
		case ch <- ev:
		default:
		}
	}
}
