package store

import (
	"context"
	"fmt"
	"path"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Reader gives read access to documents.
type Reader interface {
	// List returns every document path, sorted.
	List(ctx context.Context) ([]string, error)

	// Read returns the content of a document. Implementations may serve it
	// from a cache as long as the document has not changed.
	Read(ctx context.Context, path string) (string, error)

	// ReadFresh returns the content of a document, bypassing any cache.
	ReadFresh(ctx context.Context, path string) (string, error)
}

// Watcher delivers change notifications.
type Watcher interface {
	// Watch starts delivering events on the returned channel. The channel is
	// closed when ctx is done or the watcher is closed.
	Watch(ctx context.Context) (<-chan Event, error)

	// Close stops the watcher.
	Close() error
}

// EventKind identifies a change notification.
type EventKind int

const (
	// EventCreated is sent when a document appears.
	EventCreated EventKind = iota

	// EventModified is sent when a document's content changes.
	EventModified

	// EventDeleted is sent when a document disappears.
	EventDeleted

	// EventRenamed is sent when a document moves from OldPath to Path.
	EventRenamed
)

// String returns the event kind name.
func (k EventKind) String() string {
	switch k {
	case EventCreated:
		return "created"
	case EventModified:
		return "modified"
	case EventDeleted:
		return "deleted"
	case EventRenamed:
		return "renamed"
	default:
		return "unknown"
	}
}

// Event is a single change notification.
type Event struct {
	Kind EventKind

	// Path is the affected document; the new path for EventRenamed.
	Path string

	// OldPath is set for EventRenamed only.
	OldPath string
}

// String implements fmt.Stringer.
func (e Event) String() string {
	if e.Kind == EventRenamed {
		return fmt.Sprintf("%s %s -> %s", e.Kind, e.OldPath, e.Path)
	}
	return fmt.Sprintf("%s %s", e.Kind, e.Path)
}

// Created returns an EventCreated for p.
func Created(p string) Event { return Event{Kind: EventCreated, Path: p} }

// Modified returns an EventModified for p.
func Modified(p string) Event { return Event{Kind: EventModified, Path: p} }

// Deleted returns an EventDeleted for p.
func Deleted(p string) Event { return Event{Kind: EventDeleted, Path: p} }

// Renamed returns an EventRenamed from oldPath to newPath.
func Renamed(oldPath, newPath string) Event {
	return Event{Kind: EventRenamed, Path: newPath, OldPath: oldPath}
}

// NormalizePath converts p to the canonical document key: slash-separated,
// cleaned, without a leading "./" or "/", and in Unicode NFC.
func NormalizePath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	p = path.Clean("/" + p)
	p = strings.TrimPrefix(p, "/")
	return norm.NFC.String(p)
}
