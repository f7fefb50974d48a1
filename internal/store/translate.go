package store

import (
	"os"
	"sort"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// translator converts raw fsnotify events into document events.
//
// fsnotify reports a rename as a Rename event for the old name followed by a
// Create event for the new name. The translator keeps the old name pending
// until the matching Create arrives; if anything else arrives first, or the
// pairing window expires, the pending name is reported as deleted.
//
// It also remembers which documents exist so that removing or renaming a
// directory can be expanded into one event per document inside it.
type translator struct {
	vault   *Vault
	known   map[string]struct{}
	pending string
}

// newTranslator creates a translator aware of the given documents.
func newTranslator(v *Vault, known []string) *translator {
	t := &translator{vault: v, known: make(map[string]struct{}, len(known))}
	for _, p := range known {
		t.known[p] = struct{}{}
	}
	return t
}

// handle processes one fsnotify event.
func (t *translator) handle(fe fsnotify.Event) []Event {
	rel, ok := t.vault.relative(fe.Name)
	if !ok {
		return nil
	}

	switch {
	case fe.Has(fsnotify.Create):
		return t.created(fe.Name, rel)

	case fe.Has(fsnotify.Write):
		if !t.vault.isDocument(rel) {
			return nil
		}
		// Size and mtime can survive an edit on coarse-grained filesystems,
		// so a change notification always forces the next Read to hit disk.
		t.vault.forget(rel)
		events := t.expire()
		if _, ok := t.known[rel]; !ok {
			t.known[rel] = struct{}{}
			return append(events, Created(rel))
		}
		return append(events, Modified(rel))

	case fe.Has(fsnotify.Remove):
		events := t.expire()
		return append(events, t.removed(rel)...)

	case fe.Has(fsnotify.Rename):
		events := t.expire()
		if t.tracked(rel) {
			t.pending = rel
		}
		return events
	}

	return nil
}

// expire reports a pending rename as deleted.
func (t *translator) expire() []Event {
	if t.pending == "" {
		return nil
	}
	old := t.pending
	t.pending = ""
	return t.removed(old)
}

// created handles a Create event, pairing it with a pending rename.
func (t *translator) created(abs, rel string) []Event {
	info, err := os.Stat(abs)
	if err != nil {
		// Gone already; a later Remove will not be reported for it either.
		return t.expire()
	}

	if info.IsDir() {
		t.vault.watchDir(abs)
		docs := t.vault.listUnder(rel)
		if t.pending != "" {
			old := t.pending
			t.pending = ""
			return t.movedDir(old, rel, docs)
		}
		events := make([]Event, 0, len(docs))
		for _, d := range docs {
			if _, ok := t.known[d]; ok {
				continue
			}
			t.known[d] = struct{}{}
			events = append(events, Created(d))
		}
		return events
	}

	if !t.vault.isDocument(rel) {
		return t.expire()
	}
	t.vault.forget(rel)

	if t.pending != "" {
		old := t.pending
		t.pending = ""
		if _, ok := t.known[old]; ok {
			delete(t.known, old)
			t.known[rel] = struct{}{}
			return []Event{Renamed(old, rel)}
		}
		// A directory became a file; report both sides plainly.
		events := t.removed(old)
		t.known[rel] = struct{}{}
		return append(events, Created(rel))
	}

	if _, ok := t.known[rel]; ok {
		return []Event{Modified(rel)}
	}
	t.known[rel] = struct{}{}
	return []Event{Created(rel)}
}

// movedDir reports every document below oldDir as renamed below newDir.
// Documents that only exist on one side are reported as deleted or created.
func (t *translator) movedDir(oldDir, newDir string, docs []string) []Event {
	var events []Event
	if _, ok := t.known[oldDir]; ok {
		delete(t.known, oldDir)
		events = append(events, Deleted(oldDir))
	}
	moved := make(map[string]struct{}, len(docs))
	for _, d := range docs {
		suffix := strings.TrimPrefix(d, newDir+"/")
		old := oldDir + "/" + suffix
		if _, ok := t.known[old]; ok {
			delete(t.known, old)
			t.known[d] = struct{}{}
			moved[old] = struct{}{}
			events = append(events, Renamed(old, d))
			continue
		}
		t.known[d] = struct{}{}
		events = append(events, Created(d))
	}
	for _, old := range t.under(oldDir) {
		if _, ok := moved[old]; ok {
			continue
		}
		delete(t.known, old)
		events = append(events, Deleted(old))
	}
	return events
}

// removed reports rel, or every document below it, as deleted.
func (t *translator) removed(rel string) []Event {
	t.vault.forget(rel)
	if _, ok := t.known[rel]; ok {
		delete(t.known, rel)
		return []Event{Deleted(rel)}
	}
	children := t.under(rel)
	events := make([]Event, 0, len(children))
	for _, c := range children {
		t.vault.forget(c)
		delete(t.known, c)
		events = append(events, Deleted(c))
	}
	return events
}

// tracked reports whether rel is a known document or contains one.
func (t *translator) tracked(rel string) bool {
	if _, ok := t.known[rel]; ok {
		return true
	}
	return len(t.under(rel)) > 0
}

// under returns the known documents below dir, sorted.
func (t *translator) under(dir string) []string {
	prefix := dir + "/"
	var paths []string
	for p := range t.known {
		if strings.HasPrefix(p, prefix) {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)
	return paths
}
