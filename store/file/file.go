// Package file provides a single-file JSON store backend for processes that
// hold their session on disk (CLI tools, desktop agents). Multiple processes
// may share the file; cross-process change delivery rides on fsnotify.
//
// The document records the origin id of its last writer. A watcher that sees
// its own origin in the reloaded document skips the event, which is how the
// "no self-notification" contract is kept without platform support.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"github.com/variel/authstate/store"
)

type document struct {
	Origin string            `json:"origin"`
	Data   map[string]string `json:"data"`
}

// Store implements store.WatchKV over one JSON file. Writes are atomic
// (temp file + rename), so a concurrent reader never observes a torn
// document.
type Store struct {
	path   string
	origin string

	mu   sync.Mutex
	last map[string]string
}

// New opens (or prepares to create) the store at path. The parent directory
// must exist. The file itself is created on first write.
func New(path string) (*Store, error) {
	s := &Store{path: path, origin: uuid.NewString()}

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	s.last = doc.Data

	return s, nil
}

// Origin returns this process handle's context id.
func (s *Store) Origin() string { return s.origin }

func (s *Store) load() (document, error) {
	doc := document{Data: map[string]string{}}

	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return doc, nil
	}
	if err != nil {
		return doc, store.NewError("read", s.path, err)
	}
	if len(raw) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		// A corrupt state file behaves like an empty one. Hydration
		// degrades, it must not fail.
		return document{Data: map[string]string{}}, nil
	}
	if doc.Data == nil {
		doc.Data = map[string]string{}
	}
	return doc, nil
}

func (s *Store) save(doc document) error {
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return store.NewError("encode", s.path, err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return store.NewError("write", s.path, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return store.NewError("rename", s.path, err)
	}
	return nil
}

func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return "", false, err
	}
	v, ok := doc.Data[key]
	return v, ok, nil
}

func (s *Store) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	doc.Data[key] = value
	doc.Origin = s.origin
	if err := s.save(doc); err != nil {
		return err
	}
	s.last = cloneMap(doc.Data)
	return nil
}

func (s *Store) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := doc.Data[key]; !ok {
		return nil
	}
	delete(doc.Data, key)
	doc.Origin = s.origin
	if err := s.save(doc); err != nil {
		return err
	}
	s.last = cloneMap(doc.Data)
	return nil
}

// Watch emits per-key changes whenever another process rewrites the file.
// Events caused by this handle's own writes are suppressed via the origin
// recorded in the document.
func (s *Store) Watch(ctx context.Context) (<-chan store.Change, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, store.NewError("watch", s.path, err)
	}
	// Watch the directory: atomic renames replace the inode, and a watch
	// on the file itself would go stale after the first replacement.
	if err := fw.Add(filepath.Dir(s.path)); err != nil {
		fw.Close()
		return nil, store.NewError("watch", s.path, err)
	}

	out := make(chan store.Change, 16)
	go func() {
		defer close(out)
		defer fw.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-fw.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != filepath.Clean(s.path) {
					continue
				}
				if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Rename) && !ev.Has(fsnotify.Remove) {
					continue
				}
				for _, c := range s.reloadDiff() {
					select {
					case out <- c:
					case <-ctx.Done():
						return
					}
				}
			case _, ok := <-fw.Errors:
				if !ok {
					return
				}
			}
		}
	}()
	return out, nil
}

// reloadDiff re-reads the document and converts the delta against the last
// known snapshot into change events. Returns nil for this handle's own
// writes.
func (s *Store) reloadDiff() []store.Change {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil
	}
	if doc.Origin == s.origin {
		s.last = cloneMap(doc.Data)
		return nil
	}

	var changes []store.Change
	for key, old := range s.last {
		now, ok := doc.Data[key]
		if !ok {
			changes = append(changes, store.Change{
				Key: key, OldValue: old, OldPresent: true, Origin: doc.Origin,
			})
		} else if now != old {
			changes = append(changes, store.Change{
				Key: key, OldValue: old, NewValue: now,
				OldPresent: true, NewPresent: true, Origin: doc.Origin,
			})
		}
	}
	for key, now := range doc.Data {
		if _, ok := s.last[key]; !ok {
			changes = append(changes, store.Change{
				Key: key, NewValue: now, NewPresent: true, Origin: doc.Origin,
			})
		}
	}

	s.last = cloneMap(doc.Data)
	return changes
}

func cloneMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
