// Package memory provides an in-process store backend. A single Hub holds
// the data; each Open call returns a handle that behaves like an
// independent context, so tests (and embedded hosts) can exercise
// cross-context propagation without any external infrastructure.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/variel/authstate/store"
)

const watchBuffer = 32

// Hub is the shared backing map. It is safe for concurrent use by any
// number of handles.
type Hub struct {
	mu       sync.Mutex
	data     map[string]string
	watchers map[*watcher]struct{}
	dropped  uint64
}

type watcher struct {
	origin string
	ch     chan store.Change
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		data:     make(map[string]string),
		watchers: make(map[*watcher]struct{}),
	}
}

// Open returns a new handle with its own origin id. Writes through one
// handle are visible to all handles and notified to every watcher except
// those opened from the writing handle.
func (h *Hub) Open() *Store {
	return &Store{hub: h, origin: uuid.NewString()}
}

// Dropped reports how many change events were discarded because a watcher
// channel was full.
func (h *Hub) Dropped() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dropped
}

func (h *Hub) broadcast(c store.Change) {
	for w := range h.watchers {
		if w.origin == c.Origin {
			continue
		}
		select {
		case w.ch <- c:
		default:
			h.dropped++
		}
	}
}

// Store is one context's handle on a Hub. It implements store.WatchKV.
type Store struct {
	hub    *Hub
	origin string
}

// Origin returns the handle's context id.
func (s *Store) Origin() string { return s.origin }

func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	v, ok := s.hub.data[key]
	return v, ok, nil
}

func (s *Store) Set(_ context.Context, key, value string) error {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()

	old, existed := s.hub.data[key]
	s.hub.data[key] = value
	s.hub.broadcast(store.Change{
		Key:        key,
		OldValue:   old,
		NewValue:   value,
		OldPresent: existed,
		NewPresent: true,
		Origin:     s.origin,
	})
	return nil
}

func (s *Store) Remove(_ context.Context, key string) error {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()

	old, existed := s.hub.data[key]
	if !existed {
		return nil
	}
	delete(s.hub.data, key)
	s.hub.broadcast(store.Change{
		Key:        key,
		OldValue:   old,
		OldPresent: true,
		Origin:     s.origin,
	})
	return nil
}

// Watch registers a change feed for this handle. The channel closes when
// ctx is done.
func (s *Store) Watch(ctx context.Context) (<-chan store.Change, error) {
	w := &watcher{origin: s.origin, ch: make(chan store.Change, watchBuffer)}

	s.hub.mu.Lock()
	s.hub.watchers[w] = struct{}{}
	s.hub.mu.Unlock()

	out := make(chan store.Change)
	go func() {
		defer close(out)
		defer func() {
			s.hub.mu.Lock()
			delete(s.hub.watchers, w)
			s.hub.mu.Unlock()
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case c := <-w.ch:
				select {
				case out <- c:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
