// Package store defines the persistence boundary of the session manager:
// a small durable key-value contract plus a change feed for writes made by
// other contexts sharing the same backing store.
//
// Adapters live in sub-packages (redis, file, memory). The session facade
// and the cross-context synchronizer depend only on the contracts here, so a
// fake store can always be substituted in tests.
package store

import (
	"context"
	"encoding/json"
	"fmt"
)

// KV is the durable key-value contract. All three operations are
// synchronous and side-effecting on the shared store; failures surface as
// *Error rather than being swallowed.
type KV interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// Watcher delivers changes made by other contexts on the same backing
// store. By contract the feed never carries a context's own writes: every
// adapter stamps an origin id on outgoing changes and filters it on the way
// in. The channel closes when ctx is done or the adapter shuts down.
type Watcher interface {
	Watch(ctx context.Context) (<-chan Change, error)
}

// WatchKV combines KV and Watcher; every adapter in this module implements
// it.
type WatchKV interface {
	KV
	Watcher
}

// Change describes one foreign write. A removed key has NewPresent false;
// a freshly created key has OldPresent false. Origin identifies the writing
// context and is what keeps a context from observing itself.
type Change struct {
	Key        string `json:"key"`
	OldValue   string `json:"old_value,omitempty"`
	NewValue   string `json:"new_value,omitempty"`
	OldPresent bool   `json:"old_present"`
	NewPresent bool   `json:"new_present"`
	Origin     string `json:"origin"`
}

// Error wraps a storage failure with the operation and key it occurred on.
type Error struct {
	Op  string
	Key string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("store: %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError builds a *Error. Adapters use it so callers can match on the
// type regardless of backend.
func NewError(op, key string, err error) *Error {
	return &Error{Op: op, Key: key, Err: err}
}

// DecodeJSON is the best-effort parse used for persisted blobs. It treats
// the empty string and the literal text "undefined" as absent — a store
// that once held a stringified missing value must hydrate as "no data",
// not as an error. Malformed JSON is likewise absent. DecodeJSON never
// panics and reports success through its return value only.
func DecodeJSON(raw string, v any) bool {
	if raw == "" || raw == "undefined" {
		return false
	}
	return json.Unmarshal([]byte(raw), v) == nil
}
