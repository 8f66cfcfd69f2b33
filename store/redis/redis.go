// Package redis provides a Redis store backend. Contexts sharing one Redis
// database see each other's session writes through a pub/sub channel; each
// write captures the previous value server-side so the published change
// carries both old and new state.
package redis

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/variel/authstate/store"
)

// setScript writes the value and returns what was stored before, in one
// round trip, so the change event can carry the old value without a race.
var setScript = goredis.NewScript(`
local old = redis.call("GET", KEYS[1])
redis.call("SET", KEYS[1], ARGV[1])
return old
`)

var removeScript = goredis.NewScript(`
local old = redis.call("GET", KEYS[1])
if old then
  redis.call("DEL", KEYS[1])
end
return old
`)

// Store implements store.WatchKV on a go-redis client. Keys are namespaced
// under prefix; changes are published on "<prefix>:changes".
type Store struct {
	rdb    *goredis.Client
	prefix string
	origin string
}

// New wraps client with the given key prefix. Every Store gets its own
// origin id; two Stores over the same client behave as two contexts.
func New(client *goredis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = "authstate"
	}
	return &Store{
		rdb:    client,
		prefix: prefix,
		origin: uuid.NewString(),
	}
}

// Origin returns this store handle's context id.
func (s *Store) Origin() string { return s.origin }

func (s *Store) key(key string) string { return s.prefix + ":" + key }

func (s *Store) channel() string { return s.prefix + ":changes" }

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.rdb.Get(ctx, s.key(key)).Result()
	if err == goredis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, store.NewError("get", key, err)
	}
	return v, true, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	old, err := setScript.Run(ctx, s.rdb, []string{s.key(key)}, value).Result()
	if err != nil {
		return store.NewError("set", key, err)
	}

	change := store.Change{
		Key:        key,
		NewValue:   value,
		NewPresent: true,
		Origin:     s.origin,
	}
	if prev, ok := old.(string); ok {
		change.OldValue = prev
		change.OldPresent = true
	}
	return s.publish(ctx, change)
}

func (s *Store) Remove(ctx context.Context, key string) error {
	old, err := removeScript.Run(ctx, s.rdb, []string{s.key(key)}).Result()
	if err != nil && err != goredis.Nil {
		return store.NewError("remove", key, err)
	}

	prev, existed := old.(string)
	if !existed {
		// Nothing was stored; removal is a no-op and nobody needs to hear
		// about it.
		return nil
	}
	return s.publish(ctx, store.Change{
		Key:        key,
		OldValue:   prev,
		OldPresent: true,
		Origin:     s.origin,
	})
}

func (s *Store) publish(ctx context.Context, c store.Change) error {
	payload, err := json.Marshal(c)
	if err != nil {
		return store.NewError("publish", c.Key, err)
	}
	if err := s.rdb.Publish(ctx, s.channel(), payload).Err(); err != nil {
		return store.NewError("publish", c.Key, err)
	}
	return nil
}

// Watch subscribes to the change channel and forwards every change made by
// a different origin. Malformed messages are dropped. The returned channel
// closes when ctx is done.
func (s *Store) Watch(ctx context.Context) (<-chan store.Change, error) {
	pubsub := s.rdb.Subscribe(ctx, s.channel())
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, store.NewError("watch", s.channel(), err)
	}

	out := make(chan store.Change, 16)
	msgs := pubsub.Channel()
	go func() {
		defer close(out)
		defer pubsub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var c store.Change
				if err := json.Unmarshal([]byte(msg.Payload), &c); err != nil {
					continue
				}
				if c.Origin == s.origin {
					continue
				}
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
