package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/variel/authstate/store"
)

func newStoreTest(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state.json")
	s, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s, path
}

func TestRoundTrip(t *testing.T) {
	s, _ := newStoreTest(t)
	ctx := context.Background()

	if _, ok, _ := s.Get(ctx, "token"); ok {
		t.Fatal("fresh store must report absent")
	}

	if err := s.Set(ctx, "token", "abc"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	v, ok, err := s.Get(ctx, "token")
	if err != nil || !ok || v != "abc" {
		t.Fatalf("Get = %q, %v, %v", v, ok, err)
	}

	if err := s.Remove(ctx, "token"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "token"); ok {
		t.Fatal("removed key must be absent")
	}
}

func TestPersistsAcrossHandles(t *testing.T) {
	s, path := newStoreTest(t)
	ctx := context.Background()

	if err := s.Set(ctx, "user", `{"name":"Ada"}`); err != nil {
		t.Fatalf("Set: %v", err)
	}

	reopened, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	v, ok, _ := reopened.Get(ctx, "user")
	if !ok || v != `{"name":"Ada"}` {
		t.Fatalf("reopened handle sees %q, %v", v, ok)
	}
}

func TestCorruptFileDegradesToEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("seed: %v", err)
	}

	s, err := New(path)
	if err != nil {
		t.Fatalf("New must tolerate a corrupt file: %v", err)
	}
	if _, ok, err := s.Get(context.Background(), "token"); ok || err != nil {
		t.Fatalf("corrupt file must read as empty, ok=%v err=%v", ok, err)
	}
}

func TestWatchSeesOtherProcessWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	a, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	b, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := a.Watch(ctx)
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}

	if err := b.Set(ctx, "token", "t1"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	select {
	case c := <-ch:
		if c.Key != "token" || c.NewValue != "t1" || !c.NewPresent {
			t.Fatalf("unexpected change: %+v", c)
		}
		if c.Origin != b.Origin() {
			t.Fatalf("change origin = %q, want %q", c.Origin, b.Origin())
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watcher never saw the other handle's write")
	}
}

func TestWatchSuppressesOwnWrites(t *testing.T) {
	s, _ := newStoreTest(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := s.Watch(ctx)
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}

	if err := s.Set(ctx, "token", "mine"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	select {
	case c := <-ch:
		t.Fatalf("own write must not notify, got %+v", c)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatchReportsRemoval(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	a, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := a.Set(ctx, "token", "t1"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	// Open the second handle after the seed write so it starts from the
	// populated snapshot.
	b, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ch, err := b.Watch(ctx)
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}

	if err := a.Remove(ctx, "token"); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	select {
	case c := <-ch:
		want := store.Change{Key: "token", OldValue: "t1", OldPresent: true, Origin: a.Origin()}
		if c != want {
			t.Fatalf("change = %+v, want %+v", c, want)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("removal never notified")
	}
}
