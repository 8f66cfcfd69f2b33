package store

import (
	"errors"
	"testing"
)

func TestDecodeJSONAbsentValues(t *testing.T) {
	cases := []string{"", "undefined", "{broken", "\x00"}
	for _, raw := range cases {
		var out map[string]any
		if DecodeJSON(raw, &out) {
			t.Fatalf("DecodeJSON(%q) reported success, want absent", raw)
		}
	}
}

func TestDecodeJSONValid(t *testing.T) {
	var out map[string]any
	if !DecodeJSON(`{"name":"Ada","tier":3}`, &out) {
		t.Fatal("expected decode to succeed")
	}
	if out["name"] != "Ada" {
		t.Fatalf("name = %v, want Ada", out["name"])
	}
}

func TestErrorWrapping(t *testing.T) {
	sentinel := errors.New("backend down")
	wrapped := NewError("set", "token", sentinel)
	if !errors.Is(wrapped, sentinel) {
		t.Fatal("errors.Is must see through the store error")
	}
	var storeErr *Error
	if !errors.As(wrapped, &storeErr) || storeErr.Op != "set" || storeErr.Key != "token" {
		t.Fatalf("errors.As mismatch: %+v", storeErr)
	}
}

func FuzzDecodeJSON(f *testing.F) {
	f.Add("")
	f.Add("undefined")
	f.Add(`{"name":"Ada"}`)
	f.Add(`[1,2,3]`)
	f.Add("{")

	f.Fuzz(func(t *testing.T, input string) {
		var out any
		// Must not panic regardless of input.
		_ = DecodeJSON(input, &out)
	})
}
