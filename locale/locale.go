// Package locale loads message catalogs and tracks the user's language
// choice. Catalogs are TOML files, one per language tag; the selected
// language persists in the same key-value store as the session, so other
// contexts pick it up through the same change feed that mirrors logins.
package locale

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/variel/authstate/store"
	"golang.org/x/text/language"
)

// Bundle holds the catalogs and the current language. Lookups fall back to
// the bundle's fallback language, then to the key itself, so a missing
// translation renders as its key rather than as an empty string.
type Bundle struct {
	mu       sync.RWMutex
	fallback language.Tag
	tags     []language.Tag
	matcher  language.Matcher
	messages map[string]map[string]string
	current  language.Tag

	kv  store.KV
	key string
}

// Load reads every *.toml file in dir as one language catalog; the file
// stem is the language tag ("en.toml", "am.toml", ...). Nested TOML tables
// flatten into dotted keys. fallback must name one of the loaded catalogs.
func Load(dir, fallback string) (*Bundle, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("locale: read catalog dir: %w", err)
	}

	messages := make(map[string]map[string]string)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".toml") {
			continue
		}
		tag := strings.TrimSuffix(entry.Name(), ".toml")

		var raw map[string]any
		if _, err := toml.DecodeFile(filepath.Join(dir, entry.Name()), &raw); err != nil {
			return nil, fmt.Errorf("locale: parse %s: %w", entry.Name(), err)
		}

		flat := make(map[string]string)
		flatten("", raw, flat)
		messages[tag] = flat
	}

	return NewBundle(fallback, messages)
}

// NewBundle builds a bundle from in-memory catalogs keyed by language tag.
func NewBundle(fallback string, messages map[string]map[string]string) (*Bundle, error) {
	fallbackTag, err := language.Parse(fallback)
	if err != nil {
		return nil, fmt.Errorf("locale: fallback tag %q: %w", fallback, err)
	}
	if _, ok := messages[fallback]; !ok {
		return nil, fmt.Errorf("locale: no catalog for fallback language %q", fallback)
	}

	// The fallback goes first: the matcher returns it for preferences it
	// cannot place.
	tags := []language.Tag{fallbackTag}
	for name := range messages {
		if name == fallback {
			continue
		}
		tag, err := language.Parse(name)
		if err != nil {
			return nil, fmt.Errorf("locale: catalog tag %q: %w", name, err)
		}
		tags = append(tags, tag)
	}

	return &Bundle{
		fallback: fallbackTag,
		tags:     tags,
		matcher:  language.NewMatcher(tags),
		messages: messages,
		current:  fallbackTag,
	}, nil
}

func flatten(prefix string, raw map[string]any, out map[string]string) {
	for key, value := range raw {
		full := key
		if prefix != "" {
			full = prefix + "." + key
		}
		switch v := value.(type) {
		case string:
			out[full] = v
		case map[string]any:
			flatten(full, v, out)
		}
	}
}

// Languages lists the available catalog tags, fallback first.
func (b *Bundle) Languages() []string {
	out := make([]string, len(b.tags))
	for i, tag := range b.tags {
		out[i] = tag.String()
	}
	return out
}

// Language returns the currently selected language tag.
func (b *Bundle) Language() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.current.String()
}

// T looks key up in the current catalog, then the fallback catalog, then
// returns the key itself.
func (b *Bundle) T(key string) string {
	b.mu.RLock()
	current := b.current.String()
	b.mu.RUnlock()

	if msg, ok := b.messages[current][key]; ok {
		return msg
	}
	if msg, ok := b.messages[b.fallback.String()][key]; ok {
		return msg
	}
	return key
}

// Match resolves an Accept-Language style preference list to the best
// supported catalog tag. Unplaceable preferences resolve to the fallback.
func (b *Bundle) Match(prefs string) string {
	_, index := language.MatchStrings(b.matcher, prefs)
	if index < 0 || index >= len(b.tags) {
		return b.fallback.String()
	}
	return b.tags[index].String()
}

// Bind attaches the bundle to the durable store under key, so SetLanguage
// persists and other contexts can mirror the choice.
func (b *Bundle) Bind(kv store.KV, key string) {
	b.mu.Lock()
	b.kv = kv
	b.key = key
	b.mu.Unlock()
}

// HydrateLanguage reads the persisted choice, if any, and applies it when
// supported. An unknown or corrupt value is ignored; the fallback stands.
func (b *Bundle) HydrateLanguage(ctx context.Context) error {
	b.mu.RLock()
	kv, key := b.kv, b.key
	b.mu.RUnlock()
	if kv == nil {
		return nil
	}

	raw, ok, err := kv.Get(ctx, key)
	if err != nil {
		return err
	}
	if ok {
		b.ApplyRemote(raw)
	}
	return nil
}

// SetLanguage switches the current language and persists the choice when
// the bundle is bound to a store. Unsupported tags snap to the closest
// supported one.
func (b *Bundle) SetLanguage(ctx context.Context, lang string) error {
	resolved := b.Match(lang)

	tag, err := language.Parse(resolved)
	if err != nil {
		return fmt.Errorf("locale: language %q: %w", lang, err)
	}

	b.mu.Lock()
	b.current = tag
	kv, key := b.kv, b.key
	b.mu.Unlock()

	if kv == nil {
		return nil
	}
	return kv.Set(ctx, key, resolved)
}

// ApplyRemote mirrors a language choice made by another context. It never
// writes the store back; the originating context already did. Wire it to
// Manager.OnLanguageChange.
func (b *Bundle) ApplyRemote(lang string) {
	resolved := b.Match(lang)
	tag, err := language.Parse(resolved)
	if err != nil {
		return
	}
	b.mu.Lock()
	b.current = tag
	b.mu.Unlock()
}
