// Package cache keeps generated articles keyed by the vocabulary they were
// written for, persisted as a single JSON object in the key/value store.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// StoreKey is the key the whole cache map is persisted under.
const StoreKey = "aiCache"

// Store is the durable key/value store backing the cache.
type Store interface {
	Load(ctx context.Context, key string) (string, bool, error)
	Save(ctx context.Context, key, value string) error
}

// Key carries everything a KeyPolicy may derive a cache key from.
type Key struct {
	Signature  string
	Vocabulary []string
	Template   string
	Model      string
}

// KeyPolicy turns a Key into the string the map is indexed by.
type KeyPolicy func(Key) string

// BySignature keys entries by the vocabulary signature alone. Two runs with
// the same words hit the same entry even if the prompt or model changed.
func BySignature(k Key) string { return k.Signature }

// ByContent keys entries by a digest of vocabulary, template and model.
func ByContent(k Key) string {
	h := sha256.New()
	for _, v := range k.Vocabulary {
		h.Write([]byte(v))
		h.Write([]byte{0})
	}
	h.Write([]byte{1})
	h.Write([]byte(k.Template))
	h.Write([]byte{1})
	h.Write([]byte(k.Model))
	return hex.EncodeToString(h.Sum(nil))
}

// PolicyByName resolves a policy name from the bootstrap config.
func PolicyByName(name string) (KeyPolicy, error) {
	switch name {
	case "", "signature":
		return BySignature, nil
	case "content":
		return ByContent, nil
	default:
		return nil, fmt.Errorf("unknown cache key policy %q", name)
	}
}

// Cache is the article cache used by the generator.
type Cache interface {
	Lookup(k Key) (string, bool)
	Store(ctx context.Context, k Key, text string) error
	Len() int
	Clear(ctx context.Context) error
}

// ArticleCache is a Cache that writes the whole map through to a Store on
// every change. Entries are never evicted.
type ArticleCache struct {
	mu      sync.RWMutex
	store   Store
	policy  KeyPolicy
	logger  *zap.Logger
	entries map[string]string
}

// Open loads the cache from store. An unreadable stored value is treated
// as an empty cache.
func Open(ctx context.Context, store Store, policy KeyPolicy, logger *zap.Logger) (*ArticleCache, error) {
	if policy == nil {
		policy = BySignature
	}
	c := &ArticleCache{
		store:   store,
		policy:  policy,
		logger:  logger,
		entries: map[string]string{},
	}

	raw, ok, err := store.Load(ctx, StoreKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load article cache: %w", err)
	}
	if !ok {
		return c, nil
	}

	var entries map[string]string
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		logger.Warn("article cache is corrupt, starting empty", zap.Error(err))
		return c, nil
	}
	if entries != nil {
		c.entries = entries
	}
	logger.Debug("article cache loaded", zap.Int("entries", len(c.entries)))
	return c, nil
}

// Lookup returns the cached text for k.
func (c *ArticleCache) Lookup(k Key) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	text, ok := c.entries[c.policy(k)]
	return text, ok
}

// Store overwrites the entry for k and persists the whole map. The entry is
// kept in memory even if persisting fails.
func (c *ArticleCache) Store(ctx context.Context, k Key, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[c.policy(k)] = text
	return c.persist(ctx)
}

// Len returns the number of entries.
func (c *ArticleCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Clear drops every entry.
func (c *ArticleCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = map[string]string{}
	return c.persist(ctx)
}

func (c *ArticleCache) persist(ctx context.Context) error {
	data, err := json.Marshal(c.entries)
	if err != nil {
		return fmt.Errorf("failed to marshal article cache: %w", err)
	}
	if err := c.store.Save(ctx, StoreKey, string(data)); err != nil {
		return fmt.Errorf("failed to save article cache: %w", err)
	}
	return nil
}
