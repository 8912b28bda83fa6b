package cache

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"reading-gen/db"
)

type memStore struct {
	data    map[string]string
	saveErr error
}

func (s *memStore) Load(_ context.Context, key string) (string, bool, error) {
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *memStore) Save(_ context.Context, key, value string) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.data[key] = value
	return nil
}

func key(sig string) Key {
	return Key{Signature: sig, Vocabulary: []string{sig}, Template: "{vocab_list}", Model: "m"}
}

func TestStoreAndLookup(t *testing.T) {
	store := &memStore{data: map[string]string{}}
	c, err := Open(context.Background(), store, BySignature, zap.NewNop())
	require.NoError(t, err)

	_, ok := c.Lookup(key("猫, 犬"))
	assert.False(t, ok)

	require.NoError(t, c.Store(context.Background(), key("猫, 犬"), "story one"))
	text, ok := c.Lookup(key("猫, 犬"))
	require.True(t, ok)
	assert.Equal(t, "story one", text)

	require.NoError(t, c.Store(context.Background(), key("猫, 犬"), "story two"))
	text, _ = c.Lookup(key("猫, 犬"))
	assert.Equal(t, "story two", text)
	assert.Equal(t, 1, c.Len())

	var persisted map[string]string
	require.NoError(t, json.Unmarshal([]byte(store.data[StoreKey]), &persisted))
	assert.Equal(t, map[string]string{"猫, 犬": "story two"}, persisted)
}

func TestOpenCorruptValueIsEmpty(t *testing.T) {
	store := &memStore{data: map[string]string{StoreKey: "[1,2"}}
	c, err := Open(context.Background(), store, BySignature, zap.NewNop())
	require.NoError(t, err)
	assert.Zero(t, c.Len())

	require.NoError(t, c.Store(context.Background(), key("a"), "x"))
	assert.Equal(t, 1, c.Len())
}

func TestOpenNullValueIsEmpty(t *testing.T) {
	store := &memStore{data: map[string]string{StoreKey: "null"}}
	c, err := Open(context.Background(), store, nil, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, c.Store(context.Background(), key("a"), "x"))
}

func TestStoreKeepsEntryWhenSaveFails(t *testing.T) {
	store := &memStore{data: map[string]string{}, saveErr: errors.New("read-only")}
	c, err := Open(context.Background(), store, BySignature, zap.NewNop())
	require.NoError(t, err)

	assert.Error(t, c.Store(context.Background(), key("a"), "x"))
	text, ok := c.Lookup(key("a"))
	assert.True(t, ok)
	assert.Equal(t, "x", text)
}

func TestByContentPolicy(t *testing.T) {
	store := &memStore{data: map[string]string{}}
	c, err := Open(context.Background(), store, ByContent, zap.NewNop())
	require.NoError(t, err)

	k := key("猫")
	require.NoError(t, c.Store(context.Background(), k, "story"))

	other := k
	other.Model = "another-model"
	_, ok := c.Lookup(other)
	assert.False(t, ok, "a different model must miss")

	_, ok = c.Lookup(k)
	assert.True(t, ok)

	// Signature alone collides, content does not.
	a := Key{Vocabulary: []string{"ab", "c"}}
	b := Key{Vocabulary: []string{"a", "bc"}}
	assert.NotEqual(t, ByContent(a), ByContent(b))
}

func TestPolicyByName(t *testing.T) {
	p, err := PolicyByName("")
	require.NoError(t, err)
	assert.Equal(t, "sig", p(Key{Signature: "sig"}))

	p, err = PolicyByName("content")
	require.NoError(t, err)
	assert.Len(t, p(Key{Signature: "sig"}), 64)

	_, err = PolicyByName("lru")
	assert.Error(t, err)
}

func TestClear(t *testing.T) {
	store := &memStore{data: map[string]string{}}
	c, err := Open(context.Background(), store, BySignature, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, c.Store(context.Background(), key("a"), "x"))

	require.NoError(t, c.Clear(context.Background()))
	assert.Zero(t, c.Len())
	assert.Equal(t, "{}", store.data[StoreKey])
}

func TestSurvivesReopenOnSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reading.db")
	ctx := context.Background()

	database, err := db.New(path)
	require.NoError(t, err)
	c, err := Open(ctx, database, BySignature, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, c.Store(ctx, key("猫"), "persisted"))
	require.NoError(t, database.Close())

	database, err = db.New(path)
	require.NoError(t, err)
	defer database.Close()
	c, err = Open(ctx, database, BySignature, zap.NewNop())
	require.NoError(t, err)
	text, ok := c.Lookup(key("猫"))
	require.True(t, ok)
	assert.Equal(t, "persisted", text)
}
