package anki

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeAnki struct {
	mu       sync.Mutex
	calls    []string
	requests map[string]map[string]any
	handlers map[string]func(params map[string]any) (any, *string)
}

func newFakeAnki() *fakeAnki {
	f := &fakeAnki{
		requests: map[string]map[string]any{},
		handlers: map[string]func(map[string]any) (any, *string){},
	}
	f.handlers["version"] = func(map[string]any) (any, *string) { return 6, nil }
	f.handlers["updateConfig"] = func(map[string]any) (any, *string) { return true, nil }
	return f
}

func (f *fakeAnki) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Action  string         `json:"action"`
		Version int            `json:"version"`
		Params  map[string]any `json:"params"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	f.calls = append(f.calls, req.Action)
	f.requests[req.Action] = req.Params
	h := f.handlers[req.Action]
	f.mu.Unlock()

	if req.Version != APIVersion {
		msg := "unsupported version"
		writeEnvelope(w, nil, &msg)
		return
	}
	if h == nil {
		msg := "unsupported action"
		writeEnvelope(w, nil, &msg)
		return
	}
	result, errMsg := h(req.Params)
	writeEnvelope(w, result, errMsg)
}

func (f *fakeAnki) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func writeEnvelope(w http.ResponseWriter, result any, errMsg *string) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"result": result, "error": errMsg})
}

func readyClient(t *testing.T, fake *fakeAnki) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	c := New(srv.URL, zap.NewNop())
	require.NoError(t, c.Init(context.Background(), DefaultCORSOrigins))
	require.True(t, c.Ready())
	return c
}

func TestInitReachesReady(t *testing.T) {
	fake := newFakeAnki()
	c := readyClient(t, fake)

	assert.Equal(t, StateReady, c.State())
	assert.Equal(t, 6, c.APIVersion())
	assert.Equal(t, []string{"version", "updateConfig"}, fake.calls)

	origins := fake.requests["updateConfig"]["webCorsOriginList"].([]any)
	assert.Equal(t, []any{"http://localhost:3000", "http://127.0.0.1:3000"}, origins)
}

func TestCheckConnectionUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(url, zap.NewNop())
	err := c.Init(context.Background(), DefaultCORSOrigins)

	var connErr *ConnectivityError
	require.True(t, errors.As(err, &connErr))
	assert.Equal(t, StateUninitialized, c.State())
}

func TestCheckConnectionErrorPayload(t *testing.T) {
	fake := newFakeAnki()
	fake.handlers["version"] = func(map[string]any) (any, *string) {
		msg := "permission denied"
		return nil, &msg
	}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	c := New(srv.URL, zap.NewNop())
	err := c.CheckConnection(context.Background())

	var connErr *ConnectivityError
	require.True(t, errors.As(err, &connErr))
	assert.Contains(t, err.Error(), "permission denied")
	assert.False(t, c.Ready())
}

func TestCORSFailureStillReady(t *testing.T) {
	fake := newFakeAnki()
	fake.handlers["updateConfig"] = func(map[string]any) (any, *string) {
		msg := "config locked"
		return nil, &msg
	}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	c := New(srv.URL, zap.NewNop())
	err := c.Init(context.Background(), DefaultCORSOrigins)

	var corsErr *CORSError
	require.True(t, errors.As(err, &corsErr))
	assert.True(t, c.Ready())
}

func TestOperationsBeforeReadyMakeNoCalls(t *testing.T) {
	fake := newFakeAnki()
	srv := httptest.NewServer(fake)
	defer srv.Close()
	c := New(srv.URL, zap.NewNop())
	ctx := context.Background()

	_, err := c.FindTodayLearnedCardIDs(ctx)
	assert.ErrorIs(t, err, ErrNotInitialized)

	_, err = c.FetchCardFields(ctx, []int64{1})
	assert.ErrorIs(t, err, ErrNotInitialized)

	_, err = c.CreateNote(ctx, NoteRequest{})
	assert.ErrorIs(t, err, ErrNotInitialized)

	assert.ErrorIs(t, c.RegisterCORSOrigins(ctx, nil), ErrNotInitialized)
	assert.Zero(t, fake.callCount())
}

func TestFindTodayLearnedCardIDs(t *testing.T) {
	fake := newFakeAnki()
	fake.handlers["findCards"] = func(params map[string]any) (any, *string) {
		return []int64{11, 22}, nil
	}
	c := readyClient(t, fake)

	ids, err := c.FindTodayLearnedCardIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int64{11, 22}, ids)
	assert.Equal(t, TodayQuery, fake.requests["findCards"]["query"])
}

func TestFindTodayLearnedCardIDsEmpty(t *testing.T) {
	fake := newFakeAnki()
	fake.handlers["findCards"] = func(map[string]any) (any, *string) { return []int64{}, nil }
	c := readyClient(t, fake)

	ids, err := c.FindTodayLearnedCardIDs(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestFetchCardFieldsDropsUnresolvable(t *testing.T) {
	fake := newFakeAnki()
	fake.handlers["cardsInfo"] = func(params map[string]any) (any, *string) {
		return []any{
			map[string]any{"cardId": 11, "fields": map[string]any{"VocabKanji": map[string]any{"value": "<b>猫</b>", "order": 0}}},
			map[string]any{},
			map[string]any{"cardId": 33, "fields": map[string]any{"VocabKanji": map[string]any{"value": "犬", "order": 0}}},
		}, nil
	}
	c := readyClient(t, fake)

	cards, err := c.FetchCardFields(context.Background(), []int64{11, 22, 33})
	require.NoError(t, err)
	require.Len(t, cards, 2)
	assert.Equal(t, int64(11), cards[0].CardID)
	assert.Equal(t, int64(33), cards[1].CardID)
	assert.Equal(t, []any{float64(11), float64(22), float64(33)}, fake.requests["cardsInfo"]["cards"])
}

func TestCreateNote(t *testing.T) {
	fake := newFakeAnki()
	fake.handlers["addNote"] = func(map[string]any) (any, *string) { return 1700000000000, nil }
	c := readyClient(t, fake)

	id, err := c.CreateNote(context.Background(), NoteRequest{
		DeckName:     "Default",
		NoteTypeName: "Basic",
		FieldName:    "Reading",
		Content:      "むかしむかし",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000000), id)

	n := fake.requests["addNote"]["note"].(map[string]any)
	assert.Equal(t, "Default", n["deckName"])
	assert.Equal(t, "Basic", n["modelName"])
	assert.Equal(t, map[string]any{"Reading": "むかしむかし"}, n["fields"])
	assert.Equal(t, []any{NoteTag}, n["tags"])
	assert.Equal(t, map[string]any{"allowDuplicate": false}, n["options"])
}

func TestCreateNoteApplicationError(t *testing.T) {
	fake := newFakeAnki()
	fake.handlers["addNote"] = func(map[string]any) (any, *string) {
		msg := "cannot create note because it is a duplicate"
		return nil, &msg
	}
	c := readyClient(t, fake)

	_, err := c.CreateNote(context.Background(), NoteRequest{DeckName: "Default", NoteTypeName: "Basic", FieldName: "Reading", Content: "x"})

	var noteErr *NoteCreationError
	require.True(t, errors.As(err, &noteErr))
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "addNote", apiErr.Action)
}

func TestCreateNoteHTTPFailure(t *testing.T) {
	var fail bool
	fake := newFakeAnki()
	fake.handlers["addNote"] = func(map[string]any) (any, *string) { return 1, nil }
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		fake.ServeHTTP(w, r)
	}))
	defer srv.Close()

	c := New(srv.URL, zap.NewNop())
	require.NoError(t, c.Init(context.Background(), nil))

	fail = true
	_, err := c.CreateNote(context.Background(), NoteRequest{FieldName: "Reading"})

	var noteErr *NoteCreationError
	require.True(t, errors.As(err, &noteErr))
	var connErr *ConnectivityError
	assert.True(t, errors.As(err, &connErr))
}
