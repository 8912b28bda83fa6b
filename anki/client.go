// Package anki talks to the AnkiConnect add-on over its local JSON-RPC
// style endpoint.
package anki

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Client is an AnkiConnect client. It must be initialized with Init (or
// CheckConnection followed by RegisterCORSOrigins) before cards can be read
// or notes written.
type Client struct {
	url    string
	http   *resty.Client
	logger *zap.Logger

	mu         sync.RWMutex
	state      State
	apiVersion int
}

// New creates a client for the AnkiConnect endpoint at url. An empty url
// means DefaultURL.
func New(url string, logger *zap.Logger) *Client {
	if url == "" {
		url = DefaultURL
	}
	return &Client{
		url:    url,
		http:   resty.New(),
		logger: logger,
	}
}

// State returns the current lifecycle state.
func (c *Client) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Ready reports whether card and note operations are permitted.
func (c *Client) Ready() bool {
	return c.State() == StateReady
}

// APIVersion returns the version reported by the version request.
func (c *Client) APIVersion() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.apiVersion
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// Init checks the endpoint and registers origins. A *ConnectivityError is
// fatal; a *CORSError is not and leaves the client Ready.
func (c *Client) Init(ctx context.Context, origins []string) error {
	if err := c.CheckConnection(ctx); err != nil {
		return err
	}
	return c.RegisterCORSOrigins(ctx, origins)
}

// CheckConnection sends the version request.
func (c *Client) CheckConnection(ctx context.Context) error {
	var version int
	if err := c.invoke(ctx, "version", nil, &version); err != nil {
		c.setState(StateUninitialized)
		var connErr *ConnectivityError
		if errors.As(err, &connErr) {
			return connErr
		}
		return &ConnectivityError{Action: "version", Err: err}
	}

	c.mu.Lock()
	c.apiVersion = version
	if c.state == StateUninitialized {
		c.state = StateConnected
	}
	c.mu.Unlock()

	c.logger.Info("connected to AnkiConnect", zap.String("url", c.url), zap.Int("version", version))
	return nil
}

// RegisterCORSOrigins adds origins to AnkiConnect's webCorsOriginList. The
// client becomes Ready after the attempt whether or not it succeeded.
func (c *Client) RegisterCORSOrigins(ctx context.Context, origins []string) error {
	if c.State() == StateUninitialized {
		return ErrNotInitialized
	}
	defer c.setState(StateReady)

	params := map[string]any{"webCorsOriginList": origins}
	if err := c.invoke(ctx, "updateConfig", params, nil); err != nil {
		c.logger.Warn("failed to update AnkiConnect config", zap.Error(err))
		return &CORSError{Err: err}
	}

	c.logger.Info("AnkiConnect CORS origins updated", zap.Strings("origins", origins))
	return nil
}

// FindTodayLearnedCardIDs returns the ids of cards reviewed today. No match
// is an empty result, not an error.
func (c *Client) FindTodayLearnedCardIDs(ctx context.Context) ([]int64, error) {
	if !c.Ready() {
		return nil, ErrNotInitialized
	}

	var ids []int64
	params := map[string]any{"query": TodayQuery}
	if err := c.invoke(ctx, "findCards", params, &ids); err != nil {
		return nil, err
	}

	c.logger.Debug("found today's cards", zap.Int("count", len(ids)))
	return ids, nil
}

// FetchCardFields loads card details for ids. Ids AnkiConnect cannot
// resolve are silently dropped.
func (c *Client) FetchCardFields(ctx context.Context, ids []int64) ([]Card, error) {
	if !c.Ready() {
		return nil, ErrNotInitialized
	}
	if len(ids) == 0 {
		return nil, nil
	}

	var raw []Card
	params := map[string]any{"cards": ids}
	if err := c.invoke(ctx, "cardsInfo", params, &raw); err != nil {
		return nil, err
	}

	cards := make([]Card, 0, len(raw))
	for _, card := range raw {
		if card.CardID == 0 {
			continue
		}
		cards = append(cards, card)
	}
	if len(cards) < len(ids) {
		c.logger.Warn("some cards could not be resolved", zap.Int("requested", len(ids)), zap.Int("resolved", len(cards)))
	}
	return cards, nil
}

// CreateNote adds a note holding content in a single field and returns the
// new note id.
func (c *Client) CreateNote(ctx context.Context, req NoteRequest) (int64, error) {
	if !c.Ready() {
		return 0, ErrNotInitialized
	}

	params := addNoteParams{Note: note{
		DeckName:  req.DeckName,
		ModelName: req.NoteTypeName,
		Fields:    map[string]string{req.FieldName: req.Content},
		Options:   noteOptions{AllowDuplicate: false},
		Tags:      []string{NoteTag},
	}}

	var noteID *int64
	if err := c.invoke(ctx, "addNote", params, &noteID); err != nil {
		return 0, &NoteCreationError{Err: err}
	}
	if noteID == nil {
		return 0, &NoteCreationError{Err: errors.New("AnkiConnect returned no note id")}
	}

	c.logger.Info("note added", zap.Int64("note_id", *noteID), zap.String("deck", req.DeckName))
	return *noteID, nil
}

// invoke performs one action. Transport failures and non-2xx statuses are
// reported as *ConnectivityError, an error payload as *APIError.
func (c *Client) invoke(ctx context.Context, action string, params any, out any) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(request{Action: action, Version: APIVersion, Params: params}).
		Post(c.url)
	if err != nil {
		return &ConnectivityError{Action: action, Err: err}
	}
	if resp.IsError() {
		return &ConnectivityError{Action: action, Err: fmt.Errorf("unexpected status %s", resp.Status())}
	}

	var env response
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", action, err)
	}
	if env.Error != nil {
		return &APIError{Action: action, Message: *env.Error}
	}
	if out != nil && len(env.Result) > 0 {
		if err := json.Unmarshal(env.Result, out); err != nil {
			return fmt.Errorf("failed to decode %s result: %w", action, err)
		}
	}
	return nil
}
