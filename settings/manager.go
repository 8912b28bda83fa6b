package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Store is the durable key/value store the configuration lives in.
type Store interface {
	Load(ctx context.Context, key string) (string, bool, error)
	Save(ctx context.Context, key, value string) error
}

// Manager owns the current configuration. It is loaded once and only
// changed through Apply.
type Manager struct {
	mu      sync.RWMutex
	store   Store
	logger  *zap.Logger
	current Settings
	warning string
}

// Open loads the configuration from the store. An absent value yields the
// bundled defaults; a value that cannot be parsed also yields the defaults
// and sets Warning. Only a failing store returns an error.
func Open(ctx context.Context, store Store, logger *zap.Logger) (*Manager, error) {
	m := &Manager{store: store, logger: logger}

	raw, ok, err := store.Load(ctx, StoreKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	switch {
	case !ok:
		m.current = Defaults()
		logger.Info("no stored configuration, using defaults")
	default:
		s, err := decodeStored(raw)
		if err != nil {
			m.current = Defaults()
			m.warning = "Stored configuration is unreadable, using defaults"
			logger.Warn("stored configuration is corrupt, falling back to defaults", zap.Error(err))
		} else {
			m.current = s
		}
	}

	return m, nil
}

// decodeStored parses a stored value and clamps it. A value that parses but
// still breaks the invariants, such as null or a doubled placeholder, is
// rejected like unparsable JSON.
func decodeStored(raw string) (Settings, error) {
	var s Settings
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return Settings{}, err
	}
	s = s.Clamped()
	if err := Validate(s); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Current returns a copy of the active configuration.
func (m *Manager) Current() Settings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current.Clone()
}

// Warning is non-empty when Open fell back to defaults because of a
// corrupt stored value.
func (m *Manager) Warning() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.warning
}

// Apply merges the patch onto the current configuration, validates the
// result and persists the whole object. On any violation nothing changes.
func (m *Manager) Apply(ctx context.Context, p Patch) (Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := p.Merge(m.current)
	if err := Validate(next); err != nil {
		m.logger.Warn("configuration patch rejected", zap.Error(err))
		return m.current.Clone(), err
	}

	if err := m.persist(ctx, next); err != nil {
		return m.current.Clone(), err
	}

	m.current = next
	m.logger.Info("configuration saved")
	return next.Clone(), nil
}

// Reset replaces the configuration with the bundled defaults.
func (m *Manager) Reset(ctx context.Context) (Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := Defaults()
	if err := m.persist(ctx, next); err != nil {
		return m.current.Clone(), err
	}
	m.current = next
	m.warning = ""
	return next.Clone(), nil
}

func (m *Manager) persist(ctx context.Context, s Settings) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration: %w", err)
	}
	if err := m.store.Save(ctx, StoreKey, string(data)); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}
	return nil
}
