package settings

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"reading-gen/llm"
)

type memStore struct {
	data    map[string]string
	saves   int
	saveErr error
}

func newMemStore() *memStore { return &memStore{data: map[string]string{}} }

func (s *memStore) Load(_ context.Context, key string) (string, bool, error) {
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *memStore) Save(_ context.Context, key, value string) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saves++
	s.data[key] = value
	return nil
}

func TestDefaults(t *testing.T) {
	d := Defaults()
	assert.Equal(t, 4096, d.MaxTokens)
	assert.Equal(t, "VocabKanji", d.InputFieldName)
	assert.Equal(t, "Reading", d.OutputFieldName)
	assert.Equal(t, "Basic", d.NoteTypeName)
	assert.Equal(t, "Default", d.DeckName)
	assert.True(t, d.EnableCache)
	assert.True(t, d.AddToCard)
	assert.Equal(t, 1, d.PlaceholderCount())
	assert.NoError(t, Validate(d))
}

func TestClamped(t *testing.T) {
	s := Defaults()
	s.Temperature = 1.8
	s.TopP = -0.2
	s.MaxTokens = 0
	s.TopK = 5000
	s.FrequencyPenalty = -9

	c := s.Clamped()
	assert.Equal(t, 1.0, c.Temperature)
	assert.Equal(t, 0.0, c.TopP)
	assert.Equal(t, 1, c.MaxTokens)
	assert.Equal(t, 1000, c.TopK)
	assert.Equal(t, -2.0, c.FrequencyPenalty)
	// original untouched
	assert.Equal(t, 1.8, s.Temperature)
}

func TestValidatePlaceholder(t *testing.T) {
	s := Defaults()

	s.PromptTemplate = "no placeholder here"
	assert.Error(t, Validate(s))

	s.PromptTemplate = "{vocab_list} and again {vocab_list}"
	assert.Error(t, Validate(s))

	s.PromptTemplate = "Write a story with: {vocab_list}"
	assert.NoError(t, Validate(s))
}

func TestValidateRanges(t *testing.T) {
	s := Defaults()
	s.Temperature = 1.5
	s.TopP = 2

	err := Validate(s)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Len(t, verr.Problems, 2)
	assert.Contains(t, err.Error(), "temperature")
	assert.Contains(t, err.Error(), "top_p")
}

func TestPatchFromValues(t *testing.T) {
	p, err := PatchFromValues(map[string]string{
		"temperature":    "0.3",
		"max_tokens":     "512",
		"stop_sequences": " END , ,STOP ",
		"add_to_card":    "false",
	})
	require.NoError(t, err)

	merged := p.Merge(Defaults())
	assert.Equal(t, 0.3, merged.Temperature)
	assert.Equal(t, 512, merged.MaxTokens)
	assert.Equal(t, []string{"END", "STOP"}, merged.StopSequences)
	assert.False(t, merged.AddToCard)
	assert.Equal(t, Defaults().PromptTemplate, merged.PromptTemplate)
}

func TestPatchFromValuesRejectsBadInput(t *testing.T) {
	_, err := PatchFromValues(map[string]string{
		"temperature": "warm",
		"colour":      "blue",
	})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Len(t, verr.Problems, 2)
}

func TestValuesRoundTrip(t *testing.T) {
	d := Defaults()
	p, err := PatchFromValues(d.Values())
	require.NoError(t, err)
	assert.Equal(t, d, p.Merge(Settings{}))
}

func TestOpenWithoutStoredValueUsesDefaults(t *testing.T) {
	m, err := Open(context.Background(), newMemStore(), zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, Defaults(), m.Current())
	assert.Empty(t, m.Warning())
}

func TestOpenCorruptValueFallsBackWithWarning(t *testing.T) {
	store := newMemStore()
	store.data[StoreKey] = "{not json"

	m, err := Open(context.Background(), store, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, Defaults(), m.Current())
	assert.NotEmpty(t, m.Warning())
}

func TestOpenInvalidStoredValueFallsBackWithWarning(t *testing.T) {
	doubled := Defaults()
	doubled.PromptTemplate = "words: {vocab_list} {vocab_list}"
	doubledJSON, err := json.Marshal(doubled)
	require.NoError(t, err)

	tests := map[string]string{
		"null":                "null",
		"empty object":        "{}",
		"doubled placeholder": string(doubledJSON),
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			store := newMemStore()
			store.data[StoreKey] = raw

			m, err := Open(context.Background(), store, zap.NewNop())
			require.NoError(t, err)
			assert.Equal(t, Defaults(), m.Current())
			assert.NotEmpty(t, m.Warning())
			assert.NoError(t, Validate(m.Current()))
		})
	}
}

func TestPlaceholderMatchesPromptRendering(t *testing.T) {
	assert.Equal(t, llm.Placeholder, Placeholder)

	prompt := llm.RenderPrompt(Defaults().PromptTemplate, "猫, 犬")
	assert.NotContains(t, prompt, Placeholder)
	assert.Contains(t, prompt, "猫, 犬")
}

func TestOpenClampsStoredValues(t *testing.T) {
	store := newMemStore()
	s := Defaults()
	s.Temperature = 3
	data, _ := json.Marshal(s)
	store.data[StoreKey] = string(data)

	m, err := Open(context.Background(), store, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 1.0, m.Current().Temperature)
}

func TestApplyPersistsWholeObject(t *testing.T) {
	store := newMemStore()
	m, err := Open(context.Background(), store, zap.NewNop())
	require.NoError(t, err)

	model := "gpt-4o-mini"
	updated, err := m.Apply(context.Background(), Patch{ModelName: &model})
	require.NoError(t, err)
	assert.Equal(t, model, updated.ModelName)
	assert.Equal(t, 1, store.saves)

	var saved Settings
	require.NoError(t, json.Unmarshal([]byte(store.data[StoreKey]), &saved))
	assert.Equal(t, updated, saved)
}

func TestApplyRejectsWholePatch(t *testing.T) {
	store := newMemStore()
	m, err := Open(context.Background(), store, zap.NewNop())
	require.NoError(t, err)

	model := "changed"
	temp := 1.4
	_, err = m.Apply(context.Background(), Patch{ModelName: &model, Temperature: &temp})
	require.Error(t, err)

	assert.Equal(t, Defaults(), m.Current())
	assert.Zero(t, store.saves)
}

func TestApplyKeepsStateWhenSaveFails(t *testing.T) {
	store := newMemStore()
	m, err := Open(context.Background(), store, zap.NewNop())
	require.NoError(t, err)

	store.saveErr = errors.New("disk full")
	deck := "Japanese"
	_, err = m.Apply(context.Background(), Patch{DeckName: &deck})
	require.Error(t, err)
	assert.Equal(t, "Default", m.Current().DeckName)
}

func TestMaskedToken(t *testing.T) {
	assert.Equal(t, "", Settings{}.MaskedToken())
	assert.Equal(t, "***", Settings{APIToken: "abc"}.MaskedToken())
	assert.Equal(t, "******7890", Settings{APIToken: "sk-1234567890"[3:]}.MaskedToken())
}
