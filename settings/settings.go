// Package settings holds the generation configuration: endpoint credentials,
// sampling parameters, Anki field mapping and the prompt template.
package settings

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"reading-gen/llm"
)

// Placeholder is replaced by the vocabulary list when the prompt is rendered.
const Placeholder = llm.Placeholder

// StoreKey is the key the whole configuration is persisted under.
const StoreKey = "aiConfig"

//go:embed default_settings.json
var defaultSettingsJSON []byte

// Settings is the flat generation configuration record.
type Settings struct {
	// Completion endpoint
	APIToken   string `json:"api_token"`
	RequestURL string `json:"request_url" validate:"omitempty,url"`
	ModelName  string `json:"model_name"`

	// Sampling
	MaxTokens        int      `json:"max_tokens" validate:"gte=1,lte=131072"`
	Temperature      float64  `json:"temperature" validate:"gte=0,lte=1"`
	TopP             float64  `json:"top_p" validate:"gte=0,lte=1"`
	TopK             int      `json:"top_k" validate:"gte=0,lte=1000"`
	FrequencyPenalty float64  `json:"frequency_penalty" validate:"gte=-2,lte=2"`
	StopSequences    []string `json:"stop_sequences"`

	// Anki
	InputFieldName  string `json:"input_field_name"`
	OutputFieldName string `json:"output_field_name"`
	NoteTypeName    string `json:"note_type_name"`
	DeckName        string `json:"deck_name"`
	AddToCard       bool   `json:"add_to_card"`

	PromptTemplate string `json:"prompt_template" validate:"required"`
	EnableCache    bool   `json:"enable_cache"`
}

// Defaults returns the bundled default configuration.
func Defaults() Settings {
	var s Settings
	if err := json.Unmarshal(defaultSettingsJSON, &s); err != nil {
		panic(fmt.Sprintf("settings: invalid embedded defaults: %v", err))
	}
	return s
}

// Clone returns a deep copy.
func (s Settings) Clone() Settings {
	out := s
	if s.StopSequences != nil {
		out.StopSequences = append(make([]string, 0, len(s.StopSequences)), s.StopSequences...)
	}
	return out
}

// Clamped returns a copy with every numeric field forced into its range.
func (s Settings) Clamped() Settings {
	out := s.Clone()
	out.MaxTokens = clampInt(out.MaxTokens, 1, 131072)
	out.Temperature = clampFloat(out.Temperature, 0, 1)
	out.TopP = clampFloat(out.TopP, 0, 1)
	out.TopK = clampInt(out.TopK, 0, 1000)
	out.FrequencyPenalty = clampFloat(out.FrequencyPenalty, -2, 2)
	return out
}

// PlaceholderCount reports how many times Placeholder occurs in the template.
func (s Settings) PlaceholderCount() int {
	return strings.Count(s.PromptTemplate, Placeholder)
}

// MaskedToken returns the API token with everything but the last four
// characters hidden.
func (s Settings) MaskedToken() string {
	if len(s.APIToken) <= 4 {
		return strings.Repeat("*", len(s.APIToken))
	}
	return strings.Repeat("*", len(s.APIToken)-4) + s.APIToken[len(s.APIToken)-4:]
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
