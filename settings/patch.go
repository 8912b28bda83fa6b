package settings

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Patch carries the fields to change. Nil fields are left untouched.
type Patch struct {
	APIToken         *string
	RequestURL       *string
	ModelName        *string
	MaxTokens        *int
	Temperature      *float64
	TopP             *float64
	TopK             *int
	FrequencyPenalty *float64
	StopSequences    []string
	SetStopSequences bool
	InputFieldName   *string
	OutputFieldName  *string
	NoteTypeName     *string
	DeckName         *string
	AddToCard        *bool
	PromptTemplate   *string
	EnableCache      *bool
}

// Merge returns base with the patch applied. base is not modified.
func (p Patch) Merge(base Settings) Settings {
	out := base.Clone()
	setString(&out.APIToken, p.APIToken)
	setString(&out.RequestURL, p.RequestURL)
	setString(&out.ModelName, p.ModelName)
	if p.MaxTokens != nil {
		out.MaxTokens = *p.MaxTokens
	}
	if p.Temperature != nil {
		out.Temperature = *p.Temperature
	}
	if p.TopP != nil {
		out.TopP = *p.TopP
	}
	if p.TopK != nil {
		out.TopK = *p.TopK
	}
	if p.FrequencyPenalty != nil {
		out.FrequencyPenalty = *p.FrequencyPenalty
	}
	if p.SetStopSequences {
		out.StopSequences = append([]string{}, p.StopSequences...)
	}
	setString(&out.InputFieldName, p.InputFieldName)
	setString(&out.OutputFieldName, p.OutputFieldName)
	setString(&out.NoteTypeName, p.NoteTypeName)
	setString(&out.DeckName, p.DeckName)
	if p.AddToCard != nil {
		out.AddToCard = *p.AddToCard
	}
	setString(&out.PromptTemplate, p.PromptTemplate)
	if p.EnableCache != nil {
		out.EnableCache = *p.EnableCache
	}
	return out
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

// FieldNames lists the keys accepted by PatchFromValues, in display order.
var FieldNames = []string{
	"api_token", "request_url", "model_name",
	"max_tokens", "temperature", "top_p", "top_k", "frequency_penalty", "stop_sequences",
	"input_field_name", "output_field_name", "note_type_name", "deck_name", "add_to_card",
	"prompt_template", "enable_cache",
}

// PatchFromValues builds a Patch from raw form or command-line values keyed
// by JSON field name. Any unknown key or unparsable value fails the whole
// patch.
func PatchFromValues(values map[string]string) (Patch, error) {
	var p Patch
	var problems []string

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		raw := values[key]
		var err error
		switch key {
		case "api_token":
			p.APIToken = ptr(raw)
		case "request_url":
			p.RequestURL = ptr(strings.TrimSpace(raw))
		case "model_name":
			p.ModelName = ptr(strings.TrimSpace(raw))
		case "max_tokens":
			p.MaxTokens, err = parseInt(raw)
		case "temperature":
			p.Temperature, err = parseFloat(raw)
		case "top_p":
			p.TopP, err = parseFloat(raw)
		case "top_k":
			p.TopK, err = parseInt(raw)
		case "frequency_penalty":
			p.FrequencyPenalty, err = parseFloat(raw)
		case "stop_sequences":
			p.StopSequences = SplitStopSequences(raw)
			p.SetStopSequences = true
		case "input_field_name":
			p.InputFieldName = ptr(strings.TrimSpace(raw))
		case "output_field_name":
			p.OutputFieldName = ptr(strings.TrimSpace(raw))
		case "note_type_name":
			p.NoteTypeName = ptr(strings.TrimSpace(raw))
		case "deck_name":
			p.DeckName = ptr(strings.TrimSpace(raw))
		case "add_to_card":
			p.AddToCard, err = parseBool(raw)
		case "prompt_template":
			p.PromptTemplate = ptr(raw)
		case "enable_cache":
			p.EnableCache, err = parseBool(raw)
		default:
			err = fmt.Errorf("unknown field")
		}
		if err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", key, err))
		}
	}

	if len(problems) > 0 {
		return Patch{}, &ValidationError{Problems: problems}
	}
	return p, nil
}

// SplitStopSequences splits a comma-separated list, trimming whitespace and
// dropping empty entries.
func SplitStopSequences(raw string) []string {
	out := []string{}
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Values renders s as the string map PatchFromValues accepts.
func (s Settings) Values() map[string]string {
	return map[string]string{
		"api_token":         s.APIToken,
		"request_url":       s.RequestURL,
		"model_name":        s.ModelName,
		"max_tokens":        strconv.Itoa(s.MaxTokens),
		"temperature":       strconv.FormatFloat(s.Temperature, 'f', -1, 64),
		"top_p":             strconv.FormatFloat(s.TopP, 'f', -1, 64),
		"top_k":             strconv.Itoa(s.TopK),
		"frequency_penalty": strconv.FormatFloat(s.FrequencyPenalty, 'f', -1, 64),
		"stop_sequences":    strings.Join(s.StopSequences, ", "),
		"input_field_name":  s.InputFieldName,
		"output_field_name": s.OutputFieldName,
		"note_type_name":    s.NoteTypeName,
		"deck_name":         s.DeckName,
		"add_to_card":       strconv.FormatBool(s.AddToCard),
		"prompt_template":   s.PromptTemplate,
		"enable_cache":      strconv.FormatBool(s.EnableCache),
	}
}

func ptr[T any](v T) *T { return &v }

func parseInt(raw string) (*int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("not an integer: %q", raw)
	}
	return &v, nil
}

func parseFloat(raw string) (*float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return nil, fmt.Errorf("not a number: %q", raw)
	}
	return &v, nil
}

func parseBool(raw string) (*bool, error) {
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("not a boolean: %q", raw)
	}
	return &v, nil
}
