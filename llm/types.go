package llm

import (
	"errors"
	"fmt"
	"strings"
)

// Placeholder marks where the vocabulary list goes in a prompt template.
const Placeholder = "{vocab_list}"

// Credentials identifies the completion endpoint and model.
type Credentials struct {
	Token string
	URL   string // full chat completion URL, not a base URL
	Model string
}

// Sampling holds the decoding parameters. They are sent as-is.
type Sampling struct {
	MaxTokens        int
	Temperature      float64
	TopP             float64
	TopK             int
	FrequencyPenalty float64
	Stop             []string
}

// Request is a single non-streaming completion request.
type Request struct {
	Credentials
	Sampling
	Prompt string
}

// Validate checks that the request can be sent at all.
func (r Request) Validate() error {
	if strings.TrimSpace(r.URL) == "" {
		return ErrNoEndpoint
	}
	return nil
}

// RenderPrompt substitutes the first placeholder in template with the
// vocabulary signature. A template without a placeholder is returned as-is.
func RenderPrompt(template, signature string) string {
	return strings.Replace(template, Placeholder, signature, 1)
}

// ErrNoEndpoint is returned when no request URL is configured.
var ErrNoEndpoint = errors.New("completion request URL is not configured")

// UnexpectedShape is the message used when the upstream gave no usable
// error text.
const UnexpectedShape = "unexpected response shape"

// FormatError means the endpoint answered but not with a usable completion:
// a non-success status, no choices, or an undecodable body.
type FormatError struct {
	StatusCode int
	Message    string
}

func (e *FormatError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("completion request failed (status %d): %s", e.StatusCode, e.Message)
	}
	return "completion request failed: " + e.Message
}

// TransportError means the request never got an HTTP response.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("failed to reach completion endpoint: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
