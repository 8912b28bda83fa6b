// Package llm sends prompts to an OpenAI-compatible chat completion endpoint.
package llm

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/go-resty/resty/v2"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// chatRequest mirrors openai.ChatCompletionRequest but adds top_k, which
// many compatible providers accept, and always sends stream and stop.
type chatRequest struct {
	Model            string                         `json:"model"`
	Messages         []openai.ChatCompletionMessage `json:"messages"`
	Stream           bool                           `json:"stream"`
	MaxTokens        int                            `json:"max_tokens"`
	Temperature      float64                        `json:"temperature"`
	TopP             float64                        `json:"top_p"`
	TopK             int                            `json:"top_k"`
	FrequencyPenalty float64                        `json:"frequency_penalty"`
	Stop             []string                       `json:"stop"`
}

// Client is an OpenAI-compatible completion client. It makes exactly one
// attempt per call.
type Client struct {
	http   *resty.Client
	logger *zap.Logger

	mu    sync.Mutex
	usage Usage
}

// Usage totals the token counts reported by successful completions.
type Usage struct {
	Requests         int
	PromptTokens     int
	CompletionTokens int
}

// Usage returns the totals since the client was created.
func (c *Client) Usage() Usage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.usage
}

// NewClient creates a completion client.
func NewClient(logger *zap.Logger) *Client {
	return &Client{
		http:   resty.New(),
		logger: logger,
	}
}

// Complete sends req and returns the content of the first choice.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}

	stop := req.Stop
	if stop == nil {
		stop = []string{}
	}
	body := chatRequest{
		Model: req.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
		Stream:           false,
		MaxTokens:        req.MaxTokens,
		Temperature:      req.Temperature,
		TopP:             req.TopP,
		TopK:             req.TopK,
		FrequencyPenalty: req.FrequencyPenalty,
		Stop:             stop,
	}

	c.logger.Debug("sending completion request",
		zap.String("model", req.Model),
		zap.Int("prompt_chars", len([]rune(req.Prompt))))

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Authorization", "Bearer "+req.Token).
		SetBody(body).
		Post(req.URL)
	if err != nil {
		return "", &TransportError{Err: err}
	}

	if resp.IsError() {
		return "", &FormatError{StatusCode: resp.StatusCode(), Message: upstreamMessage(resp.Body())}
	}

	var out openai.ChatCompletionResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil || len(out.Choices) == 0 {
		c.logger.Warn("completion response has no choices", zap.Int("status", resp.StatusCode()))
		return "", &FormatError{Message: upstreamMessage(resp.Body())}
	}

	c.logger.Info("completion received",
		zap.String("model", out.Model),
		zap.Int("prompt_tokens", out.Usage.PromptTokens),
		zap.Int("completion_tokens", out.Usage.CompletionTokens))

	c.mu.Lock()
	c.usage.Requests++
	c.usage.PromptTokens += out.Usage.PromptTokens
	c.usage.CompletionTokens += out.Usage.CompletionTokens
	c.mu.Unlock()

	return out.Choices[0].Message.Content, nil
}

// upstreamMessage extracts error.message from an OpenAI-style error body.
func upstreamMessage(body []byte) string {
	var errResp openai.ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != nil && errResp.Error.Message != "" {
		return errResp.Error.Message
	}
	return UnexpectedShape
}
