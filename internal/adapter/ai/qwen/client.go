// Package qwen implements the chat provider against the OpenAI-compatible
// DashScope endpoint, always streaming.
package qwen

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/fairyhunter13/ai-interview-trainer/internal/adapter/ai/stream"
	"github.com/fairyhunter13/ai-interview-trainer/internal/adapter/ai/tokencount"
	"github.com/fairyhunter13/ai-interview-trainer/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interview-trainer/internal/adapter/speech/audio"
	"github.com/fairyhunter13/ai-interview-trainer/internal/adapter/vendorhttp"
	"github.com/fairyhunter13/ai-interview-trainer/internal/domain"
)

const (
	// DefaultEndpoint is the compatible-mode chat completions URL.
	DefaultEndpoint = "https://dashscope.aliyuncs.com/compatible-mode/v1/chat/completions"
	// DefaultModel accepts both text and audio input.
	DefaultModel = "qwen-omni-turbo"

	providerName = "qwen"
)

type chatRequest struct {
	Model         string        `json:"model"`
	Messages      []message     `json:"messages"`
	Modalities    []string      `json:"modalities"`
	Stream        bool          `json:"stream"`
	StreamOptions streamOptions `json:"stream_options"`
}

type streamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

// message content is either a plain string or a list of contentPart.
type message struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type       string      `json:"type"`
	Text       string      `json:"text,omitempty"`
	InputAudio *inputAudio `json:"input_audio,omitempty"`
}

type inputAudio struct {
	Data   string `json:"data"`
	Format string `json:"format"`
}

// Client is a chat provider bound to one immutable configuration.
type Client struct {
	cfg     domain.ProviderConfig
	hc      *http.Client
	counter *tokencount.Counter
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.hc = hc
		}
	}
}

// WithTimeout bounds each call. Zero, the default, waits for the stream to end.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.hc = vendorhttp.NewClient(d) }
}

// New returns a client for cfg. Missing endpoint and model fall back to the defaults.
func New(cfg domain.ProviderConfig, opts ...Option) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	c := &Client{cfg: cfg, hc: vendorhttp.NewClient(0), counter: tokencount.DefaultCounter}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Model returns the configured model id.
func (c *Client) Model() string { return c.cfg.Model }

// Complete sends prompt as a single user message and returns the accumulated reply.
func (c *Client) Complete(ctx domain.Context, prompt string) (domain.Completion, error) {
	if !c.cfg.HasAPIKey() {
		return domain.Completion{}, fmt.Errorf("op=qwen.Complete: %w", domain.ConfigErrorf("chat api key missing"))
	}
	res, err := c.stream(ctx, "chat", []message{{Role: "user", Content: prompt}}, nil)
	if err != nil {
		return domain.Completion{}, fmt.Errorf("op=qwen.Complete: %w", err)
	}
	usage := c.usage(prompt, res)
	observability.ObserveTokens(providerName, usage.PromptTokens, usage.CompletionTokens)
	return domain.Completion{Text: res.Text, Usage: usage}, nil
}

// CompleteAudio sends one recording, plus an optional text hint, and returns
// the accumulated reply. onDelta observes each appended delta.
func (c *Client) CompleteAudio(ctx domain.Context, rec domain.Audio, hint string, onDelta domain.ProgressFunc) (string, error) {
	if !c.cfg.HasAPIKey() {
		return "", fmt.Errorf("op=qwen.CompleteAudio: %w", domain.ConfigErrorf("speech api key missing"))
	}
	if len(rec.Data) == 0 {
		return "", fmt.Errorf("op=qwen.CompleteAudio: %w: empty recording", domain.ErrInvalidArgument)
	}
	format := audio.ChatFormat(rec.Data, rec.MIME)
	parts := []contentPart{{
		Type:       "input_audio",
		InputAudio: &inputAudio{Data: base64.StdEncoding.EncodeToString(rec.Data), Format: format},
	}}
	if hint != "" {
		parts = append(parts, contentPart{Type: "text", Text: hint})
	}
	observability.LoggerFromContext(ctx).Info("prepared audio message",
		slog.String("provider", providerName),
		slog.String("format", format),
		slog.Int("bytes", len(rec.Data)))

	res, err := c.stream(ctx, "chat_audio", []message{{Role: "user", Content: parts}}, onDelta)
	if err != nil {
		return "", fmt.Errorf("op=qwen.CompleteAudio: %w", err)
	}
	return res.Text, nil
}

func (c *Client) stream(ctx context.Context, op string, msgs []message, onDelta domain.ProgressFunc) (stream.ChatResult, error) {
	body, err := vendorhttp.JSONBody(chatRequest{
		Model:         c.cfg.Model,
		Messages:      msgs,
		Modalities:    []string{"text"},
		Stream:        true,
		StreamOptions: streamOptions{IncludeUsage: true},
	})
	if err != nil {
		return stream.ChatResult{}, err
	}
	resp, err := vendorhttp.Do(ctx, c.hc, vendorhttp.Request{
		Provider:    providerName,
		Op:          op,
		URL:         c.cfg.Endpoint,
		APIKey:      c.cfg.APIKey,
		ContentType: "application/json",
		Body:        body,
		Header:      http.Header{"Accept": []string{"text/event-stream"}},
	})
	if err != nil {
		return stream.ChatResult{}, err
	}
	dec := stream.NewDecoder(resp.Body,
		stream.WithProvider(providerName),
		stream.WithLogger(observability.LoggerFromContext(ctx)))
	res, err := stream.AccumulateChat(dec.Frames(), onDelta)
	if err != nil {
		return res, fmt.Errorf("%w: read %s stream: %v", domain.ErrNetwork, providerName, err)
	}
	return res, nil
}

func (c *Client) usage(prompt string, res stream.ChatResult) domain.Usage {
	if res.Usage != nil {
		return *res.Usage
	}
	return c.counter.Estimate(prompt, res.Text, c.cfg.Model)
}
