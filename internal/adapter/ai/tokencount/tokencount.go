// Package tokencount estimates chat token usage when a stream carries no usage frame.
//
// Encodings come from the embedded offline BPE tables, so counting never
// touches the network.
package tokencount

import (
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	tiktoken "github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"

	"github.com/fairyhunter13/ai-interview-trainer/internal/domain"
)

func init() {
	tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
}

// Counter provides thread-safe token counting.
type Counter struct {
	encodingCache map[string]*tiktoken.Tiktoken
	mu            sync.RWMutex
}

// NewCounter creates a new token counter instance.
func NewCounter() *Counter {
	return &Counter{encodingCache: make(map[string]*tiktoken.Tiktoken)}
}

// DefaultCounter is a global token counter instance.
var DefaultCounter = NewCounter()

func (c *Counter) encodingFor(model string) (*tiktoken.Tiktoken, error) {
	name := normalizeModelName(model)

	c.mu.RLock()
	enc, ok := c.encodingCache[name]
	c.mu.RUnlock()
	if ok {
		return enc, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if enc, ok := c.encodingCache[name]; ok {
		return enc, nil
	}
	enc, err := tiktoken.EncodingForModel(name)
	if err != nil {
		slog.Debug("falling back to cl100k_base encoding", slog.String("model", model), slog.Any("error", err))
		if enc, err = tiktoken.GetEncoding("cl100k_base"); err != nil {
			return nil, err
		}
	}
	c.encodingCache[name] = enc
	return enc, nil
}

// normalizeModelName maps vendor model ids onto a tiktoken-known model.
// Qwen and the other hosted families have no public BPE table; gpt-4's
// cl100k_base is close enough for an estimate.
func normalizeModelName(model string) string {
	model = strings.ToLower(strings.TrimSpace(model))
	if i := strings.LastIndex(model, "/"); i >= 0 {
		model = model[i+1:]
	}
	switch {
	case strings.Contains(model, "gpt-3.5"):
		return "gpt-3.5-turbo"
	default:
		return "gpt-4"
	}
}

// CountTokens counts the tokens of text.
func (c *Counter) CountTokens(text, model string) (int, error) {
	enc, err := c.encodingFor(model)
	if err != nil {
		return 0, err
	}
	return len(enc.Encode(text, nil, nil)), nil
}

// CountPromptTokens counts a single user message including chat framing.
func (c *Counter) CountPromptTokens(prompt, model string) (int, error) {
	enc, err := c.encodingFor(model)
	if err != nil {
		return 0, err
	}
	// 3 tokens of message framing, the role, and 3 more priming the assistant reply
	n := 3 + len(enc.Encode("user", nil, nil)) + len(enc.Encode(prompt, nil, nil)) + 3
	return n, nil
}

// Estimate returns locally computed usage for one prompt and its reply.
// Counting errors degrade to a characters-per-token estimate.
func (c *Counter) Estimate(prompt, completion, model string) domain.Usage {
	promptTokens, err := c.CountPromptTokens(prompt, model)
	if err != nil {
		slog.Warn("failed to count prompt tokens, using estimate", slog.String("model", model), slog.Any("error", err))
		promptTokens = roughTokens(prompt)
	}
	completionTokens, err := c.CountTokens(completion, model)
	if err != nil {
		slog.Warn("failed to count completion tokens, using estimate", slog.String("model", model), slog.Any("error", err))
		completionTokens = roughTokens(completion)
	}
	return domain.Usage{
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		TotalTokens:      promptTokens + completionTokens,
		Estimated:        true,
	}
}

// roughTokens assumes about one token per CJK rune and four bytes per token otherwise.
func roughTokens(s string) int {
	runes := utf8.RuneCountInString(s)
	if runes == 0 {
		return 0
	}
	if runes < len(s) {
		return runes
	}
	return (len(s) + 3) / 4
}
