// Package vendorhttp holds the HTTP plumbing shared by the vendor adapters:
// a traced client, bearer-authenticated requests and non-2xx normalization.
package vendorhttp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fairyhunter13/ai-interview-trainer/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interview-trainer/internal/domain"
)

// SnippetLimit caps how much of an error body is logged and kept.
const SnippetLimit = 512

// NewClient returns an HTTP client whose transport is traced. A zero timeout
// waits indefinitely, which streaming calls rely on.
func NewClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

// Request describes one outbound vendor call.
type Request struct {
	Provider    string
	Op          string
	URL         string
	APIKey      string
	ContentType string
	Body        io.Reader
	Header      http.Header
}

// JSONBody marshals v for use as a Request body.
func JSONBody(v any) (io.Reader, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal request: %v", domain.ErrInternal, err)
	}
	return bytes.NewReader(b), nil
}

// Do sends a POST and returns the response when the status is 2xx. Transport
// failures wrap domain.ErrNetwork; other statuses become *domain.UpstreamError
// with the body snippet logged. The caller owns and must close the response
// body; the request latency is recorded on Close.
func Do(ctx context.Context, hc *http.Client, req Request) (*http.Response, error) {
	lg := observability.LoggerFromContext(ctx)
	r, err := http.NewRequestWithContext(ctx, http.MethodPost, req.URL, req.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: build %s request: %v", domain.ErrConfig, req.Provider, err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			r.Header.Add(k, v)
		}
	}
	if req.ContentType != "" {
		r.Header.Set("Content-Type", req.ContentType)
	}
	if req.APIKey != "" {
		r.Header.Set("Authorization", "Bearer "+req.APIKey)
	}

	start := time.Now()
	resp, err := hc.Do(r)
	if err != nil {
		observability.ObserveAIRequest(req.Provider, req.Op, start)
		lg.Error("vendor request failed",
			slog.String("provider", req.Provider),
			slog.String("op", req.Op),
			slog.Bool("has_api_key", req.APIKey != ""),
			slog.Any("error", err))
		return nil, fmt.Errorf("%w: %s %s: %v", domain.ErrNetwork, req.Provider, req.Op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snip := ReadSnippet(resp.Body, SnippetLimit)
		_ = resp.Body.Close()
		observability.ObserveAIRequest(req.Provider, req.Op, start)
		lg.Error("vendor non-2xx",
			slog.String("provider", req.Provider),
			slog.String("op", req.Op),
			slog.Int("status", resp.StatusCode),
			slog.String("body_snippet", snip),
			slog.Duration("elapsed", time.Since(start)))
		return nil, &domain.UpstreamError{Provider: req.Provider, Op: req.Op, Status: resp.StatusCode, Snippet: snip}
	}
	lg.Debug("vendor response",
		slog.String("provider", req.Provider),
		slog.String("op", req.Op),
		slog.Int("status", resp.StatusCode),
		slog.Duration("elapsed", time.Since(start)))
	resp.Body = &timedBody{ReadCloser: resp.Body, provider: req.Provider, op: req.Op, start: start}
	return resp, nil
}

// timedBody records the call when the caller closes the body, so streamed
// responses are timed to their last byte rather than to the headers.
type timedBody struct {
	io.ReadCloser
	provider string
	op       string
	start    time.Time
	once     sync.Once
}

func (b *timedBody) Close() error {
	err := b.ReadCloser.Close()
	b.once.Do(func() { observability.ObserveAIRequest(b.provider, b.op, b.start) })
	return err
}

// ReadSnippet reads up to n bytes from r.
func ReadSnippet(r io.Reader, n int) string {
	if r == nil || n <= 0 {
		return ""
	}
	b, _ := io.ReadAll(io.LimitReader(r, int64(n)))
	return string(b)
}
