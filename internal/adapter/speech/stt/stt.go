// Package stt holds the speech-to-text provider variants. Each one resolves
// a recording into a single transcript string and reports progress through
// a domain.ProgressFunc.
package stt

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/fairyhunter13/ai-interview-trainer/internal/adapter/vendorhttp"
	"github.com/fairyhunter13/ai-interview-trainer/internal/domain"
)

// RecognitionHint is sent alongside the recording to the chat-audio variant.
const RecognitionHint = "请识别这段语音内容"

type options struct {
	hc     *http.Client
	dialer *websocket.Dialer
}

// Option configures a transcriber.
type Option func(*options)

// WithHTTPClient overrides the HTTP client used by the HTTP variants.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) {
		if hc != nil {
			o.hc = hc
		}
	}
}

// WithTimeout bounds each HTTP call. Zero waits indefinitely.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.hc = vendorhttp.NewClient(d) }
}

// WithDialer overrides the websocket dialer of the realtime variant.
func WithDialer(d *websocket.Dialer) Option {
	return func(o *options) {
		if d != nil {
			o.dialer = d
		}
	}
}

// New selects the variant named by cfg.Provider.
func New(cfg domain.ProviderConfig, opts ...Option) (domain.Transcriber, error) {
	o := options{hc: vendorhttp.NewClient(0), dialer: websocket.DefaultDialer}
	for _, opt := range opts {
		opt(&o)
	}
	switch cfg.Provider {
	case domain.ProviderDashScope, domain.ProviderAliyun:
		return newMultimodal(cfg, o.hc), nil
	case domain.ProviderParaformer:
		return newRealtime(cfg, o.dialer), nil
	case domain.ProviderQwen:
		return newChatAudio(cfg, o.hc), nil
	case domain.ProviderREST:
		return newREST(cfg, o.hc), nil
	default:
		return nil, fmt.Errorf("op=stt.New: %w", domain.ConfigErrorf("unknown speech-to-text provider %q", cfg.Provider))
	}
}

// Unavailable returns a transcriber that fails every call with err. It stands
// in for a provider whose configuration was rejected at startup.
func Unavailable(err error) domain.Transcriber { return unavailable{err: err} }

type unavailable struct{ err error }

func (u unavailable) Transcribe(domain.Context, domain.Audio, domain.ProgressFunc) (string, error) {
	return "", u.err
}

func requireInput(op string, cfg domain.ProviderConfig, rec domain.Audio) error {
	if !cfg.HasAPIKey() {
		return fmt.Errorf("op=%s: %w", op, domain.ConfigErrorf("speech api key missing"))
	}
	if len(rec.Data) == 0 {
		return fmt.Errorf("op=%s: %w: empty recording", op, domain.ErrInvalidArgument)
	}
	return nil
}
