// Package tts holds the text-to-speech provider variants.
package tts

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/fairyhunter13/ai-interview-trainer/internal/adapter/vendorhttp"
	"github.com/fairyhunter13/ai-interview-trainer/internal/domain"
)

// Synthesis defaults.
const (
	DefaultModel  = "cosyvoice-v1"
	DefaultVoice  = "longxiaochun"
	DefaultFormat = "pcm_22050_16bit"
)

const defaultChunkSize = 4096

type options struct {
	hc        *http.Client
	chunkSize int
}

// Option configures a synthesizer.
type Option func(*options)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) {
		if hc != nil {
			o.hc = hc
		}
	}
}

// WithTimeout bounds each call. Zero waits indefinitely.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.hc = vendorhttp.NewClient(d) }
}

// WithChunkSize sets how many bytes a streaming read requests at a time.
func WithChunkSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.chunkSize = n
		}
	}
}

// New selects the variant named by cfg.Provider.
func New(cfg domain.ProviderConfig, opts ...Option) (domain.Synthesizer, error) {
	o := options{hc: vendorhttp.NewClient(0), chunkSize: defaultChunkSize}
	for _, opt := range opts {
		opt(&o)
	}
	switch cfg.Provider {
	case domain.ProviderCosyVoice:
		return newCosyVoice(cfg, o), nil
	case domain.ProviderREST:
		return newREST(cfg, o.hc), nil
	default:
		return nil, fmt.Errorf("op=tts.New: %w", domain.ConfigErrorf("unknown text-to-speech provider %q", cfg.Provider))
	}
}

// Unavailable returns a synthesizer that fails every call with err.
func Unavailable(err error) domain.Synthesizer { return unavailable{err: err} }

type unavailable struct{ err error }

func (u unavailable) Synthesize(domain.Context, string) (domain.SynthesizedAudio, error) {
	return domain.SynthesizedAudio{}, u.err
}

func (u unavailable) Stream(domain.Context, string, domain.Player) error { return u.err }

func blank(text string) bool { return strings.TrimSpace(text) == "" }

// contentType prefers the declared header, then sniffs the payload. Raw PCM
// has no signature, so an unrecognized payload for a pcm format is labeled L16.
func contentType(declared string, data []byte, format string) string {
	if declared != "" && !strings.HasPrefix(declared, "application/octet-stream") {
		return declared
	}
	mt := mimetype.Detect(data)
	if mt.Is("application/octet-stream") && strings.HasPrefix(format, "pcm") {
		return fmt.Sprintf("audio/L16;rate=%d;channels=1", sampleRate(format))
	}
	return mt.String()
}
