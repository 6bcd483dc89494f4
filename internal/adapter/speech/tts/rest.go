package tts

import (
	"fmt"
	"io"
	"net/http"

	"github.com/fairyhunter13/ai-interview-trainer/internal/adapter/vendorhttp"
	"github.com/fairyhunter13/ai-interview-trainer/internal/domain"
)

type restRequest struct {
	Text  string  `json:"text"`
	Voice string  `json:"voice"`
	Rate  float64 `json:"rate"`
	Pitch float64 `json:"pitch"`
}

// rest posts {text, voice, rate, pitch} and returns the audio body as is.
type rest struct {
	cfg domain.ProviderConfig
	hc  *http.Client
}

func newREST(cfg domain.ProviderConfig, hc *http.Client) *rest {
	return &rest{cfg: cfg, hc: hc}
}

func (r *rest) Synthesize(ctx domain.Context, text string) (domain.SynthesizedAudio, error) {
	if blank(text) {
		return domain.SynthesizedAudio{}, nil
	}
	if !r.cfg.HasAPIKey() {
		return domain.SynthesizedAudio{}, fmt.Errorf("op=tts.rest.Synthesize: %w", domain.ConfigErrorf("speech synthesis api key missing"))
	}
	if r.cfg.Endpoint == "" {
		return domain.SynthesizedAudio{}, fmt.Errorf("op=tts.rest.Synthesize: %w", domain.ConfigErrorf("speech synthesis endpoint missing"))
	}
	body, err := vendorhttp.JSONBody(restRequest{Text: text, Voice: r.cfg.Voice, Rate: r.cfg.Rate, Pitch: r.cfg.Pitch})
	if err != nil {
		return domain.SynthesizedAudio{}, fmt.Errorf("op=tts.rest.Synthesize: %w", err)
	}
	resp, err := vendorhttp.Do(ctx, r.hc, vendorhttp.Request{
		Provider:    string(domain.ProviderREST),
		Op:          "synthesize",
		URL:         r.cfg.Endpoint,
		APIKey:      r.cfg.APIKey,
		ContentType: "application/json",
		Body:        body,
	})
	if err != nil {
		return domain.SynthesizedAudio{}, fmt.Errorf("op=tts.rest.Synthesize: %w", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.SynthesizedAudio{}, fmt.Errorf("op=tts.rest.Synthesize: %w: read body: %v", domain.ErrNetwork, err)
	}
	return domain.SynthesizedAudio{Data: data, ContentType: contentType(resp.Header.Get("Content-Type"), data, r.cfg.Format)}, nil
}

// Stream is not offered by the generic REST backend.
func (r *rest) Stream(ctx domain.Context, text string, _ domain.Player) error {
	if blank(text) {
		return nil
	}
	return fmt.Errorf("op=tts.rest.Stream: %w", domain.ConfigErrorf("provider %q does not stream synthesis", domain.ProviderREST))
}
