package stt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/fairyhunter13/ai-interview-trainer/internal/adapter/vendorhttp"
	"github.com/fairyhunter13/ai-interview-trainer/internal/domain"
)

// rest uploads the recording as multipart field "audio" and reads {text}.
type rest struct {
	cfg domain.ProviderConfig
	hc  *http.Client
}

func newREST(cfg domain.ProviderConfig, hc *http.Client) *rest {
	return &rest{cfg: cfg, hc: hc}
}

func (r *rest) Transcribe(ctx domain.Context, rec domain.Audio, onProgress domain.ProgressFunc) (string, error) {
	if err := requireInput("stt.rest", r.cfg, rec); err != nil {
		return "", err
	}
	if r.cfg.Endpoint == "" {
		return "", fmt.Errorf("op=stt.rest: %w", domain.ConfigErrorf("speech endpoint missing"))
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("audio", "recording.wav")
	if err != nil {
		return "", fmt.Errorf("op=stt.rest: %w: %v", domain.ErrInternal, err)
	}
	if _, err := fw.Write(rec.Data); err != nil {
		return "", fmt.Errorf("op=stt.rest: %w: %v", domain.ErrInternal, err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("op=stt.rest: %w: %v", domain.ErrInternal, err)
	}

	resp, err := vendorhttp.Do(ctx, r.hc, vendorhttp.Request{
		Provider:    string(domain.ProviderREST),
		Op:          "transcribe",
		URL:         r.cfg.Endpoint,
		APIKey:      r.cfg.APIKey,
		ContentType: mw.FormDataContentType(),
		Body:        &buf,
	})
	if err != nil {
		return "", fmt.Errorf("op=stt.rest: %w", err)
	}
	defer resp.Body.Close()

	var out struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("op=stt.rest: %w: decode response: %v", domain.ErrNetwork, err)
	}
	if onProgress != nil && out.Text != "" {
		onProgress(out.Text, out.Text)
	}
	return out.Text, nil
}
