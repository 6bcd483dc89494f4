package stt

import (
	"encoding/base64"
	"fmt"
	"net/http"

	"github.com/fairyhunter13/ai-interview-trainer/internal/adapter/ai/stream"
	"github.com/fairyhunter13/ai-interview-trainer/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interview-trainer/internal/adapter/vendorhttp"
	"github.com/fairyhunter13/ai-interview-trainer/internal/domain"
)

const (
	// MultimodalEndpoint is the DashScope multimodal generation URL.
	MultimodalEndpoint = "https://dashscope.aliyuncs.com/api/v1/services/aigc/multimodal-generation/generation"
	// MultimodalModel is the default audio recognition model.
	MultimodalModel = "qwen-audio-asr"
)

type multimodalRequest struct {
	Model        string              `json:"model"`
	Messages     []multimodalMessage `json:"messages"`
	ResultFormat string              `json:"result_format"`
	Stream       bool                `json:"stream"`
}

type multimodalMessage struct {
	Role    string            `json:"role"`
	Content []multimodalAudio `json:"content"`
}

type multimodalAudio struct {
	Audio string `json:"audio"`
}

// multimodal streams the recording through the multimodal conversation API
// and concatenates every text item of every frame.
type multimodal struct {
	cfg domain.ProviderConfig
	hc  *http.Client
}

func newMultimodal(cfg domain.ProviderConfig, hc *http.Client) *multimodal {
	if cfg.Endpoint == "" {
		cfg.Endpoint = MultimodalEndpoint
	}
	if cfg.Model == "" {
		cfg.Model = MultimodalModel
	}
	return &multimodal{cfg: cfg, hc: hc}
}

func (m *multimodal) Transcribe(ctx domain.Context, rec domain.Audio, onProgress domain.ProgressFunc) (string, error) {
	if err := requireInput("stt.multimodal", m.cfg, rec); err != nil {
		return "", err
	}
	body, err := vendorhttp.JSONBody(multimodalRequest{
		Model: m.cfg.Model,
		Messages: []multimodalMessage{{
			Role:    "user",
			Content: []multimodalAudio{{Audio: base64.StdEncoding.EncodeToString(rec.Data)}},
		}},
		ResultFormat: "message",
		Stream:       true,
	})
	if err != nil {
		return "", fmt.Errorf("op=stt.multimodal: %w", err)
	}
	provider := string(m.cfg.Provider)
	resp, err := vendorhttp.Do(ctx, m.hc, vendorhttp.Request{
		Provider:    provider,
		Op:          "transcribe",
		URL:         m.cfg.Endpoint,
		APIKey:      m.cfg.APIKey,
		ContentType: "application/json",
		Body:        body,
		Header: http.Header{
			"Accept":          []string{"text/event-stream"},
			"X-DashScope-SSE": []string{"enable"},
		},
	})
	if err != nil {
		return "", fmt.Errorf("op=stt.multimodal: %w", err)
	}
	dec := stream.NewDecoder(resp.Body,
		stream.WithProvider(provider),
		stream.WithLogger(observability.LoggerFromContext(ctx)))
	text, err := stream.AccumulateMultimodal(dec.Frames(), onProgress)
	if err != nil {
		return "", fmt.Errorf("op=stt.multimodal: %w: read stream: %v", domain.ErrNetwork, err)
	}
	return text, nil
}
