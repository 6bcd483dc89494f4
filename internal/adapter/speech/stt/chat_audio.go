package stt

import (
	"fmt"
	"net/http"

	"github.com/fairyhunter13/ai-interview-trainer/internal/adapter/ai/qwen"
	"github.com/fairyhunter13/ai-interview-trainer/internal/domain"
)

// chatAudio asks the omni chat model to transcribe an input_audio message.
type chatAudio struct {
	client *qwen.Client
}

func newChatAudio(cfg domain.ProviderConfig, hc *http.Client) *chatAudio {
	return &chatAudio{client: qwen.New(cfg, qwen.WithHTTPClient(hc))}
}

func (c *chatAudio) Transcribe(ctx domain.Context, rec domain.Audio, onProgress domain.ProgressFunc) (string, error) {
	text, err := c.client.CompleteAudio(ctx, rec, RecognitionHint, onProgress)
	if err != nil {
		return "", fmt.Errorf("op=stt.chatAudio: %w", err)
	}
	return text, nil
}
