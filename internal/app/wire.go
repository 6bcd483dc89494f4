package app

import (
	"fmt"
	"log/slog"

	"github.com/fairyhunter13/ai-interview-trainer/internal/adapter/ai/qwen"
	httpserver "github.com/fairyhunter13/ai-interview-trainer/internal/adapter/httpserver"
	"github.com/fairyhunter13/ai-interview-trainer/internal/adapter/speech/paraformer"
	"github.com/fairyhunter13/ai-interview-trainer/internal/adapter/speech/stt"
	"github.com/fairyhunter13/ai-interview-trainer/internal/adapter/speech/tts"
	"github.com/fairyhunter13/ai-interview-trainer/internal/config"
	"github.com/fairyhunter13/ai-interview-trainer/internal/domain"
	"github.com/fairyhunter13/ai-interview-trainer/internal/usecase"
)

// NewServer builds the providers named by cfg and the HTTP server on top of
// them. A rejected speech provider does not stop startup: its calls fail with
// ErrConfig and /readyz reports it. Only an unreadable hot-topics file is fatal.
func NewServer(cfg config.Config) (*httpserver.Server, error) {
	hotTopics, err := cfg.LoadHotTopics()
	if err != nil {
		return nil, fmt.Errorf("op=app.NewServer: load hot topics: %w", err)
	}

	chatCfg := cfg.ChatProvider()
	chat := qwen.New(chatCfg, qwen.WithTimeout(cfg.ProviderTimeout))

	sttCfg := cfg.STTProviderConfig()
	transcriber, sttErr := stt.New(sttCfg, stt.WithTimeout(cfg.ProviderTimeout))
	if sttErr != nil {
		slog.Warn("speech-to-text unavailable", slog.String("provider", string(sttCfg.Provider)), slog.Any("error", sttErr))
		transcriber = stt.Unavailable(sttErr)
	}

	ttsCfg := cfg.TTSProviderConfig()
	synthesizer, ttsErr := tts.New(ttsCfg, tts.WithTimeout(cfg.ProviderTimeout))
	if ttsErr != nil {
		slog.Warn("text-to-speech unavailable", slog.String("provider", string(ttsCfg.Provider)), slog.Any("error", ttsErr))
		synthesizer = tts.Unavailable(ttsErr)
	}

	svc := usecase.NewInterviewService(chat, transcriber, synthesizer, hotTopics)
	svc.Realtime = paraformer.NewDialer(RealtimeConfig(sttCfg))

	slog.Info("providers configured",
		slog.String("chat_model", chat.Model()),
		slog.Bool("chat_has_api_key", chatCfg.HasAPIKey()),
		slog.String("stt_provider", string(sttCfg.Provider)),
		slog.Bool("stt_has_api_key", sttCfg.HasAPIKey()),
		slog.String("tts_provider", string(ttsCfg.Provider)),
		slog.Bool("tts_has_api_key", ttsCfg.HasAPIKey()),
		slog.Int("hot_topics", len(hotTopics)))

	probes := BuildReadinessProbes(chatCfg, sttCfg, ttsCfg, sttErr, ttsErr)
	return httpserver.NewServer(cfg, svc, probes...), nil
}

// RealtimeConfig derives the realtime recognition settings from the
// speech-to-text block. The key is shared; model and endpoint only carry over
// when the block already names the realtime provider.
func RealtimeConfig(sttCfg domain.ProviderConfig) domain.ProviderConfig {
	out := domain.ProviderConfig{Provider: domain.ProviderParaformer, APIKey: sttCfg.APIKey}
	if sttCfg.Provider == domain.ProviderParaformer {
		out.Model = sttCfg.Model
		out.Endpoint = sttCfg.Endpoint
	}
	return out
}
