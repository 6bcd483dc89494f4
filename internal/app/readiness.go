package app

import (
	"context"

	httpserver "github.com/fairyhunter13/ai-interview-trainer/internal/adapter/httpserver"
	"github.com/fairyhunter13/ai-interview-trainer/internal/domain"
)

// BuildReadinessProbes reports whether each provider can serve a request:
// the factory accepted its configuration and an API key is present. Vendors
// are not called; readiness must not spend quota.
func BuildReadinessProbes(chat, stt, tts domain.ProviderConfig, sttErr, ttsErr error) []httpserver.Probe {
	return []httpserver.Probe{
		{Name: "chat", Check: providerCheck(chat, nil)},
		{Name: "stt", Check: providerCheck(stt, sttErr)},
		{Name: "tts", Check: providerCheck(tts, ttsErr)},
	}
}

func providerCheck(cfg domain.ProviderConfig, buildErr error) func(context.Context) error {
	return func(context.Context) error {
		if buildErr != nil {
			return buildErr
		}
		if !cfg.HasAPIKey() {
			return domain.ConfigErrorf("%s api key missing", providerLabel(cfg))
		}
		return nil
	}
}

func providerLabel(cfg domain.ProviderConfig) string {
	if cfg.Provider == "" {
		return "provider"
	}
	return string(cfg.Provider)
}
