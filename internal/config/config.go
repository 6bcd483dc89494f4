// Package config defines configuration parsing and helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"

	"github.com/fairyhunter13/ai-interview-trainer/internal/domain"
)

// Config holds all application configuration parsed from environment variables.
type Config struct {
	AppEnv          string `env:"APP_ENV" envDefault:"dev"`
	Port            int    `env:"PORT" envDefault:"8080"`
	OTLPEndpoint    string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:""`
	OTELServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"ai-interview-trainer"`

	CORSAllowOrigins      string        `env:"CORS_ALLOW_ORIGINS" envDefault:"*"`
	ServerShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	HTTPReadTimeout       time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	// HTTPWriteTimeout is zero by default: streaming responses wait for the upstream to finish.
	HTTPWriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"0s"`
	HTTPIdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"60s"`
	// RequestTimeout bounds JSON routes only. Zero disables it.
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"0s"`
	// ProviderTimeout bounds each vendor call. Zero waits indefinitely for the stream to end.
	ProviderTimeout time.Duration `env:"PROVIDER_TIMEOUT" envDefault:"0s"`
	MaxAudioMB      int64         `env:"MAX_AUDIO_MB" envDefault:"10"`

	// Chat (question generation and evaluation)
	ChatAPIKey   string `env:"CHAT_API_KEY"`
	ChatEndpoint string `env:"CHAT_ENDPOINT" envDefault:"https://dashscope.aliyuncs.com/compatible-mode/v1/chat/completions"`
	ChatModel    string `env:"CHAT_MODEL" envDefault:"qwen-omni-turbo"`

	// Speech-to-text. Model and endpoint default inside the chosen adapter.
	STTProvider string `env:"STT_PROVIDER" envDefault:"paraformer"`
	STTAPIKey   string `env:"STT_API_KEY"`
	STTModel    string `env:"STT_MODEL"`
	STTEndpoint string `env:"STT_ENDPOINT"`

	// Text-to-speech. Model, endpoint, voice and format default inside the chosen adapter.
	TTSProvider string  `env:"TTS_PROVIDER" envDefault:"cosyvoice"`
	TTSAPIKey   string  `env:"TTS_API_KEY"`
	TTSEndpoint string  `env:"TTS_ENDPOINT"`
	TTSModel    string  `env:"TTS_MODEL"`
	TTSVoice    string  `env:"TTS_VOICE"`
	TTSFormat   string  `env:"TTS_FORMAT"`
	TTSRate     float64 `env:"TTS_RATE" envDefault:"1.0"`
	TTSPitch    float64 `env:"TTS_PITCH" envDefault:"1.0"`

	// ProvidersFile optionally points at a YAML file overriding the provider blocks above.
	ProvidersFile string `env:"PROVIDERS_FILE"`
	// HotTopicsFile optionally lists education hot topics mentioned in question prompts.
	HotTopicsFile string `env:"HOT_TOPICS_FILE"`
}

// Load parses environment variables into a Config and applies the providers file, if any.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("op=config.Load: %w", err)
	}
	if cfg.ProvidersFile != "" {
		if err := cfg.applyProvidersFile(cfg.ProvidersFile); err != nil {
			return Config{}, fmt.Errorf("op=config.Load: %w", err)
		}
	}
	return cfg, nil
}

// IsDev reports whether the app is running in development mode.
func (c Config) IsDev() bool { return strings.ToLower(c.AppEnv) == "dev" }

// IsProd reports whether the app is running in production mode.
func (c Config) IsProd() bool { return strings.ToLower(c.AppEnv) == "prod" }

// IsTest reports whether the app is running in test mode.
func (c Config) IsTest() bool { return strings.ToLower(c.AppEnv) == "test" }

// MaxAudioBytes is the upload cap for recordings.
func (c Config) MaxAudioBytes() int64 { return c.MaxAudioMB * 1024 * 1024 }

// ChatProvider returns the chat provider configuration.
func (c Config) ChatProvider() domain.ProviderConfig {
	return domain.ProviderConfig{
		Provider: domain.ProviderQwen,
		APIKey:   c.ChatAPIKey,
		Model:    c.ChatModel,
		Endpoint: c.ChatEndpoint,
	}
}

// STTProviderConfig returns the speech-to-text provider configuration.
func (c Config) STTProviderConfig() domain.ProviderConfig {
	return domain.ProviderConfig{
		Provider: domain.Provider(strings.ToLower(strings.TrimSpace(c.STTProvider))),
		APIKey:   c.STTAPIKey,
		Model:    c.STTModel,
		Endpoint: c.STTEndpoint,
	}
}

// TTSProviderConfig returns the text-to-speech provider configuration.
func (c Config) TTSProviderConfig() domain.ProviderConfig {
	return domain.ProviderConfig{
		Provider: domain.Provider(strings.ToLower(strings.TrimSpace(c.TTSProvider))),
		APIKey:   c.TTSAPIKey,
		Model:    c.TTSModel,
		Endpoint: c.TTSEndpoint,
		Voice:    c.TTSVoice,
		Format:   c.TTSFormat,
		Rate:     c.TTSRate,
		Pitch:    c.TTSPitch,
	}
}
