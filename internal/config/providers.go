package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// providerBlock is one provider section of the providers file.
// Zero values leave the environment setting untouched.
type providerBlock struct {
	Provider string  `yaml:"provider"`
	APIKey   string  `yaml:"api_key"`
	Model    string  `yaml:"model"`
	Endpoint string  `yaml:"endpoint"`
	Voice    string  `yaml:"voice"`
	Format   string  `yaml:"format"`
	Rate     float64 `yaml:"rate"`
	Pitch    float64 `yaml:"pitch"`
}

// providersFile mirrors the YAML layout:
//
//	chat: {api_key, model, endpoint}
//	speech_to_text: {provider, api_key, model, endpoint}
//	text_to_speech: {provider, api_key, model, endpoint, voice, format, rate, pitch}
type providersFile struct {
	Chat         *providerBlock `yaml:"chat"`
	SpeechToText *providerBlock `yaml:"speech_to_text"`
	TextToSpeech *providerBlock `yaml:"text_to_speech"`
}

// applyProvidersFile overlays the YAML provider blocks onto c.
func (c *Config) applyProvidersFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("read providers file %s: %w", filename, err)
	}
	var pf providersFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return fmt.Errorf("parse providers file %s: %w", filename, err)
	}
	if b := pf.Chat; b != nil {
		setString(&c.ChatAPIKey, b.APIKey)
		setString(&c.ChatModel, b.Model)
		setString(&c.ChatEndpoint, b.Endpoint)
	}
	if b := pf.SpeechToText; b != nil {
		setString(&c.STTProvider, b.Provider)
		setString(&c.STTAPIKey, b.APIKey)
		setString(&c.STTModel, b.Model)
		setString(&c.STTEndpoint, b.Endpoint)
	}
	if b := pf.TextToSpeech; b != nil {
		setString(&c.TTSProvider, b.Provider)
		setString(&c.TTSAPIKey, b.APIKey)
		setString(&c.TTSModel, b.Model)
		setString(&c.TTSEndpoint, b.Endpoint)
		setString(&c.TTSVoice, b.Voice)
		setString(&c.TTSFormat, b.Format)
		if b.Rate > 0 {
			c.TTSRate = b.Rate
		}
		if b.Pitch > 0 {
			c.TTSPitch = b.Pitch
		}
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
