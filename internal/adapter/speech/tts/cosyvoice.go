package tts

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fairyhunter13/ai-interview-trainer/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interview-trainer/internal/adapter/speech/audio"
	"github.com/fairyhunter13/ai-interview-trainer/internal/adapter/vendorhttp"
	"github.com/fairyhunter13/ai-interview-trainer/internal/domain"
)

// CosyVoiceEndpoint is the DashScope speech synthesis URL.
const CosyVoiceEndpoint = "https://dashscope.aliyuncs.com/api/v1/services/audio/tts/v2"

type synthesisRequest struct {
	Model  string `json:"model"`
	Voice  string `json:"voice"`
	Format string `json:"format"`
	Text   string `json:"text"`
}

type cosyVoice struct {
	cfg       domain.ProviderConfig
	hc        *http.Client
	chunkSize int
}

func newCosyVoice(cfg domain.ProviderConfig, o options) *cosyVoice {
	if cfg.Endpoint == "" {
		cfg.Endpoint = CosyVoiceEndpoint
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Voice == "" {
		cfg.Voice = DefaultVoice
	}
	if cfg.Format == "" {
		cfg.Format = DefaultFormat
	}
	return &cosyVoice{cfg: cfg, hc: o.hc, chunkSize: o.chunkSize}
}

// Synthesize returns the whole payload of a non-streaming call.
func (c *cosyVoice) Synthesize(ctx domain.Context, text string) (domain.SynthesizedAudio, error) {
	if blank(text) {
		return domain.SynthesizedAudio{}, nil
	}
	resp, err := c.post(ctx, "synthesize", text, nil)
	if err != nil {
		return domain.SynthesizedAudio{}, fmt.Errorf("op=tts.cosyvoice.Synthesize: %w", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.SynthesizedAudio{}, fmt.Errorf("op=tts.cosyvoice.Synthesize: %w: read body: %v", domain.ErrNetwork, err)
	}
	return domain.SynthesizedAudio{
		Data:        data,
		ContentType: contentType(resp.Header.Get("Content-Type"), data, c.cfg.Format),
	}, nil
}

// Stream decodes PCM chunks as they arrive and plays them back-to-back. It
// returns once the last buffer has finished playing.
func (c *cosyVoice) Stream(ctx domain.Context, text string, player domain.Player) error {
	if blank(text) {
		observability.LoggerFromContext(ctx).Warn("skip synthesis of blank text")
		return nil
	}
	if player == nil {
		return fmt.Errorf("op=tts.cosyvoice.Stream: %w: nil player", domain.ErrInvalidArgument)
	}
	if !strings.HasPrefix(c.cfg.Format, "pcm") {
		return fmt.Errorf("op=tts.cosyvoice.Stream: %w", domain.ConfigErrorf("streaming needs a pcm format, got %q", c.cfg.Format))
	}
	resp, err := c.post(ctx, "synthesize_stream", text, http.Header{"X-DashScope-Streaming": []string{"enable"}})
	if err != nil {
		return fmt.Errorf("op=tts.cosyvoice.Stream: %w", err)
	}
	defer resp.Body.Close()

	rate := sampleRate(c.cfg.Format)
	queue := audio.NewPlaybackQueue(player)
	dec := audio.NewPCMDecoder(rate)
	buf := make([]byte, c.chunkSize)
	received, samples := 0, 0
	for {
		n, rerr := resp.Body.Read(buf)
		if n > 0 {
			received += n
			if b, ok := dec.Decode(buf[:n]); ok {
				samples += len(b.Samples)
				queue.Enqueue(b)
			}
		}
		if errors.Is(rerr, io.EOF) {
			break
		}
		if rerr != nil {
			queue.Stop()
			return fmt.Errorf("op=tts.cosyvoice.Stream: %w: read stream: %v", domain.ErrNetwork, rerr)
		}
	}
	observability.LoggerFromContext(ctx).Info("synthesis stream complete",
		slog.String("provider", string(domain.ProviderCosyVoice)),
		slog.Int("bytes", received),
		slog.Duration("audio", time.Duration(samples)*time.Second/time.Duration(rate)),
		slog.Int("queued", queue.Len()))

	if err := queue.Wait(ctx); err != nil {
		queue.Stop()
		return fmt.Errorf("op=tts.cosyvoice.Stream: %w", err)
	}
	observability.ObserveSynthesizedAudio(string(domain.ProviderCosyVoice), samples, rate)
	return nil
}

func (c *cosyVoice) post(ctx domain.Context, op, text string, header http.Header) (*http.Response, error) {
	if !c.cfg.HasAPIKey() {
		return nil, domain.ConfigErrorf("speech synthesis api key missing")
	}
	body, err := vendorhttp.JSONBody(synthesisRequest{
		Model:  c.cfg.Model,
		Voice:  c.cfg.Voice,
		Format: c.cfg.Format,
		Text:   text,
	})
	if err != nil {
		return nil, err
	}
	return vendorhttp.Do(ctx, c.hc, vendorhttp.Request{
		Provider:    string(domain.ProviderCosyVoice),
		Op:          op,
		URL:         c.cfg.Endpoint,
		APIKey:      c.cfg.APIKey,
		ContentType: "application/json",
		Body:        body,
		Header:      header,
	})
}

// sampleRate reads the rate out of a format like pcm_22050_16bit.
func sampleRate(format string) int {
	for _, part := range strings.Split(format, "_") {
		if n, err := strconv.Atoi(part); err == nil && n >= 8000 {
			return n
		}
	}
	return audio.DefaultTTSSampleRate
}
