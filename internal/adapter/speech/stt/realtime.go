package stt

import (
	"fmt"

	"github.com/gorilla/websocket"

	"github.com/fairyhunter13/ai-interview-trainer/internal/adapter/speech/audio"
	"github.com/fairyhunter13/ai-interview-trainer/internal/adapter/speech/paraformer"
	"github.com/fairyhunter13/ai-interview-trainer/internal/domain"
)

// realtime replays a complete recording through a Paraformer session frame by
// frame, then drains the session for trailing sentences. Only WAV or raw PCM
// can be replayed.
type realtime struct {
	cfg    domain.ProviderConfig
	dialer *websocket.Dialer
}

func newRealtime(cfg domain.ProviderConfig, dialer *websocket.Dialer) *realtime {
	return &realtime{cfg: cfg, dialer: dialer}
}

func (r *realtime) Transcribe(ctx domain.Context, rec domain.Audio, onProgress domain.ProgressFunc) (string, error) {
	if err := requireInput("stt.realtime", r.cfg, rec); err != nil {
		return "", err
	}
	if !audio.IsFrameable(rec.Data) {
		return "", domain.NewUserError("stt.realtime", domain.MsgRealtimeNeedsPCM,
			fmt.Errorf("op=stt.realtime: %w: %q recording is not wav or raw pcm", domain.ErrInvalidArgument, rec.MIME))
	}
	s, err := paraformer.Dial(ctx, r.cfg, onProgress, paraformer.WithDialer(r.dialer))
	if err != nil {
		return "", fmt.Errorf("op=stt.realtime: %w", err)
	}
	defer func() { _, _ = s.Stop() }()

	pcm := audio.PCMPayload(rec.Data)
	for off := 0; off < len(pcm); off += paraformer.FrameBytes {
		if err := ctx.Err(); err != nil {
			return "", fmt.Errorf("op=stt.realtime: %w", err)
		}
		end := min(off+paraformer.FrameBytes, len(pcm))
		if err := s.SendAudioFrame(pcm[off:end]); err != nil {
			return "", fmt.Errorf("op=stt.realtime: %w", err)
		}
	}
	text, err := s.Drain(ctx)
	if err != nil {
		return text, fmt.Errorf("op=stt.realtime: %w", err)
	}
	return text, nil
}
