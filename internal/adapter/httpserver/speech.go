package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"

	"github.com/fairyhunter13/ai-interview-trainer/internal/adapter/speech/audio"
	"github.com/fairyhunter13/ai-interview-trainer/internal/domain"
	"github.com/fairyhunter13/ai-interview-trainer/pkg/textx"
)

// multipartOverhead leaves room for boundaries and part headers on top of the audio cap.
const multipartOverhead = 64 << 10

// TranscriptionsHandler recognizes an uploaded recording. With
// Accept: text/event-stream, progress is pushed as server-sent events.
func (s *Server) TranscriptionsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sse := wantsEventStream(r)
		if !sse && !acceptsJSON(r) {
			writeNotAcceptable(w, r)
			return
		}
		rec, details, err := s.readRecording(w, r)
		if err != nil {
			status, code, msg := errorStatus(err)
			if errors.Is(err, errTooLarge) {
				status = http.StatusRequestEntityTooLarge
			} else if errors.Is(err, errUnsupportedMedia) {
				status = http.StatusUnsupportedMediaType
			}
			writeJSON(w, status, errorEnvelope{Error: apiError{Code: code, Message: msg, Details: details}})
			return
		}

		if !sse {
			text, err := s.Interview.Transcribe(r.Context(), rec, nil)
			if err != nil {
				writeError(w, r, err, nil)
				return
			}
			writeJSON(w, http.StatusOK, map[string]string{"text": text})
			return
		}

		ev := newEventWriter(w)
		text, err := s.Interview.Transcribe(r.Context(), rec, func(delta, text string) {
			ev.send("progress", map[string]string{"delta": delta, "text": text})
		})
		if err != nil {
			_, code, msg := errorStatus(err)
			ev.send("error", apiError{Code: code, Message: msg})
			return
		}
		ev.send("result", map[string]string{"text": text})
	}
}

var (
	errTooLarge         = fmt.Errorf("%w: payload too large", domain.ErrInvalidArgument)
	errUnsupportedMedia = fmt.Errorf("%w: unsupported media type", domain.ErrInvalidArgument)
)

func (s *Server) readRecording(w http.ResponseWriter, r *http.Request) (domain.Audio, map[string]any, error) {
	if !strings.Contains(r.Header.Get("Content-Type"), "multipart/form-data") {
		return domain.Audio{}, nil, fmt.Errorf("%w: content-type must be multipart/form-data", domain.ErrInvalidArgument)
	}
	maxBytes := s.Cfg.MaxAudioBytes()
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartOverhead)
	if err := r.ParseMultipartForm(maxBytes + multipartOverhead); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return domain.Audio{}, map[string]any{"max_mb": s.Cfg.MaxAudioMB}, errTooLarge
		}
		return domain.Audio{}, nil, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err)
	}
	f, hdr, err := r.FormFile("audio")
	if err != nil {
		return domain.Audio{}, map[string]any{"field": "audio"}, fmt.Errorf("%w: audio file required", domain.ErrInvalidArgument)
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
	if err != nil {
		return domain.Audio{}, nil, fmt.Errorf("%w: audio read: %v", domain.ErrInvalidArgument, err)
	}
	if int64(len(data)) > maxBytes {
		return domain.Audio{}, map[string]any{"max_mb": s.Cfg.MaxAudioMB}, errTooLarge
	}
	if len(data) == 0 {
		return domain.Audio{}, map[string]any{"field": "audio"}, fmt.Errorf("%w: empty recording", domain.ErrInvalidArgument)
	}
	if !audio.IsAudioUpload(data) {
		return domain.Audio{}, map[string]any{"mime": mimetype.Detect(data).String(), "filename": hdr.Filename}, errUnsupportedMedia
	}
	return domain.Audio{Data: data, MIME: hdr.Header.Get("Content-Type")}, nil, nil
}

// eventWriter serializes server-sent events. Progress callbacks may fire from
// the adapter's goroutine while the handler writes the final event.
type eventWriter struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	rc      *http.ResponseController
	started bool
}

func newEventWriter(w http.ResponseWriter) *eventWriter {
	return &eventWriter{w: w, rc: http.NewResponseController(w)}
}

func (e *eventWriter) send(event string, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.started {
		h := e.w.Header()
		h.Set("Content-Type", "text/event-stream")
		h.Set("Cache-Control", "no-cache")
		h.Set("Connection", "keep-alive")
		h.Set("X-Accel-Buffering", "no")
		e.w.WriteHeader(http.StatusOK)
		e.started = true
	}
	_, _ = fmt.Fprintf(e.w, "event: %s\ndata: %s\n\n", event, b)
	_ = e.rc.Flush()
}

// SpeechHandler synthesizes text. stream=false returns the provider payload;
// stream=true writes raw 16-bit PCM chunks as playback reaches them.
func (s *Server) SpeechHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req speechRequest
		if details, err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err, details)
			return
		}

		if !req.Stream {
			out, err := s.Interview.Synthesize(r.Context(), textx.SanitizeText(req.Text))
			if err != nil {
				writeError(w, r, err, nil)
				return
			}
			if len(out.Data) == 0 {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			w.Header().Set("Content-Type", out.ContentType)
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(out.Data)
			return
		}

		p := &pcmPlayer{w: w, rc: http.NewResponseController(w)}
		err := s.Interview.SynthesizeStream(r.Context(), textx.SanitizeText(req.Text), p)
		started := p.close()
		switch {
		case err != nil && !started:
			writeError(w, r, err, nil)
		case err != nil:
			// Status already sent; cut the body short.
			LoggerFrom(r).Warn("speech stream aborted", slog.Any("error", err))
		case !started:
			w.WriteHeader(http.StatusNoContent)
		}
	}
}

// pcmPlayer is the HTTP end of the playback queue: each buffer is written and
// flushed before the next one is released.
type pcmPlayer struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	rc      *http.ResponseController
	started bool
	closed  bool
	failed  bool
}

func (p *pcmPlayer) Play(buf domain.AudioBuffer, done func()) {
	defer done()
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || p.failed {
		return
	}
	if !p.started {
		p.w.Header().Set("Content-Type", fmt.Sprintf("audio/L16;rate=%d;channels=1", buf.SampleRate))
		p.w.Header().Set("Cache-Control", "no-cache")
		p.w.WriteHeader(http.StatusOK)
		p.started = true
	}
	if _, err := p.w.Write(buf.Raw); err != nil {
		p.failed = true
		return
	}
	if err := p.rc.Flush(); err != nil {
		p.failed = true
	}
}

// close stops further writes and reports whether any audio was sent.
func (p *pcmPlayer) close() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return p.started
}
