// Package paraformer is a duplex client for the DashScope realtime recognition
// socket: a JSON start frame, raw 16 kHz PCM frames out, sentence results in.
package paraformer

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/fairyhunter13/ai-interview-trainer/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interview-trainer/internal/domain"
)

const (
	DefaultEndpoint = "wss://dashscope.aliyuncs.com/api/v1/services/asr/paraformer-realtime"
	DefaultModel    = "paraformer-realtime-v2"
	// SampleRate of the PCM frames the service expects.
	SampleRate = 16000
	// FrameBytes is 100ms of mono 16-bit audio at SampleRate.
	FrameBytes = 3200

	providerName = "paraformer"
	closeTimeout = 2 * time.Second
)

// ErrSessionClosed is returned when audio is sent after Stop.
var ErrSessionClosed = errors.New("paraformer: session closed")

type startFrame struct {
	Model      string `json:"model"`
	Format     string `json:"format"`
	SampleRate int    `json:"sample_rate"`
	APIKey     string `json:"api_key"`
}

// result accepts the flat {sentence} shape and the enveloped
// {payload:{output:{sentence:{text}}}} shape.
type result struct {
	Sentence json.RawMessage `json:"sentence"`
	Payload  struct {
		Output struct {
			Sentence json.RawMessage `json:"sentence"`
		} `json:"output"`
	} `json:"payload"`
}

func (r result) text() string {
	raw := r.Sentence
	if len(raw) == 0 {
		raw = r.Payload.Output.Sentence
	}
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.Text
	}
	return ""
}

// Session is one open recognition connection. Sentences received are appended
// to the transcript in arrival order.
type Session struct {
	id         string
	conn       *websocket.Conn
	onSentence domain.ProgressFunc
	logger     *slog.Logger

	writeMu sync.Mutex
	done    chan struct{}

	mu   sync.Mutex
	text strings.Builder
	err  error

	closeSent atomic.Bool
	stopping  atomic.Bool
	closeOnce sync.Once
	stopOnce  sync.Once
	stopErr   error
}

type dialOptions struct {
	dialer *websocket.Dialer
}

// Option configures Dial.
type Option func(*dialOptions)

// WithDialer overrides the websocket dialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(o *dialOptions) {
		if d != nil {
			o.dialer = d
		}
	}
}

// Dial opens a session and sends the start frame. onSentence, when non-nil, is
// called from the read goroutine for every sentence received.
func Dial(ctx domain.Context, cfg domain.ProviderConfig, onSentence domain.ProgressFunc, opts ...Option) (*Session, error) {
	if !cfg.HasAPIKey() {
		return nil, fmt.Errorf("op=paraformer.Dial: %w", domain.ConfigErrorf("speech api key missing"))
	}
	o := dialOptions{dialer: websocket.DefaultDialer}
	for _, opt := range opts {
		opt(&o)
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	lg := observability.LoggerFromContext(ctx)
	start := time.Now()
	header := http.Header{"Authorization": []string{"Bearer " + cfg.APIKey}}
	conn, resp, err := o.dialer.DialContext(ctx, endpoint, header)
	observability.ObserveAIRequest(providerName, "realtime_dial", start)
	if err != nil {
		if resp != nil {
			lg.Error("paraformer handshake rejected", slog.Int("status", resp.StatusCode))
			return nil, fmt.Errorf("op=paraformer.Dial: %w",
				&domain.UpstreamError{Provider: providerName, Op: "realtime_dial", Status: resp.StatusCode})
		}
		lg.Error("paraformer dial failed", slog.Any("error", err))
		return nil, fmt.Errorf("op=paraformer.Dial: %w: %v", domain.ErrNetwork, err)
	}

	s := &Session{
		id:         uuid.NewString(),
		conn:       conn,
		onSentence: onSentence,
		done:       make(chan struct{}),
	}
	s.logger = lg.With(slog.String("session_id", s.id), slog.String("provider", providerName))

	if err := conn.WriteJSON(startFrame{Model: model, Format: "pcm", SampleRate: SampleRate, APIKey: cfg.APIKey}); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("op=paraformer.Dial: %w: send start frame: %v", domain.ErrNetwork, err)
	}
	observability.RealtimeSessionsActive.Inc()
	s.logger.Info("realtime session opened", slog.String("model", model))

	go s.readLoop()
	return s, nil
}

// Dialer opens sessions against one fixed configuration.
type Dialer struct {
	cfg  domain.ProviderConfig
	opts []Option
}

// NewDialer binds cfg and opts for later Dial calls.
func NewDialer(cfg domain.ProviderConfig, opts ...Option) *Dialer {
	return &Dialer{cfg: cfg, opts: opts}
}

// Dial implements domain.RealtimeDialer.
func (d *Dialer) Dial(ctx domain.Context, onSentence domain.ProgressFunc) (domain.RealtimeSession, error) {
	s, err := Dial(ctx, d.cfg, onSentence, d.opts...)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// ID identifies the session in logs.
func (s *Session) ID() string { return s.id }

// SendAudioFrame pushes one chunk of 16-bit mono PCM.
func (s *Session) SendAudioFrame(pcm []byte) error {
	if s.stopping.Load() || s.closeSent.Load() {
		return ErrSessionClosed
	}
	if len(pcm) == 0 {
		return nil
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.WriteMessage(websocket.BinaryMessage, pcm); err != nil {
		return fmt.Errorf("op=paraformer.SendAudioFrame: %w: %v", domain.ErrNetwork, err)
	}
	return nil
}

// Text returns the transcript captured so far.
func (s *Session) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text.String()
}

// Done is closed once the read loop has ended.
func (s *Session) Done() <-chan struct{} { return s.done }

// Drain signals end of audio and waits for the service to close the
// connection, so trailing sentences are still captured. It then stops the
// session and returns the transcript.
func (s *Session) Drain(ctx domain.Context) (string, error) {
	s.sendClose()
	select {
	case <-s.done:
	case <-ctx.Done():
		text, _ := s.Stop()
		return text, ctx.Err()
	}
	return s.Stop()
}

// Stop closes the connection and every registered closer exactly once and
// returns whatever text was captured. Later calls return the same result.
func (s *Session) Stop() (string, error) {
	s.stopOnce.Do(func() {
		s.stopping.Store(true)
		s.sendClose()
		_ = s.conn.Close()
		<-s.done

		observability.RealtimeSessionsActive.Dec()
		s.mu.Lock()
		s.stopErr = s.err
		s.mu.Unlock()
		s.logger.Info("realtime session stopped", slog.Int("chars", len([]rune(s.Text()))))
	})
	return s.Text(), s.stopErr
}

func (s *Session) sendClose() {
	s.closeOnce.Do(func() {
		s.closeSent.Store(true)
		// WriteControl may run concurrently with an in-flight audio frame.
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeTimeout))
	})
}

func (s *Session) readLoop() {
	defer close(s.done)
	for {
		mt, data, err := s.conn.ReadMessage()
		if err != nil {
			if s.closeSent.Load() || s.stopping.Load() ||
				websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return
			}
			s.logger.Error("realtime read failed", slog.Any("error", err))
			s.mu.Lock()
			s.err = fmt.Errorf("op=paraformer.read: %w: %v", domain.ErrNetwork, err)
			s.mu.Unlock()
			return
		}
		if mt != websocket.TextMessage {
			continue
		}
		var r result
		if err := json.Unmarshal(data, &r); err != nil {
			observability.ObserveFrame(providerName, "skipped")
			s.logger.Warn("skip malformed realtime frame",
				slog.Any("error", fmt.Errorf("%w: %v", domain.ErrFrameParse, err)),
				slog.String("frame", snippet(data)))
			continue
		}
		sentence := r.text()
		if sentence == "" {
			continue
		}
		observability.ObserveFrame(providerName, "ok")
		s.mu.Lock()
		s.text.WriteString(sentence)
		text := s.text.String()
		s.mu.Unlock()
		if s.onSentence != nil {
			s.onSentence(sentence, text)
		}
	}
}

func snippet(b []byte) string {
	const limit = 200
	if len(b) > limit {
		return string(b[:limit])
	}
	return string(b)
}
