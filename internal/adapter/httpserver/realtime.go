package httpserver

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/fairyhunter13/ai-interview-trainer/internal/domain"
)

const (
	// stopCommand is the text frame a client sends after its last audio frame.
	stopCommand    = "stop"
	drainTimeout   = 3 * time.Second
	wsWriteTimeout = 5 * time.Second
	// maxFrameBytes bounds one inbound audio frame; clients send 100 ms frames.
	maxFrameBytes = 64 << 10
)

type realtimeMessage struct {
	Type    string `json:"type"`
	Text    string `json:"text,omitempty"`
	Delta   string `json:"delta,omitempty"`
	Message string `json:"message,omitempty"`
}

// drainer is implemented by sessions that can wait for trailing results.
type drainer interface {
	Drain(ctx context.Context) (string, error)
}

// wsConn serializes writes: sentence callbacks run on the upstream reader
// goroutine while the handler sends the final message.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsConn) send(m realtimeMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return c.conn.WriteJSON(m)
}

func (c *wsConn) close(code int, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(time.Second))
	_ = c.conn.Close()
}

func (s *Server) upgrader() *websocket.Upgrader {
	origins := ParseOrigins(s.Cfg.CORSAllowOrigins)
	return &websocket.Upgrader{
		ReadBufferSize:  8 << 10,
		WriteBufferSize: 8 << 10,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, o := range origins {
				if o == "*" || strings.EqualFold(o, origin) {
					return true
				}
			}
			return false
		},
	}
}

// ParseOrigins splits a comma-separated origin list, trimming spaces. An
// empty list means any origin.
func ParseOrigins(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

// RealtimeHandler relays browser microphone frames to a realtime recognition
// session. Binary frames carry 16 kHz mono PCM; the text frame "stop" ends
// the utterance and the final transcript is sent before the socket closes.
func (s *Server) RealtimeHandler() http.HandlerFunc {
	up := s.upgrader()
	return func(w http.ResponseWriter, r *http.Request) {
		lg := LoggerFrom(r)
		raw, err := up.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade already answered the client.
			lg.Warn("websocket upgrade failed", slog.Any("error", err))
			return
		}
		raw.SetReadLimit(maxFrameBytes)
		conn := &wsConn{conn: raw}

		// The session outlives the request context only until this handler returns.
		ctx := r.Context()
		sess, err := s.Interview.StartRealtime(ctx, func(delta, text string) {
			_ = conn.send(realtimeMessage{Type: "partial", Text: text, Delta: delta})
		})
		if err != nil {
			_, _, msg := errorStatus(err)
			_ = conn.send(realtimeMessage{Type: "error", Message: msg})
			conn.close(websocket.CloseInternalServerErr, "recognition unavailable")
			return
		}

		stopped := relayFrames(raw, sess, lg)

		var text string
		if d, ok := sess.(drainer); ok && stopped {
			dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), drainTimeout)
			text, err = d.Drain(dctx)
			cancel()
			if errors.Is(err, context.DeadlineExceeded) {
				// Late sentences are lost; what arrived is still the answer.
				err = nil
			}
		} else {
			text, err = sess.Stop()
		}
		if err != nil {
			lg.Error("realtime session ended with error", slog.Any("error", err))
			_, _, msg := errorStatus(domain.NewUserError("httpserver.Realtime", domain.MsgRecognitionFailed, err))
			_ = conn.send(realtimeMessage{Type: "error", Message: msg})
			conn.close(websocket.CloseInternalServerErr, "recognition failed")
			return
		}
		_ = conn.send(realtimeMessage{Type: "final", Text: text})
		conn.close(websocket.CloseNormalClosure, "")
	}
}

// relayFrames forwards audio until the client sends "stop", the socket
// fails or the upstream finishes. It reports whether the client asked to stop.
func relayFrames(raw *websocket.Conn, sess domain.RealtimeSession, lg *slog.Logger) bool {
	finished := make(chan struct{})
	defer close(finished)
	go func() {
		select {
		case <-sess.Done():
			// Unblock ReadMessage once the upstream is gone.
			_ = raw.SetReadDeadline(time.Now())
		case <-finished:
		}
	}()

	for {
		mt, data, err := raw.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				lg.Debug("realtime read ended", slog.Any("error", err))
			}
			return false
		}
		switch mt {
		case websocket.BinaryMessage:
			if err := sess.SendAudioFrame(data); err != nil {
				lg.Warn("realtime frame rejected", slog.Any("error", err))
				return false
			}
		case websocket.TextMessage:
			if strings.TrimSpace(string(data)) == stopCommand {
				return true
			}
		}
	}
}
