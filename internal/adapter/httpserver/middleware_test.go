package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ai-interview-trainer/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interview-trainer/internal/domain"
)

func TestRequestID(t *testing.T) {
	t.Parallel()

	var seen string
	h := RequestID()(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = observability.RequestIDFromContext(r.Context())
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Len(t, seen, 26, "ULID")
	assert.Equal(t, seen, w.Header().Get(requestIDHeader))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(requestIDHeader, "client-id")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Equal(t, "client-id", seen)
	assert.Equal(t, "client-id", w.Header().Get(requestIDHeader))
}

func TestNewReqID_Monotonic(t *testing.T) {
	t.Parallel()
	a, b := newReqID(), newReqID()
	assert.Less(t, a, b)
}

func TestRecoverer(t *testing.T) {
	t.Parallel()

	h := Recoverer()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":{"code":"INTERNAL","message":"Internal Server Error","details":null}}`, w.Body.String())
}

func TestTimeoutMiddleware(t *testing.T) {
	t.Parallel()

	slow := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
			w.WriteHeader(http.StatusOK)
		case <-r.Context().Done():
		}
	})

	w := httptest.NewRecorder()
	TimeoutMiddleware(10*time.Millisecond)(slow).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "TIMEOUT")

	fast := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusTeapot) })
	w = httptest.NewRecorder()
	TimeoutMiddleware(0)(fast).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, w.Code)
}

func TestSecurityHeaders(t *testing.T) {
	t.Parallel()
	w := httptest.NewRecorder()
	SecurityHeaders(http.NotFoundHandler()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
}

func TestAccessLog_PassesThrough(t *testing.T) {
	t.Parallel()
	w := httptest.NewRecorder()
	AccessLog()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte("ok"))
	})).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}

func TestErrorStatus(t *testing.T) {
	t.Parallel()

	upstream := &domain.UpstreamError{Provider: "cosyvoice", Op: "synthesize", Status: 401, Snippet: "InvalidApiKey sk-abc"}
	tests := []struct {
		name   string
		err    error
		status int
		code   string
		msg    string
	}{
		{"invalid", fmt.Errorf("%w: subject required", domain.ErrInvalidArgument), http.StatusBadRequest, "INVALID_ARGUMENT", "invalid argument: subject required"},
		{"config", domain.NewUserError("op", domain.MsgSynthesisFailed, domain.ConfigErrorf("no key")), http.StatusServiceUnavailable, "CONFIG", domain.MsgSynthesisFailed},
		{"upstream", domain.NewUserError("op", domain.MsgSynthesisFailed, upstream), http.StatusBadGateway, "UPSTREAM", domain.MsgSynthesisFailed},
		{"parse", domain.NewUserError("op", domain.MsgGenerateQuestionsFailed, domain.ErrParse), http.StatusBadGateway, "PARSE", domain.MsgGenerateQuestionsFailed},
		{"bare upstream hides body", upstream, http.StatusBadGateway, "UPSTREAM", "Internal Server Error"},
		{"unknown", errors.New("db exploded"), http.StatusInternalServerError, "INTERNAL", "Internal Server Error"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			status, code, msg := errorStatus(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, code)
			assert.Equal(t, tt.msg, msg)
			assert.NotContains(t, msg, "sk-abc")
		})
	}
}

func TestParseOrigins(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want []string
	}{
		{"", []string{"*"}},
		{"*", []string{"*"}},
		{"https://a.com, https://b.com", []string{"https://a.com", "https://b.com"}},
		{"  ,  ", []string{"*"}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ParseOrigins(tt.in))
		})
	}
}
