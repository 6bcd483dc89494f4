package vendorhttp

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ai-interview-trainer/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interview-trainer/internal/domain"
)

func TestDo_SetsHeaders(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "enable", r.Header.Get("X-Extra"))
		b, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"a":1}`, string(b))
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	body, err := JSONBody(map[string]int{"a": 1})
	require.NoError(t, err)
	resp, err := Do(context.Background(), NewClient(0), Request{
		Provider: "test", Op: "op", URL: srv.URL, APIKey: "k",
		ContentType: "application/json", Body: body,
		Header: http.Header{"X-Extra": []string{"enable"}},
	})
	require.NoError(t, err)
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "ok", string(b))
}

func TestDo_Non2xx(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(strings.Repeat("x", 2000)))
	}))
	defer srv.Close()

	_, err := Do(context.Background(), NewClient(0), Request{Provider: "test", Op: "op", URL: srv.URL})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNetwork)
	var ue *domain.UpstreamError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, http.StatusUnauthorized, ue.Status)
	assert.Len(t, ue.Snippet, SnippetLimit)
}

func TestDo_TransportError(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := Do(context.Background(), NewClient(0), Request{Provider: "test", Op: "op", URL: url})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNetwork)
}

func TestDo_BadURL(t *testing.T) {
	t.Parallel()
	_, err := Do(context.Background(), NewClient(0), Request{Provider: "test", Op: "op", URL: "://bad"})
	assert.ErrorIs(t, err, domain.ErrConfig)
}

func TestReadSnippet(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "", ReadSnippet(nil, 10))
	assert.Equal(t, "abc", ReadSnippet(strings.NewReader("abcdef"), 3))
	assert.Equal(t, "", ReadSnippet(strings.NewReader("abc"), 0))
}

func durationSamples(t *testing.T, provider, op string) uint64 {
	t.Helper()
	var m dto.Metric
	h := observability.AIRequestDuration.WithLabelValues(provider, op).(prometheus.Metric)
	require.NoError(t, h.Write(&m))
	return m.GetHistogram().GetSampleCount()
}

func TestDo_TimesStreamedBodyOnClose(t *testing.T) {
	t.Parallel()
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("data: first\n\n"))
		w.(http.Flusher).Flush()
		<-release
		_, _ = w.Write([]byte("data: last\n\n"))
	}))
	defer srv.Close()

	resp, err := Do(context.Background(), NewClient(0), Request{Provider: "timed-stream", Op: "op", URL: srv.URL})
	require.NoError(t, err)
	assert.Equal(t, uint64(0), durationSamples(t, "timed-stream", "op"), "headers alone are not a finished call")

	close(release)
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "data: first\n\ndata: last\n\n", string(b))
	require.NoError(t, resp.Body.Close())
	_ = resp.Body.Close()
	assert.Equal(t, uint64(1), durationSamples(t, "timed-stream", "op"))
}

func TestDo_TimesFailedCalls(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := Do(context.Background(), NewClient(0), Request{Provider: "timed-fail", Op: "op", URL: srv.URL})
	require.Error(t, err)
	assert.Equal(t, uint64(1), durationSamples(t, "timed-fail", "op"))
}
