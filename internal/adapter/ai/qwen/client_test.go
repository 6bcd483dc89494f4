package qwen

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ai-interview-trainer/internal/domain"
)

func sseServer(t *testing.T, check func(t *testing.T, body map[string]any), frames ...string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if check != nil {
			check(t, body)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		fl, _ := w.(http.Flusher)
		for _, f := range frames {
			_, _ = fmt.Fprintf(w, "data: %s\n\n", f)
			if fl != nil {
				fl.Flush()
			}
		}
	}))
}

func delta(s string) string {
	b, _ := json.Marshal(map[string]any{"choices": []any{map[string]any{"delta": map[string]string{"content": s}}}})
	return string(b)
}

func TestComplete(t *testing.T) {
	t.Parallel()

	srv := sseServer(t, func(t *testing.T, body map[string]any) {
		assert.Equal(t, "qwen-test", body["model"])
		assert.Equal(t, true, body["stream"])
		assert.Equal(t, []any{"text"}, body["modalities"])
		assert.Equal(t, map[string]any{"include_usage": true}, body["stream_options"])
		msgs := body["messages"].([]any)
		if !assert.Len(t, msgs, 1) {
			return
		}
		assert.Equal(t, map[string]any{"role": "user", "content": "出题"}, msgs[0])
	},
		delta(`[{"question":`),
		`{broken`,
		delta(`"q"}]`),
		`{"choices":[],"usage":{"prompt_tokens":10,"completion_tokens":4,"total_tokens":14}}`,
		`[DONE]`,
	)
	defer srv.Close()

	c := New(domain.ProviderConfig{APIKey: "test-key", Model: "qwen-test", Endpoint: srv.URL})
	got, err := c.Complete(context.Background(), "出题")
	require.NoError(t, err)
	assert.Equal(t, `[{"question":"q"}]`, got.Text)
	assert.Equal(t, domain.Usage{PromptTokens: 10, CompletionTokens: 4, TotalTokens: 14}, got.Usage)
}

func TestComplete_EstimatesUsageWhenMissing(t *testing.T) {
	t.Parallel()

	srv := sseServer(t, nil, delta("你好"), `[DONE]`)
	defer srv.Close()

	got, err := New(domain.ProviderConfig{APIKey: "test-key", Endpoint: srv.URL}).Complete(context.Background(), "打个招呼")
	require.NoError(t, err)
	assert.Equal(t, "你好", got.Text)
	assert.True(t, got.Usage.Estimated)
	assert.Positive(t, got.Usage.TotalTokens)
}

func TestComplete_Errors(t *testing.T) {
	t.Parallel()

	t.Run("missing key", func(t *testing.T) {
		t.Parallel()
		_, err := New(domain.ProviderConfig{}).Complete(context.Background(), "x")
		assert.ErrorIs(t, err, domain.ErrConfig)
	})

	t.Run("non-2xx", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, `{"error":"invalid api key"}`, http.StatusUnauthorized)
		}))
		defer srv.Close()

		_, err := New(domain.ProviderConfig{APIKey: "bad", Endpoint: srv.URL}).Complete(context.Background(), "x")
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrNetwork)
		var ue *domain.UpstreamError
		require.ErrorAs(t, err, &ue)
		assert.Equal(t, http.StatusUnauthorized, ue.Status)
	})
}

func TestCompleteAudio(t *testing.T) {
	t.Parallel()

	rec := []byte{0x01, 0x02, 0x03, 0x04}
	srv := sseServer(t, func(t *testing.T, body map[string]any) {
		msgs := body["messages"].([]any)
		content := msgs[0].(map[string]any)["content"].([]any)
		if !assert.Len(t, content, 2) {
			return
		}
		assert.Equal(t, map[string]any{
			"type": "input_audio",
			"input_audio": map[string]any{
				"data":   base64.StdEncoding.EncodeToString(rec),
				"format": "wav",
			},
		}, content[0])
		assert.Equal(t, map[string]any{"type": "text", "text": "请识别这段语音内容"}, content[1])
	}, delta("我认为"), delta("教育是"), delta("良心工程"), `[DONE]`)
	defer srv.Close()

	var progress []string
	c := New(domain.ProviderConfig{APIKey: "test-key", Endpoint: srv.URL})
	text, err := c.CompleteAudio(context.Background(), domain.Audio{Data: rec, MIME: "audio/webm"}, "请识别这段语音内容",
		func(_, text string) { progress = append(progress, text) })
	require.NoError(t, err)
	assert.Equal(t, "我认为教育是良心工程", text)
	assert.Equal(t, []string{"我认为", "我认为教育是", "我认为教育是良心工程"}, progress)
}

func TestCompleteAudio_NoHintAndEmpty(t *testing.T) {
	t.Parallel()

	srv := sseServer(t, func(t *testing.T, body map[string]any) {
		content := body["messages"].([]any)[0].(map[string]any)["content"].([]any)
		if !assert.Len(t, content, 1) {
			return
		}
		assert.Equal(t, "mp3", content[0].(map[string]any)["input_audio"].(map[string]any)["format"])
	}, `[DONE]`)
	defer srv.Close()

	c := New(domain.ProviderConfig{APIKey: "test-key", Endpoint: srv.URL})
	text, err := c.CompleteAudio(context.Background(), domain.Audio{Data: []byte{1}, MIME: "audio/mpeg"}, "", nil)
	require.NoError(t, err)
	assert.Equal(t, "", text)

	_, err = c.CompleteAudio(context.Background(), domain.Audio{}, "", nil)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}
