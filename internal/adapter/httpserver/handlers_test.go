package httpserver_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpserver "github.com/fairyhunter13/ai-interview-trainer/internal/adapter/httpserver"
	"github.com/fairyhunter13/ai-interview-trainer/internal/config"
	"github.com/fairyhunter13/ai-interview-trainer/internal/domain"
	"github.com/fairyhunter13/ai-interview-trainer/internal/usecase"
)

type stubChat struct {
	text string
	err  error
}

func (s stubChat) Complete(domain.Context, string) (domain.Completion, error) {
	return domain.Completion{Text: s.text}, s.err
}

type stubSTT struct {
	steps []string
	err   error
}

func (s stubSTT) Transcribe(_ domain.Context, _ domain.Audio, onProgress domain.ProgressFunc) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	text := ""
	for _, d := range s.steps {
		text += d
		if onProgress != nil {
			onProgress(d, text)
		}
	}
	return text, nil
}

type stubTTS struct {
	chunks [][]byte
	err    error
}

func (s stubTTS) Synthesize(_ domain.Context, text string) (domain.SynthesizedAudio, error) {
	if s.err != nil {
		return domain.SynthesizedAudio{}, s.err
	}
	if strings.TrimSpace(text) == "" {
		return domain.SynthesizedAudio{}, nil
	}
	return domain.SynthesizedAudio{Data: []byte("RIFFxxxxWAVE"), ContentType: "audio/wav"}, nil
}

func (s stubTTS) Stream(_ domain.Context, _ string, p domain.Player) error {
	for _, c := range s.chunks {
		p.Play(domain.AudioBuffer{Raw: c, SampleRate: 22050}, func() {})
	}
	return s.err
}

func newServer(t *testing.T, chat domain.ChatCompleter, stt domain.Transcriber, tts domain.Synthesizer) *httpserver.Server {
	t.Helper()
	cfg := config.Config{AppEnv: "test", MaxAudioMB: 1, CORSAllowOrigins: "*"}
	return httpserver.NewServer(cfg, usecase.NewInterviewService(chat, stt, tts, nil))
}

func decodeEnvelope(t *testing.T, body []byte) map[string]any {
	t.Helper()
	var env struct {
		Error map[string]any `json:"error"`
	}
	require.NoError(t, json.Unmarshal(body, &env))
	return env.Error
}

func postJSON(h http.Handler, body string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestQuestionsHandler(t *testing.T) {
	t.Parallel()

	chat := stubChat{text: "好的，题目如下：\n```json\n[{\"question\":\"谈谈你对双减的理解\",\"reference\":\"减负提质\",\"type\":7}]\n```"}
	srv := newServer(t, chat, nil, nil)

	w := postJSON(srv.QuestionsHandler(), `{"interview_type":"teacher-recruitment","subject":"math","difficulty":"hard","include_hot_topics":true}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))

	var out struct {
		Questions []domain.InterviewQuestion `json:"questions"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, []domain.InterviewQuestion{{Question: "谈谈你对双减的理解", Reference: "减负提质", Type: domain.QuestionPolicy}}, out.Questions)
}

func TestQuestionsHandler_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		chat    stubChat
		body    string
		accept  string
		status  int
		code    string
		message string
	}{
		{
			name:   "bad difficulty",
			body:   `{"subject":"math","difficulty":"extreme"}`,
			status: http.StatusBadRequest, code: "INVALID_ARGUMENT", message: "invalid argument: validation failed",
		},
		{
			name:   "unknown field",
			body:   `{"subject":"math","difficulty":"easy","foo":1}`,
			status: http.StatusBadRequest, code: "INVALID_ARGUMENT",
		},
		{
			name:   "not acceptable",
			body:   `{}`,
			accept: "text/html",
			status: http.StatusNotAcceptable, code: "INVALID_ARGUMENT", message: "not acceptable",
		},
		{
			name:   "upstream down",
			chat:   stubChat{err: &domain.UpstreamError{Provider: "qwen", Op: "chat", Status: 500, Snippet: "sk-secret"}},
			body:   `{"subject":"math","difficulty":"easy"}`,
			status: http.StatusBadGateway, code: "UPSTREAM", message: domain.MsgGenerateQuestionsFailed,
		},
		{
			name:   "missing key",
			chat:   stubChat{err: domain.ConfigErrorf("chat api key missing")},
			body:   `{"subject":"math","difficulty":"easy"}`,
			status: http.StatusServiceUnavailable, code: "CONFIG", message: domain.MsgGenerateQuestionsFailed,
		},
		{
			name:   "nothing recoverable",
			chat:   stubChat{text: "对不起"},
			body:   `{"subject":"math","difficulty":"easy"}`,
			status: http.StatusBadGateway, code: "PARSE", message: domain.MsgGenerateQuestionsFailed,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := newServer(t, tt.chat, nil, nil)
			r := httptest.NewRequest(http.MethodPost, "/v1/questions", strings.NewReader(tt.body))
			r.Header.Set("Content-Type", "application/json")
			if tt.accept != "" {
				r.Header.Set("Accept", tt.accept)
			}
			w := httptest.NewRecorder()
			srv.QuestionsHandler()(w, r)

			require.Equal(t, tt.status, w.Code)
			env := decodeEnvelope(t, w.Body.Bytes())
			assert.Equal(t, tt.code, env["code"])
			if tt.message != "" {
				assert.Equal(t, tt.message, env["message"])
			}
			assert.NotContains(t, w.Body.String(), "sk-secret")
		})
	}
}

func TestQuestionsHandler_ValidationDetails(t *testing.T) {
	t.Parallel()

	w := postJSON(newServer(t, stubChat{}, nil, nil).QuestionsHandler(), `{"difficulty":"extreme"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	env := decodeEnvelope(t, w.Body.Bytes())
	assert.Equal(t, map[string]any{"subject": "required", "difficulty": "oneof"}, env["details"])
}

func TestEvaluationsHandler(t *testing.T) {
	t.Parallel()

	t.Run("graded", func(t *testing.T) {
		t.Parallel()
		srv := newServer(t, stubChat{text: `{"score": 88, "evaluation": "结构完整"}`}, nil, nil)
		w := postJSON(srv.EvaluationsHandler(), `{"question":"如何家访？","user_answer":"提前沟通","interview_type":"teacher-qualification"}`)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"score":88,"evaluation":"结构完整"}`, w.Body.String())
	})

	t.Run("unparseable uses default", func(t *testing.T) {
		t.Parallel()
		srv := newServer(t, stubChat{text: "无法评分"}, nil, nil)
		w := postJSON(srv.EvaluationsHandler(), `{"question":"q","user_answer":"a"}`)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"score":70,"evaluation":"系统无法解析评价结果，请重试或联系管理员。"}`, w.Body.String())
	})

	t.Run("missing answer", func(t *testing.T) {
		t.Parallel()
		w := postJSON(newServer(t, stubChat{}, nil, nil).EvaluationsHandler(), `{"question":"q"}`)
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, map[string]any{"useranswer": "required"}, decodeEnvelope(t, w.Body.Bytes())["details"])
	})

	t.Run("network", func(t *testing.T) {
		t.Parallel()
		srv := newServer(t, stubChat{err: fmt.Errorf("%w: reset", domain.ErrNetwork)}, nil, nil)
		w := postJSON(srv.EvaluationsHandler(), `{"question":"q","user_answer":"a"}`)
		require.Equal(t, http.StatusBadGateway, w.Code)
		assert.Equal(t, domain.MsgEvaluateAnswerFailed, decodeEnvelope(t, w.Body.Bytes())["message"])
	})
}

func wavBytes(pcm int) []byte {
	var b bytes.Buffer
	b.WriteString("RIFF")
	_ = binary.Write(&b, binary.LittleEndian, uint32(36+pcm))
	b.WriteString("WAVEfmt ")
	_ = binary.Write(&b, binary.LittleEndian, uint32(16))
	_ = binary.Write(&b, binary.LittleEndian, uint16(1))
	_ = binary.Write(&b, binary.LittleEndian, uint16(1))
	_ = binary.Write(&b, binary.LittleEndian, uint32(16000))
	_ = binary.Write(&b, binary.LittleEndian, uint32(32000))
	_ = binary.Write(&b, binary.LittleEndian, uint16(2))
	_ = binary.Write(&b, binary.LittleEndian, uint16(16))
	b.WriteString("data")
	_ = binary.Write(&b, binary.LittleEndian, uint32(pcm))
	b.Write(make([]byte, pcm))
	return b.Bytes()
}

func multipartRequest(t *testing.T, field string, data []byte) *http.Request {
	t.Helper()
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	fw, err := mw.CreateFormFile(field, "recording.wav")
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	r := httptest.NewRequest(http.MethodPost, "/v1/transcriptions", buf)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	return r
}

func TestTranscriptionsHandler_JSON(t *testing.T) {
	t.Parallel()

	srv := newServer(t, nil, stubSTT{steps: []string{"我", "认为"}}, nil)
	w := httptest.NewRecorder()
	srv.TranscriptionsHandler()(w, multipartRequest(t, "audio", wavBytes(320)))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"text":"我认为"}`, w.Body.String())
}

func TestTranscriptionsHandler_EventStream(t *testing.T) {
	t.Parallel()

	srv := newServer(t, nil, stubSTT{steps: []string{"我", "认为"}}, nil)
	r := multipartRequest(t, "audio", wavBytes(320))
	r.Header.Set("Accept", "text/event-stream")
	w := httptest.NewRecorder()
	srv.TranscriptionsHandler()(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	want := "event: progress\ndata: {\"delta\":\"我\",\"text\":\"我\"}\n\n" +
		"event: progress\ndata: {\"delta\":\"认为\",\"text\":\"我认为\"}\n\n" +
		"event: result\ndata: {\"text\":\"我认为\"}\n\n"
	assert.Equal(t, want, w.Body.String())
}

func TestTranscriptionsHandler_EventStreamError(t *testing.T) {
	t.Parallel()

	srv := newServer(t, nil, stubSTT{err: errors.New("boom")}, nil)
	r := multipartRequest(t, "audio", wavBytes(320))
	r.Header.Set("Accept", "text/event-stream")
	w := httptest.NewRecorder()
	srv.TranscriptionsHandler()(w, r)

	assert.Equal(t, "event: error\ndata: {\"code\":\"INTERNAL\",\"message\":\""+domain.MsgRecognitionFailed+"\",\"details\":null}\n\n", w.Body.String())
}

func TestTranscriptionsHandler_Rejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		req    func(t *testing.T) *http.Request
		status int
	}{
		{"not multipart", func(t *testing.T) *http.Request {
			r := httptest.NewRequest(http.MethodPost, "/v1/transcriptions", strings.NewReader("x"))
			r.Header.Set("Content-Type", "application/json")
			return r
		}, http.StatusBadRequest},
		{"missing field", func(t *testing.T) *http.Request { return multipartRequest(t, "file", wavBytes(10)) }, http.StatusBadRequest},
		{"not audio", func(t *testing.T) *http.Request {
			return multipartRequest(t, "audio", []byte("%PDF-1.4\n%âãÏÓ\n1 0 obj"))
		}, http.StatusUnsupportedMediaType},
		{"too large", func(t *testing.T) *http.Request { return multipartRequest(t, "audio", wavBytes(1<<20)) }, http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := newServer(t, nil, stubSTT{steps: []string{"x"}}, nil)
			w := httptest.NewRecorder()
			srv.TranscriptionsHandler()(w, tt.req(t))
			require.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Equal(t, "INVALID_ARGUMENT", decodeEnvelope(t, w.Body.Bytes())["code"])
		})
	}
}

func TestSpeechHandler(t *testing.T) {
	t.Parallel()

	t.Run("payload", func(t *testing.T) {
		t.Parallel()
		w := postJSON(newServer(t, nil, nil, stubTTS{}).SpeechHandler(), `{"text":"你好"}`)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "audio/wav", w.Header().Get("Content-Type"))
		assert.Equal(t, "RIFFxxxxWAVE", w.Body.String())
	})

	t.Run("blank text", func(t *testing.T) {
		t.Parallel()
		w := postJSON(newServer(t, nil, nil, stubTTS{}).SpeechHandler(), `{"text":"   "}`)
		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("stream", func(t *testing.T) {
		t.Parallel()
		tts := stubTTS{chunks: [][]byte{{1, 0, 2, 0}, {3, 0}}}
		w := postJSON(newServer(t, nil, nil, tts).SpeechHandler(), `{"text":"你好","stream":true}`)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "audio/L16;rate=22050;channels=1", w.Header().Get("Content-Type"))
		assert.Equal(t, []byte{1, 0, 2, 0, 3, 0}, w.Body.Bytes())
		assert.True(t, w.Flushed)
	})

	t.Run("stream fails before audio", func(t *testing.T) {
		t.Parallel()
		tts := stubTTS{err: domain.ConfigErrorf("streaming needs a pcm format")}
		w := postJSON(newServer(t, nil, nil, tts).SpeechHandler(), `{"text":"你好","stream":true}`)
		require.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, domain.MsgSynthesisFailed, decodeEnvelope(t, w.Body.Bytes())["message"])
	})

	t.Run("stream fails midway keeps status", func(t *testing.T) {
		t.Parallel()
		tts := stubTTS{chunks: [][]byte{{1, 0}}, err: fmt.Errorf("%w: reset", domain.ErrNetwork)}
		w := postJSON(newServer(t, nil, nil, tts).SpeechHandler(), `{"text":"你好","stream":true}`)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, []byte{1, 0}, w.Body.Bytes())
	})

	t.Run("empty text rejected", func(t *testing.T) {
		t.Parallel()
		w := postJSON(newServer(t, nil, nil, stubTTS{}).SpeechHandler(), `{"text":""}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestReadyzHandler(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		probes []httpserver.Probe
		status int
	}{
		{"no probes", nil, http.StatusOK},
		{"all ok", []httpserver.Probe{{Name: "chat", Check: func(context.Context) error { return nil }}}, http.StatusOK},
		{"one failing", []httpserver.Probe{
			{Name: "chat", Check: func(context.Context) error { return nil }},
			{Name: "tts", Check: func(context.Context) error { return domain.ConfigErrorf("tts api key missing") }},
		}, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := httpserver.NewServer(config.Config{}, usecase.InterviewService{}, tt.probes...)
			w := httptest.NewRecorder()
			srv.ReadyzHandler()(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
			require.Equal(t, tt.status, w.Code)

			var out struct {
				Checks []usecase.ReadinessCheck `json:"checks"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
			assert.Len(t, out.Checks, len(tt.probes))
		})
	}
}

func TestHealthzHandler(t *testing.T) {
	t.Parallel()
	w := httptest.NewRecorder()
	httpserver.NewServer(config.Config{}, usecase.InterviewService{}).HealthzHandler()(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}
