// Package observability provides logging, metrics, and tracing.
package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"route", "method"},
	)

	AIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_requests_total",
			Help: "Total number of AI requests by provider and operation",
		},
		[]string{"provider", "operation"},
	)
	AIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_request_duration_seconds",
			Help:    "AI request duration in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"provider", "operation"},
	)

	// StreamFramesTotal counts decoded stream frames. outcome is ok, skipped or done.
	StreamFramesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_stream_frames_total",
			Help: "Total number of stream frames by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)

	// ExtractionStageTotal counts which extraction stage produced a result.
	ExtractionStageTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "extraction_stage_total",
			Help: "Structured-result extraction outcomes by kind and winning stage",
		},
		[]string{"kind", "stage"},
	)

	EvaluationScoreHistogram = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "evaluation_score",
			Help:    "Distribution of answer evaluation scores ([0,100])",
			Buckets: []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		},
	)

	AITokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_tokens_total",
			Help: "Chat tokens consumed by provider and kind (prompt, completion)",
		},
		[]string{"provider", "kind"},
	)

	// SynthesizedAudioSeconds counts streamed speech by decoded sample time.
	SynthesizedAudioSeconds = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tts_audio_seconds_total",
			Help: "Seconds of synthesized speech played by provider",
		},
		[]string{"provider"},
	)

	RealtimeSessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "realtime_sessions_active",
			Help: "Number of open realtime recognition sessions",
		},
	)
)

var initOnce sync.Once

// InitMetrics registers all collectors with the default registry. Safe to call more than once.
func InitMetrics() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			HTTPRequestsTotal,
			HTTPRequestDuration,
			AIRequestsTotal,
			AIRequestDuration,
			StreamFramesTotal,
			ExtractionStageTotal,
			EvaluationScoreHistogram,
			AITokensTotal,
			SynthesizedAudioSeconds,
			RealtimeSessionsActive,
		)
	})
}

// HTTPMetricsMiddleware records Prometheus metrics for each request.
func HTTPMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		dur := time.Since(start).Seconds()
		// Route pattern may be unavailable outside chi router; guard nil
		var route string
		if rc := chi.RouteContext(r.Context()); rc != nil {
			route = rc.RoutePattern()
		}
		if route == "" {
			route = r.URL.Path
		}
		status := ww.Status()
		HTTPRequestsTotal.WithLabelValues(route, r.Method, http.StatusText(status)).Inc()
		HTTPRequestDuration.WithLabelValues(route, r.Method).Observe(dur)
	})
}

// ObserveAIRequest counts one vendor call and its latency.
func ObserveAIRequest(provider, operation string, start time.Time) {
	AIRequestsTotal.WithLabelValues(provider, operation).Inc()
	AIRequestDuration.WithLabelValues(provider, operation).Observe(time.Since(start).Seconds())
}

// ObserveFrame counts one stream frame outcome.
func ObserveFrame(provider, outcome string) {
	StreamFramesTotal.WithLabelValues(provider, outcome).Inc()
}

// ObserveExtraction records the stage that produced a structured result.
func ObserveExtraction(kind, stage string) {
	ExtractionStageTotal.WithLabelValues(kind, stage).Inc()
}

// ObserveEvaluationScore records a final evaluation score.
func ObserveEvaluationScore(score int) {
	if score >= 0 && score <= 100 {
		EvaluationScoreHistogram.Observe(float64(score))
	}
}

// ObserveTokens records chat token usage.
func ObserveTokens(provider string, prompt, completion int) {
	if prompt > 0 {
		AITokensTotal.WithLabelValues(provider, "prompt").Add(float64(prompt))
	}
	if completion > 0 {
		AITokensTotal.WithLabelValues(provider, "completion").Add(float64(completion))
	}
}

// ObserveSynthesizedAudio adds the playback length of samples at sampleRate.
func ObserveSynthesizedAudio(provider string, samples, sampleRate int) {
	if samples > 0 && sampleRate > 0 {
		SynthesizedAudioSeconds.WithLabelValues(provider).Add(float64(samples) / float64(sampleRate))
	}
}
