package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/fairyhunter13/ai-interview-trainer/internal/config"
	"github.com/fairyhunter13/ai-interview-trainer/internal/usecase"
)

// Probe is one named readiness check.
type Probe struct {
	Name  string
	Check func(ctx context.Context) error
}

// Server aggregates handler dependencies.
type Server struct {
	Cfg       config.Config
	Interview usecase.InterviewService
	Probes    []Probe
}

// NewServer constructs an HTTP server with all handlers and checks wired.
func NewServer(cfg config.Config, interview usecase.InterviewService, probes ...Probe) *Server {
	return &Server{Cfg: cfg, Interview: interview, Probes: probes}
}

// QuestionsHandler generates a structured-interview question set.
func (s *Server) QuestionsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !acceptsJSON(r) {
			writeNotAcceptable(w, r)
			return
		}
		var req questionsRequest
		if details, err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err, details)
			return
		}
		qs, err := s.Interview.GenerateQuestions(r.Context(), req.params())
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"questions": qs})
	}
}

// EvaluationsHandler grades one answer.
func (s *Server) EvaluationsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !acceptsJSON(r) {
			writeNotAcceptable(w, r)
			return
		}
		var req evaluationRequest
		if details, err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err, details)
			return
		}
		res, err := s.Interview.EvaluateAnswer(r.Context(), req.params())
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// HealthzHandler reports liveness.
func (s *Server) HealthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// ReadyzHandler runs every probe and answers 503 when any fails.
func (s *Server) ReadyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		checks := make([]usecase.ReadinessCheck, 0, len(s.Probes))
		ok := true
		for _, p := range s.Probes {
			c := usecase.ReadinessCheck{Name: p.Name, OK: true}
			if err := p.Check(ctx); err != nil {
				c.OK = false
				c.Details = err.Error()
				ok = false
			}
			checks = append(checks, c)
		}
		st := http.StatusOK
		if !ok {
			st = http.StatusServiceUnavailable
		}
		writeJSON(w, st, map[string]any{"checks": checks})
	}
}
