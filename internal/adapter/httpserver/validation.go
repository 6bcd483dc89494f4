package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/fairyhunter13/ai-interview-trainer/internal/domain"
	"github.com/fairyhunter13/ai-interview-trainer/pkg/textx"
)

// maxJSONBody caps JSON request bodies. Answers are free text, so leave room.
const maxJSONBody = 1 << 20

type questionsRequest struct {
	InterviewType    string `json:"interview_type" validate:"omitempty,max=64"`
	Subject          string `json:"subject" validate:"required,max=64"`
	Difficulty       string `json:"difficulty" validate:"required,oneof=easy medium hard"`
	IncludeHotTopics bool   `json:"include_hot_topics"`
}

func (q questionsRequest) params() domain.QuestionParams {
	it := q.InterviewType
	if it == "" {
		it = domain.InterviewTeacherQualification
	}
	return domain.QuestionParams{
		InterviewType:    it,
		Subject:          q.Subject,
		Difficulty:       q.Difficulty,
		IncludeHotTopics: q.IncludeHotTopics,
	}
}

type evaluationRequest struct {
	Question      string `json:"question" validate:"required,max=4000"`
	UserAnswer    string `json:"user_answer" validate:"required,max=20000"`
	InterviewType string `json:"interview_type" validate:"omitempty,max=64"`
	Subject       string `json:"subject" validate:"omitempty,max=64"`
}

func (e evaluationRequest) params() domain.EvaluationParams {
	return domain.EvaluationParams{
		Question:      textx.SanitizeText(e.Question),
		UserAnswer:    textx.SanitizeText(e.UserAnswer),
		InterviewType: e.InterviewType,
		Subject:       e.Subject,
	}
}

type speechRequest struct {
	Text   string `json:"text" validate:"required,max=2000"`
	Stream bool   `json:"stream"`
}

var (
	vldOnce sync.Once
	vld     *validator.Validate
)

func getValidator() *validator.Validate {
	vldOnce.Do(func() { vld = validator.New() })
	return vld
}

// decodeJSON reads one JSON object into dst and validates it. The returned
// details map field names to the failing validation tag.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) (map[string]string, error) {
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.Contains(ct, "application/json") {
		return nil, fmt.Errorf("%w: content-type must be application/json", domain.ErrInvalidArgument)
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return nil, fmt.Errorf("%w: payload too large", domain.ErrInvalidArgument)
		}
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty body", domain.ErrInvalidArgument)
		}
		return nil, fmt.Errorf("%w: invalid json: %v", domain.ErrInvalidArgument, err)
	}
	if err := getValidator().Struct(dst); err != nil {
		verrs := map[string]string{}
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			for _, fe := range ve {
				verrs[strings.ToLower(fe.Field())] = fe.Tag()
			}
		}
		return verrs, fmt.Errorf("%w: validation failed", domain.ErrInvalidArgument)
	}
	return nil, nil
}

// acceptsJSON mirrors the negotiation used by every JSON endpoint.
func acceptsJSON(r *http.Request) bool {
	a := r.Header.Get("Accept")
	return a == "" || a == "*/*" || strings.Contains(a, "application/json")
}

func wantsEventStream(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/event-stream")
}

func writeNotAcceptable(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotAcceptable, errorEnvelope{Error: apiError{
		Code:    "INVALID_ARGUMENT",
		Message: "not acceptable",
		Details: map[string]string{"accept": r.Header.Get("Accept")},
	}})
}
