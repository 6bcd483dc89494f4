// Package usecase contains application business logic services.
package usecase

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/fairyhunter13/ai-interview-trainer/internal/adapter/ai/extract"
	"github.com/fairyhunter13/ai-interview-trainer/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interview-trainer/internal/domain"
	"github.com/fairyhunter13/ai-interview-trainer/internal/prompts"
)

// InterviewService runs the mock interview flows: question generation,
// answer grading, recognition and synthesis.
type InterviewService struct {
	Chat      domain.ChatCompleter
	STT       domain.Transcriber
	TTS       domain.Synthesizer
	HotTopics []string
	// Realtime is optional; without it StartRealtime fails with ErrConfig.
	Realtime domain.RealtimeDialer
}

// ReadinessCheck represents a single readiness probe result used by handlers.
type ReadinessCheck struct {
	Name    string `json:"name"`
	OK      bool   `json:"ok"`
	Details string `json:"details,omitempty"`
}

// NewInterviewService constructs an InterviewService with its providers.
func NewInterviewService(chat domain.ChatCompleter, stt domain.Transcriber, tts domain.Synthesizer, hotTopics []string) InterviewService {
	return InterviewService{Chat: chat, STT: stt, TTS: tts, HotTopics: hotTopics}
}

// GenerateQuestions asks the chat model for a question set. It fails with a
// user-safe error when the call fails or no question can be recovered.
func (s InterviewService) GenerateQuestions(ctx domain.Context, p domain.QuestionParams) ([]domain.InterviewQuestion, error) {
	const op = "usecase.GenerateQuestions"
	lg := observability.LoggerFromContext(ctx)

	prompt := prompts.QuestionPrompt(p, s.HotTopics)
	out, err := s.Chat.Complete(ctx, prompt)
	if err != nil {
		lg.Error("generate questions failed", slog.String("op", op), slog.Any("error", err))
		return nil, domain.NewUserError(op, domain.MsgGenerateQuestionsFailed, err)
	}

	qs, stage, err := extract.Questions(out.Text)
	observability.ObserveExtraction("questions", string(stage))
	if err != nil {
		lg.Error("no questions recovered",
			slog.String("op", op),
			slog.Int("response_len", len(out.Text)),
			slog.Any("error", err))
		return nil, domain.NewUserError(op, domain.MsgGenerateQuestionsFailed, err)
	}
	lg.Info("questions generated",
		slog.String("stage", string(stage)),
		slog.Int("count", len(qs)),
		slog.Int("total_tokens", out.Usage.TotalTokens),
		slog.Bool("tokens_estimated", out.Usage.Estimated))
	return qs, nil
}

// EvaluateAnswer grades one answer. Unparseable model output falls back to
// the default evaluation instead of failing.
func (s InterviewService) EvaluateAnswer(ctx domain.Context, p domain.EvaluationParams) (domain.EvaluationResult, error) {
	const op = "usecase.EvaluateAnswer"
	if strings.TrimSpace(p.Question) == "" || strings.TrimSpace(p.UserAnswer) == "" {
		return domain.EvaluationResult{}, fmt.Errorf("op=%s: %w: question and answer required", op, domain.ErrInvalidArgument)
	}
	lg := observability.LoggerFromContext(ctx)

	out, err := s.Chat.Complete(ctx, prompts.EvaluationPrompt(p))
	if err != nil {
		lg.Error("evaluate answer failed", slog.String("op", op), slog.Any("error", err))
		return domain.EvaluationResult{}, domain.NewUserError(op, domain.MsgEvaluateAnswerFailed, err)
	}

	res, stage := extract.Evaluation(out.Text)
	observability.ObserveExtraction("evaluation", string(stage))
	if stage == extract.StageDefault {
		lg.Warn("evaluation unparseable, using default", slog.Int("response_len", len(out.Text)))
	} else {
		observability.ObserveEvaluationScore(res.Score)
	}
	return res, nil
}

// Transcribe resolves a recording to text through the configured recognizer.
func (s InterviewService) Transcribe(ctx domain.Context, rec domain.Audio, onProgress domain.ProgressFunc) (string, error) {
	const op = "usecase.Transcribe"
	if len(rec.Data) == 0 {
		return "", fmt.Errorf("op=%s: %w: empty recording", op, domain.ErrInvalidArgument)
	}
	text, err := s.STT.Transcribe(ctx, rec, onProgress)
	if err != nil {
		observability.LoggerFromContext(ctx).Error("recognition failed",
			slog.String("op", op),
			slog.String("mime", rec.MIME),
			slog.Int("bytes", len(rec.Data)),
			slog.Any("error", err))
		return "", domain.NewUserError(op, domain.MsgRecognitionFailed, err)
	}
	return text, nil
}

// Synthesize returns one complete audio payload for text.
func (s InterviewService) Synthesize(ctx domain.Context, text string) (domain.SynthesizedAudio, error) {
	const op = "usecase.Synthesize"
	out, err := s.TTS.Synthesize(ctx, text)
	if err != nil {
		observability.LoggerFromContext(ctx).Error("synthesis failed", slog.String("op", op), slog.Any("error", err))
		return domain.SynthesizedAudio{}, domain.NewUserError(op, domain.MsgSynthesisFailed, err)
	}
	return out, nil
}

// SynthesizeStream plays text through player as the audio arrives.
func (s InterviewService) SynthesizeStream(ctx domain.Context, text string, player domain.Player) error {
	const op = "usecase.SynthesizeStream"
	if err := s.TTS.Stream(ctx, text, player); err != nil {
		observability.LoggerFromContext(ctx).Error("streaming synthesis failed", slog.String("op", op), slog.Any("error", err))
		return domain.NewUserError(op, domain.MsgSynthesisFailed, err)
	}
	return nil
}

// StartRealtime opens a duplex recognition session. Sentences are reported to
// onSentence as they arrive.
func (s InterviewService) StartRealtime(ctx domain.Context, onSentence domain.ProgressFunc) (domain.RealtimeSession, error) {
	const op = "usecase.StartRealtime"
	if s.Realtime == nil {
		return nil, domain.NewUserError(op, domain.MsgRecognitionFailed, domain.ConfigErrorf("realtime recognition not configured"))
	}
	sess, err := s.Realtime.Dial(ctx, onSentence)
	if err != nil {
		observability.LoggerFromContext(ctx).Error("realtime dial failed", slog.String("op", op), slog.Any("error", err))
		return nil, domain.NewUserError(op, domain.MsgRecognitionFailed, err)
	}
	return sess, nil
}
