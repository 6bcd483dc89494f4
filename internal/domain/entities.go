package domain

import (
	"context"
	"errors"
)

// Error taxonomy (sentinels)
var (
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNetwork covers transport failures and non-2xx vendor responses.
	ErrNetwork = errors.New("network error")
	// ErrFrameParse marks one malformed stream frame. It is logged and skipped, never returned.
	ErrFrameParse = errors.New("frame parse error")
	// ErrParse means every extraction stage failed to recover a structured result.
	ErrParse = errors.New("parse error")
	// ErrConfig marks a missing or invalid provider configuration.
	ErrConfig = errors.New("config error")
	ErrInternal = errors.New("internal error")
)

// QuestionType classifies a structured-interview question. Zero means unclassified.
type QuestionType int

const (
	QuestionUnclassified QuestionType = iota
	QuestionSelfAwareness
	QuestionInterpersonal
	QuestionOrganizational
	QuestionCrisisResponse
	QuestionAnalytical
	QuestionPedagogical
	QuestionPolicy
)

// Valid reports whether t is inside the 0..7 taxonomy.
func (t QuestionType) Valid() bool {
	return t >= QuestionUnclassified && t <= QuestionPolicy
}

// InterviewQuestion is one generated question with its reference answer.
type InterviewQuestion struct {
	Question  string       `json:"question"`
	Reference string       `json:"reference"`
	Type      QuestionType `json:"type"`
}

// EvaluationResult is the examiner verdict for one answer.
// Score is 1..100, or 0 when the model returned nothing usable for it.
type EvaluationResult struct {
	Score      int    `json:"score"`
	Evaluation string `json:"evaluation"`
}

const (
	DefaultEvaluationScore   = 70
	DefaultEvaluationMessage = "系统无法解析评价结果，请重试或联系管理员。"
)

// DefaultEvaluation is substituted when no evaluation could be recovered from model output.
func DefaultEvaluation() EvaluationResult {
	return EvaluationResult{Score: DefaultEvaluationScore, Evaluation: DefaultEvaluationMessage}
}

// Interview types understood by the prompt templates.
const (
	InterviewTeacherQualification = "teacher-qualification"
	InterviewTeacherRecruitment   = "teacher-recruitment"
)

// QuestionParams selects what kind of questions to generate.
type QuestionParams struct {
	InterviewType    string `json:"interview_type"`
	Subject          string `json:"subject"`
	Difficulty       string `json:"difficulty"`
	IncludeHotTopics bool   `json:"include_hot_topics"`
}

// EvaluationParams carries one answer to be graded.
type EvaluationParams struct {
	Question      string `json:"question"`
	UserAnswer    string `json:"user_answer"`
	InterviewType string `json:"interview_type"`
	Subject       string `json:"subject"`
}

// Provider names a vendor backend.
type Provider string

const (
	ProviderQwen       Provider = "qwen"
	ProviderDashScope  Provider = "dashscope"
	ProviderAliyun     Provider = "aliyun"
	ProviderParaformer Provider = "paraformer"
	ProviderCosyVoice  Provider = "cosyvoice"
	ProviderREST       Provider = "rest"
)

// ProviderConfig is the per-provider configuration handed to an adapter.
// Adapters copy it and never mutate it.
type ProviderConfig struct {
	Provider Provider `yaml:"provider"`
	APIKey   string   `yaml:"api_key"`
	Model    string   `yaml:"model"`
	Endpoint string   `yaml:"endpoint"`
	Voice    string   `yaml:"voice"`
	Format   string   `yaml:"format"`
	Rate     float64  `yaml:"rate"`
	Pitch    float64  `yaml:"pitch"`
}

// HasAPIKey reports whether a bearer token is configured.
func (c ProviderConfig) HasAPIKey() bool { return c.APIKey != "" }

// Usage mirrors the token usage block of a chat completion stream.
type Usage struct {
	PromptTokens     int  `json:"prompt_tokens"`
	CompletionTokens int  `json:"completion_tokens"`
	TotalTokens      int  `json:"total_tokens"`
	Estimated        bool `json:"-"`
}

// Completion is the accumulated text of one chat call.
type Completion struct {
	Text  string
	Usage Usage
}

// ProgressFunc observes incremental transcript growth. delta is the newly appended text and
// text the transcript accumulated so far.
type ProgressFunc func(delta, text string)

// Audio is an uploaded recording.
type Audio struct {
	Data []byte
	MIME string
}

// SynthesizedAudio is a complete non-streaming synthesis payload.
type SynthesizedAudio struct {
	Data        []byte
	ContentType string
}

// AudioBuffer is one decoded PCM chunk ready for playback.
type AudioBuffer struct {
	Samples    []float32
	SampleRate int
	Raw        []byte
}

// Player plays one buffer and calls done once the buffer has finished playing.
type Player interface {
	Play(buf AudioBuffer, done func())
}

// Ports

// ChatCompleter sends a prompt to the chat provider and returns the accumulated reply.
type ChatCompleter interface {
	Complete(ctx Context, prompt string) (Completion, error)
}

// Transcriber turns a recording into one resolved transcript.
type Transcriber interface {
	Transcribe(ctx Context, audio Audio, onProgress ProgressFunc) (string, error)
}

// Synthesizer turns text into speech.
type Synthesizer interface {
	// Synthesize returns one opaque audio payload.
	Synthesize(ctx Context, text string) (SynthesizedAudio, error)
	// Stream synthesizes incrementally, pushing decoded buffers to player in arrival order.
	Stream(ctx Context, text string, player Player) error
}

// RealtimeSession is one open duplex recognition stream.
type RealtimeSession interface {
	// SendAudioFrame pushes 16 kHz mono 16-bit PCM.
	SendAudioFrame(pcm []byte) error
	// Stop releases the session exactly once and returns the text captured so far.
	Stop() (string, error)
	// Done is closed when the upstream stops sending results.
	Done() <-chan struct{}
}

// RealtimeDialer opens realtime recognition sessions.
type RealtimeDialer interface {
	Dial(ctx Context, onSentence ProgressFunc) (RealtimeSession, error)
}

// Context is an alias to allow decoupling from std context in domain
type Context = context.Context
