package domain

import (
	"errors"
	"fmt"
)

// User-safe failure messages returned to the UI.
const (
	MsgGenerateQuestionsFailed = "生成面试问题失败，请检查API配置或网络连接"
	MsgEvaluateAnswerFailed    = "评价回答失败，请检查API配置或网络连接"
	MsgRecognitionFailed       = "语音识别失败，请检查API配置或网络连接"
	MsgSynthesisFailed         = "语音合成失败，请检查API配置或网络连接"
	MsgRealtimeNeedsPCM        = "实时语音识别仅支持WAV或PCM录音，请更换录音格式或语音识别服务"
)

// UpstreamError is a non-2xx response from a vendor API.
type UpstreamError struct {
	Provider string
	Op       string
	Status   int
	Snippet  string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s %s: upstream status %d", e.Provider, e.Op, e.Status)
}

// Is lets errors.Is(err, ErrNetwork) match upstream failures.
func (e *UpstreamError) Is(target error) bool { return target == ErrNetwork }

// UserError is the normalized failure handed to callers. Error returns only the user-safe
// message; the cause stays reachable through errors.Is / errors.As.
type UserError struct {
	Op      string
	Message string
	Err     error
}

func (e *UserError) Error() string { return e.Message }

func (e *UserError) Unwrap() error { return e.Err }

// NewUserError wraps err with a user-safe message. A nil err yields nil.
func NewUserError(op, message string, err error) error {
	if err == nil {
		return nil
	}
	var ue *UserError
	if errors.As(err, &ue) {
		return err
	}
	return &UserError{Op: op, Message: message, Err: err}
}

// ConfigErrorf builds an ErrConfig-wrapped error.
func ConfigErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfig, fmt.Sprintf(format, args...))
}
