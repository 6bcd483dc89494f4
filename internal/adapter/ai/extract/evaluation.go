package extract

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/fairyhunter13/ai-interview-trainer/internal/domain"
)

var (
	scoreKV      = regexp.MustCompile(`(?i)"?score"?\s*[=:]\s*([0-9]+)`)
	evaluationKV = regexp.MustCompile(`(?i)"?evaluation"?\s*[=:]\s*"([^"]+)"`)
)

// Evaluation recovers the score and evaluation text from a completed chat
// reply. It never fails: when every stage comes up empty it returns
// domain.DefaultEvaluation with StageDefault.
func Evaluation(text string) (domain.EvaluationResult, Stage) {
	if res, ok := decodeEvaluation(removeMarkdownBlocks(text)); ok {
		return res, StageDirect
	}

	spans := objectCandidates(text, `"score"`, `"evaluation"`)
	if len(spans) == 0 {
		spans = objectCandidates(text, "score", "evaluation")
	}
	for _, span := range spans {
		if res, ok := decodeEvaluation(span); ok {
			return res, StageScan
		}
		if res, ok := decodeEvaluation(cleanEscapes(span)); ok {
			return res, StageClean
		}
	}

	score := scoreKV.FindStringSubmatch(text)
	evaluation := evaluationKV.FindStringSubmatch(text)
	if score != nil && evaluation != nil {
		return domain.EvaluationResult{
			Score:      clampScore(leadingInt(score[1])),
			Evaluation: evaluation[1],
		}, StageRegex
	}
	return domain.DefaultEvaluation(), StageDefault
}

// decodeEvaluation accepts any JSON object, unwrapping a "result" object when
// the top level carries neither field. Missing fields coerce to 0 and "".
func decodeEvaluation(s string) (domain.EvaluationResult, bool) {
	s = strings.TrimSpace(s)
	if s == "" || s[0] != '{' {
		return domain.EvaluationResult{}, false
	}
	var fields map[string]json.RawMessage
	if json.Unmarshal([]byte(s), &fields) != nil {
		return domain.EvaluationResult{}, false
	}
	_, hasScore := fields["score"]
	_, hasEval := fields["evaluation"]
	if inner, ok := fields["result"]; ok && !hasScore && !hasEval {
		var nested map[string]json.RawMessage
		if json.Unmarshal(inner, &nested) == nil && nested != nil {
			fields = nested
		}
	}
	return domain.EvaluationResult{
		Score:      clampScore(coerceInt(fields["score"])),
		Evaluation: coerceString(fields["evaluation"]),
	}, true
}

func clampScore(n int) int {
	switch {
	case n < 0:
		return 0
	case n > 100:
		return 100
	default:
		return n
	}
}
