package extract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/fairyhunter13/ai-interview-trainer/internal/domain"
)

// Stage names the cascade step that produced a result.
type Stage string

const (
	StageDirect  Stage = "direct"
	StageScan    Stage = "scan"
	StageClean   Stage = "clean"
	StageManual  Stage = "manual"
	StageRegex   Stage = "regex"
	StageDefault Stage = "default"
	StageNone    Stage = "none"
)

var (
	numberedMarker = regexp.MustCompile(`\d+\.\s*`)
	referenceSplit = regexp.MustCompile(`参考答案[：:]`)
	pairedQuestion = regexp.MustCompile(`问题[\d\s]*[:：]\s*([^\n]+)`)
	pairedAnswer   = regexp.MustCompile(`(?:参考)?答案[\d\s]*[:：]\s*([^\n]+)`)
)

// categoryKeywords is checked in order; the first category with a keyword
// present in the question wins.
var categoryKeywords = []struct {
	typ      domain.QuestionType
	keywords []string
}{
	{domain.QuestionSelfAwareness, []string{"自我认知", "职业规划", "为什么选择"}},
	{domain.QuestionInterpersonal, []string{"沟通", "家长", "同事"}},
	{domain.QuestionOrganizational, []string{"组织", "活动", "管理"}},
	{domain.QuestionCrisisResponse, []string{"突发", "应急", "处理"}},
	{domain.QuestionAnalytical, []string{"分析", "理解", "看法"}},
	{domain.QuestionPedagogical, []string{"教学", "课堂", "学生"}},
	{domain.QuestionPolicy, []string{"政策", "时事", "热点"}},
}

// Questions recovers the question list from a completed chat reply. It returns
// an error wrapping domain.ErrParse when no stage yields at least one question.
func Questions(text string) ([]domain.InterviewQuestion, Stage, error) {
	if qs, ok := decodeQuestions(removeMarkdownBlocks(text)); ok {
		return qs, StageDirect, nil
	}
	for _, span := range arrayCandidates(text) {
		if qs, ok := decodeQuestions(span); ok {
			return qs, StageScan, nil
		}
		if qs, ok := decodeQuestions(cleanEscapes(span)); ok {
			return qs, StageClean, nil
		}
	}
	if qs := manualParseQuestions(text); len(qs) > 0 {
		return qs, StageManual, nil
	}
	return nil, StageNone, fmt.Errorf("%w: no valid questions recovered", domain.ErrParse)
}

// decodeQuestions accepts a JSON array of question objects, or an object
// wrapping one under "questions" or "result".
func decodeQuestions(s string) ([]domain.InterviewQuestion, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, false
	}
	var items []json.RawMessage
	switch s[0] {
	case '[':
		if json.Unmarshal([]byte(s), &items) != nil {
			return nil, false
		}
	case '{':
		var wrapper struct {
			Questions []json.RawMessage `json:"questions"`
			Result    []json.RawMessage `json:"result"`
		}
		if json.Unmarshal([]byte(s), &wrapper) != nil {
			return nil, false
		}
		items = wrapper.Questions
		if len(items) == 0 {
			items = wrapper.Result
		}
	default:
		return nil, false
	}
	out := make([]domain.InterviewQuestion, 0, len(items))
	for _, raw := range items {
		if q, ok := normalizeQuestion(raw); ok {
			out = append(out, q)
		}
	}
	return out, len(out) > 0
}

// normalizeQuestion coerces one decoded item. Items that are not JSON objects
// are dropped. A missing or unparseable type is 0.
func normalizeQuestion(raw json.RawMessage) (domain.InterviewQuestion, bool) {
	if t := bytes.TrimSpace(raw); len(t) == 0 || t[0] != '{' {
		return domain.InterviewQuestion{}, false
	}
	var fields map[string]json.RawMessage
	if json.Unmarshal(raw, &fields) != nil {
		return domain.InterviewQuestion{}, false
	}
	question := coerceString(fields["question"])
	typ := domain.QuestionType(coerceInt(fields["type"]))
	if !typ.Valid() {
		// an out-of-taxonomy type is re-derived from the question text
		typ = classify(question)
	}
	return domain.InterviewQuestion{
		Question:  question,
		Reference: coerceString(fields["reference"]),
		Type:      typ,
	}, true
}

// manualParseQuestions segments prose on numbered-list markers and a reference
// answer separator. When that finds nothing it pairs "问题:" lines with
// "答案:" lines by index, and only when both sides have the same count.
func manualParseQuestions(text string) []domain.InterviewQuestion {
	var out []domain.InterviewQuestion
	for _, block := range numberedMarker.Split(text, -1) {
		if strings.TrimSpace(block) == "" {
			continue
		}
		parts := referenceSplit.Split(block, -1)
		if len(parts) < 2 {
			continue
		}
		question := strings.TrimSpace(parts[0])
		out = append(out, domain.InterviewQuestion{
			Question:  question,
			Reference: strings.TrimSpace(strings.Join(parts[1:], "参考答案:")),
			Type:      classify(question),
		})
	}
	if len(out) > 0 {
		return out
	}

	questions := pairedQuestion.FindAllStringSubmatch(text, -1)
	answers := pairedAnswer.FindAllStringSubmatch(text, -1)
	if len(questions) == 0 || len(questions) != len(answers) {
		return nil
	}
	for i := range questions {
		out = append(out, domain.InterviewQuestion{
			Question:  strings.TrimSpace(questions[i][1]),
			Reference: strings.TrimSpace(answers[i][1]),
			Type:      domain.QuestionUnclassified,
		})
	}
	return out
}

func classify(question string) domain.QuestionType {
	for _, c := range categoryKeywords {
		for _, kw := range c.keywords {
			if strings.Contains(question, kw) {
				return c.typ
			}
		}
	}
	return domain.QuestionUnclassified
}
