// Package prompts builds the fixed Chinese prompt templates sent to the chat model.
package prompts

import (
	"fmt"
	"strings"

	"github.com/fairyhunter13/ai-interview-trainer/internal/domain"
)

// QuestionCount is how many questions one generation asks for.
const QuestionCount = 5

var subjectLabels = map[string]string{
	"chinese":      "语文",
	"math":         "数学",
	"english":      "英语",
	"physics":      "物理",
	"chemistry":    "化学",
	"biology":      "生物",
	"history":      "历史",
	"geography":    "地理",
	"politics":     "政治",
	"music":        "音乐",
	"art":          "美术",
	"pe":           "体育",
	"primary":      "小学教育",
	"kindergarten": "幼儿教育",
}

const questionCategories = `，请确保生成的问题涵盖以下七大类结构化面试题型：
1. 自我认知类：考察与教师岗位的匹配度，包括职业动机、优势与不足、职业规划等；
2. 人际沟通类：涉及与家长、同事、学生等关系的处理；
3. 组织管理类：侧重活动策划与执行，如班会、春游、家长会等场景的组织协调；
4. 应急应变类：针对突发事件的处理能力，例如学生受伤、课堂突发状况等；
5. 综合分析类：分析教育现象、政策或名言；
6. 教育教学类：解决教学中的实际问题，如学生偏科、作业管理、课堂纪律等；
7. 时事政治类：结合教育相关的政策或会议精神，考察对教育方针的理解`

const questionFormat = "。对于每个问题，请同时提供一个参考答案。返回格式为JSON数组，每个元素包含question、reference和type字段，其中type表示问题类型（1-7对应上述七种类型）。"

const evaluationTemplate = `你是一位经验丰富的教师面试考官，请对以下%s面试中的回答进行评价。

面试问题：%s

考生回答：%s

请从专业性、逻辑性、表达能力、理论结合实践等方面进行评价，给出1-100的分数，并提供详细的评价意见。

请严格按照以下JSON格式返回评价结果，不要包含任何其他文本：
{
  "score": 分数（1-100的整数）,
  "evaluation": "详细的评价意见"
}`

// DifficultyLabel maps easy and medium to their labels. Anything else is hard.
func DifficultyLabel(difficulty string) string {
	switch difficulty {
	case "easy":
		return "简单"
	case "medium":
		return "中等"
	default:
		return "困难"
	}
}

// InterviewLabel names the interview; every type but teacher-qualification is a recruitment interview.
func InterviewLabel(interviewType string) string {
	if interviewType == domain.InterviewTeacherQualification {
		return "教师资格证"
	}
	return "教师编制招聘"
}

// SubjectLabel returns the Chinese subject name, or subject itself when unknown.
func SubjectLabel(subject string) string {
	if l, ok := subjectLabels[subject]; ok {
		return l
	}
	return subject
}

// QuestionPrompt builds the question generation prompt. hotTopics, when the
// caller asked for hot topics, are listed as examples for the model.
func QuestionPrompt(p domain.QuestionParams, hotTopics []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "请生成%d个%s难度的%s面试", QuestionCount, DifficultyLabel(p.Difficulty), InterviewLabel(p.InterviewType))
	fmt.Fprintf(&b, "%s学科的结构化面试问题", SubjectLabel(p.Subject))
	b.WriteString(questionCategories)
	if p.IncludeHotTopics {
		b.WriteString("，并请包含最新的教育热点话题")
		if topics := nonBlank(hotTopics); len(topics) > 0 {
			fmt.Fprintf(&b, "（可参考：%s）", strings.Join(topics, "、"))
		}
	}
	b.WriteString(questionFormat)
	return b.String()
}

// EvaluationPrompt builds the grading prompt for one answer.
func EvaluationPrompt(p domain.EvaluationParams) string {
	return fmt.Sprintf(evaluationTemplate, InterviewLabel(p.InterviewType), p.Question, p.UserAnswer)
}

func nonBlank(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
