package stream

import (
	"encoding/json"
	"iter"
	"strings"

	"github.com/fairyhunter13/ai-interview-trainer/internal/domain"
)

// chatFrame is the OpenAI-compatible streaming chunk.
type chatFrame struct {
	Choices []struct {
		Delta struct {
			Content *string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
	Usage *domain.Usage `json:"usage"`
}

// multimodalFrame is the DashScope multimodal-generation streaming chunk.
type multimodalFrame struct {
	Output struct {
		Choices []struct {
			Message struct {
				Content []struct {
					Text *string `json:"text"`
				} `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	} `json:"output"`
}

// ChatResult is the fold of a chat-delta stream.
type ChatResult struct {
	Text string
	// Usage is the trailing usage block, nil when the stream carried none.
	Usage *domain.Usage
}

// AccumulateChat concatenates choices[0].delta.content of every frame in arrival
// order. Frames without that path are ignored. onDelta, when non-nil, observes
// each appended delta. The first read error ends the fold and is returned with
// the text gathered so far.
func AccumulateChat(frames iter.Seq2[json.RawMessage, error], onDelta domain.ProgressFunc) (ChatResult, error) {
	var (
		sb  strings.Builder
		res ChatResult
	)
	for raw, err := range frames {
		if err != nil {
			res.Text = sb.String()
			return res, err
		}
		var f chatFrame
		if json.Unmarshal(raw, &f) != nil {
			continue
		}
		if f.Usage != nil {
			u := *f.Usage
			res.Usage = &u
		}
		if len(f.Choices) == 0 || f.Choices[0].Delta.Content == nil {
			continue
		}
		delta := *f.Choices[0].Delta.Content
		sb.WriteString(delta)
		if onDelta != nil && delta != "" {
			onDelta(delta, sb.String())
		}
	}
	res.Text = sb.String()
	return res, nil
}

// AccumulateMultimodal concatenates every text item of
// output.choices[0].message.content in arrival order and reports each append
// through onProgress.
func AccumulateMultimodal(frames iter.Seq2[json.RawMessage, error], onProgress domain.ProgressFunc) (string, error) {
	var sb strings.Builder
	for raw, err := range frames {
		if err != nil {
			return sb.String(), err
		}
		var f multimodalFrame
		if json.Unmarshal(raw, &f) != nil || len(f.Output.Choices) == 0 {
			continue
		}
		for _, item := range f.Output.Choices[0].Message.Content {
			if item.Text == nil {
				continue
			}
			sb.WriteString(*item.Text)
			if onProgress != nil {
				onProgress(*item.Text, sb.String())
			}
		}
	}
	return sb.String(), nil
}
