package stream

import (
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decoderFor(body string) *Decoder {
	return NewDecoder(io.NopCloser(strings.NewReader(body)))
}

func TestAccumulateChat(t *testing.T) {
	t.Parallel()
	body := strings.Join([]string{
		`data: {"choices":[{"delta":{"role":"assistant"}}]}`,
		`data: {"choices":[{"delta":{"content":"[{\"question\":"}}]}`,
		`data: {"choices":[]}`,
		`data: {broken`,
		`data: {"choices":[{"delta":{"content":"\"q\"}]"}}]}`,
		`data: {"choices":[],"usage":{"prompt_tokens":12,"completion_tokens":5,"total_tokens":17}}`,
		`data: [DONE]`,
		``,
	}, "\n")

	var deltas []string
	res, err := AccumulateChat(decoderFor(body).Frames(), func(delta, text string) {
		deltas = append(deltas, delta)
	})
	require.NoError(t, err)
	assert.Equal(t, `[{"question":"q"}]`, res.Text)
	assert.Equal(t, []string{`[{"question":`, `"q"}]`}, deltas)
	require.NotNil(t, res.Usage)
	assert.Equal(t, 12, res.Usage.PromptTokens)
	assert.Equal(t, 5, res.Usage.CompletionTokens)
}

func TestAccumulateChat_NoUsage(t *testing.T) {
	t.Parallel()
	res, err := AccumulateChat(decoderFor("data: {\"choices\":[{\"delta\":{\"content\":\"hi\"}}]}\n").Frames(), nil)
	require.NoError(t, err)
	assert.Equal(t, "hi", res.Text)
	assert.Nil(t, res.Usage)
}

func TestAccumulateChat_ReadErrorKeepsPartial(t *testing.T) {
	t.Parallel()
	boom := errors.New("reset")
	r := io.MultiReader(strings.NewReader("data: {\"choices\":[{\"delta\":{\"content\":\"ab\"}}]}\n"), iotest.ErrReader(boom))
	res, err := AccumulateChat(NewDecoder(io.NopCloser(r)).Frames(), nil)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "ab", res.Text)
}

func TestAccumulateMultimodal(t *testing.T) {
	t.Parallel()
	body := strings.Join([]string{
		`data: {"output":{"choices":[{"message":{"content":[{"text":"你好"}]}}]}}`,
		`data: {"output":{"choices":[]}}`,
		`data: {"output":{"choices":[{"message":{"content":[{"audio":"x"},{"text":"，"},{"text":"老师"}]}}]}}`,
		`data: not-json`,
		`data: {"unrelated":true}`,
	}, "\n")

	type progress struct{ delta, text string }
	var got []progress
	text, err := AccumulateMultimodal(decoderFor(body).Frames(), func(delta, text string) {
		got = append(got, progress{delta, text})
	})
	require.NoError(t, err)
	assert.Equal(t, "你好，老师", text)
	assert.Equal(t, []progress{
		{"你好", "你好"},
		{"，", "你好，"},
		{"老师", "你好，老师"},
	}, got)
}

func TestAccumulateMultimodal_NilCallback(t *testing.T) {
	t.Parallel()
	text, err := AccumulateMultimodal(decoderFor(`data: {"output":{"choices":[{"message":{"content":[{"text":"ok"}]}}]}}`).Frames(), nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
}
