package summary

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/nijaru/skryba/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoModel replies like the notetaker: prompt, then notes, then </notes>.
type echoModel struct {
	prompts []string
	failAt  int
}

func (m *echoModel) Summarize(_ context.Context, prompt string) (string, error) {
	m.prompts = append(m.prompts, prompt)
	if m.failAt > 0 && len(m.prompts) == m.failAt {
		return "", fmt.Errorf("out of memory")
	}
	inner := strings.TrimSuffix(strings.TrimPrefix(prompt, openTag), closeTag)
	return prompt + "notes(" + inner + ")</notes> trailing junk", nil
}

func TestExtract(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"both sentinels", "<text>in</text>summary</notes>tail", "summary"},
		{"no sentinels", "plain summary", "plain summary"},
		{"only close text", "prompt</text> body", " body"},
		{"only notes", "body</notes>rest", "body"},
		{"first close tag wins", "a</text>b</text>c</notes>", "b</text>c"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Extract(tt.raw))
		})
	}
}

func TestWindows(t *testing.T) {
	assert.Equal(t, []string{"abc"}, Windows("abc", 3))
	assert.Equal(t, []string{"ab", "cd", "e"}, Windows("abcde", 2))
	assert.Equal(t, []string{"żó", "łć"}, Windows("żółć", 2))
	assert.Equal(t, []string{""}, Windows("", 10))
}

func TestSummarizeSingleWindow(t *testing.T) {
	model := &echoModel{}
	d := NewDriver(model, 100)

	out, err := d.Summarize(context.Background(), "short transcript")
	require.NoError(t, err)
	assert.Equal(t, "notes(short transcript)", out)
	assert.Equal(t, []string{"<text>short transcript</text>"}, model.prompts)
}

func TestSummarizeMultipleWindows(t *testing.T) {
	model := &echoModel{}
	d := NewDriver(model, 4)

	out, err := d.Summarize(context.Background(), "aaaabbbbcc")
	require.NoError(t, err)
	assert.Equal(t, "## Part 1\n\nnotes(aaaa)\n\n## Part 2\n\nnotes(bbbb)\n\n## Part 3\n\nnotes(cc)", out)
	assert.Len(t, model.prompts, 3)
}

func TestSummarizeFailure(t *testing.T) {
	model := &echoModel{failAt: 2}
	d := NewDriver(model, 2)

	_, err := d.Summarize(context.Background(), "aabbcc")
	require.Error(t, err)
	assert.Equal(t, errors.KindSummarizationFailure, errors.KindOf(err))
	assert.Len(t, model.prompts, 2)
}

func TestNewDriverDefaultBudget(t *testing.T) {
	d := NewDriver(&echoModel{}, 0)
	assert.Equal(t, DefaultCharBudget, d.charBudget)
}
