package summary

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"google.golang.org/genai"
)

const geminiPrompt = `You are a note taker. Read the transcript between the <text> and </text> tags and write concise, well structured notes in Markdown.
Use headings, bullet points and **bold** for key terms. Reply with the notes only and end them with </notes>.

%s`

// GeminiModel summarizes through the Gemini API.
type GeminiModel struct {
	client *genai.Client
	model  string
}

func NewGeminiModel(ctx context.Context, apiKey, model string) (*GeminiModel, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create gemini client")
	}
	return &GeminiModel{client: client, model: model}, nil
}

// Summarize asks Gemini for notes on prompt. The reply is prefixed with the
// closing text tag so Extract treats it like notetaker output.
func (m *GeminiModel) Summarize(ctx context.Context, prompt string) (string, error) {
	result, err := m.client.Models.GenerateContent(ctx, m.model, genai.Text(fmt.Sprintf(geminiPrompt, prompt)), nil)
	if err != nil {
		return "", errors.Wrap(err, "generate content")
	}

	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return "", errors.New("empty response from Gemini")
	}

	var b strings.Builder
	b.WriteString(closeTag)
	for _, part := range result.Candidates[0].Content.Parts {
		if part.Text != "" {
			b.WriteString(part.Text)
		}
	}
	return b.String(), nil
}
