// Package summary drives abstractive summarization of long transcripts.
package summary

import (
	"context"
	"fmt"
	"strings"

	"github.com/nijaru/skryba/errors"
	"github.com/sirupsen/logrus"
)

const (
	DefaultCharBudget = 3072

	openTag   = "<text>"
	closeTag  = "</text>"
	notesTail = "</notes>"
)

// Model runs one summarization request and returns the raw model output.
type Model interface {
	Summarize(ctx context.Context, prompt string) (string, error)
}

// Driver splits text into character windows, summarizes each window on its
// own and stitches the results back together in order.
type Driver struct {
	model      Model
	charBudget int
	logger     *logrus.Logger
}

func NewDriver(model Model, charBudget int) *Driver {
	if charBudget <= 0 {
		charBudget = DefaultCharBudget
	}
	return &Driver{
		model:      model,
		charBudget: charBudget,
		logger:     logrus.StandardLogger(),
	}
}

// Summarize returns the summary of text. Text within the budget is
// summarized in one call. Longer text yields one section per window, each
// under a "## Part N" heading.
func (d *Driver) Summarize(ctx context.Context, text string) (string, error) {
	const op = "Driver.Summarize"

	windows := Windows(text, d.charBudget)
	sections := make([]string, 0, len(windows))

	for i, window := range windows {
		d.logger.WithFields(logrus.Fields{
			"chunk": i + 1,
			"total": len(windows),
		}).Debug("Summarizing chunk")

		raw, err := d.model.Summarize(ctx, Wrap(window))
		if err != nil {
			return "", errors.SummarizationFailure(op, err,
				fmt.Sprintf("failed to summarize chunk %d of %d", i+1, len(windows)))
		}
		sections = append(sections, Extract(raw))
	}

	if len(sections) == 1 {
		return sections[0], nil
	}

	var b strings.Builder
	for i, section := range sections {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "## Part %d\n\n%s", i+1, strings.TrimSpace(section))
	}
	return b.String(), nil
}

// Wrap encloses text in the sentinels the notetaker model expects.
func Wrap(text string) string {
	return openTag + text + closeTag
}

// Extract returns the text between the first "</text>" and the first
// following "</notes>". Missing sentinels leave that side untouched.
func Extract(raw string) string {
	if _, after, ok := strings.Cut(raw, closeTag); ok {
		raw = after
	}
	if before, _, ok := strings.Cut(raw, notesTail); ok {
		raw = before
	}
	return raw
}

// Windows splits text into consecutive windows of at most budget runes.
func Windows(text string, budget int) []string {
	runes := []rune(text)
	if budget <= 0 || len(runes) <= budget {
		return []string{text}
	}

	windows := make([]string, 0, (len(runes)+budget-1)/budget)
	for i := 0; i < len(runes); i += budget {
		windows = append(windows, string(runes[i:min(i+budget, len(runes))]))
	}
	return windows
}
