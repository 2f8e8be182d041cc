// Package translation serializes access to a shared tokenizer and translates
// text window by window through a generator.
package translation

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/nijaru/skryba/errors"
)

const DefaultWindowSize = 256

// Tokenizer encodes text in the current source language. The source language
// is mutable state shared by every caller.
type Tokenizer interface {
	SetSourceLanguage(lang string)
	Encode(ctx context.Context, text string) ([]int, error)
}

// Generator produces target-language text for a window of source tokens.
type Generator interface {
	Generate(ctx context.Context, tokens []int, targetLang string) (string, error)
}

// Bridge translates text through one shared tokenizer/generator pair.
// Setting the source language and encoding happen together under mu;
// generation runs outside the lock.
type Bridge struct {
	mu         sync.Mutex
	tokenizer  Tokenizer
	generator  Generator
	windowSize int
}

func NewBridge(tokenizer Tokenizer, generator Generator, windowSize int) *Bridge {
	if windowSize <= 0 {
		windowSize = DefaultWindowSize
	}
	return &Bridge{
		tokenizer:  tokenizer,
		generator:  generator,
		windowSize: windowSize,
	}
}

func (b *Bridge) encode(ctx context.Context, text, srcLang string) ([]int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.tokenizer.SetSourceLanguage(srcLang)
	return b.tokenizer.Encode(ctx, text)
}

// Translate translates text from srcLang to tgtLang. Token sequences longer
// than the window size are split into consecutive windows that are
// translated independently and joined with a single space.
func (b *Bridge) Translate(ctx context.Context, text, srcLang, tgtLang string) (string, error) {
	const op = "Bridge.Translate"

	if strings.TrimSpace(text) == "" {
		return text, nil
	}

	tokens, err := b.encode(ctx, text, srcLang)
	if err != nil {
		return "", errors.TranslationFailure(op, err, "failed to encode text")
	}

	windows := split(tokens, b.windowSize)
	parts := make([]string, 0, len(windows))
	for i, window := range windows {
		out, err := b.generator.Generate(ctx, window, tgtLang)
		if err != nil {
			return "", errors.TranslationFailure(op, err,
				fmt.Sprintf("failed to translate window %d of %d", i+1, len(windows)))
		}
		parts = append(parts, out)
	}

	return strings.Join(parts, " "), nil
}

// TranslateAll translates each text in order.
func (b *Bridge) TranslateAll(ctx context.Context, texts []string, srcLang, tgtLang string) ([]string, error) {
	out := make([]string, len(texts))
	for i, text := range texts {
		translated, err := b.Translate(ctx, text, srcLang, tgtLang)
		if err != nil {
			return nil, err
		}
		out[i] = translated
	}
	return out, nil
}

var (
	boldOpen  = regexp.MustCompile(`\*\*[ \t]+`)
	boldClose = regexp.MustCompile(`[ \t]+\*\*`)
)

// TranslateLines translates text line by line. Blank lines are kept in
// place and not sent to the model. Markdown bold markers mangled by the
// model ("** text **") are tightened afterwards.
func (b *Bridge) TranslateLines(ctx context.Context, text, srcLang, tgtLang string) (string, error) {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			lines[i] = ""
			continue
		}
		translated, err := b.Translate(ctx, line, srcLang, tgtLang)
		if err != nil {
			return "", err
		}
		lines[i] = translated
	}

	return FixBold(strings.Join(lines, "\n")), nil
}

// FixBold collapses spaces inside markdown bold markers. Line breaks are
// left alone.
func FixBold(s string) string {
	s = boldOpen.ReplaceAllString(s, "**")
	return boldClose.ReplaceAllString(s, "**")
}

func split(tokens []int, size int) [][]int {
	if len(tokens) <= size {
		return [][]int{tokens}
	}
	windows := make([][]int, 0, (len(tokens)+size-1)/size)
	for i := 0; i < len(tokens); i += size {
		windows = append(windows, tokens[i:min(i+size, len(tokens))])
	}
	return windows
}
