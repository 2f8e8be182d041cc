package language

import (
	"context"
	"unicode/utf8"

	"github.com/abadojack/whatlanggo"
	"golang.org/x/text/language"
)

// Detector returns a language label for text. The label may be a name,
// a two-letter code or a canonical code; callers pass it through Normalize.
type Detector interface {
	DetectLanguage(ctx context.Context, text string) (string, error)
}

// Sample returns at most n runes from the start of text.
func Sample(text string, n int) string {
	if n <= 0 || utf8.RuneCountInString(text) <= n {
		return text
	}
	i := 0
	for pos := range text {
		if i == n {
			return text[:pos]
		}
		i++
	}
	return text
}

// WhatlangDetector detects languages in-process with whatlanggo.
type WhatlangDetector struct {
	// MinConfidence below which the result is discarded. Zero keeps every result.
	MinConfidence float64
}

func NewWhatlangDetector() *WhatlangDetector {
	return &WhatlangDetector{}
}

func (d *WhatlangDetector) DetectLanguage(ctx context.Context, text string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	info := whatlanggo.Detect(text)
	if info.Confidence < d.MinConfidence {
		return "", nil
	}

	iso := info.Lang.Iso6391()
	if iso == "" {
		return "", nil
	}

	base, conf := language.Make(iso).Base()
	if conf == language.No {
		return "", nil
	}
	return base.String(), nil
}
