// Package scribe runs the transcript to summary pipeline for one job.
package scribe

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/nijaru/skryba/errors"
	"github.com/nijaru/skryba/language"
	"github.com/nijaru/skryba/models"
	"github.com/nijaru/skryba/subtitle"
	"github.com/nijaru/skryba/summary"
	"github.com/nijaru/skryba/translation"
	"github.com/sirupsen/logrus"
)

const (
	GroupedFile = "out_grouped.srt"
	// SummaryFile is the summary name when the summary is in en_XX.
	SummaryFile = "summary_en.md"
)

// Transcriber turns input (a local file or a URL) into a subtitle file
// inside outputDir and returns its path.
type Transcriber interface {
	Transcribe(ctx context.Context, input, outputDir, model string) (string, error)
}

// Translator is the translation bridge as seen by the pipeline.
type Translator interface {
	Translate(ctx context.Context, text, srcLang, tgtLang string) (string, error)
	TranslateAll(ctx context.Context, texts []string, srcLang, tgtLang string) ([]string, error)
	TranslateLines(ctx context.Context, text, srcLang, tgtLang string) (string, error)
}

type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

type Config struct {
	SummarizationBackend       string
	TranslationEnabled         bool
	ChunkCharBudget            int
	ChunkTokenBudget           int
	GroupSize                  int
	DetectSampleChars          int
	CanonicalLanguage          string
	LineWiseSummaryTranslation bool
	DefaultModel               string
}

func DefaultConfig() Config {
	return Config{
		SummarizationBackend:       "script",
		TranslationEnabled:         true,
		ChunkCharBudget:            summary.DefaultCharBudget,
		ChunkTokenBudget:           translation.DefaultWindowSize,
		GroupSize:                  20,
		DetectSampleChars:          300,
		CanonicalLanguage:          language.DefaultCode,
		LineWiseSummaryTranslation: true,
		DefaultModel:               "large-v3",
	}
}

type Deps struct {
	Transcriber Transcriber
	Detector    language.Detector
	Translator  Translator
	Summarizer  Summarizer
}

// Models holds the raw model capabilities NewFromModels wraps in a
// translation bridge and a summarization driver sized from Config.
type Models struct {
	Transcriber  Transcriber
	Detector     language.Detector
	Tokenizer    translation.Tokenizer
	Generator    translation.Generator
	SummaryModel summary.Model
}

type Pipeline struct {
	config Config
	deps   Deps
	logger *logrus.Logger
}

func New(cfg Config, deps Deps) *Pipeline {
	return &Pipeline{
		config: cfg,
		deps:   deps,
		logger: logrus.StandardLogger(),
	}
}

func NewFromModels(cfg Config, m Models) *Pipeline {
	return New(cfg, Deps{
		Transcriber: m.Transcriber,
		Detector:    m.Detector,
		Translator:  translation.NewBridge(m.Tokenizer, m.Generator, cfg.ChunkTokenBudget),
		Summarizer:  summary.NewDriver(m.SummaryModel, cfg.ChunkCharBudget),
	})
}

type Request struct {
	Input          string
	Workspace      string
	OutputLanguage string
	Model          string
}

type Result struct {
	Empty           bool
	SourceLanguage  string
	SummaryLanguage string
	OutputLanguage  string
	GroupedPath     string
	SummaryPath     string
	TranslatedPath  string
}

// Scribe runs every stage for req in order. A transcript without entries
// ends the run early with Result.Empty set. Failures are returned as they
// happen; the caller owns the workspace and cleans it up.
func (p *Pipeline) Scribe(ctx context.Context, req Request) (*Result, error) {
	const op = "Pipeline.Scribe"

	model := req.Model
	if model == "" {
		model = p.config.DefaultModel
	}

	logger := p.logger.WithFields(logrus.Fields{
		"workspace": req.Workspace,
		"model":     model,
		"backend":   p.config.SummarizationBackend,
	})

	srtPath, err := p.deps.Transcriber.Transcribe(ctx, req.Input, req.Workspace, model)
	if err != nil {
		return nil, errors.TranscriptionFailure(op, err, "transcription failed")
	}

	chunks, err := subtitle.GroupFile(srtPath, p.config.GroupSize)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	if len(chunks) == 0 {
		logger.Info("Transcript has no entries, skipping summary")
		result.Empty = true
		return result, nil
	}

	canonical := language.Normalize(p.config.CanonicalLanguage)
	sample := language.Sample(chunks[0].Text, p.config.DetectSampleChars)
	label, err := p.deps.Detector.DetectLanguage(ctx, sample)
	if err != nil {
		return nil, errors.Internal(op, err, "language detection failed")
	}
	src := language.Normalize(label)
	result.SourceLanguage = src

	logger = logger.WithFields(logrus.Fields{
		"source_language": src,
		"label":           label,
		"chunks":          len(chunks),
	})

	texts := chunkTexts(chunks)

	// without translation the transcript is summarized as detected
	result.SummaryLanguage = src
	if p.config.TranslationEnabled {
		result.SummaryLanguage = canonical
	}

	if p.config.TranslationEnabled && src != canonical {
		logger.Info("Translating transcript")
		if texts, err = p.deps.Translator.TranslateAll(ctx, texts, src, canonical); err != nil {
			return nil, err
		}
	}

	result.GroupedPath = filepath.Join(req.Workspace, GroupedFile)
	if err := subtitle.WriteGrouped(result.GroupedPath, chunks); err != nil {
		return nil, err
	}

	logger.Info("Summarizing transcript")
	text, err := p.deps.Summarizer.Summarize(ctx, strings.Join(texts, " "))
	if err != nil {
		return nil, err
	}

	result.SummaryPath = filepath.Join(req.Workspace, SummaryFileFor(result.SummaryLanguage))
	if err := writeFile(result.SummaryPath, text); err != nil {
		return nil, err
	}

	dst := language.Normalize(req.OutputLanguage)
	result.OutputLanguage = dst
	if p.config.TranslationEnabled && dst != canonical {
		logger.WithField("output_language", dst).Info("Translating summary")
		translated, err := p.translateSummary(ctx, text, canonical, dst)
		if err != nil {
			return nil, err
		}
		result.TranslatedPath = filepath.Join(req.Workspace, TranslatedSummaryFile(dst))
		if err := writeFile(result.TranslatedPath, translated); err != nil {
			return nil, err
		}
	} else {
		result.OutputLanguage = result.SummaryLanguage
	}

	return result, nil
}

func (p *Pipeline) translateSummary(ctx context.Context, text, src, dst string) (string, error) {
	if p.config.LineWiseSummaryTranslation {
		return p.deps.Translator.TranslateLines(ctx, text, src, dst)
	}
	return p.deps.Translator.Translate(ctx, text, src, dst)
}

// SummaryFileFor names the summary file written in the language of code.
func SummaryFileFor(code string) string {
	return "summary_" + language.Base(code) + ".md"
}

// TranslatedSummaryFile names the summary file for a canonical language code.
func TranslatedSummaryFile(code string) string {
	return "summary_" + code + ".md"
}

func writeFile(path, content string) error {
	const op = "scribe.writeFile"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return errors.IOFailure(op, err, "failed to write "+filepath.Base(path))
	}
	return nil
}

func chunkTexts(chunks []models.Chunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Text
	}
	return out
}
