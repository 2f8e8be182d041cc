// Package validation checks request inputs before a job is allocated.
package validation

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/nijaru/skryba/errors"
)

var whisperModels = map[string]bool{
	"tiny":     true,
	"base":     true,
	"small":    true,
	"medium":   true,
	"large":    true,
	"large-v2": true,
	"large-v3": true,
}

type Validator struct {
	maxUploadSize int64
}

func NewValidator(maxUploadSize int64) *Validator {
	return &Validator{maxUploadSize: maxUploadSize}
}

// ValidateModel accepts the whisper model names and their English-only
// ".en" variants. large has no English-only variant.
func (v *Validator) ValidateModel(model string) error {
	const op = "Validator.ValidateModel"

	if model == "" {
		return errors.InvalidInput(op, nil, "model is required")
	}

	base, english := strings.CutSuffix(model, ".en")
	if !whisperModels[base] || (english && strings.HasPrefix(base, "large")) {
		return errors.InvalidInput(op, nil, fmt.Sprintf("unsupported model %q", model))
	}
	return nil
}

func (v *Validator) ValidateURL(urlStr string) error {
	const op = "Validator.ValidateURL"

	urlStr = strings.TrimSpace(urlStr)
	if urlStr == "" {
		return errors.InvalidInput(op, nil, "URL is required")
	}

	parsedURL, err := url.ParseRequestURI(urlStr)
	if err != nil {
		return errors.InvalidInput(op, err, "Invalid URL format")
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return errors.InvalidInput(op, nil, "URL must use HTTP or HTTPS")
	}

	if parsedURL.Host == "" {
		return errors.InvalidInput(op, nil, "URL must have a host")
	}

	return nil
}

func (v *Validator) ValidateUpload(filename string, size int64) error {
	const op = "Validator.ValidateUpload"

	name := filepath.Base(filename)
	if filename == "" || name == "." || name == ".." || name == string(filepath.Separator) {
		return errors.InvalidInput(op, nil, "file name is required")
	}

	if size == 0 {
		return errors.InvalidInput(op, nil, "file is empty")
	}

	if v.maxUploadSize > 0 && size > v.maxUploadSize {
		return errors.InvalidInput(op, nil, "file too large")
	}

	return nil
}
