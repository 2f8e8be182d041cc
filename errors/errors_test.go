package errors

import (
	"fmt"
	"net/http"
	"testing"
)

func TestErrorMessage(t *testing.T) {
	err := InvalidInput("op", nil, "test message")

	if err.Code != http.StatusBadRequest {
		t.Errorf("expected code %d, got %d", http.StatusBadRequest, err.Code)
	}

	if err.Error() != "test message" {
		t.Errorf("expected error string 'test message', got '%s'", err.Error())
	}
}

func TestErrorWithCause(t *testing.T) {
	cause := fmt.Errorf("cause error")
	err := IOFailure("op", cause, "test message")

	expected := "test message: cause error"
	if err.Error() != expected {
		t.Errorf("expected '%s', got '%s'", expected, err.Error())
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected Kind
	}{
		{
			name:     "not found error",
			err:      NotFound("op", nil, "not found"),
			expected: KindNotFound,
		},
		{
			name:     "wrapped translation failure",
			err:      fmt.Errorf("stage: %w", TranslationFailure("op", nil, "boom")),
			expected: KindTranslationFailure,
		},
		{
			name:     "non-custom error",
			err:      fmt.Errorf("standard error"),
			expected: KindInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.expected {
				t.Errorf("KindOf() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestStatusCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"invalid argument", InvalidInput("op", nil, "bad"), http.StatusBadRequest},
		{"not found", NotFound("op", nil, "missing"), http.StatusNotFound},
		{"transcription failure", TranscriptionFailure("op", nil, "x"), http.StatusInternalServerError},
		{"summarization failure", SummarizationFailure("op", nil, "x"), http.StatusInternalServerError},
		{"io failure", IOFailure("op", nil, "x"), http.StatusInternalServerError},
		{"plain error", fmt.Errorf("plain"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusCode(tt.err); got != tt.expected {
				t.Errorf("StatusCode() = %d, want %d", got, tt.expected)
			}
		})
	}
}
