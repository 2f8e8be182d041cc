package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure by the stage that produced it.
type Kind string

const (
	KindInvalidArgument      Kind = "invalid_argument"
	KindNotFound             Kind = "not_found"
	KindTranscriptionFailure Kind = "transcription_failure"
	KindTranslationFailure   Kind = "translation_failure"
	KindSummarizationFailure Kind = "summarization_failure"
	KindIOFailure            Kind = "io_failure"
	KindCleanupFailure       Kind = "cleanup_failure"
	KindInternal             Kind = "internal"
)

type AppError struct {
	Code    int    `json:"-"`
	Kind    Kind   `json:"kind"`
	Message string `json:"error"`
	Op      string `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func newError(kind Kind, code int, op string, err error, message string) *AppError {
	return &AppError{
		Code:    code,
		Kind:    kind,
		Message: message,
		Op:      op,
		Err:     err,
	}
}

func InvalidInput(op string, err error, message string) *AppError {
	return newError(KindInvalidArgument, http.StatusBadRequest, op, err, message)
}

func NotFound(op string, err error, message string) *AppError {
	return newError(KindNotFound, http.StatusNotFound, op, err, message)
}

func Internal(op string, err error, message string) *AppError {
	return newError(KindInternal, http.StatusInternalServerError, op, err, message)
}

func TranscriptionFailure(op string, err error, message string) *AppError {
	return newError(KindTranscriptionFailure, http.StatusInternalServerError, op, err, message)
}

func TranslationFailure(op string, err error, message string) *AppError {
	return newError(KindTranslationFailure, http.StatusInternalServerError, op, err, message)
}

func SummarizationFailure(op string, err error, message string) *AppError {
	return newError(KindSummarizationFailure, http.StatusInternalServerError, op, err, message)
}

func IOFailure(op string, err error, message string) *AppError {
	return newError(KindIOFailure, http.StatusInternalServerError, op, err, message)
}

// CleanupFailure is never returned to a client; it exists so cleanup paths
// can log a classified error.
func CleanupFailure(op string, err error, message string) *AppError {
	return newError(KindCleanupFailure, http.StatusInternalServerError, op, err, message)
}

// KindOf returns the kind of the outermost AppError in err's chain,
// or KindInternal when there is none.
func KindOf(err error) Kind {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// StatusCode maps err to the HTTP status the request layer should answer with.
func StatusCode(err error) int {
	var appErr *AppError
	if stderrors.As(err, &appErr) && appErr.Code != 0 {
		return appErr.Code
	}
	return http.StatusInternalServerError
}

func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}

func IsInvalidInput(err error) bool {
	return KindOf(err) == KindInvalidArgument
}
