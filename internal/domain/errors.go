package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failure for the retry decision and the report
type ErrorKind string

const (
	ErrNone              ErrorKind = ""
	ErrLanguageDetection ErrorKind = "language_detection" // terminal, reported
	ErrRunTimeout        ErrorKind = "run_timeout"        // failing attempt
	ErrProvider          ErrorKind = "provider"           // failing attempt, logged
	ErrPatchApply        ErrorKind = "patch_apply"        // terminal for the file
	ErrAttemptsExhausted ErrorKind = "attempts_exhausted" // terminal, reported
)

// ClassifiedError pairs an error with its retry-decision kind
type ClassifiedError struct {
	Kind ErrorKind
	Err  error
}

func (e *ClassifiedError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *ClassifiedError) Unwrap() error {
	return e.Err
}

// NewError wraps err with a classification
func NewError(kind ErrorKind, err error) *ClassifiedError {
	return &ClassifiedError{Kind: kind, Err: err}
}

// Errorf builds a classified error from a format string
func Errorf(kind ErrorKind, format string, args ...interface{}) *ClassifiedError {
	return &ClassifiedError{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the classification of err, or ErrNone for unclassified errors
func KindOf(err error) ErrorKind {
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ErrNone
}

// IsTerminal reports whether the error aborts the loop for its target
// instead of being absorbed into the next retry decision
func IsTerminal(err error) bool {
	switch KindOf(err) {
	case ErrLanguageDetection, ErrPatchApply, ErrAttemptsExhausted:
		return true
	}
	return false
}
