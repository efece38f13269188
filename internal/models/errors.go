package models

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation error")

	// ErrConfiguration marks a run that could not start because its inputs were unusable.
	ErrConfiguration = errors.New("configuration error")
	// ErrRetrieval marks a single failed query against one content source.
	ErrRetrieval = errors.New("retrieval failed")
	// ErrScoring marks a single failed sentiment oracle call.
	ErrScoring = errors.New("sentiment scoring failed")

	ErrUnknownCity   = errors.New("unknown city")
	ErrUnknownPillar = errors.New("unknown pillar")
)

// ConfigurationError is returned when a run request or the loaded config cannot be used.
type ConfigurationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("configuration error: %s", e.Reason)
	}
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// NewConfigurationError builds a ConfigurationError with a formatted reason.
func NewConfigurationError(field, format string, args ...interface{}) *ConfigurationError {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// RetrievalError reports one failed query against one source.
type RetrievalError struct {
	Source string
	Query  string
	Reason string
	Err    error
}

func (e *RetrievalError) Error() string {
	msg := fmt.Sprintf("%s query %q: %s", e.Source, e.Query, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RetrievalError) Unwrap() error { return e.Err }

func (e *RetrievalError) Is(target error) bool { return target == ErrRetrieval }

// ScoringError reports one failed oracle call. Text is the input that was being scored.
type ScoringError struct {
	Text   string
	Reason string
	Err    error
}

func (e *ScoringError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("scoring failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("scoring failed: %s", e.Reason)
}

func (e *ScoringError) Unwrap() error { return e.Err }

func (e *ScoringError) Is(target error) bool { return target == ErrScoring }
