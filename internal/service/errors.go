package service

import (
	"errors"
	"fmt"

	"ai-quiz-generator-be/pkg/coordinator"
	"ai-quiz-generator-be/pkg/outputparser"
	"ai-quiz-generator-be/pkg/retriever"
)

// LabeledError is a generation failure with a stable, client visible label.
type LabeledError interface {
	error
	Label() string
}

type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }
func (e *ValidationError) Label() string { return "ValidationError" }

type ConflictError struct {
	ResourceID string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("quiz %s is already being generated, try again later", e.ResourceID)
}
func (e *ConflictError) Label() string { return "ConflictError" }

type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }
func (e *NotFoundError) Label() string { return "NotFoundError" }

type RetrievalError struct {
	Err error
}

func (e *RetrievalError) Error() string { return e.Err.Error() }
func (e *RetrievalError) Unwrap() error { return e.Err }
func (e *RetrievalError) Label() string { return "RetrievalError" }

type TruncatedOutputError struct {
	Err error
}

func (e *TruncatedOutputError) Error() string { return e.Err.Error() }
func (e *TruncatedOutputError) Unwrap() error { return e.Err }
func (e *TruncatedOutputError) Label() string { return "TruncatedOutputError" }

type ParseError struct {
	Err error
}

func (e *ParseError) Error() string { return e.Err.Error() }
func (e *ParseError) Unwrap() error { return e.Err }
func (e *ParseError) Label() string { return "ParseError" }

type CoordinationUnavailableError struct {
	Err error
}

func (e *CoordinationUnavailableError) Error() string {
	return fmt.Sprintf("job status store is unavailable: %v", e.Err)
}
func (e *CoordinationUnavailableError) Unwrap() error { return e.Err }
func (e *CoordinationUnavailableError) Label() string { return "CoordinationUnavailableError" }

// GenerationError means the language model call itself failed.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string { return fmt.Sprintf("question generation failed: %v", e.Err) }
func (e *GenerationError) Unwrap() error { return e.Err }
func (e *GenerationError) Label() string { return "GenerationError" }

type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string { return fmt.Sprintf("saving questions failed: %v", e.Err) }
func (e *PersistenceError) Unwrap() error { return e.Err }
func (e *PersistenceError) Label() string { return "PersistenceError" }

// classify wraps errors coming out of the pipeline packages into the service taxonomy.
// fallback is used for anything the packages do not type themselves.
func classify(err error, fallback func(error) LabeledError) LabeledError {
	var labeled LabeledError
	if errors.As(err, &labeled) {
		return labeled
	}

	var (
		retrievalErr *retriever.RetrievalError
		truncatedErr *outputparser.TruncatedOutputError
		parseErr     *outputparser.ParseError
	)
	switch {
	case errors.As(err, &retrievalErr):
		return &RetrievalError{Err: err}
	case errors.As(err, &truncatedErr):
		return &TruncatedOutputError{Err: err}
	case errors.As(err, &parseErr):
		return &ParseError{Err: err}
	case errors.Is(err, coordinator.ErrCoordinationUnavailable):
		return &CoordinationUnavailableError{Err: err}
	}
	return fallback(err)
}
