package errors

import (
	"errors"
	"fmt"
)

// Common error types for categorization and handling

var (
	// ErrNotFound indicates a requested resource was not found
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates invalid user input
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates a file type the extractor does not handle
	ErrUnsupportedType = errors.New("unsupported file type")

	// ErrDecodeFailed indicates text could not be decoded with any known encoding
	ErrDecodeFailed = errors.New("decode failed")

	// ErrExtractorUnavailable indicates an extraction capability (e.g. OCR) is not installed
	ErrExtractorUnavailable = errors.New("extractor unavailable")

	// ErrServiceUnavailable indicates a required service is unavailable
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrDimensionMismatch indicates an embedding does not match the index dimension
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrTaskCancelled indicates an ingestion task was cancelled before completion
	ErrTaskCancelled = errors.New("task cancelled")

	// ErrLLMCommunication indicates LLM communication failed
	ErrLLMCommunication = errors.New("llm communication failed")
)

// WrapError wraps an error with context message and stack
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// WrapErrorf wraps an error with formatted context message
func WrapErrorf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	message := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", message, err)
}

// IsNotFound checks if error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsInvalidInput checks if error is an invalid input error
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsUnsupportedType checks if error is an unsupported file type error
func IsUnsupportedType(err error) bool {
	return errors.Is(err, ErrUnsupportedType)
}

// IsServiceUnavailable checks if error is a service unavailable error
func IsServiceUnavailable(err error) bool {
	return errors.Is(err, ErrServiceUnavailable)
}

// IsTaskCancelled checks if error is a task cancellation
func IsTaskCancelled(err error) bool {
	return errors.Is(err, ErrTaskCancelled)
}
