// Package errors provides the error taxonomy for the OHLCV fetcher.
// Every failure surfaced to the user is a ClassifiedError carrying its type,
// the component and operation that produced it, and optional context. None of
// the types are retried; all are terminal for a run.
package errors

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"
)

// ErrorType represents the classification of an error
type ErrorType string

const (
	ErrorTypeNetwork       ErrorType = "network"        // Transport failures and non-success statuses
	ErrorTypeParse         ErrorType = "parse"          // Response body does not match the expected schema
	ErrorTypeInvalidSymbol ErrorType = "invalid_symbol" // Symbol is not in the active product set
	ErrorTypeEmptyRange    ErrorType = "empty_range"    // No candles for the whole requested range
	ErrorTypeIO            ErrorType = "io"             // Output file could not be written or read
	ErrorTypeValidation    ErrorType = "validation"     // Bad user input (dates, resolution, flags)
	ErrorTypeConfiguration ErrorType = "configuration"  // Invalid configuration
	ErrorTypeUnknown       ErrorType = "unknown"        // Unclassified errors
)

// Exit codes reported by the CLI for each error type
const (
	ExitSuccess       = 0
	ExitUsageError    = 1
	ExitConfigError   = 2
	ExitNetworkError  = 3
	ExitParseError    = 4
	ExitInvalidSymbol = 5
	ExitEmptyRange    = 6
	ExitIOError       = 7
	ExitInterrupt     = 130
)

// Sentinels for errors.Is matching on type.
var (
	ErrNetwork       = &ClassifiedError{Type: ErrorTypeNetwork}
	ErrParse         = &ClassifiedError{Type: ErrorTypeParse}
	ErrInvalidSymbol = &ClassifiedError{Type: ErrorTypeInvalidSymbol}
	ErrEmptyRange    = &ClassifiedError{Type: ErrorTypeEmptyRange}
	ErrIO            = &ClassifiedError{Type: ErrorTypeIO}
	ErrValidation    = &ClassifiedError{Type: ErrorTypeValidation}
	ErrConfiguration = &ClassifiedError{Type: ErrorTypeConfiguration}
)

// ClassifiedError represents an error with metadata for reporting decisions
type ClassifiedError struct {
	Err       error                  `json:"error"`
	Type      ErrorType              `json:"type"`
	Component string                 `json:"component"`
	Operation string                 `json:"operation"`
	Context   map[string]interface{} `json:"context,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// Error implements the error interface
func (ce *ClassifiedError) Error() string {
	if ce.Err == nil {
		return string(ce.Type)
	}
	if ce.Component == "" {
		return fmt.Sprintf("[%s] %s: %v", ce.Type, ce.Operation, ce.Err)
	}
	return fmt.Sprintf("[%s/%s] %s: %v", ce.Component, ce.Type, ce.Operation, ce.Err)
}

// Unwrap returns the underlying error
func (ce *ClassifiedError) Unwrap() error {
	return ce.Err
}

// Is checks if the error is of the specified type
func (ce *ClassifiedError) Is(target error) bool {
	if t, ok := target.(*ClassifiedError); ok {
		return ce.Type == t.Type
	}
	return false
}

// WithContext attaches a key/value pair and returns the same error.
func (ce *ClassifiedError) WithContext(key string, value interface{}) *ClassifiedError {
	if ce.Context == nil {
		ce.Context = make(map[string]interface{})
	}
	ce.Context[key] = value
	return ce
}

func newClassified(errorType ErrorType, component, operation string, err error) *ClassifiedError {
	return &ClassifiedError{
		Err:       err,
		Type:      errorType,
		Component: component,
		Operation: operation,
		Timestamp: time.Now(),
	}
}

// Network classifies a transport or HTTP status failure.
func Network(component, operation string, err error) *ClassifiedError {
	ce := newClassified(ErrorTypeNetwork, component, operation, err)
	if IsTimeout(err) {
		ce.WithContext("timeout", true)
	}
	return ce
}

// Parse classifies a response body that could not be decoded.
func Parse(component, operation string, err error) *ClassifiedError {
	return newClassified(ErrorTypeParse, component, operation, err)
}

// InvalidSymbol reports a symbol missing from the active product set.
func InvalidSymbol(symbol string, known int) *ClassifiedError {
	return newClassified(ErrorTypeInvalidSymbol, "fetcher", "validate_symbol",
		fmt.Errorf("%q is not a valid or currently listed symbol", symbol)).
		WithContext("symbol", symbol).
		WithContext("known_symbols", known)
}

// EmptyRange reports a range that produced no candles at all.
func EmptyRange(symbol string, start, end time.Time) *ClassifiedError {
	return newClassified(ErrorTypeEmptyRange, "fetcher", "fetch_range",
		fmt.Errorf("no candles returned for %s between %s and %s",
			symbol, start.Format(time.RFC3339), end.Format(time.RFC3339))).
		WithContext("symbol", symbol)
}

// IO classifies a file system failure on path.
func IO(operation, path string, err error) *ClassifiedError {
	return newClassified(ErrorTypeIO, "export", operation, err).WithContext("path", path)
}

// Validation reports invalid user input for a field.
func Validation(field, message string) *ClassifiedError {
	return newClassified(ErrorTypeValidation, "", "validate",
		fmt.Errorf("%s: %s", field, message)).WithContext("field", field)
}

// Configuration reports an invalid configuration.
func Configuration(err error) *ClassifiedError {
	return newClassified(ErrorTypeConfiguration, "config", "load", err)
}

// IsTimeout checks if the error is timeout-related
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "deadline exceeded")
}

// GetErrorType extracts the error type from a classified error anywhere in the chain
func GetErrorType(err error) ErrorType {
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Type
	}
	return ErrorTypeUnknown
}

// ExitCode maps an error to the CLI exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	switch GetErrorType(err) {
	case ErrorTypeNetwork:
		return ExitNetworkError
	case ErrorTypeParse:
		return ExitParseError
	case ErrorTypeInvalidSymbol:
		return ExitInvalidSymbol
	case ErrorTypeEmptyRange:
		return ExitEmptyRange
	case ErrorTypeIO:
		return ExitIOError
	case ErrorTypeConfiguration:
		return ExitConfigError
	default:
		return ExitUsageError
	}
}

// WrapError wraps an error with additional context
func WrapError(err error, component, operation, message string) error {
	if err == nil {
		return nil
	}

	return fmt.Errorf("%s in %s.%s: %w", message, component, operation, err)
}
