package domain

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors shared across the engine
var (
	// ErrStoreUnavailable wraps any failure or timeout reaching the graph store.
	ErrStoreUnavailable = errors.New("graph store unavailable")
	// ErrSuperseded is returned for a resolution replaced by a newer snapshot.
	ErrSuperseded = errors.New("resolution superseded by a newer predicate snapshot")
	// ErrUnknownStratification is returned for an unsupported survival key.
	ErrUnknownStratification = errors.New("unknown stratification key")
)

// APIError represents a standardized error response
type APIError struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error codes for different failure scenarios
const (
	ErrCodeInvalidInput  = "INVALID_INPUT"
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeSuperseded    = "SUPERSEDED"
	ErrCodeRateLimit     = "RATE_LIMIT_EXCEEDED"
	ErrCodeTimeout       = "REQUEST_TIMEOUT"
	ErrCodeInternal      = "INTERNAL_SERVER_ERROR"
	ErrCodeConfiguration = "CONFIGURATION_ERROR"
)

// NewAPIError creates a new APIError with timestamp
func NewAPIError(code, message, details, requestID string) *APIError {
	return &APIError{
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	}
}

// ValidationError represents input validation errors
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}

// ConfigurationError is fatal at startup: a store schema or setting the engine depends on is missing.
type ConfigurationError struct {
	Component string
	Missing   []string
	Message   string
}

// Error implements the error interface
func (e *ConfigurationError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("configuration error in %s: %s %v", e.Component, e.Message, e.Missing)
	}
	return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Message)
}

// NewConfigurationError creates a new ConfigurationError
func NewConfigurationError(component, message string, missing ...string) *ConfigurationError {
	return &ConfigurationError{
		Component: component,
		Missing:   missing,
		Message:   message,
	}
}

// IsValidationError reports whether err carries a ValidationError
func IsValidationError(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsConfigurationError reports whether err carries a ConfigurationError
func IsConfigurationError(err error) bool {
	var target *ConfigurationError
	return errors.As(err, &target)
}
