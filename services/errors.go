package services

import (
	"errors"
	"fmt"
)

// ErrorType represents the type/category of error
type ErrorType string

const (
	ErrorTypeValidation       ErrorType = "validation"
	ErrorTypePayloadTooLarge  ErrorType = "payload_too_large"
	ErrorTypeConfiguration    ErrorType = "configuration"
	ErrorTypeStoreUnavailable ErrorType = "store_unavailable"
	ErrorTypeExternal         ErrorType = "external"
	ErrorTypeUnauthorized     ErrorType = "unauthorized"
	ErrorTypeInternal         ErrorType = "internal"
)

// DomainError represents a structured error with additional context
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
	Details map[string]interface{}
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// WithDetail adds a detail to the error
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewDomainError creates a new domain error
func NewDomainError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
		Details: make(map[string]interface{}),
	}
}

// Domain error variables

var (
	// Validation errors: rejected before any cryptographic or persistence work
	ErrInvalidInput    = NewDomainError(ErrorTypeValidation, "invalid input", nil)
	ErrEmptyTenderID   = NewDomainError(ErrorTypeValidation, "tender id is required", nil)
	ErrEmptyDocument   = NewDomainError(ErrorTypeValidation, "bid document is empty", nil)
	ErrPayloadTooLarge = NewDomainError(ErrorTypePayloadTooLarge, "bid document exceeds maximum size", nil)

	// Configuration errors: missing key/credentials, fatal at first use
	ErrSealingKeyMissing = NewDomainError(ErrorTypeConfiguration, "sealing key not configured", nil)
	ErrOracleKeyMissing  = NewDomainError(ErrorTypeConfiguration, "compliance oracle API key not configured", nil)

	// Persistence errors: transient store failure on the synchronous path
	ErrStoreUnavailable = NewDomainError(ErrorTypeStoreUnavailable, "record store unavailable", nil)

	// External collaborator errors: mailer or compliance oracle
	ErrOracleUnavailable = NewDomainError(ErrorTypeExternal, "compliance oracle unavailable", nil)
	ErrMailerFailure     = NewDomainError(ErrorTypeExternal, "mail delivery failed", nil)

	ErrUnauthorized = NewDomainError(ErrorTypeUnauthorized, "unauthorized", nil)
	ErrInternal     = NewDomainError(ErrorTypeInternal, "internal server error", nil)
)

// Error type checking helper functions

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return GetErrorType(err) == ErrorTypeValidation
}

// IsPayloadTooLargeError checks if an error is a payload size error
func IsPayloadTooLargeError(err error) bool {
	return GetErrorType(err) == ErrorTypePayloadTooLarge
}

// IsConfigurationError checks if an error is a configuration error
func IsConfigurationError(err error) bool {
	return GetErrorType(err) == ErrorTypeConfiguration
}

// IsStoreUnavailableError checks if an error is a store availability error
func IsStoreUnavailableError(err error) bool {
	return GetErrorType(err) == ErrorTypeStoreUnavailable
}

// IsExternalError checks if an error is an external collaborator error
func IsExternalError(err error) bool {
	return GetErrorType(err) == ErrorTypeExternal
}

// GetErrorType returns the ErrorType of a domain error, or empty string if not a domain error
func GetErrorType(err error) ErrorType {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type
	}
	return ""
}

// GetErrorDetails returns the details map of a domain error, or nil if not a domain error
func GetErrorDetails(err error) map[string]interface{} {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Details
	}
	return nil
}

// WrapError wraps an error with additional context
func WrapError(errType ErrorType, message string, err error) error {
	return NewDomainError(errType, message, err)
}

// WrapStore wraps an error as a store availability error
func WrapStore(message string, err error) error {
	return NewDomainError(ErrorTypeStoreUnavailable, message, err)
}

// WrapExternal wraps an error as an external collaborator error
func WrapExternal(message string, err error) error {
	return NewDomainError(ErrorTypeExternal, message, err)
}

// WrapConfiguration wraps an error as a configuration error
func WrapConfiguration(message string, err error) error {
	return NewDomainError(ErrorTypeConfiguration, message, err)
}
