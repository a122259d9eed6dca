package types

import (
	"errors"
	"fmt"
)

// Standard error types
type ErrorType string

const (
	ErrTypeConfig              ErrorType = "CONFIG_ERROR"
	ErrTypeValidation          ErrorType = "VALIDATION_ERROR"
	ErrTypeInvalidValue        ErrorType = "INVALID_VALUE"
	ErrTypeTransport           ErrorType = "TRANSPORT_ERROR"
	ErrTypeClient              ErrorType = "CLIENT_ERROR"
	ErrTypeServer              ErrorType = "SERVER_ERROR"
	ErrTypeEncode              ErrorType = "ENCODE_ERROR"
	ErrTypeDecode              ErrorType = "DECODE_ERROR"
	ErrTypeRPC                 ErrorType = "RPC_ERROR"
	ErrTypeUnexpectedStructure ErrorType = "UNEXPECTED_STRUCTURE"
	ErrTypeTrailingData        ErrorType = "TRAILING_DATA"
	ErrTypeReturned            ErrorType = "RETURNED_ERROR"
)

// StandardError provides consistent error formatting
type StandardError struct {
	Type    ErrorType
	Message string
	Details map[string]any
	// Body holds the raw response text for status and decode failures.
	Body  string
	Cause error
}

func (e *StandardError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Type, e.Message)
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	if e.Body != "" {
		msg = fmt.Sprintf("%s. Response: %s", msg, e.Body)
	}
	return msg
}

func (e *StandardError) Unwrap() error {
	return e.Cause
}

// ErrorTypeOf returns the classification of err, or "" when err does not
// carry a StandardError.
func ErrorTypeOf(err error) ErrorType {
	var se *StandardError
	if errors.As(err, &se) {
		return se.Type
	}
	return ""
}

func IsErrorType(err error, t ErrorType) bool {
	return ErrorTypeOf(err) == t
}

// Error constructors for common cases

func NewConfigError(msg string, cause error) error {
	return &StandardError{
		Type:    ErrTypeConfig,
		Message: msg,
		Cause:   cause,
	}
}

func NewValidationError(field, msg string) error {
	return &StandardError{
		Type:    ErrTypeValidation,
		Message: fmt.Sprintf("validation failed for %s: %s", field, msg),
		Details: map[string]any{"field": field},
	}
}

func NewInvalidValueError(field, value, msg string) error {
	return &StandardError{
		Type:    ErrTypeInvalidValue,
		Message: fmt.Sprintf("invalid value for %s: %s (%s)", field, value, msg),
		Details: map[string]any{"field": field, "value": value},
	}
}

func NewTransportError(url string, cause error) error {
	return &StandardError{
		Type:    ErrTypeTransport,
		Message: fmt.Sprintf("request to %s failed", url),
		Details: map[string]any{"url": url},
		Cause:   cause,
	}
}

// NewClientError classifies a 4xx response.
func NewClientError(status int, body string) error {
	return &StandardError{
		Type:    ErrTypeClient,
		Message: fmt.Sprintf("client error (http %d)", status),
		Details: map[string]any{"status": status},
		Body:    body,
	}
}

// NewServerError classifies a 5xx or any other non-success response.
func NewServerError(status int, body string) error {
	return &StandardError{
		Type:    ErrTypeServer,
		Message: fmt.Sprintf("server error (http %d)", status),
		Details: map[string]any{"status": status},
		Body:    body,
	}
}

func NewEncodeError(method string, cause error) error {
	return &StandardError{
		Type:    ErrTypeEncode,
		Message: fmt.Sprintf("failed to encode %s request", method),
		Details: map[string]any{"method": method},
		Cause:   cause,
	}
}

// NewDecodeError keeps the offending payload next to the parse failure.
func NewDecodeError(cause error, body string) error {
	return &StandardError{
		Type:    ErrTypeDecode,
		Message: "deserialization error",
		Body:    body,
		Cause:   cause,
	}
}

func NewRPCError(method string, rpcErr *RPCError) error {
	return &StandardError{
		Type:    ErrTypeRPC,
		Message: fmt.Sprintf("%s returned an error", method),
		Details: map[string]any{"method": method, "code": rpcErr.Code},
		Cause:   rpcErr,
	}
}

func NewUnexpectedStructureError(msg string, cause error) error {
	return &StandardError{
		Type:    ErrTypeUnexpectedStructure,
		Message: fmt.Sprintf("unexpected structure: %s", msg),
		Cause:   cause,
	}
}

func NewTrailingDataError(what string, remaining int) error {
	return &StandardError{
		Type:    ErrTypeTrailingData,
		Message: fmt.Sprintf("data not consumed entirely when deserializing %s", what),
		Details: map[string]any{"remaining": remaining},
	}
}

func NewReturnedError(method, returned string) error {
	return &StandardError{
		Type:    ErrTypeReturned,
		Message: fmt.Sprintf("%s returned: %s", method, returned),
		Details: map[string]any{"method": method},
	}
}
