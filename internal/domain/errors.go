package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the error taxonomy. Every typed error below unwraps
// to exactly one of these, so callers can classify with errors.Is.
var (
	// ErrInvalidConfig indicates a credential or configuration value is missing or malformed.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidParams indicates tool arguments failed validation.
	ErrInvalidParams = errors.New("invalid parameters")

	// ErrNotInitialized indicates an OAuth-only operation was attempted without an OAuth credential.
	ErrNotInitialized = errors.New("oauth not initialized")

	// ErrNotAuthenticated indicates no authenticated transport exists.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrTokenExchangeFailed indicates the token endpoint rejected a code or refresh exchange.
	ErrTokenExchangeFailed = errors.New("token exchange failed")

	// ErrOperationFailed indicates upstream answered but reported a business-level failure.
	ErrOperationFailed = errors.New("operation failed")

	// ErrCompositeOperationFailed indicates one half of a two-call sequence failed.
	ErrCompositeOperationFailed = errors.New("composite operation failed")

	// ErrTransport indicates a network or transport failure talking to upstream.
	ErrTransport = errors.New("transport error")

	// ErrUnknownTool indicates the tool identifier is not in the catalog.
	ErrUnknownTool = errors.New("unknown tool")
)

// JSON-RPC 2.0 error codes carried in error responses.
const (
	// Standard JSON-RPC 2.0 error codes
	MethodNotFound = -32601 // Unknown tool
	InvalidParams  = -32602 // Invalid tool arguments
	InternalError  = -32603 // Server internal error

	// Application-specific error codes
	ConfigurationError  = -32001 // Credential configuration rejected
	AuthenticationError = -32002 // Not initialized, not authenticated, or token exchange failed
	APIError            = -32003 // Linear reported a failure
	NetworkError        = -32004 // Network connectivity issue
)

// Error is a classified error as surfaced to MCP clients.
type Error struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Error implements the error interface for Error.
func (e *Error) Error() string {
	return e.Message
}

// ParamsError lists the argument fields that were missing or malformed.
type ParamsError struct {
	Tool   string
	Fields []string
	Reason string
}

func (e *ParamsError) Error() string {
	msg := "invalid parameters"
	if e.Tool != "" {
		msg += " for " + e.Tool
	}
	if len(e.Fields) > 0 {
		msg += ": " + strings.Join(e.Fields, ", ")
	}
	if e.Reason != "" {
		msg += " (" + e.Reason + ")"
	}
	return msg
}

func (e *ParamsError) Unwrap() error { return ErrInvalidParams }

// TokenExchangeError carries the token endpoint's status and body.
type TokenExchangeError struct {
	Grant  string
	Status string
	Body   string
	Err    error
}

func (e *TokenExchangeError) Error() string {
	switch {
	case e.Status != "":
		return fmt.Sprintf("%s grant failed: %s. Response: %s", e.Grant, e.Status, e.Body)
	case e.Err != nil:
		return fmt.Sprintf("%s grant failed: %v", e.Grant, e.Err)
	default:
		return e.Grant + " grant failed"
	}
}

func (e *TokenExchangeError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrTokenExchangeFailed, e.Err}
	}
	return []error{ErrTokenExchangeFailed}
}

// OperationError reports a business-level failure for one operation.
type OperationError struct {
	Operation string
	Entity    string
	Reason    string
}

func (e *OperationError) Error() string {
	msg := fmt.Sprintf("failed to %s", e.Operation)
	if e.Entity != "" {
		msg += " (" + e.Entity + ")"
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *OperationError) Unwrap() error { return ErrOperationFailed }

// CompositeError reports which half of a two-call sequence failed. When the
// first half committed, ParentID identifies what it created.
type CompositeError struct {
	Operation string
	Step      string
	ParentID  string
	Err       error
}

func (e *CompositeError) Error() string {
	msg := fmt.Sprintf("%s failed at step %q", e.Operation, e.Step)
	if e.ParentID != "" {
		msg += fmt.Sprintf(" after creating %s", e.ParentID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CompositeError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrCompositeOperationFailed, e.Err}
	}
	return []error{ErrCompositeOperationFailed}
}

// TransportError wraps a network or protocol failure with the operation name.
type TransportError struct {
	Operation string
	Err       error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("GraphQL operation %s failed: %v", e.Operation, e.Err)
}

func (e *TransportError) Unwrap() []error {
	return []error{ErrTransport, e.Err}
}
