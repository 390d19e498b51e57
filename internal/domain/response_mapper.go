package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

// DefaultResponseMapper is the default implementation of ResponseMapper.
type DefaultResponseMapper struct{}

// NewResponseMapper creates a new instance of DefaultResponseMapper.
func NewResponseMapper() ResponseMapper {
	return &DefaultResponseMapper{}
}

// MapToToolResponse returns a text block with the summary followed by a
// JSON block with the payload. A nil payload yields only the text block.
func (m *DefaultResponseMapper) MapToToolResponse(summary string, payload interface{}) (*ToolResponse, error) {
	resp := &ToolResponse{
		Content: []ContentBlock{{Type: ContentText, Text: summary}},
	}
	if payload == nil {
		return resp, nil
	}

	jsonBytes, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response payload: %w", err)
	}
	resp.Content = append(resp.Content, ContentBlock{Type: ContentJSON, Text: string(jsonBytes)})
	return resp, nil
}

// MapError converts an error to MCP error format. The error kind and any
// context the error carries end up in Data.
func (m *DefaultResponseMapper) MapError(err error) *Error {
	if err == nil {
		return nil
	}

	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr
	}

	data := map[string]interface{}{}
	code := InternalError
	kind := "Internal"

	// Composite first: it usually wraps an operation or transport failure.
	var composite *CompositeError
	var params *ParamsError
	var exchange *TokenExchangeError
	var operation *OperationError
	var transport *TransportError

	switch {
	case errors.As(err, &composite):
		code, kind = APIError, "CompositeOperationFailed"
		data["operation"] = composite.Operation
		data["step"] = composite.Step
		if composite.ParentID != "" {
			data["parentId"] = composite.ParentID
		}
	case errors.Is(err, ErrUnknownTool):
		code, kind = MethodNotFound, "UnknownTool"
	case errors.As(err, &params):
		code, kind = InvalidParams, "InvalidParams"
		if len(params.Fields) > 0 {
			data["fields"] = params.Fields
		}
	case errors.Is(err, ErrInvalidParams):
		code, kind = InvalidParams, "InvalidParams"
	case errors.Is(err, ErrInvalidConfig):
		code, kind = ConfigurationError, "InvalidConfig"
	case errors.Is(err, ErrNotInitialized):
		code, kind = AuthenticationError, "NotInitialized"
	case errors.Is(err, ErrNotAuthenticated):
		code, kind = AuthenticationError, "NotAuthenticated"
	case errors.As(err, &exchange):
		code, kind = AuthenticationError, "TokenExchangeFailed"
		if exchange.Status != "" {
			data["status"] = exchange.Status
		}
	case errors.As(err, &operation):
		code, kind = APIError, "OperationFailed"
		data["operation"] = operation.Operation
		if operation.Entity != "" {
			data["entity"] = operation.Entity
		}
	case errors.As(err, &transport):
		code, kind = NetworkError, "TransportError"
		data["operation"] = transport.Operation
	case errors.Is(err, ErrCompositeOperationFailed):
		code, kind = APIError, "CompositeOperationFailed"
	case errors.Is(err, ErrTokenExchangeFailed):
		code, kind = AuthenticationError, "TokenExchangeFailed"
	case errors.Is(err, ErrOperationFailed):
		code, kind = APIError, "OperationFailed"
	case errors.Is(err, ErrTransport):
		code, kind = NetworkError, "TransportError"
	}
	data["kind"] = kind

	return &Error{
		Code:    code,
		Message: err.Error(),
		Data:    data,
	}
}

// MapErrorResponse returns the error as a tool response with IsError set,
// so MCP clients see it as a failed tool call rather than a protocol error.
func (m *DefaultResponseMapper) MapErrorResponse(err error) *ToolResponse {
	mapped := m.MapError(err)
	if mapped == nil {
		mapped = &Error{Code: InternalError, Message: "unknown error"}
	}

	resp := &ToolResponse{
		IsError: true,
		Content: []ContentBlock{{Type: ContentText, Text: "Error: " + mapped.Message}},
	}
	if jsonBytes, mErr := json.MarshalIndent(mapped, "", "  "); mErr == nil {
		resp.Content = append(resp.Content, ContentBlock{Type: ContentJSON, Text: string(jsonBytes)})
	}
	return resp
}
