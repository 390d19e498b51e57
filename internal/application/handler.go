package application

import (
	"context"

	"github.com/rs/zerolog"

	"linear-mcp-server/internal/domain"
	"linear-mcp-server/internal/infrastructure"
)

// TransportSource hands out the transport bound to the current credential.
type TransportSource interface {
	CurrentTransport() (domain.Transport, error)
}

// Refresher is consulted by the router before every dispatch.
type Refresher interface {
	NeedsRefresh() bool
	Refresh(ctx context.Context) error
}

// Authenticator is the part of the session the auth tools drive.
type Authenticator interface {
	Initialize(cred domain.Credential) error
	AuthorizationURL() (string, string, error)
	ExchangeCode(ctx context.Context, code, state string) error
	Status() domain.SessionStatus
}

// linearHandler holds what every Linear-backed handler needs.
type linearHandler struct {
	session TransportSource
	mapper  domain.ResponseMapper
	logger  zerolog.Logger
}

// client builds a facade over the current transport, failing with
// NotAuthenticated when there is none. Nothing is refreshed here.
func (h *linearHandler) client() (*infrastructure.LinearClient, error) {
	transport, err := h.session.CurrentTransport()
	if err != nil {
		return nil, err
	}
	return infrastructure.NewLinearClient(transport, h.logger), nil
}

// respond wraps a summary and payload into a success response.
func (h *linearHandler) respond(summary string, payload interface{}) (*domain.ToolResponse, error) {
	return h.mapper.MapToToolResponse(summary, payload)
}

// failed reports a business-level failure Linear signalled through its
// success flag or a missing payload.
func failed(operation, entity string) error {
	return &domain.OperationError{Operation: operation, Entity: entity, Reason: "Linear reported failure"}
}

// Schema helpers for tool definitions.

func stringProp(description string) map[string]interface{} {
	return map[string]interface{}{"type": "string", "description": description}
}

func numberProp(description string) map[string]interface{} {
	return map[string]interface{}{"type": "number", "description": description}
}

func intProp(description string, minimum, maximum int) map[string]interface{} {
	return map[string]interface{}{
		"type":        "integer",
		"description": description,
		"minimum":     minimum,
		"maximum":     maximum,
	}
}

func boolProp(description string) map[string]interface{} {
	return map[string]interface{}{"type": "boolean", "description": description}
}

func stringArrayProp(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "array",
		"description": description,
		"items":       map[string]interface{}{"type": "string"},
	}
}

func objectProp(description string, properties map[string]interface{}, required ...string) map[string]interface{} {
	prop := map[string]interface{}{
		"type":        "object",
		"description": description,
		"properties":  properties,
	}
	if len(required) > 0 {
		prop["required"] = required
	}
	return prop
}

func objectSchema(properties map[string]interface{}, required ...string) domain.JSONSchema {
	if properties == nil {
		properties = map[string]interface{}{}
	}
	return domain.JSONSchema{Type: "object", Properties: properties, Required: required}
}
