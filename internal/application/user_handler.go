package application

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"linear-mcp-server/internal/domain"
)

// ToolGetUser returns the authenticated user.
const ToolGetUser = "linear_get_user"

// UserHandler implements ToolHandler for the authenticated user.
type UserHandler struct {
	linearHandler
}

// NewUserHandler creates a new UserHandler instance.
func NewUserHandler(session TransportSource, mapper domain.ResponseMapper, logger zerolog.Logger) *UserHandler {
	return &UserHandler{linearHandler{
		session: session,
		mapper:  mapper,
		logger:  logger.With().Str("handler", "user").Logger(),
	}}
}

// ToolName returns the identifier for this handler.
func (h *UserHandler) ToolName() string {
	return "user"
}

// ListTools returns available tools for user operations.
func (h *UserHandler) ListTools() []domain.ToolDefinition {
	return []domain.ToolDefinition{
		{
			Name:        ToolGetUser,
			Description: "Get current user information",
			InputSchema: objectSchema(nil),
		},
	}
}

// Methods returns the tool table of this handler.
func (h *UserHandler) Methods() map[string]domain.ToolMethod {
	return map[string]domain.ToolMethod{
		ToolGetUser: {Name: "get user", Call: h.handleGetUser},
	}
}

func (h *UserHandler) handleGetUser(ctx context.Context, args map[string]interface{}) (*domain.ToolResponse, error) {
	client, err := h.client()
	if err != nil {
		return nil, err
	}

	user, err := client.GetViewer(ctx)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, &domain.OperationError{Operation: "get user", Entity: "viewer", Reason: "no user returned"}
	}

	summary := fmt.Sprintf("User: %s (%s)", user.Name, user.ID)
	if user.Email != "" {
		summary += "\nEmail: " + user.Email
	}
	return h.respond(summary, user)
}
