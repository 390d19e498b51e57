package application

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"linear-mcp-server/internal/domain"
)

// Tool name constants for authentication.
const (
	ToolAuth         = "linear_auth"
	ToolAuthCallback = "linear_auth_callback"
	ToolAuthStatus   = "linear_auth_status"
)

// AuthHandler drives the OAuth flow of the session.
type AuthHandler struct {
	auth   Authenticator
	mapper domain.ResponseMapper
	logger zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler instance.
func NewAuthHandler(auth Authenticator, mapper domain.ResponseMapper, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		auth:   auth,
		mapper: mapper,
		logger: logger.With().Str("handler", AuthFamily).Logger(),
	}
}

// ToolName returns the identifier for this handler.
func (h *AuthHandler) ToolName() string {
	return AuthFamily
}

// ListTools returns available tools for authentication.
func (h *AuthHandler) ListTools() []domain.ToolDefinition {
	return []domain.ToolDefinition{
		{
			Name:        ToolAuth,
			Description: "Initialize OAuth flow with Linear",
			InputSchema: objectSchema(map[string]interface{}{
				"clientId":     stringProp("Linear OAuth client ID"),
				"clientSecret": stringProp("Linear OAuth client secret"),
				"redirectUri":  stringProp("OAuth redirect URI"),
			}, "clientId", "clientSecret", "redirectUri"),
		},
		{
			Name:        ToolAuthCallback,
			Description: "Handle OAuth callback",
			InputSchema: objectSchema(map[string]interface{}{
				"code":  stringProp("OAuth authorization code"),
				"state": stringProp("State token returned with the code (optional)"),
			}, "code"),
		},
		{
			Name:        ToolAuthStatus,
			Description: "Report the session's credential kind, authentication state and token expiry",
			InputSchema: objectSchema(nil),
		},
	}
}

// Methods returns the tool table of this handler.
func (h *AuthHandler) Methods() map[string]domain.ToolMethod {
	return map[string]domain.ToolMethod{
		ToolAuth:         {Name: "initialize oauth", Call: h.handleAuth},
		ToolAuthCallback: {Name: "exchange code", Call: h.handleCallback},
		ToolAuthStatus:   {Name: "status", Call: h.handleStatus},
	}
}

type authArgs struct {
	ClientID     string `json:"clientId" validate:"required"`
	ClientSecret string `json:"clientSecret" validate:"required"`
	RedirectURI  string `json:"redirectUri" validate:"required,url"`
}

// handleAuth installs an OAuth credential and returns the URL to visit.
func (h *AuthHandler) handleAuth(ctx context.Context, args map[string]interface{}) (*domain.ToolResponse, error) {
	var in authArgs
	if err := decodeArgs(ToolAuth, args, &in); err != nil {
		return nil, err
	}

	if err := h.auth.Initialize(domain.OAuth(in.ClientID, in.ClientSecret, in.RedirectURI)); err != nil {
		return nil, err
	}

	authURL, state, err := h.auth.AuthorizationURL()
	if err != nil {
		return nil, err
	}

	h.logger.Info().Msg("oauth flow started")
	return h.mapper.MapToToolResponse(
		fmt.Sprintf("Please visit the following URL to authorize the application: %s", authURL),
		map[string]string{"authorizationUrl": authURL, "state": state},
	)
}

type callbackArgs struct {
	Code  string `json:"code" validate:"required"`
	State string `json:"state"`
}

// handleCallback exchanges the authorization code for tokens.
func (h *AuthHandler) handleCallback(ctx context.Context, args map[string]interface{}) (*domain.ToolResponse, error) {
	var in callbackArgs
	if err := decodeArgs(ToolAuthCallback, args, &in); err != nil {
		return nil, err
	}

	if err := h.auth.ExchangeCode(ctx, in.Code, in.State); err != nil {
		return nil, err
	}

	return h.mapper.MapToToolResponse("Successfully authenticated with Linear", h.auth.Status())
}

// handleStatus reports the session without contacting Linear.
func (h *AuthHandler) handleStatus(ctx context.Context, args map[string]interface{}) (*domain.ToolResponse, error) {
	status := h.auth.Status()

	summary := "Not authenticated"
	if status.Authenticated {
		summary = fmt.Sprintf("Authenticated with %s credential", status.Kind)
		if status.ExpiresAt != nil {
			summary += fmt.Sprintf(", token expires at %s", status.ExpiresAt.Format(time.RFC3339))
		}
	}
	return h.mapper.MapToToolResponse(summary, status)
}
