package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"linear-mcp-server/internal/application"
	"linear-mcp-server/internal/domain"
	"linear-mcp-server/internal/infrastructure"
)

func runServe(cmd *cobra.Command, args []string) error {
	config, err := domain.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if logLevel != "" {
		config.Log.Level = logLevel
	}

	logger := newLogger(config.Log, os.Stderr)
	logger.Info().
		Str("version", version).
		Str("transport", config.Transport.Type).
		Str("api_url", config.Linear.APIURL).
		Msg("configuration loaded")

	server, err := buildServer(config, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		logger.Error().Err(err).Msg("server stopped with error")
		return err
	}
	logger.Info().Msg("server shutdown complete")
	return nil
}

// buildServer wires the session, handlers and router into an MCP server.
func buildServer(config *domain.Config, logger zerolog.Logger) (*application.Server, error) {
	limiter := infrastructure.NewRateLimiter(config.Linear.RequestsPerSecond, config.Linear.Burst)
	factory := infrastructure.NewTransportFactory(config.Linear.APIURL, limiter, logger)

	session := domain.NewCredentialManager(factory,
		domain.WithOAuthEndpoints(config.Linear.AuthorizeURL, config.Linear.TokenURL),
		domain.WithHTTPClient(&http.Client{Timeout: config.Linear.Timeout}),
		domain.WithLogger(logger.With().Str("component", "session").Logger()),
	)

	if err := bootstrapCredential(session, config.Auth, logger); err != nil {
		return nil, err
	}

	mapper := domain.NewResponseMapper()
	router, err := application.NewRequestRouter(session, mapper, logger,
		application.NewAuthHandler(session, mapper, logger),
		application.NewIssueHandler(session, mapper, logger),
		application.NewProjectHandler(session, mapper, logger),
		application.NewTeamHandler(session, mapper, logger),
		application.NewUserHandler(session, mapper, logger),
		application.NewInitiativeHandler(session, mapper, logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build router: %w", err)
	}
	logger.Info().Int("tools", len(router.ListAllTools())).Msg("request router initialized")

	return application.NewServer(router, config, version, logger)
}

// bootstrapCredential installs the configured startup credential, if any.
// For OAuth it logs the URL the user has to visit; the code still arrives
// through linear_auth_callback.
func bootstrapCredential(session *domain.CredentialManager, auth domain.AuthConfig, logger zerolog.Logger) error {
	cred, ok := auth.Credential()
	if !ok {
		logger.Info().Msg("no startup credential configured; call linear_auth to authenticate")
		return nil
	}
	if err := session.Initialize(cred); err != nil {
		return fmt.Errorf("failed to initialize credential: %w", err)
	}
	if cred.Kind != domain.OAuthCredential {
		return nil
	}

	authURL, _, err := session.AuthorizationURL()
	if err != nil {
		return err
	}
	logger.Info().Str("url", authURL).Msg("visit the authorization URL, then call linear_auth_callback with the code")
	return nil
}
