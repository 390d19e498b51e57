package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	graphql "github.com/hasura/go-graphql-client"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"linear-mcp-server/internal/domain"
)

// clientErrorCodes are the extension codes the GraphQL client attaches to
// failures it produced itself, as opposed to errors reported by Linear.
var clientErrorCodes = map[string]bool{
	"request_error":                   true,
	"json_encode_error":               true,
	"json_decode_error":               true,
	"graphql_decode_error":            true,
	"graphql_extensions_decode_error": true,
}

// GraphQLTransport executes raw GraphQL documents against Linear.
// It implements domain.Transport and is rebuilt whenever the access key changes.
type GraphQLTransport struct {
	client  *graphql.Client
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// NewGraphQLTransport creates a transport for endpoint on top of an
// authenticated HTTP client. A nil limiter disables rate limiting.
func NewGraphQLTransport(endpoint string, httpClient *http.Client, limiter *rate.Limiter, logger zerolog.Logger) *GraphQLTransport {
	base := http.DefaultTransport
	if httpClient != nil && httpClient.Transport != nil {
		base = httpClient.Transport
	}
	wrapped := &http.Client{
		Transport: &errorStatusTransport{base: base},
	}
	if httpClient != nil {
		wrapped.Timeout = httpClient.Timeout
	}

	return &GraphQLTransport{
		client:  graphql.NewClient(endpoint, wrapped),
		limiter: limiter,
		logger:  logger,
	}
}

// NewTransportFactory returns a factory that binds every new access key to
// the same endpoint and shared limiter.
func NewTransportFactory(endpoint string, limiter *rate.Limiter, logger zerolog.Logger) domain.TransportFactory {
	return func(httpClient *http.Client) domain.Transport {
		return NewGraphQLTransport(endpoint, httpClient, limiter, logger)
	}
}

// NewRateLimiter returns a limiter allowing rps requests per second, or nil
// when rps is not positive.
func NewRateLimiter(rps float64, burst int) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// RawRequest executes document and returns the response's data member.
// Errors reported by Linear are returned as *domain.GraphQLError; anything
// else is a transport failure.
func (t *GraphQLTransport) RawRequest(ctx context.Context, document string, variables map[string]interface{}) (json.RawMessage, error) {
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	start := time.Now()
	data, err := t.client.ExecRaw(ctx, document, variables)
	t.logger.Debug().
		Str("operation", operationName(document)).
		Dur("elapsed", time.Since(start)).
		Bool("ok", err == nil).
		Msg("graphql request")

	if err != nil {
		return nil, classify(err)
	}
	return json.RawMessage(data), nil
}

// classify separates errors Linear reported from client-side failures.
func classify(err error) error {
	var gqlErrs graphql.Errors
	if !errors.As(err, &gqlErrs) || len(gqlErrs) == 0 {
		return err
	}

	messages := make([]string, 0, len(gqlErrs))
	for _, e := range gqlErrs {
		if code, _ := e.Extensions["code"].(string); clientErrorCodes[code] {
			return err
		}
		msg := e.Message
		if friendly, _ := e.Extensions["userPresentableMessage"].(string); friendly != "" {
			msg = friendly
		}
		messages = append(messages, msg)
	}
	return &domain.GraphQLError{Messages: messages}
}

// operationName extracts the operation name from a document for logging.
func operationName(document string) string {
	fields := strings.Fields(document)
	for i, f := range fields {
		if (f == "query" || f == "mutation") && i+1 < len(fields) {
			name := fields[i+1]
			if idx := strings.IndexAny(name, "({"); idx >= 0 {
				name = name[:idx]
			}
			return name
		}
	}
	return "anonymous"
}

// errorStatusTransport lets GraphQL error bodies through on 400 responses.
// Linear answers validation and not-found errors with 400 and a regular
// GraphQL error body, which should surface as upstream errors.
type errorStatusTransport struct {
	base http.RoundTripper
}

// RoundTrip implements http.RoundTripper.
func (t *errorStatusTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err != nil || resp.StatusCode != http.StatusBadRequest {
		return resp, err
	}

	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, err
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))

	var envelope struct {
		Errors []json.RawMessage `json:"errors"`
	}
	if json.Unmarshal(body, &envelope) == nil && len(envelope.Errors) > 0 {
		resp.StatusCode = http.StatusOK
		resp.Status = "200 OK"
	}
	return resp, nil
}
