package application

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"linear-mcp-server/internal/domain"
)

// mockTransport is a testify mock of domain.Transport. Expectations match
// documents by a fragment of their text.
type mockTransport struct {
	mock.Mock
}

func (m *mockTransport) RawRequest(ctx context.Context, document string, variables map[string]interface{}) (json.RawMessage, error) {
	args := m.Called(document, variables)
	raw, _ := args.Get(0).(string)
	if raw == "" {
		return nil, args.Error(1)
	}
	return json.RawMessage(raw), args.Error(1)
}

// doc matches a GraphQL document containing fragment.
func doc(fragment string) interface{} {
	return mock.MatchedBy(func(document string) bool {
		return strings.Contains(document, fragment)
	})
}

// lastVariables returns the variables of the most recent upstream call.
func lastVariables(t *testing.T, tr *mockTransport) map[string]interface{} {
	t.Helper()
	require.NotEmpty(t, tr.Calls)
	vars, _ := tr.Calls[len(tr.Calls)-1].Arguments.Get(1).(map[string]interface{})
	return vars
}

// newTestSession returns a session authenticated with a static key whose
// transport is a mock.
func newTestSession(t *testing.T) (*domain.CredentialManager, *mockTransport) {
	t.Helper()
	tr := &mockTransport{}
	session := domain.NewCredentialManager(func(*http.Client) domain.Transport { return tr })
	require.NoError(t, session.Initialize(domain.StaticKey("lin_api_test")))
	return session, tr
}

// newTestRouter wires every handler over session the way main does.
func newTestRouter(t *testing.T, session *domain.CredentialManager) *RequestRouter {
	t.Helper()
	mapper := domain.NewResponseMapper()
	logger := zerolog.Nop()

	router, err := NewRequestRouter(session, mapper, logger,
		NewAuthHandler(session, mapper, logger),
		NewIssueHandler(session, mapper, logger),
		NewProjectHandler(session, mapper, logger),
		NewTeamHandler(session, mapper, logger),
		NewUserHandler(session, mapper, logger),
		NewInitiativeHandler(session, mapper, logger),
	)
	require.NoError(t, err)
	return router
}

// call routes one tool request and fails the test on a routing error.
func call(t *testing.T, router *RequestRouter, tool string, args map[string]interface{}) *domain.ToolResponse {
	t.Helper()
	resp, err := router.Route(context.Background(), &domain.ToolRequest{Name: tool, Arguments: args})
	require.NoError(t, err)
	require.NotNil(t, resp)
	return resp
}

// mappedError decodes the structured block of an error response.
func mappedError(t *testing.T, resp *domain.ToolResponse) (int, map[string]interface{}) {
	t.Helper()
	require.True(t, resp.IsError, "expected error response, got %q", resp.Text(domain.ContentText))

	var e struct {
		Code int                    `json:"code"`
		Data map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(resp.Text(domain.ContentJSON)), &e))
	return e.Code, e.Data
}

// errorKind returns the taxonomy kind of an error response.
func errorKind(t *testing.T, resp *domain.ToolResponse) string {
	t.Helper()
	_, data := mappedError(t, resp)
	kind, _ := data["kind"].(string)
	return kind
}

// payload decodes the JSON block of a success response into out.
func payload(t *testing.T, resp *domain.ToolResponse, out interface{}) {
	t.Helper()
	require.False(t, resp.IsError, "unexpected error: %s", resp.Text(domain.ContentText))
	require.NoError(t, json.Unmarshal([]byte(resp.Text(domain.ContentJSON)), out))
}
