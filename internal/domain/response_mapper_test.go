package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDefaultResponseMapper_MapToToolResponse tests success responses.
func TestDefaultResponseMapper_MapToToolResponse(t *testing.T) {
	mapper := NewResponseMapper()

	t.Run("summary and payload", func(t *testing.T) {
		payload := &Issue{ID: "issue-1", Identifier: "ENG-1", Title: "Fix login", URL: "https://linear.app/x/issue/ENG-1"}

		resp, err := mapper.MapToToolResponse("Created issue ENG-1", payload)
		require.NoError(t, err)
		require.Len(t, resp.Content, 2)
		assert.False(t, resp.IsError)

		assert.Equal(t, ContentText, resp.Content[0].Type)
		assert.Equal(t, "Created issue ENG-1", resp.Content[0].Text)

		assert.Equal(t, ContentJSON, resp.Content[1].Type)
		var decoded Issue
		require.NoError(t, json.Unmarshal([]byte(resp.Content[1].Text), &decoded))
		assert.Equal(t, *payload, decoded)
	})

	t.Run("nil payload", func(t *testing.T) {
		resp, err := mapper.MapToToolResponse("done", nil)
		require.NoError(t, err)
		require.Len(t, resp.Content, 1)
		assert.Equal(t, "done", resp.Text(ContentText))
		assert.Empty(t, resp.Text(ContentJSON))
	})

	t.Run("unmarshalable payload", func(t *testing.T) {
		_, err := mapper.MapToToolResponse("x", map[string]interface{}{"ch": make(chan int)})
		assert.Error(t, err)
	})
}

// TestDefaultResponseMapper_MapError tests error classification.
func TestDefaultResponseMapper_MapError(t *testing.T) {
	mapper := NewResponseMapper()

	tests := []struct {
		name     string
		err      error
		wantCode int
		wantKind string
	}{
		{"unknown tool", fmt.Errorf("%w: not_a_tool", ErrUnknownTool), MethodNotFound, "UnknownTool"},
		{"params", &ParamsError{Tool: "linear_create_issue", Fields: []string{"teamId"}}, InvalidParams, "InvalidParams"},
		{"config", fmt.Errorf("%w: missing apiKey", ErrInvalidConfig), ConfigurationError, "InvalidConfig"},
		{"not initialized", fmt.Errorf("%w: OAuth config not initialized", ErrNotInitialized), AuthenticationError, "NotInitialized"},
		{"not authenticated", ErrNotAuthenticated, AuthenticationError, "NotAuthenticated"},
		{"token exchange", &TokenExchangeError{Grant: "authorization_code", Status: "400 Bad Request", Body: "{}"}, AuthenticationError, "TokenExchangeFailed"},
		{"operation", &OperationError{Operation: "delete issue", Entity: "issue-1", Reason: "Entity not found"}, APIError, "OperationFailed"},
		{"composite", &CompositeError{Operation: "create project with issues", Step: "issues", ParentID: "p1", Err: &OperationError{Operation: "create issues"}}, APIError, "CompositeOperationFailed"},
		{"transport", &TransportError{Operation: "GetTeams", Err: errors.New("connection refused")}, NetworkError, "TransportError"},
		{"other", errors.New("boom"), InternalError, "Internal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mapped := mapper.MapError(tt.err)
			require.NotNil(t, mapped)
			assert.Equal(t, tt.wantCode, mapped.Code)
			assert.Equal(t, tt.err.Error(), mapped.Message)

			data, ok := mapped.Data.(map[string]interface{})
			require.True(t, ok)
			assert.Equal(t, tt.wantKind, data["kind"])
		})
	}
}

// TestDefaultResponseMapper_MapErrorContext tests the context carried in Data.
func TestDefaultResponseMapper_MapErrorContext(t *testing.T) {
	mapper := NewResponseMapper()

	mapped := mapper.MapError(&CompositeError{Operation: "create project with issues", Step: "issues", ParentID: "proj-1"})
	data := mapped.Data.(map[string]interface{})
	assert.Equal(t, "issues", data["step"])
	assert.Equal(t, "proj-1", data["parentId"])

	mapped = mapper.MapError(&ParamsError{Fields: []string{"title", "teamId"}})
	data = mapped.Data.(map[string]interface{})
	assert.Equal(t, []string{"title", "teamId"}, data["fields"])

	assert.Nil(t, mapper.MapError(nil))

	existing := &Error{Code: APIError, Message: "already mapped"}
	assert.Same(t, existing, mapper.MapError(existing))
}

// TestDefaultResponseMapper_MapErrorResponse tests IsError tool responses.
func TestDefaultResponseMapper_MapErrorResponse(t *testing.T) {
	mapper := NewResponseMapper()

	resp := mapper.MapErrorResponse(&OperationError{Operation: "delete issue", Entity: "issue-1", Reason: "Entity not found"})
	assert.True(t, resp.IsError)
	assert.Equal(t, "Error: failed to delete issue (issue-1): Entity not found", resp.Text(ContentText))

	var decoded Error
	require.NoError(t, json.Unmarshal([]byte(resp.Text(ContentJSON)), &decoded))
	assert.Equal(t, APIError, decoded.Code)
}
