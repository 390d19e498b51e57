package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"linear-mcp-server/internal/domain"
)

// mockTransport is a testify mock of domain.Transport.
type mockTransport struct {
	mock.Mock
}

func (m *mockTransport) RawRequest(ctx context.Context, document string, variables map[string]interface{}) (json.RawMessage, error) {
	args := m.Called(ctx, document, variables)
	raw, _ := args.Get(0).(string)
	if raw == "" {
		return nil, args.Error(1)
	}
	return json.RawMessage(raw), args.Error(1)
}

func newTestClient() (*LinearClient, *mockTransport) {
	tr := &mockTransport{}
	return NewLinearClient(tr, zerolog.Nop()), tr
}

// TestLinearClient_CreateIssue tests decoding of the issueCreate payload.
func TestLinearClient_CreateIssue(t *testing.T) {
	client, tr := newTestClient()
	input := domain.IssueCreateInput{Title: "Fix login", Description: "Broken", TeamID: "team-1"}

	tr.On("RawRequest", mock.Anything, createIssueMutation, map[string]interface{}{"input": input}).
		Return(`{"issueCreate":{"success":true,"issue":{"id":"i1","identifier":"ENG-1","title":"Fix login","url":"https://linear.app/eng/issue/ENG-1"}}}`, nil).
		Once()

	payload, err := client.CreateIssue(context.Background(), input)
	require.NoError(t, err)
	assert.True(t, payload.Success)
	require.NotNil(t, payload.Issue)
	assert.Equal(t, "ENG-1", payload.Issue.Identifier)
	tr.AssertExpectations(t)
}

// TestLinearClient_ErrorTranslation tests that upstream errors become
// OperationErrors and everything else TransportErrors.
func TestLinearClient_ErrorTranslation(t *testing.T) {
	t.Run("graphql error", func(t *testing.T) {
		client, tr := newTestClient()
		tr.On("RawRequest", mock.Anything, deleteIssueMutation, mock.Anything).
			Return("", &domain.GraphQLError{Messages: []string{"Entity not found"}})

		_, err := client.DeleteIssue(context.Background(), "issue-1")
		require.ErrorIs(t, err, domain.ErrOperationFailed)

		var opErr *domain.OperationError
		require.ErrorAs(t, err, &opErr)
		assert.Equal(t, "delete issue", opErr.Operation)
		assert.Equal(t, "issue-1", opErr.Entity)
		assert.Contains(t, err.Error(), "Entity not found")
	})

	t.Run("network error", func(t *testing.T) {
		client, tr := newTestClient()
		tr.On("RawRequest", mock.Anything, getTeamsQuery, mock.Anything).
			Return("", errors.New("dial tcp: connection refused"))

		_, err := client.GetTeams(context.Background())
		require.ErrorIs(t, err, domain.ErrTransport)
		assert.Contains(t, err.Error(), "get teams")
		assert.Contains(t, err.Error(), "connection refused")
	})

	t.Run("undecodable data", func(t *testing.T) {
		client, tr := newTestClient()
		tr.On("RawRequest", mock.Anything, getTeamsQuery, mock.Anything).
			Return(`{"teams":"nope"}`, nil)

		_, err := client.GetTeams(context.Background())
		assert.ErrorIs(t, err, domain.ErrTransport)
	})
}

// TestLinearClient_SearchIssuesDefaults tests default paging variables.
func TestLinearClient_SearchIssuesDefaults(t *testing.T) {
	client, tr := newTestClient()
	tr.On("RawRequest", mock.Anything, searchIssuesQuery, map[string]interface{}{
		"first":   DefaultPageSize,
		"orderBy": DefaultOrderBy,
	}).Return(`{"issues":{"nodes":[],"pageInfo":{"hasNextPage":false}}}`, nil).Once()

	page, err := client.SearchIssues(context.Background(), domain.IssueSearch{})
	require.NoError(t, err)
	assert.Empty(t, page.Nodes)
	assert.False(t, page.PageInfo.HasNextPage)
	tr.AssertExpectations(t)
}

// TestLinearClient_SearchIssuesCursor tests cursor passthrough in both directions.
func TestLinearClient_SearchIssuesCursor(t *testing.T) {
	client, tr := newTestClient()
	filter := map[string]interface{}{"priority": map[string]interface{}{"eq": 1}}
	tr.On("RawRequest", mock.Anything, searchIssuesQuery, map[string]interface{}{
		"first":   10,
		"after":   "prev",
		"orderBy": "createdAt",
		"filter":  filter,
	}).Return(`{"issues":{"nodes":[{"id":"i1","identifier":"ENG-1","title":"A","url":"u"}],"pageInfo":{"hasNextPage":true,"endCursor":"abc"}}}`, nil).Once()

	page, err := client.SearchIssues(context.Background(), domain.IssueSearch{
		Filter: filter, First: 10, After: "prev", OrderBy: "createdAt",
	})
	require.NoError(t, err)
	require.Len(t, page.Nodes, 1)
	assert.True(t, page.PageInfo.HasNextPage)
	assert.Equal(t, "abc", page.PageInfo.EndCursor)
	tr.AssertNumberOfCalls(t, "RawRequest", 1)
}

// TestLinearClient_CreateProjectWithIssues tests the two-call composite.
func TestLinearClient_CreateProjectWithIssues(t *testing.T) {
	project := domain.ProjectCreateInput{Name: "Launch", TeamIDs: []string{"team-1"}}
	issues := []domain.IssueCreateInput{
		{Title: "A", Description: "a", TeamID: "team-1"},
		{Title: "B", Description: "b", TeamID: "team-1"},
	}

	t.Run("success", func(t *testing.T) {
		client, tr := newTestClient()
		tr.On("RawRequest", mock.Anything, createProjectMutation, mock.Anything).
			Return(`{"projectCreate":{"success":true,"project":{"id":"proj-1","name":"Launch","url":"https://linear.app/p/proj-1"}}}`, nil).Once()
		tr.On("RawRequest", mock.Anything, createBatchIssuesMutation, mock.MatchedBy(func(vars map[string]interface{}) bool {
			batch := vars["input"].(map[string]interface{})["issues"].([]domain.IssueCreateInput)
			for _, issue := range batch {
				if issue.ProjectID != "proj-1" {
					return false
				}
			}
			return len(batch) == 2
		})).Return(`{"issueBatchCreate":{"success":true,"issues":[{"id":"i1","identifier":"ENG-1","title":"A","url":"u1"},{"id":"i2","identifier":"ENG-2","title":"B","url":"u2"}]}}`, nil).Once()

		result, err := client.CreateProjectWithIssues(context.Background(), project, issues)
		require.NoError(t, err)
		assert.Equal(t, "proj-1", result.Project.ID)
		assert.Len(t, result.Issues, 2)
		assert.Empty(t, issues[0].ProjectID, "caller's inputs must not be modified")
		tr.AssertExpectations(t)
	})

	t.Run("project step fails", func(t *testing.T) {
		client, tr := newTestClient()
		tr.On("RawRequest", mock.Anything, createProjectMutation, mock.Anything).
			Return(`{"projectCreate":{"success":false,"project":null}}`, nil).Once()

		_, err := client.CreateProjectWithIssues(context.Background(), project, issues)
		require.ErrorIs(t, err, domain.ErrCompositeOperationFailed)

		var composite *domain.CompositeError
		require.ErrorAs(t, err, &composite)
		assert.Equal(t, "project", composite.Step)
		assert.Empty(t, composite.ParentID)
		tr.AssertNumberOfCalls(t, "RawRequest", 1)
		tr.AssertNotCalled(t, "RawRequest", mock.Anything, createBatchIssuesMutation, mock.Anything)
	})

	t.Run("issues step fails", func(t *testing.T) {
		client, tr := newTestClient()
		tr.On("RawRequest", mock.Anything, createProjectMutation, mock.Anything).
			Return(`{"projectCreate":{"success":true,"project":{"id":"proj-1","name":"Launch"}}}`, nil).Once()
		tr.On("RawRequest", mock.Anything, createBatchIssuesMutation, mock.Anything).
			Return("", errors.New("timeout")).Once()

		_, err := client.CreateProjectWithIssues(context.Background(), project, issues)

		var composite *domain.CompositeError
		require.ErrorAs(t, err, &composite)
		assert.Equal(t, "issues", composite.Step)
		assert.Equal(t, "proj-1", composite.ParentID)
		assert.ErrorIs(t, err, domain.ErrTransport)
	})

	t.Run("issues step returns no issues", func(t *testing.T) {
		client, tr := newTestClient()
		tr.On("RawRequest", mock.Anything, createProjectMutation, mock.Anything).
			Return(`{"projectCreate":{"success":true,"project":{"id":"proj-1","name":"Launch"}}}`, nil).Once()
		tr.On("RawRequest", mock.Anything, createBatchIssuesMutation, mock.Anything).
			Return(`{"issueBatchCreate":{"success":true}}`, nil).Once()

		result, err := client.CreateProjectWithIssues(context.Background(), project, issues)
		assert.Nil(t, result)

		var composite *domain.CompositeError
		require.ErrorAs(t, err, &composite)
		assert.Equal(t, "issues", composite.Step)
		assert.Equal(t, "proj-1", composite.ParentID)
		assert.ErrorIs(t, err, domain.ErrOperationFailed)
	})
}

// TestLinearClient_DeleteIssues tests aggregation of the aliased results.
func TestLinearClient_DeleteIssues(t *testing.T) {
	ids := []string{"i1", "i2"}
	vars := map[string]interface{}{"id0": "i1", "id1": "i2"}

	client, tr := newTestClient()
	tr.On("RawRequest", mock.Anything, deleteIssuesMutation(2), vars).
		Return(`{"d0":{"success":true},"d1":{"success":true}}`, nil).Once()
	payload, err := client.DeleteIssues(context.Background(), ids)
	require.NoError(t, err)
	assert.True(t, payload.Success)

	client, tr = newTestClient()
	tr.On("RawRequest", mock.Anything, deleteIssuesMutation(2), vars).
		Return(`{"d0":{"success":true},"d1":null}`, nil).Once()
	payload, err = client.DeleteIssues(context.Background(), ids)
	require.NoError(t, err)
	assert.False(t, payload.Success)
}

// TestLinearClient_UpdateIssues tests the bulk update variables.
func TestLinearClient_UpdateIssues(t *testing.T) {
	client, tr := newTestClient()
	update := domain.IssueUpdateInput{StateID: "state-done"}
	tr.On("RawRequest", mock.Anything, updateIssuesMutation, map[string]interface{}{
		"ids":   []string{"i1", "i2"},
		"input": update,
	}).Return(`{"issueBatchUpdate":{"success":true,"issues":[{"id":"i1"},{"id":"i2"}]}}`, nil).Once()

	payload, err := client.UpdateIssues(context.Background(), []string{"i1", "i2"}, update)
	require.NoError(t, err)
	assert.True(t, payload.Success)
	assert.Len(t, payload.Issues, 2)
}

// TestLinearClient_ProjectInitiativeLink tests link and unlink variables.
func TestLinearClient_ProjectInitiativeLink(t *testing.T) {
	client, tr := newTestClient()
	tr.On("RawRequest", mock.Anything, updateProjectInitiativeMutation, mock.MatchedBy(func(vars map[string]interface{}) bool {
		input := vars["input"].(map[string]interface{})
		return vars["id"] == "P1" && input["initiativeId"] == "I1"
	})).Return(`{"projectUpdate":{"success":true,"project":{"id":"P1","initiative":{"id":"I1","name":"Q3"}}}}`, nil).Once()

	payload, err := client.LinkProjectToInitiative(context.Background(), "P1", "I1")
	require.NoError(t, err)
	assert.Equal(t, "I1", payload.Project.Initiative.ID)

	tr.On("RawRequest", mock.Anything, updateProjectInitiativeMutation, mock.MatchedBy(func(vars map[string]interface{}) bool {
		input := vars["input"].(map[string]interface{})
		v, present := input["initiativeId"]
		return vars["id"] == "P1" && present && v == nil
	})).Return(`{"projectUpdate":{"success":true,"project":{"id":"P1","initiative":null}}}`, nil).Once()

	payload, err = client.UnlinkProjectFromInitiative(context.Background(), "P1")
	require.NoError(t, err)
	assert.Nil(t, payload.Project.Initiative)
	tr.AssertExpectations(t)
}

// TestLinearClient_GetMissingEntities tests that absent entities come back nil.
func TestLinearClient_GetMissingEntities(t *testing.T) {
	client, tr := newTestClient()
	tr.On("RawRequest", mock.Anything, getProjectQuery, mock.Anything).Return(`{"project":null}`, nil)
	tr.On("RawRequest", mock.Anything, getInitiativeQuery, mock.Anything).Return(`{"initiative":null}`, nil)

	project, err := client.GetProject(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, project)

	initiative, err := client.GetInitiative(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, initiative)
}

// TestLinearClient_ListInitiatives tests initiative paging variables.
func TestLinearClient_ListInitiatives(t *testing.T) {
	client, tr := newTestClient()
	tr.On("RawRequest", mock.Anything, listInitiativesQuery, map[string]interface{}{
		"first":           DefaultPageSize,
		"orderBy":         DefaultOrderBy,
		"includeArchived": true,
	}).Return(`{"initiatives":{"nodes":[{"id":"in1","name":"Q3","url":"u","startedAt":"2024-07-01"}],"pageInfo":{"hasNextPage":false}}}`, nil).Once()

	page, err := client.ListInitiatives(context.Background(), domain.InitiativeList{IncludeArchived: true})
	require.NoError(t, err)
	require.Len(t, page.Nodes, 1)
	assert.Equal(t, "In Progress", page.Nodes[0].Status())
}
