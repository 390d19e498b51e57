package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"linear-mcp-server/internal/domain"
)

const (
	// DefaultPageSize is the page size used when the caller supplies none.
	DefaultPageSize = 50

	// DefaultOrderBy orders list results by last update.
	DefaultOrderBy = "updatedAt"
)

// LinearClient is the query facade over a domain.Transport. Each method
// issues exactly one GraphQL request, except CreateProjectWithIssues which
// issues two. Results are returned as-is; checking success flags is left
// to the caller.
type LinearClient struct {
	transport domain.Transport
	logger    zerolog.Logger
}

// NewLinearClient creates a facade bound to one transport. It is cheap and
// meant to be built per call from the current transport.
func NewLinearClient(transport domain.Transport, logger zerolog.Logger) *LinearClient {
	return &LinearClient{
		transport: transport,
		logger:    logger,
	}
}

// execute runs document and decodes the data member into out. Errors
// reported by Linear become OperationErrors; everything else is wrapped as
// a TransportError.
func (c *LinearClient) execute(ctx context.Context, operation, entity, document string, variables map[string]interface{}, out interface{}) error {
	data, err := c.transport.RawRequest(ctx, document, variables)
	if err != nil {
		var gqlErr *domain.GraphQLError
		if errors.As(err, &gqlErr) {
			return &domain.OperationError{Operation: operation, Entity: entity, Reason: gqlErr.Error()}
		}
		c.logger.Warn().Err(err).Str("operation", operation).Msg("linear request failed")
		return &domain.TransportError{Operation: operation, Err: err}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return &domain.TransportError{Operation: operation, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return nil
}

// CreateIssue creates a single issue.
func (c *LinearClient) CreateIssue(ctx context.Context, input domain.IssueCreateInput) (*domain.IssuePayload, error) {
	var resp struct {
		IssueCreate domain.IssuePayload `json:"issueCreate"`
	}
	err := c.execute(ctx, "create issue", input.TeamID, createIssueMutation,
		map[string]interface{}{"input": input}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp.IssueCreate, nil
}

// CreateIssues creates several issues in one batch call.
func (c *LinearClient) CreateIssues(ctx context.Context, inputs []domain.IssueCreateInput) (*domain.IssueBatchPayload, error) {
	var resp struct {
		IssueBatchCreate domain.IssueBatchPayload `json:"issueBatchCreate"`
	}
	err := c.execute(ctx, "create issues", "", createBatchIssuesMutation,
		map[string]interface{}{"input": map[string]interface{}{"issues": inputs}}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp.IssueBatchCreate, nil
}

// UpdateIssue applies update to one issue.
func (c *LinearClient) UpdateIssue(ctx context.Context, id string, update domain.IssueUpdateInput) (*domain.IssuePayload, error) {
	var resp struct {
		IssueUpdate domain.IssuePayload `json:"issueUpdate"`
	}
	err := c.execute(ctx, "update issue", id, updateIssueMutation,
		map[string]interface{}{"id": id, "input": update}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp.IssueUpdate, nil
}

// UpdateIssues applies one shared update to every id. Linear reports a
// single success flag for the whole batch.
func (c *LinearClient) UpdateIssues(ctx context.Context, ids []string, update domain.IssueUpdateInput) (*domain.IssueBatchPayload, error) {
	var resp struct {
		IssueBatchUpdate domain.IssueBatchPayload `json:"issueBatchUpdate"`
	}
	err := c.execute(ctx, "update issues", fmt.Sprintf("%d issues", len(ids)), updateIssuesMutation,
		map[string]interface{}{"ids": ids, "input": update}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp.IssueBatchUpdate, nil
}

// DeleteIssue deletes one issue.
func (c *LinearClient) DeleteIssue(ctx context.Context, id string) (*domain.DeletePayload, error) {
	var resp struct {
		IssueDelete domain.DeletePayload `json:"issueDelete"`
	}
	err := c.execute(ctx, "delete issue", id, deleteIssueMutation,
		map[string]interface{}{"id": id}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp.IssueDelete, nil
}

// DeleteIssues deletes every id in one request. Success is true only if
// Linear reported success for all of them.
func (c *LinearClient) DeleteIssues(ctx context.Context, ids []string) (*domain.DeletePayload, error) {
	variables := make(map[string]interface{}, len(ids))
	for i, id := range ids {
		variables[fmt.Sprintf("id%d", i)] = id
	}

	var resp map[string]*domain.DeletePayload
	err := c.execute(ctx, "delete issues", fmt.Sprintf("%d issues", len(ids)), deleteIssuesMutation(len(ids)),
		variables, &resp)
	if err != nil {
		return nil, err
	}

	success := len(ids) > 0
	for i := range ids {
		p := resp[fmt.Sprintf("d%d", i)]
		if p == nil || !p.Success {
			success = false
			break
		}
	}
	return &domain.DeletePayload{Success: success}, nil
}

// SearchIssues returns one page of issues. It never follows the cursor.
func (c *LinearClient) SearchIssues(ctx context.Context, search domain.IssueSearch) (*domain.Connection[domain.Issue], error) {
	variables := map[string]interface{}{
		"first":   pageSize(search.First),
		"orderBy": orderBy(search.OrderBy),
	}
	if len(search.Filter) > 0 {
		variables["filter"] = search.Filter
	}
	if search.After != "" {
		variables["after"] = search.After
	}

	var resp struct {
		Issues domain.Connection[domain.Issue] `json:"issues"`
	}
	if err := c.execute(ctx, "search issues", "", searchIssuesQuery, variables, &resp); err != nil {
		return nil, err
	}
	return &resp.Issues, nil
}

// GetTeams returns every team with its workflow states and labels.
func (c *LinearClient) GetTeams(ctx context.Context) ([]domain.Team, error) {
	var resp struct {
		Teams domain.Connection[domain.Team] `json:"teams"`
	}
	if err := c.execute(ctx, "get teams", "", getTeamsQuery, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Teams.Nodes, nil
}

// GetViewer returns the authenticated user.
func (c *LinearClient) GetViewer(ctx context.Context) (*domain.User, error) {
	var resp struct {
		Viewer *domain.User `json:"viewer"`
	}
	if err := c.execute(ctx, "get user", "viewer", getViewerQuery, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Viewer, nil
}

// CreateProject creates a project.
func (c *LinearClient) CreateProject(ctx context.Context, input domain.ProjectCreateInput) (*domain.ProjectPayload, error) {
	var resp struct {
		ProjectCreate domain.ProjectPayload `json:"projectCreate"`
	}
	err := c.execute(ctx, "create project", input.Name, createProjectMutation,
		map[string]interface{}{"input": input}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp.ProjectCreate, nil
}

// CreateProjectWithIssues creates a project, then its issues in one batch.
// The two calls are not atomic: when the batch fails the project stays
// created and its id is reported in the CompositeError.
func (c *LinearClient) CreateProjectWithIssues(ctx context.Context, project domain.ProjectCreateInput, issues []domain.IssueCreateInput) (*domain.ProjectWithIssues, error) {
	const operation = "create project with issues"

	created, err := c.CreateProject(ctx, project)
	if err != nil {
		return nil, &domain.CompositeError{Operation: operation, Step: "project", Err: err}
	}
	if !created.Success || created.Project == nil {
		return nil, &domain.CompositeError{
			Operation: operation,
			Step:      "project",
			Err:       &domain.OperationError{Operation: "create project", Entity: project.Name, Reason: "Linear reported failure"},
		}
	}

	projectID := created.Project.ID
	withProject := make([]domain.IssueCreateInput, len(issues))
	for i, issue := range issues {
		issue.ProjectID = projectID
		withProject[i] = issue
	}

	batch, err := c.CreateIssues(ctx, withProject)
	if err != nil {
		return nil, &domain.CompositeError{Operation: operation, Step: "issues", ParentID: projectID, Err: err}
	}
	if !batch.Success || batch.Issues == nil {
		return nil, &domain.CompositeError{
			Operation: operation,
			Step:      "issues",
			ParentID:  projectID,
			Err:       &domain.OperationError{Operation: "create issues", Entity: projectID, Reason: "Linear reported failure"},
		}
	}

	c.logger.Info().
		Str("project_id", projectID).
		Int("issues", len(batch.Issues)).
		Msg("created project with issues")

	return &domain.ProjectWithIssues{Project: created.Project, Issues: batch.Issues}, nil
}

// GetProject returns a project, or nil if Linear returned none.
func (c *LinearClient) GetProject(ctx context.Context, id string) (*domain.Project, error) {
	var resp struct {
		Project *domain.Project `json:"project"`
	}
	err := c.execute(ctx, "get project", id, getProjectQuery,
		map[string]interface{}{"id": id}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Project, nil
}

// SearchProjects returns projects whose name equals name exactly.
func (c *LinearClient) SearchProjects(ctx context.Context, name string) ([]domain.Project, error) {
	filter := map[string]interface{}{
		"name": map[string]interface{}{"eq": name},
	}

	var resp struct {
		Projects domain.Connection[domain.Project] `json:"projects"`
	}
	err := c.execute(ctx, "search projects", name, searchProjectsQuery,
		map[string]interface{}{"filter": filter}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Projects.Nodes, nil
}

// CreateInitiative creates an initiative.
func (c *LinearClient) CreateInitiative(ctx context.Context, input domain.InitiativeCreateInput) (*domain.InitiativePayload, error) {
	var resp struct {
		InitiativeCreate domain.InitiativePayload `json:"initiativeCreate"`
	}
	err := c.execute(ctx, "create initiative", input.Name, createInitiativeMutation,
		map[string]interface{}{"input": input}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp.InitiativeCreate, nil
}

// UpdateInitiative applies a partial update to an initiative.
func (c *LinearClient) UpdateInitiative(ctx context.Context, id string, input domain.InitiativeUpdateInput) (*domain.InitiativePayload, error) {
	var resp struct {
		InitiativeUpdate domain.InitiativePayload `json:"initiativeUpdate"`
	}
	err := c.execute(ctx, "update initiative", id, updateInitiativeMutation,
		map[string]interface{}{"id": id, "input": input}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp.InitiativeUpdate, nil
}

// DeleteInitiative deletes an initiative.
func (c *LinearClient) DeleteInitiative(ctx context.Context, id string) (*domain.DeletePayload, error) {
	var resp struct {
		InitiativeDelete domain.DeletePayload `json:"initiativeDelete"`
	}
	err := c.execute(ctx, "delete initiative", id, deleteInitiativeMutation,
		map[string]interface{}{"id": id}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp.InitiativeDelete, nil
}

// ListInitiatives returns one page of initiatives.
func (c *LinearClient) ListInitiatives(ctx context.Context, list domain.InitiativeList) (*domain.Connection[domain.Initiative], error) {
	variables := map[string]interface{}{
		"first":           pageSize(list.First),
		"orderBy":         orderBy(list.OrderBy),
		"includeArchived": list.IncludeArchived,
	}
	if list.After != "" {
		variables["after"] = list.After
	}
	if len(list.Filter) > 0 {
		variables["filter"] = list.Filter
	}

	var resp struct {
		Initiatives domain.Connection[domain.Initiative] `json:"initiatives"`
	}
	if err := c.execute(ctx, "list initiatives", "", listInitiativesQuery, variables, &resp); err != nil {
		return nil, err
	}
	return &resp.Initiatives, nil
}

// GetInitiative returns an initiative, or nil if Linear returned none.
func (c *LinearClient) GetInitiative(ctx context.Context, id string) (*domain.Initiative, error) {
	var resp struct {
		Initiative *domain.Initiative `json:"initiative"`
	}
	err := c.execute(ctx, "get initiative", id, getInitiativeQuery,
		map[string]interface{}{"id": id}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Initiative, nil
}

// LinkProjectToInitiative sets the project's initiative.
func (c *LinearClient) LinkProjectToInitiative(ctx context.Context, projectID, initiativeID string) (*domain.ProjectPayload, error) {
	return c.setProjectInitiative(ctx, "link project to initiative", projectID, initiativeID)
}

// UnlinkProjectFromInitiative clears the project's initiative.
func (c *LinearClient) UnlinkProjectFromInitiative(ctx context.Context, projectID string) (*domain.ProjectPayload, error) {
	return c.setProjectInitiative(ctx, "unlink project from initiative", projectID, nil)
}

func (c *LinearClient) setProjectInitiative(ctx context.Context, operation, projectID string, initiativeID interface{}) (*domain.ProjectPayload, error) {
	var resp struct {
		ProjectUpdate domain.ProjectPayload `json:"projectUpdate"`
	}
	variables := map[string]interface{}{
		"id":    projectID,
		"input": map[string]interface{}{"initiativeId": initiativeID},
	}
	if err := c.execute(ctx, operation, projectID, updateProjectInitiativeMutation, variables, &resp); err != nil {
		return nil, err
	}
	return &resp.ProjectUpdate, nil
}

func pageSize(first int) int {
	if first <= 0 {
		return DefaultPageSize
	}
	return first
}

func orderBy(key string) string {
	if key == "" {
		return DefaultOrderBy
	}
	return key
}
