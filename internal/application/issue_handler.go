package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"linear-mcp-server/internal/domain"
)

// IssueHandler implements ToolHandler for issue operations.
type IssueHandler struct {
	linearHandler
}

// NewIssueHandler creates a new IssueHandler instance.
func NewIssueHandler(session TransportSource, mapper domain.ResponseMapper, logger zerolog.Logger) *IssueHandler {
	return &IssueHandler{linearHandler{
		session: session,
		mapper:  mapper,
		logger:  logger.With().Str("handler", "issue").Logger(),
	}}
}

// Tool name constants for issue operations
const (
	ToolCreateIssue      = "linear_create_issue"
	ToolCreateIssues     = "linear_create_issues"
	ToolUpdateIssue      = "linear_update_issue"
	ToolBulkUpdateIssues = "linear_bulk_update_issues"
	ToolSearchIssues     = "linear_search_issues"
	ToolDeleteIssue      = "linear_delete_issue"
	ToolDeleteIssues     = "linear_delete_issues"
)

// ToolName returns the identifier for this handler.
func (h *IssueHandler) ToolName() string {
	return "issue"
}

func issueCreateProperties() map[string]interface{} {
	return map[string]interface{}{
		"title":          stringProp("Issue title"),
		"description":    stringProp("Issue description"),
		"teamId":         stringProp("Team ID"),
		"assigneeId":     stringProp("Assignee user ID"),
		"priority":       intProp("Issue priority (0-4)", 0, 4),
		"estimate":       numberProp("Issue estimate points (typically 1, 2, 3, 5, 8, etc.)"),
		"projectId":      stringProp("Project ID"),
		"stateId":        stringProp("Workflow state ID"),
		"labelIds":       stringArrayProp("Label IDs to apply"),
		"createAsUser":   stringProp("Name to display for the created issue"),
		"displayIconUrl": stringProp("URL of the avatar to display"),
	}
}

func issueUpdateProperties() map[string]interface{} {
	return map[string]interface{}{
		"title":       stringProp("New title"),
		"description": stringProp("New description"),
		"stateId":     stringProp("New state ID"),
		"assigneeId":  stringProp("New assignee ID"),
		"projectId":   stringProp("New project ID"),
		"priority":    intProp("New priority (0-4)", 0, 4),
		"estimate":    numberProp("Issue estimate points (typically 1, 2, 3, 5, 8, etc.)"),
		"labelIds":    stringArrayProp("Label IDs to set"),
	}
}

// ListTools returns available tools for issue operations.
func (h *IssueHandler) ListTools() []domain.ToolDefinition {
	return []domain.ToolDefinition{
		{
			Name:        ToolCreateIssue,
			Description: "Create a new issue in Linear",
			InputSchema: objectSchema(issueCreateProperties(), "title", "description", "teamId"),
		},
		{
			Name:        ToolCreateIssues,
			Description: "Create multiple issues at once",
			InputSchema: objectSchema(map[string]interface{}{
				"issues": map[string]interface{}{
					"type":        "array",
					"description": "List of issues to create",
					"items": map[string]interface{}{
						"type":       "object",
						"properties": issueCreateProperties(),
						"required":   []string{"title", "description", "teamId"},
					},
				},
			}, "issues"),
		},
		{
			Name:        ToolUpdateIssue,
			Description: "Update a single issue",
			InputSchema: objectSchema(map[string]interface{}{
				"id":     stringProp("Issue ID"),
				"update": objectProp("Fields to update", issueUpdateProperties()),
			}, "id", "update"),
		},
		{
			Name:        ToolBulkUpdateIssues,
			Description: "Update multiple issues at once",
			InputSchema: objectSchema(map[string]interface{}{
				"issueIds": stringArrayProp("List of issue IDs to update"),
				"update":   objectProp("Fields to update on every issue", issueUpdateProperties()),
			}, "issueIds", "update"),
		},
		{
			Name:        ToolSearchIssues,
			Description: "Search for issues with filtering and pagination",
			InputSchema: objectSchema(map[string]interface{}{
				"query":       stringProp("Search query string"),
				"teamIds":     stringArrayProp("Filter by team IDs"),
				"assigneeIds": stringArrayProp("Filter by assignee IDs"),
				"states":      stringArrayProp("Filter by state names"),
				"priority":    intProp("Filter by priority (0-4)", 0, 4),
				"first":       intProp("Number of issues to return (default: 50)", 1, 250),
				"after":       stringProp("Cursor for pagination"),
				"orderBy":     stringProp("Field to order by (default: updatedAt)"),
			}),
		},
		{
			Name:        ToolDeleteIssue,
			Description: "Delete an issue",
			InputSchema: objectSchema(map[string]interface{}{
				"id": stringProp("Issue identifier (e.g., ENG-123)"),
			}, "id"),
		},
		{
			Name:        ToolDeleteIssues,
			Description: "Delete multiple issues",
			InputSchema: objectSchema(map[string]interface{}{
				"ids": stringArrayProp("List of issue identifiers to delete"),
			}, "ids"),
		},
	}
}

// Methods returns the tool table of this handler.
func (h *IssueHandler) Methods() map[string]domain.ToolMethod {
	return map[string]domain.ToolMethod{
		ToolCreateIssue:      {Name: "create issue", Call: h.handleCreateIssue},
		ToolCreateIssues:     {Name: "create issues", Call: h.handleCreateIssues},
		ToolUpdateIssue:      {Name: "update issue", Call: h.handleUpdateIssue},
		ToolBulkUpdateIssues: {Name: "bulk update issues", Call: h.handleBulkUpdateIssues},
		ToolSearchIssues:     {Name: "search issues", Call: h.handleSearchIssues},
		ToolDeleteIssue:      {Name: "delete issue", Call: h.handleDeleteIssue},
		ToolDeleteIssues:     {Name: "delete issues", Call: h.handleDeleteIssues},
	}
}

// handleCreateIssue creates one issue.
func (h *IssueHandler) handleCreateIssue(ctx context.Context, args map[string]interface{}) (*domain.ToolResponse, error) {
	client, err := h.client()
	if err != nil {
		return nil, err
	}

	var input domain.IssueCreateInput
	if err := decodeArgs(ToolCreateIssue, args, &input); err != nil {
		return nil, err
	}

	payload, err := client.CreateIssue(ctx, input)
	if err != nil {
		return nil, err
	}
	if !payload.Success || payload.Issue == nil {
		return nil, failed("create issue", "issue")
	}

	issue := payload.Issue
	return h.respond(fmt.Sprintf("Successfully created issue %s: %s\nURL: %s", issue.Identifier, issue.Title, issue.URL), issue)
}

type createIssuesArgs struct {
	Issues []domain.IssueCreateInput `json:"issues" validate:"required,min=1,dive"`
}

// handleCreateIssues creates several issues in one batch.
func (h *IssueHandler) handleCreateIssues(ctx context.Context, args map[string]interface{}) (*domain.ToolResponse, error) {
	client, err := h.client()
	if err != nil {
		return nil, err
	}

	var in createIssuesArgs
	if err := decodeArgs(ToolCreateIssues, args, &in); err != nil {
		return nil, err
	}

	payload, err := client.CreateIssues(ctx, in.Issues)
	if err != nil {
		return nil, err
	}
	if !payload.Success || payload.Issues == nil {
		return nil, failed("create issues", "issue batch")
	}

	return h.respond(fmt.Sprintf("Successfully created %d issues:\n%s", len(payload.Issues), issueLines(payload.Issues)), payload.Issues)
}

type updateIssueArgs struct {
	ID     string                   `json:"id" validate:"required"`
	Update *domain.IssueUpdateInput `json:"update" validate:"required"`
}

// handleUpdateIssue updates one issue.
func (h *IssueHandler) handleUpdateIssue(ctx context.Context, args map[string]interface{}) (*domain.ToolResponse, error) {
	client, err := h.client()
	if err != nil {
		return nil, err
	}

	var in updateIssueArgs
	if err := decodeArgs(ToolUpdateIssue, args, &in); err != nil {
		return nil, err
	}
	if in.Update.Empty() {
		return nil, emptyUpdate(ToolUpdateIssue)
	}

	payload, err := client.UpdateIssue(ctx, in.ID, *in.Update)
	if err != nil {
		return nil, err
	}
	if !payload.Success || payload.Issue == nil {
		return nil, failed("update issue", "issue")
	}

	issue := payload.Issue
	return h.respond(fmt.Sprintf("Successfully updated issue %s: %s\nURL: %s", issue.Identifier, issue.Title, issue.URL), issue)
}

type bulkUpdateArgs struct {
	IssueIDs []string                 `json:"issueIds" validate:"required,min=1,dive,required"`
	Update   *domain.IssueUpdateInput `json:"update" validate:"required"`
}

// handleBulkUpdateIssues applies one update to several issues.
func (h *IssueHandler) handleBulkUpdateIssues(ctx context.Context, args map[string]interface{}) (*domain.ToolResponse, error) {
	client, err := h.client()
	if err != nil {
		return nil, err
	}

	var in bulkUpdateArgs
	if err := decodeArgs(ToolBulkUpdateIssues, args, &in); err != nil {
		return nil, err
	}
	if in.Update.Empty() {
		return nil, emptyUpdate(ToolBulkUpdateIssues)
	}

	payload, err := client.UpdateIssues(ctx, in.IssueIDs, *in.Update)
	if err != nil {
		return nil, err
	}
	if !payload.Success || payload.Issues == nil {
		return nil, failed("update issues", "issue batch")
	}

	return h.respond(fmt.Sprintf("Successfully updated %d issues", len(payload.Issues)), payload.Issues)
}

type searchIssuesArgs struct {
	Query       string   `json:"query"`
	TeamIDs     []string `json:"teamIds"`
	AssigneeIDs []string `json:"assigneeIds"`
	States      []string `json:"states"`
	Priority    *int     `json:"priority" validate:"omitempty,min=0,max=4"`
	First       *int     `json:"first" validate:"omitempty,min=1,max=250"`
	After       string   `json:"after"`
	OrderBy     string   `json:"orderBy" validate:"omitempty,oneof=createdAt updatedAt"`
}

// filter builds a Linear IssueFilter from the supplied criteria.
func (a searchIssuesArgs) filter() map[string]interface{} {
	filter := map[string]interface{}{}
	if a.Query != "" {
		filter["or"] = []interface{}{
			map[string]interface{}{"title": map[string]interface{}{"containsIgnoreCase": a.Query}},
			map[string]interface{}{"description": map[string]interface{}{"containsIgnoreCase": a.Query}},
		}
	}
	if len(a.TeamIDs) > 0 {
		filter["team"] = map[string]interface{}{"id": map[string]interface{}{"in": a.TeamIDs}}
	}
	if len(a.AssigneeIDs) > 0 {
		filter["assignee"] = map[string]interface{}{"id": map[string]interface{}{"in": a.AssigneeIDs}}
	}
	if len(a.States) > 0 {
		filter["state"] = map[string]interface{}{"name": map[string]interface{}{"in": a.States}}
	}
	if a.Priority != nil {
		filter["priority"] = map[string]interface{}{"eq": *a.Priority}
	}
	return filter
}

// IssuePage is one page of search results.
type IssuePage struct {
	Issues      []domain.Issue `json:"issues"`
	HasNextPage bool           `json:"hasNextPage"`
	NextCursor  string         `json:"nextCursor,omitempty"`
}

// handleSearchIssues returns one page of matching issues and, when more
// exist, the cursor for the next page.
func (h *IssueHandler) handleSearchIssues(ctx context.Context, args map[string]interface{}) (*domain.ToolResponse, error) {
	client, err := h.client()
	if err != nil {
		return nil, err
	}

	var in searchIssuesArgs
	if err := decodeArgs(ToolSearchIssues, args, &in); err != nil {
		return nil, err
	}

	conn, err := client.SearchIssues(ctx, domain.IssueSearch{
		Filter:  in.filter(),
		First:   deref(in.First),
		After:   in.After,
		OrderBy: in.OrderBy,
	})
	if err != nil {
		return nil, err
	}

	page := IssuePage{Issues: conn.Nodes}
	if page.Issues == nil {
		page.Issues = []domain.Issue{}
	}
	if conn.PageInfo != nil && conn.PageInfo.HasNextPage {
		page.HasNextPage = true
		page.NextCursor = conn.PageInfo.EndCursor
	}

	summary := fmt.Sprintf("Found %d issues", len(page.Issues))
	if len(page.Issues) > 0 {
		summary += ":\n" + issueLines(page.Issues)
	}
	if page.HasNextPage {
		summary += fmt.Sprintf("\nMore results available. Next cursor: %s", page.NextCursor)
	}
	return h.respond(summary, page)
}

// handleDeleteIssue deletes one issue.
func (h *IssueHandler) handleDeleteIssue(ctx context.Context, args map[string]interface{}) (*domain.ToolResponse, error) {
	client, err := h.client()
	if err != nil {
		return nil, err
	}

	id, err := getStringParam(ToolDeleteIssue, args, "id", true)
	if err != nil {
		return nil, err
	}

	payload, err := client.DeleteIssue(ctx, id)
	if err != nil {
		return nil, err
	}
	if !payload.Success {
		return nil, failed("delete issue", id)
	}

	return h.respond(fmt.Sprintf("Successfully deleted issue %s", id), payload)
}

type deleteIssuesArgs struct {
	IDs []string `json:"ids" validate:"required,min=1,dive,required"`
}

// handleDeleteIssues deletes several issues in one request.
func (h *IssueHandler) handleDeleteIssues(ctx context.Context, args map[string]interface{}) (*domain.ToolResponse, error) {
	client, err := h.client()
	if err != nil {
		return nil, err
	}

	var in deleteIssuesArgs
	if err := decodeArgs(ToolDeleteIssues, args, &in); err != nil {
		return nil, err
	}

	payload, err := client.DeleteIssues(ctx, in.IDs)
	if err != nil {
		return nil, err
	}
	if !payload.Success {
		return nil, failed("delete issues", strings.Join(in.IDs, ", "))
	}

	return h.respond(fmt.Sprintf("Successfully deleted %d issues: %s", len(in.IDs), strings.Join(in.IDs, ", ")), payload)
}

func deref(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

func emptyUpdate(tool string) error {
	return &domain.ParamsError{Tool: tool, Fields: []string{"update"}, Reason: "update must change at least one field"}
}

// issueLines renders one line per issue from the payload fields.
func issueLines(issues []domain.Issue) string {
	lines := make([]string, 0, len(issues))
	for _, issue := range issues {
		lines = append(lines, fmt.Sprintf("- %s: %s (%s)", issue.Identifier, issue.Title, issue.URL))
	}
	return strings.Join(lines, "\n")
}
