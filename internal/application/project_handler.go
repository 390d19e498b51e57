package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"linear-mcp-server/internal/domain"
)

// ProjectHandler implements ToolHandler for project operations.
type ProjectHandler struct {
	linearHandler
}

// NewProjectHandler creates a new ProjectHandler instance.
func NewProjectHandler(session TransportSource, mapper domain.ResponseMapper, logger zerolog.Logger) *ProjectHandler {
	return &ProjectHandler{linearHandler{
		session: session,
		mapper:  mapper,
		logger:  logger.With().Str("handler", "project").Logger(),
	}}
}

// Tool name constants for project operations
const (
	ToolCreateProjectWithIssues = "linear_create_project_with_issues"
	ToolGetProject              = "linear_get_project"
	ToolSearchProjects          = "linear_search_projects"
)

// ToolName returns the identifier for this handler.
func (h *ProjectHandler) ToolName() string {
	return "project"
}

// ListTools returns available tools for project operations.
func (h *ProjectHandler) ListTools() []domain.ToolDefinition {
	return []domain.ToolDefinition{
		{
			Name:        ToolCreateProjectWithIssues,
			Description: "Create a new project with associated issues. Note: Project requires teamIds (array) not teamId (single value).",
			InputSchema: objectSchema(map[string]interface{}{
				"project": objectProp("Project to create", map[string]interface{}{
					"name":        stringProp("Project name"),
					"description": stringProp("Project description (optional)"),
					"teamIds":     stringArrayProp("Array of team IDs this project belongs to (Required). Use linear_get_teams to get available team IDs."),
				}, "name", "teamIds"),
				"issues": map[string]interface{}{
					"type":        "array",
					"description": "List of issues to create with this project",
					"items": map[string]interface{}{
						"type":       "object",
						"properties": issueCreateProperties(),
						"required":   []string{"title", "description", "teamId"},
					},
				},
			}, "project", "issues"),
		},
		{
			Name:        ToolGetProject,
			Description: "Get project information",
			InputSchema: objectSchema(map[string]interface{}{
				"id": stringProp("Project identifier"),
			}, "id"),
		},
		{
			Name:        ToolSearchProjects,
			Description: "Search for projects by name",
			InputSchema: objectSchema(map[string]interface{}{
				"name": stringProp("Project name to search for (exact match)"),
			}, "name"),
		},
	}
}

// Methods returns the tool table of this handler.
func (h *ProjectHandler) Methods() map[string]domain.ToolMethod {
	return map[string]domain.ToolMethod{
		ToolCreateProjectWithIssues: {Name: "create project with issues", Call: h.handleCreateProjectWithIssues},
		ToolGetProject:              {Name: "get project", Call: h.handleGetProject},
		ToolSearchProjects:          {Name: "search projects", Call: h.handleSearchProjects},
	}
}

type createProjectArgs struct {
	Project domain.ProjectCreateInput `json:"project" validate:"required"`
	Issues  []domain.IssueCreateInput `json:"issues" validate:"required,min=1,dive"`
}

// handleCreateProjectWithIssues creates a project, then its issues. When
// the issues fail the project stays created and the error names it.
func (h *ProjectHandler) handleCreateProjectWithIssues(ctx context.Context, args map[string]interface{}) (*domain.ToolResponse, error) {
	client, err := h.client()
	if err != nil {
		return nil, err
	}

	var in createProjectArgs
	if err := decodeArgs(ToolCreateProjectWithIssues, args, &in); err != nil {
		return nil, err
	}

	result, err := client.CreateProjectWithIssues(ctx, in.Project, in.Issues)
	if err != nil {
		var composite *domain.CompositeError
		if errors.As(err, &composite) && composite.ParentID != "" {
			h.logger.Warn().
				Str("project_id", composite.ParentID).
				Msg("project created but issue batch failed")
		}
		return nil, err
	}

	summary := fmt.Sprintf("Successfully created project with issues\nProject: %s\nProject URL: %s\nIssues created: %d",
		result.Project.Name, result.Project.URL, len(result.Issues))
	if len(result.Issues) > 0 {
		summary += "\n" + issueLines(result.Issues)
	}
	return h.respond(summary, result)
}

// handleGetProject returns one project.
func (h *ProjectHandler) handleGetProject(ctx context.Context, args map[string]interface{}) (*domain.ToolResponse, error) {
	client, err := h.client()
	if err != nil {
		return nil, err
	}

	id, err := getStringParam(ToolGetProject, args, "id", true)
	if err != nil {
		return nil, err
	}

	project, err := client.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, &domain.OperationError{Operation: "get project", Entity: id, Reason: "project not found"}
	}

	summary := fmt.Sprintf("Project: %s\nURL: %s", project.Name, project.URL)
	if project.Description != "" {
		summary += "\nDescription: " + project.Description
	}
	return h.respond(summary, project)
}

// handleSearchProjects finds projects by exact name.
func (h *ProjectHandler) handleSearchProjects(ctx context.Context, args map[string]interface{}) (*domain.ToolResponse, error) {
	client, err := h.client()
	if err != nil {
		return nil, err
	}

	name, err := getStringParam(ToolSearchProjects, args, "name", true)
	if err != nil {
		return nil, err
	}

	projects, err := client.SearchProjects(ctx, name)
	if err != nil {
		return nil, err
	}
	if projects == nil {
		projects = []domain.Project{}
	}

	summary := fmt.Sprintf("Found %d projects", len(projects))
	if len(projects) > 0 {
		lines := make([]string, 0, len(projects))
		for _, p := range projects {
			lines = append(lines, fmt.Sprintf("- %s (%s): %s", p.Name, p.ID, p.URL))
		}
		summary += ":\n" + strings.Join(lines, "\n")
	}
	return h.respond(summary, projects)
}
