package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"linear-mcp-server/internal/domain"
)

// InitiativeHandler implements ToolHandler for initiative operations.
type InitiativeHandler struct {
	linearHandler
}

// NewInitiativeHandler creates a new InitiativeHandler instance.
func NewInitiativeHandler(session TransportSource, mapper domain.ResponseMapper, logger zerolog.Logger) *InitiativeHandler {
	return &InitiativeHandler{linearHandler{
		session: session,
		mapper:  mapper,
		logger:  logger.With().Str("handler", "initiative").Logger(),
	}}
}

// Tool name constants for initiative operations
const (
	ToolCreateInitiative            = "linear_create_initiative"
	ToolUpdateInitiative            = "linear_update_initiative"
	ToolListInitiatives             = "linear_list_initiatives"
	ToolGetInitiative               = "linear_get_initiative"
	ToolDeleteInitiative            = "linear_delete_initiative"
	ToolLinkProjectToInitiative     = "linear_link_project_to_initiative"
	ToolUnlinkProjectFromInitiative = "linear_unlink_project_from_initiative"
)

// ToolName returns the identifier for this handler.
func (h *InitiativeHandler) ToolName() string {
	return "initiative"
}

// ListTools returns available tools for initiative operations.
func (h *InitiativeHandler) ListTools() []domain.ToolDefinition {
	return []domain.ToolDefinition{
		{
			Name:        ToolCreateInitiative,
			Description: "Create a new initiative in Linear",
			InputSchema: objectSchema(map[string]interface{}{
				"name":        stringProp("Initiative name"),
				"description": stringProp("Initiative description"),
				"color":       stringProp("Initiative color (hex format)"),
				"icon":        stringProp("Initiative icon"),
				"targetDate":  stringProp("Target completion date (YYYY-MM-DD format)"),
				"startedAt":   stringProp("Start date (ISO 8601 format)"),
				"ownerId":     stringProp("User ID of the initiative owner"),
				"sortOrder":   numberProp("Sort order within the organization"),
			}, "name"),
		},
		{
			Name:        ToolUpdateInitiative,
			Description: "Update an existing initiative",
			InputSchema: objectSchema(map[string]interface{}{
				"id":                             stringProp("Initiative ID to update"),
				"name":                           stringProp("New name"),
				"description":                    stringProp("New description"),
				"color":                          stringProp("New color (hex format)"),
				"icon":                           stringProp("New icon"),
				"targetDate":                     stringProp("New target date (YYYY-MM-DD format)"),
				"startedAt":                      stringProp("New start date (ISO 8601 format)"),
				"completedAt":                    stringProp("Completion date (ISO 8601 format)"),
				"ownerId":                        stringProp("New owner user ID"),
				"sortOrder":                      numberProp("New sort order"),
				"updateReminderFrequency":        numberProp("Reminder frequency"),
				"updateReminderFrequencyInWeeks": numberProp("Reminder frequency in weeks"),
				"updateRemindersDay":             intProp("Day of week for reminders (0-6)", 0, 6),
				"updateRemindersHour":            intProp("Hour of day for reminders (0-23)", 0, 23),
			}, "id"),
		},
		{
			Name:        ToolListInitiatives,
			Description: "List initiatives with optional filtering and pagination",
			InputSchema: objectSchema(map[string]interface{}{
				"first":           intProp("Number of initiatives to return (default: 50)", 1, 250),
				"after":           stringProp("Cursor for pagination"),
				"includeArchived": boolProp("Include archived initiatives"),
				"orderBy":         stringProp("Field to order by"),
				"filter":          objectProp("Filter criteria", map[string]interface{}{}),
			}),
		},
		{
			Name:        ToolGetInitiative,
			Description: "Get a single initiative by ID",
			InputSchema: objectSchema(map[string]interface{}{
				"id": stringProp("Initiative ID"),
			}, "id"),
		},
		{
			Name:        ToolDeleteInitiative,
			Description: "Delete an initiative",
			InputSchema: objectSchema(map[string]interface{}{
				"id": stringProp("Initiative ID to delete"),
			}, "id"),
		},
		{
			Name:        ToolLinkProjectToInitiative,
			Description: "Link a project to an initiative",
			InputSchema: objectSchema(map[string]interface{}{
				"projectId":    stringProp("Project ID to link"),
				"initiativeId": stringProp("Initiative ID to link to"),
			}, "projectId", "initiativeId"),
		},
		{
			Name:        ToolUnlinkProjectFromInitiative,
			Description: "Unlink a project from its initiative",
			InputSchema: objectSchema(map[string]interface{}{
				"projectId":    stringProp("Project ID to unlink"),
				"initiativeId": stringProp("Initiative ID to unlink from (optional, will unlink from any initiative)"),
			}, "projectId"),
		},
	}
}

// Methods returns the tool table of this handler.
func (h *InitiativeHandler) Methods() map[string]domain.ToolMethod {
	return map[string]domain.ToolMethod{
		ToolCreateInitiative:            {Name: "create initiative", Call: h.handleCreateInitiative},
		ToolUpdateInitiative:            {Name: "update initiative", Call: h.handleUpdateInitiative},
		ToolListInitiatives:             {Name: "list initiatives", Call: h.handleListInitiatives},
		ToolGetInitiative:               {Name: "get initiative", Call: h.handleGetInitiative},
		ToolDeleteInitiative:            {Name: "delete initiative", Call: h.handleDeleteInitiative},
		ToolLinkProjectToInitiative:     {Name: "link project to initiative", Call: h.handleLinkProject},
		ToolUnlinkProjectFromInitiative: {Name: "unlink project from initiative", Call: h.handleUnlinkProject},
	}
}

func (h *InitiativeHandler) handleCreateInitiative(ctx context.Context, args map[string]interface{}) (*domain.ToolResponse, error) {
	client, err := h.client()
	if err != nil {
		return nil, err
	}

	var input domain.InitiativeCreateInput
	if err := decodeArgs(ToolCreateInitiative, args, &input); err != nil {
		return nil, err
	}

	payload, err := client.CreateInitiative(ctx, input)
	if err != nil {
		return nil, err
	}
	if !payload.Success || payload.Initiative == nil {
		return nil, failed("create initiative", "initiative")
	}

	i := payload.Initiative
	summary := fmt.Sprintf("Successfully created initiative\nName: %s\nURL: %s\nDescription: %s\nTarget Date: %s\nOwner: %s\nColor: %s",
		i.Name, i.URL, orDefault(i.Description, "None"), orDefault(i.TargetDate, "Not set"),
		refName(i.Owner, "Not assigned"), orDefault(i.Color, "Default"))
	return h.respond(summary, i)
}

func (h *InitiativeHandler) handleUpdateInitiative(ctx context.Context, args map[string]interface{}) (*domain.ToolResponse, error) {
	client, err := h.client()
	if err != nil {
		return nil, err
	}

	id, err := getStringParam(ToolUpdateInitiative, args, "id", true)
	if err != nil {
		return nil, err
	}
	var input domain.InitiativeUpdateInput
	if err := decodeArgs(ToolUpdateInitiative, args, &input); err != nil {
		return nil, err
	}

	payload, err := client.UpdateInitiative(ctx, id, input)
	if err != nil {
		return nil, err
	}
	if !payload.Success || payload.Initiative == nil {
		return nil, failed("update initiative", id)
	}

	i := payload.Initiative
	return h.respond(fmt.Sprintf("Successfully updated initiative\nName: %s\nURL: %s", i.Name, i.URL), i)
}

type listInitiativesArgs struct {
	First           *int                   `json:"first" validate:"omitempty,min=1,max=250"`
	After           string                 `json:"after"`
	IncludeArchived bool                   `json:"includeArchived"`
	OrderBy         string                 `json:"orderBy" validate:"omitempty,oneof=createdAt updatedAt"`
	Filter          map[string]interface{} `json:"filter"`
}

// InitiativePage is one page of initiatives.
type InitiativePage struct {
	Initiatives []domain.Initiative `json:"initiatives"`
	HasNextPage bool                `json:"hasNextPage"`
	NextCursor  string              `json:"nextCursor,omitempty"`
}

func (h *InitiativeHandler) handleListInitiatives(ctx context.Context, args map[string]interface{}) (*domain.ToolResponse, error) {
	client, err := h.client()
	if err != nil {
		return nil, err
	}

	var in listInitiativesArgs
	if err := decodeArgs(ToolListInitiatives, args, &in); err != nil {
		return nil, err
	}

	conn, err := client.ListInitiatives(ctx, domain.InitiativeList{
		First:           deref(in.First),
		After:           in.After,
		IncludeArchived: in.IncludeArchived,
		OrderBy:         in.OrderBy,
		Filter:          in.Filter,
	})
	if err != nil {
		return nil, err
	}

	page := InitiativePage{Initiatives: conn.Nodes}
	if page.Initiatives == nil {
		page.Initiatives = []domain.Initiative{}
	}
	if conn.PageInfo != nil && conn.PageInfo.HasNextPage {
		page.HasNextPage = true
		page.NextCursor = conn.PageInfo.EndCursor
	}

	if len(page.Initiatives) == 0 {
		return h.respond("No initiatives found", page)
	}

	entries := make([]string, 0, len(page.Initiatives))
	for idx := range page.Initiatives {
		i := &page.Initiatives[idx]
		projects := 0
		if i.Projects != nil {
			projects = len(i.Projects.Nodes)
		}
		entries = append(entries, fmt.Sprintf("- %s\n  ID: %s\n  Status: %s\n  Owner: %s\n  Projects: %d\n  Target Date: %s\n  URL: %s",
			i.Name, i.ID, i.Status(), refName(i.Owner, "Not assigned"), projects, orDefault(i.TargetDate, "Not set"), i.URL))
	}

	summary := fmt.Sprintf("Found %d initiatives:\n\n%s", len(page.Initiatives), strings.Join(entries, "\n\n"))
	if page.HasNextPage {
		summary += fmt.Sprintf("\n\nMore initiatives available. Use cursor: %s", page.NextCursor)
	}
	return h.respond(summary, page)
}

func (h *InitiativeHandler) handleGetInitiative(ctx context.Context, args map[string]interface{}) (*domain.ToolResponse, error) {
	client, err := h.client()
	if err != nil {
		return nil, err
	}

	id, err := getStringParam(ToolGetInitiative, args, "id", true)
	if err != nil {
		return nil, err
	}

	i, err := client.GetInitiative(ctx, id)
	if err != nil {
		return nil, err
	}
	if i == nil {
		return nil, &domain.OperationError{Operation: "get initiative", Entity: id, Reason: "initiative not found"}
	}

	projectNames := "None"
	if i.Projects != nil && len(i.Projects.Nodes) > 0 {
		names := make([]string, 0, len(i.Projects.Nodes))
		for _, p := range i.Projects.Nodes {
			names = append(names, p.Name)
		}
		projectNames = strings.Join(names, ", ")
	}

	content := "None"
	if i.Content != "" {
		content = truncate(i.Content, 100)
	}

	summary := fmt.Sprintf("Initiative Details:\nName: %s\nID: %s\nURL: %s\nStatus: %s\nDescription: %s\nContent: %s\n"+
		"Owner: %s\nCreator: %s\nColor: %s\nIcon: %s\nStarted At: %s\nTarget Date: %s\nCompleted At: %s\nProjects: %s\nOrganization: %s",
		i.Name, i.ID, i.URL, i.Status(), orDefault(i.Description, "None"), content,
		refName(i.Owner, "Not assigned"), refName(i.Creator, "Unknown"), orDefault(i.Color, "Default"),
		orDefault(i.Icon, "None"), orDefault(i.StartedAt, "Not started"), orDefault(i.TargetDate, "Not set"),
		orDefault(i.CompletedAt, "Not completed"), projectNames, refName(i.Organization, "Unknown"))
	return h.respond(summary, i)
}

func (h *InitiativeHandler) handleDeleteInitiative(ctx context.Context, args map[string]interface{}) (*domain.ToolResponse, error) {
	client, err := h.client()
	if err != nil {
		return nil, err
	}

	id, err := getStringParam(ToolDeleteInitiative, args, "id", true)
	if err != nil {
		return nil, err
	}

	payload, err := client.DeleteInitiative(ctx, id)
	if err != nil {
		return nil, err
	}
	if !payload.Success {
		return nil, failed("delete initiative", id)
	}

	return h.respond(fmt.Sprintf("Successfully deleted initiative %s", id), payload)
}

type linkProjectArgs struct {
	ProjectID    string `json:"projectId" validate:"required"`
	InitiativeID string `json:"initiativeId" validate:"required"`
}

func (h *InitiativeHandler) handleLinkProject(ctx context.Context, args map[string]interface{}) (*domain.ToolResponse, error) {
	client, err := h.client()
	if err != nil {
		return nil, err
	}

	var in linkProjectArgs
	if err := decodeArgs(ToolLinkProjectToInitiative, args, &in); err != nil {
		return nil, err
	}

	payload, err := client.LinkProjectToInitiative(ctx, in.ProjectID, in.InitiativeID)
	if err != nil {
		return nil, err
	}
	if !payload.Success || payload.Project == nil || payload.Project.Initiative == nil {
		return nil, failed("link project to initiative", in.ProjectID)
	}

	project := payload.Project
	return h.respond(fmt.Sprintf("Successfully linked project %s to initiative %s", project.ID, project.Initiative.ID), project)
}

type unlinkProjectArgs struct {
	ProjectID    string `json:"projectId" validate:"required"`
	InitiativeID string `json:"initiativeId"`
}

func (h *InitiativeHandler) handleUnlinkProject(ctx context.Context, args map[string]interface{}) (*domain.ToolResponse, error) {
	client, err := h.client()
	if err != nil {
		return nil, err
	}

	var in unlinkProjectArgs
	if err := decodeArgs(ToolUnlinkProjectFromInitiative, args, &in); err != nil {
		return nil, err
	}

	payload, err := client.UnlinkProjectFromInitiative(ctx, in.ProjectID)
	if err != nil {
		return nil, err
	}
	if !payload.Success || payload.Project == nil {
		return nil, failed("unlink project from initiative", in.ProjectID)
	}

	return h.respond(fmt.Sprintf("Successfully unlinked project %s from its initiative", payload.Project.ID), payload.Project)
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func refName(ref *domain.Ref, fallback string) string {
	if ref == nil || ref.Name == "" {
		return fallback
	}
	return ref.Name
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
