package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"linear-mcp-server/internal/domain"
)

// ToolGetTeams lists every team.
const ToolGetTeams = "linear_get_teams"

// TeamHandler implements ToolHandler for team lookups.
type TeamHandler struct {
	linearHandler
}

// NewTeamHandler creates a new TeamHandler instance.
func NewTeamHandler(session TransportSource, mapper domain.ResponseMapper, logger zerolog.Logger) *TeamHandler {
	return &TeamHandler{linearHandler{
		session: session,
		mapper:  mapper,
		logger:  logger.With().Str("handler", "team").Logger(),
	}}
}

// ToolName returns the identifier for this handler.
func (h *TeamHandler) ToolName() string {
	return "team"
}

// ListTools returns available tools for team operations.
func (h *TeamHandler) ListTools() []domain.ToolDefinition {
	return []domain.ToolDefinition{
		{
			Name:        ToolGetTeams,
			Description: "Get all teams with their states and labels",
			InputSchema: objectSchema(nil),
		},
	}
}

// Methods returns the tool table of this handler.
func (h *TeamHandler) Methods() map[string]domain.ToolMethod {
	return map[string]domain.ToolMethod{
		ToolGetTeams: {Name: "get teams", Call: h.handleGetTeams},
	}
}

func (h *TeamHandler) handleGetTeams(ctx context.Context, args map[string]interface{}) (*domain.ToolResponse, error) {
	client, err := h.client()
	if err != nil {
		return nil, err
	}

	teams, err := client.GetTeams(ctx)
	if err != nil {
		return nil, err
	}
	if teams == nil {
		teams = []domain.Team{}
	}

	lines := make([]string, 0, len(teams))
	for _, team := range teams {
		line := fmt.Sprintf("- %s (%s, id %s)", team.Name, team.Key, team.ID)
		if team.States != nil && len(team.States.Nodes) > 0 {
			names := make([]string, 0, len(team.States.Nodes))
			for _, s := range team.States.Nodes {
				names = append(names, s.Name)
			}
			line += "\n  States: " + strings.Join(names, ", ")
		}
		if team.Labels != nil && len(team.Labels.Nodes) > 0 {
			names := make([]string, 0, len(team.Labels.Nodes))
			for _, l := range team.Labels.Nodes {
				names = append(names, l.Name)
			}
			line += "\n  Labels: " + strings.Join(names, ", ")
		}
		lines = append(lines, line)
	}

	summary := fmt.Sprintf("Found %d teams", len(teams))
	if len(lines) > 0 {
		summary += ":\n" + strings.Join(lines, "\n")
	}
	return h.respond(summary, teams)
}
