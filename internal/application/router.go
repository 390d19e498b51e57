package application

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"linear-mcp-server/internal/domain"
)

// AuthFamily is the handler family that drives authentication. Calls to it
// never trigger a token refresh.
const AuthFamily = "auth"

// route is one entry of the closed tool table.
type route struct {
	family string
	method domain.ToolMethod
}

// RequestRouter dispatches MCP tool requests to the handler registered for
// the exact tool id. The table is built once and never changes.
type RequestRouter struct {
	routes    map[string]route
	tools     []domain.ToolDefinition
	refresher Refresher
	mapper    domain.ResponseMapper
	logger    zerolog.Logger
}

// NewRequestRouter builds the tool table from handlers. Every listed tool
// must have a method and no tool id may be claimed twice.
func NewRequestRouter(refresher Refresher, mapper domain.ResponseMapper, logger zerolog.Logger, handlers ...domain.ToolHandler) (*RequestRouter, error) {
	r := &RequestRouter{
		routes:    make(map[string]route),
		refresher: refresher,
		mapper:    mapper,
		logger:    logger.With().Str("component", "router").Logger(),
	}

	for _, handler := range handlers {
		methods := handler.Methods()
		for _, def := range handler.ListTools() {
			method, ok := methods[def.Name]
			if !ok {
				return nil, fmt.Errorf("handler %s lists tool %s without a method", handler.ToolName(), def.Name)
			}
			if existing, dup := r.routes[def.Name]; dup {
				return nil, fmt.Errorf("tool %s registered by both %s and %s", def.Name, existing.family, handler.ToolName())
			}
			r.routes[def.Name] = route{family: handler.ToolName(), method: method}
			r.tools = append(r.tools, def)
		}
	}

	sort.Slice(r.tools, func(i, j int) bool { return r.tools[i].Name < r.tools[j].Name })
	return r, nil
}

// Resolve looks up a tool id. Matching is exact.
func (r *RequestRouter) Resolve(toolID string) (string, domain.ToolMethod, error) {
	rt, ok := r.routes[toolID]
	if !ok {
		return "", domain.ToolMethod{}, fmt.Errorf("%w: %s", domain.ErrUnknownTool, toolID)
	}
	return rt.family, rt.method, nil
}

// Route dispatches a tool request. Every failure, an unknown tool id
// included, becomes an IsError response.
func (r *RequestRouter) Route(ctx context.Context, req *domain.ToolRequest) (*domain.ToolResponse, error) {
	family, method, err := r.Resolve(req.Name)
	if err != nil {
		r.logger.Warn().Str("tool", req.Name).Msg("unknown tool requested")
		return r.mapper.MapErrorResponse(err), nil
	}

	start := time.Now()
	logger := r.logger.With().Str("tool", req.Name).Str("family", family).Logger()

	if family != AuthFamily && r.refresher != nil && r.refresher.NeedsRefresh() {
		logger.Debug().Msg("refreshing access token before dispatch")
		if err := r.refresher.Refresh(ctx); err != nil {
			logger.Error().Err(err).Msg("token refresh failed")
			return r.mapper.MapErrorResponse(err), nil
		}
	}

	args := req.Arguments
	if args == nil {
		args = map[string]interface{}{}
	}

	resp, err := method.Call(ctx, args)
	elapsed := time.Since(start)
	if err != nil {
		logger.Warn().Err(err).Dur("duration", elapsed).Msg("tool call failed")
		return r.mapper.MapErrorResponse(err), nil
	}

	logger.Info().Dur("duration", elapsed).Msg("tool call completed")
	return resp, nil
}

// ListAllTools returns every tool definition, sorted by name.
func (r *RequestRouter) ListAllTools() []domain.ToolDefinition {
	out := make([]domain.ToolDefinition, len(r.tools))
	copy(out, r.tools)
	return out
}
