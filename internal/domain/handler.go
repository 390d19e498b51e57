package domain

import (
	"context"
)

// ToolFunc executes one tool with its raw arguments.
type ToolFunc func(ctx context.Context, args map[string]interface{}) (*ToolResponse, error)

// ToolMethod is one named operation of a feature handler.
type ToolMethod struct {
	Name string
	Call ToolFunc
}

// ToolHandler groups the tools of one entity family (issues, projects, ...).
type ToolHandler interface {
	// ToolName returns the family identifier used in logs.
	ToolName() string

	// ListTools returns the definitions of every tool this handler serves.
	ListTools() []ToolDefinition

	// Methods returns the fixed table from tool id to operation.
	Methods() map[string]ToolMethod
}
