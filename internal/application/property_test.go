package application

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/mock"

	"linear-mcp-server/internal/domain"
)

// TestRouterProperties verifies that the catalog is closed: only listed
// tool ids resolve.
func TestRouterProperties(t *testing.T) {
	session, _ := newTestSession(t)
	router := newTestRouter(t, session)

	known := make(map[string]bool)
	for _, id := range allToolIDs() {
		known[id] = true
	}

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	// Property: an id outside the catalog is rejected by Resolve and Route
	properties.Property("unknown ids are rejected", prop.ForAll(
		func(id string) bool {
			if known[id] {
				return true
			}
			_, _, err := router.Resolve(id)
			if !errors.Is(err, domain.ErrUnknownTool) {
				return false
			}
			resp, err := router.Route(context.Background(), &domain.ToolRequest{Name: id})
			if err != nil || resp == nil || !resp.IsError {
				return false
			}
			var mapped struct {
				Code int `json:"code"`
				Data struct {
					Kind string `json:"kind"`
				} `json:"data"`
			}
			if json.Unmarshal([]byte(resp.Text(domain.ContentJSON)), &mapped) != nil {
				return false
			}
			return mapped.Code == domain.MethodNotFound && mapped.Data.Kind == "UnknownTool"
		},
		gen.AnyString(),
	))

	// Property: every catalog id resolves to a method
	properties.Property("catalog ids resolve", prop.ForAll(
		func(idx int) bool {
			ids := allToolIDs()
			_, method, err := router.Resolve(ids[idx%len(ids)])
			return err == nil && method.Call != nil
		},
		gen.IntRange(0, 1000),
	))

	properties.TestingRun(t)
}

// TestArgumentBoundsProperties verifies numeric argument bounds are enforced
// before any upstream call.
func TestArgumentBoundsProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	// Property: search_issues accepts first in [1, 250] and forwards it,
	// and rejects anything else without calling Linear
	properties.Property("search page size bounds", prop.ForAll(
		func(first int) bool {
			session, tr := newTestSession(t)
			router := newTestRouter(t, session)
			tr.On("RawRequest", doc("issues("), mock.Anything).
				Return(`{"issues":{"pageInfo":{"hasNextPage":false},"nodes":[]}}`, nil)

			resp, err := router.Route(context.Background(), &domain.ToolRequest{
				Name:      ToolSearchIssues,
				Arguments: map[string]interface{}{"first": float64(first)},
			})
			if err != nil {
				return false
			}

			if first >= 1 && first <= 250 {
				if resp.IsError || len(tr.Calls) != 1 {
					return false
				}
				return tr.Calls[0].Arguments.Get(1).(map[string]interface{})["first"] == first
			}
			return resp.IsError && len(tr.Calls) == 0
		},
		gen.IntRange(-100, 400),
	))

	// Property: create_issue rejects priorities outside 0..4 without calling Linear
	properties.Property("issue priority bounds", prop.ForAll(
		func(priority int) bool {
			session, tr := newTestSession(t)
			router := newTestRouter(t, session)
			tr.On("RawRequest", doc("issueCreate"), mock.Anything).
				Return(`{"issueCreate":{"success":true,"issue":{"id":"i1","identifier":"ENG-1","title":"t","url":"u"}}}`, nil)

			resp, err := router.Route(context.Background(), &domain.ToolRequest{
				Name: ToolCreateIssue,
				Arguments: map[string]interface{}{
					"title":       "t",
					"description": "d",
					"teamId":      "team-1",
					"priority":    float64(priority),
				},
			})
			if err != nil {
				return false
			}

			if priority >= 0 && priority <= 4 {
				return !resp.IsError && len(tr.Calls) == 1
			}
			return resp.IsError && len(tr.Calls) == 0
		},
		gen.IntRange(-10, 10),
	))

	properties.TestingRun(t)
}
