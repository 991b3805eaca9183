// Package resources implements MCP resource handlers for the coaching
// assistant.
//
// Resources provide read-only data that the host can consume for context.
// They use URI-based addressing (biome://...) following MCP conventions.
package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/patrickpassosb/biome/internal/analytics"
	"github.com/patrickpassosb/biome/internal/memory"
)

// Handler manages the coaching resource endpoints.
type Handler struct {
	engine *analytics.Engine
	store  memory.Store
}

// NewHandler creates a resource Handler with its dependencies.
func NewHandler(engine *analytics.Engine, store memory.Store) *Handler {
	return &Handler{engine: engine, store: store}
}

// OverviewResource returns the MCP resource definition for the
// training overview KPIs.
func (h *Handler) OverviewResource() mcp.Resource {
	return mcp.NewResource(
		"biome://metrics/overview",
		"Training Overview",
		mcp.WithResourceDescription("Current-week training KPIs: latest session, frequency, volume load, weak points, lifetime sets"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleOverview returns the overview KPIs as JSON.
func (h *Handler) HandleOverview(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	overview, err := h.engine.OverviewMetrics(ctx)
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}

	data, err := json.MarshalIndent(overview, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling overview: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// PlanResource returns the MCP resource definition for the current
// weekly plan.
func (h *Handler) PlanResource() mcp.Resource {
	return mcp.NewResource(
		"biome://plan/current",
		"Current Weekly Plan",
		mcp.WithResourceDescription("The latest journaled plan snapshot, week tag and full plan included"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandlePlan returns the latest plan snapshot's content as JSON.
func (h *Handler) HandlePlan(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	rec, ok, err := h.store.Latest(ctx, memory.TypePlanSnapshot)
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}
	if !ok {
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "text/plain",
				Text:     "No plan journaled yet. Run coach_propose to create one.",
			},
		}, nil
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(rec.Content),
		},
	}, nil
}

// errorResource returns a resource with an error message.
func errorResource(uri, message string) []mcp.ResourceContents {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/plain",
			Text:     fmt.Sprintf("Error: %s", message),
		},
	}
}
