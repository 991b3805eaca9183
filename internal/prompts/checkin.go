package prompts

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// CheckinPrompt handles the weekly-checkin MCP prompt.
// It instructs the AI to review the week's trends against the current
// plan and revise it from the user's feedback.
type CheckinPrompt struct{}

// NewCheckinPrompt creates a CheckinPrompt.
func NewCheckinPrompt() *CheckinPrompt {
	return &CheckinPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *CheckinPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("weekly-checkin",
		mcp.WithPromptDescription(
			"Weekly check-in with your coach. "+
				"Reviews how the week went against the plan, surfaces trends "+
				"and warning signs, and revises next week accordingly.",
		),
	)
}

// Handle processes the weekly-checkin prompt request.
func (p *CheckinPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	return &mcp.GetPromptResult{
		Description: "Weekly check-in",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(
					"It's check-in time. Please review my training week.\n\n" +
						"Then:\n" +
						"1. Run `metrics_overview` and `metrics_trend` (volume_load) to see how the week compares\n" +
						"2. Run `metrics_insights` and flag anything that needs attention (stagnation, fatigue, gaps)\n" +
						"3. Pull the current plan from `mem_timeline` and tell me where I followed it and where I drifted\n" +
						"4. Ask me how the week actually felt\n" +
						"5. Fold my answer into `coach_revise` so next week's plan adjusts",
				),
			},
		},
	}, nil
}
