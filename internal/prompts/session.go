// Package prompts implements MCP prompt handlers for the coaching
// assistant.
//
// MCP prompts are user-triggered workflows (like slash commands) that
// instruct the AI to execute a specific sequence. Unlike tools (which
// the AI calls), prompts are initiated by the user.
package prompts

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// SessionPrompt handles the coach-session MCP prompt.
// It guides the AI through a full coaching conversation: snapshot the
// data, propose a plan, then iterate on it with the user.
type SessionPrompt struct{}

// NewSessionPrompt creates a SessionPrompt.
func NewSessionPrompt() *SessionPrompt {
	return &SessionPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *SessionPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("coach-session",
		mcp.WithPromptDescription(
			"Start a coaching session. "+
				"The coach reviews your logged training, proposes a weekly plan, "+
				"and iterates on it with you until it fits.",
		),
		mcp.WithArgument("focus",
			mcp.ArgumentDescription("Something specific to work on this week, e.g. 'bench press' or 'more volume'"),
		),
	)
}

// Handle processes the coach-session prompt request.
func (p *SessionPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	focus := ""
	if args := req.Params.Arguments; args != nil {
		focus = args["focus"]
	}

	focusLine := ""
	if focus != "" {
		focusLine = fmt.Sprintf("\n\nThis week I specifically want to focus on: %s. Make sure the plan reflects that.", focus)
	}

	return &mcp.GetPromptResult{
		Description: "Coaching session",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(
					"I want a coaching session based on my logged training.\n\n" +
						"Please:\n" +
						"1. Run `metrics_overview` and summarize where my training stands\n" +
						"2. Run `coach_propose` to draft a weekly plan from my data\n" +
						"3. Walk me through the plan day by day and point out how it addresses the findings\n" +
						"4. Ask me what I'd change; apply my feedback with `coach_revise` until it fits\n" +
						"5. For anything conversational (nutrition, recovery, technique questions), use `coach_chat`" +
						focusLine,
				),
			},
		},
	}, nil
}
