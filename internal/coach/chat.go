package coach

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/patrickpassosb/biome/internal/llm"
	"github.com/patrickpassosb/biome/internal/pipeline"
	"github.com/patrickpassosb/biome/internal/plan"
)

const chatSystem = `You are 'Biome Team', a collective of elite AI training specialists:
1. Workout Specialist: deep knowledge of strength, hypertrophy, and biomechanics. Analyzes gym data, volume, and progressive overload.
2. Nutrition Guru: fueling for performance and recovery.
3. Sleep/Recovery Expert: circadian rhythms, HRV, and CNS recovery.

If the context shows no training history, the user is new: run a cold-start onboarding. Ask about their experience, goals (strength versus hypertrophy), and availability, and once you have enough, propose their first weekly plan.

Rules:
- Talk naturally and empathetically; be broad and helpful (sleep, nutrition, technique).
- Use the data provided. When the user asks about progress, cite the progression analysis.
- If the user needs a plan change, do NOT apply it yet: put the draft in 'proposed_plan', describe it in 'message', and ask for permission.
- Set 'agent_persona' to whichever specialist leads the response.`

// chatPayload is the structured contract a chat turn fills.
type chatPayload struct {
	Message      string           `json:"message"`
	AgentPersona string           `json:"agent_persona"`
	ProposedPlan *plan.WeeklyPlan `json:"proposed_plan,omitempty"`
}

// Converse runs one chat turn. A malformed payload or an invalid
// proposed plan degrades to a text-only reply; conversation never
// fails on validation.
func (p *Planner) Converse(ctx context.Context, turn pipeline.ChatTurn) (pipeline.ChatReply, error) {
	schema, err := plan.SchemaFor(&chatPayload{})
	if err != nil {
		return pipeline.ChatReply{}, err
	}
	prompt, err := p.chatPrompt(ctx, turn)
	if err != nil {
		return pipeline.ChatReply{}, err
	}

	resp, err := p.client.Complete(ctx, llm.Request{System: chatSystem, Prompt: prompt, Schema: schema})
	if err != nil {
		return pipeline.ChatReply{}, fmt.Errorf("coach: chat request: %w", err)
	}
	return p.decodeReply(resp.Text), nil
}

// chatPrompt lays out context, the active plan, and the conversation.
func (p *Planner) chatPrompt(ctx context.Context, turn pipeline.ChatTurn) (string, error) {
	prof, err := p.profiles.Load()
	if err != nil {
		return "", fmt.Errorf("coach: profile: %w", err)
	}
	snapshot, err := p.builder.Snapshot(ctx)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("Lifter profile:\n")
	b.WriteString(renderProfile(prof))
	b.WriteString("\n\nContext (User Data & Trends):\n")
	b.WriteString(snapshot.Render())
	b.WriteString("\n\nCurrent User Plan:\n")
	if turn.Current != nil {
		b.WriteString(mustJSON(turn.Current))
	} else {
		b.WriteString("none yet")
	}
	if len(turn.History) > 0 {
		b.WriteString("\n\nConversation History:\n")
		for _, m := range turn.History {
			b.WriteString(m.Role + ": " + m.Content + "\n")
		}
	}
	b.WriteString("\nCurrent Message:\n\"")
	b.WriteString(turn.Message)
	b.WriteString("\"")
	return b.String(), nil
}

// decodeReply turns the model's text into a reply, degrading in two
// steps: an unparseable payload becomes a plain text reply, and an
// invalid proposed plan is dropped while the message survives.
func (p *Planner) decodeReply(text string) pipeline.ChatReply {
	raw := plan.ExtractJSON(text)
	if len(raw) == 0 {
		return pipeline.ChatReply{Persona: p.cfg.Persona, Message: strings.TrimSpace(text)}
	}

	var payload chatPayload
	if err := json.Unmarshal(raw, &payload); err != nil || payload.Message == "" {
		return pipeline.ChatReply{Persona: p.cfg.Persona, Message: strings.TrimSpace(text)}
	}

	reply := pipeline.ChatReply{Persona: payload.AgentPersona, Message: payload.Message}
	if reply.Persona == "" {
		reply.Persona = p.cfg.Persona
	}
	if payload.ProposedPlan != nil {
		if err := plan.ValidateWeeklyPlan(*payload.ProposedPlan); err == nil {
			reply.ProposedPlan = payload.ProposedPlan
		}
	}
	return reply
}
