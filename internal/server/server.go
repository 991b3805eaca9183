// Package server wires all MCP components and creates the server instance.
//
// This is the composition root (DIP): it creates concrete implementations
// and injects them into the tools/prompts/resources that depend on abstractions.
// No business logic lives here, only wiring.
package server

import (
	"fmt"
	"log"
	"path/filepath"

	"github.com/mark3labs/mcp-go/server"
	"github.com/patrickpassosb/biome/internal/analytics"
	"github.com/patrickpassosb/biome/internal/coach"
	"github.com/patrickpassosb/biome/internal/coachtools"
	"github.com/patrickpassosb/biome/internal/config"
	"github.com/patrickpassosb/biome/internal/llm"
	"github.com/patrickpassosb/biome/internal/memory"
	"github.com/patrickpassosb/biome/internal/pipeline"
	"github.com/patrickpassosb/biome/internal/profile"
	"github.com/patrickpassosb/biome/internal/prompts"
	"github.com/patrickpassosb/biome/internal/resources"
)

// Version is set at build time via ldflags.
var Version = "dev"

// instrumentedClient is what the server needs from a model backend:
// the completion surface plus usage counters for coach_stats.
type instrumentedClient interface {
	llm.Client
	llm.Instrumented
}

// New creates and configures the MCP server with all tools, prompts,
// and resources registered. This is the single place where all
// dependencies are resolved.
//
// The returned cleanup function closes the database connections and
// must be called on shutdown (typically via defer). It is always
// non-nil and safe to call even if initialization failed.
func New(cfg config.Config) (*server.MCPServer, func(), error) {
	// --- Training history ---

	db, err := analytics.Open(cfg.ResolvedAnalyticsPath())
	if err != nil {
		return nil, noop, fmt.Errorf("opening training database: %w", err)
	}
	cleanup := func() {
		if err := db.Close(); err != nil {
			log.Printf("WARNING: training database close: %v", err)
		}
	}

	// --- Journal ---
	//
	// The journal is an independent subsystem: if its database fails
	// to open, coaching continues on a volatile in-memory store. The
	// session still works; its records just do not survive a restart.

	var store memory.Store
	sqlStore, memErr := memory.Open(memory.Config{Path: cfg.ResolvedMemoryPath()})
	if memErr != nil {
		log.Printf("WARNING: journal degraded to in-memory storage: %v", memErr)
		store = memory.NewMemStore()
	} else {
		store = sqlStore
		closeDB := cleanup
		cleanup = func() {
			if err := sqlStore.Close(); err != nil {
				log.Printf("WARNING: journal close: %v", err)
			}
			closeDB()
		}
	}

	// --- Profile and weak-point tuning ---

	profiles := profile.NewStore(filepath.Join(cfg.DataDir, "profile.json"))
	weakCfg := analytics.WeakPointConfig{
		BaselineWeeks:   cfg.WeakPoint.BaselineWeeks,
		VolumeDropRatio: cfg.WeakPoint.VolumeDropRatio,
		MinWeeks:        cfg.WeakPoint.MinWeeks,
		FocusAreas:      cfg.WeakPoint.FocusAreas,
	}
	if prof, err := profiles.Load(); err != nil {
		log.Printf("WARNING: profile unreadable, focus areas from config only: %v", err)
	} else {
		weakCfg.FocusAreas = mergeFocusAreas(weakCfg.FocusAreas, prof.FocusAreas)
	}

	engine := analytics.NewEngine(db, weakCfg)

	// --- Model backend ---

	var client instrumentedClient
	var backend string
	if key := cfg.APIKey(); key != "" {
		client = llm.NewHTTPClient(llm.HTTPConfig{
			BaseURL:        cfg.LLM.BaseURL,
			APIKey:         key,
			Model:          cfg.LLM.Model,
			FallbackModels: cfg.LLM.FallbackModels,
			Timeout:        cfg.LLMTimeout(),
		})
		backend = cfg.LLM.Model
		log.Printf("model backend: %s", backend)
	} else {
		client = llm.NewRuleClient()
		backend = llm.RuleModel
		log.Printf("no API key in $%s; coaching runs on the offline rule-based backend", cfg.LLM.APIKeyEnv)
	}

	// --- Coaching pipeline ---

	coachCfg := coach.Config{
		PlanAttempts:  cfg.Pipeline.PlanAttempts,
		RepairRetries: cfg.Pipeline.AnalystRepairRetries,
		MaxFindings:   cfg.Pipeline.MaxFindings,
		Persona:       cfg.Persona,
	}
	builder := coach.NewContextBuilder(engine, db)
	orch := pipeline.New(
		coach.NewAnalyst(engine, builder, client, coachCfg),
		coach.NewPlanner(builder, profiles, client, coachCfg),
		coach.NewCurator(store),
		pipeline.Config{StageTimeout: cfg.StageTimeout()},
	)

	// --- Create the MCP server ---

	s := server.NewMCPServer(
		"biome",
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	// --- Register coaching tools ---

	proposeTool := coachtools.NewProposeTool(orch)
	s.AddTool(proposeTool.Definition(), proposeTool.Handle)

	reviseTool := coachtools.NewReviseTool(orch, store)
	s.AddTool(reviseTool.Definition(), reviseTool.Handle)

	chatTool := coachtools.NewChatTool(orch, store)
	s.AddTool(chatTool.Definition(), chatTool.Handle)

	// --- Register metrics tools ---

	overviewTool := coachtools.NewOverviewTool(engine)
	s.AddTool(overviewTool.Definition(), overviewTool.Handle)

	trendTool := coachtools.NewTrendTool(engine)
	s.AddTool(trendTool.Definition(), trendTool.Handle)

	insightsTool := coachtools.NewInsightsTool(engine)
	s.AddTool(insightsTool.Definition(), insightsTool.Handle)

	statsForTool := coachtools.NewExerciseStatsTool(engine)
	s.AddTool(statsForTool.Definition(), statsForTool.Handle)

	// --- Register journal tools ---

	timelineTool := coachtools.NewTimelineTool(store)
	s.AddTool(timelineTool.Definition(), timelineTool.Handle)

	searchTool := coachtools.NewSearchTool(store)
	s.AddTool(searchTool.Definition(), searchTool.Handle)

	statsTool := coachtools.NewStatsTool(client, store, backend)
	s.AddTool(statsTool.Definition(), statsTool.Handle)

	// --- Register prompts ---

	sessionPrompt := prompts.NewSessionPrompt()
	s.AddPrompt(sessionPrompt.Definition(), sessionPrompt.Handle)

	checkinPrompt := prompts.NewCheckinPrompt()
	s.AddPrompt(checkinPrompt.Definition(), checkinPrompt.Handle)

	// --- Register resources ---

	resourceHandler := resources.NewHandler(engine, store)
	s.AddResource(resourceHandler.OverviewResource(), resourceHandler.HandleOverview)
	s.AddResource(resourceHandler.PlanResource(), resourceHandler.HandlePlan)

	return s, cleanup, nil
}

// noop is a no-op cleanup function used as the default before any
// resource has been opened.
func noop() {}

// mergeFocusAreas unions the configured focus areas with the profile's,
// keeping order and dropping duplicates.
func mergeFocusAreas(fromConfig, fromProfile []string) []string {
	seen := make(map[string]bool, len(fromConfig))
	merged := make([]string, 0, len(fromConfig)+len(fromProfile))
	for _, area := range fromConfig {
		if area == "" || seen[area] {
			continue
		}
		seen[area] = true
		merged = append(merged, area)
	}
	for _, area := range fromProfile {
		if area == "" || seen[area] {
			continue
		}
		seen[area] = true
		merged = append(merged, area)
	}
	return merged
}

// serverInstructions returns the system instructions that tell the AI
// how to coach with Biome effectively.
func serverInstructions() string {
	return `You have access to Biome, a personal training coach MCP server.

Biome reads the user's logged training history (sets, reps, weights, RPE),
computes trends and weak points from it, and plans the next training week.
Every plan is validated before it reaches the user and journaled so later
sessions can pick up where this one left off.

## WHEN TO ACTIVATE Biome

Proactively use Biome when the user:
- Asks for a training plan, program, or "what should I do this week"
- Asks how their training is going, or about progress on a lift
- Gives feedback on their current plan ("Monday was too heavy")
- Asks training questions where their real data matters

You do NOT need Biome for generic exercise trivia with no connection to
the user's own training.

## CRITICAL: How the coach works

The coaching tools are backed by the user's REAL logged data. Never invent
numbers, exercises, or history — if you want to know, call a metrics tool.
Plans come from coach_propose/coach_revise; do not hand-write training
plans around the pipeline, because hand-written plans are never validated
or journaled.

## Coaching workflow

1. coach_propose — runs the full cycle: analyzes the history, drafts a
   weekly plan addressing the findings, validates it, journals it.
   Start here for a fresh week.
2. coach_revise(feedback, plan_json?) — adjusts the current plan from the
   user's words. Without plan_json it picks up the latest journaled plan.
   Use this for tweaks; do not regenerate a whole plan because one day
   needs changing.
3. coach_chat(message, history_json?, plan_json?) — conversational
   coaching (training, nutrition, recovery personas). The reply may
   include a proposed plan; if the user accepts it, it is already
   journaled and coach_revise can iterate on it.

A plan proposal shows its findings: surface them to the user, they explain
WHY the week looks the way it does.

## Metrics tools

- metrics_overview — where training stands right now. Cheap; call it
  before coaching so you speak from current data.
- metrics_trend(metric, exercise?, start?, end?) — series or scalar for
  volume_load, machine_volume, average_rpe, max_weight, weekly_frequency.
- metrics_insights(exercise?) — the deterministic detections (stagnation,
  progress, fatigue, data problems) before any model curation.
- exercise_stats(exercise) — lifetime numbers and the all-time best effort
  for one exercise.

## The journal

Every coaching cycle is journaled: plan snapshots, finding snapshots, user
feedback. The journal is the coach's memory across sessions.

- mem_timeline(limit?, detail_level?) — recent records, newest first.
- mem_search(query?, type?, limit?, detail_level?) — search content and
  tags. Weeks are tagged week:YYYY-MM-DD, cycles flow:propose/revise/chat.
  With no query it returns the most recent records.
- At the start of a session, check mem_timeline to see the current plan
  and recent feedback before proposing anything new.

### Response size (detail_level)

mem_timeline and mem_search take detail_level:
- summary: types and tags only — minimal tokens, good for orientation
- standard (default): 200-character content snippets
- full: complete record content
Start with summary or standard; use full only when you need the whole
record. When a series or list is capped, a "📊 Showing X of Y" footer
tells you to narrow the range or raise the limit.

## Stats and offline mode

coach_stats shows the model backend, its call counters, and recent journal
activity. Without an API key Biome runs a deterministic offline coach: it
still analyzes real data, proposes valid plans, and journals them, but
replies are canned. If the user expects conversational coaching, tell them
to configure an API key.

## Important rules

- Plans always go through coach_propose / coach_revise — never bypass
  validation by writing plans yourself
- Ground every claim about the user's training in a metrics tool result
- Surface findings and warnings to the user instead of silently ignoring
  them — a volume drop or stagnation flag is coaching material
- When a response footer warns the plan was not journaled, tell the user:
  the plan is still valid, but it will not be remembered next session`
}
