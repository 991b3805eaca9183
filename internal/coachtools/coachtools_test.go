package coachtools

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/patrickpassosb/biome/internal/analytics"
	"github.com/patrickpassosb/biome/internal/coach"
	"github.com/patrickpassosb/biome/internal/llm"
	"github.com/patrickpassosb/biome/internal/memory"
	"github.com/patrickpassosb/biome/internal/pipeline"
	"github.com/patrickpassosb/biome/internal/profile"
)

// ─── Test helpers ────────────────────────────────────────────────────────────

// env wires the full coaching stack over in-memory stores and the
// offline rule client.
type env struct {
	orch   *pipeline.Orchestrator
	engine *analytics.Engine
	db     *analytics.DB
	store  memory.Store
	client *llm.RuleClient
}

func newTestEnv(t *testing.T) *env {
	t.Helper()
	db, err := analytics.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	engine := analytics.NewEngine(db, analytics.DefaultWeakPointConfig())
	store := memory.NewMemStore()
	profiles := profile.NewStore(filepath.Join(t.TempDir(), "profile.json"))
	client := llm.NewRuleClient()
	builder := coach.NewContextBuilder(engine, db)
	cfg := coach.DefaultConfig()

	orch := pipeline.New(
		coach.NewAnalyst(engine, builder, client, cfg),
		coach.NewPlanner(builder, profiles, client, cfg),
		coach.NewCurator(store),
		pipeline.DefaultConfig(),
	)
	return &env{orch: orch, engine: engine, db: db, store: store, client: client}
}

// seedBench logs two bench sets on three dates, flat at 100 kg so the
// stagnation detection has something to find.
func seedBench(t *testing.T, db *analytics.DB) {
	t.Helper()
	var sets []analytics.Set
	for _, date := range []string{"2024-01-01", "2024-01-03", "2024-01-05"} {
		for n := 1; n <= 2; n++ {
			sets = append(sets, analytics.Set{
				Date:      date,
				Workout:   "Upper Body",
				Exercise:  "Bench Press",
				SetNumber: n,
				Reps:      analytics.Int(5),
				WeightKg:  analytics.Float(100),
				RPE:       analytics.Float(8),
			})
		}
	}
	if _, err := db.InsertSets(context.Background(), sets); err != nil {
		t.Fatalf("seed: %v", err)
	}
}

// makeReq builds a mcp.CallToolRequest with the given arguments.
func makeReq(args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

// resultText extracts the text content from a tool result.
func resultText(r *mcp.CallToolResult) string {
	if r == nil || len(r.Content) == 0 {
		return ""
	}
	for _, c := range r.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

// mustNotError asserts the Handle call succeeded at both levels.
func mustNotError(t *testing.T, r *mcp.CallToolResult, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected Go error: %v", err)
	}
	if r.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(r))
	}
}

// mustBeToolError asserts the Handle call returns a tool error (not a Go error).
func mustBeToolError(t *testing.T, r *mcp.CallToolResult, err error, wantSubstr string) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected Go error: %v", err)
	}
	if !r.IsError {
		t.Fatalf("expected tool error containing %q, got success: %s", wantSubstr, resultText(r))
	}
	if wantSubstr != "" && !strings.Contains(resultText(r), wantSubstr) {
		t.Errorf("error text %q does not contain %q", resultText(r), wantSubstr)
	}
}

func appendRecord(t *testing.T, store memory.Store, recordType, content string, tags ...string) {
	t.Helper()
	_, err := store.Append(context.Background(), memory.AppendParams{
		Type:    recordType,
		Content: json.RawMessage(content),
		Tags:    tags,
	})
	if err != nil {
		t.Fatalf("append %s: %v", recordType, err)
	}
}

// ─── ProposeTool Tests ───────────────────────────────────────────────────────

func TestProposeTool_Definition(t *testing.T) {
	e := newTestEnv(t)
	def := NewProposeTool(e.orch).Definition()

	if def.Name != "coach_propose" {
		t.Errorf("tool name = %q, want coach_propose", def.Name)
	}
	if len(def.InputSchema.Required) != 0 {
		t.Errorf("required = %v, want none", def.InputSchema.Required)
	}
}

func TestProposeTool_ProposesAndJournals(t *testing.T) {
	e := newTestEnv(t)
	tool := NewProposeTool(e.orch)

	result, err := tool.Handle(context.Background(), makeReq(nil))
	mustNotError(t, result, err)

	text := resultText(result)
	if !strings.Contains(text, "# Weekly Plan Proposed") {
		t.Errorf("missing heading: %s", text)
	}
	if !strings.Contains(text, "General Strength (Mock)") {
		t.Errorf("missing the offline plan goal: %s", text)
	}
	if !strings.Contains(text, "## Plan JSON") || !strings.Contains(text, `"week_start_date"`) {
		t.Errorf("missing the machine-readable plan: %s", text)
	}
	if !strings.Contains(text, "Journaled as record ") {
		t.Errorf("missing the journal footer: %s", text)
	}

	timeline, err := e.store.Timeline(context.Background(), 10)
	if err != nil {
		t.Fatalf("Timeline: %v", err)
	}
	if len(timeline) != 1 || timeline[0].Type != memory.TypePlanSnapshot {
		t.Fatalf("journal = %+v, want one plan snapshot", timeline)
	}
}

// ─── ReviseTool Tests ────────────────────────────────────────────────────────

func TestReviseTool_RequiresFeedback(t *testing.T) {
	e := newTestEnv(t)
	tool := NewReviseTool(e.orch, e.store)

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{}))
	mustBeToolError(t, result, err, "'feedback' is required")
}

func TestReviseTool_NoPlanYet(t *testing.T) {
	e := newTestEnv(t)
	tool := NewReviseTool(e.orch, e.store)

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"feedback": "Less volume please.",
	}))
	mustBeToolError(t, result, err, "no plan to revise")
}

func TestReviseTool_FallsBackToLatestJournaledPlan(t *testing.T) {
	e := newTestEnv(t)
	propose := NewProposeTool(e.orch)
	result, err := propose.Handle(context.Background(), makeReq(nil))
	mustNotError(t, result, err)

	tool := NewReviseTool(e.orch, e.store)
	result, err = tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"feedback": "Monday felt too heavy.",
	}))
	mustNotError(t, result, err)

	if !strings.Contains(resultText(result), "# Plan Revised") {
		t.Errorf("missing heading: %s", resultText(result))
	}

	timeline, _ := e.store.Timeline(context.Background(), 10)
	if len(timeline) != 3 {
		t.Fatalf("journal = %d records, want propose snapshot + feedback + revised snapshot", len(timeline))
	}
	if timeline[0].Type != memory.TypePlanSnapshot || timeline[1].Type != memory.TypeUserFeedback {
		t.Errorf("record order = %s, %s", timeline[0].Type, timeline[1].Type)
	}
}

func TestReviseTool_RejectsMalformedPlanJSON(t *testing.T) {
	e := newTestEnv(t)
	tool := NewReviseTool(e.orch, e.store)

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"feedback":  "More posterior chain.",
		"plan_json": `{"week_start_date": "soon", "goal": "", "workouts": []}`,
	}))
	mustBeToolError(t, result, err, "not a valid weekly plan")
	if !strings.Contains(resultText(result), "at least one workout") {
		t.Errorf("error should list the issues: %s", resultText(result))
	}
}

func TestReviseTool_ExplicitPlanJSON(t *testing.T) {
	e := newTestEnv(t)
	tool := NewReviseTool(e.orch, e.store)

	planJSON := `{"week_start_date": "2024-01-08", "goal": "General Strength", "workouts": [
		{"day": "Monday", "focus": "Upper Body", "exercises": [
			{"name": "Bench Press", "target_sets": 3, "target_reps": "8-12"}
		]}
	]}`
	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"feedback":  "Add a second pressing day.",
		"plan_json": planJSON,
	}))
	mustNotError(t, result, err)

	timeline, _ := e.store.Timeline(context.Background(), 10)
	if len(timeline) != 2 {
		t.Fatalf("journal = %d records, want feedback + revised snapshot", len(timeline))
	}
}

// ─── ChatTool Tests ──────────────────────────────────────────────────────────

func TestChatTool_RequiresMessage(t *testing.T) {
	e := newTestEnv(t)
	tool := NewChatTool(e.orch, e.store)

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{}))
	mustBeToolError(t, result, err, "'message' is required")
}

func TestChatTool_RepliesOffline(t *testing.T) {
	e := newTestEnv(t)
	tool := NewChatTool(e.orch, e.store)

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"message": "How is my bench going?",
	}))
	mustNotError(t, result, err)

	text := resultText(result)
	if !strings.Contains(text, "**Mock Coach**:") {
		t.Errorf("missing the persona prefix: %s", text)
	}
	if strings.Contains(text, "## Proposed Plan") {
		t.Errorf("offline chat should not propose a plan: %s", text)
	}

	timeline, _ := e.store.Timeline(context.Background(), 10)
	if len(timeline) != 0 {
		t.Errorf("journal = %d records, want none for a text-only turn", len(timeline))
	}
}

func TestChatTool_RejectsMalformedHistory(t *testing.T) {
	e := newTestEnv(t)
	tool := NewChatTool(e.orch, e.store)

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"message":      "hi",
		"history_json": "not json",
	}))
	mustBeToolError(t, result, err, "history_json must be")
}

func TestChatTool_AcceptsHistoryAndPlan(t *testing.T) {
	e := newTestEnv(t)
	tool := NewChatTool(e.orch, e.store)

	planJSON := `{"week_start_date": "2024-01-08", "goal": "General Strength", "workouts": [
		{"day": "Monday", "focus": "Upper Body", "exercises": [
			{"name": "Bench Press", "target_sets": 3, "target_reps": "8-12"}
		]}
	]}`
	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"message":      "Is Monday enough?",
		"history_json": `[{"role": "user", "content": "I started the plan."}]`,
		"plan_json":    planJSON,
	}))
	mustNotError(t, result, err)
}

// ─── OverviewTool Tests ──────────────────────────────────────────────────────

func TestOverviewTool_EmptyHistory(t *testing.T) {
	e := newTestEnv(t)
	tool := NewOverviewTool(e.engine)

	result, err := tool.Handle(context.Background(), makeReq(nil))
	mustNotError(t, result, err)
	if !strings.Contains(resultText(result), "No training history yet") {
		t.Errorf("got: %s", resultText(result))
	}
}

func TestOverviewTool_SeededHistory(t *testing.T) {
	e := newTestEnv(t)
	seedBench(t, e.db)
	tool := NewOverviewTool(e.engine)

	result, err := tool.Handle(context.Background(), makeReq(nil))
	mustNotError(t, result, err)

	text := resultText(result)
	if !strings.Contains(text, "**Latest session**: 2024-01-05") {
		t.Errorf("missing latest session: %s", text)
	}
	if !strings.Contains(text, "**Total sets logged**: 6") {
		t.Errorf("missing lifetime sets: %s", text)
	}
	if !strings.Contains(text, "3 session(s)") {
		t.Errorf("missing weekly frequency: %s", text)
	}
}

// ─── TrendTool Tests ─────────────────────────────────────────────────────────

func TestTrendTool_RequiresMetric(t *testing.T) {
	e := newTestEnv(t)
	tool := NewTrendTool(e.engine)

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{}))
	mustBeToolError(t, result, err, "'metric' is required")
}

func TestTrendTool_UnknownMetric(t *testing.T) {
	e := newTestEnv(t)
	tool := NewTrendTool(e.engine)

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"metric": "mood",
	}))
	mustBeToolError(t, result, err, "unknown metric")
}

func TestTrendTool_InvertedRange(t *testing.T) {
	e := newTestEnv(t)
	tool := NewTrendTool(e.engine)

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"metric": "volume_load",
		"start":  "2024-05-01",
		"end":    "2024-01-01",
	}))
	mustBeToolError(t, result, err, "invalid date range")
}

func TestTrendTool_VolumeSeries(t *testing.T) {
	e := newTestEnv(t)
	seedBench(t, e.db)
	tool := NewTrendTool(e.engine)

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"metric": "volume_load",
	}))
	mustNotError(t, result, err)

	text := resultText(result)
	if !strings.Contains(text, "2024-01-01  1000.0") {
		t.Errorf("missing first point: %s", text)
	}
	if !strings.Contains(text, "2024-01-05  1000.0") {
		t.Errorf("missing last point: %s", text)
	}
}

func TestTrendTool_ScalarMetric(t *testing.T) {
	e := newTestEnv(t)
	seedBench(t, e.db)
	tool := NewTrendTool(e.engine)

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"metric":   "max_weight",
		"exercise": "Bench Press",
	}))
	mustNotError(t, result, err)
	if !strings.Contains(resultText(result), "100.0") {
		t.Errorf("missing the scalar value: %s", resultText(result))
	}
}

func TestTrendTool_EmptyRange(t *testing.T) {
	e := newTestEnv(t)
	seedBench(t, e.db)
	tool := NewTrendTool(e.engine)

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"metric": "volume_load",
		"start":  "2025-01-01",
		"end":    "2025-12-31",
	}))
	mustNotError(t, result, err)
	if !strings.Contains(resultText(result), "No data in this range") {
		t.Errorf("got: %s", resultText(result))
	}
}

// ─── InsightsTool Tests ──────────────────────────────────────────────────────

func TestInsightsTool_CleanLog(t *testing.T) {
	e := newTestEnv(t)
	tool := NewInsightsTool(e.engine)

	result, err := tool.Handle(context.Background(), makeReq(nil))
	mustNotError(t, result, err)
	if !strings.Contains(resultText(result), "No insights detected") {
		t.Errorf("got: %s", resultText(result))
	}
}

func TestInsightsTool_ReportsStagnation(t *testing.T) {
	e := newTestEnv(t)
	seedBench(t, e.db)
	tool := NewInsightsTool(e.engine)

	result, err := tool.Handle(context.Background(), makeReq(nil))
	mustNotError(t, result, err)

	text := resultText(result)
	if !strings.Contains(text, "[warning] stagnation (Bench Press)") {
		t.Errorf("missing the stagnation insight: %s", text)
	}
}

// ─── ExerciseStatsTool Tests ─────────────────────────────────────────────────

func TestExerciseStatsTool_RequiresExercise(t *testing.T) {
	e := newTestEnv(t)
	tool := NewExerciseStatsTool(e.engine)

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{}))
	mustBeToolError(t, result, err, "'exercise' is required")
}

func TestExerciseStatsTool_UnknownExercise(t *testing.T) {
	e := newTestEnv(t)
	tool := NewExerciseStatsTool(e.engine)

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"exercise": "Deadlift",
	}))
	mustNotError(t, result, err)
	if !strings.Contains(resultText(result), `No sets logged for "Deadlift"`) {
		t.Errorf("got: %s", resultText(result))
	}
}

func TestExerciseStatsTool_SeededStats(t *testing.T) {
	e := newTestEnv(t)
	seedBench(t, e.db)
	tool := NewExerciseStatsTool(e.engine)

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"exercise": "Bench Press",
	}))
	mustNotError(t, result, err)

	text := resultText(result)
	if !strings.Contains(text, "**Total sets**: 6") {
		t.Errorf("missing set count: %s", text)
	}
	if !strings.Contains(text, "**Max weight**: 100.0 kg") {
		t.Errorf("missing max weight: %s", text)
	}
	if !strings.Contains(text, "**Average RPE**: 8.0") {
		t.Errorf("missing average RPE: %s", text)
	}
	if !strings.Contains(text, "**Best effort**: 100.0 kg") {
		t.Errorf("missing best effort: %s", text)
	}
}

// ─── TimelineTool Tests ──────────────────────────────────────────────────────

func TestTimelineTool_Empty(t *testing.T) {
	e := newTestEnv(t)
	tool := NewTimelineTool(e.store)

	result, err := tool.Handle(context.Background(), makeReq(nil))
	mustNotError(t, result, err)
	if !strings.Contains(resultText(result), "journal is empty") {
		t.Errorf("got: %s", resultText(result))
	}
}

func TestTimelineTool_ShowsRecordsNewestFirst(t *testing.T) {
	e := newTestEnv(t)
	appendRecord(t, e.store, memory.TypePlanSnapshot, `{"goal": "General Strength"}`, "week:2024-01-08")
	appendRecord(t, e.store, memory.TypeReflection, `{"note": "solid week"}`)
	tool := NewTimelineTool(e.store)

	result, err := tool.Handle(context.Background(), makeReq(nil))
	mustNotError(t, result, err)

	text := resultText(result)
	if !strings.Contains(text, "Last 2 journal record(s)") {
		t.Errorf("missing count: %s", text)
	}
	reflectionAt := strings.Index(text, "reflection")
	planAt := strings.Index(text, "plan_snapshot")
	if reflectionAt < 0 || planAt < 0 || reflectionAt > planAt {
		t.Errorf("records not newest first: %s", text)
	}
	if !strings.Contains(text, "solid week") {
		t.Errorf("standard detail should include content snippets: %s", text)
	}
}

func TestTimelineTool_SummaryHidesContent(t *testing.T) {
	e := newTestEnv(t)
	appendRecord(t, e.store, memory.TypeReflection, `{"note": "solid week"}`)
	tool := NewTimelineTool(e.store)

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"detail_level": "summary",
	}))
	mustNotError(t, result, err)

	text := resultText(result)
	if strings.Contains(text, "solid week") {
		t.Errorf("summary should hide content: %s", text)
	}
	if !strings.Contains(text, memory.SummaryFooter) {
		t.Errorf("missing the summary footer: %s", text)
	}
}

// ─── SearchTool Tests ────────────────────────────────────────────────────────

func TestSearchTool_NoQueryReturnsRecent(t *testing.T) {
	e := newTestEnv(t)
	appendRecord(t, e.store, memory.TypePlanSnapshot, `{"goal": "General Strength"}`)
	appendRecord(t, e.store, memory.TypeReflection, `{"note": "deload next"}`)
	tool := NewSearchTool(e.store)

	result, err := tool.Handle(context.Background(), makeReq(nil))
	mustNotError(t, result, err)
	if !strings.Contains(resultText(result), "Found 2 record(s)") {
		t.Errorf("got: %s", resultText(result))
	}
}

func TestSearchTool_FiltersByType(t *testing.T) {
	e := newTestEnv(t)
	appendRecord(t, e.store, memory.TypePlanSnapshot, `{"goal": "General Strength"}`)
	appendRecord(t, e.store, memory.TypeReflection, `{"note": "deload next"}`)
	tool := NewSearchTool(e.store)

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"type": memory.TypeReflection,
	}))
	mustNotError(t, result, err)

	text := resultText(result)
	if !strings.Contains(text, "Found 1 record(s)") || !strings.Contains(text, "deload next") {
		t.Errorf("got: %s", text)
	}
}

func TestSearchTool_MatchesWeekTag(t *testing.T) {
	e := newTestEnv(t)
	appendRecord(t, e.store, memory.TypePlanSnapshot, `{"goal": "General Strength"}`, "week:2024-01-08", "flow:propose")
	appendRecord(t, e.store, memory.TypeReflection, `{"note": "unrelated"}`)
	tool := NewSearchTool(e.store)

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"query": "2024-01-08",
	}))
	mustNotError(t, result, err)

	text := resultText(result)
	if !strings.Contains(text, "Found 1 record(s)") || !strings.Contains(text, "week:2024-01-08") {
		t.Errorf("got: %s", text)
	}
}

func TestSearchTool_NoMatches(t *testing.T) {
	e := newTestEnv(t)
	appendRecord(t, e.store, memory.TypeReflection, `{"note": "solid week"}`)
	tool := NewSearchTool(e.store)

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"query": "deadlift",
	}))
	mustNotError(t, result, err)
	if !strings.Contains(resultText(result), "No journal records match") {
		t.Errorf("got: %s", resultText(result))
	}
}

// ─── StatsTool Tests ─────────────────────────────────────────────────────────

func TestStatsTool_EmptyJournal(t *testing.T) {
	e := newTestEnv(t)
	tool := NewStatsTool(e.client, e.store, "rule-based")

	result, err := tool.Handle(context.Background(), makeReq(nil))
	mustNotError(t, result, err)

	text := resultText(result)
	if !strings.Contains(text, "**Backend**: rule-based") {
		t.Errorf("missing backend: %s", text)
	}
	if !strings.Contains(text, "**Requests**: 0") {
		t.Errorf("missing zero counters: %s", text)
	}
	if !strings.Contains(text, "- empty") {
		t.Errorf("missing empty journal marker: %s", text)
	}
}

func TestStatsTool_ReportsUsageAndJournal(t *testing.T) {
	e := newTestEnv(t)
	propose := NewProposeTool(e.orch)
	result, err := propose.Handle(context.Background(), makeReq(nil))
	mustNotError(t, result, err)

	tool := NewStatsTool(e.client, e.store, "rule-based")
	result, err = tool.Handle(context.Background(), makeReq(nil))
	mustNotError(t, result, err)

	text := resultText(result)
	if !strings.Contains(text, "**Requests**: 2") {
		t.Errorf("propose should cost two model requests: %s", text)
	}
	if !strings.Contains(text, "**Failures**: 0") {
		t.Errorf("missing failure counter: %s", text)
	}
	if !strings.Contains(text, "plan_snapshot: 1") {
		t.Errorf("missing journal breakdown: %s", text)
	}
	if !strings.Contains(text, "**Latest**: plan_snapshot") {
		t.Errorf("missing latest record: %s", text)
	}
}
