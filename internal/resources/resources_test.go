package resources

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/patrickpassosb/biome/internal/analytics"
	"github.com/patrickpassosb/biome/internal/memory"
)

func newTestHandler(t *testing.T) (*Handler, *analytics.DB, *memory.MemStore) {
	t.Helper()
	db, err := analytics.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	engine := analytics.NewEngine(db, analytics.DefaultWeakPointConfig())
	store := memory.NewMemStore()
	return NewHandler(engine, store), db, store
}

func readReq(uri string) mcp.ReadResourceRequest {
	req := mcp.ReadResourceRequest{}
	req.Params.URI = uri
	return req
}

func textOf(t *testing.T, contents []mcp.ResourceContents) mcp.TextResourceContents {
	t.Helper()
	if len(contents) != 1 {
		t.Fatalf("contents = %d items, want 1", len(contents))
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("contents[0] is %T, want TextResourceContents", contents[0])
	}
	return tc
}

func TestHandleOverview_ReturnsKPIsAsJSON(t *testing.T) {
	h, db, _ := newTestHandler(t)
	_, err := db.InsertSets(context.Background(), []analytics.Set{
		{Date: "2024-01-01", Workout: "Upper Body", Exercise: "Bench Press", SetNumber: 1,
			Reps: analytics.Int(5), WeightKg: analytics.Float(100)},
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	contents, err := h.HandleOverview(context.Background(), readReq("biome://metrics/overview"))
	if err != nil {
		t.Fatalf("HandleOverview: %v", err)
	}

	tc := textOf(t, contents)
	if tc.MIMEType != "application/json" {
		t.Errorf("mime = %q", tc.MIMEType)
	}
	var overview analytics.Overview
	if err := json.Unmarshal([]byte(tc.Text), &overview); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if overview.LatestDate != "2024-01-01" || overview.TotalSetsAllTime != 1 {
		t.Errorf("overview = %+v", overview)
	}
}

func TestHandlePlan_NoPlanYet(t *testing.T) {
	h, _, _ := newTestHandler(t)

	contents, err := h.HandlePlan(context.Background(), readReq("biome://plan/current"))
	if err != nil {
		t.Fatalf("HandlePlan: %v", err)
	}

	tc := textOf(t, contents)
	if tc.MIMEType != "text/plain" {
		t.Errorf("mime = %q", tc.MIMEType)
	}
	if !strings.Contains(tc.Text, "No plan journaled yet") {
		t.Errorf("text = %q", tc.Text)
	}
}

func TestHandlePlan_ServesLatestSnapshot(t *testing.T) {
	h, _, store := newTestHandler(t)
	for _, week := range []string{"2024-01-01", "2024-01-08"} {
		_, err := store.Append(context.Background(), memory.AppendParams{
			Type:    memory.TypePlanSnapshot,
			Content: json.RawMessage(`{"week_start_date": "` + week + `"}`),
			Tags:    []string{"week:" + week},
		})
		if err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	contents, err := h.HandlePlan(context.Background(), readReq("biome://plan/current"))
	if err != nil {
		t.Fatalf("HandlePlan: %v", err)
	}

	tc := textOf(t, contents)
	if tc.MIMEType != "application/json" {
		t.Errorf("mime = %q", tc.MIMEType)
	}
	if !strings.Contains(tc.Text, "2024-01-08") {
		t.Errorf("expected the newest snapshot, got %q", tc.Text)
	}
}
