// Package coachtools provides the MCP tool handlers for the coaching
// assistant.
//
// Each tool handler follows the same pattern:
// - A struct with dependencies injected via constructor
// - Definition() returns the mcp.Tool schema
// - Handle() processes the request and returns a result
//
// Argument problems are tool errors (the model can correct and retry);
// Go errors are reserved for broken plumbing.
package coachtools

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/patrickpassosb/biome/internal/memory"
)

// intArg extracts an integer argument from a tool request, returning
// defaultVal if the key is missing or not a number (JSON numbers are float64).
func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return int(v)
}

// jsonBlock renders v as a fenced JSON block for tool responses.
func jsonBlock(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "```json\n{}\n```"
	}
	return "```json\n" + string(data) + "\n```"
}

// formatRecord renders one journal record at the requested detail level.
func formatRecord(b *strings.Builder, i int, rec memory.Record, detailLevel string) {
	fmt.Fprintf(b, "%d. [%s] %s", i, rec.CreatedAt, rec.Type)
	if len(rec.Tags) > 0 {
		fmt.Fprintf(b, " (%s)", strings.Join(rec.Tags, ", "))
	}
	b.WriteString("\n")

	switch detailLevel {
	case memory.DetailSummary:
	case memory.DetailFull:
		fmt.Fprintf(b, "   %s\n", rec.Content)
	default:
		fmt.Fprintf(b, "   %s\n", memory.Snippet(string(rec.Content)))
	}
}
