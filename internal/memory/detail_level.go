// detail_level.go provides shared constants and parsing for the
// detail_level parameter used across the journal and metrics tools.
//
// Three verbosity levels enable progressive disclosure:
//   - summary: minimal tokens (ids, types, tags only)
//   - standard: default behavior, truncated content snippets
//   - full: complete untruncated content for deep analysis
package memory

import "fmt"

// Detail level constants.
const (
	DetailSummary  = "summary"
	DetailStandard = "standard"
	DetailFull     = "full"
)

// DetailLevelValues returns the enum values for MCP tool definitions.
// Use this to avoid duplicating the list across tool definitions.
func DetailLevelValues() []string {
	return []string{DetailSummary, DetailStandard, DetailFull}
}

// ParseDetailLevel normalizes a detail_level string, defaulting to
// "standard" for empty or unrecognized values.
func ParseDetailLevel(s string) string {
	switch s {
	case DetailSummary, DetailFull:
		return s
	default:
		return DetailStandard
	}
}

// snippetLen is how much record content a standard-detail response shows.
const snippetLen = 200

// Snippet truncates content for standard-detail responses.
func Snippet(content string) string {
	if len(content) <= snippetLen {
		return content
	}
	return content[:snippetLen] + "..."
}

// SummaryFooter is appended to summary-mode responses to guide the
// caller toward progressive disclosure.
const SummaryFooter = "\n---\n💡 Use detail_level: standard or full for more detail."

// NavigationHint returns a one-line footer when results are capped by a
// limit. Returns an empty string when all results fit or total is 0.
func NavigationHint(showing, total int, hint string) string {
	if total <= 0 || showing >= total {
		return ""
	}
	if hint != "" {
		return fmt.Sprintf("\n📊 Showing %d of %d. %s", showing, total, hint)
	}
	return fmt.Sprintf("\n📊 Showing %d of %d.", showing, total)
}

// EstimateTokens approximates the token count for a text string using
// the chars/4 heuristic. Returns 0 for empty strings, at least 1 for
// non-empty strings.
func EstimateTokens(text string) int {
	n := len(text)
	if n == 0 {
		return 0
	}
	tokens := n / 4
	if tokens == 0 {
		return 1
	}
	return tokens
}

// TokenFooter returns a one-line footer with the estimated token count
// for a tool response.
func TokenFooter(estimatedTokens int) string {
	return fmt.Sprintf("\n📏 ~%s tokens", formatNumber(estimatedTokens))
}

// formatNumber formats an integer with comma separators for readability.
func formatNumber(n int) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	s := fmt.Sprintf("%d", n)
	var result []byte
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			result = append(result, ',')
		}
		result = append(result, byte(c))
	}
	return string(result)
}
