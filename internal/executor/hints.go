package executor

import "strings"

// hintFor derives a short actionable hint from an engine error. The agent
// sees the raw error too; the hint just points at the usual fix for the
// handful of failure shapes agents hit over and over.
func hintFor(errText string) string {
	lower := strings.ToLower(errText)
	switch {
	case strings.Contains(lower, "do not have the same number of result columns"),
		strings.Contains(lower, "values were supplied"):
		return "column-count mismatch: make both sides of the set operation (or the VALUES list) match the target column list"
	case strings.Contains(lower, "no such column"),
		strings.Contains(lower, "has no column named"):
		return "unknown column: check spelling against PRAGMA table_info(<table>)"
	case strings.Contains(lower, "no such table"):
		return "missing table: create it first or check the name with SELECT name FROM sqlite_master"
	case strings.Contains(lower, "unique constraint failed"):
		return "unique constraint violation: use UPDATE (or INSERT OR REPLACE) instead of inserting a duplicate key"
	case strings.Contains(lower, "syntax error"):
		return "syntax error: simplify the statement and re-check quoting near the reported token"
	default:
		return ""
	}
}
