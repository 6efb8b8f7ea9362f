package digest

import (
	"regexp"
	"strings"
)

// Table roles.
const (
	RoleJunction = "junction"
	RoleLookup   = "lookup"
	RoleLog      = "log"
)

var reLogName = regexp.MustCompile(`(^|_)(logs?|events?|history|audit)(_|$)`)

// classifyRoles tags each table with at most one role, most specific first.
func classifyRoles(tables []TableDigest, rels []Relationship) {
	fkCount := make(map[string]int)
	for _, r := range rels {
		fkCount[r.FromTable]++
	}
	for i := range tables {
		t := &tables[i]
		switch {
		case isJunction(t, fkCount[t.Name]):
			t.Role = RoleJunction
		case isLookup(t):
			t.Role = RoleLookup
		case isLog(t):
			t.Role = RoleLog
		}
	}
}

// isJunction: a narrow table that mostly joins other tables.
func isJunction(t *TableDigest, fks int) bool {
	return len(t.Columns) >= 2 && len(t.Columns) <= 5 && fks >= 2
}

// isLookup: a small table pairing an identifier with a label.
func isLookup(t *TableDigest) bool {
	if t.RowCount < 1 || t.RowCount > 100 || len(t.Columns) < 2 || len(t.Columns) > 5 {
		return false
	}
	var hasID, hasLabel bool
	for _, c := range t.Columns {
		if c.PrimaryKey || c.Name == "id" || strings.HasSuffix(c.Name, "_id") {
			hasID = true
			continue
		}
		switch c.Name {
		case "name", "title", "label", "description", "value":
			hasLabel = true
		}
	}
	return hasID && hasLabel
}

// isLog: named like a log, or carrying the timestamp+action column pair
// append-only tables tend to have.
func isLog(t *TableDigest) bool {
	if reLogName.MatchString(t.Name) {
		return true
	}
	var hasTimestamp, hasAction bool
	for _, c := range t.Columns {
		name := c.Name
		if strings.HasSuffix(name, "_at") || strings.Contains(name, "timestamp") ||
			c.Pattern == "iso_datetime" || c.Pattern == "unix_timestamp" {
			hasTimestamp = true
		}
		switch name {
		case "action", "event", "event_type", "message", "level":
			hasAction = true
		}
	}
	return hasTimestamp && hasAction
}
