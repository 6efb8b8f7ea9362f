package digest

import (
	"fmt"
	"strings"
)

// Render produces the compact text form surfaced to the agent. Verdict and
// flags lead; per-column detail follows, one line per column, and is the
// first thing a caller should trim when space is short.
func Render(dig Digest) string {
	var b strings.Builder

	if dig.Verdict == VerdictError {
		fmt.Fprintf(&b, "digest unavailable: %s (action: %s)\n", dig.Error, dig.Action)
		return b.String()
	}
	fmt.Fprintf(&b, "tables: %d | shape: %s | verdict: %s (action: %s)\n",
		dig.TableCount, dig.Shape, dig.Verdict, dig.Action)
	if len(dig.Flags) > 0 {
		fmt.Fprintf(&b, "flags: %s\n", strings.Join(dig.Flags, ", "))
	}
	if dig.Verdict == VerdictMinimal {
		return b.String()
	}

	for _, t := range dig.Tables {
		role := ""
		if t.Role != "" {
			role = " [" + t.Role + "]"
		}
		fmt.Fprintf(&b, "%s (%d rows)%s:\n", t.Name, t.RowCount, role)
		for _, c := range t.Columns {
			b.WriteString("  " + renderColumn(c) + "\n")
		}
		if t.ColumnsTruncated {
			b.WriteString("  ...more columns omitted\n")
		}
	}
	if len(dig.Relationships) > 0 {
		b.WriteString("relationships:\n")
		for _, r := range dig.Relationships {
			kind := "explicit"
			if r.Implicit {
				kind = fmt.Sprintf("implicit %.1f", r.Confidence)
			}
			fmt.Fprintf(&b, "  %s.%s -> %s.%s (%s)\n",
				r.FromTable, r.FromColumn, r.ToTable, r.ToColumn, kind)
		}
	}
	return b.String()
}

func renderColumn(c ColumnDigest) string {
	parts := []string{c.Name, c.ActualType}
	if c.PrimaryKey {
		parts = append(parts, "pk")
	}
	if c.Cardinality != "" {
		parts = append(parts, c.Cardinality)
	}
	if c.Pattern != "" {
		parts = append(parts, "pattern="+c.Pattern)
	}
	if c.NullFrac > 0 {
		parts = append(parts, fmt.Sprintf("null=%.0f%%", c.NullFrac*100))
	}
	if c.Min != nil && c.Max != nil {
		parts = append(parts, fmt.Sprintf("range=%g..%g", *c.Min, *c.Max))
	}
	return strings.Join(parts, " ")
}
