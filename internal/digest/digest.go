// Package digest profiles the scratch database's user tables into a
// bounded, prompt-sized report: per-column statistics, table roles,
// relationships, a schema-shape label, and an overall verdict telling the
// agent whether the data is ready to query or needs cleanup first. It must
// never crash prompt construction: any profiling failure degrades to an
// error-shaped digest.
package digest

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Querier is the read-only slice of the guarded session the digestor needs.
type Querier interface {
	Query(ctx context.Context, stmt string, args ...any) (*sql.Rows, context.CancelFunc, error)
}

// Options bound the digest's size.
type Options struct {
	MaxTables      int
	MaxColumns     int
	SampleRows     int
	MaxImplicitFKs int
}

// DefaultOptions mirror the fixed limits the report format was sized for.
func DefaultOptions() Options {
	return Options{MaxTables: 20, MaxColumns: 25, SampleRows: 1000, MaxImplicitFKs: 20}
}

// Verdicts, in descending order of data quality, with the action the agent
// should take for each.
const (
	VerdictClean   = "clean"
	VerdictUsable  = "usable"
	VerdictMessy   = "messy"
	VerdictChaotic = "chaotic"
	VerdictMinimal = "minimal"
	VerdictError   = "error"
)

var verdictActions = map[string]string{
	VerdictClean:   "query_directly",
	VerdictUsable:  "inspect_schema",
	VerdictMessy:   "needs_cleaning",
	VerdictChaotic: "investigate",
	VerdictMinimal: "skip",
	VerdictError:   "investigate",
}

// Digest is the full report over one scratch database.
type Digest struct {
	TableCount      int            `json:"table_count"`
	Tables          []TableDigest  `json:"tables,omitempty"`
	Relationships   []Relationship `json:"relationships,omitempty"`
	ExplicitFKCount int            `json:"explicit_fk_count"`
	HasLookupTables bool           `json:"has_lookup_tables"`
	HasLogTables    bool           `json:"has_log_tables,omitempty"`
	Shape           string         `json:"shape"`
	Score           float64        `json:"score"`
	Verdict         string         `json:"verdict"`
	Action          string         `json:"action"`
	Flags           []string       `json:"flags,omitempty"`
	Error           string         `json:"error,omitempty"`
}

// TableDigest summarizes one table.
type TableDigest struct {
	Name             string         `json:"name"`
	RowCount         int64          `json:"row_count"`
	Role             string         `json:"role,omitempty"`
	Columns          []ColumnDigest `json:"columns"`
	ColumnsTruncated bool           `json:"columns_truncated,omitempty"`
}

// ColumnDigest summarizes one column from its sampled values.
type ColumnDigest struct {
	Name         string   `json:"name"`
	DeclaredType string   `json:"declared_type"`
	ActualType   string   `json:"actual_type"`
	PrimaryKey   bool     `json:"primary_key,omitempty"`
	NullFrac     float64  `json:"null_frac"`
	Cardinality  string   `json:"cardinality"`
	Pattern      string   `json:"pattern,omitempty"`
	Min          *float64 `json:"min,omitempty"`
	Max          *float64 `json:"max,omitempty"`
	MinLen       int      `json:"min_len,omitempty"`
	MaxLen       int      `json:"max_len,omitempty"`
	AvgLen       float64  `json:"avg_len,omitempty"`
	Entropy      float64  `json:"entropy,omitempty"`
}

// Relationship is one discovered foreign-key edge. Explicit keys carry
// confidence 1.0; implicit name-based guesses carry implicitFKConfidence.
type Relationship struct {
	FromTable  string  `json:"from_table"`
	FromColumn string  `json:"from_column"`
	ToTable    string  `json:"to_table"`
	ToColumn   string  `json:"to_column"`
	Confidence float64 `json:"confidence"`
	Implicit   bool    `json:"implicit,omitempty"`
}

// Digestor profiles scratch databases.
type Digestor struct {
	opts   Options
	logger *slog.Logger
}

// New builds a Digestor. Zero-valued options fall back to defaults
// field by field.
func New(opts Options, logger *slog.Logger) *Digestor {
	def := DefaultOptions()
	if opts.MaxTables <= 0 {
		opts.MaxTables = def.MaxTables
	}
	if opts.MaxColumns <= 0 {
		opts.MaxColumns = def.MaxColumns
	}
	if opts.SampleRows <= 0 {
		opts.SampleRows = def.SampleRows
	}
	if opts.MaxImplicitFKs <= 0 {
		opts.MaxImplicitFKs = def.MaxImplicitFKs
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Digestor{opts: opts, logger: logger}
}

// Digest profiles every user table reachable through q. It never returns an
// error: failures produce an error-shaped digest so prompt rendering always
// has something to show.
func (d *Digestor) Digest(ctx context.Context, q Querier) Digest {
	start := time.Now()
	dig, err := d.digest(ctx, q)
	if err != nil {
		d.logger.Warn("digest failed", "error", err.Error())
		return errorDigest(err)
	}
	d.logger.Debug("digest complete",
		"tables", dig.TableCount, "verdict", dig.Verdict, "duration", time.Since(start).String())
	return dig
}

func (d *Digestor) digest(ctx context.Context, q Querier) (Digest, error) {
	names, err := userTables(ctx, q)
	if err != nil {
		return Digest{}, err
	}
	if len(names) == 0 {
		return Digest{
			Shape:   ShapeFlat,
			Verdict: VerdictMinimal,
			Action:  verdictActions[VerdictMinimal],
		}, nil
	}

	dig := Digest{TableCount: len(names)}
	profiled := names
	if len(profiled) > d.opts.MaxTables {
		profiled = profiled[:d.opts.MaxTables]
	}
	for _, name := range profiled {
		table, err := d.profileTable(ctx, q, name)
		if err != nil {
			return Digest{}, fmt.Errorf("digest: profile %s: %w", name, err)
		}
		dig.Tables = append(dig.Tables, table)
	}

	rels, explicit, err := d.relationships(ctx, q, dig.Tables)
	if err != nil {
		return Digest{}, err
	}
	dig.Relationships = rels
	dig.ExplicitFKCount = explicit

	classifyRoles(dig.Tables, rels)
	for _, t := range dig.Tables {
		switch t.Role {
		case RoleLookup:
			dig.HasLookupTables = true
		case RoleLog:
			dig.HasLogTables = true
		}
	}
	dig.Shape = classifyShape(dig.Tables, rels)
	dig.Score, dig.Verdict = score(dig)
	dig.Action = verdictActions[dig.Verdict]
	dig.Flags = flags(dig)
	return dig, nil
}

// userTables lists agent-created tables: sqlite internals and the reserved
// underscore-prefixed ephemeral tables are not the agent's data.
func userTables(ctx context.Context, q Querier) ([]string, error) {
	rows, cancel, err := q.Query(ctx, `
		SELECT name FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%' AND name NOT LIKE '\_%' ESCAPE '\'
		ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("digest: list tables: %w", err)
	}
	defer cancel()
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("digest: scan table name: %w", err)
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

func errorDigest(err error) Digest {
	return Digest{
		Shape:   ShapeFlat,
		Verdict: VerdictError,
		Action:  verdictActions[VerdictError],
		Error:   err.Error(),
	}
}

// quoteIdent wraps an identifier in double quotes for safe interpolation;
// table names come out of sqlite_master, not user input, but quoting keeps
// reserved words and odd characters working.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
