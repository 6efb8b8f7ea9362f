// Package toolcache maintains the _tool_results table: the current cycle's
// tool outputs, queryable by the agent's own SQL. The table is created fresh
// each cycle and dropped before persistence; it never reaches the archive.
package toolcache

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TableName is the reserved ephemeral table for tool outputs.
const TableName = "_tool_results"

// DefaultMaxContentBytes truncates oversized tool outputs; the full output
// stays in the tool layer, the cache keeps a queryable prefix.
const DefaultMaxContentBytes = 64 * 1024

// Querier is the slice of the guarded session the cache needs.
type Querier interface {
	Exec(ctx context.Context, stmt string, args ...any) (sql.Result, error)
	Query(ctx context.Context, stmt string, args ...any) (*sql.Rows, context.CancelFunc, error)
}

// Cache writes tool results into the scratch database.
type Cache struct {
	db              Querier
	maxContentBytes int
}

// New builds a Cache over the session. maxContentBytes of zero selects the
// default.
func New(db Querier, maxContentBytes int) *Cache {
	if maxContentBytes <= 0 {
		maxContentBytes = DefaultMaxContentBytes
	}
	return &Cache{db: db, maxContentBytes: maxContentBytes}
}

// Init drops any stale cache table and creates a fresh one.
func (c *Cache) Init(ctx context.Context) error {
	if _, err := c.db.Exec(ctx, `DROP TABLE IF EXISTS `+TableName); err != nil {
		return fmt.Errorf("toolcache: drop: %w", err)
	}
	_, err := c.db.Exec(ctx, `
		CREATE TABLE `+TableName+` (
			id          TEXT PRIMARY KEY,
			tool        TEXT NOT NULL,
			created_at  TEXT NOT NULL,
			size_bytes  INTEGER NOT NULL,
			shape       TEXT NOT NULL,
			json_schema TEXT,
			truncated   INTEGER NOT NULL DEFAULT 0,
			content     TEXT NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("toolcache: create: %w", err)
	}
	return nil
}

// Record stores one tool output and returns its identifier. JSON payloads
// get a shape tag and an inferred JSON schema; anything else is stored as
// plain text. Content beyond the size cap is truncated with the flag set.
func (c *Cache) Record(ctx context.Context, tool, content string) (string, error) {
	id := uuid.NewString()
	size := len(content)
	shape, schemaJSON := classifyContent(content)

	truncated := 0
	if len(content) > c.maxContentBytes {
		content = content[:c.maxContentBytes]
		truncated = 1
	}

	var schemaArg any
	if schemaJSON != "" {
		schemaArg = schemaJSON
	}
	_, err := c.db.Exec(ctx, `
		INSERT INTO `+TableName+` (id, tool, created_at, size_bytes, shape, json_schema, truncated, content)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, tool, time.Now().UTC().Format(time.RFC3339), size, shape, schemaArg, truncated, content)
	if err != nil {
		return "", fmt.Errorf("toolcache: record %s: %w", tool, err)
	}
	return id, nil
}

// Drop removes the cache table; called before the persist step and safe to
// call when the table is already gone.
func (c *Cache) Drop(ctx context.Context) error {
	if _, err := c.db.Exec(ctx, `DROP TABLE IF EXISTS `+TableName); err != nil {
		return fmt.Errorf("toolcache: drop: %w", err)
	}
	return nil
}

// classifyContent tags the payload's shape and, for JSON, returns the
// inferred schema. A payload that parses as JSON but defeats schema
// inference still gets its shape tag, just no schema.
func classifyContent(content string) (shape, schemaJSON string) {
	var value any
	if err := json.Unmarshal([]byte(content), &value); err != nil {
		return "text", ""
	}
	switch value.(type) {
	case map[string]any:
		shape = "json_object"
	case []any:
		shape = "json_array"
	default:
		return "text", ""
	}
	if schema, err := InferSchema(value); err == nil {
		if data, err := json.Marshal(schema); err == nil {
			schemaJSON = string(data)
		}
	}
	return shape, schemaJSON
}
