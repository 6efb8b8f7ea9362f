// Package cycle wires one agent processing cycle end to end: restore the
// scratch database, open a guarded session, seed the mirror tables and the
// tool-result cache, serve SQL batches and schema reports during the turn,
// then sync mirrors back, tear everything ephemeral down, and persist.
package cycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/basket/scratchdb/internal/digest"
	"github.com/basket/scratchdb/internal/executor"
	"github.com/basket/scratchdb/internal/lifecycle"
	"github.com/basket/scratchdb/internal/otel"
	"github.com/basket/scratchdb/internal/records"
	"github.com/basket/scratchdb/internal/session"
	"github.com/basket/scratchdb/internal/shared"
	"github.com/basket/scratchdb/internal/syncer"
	"github.com/basket/scratchdb/internal/toolcache"
)

// Options configure one cycle. AgentID, Store, Lifecycle, and Tools are
// required; the rest default sensibly when zero.
type Options struct {
	AgentID   string
	Store     *records.Store
	Lifecycle *lifecycle.Manager
	Tools     syncer.ToolResolver

	StatementTimeout    time.Duration
	SoftLimitBytes      int64
	SchemaSummaryBudget int
	DigestOptions       digest.Options
	MaxToolContentBytes int

	Logger  *slog.Logger
	Metrics *otel.Metrics
}

// DefaultSchemaSummaryBudget caps the schema summary handed to the prompt.
const DefaultSchemaSummaryBudget = 30 * 1024

// Summary is what one finished cycle reports back to the agent loop.
type Summary struct {
	Sync    []syncer.Result
	Changed bool
}

// Cycle is one live processing cycle. It exclusively owns its scratch file
// and session; there is no ambient current-database state anywhere.
type Cycle struct {
	agentID string
	path    string
	sess    *session.Session
	exec    *executor.Executor
	cache   *toolcache.Cache
	dig     *digest.Digestor

	tasks  *syncer.Mirror[syncer.TaskRow]
	skills *syncer.Mirror[syncer.SkillRow]
	config *syncer.Mirror[syncer.ConfigRow]

	lifecycle *lifecycle.Manager
	budget    int
	logger    *slog.Logger
	metrics   *otel.Metrics
	finished  bool
}

// Begin restores the agent's scratch database and prepares everything the
// turn needs. On any error the scratch file and session are released; a
// failed Begin leaves nothing behind.
func Begin(ctx context.Context, opts Options) (*Cycle, error) {
	if opts.AgentID == "" {
		return nil, errors.New("cycle: agent id is required")
	}
	if opts.Store == nil || opts.Lifecycle == nil {
		return nil, errors.New("cycle: store and lifecycle manager are required")
	}
	if opts.Tools == nil {
		opts.Tools = syncer.StaticTools{}
	}
	if opts.SchemaSummaryBudget <= 0 {
		opts.SchemaSummaryBudget = DefaultSchemaSummaryBudget
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("agent_id", opts.AgentID, "cycle_id", shared.NewCycleID())

	path, err := opts.Lifecycle.Restore(ctx, opts.AgentID)
	if err != nil {
		return nil, fmt.Errorf("cycle: restore: %w", err)
	}
	sess, err := session.Open(ctx, path, opts.StatementTimeout)
	if err != nil {
		// Hand the file back through Persist's cleanup path.
		if perr := opts.Lifecycle.Persist(ctx, opts.AgentID, path); perr != nil {
			logger.Warn("cleanup after failed open", "error", perr.Error())
		}
		return nil, fmt.Errorf("cycle: open session: %w", err)
	}

	c := &Cycle{
		agentID:   opts.AgentID,
		path:      path,
		sess:      sess,
		exec:      executor.New(sess, opts.SoftLimitBytes, logger, opts.Metrics),
		cache:     toolcache.New(sess, opts.MaxToolContentBytes),
		dig:       digest.New(opts.DigestOptions, logger),
		lifecycle: opts.Lifecycle,
		budget:    opts.SchemaSummaryBudget,
		logger:    logger,
		metrics:   opts.Metrics,
	}

	c.tasks, err = syncer.SeedMirror(ctx, sess, syncer.NewTasksDomain(opts.Store, opts.AgentID), opts.AgentID, logger)
	if err == nil {
		c.skills, err = syncer.SeedMirror(ctx, sess, syncer.NewSkillsDomain(opts.Store, opts.AgentID, opts.Tools), opts.AgentID, logger)
	}
	if err == nil {
		c.config, err = syncer.SeedMirror(ctx, sess, syncer.NewConfigDomain(opts.Store, opts.AgentID), opts.AgentID, logger)
	}
	if err == nil {
		err = c.cache.Init(ctx)
	}
	if err != nil {
		sess.Close()
		if perr := opts.Lifecycle.Persist(ctx, opts.AgentID, path); perr != nil {
			logger.Warn("cleanup after failed seed", "error", perr.Error())
		}
		return nil, fmt.Errorf("cycle: seed: %w", err)
	}

	logger.Debug("cycle started", "path", path)
	return c, nil
}

// Path is the scratch file's location for this cycle.
func (c *Cycle) Path() string { return c.path }

// ExecuteBatch runs agent statements through the batch executor.
func (c *Cycle) ExecuteBatch(ctx context.Context, statements []string, noMoreWork bool) executor.BatchResult {
	return c.exec.ExecuteBatch(ctx, statements, noMoreWork)
}

// ExecuteScript splits a multi-statement string and runs it as a batch.
func (c *Cycle) ExecuteScript(ctx context.Context, script string, noMoreWork bool) executor.BatchResult {
	return c.exec.ExecuteScript(ctx, script, noMoreWork)
}

// ExecuteOne runs a single statement with batch semantics.
func (c *Cycle) ExecuteOne(ctx context.Context, stmt string, noMoreWork bool) executor.BatchResult {
	return c.exec.ExecuteBatch(ctx, []string{stmt}, noMoreWork)
}

// RecordToolResult stores one tool output in the tool-result cache.
func (c *Cycle) RecordToolResult(ctx context.Context, tool, content string) (string, error) {
	return c.cache.Record(ctx, tool, content)
}

// Digest profiles the current user tables.
func (c *Cycle) Digest(ctx context.Context) digest.Digest {
	start := time.Now()
	d := c.dig.Digest(ctx, c.sess)
	if c.metrics != nil {
		c.metrics.DigestDuration.Record(ctx, time.Since(start).Seconds())
	}
	return d
}

// SchemaSummary renders the CREATE statement and row count of every user
// table, capped at the configured byte budget with an explicit truncation
// notice.
func (c *Cycle) SchemaSummary(ctx context.Context) (string, error) {
	rows, cancel, err := c.sess.Query(ctx, `
		SELECT name, sql FROM sqlite_master
		WHERE type = 'table' AND sql IS NOT NULL
		  AND name NOT LIKE 'sqlite_%' AND name NOT LIKE '\_%' ESCAPE '\'
		ORDER BY name`)
	if err != nil {
		return "", fmt.Errorf("cycle: schema summary: %w", err)
	}
	type tableDDL struct {
		name, ddl string
	}
	var tables []tableDDL
	for rows.Next() {
		var td tableDDL
		if err := rows.Scan(&td.name, &td.ddl); err != nil {
			cancel()
			rows.Close()
			return "", fmt.Errorf("cycle: scan schema: %w", err)
		}
		tables = append(tables, td)
	}
	err = rows.Err()
	cancel()
	rows.Close()
	if err != nil {
		return "", fmt.Errorf("cycle: schema summary: %w", err)
	}

	var b strings.Builder
	for _, td := range tables {
		count, err := c.rowCount(ctx, td.name)
		if err != nil {
			return "", err
		}
		entry := fmt.Sprintf("%s; -- %d rows\n", td.ddl, count)
		if b.Len()+len(entry) > c.budget {
			b.WriteString(fmt.Sprintf("-- truncated: schema exceeds %d KB budget\n", c.budget/1024))
			break
		}
		b.WriteString(entry)
	}
	return b.String(), nil
}

func (c *Cycle) rowCount(ctx context.Context, table string) (int64, error) {
	quoted := `"` + strings.ReplaceAll(table, `"`, `""`) + `"`
	rows, cancel, err := c.sess.Query(ctx, `SELECT count(*) FROM `+quoted)
	if err != nil {
		return 0, fmt.Errorf("cycle: count %s: %w", table, err)
	}
	defer cancel()
	defer rows.Close()
	var n int64
	if rows.Next() {
		if err := rows.Scan(&n); err != nil {
			return 0, fmt.Errorf("cycle: count %s: %w", table, err)
		}
	}
	return n, rows.Err()
}

// Finish syncs the mirrors back to durable storage, drops every ephemeral
// table, closes the session, and persists the scratch file. It always runs
// to the end: sync errors become Result strings, teardown and persistence
// failures are logged, and the agent's turn completes regardless.
func (c *Cycle) Finish(ctx context.Context) Summary {
	if c.finished {
		return Summary{}
	}
	c.finished = true

	var sum Summary
	results := []syncer.Result{
		c.tasks.SyncBack(ctx),
		c.skills.SyncBack(ctx),
		c.config.SyncBack(ctx),
	}
	for _, res := range results {
		sum.Sync = append(sum.Sync, res)
		sum.Changed = sum.Changed || res.Changed
		if c.metrics != nil {
			c.metrics.SyncChanges.Add(ctx, int64(len(res.Created)+len(res.Updated)+len(res.Removed)))
			c.metrics.SyncErrors.Add(ctx, int64(len(res.Errors)))
		}
		for _, e := range res.Errors {
			c.logger.Warn("sync rejected change", "domain", res.Domain, "error", e)
		}
	}

	// Mirrors and the tool cache never outlive their cycle, whatever the
	// sync reported.
	if err := c.tasks.Teardown(ctx); err != nil {
		c.logger.Warn("teardown failed", "error", err.Error())
	}
	if err := c.skills.Teardown(ctx); err != nil {
		c.logger.Warn("teardown failed", "error", err.Error())
	}
	if err := c.config.Teardown(ctx); err != nil {
		c.logger.Warn("teardown failed", "error", err.Error())
	}
	if err := c.cache.Drop(ctx); err != nil {
		c.logger.Warn("tool cache drop failed", "error", err.Error())
	}

	if err := c.sess.Close(); err != nil {
		c.logger.Warn("session close failed", "error", err.Error())
	}
	if err := c.lifecycle.Persist(ctx, c.agentID, c.path); err != nil {
		c.logger.Warn("persist failed, scratch changes lost", "error", err.Error())
	}
	c.logger.Debug("cycle finished", "changed", sum.Changed)
	return sum
}
