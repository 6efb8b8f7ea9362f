// Package executor runs agent-issued SQL batches against one guarded
// session. Statements execute strictly in order and commit individually, so
// partial progress survives a later failure in the same batch. The first
// blocked or failing statement halts the batch; everything after it is never
// sent to the engine.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/basket/scratchdb/internal/otel"
	"github.com/basket/scratchdb/internal/session"
	"github.com/basket/scratchdb/internal/sqlscan"
)

// DefaultSoftLimitBytes triggers the shrink warning attached to batch results.
const DefaultSoftLimitBytes = 50 * 1024 * 1024

// StatementResult is the outcome of one statement.
type StatementResult struct {
	SQL string
	// Columns preserves the result set's column order; Rows maps column name
	// to value per row. Both are nil for non-row-returning statements.
	Columns []string
	Rows    []map[string]any
	// RowsAffected is reported for non-row-returning statements.
	RowsAffected int64
	// Err is the block reason or engine error text; empty on success.
	Err string
	// Hint is a short actionable suggestion derived from Err, when one of
	// the known failure shapes matched.
	Hint string
}

// BatchResult is the outcome of one batch.
type BatchResult struct {
	Results []StatementResult
	OK      bool
	// FailedIndex is the zero-based index of the statement that stopped the
	// batch, or -1 when every statement succeeded.
	FailedIndex int
	// SizeBytes is the scratch file's on-disk size after the batch, read
	// regardless of batch outcome.
	SizeBytes int64
	// SizeWarning is set once SizeBytes exceeds the soft ceiling.
	SizeWarning string
	// ContinuationAllowed is set only when the caller signaled no further
	// work, the batch fully succeeded, and no statement returned rows.
	ContinuationAllowed bool
}

// Executor binds batch semantics to one guarded session.
type Executor struct {
	sess           *session.Session
	softLimitBytes int64
	logger         *slog.Logger
	metrics        *otel.Metrics
}

// New builds an Executor. softLimitBytes of zero selects the default; metrics
// may be nil.
func New(sess *session.Session, softLimitBytes int64, logger *slog.Logger, metrics *otel.Metrics) *Executor {
	if softLimitBytes <= 0 {
		softLimitBytes = DefaultSoftLimitBytes
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{sess: sess, softLimitBytes: softLimitBytes, logger: logger, metrics: metrics}
}

// ExecuteScript splits one multi-statement string and executes the result as
// a batch.
func (e *Executor) ExecuteScript(ctx context.Context, script string, noMoreWork bool) BatchResult {
	return e.ExecuteBatch(ctx, sqlscan.Split(script), noMoreWork)
}

// ExecuteBatch runs statements in order, halting at the first blocked or
// failing one. noMoreWork is the caller's signal that the agent asked for no
// further turn; it can only take effect when the batch is clean and produced
// no result set still owed inspection.
func (e *Executor) ExecuteBatch(ctx context.Context, statements []string, noMoreWork bool) BatchResult {
	start := time.Now()
	batch := BatchResult{FailedIndex: -1}
	sawResultSet := false

	for i, stmt := range statements {
		cls := sqlscan.Classify(stmt)
		if cls.Kind == sqlscan.KindBlocked {
			e.logger.Warn("statement blocked", "index", i, "reason", cls.Reason)
			if e.metrics != nil {
				e.metrics.StatementsBlocked.Add(ctx, 1)
			}
			batch.Results = append(batch.Results, StatementResult{SQL: stmt, Err: cls.Reason})
			batch.FailedIndex = i
			break
		}

		res := e.executeOne(ctx, stmt, cls.Kind)
		if e.metrics != nil {
			e.metrics.StatementsRun.Add(ctx, 1)
		}
		batch.Results = append(batch.Results, res)
		if res.Err != "" {
			if e.metrics != nil {
				e.metrics.StatementErrors.Add(ctx, 1)
			}
			batch.FailedIndex = i
			break
		}
		if res.Rows != nil {
			sawResultSet = true
		}
	}

	batch.OK = batch.FailedIndex == -1

	// Size telemetry is attached independent of batch outcome.
	if size, err := e.sess.SizeBytes(); err == nil {
		batch.SizeBytes = size
		if size > e.softLimitBytes {
			batch.SizeWarning = sizeWarning(size, e.softLimitBytes)
		}
	} else {
		e.logger.Warn("scratch size check failed", "error", err.Error())
	}

	batch.ContinuationAllowed = noMoreWork && batch.OK && !sawResultSet

	if e.metrics != nil {
		e.metrics.BatchDuration.Record(ctx, time.Since(start).Seconds())
	}
	return batch
}

func (e *Executor) executeOne(ctx context.Context, stmt string, kind sqlscan.Kind) StatementResult {
	res := StatementResult{SQL: stmt}

	if kind == sqlscan.KindWrite {
		out, err := e.sess.Exec(ctx, stmt)
		if err != nil {
			res.Err = err.Error()
			res.Hint = hintFor(res.Err)
			return res
		}
		if n, err := out.RowsAffected(); err == nil {
			res.RowsAffected = n
		}
		return res
	}

	rows, cancel, err := e.sess.Query(ctx, stmt)
	if err != nil {
		res.Err = err.Error()
		res.Hint = hintFor(res.Err)
		return res
	}
	defer cancel()
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		res.Err = err.Error()
		return res
	}
	res.Columns = cols
	res.Rows = []map[string]any{}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			res.Err = err.Error()
			return res
		}
		record := make(map[string]any, len(cols))
		for i, col := range cols {
			record[col] = normalizeValue(values[i])
		}
		res.Rows = append(res.Rows, record)
	}
	if err := rows.Err(); err != nil {
		res.Err = err.Error()
		res.Hint = hintFor(res.Err)
		// A mid-scan failure invalidates the partial rows.
		res.Rows = nil
		res.Columns = nil
	}
	return res
}

// normalizeValue maps driver values to report-friendly types: blobs become
// strings, everything else passes through.
func normalizeValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

func sizeWarning(size, limit int64) string {
	return fmt.Sprintf(
		"scratch database is %.1f MB, over the %.0f MB soft ceiling: DROP unneeded tables or DELETE stale rows, "+
			"or the database will be discarded at the hard ceiling instead of persisted",
		float64(size)/(1024*1024), float64(limit)/(1024*1024))
}
