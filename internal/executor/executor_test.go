package executor

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/basket/scratchdb/internal/session"
	"github.com/basket/scratchdb/internal/telemetry"
)

func newTestExecutor(t *testing.T) *Executor {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scratch.db")
	sess, err := session.Open(context.Background(), path, 0)
	if err != nil {
		t.Fatalf("open session: %v", err)
	}
	t.Cleanup(func() { sess.Close() })
	return New(sess, 0, telemetry.NewTestLogger(io.Discard), nil)
}

func TestExecuteBatchCreateInsertSelect(t *testing.T) {
	e := newTestExecutor(t)
	batch := e.ExecuteBatch(context.Background(), []string{
		"CREATE TABLE t(a INTEGER)",
		"INSERT INTO t(a) VALUES (1),(2)",
		"SELECT a FROM t ORDER BY a",
	}, true)

	if !batch.OK || batch.FailedIndex != -1 {
		t.Fatalf("batch failed: %+v", batch)
	}
	if len(batch.Results) != 3 {
		t.Fatalf("results = %d, want 3", len(batch.Results))
	}
	if batch.Results[1].RowsAffected != 2 {
		t.Errorf("insert affected = %d, want 2", batch.Results[1].RowsAffected)
	}
	rows := batch.Results[2].Rows
	if len(rows) != 2 || rows[0]["a"] != int64(1) || rows[1]["a"] != int64(2) {
		t.Errorf("select rows = %v", rows)
	}
	// Continuation must stay unset: the batch ends in a row-returning
	// statement the caller still owes inspection.
	if batch.ContinuationAllowed {
		t.Error("continuation allowed despite result set")
	}
}

func TestExecuteBatchHaltsAtFirstFailure(t *testing.T) {
	e := newTestExecutor(t)
	ctx := context.Background()
	batch := e.ExecuteBatch(ctx, []string{
		"CREATE TABLE t(a INTEGER)",
		"INSERT INTO missing(a) VALUES (1)",
		"INSERT INTO t(a) VALUES (1)",
	}, false)

	if batch.OK {
		t.Fatal("batch reported OK")
	}
	if batch.FailedIndex != 1 {
		t.Errorf("failed index = %d, want 1", batch.FailedIndex)
	}
	if len(batch.Results) != 2 {
		t.Fatalf("results = %d, want exactly 2 (prior successes plus the failure)", len(batch.Results))
	}
	if batch.Results[1].Err == "" {
		t.Error("failing statement carries no error")
	}
	if !strings.Contains(batch.Results[1].Hint, "missing table") {
		t.Errorf("hint = %q", batch.Results[1].Hint)
	}

	// The statement after the failure never ran.
	check := e.ExecuteBatch(ctx, []string{"SELECT count(*) AS n FROM t"}, false)
	if n := check.Results[0].Rows[0]["n"]; n != int64(0) {
		t.Errorf("t has %v rows, statement after failure was executed", n)
	}
}

func TestExecuteBatchPartialProgressSurvives(t *testing.T) {
	e := newTestExecutor(t)
	ctx := context.Background()
	e.ExecuteBatch(ctx, []string{
		"CREATE TABLE t(a INTEGER)",
		"INSERT INTO t(a) VALUES (7)",
		"boom not sql",
	}, false)

	// Earlier statements committed individually and survive the failure.
	check := e.ExecuteBatch(ctx, []string{"SELECT a FROM t"}, false)
	if len(check.Results[0].Rows) != 1 || check.Results[0].Rows[0]["a"] != int64(7) {
		t.Errorf("partial progress lost: %v", check.Results[0].Rows)
	}
}

func TestExecuteBatchBlockedStatement(t *testing.T) {
	e := newTestExecutor(t)
	batch := e.ExecuteBatch(context.Background(), []string{
		"CREATE TABLE t(a INTEGER)",
		"VACUUM",
		"DROP TABLE t",
	}, false)

	if batch.OK {
		t.Fatal("batch with blocked statement reported OK")
	}
	if batch.FailedIndex != 1 {
		t.Errorf("failed index = %d, want 1", batch.FailedIndex)
	}
	if batch.Results[1].Err == "" {
		t.Error("blocked statement carries no reason")
	}
	if len(batch.Results) != 2 {
		t.Errorf("results = %d, want 2", len(batch.Results))
	}
}

func TestContinuationFlag(t *testing.T) {
	e := newTestExecutor(t)
	ctx := context.Background()

	tests := []struct {
		name       string
		statements []string
		noMoreWork bool
		want       bool
	}{
		{"pure writes with signal", []string{"CREATE TABLE w(a INTEGER)", "INSERT INTO w(a) VALUES (1)"}, true, true},
		{"pure writes without signal", []string{"INSERT INTO w(a) VALUES (2)"}, false, false},
		{"read blocks continuation", []string{"SELECT * FROM w"}, true, false},
		{"empty result set still blocks", []string{"SELECT * FROM w WHERE a = 999"}, true, false},
		{"failure blocks continuation", []string{"INSERT INTO nope(a) VALUES (1)"}, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batch := e.ExecuteBatch(ctx, tt.statements, tt.noMoreWork)
			if batch.ContinuationAllowed != tt.want {
				t.Errorf("continuation = %v, want %v", batch.ContinuationAllowed, tt.want)
			}
		})
	}
}

func TestExecuteScriptSplitsStatements(t *testing.T) {
	e := newTestExecutor(t)
	batch := e.ExecuteScript(context.Background(),
		"CREATE TABLE s(v TEXT); INSERT INTO s(v) VALUES ('a;b'); SELECT v FROM s", false)
	if !batch.OK {
		t.Fatalf("script failed: %+v", batch)
	}
	if len(batch.Results) != 3 {
		t.Fatalf("results = %d, want 3", len(batch.Results))
	}
	if batch.Results[2].Rows[0]["v"] != "a;b" {
		t.Errorf("literal semicolon mangled: %v", batch.Results[2].Rows)
	}
}

func TestSizeReportedEvenOnFailure(t *testing.T) {
	e := newTestExecutor(t)
	batch := e.ExecuteBatch(context.Background(), []string{"CREATE TABLE z(a INTEGER)", "boom"}, false)
	if batch.OK {
		t.Fatal("expected failure")
	}
	if batch.SizeBytes <= 0 {
		t.Errorf("size = %d, want > 0 even when the batch failed", batch.SizeBytes)
	}
}

func TestSoftCeilingWarning(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scratch.db")
	sess, err := session.Open(context.Background(), path, 0)
	if err != nil {
		t.Fatalf("open session: %v", err)
	}
	defer sess.Close()
	// A 1-byte soft ceiling guarantees the warning fires.
	e := New(sess, 1, telemetry.NewTestLogger(io.Discard), nil)
	batch := e.ExecuteBatch(context.Background(), []string{"CREATE TABLE t(a INTEGER)"}, false)
	if batch.SizeWarning == "" {
		t.Error("expected soft-ceiling warning")
	}
	if !strings.Contains(batch.SizeWarning, "soft ceiling") {
		t.Errorf("warning text = %q", batch.SizeWarning)
	}
}

func TestHintFor(t *testing.T) {
	tests := []struct {
		errText string
		keyword string
	}{
		{"SELECTs to the left and right of UNION do not have the same number of result columns", "column-count"},
		{"table t has 2 columns but 3 values were supplied", "column-count"},
		{"no such column: bady", "unknown column"},
		{"table notes has no column named bady", "unknown column"},
		{"no such table: missing", "missing table"},
		{"UNIQUE constraint failed: t.id", "unique constraint"},
		{"near \"boom\": syntax error", "syntax error"},
		{"database is locked", ""},
	}
	for _, tt := range tests {
		got := hintFor(tt.errText)
		if tt.keyword == "" {
			if got != "" {
				t.Errorf("hintFor(%q) = %q, want none", tt.errText, got)
			}
			continue
		}
		if !strings.Contains(got, tt.keyword) {
			t.Errorf("hintFor(%q) = %q, want contains %q", tt.errText, got, tt.keyword)
		}
	}
}
