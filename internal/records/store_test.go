package records

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/basket/scratchdb/internal/telemetry"
	"github.com/google/uuid"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "records.db"), telemetry.NewTestLogger(io.Discard))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestTaskRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	agent := "agent-1"

	task := TaskCard{
		ID:          uuid.NewString(),
		AgentID:     agent,
		Title:       "write report",
		Description: "quarterly numbers",
		Status:      TaskStatusTodo,
		Priority:    2,
	}
	err := store.WithTx(ctx, func(tx *sql.Tx) error {
		return store.InsertTask(ctx, tx, task)
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := store.ListTasks(ctx, agent)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].Title != "write report" || got[0].CompletedAt != nil {
		t.Fatalf("list = %+v", got)
	}

	now := time.Now().UTC().Truncate(time.Second)
	task.Status = TaskStatusDone
	task.CompletedAt = &now
	err = store.WithTx(ctx, func(tx *sql.Tx) error {
		return store.UpdateTask(ctx, tx, task)
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ = store.ListTasks(ctx, agent)
	if got[0].Status != TaskStatusDone || got[0].CompletedAt == nil {
		t.Fatalf("after update = %+v", got[0])
	}

	err = store.WithTx(ctx, func(tx *sql.Tx) error {
		return store.DeleteTask(ctx, tx, task.ID, agent)
	})
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, _ = store.ListTasks(ctx, agent)
	if len(got) != 0 {
		t.Fatalf("after delete = %+v", got)
	}
}

func TestListTasksIsolatedPerAgent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	for _, agent := range []string{"a", "b"} {
		task := TaskCard{ID: uuid.NewString(), AgentID: agent, Title: "task for " + agent, Status: TaskStatusTodo}
		if err := store.WithTx(ctx, func(tx *sql.Tx) error { return store.InsertTask(ctx, tx, task) }); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	got, err := store.ListTasks(ctx, "a")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].Title != "task for a" {
		t.Fatalf("isolation broken: %+v", got)
	}
}

func TestSkillRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	sk := Skill{
		Name:         "summarize-feed",
		AgentID:      "agent-1",
		Description:  "summarize rss items",
		Tools:        []string{"web_fetch", "summarize"},
		Instructions: "fetch then summarize",
	}
	err := store.WithTx(ctx, func(tx *sql.Tx) error { return store.UpsertSkill(ctx, tx, sk) })
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := store.ListSkills(ctx, "agent-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || len(got[0].Tools) != 2 || got[0].Tools[0] != "web_fetch" {
		t.Fatalf("list = %+v", got)
	}

	// Upsert overwrites.
	sk.Tools = []string{"web_fetch"}
	if err := store.WithTx(ctx, func(tx *sql.Tx) error { return store.UpsertSkill(ctx, tx, sk) }); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	got, _ = store.ListSkills(ctx, "agent-1")
	if len(got) != 1 || len(got[0].Tools) != 1 {
		t.Fatalf("after overwrite = %+v", got)
	}
}

func TestConfigRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	entry := ConfigEntry{Key: "tone", AgentID: "agent-1", Value: "formal"}
	if err := store.WithTx(ctx, func(tx *sql.Tx) error { return store.UpsertConfig(ctx, tx, entry) }); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	got, err := store.ListConfig(ctx, "agent-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].Value != "formal" {
		t.Fatalf("list = %+v", got)
	}
	if err := store.WithTx(ctx, func(tx *sql.Tx) error { return store.DeleteConfig(ctx, tx, "tone", "agent-1") }); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, _ = store.ListConfig(ctx, "agent-1")
	if len(got) != 0 {
		t.Fatalf("after delete = %+v", got)
	}
}

func TestWithTxRollsBackOnError(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	boom := errors.New("boom")
	err := store.WithTx(ctx, func(tx *sql.Tx) error {
		task := TaskCard{ID: uuid.NewString(), AgentID: "a", Title: "doomed", Status: TaskStatusTodo}
		if err := store.InsertTask(ctx, tx, task); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	got, _ := store.ListTasks(ctx, "a")
	if len(got) != 0 {
		t.Fatalf("rollback failed, tasks = %+v", got)
	}
}

func TestTaskTerminal(t *testing.T) {
	if !TaskTerminal(TaskStatusDone) {
		t.Error("done should be terminal")
	}
	for _, s := range []string{TaskStatusTodo, TaskStatusDoing, TaskStatusBlocked} {
		if TaskTerminal(s) {
			t.Errorf("%s should not be terminal", s)
		}
	}
}
