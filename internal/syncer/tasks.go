package syncer

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/basket/scratchdb/internal/records"
)

// TaskMirrorTable is the task board's mirror table name.
const TaskMirrorTable = "_task_board"

// TaskRow is a task card as the agent sees it in the mirror table.
type TaskRow struct {
	ID          string
	AgentID     string
	Title       string
	Description string
	Status      string
	Priority    int64
}

// TasksDomain syncs the task board mirror against durable task cards. It
// guards against duplicate-title inserts (the common "INSERT a status change
// instead of UPDATE" misuse) and owns completion-timestamp stamping.
type TasksDomain struct {
	store   *records.Store
	agentID string
	durable map[string]records.TaskCard
	now     func() time.Time
}

// NewTasksDomain builds the task-board domain for one agent's cycle.
func NewTasksDomain(store *records.Store, agentID string) *TasksDomain {
	return &TasksDomain{store: store, agentID: agentID, now: time.Now}
}

func (d *TasksDomain) Name() string  { return "task_board" }
func (d *TasksDomain) Table() string { return TaskMirrorTable }

func (d *TasksDomain) Seed(ctx context.Context, q Querier) (map[string]TaskRow, error) {
	cards, err := d.store.ListTasks(ctx, d.agentID)
	if err != nil {
		return nil, err
	}
	if _, err := q.Exec(ctx, `DROP TABLE IF EXISTS `+TaskMirrorTable); err != nil {
		return nil, err
	}
	if _, err := q.Exec(ctx, `
		CREATE TABLE `+TaskMirrorTable+` (
			id          TEXT PRIMARY KEY,
			agent_id    TEXT NOT NULL,
			title       TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			status      TEXT NOT NULL DEFAULT 'todo',
			priority    INTEGER NOT NULL DEFAULT 0
		)`); err != nil {
		return nil, err
	}

	d.durable = make(map[string]records.TaskCard, len(cards))
	baseline := make(map[string]TaskRow, len(cards))
	for _, c := range cards {
		d.durable[c.ID] = c
		row := TaskRow{
			ID: c.ID, AgentID: c.AgentID, Title: c.Title,
			Description: c.Description, Status: c.Status, Priority: c.Priority,
		}
		if _, err := q.Exec(ctx, `
			INSERT INTO `+TaskMirrorTable+` (id, agent_id, title, description, status, priority)
			VALUES (?, ?, ?, ?, ?, ?)`,
			row.ID, row.AgentID, row.Title, row.Description, row.Status, row.Priority); err != nil {
			return nil, err
		}
		baseline[c.ID] = row
	}
	return baseline, nil
}

func (d *TasksDomain) Current(ctx context.Context, q Querier) (map[string]TaskRow, error) {
	rows, cancel, err := q.Query(ctx, `
		SELECT id, agent_id, title, description, status, priority FROM `+TaskMirrorTable)
	if err != nil {
		return nil, err
	}
	defer cancel()
	defer rows.Close()

	out := make(map[string]TaskRow)
	for rows.Next() {
		var r TaskRow
		if err := rows.Scan(&r.ID, &r.AgentID, &r.Title, &r.Description, &r.Status, &r.Priority); err != nil {
			return nil, err
		}
		out[r.ID] = r
	}
	return out, rows.Err()
}

func (d *TasksDomain) ID(r TaskRow) string     { return r.ID }
func (d *TasksDomain) Owner(r TaskRow) string  { return r.AgentID }
func (d *TasksDomain) ValidID(id string) bool  { return uuid.Validate(id) == nil }
func (d *TasksDomain) Equal(a, b TaskRow) bool { return a == b }
func (d *TasksDomain) Terminal(r TaskRow) bool { return records.TaskTerminal(r.Status) }

func (d *TasksDomain) ValidateCreate(r TaskRow, baseline map[string]TaskRow) []string {
	var errs []string
	if !validTaskStatus(r.Status) {
		errs = append(errs, fmt.Sprintf("task %q: unknown status %q", r.ID, r.Status))
	}
	for _, base := range baseline {
		if strings.EqualFold(strings.TrimSpace(base.Title), strings.TrimSpace(r.Title)) {
			errs = append(errs, fmt.Sprintf(
				"task %q: title %q duplicates existing task %s; UPDATE the existing card instead of inserting a new one",
				r.ID, r.Title, base.ID))
			break
		}
	}
	return errs
}

func (d *TasksDomain) ValidateUpdate(old, cur TaskRow) []string {
	if !validTaskStatus(cur.Status) {
		return []string{fmt.Sprintf("task %q: unknown status %q", cur.ID, cur.Status)}
	}
	return nil
}

// Apply commits the delta in one transaction. A transition into the done
// state stamps completed_at when not already set; a transition out of it
// clears the stamp.
func (d *TasksDomain) Apply(ctx context.Context, delta Delta[TaskRow]) error {
	return d.store.WithTx(ctx, func(tx *sql.Tx) error {
		for _, r := range delta.Created {
			card := records.TaskCard{
				ID: r.ID, AgentID: r.AgentID, Title: r.Title,
				Description: r.Description, Status: r.Status, Priority: r.Priority,
			}
			if records.TaskTerminal(card.Status) {
				card.CompletedAt = d.stamp()
			}
			if err := d.store.InsertTask(ctx, tx, card); err != nil {
				return err
			}
		}
		for _, c := range delta.Updated {
			card := d.durable[c.New.ID]
			card.Title = c.New.Title
			card.Description = c.New.Description
			card.Status = c.New.Status
			card.Priority = c.New.Priority
			switch {
			case records.TaskTerminal(card.Status) && card.CompletedAt == nil:
				card.CompletedAt = d.stamp()
			case !records.TaskTerminal(card.Status):
				card.CompletedAt = nil
			}
			if err := d.store.UpdateTask(ctx, tx, card); err != nil {
				return err
			}
		}
		for _, r := range delta.Removed {
			if err := d.store.DeleteTask(ctx, tx, r.ID, d.agentID); err != nil {
				return err
			}
		}
		return nil
	})
}

func (d *TasksDomain) stamp() *time.Time {
	t := d.now().UTC()
	return &t
}

func validTaskStatus(status string) bool {
	switch status {
	case records.TaskStatusTodo, records.TaskStatusDoing, records.TaskStatusBlocked, records.TaskStatusDone:
		return true
	}
	return false
}
