package records

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Task board statuses. StatusDone is the terminal "done"-equivalent state;
// entering it stamps completed_at and leaving it clears the stamp.
const (
	TaskStatusTodo    = "todo"
	TaskStatusDoing   = "doing"
	TaskStatusBlocked = "blocked"
	TaskStatusDone    = "done"
)

// TaskTerminal reports whether status is a terminal state for removal
// accounting: deleting a terminal task is an expected archive, deleting an
// active one discards incomplete work.
func TaskTerminal(status string) bool {
	return status == TaskStatusDone
}

// TaskCard is one durable task-board record.
type TaskCard struct {
	ID          string
	AgentID     string
	Title       string
	Description string
	Status      string
	Priority    int64
	CompletedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ListTasks returns every task card owned by agentID, oldest first.
func (s *Store) ListTasks(ctx context.Context, agentID string) ([]TaskCard, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, agent_id, title, description, status, priority, completed_at, created_at, updated_at
		FROM task_cards WHERE agent_id = ? ORDER BY created_at ASC, id ASC;
	`, agentID)
	if err != nil {
		return nil, fmt.Errorf("records: list tasks: %w", err)
	}
	defer rows.Close()

	var result []TaskCard
	for rows.Next() {
		var t TaskCard
		var completed sql.NullTime
		if err := rows.Scan(&t.ID, &t.AgentID, &t.Title, &t.Description, &t.Status, &t.Priority,
			&completed, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("records: scan task: %w", err)
		}
		if completed.Valid {
			ts := completed.Time
			t.CompletedAt = &ts
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

// InsertTask creates a task card inside tx.
func (s *Store) InsertTask(ctx context.Context, tx *sql.Tx, t TaskCard) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO task_cards (id, agent_id, title, description, status, priority, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?);
	`, t.ID, t.AgentID, t.Title, t.Description, t.Status, t.Priority, nullableTime(t.CompletedAt))
	if err != nil {
		return fmt.Errorf("records: insert task %s: %w", t.ID, err)
	}
	return nil
}

// UpdateTask rewrites a task card's mutable fields inside tx. Ownership never
// changes here; the synchronizer rejects ownership edits before apply.
func (s *Store) UpdateTask(ctx context.Context, tx *sql.Tx, t TaskCard) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE task_cards
		SET title = ?, description = ?, status = ?, priority = ?, completed_at = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND agent_id = ?;
	`, t.Title, t.Description, t.Status, t.Priority, nullableTime(t.CompletedAt), t.ID, t.AgentID)
	if err != nil {
		return fmt.Errorf("records: update task %s: %w", t.ID, err)
	}
	return nil
}

// DeleteTask removes a task card inside tx.
func (s *Store) DeleteTask(ctx context.Context, tx *sql.Tx, id, agentID string) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM task_cards WHERE id = ? AND agent_id = ?;`, id, agentID)
	if err != nil {
		return fmt.Errorf("records: delete task %s: %w", id, err)
	}
	return nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
