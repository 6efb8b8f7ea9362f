package records

import (
	"context"
	"database/sql"
	"fmt"
)

// ConfigEntry is one durable agent-configuration key/value pair.
type ConfigEntry struct {
	Key     string
	AgentID string
	Value   string
}

// ListConfig returns every configuration entry owned by agentID, by key.
func (s *Store) ListConfig(ctx context.Context, agentID string) ([]ConfigEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT key, agent_id, value FROM agent_config WHERE agent_id = ? ORDER BY key ASC;
	`, agentID)
	if err != nil {
		return nil, fmt.Errorf("records: list config: %w", err)
	}
	defer rows.Close()

	var result []ConfigEntry
	for rows.Next() {
		var e ConfigEntry
		if err := rows.Scan(&e.Key, &e.AgentID, &e.Value); err != nil {
			return nil, fmt.Errorf("records: scan config entry: %w", err)
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

// UpsertConfig creates or rewrites a configuration entry inside tx.
func (s *Store) UpsertConfig(ctx context.Context, tx *sql.Tx, e ConfigEntry) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO agent_config (key, agent_id, value)
		VALUES (?, ?, ?)
		ON CONFLICT(agent_id, key) DO UPDATE SET
			value = excluded.value,
			updated_at = CURRENT_TIMESTAMP;
	`, e.Key, e.AgentID, e.Value)
	if err != nil {
		return fmt.Errorf("records: upsert config %s: %w", e.Key, err)
	}
	return nil
}

// DeleteConfig removes a configuration entry inside tx.
func (s *Store) DeleteConfig(ctx context.Context, tx *sql.Tx, key, agentID string) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM agent_config WHERE key = ? AND agent_id = ?;`, key, agentID)
	if err != nil {
		return fmt.Errorf("records: delete config %s: %w", key, err)
	}
	return nil
}
