package records

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// Skill is one durable skill-library record. Tools lists the identifiers of
// the tools the skill invokes; every identifier must resolve against the
// current tool catalog before a change is applied.
type Skill struct {
	Name         string
	AgentID      string
	Description  string
	Tools        []string
	Instructions string
}

// ListSkills returns every skill owned by agentID, by name.
func (s *Store) ListSkills(ctx context.Context, agentID string) ([]Skill, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, agent_id, description, tools, instructions
		FROM skills WHERE agent_id = ? ORDER BY name ASC;
	`, agentID)
	if err != nil {
		return nil, fmt.Errorf("records: list skills: %w", err)
	}
	defer rows.Close()

	var result []Skill
	for rows.Next() {
		var sk Skill
		var tools string
		if err := rows.Scan(&sk.Name, &sk.AgentID, &sk.Description, &tools, &sk.Instructions); err != nil {
			return nil, fmt.Errorf("records: scan skill: %w", err)
		}
		if err := json.Unmarshal([]byte(tools), &sk.Tools); err != nil {
			return nil, fmt.Errorf("records: skill %s has malformed tools: %w", sk.Name, err)
		}
		result = append(result, sk)
	}
	return result, rows.Err()
}

// UpsertSkill creates or rewrites a skill inside tx.
func (s *Store) UpsertSkill(ctx context.Context, tx *sql.Tx, sk Skill) error {
	tools, err := json.Marshal(sk.Tools)
	if err != nil {
		return fmt.Errorf("records: marshal tools for %s: %w", sk.Name, err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO skills (name, agent_id, description, tools, instructions)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(agent_id, name) DO UPDATE SET
			description = excluded.description,
			tools = excluded.tools,
			instructions = excluded.instructions,
			updated_at = CURRENT_TIMESTAMP;
	`, sk.Name, sk.AgentID, sk.Description, string(tools), sk.Instructions)
	if err != nil {
		return fmt.Errorf("records: upsert skill %s: %w", sk.Name, err)
	}
	return nil
}

// DeleteSkill removes a skill inside tx.
func (s *Store) DeleteSkill(ctx context.Context, tx *sql.Tx, name, agentID string) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM skills WHERE name = ? AND agent_id = ?;`, name, agentID)
	if err != nil {
		return fmt.Errorf("records: delete skill %s: %w", name, err)
	}
	return nil
}
