package syncer

import (
	"context"
	"database/sql"

	"github.com/basket/scratchdb/internal/records"
)

// ConfigMirrorTable is the agent configuration's mirror table name.
const ConfigMirrorTable = "_agent_config"

// ConfigRow is one configuration entry as the agent sees it in the mirror.
type ConfigRow struct {
	Key     string
	AgentID string
	Value   string
}

// ConfigDomain syncs the configuration mirror against durable entries. It
// has no domain-specific validation beyond the shared ownership and
// identifier checks.
type ConfigDomain struct {
	store   *records.Store
	agentID string
}

// NewConfigDomain builds the configuration domain for one agent's cycle.
func NewConfigDomain(store *records.Store, agentID string) *ConfigDomain {
	return &ConfigDomain{store: store, agentID: agentID}
}

func (d *ConfigDomain) Name() string  { return "agent_config" }
func (d *ConfigDomain) Table() string { return ConfigMirrorTable }

func (d *ConfigDomain) Seed(ctx context.Context, q Querier) (map[string]ConfigRow, error) {
	entries, err := d.store.ListConfig(ctx, d.agentID)
	if err != nil {
		return nil, err
	}
	if _, err := q.Exec(ctx, `DROP TABLE IF EXISTS `+ConfigMirrorTable); err != nil {
		return nil, err
	}
	if _, err := q.Exec(ctx, `
		CREATE TABLE `+ConfigMirrorTable+` (
			key      TEXT PRIMARY KEY,
			agent_id TEXT NOT NULL,
			value    TEXT NOT NULL DEFAULT ''
		)`); err != nil {
		return nil, err
	}

	baseline := make(map[string]ConfigRow, len(entries))
	for _, e := range entries {
		row := ConfigRow{Key: e.Key, AgentID: e.AgentID, Value: e.Value}
		if _, err := q.Exec(ctx, `
			INSERT INTO `+ConfigMirrorTable+` (key, agent_id, value) VALUES (?, ?, ?)`,
			row.Key, row.AgentID, row.Value); err != nil {
			return nil, err
		}
		baseline[row.Key] = row
	}
	return baseline, nil
}

func (d *ConfigDomain) Current(ctx context.Context, q Querier) (map[string]ConfigRow, error) {
	rows, cancel, err := q.Query(ctx, `SELECT key, agent_id, value FROM `+ConfigMirrorTable)
	if err != nil {
		return nil, err
	}
	defer cancel()
	defer rows.Close()

	out := make(map[string]ConfigRow)
	for rows.Next() {
		var r ConfigRow
		if err := rows.Scan(&r.Key, &r.AgentID, &r.Value); err != nil {
			return nil, err
		}
		out[r.Key] = r
	}
	return out, rows.Err()
}

func (d *ConfigDomain) ID(r ConfigRow) string     { return r.Key }
func (d *ConfigDomain) Owner(r ConfigRow) string  { return r.AgentID }
func (d *ConfigDomain) ValidID(id string) bool    { return identRe.MatchString(id) }
func (d *ConfigDomain) Equal(a, b ConfigRow) bool { return a == b }
func (d *ConfigDomain) Terminal(r ConfigRow) bool { return true }

func (d *ConfigDomain) ValidateCreate(ConfigRow, map[string]ConfigRow) []string { return nil }
func (d *ConfigDomain) ValidateUpdate(_, _ ConfigRow) []string                  { return nil }

func (d *ConfigDomain) Apply(ctx context.Context, delta Delta[ConfigRow]) error {
	return d.store.WithTx(ctx, func(tx *sql.Tx) error {
		upsert := func(r ConfigRow) error {
			return d.store.UpsertConfig(ctx, tx, records.ConfigEntry{
				Key: r.Key, AgentID: r.AgentID, Value: r.Value,
			})
		}
		for _, r := range delta.Created {
			if err := upsert(r); err != nil {
				return err
			}
		}
		for _, c := range delta.Updated {
			if err := upsert(c.New); err != nil {
				return err
			}
		}
		for _, r := range delta.Removed {
			if err := d.store.DeleteConfig(ctx, tx, r.Key, d.agentID); err != nil {
				return err
			}
		}
		return nil
	})
}
