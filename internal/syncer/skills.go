package syncer

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/basket/scratchdb/internal/records"
)

// SkillMirrorTable is the skill library's mirror table name.
const SkillMirrorTable = "_skill_library"

// ToolResolver reports whether a tool identifier is currently resolvable.
// Skills referencing unresolvable tools are rejected whole.
type ToolResolver interface {
	ResolveTool(name string) bool
}

// StaticTools is a fixed tool catalog.
type StaticTools map[string]bool

// NewStaticTools builds a catalog from tool names.
func NewStaticTools(names ...string) StaticTools {
	s := make(StaticTools, len(names))
	for _, n := range names {
		s[n] = true
	}
	return s
}

func (s StaticTools) ResolveTool(name string) bool { return s[name] }

// SkillRow is a skill as the agent sees it in the mirror table. Tools stays
// a raw JSON string here so a malformed value surfaces as a validation error
// instead of being misread during the diff.
type SkillRow struct {
	Name         string
	AgentID      string
	Description  string
	ToolsJSON    string
	Instructions string
}

// SkillsDomain syncs the skill library mirror against durable skills.
type SkillsDomain struct {
	store   *records.Store
	agentID string
	tools   ToolResolver
}

// NewSkillsDomain builds the skill-library domain for one agent's cycle.
func NewSkillsDomain(store *records.Store, agentID string, tools ToolResolver) *SkillsDomain {
	return &SkillsDomain{store: store, agentID: agentID, tools: tools}
}

func (d *SkillsDomain) Name() string  { return "skill_library" }
func (d *SkillsDomain) Table() string { return SkillMirrorTable }

func (d *SkillsDomain) Seed(ctx context.Context, q Querier) (map[string]SkillRow, error) {
	skills, err := d.store.ListSkills(ctx, d.agentID)
	if err != nil {
		return nil, err
	}
	if _, err := q.Exec(ctx, `DROP TABLE IF EXISTS `+SkillMirrorTable); err != nil {
		return nil, err
	}
	if _, err := q.Exec(ctx, `
		CREATE TABLE `+SkillMirrorTable+` (
			name         TEXT PRIMARY KEY,
			agent_id     TEXT NOT NULL,
			description  TEXT NOT NULL DEFAULT '',
			tools        TEXT NOT NULL DEFAULT '[]',
			instructions TEXT NOT NULL DEFAULT ''
		)`); err != nil {
		return nil, err
	}

	baseline := make(map[string]SkillRow, len(skills))
	for _, sk := range skills {
		tools, err := json.Marshal(sk.Tools)
		if err != nil {
			return nil, err
		}
		row := SkillRow{
			Name: sk.Name, AgentID: sk.AgentID, Description: sk.Description,
			ToolsJSON: string(tools), Instructions: sk.Instructions,
		}
		if _, err := q.Exec(ctx, `
			INSERT INTO `+SkillMirrorTable+` (name, agent_id, description, tools, instructions)
			VALUES (?, ?, ?, ?, ?)`,
			row.Name, row.AgentID, row.Description, row.ToolsJSON, row.Instructions); err != nil {
			return nil, err
		}
		baseline[row.Name] = row
	}
	return baseline, nil
}

func (d *SkillsDomain) Current(ctx context.Context, q Querier) (map[string]SkillRow, error) {
	rows, cancel, err := q.Query(ctx, `
		SELECT name, agent_id, description, tools, instructions FROM `+SkillMirrorTable)
	if err != nil {
		return nil, err
	}
	defer cancel()
	defer rows.Close()

	out := make(map[string]SkillRow)
	for rows.Next() {
		var r SkillRow
		if err := rows.Scan(&r.Name, &r.AgentID, &r.Description, &r.ToolsJSON, &r.Instructions); err != nil {
			return nil, err
		}
		out[r.Name] = r
	}
	return out, rows.Err()
}

func (d *SkillsDomain) ID(r SkillRow) string     { return r.Name }
func (d *SkillsDomain) Owner(r SkillRow) string  { return r.AgentID }
func (d *SkillsDomain) ValidID(id string) bool   { return identRe.MatchString(id) }
func (d *SkillsDomain) Equal(a, b SkillRow) bool { return a == b }

// Terminal is always true for skills: removing one is an ordinary archive,
// there is no "still active" state to force through.
func (d *SkillsDomain) Terminal(r SkillRow) bool { return true }

func (d *SkillsDomain) ValidateCreate(r SkillRow, _ map[string]SkillRow) []string {
	return d.validateTools(r)
}

func (d *SkillsDomain) ValidateUpdate(_, cur SkillRow) []string {
	return d.validateTools(cur)
}

// validateTools parses the tools field and resolves every referenced tool.
// Any unknown reference rejects the whole record; nothing is silently
// dropped, and the existing durable record stays untouched.
func (d *SkillsDomain) validateTools(r SkillRow) []string {
	tools, err := parseTools(r.ToolsJSON)
	if err != nil {
		return []string{fmt.Sprintf(
			"skill %q: tools is not a valid JSON string array; existing record left untouched", r.Name)}
	}
	var errs []string
	for _, t := range tools {
		if !d.tools.ResolveTool(t) {
			errs = append(errs, fmt.Sprintf("skill %q: unknown tool %q", r.Name, t))
		}
	}
	return errs
}

func (d *SkillsDomain) Apply(ctx context.Context, delta Delta[SkillRow]) error {
	return d.store.WithTx(ctx, func(tx *sql.Tx) error {
		upsert := func(r SkillRow) error {
			tools, err := parseTools(r.ToolsJSON)
			if err != nil {
				return fmt.Errorf("skill %s: %w", r.Name, err)
			}
			return d.store.UpsertSkill(ctx, tx, records.Skill{
				Name: r.Name, AgentID: r.AgentID, Description: r.Description,
				Tools: tools, Instructions: r.Instructions,
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
			if err := d.store.DeleteSkill(ctx, tx, r.Name, d.agentID); err != nil {
				return err
			}
		}
		return nil
	})
}

func parseTools(raw string) ([]string, error) {
	tools := []string{}
	if err := json.Unmarshal([]byte(raw), &tools); err != nil {
		return nil, err
	}
	return tools, nil
}
