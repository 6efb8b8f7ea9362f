// Package syncer bridges ephemeral mirror tables inside the scratch database
// to the durable record store. Each synchronized domain (task board, skill
// library, agent configuration) is seeded into a mirror table at cycle start,
// mutated freely by agent SQL, then diffed against its baseline and applied
// back to durable storage in one transaction per domain. Validation failures
// are collected as strings, never raised: a rejected row must not abort the
// agent's turn.
package syncer

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
)

// Querier is the slice of the guarded session the synchronizer needs.
type Querier interface {
	Exec(ctx context.Context, stmt string, args ...any) (sql.Result, error)
	Query(ctx context.Context, stmt string, args ...any) (*sql.Rows, context.CancelFunc, error)
}

// Result reports one domain's sync-back outcome. Errors here are data, not
// failures of the sync itself; callers log them and move on.
type Result struct {
	Domain         string
	Created        []string
	Updated        []string
	Removed        []string
	ForcedRemovals []string
	Errors         []string
	Changed        bool
}

// Change pairs a record's baseline and current mirror states.
type Change[R any] struct {
	Old R
	New R
}

// Delta is the validated set of differences handed to a domain's Apply.
type Delta[R any] struct {
	Created []R
	Updated []Change[R]
	Removed []R
}

func (d Delta[R]) empty() bool {
	return len(d.Created) == 0 && len(d.Updated) == 0 && len(d.Removed) == 0
}

// Domain adapts one synchronized record set to the shared
// seed → diff → validate → apply algorithm.
type Domain[R any] interface {
	// Name is the domain label used in results and error strings.
	Name() string
	// Table is the mirror table this domain owns inside the scratch database.
	Table() string
	// Seed recreates the mirror table from durable storage and returns the
	// baseline snapshot keyed by identifier.
	Seed(ctx context.Context, q Querier) (map[string]R, error)
	// Current re-reads the mirror table in full.
	Current(ctx context.Context, q Querier) (map[string]R, error)

	ID(r R) string
	Owner(r R) string
	ValidID(id string) bool
	Equal(a, b R) bool

	// ValidateCreate and ValidateUpdate return human-readable rejection
	// reasons; an empty slice admits the row into the delta.
	ValidateCreate(r R, baseline map[string]R) []string
	ValidateUpdate(old, cur R) []string

	// Terminal reports whether removing this baseline record is an expected
	// archive (true) or discards active work (false).
	Terminal(r R) bool

	// Apply commits the whole delta in one durable-store transaction.
	Apply(ctx context.Context, delta Delta[R]) error
}

// Mirror is one seeded domain for the current cycle.
type Mirror[R any] struct {
	q        Querier
	domain   Domain[R]
	agentID  string
	logger   *slog.Logger
	baseline map[string]R
}

// SeedMirror drops and recreates the domain's mirror table, fills it from
// durable storage, and captures the baseline snapshot.
func SeedMirror[R any](ctx context.Context, q Querier, d Domain[R], agentID string, logger *slog.Logger) (*Mirror[R], error) {
	if logger == nil {
		logger = slog.Default()
	}
	baseline, err := d.Seed(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("syncer: seed %s: %w", d.Name(), err)
	}
	logger.Debug("mirror seeded", "domain", d.Name(), "rows", len(baseline))
	return &Mirror[R]{q: q, domain: d, agentID: agentID, logger: logger, baseline: baseline}, nil
}

// SyncBack diffs the mirror table against the baseline, validates the delta,
// and applies the surviving changes in one durable-store transaction. It
// never returns an error: every failure, from a rejected row to a failed
// commit, lands in Result.Errors.
func (m *Mirror[R]) SyncBack(ctx context.Context) Result {
	name := m.domain.Name()
	res := Result{Domain: name}

	current, err := m.domain.Current(ctx, m.q)
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("%s: read mirror: %v", name, err))
		return res
	}

	var delta Delta[R]
	var forced []string
	for _, id := range sortedKeys(current) {
		cur := current[id]
		base, seen := m.baseline[id]
		switch {
		case !seen:
			if owner := m.domain.Owner(cur); owner != m.agentID {
				res.Errors = append(res.Errors,
					fmt.Sprintf("%s %q: owner %q does not match agent %q", name, id, owner, m.agentID))
				continue
			}
			if !m.domain.ValidID(id) {
				res.Errors = append(res.Errors, fmt.Sprintf("%s %q: malformed identifier", name, id))
				continue
			}
			if errs := m.domain.ValidateCreate(cur, m.baseline); len(errs) > 0 {
				res.Errors = append(res.Errors, errs...)
				continue
			}
			delta.Created = append(delta.Created, cur)
		case !m.domain.Equal(base, cur):
			if owner := m.domain.Owner(base); owner != m.agentID {
				res.Errors = append(res.Errors,
					fmt.Sprintf("%s %q: owner %q does not match agent %q", name, id, owner, m.agentID))
				continue
			}
			if m.domain.Owner(cur) != m.domain.Owner(base) {
				res.Errors = append(res.Errors,
					fmt.Sprintf("%s %q: ownership may not change", name, id))
				continue
			}
			if errs := m.domain.ValidateUpdate(base, cur); len(errs) > 0 {
				res.Errors = append(res.Errors, errs...)
				continue
			}
			delta.Updated = append(delta.Updated, Change[R]{Old: base, New: cur})
		}
	}
	for _, id := range sortedKeys(m.baseline) {
		if _, ok := current[id]; ok {
			continue
		}
		base := m.baseline[id]
		if owner := m.domain.Owner(base); owner != m.agentID {
			res.Errors = append(res.Errors,
				fmt.Sprintf("%s %q: owner %q does not match agent %q", name, id, owner, m.agentID))
			continue
		}
		delta.Removed = append(delta.Removed, base)
		if !m.domain.Terminal(base) {
			forced = append(forced, id)
		}
	}

	if delta.empty() {
		return res
	}
	if err := m.domain.Apply(ctx, delta); err != nil {
		m.logger.Error("sync apply failed", "domain", name, "error", err.Error())
		res.Errors = append(res.Errors,
			fmt.Sprintf("%s: apply failed, no changes committed: %v", name, err))
		return res
	}
	for _, r := range delta.Created {
		res.Created = append(res.Created, m.domain.ID(r))
	}
	for _, c := range delta.Updated {
		res.Updated = append(res.Updated, m.domain.ID(c.New))
	}
	for _, r := range delta.Removed {
		res.Removed = append(res.Removed, m.domain.ID(r))
	}
	res.ForcedRemovals = forced
	res.Changed = true
	m.logger.Info("mirror synced", "domain", name,
		"created", len(res.Created), "updated", len(res.Updated), "removed", len(res.Removed),
		"rejected", len(res.Errors))
	return res
}

// Teardown drops the mirror table. Call it unconditionally at cycle end,
// whatever SyncBack reported.
func (m *Mirror[R]) Teardown(ctx context.Context) error {
	if _, err := m.q.Exec(ctx, `DROP TABLE IF EXISTS `+m.domain.Table()); err != nil {
		return fmt.Errorf("syncer: teardown %s: %w", m.domain.Name(), err)
	}
	return nil
}

// identRe admits the name-style identifiers the skill and config domains use.
var identRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

func sortedKeys[R any](m map[string]R) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
