package digest

import (
	"context"
	"fmt"
	"strings"
)

// Explicit foreign keys come from engine metadata and are certain; implicit
// ones are name-based guesses and carry a fixed lower confidence.
const (
	explicitFKConfidence = 1.0
	implicitFKConfidence = 0.8
)

func (d *Digestor) relationships(ctx context.Context, q Querier, tables []TableDigest) ([]Relationship, int, error) {
	var rels []Relationship
	explicitCols := make(map[string]bool)

	for _, t := range tables {
		rows, cancel, err := q.Query(ctx, `SELECT "table", "from", "to" FROM pragma_foreign_key_list(?)`, t.Name)
		if err != nil {
			return nil, 0, fmt.Errorf("digest: foreign keys of %s: %w", t.Name, err)
		}
		for rows.Next() {
			var target, from, to string
			if err := rows.Scan(&target, &from, &to); err != nil {
				rows.Close()
				cancel()
				return nil, 0, fmt.Errorf("digest: scan foreign key: %w", err)
			}
			rels = append(rels, Relationship{
				FromTable: t.Name, FromColumn: from,
				ToTable: target, ToColumn: to,
				Confidence: explicitFKConfidence,
			})
			explicitCols[t.Name+"."+from] = true
		}
		err = rows.Err()
		rows.Close()
		cancel()
		if err != nil {
			return nil, 0, fmt.Errorf("digest: foreign keys of %s: %w", t.Name, err)
		}
	}
	explicit := len(rels)

	rels = append(rels, d.implicitFKs(tables, explicitCols)...)
	return rels, explicit, nil
}

// implicitFKs proposes relationships for non-key columns named <noun>_id
// whose noun (or its plural) names exactly one other table with a primary
// key. An ambiguous noun proposes nothing: a wrong edge is worse than a
// missing one.
func (d *Digestor) implicitFKs(tables []TableDigest, explicitCols map[string]bool) []Relationship {
	names := make(map[string]bool, len(tables))
	pkOf := make(map[string]string, len(tables))
	for _, t := range tables {
		names[t.Name] = true
		for _, c := range t.Columns {
			if c.PrimaryKey {
				pkOf[t.Name] = c.Name
				break
			}
		}
	}

	var rels []Relationship
	for _, t := range tables {
		for _, c := range t.Columns {
			if len(rels) >= d.opts.MaxImplicitFKs {
				return rels
			}
			if c.PrimaryKey || !strings.HasSuffix(c.Name, "_id") || explicitCols[t.Name+"."+c.Name] {
				continue
			}
			noun := strings.TrimSuffix(c.Name, "_id")
			if noun == "" {
				continue
			}
			var matches []string
			for _, candidate := range []string{noun, noun + "s"} {
				if candidate != t.Name && names[candidate] {
					matches = append(matches, candidate)
				}
			}
			if len(matches) != 1 {
				continue
			}
			target := matches[0]
			pk, ok := pkOf[target]
			if !ok {
				continue
			}
			rels = append(rels, Relationship{
				FromTable: t.Name, FromColumn: c.Name,
				ToTable: target, ToColumn: pk,
				Confidence: implicitFKConfidence, Implicit: true,
			})
		}
	}
	return rels
}
