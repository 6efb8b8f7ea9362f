package digest

import "fmt"

// Schema shapes from relationship density.
const (
	ShapeFlat       = "flat"
	ShapeStar       = "star"
	ShapeNormalized = "normalized"
	ShapeRelational = "relational"
	ShapeLoose      = "loosely_coupled"
)

const relationalDensity = 0.5

func classifyShape(tables []TableDigest, rels []Relationship) string {
	if len(tables) == 0 || len(rels) == 0 {
		return ShapeFlat
	}
	density := float64(len(rels)) / float64(len(tables))

	targetCounts := make(map[string]int)
	maxTargets := 0
	for _, r := range rels {
		targetCounts[r.ToTable]++
		if targetCounts[r.ToTable] > maxTargets {
			maxTargets = targetCounts[r.ToTable]
		}
	}
	hasJunction := false
	for _, t := range tables {
		if t.Role == RoleJunction {
			hasJunction = true
			break
		}
	}

	switch {
	case maxTargets >= 2 && 2*maxTargets > len(rels):
		return ShapeStar
	case hasJunction && density > 1:
		return ShapeNormalized
	case density >= relationalDensity:
		return ShapeRelational
	default:
		return ShapeLoose
	}
}

// Verdict cutoffs over the weighted score.
const (
	cleanCutoff  = 0.8
	usableCutoff = 0.6
	messyCutoff  = 0.4
)

// score combines type consistency, inverse null density, relationship
// presence, shape, and role bonuses into one quality number, then maps it
// through fixed cutoffs.
func score(dig Digest) (float64, string) {
	var columns, typed int
	var nullSum float64
	for _, t := range dig.Tables {
		for _, c := range t.Columns {
			columns++
			if c.ActualType != "mixed" {
				typed++
			}
			nullSum += c.NullFrac
		}
	}
	typeScore, nullScore := 1.0, 1.0
	if columns > 0 {
		typeScore = float64(typed) / float64(columns)
		nullScore = 1 - nullSum/float64(columns)
	}

	relScore := 0.0
	if len(dig.Relationships) > 0 {
		relScore = 1
	}
	shapeScore := map[string]float64{
		ShapeNormalized: 1, ShapeStar: 0.8, ShapeRelational: 0.6, ShapeLoose: 0.3,
	}[dig.Shape]

	lookupScore, logScore := 0.0, 0.0
	for _, t := range dig.Tables {
		switch t.Role {
		case RoleLookup:
			lookupScore = 1
		case RoleLog:
			logScore = 1
		}
	}

	s := 0.35*typeScore + 0.25*nullScore + 0.15*relScore + 0.15*shapeScore +
		0.05*lookupScore + 0.05*logScore

	switch {
	case s >= cleanCutoff:
		return s, VerdictClean
	case s >= usableCutoff:
		return s, VerdictUsable
	case s >= messyCutoff:
		return s, VerdictMessy
	default:
		return s, VerdictChaotic
	}
}

const largeTableRows = 10_000

func flags(dig Digest) []string {
	var large, mixed, jsonCols, sparse int
	for _, t := range dig.Tables {
		if t.RowCount > largeTableRows {
			large++
		}
		for _, c := range t.Columns {
			if c.ActualType == "mixed" {
				mixed++
			}
			if c.Pattern == "json_object" || c.Pattern == "json_array" {
				jsonCols++
			}
			if c.NullFrac > 0.5 {
				sparse++
			}
		}
	}

	var out []string
	if large > 0 {
		out = append(out, fmt.Sprintf("large_tables(%d)", large))
	}
	if mixed > 0 {
		out = append(out, fmt.Sprintf("mixed_types(%d)", mixed))
	}
	if jsonCols > 0 {
		out = append(out, fmt.Sprintf("has_json(%d)", jsonCols))
	}
	if sparse > 0 {
		out = append(out, fmt.Sprintf("sparse_columns(%d)", sparse))
	}
	if len(dig.Relationships) == 0 {
		out = append(out, "no_relationships")
	}
	return out
}
