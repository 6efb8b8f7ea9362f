package sqlscan

// blockedAnywhere lists maintenance keywords refused wherever they appear
// outside comments and literals. The engine instance is shared across agent
// identities, so whole-database maintenance from agent SQL could stall or
// corrupt it. False positives (an unquoted column literally named "vacuum")
// are acceptable; the guard is advisory-mandatory and errs toward refusal.
var blockedAnywhere = map[string]string{
	"VACUUM":  "VACUUM is managed by the storage lifecycle, not agent SQL",
	"REINDEX": "REINDEX is not allowed in the scratch database",
	"ANALYZE": "ANALYZE is not allowed in the scratch database",
	"ATTACH":  "ATTACH is not allowed: the scratch database is single-file",
	"DETACH":  "DETACH is not allowed: the scratch database is single-file",
}

// blockedLeading lists keywords refused only as a statement's first keyword.
// Explicit transaction control would break the executor's
// one-commit-per-statement contract; BEGIN and END also appear legitimately
// inside trigger bodies, which is why these are position-sensitive.
var blockedLeading = map[string]string{
	"BEGIN":     "explicit transactions are not allowed: statements commit individually",
	"COMMIT":    "explicit transactions are not allowed: statements commit individually",
	"ROLLBACK":  "explicit transactions are not allowed: statements commit individually",
	"SAVEPOINT": "explicit transactions are not allowed: statements commit individually",
	"RELEASE":   "explicit transactions are not allowed: statements commit individually",
	"END":       "explicit transactions are not allowed: statements commit individually",
}

// Guard runs the lexical pre-check on one statement and returns a block
// reason, or "" when the statement may be handed to the engine. Callers must
// refuse to execute when a reason comes back: this check covers statement
// shapes the compile-time authorizer cannot see structurally.
func Guard(sql string) string {
	toks := tokenize(strip(sql))
	if len(toks) == 0 {
		return ""
	}
	if reason, ok := blockedLeading[toks[0]]; ok {
		return reason
	}
	for _, tok := range toks {
		if reason, ok := blockedAnywhere[tok]; ok {
			return reason
		}
	}
	return ""
}
