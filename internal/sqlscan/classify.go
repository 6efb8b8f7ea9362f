package sqlscan

// Kind is the coarse classification of a single statement.
type Kind int

const (
	// KindRead covers statements that produce (or may produce) a result set,
	// plus anything the scanner could not confidently classify.
	KindRead Kind = iota
	// KindWrite covers pure writes with no result set.
	KindWrite
	// KindBlocked covers statement shapes the sandbox refuses outright.
	KindBlocked
)

// Classification is the result of Classify.
type Classification struct {
	Kind Kind
	// Reason is set only for KindBlocked.
	Reason string
}

// writeKeywords are the leading keywords of statements that never return
// rows on their own. A RETURNING clause overrides the classification.
var writeKeywords = map[string]bool{
	"INSERT":  true,
	"UPDATE":  true,
	"DELETE":  true,
	"REPLACE": true,
	"CREATE":  true,
	"ALTER":   true,
	"DROP":    true,
}

// Classify determines whether a single statement is a pure write, a read, or
// a blocked shape. Misclassifying a write as a read only costs the caller an
// extra turn, so every ambiguous path falls back to KindRead; the reverse
// (calling a read a write) would let the session auto-terminate with unread
// results, so it never happens on a parse failure.
func Classify(sql string) Classification {
	if reason := Guard(sql); reason != "" {
		return Classification{Kind: KindBlocked, Reason: reason}
	}

	toks := tokenize(strip(sql))
	if len(toks) == 0 {
		return Classification{Kind: KindRead}
	}

	idx := 0
	if toks[idx] == "WITH" {
		var ok bool
		idx, ok = skipCTE(toks)
		if !ok {
			return Classification{Kind: KindRead}
		}
	}
	if idx >= len(toks) {
		return Classification{Kind: KindRead}
	}

	if !writeKeywords[toks[idx]] {
		return Classification{Kind: KindRead}
	}
	// A trailing RETURNING clause produces rows the caller must inspect.
	for _, tok := range toks[idx:] {
		if tok == "RETURNING" {
			return Classification{Kind: KindRead}
		}
	}
	return Classification{Kind: KindWrite}
}

// skipCTE advances past a leading WITH clause (one or more comma-separated
// common table expressions) and returns the index of the statement's real
// first keyword. Best effort: returns ok=false when the clause does not scan,
// and the caller treats the statement as a read.
func skipCTE(toks []string) (int, bool) {
	idx := 1 // past WITH
	if idx < len(toks) && toks[idx] == "RECURSIVE" {
		idx++
	}
	for {
		// CTE name.
		if idx >= len(toks) || !isWordToken(toks[idx]) {
			return 0, false
		}
		idx++
		// Optional column list.
		if idx < len(toks) && toks[idx] == "(" {
			idx = skipParens(toks, idx)
			if idx < 0 {
				return 0, false
			}
		}
		if idx >= len(toks) || toks[idx] != "AS" {
			return 0, false
		}
		idx++
		// Optional [NOT] MATERIALIZED.
		if idx < len(toks) && toks[idx] == "NOT" {
			idx++
		}
		if idx < len(toks) && toks[idx] == "MATERIALIZED" {
			idx++
		}
		// CTE body.
		if idx >= len(toks) || toks[idx] != "(" {
			return 0, false
		}
		idx = skipParens(toks, idx)
		if idx < 0 {
			return 0, false
		}
		if idx < len(toks) && toks[idx] == "," {
			idx++
			continue
		}
		return idx, true
	}
}
