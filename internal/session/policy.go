package session

// SQLite authorizer action codes (sqlite3.h). The driver passes these to the
// authorizer callback verbatim at statement-compile time.
const (
	actionPragma   = 19 // SQLITE_PRAGMA: arg1 = pragma name
	actionAttach   = 24 // SQLITE_ATTACH
	actionDetach   = 25 // SQLITE_DETACH
	actionFunction = 31 // SQLITE_FUNCTION: arg2 = function name
)

// Authorizer return codes.
const (
	authAllow = 0 // SQLITE_OK
	authDeny  = 1 // SQLITE_DENY
)

// SandboxPolicy holds the deny-lists enforced by the compile-time authorizer.
// The lists are data, not conditionals, so policy changes never touch the
// enforcement path.
type SandboxPolicy struct {
	// DeniedFunctions are built-in SQL functions refused at compile time.
	// These are the functions that reach the filesystem or hook extension
	// machinery.
	DeniedFunctions map[string]bool
	// DeniedPragmas are configuration pragmas refused at compile time, for
	// reads and writes alike. They reconfigure the engine in ways that
	// outlive or escape the guarded statement.
	DeniedPragmas map[string]bool
}

// DefaultPolicy returns the sandbox policy applied to every guarded session.
func DefaultPolicy() SandboxPolicy {
	return SandboxPolicy{
		DeniedFunctions: map[string]bool{
			"readfile":       true,
			"writefile":      true,
			"edit":           true,
			"load_extension": true,
			"fts3_tokenizer": true,
			"zipfile":        true,
			"fsdir":          true,
		},
		DeniedPragmas: map[string]bool{
			"writable_schema":      true,
			"journal_mode":         true,
			"wal_checkpoint":       true,
			"locking_mode":         true,
			"mmap_size":            true,
			"temp_store_directory": true,
			"data_store_directory": true,
			"hard_heap_limit":      true,
			"soft_heap_limit":      true,
			"max_page_count":       true,
			"page_size":            true,
			"schema_version":       true,
		},
	}
}

// authorize is the compile-time gate. It sees every operation of a statement
// while it is being prepared, before any row is touched.
func (p SandboxPolicy) authorize(op int, arg1, arg2 string) int {
	switch op {
	case actionAttach, actionDetach:
		return authDeny
	case actionFunction:
		if p.DeniedFunctions[lower(arg2)] {
			return authDeny
		}
	case actionPragma:
		if p.DeniedPragmas[lower(arg1)] {
			return authDeny
		}
	}
	return authAllow
}

func lower(s string) string {
	// Function and pragma names are ASCII; avoid strings.ToLower allocation
	// on the hot compile path when already lowercase.
	for i := 0; i < len(s); i++ {
		if s[i] >= 'A' && s[i] <= 'Z' {
			b := []byte(s)
			for j := i; j < len(b); j++ {
				if b[j] >= 'A' && b[j] <= 'Z' {
					b[j] += 'a' - 'A'
				}
			}
			return string(b)
		}
	}
	return s
}
