package sqlscan

import "testing"

func TestGuardBlocksMaintenance(t *testing.T) {
	tests := []struct {
		name string
		sql  string
	}{
		{"vacuum", "VACUUM"},
		{"vacuum lowercase", "vacuum"},
		{"vacuum into", "VACUUM INTO '/tmp/evil.db'"},
		{"reindex", "REINDEX notes"},
		{"analyze", "ANALYZE"},
		{"attach", "ATTACH DATABASE '/etc/passwd' AS pwn"},
		{"detach", "DETACH DATABASE pwn"},
		{"vacuum after comment", "/* harmless */ VACUUM"},
		{"begin transaction", "BEGIN TRANSACTION"},
		{"commit", "COMMIT"},
		{"savepoint", "SAVEPOINT sp1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if reason := Guard(tt.sql); reason == "" {
				t.Errorf("Guard(%q) = empty, want block reason", tt.sql)
			}
		})
	}
}

func TestGuardAllowsNormalStatements(t *testing.T) {
	tests := []struct {
		name string
		sql  string
	}{
		{"select", "SELECT * FROM notes"},
		{"insert", "INSERT INTO notes(body) VALUES ('hello')"},
		{"vacuum in string literal", "INSERT INTO notes(body) VALUES ('please VACUUM later')"},
		{"vacuum in line comment", "SELECT 1 -- VACUUM"},
		{"vacuum in block comment", "SELECT 1 /* VACUUM */"},
		{"attach in quoted identifier", `SELECT "attach" FROM t`},
		{"trigger with begin end", "CREATE TRIGGER trg AFTER INSERT ON t BEGIN UPDATE t SET n = n + 1; END"},
		{"pragma table_info", "PRAGMA table_info(notes)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if reason := Guard(tt.sql); reason != "" {
				t.Errorf("Guard(%q) = %q, want no block", tt.sql, reason)
			}
		})
	}
}
