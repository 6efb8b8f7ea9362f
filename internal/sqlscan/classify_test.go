package sqlscan

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want Kind
	}{
		{"select", "SELECT * FROM notes", KindRead},
		{"insert", "INSERT INTO notes(body) VALUES ('x')", KindWrite},
		{"update", "update notes set body = 'y' where id = 1", KindWrite},
		{"delete", "DELETE FROM notes", KindWrite},
		{"replace", "REPLACE INTO notes(id, body) VALUES (1, 'z')", KindWrite},
		{"create table", "CREATE TABLE t (a INTEGER)", KindWrite},
		{"alter", "ALTER TABLE t ADD COLUMN b TEXT", KindWrite},
		{"drop", "DROP TABLE t", KindWrite},
		{"pragma read", "PRAGMA table_info(notes)", KindRead},
		{"insert returning forces read", "INSERT INTO notes(body) VALUES ('x') RETURNING id", KindRead},
		{"delete returning forces read", "DELETE FROM notes RETURNING *", KindRead},
		{"returning in string literal is a write", "INSERT INTO notes(body) VALUES ('RETURNING id')", KindWrite},
		{"cte select", "WITH top AS (SELECT id FROM notes LIMIT 5) SELECT * FROM top", KindRead},
		{"cte insert", "WITH src AS (SELECT 1 AS v) INSERT INTO notes(body) SELECT v FROM src", KindWrite},
		{"recursive cte", "WITH RECURSIVE cnt(x) AS (SELECT 1 UNION ALL SELECT x+1 FROM cnt LIMIT 10) SELECT x FROM cnt", KindRead},
		{"multiple ctes then delete", "WITH a AS (SELECT 1), b(v) AS (SELECT 2) DELETE FROM notes WHERE id IN (SELECT v FROM b)", KindWrite},
		{"malformed cte falls back to read", "WITH broken AS (SELECT 1", KindRead},
		{"insert keyword inside comment", "-- INSERT here\nSELECT 1", KindRead},
		{"empty", "   ", KindRead},
		{"doubled quote escape", "INSERT INTO t(s) VALUES ('it''s; RETURNING nothing')", KindWrite},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.sql)
			if got.Kind != tt.want {
				t.Errorf("Classify(%q).Kind = %v, want %v", tt.sql, got.Kind, tt.want)
			}
		})
	}
}

func TestClassifyBlocked(t *testing.T) {
	got := Classify("VACUUM")
	if got.Kind != KindBlocked {
		t.Fatalf("Classify(VACUUM).Kind = %v, want KindBlocked", got.Kind)
	}
	if got.Reason == "" {
		t.Error("blocked classification missing reason")
	}
}
