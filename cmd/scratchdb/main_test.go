package main

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
)

func TestHomeDirPrefersEnv(t *testing.T) {
	t.Setenv("SCRATCHDB_HOME", "/tmp/custom-home")
	if got := homeDir(); got != "/tmp/custom-home" {
		t.Errorf("homeDir() = %q", got)
	}
}

func TestRequireFile(t *testing.T) {
	if _, ok := requireFile(nil, "usage"); ok {
		t.Error("accepted missing argument")
	}
	if _, ok := requireFile([]string{filepath.Join(t.TempDir(), "absent.db")}, "usage"); ok {
		t.Error("accepted nonexistent file")
	}
	path := filepath.Join(t.TempDir(), "present.db")
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, ok := requireFile([]string{path}, "usage")
	if !ok || got != path {
		t.Errorf("requireFile = %q, %v", got, ok)
	}
}

func TestVacuumCommandCompacts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scratch.db")
	db, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	stmts := `
		CREATE TABLE keep (x INTEGER);
		CREATE TABLE _tool_results (id TEXT);
		INSERT INTO keep VALUES (1);`
	if _, err := db.Exec(stmts); err != nil {
		t.Fatalf("populate: %v", err)
	}
	db.Close()

	if code := runVacuumCommand(context.Background(), []string{path}); code != 0 {
		t.Fatalf("vacuum exit code = %d", code)
	}

	db, err = sql.Open("sqlite3", "file:"+path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()
	var n int
	err = db.QueryRow(`SELECT count(*) FROM sqlite_master WHERE name = '_tool_results'`).Scan(&n)
	if err != nil || n != 0 {
		t.Errorf("ephemeral table survived vacuum: n=%d err=%v", n, err)
	}
}
