package lifecycle

import (
	"context"
	"database/sql"
	"io"
	"os"
	"testing"

	"github.com/basket/scratchdb/internal/blob"
	"github.com/basket/scratchdb/internal/telemetry"
)

func newManager(t *testing.T, hardLimit int64) (*Manager, blob.Store) {
	t.Helper()
	store, err := blob.NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("new blob store: %v", err)
	}
	return New(store, t.TempDir(), hardLimit, telemetry.NewTestLogger(io.Discard), nil), store
}

func openPlain(t *testing.T, path string) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRestoreWithoutArchiveStartsEmpty(t *testing.T) {
	m, _ := newManager(t, 0)
	path, err := m.Restore(context.Background(), "agent-1")
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("fresh restore materialized a file: %v", err)
	}
	// The path is still usable: sqlite creates the file on first open.
	db := openPlain(t, path)
	if _, err := db.Exec(`CREATE TABLE t (x)`); err != nil {
		t.Fatalf("use fresh path: %v", err)
	}
}

func TestPersistThenRestoreRoundTrip(t *testing.T) {
	m, _ := newManager(t, 0)
	ctx := context.Background()

	path, err := m.Restore(ctx, "agent-1")
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	db := openPlain(t, path)
	if _, err := db.Exec(`CREATE TABLE notes (body TEXT); INSERT INTO notes VALUES ('keep me')`); err != nil {
		t.Fatalf("populate: %v", err)
	}
	db.Close()
	if err := m.Persist(ctx, "agent-1", path); err != nil {
		t.Fatalf("persist: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("persist left the temp file behind")
	}

	path2, err := m.Restore(ctx, "agent-1")
	if err != nil {
		t.Fatalf("second restore: %v", err)
	}
	db2 := openPlain(t, path2)
	var body string
	if err := db2.QueryRow(`SELECT body FROM notes`).Scan(&body); err != nil {
		t.Fatalf("read restored row: %v", err)
	}
	if body != "keep me" {
		t.Errorf("body = %q", body)
	}
}

func TestPersistDropsEphemeralTables(t *testing.T) {
	m, _ := newManager(t, 0)
	ctx := context.Background()

	path, _ := m.Restore(ctx, "agent-1")
	db := openPlain(t, path)
	stmts := `
		CREATE TABLE real_data (x INTEGER);
		CREATE TABLE _tool_results (id TEXT);
		CREATE TABLE _task_board (id TEXT);
		INSERT INTO real_data VALUES (1);
		INSERT INTO _tool_results VALUES ('leak?');`
	if _, err := db.Exec(stmts); err != nil {
		t.Fatalf("populate: %v", err)
	}
	db.Close()
	if err := m.Persist(ctx, "agent-1", path); err != nil {
		t.Fatalf("persist: %v", err)
	}

	path2, _ := m.Restore(ctx, "agent-1")
	db2 := openPlain(t, path2)
	var n int
	err := db2.QueryRow(`
		SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name LIKE '\_%' ESCAPE '\'`).Scan(&n)
	if err != nil {
		t.Fatalf("count ephemeral: %v", err)
	}
	if n != 0 {
		t.Errorf("%d ephemeral tables survived persistence", n)
	}
	if err := db2.QueryRow(`SELECT count(*) FROM real_data`).Scan(&n); err != nil || n != 1 {
		t.Errorf("real data lost: n=%d err=%v", n, err)
	}
}

func TestPersistOverHardCeilingWipesArchive(t *testing.T) {
	// Tiny ceiling so any real database trips it.
	m, store := newManager(t, 1024)
	ctx := context.Background()

	// Seed a valid archive first.
	path, _ := m.Restore(ctx, "agent-1")
	db := openPlain(t, path)
	if _, err := db.Exec(`CREATE TABLE keep (x)`); err != nil {
		t.Fatalf("populate: %v", err)
	}
	db.Close()
	if err := m.Persist(ctx, "agent-1", path); err != nil {
		t.Fatalf("first persist: %v", err)
	}
	if _, err := store.Get(ctx, blob.ArchiveKey("agent-1")); err != nil {
		t.Fatalf("archive missing after first persist: %v", err)
	}

	// Now hoard past the ceiling.
	path, _ = m.Restore(ctx, "agent-1")
	db = openPlain(t, path)
	if _, err := db.Exec(`CREATE TABLE hoard (blob BLOB)`); err != nil {
		t.Fatalf("create hoard: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO hoard VALUES (randomblob(100000))`); err != nil {
		t.Fatalf("fill hoard: %v", err)
	}
	db.Close()
	if err := m.Persist(ctx, "agent-1", path); err != nil {
		t.Fatalf("second persist: %v", err)
	}

	if _, err := store.Get(ctx, blob.ArchiveKey("agent-1")); err == nil {
		t.Error("archive survived a persist over the hard ceiling")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("temp file survived a wiping persist")
	}
}

func TestRestoreCorruptArchiveFallsBackEmpty(t *testing.T) {
	m, store := newManager(t, 0)
	ctx := context.Background()

	key := blob.ArchiveKey("agent-1")
	if err := store.Put(ctx, key, []byte("not a zstd archive")); err != nil {
		t.Fatalf("plant corrupt archive: %v", err)
	}
	path, err := m.Restore(ctx, "agent-1")
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("corrupt restore materialized a file")
	}

	// Valid zstd wrapping a non-database payload must also fall back.
	if err := store.Put(ctx, key, blob.Compress([]byte("zstd but not sqlite at all, padded to look real"))); err != nil {
		t.Fatalf("plant bogus archive: %v", err)
	}
	path, err = m.Restore(ctx, "agent-1")
	if err != nil {
		t.Fatalf("restore bogus: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("bogus restore left a file behind")
	}
}

func TestPersistWithoutFileKeepsArchive(t *testing.T) {
	m, store := newManager(t, 0)
	ctx := context.Background()

	path, _ := m.Restore(ctx, "agent-1")
	db := openPlain(t, path)
	if _, err := db.Exec(`CREATE TABLE t (x)`); err != nil {
		t.Fatalf("populate: %v", err)
	}
	db.Close()
	if err := m.Persist(ctx, "agent-1", path); err != nil {
		t.Fatalf("persist: %v", err)
	}

	// A cycle that never opened the database persists nothing and wipes
	// nothing.
	ghost, _ := m.Restore(ctx, "agent-2")
	if err := m.Persist(ctx, "agent-2", ghost); err != nil {
		t.Fatalf("persist ghost: %v", err)
	}
	if _, err := store.Get(ctx, blob.ArchiveKey("agent-1")); err != nil {
		t.Errorf("unrelated archive disturbed: %v", err)
	}
}
