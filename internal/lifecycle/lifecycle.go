// Package lifecycle owns the scratch database's on-disk existence for one
// processing cycle: restore from the blob archive at cycle start, compact
// and persist (or wipe) at cycle end. Paths are passed explicitly; nothing
// here holds ambient state between calls.
package lifecycle

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/basket/scratchdb/internal/blob"
	"github.com/basket/scratchdb/internal/otel"
)

// DefaultHardLimitBytes is the persistence ceiling: a scratch file larger
// than this is not archived, and any existing archive is deleted. Hoarding
// loses everything; that is the policy, not a failure mode.
const DefaultHardLimitBytes = 100 * 1024 * 1024

// Manager restores and persists scratch databases for agents.
type Manager struct {
	blobs          blob.Store
	tempDir        string
	hardLimitBytes int64
	logger         *slog.Logger
	metrics        *otel.Metrics
}

// New builds a Manager. hardLimitBytes of zero selects the default; metrics
// may be nil.
func New(blobs blob.Store, tempDir string, hardLimitBytes int64, logger *slog.Logger, metrics *otel.Metrics) *Manager {
	if hardLimitBytes <= 0 {
		hardLimitBytes = DefaultHardLimitBytes
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		blobs:          blobs,
		tempDir:        tempDir,
		hardLimitBytes: hardLimitBytes,
		logger:         logger,
		metrics:        metrics,
	}
}

// Restore materializes the agent's scratch database as a fresh temporary
// file and returns its path. A missing archive yields an empty database; so
// does a corrupt one, after a warning. The caller owns the file and hands it
// back through Persist.
func (m *Manager) Restore(ctx context.Context, agentID string) (string, error) {
	start := time.Now()
	path := filepath.Join(m.tempDir, "scratch-"+uuid.NewString()+".db")

	data, err := m.blobs.Get(ctx, blob.ArchiveKey(agentID))
	switch {
	case errors.Is(err, blob.ErrNotFound):
		m.logger.Debug("no archive, starting empty", "agent_id", agentID)
		return path, nil
	case err != nil:
		m.logger.Warn("archive fetch failed, starting empty", "agent_id", agentID, "error", err.Error())
		return path, nil
	}

	raw, err := blob.Decompress(data)
	if err != nil {
		m.logger.Warn("archive corrupt, starting empty", "agent_id", agentID, "error", err.Error())
		return path, nil
	}
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return "", fmt.Errorf("lifecycle: write restored database: %w", err)
	}
	if err := quickCheck(ctx, path); err != nil {
		m.logger.Warn("restored database failed integrity check, starting empty",
			"agent_id", agentID, "error", err.Error())
		if err := os.Remove(path); err != nil {
			return "", fmt.Errorf("lifecycle: discard corrupt restore: %w", err)
		}
		return path, nil
	}

	if m.metrics != nil {
		m.metrics.RestoreDuration.Record(ctx, time.Since(start).Seconds())
	}
	m.logger.Debug("scratch restored", "agent_id", agentID, "bytes", len(raw))
	return path, nil
}

// Persist compacts the scratch file and writes it back to blob storage,
// replacing any prior archive. Ephemeral tables are dropped first so they
// never reach the archive. A file over the hard ceiling deletes the archive
// instead of replacing it. The temporary file is removed on every path.
func (m *Manager) Persist(ctx context.Context, agentID, path string) error {
	defer func() {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			m.logger.Warn("scratch file cleanup failed", "path", path, "error", err.Error())
		}
	}()

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		// Cycle never touched the database; keep whatever archive exists.
		return nil
	}
	if err := Compact(ctx, path); err != nil {
		return fmt.Errorf("lifecycle: compact %s: %w", path, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("lifecycle: stat %s: %w", path, err)
	}
	key := blob.ArchiveKey(agentID)

	if info.Size() > m.hardLimitBytes {
		m.logger.Warn("scratch over hard ceiling, wiping archive",
			"agent_id", agentID, "bytes", info.Size(), "limit", m.hardLimitBytes)
		if m.metrics != nil {
			m.metrics.ArchivesWiped.Add(ctx, 1)
		}
		if err := m.blobs.Delete(ctx, key); err != nil {
			return fmt.Errorf("lifecycle: wipe archive: %w", err)
		}
		return nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("lifecycle: read %s: %w", path, err)
	}
	packed := blob.Compress(raw)
	if err := m.blobs.Put(ctx, key, packed); err != nil {
		return fmt.Errorf("lifecycle: upload archive: %w", err)
	}
	if m.metrics != nil {
		m.metrics.PersistedBytes.Add(ctx, int64(len(packed)))
	}
	m.logger.Debug("scratch persisted",
		"agent_id", agentID, "bytes", info.Size(), "compressed", len(packed))
	return nil
}

// Compact drops the reserved underscore-prefixed ephemeral tables and runs
// VACUUM. This uses an unguarded connection on purpose: VACUUM is blocked
// for agent SQL but is exactly the maintenance this layer exists to do.
func Compact(ctx context.Context, path string) error {
	db, err := sql.Open("sqlite3", "file:"+path+"?_busy_timeout=5000")
	if err != nil {
		return err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, `
		SELECT name FROM sqlite_master
		WHERE type = 'table' AND name LIKE '\_%' ESCAPE '\'`)
	if err != nil {
		return err
	}
	var ephemeral []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return err
		}
		ephemeral = append(ephemeral, name)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	for _, name := range ephemeral {
		if _, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS "`+name+`"`); err != nil {
			return fmt.Errorf("drop %s: %w", name, err)
		}
	}
	if _, err := db.ExecContext(ctx, `VACUUM`); err != nil {
		return err
	}
	return nil
}

func quickCheck(ctx context.Context, path string) error {
	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		return err
	}
	defer db.Close()

	var result string
	if err := db.QueryRowContext(ctx, `PRAGMA quick_check(1)`).Scan(&result); err != nil {
		return err
	}
	if result != "ok" {
		return fmt.Errorf("quick_check: %s", result)
	}
	return nil
}
