// Package session opens guarded connections to the embedded SQLite engine.
// A guarded connection cannot attach other database files, call file-I/O or
// extension functions, or read engine-configuration pragmas; denial happens
// at statement-compile time via the authorizer, before any row is touched.
// Each statement runs under its own wall-clock budget: the context deadline
// re-arms per call and the driver interrupts the engine when it expires.
package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/basket/scratchdb/internal/sqlscan"
	sqlite3 "github.com/mattn/go-sqlite3"
)

const driverName = "sqlite3_scratch_guarded"

// DefaultStatementTimeout bounds a single statement's wall-clock time unless
// the caller configures otherwise.
const DefaultStatementTimeout = 30 * time.Second

// ErrClosed is returned by operations on a closed session.
var ErrClosed = errors.New("session: closed")

func init() {
	policy := DefaultPolicy()
	sql.Register(driverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			// The authorizer is the sandbox. If anything here fails, the
			// connection must not come up unguarded.
			conn.RegisterAuthorizer(func(op int, arg1, arg2, arg3 string) int {
				return policy.authorize(op, arg1, arg2)
			})
			if err := registerFunctions(conn); err != nil {
				return fmt.Errorf("session: install helpers: %w", err)
			}
			return nil
		},
	})
}

// Session is a single guarded connection to one scratch database file. All
// sandbox state lives on the Session and dies with Close; there is no global
// registry keyed by connection identity.
type Session struct {
	db      *sql.DB
	conn    *sql.Conn
	path    string
	timeout time.Duration
	closed  bool
}

// Open opens path under the guarded driver. A timeout of zero selects
// DefaultStatementTimeout. The driver is built without extension loading, and
// the connect hook refuses the connection if the sandbox cannot be installed.
func Open(ctx context.Context, path string, timeout time.Duration) (*Session, error) {
	if timeout <= 0 {
		timeout = DefaultStatementTimeout
	}
	dsn := "file:" + path + "?_busy_timeout=5000&_foreign_keys=on"
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("session: open %s: %w", path, err)
	}
	// One connection per cycle: mirror tables and temp state must not be
	// split across pool members.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	conn, err := db.Conn(ctx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("session: guard %s: %w", path, err)
	}
	return &Session{db: db, conn: conn, path: path, timeout: timeout}, nil
}

// Path returns the on-disk location of the scratch database.
func (s *Session) Path() string { return s.path }

// Guard runs the lexical pre-check on one statement. A non-empty reason means
// the statement must not be executed; the authorizer cannot see these shapes
// structurally.
func (s *Session) Guard(stmt string) string {
	return sqlscan.Guard(stmt)
}

// Exec runs one non-row-returning statement under the per-statement timeout.
func (s *Session) Exec(ctx context.Context, stmt string, args ...any) (sql.Result, error) {
	if s.closed {
		return nil, ErrClosed
	}
	stmtCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.conn.ExecContext(stmtCtx, stmt, args...)
}

// Query runs one row-returning statement under the per-statement timeout.
// The returned cancel func releases the timeout and must be called once the
// rows are drained.
func (s *Session) Query(ctx context.Context, stmt string, args ...any) (*sql.Rows, context.CancelFunc, error) {
	if s.closed {
		return nil, nil, ErrClosed
	}
	stmtCtx, cancel := context.WithTimeout(ctx, s.timeout)
	rows, err := s.conn.QueryContext(stmtCtx, stmt, args...)
	if err != nil {
		cancel()
		return nil, nil, err
	}
	return rows, cancel, nil
}

// SizeBytes reports the scratch file's current on-disk size. A missing file
// (nothing written yet) counts as zero.
func (s *Session) SizeBytes() (int64, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("session: stat %s: %w", s.path, err)
	}
	return info.Size(), nil
}

// Close releases the connection and all per-connection sandbox state. Safe to
// call more than once; later calls are no-ops.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	var errs []error
	if s.conn != nil {
		if err := s.conn.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
