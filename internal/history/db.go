// Package history records analysis runs in a local SQLite database so
// successive runs over the same pipeline can be listed and compared.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	triageerrors "sastriage/internal/errors"
	"sastriage/internal/slogutil"
)

const schemaVersion = 1

// Store is an open run history database.
type Store struct {
	conn   *sql.DB
	path   string
	logger *slog.Logger

	enc *zstd.Encoder
	dec *zstd.Decoder
	now func() time.Time
}

// Open opens or creates the history database at path.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, unavailable("cannot create history directory", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, unavailable("cannot open history database", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",   // readers do not block the writer
		"PRAGMA synchronous=NORMAL", // safe with WAL
		"PRAGMA busy_timeout=5000",  // wait up to 5 seconds on lock
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			_ = conn.Close()
			return nil, unavailable("cannot configure history database", err)
		}
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		_ = conn.Close()
		return nil, unavailable("cannot create snapshot encoder", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		_ = conn.Close()
		return nil, unavailable("cannot create snapshot decoder", err)
	}

	s := &Store{conn: conn, path: path, logger: logger, enc: enc, dec: dec, now: time.Now}
	if err := s.initializeSchema(context.Background()); err != nil {
		_ = s.Close()
		return nil, unavailable("cannot initialize history schema", err)
	}

	logger.Debug("Opened history database", "path", path)
	return s, nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Close closes the database.
func (s *Store) Close() error {
	s.dec.Close()
	_ = s.enc.Close()
	return s.conn.Close()
}

func (s *Store) initializeSchema(ctx context.Context) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmts := []string{
			`CREATE TABLE IF NOT EXISTS schema_version (
				version INTEGER NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS runs (
				id                TEXT PRIMARY KEY,
				log_path          TEXT NOT NULL,
				recorded_at       TEXT NOT NULL,
				total_lines       INTEGER NOT NULL,
				runtime_errors    INTEGER NOT NULL,
				runtime_warnings  INTEGER NOT NULL,
				unique_signatures INTEGER NOT NULL,
				issue_count       INTEGER NOT NULL,
				snapshot          BLOB NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_runs_recorded_at ON runs(recorded_at DESC)`,
			`CREATE INDEX IF NOT EXISTS idx_runs_log_path ON runs(log_path)`,
		}
		for _, stmt := range stmts {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return err
			}
		}

		var version int
		err := tx.QueryRowContext(ctx, `SELECT version FROM schema_version LIMIT 1`).Scan(&version)
		switch {
		case err == sql.ErrNoRows:
			_, err = tx.ExecContext(ctx, `INSERT INTO schema_version (version) VALUES (?)`, schemaVersion)
			return err
		case err != nil:
			return err
		case version > schemaVersion:
			return fmt.Errorf("database schema version %d is newer than supported version %d", version, schemaVersion)
		}
		return nil
	})
}

// withTx runs fn in a transaction, rolling back when fn fails.
func (s *Store) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Error("Failed to rollback transaction", "error", err, "rollback_error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func unavailable(msg string, err error) error {
	return triageerrors.NewTriageError(triageerrors.HistoryUnavailable, msg, err)
}
