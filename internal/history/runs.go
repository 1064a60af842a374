package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"sastriage/internal/analysis"
	"sastriage/internal/classify"
)

// ErrRunNotFound is returned by Get when no run matches the id.
var ErrRunNotFound = errors.New("run not found")

// Run is one recorded analysis.
type Run struct {
	ID               string    `json:"id"`
	LogPath          string    `json:"log_path"`
	RecordedAt       time.Time `json:"recorded_at"`
	TotalLines       int       `json:"total_lines"`
	RuntimeErrors    int       `json:"runtime_errors"`
	RuntimeWarnings  int       `json:"runtime_warnings"`
	UniqueSignatures int       `json:"unique_signatures"`
	IssueCount       int       `json:"issue_count"`
}

// Passed reports whether the run met every baseline expectation.
func (r Run) Passed() bool { return r.IssueCount == 0 }

// ShortID returns the first eight characters of the id.
func (r Run) ShortID() string {
	if len(r.ID) > 8 {
		return r.ID[:8]
	}
	return r.ID
}

// Record stores res as a new run.
func (s *Store) Record(ctx context.Context, res *analysis.Result, c classify.Classifier) (Run, error) {
	snap := NewSnapshot(res, c)
	blob, err := s.encodeSnapshot(snap)
	if err != nil {
		return Run{}, err
	}

	run := Run{
		ID:               uuid.NewString(),
		LogPath:          res.LogPath,
		RecordedAt:       s.now().UTC(),
		TotalLines:       res.TotalLines,
		RuntimeErrors:    res.ErrorCount(),
		RuntimeWarnings:  res.WarningCount(),
		UniqueSignatures: snap.UniqueSignatures(),
		IssueCount:       len(res.Issues),
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO runs (id, log_path, recorded_at, total_lines, runtime_errors,
				runtime_warnings, unique_signatures, issue_count, snapshot)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, run.LogPath, run.RecordedAt.Format(timeLayout), run.TotalLines,
			run.RuntimeErrors, run.RuntimeWarnings, run.UniqueSignatures, run.IssueCount, blob,
		)
		return err
	})
	if err != nil {
		return Run{}, fmt.Errorf("record run: %w", err)
	}

	s.logger.Debug("Recorded run", "id", run.ID, "log", run.LogPath, "snapshot_bytes", len(blob))
	return run, nil
}

// timeLayout has a fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const runColumns = `id, log_path, recorded_at, total_lines, runtime_errors,
	runtime_warnings, unique_signatures, issue_count`

// List returns the most recent runs, newest first. limit <= 0 returns all.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY recorded_at DESC, id ASC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Get returns the run whose id is or starts with idPrefix, together with
// its snapshot. A prefix matching several runs is an error.
func (s *Store) Get(ctx context.Context, idPrefix string) (Run, *Snapshot, error) {
	if idPrefix == "" {
		return Run{}, nil, fmt.Errorf("%w: empty id", ErrRunNotFound)
	}

	rows, err := s.conn.QueryContext(ctx,
		`SELECT `+runColumns+`, snapshot FROM runs WHERE substr(id, 1, ?) = ? LIMIT 2`,
		len(idPrefix), idPrefix)
	if err != nil {
		return Run{}, nil, fmt.Errorf("get run: %w", err)
	}
	defer rows.Close()

	var (
		found []Run
		blob  []byte
	)
	for rows.Next() {
		var b []byte
		run, err := scanRun(rows, &b)
		if err != nil {
			return Run{}, nil, err
		}
		found = append(found, run)
		blob = b
	}
	if err := rows.Err(); err != nil {
		return Run{}, nil, err
	}

	switch len(found) {
	case 0:
		return Run{}, nil, fmt.Errorf("%w: %s", ErrRunNotFound, idPrefix)
	case 1:
	default:
		return Run{}, nil, fmt.Errorf("id prefix %q matches more than one run", idPrefix)
	}

	snap, err := s.decodeSnapshot(blob)
	if err != nil {
		return Run{}, nil, err
	}
	return found[0], snap, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner, extra ...any) (Run, error) {
	var (
		run        Run
		recordedAt string
	)
	dest := []any{&run.ID, &run.LogPath, &recordedAt, &run.TotalLines, &run.RuntimeErrors,
		&run.RuntimeWarnings, &run.UniqueSignatures, &run.IssueCount}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	t, err := time.Parse(timeLayout, recordedAt)
	if err != nil {
		return Run{}, fmt.Errorf("run %s: bad timestamp %q: %w", run.ID, recordedAt, err)
	}
	run.RecordedAt = t
	return run, nil
}
