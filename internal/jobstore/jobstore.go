// Copyright 2026 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package jobstore persists import jobs, their status and their run history
// in SQLite or MySQL.
package jobstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jbclaudio/magento2-connector-community/internal/config"
	"github.com/jbclaudio/magento2-connector-community/internal/importjob"
	_ "modernc.org/sqlite"
)

// Errors reported by [Store].
var (
	// ErrJobNotFound is returned when no job has the requested code.
	ErrJobNotFound = errors.New("job not found")
	// ErrJobRunning is returned by [Store.StartRun] when the job is already
	// processing.
	ErrJobRunning = errors.New("job is already running")
	// ErrRunNotFound is returned by [Store.FinishRun] for an unknown run id.
	ErrRunNotFound = errors.New("run not found")
)

// Run is one execution of an import job.
type Run struct {
	ID         string
	Code       string
	Status     importjob.Status
	StartedAt  time.Time
	FinishedAt time.Time
	Message    string
}

// Store is a job store backed by a SQL database.
type Store struct {
	db *sql.DB
}

// Open connects to the database described by cfg and applies pending
// migrations.
func Open(ctx context.Context, cfg config.Database) (*Store, error) {
	driver, dsn, err := dataSource(cfg)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == config.DriverSQLite {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	if err := applyMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func dataSource(cfg config.Database) (driver, dsn string, err error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		if cfg.Path == "" {
			return "", "", fmt.Errorf("sqlite database path is required")
		}
		if cfg.Path == ":memory:" {
			return "sqlite", "file::memory:", nil
		}
		path, err := filepath.Abs(cfg.Path)
		if err != nil {
			return "", "", fmt.Errorf("resolve db path: %w", err)
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return "", "", fmt.Errorf("create db dir: %w", err)
		}
		u := url.URL{Scheme: "file", Path: filepath.ToSlash(path)}
		q := u.Query()
		q.Set("_pragma", "busy_timeout(5000)")
		u.RawQuery = q.Encode()
		return "sqlite", u.String(), nil
	case config.DriverMySQL:
		m := mysql.NewConfig()
		m.User = cfg.User
		m.Passwd = cfg.Password
		m.Net = "tcp"
		m.Addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
		m.DBName = cfg.Name
		return "mysql", m.FormatDSN(), nil
	default:
		return "", "", fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Seed makes the stored job definitions match jobs. New jobs are inserted as
// pending; existing jobs keep their status and timestamps; jobs that are no
// longer listed are removed unless they are processing.
func (s *Store) Seed(ctx context.Context, jobs []importjob.Descriptor) error {
	if err := importjob.Validate(jobs); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, j := range jobs {
		command, err := encodeCommand(j.Command)
		if err != nil {
			return fmt.Errorf("job %q: %w", j.Code, err)
		}
		var n int
		if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM akeneo_connector_job WHERE code = ?", j.Code).Scan(&n); err != nil {
			return fmt.Errorf("lookup job %q: %w", j.Code, err)
		}
		if n == 0 {
			_, err = tx.ExecContext(ctx,
				"INSERT INTO akeneo_connector_job (code, name, position, status, command) VALUES (?, ?, ?, ?, ?)",
				j.Code, j.Name, j.Position, importjob.StatusPending, command)
		} else {
			_, err = tx.ExecContext(ctx,
				"UPDATE akeneo_connector_job SET name = ?, position = ?, command = ? WHERE code = ?",
				j.Name, j.Position, command, j.Code)
		}
		if err != nil {
			return fmt.Errorf("save job %q: %w", j.Code, err)
		}
	}

	query := "DELETE FROM akeneo_connector_job WHERE status <> ?"
	args := []any{importjob.StatusProcessing}
	if len(jobs) > 0 {
		query += " AND code NOT IN (?" + strings.Repeat(", ?", len(jobs)-1) + ")"
		for _, j := range jobs {
			args = append(args, j.Code)
		}
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("prune jobs: %w", err)
	}
	return tx.Commit()
}

// List returns every job ordered by position, then code.
func (s *Store) List(ctx context.Context) ([]importjob.Descriptor, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT code, name, position, status, command FROM akeneo_connector_job ORDER BY position, code")
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}
	defer rows.Close()

	var jobs []importjob.Descriptor
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return jobs, nil
}

// Get returns the job with the given code.
func (s *Store) Get(ctx context.Context, code string) (importjob.Descriptor, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT code, name, position, status, command FROM akeneo_connector_job WHERE code = ?", code)
	j, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return importjob.Descriptor{}, fmt.Errorf("%w: %q", ErrJobNotFound, code)
	}
	return j, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(r scanner) (importjob.Descriptor, error) {
	var (
		j       importjob.Descriptor
		command sql.NullString
	)
	if err := r.Scan(&j.Code, &j.Name, &j.Position, &j.Status, &command); err != nil {
		return importjob.Descriptor{}, err
	}
	if command.Valid && command.String != "" {
		if err := json.Unmarshal([]byte(command.String), &j.Command); err != nil {
			return importjob.Descriptor{}, fmt.Errorf("job %q: decode command: %w", j.Code, err)
		}
	}
	return j, nil
}

func encodeCommand(command []string) (sql.NullString, error) {
	if len(command) == 0 {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(command)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

// InterruptedMessage is recorded on runs that were still open when a stale
// job was restarted.
const InterruptedMessage = "interrupted: the run never finished"

// StartRun marks the job as processing and records a new run. It fails with
// ErrJobRunning when the job is already processing, unless that run started
// before staleBefore. A zero staleBefore never treats a run as stale. Runs
// left open by a stale job are closed as errors and their ids returned.
func (s *Store) StartRun(ctx context.Context, code, runID string, at, staleBefore time.Time) ([]string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stale := int64(math.MinInt64)
	if !staleBefore.IsZero() {
		stale = staleBefore.Unix()
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE akeneo_connector_job SET status = ?, last_executed_at = ?
WHERE code = ? AND (status <> ? OR last_executed_at < ?)`,
		importjob.StatusProcessing, at.Unix(), code, importjob.StatusProcessing, stale)
	if err != nil {
		return nil, fmt.Errorf("update job %q: %w", code, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		var status importjob.Status
		err := tx.QueryRowContext(ctx, "SELECT status FROM akeneo_connector_job WHERE code = ?", code).Scan(&status)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %q", ErrJobNotFound, code)
		}
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %q", ErrJobRunning, code)
	}

	interrupted, err := openRuns(ctx, tx, code)
	if err != nil {
		return nil, err
	}
	if len(interrupted) > 0 {
		if _, err := tx.ExecContext(ctx,
			"UPDATE akeneo_connector_job_run SET status = ?, finished_at = ?, message = ? WHERE code = ? AND finished_at IS NULL",
			importjob.StatusError, at.Unix(), InterruptedMessage, code); err != nil {
			return nil, fmt.Errorf("close interrupted runs of %q: %w", code, err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO akeneo_connector_job_run (run_id, code, status, started_at) VALUES (?, ?, ?, ?)",
		runID, code, importjob.StatusProcessing, at.Unix()); err != nil {
		return nil, fmt.Errorf("insert run %s: %w", runID, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return interrupted, nil
}

func openRuns(ctx context.Context, tx *sql.Tx, code string) ([]string, error) {
	rows, err := tx.QueryContext(ctx,
		"SELECT run_id FROM akeneo_connector_job_run WHERE code = ? AND finished_at IS NULL ORDER BY started_at, run_id", code)
	if err != nil {
		return nil, fmt.Errorf("query open runs: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan open run: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate open runs: %w", err)
	}
	return ids, nil
}

// FinishRun closes the run and copies its status onto the job.
func (s *Store) FinishRun(ctx context.Context, runID string, status importjob.Status, message string, at time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var code string
	err = tx.QueryRowContext(ctx, "SELECT code FROM akeneo_connector_job_run WHERE run_id = ?", runID).Scan(&code)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE akeneo_connector_job_run SET status = ?, finished_at = ?, message = ? WHERE run_id = ?",
		status, at.Unix(), message, runID); err != nil {
		return fmt.Errorf("update run %s: %w", runID, err)
	}
	query := "UPDATE akeneo_connector_job SET status = ? WHERE code = ?"
	args := []any{status, code}
	if status == importjob.StatusSuccess {
		query = "UPDATE akeneo_connector_job SET status = ?, last_success_at = ? WHERE code = ?"
		args = []any{status, at.Unix(), code}
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update job %q: %w", code, err)
	}
	return tx.Commit()
}

// Runs returns the run history of a job, newest first.
func (s *Store) Runs(ctx context.Context, code string) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, code, status, started_at, finished_at, message
FROM akeneo_connector_job_run WHERE code = ? ORDER BY started_at DESC, run_id`, code)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r        Run
			started  int64
			finished sql.NullInt64
			message  sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.Code, &r.Status, &started, &finished, &message); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.StartedAt = time.Unix(started, 0).UTC()
		if finished.Valid {
			r.FinishedAt = time.Unix(finished.Int64, 0).UTC()
		}
		r.Message = message.String
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}
