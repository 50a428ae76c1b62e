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

package jobstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type migration struct {
	id  string
	sql string
}

// migrations are applied in order and recorded in schema_migrations. The
// statements must be valid for both SQLite and MySQL.
var migrations = []migration{
	{
		id: "0001_akeneo_connector_job",
		sql: `CREATE TABLE IF NOT EXISTS akeneo_connector_job (
  code VARCHAR(255) NOT NULL PRIMARY KEY,
  name VARCHAR(255) NOT NULL DEFAULT '',
  position INTEGER NOT NULL DEFAULT 0,
  status INTEGER NOT NULL DEFAULT 5,
  command TEXT,
  last_executed_at BIGINT,
  last_success_at BIGINT
)`,
	},
	{
		id: "0002_akeneo_connector_job_run",
		sql: `CREATE TABLE IF NOT EXISTS akeneo_connector_job_run (
  run_id VARCHAR(36) NOT NULL PRIMARY KEY,
  code VARCHAR(255) NOT NULL,
  status INTEGER NOT NULL,
  started_at BIGINT NOT NULL,
  finished_at BIGINT,
  message TEXT
)`,
	},
	{
		id:  "0003_akeneo_connector_job_run_code",
		sql: `CREATE INDEX akeneo_connector_job_run_code ON akeneo_connector_job_run (code, started_at)`,
	},
}

func applyMigrations(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
  id VARCHAR(255) NOT NULL PRIMARY KEY,
  applied_at BIGINT NOT NULL
)`); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}

	applied, err := loadApplied(ctx, tx)
	if err != nil {
		return err
	}

	now := time.Now().Unix()
	for _, m := range migrations {
		if applied[m.id] {
			continue
		}
		if _, err := tx.ExecContext(ctx, m.sql); err != nil {
			return fmt.Errorf("apply migration %q: %w", m.id, err)
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (id, applied_at) VALUES (?, ?)", m.id, now); err != nil {
			return fmt.Errorf("record migration %q: %w", m.id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migrations: %w", err)
	}
	return nil
}

func loadApplied(ctx context.Context, tx *sql.Tx) (map[string]bool, error) {
	rows, err := tx.QueryContext(ctx, "SELECT id FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("query schema_migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan schema_migrations: %w", err)
		}
		applied[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate schema_migrations: %w", err)
	}
	return applied, nil
}
