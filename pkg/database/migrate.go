package database

import (
	"context"
	"fmt"
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		company TEXT NOT NULL DEFAULT '',
		display_name TEXT NOT NULL DEFAULT '',
		created_at_unixms INTEGER NOT NULL,
		updated_at_unixms INTEGER NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS tasks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		start_unixms INTEGER NOT NULL,
		end_unixms INTEGER NOT NULL,
		progress INTEGER NOT NULL DEFAULT 0,
		type TEXT NOT NULL DEFAULT 'task',
		is_disabled BOOLEAN NOT NULL DEFAULT 0,
		company TEXT NOT NULL,
		styles TEXT NOT NULL DEFAULT '{}',
		account_id INTEGER REFERENCES accounts(id),
		created_at_unixms INTEGER NOT NULL,
		updated_at_unixms INTEGER NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_company_start ON tasks(company, start_unixms);`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		id BIGSERIAL PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		company TEXT NOT NULL DEFAULT '',
		display_name TEXT NOT NULL DEFAULT '',
		created_at_unixms BIGINT NOT NULL,
		updated_at_unixms BIGINT NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS tasks (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		start_unixms BIGINT NOT NULL,
		end_unixms BIGINT NOT NULL,
		progress INTEGER NOT NULL DEFAULT 0,
		type TEXT NOT NULL DEFAULT 'task',
		is_disabled BOOLEAN NOT NULL DEFAULT FALSE,
		company TEXT NOT NULL,
		styles TEXT NOT NULL DEFAULT '{}',
		account_id BIGINT REFERENCES accounts(id),
		created_at_unixms BIGINT NOT NULL,
		updated_at_unixms BIGINT NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_company_start ON tasks(company, start_unixms);`,
}

func (cp *ConnectionPool) migrate(ctx context.Context) error {
	stmts := sqliteSchema
	if cp.driver == DriverPostgres {
		stmts = postgresSchema
	}
	for _, stmt := range stmts {
		if _, err := cp.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate schema: %w", err)
		}
	}
	return nil
}
