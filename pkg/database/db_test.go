package database

import (
	"context"
	"path/filepath"
	"testing"
)

func TestRebind(t *testing.T) {
	pg := &ConnectionPool{driver: DriverPostgres}
	got := pg.Rebind("SELECT id FROM tasks WHERE id = ? AND company = ?")
	want := "SELECT id FROM tasks WHERE id = $1 AND company = $2"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}

	lite := &ConnectionPool{driver: DriverSQLite}
	q := "SELECT 1 WHERE ? = ?"
	if lite.Rebind(q) != q {
		t.Fatalf("sqlite query should be left untouched")
	}
}

func TestNewConnectionPoolSQLite(t *testing.T) {
	cfg := &Config{Driver: DriverSQLite, Path: filepath.Join(t.TempDir(), "test.sqlite")}
	pool, err := NewConnectionPool(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("open pool: %v", err)
	}
	defer pool.Close()

	if err := pool.Health(context.Background()); err != nil {
		t.Fatalf("health: %v", err)
	}

	// Migrations are idempotent.
	if err := pool.migrate(context.Background()); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}

func TestUnsupportedDriver(t *testing.T) {
	_, err := NewConnectionPool(context.Background(), &Config{Driver: "oracle"}, nil)
	if err == nil {
		t.Fatalf("expected error for unsupported driver")
	}
}
