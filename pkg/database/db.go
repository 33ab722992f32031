package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/crossingdelta/timeline/internal/reliability/retry"
)

// Supported drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds database configuration
type Config struct {
	Driver          string
	Path            string // sqlite file
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	Retry           *retry.Config
}

// ConnectionPool manages database connections
type ConnectionPool struct {
	db     *sql.DB
	driver string
	logger *slog.Logger
}

// NewConnectionPool opens the database, waits for it to answer and applies migrations
func NewConnectionPool(ctx context.Context, config *Config, logger *slog.Logger) (*ConnectionPool, error) {
	if logger == nil {
		logger = slog.Default()
	}

	driver, dsn, err := config.dsn()
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if driver == DriverSQLite {
		// One writer at a time; avoids "database is locked" under concurrent requests.
		db.SetMaxOpenConns(1)
	} else {
		if config.MaxOpenConns > 0 {
			db.SetMaxOpenConns(config.MaxOpenConns)
		} else {
			db.SetMaxOpenConns(25) // default
		}
		if config.MaxIdleConns > 0 {
			db.SetMaxIdleConns(config.MaxIdleConns)
		} else {
			db.SetMaxIdleConns(5) // default
		}
	}

	if config.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(config.ConnMaxLifetime)
	} else {
		db.SetConnMaxLifetime(5 * time.Minute) // default
	}

	retryCfg := config.Retry
	if retryCfg == nil {
		retryCfg = retry.DefaultConfig()
	}
	_, err = retry.Do(ctx, retryCfg, logger, "database ping", func(ctx context.Context) (struct{}, error) {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return struct{}{}, db.PingContext(pingCtx)
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	pool := &ConnectionPool{db: db, driver: driver, logger: logger}
	if err := pool.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	logger.Info("database connected successfully",
		slog.String("driver", driver),
		slog.String("database", config.target()),
	)

	return pool, nil
}

func (c *Config) dsn() (string, string, error) {
	switch c.Driver {
	case "", DriverSQLite:
		path := c.Path
		if path == "" {
			path = "database.sqlite"
		}
		return DriverSQLite, path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", nil
	case DriverPostgres:
		return DriverPostgres, fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Host,
			c.Port,
			c.User,
			c.Password,
			c.Database,
			c.SSLMode,
		), nil
	default:
		return "", "", fmt.Errorf("unsupported database driver %q", c.Driver)
	}
}

func (c *Config) target() string {
	if c.Driver == DriverPostgres {
		return c.Host + "/" + c.Database
	}
	return c.Path
}

// GetDB returns the underlying sql.DB connection
func (cp *ConnectionPool) GetDB() *sql.DB {
	return cp.db
}

// Driver returns the name of the SQL driver in use
func (cp *ConnectionPool) Driver() string {
	return cp.driver
}

// Rebind rewrites '?' placeholders into the driver's native form ($1, $2, ...
// for postgres). Queries must not contain literal question marks.
func (cp *ConnectionPool) Rebind(query string) string {
	if cp.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Close closes the database connection
func (cp *ConnectionPool) Close() error {
	if cp.db != nil {
		return cp.db.Close()
	}
	return nil
}

// Health checks the database health
func (cp *ConnectionPool) Health(ctx context.Context) error {
	ctxTest, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return cp.db.PingContext(ctxTest)
}

// DefaultConfig returns default database configuration for development
func DefaultConfig() *Config {
	return &Config{
		Driver:          DriverSQLite,
		Path:            "database.sqlite",
		Host:            "localhost",
		Port:            5432,
		User:            "timeline",
		Password:        "dev",
		Database:        "timeline",
		SSLMode:         "disable",
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
	}
}
