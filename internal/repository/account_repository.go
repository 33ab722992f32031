package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/crossingdelta/timeline/internal/domain"
	"github.com/crossingdelta/timeline/pkg/database"
)

// SQLAccountRepository implements domain.AccountRepository
type SQLAccountRepository struct {
	pool   *database.ConnectionPool
	logger *slog.Logger
}

// NewSQLAccountRepository creates a new account repository
func NewSQLAccountRepository(pool *database.ConnectionPool, logger *slog.Logger) *SQLAccountRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &SQLAccountRepository{
		pool:   pool,
		logger: logger,
	}
}

const accountColumns = `id, username, email, password_hash, company, display_name, created_at_unixms, updated_at_unixms`

// Create creates a new account
func (r *SQLAccountRepository) Create(ctx context.Context, account *domain.Account) error {
	now := time.Now().UTC()
	query := r.pool.Rebind(`
		INSERT INTO accounts (username, email, password_hash, company, display_name, created_at_unixms, updated_at_unixms)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`)

	err := r.pool.GetDB().QueryRowContext(ctx, query,
		account.Username,
		account.Email,
		account.PasswordHash,
		string(account.Company),
		account.DisplayName,
		now.UnixMilli(),
		now.UnixMilli(),
	).Scan(&account.ID)
	if err != nil {
		r.logger.Error("failed to create account",
			slog.String("username", account.Username),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create account: %w", err)
	}

	account.CreatedAt = time.UnixMilli(now.UnixMilli()).UTC()
	account.UpdatedAt = account.CreatedAt
	return nil
}

// GetByID retrieves an account by ID
func (r *SQLAccountRepository) GetByID(ctx context.Context, id int64) (*domain.Account, error) {
	query := r.pool.Rebind(`SELECT ` + accountColumns + ` FROM accounts WHERE id = ?`)
	return r.scanOne(r.pool.GetDB().QueryRowContext(ctx, query, id))
}

// GetByUsername retrieves an account by exact, case-sensitive username
func (r *SQLAccountRepository) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	query := r.pool.Rebind(`SELECT ` + accountColumns + ` FROM accounts WHERE username = ?`)
	return r.scanOne(r.pool.GetDB().QueryRowContext(ctx, query, username))
}

func (r *SQLAccountRepository) scanOne(row *sql.Row) (*domain.Account, error) {
	account := &domain.Account{}
	var company string
	var createdMs, updatedMs int64

	err := row.Scan(
		&account.ID,
		&account.Username,
		&account.Email,
		&account.PasswordHash,
		&company,
		&account.DisplayName,
		&createdMs,
		&updatedMs,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("account %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	account.Company = domain.Tenant(company)
	account.CreatedAt = time.UnixMilli(createdMs).UTC()
	account.UpdatedAt = time.UnixMilli(updatedMs).UTC()
	return account, nil
}
