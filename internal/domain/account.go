package domain

import (
	"context"
	"time"
)

// Tenant identifies the company whose tasks are isolated from every other company.
// It is a distinct type so store methods cannot be handed an arbitrary string by accident.
type Tenant string

// Account represents a person who can sign in and edit the tenant's timeline
type Account struct {
	ID           int64
	Username     string // Unique, case-sensitive
	Email        string // Unique email address
	PasswordHash string // Bcrypt hash (never returned in API)
	Company      Tenant
	DisplayName  string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AccountRepository defines data access for accounts
type AccountRepository interface {
	Create(ctx context.Context, account *Account) error
	GetByID(ctx context.Context, id int64) (*Account, error)
	GetByUsername(ctx context.Context, username string) (*Account, error)
}

// Principal is the verified identity attached to a request by the session guard
type Principal struct {
	AccountID int64
	Username  string
	Tenant    Tenant
}
