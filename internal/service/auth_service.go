package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/crossingdelta/timeline/internal/domain"
	"github.com/crossingdelta/timeline/internal/security/auth"
)

// AuthService handles authentication operations
type AuthService struct {
	accounts domain.AccountRepository
	tokens   *auth.TokenManager
	tokenTTL time.Duration
	logger   *slog.Logger

	// compared against when the username is unknown so both failure paths do a bcrypt round
	dummyHash []byte
}

// NewAuthService creates a new authentication service
func NewAuthService(
	accounts domain.AccountRepository,
	tokens *auth.TokenManager,
	tokenTTL time.Duration,
	logger *slog.Logger,
) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}

	dummy, err := bcrypt.GenerateFromPassword([]byte("timeline-unknown-account"), bcrypt.DefaultCost)
	if err != nil {
		logger.Error("failed to prepare dummy hash", slog.String("error", err.Error()))
	}

	return &AuthService{
		accounts:  accounts,
		tokens:    tokens,
		tokenTTL:  tokenTTL,
		logger:    logger,
		dummyHash: dummy,
	}
}

// AccountSummary is the public part of an account
type AccountSummary struct {
	ID       int64
	Username string
	Email    string
	Company  domain.Tenant
}

// LoginResult represents login response
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	Account   AccountSummary
}

// Authenticate verifies a username and password and issues a session token.
// Unknown usernames and wrong passwords both return domain.ErrInvalidCredentials.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*LoginResult, error) {
	if username == "" || password == "" {
		return nil, fmt.Errorf("%w: username and password are required", domain.ErrValidation)
	}

	account, err := s.accounts.GetByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("lookup account: %w", err)
		}
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		s.logger.Info("login attempt with unknown username", slog.String("username", username))
		return nil, domain.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		s.logger.Info("login failed with wrong password", slog.String("username", username))
		return nil, domain.ErrInvalidCredentials
	}

	token, err := s.tokens.GenerateToken(account.ID, account.Username, account.Company, s.tokenTTL)
	if err != nil {
		s.logger.Error("failed to sign token", slog.String("error", err.Error()))
		return nil, fmt.Errorf("generate token: %w", err)
	}

	s.logger.Info("user logged in",
		slog.Int64("account_id", account.ID),
		slog.String("tenant_id", string(account.Company)),
	)

	return &LoginResult{
		Token:     token,
		ExpiresAt: time.Now().Add(s.tokenTTL),
		Account: AccountSummary{
			ID:       account.ID,
			Username: account.Username,
			Email:    account.Email,
			Company:  account.Company,
		},
	}, nil
}

// BootstrapAccount describes an account that must exist after startup
type BootstrapAccount struct {
	Username string
	Password string
	Email    string
	Company  domain.Tenant
}

// DefaultBootstrapAccounts are the two fixed accounts created on first start
func DefaultBootstrapAccounts() []BootstrapAccount {
	return []BootstrapAccount{
		{Username: "admin", Password: "admin!", Email: "admin@crossingdelta.com", Company: "CrossingDelta"},
		{Username: "StudioFree", Password: "StudioFree!", Email: "admin@free.com", Company: "StudioFree"},
	}
}

// EnsureAccount creates the account unless one with the same username exists.
// It reports whether a new account was created.
func (s *AuthService) EnsureAccount(ctx context.Context, b BootstrapAccount) (bool, error) {
	_, err := s.accounts.GetByUsername(ctx, b.Username)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return false, fmt.Errorf("lookup %s: %w", b.Username, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(b.Password), bcrypt.DefaultCost)
	if err != nil {
		return false, fmt.Errorf("hash password for %s: %w", b.Username, err)
	}

	account := &domain.Account{
		Username:     b.Username,
		Email:        b.Email,
		PasswordHash: string(hash),
		Company:      b.Company,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return false, fmt.Errorf("create %s: %w", b.Username, err)
	}
	return true, nil
}

// Bootstrap ensures every given account exists
func (s *AuthService) Bootstrap(ctx context.Context, accounts []BootstrapAccount) error {
	for _, b := range accounts {
		created, err := s.EnsureAccount(ctx, b)
		if err != nil {
			return err
		}
		if created {
			s.logger.Info("bootstrap account created",
				slog.String("username", b.Username),
				slog.String("tenant_id", string(b.Company)),
			)
		}
	}
	return nil
}
