package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/crossingdelta/timeline/internal/domain"
)

// Claims is the session token payload. Company is the tenant every task
// operation is scoped to.
type Claims struct {
	AccountID int64  `json:"id"`
	Username  string `json:"username"`
	Company   string `json:"company"`
	jwt.RegisteredClaims
}

// Principal converts verified claims into the identity handed to services
func (c *Claims) Principal() domain.Principal {
	return domain.Principal{
		AccountID: c.AccountID,
		Username:  c.Username,
		Tenant:    domain.Tenant(c.Company),
	}
}

type TokenManager struct {
	secret []byte
	issuer string
	now    func() time.Time
}

func NewTokenManager(secret, issuer string) *TokenManager {
	if secret == "" {
		secret = "change-me-in-production"
	}
	if issuer == "" {
		issuer = "timeline"
	}
	return &TokenManager{secret: []byte(secret), issuer: issuer, now: time.Now}
}

// GenerateToken signs a session token for an authenticated account
func (tm *TokenManager) GenerateToken(accountID int64, username string, tenant domain.Tenant, expiresIn time.Duration) (string, error) {
	if accountID == 0 || tenant == "" {
		return "", fmt.Errorf("account id and company required")
	}
	now := tm.now()
	claims := Claims{
		AccountID: accountID,
		Username:  username,
		Company:   string(tenant),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", accountID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
			Issuer:    tm.issuer,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(tm.secret)
}

// ValidateToken verifies signature, issuer and expiry. Every failure wraps
// domain.ErrInvalidToken.
func (tm *TokenManager) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return tm.secret, nil
	},
		jwt.WithIssuer(tm.issuer),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(tm.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Company == "" {
		return nil, domain.ErrInvalidToken
	}
	return claims, nil
}

// ExtractToken returns the token part of a "Bearer <token>" header.
// A missing header or empty token part yields domain.ErrMissingToken; a
// malformed scheme yields domain.ErrInvalidToken.
func ExtractToken(authHeader string) (string, error) {
	authHeader = strings.TrimSpace(authHeader)
	if authHeader == "" {
		return "", domain.ErrMissingToken
	}
	scheme, token, found := strings.Cut(authHeader, " ")
	token = strings.TrimSpace(token)
	if !found || token == "" {
		if strings.EqualFold(scheme, "Bearer") {
			return "", domain.ErrMissingToken
		}
		return "", errors.Join(domain.ErrInvalidToken, fmt.Errorf("invalid authorization header"))
	}
	if !strings.EqualFold(scheme, "Bearer") {
		return "", errors.Join(domain.ErrInvalidToken, fmt.Errorf("unsupported authorization scheme %q", scheme))
	}
	return token, nil
}
