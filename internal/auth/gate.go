// Package auth resolves bearer tokens into callers. A token carries only the
// user id and role; the gate always confirms the identity is still active so
// that soft-deleted accounts stop working right away.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"tickethub/internal/cache"
	apperrors "tickethub/internal/errors"
	"tickethub/internal/models"
	"tickethub/internal/repository"

	"github.com/golang-jwt/jwt/v5"
)

type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type Gate struct {
	secret []byte
	issuer string
	users  repository.UserRepository
	cache  *cache.IdentityCache
}

// NewGate builds a gate. identities may be nil.
func NewGate(secret, issuer string, users repository.UserRepository, identities *cache.IdentityCache) *Gate {
	return &Gate{
		secret: []byte(secret),
		issuer: issuer,
		users:  users,
		cache:  identities,
	}
}

// IssueToken signs an HS256 token for the user.
func (g *Gate) IssueToken(userID int64, role string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			Issuer:    g.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(g.secret)
}

// Verify checks the signature and expiry and returns the user id and role.
func (g *Gate) Verify(raw string) (int64, string, error) {
	if raw == "" {
		return 0, "", fmt.Errorf("%w: missing bearer token", apperrors.ErrUnauthenticated)
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if g.issuer != "" {
		opts = append(opts, jwt.WithIssuer(g.issuer))
	}

	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return g.secret, nil
	}, opts...)
	if err != nil || !tok.Valid {
		return 0, "", fmt.Errorf("%w: invalid token", apperrors.ErrUnauthenticated)
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return 0, "", fmt.Errorf("%w: invalid subject", apperrors.ErrUnauthenticated)
	}
	return userID, claims.Role, nil
}

// Resolve turns a raw bearer token into the current caller. Identities that
// no longer exist or were soft-deleted yield ErrNotFound.
func (g *Gate) Resolve(ctx context.Context, raw string) (*models.Caller, error) {
	userID, _, err := g.Verify(raw)
	if err != nil {
		return nil, err
	}

	user, err := g.cache.Get(ctx, userID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, err
		}
		if !errors.Is(err, cache.ErrMiss) {
			slog.Warn("Identity cache lookup failed", "user_id", userID, "error", err)
		}

		user, err = g.users.GetActiveByID(ctx, userID)
		if err != nil {
			return nil, err
		}

		if err := g.cache.Set(ctx, user); err != nil {
			slog.Warn("Failed to cache identity", "user_id", userID, "error", err)
		}
	}

	return &models.Caller{
		UserID:      user.ID,
		Email:       models.NormalizeEmail(user.Email),
		Role:        user.Role,
		OrganizerID: user.OrganizerID,
	}, nil
}
