package gotrue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"nightout/internal/auth/models"
	"nightout/internal/identity/wire"
	"nightout/internal/sentinel"
)

// AccessClaims are the GoTrue access-token claims the client reads.
type AccessClaims struct {
	Email     string `json:"email,omitempty"`
	Role      string `json:"role,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	jwt.RegisteredClaims
}

// SignAccessToken mints an HS256 access token shaped like the ones GoTrue issues.
// It is meant for local development and tests against a shared secret.
func SignAccessToken(secret string, user *models.User, issuedAt, expiresAt time.Time) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("jwt secret is required: %w", sentinel.ErrInvalidInput)
	}
	if user == nil {
		return "", fmt.Errorf("user is required: %w", sentinel.ErrInvalidInput)
	}
	claims := AccessClaims{
		Email:     user.Email,
		Role:      "authenticated",
		SessionID: uuid.NewString(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			Audience:  jwt.ClaimStrings{"authenticated"},
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// claimsParser verifies HS256 signatures when a secret is configured and only
// decodes the token otherwise. Expiry is checked by the caller.
type claimsParser struct {
	secret []byte
	parser *jwt.Parser
}

func newClaimsParser(secret string) *claimsParser {
	p := &claimsParser{parser: jwt.NewParser(jwt.WithoutClaimsValidation())}
	if secret != "" {
		p.secret = []byte(secret)
		p.parser = jwt.NewParser(
			jwt.WithoutClaimsValidation(),
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		)
	}
	return p
}

func (p *claimsParser) parse(token string) (*AccessClaims, error) {
	claims := new(AccessClaims)
	if p.secret == nil {
		if _, _, err := p.parser.ParseUnverified(token, claims); err != nil {
			return nil, fmt.Errorf("parse access token: %w", errors.Join(sentinel.ErrUnauthorized, err))
		}
		return claims, nil
	}
	parsed, err := p.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return p.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("verify access token: %w", errors.Join(sentinel.ErrUnauthorized, err))
	}
	if !parsed.Valid {
		return nil, fmt.Errorf("verify access token: %w", sentinel.ErrUnauthorized)
	}
	return claims, nil
}

// loadSession reads the persisted session. A corrupt document is removed and
// reported as no session.
func (c *Client) loadSession(ctx context.Context) (*models.Session, error) {
	raw, err := c.store.Get(ctx, c.storageKey)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	session, err := wire.DecodeSession([]byte(raw), c.now())
	if err != nil {
		c.logger.WarnContext(ctx, "discarding unreadable stored session", "error", err)
		return nil, c.forget(ctx)
	}
	return session, nil
}

func (c *Client) saveSession(ctx context.Context, session *models.Session) error {
	raw, err := wire.EncodeSession(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := c.store.Set(ctx, c.storageKey, string(raw)); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (c *Client) forget(ctx context.Context) error {
	if err := c.store.Remove(ctx, c.storageKey); err != nil {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}
