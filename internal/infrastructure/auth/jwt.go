package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"rncflow/internal/domain/rnc"
	"rncflow/internal/errs"
	"rncflow/internal/ports"
)

const revokedKeyPrefix = "jwt:revoked:"

var ErrInvalidCredential = errs.New(errs.KindUnauthorized, "invalid credential")

type JWTConfig struct {
	Secret string
	Issuer string
	TTL    time.Duration
}

type claims struct {
	UserID uint64 `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// JWTAuthenticator signs and verifies HS256 tokens. Revoked token ids are kept
// in the cache until the token would have expired anyway.
type JWTAuthenticator struct {
	secret  []byte
	issuer  string
	ttl     time.Duration
	revoked ports.Cache
	now     func() time.Time
}

var (
	_ ports.Authenticator = (*JWTAuthenticator)(nil)
	_ ports.TokenIssuer   = (*JWTAuthenticator)(nil)
)

func NewJWTAuthenticator(cfg JWTConfig, revoked ports.Cache) (*JWTAuthenticator, error) {
	secret := strings.TrimSpace(cfg.Secret)
	if secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 8 * time.Hour
	}
	return &JWTAuthenticator{
		secret:  []byte(secret),
		issuer:  strings.TrimSpace(cfg.Issuer),
		ttl:     ttl,
		revoked: revoked,
		now:     time.Now,
	}, nil
}

func (a *JWTAuthenticator) Issue(ctx context.Context, identity ports.Identity) (ports.Token, error) {
	if ctx == nil {
		return ports.Token{}, errors.New("context is required")
	}
	if identity.UserID == 0 {
		return ports.Token{}, errors.New("user id is required")
	}
	if _, err := rnc.ParseRole(string(identity.Role)); err != nil {
		return ports.Token{}, err
	}

	now := a.now().UTC()
	expiresAt := now.Add(a.ttl)
	id := uuid.NewString()
	c := claims{
		UserID: identity.UserID,
		Role:   string(identity.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id,
			Subject:   identity.Subject,
			Issuer:    a.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(a.secret)
	if err != nil {
		return ports.Token{}, errs.Wrap(err, "sign token")
	}
	return ports.Token{Value: signed, ID: id, ExpiresAt: expiresAt}, nil
}

func (a *JWTAuthenticator) Verify(ctx context.Context, credential string) (ports.Identity, error) {
	c, err := a.parse(credential)
	if err != nil {
		return ports.Identity{}, err
	}

	role, err := rnc.ParseRole(c.Role)
	if err != nil {
		return ports.Identity{}, fmt.Errorf("%w: unrecognized role %q", ErrInvalidCredential, c.Role)
	}
	if c.UserID == 0 {
		return ports.Identity{}, fmt.Errorf("%w: missing user_id", ErrInvalidCredential)
	}

	if a.revoked != nil && c.ID != "" && ctx != nil {
		_, found, err := a.revoked.Get(ctx, revokedKeyPrefix+c.ID)
		if err != nil {
			return ports.Identity{}, errs.Wrap(err, "check token revocation")
		}
		if found {
			return ports.Identity{}, fmt.Errorf("%w: token revoked", ErrInvalidCredential)
		}
	}

	return ports.Identity{UserID: c.UserID, Role: role, Subject: c.Subject}, nil
}

func (a *JWTAuthenticator) Revoke(ctx context.Context, credential string) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if a.revoked == nil {
		return errors.New("revocation store is not configured")
	}

	c, err := a.parse(credential)
	if err != nil {
		return err
	}
	if c.ID == "" || c.ExpiresAt == nil {
		return fmt.Errorf("%w: token cannot be revoked", ErrInvalidCredential)
	}

	remaining := c.ExpiresAt.Time.Sub(a.now())
	if remaining <= 0 {
		return nil
	}
	return a.revoked.Set(ctx, revokedKeyPrefix+c.ID, c.ExpiresAt.Time.UTC().Format(time.RFC3339), remaining)
}

func (a *JWTAuthenticator) parse(credential string) (*claims, error) {
	raw := strings.TrimSpace(credential)
	raw = strings.TrimSpace(strings.TrimPrefix(raw, "Bearer "))
	if raw == "" {
		return nil, fmt.Errorf("%w: missing", ErrInvalidCredential)
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	c := &claims{}
	if _, err := jwt.ParseWithClaims(raw, c, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, opts...); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}
	return c, nil
}
