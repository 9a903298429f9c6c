package ports

import (
	"context"
	"time"

	"rncflow/internal/domain/rnc"
)

// Identity is what a verified credential resolves to.
type Identity struct {
	UserID  uint64
	Role    rnc.Role
	Subject string
}

func (i Identity) Actor() rnc.Actor {
	return rnc.Actor{UserID: i.UserID, Role: i.Role}
}

// Authenticator verifies a bearer credential. Any failure carries errs.KindUnauthorized.
type Authenticator interface {
	Verify(ctx context.Context, credential string) (Identity, error)
}

type Token struct {
	Value     string
	ID        string
	ExpiresAt time.Time
}

type TokenIssuer interface {
	Issue(ctx context.Context, identity Identity) (Token, error)
	// Revoke invalidates a credential until its natural expiry.
	Revoke(ctx context.Context, credential string) error
}

type PasswordHasher interface {
	Hash(plain string) (string, error)
	Compare(hash string, plain string) error
}
