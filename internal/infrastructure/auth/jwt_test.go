package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"rncflow/internal/domain/rnc"
	"rncflow/internal/errs"
	"rncflow/internal/ports"
)

type testCache struct {
	data map[string]string
	ttl  map[string]time.Duration
}

func newTestCache() *testCache {
	return &testCache{
		data: make(map[string]string),
		ttl:  make(map[string]time.Duration),
	}
}

func (c *testCache) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *testCache) Set(_ context.Context, key string, value string, ttl time.Duration) error {
	c.data[key] = value
	c.ttl[key] = ttl
	return nil
}

func newTestAuthenticator(t *testing.T, cache ports.Cache) *JWTAuthenticator {
	t.Helper()
	a, err := NewJWTAuthenticator(JWTConfig{Secret: "s3cret", Issuer: "rncflow", TTL: time.Hour}, cache)
	if err != nil {
		t.Fatalf("NewJWTAuthenticator() error = %v", err)
	}
	return a
}

func TestIssueAndVerify(t *testing.T) {
	a := newTestAuthenticator(t, nil)
	ctx := context.Background()

	token, err := a.Issue(ctx, ports.Identity{UserID: 12, Role: rnc.RoleQuality, Subject: "ana@plant.example"})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if token.ID == "" || token.Value == "" {
		t.Fatalf("Issue() = %+v", token)
	}

	identity, err := a.Verify(ctx, "Bearer "+token.Value)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if identity.UserID != 12 || identity.Role != rnc.RoleQuality || identity.Subject != "ana@plant.example" {
		t.Fatalf("Verify() = %+v", identity)
	}
}

func TestVerifyRejects(t *testing.T) {
	a := newTestAuthenticator(t, nil)
	ctx := context.Background()

	other, err := NewJWTAuthenticator(JWTConfig{Secret: "different", Issuer: "rncflow"}, nil)
	if err != nil {
		t.Fatalf("NewJWTAuthenticator() error = %v", err)
	}
	foreign, err := other.Issue(ctx, ports.Identity{UserID: 1, Role: rnc.RoleAdmin})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	expiring := newTestAuthenticator(t, nil)
	expiring.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, err := expiring.Issue(ctx, ports.Identity{UserID: 1, Role: rnc.RoleAdmin})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	badRole, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		UserID: 1,
		Role:   "SUPERVISOR",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "rncflow",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("s3cret"))
	if err != nil {
		t.Fatalf("sign bad role: %v", err)
	}

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims{
		UserID: 1,
		Role:   "ADMIN",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "rncflow",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}

	tests := []struct {
		name       string
		credential string
	}{
		{"missing", ""},
		{"malformed", "not-a-token"},
		{"wrong secret", foreign.Value},
		{"expired", expired.Value},
		{"unknown role", badRole},
		{"alg none", unsigned},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.Verify(ctx, tt.credential)
			if !errors.Is(err, ErrInvalidCredential) {
				t.Fatalf("Verify() error = %v, want ErrInvalidCredential", err)
			}
			if errs.KindOf(err) != errs.KindUnauthorized {
				t.Fatalf("kind = %v", errs.KindOf(err))
			}
		})
	}
}

func TestRevokeBlocksFurtherUse(t *testing.T) {
	cache := newTestCache()
	a := newTestAuthenticator(t, cache)
	ctx := context.Background()

	token, err := a.Issue(ctx, ports.Identity{UserID: 3, Role: rnc.RoleTechnician})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if err := a.Revoke(ctx, token.Value); err != nil {
		t.Fatalf("Revoke() error = %v", err)
	}

	ttl := cache.ttl[revokedKeyPrefix+token.ID]
	if ttl <= 0 || ttl > time.Hour {
		t.Fatalf("revocation ttl = %v", ttl)
	}
	if _, err := a.Verify(ctx, token.Value); !errors.Is(err, ErrInvalidCredential) {
		t.Fatalf("Verify(revoked) error = %v", err)
	}
}

func TestNewJWTAuthenticatorRequiresSecret(t *testing.T) {
	if _, err := NewJWTAuthenticator(JWTConfig{Secret: "  "}, nil); err == nil {
		t.Fatalf("expected error for empty secret")
	}
}

func TestBcryptHasher(t *testing.T) {
	h := NewBcryptHasher(4)

	hash, err := h.Hash("correct horse")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if err := h.Compare(hash, "correct horse"); err != nil {
		t.Fatalf("Compare(match) error = %v", err)
	}
	if err := h.Compare(hash, "wrong"); !errors.Is(err, ErrInvalidCredential) {
		t.Fatalf("Compare(mismatch) error = %v", err)
	}
	if _, err := h.Hash(""); errs.KindOf(err) != errs.KindValidation {
		t.Fatalf("Hash(empty) error = %v", err)
	}
}
