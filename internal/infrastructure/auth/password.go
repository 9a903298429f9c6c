package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"rncflow/internal/domain/rnc"
	"rncflow/internal/errs"
	"rncflow/internal/ports"
)

type BcryptHasher struct {
	cost int
}

var _ ports.PasswordHasher = (*BcryptHasher)(nil)

func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

func (h *BcryptHasher) Hash(plain string) (string, error) {
	if plain == "" {
		return "", fmt.Errorf("%w: password", rnc.ErrFieldRequired)
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", fmt.Errorf("%w: password longer than 72 bytes", rnc.ErrInvalidField)
		}
		return "", errs.Wrap(err, "hash password")
	}
	return string(hashed), nil
}

// Compare returns ErrInvalidCredential on any mismatch.
func (h *BcryptHasher) Compare(hash string, plain string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)); err != nil {
		return fmt.Errorf("%w: password mismatch", ErrInvalidCredential)
	}
	return nil
}
