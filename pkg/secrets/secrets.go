// Package secrets hashes and verifies staff passwords with bcrypt.
package secrets

import (
	"crypto/rand"
	"encoding/base64"
	"errors"

	"golang.org/x/crypto/bcrypt"

	dErrors "dsnap/pkg/domain-errors"
)

// Hasher hashes and verifies passwords at a fixed bcrypt cost.
type Hasher struct {
	cost  int
	dummy []byte
}

// NewHasher builds a hasher. cost is clamped to bcrypt's accepted range.
func NewHasher(cost int) *Hasher {
	cost = max(bcrypt.MinCost, min(cost, bcrypt.MaxCost))
	// Hash of a random value, compared against when a username is unknown so
	// both paths spend the same bcrypt time.
	dummy, _ := bcrypt.GenerateFromPassword([]byte(rand.Text()), cost)
	return &Hasher{cost: cost, dummy: dummy}
}

// DefaultHasher uses bcrypt.DefaultCost.
func DefaultHasher() *Hasher {
	return NewHasher(bcrypt.DefaultCost)
}

// Hash creates a bcrypt hash of the password.
func (h *Hasher) Hash(password string) (string, error) {
	if password == "" {
		return "", dErrors.New(dErrors.CodeValidation, "password cannot be empty")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", dErrors.New(dErrors.CodeValidation, "password is too long")
		}
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "could not hash password")
	}
	return string(hashed), nil
}

// Verify checks a plaintext password against a bcrypt hash.
func (h *Hasher) Verify(password, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "could not verify password")
	}
	return nil
}

// VerifyNothing burns one bcrypt comparison and always fails.
func (h *Hasher) VerifyNothing(password string) error {
	_ = bcrypt.CompareHashAndPassword(h.dummy, []byte(password))
	return dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
}

// Generate returns a random URL-safe secret, used for generated staff passwords.
func Generate() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "could not generate secret")
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
