package auth

import (
	"errors"
	"fmt"
	"regexp"

	"golang.org/x/crypto/bcrypt"

	"finanze/internal/core"
)

// DefaultCost is the bcrypt work factor for new hashes.
const DefaultCost = 12

var (
	passwordCharset = regexp.MustCompile(`^[A-Za-z\d@$!%*#?&]+$`)
	hasLetter       = regexp.MustCompile(`[A-Za-z]`)
	hasDigit        = regexp.MustCompile(`\d`)
)

// Hasher hashes and verifies passwords with bcrypt.
type Hasher struct {
	Cost int
}

func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	return &Hasher{Cost: cost}
}

func (h *Hasher) Hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), h.Cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}

// Verify reports ErrInvalidCredentials when password does not match hash.
func (h *Hasher) Verify(hash, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return core.ErrInvalidCredentials
	}
	if err != nil {
		return fmt.Errorf("verify password: %w", err)
	}
	return nil
}

// ValidatePassword enforces the password policy: at least 8 characters,
// a letter and a digit, and only letters, digits and @$!%*#?&.
func ValidatePassword(field, password string) error {
	switch {
	case password == "":
		return core.NewValidationError(field, "please enter a password")
	case len(password) < 8:
		return core.NewValidationError(field, "password must have at least 8 characters")
	case !passwordCharset.MatchString(password):
		return core.NewValidationError(field, "password may only contain letters, digits and @$!%*#?&")
	case !hasLetter.MatchString(password) || !hasDigit.MatchString(password):
		return core.NewValidationError(field, "password must contain at least one letter and one number")
	}
	return nil
}
