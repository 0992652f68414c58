package security

import (
	"errors"

	"github.com/geocoder89/roadwatch/internal/apperr"
	"golang.org/x/crypto/bcrypt"
)

// Passwords hashes and verifies user passwords with bcrypt.
type Passwords struct {
	cost int
}

// NewPasswords falls back to bcrypt.DefaultCost (10 rounds) for out-of-range costs.
func NewPasswords(cost int) *Passwords {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}

	return &Passwords{cost: cost}
}

// Hash returns a salted, self-describing bcrypt hash. The salt is random per call.
func (p *Passwords) Hash(plain string) (string, error) {
	if plain == "" {
		return "", apperr.Incomplete("Submit a password to perform the hash operation.")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(plain), p.cost)

	if err != nil {
		return "", apperr.Hashing("Failed to hash the password.", err)
	}

	return string(hash), nil
}

// Verify compares a plaintext password with a stored hash.
// A mismatch is (false, nil); a malformed hash is a hashing failure.
func (p *Passwords) Verify(plain, hash string) (bool, error) {
	if plain == "" || hash == "" {
		return false, apperr.Incomplete("Send password and hash for comparison.")
	}

	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))

	if err == nil {
		return true, nil
	}

	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}

	return false, apperr.Hashing("Password comparison failed.", err)
}
