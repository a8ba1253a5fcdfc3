package user

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost is the work factor for new password hashes.
const DefaultBcryptCost = 12

// PasswordHasher defines minimal hashing interface (abstract so we can swap to argon2 later).
type PasswordHasher interface {
	Hash(pw string) (hash string, algo string, err error)
	Verify(hash, pw string) bool
	NeedsRehash(hash string) bool
}

// BcryptHasher implementation.
type BcryptHasher struct{ Cost int }

func (b BcryptHasher) cost() int {
	if b.Cost == 0 {
		return DefaultBcryptCost
	}
	return b.Cost
}

func (b BcryptHasher) Hash(pw string) (string, string, error) {
	cost := b.cost()
	h, err := bcrypt.GenerateFromPassword([]byte(pw), cost)
	if err != nil {
		return "", "", err
	}
	return string(h), fmt.Sprintf("bcrypt:%d", cost), nil
}

func (b BcryptHasher) Verify(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

// NeedsRehash reports whether hash was produced with a different cost than configured.
// Unparseable hashes always need a rehash.
func (b BcryptHasher) NeedsRehash(hash string) bool {
	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		return true
	}
	return cost != b.cost()
}
