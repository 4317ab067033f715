package security

import (
	"crypto/sha256"

	"golang.org/x/crypto/bcrypt"
)

// TokenHasher hashes and verifies refresh tokens using bcrypt. The hash is
// salted per call, so the same token never produces the same hash twice and
// stored hashes cannot be looked up by value; callers must scan and compare.
type TokenHasher struct {
	Cost int
}

// NewTokenHasher returns a TokenHasher with the given bcrypt cost (4–31).
// Cost 10 matches the hash parameters of previously issued credentials.
func NewTokenHasher(cost int) *TokenHasher {
	if cost <= 0 {
		cost = 10
	}
	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	return &TokenHasher{Cost: cost}
}

// Hash produces a bcrypt hash of the token. The token is pre-hashed with
// SHA-256 because signed tokens exceed bcrypt's 72-byte input limit.
func (h *TokenHasher) Hash(token string) (string, error) {
	digest := sha256.Sum256([]byte(token))
	b, err := bcrypt.GenerateFromPassword(digest[:], h.Cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Matches reports whether the candidate token corresponds to the stored hash.
// Comparison is constant-time within bcrypt; any error (including a malformed
// stored hash) reports false.
func (h *TokenHasher) Matches(token, storedHash string) bool {
	digest := sha256.Sum256([]byte(token))
	return bcrypt.CompareHashAndPassword([]byte(storedHash), digest[:]) == nil
}
