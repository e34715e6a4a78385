// ABOUTME: Credential hasher: bcrypt hashing and verification behind a bounded worker pool
// ABOUTME: Keeps slow hashing from monopolising CPU needed by request handling

package auth

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

// HashCost is the bcrypt work factor applied to every stored password.
const HashCost = 10

// ErrPasswordTooLong is returned for plaintexts bcrypt cannot represent (over 72 bytes).
var ErrPasswordTooLong = errors.New("password too long")

// dummyHash is compared against when the account does not exist, so that a
// login for an unknown email costs the same as a wrong password.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// Hasher turns plaintext secrets into salted bcrypt hashes and checks them.
// At most `workers` hash computations run at once; callers wait for a slot.
type Hasher struct {
	slots *semaphore.Weighted
	cost  int
}

// NewHasher creates a Hasher. workers <= 0 means one slot per CPU.
func NewHasher(workers int) *Hasher {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Hasher{
		slots: semaphore.NewWeighted(int64(workers)),
		cost:  HashCost,
	}
}

// Hash returns a new bcrypt hash of plaintext. Each call uses a fresh salt.
func (h *Hasher) Hash(ctx context.Context, plaintext string) (string, error) {
	if err := h.slots.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer h.slots.Release(1)

	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", ErrPasswordTooLong
		}
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

// Verify reports whether plaintext matches hash.
// Malformed hashes and cancelled contexts yield false.
func (h *Hasher) Verify(ctx context.Context, plaintext, hash string) bool {
	if err := h.slots.Acquire(ctx, 1); err != nil {
		return false
	}
	defer h.slots.Release(1)

	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

// VerifyDummy burns the same work as Verify against a fixed hash and always
// returns false. Used when no credential record exists.
func (h *Hasher) VerifyDummy(ctx context.Context, plaintext string) bool {
	_ = h.Verify(ctx, plaintext, dummyHash)
	return false
}
