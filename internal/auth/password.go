package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrPasswordTooLong is returned when a password exceeds what bcrypt can hash.
var ErrPasswordTooLong = errors.New("password must be at most 72 bytes")

// HasherConfig describes the password hashing parameters.
type HasherConfig struct {
	Cost          int
	MaxConcurrent int
}

// PasswordHasher hashes and verifies passwords with bcrypt. At most
// MaxConcurrent hash or compare operations run at the same time; callers
// beyond that wait until a slot frees up or their context ends.
type PasswordHasher struct {
	cost      int
	sem       chan struct{}
	dummyHash []byte
}

func NewPasswordHasher(cfg HasherConfig) (*PasswordHasher, error) {
	if cfg.Cost == 0 {
		cfg.Cost = bcrypt.DefaultCost
	}
	if cfg.Cost < bcrypt.MinCost || cfg.Cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 4
	}

	// compared against when the user does not exist so the miss costs the same
	dummy, err := bcrypt.GenerateFromPassword([]byte("taskkeeper-dummy-password"), cfg.Cost)
	if err != nil {
		return nil, fmt.Errorf("prepare dummy hash: %w", err)
	}

	return &PasswordHasher{
		cost:      cfg.Cost,
		sem:       make(chan struct{}, cfg.MaxConcurrent),
		dummyHash: dummy,
	}, nil
}

// Hash returns a salted bcrypt hash of password.
func (h *PasswordHasher) Hash(ctx context.Context, password string) (string, error) {
	if err := h.acquire(ctx); err != nil {
		return "", err
	}
	defer h.release()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", ErrPasswordTooLong
		}
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Verify reports whether password matches hash. Any failure, including a
// malformed hash or a cancelled context, is reported as a mismatch.
func (h *PasswordHasher) Verify(ctx context.Context, password, hash string) bool {
	if err := h.acquire(ctx); err != nil {
		return false
	}
	defer h.release()

	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Burn performs a comparison against a fixed hash and discards the result.
func (h *PasswordHasher) Burn(ctx context.Context, password string) {
	if err := h.acquire(ctx); err != nil {
		return
	}
	defer h.release()

	_ = bcrypt.CompareHashAndPassword(h.dummyHash, []byte(password))
}

func (h *PasswordHasher) acquire(ctx context.Context) error {
	select {
	case h.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *PasswordHasher) release() {
	<-h.sem
}
