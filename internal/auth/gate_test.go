package auth

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"taskkeeper/internal/domain"
	"taskkeeper/internal/repository"
)

type stubUsers struct {
	users map[string]*domain.User
	err   error
	calls int
}

func (s *stubUsers) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	user, ok := s.users[username]
	if !ok {
		return nil, fmt.Errorf("user: %w", repository.ErrNotFound)
	}
	return user, nil
}

func TestGateResolveIdentity(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	tokens := newTestTokenService(t, "secret", clock)
	users := &stubUsers{users: map[string]*domain.User{
		"alice": {ID: 7, Username: "alice", Email: "a@x.com", PasswordHash: "secret-hash"},
	}}
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	gate := NewGate(tokens, users, logger)
	ctx := context.Background()

	access, err := tokens.IssueAccessToken("alice")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	user, err := gate.ResolveIdentity(ctx, access)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if user.ID != 7 || user.Username != "alice" {
		t.Fatalf("unexpected user %+v", user)
	}
	if user.PasswordHash != "" {
		t.Fatal("resolved user leaks password hash")
	}
	if users.users["alice"].PasswordHash != "secret-hash" {
		t.Fatal("resolve mutated the stored user")
	}

	// each call re-reads the store
	if _, err := gate.ResolveIdentity(ctx, access); err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if users.calls != 2 {
		t.Fatalf("lookups = %d, want 2", users.calls)
	}

	refresh, err := tokens.IssueRefreshToken("alice")
	if err != nil {
		t.Fatalf("issue refresh: %v", err)
	}
	ghost, err := tokens.IssueAccessToken("ghost")
	if err != nil {
		t.Fatalf("issue ghost: %v", err)
	}

	for name, token := range map[string]string{
		"garbage":        "nope",
		"refresh token":  refresh,
		"unknown person": ghost,
	} {
		if _, err := gate.ResolveIdentity(ctx, token); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("%s: err = %v, want ErrUnauthorized", name, err)
		}
	}
	if len(hook.Entries) == 0 {
		t.Fatal("expected rejections to be logged at debug level")
	}
	for _, entry := range hook.Entries {
		if entry.Level != logrus.DebugLevel {
			t.Fatalf("rejection logged at %s, want debug", entry.Level)
		}
	}
}

func TestGateSurfacesStoreFailures(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	tokens := newTestTokenService(t, "secret", clock)
	storeErr := errors.New("database is locked")
	logger, _ := test.NewNullLogger()
	gate := NewGate(tokens, &stubUsers{err: storeErr}, logger)

	access, err := tokens.IssueAccessToken("alice")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	_, err = gate.ResolveIdentity(context.Background(), access)
	if !errors.Is(err, storeErr) {
		t.Fatalf("err = %v, want store error", err)
	}
	if errors.Is(err, ErrUnauthorized) {
		t.Fatal("store failure reported as unauthorized")
	}
}
