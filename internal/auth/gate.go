package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"taskkeeper/internal/domain"
	"taskkeeper/internal/repository"
)

// ErrUnauthorized covers every rejected token and every unknown subject.
var ErrUnauthorized = errors.New("could not validate credentials")

// UserLookup resolves a token subject to a user record.
type UserLookup interface {
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
}

// AccessVerifier validates an access token and returns its subject.
type AccessVerifier interface {
	VerifyAccessToken(token string) (string, error)
}

// Gate turns a bearer access token into the acting user. Every call goes
// to the user store so deleted accounts lose access immediately.
type Gate struct {
	tokens AccessVerifier
	users  UserLookup
	logger logrus.FieldLogger
}

func NewGate(tokens AccessVerifier, users UserLookup, logger logrus.FieldLogger) *Gate {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Gate{tokens: tokens, users: users, logger: logger}
}

// ResolveIdentity returns the user named by a valid access token. The
// returned user carries no password hash. Bad tokens and unknown subjects
// both yield ErrUnauthorized; store failures are returned as-is.
func (g *Gate) ResolveIdentity(ctx context.Context, accessToken string) (*domain.User, error) {
	subject, err := g.tokens.VerifyAccessToken(accessToken)
	if err != nil {
		g.logger.WithError(err).Debug("access token rejected")
		return nil, ErrUnauthorized
	}

	user, err := g.users.GetByUsername(ctx, subject)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			g.logger.WithField("subject", subject).Debug("token subject did not resolve")
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("resolve identity: %w", err)
	}

	resolved := *user
	resolved.PasswordHash = ""
	return &resolved, nil
}
