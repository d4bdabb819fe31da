package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/noah-isme/userdesk/internal/shared"
)

// Authenticator exchanges credentials for a remote token.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (string, error)
}

// Service wraps authentication business rules.
type Service struct {
	authn Authenticator
}

// NewService constructs a new Service.
func NewService(authn Authenticator) *Service {
	return &Service{authn: authn}
}

// Authenticate validates credentials against the remote directory. Rejections
// are shared.ErrInvalidCredentials; anything else is a transport or server failure.
func (s *Service) Authenticate(ctx context.Context, email, password string) (string, error) {
	token, err := s.authn.Login(ctx, strings.TrimSpace(email), password)
	if err != nil {
		return "", err
	}
	if token == "" {
		return "", shared.ErrInvalidCredentials
	}
	return token, nil
}

// Rejected reports whether err means the credentials were refused, as opposed
// to the directory being unreachable.
func Rejected(err error) bool {
	return errors.Is(err, shared.ErrInvalidCredentials)
}
