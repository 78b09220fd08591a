package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"takedown/internal/directory"
	dErrors "takedown/pkg/domain-errors"
	"takedown/pkg/platform/sentinel"
)

// Service authenticates directory users and issues purpose-bound tokens.
type Service struct {
	dir    directory.Store
	issuer *Issuer
	logger *slog.Logger
}

// NewService builds the authentication service.
func NewService(dir directory.Store, issuer *Issuer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{dir: dir, issuer: issuer, logger: logger}
}

// Token is a successful login result.
type Token struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	Purpose     string    `json:"purpose"`
	Role        string    `json:"role"`
}

// errInvalidCredentials is shared by every login failure so responses do not
// reveal whether the username exists.
func errInvalidCredentials() error {
	return dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
}

// Login verifies the password and returns a token scoped to the user's role.
func (s *Service) Login(ctx context.Context, username, password string) (*Token, error) {
	user, err := s.dir.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, errInvalidCredentials()
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "look up user")
	}
	if !user.Active || !directory.CheckPassword(user.PasswordHash, password) {
		return nil, errInvalidCredentials()
	}

	signed, expiresAt, err := s.issuer.Issue(user.ID, user.Role)
	if err != nil {
		return nil, err
	}
	purpose, _ := PurposeFor(user.Role)

	s.logger.InfoContext(ctx, "user logged in",
		"user_id", user.ID,
		"role", user.Role,
		"purpose", purpose,
	)
	return &Token{
		AccessToken: signed,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt,
		Purpose:     string(purpose),
		Role:        string(user.Role),
	}, nil
}
