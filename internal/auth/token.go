package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"takedown/internal/workflow"
	dErrors "takedown/pkg/domain-errors"
)

// Purpose scopes a token to one class of operation. Tokens carry exactly one
// purpose derived from the holder's role, so a stolen submission token cannot
// drive reviews and vice versa.
type Purpose string

const (
	PurposeSubmission Purpose = "takedown_submission"
	PurposeReview     Purpose = "case_review"
	PurposeAdmin      Purpose = "admin_action"
)

// PurposeFor maps a role to the single purpose its tokens carry. System has
// no purpose; the worker acts in-process and never authenticates over HTTP.
func PurposeFor(role workflow.Role) (Purpose, error) {
	switch role {
	case workflow.RoleVictim:
		return PurposeSubmission, nil
	case workflow.RoleOfficer:
		return PurposeReview, nil
	case workflow.RoleAdmin:
		return PurposeAdmin, nil
	default:
		return "", fmt.Errorf("no token purpose for role %q", role)
	}
}

const issuerName = "takedown"

// Claims is the JWT payload for service tokens.
type Claims struct {
	Role    string `json:"role"`
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

// Issuer mints and verifies HS256 service tokens.
type Issuer struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// NewIssuer builds a token issuer with the given signing key and token TTL.
func NewIssuer(key []byte, ttl time.Duration) *Issuer {
	return &Issuer{key: key, ttl: ttl, now: time.Now}
}

// Issue mints a token for the user scoped to the role's purpose.
func (i *Issuer) Issue(userID string, role workflow.Role) (string, time.Time, error) {
	purpose, err := PurposeFor(role)
	if err != nil {
		return "", time.Time{}, dErrors.Wrap(err, dErrors.CodeForbidden, "issue token")
	}

	now := i.now().UTC()
	expiresAt := now.Add(i.ttl)
	claims := Claims{
		Role:    string(role),
		Purpose: string(purpose),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuerName,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.key)
	if err != nil {
		return "", time.Time{}, dErrors.Wrap(err, dErrors.CodeInternal, "sign token")
	}
	return signed, expiresAt, nil
}

// Verify parses and validates a token, returning its claims.
func (i *Issuer) Verify(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (any, error) { return i.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuerName),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnauthorized, "invalid token")
	}
	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	return claims, nil
}
