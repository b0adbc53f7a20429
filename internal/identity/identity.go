// Package identity verifies bearer tokens issued by the hosted auth
// provider.  Two verifiers exist: a shared-secret HS256 verifier and a JWKS
// verifier for ES256 tokens that caches the provider's keys.
package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Identity is the authenticated caller.
type Identity struct {
	UserID string
	Role   string
}

// Verifier turns a raw bearer token into an Identity.
type Verifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

// ErrUnauthorized is returned for any token that fails verification.
var ErrUnauthorized = errors.New("invalid or expired token")

// FetchError reports that the key set could not be retrieved.  It is an
// upstream failure, not a client error.
type FetchError struct {
	Err error
}

func (e *FetchError) Error() string { return "fetch jwks: " + e.Err.Error() }
func (e *FetchError) Unwrap() error { return e.Err }

// identityFromClaims enforces a UUID subject and extracts the role claim.
func identityFromClaims(claims jwt.MapClaims) (Identity, error) {
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return Identity{}, fmt.Errorf("%w: token missing sub claim", ErrUnauthorized)
	}
	id, err := uuid.Parse(sub)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: sub claim is not a UUID", ErrUnauthorized)
	}
	role, _ := claims["role"].(string)
	return Identity{UserID: id.String(), Role: role}, nil
}

// classify keeps upstream failures distinct from bad tokens.
func classify(err error) error {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe
	}
	if errors.Is(err, ErrUnauthorized) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrUnauthorized, err)
}
