package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoExpiry is returned when the credential parses as a JWT but carries no
// exp claim.
var ErrNoExpiry = errors.New("credential carries no expiry claim")

// ErrMalformed is returned when the credential is not a structurally valid
// JWT at all.
var ErrMalformed = errors.New("credential is not a well-formed token")

var parser = jwt.NewParser(jwt.WithoutClaimsValidation())

// ExpiresAt decodes the exp claim of the given credential without verifying
// its signature.
func ExpiresAt(credential string) (time.Time, error) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := parser.ParseUnverified(credential, &claims); err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, ErrNoExpiry
	}
	return claims.ExpiresAt.Time, nil
}
