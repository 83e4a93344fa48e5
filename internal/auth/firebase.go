// Package auth verifies Firebase ID tokens and carries the verified identity
// through the request context.
//
// VERIFICATION FLOW:
//  1. The client signs in with Firebase and sends the ID token as
//     "Authorization: Bearer <token>" on every API call.
//  2. The middleware pulls the token from the header and hands it to Verifier.
//  3. Verifier looks up the signing key by the token's kid header, checks the
//     RS256 signature and validates the claims against the project ID.
//  4. The token's subject (the Firebase uid) goes into the request context.
//     Handlers read it with UserIDFromContext.
//
// No session state is kept on the server. Only the provider's public keys
// are cached.
package auth

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/anuj-sharma9/SpendingInsights-WebApp/internal/apperror"
)

// maxSubjectLength is the longest uid Firebase issues.
const maxSubjectLength = 128

// issuerPrefix joined with the project ID is the required "iss" claim.
const issuerPrefix = "https://securetoken.google.com/"

// KeyProvider looks up a signing key by its key ID.
// *KeySet is the production implementation.
type KeyProvider interface {
	Key(ctx context.Context, kid string) (*rsa.PublicKey, error)
}

// Verifier validates Firebase ID tokens for one project.
type Verifier struct {
	projectID string
	keys      KeyProvider
	now       func() time.Time
}

// NewVerifier creates a Verifier. An empty projectID is accepted so the
// server can start unconfigured; every Verify call then fails with
// ErrMisconfigured.
func NewVerifier(projectID string, keys KeyProvider) *Verifier {
	return &Verifier{
		projectID: projectID,
		keys:      keys,
		now:       time.Now,
	}
}

// firebaseClaims is the part of the ID token payload we check. The
// registered claims cover iss, aud, sub, exp and iat.
type firebaseClaims struct {
	jwt.RegisteredClaims
}

// Validate runs after the library's own checks. jwt/v5 calls it because
// firebaseClaims implements jwt.ClaimsValidator.
func (c firebaseClaims) Validate() error {
	switch {
	case c.Subject == "":
		return errors.New("token has no subject")
	case len(c.Subject) > maxSubjectLength:
		return fmt.Errorf("subject longer than %d characters", maxSubjectLength)
	}
	return nil
}

// Verify checks rawToken and returns the Firebase uid it was issued to.
//
// Errors are *apperror.AppError values: ErrMisconfigured when no project is
// set, ErrUnauthenticated for everything wrong with the token itself or with
// fetching the keys needed to check it.
func (v *Verifier) Verify(ctx context.Context, rawToken string) (string, error) {
	if v.projectID == "" {
		return "", apperror.Misconfigured("Firebase is not configured")
	}
	if rawToken == "" {
		return "", apperror.Unauthenticated("Missing authentication token")
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithAudience(v.projectID),
		jwt.WithIssuer(issuerPrefix+v.projectID),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(time.Minute),
		jwt.WithTimeFunc(v.now),
	)

	var claims firebaseClaims
	_, err := parser.ParseWithClaims(rawToken, &claims, func(token *jwt.Token) (any, error) {
		kid, _ := token.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("token has no kid header")
		}
		return v.keys.Key(ctx, kid)
	})
	if err != nil {
		return "", &apperror.AppError{
			Err:     apperror.ErrUnauthenticated,
			Message: tokenErrorMessage(err),
			Cause:   err,
		}
	}

	return claims.Subject, nil
}

// tokenErrorMessage turns a parse failure into a message safe for clients.
func tokenErrorMessage(err error) string {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "Token expired"
	case errors.Is(err, ErrKeysUnavailable):
		return "Unable to verify token"
	default:
		return "Invalid token"
	}
}
