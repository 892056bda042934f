package auth

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenSigner mints and verifies HS256 session JWTs. Claims are minimal:
// sub carries the user ID, exp the expiry. The server-side sessions row is
// the authority on revocation; the JWT only proves the token was ours.
type tokenSigner struct {
	secret []byte
}

// sign creates a token for userID expiring at expiresAt.
func (t *tokenSigner) sign(userID int64, expiresAt time.Time) (string, error) {
	claims := jwt.MapClaims{
		"sub": strconv.FormatInt(userID, 10),
		"exp": expiresAt.Unix(),
		"iat": time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// verify checks signature, algorithm, and expiry, and returns the user ID
// from the sub claim.
func (t *tokenSigner) verify(tokenString string) (int64, error) {
	token, err := jwt.Parse(tokenString,
		func(_ *jwt.Token) (any, error) { return t.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return 0, fmt.Errorf("parsing token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, fmt.Errorf("unexpected claims type %T", token.Claims)
	}

	sub, err := claims.GetSubject()
	if err != nil {
		return 0, fmt.Errorf("reading sub claim: %w", err)
	}

	userID, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("sub claim %q is not a user ID: %w", sub, err)
	}
	return userID, nil
}
