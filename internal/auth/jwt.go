// Package auth verifies caller identity tokens issued by the identity provider.
package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sheikh-saqib/peer-payments/internal/apperr"
)

// Identity is the authenticated caller.
type Identity struct {
	AccountID string
	Email     string
}

type claims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
}

var ErrUnauthenticated = apperr.Unauthenticated("user must be authenticated")

// Verifier checks HS256 bearer tokens. The subject claim is the account id.
type Verifier struct {
	secret []byte
	issuer string
	now    func() time.Time
}

func NewVerifier(secret, issuer string) *Verifier {
	return &Verifier{secret: []byte(secret), issuer: issuer, now: time.Now}
}

// Verify parses token and returns the caller it was issued to.
func (v *Verifier) Verify(token string) (Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Identity{}, ErrUnauthenticated
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	var parsed claims
	_, err := jwt.ParseWithClaims(token, &parsed, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, apperr.Wrap(apperr.KindUnauthenticated, "token has expired", err)
		}
		return Identity{}, apperr.Wrap(apperr.KindUnauthenticated, "invalid token", err)
	}
	if parsed.Subject == "" {
		return Identity{}, apperr.Unauthenticated("token has no subject")
	}
	return Identity{AccountID: parsed.Subject, Email: parsed.Email}, nil
}

// Issue signs a token for accountID valid for ttl. Used for local tooling;
// production tokens come from the identity provider.
func (v *Verifier) Issue(accountID, email string, ttl time.Duration) (string, error) {
	now := v.now()
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email: email,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(v.secret)
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
