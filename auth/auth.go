// Package auth resolves the identity behind a request from its session cookie.
package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/autom8ter/ideabase/errors"
	"github.com/golang-jwt/jwt/v5"
)

// RoleAdmin is the role allowed to use the admin api
const RoleAdmin = "admin"

// Config configures session verification
type Config struct {
	// Secret is the HMAC secret session tokens are signed with
	Secret string `json:"secret"`
	// Cookie is the name of the session cookie
	Cookie string `json:"cookie"`
}

// Identity is the authenticated user behind a request
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Claims are the claims carried by a session token. The subject is the user id.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

// Authenticator verifies session tokens
type Authenticator struct {
	secret []byte
	cookie string
}

// NewAuthenticator creates an Authenticator. An empty cookie name defaults to "session".
func NewAuthenticator(cfg Config) *Authenticator {
	cookie := cfg.Cookie
	if cookie == "" {
		cookie = "session"
	}
	return &Authenticator{secret: []byte(cfg.Secret), cookie: cookie}
}

// Cookie returns the name of the session cookie
func (a *Authenticator) Cookie() string {
	return a.cookie
}

// Verify parses and validates a session token
func (a *Authenticator) Verify(token string) (Identity, error) {
	if len(a.secret) == 0 {
		return Identity{}, errors.New(errors.Unauthorized, "session verification is not configured")
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New(errors.Unauthorized, "unexpected signing method: %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return Identity{}, errors.Wrap(err, errors.Unauthorized, "invalid session")
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return Identity{}, errors.New(errors.Unauthorized, "invalid session")
	}
	return Identity{ID: claims.Subject, Email: claims.Email, Role: claims.Role}, nil
}

// Authenticate resolves the identity from the request's session cookie, falling back to a bearer token
func (a *Authenticator) Authenticate(r *http.Request) (Identity, error) {
	if c, err := r.Cookie(a.cookie); err == nil && c.Value != "" {
		return a.Verify(c.Value)
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return a.Verify(strings.TrimPrefix(h, "Bearer "))
	}
	return Identity{}, errors.New(errors.Unauthorized, "not authenticated")
}

// Issue signs a session token for the identity. It is used by tooling and tests; sessions are normally issued
// by the identity provider.
func (a *Authenticator) Issue(identity Identity, ttl time.Duration) (string, error) {
	if len(a.secret) == 0 {
		return "", errors.New(errors.Internal, "no session secret configured")
	}
	now := time.Now().UTC()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email: identity.Email,
		Role:  identity.Role,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Policy decides whether an identity may use the admin api
type Policy func(ctx context.Context, identity Identity) bool

// AdminRole allows identities with the admin role
func AdminRole(ctx context.Context, identity Identity) bool {
	return identity.Role == RoleAdmin
}

type ctxKey int

const identityKey ctxKey = 0

// WithIdentity returns a context carrying the identity
func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// GetIdentity returns the identity carried by the context
func GetIdentity(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityKey).(Identity)
	return identity, ok
}
