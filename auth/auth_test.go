package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/autom8ter/ideabase/auth"
	"github.com/autom8ter/ideabase/errors"
	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
)

func TestAuthenticator(t *testing.T) {
	a := auth.NewAuthenticator(auth.Config{Secret: "secret"})
	identity := auth.Identity{ID: gofakeit.UUID(), Email: gofakeit.Email(), Role: auth.RoleAdmin}
	t.Run("cookie", func(t *testing.T) {
		token, err := a.Issue(identity, time.Hour)
		assert.NoError(t, err)
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.AddCookie(&http.Cookie{Name: a.Cookie(), Value: token})
		got, err := a.Authenticate(r)
		assert.NoError(t, err)
		assert.Equal(t, identity, got)
	})
	t.Run("bearer", func(t *testing.T) {
		token, err := a.Issue(identity, time.Hour)
		assert.NoError(t, err)
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "Bearer "+token)
		got, err := a.Authenticate(r)
		assert.NoError(t, err)
		assert.Equal(t, identity.ID, got.ID)
	})
	t.Run("missing", func(t *testing.T) {
		_, err := a.Authenticate(httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, errors.Unauthorized, errors.CodeOf(err))
	})
	t.Run("expired", func(t *testing.T) {
		token, err := a.Issue(identity, -time.Minute)
		assert.NoError(t, err)
		_, err = a.Verify(token)
		assert.Equal(t, errors.Unauthorized, errors.CodeOf(err))
	})
	t.Run("wrong secret", func(t *testing.T) {
		other := auth.NewAuthenticator(auth.Config{Secret: "other"})
		token, err := other.Issue(identity, time.Hour)
		assert.NoError(t, err)
		_, err = a.Verify(token)
		assert.Error(t, err)
	})
	t.Run("no secret", func(t *testing.T) {
		_, err := auth.NewAuthenticator(auth.Config{}).Verify("x")
		assert.Error(t, err)
	})
}

func TestPolicy(t *testing.T) {
	ctx := context.Background()
	assert.True(t, auth.AdminRole(ctx, auth.Identity{Role: auth.RoleAdmin}))
	assert.False(t, auth.AdminRole(ctx, auth.Identity{Role: "user"}))
	id := auth.Identity{ID: "1"}
	got, ok := auth.GetIdentity(auth.WithIdentity(ctx, id))
	assert.True(t, ok)
	assert.Equal(t, id, got)
	_, ok = auth.GetIdentity(ctx)
	assert.False(t, ok)
}
