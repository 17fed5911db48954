package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mind-engage/mindengage-exams/internal/rbac"
)

type users map[string]Credentials

func (u users) UserByUsername(_ context.Context, name string) (Credentials, error) {
	c, ok := u[name]
	if !ok {
		return Credentials{}, ErrUnknownUser
	}
	return c, nil
}

func TestIssueAndParse(t *testing.T) {
	a := NewAuthService("secret", time.Hour)
	tok, err := a.IssueJWT("u1", rbac.RoleTeacher)
	require.NoError(t, err)

	c, err := a.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "u1", c.Sub)
	assert.Equal(t, rbac.RoleTeacher, c.Role)
	assert.Equal(t, Issuer, c.Issuer)

	_, err = NewAuthService("other", time.Hour).Parse(tok)
	assert.Error(t, err)
}

func TestLoginHandler(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	require.NoError(t, err)
	a := NewAuthService("secret", time.Hour)
	h := LoginHandler(a, users{"ann": {ID: "u1", Username: "ann", Role: rbac.RoleStudent, PassHash: string(hash)}})

	post := func(body string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h(rec, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body)))
		return rec
	}

	rec := post(`{"username":" ann ","password":"pw"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"role":"student"`)
	assert.Contains(t, rec.Body.String(), `"access_token":"`)

	assert.Equal(t, http.StatusUnauthorized, post(`{"username":"ann","password":"nope"}`).Code)
	assert.Equal(t, http.StatusUnauthorized, post(`{"username":"bob","password":"pw"}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(`{`).Code)
}

func TestJWTMiddleware(t *testing.T) {
	a := NewAuthService("secret", time.Hour)
	var sub, role string
	h := JWTMiddleware(a)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sub, role = SubjectFromContext(r.Context()), rbac.RoleFromContext(r.Context())
	}))

	tok, err := a.IssueJWT("u9", rbac.RoleAdmin)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u9", sub)
	assert.Equal(t, rbac.RoleAdmin, role)

	for _, hdr := range []string{"", "Bearer junk", "Basic abc"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", hdr)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, hdr)
	}
}
