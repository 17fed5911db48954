package apiclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/mind-engage/mindengage-exams/internal/auth/middleware"
	"github.com/mind-engage/mindengage-exams/internal/session"
)

func signedIn(t *testing.T) *session.Session {
	t.Helper()
	tok, err := auth.NewAuthService("k", time.Hour).IssueJWT("u1", "student")
	require.NoError(t, err)
	sess, err := session.New(&session.MemoryStore{})
	require.NoError(t, err)
	require.NoError(t, sess.Set(tok))
	return sess
}

func stub(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			http.Error(w, "missing bearer", http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestErrorKinds(t *testing.T) {
	cases := []struct {
		status int
		body   string
		kind   Kind
		msg    string
	}{
		{http.StatusForbidden, `{"message":"forbidden"}`, KindForbidden, "forbidden"},
		{http.StatusNotFound, `{"message":"no such course"}`, KindNotFound, "no such course"},
		{http.StatusBadRequest, `title is required`, KindBadRequest, "title is required"},
		{http.StatusConflict, `{"message":"already submitted"}`, KindBadRequest, "already submitted"},
		{http.StatusBadGateway, ``, KindServer, ""},
	}
	for _, tc := range cases {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			c := New(Config{BaseURL: stub(t, tc.status, tc.body).URL}, signedIn(t))
			_, err := c.Course(context.Background(), "c1")
			require.Error(t, err)
			assert.Equal(t, tc.kind, KindOf(err))
			assert.Equal(t, tc.status, StatusOf(err))
			var e *Error
			require.ErrorAs(t, err, &e)
			assert.Equal(t, tc.msg, e.Message)
			assert.Equal(t, "GET /courses/c1", e.Op)
		})
	}
}

func TestMalformedResponse(t *testing.T) {
	c := New(Config{BaseURL: stub(t, http.StatusOK, `{"id":"","title":""}`).URL}, signedIn(t))
	_, err := c.Course(context.Background(), "c1")
	assert.Equal(t, KindServer, KindOf(err))

	c = New(Config{BaseURL: stub(t, http.StatusOK, `[{"id":"m1","courseId":"c1"}]`).URL}, signedIn(t))
	_, err = c.CourseModules(context.Background(), "c1")
	assert.Equal(t, KindServer, KindOf(err))
}

func TestUnauthorizedEndsSession(t *testing.T) {
	var prompts atomic.Int32
	sess := signedIn(t)
	sess.OnLoginRequired(func() { prompts.Add(1) })

	c := New(Config{BaseURL: stub(t, http.StatusUnauthorized, `{"message":"bad token"}`).URL}, sess)
	_, err := c.Course(context.Background(), "c1")
	assert.Equal(t, KindUnauthorized, KindOf(err))
	assert.False(t, sess.IsValid())
	assert.EqualValues(t, 1, prompts.Load())

	// without a token the request never leaves the client
	_, err = c.Course(context.Background(), "c1")
	assert.Equal(t, KindUnauthorized, KindOf(err))
	assert.Zero(t, StatusOf(err))
	assert.EqualValues(t, 2, prompts.Load())
}

func TestNetworkError(t *testing.T) {
	srv := stub(t, http.StatusOK, `{}`)
	url := srv.URL
	srv.Close()

	c := New(Config{BaseURL: url, Timeout: time.Second}, signedIn(t))
	_, err := c.Course(context.Background(), "c1")
	assert.Equal(t, KindNetwork, KindOf(err))
	assert.Zero(t, StatusOf(err))

	_, err = c.Login(context.Background(), "a", "b")
	assert.Equal(t, KindNetwork, KindOf(err))
}

func TestLoginStoresToken(t *testing.T) {
	tok, err := auth.NewAuthService("k", time.Hour).IssueJWT("u7", "teacher")
	require.NoError(t, err)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/login", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"` + tok + `","role":"teacher"}`))
	}))
	defer srv.Close()

	sess, err := session.New(&session.MemoryStore{})
	require.NoError(t, err)
	c := New(Config{BaseURL: srv.URL}, sess)
	role, err := c.Login(context.Background(), "t", "pw")
	require.NoError(t, err)
	assert.Equal(t, "teacher", role)
	assert.Equal(t, "u7", sess.Subject())
	assert.True(t, sess.CanAuthor())

	require.NoError(t, c.Logout())
	assert.False(t, sess.IsValid())
}
