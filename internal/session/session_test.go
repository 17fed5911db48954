package session

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/mind-engage/mindengage-exams/internal/auth/middleware"
)

func issue(t *testing.T, sub, role string) string {
	t.Helper()
	tok, err := auth.NewAuthService("test-secret", time.Hour).IssueJWT(sub, role)
	require.NoError(t, err)
	return tok
}

func TestSessionLifecycle(t *testing.T) {
	s, err := New(&MemoryStore{})
	require.NoError(t, err)
	assert.False(t, s.IsValid())

	var seen []State
	cancel := s.OnChange(func(st State) { seen = append(seen, st) })

	require.NoError(t, s.Set(issue(t, "u-1", "teacher")))
	assert.True(t, s.IsValid())
	assert.Equal(t, "u-1", s.Subject())
	assert.Equal(t, "teacher", s.Role())
	assert.True(t, s.CanAuthor())
	assert.False(t, s.CanTake())

	require.NoError(t, s.Clear())
	assert.False(t, s.IsValid())
	require.Len(t, seen, 2)
	assert.True(t, seen[0].Valid)
	assert.False(t, seen[1].Valid)

	cancel()
	require.NoError(t, s.Set(issue(t, "u-2", "student")))
	assert.Len(t, seen, 2, "listener removed")
	assert.True(t, s.CanTake())
}

func TestSessionExpiry(t *testing.T) {
	now := time.Now()
	s, err := New(&MemoryStore{}, WithClock(func() time.Time { return now }))
	require.NoError(t, err)
	require.NoError(t, s.Set(issue(t, "u-1", "student")))
	assert.True(t, s.IsValid())

	now = now.Add(2 * time.Hour)
	assert.False(t, s.IsValid())
	assert.NotEmpty(t, s.Token(), "expired token is kept until cleared")

	_, err = s.TokenSource().Token()
	assert.True(t, errors.Is(err, ErrExpired))
}

func TestTokenSource(t *testing.T) {
	s, err := New(nil)
	require.NoError(t, err)
	_, err = s.TokenSource().Token()
	assert.ErrorIs(t, err, ErrNoToken)

	tok := issue(t, "u-1", "student")
	require.NoError(t, s.Set(tok))
	ot, err := s.TokenSource().Token()
	require.NoError(t, err)
	assert.Equal(t, tok, ot.AccessToken)
	assert.Equal(t, "Bearer", ot.Type())
}

func TestLoginRequired(t *testing.T) {
	s, err := New(&MemoryStore{})
	require.NoError(t, err)
	require.NoError(t, s.Set(issue(t, "u-1", "student")))

	called := 0
	s.OnLoginRequired(func() { called++ })
	s.LoginRequired()
	assert.Equal(t, 1, called)
	assert.Empty(t, s.Token())
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	tok := issue(t, "u-1", "teacher")

	s, err := New(NewFileStore(path))
	require.NoError(t, err)
	require.NoError(t, s.Set(tok))

	restored, err := New(NewFileStore(path))
	require.NoError(t, err)
	assert.Equal(t, tok, restored.Token())
	assert.Equal(t, "teacher", restored.Role())

	require.NoError(t, restored.Clear())
	require.NoError(t, restored.Clear(), "clearing twice is fine")
	again, err := New(NewFileStore(path))
	require.NoError(t, err)
	assert.Empty(t, again.Token())
}

func TestSetRejectsGarbage(t *testing.T) {
	s, err := New(&MemoryStore{})
	require.NoError(t, err)
	assert.Error(t, s.Set("not-a-jwt"))
	assert.False(t, s.IsValid())
}
