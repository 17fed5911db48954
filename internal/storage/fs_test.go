package storage

import (
	"errors"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFSStorePutGet(t *testing.T) {
	s, err := NewFSStore(t.TempDir())
	require.NoError(t, err)

	key := NewKey("answers/quiz-1", "../../etc/essay.pdf")
	assert.True(t, strings.HasPrefix(key, "answers/quiz-1/"))
	assert.True(t, strings.HasSuffix(key, "/essay.pdf"))

	got, err := s.Put(key, strings.NewReader("hello"))
	require.NoError(t, err)
	assert.Equal(t, key, got)

	rc, err := s.Get(key)
	require.NoError(t, err)
	defer rc.Close()
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(b))

	assert.Equal(t, "/files/"+key, s.URL(key))
	assert.Equal(t, "/files/a/my%20file.pdf", s.URL("a/my file.pdf"))
}

func TestFSStoreRejectsEscapes(t *testing.T) {
	s, err := NewFSStore(t.TempDir())
	require.NoError(t, err)

	for _, k := range []string{"", "../x", "a/../../x", "a\\b", "a/./b"} {
		_, err := s.Put(k, strings.NewReader("x"))
		assert.ErrorIs(t, err, ErrBadKey, k)
		_, err = s.Get(k)
		assert.ErrorIs(t, err, ErrBadKey, k)
	}

	_, err = s.Get("missing/file")
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestNewKeyFallbackName(t *testing.T) {
	assert.True(t, strings.HasSuffix(NewKey("q", ""), "/file"))
	assert.True(t, strings.HasSuffix(NewKey("q", "dir\\report.docx"), "/report.docx"))
}
