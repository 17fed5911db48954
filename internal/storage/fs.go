package storage

import (
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// FilesPrefix is the route blobs are served under.
const FilesPrefix = "/files/"

type FSStore struct{ base string }

func NewFSStore(base string) (*FSStore, error) {
	if base == "" {
		base = "./data"
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, err
	}
	return &FSStore{base: base}, nil
}

// NewKey builds a unique key "<scope>/<uuid>/<name>" keeping only the base
// name of the client supplied file name.
func NewKey(scope, name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == ".." || name == "" {
		name = "file"
	}
	return path.Join(scope, uuid.NewString(), name)
}

// clean rejects keys that would leave the base directory.
func clean(key string) (string, error) {
	if key == "" || strings.Contains(key, "\\") {
		return "", ErrBadKey
	}
	c := path.Clean("/" + key)[1:]
	if c == "" || c != strings.TrimPrefix(key, "/") {
		return "", ErrBadKey
	}
	for _, part := range strings.Split(c, "/") {
		if part == ".." {
			return "", ErrBadKey
		}
	}
	return c, nil
}

func (s *FSStore) Put(key string, r io.Reader) (string, error) {
	key, err := clean(key)
	if err != nil {
		return "", err
	}
	dst := filepath.Join(s.base, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", err
	}
	f, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(dst)
		return "", err
	}
	return key, f.Close()
}

func (s *FSStore) Get(key string) (io.ReadCloser, error) {
	key, err := clean(key)
	if err != nil {
		return nil, err
	}
	return os.Open(filepath.Join(s.base, filepath.FromSlash(key)))
}

func (s *FSStore) URL(key string) string {
	u := url.URL{Path: FilesPrefix + key}
	return u.EscapedPath()
}
