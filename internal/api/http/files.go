package http

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"os"
	"path"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/mindengage-exams/internal/storage"
)

// GET /files/*
func FilesHandler(bs storage.BlobStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "*")
		rc, err := bs.Get(key)
		switch {
		case errors.Is(err, storage.ErrBadKey):
			writeError(w, http.StatusBadRequest, err.Error())
			return
		case errors.Is(err, os.ErrNotExist):
			writeError(w, http.StatusNotFound, "file not found")
			return
		case err != nil:
			writeError(w, http.StatusInternalServerError, "store error")
			return
		}
		defer rc.Close()
		ct := mime.TypeByExtension(path.Ext(key))
		if ct == "" {
			ct = "application/octet-stream"
		}
		w.Header().Set("Content-Type", ct)
		w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": path.Base(key)}))
		_, _ = io.Copy(w, rc)
	}
}
