package http

import (
	"errors"
	"log"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/mindengage-exams/internal/exam"
	"github.com/mind-engage/mindengage-exams/internal/storage"
	"github.com/mind-engage/mindengage-exams/internal/wire"
)

// ownedQuiz loads quizID and writes the error response when the caller may
// not edit it.
func ownedQuiz(w http.ResponseWriter, r *http.Request, store exam.Store, quizID string) (exam.Quiz, bool) {
	q, err := store.Quiz(r.Context(), quizID)
	if err != nil {
		storeError(w, err)
		return exam.Quiz{}, false
	}
	if !ownsQuiz(r.Context(), q) {
		writeError(w, http.StatusForbidden, "not your quiz")
		return exam.Quiz{}, false
	}
	return q, true
}

// GET /questions/{id}
func GetQuestionHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := store.Question(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			storeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, questionToWire(q, canSeeKey(r.Context())))
	}
}

// POST /questions
func CreateQuestionHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in wire.Question
		if err := decode(r, &in); err != nil {
			badRequest(w, err)
			return
		}
		if _, ok := ownedQuiz(w, r, store, in.QuizID); !ok {
			return
		}
		q := questionFromWire(in)
		q.ID = ""
		created, err := store.CreateQuestion(r.Context(), q)
		if err != nil {
			storeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, questionToWire(created, true))
	}
}

// PUT /questions/{id}
func UpdateQuestionHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in wire.Question
		if err := decode(r, &in); err != nil {
			badRequest(w, err)
			return
		}
		cur, err := store.Question(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			storeError(w, err)
			return
		}
		if _, ok := ownedQuiz(w, r, store, cur.QuizID); !ok {
			return
		}
		q := questionFromWire(in)
		q.ID, q.QuizID = cur.ID, cur.QuizID
		updated, err := store.UpdateQuestion(r.Context(), q)
		if err != nil {
			storeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, questionToWire(updated, true))
	}
}

// DELETE /questions/{id}
func DeleteQuestionHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cur, err := store.Question(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			storeError(w, err)
			return
		}
		if _, ok := ownedQuiz(w, r, store, cur.QuizID); !ok {
			return
		}
		if err := store.DeleteQuestion(r.Context(), cur.ID); err != nil {
			storeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// parseUpload bounds the body and parses the multipart form.
func parseUpload(w http.ResponseWriter, r *http.Request, limit int64) bool {
	// multipart overhead on top of the file itself
	r.Body = http.MaxBytesReader(w, r.Body, limit+1<<20)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, http.StatusRequestEntityTooLarge, "file too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "multipart form required")
		return false
	}
	return true
}

// receiveFile stores the multipart field "file" under scope.
func receiveFile(w http.ResponseWriter, r *http.Request, bs storage.BlobStore, scope string, limit int64) (wire.FileUpload, bool) {
	if r.MultipartForm == nil && !parseUpload(w, r, limit) {
		return wire.FileUpload{}, false
	}
	f, hdr, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file required")
		return wire.FileUpload{}, false
	}
	defer f.Close()
	if hdr.Size > limit {
		writeError(w, http.StatusRequestEntityTooLarge, "file too large")
		return wire.FileUpload{}, false
	}
	name := path.Base(strings.ReplaceAll(hdr.Filename, "\\", "/"))
	key, err := bs.Put(storage.NewKey(scope, name), f)
	if err != nil {
		log.Printf("blob put %s: %v", name, err)
		writeError(w, http.StatusInternalServerError, "store error")
		return wire.FileUpload{}, false
	}
	return wire.FileUpload{FileURL: bs.URL(key), FileName: name}, true
}

// POST /questions/upload-file (multipart "file")
func UploadQuestionFileHandler(bs storage.BlobStore, limit int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		up, ok := receiveFile(w, r, bs, "questions", limit)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, up)
	}
}
