package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/mind-engage/mindengage-exams/internal/exam"
	"github.com/mind-engage/mindengage-exams/internal/quiz"
	"github.com/mind-engage/mindengage-exams/internal/storage"
	"github.com/mind-engage/mindengage-exams/internal/wire"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, wire.ErrorBody{Message: msg})
}

// decode reads a JSON body into v and checks its validate tags.
func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.New("bad json")
	}
	if err := quiz.Validator().Struct(v); err != nil {
		return quiz.AsValidationError(err, errors.New("invalid request"), "en")
	}
	return nil
}

// badRequest writes a 400 listing each invalid field.
func badRequest(w http.ResponseWriter, err error) {
	var ve *quiz.ValidationError
	if !errors.As(err, &ve) || len(ve.Fields) == 0 {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	parts := make([]string, 0, len(ve.Fields))
	for _, f := range ve.Fields {
		parts = append(parts, f.Error)
	}
	writeError(w, http.StatusBadRequest, ve.Error()+": "+strings.Join(parts, "; "))
}

// storeError maps store failures onto statuses the client understands.
func storeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, exam.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, exam.ErrAttemptsExhausted), errors.Is(err, exam.ErrTypeLocked):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, exam.ErrEssaySingle), errors.Is(err, exam.ErrTypeMismatch), errors.Is(err, storage.ErrBadKey):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		log.Printf("store error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
