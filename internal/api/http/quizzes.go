package http

import (
	"context"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	auth "github.com/mind-engage/mindengage-exams/internal/auth/middleware"
	"github.com/mind-engage/mindengage-exams/internal/exam"
	"github.com/mind-engage/mindengage-exams/internal/rbac"
	syncx "github.com/mind-engage/mindengage-exams/internal/sync"
	"github.com/mind-engage/mindengage-exams/internal/wire"
)

// canSeeKey reports whether the caller may see which options are correct.
func canSeeKey(ctx context.Context) bool {
	return rbac.Can(rbac.RoleFromContext(ctx), "question:view_key")
}

// ownsQuiz: teachers manage their own quizzes, admins any quiz.
func ownsQuiz(ctx context.Context, q exam.Quiz) bool {
	if rbac.Can(rbac.RoleFromContext(ctx), "quiz:manage_any") {
		return true
	}
	return q.CreatedBy != "" && q.CreatedBy == auth.SubjectFromContext(ctx)
}

// checkPlacement makes sure the course exists and the module belongs to it.
func checkPlacement(ctx context.Context, store exam.Store, q exam.Quiz) (int, string) {
	if _, err := store.Course(ctx, q.CourseID); err != nil {
		return http.StatusBadRequest, "unknown course " + q.CourseID
	}
	if q.ModuleID == nil || *q.ModuleID == "" {
		return 0, ""
	}
	m, err := store.Module(ctx, *q.ModuleID)
	if err != nil || m.CourseID != q.CourseID {
		return http.StatusBadRequest, "module " + *q.ModuleID + " is not part of course " + q.CourseID
	}
	return 0, ""
}

// GET /quizzes/{id}/with-questions
func QuizWithQuestionsHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, qs, err := store.QuizWithQuestions(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			storeError(w, err)
			return
		}
		key := canSeeKey(r.Context())
		out := wire.QuizWithQuestions{Quiz: quizToWire(q), Questions: make([]wire.Question, 0, len(qs))}
		for _, qu := range qs {
			out.Questions = append(out.Questions, questionToWire(qu, key))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// POST /quizzes
func CreateQuizHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in wire.Quiz
		if err := decode(r, &in); err != nil {
			badRequest(w, err)
			return
		}
		q := quizFromWire(in)
		if status, msg := checkPlacement(r.Context(), store, q); status != 0 {
			writeError(w, status, msg)
			return
		}
		q.CreatedBy = auth.SubjectFromContext(r.Context())
		created, err := store.CreateQuiz(r.Context(), q)
		if err != nil {
			storeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, quizToWire(created))
	}
}

// PUT /quizzes (id in body)
func UpdateQuizHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in wire.Quiz
		if err := decode(r, &in); err != nil {
			badRequest(w, err)
			return
		}
		if in.ID == "" {
			writeError(w, http.StatusBadRequest, "id required")
			return
		}
		cur, err := store.Quiz(r.Context(), in.ID)
		if err != nil {
			storeError(w, err)
			return
		}
		if !ownsQuiz(r.Context(), cur) {
			writeError(w, http.StatusForbidden, "not your quiz")
			return
		}
		q := quizFromWire(in)
		if status, msg := checkPlacement(r.Context(), store, q); status != 0 {
			writeError(w, status, msg)
			return
		}
		updated, err := store.UpdateQuiz(r.Context(), q)
		if err != nil {
			storeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, quizToWire(updated))
	}
}

// DELETE /quizzes/{id}
func DeleteQuizHandler(store exam.Store, events *syncx.EventRepo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		cur, err := store.Quiz(r.Context(), id)
		if err != nil {
			storeError(w, err)
			return
		}
		if !ownsQuiz(r.Context(), cur) {
			writeError(w, http.StatusForbidden, "not your quiz")
			return
		}
		if err := store.DeleteQuiz(r.Context(), id); err != nil {
			storeError(w, err)
			return
		}
		if events != nil {
			by := auth.SubjectFromContext(r.Context())
			if err := events.AppendJSON(r.Context(), syncx.QuizDeleted, id, map[string]string{"by": by}); err != nil {
				log.Printf("event log: %v", err)
			}
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
