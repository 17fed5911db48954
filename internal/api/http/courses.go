package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/mindengage-exams/internal/exam"
	"github.com/mind-engage/mindengage-exams/internal/wire"
)

// GET /courses/{id}
func GetCourseHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := store.Course(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			storeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, courseToWire(c))
	}
}

// GET /courses/{id}/modules
func CourseModulesHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mods, err := store.ModulesOf(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			storeError(w, err)
			return
		}
		out := make([]wire.Module, 0, len(mods))
		for _, m := range mods {
			out = append(out, moduleToWire(m))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// GET /modules/{id}
func GetModuleHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m, err := store.Module(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			storeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, moduleToWire(m))
	}
}
