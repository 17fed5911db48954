package http

import (
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	auth "github.com/mind-engage/mindengage-exams/internal/auth/middleware"
	"github.com/mind-engage/mindengage-exams/internal/exam"
	"github.com/mind-engage/mindengage-exams/internal/rbac"
	"github.com/mind-engage/mindengage-exams/internal/storage"
	syncx "github.com/mind-engage/mindengage-exams/internal/sync"
	"github.com/mind-engage/mindengage-exams/internal/wire"
)

// POST /exam/upload-file (multipart "file" + "quizId")
func UploadAnswerFileHandler(store exam.Store, bs storage.BlobStore, limit int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !parseUpload(w, r, limit) {
			return
		}
		quizID := r.FormValue("quizId")
		if quizID == "" {
			writeError(w, http.StatusBadRequest, "quizId required")
			return
		}
		if _, err := store.Quiz(r.Context(), quizID); err != nil {
			storeError(w, err)
			return
		}
		scope := "answers/" + quizID + "/" + auth.SubjectFromContext(r.Context())
		up, ok := receiveFile(w, r, bs, scope, limit)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, up)
	}
}

// GET /exam/check-submission/{quizId}
func CheckSubmissionHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		quizID := chi.URLParam(r, "quizId")
		if _, err := store.Quiz(r.Context(), quizID); err != nil {
			storeError(w, err)
			return
		}
		n, latest, err := store.SubmissionCount(r.Context(), quizID, auth.SubjectFromContext(r.Context()))
		if err != nil {
			storeError(w, err)
			return
		}
		out := wire.SubmissionCheck{HasSubmitted: n > 0, AttemptCount: n}
		if latest != nil {
			res := resultToWire(*latest)
			out.Result = &res
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// POST /exam/submit
func SubmitHandler(store exam.Store, events *syncx.EventRepo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in wire.SubmitRequest
		if err := decode(r, &in); err != nil {
			badRequest(w, err)
			return
		}
		sub, err := store.Submit(r.Context(), exam.Submission{
			QuizID:    in.QuizID,
			UserID:    auth.SubjectFromContext(r.Context()),
			TimeSpent: in.TimeSpent,
			Answers:   answersFromWire(in.Answers),
		})
		if err != nil {
			storeError(w, err)
			return
		}
		if events != nil {
			payload := map[string]any{
				"quizId":  sub.QuizID,
				"userId":  sub.UserID,
				"attempt": sub.Attempt,
				"score":   sub.Score,
				"status":  sub.Status,
			}
			if err := events.AppendJSON(r.Context(), syncx.QuizSubmitted, sub.ID, payload); err != nil {
				log.Printf("event log: %v", err)
			}
		}
		writeJSON(w, http.StatusOK, wire.SubmitResponse{Result: resultToWire(sub), AttemptCount: sub.Attempt})
	}
}

// GET /exam/result/{quizId}[?userId=...]
// Per-question items are included when the quiz shows responses.
func ResultHandler(store exam.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		quizID := chi.URLParam(r, "quizId")
		qz, questions, err := store.QuizWithQuestions(r.Context(), quizID)
		if err != nil {
			storeError(w, err)
			return
		}
		userID := auth.SubjectFromContext(r.Context())
		if other := r.URL.Query().Get("userId"); other != "" && other != userID {
			if !rbac.Can(rbac.RoleFromContext(r.Context()), "result:view-all") || !ownsQuiz(r.Context(), qz) {
				writeError(w, http.StatusForbidden, "cannot view other users' results for this quiz")
				return
			}
			userID = other
		}
		_, latest, err := store.SubmissionCount(r.Context(), quizID, userID)
		if err != nil {
			storeError(w, err)
			return
		}
		if latest == nil {
			writeError(w, http.StatusNotFound, "no submission for quiz "+quizID)
			return
		}
		out := wire.ResultDetail{Result: resultToWire(*latest), Items: []wire.ResultItem{}}
		if qz.ShowResponses || canSeeKey(r.Context()) {
			out.Items = resultItems(questions, latest.Answers)
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func resultItems(questions []exam.Question, answers []exam.Answer) []wire.ResultItem {
	byID := make(map[string]exam.Answer, len(answers))
	for _, a := range answers {
		byID[a.QuestionID] = a
	}
	items := make([]wire.ResultItem, 0, len(questions))
	for _, q := range questions {
		it := wire.ResultItem{QuestionID: q.ID, QuestionText: q.Text, MaxPoints: q.Points}
		var correct []string
		for _, o := range q.Options {
			if o.Correct {
				correct = append(correct, o.Text)
			}
		}
		it.CorrectAnswer = strings.Join(correct, ", ")
		if a, ok := byID[q.ID]; ok {
			it.Response = responseText(q, a)
			it.IsCorrect = a.Correct
			it.Points = a.Points
		}
		items = append(items, it)
	}
	return items
}

func responseText(q exam.Question, a exam.Answer) string {
	switch {
	case a.SelectedAnswer != "":
		return a.SelectedAnswer
	case a.SelectedIndex != nil && *a.SelectedIndex >= 0 && *a.SelectedIndex < len(q.Options):
		return q.Options[*a.SelectedIndex].Text
	case a.EssayText != "":
		return a.EssayText
	case a.EssayLink != "":
		return a.EssayLink
	default:
		return a.FileName
	}
}
