package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	auth "github.com/mind-engage/mindengage-exams/internal/auth/middleware"
	"github.com/mind-engage/mindengage-exams/internal/exam"
	"github.com/mind-engage/mindengage-exams/internal/rbac"
	"github.com/mind-engage/mindengage-exams/internal/storage"
	syncx "github.com/mind-engage/mindengage-exams/internal/sync"
)

// Deps is what the router needs to serve every endpoint.
type Deps struct {
	Store  exam.Store
	Blobs  storage.BlobStore
	Events *syncx.EventRepo // optional
	Auth   *auth.AuthService

	EnableLocalAuth bool
	CORSOrigins     []string
	UploadMax       int64
	RequestTimeout  time.Duration
	Quiet           bool // skip request logging (tests)
}

func NewRouter(d Deps) http.Handler {
	if d.UploadMax <= 0 {
		d.UploadMax = 10 << 20
	}
	if d.RequestTimeout <= 0 {
		d.RequestTimeout = 30 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP)
	if !d.Quiet {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(d.RequestTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if d.EnableLocalAuth {
		r.Post("/auth/login", auth.LoginHandler(d.Auth, d.Store))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	// Protected API (JWT → role in context → RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(d.Auth))

		pr.With(rbac.Require("course:view")).Get("/courses/{id}", GetCourseHandler(d.Store))
		pr.With(rbac.Require("course:view")).Get("/courses/{id}/modules", CourseModulesHandler(d.Store))
		pr.With(rbac.Require("course:view")).Get("/modules/{id}", GetModuleHandler(d.Store))

		pr.With(rbac.Require("quiz:view")).Get("/quizzes/{id}/with-questions", QuizWithQuestionsHandler(d.Store))
		pr.With(rbac.Require("quiz:create")).Post("/quizzes", CreateQuizHandler(d.Store))
		pr.With(rbac.Require("quiz:update")).Put("/quizzes", UpdateQuizHandler(d.Store))
		pr.With(rbac.Require("quiz:delete_own")).Delete("/quizzes/{id}", DeleteQuizHandler(d.Store, d.Events))

		// Instructor-only question management
		pr.Route("/questions", func(qr chi.Router) {
			qr.With(rbac.Require("question:create")).Post("/", CreateQuestionHandler(d.Store))
			qr.With(rbac.Require("question:upload")).Post("/upload-file", UploadQuestionFileHandler(d.Blobs, d.UploadMax))
			qr.With(rbac.Require("question:view")).Get("/{id}", GetQuestionHandler(d.Store))
			qr.With(rbac.Require("question:update")).Put("/{id}", UpdateQuestionHandler(d.Store))
			qr.With(rbac.Require("question:delete")).Delete("/{id}", DeleteQuestionHandler(d.Store))
		})

		// Student flow
		pr.With(rbac.Require("exam:upload")).Post("/exam/upload-file", UploadAnswerFileHandler(d.Store, d.Blobs, d.UploadMax))
		pr.With(rbac.Require("quiz:take")).Get("/exam/check-submission/{quizId}", CheckSubmissionHandler(d.Store))
		pr.With(rbac.Require("exam:submit")).Post("/exam/submit", SubmitHandler(d.Store, d.Events))
		pr.With(rbac.RequireAny("result:view-own", "result:view-all")).Get("/exam/result/{quizId}", ResultHandler(d.Store))

		pr.Get("/files/*", FilesHandler(d.Blobs))
	})

	return r
}
