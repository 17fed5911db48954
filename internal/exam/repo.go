package exam

import (
	"context"

	auth "github.com/mind-engage/mindengage-exams/internal/auth/middleware"
)

// Store is the persistence surface the HTTP handlers need.
type Store interface {
	auth.UserLookup
	PutUser(ctx context.Context, u User) error

	Course(ctx context.Context, id string) (Course, error)
	PutCourse(ctx context.Context, c Course) error
	Module(ctx context.Context, id string) (Module, error)
	ModulesOf(ctx context.Context, courseID string) ([]Module, error)
	PutModule(ctx context.Context, m Module) error

	Quiz(ctx context.Context, id string) (Quiz, error)
	QuizWithQuestions(ctx context.Context, id string) (Quiz, []Question, error)
	CreateQuiz(ctx context.Context, q Quiz) (Quiz, error)
	UpdateQuiz(ctx context.Context, q Quiz) (Quiz, error)
	DeleteQuiz(ctx context.Context, id string) error

	Question(ctx context.Context, id string) (Question, error)
	CreateQuestion(ctx context.Context, q Question) (Question, error)
	UpdateQuestion(ctx context.Context, q Question) (Question, error)
	DeleteQuestion(ctx context.Context, id string) error

	// SubmissionCount returns how many attempts the user made and the latest.
	SubmissionCount(ctx context.Context, quizID, userID string) (int, *Submission, error)
	// Submit grades and stores a new attempt.
	Submit(ctx context.Context, s Submission) (Submission, error)
}
