// Package wire holds the JSON bodies exchanged with the LMS backend. Both the
// client and the reference backend encode and decode these types; validate
// tags are checked at each boundary.
package wire

import "time"

const (
	TypeMultipleChoice = "multiple_choice"
	TypeEssay          = "essay"

	StatusGraded  = "graded"
	StatusPending = "pending"
)

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token" validate:"required"`
	Role        string `json:"role"`
}

// ErrorBody is the JSON error envelope. Plain-text errors are also accepted.
type ErrorBody struct {
	Message string `json:"message"`
}

type Course struct {
	ID           string  `json:"id" validate:"required"`
	Title        string  `json:"title" validate:"required"`
	Description  string  `json:"description"`
	InstructorID string  `json:"instructorId"`
	Price        float64 `json:"price" validate:"gte=0"`
	IsPublished  bool    `json:"isPublished"`
}

type Module struct {
	ID          string `json:"id" validate:"required"`
	CourseID    string `json:"courseId" validate:"required"`
	Title       string `json:"title" validate:"required"`
	OrderNumber int    `json:"orderNumber"`
}

type Quiz struct {
	ID                    string  `json:"id,omitempty"`
	Title                 string  `json:"title" validate:"required,max=255"`
	Description           string  `json:"description"`
	QuizType              string  `json:"quizType" validate:"required,oneof=multiple_choice essay"`
	TimeLimit             *int    `json:"timeLimit" validate:"omitempty,gte=1"`
	ShuffleAnswers        bool    `json:"shuffleAnswers"`
	AllowMultipleAttempts bool    `json:"allowMultipleAttempts"`
	ShowResponses         bool    `json:"showResponses"`
	OneQuestionAtATime    bool    `json:"oneQuestionAtATime"`
	IsPublished           bool    `json:"isPublished"`
	CourseID              string  `json:"courseId" validate:"required"`
	ModuleID              *string `json:"moduleId,omitempty"`
}

type AnswerOption struct {
	ID          string `json:"id,omitempty"`
	AnswerText  string `json:"answerText"`
	IsCorrect   bool   `json:"isCorrect"`
	OrderNumber *int   `json:"orderNumber"`
}

type Question struct {
	ID           string         `json:"id,omitempty"`
	QuizID       string         `json:"quizId" validate:"required"`
	QuestionText string         `json:"questionText"`
	QuestionType string         `json:"questionType" validate:"required,oneof=multiple_choice essay"`
	Points       float64        `json:"points" validate:"gte=0"`
	Answers      []AnswerOption `json:"answers,omitempty" validate:"dive"`
	FileURL      string         `json:"fileUrl,omitempty"`
	FileName     string         `json:"fileName,omitempty"`
}

type QuizWithQuestions struct {
	Quiz
	Questions []Question `json:"questions" validate:"dive"`
}

type FileUpload struct {
	FileURL  string `json:"fileUrl" validate:"required"`
	FileName string `json:"fileName" validate:"required"`
}

type Result struct {
	Score          float64   `json:"score"`
	MaxScore       float64   `json:"maxScore" validate:"gte=0"`
	CorrectCount   int       `json:"correctCount"`
	TotalQuestions int       `json:"totalQuestions"`
	Status         string    `json:"status" validate:"oneof=graded pending"`
	AttemptNumber  int       `json:"attemptNumber"`
	SubmittedAt    time.Time `json:"submittedAt"`
}

type SubmissionCheck struct {
	HasSubmitted bool    `json:"hasSubmitted"`
	AttemptCount int     `json:"attemptCount" validate:"gte=0"`
	Result       *Result `json:"result,omitempty"`
}

type SubmitAnswer struct {
	QuestionID     string `json:"questionId" validate:"required"`
	SelectedIndex  *int   `json:"selectedIndex,omitempty"`
	SelectedAnswer string `json:"selectedAnswer,omitempty"`
	EssayText      string `json:"essayText,omitempty"`
	EssayLink      string `json:"essayLink,omitempty" validate:"omitempty,url"`
	FileName       string `json:"fileName,omitempty"`
	FileURL        string `json:"fileUrl,omitempty"`
}

type SubmitRequest struct {
	QuizID    string         `json:"quizId" validate:"required"`
	Answers   []SubmitAnswer `json:"answers" validate:"dive"`
	TimeSpent int            `json:"timeSpent" validate:"gte=0"` // seconds
}

type SubmitResponse struct {
	Result       Result `json:"result"`
	AttemptCount int    `json:"attemptCount"`
}

type ResultItem struct {
	QuestionID    string  `json:"questionId"`
	QuestionText  string  `json:"questionText"`
	Response      string  `json:"response"`
	CorrectAnswer string  `json:"correctAnswer,omitempty"`
	IsCorrect     *bool   `json:"isCorrect,omitempty"`
	Points        float64 `json:"points"`
	MaxPoints     float64 `json:"maxPoints"`
}

type ResultDetail struct {
	Result
	Items []ResultItem `json:"items"`
}
