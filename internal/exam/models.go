package exam

import "errors"

const (
	TypeMultipleChoice = "multiple_choice"
	TypeEssay          = "essay"

	StatusGraded  = "graded"  // every answer auto-graded
	StatusPending = "pending" // at least one essay awaits a human
)

var (
	ErrNotFound          = errors.New("not found")
	ErrAttemptsExhausted = errors.New("quiz already submitted")
	ErrTypeLocked        = errors.New("quiz type cannot change once submissions exist")
	ErrEssaySingle       = errors.New("essay quizzes hold exactly one question")
	ErrTypeMismatch      = errors.New("question type does not match quiz type")
)

type User struct {
	ID        string
	Username  string
	Role      string
	PassHash  string
	CreatedAt int64
}

type Course struct {
	ID           string
	Title        string
	Description  string
	InstructorID string
	Price        float64
	Published    bool
	CreatedAt    int64
}

type Module struct {
	ID       string
	CourseID string
	Title    string
	Order    int
}

type Quiz struct {
	ID                    string
	CourseID              string
	ModuleID              *string
	Title                 string
	Description           string
	Type                  string
	TimeLimit             *int // minutes
	ShuffleAnswers        bool
	AllowMultipleAttempts bool
	ShowResponses         bool
	OneQuestionAtATime    bool
	Published             bool
	CreatedBy             string
	CreatedAt             int64
}

type Option struct {
	ID      string
	Text    string
	Correct bool
	Order   int
}

type Question struct {
	ID       string
	QuizID   string
	Position int
	Text     string
	Type     string
	Points   float64
	FileURL  string
	FileName string
	Options  []Option // by Order
}

// Answer is one submitted response, stored verbatim with its grading.
type Answer struct {
	QuestionID     string   `json:"questionId"`
	SelectedIndex  *int     `json:"selectedIndex,omitempty"`
	SelectedAnswer string   `json:"selectedAnswer,omitempty"`
	EssayText      string   `json:"essayText,omitempty"`
	EssayLink      string   `json:"essayLink,omitempty"`
	FileName       string   `json:"fileName,omitempty"`
	FileURL        string   `json:"fileUrl,omitempty"`
	Points         float64  `json:"points"`
	Correct        *bool    `json:"correct,omitempty"`
	NeedsManual    bool     `json:"needsManual,omitempty"`
	Feedback       []string `json:"feedback,omitempty"`
}

type Submission struct {
	ID           string
	QuizID       string
	UserID       string
	Attempt      int
	Score        float64
	MaxScore     float64
	CorrectCount int
	TotalCount   int
	Status       string
	TimeSpent    int // seconds
	Answers      []Answer
	SubmittedAt  int64
}
