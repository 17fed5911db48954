package quiz

import (
	"io"
	"time"
)

// Answer is one student's response to one question: a ChoiceAnswer or an
// EssayAnswer.
type Answer interface {
	isAnswer()
}

// ChoiceAnswer holds the selected option, as an index into the options the
// student was shown.
type ChoiceAnswer struct {
	Index int
}

type EssayKind int

const (
	EssayText EssayKind = iota + 1
	EssayFile
	EssayLink
)

func (k EssayKind) String() string {
	switch k {
	case EssayText:
		return "text"
	case EssayFile:
		return "file"
	case EssayLink:
		return "link"
	}
	return "unknown"
}

// Upload is a file picked by the student but not yet sent to the backend.
type Upload struct {
	Name string
	Size int64
	Open func() (io.ReadCloser, error)
}

type EssayAnswer struct {
	Kind EssayKind
	Text string
	Link string
	File *Upload
}

func (ChoiceAnswer) isAnswer() {}
func (EssayAnswer) isAnswer()  {}

// SubmittedAnswer is the wire-ready form of one answer.
type SubmittedAnswer struct {
	QuestionID     string
	SelectedIndex  *int
	SelectedAnswer string
	EssayText      string
	EssayLink      string
	FileName       string
	FileURL        string
}

type Submission struct {
	QuizID    string
	Answers   []SubmittedAnswer
	TimeSpent time.Duration
}

// Result is the grade of one attempt.
type Result struct {
	Score         float64
	MaxScore      float64
	CorrectCount  int
	TotalCount    int
	Status        string // graded | pending
	AttemptNumber int
	SubmittedAt   time.Time
}

type SubmissionStatus struct {
	HasSubmitted bool
	AttemptCount int
	Result       *Result
}

type SubmitOutcome struct {
	Result       Result
	AttemptCount int
}

// ResultItem is one graded response, shown when the quiz allows it.
type ResultItem struct {
	QuestionID    string
	QuestionText  string
	Response      string
	CorrectAnswer string
	Correct       *bool
	Points        float64
	MaxPoints     float64
}

type ResultDetail struct {
	Result
	Items []ResultItem
}
