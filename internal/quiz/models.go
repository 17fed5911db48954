package quiz

import (
	"errors"
	"fmt"
	"strings"
)

// Type is the closed set of quiz and question kinds.
type Type int

const (
	TypeMultipleChoice Type = iota + 1
	TypeEssay
)

// wire values used by the backend
const (
	wireMultipleChoice = "multiple_choice"
	wireEssay          = "essay"
)

var ErrUnknownType = errors.New("unknown quiz type")

func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case wireMultipleChoice, "multiple-choice", "single-answer-multiple-choice":
		return TypeMultipleChoice, nil
	case wireEssay, "free-text-essay":
		return TypeEssay, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownType, s)
}

func (t Type) String() string {
	switch t {
	case TypeMultipleChoice:
		return wireMultipleChoice
	case TypeEssay:
		return wireEssay
	default:
		panic(fmt.Sprintf("quiz: invalid Type %d", int(t)))
	}
}

func (t Type) Valid() bool { return t == TypeMultipleChoice || t == TypeEssay }

type Flags struct {
	ShuffleAnswers        bool
	AllowMultipleAttempts bool
	ShowResponses         bool // show responses after submit
	OneQuestionAtATime    bool
}

type Quiz struct {
	ID               string  `json:"id"`
	Title            string  `json:"title" validate:"required,max=255"`
	Description      string  `json:"description"`
	Type             Type    `json:"type" validate:"required"`
	TimeLimitMinutes *int    `json:"timeLimit" validate:"omitempty,gte=1"`
	Flags            Flags   `json:"-"`
	Published        bool    `json:"isPublished"`
	CourseID         string  `json:"courseId" validate:"required"`
	ModuleID         *string `json:"moduleId"`
}

// TimeLimitSeconds returns 0 when the quiz is untimed.
func (q Quiz) TimeLimitSeconds() int {
	if q.TimeLimitMinutes == nil || *q.TimeLimitMinutes <= 0 {
		return 0
	}
	return *q.TimeLimitMinutes * 60
}

// FileRef points at an uploaded file.
type FileRef struct {
	URL  string
	Name string
}
