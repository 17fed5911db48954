package quiz

import (
	"errors"
	"strings"
)

const (
	// MinOptionSlots is the number of option rows a multiple-choice question always shows.
	MinOptionSlots = 4
	// MinOptions is the smallest option count a multiple-choice question may be reduced to.
	MinOptions    = 2
	DefaultPoints = 1
)

var (
	ErrEssaySingleQuestion = errors.New("an essay quiz has exactly one question")
	ErrTooFewOptions       = errors.New("a multiple-choice question needs at least two options")
	ErrOptionIndex         = errors.New("option index out of range")
	ErrNotMultipleChoice   = errors.New("question is not multiple-choice")
)

// Question is one authored item of a quiz. ID is set once the backend has
// persisted it; until then TempID identifies it locally.
type Question struct {
	ID         string
	TempID     string
	QuizID     string
	Text       string
	Type       Type
	Points     float64
	Options    []string
	Correct    []bool
	Attachment *FileRef
}

// Key returns the persisted id when present, the temporary id otherwise.
func (q Question) Key() string {
	if q.ID != "" {
		return q.ID
	}
	return q.TempID
}

func (q Question) Persisted() bool { return q.ID != "" }

// Blank reports whether the question has no text yet.
func (q Question) Blank() bool { return strings.TrimSpace(q.Text) == "" }

func (q Question) Clone() Question {
	c := q
	c.Options = append([]string(nil), q.Options...)
	c.Correct = append([]bool(nil), q.Correct...)
	if q.Attachment != nil {
		a := *q.Attachment
		c.Attachment = &a
	}
	return c
}

func (q *Question) AddOption(text string) error {
	if q.Type != TypeMultipleChoice {
		return ErrNotMultipleChoice
	}
	q.Options = append(q.Options, text)
	q.Correct = append(q.Correct, false)
	return nil
}

func (q *Question) RemoveOption(i int) error {
	if q.Type != TypeMultipleChoice {
		return ErrNotMultipleChoice
	}
	if i < 0 || i >= len(q.Options) {
		return ErrOptionIndex
	}
	if len(q.Options) <= MinOptions {
		return ErrTooFewOptions
	}
	q.Options = append(q.Options[:i], q.Options[i+1:]...)
	q.Correct = append(q.Correct[:i], q.Correct[i+1:]...)
	return nil
}

func (q *Question) SetOption(i int, text string) error {
	if q.Type != TypeMultipleChoice {
		return ErrNotMultipleChoice
	}
	if i < 0 || i >= len(q.Options) {
		return ErrOptionIndex
	}
	q.Options[i] = text
	return nil
}

// MarkCorrect flags option i as the answer. Single-answer questions keep only
// one flag set.
func (q *Question) MarkCorrect(i int) error {
	if q.Type != TypeMultipleChoice {
		return ErrNotMultipleChoice
	}
	if i < 0 || i >= len(q.Correct) {
		return ErrOptionIndex
	}
	for j := range q.Correct {
		q.Correct[j] = j == i
	}
	return nil
}

// CheckShape verifies the structural invariants of a multiple-choice question.
func (q Question) CheckShape() error {
	switch q.Type {
	case TypeMultipleChoice:
		if len(q.Options) != len(q.Correct) {
			return errors.New("options and correct flags differ in length")
		}
		if len(q.Options) < MinOptions {
			return ErrTooFewOptions
		}
		return nil
	case TypeEssay:
		return nil
	default:
		return ErrUnknownType
	}
}

func (q Question) filledOptions() int {
	n := 0
	for _, o := range q.Options {
		if strings.TrimSpace(o) != "" {
			n++
		}
	}
	return n
}

func (q Question) correctCount() int {
	n := 0
	for _, c := range q.Correct {
		if c {
			n++
		}
	}
	return n
}
