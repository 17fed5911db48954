package http

import (
	"time"

	"github.com/mind-engage/mindengage-exams/internal/exam"
	"github.com/mind-engage/mindengage-exams/internal/wire"
)

func courseToWire(c exam.Course) wire.Course {
	return wire.Course{
		ID:           c.ID,
		Title:        c.Title,
		Description:  c.Description,
		InstructorID: c.InstructorID,
		Price:        c.Price,
		IsPublished:  c.Published,
	}
}

func moduleToWire(m exam.Module) wire.Module {
	return wire.Module{ID: m.ID, CourseID: m.CourseID, Title: m.Title, OrderNumber: m.Order}
}

func quizToWire(q exam.Quiz) wire.Quiz {
	return wire.Quiz{
		ID:                    q.ID,
		Title:                 q.Title,
		Description:           q.Description,
		QuizType:              q.Type,
		TimeLimit:             q.TimeLimit,
		ShuffleAnswers:        q.ShuffleAnswers,
		AllowMultipleAttempts: q.AllowMultipleAttempts,
		ShowResponses:         q.ShowResponses,
		OneQuestionAtATime:    q.OneQuestionAtATime,
		IsPublished:           q.Published,
		CourseID:              q.CourseID,
		ModuleID:              q.ModuleID,
	}
}

func quizFromWire(w wire.Quiz) exam.Quiz {
	return exam.Quiz{
		ID:                    w.ID,
		CourseID:              w.CourseID,
		ModuleID:              w.ModuleID,
		Title:                 w.Title,
		Description:           w.Description,
		Type:                  w.QuizType,
		TimeLimit:             w.TimeLimit,
		ShuffleAnswers:        w.ShuffleAnswers,
		AllowMultipleAttempts: w.AllowMultipleAttempts,
		ShowResponses:         w.ShowResponses,
		OneQuestionAtATime:    w.OneQuestionAtATime,
		Published:             w.IsPublished,
	}
}

// questionToWire renders q; withKey=false hides which options are correct.
func questionToWire(q exam.Question, withKey bool) wire.Question {
	w := wire.Question{
		ID:           q.ID,
		QuizID:       q.QuizID,
		QuestionText: q.Text,
		QuestionType: q.Type,
		Points:       q.Points,
		FileURL:      q.FileURL,
		FileName:     q.FileName,
	}
	for _, o := range q.Options {
		order := o.Order
		w.Answers = append(w.Answers, wire.AnswerOption{
			ID:          o.ID,
			AnswerText:  o.Text,
			IsCorrect:   withKey && o.Correct,
			OrderNumber: &order,
		})
	}
	return w
}

func questionFromWire(w wire.Question) exam.Question {
	q := exam.Question{
		ID:       w.ID,
		QuizID:   w.QuizID,
		Text:     w.QuestionText,
		Type:     w.QuestionType,
		Points:   w.Points,
		FileURL:  w.FileURL,
		FileName: w.FileName,
	}
	if w.QuestionType != exam.TypeMultipleChoice {
		return q
	}
	for i, a := range w.Answers {
		order := i
		if a.OrderNumber != nil {
			order = *a.OrderNumber
		}
		q.Options = append(q.Options, exam.Option{Text: a.AnswerText, Correct: a.IsCorrect, Order: order})
	}
	return q
}

func resultToWire(s exam.Submission) wire.Result {
	return wire.Result{
		Score:          s.Score,
		MaxScore:       s.MaxScore,
		CorrectCount:   s.CorrectCount,
		TotalQuestions: s.TotalCount,
		Status:         s.Status,
		AttemptNumber:  s.Attempt,
		SubmittedAt:    time.Unix(s.SubmittedAt, 0).UTC(),
	}
}

func answersFromWire(in []wire.SubmitAnswer) []exam.Answer {
	out := make([]exam.Answer, 0, len(in))
	for _, a := range in {
		out = append(out, exam.Answer{
			QuestionID:     a.QuestionID,
			SelectedIndex:  a.SelectedIndex,
			SelectedAnswer: a.SelectedAnswer,
			EssayText:      a.EssayText,
			EssayLink:      a.EssayLink,
			FileName:       a.FileName,
			FileURL:        a.FileURL,
		})
	}
	return out
}
