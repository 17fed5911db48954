package apiclient

import (
	"github.com/mind-engage/mindengage-exams/internal/directory"
	"github.com/mind-engage/mindengage-exams/internal/quiz"
	"github.com/mind-engage/mindengage-exams/internal/wire"
)

func quizFromWire(op string, w wire.Quiz) (quiz.Quiz, error) {
	if w.ID == "" {
		return quiz.Quiz{}, invalid(op, "quiz without id")
	}
	t, err := quiz.ParseType(w.QuizType)
	if err != nil {
		return quiz.Quiz{}, invalid(op, err.Error())
	}
	q := quiz.Quiz{
		ID:          w.ID,
		Title:       w.Title,
		Description: w.Description,
		Type:        t,
		Flags: quiz.Flags{
			ShuffleAnswers:        w.ShuffleAnswers,
			AllowMultipleAttempts: w.AllowMultipleAttempts,
			ShowResponses:         w.ShowResponses,
			OneQuestionAtATime:    w.OneQuestionAtATime,
		},
		Published: w.IsPublished,
		CourseID:  w.CourseID,
	}
	if w.TimeLimit != nil {
		tl := *w.TimeLimit
		q.TimeLimitMinutes = &tl
	}
	if w.ModuleID != nil && *w.ModuleID != "" {
		m := *w.ModuleID
		q.ModuleID = &m
	}
	return q, nil
}

func quizToWire(q quiz.Quiz) wire.Quiz {
	w := wire.Quiz{
		ID:                    q.ID,
		Title:                 q.Title,
		Description:           q.Description,
		QuizType:              q.Type.String(),
		TimeLimit:             q.TimeLimitMinutes,
		ShuffleAnswers:        q.Flags.ShuffleAnswers,
		AllowMultipleAttempts: q.Flags.AllowMultipleAttempts,
		ShowResponses:         q.Flags.ShowResponses,
		OneQuestionAtATime:    q.Flags.OneQuestionAtATime,
		IsPublished:           q.Published,
		CourseID:              q.CourseID,
		ModuleID:              q.ModuleID,
	}
	return w
}

func questionFromWire(op string, w wire.Question) (quiz.PersistedQuestion, error) {
	if w.ID == "" {
		return quiz.PersistedQuestion{}, invalid(op, "question without id")
	}
	t, err := quiz.ParseType(w.QuestionType)
	if err != nil {
		return quiz.PersistedQuestion{}, invalid(op, err.Error())
	}
	p := quiz.PersistedQuestion{
		ID:     w.ID,
		QuizID: w.QuizID,
		Text:   w.QuestionText,
		Type:   t,
		Points: w.Points,
	}
	switch t {
	case quiz.TypeMultipleChoice:
		for _, a := range w.Answers {
			p.Options = append(p.Options, quiz.PersistedOption{Text: a.AnswerText, Correct: a.IsCorrect, Order: a.OrderNumber})
		}
	case quiz.TypeEssay:
		if w.FileURL != "" {
			p.Attachment = &quiz.FileRef{URL: w.FileURL, Name: w.FileName}
		}
	}
	return p, nil
}

func questionToWire(p quiz.PersistedQuestion) wire.Question {
	w := wire.Question{
		ID:           p.ID,
		QuizID:       p.QuizID,
		QuestionText: p.Text,
		QuestionType: p.Type.String(),
		Points:       p.Points,
	}
	switch p.Type {
	case quiz.TypeMultipleChoice:
		w.Answers = make([]wire.AnswerOption, 0, len(p.Options))
		for _, o := range p.Options {
			w.Answers = append(w.Answers, wire.AnswerOption{AnswerText: o.Text, IsCorrect: o.Correct, OrderNumber: o.Order})
		}
	case quiz.TypeEssay:
		if p.Attachment != nil {
			w.FileURL, w.FileName = p.Attachment.URL, p.Attachment.Name
		}
	}
	return w
}

func resultFromWire(w wire.Result) quiz.Result {
	return quiz.Result{
		Score:         w.Score,
		MaxScore:      w.MaxScore,
		CorrectCount:  w.CorrectCount,
		TotalCount:    w.TotalQuestions,
		Status:        w.Status,
		AttemptNumber: w.AttemptNumber,
		SubmittedAt:   w.SubmittedAt,
	}
}

func submissionToWire(s quiz.Submission) wire.SubmitRequest {
	out := wire.SubmitRequest{
		QuizID:    s.QuizID,
		Answers:   make([]wire.SubmitAnswer, 0, len(s.Answers)),
		TimeSpent: int(s.TimeSpent.Seconds()),
	}
	for _, a := range s.Answers {
		out.Answers = append(out.Answers, wire.SubmitAnswer{
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

func courseFromWire(w wire.Course) directory.Course {
	return directory.Course{
		ID:           w.ID,
		Title:        w.Title,
		Description:  w.Description,
		InstructorID: w.InstructorID,
		Price:        w.Price,
		Published:    w.IsPublished,
	}
}

func moduleFromWire(w wire.Module) directory.Module {
	return directory.Module{ID: w.ID, CourseID: w.CourseID, Title: w.Title, Order: w.OrderNumber}
}
