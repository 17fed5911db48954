package exam

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/mind-engage/mindengage-exams/internal/auth/middleware"
	"github.com/mind-engage/mindengage-exams/internal/db"
	"github.com/mind-engage/mindengage-exams/internal/grading"
)

func newStore(t *testing.T) *SQLStore {
	t.Helper()
	ctx := context.Background()
	conn, err := db.OpenMemory(ctx, t.Name())
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	s := NewSQLStore(conn, string(db.DriverSQLite))
	require.NoError(t, SeedDemo(ctx, s))
	return s
}

func intp(i int) *int { return &i }

func mcQuiz(t *testing.T, s *SQLStore, multi bool) (Quiz, Question) {
	t.Helper()
	ctx := context.Background()
	qz, err := s.CreateQuiz(ctx, Quiz{
		CourseID:              DemoCourseID,
		Title:                 "Capitals",
		Type:                  TypeMultipleChoice,
		TimeLimit:             intp(10),
		AllowMultipleAttempts: multi,
		CreatedBy:             "demo-teacher",
	})
	require.NoError(t, err)
	q, err := s.CreateQuestion(ctx, Question{
		QuizID: qz.ID,
		Text:   "Capital of France?",
		Type:   TypeMultipleChoice,
		Points: 2,
		Options: []Option{
			{Text: "Berlin", Order: 1},
			{Text: "Paris", Correct: true, Order: 2},
			{Text: "Rome", Order: 3},
		},
	})
	require.NoError(t, err)
	return qz, q
}

func TestSeedAndLookup(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	c, err := s.UserByUsername(ctx, "teacher")
	require.NoError(t, err)
	assert.Equal(t, "teacher", c.Role)

	_, err = s.UserByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, auth.ErrUnknownUser)

	mods, err := s.ModulesOf(ctx, DemoCourseID)
	require.NoError(t, err)
	require.Len(t, mods, 1)
	assert.Equal(t, DemoModuleID, mods[0].ID)

	_, err = s.ModulesOf(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, SeedAdmin(ctx, s, "root", "$2y$12$pyZAiWaTfVtM7UElIRStvOC3gNbnp70nmQU4eYopLGBfCJr1DOvji"))
	assert.Error(t, SeedAdmin(ctx, s, "root", "plain"))
}

func TestQuizRoundTrip(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	qz, q := mcQuiz(t, s, false)

	got, qs, err := s.QuizWithQuestions(ctx, qz.ID)
	require.NoError(t, err)
	assert.Equal(t, "Capitals", got.Title)
	require.NotNil(t, got.TimeLimit)
	assert.Equal(t, 10, *got.TimeLimit)
	assert.Nil(t, got.ModuleID)
	require.Len(t, qs, 1)
	assert.Equal(t, q.ID, qs[0].ID)
	require.Len(t, qs[0].Options, 3)
	assert.Equal(t, "Paris", qs[0].Options[1].Text)
	assert.True(t, qs[0].Options[1].Correct)

	mod := DemoModuleID
	got.ModuleID = &mod
	got.TimeLimit = nil
	got.CreatedBy = "someone-else"
	up, err := s.UpdateQuiz(ctx, got)
	require.NoError(t, err)
	assert.Equal(t, "demo-teacher", up.CreatedBy)

	reloaded, err := s.Quiz(ctx, qz.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded.ModuleID)
	assert.Equal(t, DemoModuleID, *reloaded.ModuleID)
	assert.Nil(t, reloaded.TimeLimit)
}

func TestQuestionUpdateReplacesOptions(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	_, q := mcQuiz(t, s, false)

	q.Text = "Capital of Italy?"
	q.Options = []Option{{Text: "Rome", Correct: true}, {Text: "Milan"}}
	up, err := s.UpdateQuestion(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, "Capital of Italy?", up.Text)
	require.Len(t, up.Options, 2)
	assert.Equal(t, "Rome", up.Options[0].Text)

	q.Type = TypeEssay
	_, err = s.UpdateQuestion(ctx, q)
	assert.ErrorIs(t, err, ErrTypeMismatch)

	require.NoError(t, s.DeleteQuestion(ctx, q.ID))
	_, err = s.Question(ctx, q.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.DeleteQuestion(ctx, q.ID), ErrNotFound)
}

func TestEssayQuizHoldsOneQuestion(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	qz, err := s.CreateQuiz(ctx, Quiz{CourseID: DemoCourseID, Title: "Essay", Type: TypeEssay})
	require.NoError(t, err)

	_, err = s.CreateQuestion(ctx, Question{QuizID: qz.ID, Text: "Discuss.", Type: TypeEssay, Points: 10})
	require.NoError(t, err)
	_, err = s.CreateQuestion(ctx, Question{QuizID: qz.ID, Text: "Again.", Type: TypeEssay, Points: 10})
	assert.ErrorIs(t, err, ErrEssaySingle)
	_, err = s.CreateQuestion(ctx, Question{QuizID: qz.ID, Text: "Pick", Type: TypeMultipleChoice})
	assert.ErrorIs(t, err, ErrTypeMismatch)
}

func TestSubmitGradesAndLimitsAttempts(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	qz, q := mcQuiz(t, s, false)

	n, latest, err := s.SubmissionCount(ctx, qz.ID, "demo-student")
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Nil(t, latest)

	sub, err := s.Submit(ctx, Submission{
		QuizID:    qz.ID,
		UserID:    "demo-student",
		TimeSpent: 42,
		Answers: []Answer{
			{QuestionID: q.ID, SelectedIndex: intp(0), SelectedAnswer: "Paris"},
			{QuestionID: "not-in-quiz", SelectedAnswer: "x"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, sub.Attempt)
	assert.Equal(t, 2.0, sub.Score)
	assert.Equal(t, 2.0, sub.MaxScore)
	assert.Equal(t, 1, sub.CorrectCount)
	assert.Equal(t, 1, sub.TotalCount)
	assert.Equal(t, StatusGraded, sub.Status)
	require.Len(t, sub.Answers, 1)

	_, err = s.Submit(ctx, Submission{QuizID: qz.ID, UserID: "demo-student"})
	assert.ErrorIs(t, err, ErrAttemptsExhausted)

	n, latest, err = s.SubmissionCount(ctx, qz.ID, "demo-student")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.NotNil(t, latest)
	assert.Equal(t, 42, latest.TimeSpent)
	require.Len(t, latest.Answers, 1)
	require.NotNil(t, latest.Answers[0].Correct)
	assert.True(t, *latest.Answers[0].Correct)

	qz.Type = TypeEssay
	_, err = s.UpdateQuiz(ctx, qz)
	assert.ErrorIs(t, err, ErrTypeLocked)
}

func TestSubmitWithGraderOptions(t *testing.T) {
	ctx := context.Background()
	conn, err := db.OpenMemory(ctx, t.Name())
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	s := NewSQLStore(conn, string(db.DriverSQLite), grading.WithExactText(true))
	require.NoError(t, SeedDemo(ctx, s))
	qz, q := mcQuiz(t, s, true)

	loose, err := s.Submit(ctx, Submission{QuizID: qz.ID, UserID: "demo-student",
		Answers: []Answer{{QuestionID: q.ID, SelectedAnswer: "paris"}}})
	require.NoError(t, err)
	assert.Zero(t, loose.Score)

	exact, err := s.Submit(ctx, Submission{QuizID: qz.ID, UserID: "demo-student",
		Answers: []Answer{{QuestionID: q.ID, SelectedAnswer: "Paris"}}})
	require.NoError(t, err)
	assert.Equal(t, 2.0, exact.Score)
	assert.Equal(t, 2, exact.Attempt)
}

func TestSubmitMultipleAttemptsConcurrently(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	qz, _ := mcQuiz(t, s, true)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Submit(ctx, Submission{QuizID: qz.ID, UserID: "demo-student"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	n, latest, err := s.SubmissionCount(ctx, qz.ID, "demo-student")
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, 4, latest.Attempt)
}

func TestEssaySubmissionPending(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	qz, err := s.CreateQuiz(ctx, Quiz{CourseID: DemoCourseID, Title: "Essay", Type: TypeEssay})
	require.NoError(t, err)
	q, err := s.CreateQuestion(ctx, Question{QuizID: qz.ID, Text: "Discuss.", Type: TypeEssay, Points: 10})
	require.NoError(t, err)

	sub, err := s.Submit(ctx, Submission{QuizID: qz.ID, UserID: "demo-student",
		Answers: []Answer{{QuestionID: q.ID, FileName: "essay.pdf", FileURL: "/files/x/essay.pdf"}}})
	require.NoError(t, err)
	assert.Equal(t, StatusPending, sub.Status)
	assert.Zero(t, sub.Score)
	assert.Equal(t, 10.0, sub.MaxScore)
}

func TestDeleteQuiz(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	qz, q := mcQuiz(t, s, false)

	require.NoError(t, s.DeleteQuiz(ctx, qz.ID))
	_, err := s.Quiz(ctx, qz.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Question(ctx, q.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
