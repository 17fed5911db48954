package authoring

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/mindengage-exams/internal/apiclient"
	"github.com/mind-engage/mindengage-exams/internal/notify"
	"github.com/mind-engage/mindengage-exams/internal/quiz"
)

type fakeAPI struct {
	mu        sync.Mutex
	quiz      quiz.Quiz
	questions map[string]quiz.PersistedQuestion
	order     []string
	nextID    int

	creates, updates, gets, deletes int

	failCreate func(p quiz.PersistedQuestion) error
	failGet    error
	failDelete error
}

func newFakeAPI(t quiz.Type) *fakeAPI {
	return &fakeAPI{
		quiz:      quiz.Quiz{ID: "quiz-1", Title: "Midterm", Type: t, CourseID: "course-1"},
		questions: map[string]quiz.PersistedQuestion{},
	}
}

func (f *fakeAPI) seed(p quiz.PersistedQuestion) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	p.ID = fmt.Sprintf("q-%d", f.nextID)
	p.QuizID = f.quiz.ID
	f.questions[p.ID] = p
	f.order = append(f.order, p.ID)
	return p.ID
}

func (f *fakeAPI) QuizWithQuestions(_ context.Context, id string) (quiz.Quiz, []quiz.PersistedQuestion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if id != f.quiz.ID {
		return quiz.Quiz{}, nil, &apiclient.Error{Kind: apiclient.KindNotFound, Status: 404}
	}
	var out []quiz.PersistedQuestion
	for _, qid := range f.order {
		if p, ok := f.questions[qid]; ok {
			out = append(out, p)
		}
	}
	return f.quiz, out, nil
}

func (f *fakeAPI) CreateQuiz(_ context.Context, q quiz.Quiz) (quiz.Quiz, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q.ID = "quiz-new"
	f.quiz = q
	return q, nil
}

func (f *fakeAPI) UpdateQuiz(_ context.Context, q quiz.Quiz) (quiz.Quiz, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.quiz = q
	return q, nil
}

func (f *fakeAPI) GetQuestion(_ context.Context, id string) (quiz.PersistedQuestion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	if f.failGet != nil {
		return quiz.PersistedQuestion{}, f.failGet
	}
	p, ok := f.questions[id]
	if !ok {
		return quiz.PersistedQuestion{}, &apiclient.Error{Kind: apiclient.KindNotFound, Status: 404}
	}
	return p, nil
}

func (f *fakeAPI) CreateQuestion(_ context.Context, p quiz.PersistedQuestion) (quiz.PersistedQuestion, error) {
	f.mu.Lock()
	f.creates++
	fail := f.failCreate
	f.mu.Unlock()
	if fail != nil {
		if err := fail(p); err != nil {
			return quiz.PersistedQuestion{}, err
		}
	}
	id := f.seed(p)
	p.ID = id
	return p, nil
}

func (f *fakeAPI) UpdateQuestion(_ context.Context, id string, p quiz.PersistedQuestion) (quiz.PersistedQuestion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates++
	p.ID = id
	f.questions[id] = p
	return p, nil
}

func (f *fakeAPI) DeleteQuestion(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes++
	if f.failDelete != nil {
		return f.failDelete
	}
	delete(f.questions, id)
	return nil
}

func (f *fakeAPI) UploadQuestionFile(_ context.Context, name string, r io.Reader) (quiz.FileRef, error) {
	_, _ = io.Copy(io.Discard, r)
	return quiz.FileRef{URL: "/files/questions/" + name, Name: name}, nil
}

func newController(t *testing.T, api *fakeAPI) (*Controller, *notify.Recorder) {
	t.Helper()
	rec := &notify.Recorder{}
	c := New(api, rec, WithNotifier(rec), WithLogger(log.New(io.Discard, "", 0)))
	require.NoError(t, c.Open(context.Background(), api.quiz.ID))
	return c, rec
}

func fillChoice(text string, correct int) func(q *quiz.Question) error {
	return func(q *quiz.Question) error {
		q.Text = text
		for i := range q.Options {
			q.Options[i] = fmt.Sprintf("%s option %d", text, i+1)
		}
		return q.MarkCorrect(correct)
	}
}

func TestOpenEmptyQuizStartsWithBlankQuestion(t *testing.T) {
	c, _ := newController(t, newFakeAPI(quiz.TypeMultipleChoice))

	qs := c.Questions()
	require.Len(t, qs, 1)
	assert.False(t, qs[0].Persisted())
	assert.Len(t, qs[0].Options, quiz.MinOptionSlots)
	assert.Equal(t, float64(quiz.DefaultPoints), qs[0].Points)
	assert.Equal(t, SlotReady, c.Slot())
}

func TestOpenUnknownQuizNotifies(t *testing.T) {
	api := newFakeAPI(quiz.TypeMultipleChoice)
	rec := &notify.Recorder{}
	c := New(api, rec, WithNotifier(rec), WithLogger(log.New(io.Discard, "", 0)))

	err := c.Open(context.Background(), "nope")
	assert.Equal(t, apiclient.KindNotFound, apiclient.KindOf(err))
	assert.Equal(t, 1, rec.Count(notify.Error))
	assert.ErrorIs(t, c.AddQuestion(context.Background()), ErrNoQuiz)
}

func TestAddQuestionSavesCurrentFirst(t *testing.T) {
	api := newFakeAPI(quiz.TypeMultipleChoice)
	c, _ := newController(t, api)
	ctx := context.Background()

	require.NoError(t, c.EditCurrent(fillChoice("Capital of France?", 2)))
	assert.Equal(t, SlotIdle, c.Slot())
	require.NoError(t, c.AddQuestion(ctx))

	assert.Equal(t, 1, api.creates)
	qs := c.Questions()
	require.Len(t, qs, 2)
	assert.True(t, qs[0].Persisted())
	assert.False(t, qs[1].Persisted())

	idx, cur := c.Current()
	assert.Equal(t, 1, idx)
	assert.True(t, cur.Blank())
	assert.Equal(t, SlotReady, c.Slot())
}

func TestAddQuestionKeepsGoingWhenSaveFails(t *testing.T) {
	api := newFakeAPI(quiz.TypeMultipleChoice)
	api.failCreate = func(quiz.PersistedQuestion) error {
		return &apiclient.Error{Kind: apiclient.KindServer, Status: 500}
	}
	c, rec := newController(t, api)

	require.NoError(t, c.EditCurrent(fillChoice("Q1", 0)))
	require.NoError(t, c.AddQuestion(context.Background()))

	qs := c.Questions()
	require.Len(t, qs, 2)
	assert.False(t, qs[0].Persisted())
	assert.Equal(t, "Q1", qs[0].Text)
	assert.Equal(t, 1, rec.Count(notify.Warning))
}

func TestAddBlankQuestionIsNotSaved(t *testing.T) {
	api := newFakeAPI(quiz.TypeMultipleChoice)
	c, _ := newController(t, api)

	require.NoError(t, c.AddQuestion(context.Background()))
	assert.Zero(t, api.creates)
	assert.Len(t, c.Questions(), 2)
}

func TestEssayQuizHasExactlyOneQuestion(t *testing.T) {
	api := newFakeAPI(quiz.TypeEssay)
	c, rec := newController(t, api)
	ctx := context.Background()

	err := c.AddQuestion(ctx)
	assert.ErrorIs(t, err, quiz.ErrEssaySingleQuestion)
	err = c.DeleteQuestion(ctx, 0)
	assert.ErrorIs(t, err, quiz.ErrEssaySingleQuestion)

	assert.Len(t, c.Questions(), 1)
	assert.Equal(t, 2, rec.Count(notify.Warning))
	assert.Zero(t, api.creates+api.deletes)
}

func TestSwitchToRefetchesPersistedQuestion(t *testing.T) {
	api := newFakeAPI(quiz.TypeMultipleChoice)
	id := api.seed(quiz.PersistedQuestion{Text: "Old", Type: quiz.TypeMultipleChoice, Points: 2,
		Options: []quiz.PersistedOption{{Text: "a", Correct: true}, {Text: "b"}}})
	api.seed(quiz.PersistedQuestion{Text: "Second", Type: quiz.TypeMultipleChoice, Points: 1})
	c, _ := newController(t, api)
	ctx := context.Background()

	require.NoError(t, c.SwitchTo(ctx, 1))
	api.mu.Lock()
	p := api.questions[id]
	p.Text = "Edited elsewhere"
	api.questions[id] = p
	api.mu.Unlock()

	require.NoError(t, c.SwitchTo(ctx, 0))
	_, cur := c.Current()
	assert.Equal(t, "Edited elsewhere", cur.Text)
	assert.Equal(t, 2, api.gets)
	// Persisted questions are saved again on every switch away.
	assert.Equal(t, 2, api.updates)
}

func TestSwitchToFallsBackToCachedCopy(t *testing.T) {
	api := newFakeAPI(quiz.TypeMultipleChoice)
	api.seed(quiz.PersistedQuestion{Text: "First", Type: quiz.TypeMultipleChoice, Points: 1})
	api.seed(quiz.PersistedQuestion{Text: "Second", Type: quiz.TypeMultipleChoice, Points: 1})
	api.failGet = &apiclient.Error{Kind: apiclient.KindNetwork}
	c, rec := newController(t, api)

	require.NoError(t, c.SwitchTo(context.Background(), 1))
	_, cur := c.Current()
	assert.Equal(t, "Second", cur.Text)
	assert.Equal(t, 1, rec.Count(notify.Warning))

	assert.ErrorIs(t, c.SwitchTo(context.Background(), 7), quiz.ErrIndex)
}

func TestDeleteQuestion(t *testing.T) {
	api := newFakeAPI(quiz.TypeMultipleChoice)
	first := api.seed(quiz.PersistedQuestion{Text: "First", Type: quiz.TypeMultipleChoice, Points: 1})
	api.seed(quiz.PersistedQuestion{Text: "Second", Type: quiz.TypeMultipleChoice, Points: 1})
	c, _ := newController(t, api)
	ctx := context.Background()

	require.NoError(t, c.SwitchTo(ctx, 1))
	require.NoError(t, c.DeleteQuestion(ctx, 1))
	assert.Equal(t, 1, api.deletes)

	idx, cur := c.Current()
	assert.Equal(t, 0, idx)
	assert.Equal(t, first, cur.ID)

	// A failed remote delete still removes the question locally.
	api.failDelete = errors.New("offline")
	require.NoError(t, c.DeleteQuestion(ctx, 0))
	qs := c.Questions()
	require.Len(t, qs, 1)
	assert.True(t, qs[0].Blank())
	assert.False(t, qs[0].Persisted())
}

func TestDeleteLocalQuestionSkipsBackend(t *testing.T) {
	api := newFakeAPI(quiz.TypeMultipleChoice)
	c, _ := newController(t, api)
	ctx := context.Background()

	require.NoError(t, c.AddQuestion(ctx))
	require.NoError(t, c.DeleteQuestion(ctx, 1))
	assert.Zero(t, api.deletes)
	assert.Len(t, c.Questions(), 1)
}

func TestEditCurrentKeepsShape(t *testing.T) {
	c, _ := newController(t, newFakeAPI(quiz.TypeMultipleChoice))

	err := c.EditCurrent(func(q *quiz.Question) error {
		q.Options = q.Options[:1]
		q.Correct = q.Correct[:1]
		return nil
	})
	assert.ErrorIs(t, err, quiz.ErrTooFewOptions)
	_, cur := c.Current()
	assert.Len(t, cur.Options, quiz.MinOptionSlots)

	require.NoError(t, c.EditCurrent(func(q *quiz.Question) error { return q.RemoveOption(3) }))
	require.NoError(t, c.EditCurrent(func(q *quiz.Question) error { return q.RemoveOption(2) }))
	err = c.EditCurrent(func(q *quiz.Question) error { return q.RemoveOption(1) })
	assert.ErrorIs(t, err, quiz.ErrTooFewOptions)
	_, cur = c.Current()
	assert.Len(t, cur.Options, quiz.MinOptions)
}

func TestSaveAllAggregatesOutcomes(t *testing.T) {
	api := newFakeAPI(quiz.TypeMultipleChoice)
	api.seed(quiz.PersistedQuestion{Text: "Persisted", Type: quiz.TypeMultipleChoice, Points: 1,
		Options: []quiz.PersistedOption{{Text: "x", Correct: true}, {Text: "y"}}})
	api.failCreate = func(p quiz.PersistedQuestion) error {
		if strings.HasPrefix(p.Text, "Broken") {
			return &apiclient.Error{Kind: apiclient.KindBadRequest, Status: 400, Message: "bad options"}
		}
		return nil
	}
	c, rec := newController(t, api)
	ctx := context.Background()

	require.NoError(t, c.AddQuestion(ctx))
	require.NoError(t, c.EditCurrent(fillChoice("Broken", 1)))
	require.NoError(t, c.AddQuestion(ctx))
	require.NoError(t, c.EditCurrent(fillChoice("Good", 0)))
	require.NoError(t, c.AddQuestion(ctx))
	require.NoError(t, c.AddQuestion(ctx))
	require.NoError(t, c.EditCurrent(func(q *quiz.Question) error { q.Text = "Half done"; return nil }))

	// Persisted, Broken (local, failed earlier), Good (created), blank, Half done.
	require.Len(t, c.Questions(), 5)
	warnings := rec.Count(notify.Warning)

	sum, err := c.SaveAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, SaveSummary{Created: 0, Updated: 2, Failed: 1, Incomplete: 1, Removed: 1}, sum)

	qs := c.Questions()
	require.Len(t, qs, 4)
	assert.Equal(t, "Persisted", qs[0].Text)
	assert.Equal(t, "Broken", qs[1].Text)
	assert.False(t, qs[1].Persisted())
	assert.True(t, qs[2].Persisted())
	assert.False(t, qs[3].Persisted())

	assert.Equal(t, 1, rec.Count(notify.Success))
	assert.Equal(t, warnings+1, rec.Count(notify.Warning), "only the incomplete notice")
	assert.Zero(t, rec.Count(notify.Error))
	assert.Equal(t, []string{CourseQuizzesRoute("course-1")}, rec.Routes())
	assert.Equal(t, SlotReady, c.Slot())
}

func TestSaveAllCreatesNewCompleteQuestions(t *testing.T) {
	api := newFakeAPI(quiz.TypeMultipleChoice)
	c, rec := newController(t, api)

	require.NoError(t, c.EditCurrent(fillChoice("Only", 3)))
	sum, err := c.SaveAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Created)
	assert.Equal(t, 1, api.creates)

	_, cur := c.Current()
	assert.True(t, cur.Persisted())
	assert.Len(t, rec.Routes(), 1)
}

func TestSaveAllWithNothingToSaveStillNavigates(t *testing.T) {
	api := newFakeAPI(quiz.TypeMultipleChoice)
	c, rec := newController(t, api)

	sum, err := c.SaveAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Removed)
	assert.Len(t, c.Questions(), 1)
	assert.Equal(t, 1, rec.Count(notify.Success))
	assert.Len(t, rec.Routes(), 1)
}

func TestCreateQuizValidatesThenNavigates(t *testing.T) {
	api := newFakeAPI(quiz.TypeMultipleChoice)
	rec := &notify.Recorder{}
	c := New(api, rec, WithNotifier(rec), WithLogger(log.New(io.Discard, "", 0)))
	ctx := context.Background()

	_, err := c.CreateQuiz(ctx, quiz.Quiz{Type: quiz.TypeEssay, CourseID: "course-1"})
	var verr *quiz.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Empty(t, rec.Routes())

	created, err := c.CreateQuiz(ctx, quiz.Quiz{Title: "Essay", Type: quiz.TypeEssay, CourseID: "course-1"})
	require.NoError(t, err)
	assert.Equal(t, "quiz-new", created.ID)
	assert.Equal(t, []string{QuestionsRoute("quiz-new")}, rec.Routes())
	require.Len(t, c.Questions(), 1)
	assert.Equal(t, quiz.TypeEssay, c.Questions()[0].Type)
}

func TestUpdateQuizLocksTypeOncePersisted(t *testing.T) {
	api := newFakeAPI(quiz.TypeMultipleChoice)
	api.seed(quiz.PersistedQuestion{Text: "First", Type: quiz.TypeMultipleChoice, Points: 1})
	c, _ := newController(t, api)

	q := c.Quiz()
	q.Type = quiz.TypeEssay
	_, err := c.UpdateQuiz(context.Background(), q)
	assert.ErrorIs(t, err, ErrTypeLocked)

	q.Type = quiz.TypeMultipleChoice
	q.Title = "Renamed"
	updated, err := c.UpdateQuiz(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)
	assert.Equal(t, "Renamed", c.Quiz().Title)
}

func TestUploadAttachment(t *testing.T) {
	api := newFakeAPI(quiz.TypeEssay)
	rec := &notify.Recorder{}
	c := New(api, rec, WithNotifier(rec), WithMaxUpload(1<<10), WithLogger(log.New(io.Discard, "", 0)))
	require.NoError(t, c.Open(context.Background(), api.quiz.ID))
	ctx := context.Background()

	_, err := c.UploadAttachment(ctx, "big.pdf", 4<<10, strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrFileTooLarge)
	assert.Equal(t, 1, rec.Count(notify.Warning))

	ref, err := c.UploadAttachment(ctx, "brief.pdf", 10, strings.NewReader("0123456789"))
	require.NoError(t, err)
	_, cur := c.Current()
	require.NotNil(t, cur.Attachment)
	assert.Equal(t, ref, *cur.Attachment)
}
