// Package authoring drives the question manager: one quiz, an ordered list of
// questions, and exactly one question open for editing at a time.
package authoring

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"sync"

	"github.com/mind-engage/mindengage-exams/internal/notify"
	"github.com/mind-engage/mindengage-exams/internal/quiz"
)

// API is the slice of the backend the question manager needs.
type API interface {
	QuizWithQuestions(ctx context.Context, id string) (quiz.Quiz, []quiz.PersistedQuestion, error)
	CreateQuiz(ctx context.Context, q quiz.Quiz) (quiz.Quiz, error)
	UpdateQuiz(ctx context.Context, q quiz.Quiz) (quiz.Quiz, error)
	GetQuestion(ctx context.Context, id string) (quiz.PersistedQuestion, error)
	CreateQuestion(ctx context.Context, p quiz.PersistedQuestion) (quiz.PersistedQuestion, error)
	UpdateQuestion(ctx context.Context, id string, p quiz.PersistedQuestion) (quiz.PersistedQuestion, error)
	DeleteQuestion(ctx context.Context, id string) error
	UploadQuestionFile(ctx context.Context, name string, r io.Reader) (quiz.FileRef, error)
}

// SlotState tracks the question open for editing. Switching and adding are
// only allowed once the slot is Ready again.
type SlotState int

const (
	SlotIdle   SlotState = iota // local edits not yet sent
	SlotSaving                  // a save is in flight
	SlotReady                   // nothing pending
)

func (s SlotState) String() string {
	switch s {
	case SlotIdle:
		return "idle"
	case SlotSaving:
		return "saving"
	default:
		return "ready"
	}
}

var (
	ErrSaveInFlight = errors.New("a save is still in flight")
	ErrNoQuiz       = errors.New("no quiz is open")
	ErrTypeLocked   = errors.New("quiz type cannot change once questions are saved")
	ErrFileTooLarge = errors.New("file too large")
	ErrNotEssay     = errors.New("attachments are only for essay questions")
)

const defaultMaxUpload = 10 << 20

type Controller struct {
	api       API
	notes     notify.Notifier
	nav       notify.Navigator
	locale    string
	logger    *log.Logger
	maxUpload int64

	mu    sync.Mutex
	quiz  quiz.Quiz
	store *quiz.Store
	draft quiz.Question
	slot  SlotState
}

type Option func(*Controller)

func WithLocale(locale string) Option { return func(c *Controller) { c.locale = locale } }

func WithLogger(l *log.Logger) Option { return func(c *Controller) { c.logger = l } }

// WithMaxUpload caps attachment size in bytes.
func WithMaxUpload(n int64) Option { return func(c *Controller) { c.maxUpload = n } }

func WithNotifier(n notify.Notifier) Option { return func(c *Controller) { c.notes = n } }

func New(api API, nav notify.Navigator, opts ...Option) *Controller {
	c := &Controller{
		api:       api,
		nav:       nav,
		locale:    "en",
		maxUpload: defaultMaxUpload,
		slot:      SlotReady,
	}
	for _, o := range opts {
		o(c)
	}
	if c.logger == nil {
		c.logger = log.New(os.Stderr, "authoring: ", log.LstdFlags)
	}
	if c.notes == nil {
		c.notes = notify.LogNotifier{Logger: c.logger}
	}
	return c
}

// QuestionsRoute is where a freshly created quiz continues.
func QuestionsRoute(quizID string) string {
	return fmt.Sprintf("/instructor/quizzes/%s/questions", quizID)
}

// CourseQuizzesRoute is where the question manager goes after saving.
func CourseQuizzesRoute(courseID string) string {
	return fmt.Sprintf("/instructor/courses/%s/quizzes", courseID)
}

func (c *Controller) tell(level notify.Level, key notify.Key, args ...any) {
	c.notes.Notify(level, notify.T(c.locale, key, args...))
}

func (c *Controller) fail(err error) {
	c.notes.Notify(notify.Error, notify.MessageFor(err, c.locale))
}

// CreateQuiz validates and creates a quiz, opens it with one blank question
// and navigates to the question manager.
func (c *Controller) CreateQuiz(ctx context.Context, q quiz.Quiz) (quiz.Quiz, error) {
	if err := quiz.ValidateQuiz(q, c.locale); err != nil {
		c.fail(err)
		return quiz.Quiz{}, err
	}
	created, err := c.api.CreateQuiz(ctx, q)
	if err != nil {
		c.logger.Printf("create quiz: %v", err)
		c.fail(err)
		return quiz.Quiz{}, err
	}
	c.mu.Lock()
	c.openLocked(created, nil)
	c.mu.Unlock()
	c.tell(notify.Success, notify.KeyQuizSaved)
	c.nav.Navigate(QuestionsRoute(created.ID))
	return created, nil
}

// UpdateQuiz saves quiz metadata. The type cannot change once any question
// has been persisted.
func (c *Controller) UpdateQuiz(ctx context.Context, q quiz.Quiz) (quiz.Quiz, error) {
	if err := quiz.ValidateQuiz(q, c.locale); err != nil {
		c.fail(err)
		return quiz.Quiz{}, err
	}
	c.mu.Lock()
	if c.store != nil && c.quiz.ID == q.ID && c.quiz.Type != q.Type {
		for _, it := range c.store.Items() {
			if it.Persisted() {
				c.mu.Unlock()
				return quiz.Quiz{}, ErrTypeLocked
			}
		}
	}
	c.mu.Unlock()

	updated, err := c.api.UpdateQuiz(ctx, q)
	if err != nil {
		c.logger.Printf("update quiz %s: %v", q.ID, err)
		c.fail(err)
		return quiz.Quiz{}, err
	}
	c.mu.Lock()
	if c.store != nil && c.quiz.ID == updated.ID {
		if c.quiz.Type != updated.Type {
			c.openLocked(updated, nil)
		} else {
			c.quiz = updated
		}
	}
	c.mu.Unlock()
	c.tell(notify.Success, notify.KeyQuizSaved)
	return updated, nil
}

// Open loads a quiz and its questions. An empty quiz starts with one blank
// question.
func (c *Controller) Open(ctx context.Context, quizID string) error {
	q, persisted, err := c.api.QuizWithQuestions(ctx, quizID)
	if err != nil {
		c.logger.Printf("open quiz %s: %v", quizID, err)
		c.fail(err)
		return err
	}
	c.mu.Lock()
	c.openLocked(q, persisted)
	c.mu.Unlock()
	return nil
}

func (c *Controller) openLocked(q quiz.Quiz, persisted []quiz.PersistedQuestion) {
	store := quiz.NewStore(q.ID, q.Type)
	items := make([]quiz.Question, 0, len(persisted))
	for _, p := range persisted {
		items = append(items, store.FromPersisted(p))
	}
	if q.Type == quiz.TypeEssay && len(items) > 1 {
		c.logger.Printf("essay quiz %s has %d questions; keeping the first", q.ID, len(items))
		items = items[:1]
	}
	if len(items) == 0 {
		items = append(items, store.CreateLocal())
	}
	store.Reset(items)
	c.quiz = q
	c.store = store
	c.draft, _ = store.At(0)
	c.slot = SlotReady
}

func (c *Controller) Quiz() quiz.Quiz {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.quiz
}

// Questions returns the local list, with the question being edited shown as
// last written to the list (not its unsaved draft).
func (c *Controller) Questions() []quiz.Question {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store == nil {
		return nil
	}
	return c.store.Items()
}

// Current returns the index and draft of the question open for editing.
func (c *Controller) Current() (int, quiz.Question) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store == nil {
		return -1, quiz.Question{}
	}
	return c.store.Current(), c.draft.Clone()
}

func (c *Controller) Slot() SlotState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.slot
}

// EditCurrent applies fn to the draft. Changes that break the question's
// shape are rolled back.
func (c *Controller) EditCurrent(fn func(q *quiz.Question) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store == nil {
		return ErrNoQuiz
	}
	if c.slot == SlotSaving {
		return ErrSaveInFlight
	}
	next := c.draft.Clone()
	if err := fn(&next); err != nil {
		return err
	}
	if err := next.CheckShape(); err != nil {
		return err
	}
	next.Type, next.QuizID = c.draft.Type, c.draft.QuizID
	next.ID, next.TempID = c.draft.ID, c.draft.TempID
	c.draft = next
	c.slot = SlotIdle
	return nil
}

// UploadAttachment stores a file on the backend and attaches it to the
// essay question being edited.
func (c *Controller) UploadAttachment(ctx context.Context, name string, size int64, r io.Reader) (quiz.FileRef, error) {
	c.mu.Lock()
	if c.store == nil {
		c.mu.Unlock()
		return quiz.FileRef{}, ErrNoQuiz
	}
	essay := c.draft.Type == quiz.TypeEssay
	c.mu.Unlock()
	if !essay {
		return quiz.FileRef{}, ErrNotEssay
	}
	if size > c.maxUpload {
		c.tell(notify.Warning, notify.KeyFileTooLarge, humanSize(c.maxUpload))
		return quiz.FileRef{}, ErrFileTooLarge
	}
	ref, err := c.api.UploadQuestionFile(ctx, name, r)
	if err != nil {
		c.logger.Printf("upload %s: %v", name, err)
		c.fail(err)
		return quiz.FileRef{}, err
	}
	err = c.EditCurrent(func(q *quiz.Question) error {
		q.Attachment = &ref
		return nil
	})
	return ref, err
}

func humanSize(n int64) string {
	if n >= 1<<20 {
		return fmt.Sprintf("%dMB", n>>20)
	}
	return fmt.Sprintf("%dKB", n>>10)
}
