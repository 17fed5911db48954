// Package taking runs one student's attempt at a quiz: load, countdown,
// answers, a single submission and an optional retake.
package taking

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mind-engage/mindengage-exams/internal/notify"
	"github.com/mind-engage/mindengage-exams/internal/quiz"
)

// API is the slice of the backend an attempt needs.
type API interface {
	CheckSubmission(ctx context.Context, quizID string) (quiz.SubmissionStatus, error)
	QuizWithQuestions(ctx context.Context, id string) (quiz.Quiz, []quiz.PersistedQuestion, error)
	UploadAnswerFile(ctx context.Context, quizID, name string, r io.Reader) (quiz.FileRef, error)
	Submit(ctx context.Context, s quiz.Submission) (quiz.SubmitOutcome, error)
	Result(ctx context.Context, quizID string) (quiz.ResultDetail, error)
}

type State int

const (
	NotStarted State = iota
	InProgress
	Completed
)

func (s State) String() string {
	switch s {
	case InProgress:
		return "in_progress"
	case Completed:
		return "completed"
	default:
		return "not_started"
	}
}

var (
	ErrNotLoaded         = errors.New("no quiz loaded")
	ErrNotStartable      = errors.New("attempt already started or completed")
	ErrNotInProgress     = errors.New("attempt is not in progress")
	ErrAlreadySubmitting = errors.New("submission already in progress")
	ErrRetakeNotAllowed  = errors.New("quiz allows a single attempt")
	ErrFileTooLarge      = errors.New("file too large")
	ErrUnknownQuestion   = errors.New("unknown question")
	ErrWrongKind         = errors.New("answer does not fit question type")
	ErrInvalidLink       = errors.New("essay link is not a valid URL")
)

const (
	defaultMaxUpload   = 10 << 20
	defaultResultDelay = 3 * time.Second
)

// Item is a question as shown to the student. Options are in display order.
type Item struct {
	ID         string
	Text       string
	Type       quiz.Type
	Points     float64
	Options    []string
	Attachment *quiz.FileRef

	// order maps a display index to the option's index in backend order.
	order []int
}

// OriginalIndex returns the backend-order index of displayed option i.
func (it Item) OriginalIndex(i int) (int, bool) {
	if i < 0 || i >= len(it.order) {
		return 0, false
	}
	return it.order[i], true
}

func (it Item) clone() Item {
	c := it
	c.Options = append([]string(nil), it.Options...)
	c.order = append([]int(nil), it.order...)
	if it.Attachment != nil {
		a := *it.Attachment
		c.Attachment = &a
	}
	return c
}

type Controller struct {
	api         API
	notes       notify.Notifier
	nav         notify.Navigator
	locale      string
	logger      *log.Logger
	maxUpload   int64
	resultDelay time.Duration
	newTicker   func(time.Duration) Ticker
	afterFunc   func(time.Duration, func()) func() bool
	now         func() time.Time
	rng         *rand.Rand

	submitting atomic.Bool

	mu        sync.Mutex
	quiz      quiz.Quiz
	items     []Item
	state     State
	already   bool
	attempt   int
	answers   map[string]quiz.Answer
	result    *quiz.Result
	startedAt time.Time
	remaining time.Duration
	ticker    Ticker
	stopTick  chan struct{}
	navStop   func() bool
}

type Option func(*Controller)

func WithLocale(locale string) Option { return func(c *Controller) { c.locale = locale } }

func WithLogger(l *log.Logger) Option { return func(c *Controller) { c.logger = l } }

func WithNotifier(n notify.Notifier) Option { return func(c *Controller) { c.notes = n } }

func WithMaxUpload(n int64) Option { return func(c *Controller) { c.maxUpload = n } }

// WithResultDelay sets how long the result stays on screen before the
// controller navigates away.
func WithResultDelay(d time.Duration) Option { return func(c *Controller) { c.resultDelay = d } }

func WithTicker(f func(time.Duration) Ticker) Option { return func(c *Controller) { c.newTicker = f } }

func WithAfterFunc(f func(time.Duration, func()) func() bool) Option {
	return func(c *Controller) { c.afterFunc = f }
}

func WithClock(now func() time.Time) Option { return func(c *Controller) { c.now = now } }

// WithRand fixes the source used to shuffle options.
func WithRand(r *rand.Rand) Option { return func(c *Controller) { c.rng = r } }

func New(api API, nav notify.Navigator, opts ...Option) *Controller {
	c := &Controller{
		api:         api,
		nav:         nav,
		locale:      "en",
		maxUpload:   defaultMaxUpload,
		resultDelay: defaultResultDelay,
		newTicker:   NewTimeTicker,
		now:         time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	if c.logger == nil {
		c.logger = log.New(os.Stderr, "taking: ", log.LstdFlags)
	}
	if c.notes == nil {
		c.notes = notify.LogNotifier{Logger: c.logger}
	}
	if c.rng == nil {
		c.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if c.afterFunc == nil {
		c.afterFunc = func(d time.Duration, f func()) func() bool { return time.AfterFunc(d, f).Stop }
	}
	return c
}

// ResultRoute is where a finished attempt continues.
func ResultRoute(quizID string) string {
	return fmt.Sprintf("/quizzes/%s/result", quizID)
}

func (c *Controller) tell(level notify.Level, key notify.Key, args ...any) {
	c.notes.Notify(level, notify.T(c.locale, key, args...))
}

func (c *Controller) fail(err error) {
	c.notes.Notify(notify.Error, notify.MessageFor(err, c.locale))
}

// Load checks for a prior submission and fetches the quiz. A student who
// has already submitted lands directly in Completed with the recorded
// result; the quiz is still fetched so a retake can be offered.
func (c *Controller) Load(ctx context.Context, quizID string) error {
	st, err := c.api.CheckSubmission(ctx, quizID)
	if err != nil {
		c.logger.Printf("check submission %s: %v", quizID, err)
		c.fail(err)
		return err
	}
	q, persisted, err := c.api.QuizWithQuestions(ctx, quizID)
	if err != nil {
		c.logger.Printf("load quiz %s: %v", quizID, err)
		c.fail(err)
		return err
	}

	c.mu.Lock()
	c.resetLocked(q, persisted)
	if st.HasSubmitted {
		c.state = Completed
		c.already = true
		c.attempt = st.AttemptCount
		if st.Result != nil {
			r := *st.Result
			c.result = &r
		}
		c.submitting.Store(true)
	} else {
		c.attempt = st.AttemptCount + 1
	}
	c.mu.Unlock()

	if st.HasSubmitted {
		c.tell(notify.Info, notify.KeyAlreadySubmitted)
	}
	return nil
}

func (c *Controller) resetLocked(q quiz.Quiz, persisted []quiz.PersistedQuestion) {
	c.stopTimerLocked()
	if c.navStop != nil {
		c.navStop()
		c.navStop = nil
	}
	c.quiz = q
	c.items = c.buildItemsLocked(q, persisted)
	c.state = NotStarted
	c.already = false
	c.answers = make(map[string]quiz.Answer)
	c.result = nil
	c.startedAt = time.Time{}
	c.remaining = time.Duration(q.TimeLimitSeconds()) * time.Second
	c.submitting.Store(false)
}

func (c *Controller) buildItemsLocked(q quiz.Quiz, persisted []quiz.PersistedQuestion) []Item {
	store := quiz.NewStore(q.ID, q.Type)
	items := make([]Item, 0, len(persisted))
	for _, p := range persisted {
		local := store.FromPersisted(p)
		it := Item{
			ID:         local.ID,
			Text:       local.Text,
			Type:       local.Type,
			Points:     local.Points,
			Attachment: local.Attachment,
		}
		if it.Type == quiz.TypeMultipleChoice {
			for i, opt := range local.Options {
				if strings.TrimSpace(opt) == "" {
					continue
				}
				it.Options = append(it.Options, opt)
				it.order = append(it.order, i)
			}
			if q.Flags.ShuffleAnswers {
				c.rng.Shuffle(len(it.Options), func(i, j int) {
					it.Options[i], it.Options[j] = it.Options[j], it.Options[i]
					it.order[i], it.order[j] = it.order[j], it.order[i]
				})
			}
		}
		items = append(items, it)
	}
	return items
}

// Start begins the attempt and, for timed quizzes, the countdown. When the
// countdown reaches zero the attempt is submitted with ctx.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.answers == nil {
		return ErrNotLoaded
	}
	if c.state != NotStarted {
		return ErrNotStartable
	}
	c.state = InProgress
	c.startedAt = c.now()
	if c.remaining > 0 {
		c.startTimerLocked(ctx)
	}
	return nil
}

func (c *Controller) itemLocked(questionID string) (Item, error) {
	for _, it := range c.items {
		if it.ID == questionID {
			return it, nil
		}
	}
	return Item{}, ErrUnknownQuestion
}

// SelectOption records displayed option index for a multiple-choice
// question, replacing any earlier choice.
func (c *Controller) SelectOption(questionID string, index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != InProgress {
		return ErrNotInProgress
	}
	it, err := c.itemLocked(questionID)
	if err != nil {
		return err
	}
	if it.Type != quiz.TypeMultipleChoice {
		return ErrWrongKind
	}
	if index < 0 || index >= len(it.Options) {
		return quiz.ErrOptionIndex
	}
	c.answers[questionID] = quiz.ChoiceAnswer{Index: index}
	return nil
}

func (c *Controller) editEssay(questionID string, fn func(a *quiz.EssayAnswer) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != InProgress {
		return ErrNotInProgress
	}
	it, err := c.itemLocked(questionID)
	if err != nil {
		return err
	}
	if it.Type != quiz.TypeEssay {
		return ErrWrongKind
	}
	a, _ := c.answers[questionID].(quiz.EssayAnswer)
	err = fn(&a)
	c.answers[questionID] = a
	return err
}

// SetEssayKind chooses how an essay is handed in. Content entered for other
// kinds is kept but not submitted.
func (c *Controller) SetEssayKind(questionID string, kind quiz.EssayKind) error {
	return c.editEssay(questionID, func(a *quiz.EssayAnswer) error {
		a.Kind = kind
		return nil
	})
}

func (c *Controller) SetEssayText(questionID, text string) error {
	return c.editEssay(questionID, func(a *quiz.EssayAnswer) error {
		a.Kind, a.Text = quiz.EssayText, text
		return nil
	})
}

// SetEssayLink records a link answer. A link that is not an absolute URL is
// rejected and clears any earlier link; an empty one just clears it.
func (c *Controller) SetEssayLink(questionID, link string) error {
	link = strings.TrimSpace(link)
	err := c.editEssay(questionID, func(a *quiz.EssayAnswer) error {
		a.Kind = quiz.EssayLink
		if link != "" && quiz.Validator().Var(link, "url") != nil {
			a.Link = ""
			return ErrInvalidLink
		}
		a.Link = link
		return nil
	})
	if errors.Is(err, ErrInvalidLink) {
		c.tell(notify.Warning, notify.KeyInvalidLink)
	}
	return err
}

// SetEssayFile picks the file to upload on submit. A file over the size
// limit clears any earlier pick.
func (c *Controller) SetEssayFile(questionID string, up quiz.Upload) error {
	err := c.editEssay(questionID, func(a *quiz.EssayAnswer) error {
		a.Kind = quiz.EssayFile
		if up.Size > c.maxUpload {
			a.File = nil
			return ErrFileTooLarge
		}
		f := up
		a.File = &f
		return nil
	})
	if errors.Is(err, ErrFileTooLarge) {
		c.tell(notify.Warning, notify.KeyFileTooLarge, fmt.Sprintf("%dMB", c.maxUpload>>20))
	}
	return err
}

func (c *Controller) IsQuestionAnswered(questionID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return answered(c.answers[questionID])
}

func answered(a quiz.Answer) bool {
	switch a := a.(type) {
	case quiz.ChoiceAnswer:
		return true
	case quiz.EssayAnswer:
		switch a.Kind {
		case quiz.EssayText:
			return strings.TrimSpace(a.Text) != ""
		case quiz.EssayLink:
			return a.Link != ""
		case quiz.EssayFile:
			return a.File != nil
		}
	}
	return false
}

// Progress reports how many questions have an answer.
func (c *Controller) Progress() (done, total int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, it := range c.items {
		if answered(c.answers[it.ID]) {
			done++
		}
	}
	return done, len(c.items)
}

func (c *Controller) QuizID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.quiz.ID
}

func (c *Controller) Quiz() quiz.Quiz {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.quiz
}

func (c *Controller) Items() []Item {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Item, len(c.items))
	for i, it := range c.items {
		out[i] = it.clone()
	}
	return out
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// AlreadySubmitted reports whether Load found an earlier submission.
func (c *Controller) AlreadySubmitted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.already
}

func (c *Controller) Attempt() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempt
}

func (c *Controller) Remaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

func (c *Controller) Result() (quiz.Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.result == nil {
		return quiz.Result{}, false
	}
	return *c.result, true
}

// Close stops the countdown and any pending navigation.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopTimerLocked()
	if c.navStop != nil {
		c.navStop()
		c.navStop = nil
	}
}
