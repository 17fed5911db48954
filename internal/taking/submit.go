package taking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mind-engage/mindengage-exams/internal/notify"
	"github.com/mind-engage/mindengage-exams/internal/quiz"
)

// UploadError names the essay file whose upload aborted a submission.
type UploadError struct {
	Name string
	Err  error
}

func (e *UploadError) Error() string { return fmt.Sprintf("upload %s: %v", e.Name, e.Err) }
func (e *UploadError) Unwrap() error { return e.Err }

// Submit hands the attempt in. Only one submission runs at a time; a second
// call while one is in flight returns ErrAlreadySubmitting without touching
// the network.
func (c *Controller) Submit(ctx context.Context) error {
	return c.submit(ctx)
}

func (c *Controller) submit(ctx context.Context) error {
	if !c.submitting.CompareAndSwap(false, true) {
		return ErrAlreadySubmitting
	}

	c.mu.Lock()
	if c.state != InProgress {
		c.mu.Unlock()
		c.submitting.Store(false)
		return ErrNotInProgress
	}
	c.stopTimerLocked()
	quizID := c.quiz.ID
	items := make([]Item, len(c.items))
	for i, it := range c.items {
		items[i] = it.clone()
	}
	answers := make(map[string]quiz.Answer, len(c.answers))
	for k, v := range c.answers {
		answers[k] = v
	}
	elapsed := c.now().Sub(c.startedAt)
	c.mu.Unlock()

	files, err := c.uploadFiles(ctx, quizID, answers)
	if err != nil {
		c.logger.Printf("submit %s: %v", quizID, err)
		var name string
		var ue *UploadError
		if errors.As(err, &ue) {
			name = ue.Name
		}
		c.tell(notify.Error, notify.KeyUploadFailed, name)
		c.submitting.Store(false)
		return err
	}

	out, err := c.api.Submit(ctx, buildSubmission(quizID, items, answers, files, elapsed))
	if err != nil {
		c.logger.Printf("submit %s: %v", quizID, err)
		c.tell(notify.Error, notify.KeySubmitFailed, notify.MessageFor(err, c.locale))
		c.submitting.Store(false)
		return err
	}

	c.mu.Lock()
	c.state = Completed
	r := out.Result
	c.result = &r
	if out.AttemptCount > 0 {
		c.attempt = out.AttemptCount
	}
	c.navStop = c.afterFunc(c.resultDelay, func() { c.nav.Navigate(ResultRoute(quizID)) })
	c.mu.Unlock()

	c.tell(notify.Success, notify.KeySubmitted)
	return nil
}

// uploadFiles sends every picked essay file concurrently. The first failure
// cancels the rest.
func (c *Controller) uploadFiles(ctx context.Context, quizID string, answers map[string]quiz.Answer) (map[string]quiz.FileRef, error) {
	refs := make(map[string]quiz.FileRef)
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for id, a := range answers {
		ea, ok := a.(quiz.EssayAnswer)
		if !ok || ea.Kind != quiz.EssayFile || ea.File == nil {
			continue
		}
		id, up := id, *ea.File
		g.Go(func() error {
			rc, err := up.Open()
			if err != nil {
				return &UploadError{Name: up.Name, Err: err}
			}
			defer rc.Close()
			ref, err := c.api.UploadAnswerFile(gctx, quizID, up.Name, rc)
			if err != nil {
				return &UploadError{Name: up.Name, Err: err}
			}
			mu.Lock()
			refs[id] = ref
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return refs, nil
}

// buildSubmission assembles answers in display order. Multiple-choice
// answers carry both the option's backend-order index and its text.
func buildSubmission(quizID string, items []Item, answers map[string]quiz.Answer, files map[string]quiz.FileRef, elapsed time.Duration) quiz.Submission {
	s := quiz.Submission{QuizID: quizID, TimeSpent: elapsed}
	for _, it := range items {
		switch a := answers[it.ID].(type) {
		case quiz.ChoiceAnswer:
			orig, ok := it.OriginalIndex(a.Index)
			if !ok {
				continue
			}
			s.Answers = append(s.Answers, quiz.SubmittedAnswer{
				QuestionID:     it.ID,
				SelectedIndex:  &orig,
				SelectedAnswer: it.Options[a.Index],
			})
		case quiz.EssayAnswer:
			sa := quiz.SubmittedAnswer{QuestionID: it.ID}
			switch a.Kind {
			case quiz.EssayText:
				sa.EssayText = a.Text
			case quiz.EssayLink:
				sa.EssayLink = a.Link
			case quiz.EssayFile:
				ref, ok := files[it.ID]
				if !ok {
					continue
				}
				sa.FileName, sa.FileURL = ref.Name, ref.URL
			default:
				continue
			}
			s.Answers = append(s.Answers, sa)
		}
	}
	return s
}

// Retake resets a completed attempt and reloads the quiz, reshuffling
// options when the quiz asks for it.
func (c *Controller) Retake(ctx context.Context) error {
	c.mu.Lock()
	if c.answers == nil {
		c.mu.Unlock()
		return ErrNotLoaded
	}
	if !c.quiz.Flags.AllowMultipleAttempts {
		c.mu.Unlock()
		c.tell(notify.Warning, notify.KeyRetakeNotAllowed)
		return ErrRetakeNotAllowed
	}
	if c.state != Completed {
		c.mu.Unlock()
		return ErrNotStartable
	}
	quizID := c.quiz.ID
	c.stopTimerLocked()
	c.mu.Unlock()

	q, persisted, err := c.api.QuizWithQuestions(ctx, quizID)
	if err != nil {
		c.logger.Printf("reload quiz %s: %v", quizID, err)
		c.fail(err)
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	attempt := c.attempt + 1
	c.resetLocked(q, persisted)
	c.attempt = attempt
	return nil
}

// FetchResult loads the graded detail of the latest attempt.
func (c *Controller) FetchResult(ctx context.Context) (quiz.ResultDetail, error) {
	quizID := c.QuizID()
	if quizID == "" {
		return quiz.ResultDetail{}, ErrNotLoaded
	}
	d, err := c.api.Result(ctx, quizID)
	if err != nil {
		c.logger.Printf("result %s: %v", quizID, err)
		c.fail(err)
		return quiz.ResultDetail{}, err
	}
	return d, nil
}
