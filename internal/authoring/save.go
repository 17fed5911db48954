package authoring

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/mind-engage/mindengage-exams/internal/notify"
	"github.com/mind-engage/mindengage-exams/internal/quiz"
)

// SaveSummary reports what SaveAll did.
type SaveSummary struct {
	Created    int // new questions the backend accepted
	Updated    int
	Failed     int
	Incomplete int // new questions left local because they are not complete
	Removed    int // blank questions dropped from the list
}

func (c *Controller) persist(ctx context.Context, q quiz.Question) (quiz.PersistedQuestion, error) {
	p := quiz.ToPersisted(q)
	if q.Persisted() {
		return c.api.UpdateQuestion(ctx, q.ID, p)
	}
	return c.api.CreateQuestion(ctx, p)
}

// settle writes the draft back to the list and saves it when it has text.
// A failed save is reported but does not block the caller.
func (c *Controller) settle(ctx context.Context) error {
	c.mu.Lock()
	if c.store == nil {
		c.mu.Unlock()
		return ErrNoQuiz
	}
	if c.slot == SlotSaving {
		c.mu.Unlock()
		return ErrSaveInFlight
	}
	idx := c.store.Current()
	draft := c.draft.Clone()
	if draft.Blank() {
		c.slot = SlotReady
		c.mu.Unlock()
		return nil
	}
	_ = c.store.Put(idx, draft)
	c.slot = SlotSaving
	c.mu.Unlock()

	saved, err := c.persist(ctx, draft)

	c.mu.Lock()
	if err == nil && !draft.Persisted() && saved.ID != "" {
		c.store.AssignID(draft.TempID, saved.ID)
		if c.draft.TempID == draft.TempID {
			c.draft.ID = saved.ID
		}
	}
	c.slot = SlotReady
	c.mu.Unlock()

	if err != nil {
		c.logger.Printf("save question %d: %v", idx+1, err)
		c.tell(notify.Warning, notify.KeyQuestionSaveFailed, idx+1)
	}
	return nil
}

// AddQuestion saves the question being edited and opens a new blank one at
// the end of the list. Essay quizzes refuse.
func (c *Controller) AddQuestion(ctx context.Context) error {
	c.mu.Lock()
	if c.store == nil {
		c.mu.Unlock()
		return ErrNoQuiz
	}
	essay := c.quiz.Type == quiz.TypeEssay && c.store.Len() >= 1
	c.mu.Unlock()
	if essay {
		c.tell(notify.Warning, notify.KeyEssaySingle)
		return quiz.ErrEssaySingleQuestion
	}

	if err := c.settle(ctx); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	q := c.store.CreateLocal()
	idx := c.store.Append(q)
	_ = c.store.SetCurrent(idx)
	c.draft = q
	c.slot = SlotReady
	return nil
}

// SwitchTo saves the question being edited and opens the one at index.
// Persisted questions are refetched; when that fails the local copy is used.
func (c *Controller) SwitchTo(ctx context.Context, index int) error {
	c.mu.Lock()
	if c.store == nil {
		c.mu.Unlock()
		return ErrNoQuiz
	}
	if index < 0 || index >= c.store.Len() {
		c.mu.Unlock()
		return quiz.ErrIndex
	}
	same := index == c.store.Current()
	c.mu.Unlock()
	if same {
		return nil
	}

	if err := c.settle(ctx); err != nil {
		return err
	}

	c.mu.Lock()
	_ = c.store.SetCurrent(index)
	target, _ := c.store.At(index)
	c.draft = target
	c.slot = SlotReady
	c.mu.Unlock()

	if !target.Persisted() {
		return nil
	}
	fresh, err := c.api.GetQuestion(ctx, target.ID)
	if err != nil {
		c.logger.Printf("refresh question %s: %v", target.ID, err)
		c.tell(notify.Warning, notify.KeyQuestionStale)
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// The user may have moved on or started typing meanwhile.
	if c.store.Current() != index || c.slot != SlotReady || c.draft.ID != target.ID {
		return nil
	}
	q := c.store.FromPersisted(fresh)
	q.TempID = target.TempID
	_ = c.store.Put(index, q)
	c.draft = q
	return nil
}

// DeleteQuestion removes the question at index, deleting it on the backend
// first when it was persisted. A failed remote delete is reported and the
// question is removed locally anyway.
func (c *Controller) DeleteQuestion(ctx context.Context, index int) error {
	c.mu.Lock()
	if c.store == nil {
		c.mu.Unlock()
		return ErrNoQuiz
	}
	if c.quiz.Type == quiz.TypeEssay {
		c.mu.Unlock()
		c.tell(notify.Warning, notify.KeyEssaySingle)
		return quiz.ErrEssaySingleQuestion
	}
	if c.slot == SlotSaving {
		c.mu.Unlock()
		return ErrSaveInFlight
	}
	target, err := c.store.At(index)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	if cur := c.store.Current(); cur != index && !c.draft.Blank() {
		_ = c.store.Put(cur, c.draft)
	}
	c.slot = SlotSaving
	c.mu.Unlock()

	if target.Persisted() {
		if err := c.api.DeleteQuestion(ctx, target.ID); err != nil {
			c.logger.Printf("delete question %s: %v", target.ID, err)
			c.tell(notify.Warning, notify.KeyQuestionDeleteFail)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.store.IndexOf(target.Key()); i >= 0 {
		_ = c.store.Remove(i)
	}
	if c.store.Len() == 0 {
		c.store.Append(c.store.CreateLocal())
	}
	cur := c.store.Current()
	if cur > c.store.Len()-1 {
		cur = c.store.Len() - 1
	}
	_ = c.store.SetCurrent(cur)
	c.draft, _ = c.store.At(cur)
	c.slot = SlotReady
	return nil
}

type saveOp struct {
	pos int
	q   quiz.Question
}

// SaveAll folds the draft into the list, drops blank questions, creates every
// complete new question and updates every persisted one. The saves run
// concurrently; once all have settled one success message is shown and the
// user is sent back to the course's quiz list. Individual failures are
// logged and counted, not surfaced one by one.
func (c *Controller) SaveAll(ctx context.Context) (SaveSummary, error) {
	var sum SaveSummary

	c.mu.Lock()
	if c.store == nil {
		c.mu.Unlock()
		return sum, ErrNoQuiz
	}
	if c.slot == SlotSaving {
		c.mu.Unlock()
		return sum, ErrSaveInFlight
	}
	if !c.draft.Blank() {
		_ = c.store.Put(c.store.Current(), c.draft)
	}
	currentKey := c.draft.Key()

	var kept []quiz.Question
	var ops []saveOp
	for _, q := range c.store.Items() {
		if q.Blank() {
			sum.Removed++
			continue
		}
		kept = append(kept, q)
		switch {
		case q.Persisted():
			ops = append(ops, saveOp{pos: len(kept), q: q})
		case q.Complete():
			ops = append(ops, saveOp{pos: len(kept), q: q})
		default:
			sum.Incomplete++
		}
	}
	if len(kept) == 0 {
		kept = append(kept, c.store.CreateLocal())
	}
	c.store.Reset(kept)
	if i := c.store.IndexOf(currentKey); i >= 0 {
		_ = c.store.SetCurrent(i)
	}
	c.draft, _ = c.store.At(c.store.Current())
	c.slot = SlotSaving
	courseID := c.quiz.CourseID
	c.mu.Unlock()

	total := int32(len(ops))
	var settled atomic.Int32
	finish := func() {
		if sum.Incomplete > 0 {
			c.tell(notify.Warning, notify.KeyQuestionIncomplete, sum.Incomplete)
		}
		c.tell(notify.Success, notify.KeyQuestionsSaved)
		c.nav.Navigate(CourseQuizzesRoute(courseID))
	}

	var wg sync.WaitGroup
	var resMu sync.Mutex
	for _, op := range ops {
		wg.Add(1)
		go func(op saveOp) {
			defer wg.Done()
			saved, err := c.persist(ctx, op.q)

			resMu.Lock()
			switch {
			case err != nil:
				sum.Failed++
				c.logger.Printf("save question %d: %v", op.pos, err)
			case op.q.Persisted():
				sum.Updated++
			default:
				sum.Created++
			}
			resMu.Unlock()

			if err == nil && !op.q.Persisted() && saved.ID != "" {
				c.mu.Lock()
				c.store.AssignID(op.q.TempID, saved.ID)
				c.mu.Unlock()
			}
			if settled.Add(1) == total {
				finish()
			}
		}(op)
	}
	if total == 0 {
		finish()
	}
	wg.Wait()

	c.mu.Lock()
	c.draft, _ = c.store.At(c.store.Current())
	c.slot = SlotReady
	c.mu.Unlock()
	return sum, nil
}
