package quiz

import (
	"errors"
	"sort"

	"github.com/google/uuid"
)

// PersistedOption is an option as the backend stores it.
type PersistedOption struct {
	Text    string
	Correct bool
	Order   *int
}

// PersistedQuestion is a question as the backend stores it.
type PersistedQuestion struct {
	ID         string
	QuizID     string
	Text       string
	Type       Type
	Points     float64
	Options    []PersistedOption
	Attachment *FileRef
}

var ErrIndex = errors.New("question index out of range")

// Store holds the ordered questions of one quiz while it is being authored.
// It is not safe for concurrent use.
type Store struct {
	quizID   string
	quizType Type
	items    []Question
	current  int
	newID    func() string
}

func NewStore(quizID string, t Type) *Store {
	return &Store{
		quizID:   quizID,
		quizType: t,
		newID:    func() string { return "tmp-" + uuid.NewString() },
	}
}

func (s *Store) QuizID() string { return s.quizID }
func (s *Store) QuizType() Type { return s.quizType }

// CreateLocal returns a new unsaved question of the quiz's type.
func (s *Store) CreateLocal() Question {
	q := Question{
		TempID: s.newID(),
		QuizID: s.quizID,
		Type:   s.quizType,
		Points: DefaultPoints,
	}
	if q.Type == TypeMultipleChoice {
		q.Options = make([]string, MinOptionSlots)
		q.Correct = make([]bool, MinOptionSlots)
	}
	return q
}

// FromPersisted maps a backend question into local shape. Options are sorted
// by their order field, with a missing order counting as 0, and padded to
// MinOptionSlots.
func (s *Store) FromPersisted(p PersistedQuestion) Question {
	q := Question{
		ID:     p.ID,
		QuizID: p.QuizID,
		Text:   p.Text,
		Type:   p.Type,
		Points: p.Points,
	}
	if !q.Type.Valid() {
		q.Type = s.quizType
	}
	if q.QuizID == "" {
		q.QuizID = s.quizID
	}
	if p.Attachment != nil {
		a := *p.Attachment
		q.Attachment = &a
	}
	if q.Type != TypeMultipleChoice {
		return q
	}
	opts := append([]PersistedOption(nil), p.Options...)
	sort.SliceStable(opts, func(i, j int) bool { return orderOf(opts[i]) < orderOf(opts[j]) })
	for _, o := range opts {
		q.Options = append(q.Options, o.Text)
		q.Correct = append(q.Correct, o.Correct)
	}
	for len(q.Options) < MinOptionSlots {
		q.Options = append(q.Options, "")
		q.Correct = append(q.Correct, false)
	}
	return q
}

func orderOf(o PersistedOption) int {
	if o.Order == nil {
		return 0
	}
	return *o.Order
}

// ToPersisted builds the payload for a save. Incomplete questions are sent
// as they are: empty option text stays empty and unset flags are false.
func ToPersisted(q Question) PersistedQuestion {
	p := PersistedQuestion{
		ID:     q.ID,
		QuizID: q.QuizID,
		Text:   q.Text,
		Type:   q.Type,
		Points: q.Points,
	}
	if p.Points <= 0 {
		p.Points = DefaultPoints
	}
	if q.Attachment != nil {
		a := *q.Attachment
		p.Attachment = &a
	}
	if q.Type == TypeMultipleChoice {
		for i, text := range q.Options {
			order := i
			correct := i < len(q.Correct) && q.Correct[i]
			p.Options = append(p.Options, PersistedOption{Text: text, Correct: correct, Order: &order})
		}
	}
	return p
}

func (s *Store) Len() int { return len(s.items) }

func (s *Store) At(i int) (Question, error) {
	if i < 0 || i >= len(s.items) {
		return Question{}, ErrIndex
	}
	return s.items[i].Clone(), nil
}

func (s *Store) Put(i int, q Question) error {
	if i < 0 || i >= len(s.items) {
		return ErrIndex
	}
	s.items[i] = q.Clone()
	return nil
}

// Append adds q at the end and returns its index.
func (s *Store) Append(q Question) int {
	s.items = append(s.items, q.Clone())
	return len(s.items) - 1
}

func (s *Store) Remove(i int) error {
	if i < 0 || i >= len(s.items) {
		return ErrIndex
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
	return nil
}

// IndexOf finds a question by persisted or temporary id.
func (s *Store) IndexOf(key string) int {
	for i, q := range s.items {
		if q.ID == key || q.TempID == key {
			return i
		}
	}
	return -1
}

// AssignID records the id the backend gave to a locally created question.
func (s *Store) AssignID(tempID, id string) bool {
	for i := range s.items {
		if s.items[i].ID == "" && s.items[i].TempID == tempID {
			s.items[i].ID = id
			return true
		}
	}
	return false
}

func (s *Store) Items() []Question {
	out := make([]Question, len(s.items))
	for i, q := range s.items {
		out[i] = q.Clone()
	}
	return out
}

func (s *Store) Reset(items []Question) {
	s.items = s.items[:0]
	for _, q := range items {
		s.items = append(s.items, q.Clone())
	}
	s.current = 0
}

func (s *Store) Current() int { return s.current }

func (s *Store) SetCurrent(i int) error {
	if i < 0 || i >= len(s.items) {
		return ErrIndex
	}
	s.current = i
	return nil
}
