package grading

import (
	"context"
	"errors"
	"strings"
)

// Question types understood by the default grader.
const (
	TypeMultipleChoice = "multiple_choice"
	TypeEssay          = "essay"
)

// Q is a minimal view of a question needed for grading.
type Q struct {
	Type    string
	Points  float64
	Options []Choice // in backend order
}

type Choice struct {
	Text    string
	Correct bool
}

// Response is one submitted answer. For multiple-choice the selected text
// wins over the index when both are present.
type Response struct {
	SelectedIndex  *int
	SelectedAnswer string
	EssayText      string
	EssayLink      string
	FileName       string
}

// Empty reports whether nothing was answered.
func (r Response) Empty() bool {
	return r.SelectedIndex == nil && r.SelectedAnswer == "" &&
		strings.TrimSpace(r.EssayText) == "" && r.EssayLink == "" && r.FileName == ""
}

// Result is the outcome of grading a single question response.
type Result struct {
	AutoPoints  float64 // points awarded automatically
	MaxPoints   float64 // the question's max points
	Correct     *bool   // nil when the answer needs a human
	NeedsManual bool
	Feedback    []string
}

// Strategy grades a single question.
type Strategy interface {
	Grade(ctx context.Context, q Q, r Response) (Result, error)
}

// Grader routes by question type to the correct Strategy.
type Grader interface {
	Grade(ctx context.Context, q Q, r Response) (Result, error)
}

type defaultGrader struct {
	strategies map[string]Strategy
}

func (g *defaultGrader) Grade(ctx context.Context, q Q, r Response) (Result, error) {
	s, ok := g.strategies[q.Type]
	if !ok {
		return Result{MaxPoints: q.Points, NeedsManual: true, Feedback: []string{"no strategy available"}}, nil
	}
	return s.Grade(ctx, q, r)
}

// Engine options

type Option func(*config)

type config struct {
	ExactText bool // compare selected text byte for byte
	Extra     map[string]Strategy
}

func WithExactText(b bool) Option { return func(c *config) { c.ExactText = b } }

// WithStrategy installs or replaces the strategy for a question type.
func WithStrategy(typ string, s Strategy) Option {
	return func(c *config) {
		if c.Extra == nil {
			c.Extra = map[string]Strategy{}
		}
		c.Extra[typ] = s
	}
}

// NewDefaultGrader installs built-in strategies.
func NewDefaultGrader(opts ...Option) Grader {
	cfg := &config{}
	for _, o := range opts {
		o(cfg)
	}
	g := &defaultGrader{
		strategies: map[string]Strategy{
			TypeMultipleChoice: choiceStrategy{exact: cfg.ExactText},
			TypeEssay:          essayStrategy{},
		},
	}
	for k, s := range cfg.Extra {
		g.strategies[k] = s
	}
	return g
}

// --- Strategies ---

type choiceStrategy struct{ exact bool }

func (s choiceStrategy) Grade(_ context.Context, q Q, r Response) (Result, error) {
	res := Result{MaxPoints: q.Points}
	wrong := false
	res.Correct = &wrong

	picked := -1
	if r.SelectedAnswer != "" {
		want := s.key(r.SelectedAnswer)
		for i, o := range q.Options {
			if s.key(o.Text) == want {
				picked = i
				break
			}
		}
	}
	if picked < 0 && r.SelectedIndex != nil {
		picked = *r.SelectedIndex
	}
	if picked < 0 {
		return res, nil
	}
	if picked >= len(q.Options) {
		return res, errors.New("selected option out of range")
	}
	if q.Options[picked].Correct {
		ok := true
		res.Correct = &ok
		res.AutoPoints = q.Points
	}
	return res, nil
}

func (s choiceStrategy) key(text string) string {
	if s.exact {
		return text
	}
	return normalize(text)
}

type essayStrategy struct{}

func (essayStrategy) Grade(_ context.Context, q Q, r Response) (Result, error) {
	if r.Empty() {
		return Result{MaxPoints: q.Points, Feedback: []string{"no answer"}}, nil
	}
	return Result{MaxPoints: q.Points, NeedsManual: true, Feedback: []string{"manual grading required"}}, nil
}
