package grading

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intp(i int) *int { return &i }

var capital = Q{
	Type:   TypeMultipleChoice,
	Points: 2,
	Options: []Choice{
		{Text: "Berlin"},
		{Text: "Paris", Correct: true},
		{Text: "Rome"},
	},
}

func TestChoiceByText(t *testing.T) {
	g := NewDefaultGrader()
	res, err := g.Grade(context.Background(), capital, Response{SelectedAnswer: "  paris. "})
	require.NoError(t, err)
	require.NotNil(t, res.Correct)
	assert.True(t, *res.Correct)
	assert.Equal(t, 2.0, res.AutoPoints)
	assert.Equal(t, 2.0, res.MaxPoints)
}

func TestChoiceTextWinsOverIndex(t *testing.T) {
	g := NewDefaultGrader()
	// index points at Berlin (a shuffled view), text says Paris
	res, err := g.Grade(context.Background(), capital, Response{SelectedIndex: intp(0), SelectedAnswer: "Paris"})
	require.NoError(t, err)
	assert.True(t, *res.Correct)
}

func TestChoiceFallsBackToIndex(t *testing.T) {
	g := NewDefaultGrader()
	res, err := g.Grade(context.Background(), capital, Response{SelectedIndex: intp(2)})
	require.NoError(t, err)
	assert.False(t, *res.Correct)
	assert.Zero(t, res.AutoPoints)

	_, err = g.Grade(context.Background(), capital, Response{SelectedIndex: intp(7)})
	assert.Error(t, err)
}

func TestChoiceExactText(t *testing.T) {
	g := NewDefaultGrader(WithExactText(true))
	res, err := g.Grade(context.Background(), capital, Response{SelectedAnswer: "paris"})
	require.NoError(t, err)
	assert.False(t, *res.Correct)
}

func TestChoiceUnanswered(t *testing.T) {
	res, err := NewDefaultGrader().Grade(context.Background(), capital, Response{})
	require.NoError(t, err)
	assert.False(t, *res.Correct)
	assert.False(t, res.NeedsManual)
}

func TestEssayNeedsManual(t *testing.T) {
	g := NewDefaultGrader()
	q := Q{Type: TypeEssay, Points: 10}

	res, err := g.Grade(context.Background(), q, Response{EssayText: "It depends."})
	require.NoError(t, err)
	assert.True(t, res.NeedsManual)
	assert.Nil(t, res.Correct)
	assert.Equal(t, 10.0, res.MaxPoints)

	res, err = g.Grade(context.Background(), q, Response{EssayText: "   "})
	require.NoError(t, err)
	assert.False(t, res.NeedsManual)
}

type fixedStrategy float64

func (f fixedStrategy) Grade(_ context.Context, q Q, _ Response) (Result, error) {
	return Result{AutoPoints: float64(f), MaxPoints: q.Points}, nil
}

func TestUnknownTypeAndCustomStrategy(t *testing.T) {
	q := Q{Type: "matching", Points: 3}
	res, err := NewDefaultGrader().Grade(context.Background(), q, Response{})
	require.NoError(t, err)
	assert.True(t, res.NeedsManual)

	res, err = NewDefaultGrader(WithStrategy("matching", fixedStrategy(1))).Grade(context.Background(), q, Response{})
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.AutoPoints)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "hello world", normalize("  Hello,   WORLD! "))
	assert.Equal(t, "", normalize("?!"))
}
