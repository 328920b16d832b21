package plan

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOf(t *testing.T) {
	s := Of("weather-agent", "check the forecast")
	require.Equal(t, Sequential, s.Kind)
	require.Equal(t, "weather-agent", s.AgentID)
	require.Equal(t, "check the forecast", s.Instruction)
}

func TestGroup(t *testing.T) {
	a := Of("a", "do a")
	b := Of("b", "do b")

	g, err := Group(a, b)
	require.NoError(t, err)
	require.True(t, g.IsParallel())
	require.Equal(t, []Step{a, b}, g.Steps)
}

func TestGroupRejectsEmpty(t *testing.T) {
	_, err := Group()
	require.ErrorIs(t, err, ErrEmptyParallel)
}

func TestGroupRejectsNesting(t *testing.T) {
	inner, err := Group(Of("a", "do a"))
	require.NoError(t, err)

	_, err = Group(inner, Of("b", "do b"))
	require.ErrorIs(t, err, ErrNestedParallel)
}

func TestQueue(t *testing.T) {
	q := NewQueue(Of("a", "1"), Of("b", "2"), Of("c", "3"))
	require.True(t, q.HasMoreSteps())
	require.Equal(t, 3, q.Len())

	head, ok := q.NextStep()
	require.True(t, ok)
	require.Equal(t, "a", head.AgentID)

	q2 := q.RemoveFirstStep()
	require.Equal(t, 2, q2.Len())
	require.Equal(t, 3, q.Len(), "RemoveFirstStep must not mutate the receiver")

	head2, ok := q2.NextStep()
	require.True(t, ok)
	require.Equal(t, "b", head2.AgentID)
}

func TestQueueDrain(t *testing.T) {
	q := NewQueue(Of("a", "1"))
	q = q.RemoveFirstStep()
	require.False(t, q.HasMoreSteps())
	_, ok := q.NextStep()
	require.False(t, ok)

	// Removing from an already-empty queue is a no-op, not a panic.
	q = q.RemoveFirstStep()
	require.Equal(t, 0, q.Len())
}
