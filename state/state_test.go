package state

import (
	"testing"

	"github.com/stretchr/testify/require"

	"goa.design/multiagent/plan"
)

func TestReplanResetsTransientFieldsOnly(t *testing.T) {
	step := plan.Of("a", "do it")
	s := AdaptiveLoopState{
		Facts:            "facts so far",
		Plan:             "the plan",
		MessageHistory:   []string{"TASK_LEDGER: x", "weather-agent: sunny"},
		AgentResponses:   map[string]string{"weather-agent": "sunny"},
		StallCount:       3,
		TurnCount:        5,
		ReplanCount:      0,
		PendingExecution: &step,
		PendingApproval:  &PendingApproval{ApprovalID: "abc"},
	}

	out := s.Replan()

	require.Equal(t, 0, out.StallCount)
	require.Empty(t, out.MessageHistory)
	require.Empty(t, out.AgentResponses)
	require.Nil(t, out.PendingExecution)
	require.Nil(t, out.PendingApproval)
	require.Equal(t, 1, out.ReplanCount)

	// Carried forward untouched.
	require.Equal(t, "facts so far", out.Facts)
	require.Equal(t, "the plan", out.Plan)
	require.Equal(t, 5, out.TurnCount)

	// Original is untouched (no in-place mutation).
	require.Equal(t, 3, s.StallCount)
	require.Len(t, s.MessageHistory, 2)
}

func TestAppendHistoryDoesNotAliasOriginal(t *testing.T) {
	s := NewAdaptiveLoopState().AppendHistory("TASK_LEDGER: a")
	s2 := s.AppendHistory("ORCHESTRATOR: b")

	require.Equal(t, []string{"TASK_LEDGER: a"}, s.MessageHistory)
	require.Equal(t, []string{"TASK_LEDGER: a", "ORCHESTRATOR: b"}, s2.MessageHistory)
}

func TestBudgetExceeded(t *testing.T) {
	require.False(t, Budget{}.Exceeded())
	require.False(t, Budget{BudgetLimit: 10, CurrentSpent: 10}.Exceeded())
	require.True(t, Budget{BudgetLimit: 10, CurrentSpent: 10.01}.Exceeded())
}

func TestGuardErrorUnwraps(t *testing.T) {
	err := &GuardError{Reason: "Maximum turns reached"}
	require.ErrorIs(t, err, ErrGuardViolation)
	require.Equal(t, "Maximum turns reached", err.Error())
}
