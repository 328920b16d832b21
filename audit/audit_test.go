package audit

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAppendAndLastFinal(t *testing.T) {
	var history []string
	history = Append(history, TaskLedger, "visit Madrid")
	history = Append(history, Orchestrator, AgentLine("weather-agent", "sunny"))
	history = Append(history, CompletePrefix, "task satisfied")
	history = Append(history, Final, "Bring sunscreen and visit the Prado.")

	answer, ok := LastFinal(history)
	require.True(t, ok)
	require.Equal(t, "Bring sunscreen and visit the Prado.", answer)
}

func TestLastFinalMissing(t *testing.T) {
	_, ok := LastFinal([]string{TaskLedger + " x"})
	require.False(t, ok)
}

func TestLastFinalPicksLastOccurrence(t *testing.T) {
	history := []string{Final + " first", Orchestrator + " noise", Final + " second"}
	answer, ok := LastFinal(history)
	require.True(t, ok)
	require.Equal(t, "second", answer)
}
