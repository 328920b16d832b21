// Package state implements the data model shared by both orchestrators: the
// adaptive loop's turn-by-turn state, the sequential plan's step queue, and
// the host-level wrapper that carries either one plus status/budget fields.
package state

import (
	"errors"
	"time"

	"goa.design/multiagent/evaluation"
	"goa.design/multiagent/plan"
)

// ErrGuardViolation is the sentinel wrapped by every GuardError, so callers
// can test for any guard failure with errors.Is(err, state.ErrGuardViolation)
// without matching on the specific reason string.
var ErrGuardViolation = errors.New("state: guard violation")

// GuardError reports a violated invariant of the "Guard violation" error
// class: turnCount > maxTurns, replanCount > maxReplans,
// len(remainingSteps) > maxSteps, or an empty plan. These are immediate,
// non-retried failures.
type GuardError struct {
	Reason string
}

func (e *GuardError) Error() string { return e.Reason }

// Unwrap lets errors.Is(err, ErrGuardViolation) succeed for any GuardError.
func (e *GuardError) Unwrap() error { return ErrGuardViolation }

// Status is the host workflow's lifecycle status.
type Status int

const (
	Started Status = iota
	Executing
	Completed
	Failed
	Stopped
	Paused
)

func (s Status) String() string {
	switch s {
	case Started:
		return "STARTED"
	case Executing:
		return "EXECUTING"
	case Completed:
		return "COMPLETED"
	case Failed:
		return "FAILED"
	case Stopped:
		return "STOPPED"
	case Paused:
		return "PAUSED"
	default:
		return "UNKNOWN"
	}
}

// Budget tracks an optional cost ceiling. The adaptive loop adds each
// effect's reported cost to CurrentSpent and pauses for approval once the
// limit is exceeded; the sequential orchestrator fails with a GuardError
// instead.
type Budget struct {
	BudgetLimit  float64
	CurrentSpent float64
}

// Exceeded reports whether spending has crossed a configured limit. A
// zero-valued BudgetLimit means "no limit" and is never exceeded.
func (b Budget) Exceeded() bool {
	return b.BudgetLimit > 0 && b.CurrentSpent > b.BudgetLimit
}

// PendingApproval records an in-flight HITL pause. It is non-nil on a
// HostState exactly when the workflow is paused awaiting approve().
type PendingApproval struct {
	Evaluation evaluation.Evaluation
	ApprovalID string
	Timestamp  time.Time
}

// AdaptiveLoopState is the per-instance state the adaptive loop orchestrator
// reads and replaces at every step. Values are never mutated in place —
// every transition in package adaptive returns a new AdaptiveLoopState.
type AdaptiveLoopState struct {
	Facts          string
	Plan           string
	MessageHistory []string
	AgentResponses map[string]string
	StallCount     int
	TurnCount      int
	ReplanCount    int
	PendingExecution *plan.Step
	PendingApproval  *PendingApproval
}

// NewAdaptiveLoopState returns the zero-value starting state for a fresh
// adaptive loop run.
func NewAdaptiveLoopState() AdaptiveLoopState {
	return AdaptiveLoopState{AgentResponses: map[string]string{}}
}

// Clone returns a deep-enough copy so a caller can build a modified state
// without aliasing the receiver's slice/map backing arrays.
func (s AdaptiveLoopState) Clone() AdaptiveLoopState {
	out := s
	out.MessageHistory = append([]string(nil), s.MessageHistory...)
	out.AgentResponses = make(map[string]string, len(s.AgentResponses))
	for k, v := range s.AgentResponses {
		out.AgentResponses[k] = v
	}
	if s.PendingExecution != nil {
		step := *s.PendingExecution
		out.PendingExecution = &step
	}
	if s.PendingApproval != nil {
		pa := *s.PendingApproval
		out.PendingApproval = &pa
	}
	return out
}

// AppendHistory returns a new state with line appended to MessageHistory.
func (s AdaptiveLoopState) AppendHistory(line string) AdaptiveLoopState {
	out := s.Clone()
	out.MessageHistory = append(out.MessageHistory, line)
	return out
}

// Replan implements the replan-reset invariant: stallCount,
// messageHistory, agentResponses, pendingExecution and pendingApproval are
// cleared; replanCount is incremented; turnCount, facts and plan carry
// forward untouched (the caller updates facts/plan afterward via the
// gatherFacts/createPlan host callbacks).
func (s AdaptiveLoopState) Replan() AdaptiveLoopState {
	out := s.Clone()
	out.StallCount = 0
	out.MessageHistory = nil
	out.AgentResponses = map[string]string{}
	out.PendingExecution = nil
	out.PendingApproval = nil
	out.ReplanCount++
	return out
}

// SequentialPlanState is the per-instance state the sequential plan
// orchestrator reads and replaces at every step.
type SequentialPlanState struct {
	RemainingSteps plan.Queue
	AgentResponses map[string]string
	MessageHistory []string
}

// NewSequentialPlanState returns the zero-value starting state for a fresh
// sequential plan run.
func NewSequentialPlanState() SequentialPlanState {
	return SequentialPlanState{AgentResponses: map[string]string{}}
}

// AppendHistory returns a new state with line appended to MessageHistory.
func (s SequentialPlanState) AppendHistory(line string) SequentialPlanState {
	out := s
	out.MessageHistory = append(append([]string(nil), s.MessageHistory...), line)
	out.AgentResponses = make(map[string]string, len(s.AgentResponses))
	for k, v := range s.AgentResponses {
		out.AgentResponses[k] = v
	}
	return out
}

// HostState is the application-level envelope persisted by the workflow
// substrate: it carries exactly one of the two loop states plus the fields
// common to both (task, session, status, budget, options).
type HostState struct {
	Task      string
	SessionID string
	Status    Status
	Budget    Budget

	// Options carries the free-form payload from start's options field
	// through to every host callback.
	Options map[string]any

	Adaptive   *AdaptiveLoopState
	Sequential *SequentialPlanState
}
