// Package sequential implements the Sequential Plan Orchestrator: a fixed,
// pre-built plan.Queue executed step by step with no inner decision loop,
// contrasting the adaptive package's turn-by-turn evaluation.
package sequential

import (
	"context"

	"goa.design/multiagent/registry"
	"goa.design/multiagent/state"
)

type (
	// Effect is the deferred (call, apply) pair for one queued step,
	// structurally identical to adaptive.Effect but folding into
	// SequentialPlanState instead of AdaptiveLoopState.
	Effect struct {
		AgentID string
		Request registry.InvokeRequest
		Apply   func(response string, s state.SequentialPlanState) state.SequentialPlanState
	}

	// Host is the set of callbacks the sequential plan orchestrator invokes.
	// Unlike adaptive.Host it has no EvaluateProgress: the plan is fixed up
	// front and execution simply drains the queue.
	Host interface {
		// CreatePlan returns a new state with RemainingSteps populated.
		CreatePlan(ctx context.Context, s state.SequentialPlanState, task string) (state.SequentialPlanState, error)

		// ExecuteStep builds the deferred effect for one agent invocation
		// drawn from the head of the queue (or a sub-step of a parallel
		// group at the head of the queue).
		ExecuteStep(ctx context.Context, s state.SequentialPlanState, agentID, instruction string) (Effect, error)

		// Summarize produces the final state; it must append a FINAL: line
		// to MessageHistory.
		Summarize(ctx context.Context, s state.SequentialPlanState) (state.SequentialPlanState, error)

		// HandleFailure returns the state to persist when the run fails.
		HandleFailure(ctx context.Context, s state.SequentialPlanState, reason string) (state.SequentialPlanState, error)
	}
)
