// Package adaptive implements the Adaptive Loop Orchestrator: an outer
// planning phase and an inner turn-by-turn decision loop, realized as
// orchestrator methods (gatherFacts, createPlan, innerLoop, replan,
// complete) rather than a self-referential generic workflow base class. The
// host callbacks and agent invocations those steps make run as activities
// dispatched by string name over an engine.Engine.
package adaptive

import (
	"context"

	"goa.design/multiagent/evaluation"
	"goa.design/multiagent/registry"
	"goa.design/multiagent/state"
)

type (
	// Effect is a deferred (call, apply) pair: Request
	// describes the agent invocation to schedule, and Apply folds the
	// eventual response into state once it arrives. Building an Effect must
	// not itself perform the invocation — that happens later, concurrently,
	// via the orchestrator's parallel execution primitive.
	Effect struct {
		AgentID string
		Request registry.InvokeRequest
		Apply   func(response string, s state.AdaptiveLoopState) state.AdaptiveLoopState

		// Cost is the amount this invocation adds to the run's
		// state.Budget.CurrentSpent. A host that doesn't track cost leaves
		// this zero, which is a no-op against the budget gate.
		Cost float64
	}

	// Host is the set of callbacks the application supplies for
	// the adaptive loop. Every method may perform I/O (LLM calls, external
	// lookups) and is therefore invoked from an activity, not directly from
	// workflow code.
	Host interface {
		// GatherFacts returns a new state with Facts populated.
		GatherFacts(ctx context.Context, s state.AdaptiveLoopState, task string) (state.AdaptiveLoopState, error)

		// CreatePlan returns a new state with Plan populated.
		CreatePlan(ctx context.Context, s state.AdaptiveLoopState, task string) (state.AdaptiveLoopState, error)

		// EvaluateProgress is invoked once per turn by innerLoop and must
		// return one of evaluation.Evaluation's five variants.
		EvaluateProgress(ctx context.Context, s state.AdaptiveLoopState, turn int) (evaluation.Evaluation, error)

		// ExecuteAgent builds the deferred effect for one agent call. It
		// must not perform the invocation itself — only decide what request
		// to send and how to later fold the response into state.
		ExecuteAgent(ctx context.Context, s state.AdaptiveLoopState, agentID, instruction string) (Effect, error)

		// Summarize produces the final state: it must append a FINAL: line
		// to MessageHistory.
		Summarize(ctx context.Context, s state.AdaptiveLoopState) (state.AdaptiveLoopState, error)

		// HandleFailure returns the state to persist when the run fails.
		HandleFailure(ctx context.Context, s state.AdaptiveLoopState, reason string) (state.AdaptiveLoopState, error)
	}

	// Replanner is an optional extension of Host. When a Host implements it,
	// replan calls UpdatePlan directly instead of the default
	// gatherFacts-then-createPlan sequence.
	Replanner interface {
		UpdatePlan(ctx context.Context, s state.AdaptiveLoopState, task string) (state.AdaptiveLoopState, error)
	}
)
