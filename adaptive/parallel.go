package adaptive

import (
	"context"
	"fmt"

	"goa.design/multiagent/engine"
	"goa.design/multiagent/state"
)

// runEffects is the parallel execution primitive: it
// schedules every effect concurrently via ExecuteActivityAsync (giving
// bounded in-flight execution equal to len(effects), matching a parallel
// plan.Step group's own width), then folds Apply calls serially in
// submission order — not completion order — so state transitions stay
// deterministic across replay regardless of which agent answers first.
//
// A single agent's failure fails the whole step: no partial Apply is folded
// into the returned state.
func runEffects(ctx context.Context, wfCtx engine.WorkflowContext, effects []Effect, s state.AdaptiveLoopState) (state.AdaptiveLoopState, error) {
	if len(effects) == 0 {
		return s, nil
	}
	if len(effects) == 1 {
		return runSingleEffect(ctx, wfCtx, effects[0], s)
	}

	futures := make([]engine.Future, len(effects))
	for i, eff := range effects {
		fut, err := wfCtx.ExecuteActivityAsync(ctx, engine.ActivityRequest{
			Name:  ActivityInvokeAgent,
			Input: invokeAgentInput{AgentID: eff.AgentID, Request: eff.Request},
		})
		if err != nil {
			return s, fmt.Errorf("adaptive: schedule agent %s: %w", eff.AgentID, err)
		}
		futures[i] = fut
	}

	responses := make([]string, len(effects))
	for i, fut := range futures {
		var response string
		if err := fut.Get(ctx, &response); err != nil {
			return s, fmt.Errorf("adaptive: agent %s: %w", effects[i].AgentID, err)
		}
		responses[i] = response
	}

	out := s
	for i, eff := range effects {
		out = eff.Apply(responses[i], out)
	}
	return out, nil
}

// runSingleEffect skips the async/future machinery for the common
// single-agent case, calling the activity synchronously through
// ExecuteActivity.
func runSingleEffect(ctx context.Context, wfCtx engine.WorkflowContext, eff Effect, s state.AdaptiveLoopState) (state.AdaptiveLoopState, error) {
	var response string
	if err := wfCtx.ExecuteActivity(ctx, engine.ActivityRequest{
		Name:  ActivityInvokeAgent,
		Input: invokeAgentInput{AgentID: eff.AgentID, Request: eff.Request},
	}, &response); err != nil {
		return s, fmt.Errorf("adaptive: agent %s: %w", eff.AgentID, err)
	}
	return eff.Apply(response, s), nil
}
