package adaptive

import (
	"context"
	"fmt"

	"goa.design/multiagent/engine"
	"goa.design/multiagent/registry"
	"goa.design/multiagent/state"
)

// invokeAgentInput is the payload for the "invokeAgent" activity: the only
// activity this package dispatches generically by name rather than binding
// directly to a Host method, since it is the one call the parallel
// execution primitive must be able to fire concurrently and fold by
// submission order.
type invokeAgentInput struct {
	AgentID string
	Request registry.InvokeRequest
}

// gatherFactsInput/createPlanInput/... carry a task plus the state the
// activity operates on; state crosses the activity boundary as plain data
// (no closures), matching how Temporal activities serialize arguments.
type (
	gatherFactsInput struct {
		State state.AdaptiveLoopState
		Task  string
	}
	createPlanInput struct {
		State state.AdaptiveLoopState
		Task  string
	}
	evaluateProgressInput struct {
		State state.AdaptiveLoopState
		Turn  int
	}
	summarizeInput struct {
		State state.AdaptiveLoopState
	}
	handleFailureInput struct {
		State  state.AdaptiveLoopState
		Reason string
	}
	persistStateInput struct {
		InstanceID string
		Snapshot   state.HostState
	}
)

// Activity names registered by RegisterActivities. The orchestrator
// dispatches ExecuteActivity/ExecuteActivityAsync calls against these exact
// strings.
const (
	ActivityGatherFacts      = "gatherFacts"
	ActivityCreatePlan       = "createPlan"
	ActivityEvaluateProgress = "evaluateProgress"
	ActivitySummarize        = "summarize"
	ActivityHandleFailure    = "handleFailure"
	ActivityInvokeAgent      = "invokeAgent"
	ActivityPersistState     = "persistState"
)

// RegisterActivities binds host, an agent invoker, and a persistence store
// to the named activities the adaptive loop workflow dispatches. Call this
// once per worker process, alongside RegisterWorkflow.
func RegisterActivities(ctx context.Context, eng engine.Engine, host Host, invoker registry.AgentInvoker, store state.Store) error {
	activities := []engine.ActivityDefinition{
		{
			Name: ActivityGatherFacts,
			Handler: func(ctx context.Context, input any) (any, error) {
				in, ok := input.(gatherFactsInput)
				if !ok {
					return nil, fmt.Errorf("adaptive: gatherFacts: unexpected input type %T", input)
				}
				return host.GatherFacts(ctx, in.State, in.Task)
			},
		},
		{
			Name: ActivityCreatePlan,
			Handler: func(ctx context.Context, input any) (any, error) {
				in, ok := input.(createPlanInput)
				if !ok {
					return nil, fmt.Errorf("adaptive: createPlan: unexpected input type %T", input)
				}
				return host.CreatePlan(ctx, in.State, in.Task)
			},
		},
		{
			Name: ActivityEvaluateProgress,
			Handler: func(ctx context.Context, input any) (any, error) {
				in, ok := input.(evaluateProgressInput)
				if !ok {
					return nil, fmt.Errorf("adaptive: evaluateProgress: unexpected input type %T", input)
				}
				return host.EvaluateProgress(ctx, in.State, in.Turn)
			},
		},
		{
			Name: ActivitySummarize,
			Handler: func(ctx context.Context, input any) (any, error) {
				in, ok := input.(summarizeInput)
				if !ok {
					return nil, fmt.Errorf("adaptive: summarize: unexpected input type %T", input)
				}
				return host.Summarize(ctx, in.State)
			},
		},
		{
			Name: ActivityHandleFailure,
			Handler: func(ctx context.Context, input any) (any, error) {
				in, ok := input.(handleFailureInput)
				if !ok {
					return nil, fmt.Errorf("adaptive: handleFailure: unexpected input type %T", input)
				}
				return host.HandleFailure(ctx, in.State, in.Reason)
			},
		},
		{
			Name: ActivityInvokeAgent,
			Handler: func(ctx context.Context, input any) (any, error) {
				in, ok := input.(invokeAgentInput)
				if !ok {
					return nil, fmt.Errorf("adaptive: invokeAgent: unexpected input type %T", input)
				}
				return invoker.Invoke(ctx, in.AgentID, in.Request)
			},
		},
		{
			Name: ActivityPersistState,
			Handler: func(ctx context.Context, input any) (any, error) {
				in, ok := input.(persistStateInput)
				if !ok {
					return nil, fmt.Errorf("adaptive: persistState: unexpected input type %T", input)
				}
				return nil, store.Save(ctx, in.InstanceID, in.Snapshot)
			},
		},
	}
	for _, def := range activities {
		if err := eng.RegisterActivity(ctx, def); err != nil {
			return fmt.Errorf("adaptive: register activity %s: %w", def.Name, err)
		}
	}
	return nil
}
