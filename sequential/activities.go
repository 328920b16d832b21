package sequential

import (
	"context"
	"fmt"

	"goa.design/multiagent/engine"
	"goa.design/multiagent/registry"
	"goa.design/multiagent/state"
)

type invokeAgentInput struct {
	AgentID string
	Request registry.InvokeRequest
}

type (
	createPlanInput struct {
		State state.SequentialPlanState
		Task  string
	}
	summarizeInput struct {
		State state.SequentialPlanState
	}
	handleFailureInput struct {
		State  state.SequentialPlanState
		Reason string
	}
	persistStateInput struct {
		InstanceID string
		Snapshot   state.HostState
	}
)

// Activity names registered by RegisterActivities.
const (
	ActivityCreatePlan    = "createPlan"
	ActivitySummarize     = "summarize"
	ActivityHandleFailure = "handleFailure"
	ActivityInvokeAgent   = "invokeAgent"
	ActivityPersistState  = "persistState"
)

// RegisterActivities binds host, invoker, and store into the named
// activities the sequential plan workflow dispatches.
func RegisterActivities(ctx context.Context, eng engine.Engine, host Host, invoker registry.AgentInvoker, store state.Store) error {
	activities := []engine.ActivityDefinition{
		{
			Name: ActivityCreatePlan,
			Handler: func(ctx context.Context, input any) (any, error) {
				in, ok := input.(createPlanInput)
				if !ok {
					return nil, fmt.Errorf("sequential: createPlan: unexpected input type %T", input)
				}
				return host.CreatePlan(ctx, in.State, in.Task)
			},
		},
		{
			Name: ActivitySummarize,
			Handler: func(ctx context.Context, input any) (any, error) {
				in, ok := input.(summarizeInput)
				if !ok {
					return nil, fmt.Errorf("sequential: summarize: unexpected input type %T", input)
				}
				return host.Summarize(ctx, in.State)
			},
		},
		{
			Name: ActivityHandleFailure,
			Handler: func(ctx context.Context, input any) (any, error) {
				in, ok := input.(handleFailureInput)
				if !ok {
					return nil, fmt.Errorf("sequential: handleFailure: unexpected input type %T", input)
				}
				return host.HandleFailure(ctx, in.State, in.Reason)
			},
		},
		{
			Name: ActivityInvokeAgent,
			Handler: func(ctx context.Context, input any) (any, error) {
				in, ok := input.(invokeAgentInput)
				if !ok {
					return nil, fmt.Errorf("sequential: invokeAgent: unexpected input type %T", input)
				}
				return invoker.Invoke(ctx, in.AgentID, in.Request)
			},
		},
		{
			Name: ActivityPersistState,
			Handler: func(ctx context.Context, input any) (any, error) {
				in, ok := input.(persistStateInput)
				if !ok {
					return nil, fmt.Errorf("sequential: persistState: unexpected input type %T", input)
				}
				return nil, store.Save(ctx, in.InstanceID, in.Snapshot)
			},
		},
	}
	for _, def := range activities {
		if err := eng.RegisterActivity(ctx, def); err != nil {
			return fmt.Errorf("sequential: register activity %s: %w", def.Name, err)
		}
	}
	return nil
}
