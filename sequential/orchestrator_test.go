package sequential_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"goa.design/multiagent/command"
	"goa.design/multiagent/config"
	"goa.design/multiagent/engine"
	"goa.design/multiagent/engine/inmem"
	"goa.design/multiagent/plan"
	"goa.design/multiagent/registry"
	"goa.design/multiagent/sequential"
	"goa.design/multiagent/state"
)

type fixedPlanHost struct {
	queue plan.Queue
	// gate, when non-nil, is read once by CreatePlan before it returns,
	// letting a test deterministically send a signal while the workflow is
	// still inside its first activity call.
	gate chan struct{}
}

func (h *fixedPlanHost) CreatePlan(_ context.Context, s state.SequentialPlanState, _ string) (state.SequentialPlanState, error) {
	if h.gate != nil {
		<-h.gate
	}
	out := s
	out.RemainingSteps = h.queue
	return out, nil
}

func (h *fixedPlanHost) ExecuteStep(_ context.Context, _ state.SequentialPlanState, agentID, instruction string) (sequential.Effect, error) {
	return sequential.Effect{
		AgentID: agentID,
		Request: registry.InvokeRequest{Instruction: instruction},
		Apply: func(response string, s state.SequentialPlanState) state.SequentialPlanState {
			out := s.AppendHistory(agentID + ": " + response)
			out.AgentResponses[agentID] = response
			return out
		},
	}, nil
}

func (h *fixedPlanHost) Summarize(_ context.Context, s state.SequentialPlanState) (state.SequentialPlanState, error) {
	return s.AppendHistory("FINAL: itinerary booked"), nil
}

func (h *fixedPlanHost) HandleFailure(_ context.Context, s state.SequentialPlanState, reason string) (state.SequentialPlanState, error) {
	return s.AppendHistory("FAILED: " + reason), nil
}

type echoInvoker struct{}

func (echoInvoker) Invoke(_ context.Context, agentID string, req registry.InvokeRequest) (string, error) {
	return agentID + " says: " + req.Instruction, nil
}

// Scenario F: a fixed three-step plan with one parallel group in the middle
// drains to completion in plan order.
func TestSequentialPlan_DrainsFixedPlan(t *testing.T) {
	group, err := plan.Group(plan.Of("hotel-agent", "book hotel"), plan.Of("car-agent", "book car"))
	require.NoError(t, err)
	queue := plan.NewQueue(
		plan.Of("flight-agent", "book flight"),
		group,
		plan.Of("summary-agent", "send itinerary"),
	)
	host := &fixedPlanHost{queue: queue}

	eng := inmem.New()
	ctx := context.Background()
	require.NoError(t, sequential.RegisterActivities(ctx, eng, host, echoInvoker{}, state.NewMemoryStore()))
	require.NoError(t, sequential.RegisterWorkflow(ctx, eng, host, config.OrchestratorConfig{}.WithDefaults(), "test-queue"))

	handle, err := eng.StartWorkflow(ctx, engine.WorkflowStartRequest{
		ID:        "scenario-f",
		Workflow:  sequential.WorkflowName,
		TaskQueue: "test-queue",
		Input:     sequential.StartRequest{InstanceID: "scenario-f", Task: "plan a trip"},
	})
	require.NoError(t, err)

	var result sequential.Result
	require.NoError(t, handle.Wait(ctx, &result))
	require.Equal(t, state.Completed, result.Status)
	require.Equal(t, "itinerary booked", result.Answer)
	require.Contains(t, result.State.AgentResponses, "flight-agent")
	require.Contains(t, result.State.AgentResponses, "hotel-agent")
	require.Contains(t, result.State.AgentResponses, "car-agent")
	require.Contains(t, result.State.AgentResponses, "summary-agent")
	require.Equal(t, 0, result.State.RemainingSteps.Len())
}

// A plan exceeding maxSteps is rejected as a guard violation before any
// step executes.
func TestSequentialPlan_GuardViolationOnMaxSteps(t *testing.T) {
	steps := make([]plan.Step, 0, 3)
	for i := 0; i < 3; i++ {
		steps = append(steps, plan.Of("agent", "step"))
	}
	host := &fixedPlanHost{queue: plan.NewQueue(steps...)}

	eng := inmem.New()
	ctx := context.Background()
	require.NoError(t, sequential.RegisterActivities(ctx, eng, host, echoInvoker{}, state.NewMemoryStore()))
	cfg := config.OrchestratorConfig{MaxSteps: 2}.WithDefaults()
	require.NoError(t, sequential.RegisterWorkflow(ctx, eng, host, cfg, "test-queue"))

	handle, err := eng.StartWorkflow(ctx, engine.WorkflowStartRequest{
		ID:        "scenario-f-guard",
		Workflow:  sequential.WorkflowName,
		TaskQueue: "test-queue",
		Input:     sequential.StartRequest{InstanceID: "scenario-f-guard", Task: "too many steps"},
	})
	require.NoError(t, err)

	var result sequential.Result
	err = handle.Wait(ctx, &result)
	require.Error(t, err)
	var guardErr *state.GuardError
	require.ErrorAs(t, err, &guardErr)
	require.Equal(t, state.Failed, result.Status)
}

// stop() is honored at the next step boundary, not mid-step.
func TestSequentialPlan_StopSignal(t *testing.T) {
	queue := plan.NewQueue(plan.Of("a", "1"), plan.Of("b", "2"), plan.Of("c", "3"))
	host := &fixedPlanHost{queue: queue, gate: make(chan struct{})}

	eng := inmem.New()
	ctx := context.Background()
	require.NoError(t, sequential.RegisterActivities(ctx, eng, host, echoInvoker{}, state.NewMemoryStore()))
	require.NoError(t, sequential.RegisterWorkflow(ctx, eng, host, config.OrchestratorConfig{}.WithDefaults(), "test-queue"))

	handle, err := eng.StartWorkflow(ctx, engine.WorkflowStartRequest{
		ID:        "scenario-f-stop",
		Workflow:  sequential.WorkflowName,
		TaskQueue: "test-queue",
		Input:     sequential.StartRequest{InstanceID: "scenario-f-stop", Task: "stop me"},
	})
	require.NoError(t, err)
	require.NoError(t, handle.Signal(ctx, command.SignalStop, command.Stop{Reason: "operator request"}))
	close(host.gate)

	var result sequential.Result
	require.NoError(t, handle.Wait(ctx, &result))
	require.Equal(t, state.Stopped, result.Status)
}
