package adaptive_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"goa.design/multiagent/adaptive"
	"goa.design/multiagent/audit"
	"goa.design/multiagent/command"
	"goa.design/multiagent/config"
	"goa.design/multiagent/engine"
	"goa.design/multiagent/engine/inmem"
	"goa.design/multiagent/evaluation"
	"goa.design/multiagent/plan"
	"goa.design/multiagent/registry"
	"goa.design/multiagent/state"
)

// scriptedHost is a test double implementing adaptive.Host. evaluations is
// consumed one entry per evaluateProgress call (the last entry repeats once
// exhausted), letting each test script exactly the turn sequence it wants to
// exercise.
type scriptedHost struct {
	evaluations []evaluation.Evaluation
	evalCalls   int
	failReason  string
	// cost, when non-zero, is reported on every Effect built by
	// ExecuteAgent so tests can drive the budget gate.
	cost float64
}

func (h *scriptedHost) GatherFacts(_ context.Context, s state.AdaptiveLoopState, task string) (state.AdaptiveLoopState, error) {
	out := s.Clone()
	out.Facts = "facts about: " + task
	return out, nil
}

func (h *scriptedHost) CreatePlan(_ context.Context, s state.AdaptiveLoopState, task string) (state.AdaptiveLoopState, error) {
	out := s.Clone()
	out.Plan = "plan for: " + task
	return out, nil
}

func (h *scriptedHost) EvaluateProgress(_ context.Context, _ state.AdaptiveLoopState, _ int) (evaluation.Evaluation, error) {
	idx := h.evalCalls
	if idx >= len(h.evaluations) {
		idx = len(h.evaluations) - 1
	}
	h.evalCalls++
	return h.evaluations[idx], nil
}

func (h *scriptedHost) ExecuteAgent(_ context.Context, _ state.AdaptiveLoopState, agentID, instruction string) (adaptive.Effect, error) {
	return adaptive.Effect{
		AgentID: agentID,
		Request: registry.InvokeRequest{Instruction: instruction},
		Apply: func(response string, s state.AdaptiveLoopState) state.AdaptiveLoopState {
			out := s.Clone()
			out.AgentResponses[agentID] = response
			return out.AppendHistory(agentID + ": " + response)
		},
		Cost: h.cost,
	}, nil
}

func (h *scriptedHost) Summarize(_ context.Context, s state.AdaptiveLoopState) (state.AdaptiveLoopState, error) {
	return s.AppendHistory("FINAL: " + "done"), nil
}

func (h *scriptedHost) HandleFailure(_ context.Context, s state.AdaptiveLoopState, reason string) (state.AdaptiveLoopState, error) {
	h.failReason = reason
	return s.AppendHistory("FAILED: " + reason), nil
}

// echoInvoker returns a canned response recording which agent was called.
type echoInvoker struct{}

func (echoInvoker) Invoke(_ context.Context, agentID string, req registry.InvokeRequest) (string, error) {
	return agentID + " says: " + req.Instruction, nil
}

func newTestEngine(t *testing.T, host adaptive.Host, cfg config.OrchestratorConfig) (engine.Engine, *state.MemoryStore) {
	t.Helper()
	eng := inmem.New()
	store := state.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, adaptive.RegisterActivities(ctx, eng, host, echoInvoker{}, store))
	require.NoError(t, adaptive.RegisterWorkflow(ctx, eng, host, cfg, "test-queue"))
	return eng, store
}

// Scenario A: a single-agent happy path runs to completion and the final
// answer is extracted from the FINAL: line.
func TestAdaptiveLoop_HappyPath(t *testing.T) {
	host := &scriptedHost{evaluations: []evaluation.Evaluation{
		evaluation.NewContinueAgent("weather-agent", "look up the forecast"),
		evaluation.NewComplete("forecast retrieved"),
	}}
	eng, _ := newTestEngine(t, host, config.OrchestratorConfig{}.WithDefaults())

	handle, err := eng.StartWorkflow(context.Background(), engine.WorkflowStartRequest{
		ID:        "scenario-a",
		Workflow:  adaptive.WorkflowName,
		TaskQueue: "test-queue",
		Input:     adaptive.StartRequest{InstanceID: "scenario-a", Task: "plan a trip"},
	})
	require.NoError(t, err)

	var result adaptive.Result
	require.NoError(t, handle.Wait(context.Background(), &result))
	require.Equal(t, state.Completed, result.Status)
	require.Equal(t, "done", result.Answer)
	require.Contains(t, result.State.AgentResponses, "weather-agent")
	require.Equal(t, 2, result.State.TurnCount)
}

// Scenario B: repeated stalls cross the threshold and trigger a replan,
// which resets StallCount and increments ReplanCount, after which the loop
// completes normally.
func TestAdaptiveLoop_StallTriggersReplan(t *testing.T) {
	host := &scriptedHost{evaluations: []evaluation.Evaluation{
		evaluation.NewStalled("agent-a", "try again", "no progress"),
		evaluation.NewStalled("agent-a", "try again", "no progress"),
		evaluation.NewStalled("agent-a", "try again", "no progress"),
		evaluation.NewComplete("resolved after replan"),
	}}
	cfg := config.OrchestratorConfig{StallThreshold: 3}.WithDefaults()
	eng, _ := newTestEngine(t, host, cfg)

	handle, err := eng.StartWorkflow(context.Background(), engine.WorkflowStartRequest{
		ID:        "scenario-b",
		Workflow:  adaptive.WorkflowName,
		TaskQueue: "test-queue",
		Input:     adaptive.StartRequest{InstanceID: "scenario-b", Task: "find a restaurant"},
	})
	require.NoError(t, err)

	var result adaptive.Result
	require.NoError(t, handle.Wait(context.Background(), &result))
	require.Equal(t, state.Completed, result.Status)
	require.Equal(t, 1, result.State.ReplanCount)
	require.Equal(t, 0, result.State.StallCount)

	ledgerLines := 0
	for _, line := range result.State.MessageHistory {
		if strings.HasPrefix(line, audit.UpdatedTaskLedger) {
			ledgerLines++
		}
	}
	require.Equal(t, 1, ledgerLines, "replan must leave exactly one fresh UPDATED_TASK_LEDGER entry")
}

// Scenario C: a ContinueStep evaluation naming a parallel group fans out to
// every sub-step and folds responses in submission order.
func TestAdaptiveLoop_ParallelStep(t *testing.T) {
	group, err := plan.Group(plan.Of("agent-a", "do a"), plan.Of("agent-b", "do b"))
	require.NoError(t, err)

	host := &scriptedHost{evaluations: []evaluation.Evaluation{
		evaluation.NewContinueStep(group),
		evaluation.NewComplete("both done"),
	}}
	eng, _ := newTestEngine(t, host, config.OrchestratorConfig{}.WithDefaults())

	handle, startErr := eng.StartWorkflow(context.Background(), engine.WorkflowStartRequest{
		ID:        "scenario-c",
		Workflow:  adaptive.WorkflowName,
		TaskQueue: "test-queue",
		Input:     adaptive.StartRequest{InstanceID: "scenario-c", Task: "gather two facts"},
	})
	require.NoError(t, startErr)

	var result adaptive.Result
	require.NoError(t, handle.Wait(context.Background(), &result))
	require.Equal(t, state.Completed, result.Status)
	require.Contains(t, result.State.AgentResponses, "agent-a")
	require.Contains(t, result.State.AgentResponses, "agent-b")
}

// Scenario D: an AwaitingApproval evaluation pauses the run; sending a
// matching approve(approvalId, true) signal unblocks it and execution
// proceeds to the approved NextStep.
func TestAdaptiveLoop_ApprovalGate(t *testing.T) {
	nextStep := plan.Of("booking-agent", "confirm the reservation")
	host := &scriptedHost{evaluations: []evaluation.Evaluation{
		evaluation.NewAwaitingApproval(nextStep, true, "confirm booking with the user"),
		evaluation.NewComplete("booked"),
	}}
	eng, store := newTestEngine(t, host, config.OrchestratorConfig{}.WithDefaults())

	handle, err := eng.StartWorkflow(context.Background(), engine.WorkflowStartRequest{
		ID:        "scenario-d",
		Workflow:  adaptive.WorkflowName,
		TaskQueue: "test-queue",
		Input:     adaptive.StartRequest{InstanceID: "scenario-d", Task: "book a flight"},
	})
	require.NoError(t, err)

	var approvalID string
	require.Eventually(t, func() bool {
		snap, ok, loadErr := store.Load(context.Background(), "scenario-d")
		if loadErr != nil || !ok || snap.Adaptive == nil || snap.Adaptive.PendingApproval == nil {
			return false
		}
		approvalID = snap.Adaptive.PendingApproval.ApprovalID
		return approvalID != ""
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, handle.Signal(context.Background(), command.SignalApprove, command.Approve{
		ApprovalID: approvalID,
		Approved:   true,
	}))

	var result adaptive.Result
	require.NoError(t, handle.Wait(context.Background(), &result))
	require.Equal(t, state.Completed, result.Status)
	require.Contains(t, result.State.AgentResponses, "booking-agent")
}

// A rejected approval fails the run with a reason that starts with
// "Rejected by human: " followed by the evaluation's context, not the
// generic guard-violation wording.
func TestAdaptiveLoop_ApprovalGate_Rejected(t *testing.T) {
	nextStep := plan.Of("booking-agent", "confirm the reservation")
	host := &scriptedHost{evaluations: []evaluation.Evaluation{
		evaluation.NewAwaitingApproval(nextStep, true, "confirm booking with the user"),
		evaluation.NewComplete("booked"),
	}}
	eng, store := newTestEngine(t, host, config.OrchestratorConfig{}.WithDefaults())

	handle, err := eng.StartWorkflow(context.Background(), engine.WorkflowStartRequest{
		ID:        "scenario-d-rejected",
		Workflow:  adaptive.WorkflowName,
		TaskQueue: "test-queue",
		Input:     adaptive.StartRequest{InstanceID: "scenario-d-rejected", Task: "book a flight"},
	})
	require.NoError(t, err)

	var approvalID string
	require.Eventually(t, func() bool {
		snap, ok, loadErr := store.Load(context.Background(), "scenario-d-rejected")
		if loadErr != nil || !ok || snap.Adaptive == nil || snap.Adaptive.PendingApproval == nil {
			return false
		}
		approvalID = snap.Adaptive.PendingApproval.ApprovalID
		return approvalID != ""
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, handle.Signal(context.Background(), command.SignalApprove, command.Approve{
		ApprovalID: approvalID,
		Approved:   false,
	}))

	var result adaptive.Result
	err = handle.Wait(context.Background(), &result)
	require.Error(t, err)
	require.Equal(t, state.Failed, result.Status)
	require.True(t, strings.HasPrefix(host.failReason, "Rejected by human: "))
	require.Contains(t, host.failReason, "confirm booking with the user")
}

// Exceeding the budget pauses the run exactly like an AwaitingApproval
// evaluation rather than failing it outright; a resume signal unblocks it
// and the run completes normally.
func TestAdaptiveLoop_BudgetExceededPauses(t *testing.T) {
	host := &scriptedHost{
		evaluations: []evaluation.Evaluation{
			evaluation.NewContinueAgent("pricey-agent", "do the expensive thing"),
			evaluation.NewComplete("done despite the spend"),
		},
		cost: 100,
	}
	eng, store := newTestEngine(t, host, config.OrchestratorConfig{}.WithDefaults())

	handle, err := eng.StartWorkflow(context.Background(), engine.WorkflowStartRequest{
		ID:        "scenario-budget",
		Workflow:  adaptive.WorkflowName,
		TaskQueue: "test-queue",
		Input: adaptive.StartRequest{
			InstanceID: "scenario-budget",
			Task:       "spend more than allowed",
			Budget:     state.Budget{BudgetLimit: 50},
		},
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		snap, ok, loadErr := store.Load(context.Background(), "scenario-budget")
		if loadErr != nil || !ok {
			return false
		}
		return snap.Status == state.Paused
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, handle.Signal(context.Background(), command.SignalResume, command.Resume{Message: "proceed anyway"}))

	var result adaptive.Result
	require.NoError(t, handle.Wait(context.Background(), &result))
	require.Equal(t, state.Completed, result.Status)

	costLines := 0
	for _, line := range result.State.MessageHistory {
		if strings.HasPrefix(line, audit.Cost) {
			costLines++
		}
	}
	require.Equal(t, 1, costLines)
}

// Scenario E: exceeding maxTurns is a guard violation that fails the
// workflow without ever reaching complete.
func TestAdaptiveLoop_GuardViolationOnMaxTurns(t *testing.T) {
	host := &scriptedHost{evaluations: []evaluation.Evaluation{
		evaluation.NewContinueAgent("agent-a", "keep going"),
	}}
	cfg := config.OrchestratorConfig{MaxTurns: 2}.WithDefaults()
	eng, _ := newTestEngine(t, host, cfg)

	handle, err := eng.StartWorkflow(context.Background(), engine.WorkflowStartRequest{
		ID:        "scenario-e",
		Workflow:  adaptive.WorkflowName,
		TaskQueue: "test-queue",
		Input:     adaptive.StartRequest{InstanceID: "scenario-e", Task: "never finishes"},
	})
	require.NoError(t, err)

	var result adaptive.Result
	err = handle.Wait(context.Background(), &result)
	require.Error(t, err)
	var guardErr *state.GuardError
	require.ErrorAs(t, err, &guardErr)
	require.Equal(t, state.Failed, result.Status)
	require.Contains(t, host.failReason, "exceeds maxTurns")
}
