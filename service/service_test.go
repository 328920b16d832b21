package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"goa.design/multiagent/adaptive"
	"goa.design/multiagent/config"
	"goa.design/multiagent/engine/inmem"
	"goa.design/multiagent/evaluation"
	"goa.design/multiagent/registry"
	"goa.design/multiagent/service"
	"goa.design/multiagent/state"
)

type oneShotHost struct{}

func (oneShotHost) GatherFacts(_ context.Context, s state.AdaptiveLoopState, task string) (state.AdaptiveLoopState, error) {
	out := s.Clone()
	out.Facts = task
	return out, nil
}

func (oneShotHost) CreatePlan(_ context.Context, s state.AdaptiveLoopState, task string) (state.AdaptiveLoopState, error) {
	out := s.Clone()
	out.Plan = task
	return out, nil
}

func (oneShotHost) EvaluateProgress(_ context.Context, _ state.AdaptiveLoopState, turn int) (evaluation.Evaluation, error) {
	if turn == 1 {
		return evaluation.NewContinueAgent("agent", "go"), nil
	}
	return evaluation.NewComplete("done"), nil
}

func (oneShotHost) ExecuteAgent(_ context.Context, _ state.AdaptiveLoopState, agentID, instruction string) (adaptive.Effect, error) {
	return adaptive.Effect{
		AgentID: agentID,
		Request: registry.InvokeRequest{Instruction: instruction},
		Apply: func(response string, s state.AdaptiveLoopState) state.AdaptiveLoopState {
			return s.AppendHistory(agentID + ": " + response)
		},
	}, nil
}

func (oneShotHost) Summarize(_ context.Context, s state.AdaptiveLoopState) (state.AdaptiveLoopState, error) {
	return s.AppendHistory("FINAL: all set"), nil
}

func (oneShotHost) HandleFailure(_ context.Context, s state.AdaptiveLoopState, reason string) (state.AdaptiveLoopState, error) {
	return s.AppendHistory("FAILED: " + reason), nil
}

type stubInvoker struct{}

func (stubInvoker) Invoke(_ context.Context, agentID string, req registry.InvokeRequest) (string, error) {
	return agentID + " handled: " + req.Instruction, nil
}

func newService(t *testing.T) *service.Service {
	t.Helper()
	eng := inmem.New()
	store := state.NewMemoryStore()
	host := oneShotHost{}
	ctx := context.Background()
	require.NoError(t, adaptive.RegisterActivities(ctx, eng, host, stubInvoker{}, store))
	require.NoError(t, adaptive.RegisterWorkflow(ctx, eng, host, config.OrchestratorConfig{}.WithDefaults(), "q"))
	return service.New(eng, store, nil)
}

func TestService_StartIsIdempotent(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	id1, err := svc.Start(ctx, "key-1", service.StartInput{Kind: service.Adaptive, Task: "book a table", TaskQueue: "q"})
	require.NoError(t, err)

	id2, err := svc.Start(ctx, "key-1", service.StartInput{Kind: service.Adaptive, Task: "book a table", TaskQueue: "q"})
	require.NoError(t, err)
	require.Equal(t, id1, id2)
}

func TestService_StartTwiceWithoutKeyConflicts(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, err := svc.Start(ctx, "", service.StartInput{InstanceID: "dup", Kind: service.Adaptive, Task: "x", TaskQueue: "q"})
	require.NoError(t, err)

	_, err = svc.Start(ctx, "", service.StartInput{InstanceID: "dup", Kind: service.Adaptive, Task: "x", TaskQueue: "q"})
	require.ErrorIs(t, err, service.ErrAlreadyStarted)
}

func TestService_GetAnswerAfterCompletion(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	id, err := svc.Start(ctx, "", service.StartInput{InstanceID: "answer-1", Kind: service.Adaptive, Task: "x", TaskQueue: "q"})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		snap, err := svc.GetState(ctx, id)
		return err == nil && snap.Status == state.Completed
	}, time.Second, 5*time.Millisecond)

	answer, err := svc.GetAnswer(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "all set", answer)
}

func TestService_GetAnswerUnknownInstance(t *testing.T) {
	svc := newService(t)
	_, err := svc.GetAnswer(context.Background(), "nonexistent")
	require.ErrorIs(t, err, service.ErrNotFound)
}

func TestService_StopUnknownInstance(t *testing.T) {
	svc := newService(t)
	err := svc.Stop(context.Background(), "nonexistent", "because")
	require.ErrorIs(t, err, service.ErrNotFound)
}
