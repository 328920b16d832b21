package inmem

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"goa.design/multiagent/engine"
)

func TestActivityExecution(t *testing.T) {
	eng := New()
	ctx := context.Background()

	require.NoError(t, eng.RegisterActivity(ctx, engine.ActivityDefinition{
		Name: "echo",
		Handler: func(_ context.Context, input any) (any, error) {
			return input, nil
		},
	}))

	require.NoError(t, eng.RegisterWorkflow(ctx, engine.WorkflowDefinition{
		Name: "echo_workflow",
		Handler: func(wfCtx engine.WorkflowContext, input any) (any, error) {
			var out string
			if err := wfCtx.ExecuteActivity(wfCtx.Context(), engine.ActivityRequest{
				Name:  "echo",
				Input: input,
			}, &out); err != nil {
				return nil, err
			}
			return out, nil
		},
	}))

	h, err := eng.StartWorkflow(ctx, engine.WorkflowStartRequest{
		ID:       "run-1",
		Workflow: "echo_workflow",
		Input:    "hello",
	})
	require.NoError(t, err)

	var result string
	require.NoError(t, h.Wait(ctx, &result))
	require.Equal(t, "hello", result)
}

func TestStartWorkflowAlreadyStarted(t *testing.T) {
	eng := New()
	ctx := context.Background()

	require.NoError(t, eng.RegisterWorkflow(ctx, engine.WorkflowDefinition{
		Name: "noop",
		Handler: func(wfCtx engine.WorkflowContext, input any) (any, error) {
			return nil, nil
		},
	}))

	_, err := eng.StartWorkflow(ctx, engine.WorkflowStartRequest{ID: "dup", Workflow: "noop"})
	require.NoError(t, err)

	_, err = eng.StartWorkflow(ctx, engine.WorkflowStartRequest{ID: "dup", Workflow: "noop"})
	require.ErrorIs(t, err, engine.ErrAlreadyStarted)
}

func TestParallelActivityFutures(t *testing.T) {
	eng := New()
	ctx := context.Background()

	require.NoError(t, eng.RegisterActivity(ctx, engine.ActivityDefinition{
		Name: "delay",
		Handler: func(_ context.Context, input any) (any, error) {
			d := input.(time.Duration)
			time.Sleep(d)
			return d.String(), nil
		},
	}))

	require.NoError(t, eng.RegisterWorkflow(ctx, engine.WorkflowDefinition{
		Name: "fanout",
		Handler: func(wfCtx engine.WorkflowContext, input any) (any, error) {
			delays := input.([]time.Duration)
			futures := make([]engine.Future, len(delays))
			for i, d := range delays {
				fut, err := wfCtx.ExecuteActivityAsync(wfCtx.Context(), engine.ActivityRequest{Name: "delay", Input: d})
				if err != nil {
					return nil, err
				}
				futures[i] = fut
			}
			results := make([]string, len(futures))
			for i, fut := range futures {
				var s string
				if err := fut.Get(wfCtx.Context(), &s); err != nil {
					return nil, err
				}
				results[i] = s
			}
			return results, nil
		},
	}))

	start := time.Now()
	h, err := eng.StartWorkflow(ctx, engine.WorkflowStartRequest{
		ID:       "fanout-1",
		Workflow: "fanout",
		Input:    []time.Duration{30 * time.Millisecond, 10 * time.Millisecond, 20 * time.Millisecond},
	})
	require.NoError(t, err)

	var out []string
	require.NoError(t, h.Wait(ctx, &out))
	require.Less(t, time.Since(start), 60*time.Millisecond, "concurrent futures must not run serially")
	require.Equal(t, []string{"30ms", "10ms", "20ms"}, out, "results fold in submission order regardless of completion order")
}

func TestSignalDelivery(t *testing.T) {
	eng := New()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, eng.RegisterWorkflow(ctx, engine.WorkflowDefinition{
		Name: "waits_for_signal",
		Handler: func(wfCtx engine.WorkflowContext, input any) (any, error) {
			var msg string
			if err := wfCtx.SignalChannel("resume").Receive(wfCtx.Context(), &msg); err != nil {
				return nil, err
			}
			return msg, nil
		},
	}))

	h, err := eng.StartWorkflow(ctx, engine.WorkflowStartRequest{ID: "run-sig", Workflow: "waits_for_signal"})
	require.NoError(t, err)

	require.NoError(t, h.Signal(ctx, "resume", "continue"))

	var out string
	require.NoError(t, h.Wait(ctx, &out))
	require.Equal(t, "continue", out)
}
