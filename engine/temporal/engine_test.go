package temporal

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/client"

	"goa.design/multiagent/engine"
	"goa.design/multiagent/telemetry"
)

// validOptions returns Options with just enough set to pass New's
// validation. client.NewLazyClient never dials until the first RPC, so
// this never touches the network.
func validOptions() Options {
	return Options{
		ClientOptions: &client.Options{HostPort: "127.0.0.1:7233"},
		WorkerOptions: WorkerOptions{TaskQueue: "test-queue"},
	}
}

func TestNew_RequiresTaskQueue(t *testing.T) {
	_, err := New(Options{ClientOptions: &client.Options{}})
	require.ErrorContains(t, err, "default task queue")
}

func TestNew_RequiresClientOrClientOptions(t *testing.T) {
	_, err := New(Options{WorkerOptions: WorkerOptions{TaskQueue: "test-queue"}})
	require.ErrorContains(t, err, "client options are required")
}

func TestNew_DefaultsTelemetryToNoop(t *testing.T) {
	eng, err := New(validOptions())
	require.NoError(t, err)
	require.IsType(t, telemetry.NoopLogger{}, eng.logger)
	require.IsType(t, telemetry.NoopMetrics{}, eng.metrics)
	require.IsType(t, telemetry.NoopTracer{}, eng.tracer)
}

func TestRegisterWorkflow_EmptyNameRejected(t *testing.T) {
	eng, err := New(validOptions())
	require.NoError(t, err)
	err = eng.RegisterWorkflow(context.Background(), engine.WorkflowDefinition{
		Handler: func(engine.WorkflowContext, any) (any, error) { return nil, nil },
	})
	require.ErrorContains(t, err, "workflow name cannot be empty")
}

func TestRegisterActivity_EmptyNameRejected(t *testing.T) {
	eng, err := New(validOptions())
	require.NoError(t, err)
	err = eng.RegisterActivity(context.Background(), engine.ActivityDefinition{
		Handler: func(context.Context, any) (any, error) { return nil, nil },
	})
	require.ErrorContains(t, err, "activity name cannot be empty")
}

func TestStartWorkflow_RequiresWorkflowName(t *testing.T) {
	eng, err := New(validOptions())
	require.NoError(t, err)
	_, err = eng.StartWorkflow(context.Background(), engine.WorkflowStartRequest{ID: "run-1"})
	require.ErrorContains(t, err, "workflow name is required")
}

func TestStartWorkflow_RequiresRegisteredWorkflow(t *testing.T) {
	eng, err := New(validOptions())
	require.NoError(t, err)
	_, err = eng.StartWorkflow(context.Background(), engine.WorkflowStartRequest{ID: "run-1", Workflow: "NeverRegistered"})
	require.ErrorContains(t, err, "is not registered")
}

func TestSignalByID_RequiresID(t *testing.T) {
	eng, err := New(validOptions())
	require.NoError(t, err)
	err = eng.SignalByID(context.Background(), "", "approve", nil)
	require.ErrorContains(t, err, "workflow id is required")
}

func TestWorkerForQueue_NoQueueConfigured(t *testing.T) {
	eng := &Engine{workers: make(map[string]*workerBundle)}
	_, err := eng.workerForQueue("")
	require.ErrorContains(t, err, "no task queue configured")
}

func TestWorkerController_StopWithNoWorkers(t *testing.T) {
	eng, err := New(validOptions())
	require.NoError(t, err)
	require.NotPanics(t, func() { eng.Worker().Stop() })
}

// New owns the client it lazily creates from ClientOptions, so Close must
// actually close it (closeClient tracks this).
func TestClose_OwnsLazilyCreatedClient(t *testing.T) {
	eng, err := New(validOptions())
	require.NoError(t, err)
	require.True(t, eng.closeClient)
	require.NoError(t, eng.Close())
}
