// Package temporal implements the engine.Engine interface backed by
// Temporal (https://temporal.io), the production durable execution backend
// for the adaptive loop and sequential plan orchestrators.
//
// # Why Temporal?
//
// Orchestrator runs can span minutes to days: an adaptive loop may pause
// awaiting human approval, a sequential plan may wait on a slow agent
// invocation. Temporal persists workflow state as an event history and
// replays it deterministically, so a run survives process restarts and
// network failures without the orchestrator package doing any of its own
// persistence.
//
// # Constructing an Engine
//
//	eng, err := temporal.New(temporal.Options{
//	    ClientOptions: &client.Options{
//	        HostPort:  "temporal:7233",
//	        Namespace: "default",
//	    },
//	    WorkerOptions: temporal.WorkerOptions{
//	        TaskQueue: "orchestrator.default",
//	    },
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer eng.Close()
//
// # Worker vs Client Mode
//
// The same engine can operate in two modes:
//
//   - Worker mode: polls task queues and executes workflow/activity code
//     locally. Use this in the process that registers the orchestrator
//     workflows and host activities.
//
//   - Client mode: submits workflows and sends signals without executing
//     anything locally. Use this in an API gateway that only needs to
//     start/resume/approve/stop runs.
//
// Both modes share Options; the difference is whether RegisterWorkflow and
// RegisterActivity are called before the worker starts.
//
// # Workflow Determinism
//
// Workflow code must be deterministic: given the same event history it must
// produce the same execution. WorkflowContext exposes only deterministic
// operations (Now, ExecuteActivity/ExecuteActivityAsync, SignalChannel); the
// host callbacks that do real work (gather facts, invoke an agent) run as
// activities, which are not subject to this constraint.
//
// # OpenTelemetry Integration
//
// The engine installs OTEL tracing and metrics interceptors on the client
// and workers automatically, propagating trace context across workflow and
// activity boundaries. Disable via InstrumentationOptions.
package temporal
