// Command orchestratorworker demonstrates wiring a Temporal-backed engine to
// the adaptive loop and sequential plan orchestrators: construct the engine,
// register both workflow definitions plus their activities against a stub
// host and agent registry, and start the worker. It is not part of the
// module's public contract; a real host supplies its own Host
// implementations and agent roster in place of the stubs below.
package main

import (
	"context"
	"fmt"

	"go.temporal.io/sdk/client"
	"goa.design/clue/log"

	"goa.design/multiagent/adaptive"
	"goa.design/multiagent/config"
	"goa.design/multiagent/engine/temporal"
	"goa.design/multiagent/evaluation"
	"goa.design/multiagent/plan"
	"goa.design/multiagent/registry"
	"goa.design/multiagent/sequential"
	"goa.design/multiagent/state"
	"goa.design/multiagent/telemetry"
)

const (
	taskQueue = "orchestrator.default"
)

// echoHost is a minimal adaptive.Host/sequential.Host stand-in: it always
// invokes a single "echo" agent once and declares the task complete. Real
// hosts replace this with planning/evaluation logic backed by an LLM.
type echoHost struct{}

func (echoHost) GatherFacts(_ context.Context, s state.AdaptiveLoopState, task string) (state.AdaptiveLoopState, error) {
	out := s.Clone()
	out.Facts = "task: " + task
	return out, nil
}

func (echoHost) CreatePlan(_ context.Context, s state.AdaptiveLoopState, task string) (state.AdaptiveLoopState, error) {
	out := s.Clone()
	out.Plan = "invoke echo once"
	return out, nil
}

func (echoHost) EvaluateProgress(_ context.Context, s state.AdaptiveLoopState, turn int) (evaluation.Evaluation, error) {
	if turn == 1 {
		return evaluation.NewContinueAgent("echo", s.Facts), nil
	}
	return evaluation.NewComplete("echo responded"), nil
}

func (echoHost) ExecuteAgent(_ context.Context, _ state.AdaptiveLoopState, agentID, instruction string) (adaptive.Effect, error) {
	return adaptive.Effect{
		AgentID: agentID,
		Request: registry.InvokeRequest{Instruction: instruction},
		Apply: func(response string, s state.AdaptiveLoopState) state.AdaptiveLoopState {
			out := s.Clone()
			out.AgentResponses[agentID] = response
			return out.AppendHistory(agentID + ": " + response)
		},
	}, nil
}

func (echoHost) Summarize(_ context.Context, s state.AdaptiveLoopState) (state.AdaptiveLoopState, error) {
	return s.AppendHistory("FINAL: " + s.AgentResponses["echo"]), nil
}

func (echoHost) HandleFailure(_ context.Context, s state.AdaptiveLoopState, reason string) (state.AdaptiveLoopState, error) {
	return s.AppendHistory("FAILED: " + reason), nil
}

type echoInvoker struct{}

func (echoInvoker) Invoke(_ context.Context, agentID string, req registry.InvokeRequest) (string, error) {
	return fmt.Sprintf("%s heard: %s", agentID, req.Instruction), nil
}

// sequentialEchoHost is the sequential.Host counterpart to echoHost: a
// fixed one-step plan that invokes a single "echo" agent and summarizes.
type sequentialEchoHost struct{}

func (sequentialEchoHost) CreatePlan(_ context.Context, s state.SequentialPlanState, task string) (state.SequentialPlanState, error) {
	out := s
	out.RemainingSteps = plan.NewQueue(plan.Of("echo", task))
	return out, nil
}

func (sequentialEchoHost) ExecuteStep(_ context.Context, _ state.SequentialPlanState, agentID, instruction string) (sequential.Effect, error) {
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

func (sequentialEchoHost) Summarize(_ context.Context, s state.SequentialPlanState) (state.SequentialPlanState, error) {
	return s.AppendHistory("FINAL: " + s.AgentResponses["echo"]), nil
}

func (sequentialEchoHost) HandleFailure(_ context.Context, s state.SequentialPlanState, reason string) (state.SequentialPlanState, error) {
	return s.AppendHistory("FAILED: " + reason), nil
}

func main() {
	format := log.FormatJSON
	if log.IsTerminal() {
		format = log.FormatTerminal
	}
	ctx := log.Context(context.Background(), log.WithFormat(format))

	eng, err := temporal.New(temporal.Options{
		ClientOptions: &client.Options{
			HostPort:  "localhost:7233",
			Namespace: "default",
		},
		WorkerOptions: temporal.WorkerOptions{TaskQueue: taskQueue},
		Logger:        telemetry.NewClueLogger(),
		Metrics:       telemetry.NewClueMetrics(),
		Tracer:        telemetry.NewClueTracer(),
	})
	if err != nil {
		log.Fatal(ctx, err, "construct engine")
	}
	defer eng.Close()

	host := echoHost{}
	store := state.NewMemoryStore()
	invoker := echoInvoker{}

	if err := adaptive.RegisterActivities(ctx, eng, host, invoker, store); err != nil {
		log.Fatal(ctx, err, "register adaptive activities")
	}
	if err := adaptive.RegisterWorkflow(ctx, eng, host, config.OrchestratorConfig{}.WithDefaults(), taskQueue); err != nil {
		log.Fatal(ctx, err, "register adaptive workflow")
	}

	sequentialHost := sequentialEchoHost{}
	if err := sequential.RegisterActivities(ctx, eng, sequentialHost, invoker, store); err != nil {
		log.Fatal(ctx, err, "register sequential activities")
	}
	if err := sequential.RegisterWorkflow(ctx, eng, sequentialHost, config.OrchestratorConfig{}.WithDefaults(), taskQueue); err != nil {
		log.Fatal(ctx, err, "register sequential workflow")
	}

	if err := eng.Worker().Start(); err != nil {
		log.Fatal(ctx, err, "start worker")
	}
	log.Printf(ctx, "orchestratorworker listening on task queue %q", taskQueue)
	select {}
}
