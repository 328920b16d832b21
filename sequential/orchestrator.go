package sequential

import (
	"context"
	"fmt"

	"goa.design/multiagent/audit"
	"goa.design/multiagent/command"
	"goa.design/multiagent/config"
	"goa.design/multiagent/engine"
	"goa.design/multiagent/plan"
	"goa.design/multiagent/state"
)

// WorkflowName is the logical name the sequential plan orchestrator
// registers with the engine.
const WorkflowName = "SequentialPlanWorkflow"

// StartRequest is the opaque input passed to Engine.StartWorkflow for a
// sequential plan instance.
type StartRequest struct {
	InstanceID string
	Task       string
	Options    map[string]any
	Budget     state.Budget
}

// Result is the value a sequential plan workflow returns on completion.
type Result struct {
	Answer string
	Status state.Status
	State  state.SequentialPlanState
}

// RegisterWorkflow binds host and cfg into the sequential plan workflow
// definition and registers it with eng under WorkflowName/queue.
func RegisterWorkflow(ctx context.Context, eng engine.Engine, host Host, cfg config.OrchestratorConfig, queue string) error {
	cfg = cfg.WithDefaults()
	return eng.RegisterWorkflow(ctx, engine.WorkflowDefinition{
		Name:      WorkflowName,
		TaskQueue: queue,
		Handler: func(wfCtx engine.WorkflowContext, input any) (any, error) {
			req, ok := input.(StartRequest)
			if !ok {
				return nil, fmt.Errorf("sequential: unexpected start input type %T", input)
			}
			return runWorkflow(wfCtx, host, cfg, req)
		},
	})
}

type orchestrator struct {
	wfCtx engine.WorkflowContext
	host  Host
	cfg   config.OrchestratorConfig
	env   state.HostState
}

func runWorkflow(wfCtx engine.WorkflowContext, host Host, cfg config.OrchestratorConfig, req StartRequest) (Result, error) {
	o := &orchestrator{
		wfCtx: wfCtx,
		host:  host,
		cfg:   cfg,
		env: state.HostState{
			Task:      req.Task,
			SessionID: wfCtx.WorkflowID(),
			Status:    state.Started,
			Budget:    req.Budget,
			Options:   req.Options,
		},
	}
	ctx := wfCtx.Context()
	s := state.NewSequentialPlanState()

	s, err := o.createPlan(ctx, s, req.Task)
	if err != nil {
		return o.fail(ctx, s, err)
	}
	if s.RemainingSteps.Len() > cfg.MaxSteps {
		return o.fail(ctx, s, &state.GuardError{Reason: fmt.Sprintf("sequential: plan has %d steps, exceeds maxSteps %d", s.RemainingSteps.Len(), cfg.MaxSteps)})
	}
	if !s.RemainingSteps.HasMoreSteps() {
		return o.fail(ctx, s, &state.GuardError{Reason: "sequential: plan is empty"})
	}

	s, err = o.executePlan(ctx, s)
	if err != nil {
		if err == errStopped {
			o.env.Status = state.Stopped
			o.persist(ctx, s)
			return Result{Status: state.Stopped, State: s}, nil
		}
		return o.fail(ctx, s, err)
	}

	return o.complete(ctx, s)
}

var errStopped = fmt.Errorf("sequential: stopped by command")

func (o *orchestrator) createPlan(ctx context.Context, s state.SequentialPlanState, task string) (state.SequentialPlanState, error) {
	var out state.SequentialPlanState
	err := o.wfCtx.ExecuteActivity(ctx, engine.ActivityRequest{
		Name:  ActivityCreatePlan,
		Input: createPlanInput{State: s, Task: task},
	}, &out)
	return out, err
}

// executePlan drains RemainingSteps one step at a time: a
// Sequential step runs as a single agent call, a Parallel group fans out
// and folds in submission order. Before each step it checks for a stop
// signal and an exceeded budget; the maxSteps guard is checked once by
// runWorkflow, before executePlan starts.
func (o *orchestrator) executePlan(ctx context.Context, s state.SequentialPlanState) (state.SequentialPlanState, error) {
	o.env.Status = state.Executing
	for s.RemainingSteps.HasMoreSteps() {
		if o.stopRequested() {
			return s, errStopped
		}
		if o.env.Budget.Exceeded() {
			return s, &state.GuardError{Reason: "sequential: budget exceeded"}
		}

		step, _ := s.RemainingSteps.NextStep()
		next, err := o.runStep(ctx, s, step)
		if err != nil {
			return s, err
		}
		next.RemainingSteps = next.RemainingSteps.RemoveFirstStep()
		s = next
		o.persist(ctx, s)
	}
	return s, nil
}

func (o *orchestrator) runStep(ctx context.Context, s state.SequentialPlanState, step plan.Step) (state.SequentialPlanState, error) {
	if !step.IsParallel() {
		return o.runSingleStep(ctx, s, step.AgentID, step.Instruction)
	}

	effects := make([]Effect, 0, len(step.Steps))
	for _, sub := range step.Steps {
		eff, err := o.host.ExecuteStep(ctx, s, sub.AgentID, sub.Instruction)
		if err != nil {
			return s, fmt.Errorf("sequential: build effect for %s: %w", sub.AgentID, err)
		}
		effects = append(effects, eff)
	}
	return o.runEffects(ctx, effects, s)
}

func (o *orchestrator) runSingleStep(ctx context.Context, s state.SequentialPlanState, agentID, instruction string) (state.SequentialPlanState, error) {
	eff, err := o.host.ExecuteStep(ctx, s, agentID, instruction)
	if err != nil {
		return s, fmt.Errorf("sequential: build effect for %s: %w", agentID, err)
	}
	var response string
	if err := o.wfCtx.ExecuteActivity(ctx, engine.ActivityRequest{
		Name:  ActivityInvokeAgent,
		Input: invokeAgentInput{AgentID: eff.AgentID, Request: eff.Request},
	}, &response); err != nil {
		return s, fmt.Errorf("sequential: agent %s: %w", agentID, err)
	}
	return eff.Apply(response, s), nil
}

// runEffects is the Parallel Execution Primitive applied to
// SequentialPlanState: every effect is scheduled concurrently via
// ExecuteActivityAsync and folded back in submission order, matching
// adaptive.runEffects' semantics for the other orchestrator's state type.
func (o *orchestrator) runEffects(ctx context.Context, effects []Effect, s state.SequentialPlanState) (state.SequentialPlanState, error) {
	if len(effects) == 1 {
		return o.runSingleStep(ctx, s, effects[0].AgentID, effects[0].Request.Instruction)
	}

	futures := make([]engine.Future, len(effects))
	for i, eff := range effects {
		fut, err := o.wfCtx.ExecuteActivityAsync(ctx, engine.ActivityRequest{
			Name:  ActivityInvokeAgent,
			Input: invokeAgentInput{AgentID: eff.AgentID, Request: eff.Request},
		})
		if err != nil {
			return s, fmt.Errorf("sequential: schedule agent %s: %w", eff.AgentID, err)
		}
		futures[i] = fut
	}

	responses := make([]string, len(effects))
	for i, fut := range futures {
		var response string
		if err := fut.Get(ctx, &response); err != nil {
			return s, fmt.Errorf("sequential: agent %s: %w", effects[i].AgentID, err)
		}
		responses[i] = response
	}

	out := s
	for i, eff := range effects {
		out = eff.Apply(responses[i], out)
	}
	return out, nil
}

func (o *orchestrator) stopRequested() bool {
	ch := o.wfCtx.SignalChannel(command.SignalStop)
	var stop command.Stop
	return ch.ReceiveAsync(&stop)
}

func (o *orchestrator) persist(ctx context.Context, s state.SequentialPlanState) {
	env := o.env
	env.Sequential = &s
	_ = o.wfCtx.ExecuteActivity(ctx, engine.ActivityRequest{
		Name: ActivityPersistState,
		Input: persistStateInput{
			InstanceID: o.wfCtx.WorkflowID(),
			Snapshot:   env,
		},
	}, nil)
}

func (o *orchestrator) complete(ctx context.Context, s state.SequentialPlanState) (Result, error) {
	var final state.SequentialPlanState
	if err := o.wfCtx.ExecuteActivity(ctx, engine.ActivityRequest{
		Name:  ActivitySummarize,
		Input: summarizeInput{State: s},
	}, &final); err != nil {
		return o.fail(ctx, s, err)
	}
	o.env.Status = state.Completed
	o.persist(ctx, final)

	answer, _ := audit.LastFinal(final.MessageHistory)
	return Result{Answer: answer, Status: state.Completed, State: final}, nil
}

func (o *orchestrator) fail(ctx context.Context, s state.SequentialPlanState, cause error) (Result, error) {
	var final state.SequentialPlanState
	if err := o.wfCtx.ExecuteActivity(ctx, engine.ActivityRequest{
		Name:  ActivityHandleFailure,
		Input: handleFailureInput{State: s, Reason: cause.Error()},
	}, &final); err != nil {
		final = s.AppendHistory(audit.FailedPrefix + " " + cause.Error())
	}
	o.env.Status = state.Failed
	o.persist(ctx, final)
	return Result{Status: state.Failed, State: final}, cause
}
