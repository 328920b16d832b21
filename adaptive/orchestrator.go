package adaptive

import (
	"context"
	"fmt"
	"time"

	"goa.design/multiagent/audit"
	"goa.design/multiagent/command"
	"goa.design/multiagent/config"
	"goa.design/multiagent/engine"
	"goa.design/multiagent/evaluation"
	"goa.design/multiagent/plan"
	"goa.design/multiagent/state"
)

// WorkflowName is the logical name the adaptive loop registers with the
// engine.
const WorkflowName = "AdaptiveLoopWorkflow"

// StartRequest is the opaque input passed to Engine.StartWorkflow for an
// adaptive loop instance.
type StartRequest struct {
	InstanceID string
	Task       string
	Options    map[string]any
	Budget     state.Budget
}

// Result is the value an adaptive loop workflow returns on normal
// completion.
type Result struct {
	Answer string
	Status state.Status
	State  state.AdaptiveLoopState
}

// RegisterWorkflow binds host and cfg into the adaptive loop workflow
// definition and registers it with eng under WorkflowName/queue.
// Call RegisterActivities with the same host beforehand (or after;
// order does not matter as long as both complete before workers start).
func RegisterWorkflow(ctx context.Context, eng engine.Engine, host Host, cfg config.OrchestratorConfig, queue string) error {
	cfg = cfg.WithDefaults()
	return eng.RegisterWorkflow(ctx, engine.WorkflowDefinition{
		Name:      WorkflowName,
		TaskQueue: queue,
		Handler: func(wfCtx engine.WorkflowContext, input any) (any, error) {
			req, ok := input.(StartRequest)
			if !ok {
				return nil, fmt.Errorf("adaptive: unexpected start input type %T", input)
			}
			return runWorkflow(wfCtx, host, cfg, req)
		},
	})
}

// orchestrator carries the per-run dependencies the step methods close
// over: the workflow context, the host callbacks, the resolved config, and
// the envelope state mutated across steps.
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
	s := state.NewAdaptiveLoopState()
	env := wfCtx.Context()

	s, err := o.gatherFacts(env, s, req.Task)
	if err != nil {
		return o.fail(env, s, err)
	}
	s, err = o.createPlan(env, s, req.Task)
	if err != nil {
		return o.fail(env, s, err)
	}
	s = s.AppendHistory(audit.TaskLedger + " " + s.Plan)

	s, err = o.innerLoop(env, s, req.Task)
	if err != nil {
		var guardErr *state.GuardError
		if isGuardError(err, &guardErr) {
			return o.fail(env, s, err)
		}
		if err == errStopped {
			o.env.Status = state.Stopped
			o.persist(env, s)
			return Result{Status: state.Stopped, State: s}, nil
		}
		return o.fail(env, s, err)
	}

	return o.complete(env, s)
}

func isGuardError(err error, target **state.GuardError) bool {
	ge, ok := err.(*state.GuardError)
	if ok {
		*target = ge
	}
	return ok
}

// errStopped is a sentinel used internally to unwind the inner loop when a
// stop() command arrives at a step boundary.
var errStopped = fmt.Errorf("adaptive: stopped by command")

func (o *orchestrator) gatherFacts(ctx context.Context, s state.AdaptiveLoopState, task string) (state.AdaptiveLoopState, error) {
	var out state.AdaptiveLoopState
	err := o.wfCtx.ExecuteActivity(ctx, engine.ActivityRequest{
		Name:  ActivityGatherFacts,
		Input: gatherFactsInput{State: s, Task: task},
	}, &out)
	return out, err
}

func (o *orchestrator) createPlan(ctx context.Context, s state.AdaptiveLoopState, task string) (state.AdaptiveLoopState, error) {
	var out state.AdaptiveLoopState
	err := o.wfCtx.ExecuteActivity(ctx, engine.ActivityRequest{
		Name:  ActivityCreatePlan,
		Input: createPlanInput{State: s, Task: task},
	}, &out)
	return out, err
}

func (o *orchestrator) evaluate(ctx context.Context, s state.AdaptiveLoopState, turn int) (evaluation.Evaluation, error) {
	var out evaluation.Evaluation
	err := o.wfCtx.ExecuteActivity(ctx, engine.ActivityRequest{
		Name:  ActivityEvaluateProgress,
		Input: evaluateProgressInput{State: s, Turn: turn},
	}, &out)
	return out, err
}

// innerLoop is the turn-by-turn decision loop: evaluate,
// act, check guards, repeat until Complete or a guard/stop/approval event
// ends the loop.
func (o *orchestrator) innerLoop(ctx context.Context, s state.AdaptiveLoopState, task string) (state.AdaptiveLoopState, error) {
	o.env.Status = state.Executing
	for {
		if o.stopRequested() {
			return s, errStopped
		}
		if o.env.Budget.Exceeded() {
			var err error
			s, err = o.awaitApproval(ctx, s, evaluation.NewAwaitingApproval(plan.Step{}, false, "budget exceeded"))
			if err != nil {
				return s, err
			}
			// Resuming a budget pause approves the overage: raise the
			// ceiling to the current spend so the loop doesn't immediately
			// re-pause on the same cost, while any further spend can still
			// trigger a fresh pause.
			o.env.Budget.BudgetLimit = o.env.Budget.CurrentSpent
			o.persist(ctx, s)
			continue
		}

		s = s.Clone()
		s.TurnCount++
		if s.TurnCount > o.cfg.MaxTurns {
			return s, &state.GuardError{Reason: fmt.Sprintf("adaptive: turnCount %d exceeds maxTurns %d", s.TurnCount, o.cfg.MaxTurns)}
		}

		eval, err := o.evaluate(ctx, s, s.TurnCount)
		if err != nil {
			return s, err
		}
		if eval.Variant != evaluation.Stalled && eval.Variant != evaluation.AwaitingApproval {
			s.StallCount = 0
		}

		switch eval.Variant {
		case evaluation.Complete:
			s = s.AppendHistory(audit.CompletePrefix + " " + eval.Reason)
			return s, nil

		case evaluation.ContinueAgent:
			next, err := o.runAgentTurn(ctx, s, eval.AgentID, eval.Instruction)
			if err != nil {
				return s, err
			}
			s = next

		case evaluation.ContinueStep:
			next, err := o.runStep(ctx, s, eval.Step)
			if err != nil {
				return s, err
			}
			s = next

		case evaluation.Stalled:
			s = s.Clone()
			s.StallCount++
			if s.StallCount >= o.cfg.StallThreshold {
				s, err = o.replan(ctx, s, task)
				if err != nil {
					return s, err
				}
				continue
			}
			next, err := o.runAgentTurn(ctx, s, eval.AgentID, eval.Instruction)
			if err != nil {
				return s, err
			}
			s = next

		case evaluation.AwaitingApproval:
			s, err = o.awaitApproval(ctx, s, eval)
			if err != nil {
				return s, err
			}
			if !eval.HasNextStep {
				return s, nil
			}

		default:
			return s, fmt.Errorf("adaptive: unknown evaluation variant %d", eval.Variant)
		}

		o.persist(ctx, s)
	}
}

// runAgentTurn builds and executes a single agent invocation, folding any
// reported cost into the run's budget. turnCount is incremented once per
// innerLoop iteration, not here.
func (o *orchestrator) runAgentTurn(ctx context.Context, s state.AdaptiveLoopState, agentID, instruction string) (state.AdaptiveLoopState, error) {
	eff, err := o.host.ExecuteAgent(ctx, s, agentID, instruction)
	if err != nil {
		return s, fmt.Errorf("adaptive: build effect for %s: %w", agentID, err)
	}
	out, err := runSingleEffect(ctx, o.wfCtx, eff, s)
	if err != nil {
		return s, err
	}
	return o.applyCost(out, eff.Cost), nil
}

// runStep executes an arbitrary plan.Step chosen by evaluateProgress: a
// Sequential step runs as one agent turn, a Parallel group fans out via
// runEffects and folds in submission order.
func (o *orchestrator) runStep(ctx context.Context, s state.AdaptiveLoopState, step plan.Step) (state.AdaptiveLoopState, error) {
	if !step.IsParallel() {
		return o.runAgentTurn(ctx, s, step.AgentID, step.Instruction)
	}

	effects := make([]Effect, 0, len(step.Steps))
	for _, sub := range step.Steps {
		eff, err := o.host.ExecuteAgent(ctx, s, sub.AgentID, sub.Instruction)
		if err != nil {
			return s, fmt.Errorf("adaptive: build effect for %s: %w", sub.AgentID, err)
		}
		effects = append(effects, eff)
	}
	out, err := runEffects(ctx, o.wfCtx, effects, s)
	if err != nil {
		return s, err
	}
	var cost float64
	for _, eff := range effects {
		cost += eff.Cost
	}
	return o.applyCost(out, cost), nil
}

// applyCost folds an effect's reported cost into the run's budget so a
// later turn's Budget.Exceeded() check can observe it, and records a COST:
// line when spend actually changed. Hosts that don't track cost leave it at
// zero, which is a no-op.
func (o *orchestrator) applyCost(s state.AdaptiveLoopState, cost float64) state.AdaptiveLoopState {
	if cost == 0 {
		return s
	}
	o.env.Budget.CurrentSpent += cost
	return s.AppendHistory(fmt.Sprintf("%s %.2f", audit.Cost, cost))
}

// replan implements the replan transition: reset transient fields
// via state.Replan, then rebuild facts/plan either through the host's
// optional Replanner hook or the default gatherFacts-then-createPlan
// sequence. Exceeding the configured replan budget is a guard violation.
func (o *orchestrator) replan(ctx context.Context, s state.AdaptiveLoopState, task string) (state.AdaptiveLoopState, error) {
	if s.ReplanCount+1 > o.cfg.MaxReplans {
		return s, &state.GuardError{Reason: fmt.Sprintf("adaptive: replanCount would exceed maxReplans %d", o.cfg.MaxReplans)}
	}
	s = s.Replan()

	if replanner, ok := o.host.(Replanner); ok {
		s, err := replanner.UpdatePlan(ctx, s, task)
		if err != nil {
			return s, err
		}
		return s.AppendHistory(audit.UpdatedTaskLedger + " " + s.Plan), nil
	}
	s, err := o.gatherFacts(ctx, s, task)
	if err != nil {
		return s, err
	}
	s, err = o.createPlan(ctx, s, task)
	if err != nil {
		return s, err
	}
	return s.AppendHistory(audit.UpdatedTaskLedger + " " + s.Plan), nil
}

// awaitApproval implements the human-in-the-loop pause/resume transition:
// it records a PendingApproval, persists state so getState/getAnswer can
// observe the pause, then blocks on both the approve and resume signal
// channels until one delivers a matching command.
func (o *orchestrator) awaitApproval(ctx context.Context, s state.AdaptiveLoopState, eval evaluation.Evaluation) (state.AdaptiveLoopState, error) {
	approvalID := fmt.Sprintf("%s-turn-%d", o.wfCtx.WorkflowID(), s.TurnCount)
	s = s.Clone()
	s.PendingApproval = &state.PendingApproval{
		Evaluation: eval,
		ApprovalID: approvalID,
		Timestamp:  o.wfCtx.Now(),
	}
	s = s.AppendHistory(audit.HitlRequest + " " + eval.Context)
	o.env.Status = state.Paused
	o.persist(ctx, s)

	approveCh := o.wfCtx.SignalChannel(command.SignalApprove)
	resumeCh := o.wfCtx.SignalChannel(command.SignalResume)

	// The engine abstraction has no multi-channel select primitive (unlike
	// Temporal's own workflow.Selector), so the two channels are polled in
	// a bounded-wait loop: a short blocking Receive on approveCh doubles as
	// the sleep between ReceiveAsync polls of both channels.
	for {
		var a command.Approve
		if approveCh.ReceiveAsync(&a) {
			if a.ApprovalID != approvalID {
				continue
			}
			if !a.Approved {
				// Capitalized and unwrapped deliberately: this text becomes
				// the FAILED: audit line verbatim.
				return s, fmt.Errorf("Rejected by human: %s", eval.Context)
			}
			break
		}
		var r command.Resume
		if resumeCh.ReceiveAsync(&r) {
			break
		}
		waitCtx, cancel := context.WithTimeout(ctx, 25*time.Millisecond)
		err := approveCh.Receive(waitCtx, &a)
		cancel()
		if err == nil {
			if a.ApprovalID != approvalID {
				continue
			}
			if !a.Approved {
				// Capitalized and unwrapped deliberately: this text becomes
				// the FAILED: audit line verbatim.
				return s, fmt.Errorf("Rejected by human: %s", eval.Context)
			}
			break
		}
	}

	s = s.Clone()
	s.PendingApproval = nil
	s = s.AppendHistory(audit.HitlApproved + " " + approvalID)
	o.env.Status = state.Executing

	if eval.HasNextStep {
		return o.runStep(ctx, s, eval.NextStep)
	}
	return s, nil
}

func (o *orchestrator) stopRequested() bool {
	ch := o.wfCtx.SignalChannel(command.SignalStop)
	var stop command.Stop
	return ch.ReceiveAsync(&stop)
}

func (o *orchestrator) persist(ctx context.Context, s state.AdaptiveLoopState) {
	env := o.env
	env.Adaptive = &s
	_ = o.wfCtx.ExecuteActivity(ctx, engine.ActivityRequest{
		Name: ActivityPersistState,
		Input: persistStateInput{
			InstanceID: o.wfCtx.WorkflowID(),
			Snapshot:   env,
		},
	}, nil)
}

func (o *orchestrator) complete(ctx context.Context, s state.AdaptiveLoopState) (Result, error) {
	var final state.AdaptiveLoopState
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

func (o *orchestrator) fail(ctx context.Context, s state.AdaptiveLoopState, cause error) (Result, error) {
	var final state.AdaptiveLoopState
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
