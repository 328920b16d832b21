// Package evaluation implements ProgressEvaluation, the sum-typed verdict the
// host's evaluateProgress callback returns at every adaptive-loop turn.
package evaluation

import "goa.design/multiagent/plan"

// Variant discriminates the five ProgressEvaluation shapes.
type Variant int

const (
	// Complete signals the task is done; Reason becomes the "COMPLETE: "
	// audit line and the loop transitions to the complete step.
	Complete Variant = iota
	// ContinueAgent selects a single agent to run next turn.
	ContinueAgent
	// ContinueStep selects an arbitrary (possibly parallel) step to run next
	// turn.
	ContinueStep
	// Stalled reports no forward progress; it still carries the agent/
	// instruction the evaluator would have chosen, so the orchestrator can
	// proceed as ContinueAgent once the stall hasn't yet crossed the
	// threshold.
	Stalled
	// AwaitingApproval pauses the workflow for a human decision.
	AwaitingApproval
)

// Evaluation is the decision produced by evaluateProgress for one turn.
// Exactly the fields relevant to Variant are meaningful; the rest are zero.
type Evaluation struct {
	Variant Variant

	// Reason is set for Complete and Stalled.
	Reason string

	// AgentID and Instruction are set for ContinueAgent and Stalled.
	AgentID     string
	Instruction string

	// Step is set for ContinueStep.
	Step plan.Step

	// NextStep is the step to run once AwaitingApproval is approved. It may
	// be the zero Step, meaning "go straight to complete" once approved.
	NextStep plan.Step
	// HasNextStep distinguishes a genuine NextStep from the "go straight to
	// complete" case, since plan.Step's zero value is itself a valid
	// Sequential step with empty fields.
	HasNextStep bool

	// Context is the human-readable rationale shown to the approver; set for
	// AwaitingApproval.
	Context string
}

// NewComplete builds a Complete evaluation.
func NewComplete(reason string) Evaluation {
	return Evaluation{Variant: Complete, Reason: reason}
}

// NewContinueAgent builds a ContinueAgent evaluation.
func NewContinueAgent(agentID, instruction string) Evaluation {
	return Evaluation{Variant: ContinueAgent, AgentID: agentID, Instruction: instruction}
}

// NewContinueStep builds a ContinueStep evaluation.
func NewContinueStep(step plan.Step) Evaluation {
	return Evaluation{Variant: ContinueStep, Step: step}
}

// NewStalled builds a Stalled evaluation.
func NewStalled(agentID, instruction, reason string) Evaluation {
	return Evaluation{Variant: Stalled, AgentID: agentID, Instruction: instruction, Reason: reason}
}

// NewAwaitingApproval builds an AwaitingApproval evaluation. Pass hasNextStep
// false to indicate that approval should go straight to the complete step.
func NewAwaitingApproval(nextStep plan.Step, hasNextStep bool, context string) Evaluation {
	return Evaluation{
		Variant:     AwaitingApproval,
		NextStep:    nextStep,
		HasNextStep: hasNextStep,
		Context:     context,
	}
}
