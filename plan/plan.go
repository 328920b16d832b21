// Package plan implements the PlanStep sum type shared by the adaptive loop
// and sequential plan orchestrators: a single agent invocation, or a bounded
// group of invocations meant to run concurrently.
package plan

import "errors"

// ErrNestedParallel is returned by Group when one of the supplied steps is
// itself a parallel group. Nesting depth is capped at one level: a Parallel
// group may only contain Sequential steps.
var ErrNestedParallel = errors.New("plan: parallel group cannot contain another parallel group")

// ErrEmptyParallel is returned by Group when called with no sub-steps.
var ErrEmptyParallel = errors.New("plan: parallel group requires at least one step")

type (
	// Step is the sum type at the heart of both orchestrators' plans. Exactly
	// one of the two constructors below produces a valid Step; the Kind field
	// discriminates which shape is populated.
	Step struct {
		Kind Kind

		// AgentID and Instruction are populated when Kind == Sequential.
		AgentID     string
		Instruction string

		// Steps is populated when Kind == Parallel. Every element is itself a
		// Sequential step — Group guarantees this at construction time by
		// rejecting any sub-step that is itself a Parallel group.
		Steps []Step
	}

	// Kind discriminates the two Step shapes.
	Kind int
)

const (
	// Sequential identifies a single agent invocation.
	Sequential Kind = iota
	// Parallel identifies a bounded group of Sequential invocations meant to
	// run concurrently, with results folded back in submission order.
	Parallel
)

// Of constructs a single-agent Sequential step. This is one of exactly two
// constructors for Step. Step's fields are exported, so a Step built as a
// struct literal is not checked.
func Of(agentID, instruction string) Step {
	return Step{Kind: Sequential, AgentID: agentID, Instruction: instruction}
}

// Group constructs a Parallel step from one or more Sequential sub-steps. It
// returns ErrEmptyParallel if steps is empty and ErrNestedParallel if any
// element is itself a Parallel group, enforcing the nesting-depth-one rule.
func Group(steps ...Step) (Step, error) {
	if len(steps) == 0 {
		return Step{}, ErrEmptyParallel
	}
	for _, s := range steps {
		if s.Kind == Parallel {
			return Step{}, ErrNestedParallel
		}
	}
	cp := make([]Step, len(steps))
	copy(cp, steps)
	return Step{Kind: Parallel, Steps: cp}, nil
}

// IsParallel reports whether s is a Parallel group.
func (s Step) IsParallel() bool { return s.Kind == Parallel }
