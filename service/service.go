// Package service implements the External Adapter Seams / Command Surface:
// Start, Resume, Approve, Stop, GetAnswer, GetState. It is the host-facing
// API layer sitting in front of an engine.Engine and
// a state.Store, translating command-level errors into the sentinels
// hosts are expected to handle.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"goa.design/multiagent/adaptive"
	"goa.design/multiagent/audit"
	"goa.design/multiagent/command"
	"goa.design/multiagent/config"
	"goa.design/multiagent/engine"
	"goa.design/multiagent/sequential"
	"goa.design/multiagent/state"
)

// Sentinel errors returned by the command surface's "Command errors" table.
var (
	ErrAlreadyStarted     = errors.New("service: instance already started")
	ErrNotFound           = errors.New("service: instance not found")
	ErrNotPaused          = errors.New("service: instance is not paused")
	ErrNoPendingApproval  = errors.New("service: instance has no pending approval")
	ErrApprovalIDMismatch = errors.New("service: approvalId does not match the pending approval")
	ErrNotCompleted       = errors.New("service: instance has not completed")
)

// Kind selects which orchestrator a Start call launches.
type Kind int

const (
	// Adaptive starts an AdaptiveLoopWorkflow instance.
	Adaptive Kind = iota
	// Sequential starts a SequentialPlanWorkflow instance.
	Sequential
)

// StartInput is the host-facing request to begin a new orchestrator
// instance.
type StartInput struct {
	// InstanceID is optional; a v4 UUID is generated when empty.
	InstanceID string
	Kind       Kind
	Task       string
	Options    map[string]any
	Budget     state.Budget
	TaskQueue  string
}

// Service is the command surface implementation. Construct with New.
type Service struct {
	eng         engine.Engine
	store       state.Store
	idempotency IdempotencyStore
}

// New builds a Service targeting eng for workflow operations and store for
// reading persisted state for GetState/GetAnswer. idem may be nil, in which
// case an in-process MemoryIdempotencyStore is used.
func New(eng engine.Engine, store state.Store, idem IdempotencyStore) *Service {
	if idem == nil {
		idem = NewMemoryIdempotencyStore()
	}
	return &Service{eng: eng, store: store, idempotency: idem}
}

// Start launches a new orchestrator instance. If idempotencyKey is non-empty
// and has already been used to start an instance, the previously assigned
// instance ID is returned instead of starting a duplicate run.
func (s *Service) Start(ctx context.Context, idempotencyKey string, in StartInput) (string, error) {
	if idempotencyKey != "" {
		if existing, ok, err := s.idempotency.Lookup(ctx, idempotencyKey); err != nil {
			return "", fmt.Errorf("service: idempotency lookup: %w", err)
		} else if ok {
			return existing, nil
		}
	}

	instanceID := in.InstanceID
	if instanceID == "" {
		instanceID = uuid.NewString()
	}

	var (
		workflowName string
		input        any
	)
	switch in.Kind {
	case Adaptive:
		workflowName = adaptive.WorkflowName
		input = adaptive.StartRequest{InstanceID: instanceID, Task: in.Task, Options: in.Options, Budget: in.Budget}
	case Sequential:
		workflowName = sequential.WorkflowName
		input = sequential.StartRequest{InstanceID: instanceID, Task: in.Task, Options: in.Options, Budget: in.Budget}
	default:
		return "", fmt.Errorf("service: unknown orchestrator kind %d", in.Kind)
	}

	_, err := s.eng.StartWorkflow(ctx, engine.WorkflowStartRequest{
		ID:        instanceID,
		Workflow:  workflowName,
		TaskQueue: in.TaskQueue,
		Input:     input,
	})
	if err != nil {
		if errors.Is(err, engine.ErrAlreadyStarted) {
			return "", fmt.Errorf("%w: %s", ErrAlreadyStarted, instanceID)
		}
		return "", fmt.Errorf("service: start workflow: %w", err)
	}

	if idempotencyKey != "" {
		if err := s.idempotency.Record(ctx, idempotencyKey, instanceID); err != nil {
			return "", fmt.Errorf("service: idempotency record: %w", err)
		}
	}
	return instanceID, nil
}

// StartWithRetry wraps Start with exponential backoff against transient
// engine errors (a momentarily unreachable Temporal server or Redis
// failover), leaving command errors like ErrAlreadyStarted to propagate
// immediately without retry.
func (s *Service) StartWithRetry(ctx context.Context, idempotencyKey string, in StartInput) (string, error) {
	return retryTransient(ctx, func() (string, error) {
		return s.Start(ctx, idempotencyKey, in)
	})
}

// Resume delivers the secondary resume(message) override: it unblocks a
// paused instance unconditionally, without checking an approvalId. This is
// distinct from Approve, which requires the approvalId to match the pending
// approval.
func (s *Service) Resume(ctx context.Context, instanceID, message string) error {
	snap, ok, err := s.store.Load(ctx, instanceID)
	if err != nil {
		return fmt.Errorf("service: load state: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, instanceID)
	}
	if snap.Status != state.Paused {
		return fmt.Errorf("%w: %s", ErrNotPaused, instanceID)
	}
	return s.signal(ctx, instanceID, command.SignalResume, command.Resume{Message: message})
}

// Approve delivers a targeted approve(approvalId, approved) command. It
// validates that approvalID matches the instance's currently pending
// approval before signaling.
func (s *Service) Approve(ctx context.Context, instanceID, approvalID string, approved bool) error {
	snap, ok, err := s.store.Load(ctx, instanceID)
	if err != nil {
		return fmt.Errorf("service: load state: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, instanceID)
	}
	if snap.Status != state.Paused {
		return fmt.Errorf("%w: %s", ErrNotPaused, instanceID)
	}
	pending := pendingApprovalID(snap)
	if pending == "" {
		return fmt.Errorf("%w: %s", ErrNoPendingApproval, instanceID)
	}
	if pending != approvalID {
		return fmt.Errorf("%w: got %s, want %s", ErrApprovalIDMismatch, approvalID, pending)
	}
	return s.signal(ctx, instanceID, command.SignalApprove, command.Approve{ApprovalID: approvalID, Approved: approved})
}

// Stop delivers stop(reason). It is only honored at the next step boundary
// and never interrupts an in-flight step.
func (s *Service) Stop(ctx context.Context, instanceID, reason string) error {
	return s.signal(ctx, instanceID, command.SignalStop, command.Stop{Reason: reason})
}

// GetState returns the last persisted HostState snapshot for instanceID,
// reading from the state.Store rather than querying the workflow directly —
// the persistence-callback seam is what makes this possible without the
// workflow itself staying reachable for a live query.
func (s *Service) GetState(ctx context.Context, instanceID string) (state.HostState, error) {
	snap, ok, err := s.store.Load(ctx, instanceID)
	if err != nil {
		return state.HostState{}, fmt.Errorf("service: load state: %w", err)
	}
	if !ok {
		return state.HostState{}, fmt.Errorf("%w: %s", ErrNotFound, instanceID)
	}
	return snap, nil
}

// GetAnswer returns the getAnswer extraction: the content of the last
// FINAL: line in the completed instance's message history. Returns
// ErrNotCompleted if the instance has not reached Completed status.
func (s *Service) GetAnswer(ctx context.Context, instanceID string) (string, error) {
	snap, err := s.GetState(ctx, instanceID)
	if err != nil {
		return "", err
	}
	if snap.Status != state.Completed {
		return "", fmt.Errorf("%w: %s", ErrNotCompleted, instanceID)
	}
	answer, ok := lastFinal(snap)
	if !ok {
		return "", fmt.Errorf("service: %s completed with no FINAL: line", instanceID)
	}
	return answer, nil
}

func (s *Service) signal(ctx context.Context, instanceID, name string, payload any) error {
	err := s.eng.SignalByID(ctx, instanceID, name, payload)
	if err == nil {
		return nil
	}
	if errors.Is(err, engine.ErrWorkflowNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, instanceID)
	}
	if errors.Is(err, engine.ErrWorkflowCompleted) {
		return fmt.Errorf("%w: %s", ErrNotCompleted, instanceID)
	}
	return err
}

func pendingApprovalID(snap state.HostState) string {
	if snap.Adaptive != nil && snap.Adaptive.PendingApproval != nil {
		return snap.Adaptive.PendingApproval.ApprovalID
	}
	return ""
}

func lastFinal(snap state.HostState) (string, bool) {
	if snap.Adaptive != nil {
		return audit.LastFinal(snap.Adaptive.MessageHistory)
	}
	if snap.Sequential != nil {
		return audit.LastFinal(snap.Sequential.MessageHistory)
	}
	return "", false
}
