// Package registry defines the Agent Registry Interface: the host-supplied,
// read-only lookup the orchestrators use to discover agents by role and to
// invoke them by ID. The core never constructs agents itself.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrAgentNotFound is returned by Invoke when agentID has no registered
// AgentInfo.
var ErrAgentNotFound = errors.New("registry: agent not found")

type (
	// AgentInfo describes one registered agent.
	AgentInfo struct {
		// ID uniquely identifies the agent within the registry.
		ID string
		// Role is an optional coarse tag (e.g. "weather", "booking") used by
		// AgentsWithRole lookups.
		Role string
		// Description is a human-readable summary surfaced to planners.
		Description string
	}

	// InvokeRequest is the opaque payload passed to an agent invocation. The
	// core treats Instruction/Payload as transparent; only the host-side
	// AgentInvoker interprets them.
	InvokeRequest struct {
		Instruction string
		// Payload carries any structured data a particular agent needs
		// beyond the free-form instruction string.
		Payload any
		// ResultAs names the expected result type/shape, resolving the
		// source material's ambiguity between "responseAs" and "resultAs"
		// in favor of the latter.
		ResultAs string
	}

	// AgentInvoker is the host-implemented seam the core calls through to
	// run an agent. Implementations must be safe for concurrent use: the
	// parallel execution primitive calls Invoke concurrently for every
	// sub-step of a parallel group.
	AgentInvoker interface {
		Invoke(ctx context.Context, agentID string, req InvokeRequest) (string, error)
	}

	// AgentRegistry is the read-only directory of agents a host exposes to
	// the orchestrators: role-based discovery plus invocation by ID.
	AgentRegistry interface {
		AgentInvoker
		// AgentsWithRole returns every registered agent tagged with role, in
		// registration order. An empty slice (not an error) means no match.
		AgentsWithRole(role string) []AgentInfo
	}

	// StaticRegistry is a concurrency-safe AgentRegistry backed by an
	// in-process map, suitable for hosts that wire a fixed agent roster at
	// startup and an AgentInvoker for dispatch.
	StaticRegistry struct {
		mu      sync.RWMutex
		agents  map[string]AgentInfo
		order   []string
		invoker AgentInvoker
	}
)

// NewStaticRegistry builds a StaticRegistry that dispatches invocations
// through invoker. Call Register for each agent before first use.
func NewStaticRegistry(invoker AgentInvoker) *StaticRegistry {
	return &StaticRegistry{
		agents:  make(map[string]AgentInfo),
		invoker: invoker,
	}
}

// Register adds or replaces an agent's directory entry. Registration order
// is preserved for AgentsWithRole so hosts get deterministic iteration.
func (r *StaticRegistry) Register(info AgentInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.agents[info.ID]; !exists {
		r.order = append(r.order, info.ID)
	}
	r.agents[info.ID] = info
}

// AgentsWithRole returns every registered agent tagged with role.
func (r *StaticRegistry) AgentsWithRole(role string) []AgentInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var matches []AgentInfo
	for _, id := range r.order {
		if info := r.agents[id]; info.Role == role {
			matches = append(matches, info)
		}
	}
	return matches
}

// Invoke dispatches req to the agent identified by agentID via the
// registry's AgentInvoker. Returns ErrAgentNotFound if agentID is not
// registered.
func (r *StaticRegistry) Invoke(ctx context.Context, agentID string, req InvokeRequest) (string, error) {
	r.mu.RLock()
	_, ok := r.agents[agentID]
	r.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrAgentNotFound, agentID)
	}
	return r.invoker.Invoke(ctx, agentID, req)
}
