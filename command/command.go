// Package command defines the signal names and payloads shared by both
// orchestrators and the service command surface: resume, approve, and stop.
// Keeping these in one package lets service.Approve and the workflow's own
// SignalChannel lookups agree on exact names and shapes without either
// package importing the other.
package command

const (
	// SignalApprove is the channel name the workflow listens on for a
	// targeted approve(approvalId, approved) command.
	SignalApprove = "approve"
	// SignalResume is the channel name for the secondary resume(message)
	// override path: it unblocks a paused instance without checking an
	// approvalId, treated as an unconditional approved=true.
	SignalResume = "resume"
	// SignalStop is the channel name for stop(reason). It is only honored
	// at the next step boundary and never interrupts an in-flight step.
	SignalStop = "stop"
)

type (
	// Approve is the payload delivered on SignalApprove.
	Approve struct {
		ApprovalID string
		Approved   bool
	}

	// Resume is the payload delivered on SignalResume.
	Resume struct {
		Message string
	}

	// Stop is the payload delivered on SignalStop.
	Stop struct {
		Reason string
	}
)
