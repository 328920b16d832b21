// Package audit provides the append-only message-history helpers shared by
// the adaptive and sequential orchestrators, keeping the verbatim line
// prefixes of the audit log format in one place instead of scattered string
// literals.
package audit

import "strings"

// Verbatim prefixes of the audit log format. Test suites and getAnswer
// parse these, so they must never change shape.
const (
	TaskLedger        = "TASK_LEDGER:"
	UpdatedTaskLedger = "UPDATED_TASK_LEDGER:"
	Orchestrator      = "ORCHESTRATOR:"
	CompletePrefix    = "COMPLETE:"
	Satisfied         = "SATISFIED:"
	FailedPrefix      = "FAILED:"
	Final             = "FINAL:"
	HitlRequest       = "HITL_REQUEST:"
	HitlApproved      = "HITL_APPROVED:"
	Cost              = "COST:"
)

// Append returns history with a new line formed from prefix and body, space
// separated the same way every other writer in this module does it.
func Append(history []string, prefix, body string) []string {
	return append(history, prefix+" "+body)
}

// AgentLine formats an agent's response line using its own ID as the
// prefix ("<agentId>:").
func AgentLine(agentID, body string) string {
	return agentID + ": " + body
}

// LastFinal implements getAnswer's extraction rule: the content of the last
// message in history that begins with the Final prefix. ok is false if no
// such line exists.
func LastFinal(history []string) (answer string, ok bool) {
	for i := len(history) - 1; i >= 0; i-- {
		if rest, found := strings.CutPrefix(history[i], Final+" "); found {
			return rest, true
		}
	}
	return "", false
}
