package temporal

import (
	"errors"

	"go.temporal.io/api/serviceerror"

	"goa.design/multiagent/engine"
)

// mapSignalError translates Temporal service errors into the engine's
// backend-agnostic sentinels so the service package can classify command
// failures (resume/approve/stop against a missing or finished instance)
// without importing the Temporal SDK.
func mapSignalError(err error) error {
	if err == nil {
		return nil
	}
	var notFound *serviceerror.NotFound
	if errors.As(err, &notFound) {
		return engine.ErrWorkflowNotFound
	}
	var failedPrecondition *serviceerror.FailedPrecondition
	if errors.As(err, &failedPrecondition) {
		return engine.ErrWorkflowCompleted
	}
	return err
}
