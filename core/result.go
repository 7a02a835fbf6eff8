package core

// Status is the terminal classification of a run. Exactly one status is
// produced per run.
type Status string

const (
	// StatusApproved means the termination policy accepted the final
	// artifact.
	StatusApproved Status = "approved"
	// StatusExhausted means the round budget was consumed without
	// agreement.
	StatusExhausted Status = "exhausted"
	// StatusFailed means an unrecoverable error ended the run.
	StatusFailed Status = "failed"
)

// FailureKind narrows the cause of a failed run.
type FailureKind string

const (
	// FailureConfig marks a run rejected before its first turn.
	FailureConfig FailureKind = "config_invalid"
	// FailureTurnFormat marks a malformed agent turn that survived the
	// corrective retry.
	FailureTurnFormat FailureKind = "turn_format"
	// FailureUnknownCapability marks a tool request for a capability the
	// connector does not know. This is a configuration defect and always
	// fatal.
	FailureUnknownCapability FailureKind = "unknown_capability"
	// FailureCancelled marks external cancellation.
	FailureCancelled FailureKind = "cancelled"
	// FailureModel marks a permanent model inference error.
	FailureModel FailureKind = "model"
)

// RunResult is the outcome of one run. Transcript always carries the full
// partial transcript collected up to the terminal state, so callers can
// inspect what happened even when the run failed or exhausted its budget.
type RunResult struct {
	RunID      string
	Status     Status
	Artifact   string
	RoundsUsed int

	// FailureKind and FailureTurn are set only for StatusFailed.
	// FailureTurn is the sequence number of the last appended turn when
	// the failure occurred (0 when no turn had been taken yet).
	FailureKind FailureKind
	FailureTurn int
	Err         error

	Transcript []Turn
}
