package core

import (
	"errors"
	"fmt"
)

// ErrConfigInvalid marks a run configuration rejected before any turn is
// taken. It is always fatal and produces no partial run.
var ErrConfigInvalid = errors.New("run config invalid")

// ErrCancelled marks a run aborted through external cancellation at a
// suspension point. The runner maps it to a Failed result with a
// distinguished cancelled reason.
var ErrCancelled = errors.New("run cancelled")

// TurnFormatError reports a malformed turn produced by an agent: unparseable
// structured output or missing required fields for its kind. The runner
// retries the offending agent once with a corrective prompt before treating
// the error as fatal.
type TurnFormatError struct {
	Speaker string
	Reason  string
}

func (e *TurnFormatError) Error() string {
	return fmt.Sprintf("malformed turn from %s: %s", e.Speaker, e.Reason)
}

// AsTurnFormatError unwraps err into a *TurnFormatError if present.
func AsTurnFormatError(err error) (*TurnFormatError, bool) {
	var tfe *TurnFormatError
	if errors.As(err, &tfe) {
		return tfe, true
	}
	return nil, false
}
