package phase

import "errors"

// State-machine level errors, distinct from the per-message
// preprocessor.Err* taxonomy: these describe the machine's own state
// rather than anything wrong with a participant's message.
var (
	// ErrWrongPhase is returned when a message kind does not match the
	// phase currently collecting requests.
	ErrWrongPhase = errors.New("phase: message does not belong to the current phase")
	// ErrShuttingDown names the machine-is-stopping condition. The Submit*
	// methods do not return it: a submitter blocked while the machine stops
	// returns only when its own context ends, with that context's error.
	ErrShuttingDown = errors.New("phase: machine is shutting down")
)
