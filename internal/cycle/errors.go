package cycle

import "errors"

// Domain errors for the cycle package.
//
// Check with errors.Is():
//
//	if errors.Is(err, cycle.ErrNotFound) {
//	    // handle missing cycle
//	}
var (
	// ErrNotFound is returned when a cycle ID or slug does not exist.
	ErrNotFound = errors.New("cycle: not found")

	// ErrInvalidDocument is returned when a cycle description cannot be parsed.
	ErrInvalidDocument = errors.New("cycle: invalid document")

	// ErrNoPhases is returned when a cycle description has no phases array.
	ErrNoPhases = errors.New("cycle: no phases")

	// ErrInvalidSlug is returned when a slug is empty or badly formed.
	ErrInvalidSlug = errors.New("cycle: invalid slug")

	// ErrInvalidDirection is returned when a motor step direction is neither
	// "cw" nor "ccw".
	ErrInvalidDirection = errors.New("cycle: invalid motor direction")

	// ErrInvalidTrigger is returned when a sensor trigger references an
	// unknown sensor kind.
	ErrInvalidTrigger = errors.New("cycle: invalid sensor trigger")
)
