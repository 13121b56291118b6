package engine

import "errors"

// Sentinel errors returned by engine operations.
var (
	// ErrNoCycle is returned by Run when no cycle has been loaded.
	ErrNoCycle = errors.New("engine: no cycle loaded")

	// ErrAlreadyRunning is returned by Run when a cycle is executing.
	ErrAlreadyRunning = errors.New("engine: cycle already running")

	// ErrCycleRunning is returned by Load while a cycle is executing;
	// the previously loaded cycle remains active.
	ErrCycleRunning = errors.New("engine: cannot load while running")

	// ErrInvalidPhaseIndex is returned by SkipToPhase for an out-of-range
	// target. The running phase is not disturbed.
	ErrInvalidPhaseIndex = errors.New("engine: invalid phase index")
)
