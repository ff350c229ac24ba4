package engine

import "errors"

// Usage errors are rejected synchronously from the submission surface,
// per the taxonomy in the design's error-handling section.
var (
	ErrNotInitialized     = errors.New("engine: not initialized")
	ErrAlreadyInitialized = errors.New("engine: already initialized")
	ErrShuttingDown       = errors.New("engine: shutdown in progress")
	ErrContextNotFound    = errors.New("engine: context not registered")
	ErrInvalidTopology    = errors.New("engine: invalid topology configuration")
)

// backendFatal reports a backend error (GPU, collective, PS) the way the
// design mandates: logged by the caller, then fatal. The core has no
// retry and no mechanism to route a failed slice back to its callback,
// so a stage loop that hits one must not silently swallow it.
type backendFatal struct {
	stage Stage
	err   error
}

func (e *backendFatal) Error() string {
	return "engine: fatal backend error in stage " + e.stage.String() + ": " + e.err.Error()
}

func (e *backendFatal) Unwrap() error {
	return e.err
}
