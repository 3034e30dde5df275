package uitask

import "errors"

// Lifecycle and binding errors. Callers compare with errors.Is.
var (
	// ErrAlreadyRunning is returned by Start when the runtime is running.
	ErrAlreadyRunning = errors.New("uitask: runtime already running; call Stop first")

	// ErrNotRunning is returned by Stop, Schedule, Execute and UICall when
	// the runtime has not been started or has already been stopped.
	ErrNotRunning = errors.New("uitask: runtime not running; call Start first")

	// ErrStopTimeout is returned by Stop when Config.StopTimeout elapsed
	// before all outstanding tasks returned. The runtime is still marked
	// stopped; abandoned task goroutines keep running until their context
	// cancellation is observed.
	ErrStopTimeout = errors.New("uitask: timed out waiting for outstanding tasks")

	// ErrNoToolkit is returned by Execute and UICall when the runtime was
	// built without a Toolkit.
	ErrNoToolkit = errors.New("uitask: no toolkit bound; set Config.Toolkit")
)
