package uitask

import "time"

// Config holds configuration options for a Runtime
type Config struct {
	// Debug enables debug logging for the categories listed in
	// DebugCategories (all categories when the list is empty).
	Debug           bool
	DebugCategories []LogCategory

	// Toolkit is the GUI side of the bridge. It may be nil for runtimes
	// that only ever schedule background work, in which case Execute and
	// UICall fail with ErrNoToolkit.
	Toolkit Toolkit

	// WaitTick is the poll interval of the cooperative wait loop used by
	// Execute with Wait set. Defaults to 10ms.
	WaitTick time.Duration

	// StopTimeout bounds how long Stop waits for outstanding tasks after
	// cancelling their contexts. Zero means wait forever.
	StopTimeout time.Duration

	// Logger overrides the logger built from Debug/DebugCategories.
	Logger *Logger
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Debug:    false,
		WaitTick: 10 * time.Millisecond,
	}
}
