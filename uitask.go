// Package uitask bridges a single-threaded GUI toolkit's event loop and a
// background task runtime. GUI callbacks submit tasks for background
// execution — optionally blocking cooperatively until completion, optionally
// showing a progress window that mirrors the task's stdout — and task
// goroutines invoke GUI-toolkit operations safely by marshaling them onto
// the GUI thread through a pending-call relay drained by that thread.
//
// Basic usage with the package-level runtime:
//
//	bridge := fynebridge.New(app, mainWindow)
//	uitask.Start(bridge, nil)
//	defer uitask.Stop()
//
//	// inside a GUI callback:
//	_, err := uitask.Execute(func(ctx context.Context) (interface{}, error) {
//		fmt.Println("working...")
//		uitask.UIDo(func() { label.SetText("halfway") })
//		return nil, nil
//	}, nil)
//
// Explicit Runtime instances (uitask.New) carry the same API for hosts that
// want their own lifecycle; the package-level functions manage a single
// process-wide runtime and enforce that at most one exists at a time.
package uitask

import "sync"

var (
	defaultMu      sync.Mutex
	defaultRuntime *Runtime
)

// Start creates and starts the process-wide default runtime bound to the
// given toolkit. It fails with ErrAlreadyRunning if a previous Start was not
// matched by Stop — at most one default runtime exists at a time.
func Start(tk Toolkit, config *Config) error {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultRuntime != nil {
		return ErrAlreadyRunning
	}
	if config == nil {
		config = DefaultConfig()
	}
	config.Toolkit = tk

	r := New(config)
	if err := r.Start(); err != nil {
		return err
	}
	defaultRuntime = r
	return nil
}

// Stop stops the default runtime, blocking until its dispatcher goroutine
// has exited and outstanding tasks have completed. ErrNotRunning without a
// prior Start.
func Stop() error {
	defaultMu.Lock()
	r := defaultRuntime
	defaultRuntime = nil
	defaultMu.Unlock()

	if r == nil {
		return ErrNotRunning
	}
	return r.Stop()
}

// Default returns the default runtime, or nil before Start/after Stop.
func Default() *Runtime {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	return defaultRuntime
}

// Schedule submits a task to the default runtime. See Runtime.Schedule.
func Schedule(task Task) (*TaskHandle, error) {
	r := Default()
	if r == nil {
		return nil, ErrNotRunning
	}
	return r.Schedule(task)
}

// Execute submits a task from a GUI callback on the default runtime. See
// Runtime.Execute.
func Execute(task Task, opts *ExecuteOptions) (*Execution, error) {
	r := Default()
	if r == nil {
		return nil, ErrNotRunning
	}
	return r.Execute(task, opts)
}

// UICall marshals fn onto the GUI thread through the default runtime and
// blocks until it has run there. See Runtime.UICall.
func UICall(fn func() (interface{}, error)) (interface{}, error) {
	r := Default()
	if r == nil {
		return nil, ErrNotRunning
	}
	return r.UICall(fn)
}

// UIDo is UICall for functions with no result.
func UIDo(fn func()) error {
	r := Default()
	if r == nil {
		return ErrNotRunning
	}
	return r.UIDo(fn)
}
