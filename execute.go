package uitask

import (
	"fmt"
	"time"
)

// ExecuteOptions configures one Execute call. The zero value is NOT the
// default; use DefaultExecuteOptions (Execute treats nil as the default).
type ExecuteOptions struct {
	// Wait blocks the calling (GUI) thread cooperatively until the task
	// completes, then returns the task's error. Default true.
	Wait bool

	// Visible shows the progress window. The window is created either
	// way (hidden when false) so its handle stays inspectable. Default
	// true.
	Visible bool

	// PopUp makes the window modal, blocking interaction with other
	// windows until the task completes. Default false.
	PopUp bool

	// Callback, if set, is invoked on the GUI thread when the task
	// completes, with the task's result and error. Works with and
	// without Wait.
	Callback func(result interface{}, err error)

	// Name overrides the display name derived from the task function.
	Name string

	// Message is the window's message label; "Executing <name>" when
	// empty.
	Message string

	// ShowStdout mirrors text written to os.Stdout into the window's
	// output area for the duration of the task. Default true.
	ShowStdout bool

	// ShowExceptions displays the task's error in the window on failure.
	// Default true.
	ShowExceptions bool

	// ShowProgressBar shows an indeterminate progress indicator while the
	// task runs. Default true.
	ShowProgressBar bool

	// Window appearance.
	Title        string // default "Async execution"
	Resizable    bool   // default false
	Console      bool   // ANSI terminal output view instead of plain text
	StatusPrefix string // default "Last status: "
	Width        int    // output area width hint, pixels
	Height       int    // output area height hint, pixels
}

// DefaultExecuteOptions returns the defaults described on ExecuteOptions.
func DefaultExecuteOptions() *ExecuteOptions {
	return &ExecuteOptions{
		Wait:            true,
		Visible:         true,
		ShowStdout:      true,
		ShowExceptions:  true,
		ShowProgressBar: true,
	}
}

// Execution ties together a scheduled task and its progress window.
type Execution struct {
	handle *TaskHandle
	window TaskWindow
}

// Handle returns the underlying task handle.
func (e *Execution) Handle() *TaskHandle {
	return e.handle
}

// Window returns the progress window, or nil when the bound toolkit cannot
// host windows.
func (e *Execution) Window() TaskWindow {
	return e.window
}

// Execute submits a task from a GUI callback. It schedules the task on the
// runtime, optionally shows a progress window mirroring the task's stdout,
// and — with opts.Wait — blocks the GUI thread cooperatively until the task
// completes, returning the task's error to the caller.
//
// The cooperative wait services the call relay and the toolkit's pending
// events on every tick instead of blocking, so a task issuing UICall
// mid-execution cannot deadlock against its own waiter. Nested waiting
// Executes unwind in LIFO order: the innermost call returns first.
func (r *Runtime) Execute(task Task, opts *ExecuteOptions) (*Execution, error) {
	tk := r.config.Toolkit
	if tk == nil {
		return nil, ErrNoToolkit
	}
	if opts == nil {
		opts = DefaultExecuteOptions()
	}

	name := opts.Name
	if name == "" {
		name = taskName(task)
	}
	h := r.newHandle(name)

	exec := &Execution{handle: h}

	// The window must exist and the capture must be installed before the
	// task can run, or early output would be lost.
	var release func()
	if host, ok := tk.(WindowHost); ok {
		exec.window = host.NewTaskWindow(h, r.windowOptions(name, opts))
		if opts.ShowStdout {
			var err error
			release, err = CaptureStdout(&windowSink{toolkit: tk, window: exec.window})
			if err != nil {
				r.logger.WarnCat(CatCapture, "Stdout capture unavailable: %v", err)
				release = nil
			}
		}
	} else if opts.Visible {
		r.logger.WarnCat(CatExec, "Toolkit %T cannot host windows; running without a progress window", tk)
	}

	window := exec.window
	callback := opts.Callback
	h.addDoneHook(func() {
		// Runs on the task goroutine: stop mirroring first, then hand
		// the window transition and the callback to the GUI thread.
		if release != nil {
			release()
		}
		_, taskErr := h.Result()
		tk.Post(func() {
			if window != nil {
				window.Finish(taskErr)
			}
			if callback != nil {
				callback(h.Result())
			}
		})
	})

	if err := r.submitTask(h, task); err != nil {
		if release != nil {
			release()
		}
		if window != nil {
			window.Close()
		}
		return nil, err
	}

	r.logger.DebugCat(CatExec, "Task %d (%s) submitted (wait: %v, visible: %v)", h.id, name, opts.Wait, opts.Visible)

	if !opts.Wait {
		return exec, nil
	}

	r.waitCooperative(h)
	_, err := h.Result()
	return exec, err
}

// windowOptions maps ExecuteOptions onto the window settings.
func (r *Runtime) windowOptions(name string, opts *ExecuteOptions) *WindowOptions {
	message := opts.Message
	if message == "" {
		message = fmt.Sprintf("Executing %s", name)
	}
	title := opts.Title
	if title == "" {
		title = "Async execution"
	}
	statusPrefix := opts.StatusPrefix
	if statusPrefix == "" {
		statusPrefix = "Last status: "
	}
	return &WindowOptions{
		Title:           title,
		Message:         message,
		Resizable:       opts.Resizable,
		ShowProgressBar: opts.ShowProgressBar,
		ShowStdout:      opts.ShowStdout,
		ShowExceptions:  opts.ShowExceptions,
		Console:         opts.Console,
		StatusPrefix:    statusPrefix,
		PopUp:           opts.PopUp,
		Visible:         opts.Visible,
		Width:           opts.Width,
		Height:          opts.Height,
	}
}

// waitCooperative is the manual event-loop pump: drain the relay, let the
// toolkit process pending events, sleep a tick, re-check completion. Never
// an OS-level block — the GUI thread keeps servicing relay requests issued
// by the very task being waited on.
func (r *Runtime) waitCooperative(h *TaskHandle) {
	tick := r.config.WaitTick
	for !h.Completed() {
		r.relay.Drain()
		r.config.Toolkit.Pump()
		time.Sleep(tick)
	}
	// One more round so the completion work posted by the done hook
	// (window transition, callback) runs before control returns.
	r.relay.Drain()
	r.config.Toolkit.Pump()
}

// windowSink forwards captured stdout chunks to the window on the GUI
// thread. Invoked on the capture copier goroutine.
type windowSink struct {
	toolkit Toolkit
	window  TaskWindow
}

func (s *windowSink) Write(p []byte) (int, error) {
	text := string(p)
	s.toolkit.Post(func() {
		s.window.AppendOutput(text)
	})
	return len(p), nil
}
