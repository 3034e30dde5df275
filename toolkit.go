package uitask

import "sync"

// Toolkit is the GUI side of the bridge. Implementations adapt one GUI
// toolkit's native marshaling and event processing; see pkg/fynebridge,
// pkg/gtkbridge and pkg/qtbridge.
type Toolkit interface {
	// Post asks the toolkit to run fn on the GUI thread soon, via its
	// native idle/timer mechanism. Safe from any goroutine.
	Post(fn func())

	// Pump processes the toolkit's pending events without blocking. It is
	// called on the GUI thread by the cooperative wait loop. Toolkits
	// whose loops cannot be pumped manually implement it as a no-op.
	Pump()
}

// WindowHost is implemented by toolkits that can show a progress window for
// a running task.
type WindowHost interface {
	// NewTaskWindow creates a window observing the given task. Called on
	// the GUI thread.
	NewTaskWindow(h *TaskHandle, opts *WindowOptions) TaskWindow
}

// TaskWindow is the progress window for one in-flight task. All methods must
// be called on the GUI thread; the bridge routes calls there.
type TaskWindow interface {
	// AppendOutput adds captured stdout text to the window's output area
	// and updates the status line with the last non-empty line.
	AppendOutput(text string)

	// Finish transitions the window from running to completed (nil) or
	// errored. A completed window that was shown closes itself; an
	// errored one stays open showing the failure.
	Finish(err error)

	// Close destroys the window. Closing never cancels the task.
	Close()

	// Showing reports whether the window is currently on screen.
	Showing() bool
}

// WindowOptions carries the progress-window settings of one Execute call.
type WindowOptions struct {
	Title           string // Window title (default "Task execution")
	Message         string // Message label text ("Executing <name>" when empty)
	Resizable       bool   // Window resizability (default false)
	ShowProgressBar bool   // Indeterminate progress indicator
	ShowStdout      bool   // Scrolling output area fed by stdout capture
	ShowExceptions  bool   // Display the task error on failure
	Console         bool   // ANSI terminal output view instead of plain text
	StatusPrefix    string // Status line prefix (default "Last status: ")
	PopUp           bool   // Modal: block interaction with other windows
	Visible         bool   // Show immediately (hidden otherwise)
	Width           int    // Output area width hint, pixels
	Height          int    // Output area height hint, pixels
}

// ManualToolkit is a queue-backed Toolkit for headless hosts and tests. The
// goroutine that calls Pump plays the part of the GUI thread.
type ManualToolkit struct {
	mu    sync.Mutex
	queue []func()
}

// NewManualToolkit creates an empty manual toolkit.
func NewManualToolkit() *ManualToolkit {
	return &ManualToolkit{}
}

// Post queues fn for the next Pump.
func (t *ManualToolkit) Post(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.queue = append(t.queue, fn)
}

// Pump runs everything posted so far, in order. Functions posted while a
// pump is running wait for the next pump.
func (t *ManualToolkit) Pump() {
	t.mu.Lock()
	batch := t.queue
	t.queue = nil
	t.mu.Unlock()

	for _, fn := range batch {
		fn()
	}
}

// PendingPosts reports how many posted functions await the next Pump.
func (t *ManualToolkit) PendingPosts() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.queue)
}
