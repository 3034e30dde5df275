// Package fynebridge adapts uitask to the Fyne toolkit: GUI-thread
// marshaling through fyne.Do and a progress window built from Fyne widgets,
// with an optional ANSI terminal output view.
package fynebridge

import (
	"fyne.io/fyne/v2"

	"github.com/phroun/uitask"
)

// Bridge implements uitask.Toolkit and uitask.WindowHost on top of a Fyne
// application.
type Bridge struct {
	app    fyne.App
	master fyne.Window
}

// New creates a bridge for the given application. master, when non-nil, is
// the window pop-up progress windows attach to; it may be nil, in which case
// pop-ups fall back to independent windows.
func New(app fyne.App, master fyne.Window) *Bridge {
	return &Bridge{app: app, master: master}
}

// Post marshals fn onto the Fyne event loop.
func (b *Bridge) Post(fn func()) {
	fyne.Do(fn)
}

// Pump is a no-op: Fyne's loop cannot be pumped manually. Cooperative waits
// still drain the call relay directly, so UICall stays deadlock-free; work
// posted through fyne.Do runs once the wait returns. Widgets other than the
// waited task's own updates freeze for the duration, which is the price of
// Wait on this toolkit — prefer Wait=false with a Callback in Fyne apps that
// must stay fully interactive.
func (b *Bridge) Pump() {}

// NewTaskWindow creates the progress window observing the given task.
func (b *Bridge) NewTaskWindow(h *uitask.TaskHandle, opts *uitask.WindowOptions) uitask.TaskWindow {
	return newExecWindow(b, h, opts)
}
