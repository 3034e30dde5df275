// Package gtkbridge adapts uitask to GTK3 via gotk3: GUI-thread marshaling
// through glib.IdleAdd and event pumping through gtk.MainIterationDo.
//
// GTK has no window host here; applications own their GTK widgets and use
// UICall to touch them from tasks (see cmd/uitask-demo-gtk).
package gtkbridge

import (
	"github.com/gotk3/gotk3/glib"
	"github.com/gotk3/gotk3/gtk"
)

// Bridge implements uitask.Toolkit for GTK3.
type Bridge struct{}

// New creates the GTK bridge. gtk.Init must have run already.
func New() *Bridge {
	return &Bridge{}
}

// Post marshals fn onto the GTK main loop as an idle source.
func (*Bridge) Post(fn func()) {
	glib.IdleAdd(fn)
}

// Pump processes all pending GTK events without blocking. GUI thread only.
func (*Bridge) Pump() {
	for gtk.EventsPending() {
		gtk.MainIterationDo(false)
	}
}
