// Package qtbridge adapts uitask to Qt via miqt: a recurring QTimer on the
// GUI thread runs posted work, and pumping goes through
// QCoreApplication::processEvents.
package qtbridge

import (
	"sync"

	"github.com/mappu/miqt/qt"
)

// DefaultInterval is the drain timer period in milliseconds.
const DefaultInterval = 25

// Bridge implements uitask.Toolkit for Qt.
type Bridge struct {
	mu    sync.Mutex
	queue []func()
	timer *qt.QTimer
}

// New creates the Qt bridge with its drain timer parented to the given
// object (typically the main window). Must be called on the Qt main thread
// after the QApplication exists. interval <= 0 selects DefaultInterval.
func New(parent *qt.QObject, interval int) *Bridge {
	if interval <= 0 {
		interval = DefaultInterval
	}

	b := &Bridge{}
	b.timer = qt.NewQTimer2(parent)
	b.timer.OnTimeout(func() {
		b.runPosted()
	})
	b.timer.Start(interval)
	return b
}

// Post queues fn for the next timer tick on the Qt main thread.
func (b *Bridge) Post(fn func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.queue = append(b.queue, fn)
}

// Pump processes pending Qt events and any posted work. GUI thread only.
func (b *Bridge) Pump() {
	b.runPosted()
	qt.QCoreApplication_ProcessEvents()
}

// runPosted executes everything posted so far, in order.
func (b *Bridge) runPosted() {
	b.mu.Lock()
	batch := b.queue
	b.queue = nil
	b.mu.Unlock()

	for _, fn := range batch {
		fn()
	}
}
