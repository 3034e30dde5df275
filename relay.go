package uitask

import (
	"fmt"
	"sync"
)

// PendingCall is a deferred invocation destined for the GUI thread. The
// submitting goroutine blocks on Wait until the GUI thread has executed the
// callable during a drain and filled the result slot.
type PendingCall struct {
	fn     func() (interface{}, error)
	done   chan struct{}
	result interface{}
	err    error
}

// Done returns a channel closed once the call has executed.
func (c *PendingCall) Done() <-chan struct{} {
	return c.done
}

// Wait blocks until the call has executed on the GUI thread and returns its
// result. An error returned by the callable, or a panic recovered from it,
// surfaces here in the submitter's context.
func (c *PendingCall) Wait() (interface{}, error) {
	<-c.done
	return c.result, c.err
}

// Relay is the thread-safe queue of pending GUI-thread invocations. Any
// goroutine may submit; only the GUI thread drains.
type Relay struct {
	mu     sync.Mutex
	queue  []*PendingCall
	logger *Logger

	// notify, when set, is invoked (outside the lock) whenever the queue
	// transitions from empty to non-empty, so the owner can arrange a
	// drain on the GUI thread.
	notify func()
}

// NewRelay creates a relay. A nil logger disables relay logging.
func NewRelay(logger *Logger) *Relay {
	if logger == nil {
		logger = NewLogger(false)
	}
	return &Relay{logger: logger}
}

// SetNotify installs the queue-went-non-empty hook.
func (r *Relay) SetNotify(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notify = fn
}

// Submit appends a pending call to the queue. Safe from any goroutine.
func (r *Relay) Submit(fn func() (interface{}, error)) *PendingCall {
	call := &PendingCall{
		fn:   fn,
		done: make(chan struct{}),
	}

	r.mu.Lock()
	r.queue = append(r.queue, call)
	wasEmpty := len(r.queue) == 1
	notify := r.notify
	r.mu.Unlock()

	r.logger.TraceCat(CatRelay, "Call submitted (queue was empty: %v)", wasEmpty)
	if wasEmpty && notify != nil {
		notify()
	}
	return call
}

// Pending reports the number of queued calls.
func (r *Relay) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.queue)
}

// Drain executes every call queued at entry, in FIFO order, and returns how
// many ran. It must only be called from the GUI thread. Calls submitted while
// a drain is running are left for the next drain. A failing or panicking
// callable never takes the drain loop down; its error is stored in the
// call's result slot for the submitter.
func (r *Relay) Drain() int {
	r.mu.Lock()
	batch := r.queue
	r.queue = nil
	r.mu.Unlock()

	if len(batch) == 0 {
		return 0
	}

	r.logger.DebugCat(CatRelay, "Draining %d pending call(s)", len(batch))
	for _, call := range batch {
		r.run(call)
	}
	return len(batch)
}

// run executes one pending call, converting panics into errors.
func (r *Relay) run(call *PendingCall) {
	defer close(call.done)
	defer func() {
		if v := recover(); v != nil {
			call.err = fmt.Errorf("uitask: panic in relayed call: %v", v)
			r.logger.ErrorCat(CatRelay, "Relayed call panicked: %v", v)
		}
	}()
	call.result, call.err = call.fn()
}
