package uitask

import (
	"context"
	"reflect"
	"runtime"
	"strings"
	"sync"
)

// Task is a unit of background work. The context is cancelled when the
// runtime stops, so long-running tasks should watch ctx.Done().
type Task func(ctx context.Context) (interface{}, error)

// TaskHandle tracks one scheduled task: completion, result and error.
type TaskHandle struct {
	id   int
	name string

	completeChan chan struct{}

	mu        sync.RWMutex
	settled   bool // result slot filled; hooks run or running
	completed bool
	result    interface{}
	err       error
	doneHooks []func()
}

func newTaskHandle(id int, name string) *TaskHandle {
	return &TaskHandle{
		id:           id,
		name:         name,
		completeChan: make(chan struct{}),
	}
}

// ID returns the runtime-assigned task id.
func (h *TaskHandle) ID() int {
	return h.id
}

// Name returns the task's display name, derived from the task function's
// symbol name unless overridden.
func (h *TaskHandle) Name() string {
	return h.name
}

// Done returns a channel closed when the task has completed.
func (h *TaskHandle) Done() <-chan struct{} {
	return h.completeChan
}

// Completed reports whether the task has finished (normally or with error).
func (h *TaskHandle) Completed() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.completed
}

// Result returns the task's result and error. Both are zero until Completed
// reports true.
func (h *TaskHandle) Result() (interface{}, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.result, h.err
}

// Wait blocks until the task completes and returns its result. It is an
// OS-level block: never call it from the GUI thread (use Execute with Wait
// set there instead), or the task's own UICalls could deadlock.
func (h *TaskHandle) Wait() (interface{}, error) {
	<-h.completeChan
	return h.Result()
}

// addDoneHook registers fn to run on the task goroutine right after the
// result slot is filled. Runs immediately if the task already settled.
func (h *TaskHandle) addDoneHook(fn func()) {
	h.mu.Lock()
	if !h.settled {
		h.doneHooks = append(h.doneHooks, fn)
		h.mu.Unlock()
		return
	}
	h.mu.Unlock()
	fn()
}

// complete fills the result slot, fires the done hooks in registration
// order, and only then reports completion. Cooperative waiters that observe
// Completed thus always find the hooks' posted work already queued.
func (h *TaskHandle) complete(result interface{}, err error) {
	h.mu.Lock()
	h.result = result
	h.err = err
	h.settled = true
	hooks := h.doneHooks
	h.doneHooks = nil
	h.mu.Unlock()

	for _, fn := range hooks {
		fn()
	}

	h.mu.Lock()
	h.completed = true
	h.mu.Unlock()
	close(h.completeChan)
}

// taskName derives a readable name from the task function's symbol, e.g.
// "main.loadAccounts" -> "loadAccounts". Anonymous functions keep their
// funcN suffix.
func taskName(task Task) string {
	if task == nil {
		return "<nil>"
	}
	full := runtime.FuncForPC(reflect.ValueOf(task).Pointer()).Name()
	if full == "" {
		return "task"
	}
	if idx := strings.LastIndex(full, "/"); idx >= 0 {
		full = full[idx+1:]
	}
	if idx := strings.Index(full, "."); idx >= 0 {
		full = full[idx+1:]
	}
	return strings.TrimSuffix(full, "-fm")
}
