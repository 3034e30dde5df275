package uitask

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Runtime owns the background task loop: a dispatcher goroutine that accepts
// scheduling requests and runs each task on its own goroutine, tracked in a
// registry until completion. It also owns the relay that carries GUI-thread
// calls issued by tasks.
type Runtime struct {
	config *Config
	logger *Logger
	relay  *Relay

	mu             sync.Mutex
	running        bool
	submitChan     chan *scheduledTask
	quitChan       chan struct{}
	dispatcherDone chan struct{}
	cancel         context.CancelFunc

	tasksMu     sync.RWMutex
	activeTasks map[int]*TaskHandle
	nextTaskID  int
	taskWG      sync.WaitGroup
}

// scheduledTask is the hand-off unit between Schedule and the dispatcher.
type scheduledTask struct {
	task   Task
	handle *TaskHandle
}

// New creates a new runtime
func New(config *Config) *Runtime {
	if config == nil {
		config = DefaultConfig()
	}
	if config.WaitTick <= 0 {
		config.WaitTick = 10 * time.Millisecond
	}

	logger := config.Logger
	if logger == nil {
		logger = NewLogger(config.Debug)
		if config.Debug {
			if len(config.DebugCategories) == 0 {
				logger.EnableAllCategories()
			} else {
				for _, cat := range config.DebugCategories {
					logger.EnableCategory(cat)
				}
			}
		}
	}

	r := &Runtime{
		config:      config,
		logger:      logger,
		relay:       NewRelay(logger),
		activeTasks: make(map[int]*TaskHandle),
		nextTaskID:  1,
	}

	// Background UICalls get serviced even when no cooperative wait is
	// pumping: a drain is posted whenever the relay goes non-empty.
	if tk := config.Toolkit; tk != nil {
		r.relay.SetNotify(func() {
			tk.Post(func() { r.relay.Drain() })
		})
	}

	return r
}

// Toolkit returns the bound toolkit, or nil.
func (r *Runtime) Toolkit() Toolkit {
	return r.config.Toolkit
}

// Relay returns the runtime's pending-call relay. Hosts with their own idle
// tick may drain it directly from the GUI thread.
func (r *Runtime) Relay() *Relay {
	return r.relay
}

// Logger returns the runtime's logger.
func (r *Runtime) Logger() *Logger {
	return r.logger
}

// Running reports whether the runtime is accepting scheduling requests.
func (r *Runtime) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Start spawns the dispatcher goroutine. It fails with ErrAlreadyRunning if
// the runtime is running. A stopped runtime may be started again.
func (r *Runtime) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.submitChan = make(chan *scheduledTask)
	r.quitChan = make(chan struct{})
	r.dispatcherDone = make(chan struct{})
	r.running = true

	go r.dispatch(ctx, r.submitChan, r.quitChan, r.dispatcherDone)

	r.logger.DebugCat(CatRuntime, "Runtime started")
	return nil
}

// Stop shuts the runtime down: new scheduling requests fail immediately, the
// context passed to every task is cancelled, and Stop blocks until all
// outstanding tasks have returned and the dispatcher goroutine has exited.
// Config.StopTimeout bounds the wait; on expiry Stop returns ErrStopTimeout
// with the runtime still marked stopped.
func (r *Runtime) Stop() error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return ErrNotRunning
	}
	r.running = false
	cancel := r.cancel
	quit := r.quitChan
	dispatcherDone := r.dispatcherDone
	r.mu.Unlock()

	cancel()
	close(quit)
	<-dispatcherDone

	waited := make(chan struct{})
	go func() {
		r.taskWG.Wait()
		close(waited)
	}()

	if timeout := r.config.StopTimeout; timeout > 0 {
		select {
		case <-waited:
		case <-time.After(timeout):
			r.logger.ErrorCat(CatRuntime, "Stop timed out with %d task(s) outstanding", r.ActiveTasks())
			return ErrStopTimeout
		}
	} else {
		<-waited
	}

	r.logger.DebugCat(CatRuntime, "Runtime stopped")
	return nil
}

// Schedule hands a task to the dispatcher and returns its handle. Callable
// from any goroutine. It fails with ErrNotRunning before Start or after
// Stop — tasks are never silently queued against a dead runtime.
func (r *Runtime) Schedule(task Task) (*TaskHandle, error) {
	return r.schedule(taskName(task), task)
}

// ScheduleNamed is Schedule with an explicit display name for the task.
func (r *Runtime) ScheduleNamed(name string, task Task) (*TaskHandle, error) {
	if name == "" {
		name = taskName(task)
	}
	return r.schedule(name, task)
}

func (r *Runtime) schedule(name string, task Task) (*TaskHandle, error) {
	if task == nil {
		return nil, fmt.Errorf("uitask: nil task")
	}
	h := r.newHandle(name)
	if err := r.submitTask(h, task); err != nil {
		return nil, err
	}
	return h, nil
}

// newHandle allocates a handle before submission. Execute uses the split so
// the progress window and stdout capture are in place before the task can
// produce output.
func (r *Runtime) newHandle(name string) *TaskHandle {
	r.tasksMu.Lock()
	id := r.nextTaskID
	r.nextTaskID++
	r.tasksMu.Unlock()
	return newTaskHandle(id, name)
}

// submitTask hands the task to the dispatcher.
func (r *Runtime) submitTask(h *TaskHandle, task Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return ErrNotRunning
	}

	st := &scheduledTask{task: task, handle: h}

	// The dispatcher stays alive until quitChan closes, and quitChan only
	// closes once this send has finished (Stop waits on r.mu).
	select {
	case r.submitChan <- st:
		return nil
	case <-r.quitChan:
		return ErrNotRunning
	}
}

// dispatch is the runtime's loop goroutine: it accepts hand-offs in FIFO
// order and launches one goroutine per task.
func (r *Runtime) dispatch(ctx context.Context, submit <-chan *scheduledTask, quit <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	for {
		select {
		case st := <-submit:
			r.launch(ctx, st)
		case <-quit:
			return
		}
	}
}

// launch registers the task and runs it on its own goroutine.
func (r *Runtime) launch(ctx context.Context, st *scheduledTask) {
	h := st.handle
	r.registerTask(h)
	r.taskWG.Add(1)

	go func() {
		defer r.taskWG.Done()
		defer r.unregisterTask(h.id)

		r.logger.DebugCat(CatRuntime, "Task %d (%s) starting", h.id, h.name)

		var (
			result interface{}
			err    error
		)
		func() {
			defer func() {
				if v := recover(); v != nil {
					err = fmt.Errorf("uitask: panic in task %s: %v", h.name, v)
					r.logger.ErrorCat(CatRuntime, "Task %d (%s) panicked: %v", h.id, h.name, v)
				}
			}()
			result, err = st.task(ctx)
		}()

		h.complete(result, err)
		r.logger.DebugCat(CatRuntime, "Task %d (%s) completed (err: %v)", h.id, h.name, err)
	}()
}

// registerTask adds a task to the active tasks map
func (r *Runtime) registerTask(h *TaskHandle) {
	r.tasksMu.Lock()
	defer r.tasksMu.Unlock()
	r.activeTasks[h.id] = h
	r.logger.DebugCat(CatRuntime, "Registered task %d", h.id)
}

// unregisterTask removes a task from the active tasks map
func (r *Runtime) unregisterTask(id int) {
	r.tasksMu.Lock()
	defer r.tasksMu.Unlock()
	delete(r.activeTasks, id)
	r.logger.DebugCat(CatRuntime, "Unregistered task %d", id)
}

// ActiveTasks returns the number of currently running tasks
func (r *Runtime) ActiveTasks() int {
	r.tasksMu.RLock()
	defer r.tasksMu.RUnlock()
	return len(r.activeTasks)
}

// UICall marshals fn onto the GUI thread and blocks the calling goroutine
// until it has run there, returning its result or error. Call it from task
// goroutines; calling it on the GUI thread itself would self-wait, exactly
// like waiting on a relayed result inside the toolkit loop.
func (r *Runtime) UICall(fn func() (interface{}, error)) (interface{}, error) {
	if r.config.Toolkit == nil {
		return nil, ErrNoToolkit
	}
	return r.relay.Submit(fn).Wait()
}

// UIDo is UICall for functions with no result.
func (r *Runtime) UIDo(fn func()) error {
	_, err := r.UICall(func() (interface{}, error) {
		fn()
		return nil, nil
	})
	return err
}
