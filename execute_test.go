package uitask

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

// goid parses the current goroutine's id out of the stack header, to assert
// which goroutine relayed work actually ran on.
func goid() int64 {
	buf := make([]byte, 64)
	buf = buf[:runtime.Stack(buf, false)]
	fields := strings.Fields(strings.TrimPrefix(string(buf), "goroutine "))
	id, _ := strconv.ParseInt(fields[0], 10, 64)
	return id
}

// recordingHost is a ManualToolkit that can also host fake task windows.
type recordingHost struct {
	*ManualToolkit

	mu      sync.Mutex
	windows []*recordingWindow
}

func newRecordingHost() *recordingHost {
	return &recordingHost{ManualToolkit: NewManualToolkit()}
}

func (h *recordingHost) NewTaskWindow(handle *TaskHandle, opts *WindowOptions) TaskWindow {
	h.mu.Lock()
	defer h.mu.Unlock()
	w := &recordingWindow{opts: opts, showing: opts.Visible}
	h.windows = append(h.windows, w)
	return w
}

func (h *recordingHost) window(i int) *recordingWindow {
	h.mu.Lock()
	defer h.mu.Unlock()
	if i >= len(h.windows) {
		return nil
	}
	return h.windows[i]
}

type recordingWindow struct {
	mu       sync.Mutex
	opts     *WindowOptions
	output   strings.Builder
	finished bool
	finalErr error
	closed   bool
	showing  bool
}

func (w *recordingWindow) AppendOutput(text string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.output.WriteString(text)
}

func (w *recordingWindow) Finish(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.finished = true
	w.finalErr = err
	if err == nil {
		w.closed = true
		w.showing = false
	}
}

func (w *recordingWindow) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	w.showing = false
}

func (w *recordingWindow) Showing() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.showing
}

func (w *recordingWindow) snapshot() (string, bool, error, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.output.String(), w.finished, w.finalErr, w.closed
}

func newExecuteRuntime(t *testing.T) (*Runtime, *recordingHost) {
	t.Helper()
	host := newRecordingHost()
	config := DefaultConfig()
	config.Toolkit = host
	config.WaitTick = time.Millisecond
	r := New(config)
	if err := r.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	return r, host
}

func TestExecuteWaitReturnsResult(t *testing.T) {
	r, host := newExecuteRuntime(t)
	defer r.Stop()

	sideEffect := false
	opts := DefaultExecuteOptions()
	opts.ShowStdout = false
	exec, err := r.Execute(func(ctx context.Context) (interface{}, error) {
		time.Sleep(20 * time.Millisecond)
		sideEffect = true
		return "done", nil
	}, opts)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if !sideEffect {
		t.Error("Execute returned before the task's side effect")
	}
	result, _ := exec.Handle().Result()
	if result != "done" {
		t.Errorf("Expected \"done\", got %v", result)
	}

	_, finished, finalErr, closed := host.window(0).snapshot()
	if !finished {
		t.Error("Window was not finished when Execute returned")
	}
	if finalErr != nil {
		t.Errorf("Window finished with unexpected error: %v", finalErr)
	}
	if !closed {
		t.Error("Successful window should close itself")
	}
}

func TestExecuteWaitReturnsTaskError(t *testing.T) {
	r, host := newExecuteRuntime(t)
	defer r.Stop()

	wantErr := errors.New("task failed")
	opts := DefaultExecuteOptions()
	opts.ShowStdout = false
	_, err := r.Execute(func(ctx context.Context) (interface{}, error) {
		return nil, wantErr
	}, opts)
	if !errors.Is(err, wantErr) {
		t.Errorf("Expected task error from Execute, got %v", err)
	}

	_, finished, finalErr, closed := host.window(0).snapshot()
	if !finished {
		t.Error("Window was not finished when Execute returned")
	}
	if !errors.Is(finalErr, wantErr) {
		t.Errorf("Window finished with %v, expected task error", finalErr)
	}
	if closed {
		t.Error("Errored window should stay open")
	}
}

func TestExecuteWaitServicesUICall(t *testing.T) {
	r, _ := newExecuteRuntime(t)
	defer r.Stop()

	callerID := goid()
	var uiCallID int64

	opts := DefaultExecuteOptions()
	opts.ShowStdout = false
	_, err := r.Execute(func(ctx context.Context) (interface{}, error) {
		result, err := r.UICall(func() (interface{}, error) {
			uiCallID = goid()
			return "widget text", nil
		})
		if err != nil {
			return nil, err
		}
		return result, nil
	}, opts)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	// The cooperative wait loop drains the relay on the caller's goroutine.
	if uiCallID != callerID {
		t.Errorf("UICall ran on goroutine %d, expected waiting goroutine %d", uiCallID, callerID)
	}
}

func TestExecuteBackgroundCallback(t *testing.T) {
	r, host := newExecuteRuntime(t)
	defer r.Stop()

	var mu sync.Mutex
	var callbackResult interface{}
	var callbackID int64
	callbackRan := make(chan struct{})

	opts := DefaultExecuteOptions()
	opts.Wait = false
	opts.ShowStdout = false
	opts.Callback = func(result interface{}, err error) {
		mu.Lock()
		callbackResult = result
		callbackID = goid()
		mu.Unlock()
		close(callbackRan)
	}

	exec, err := r.Execute(func(ctx context.Context) (interface{}, error) {
		return 99, nil
	}, opts)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	// Play the GUI thread.
	pumperID := goid()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case <-callbackRan:
		case <-deadline:
			t.Fatal("Callback never ran")
		default:
			host.Pump()
			time.Sleep(time.Millisecond)
			continue
		}
		break
	}

	mu.Lock()
	defer mu.Unlock()
	if callbackResult != 99 {
		t.Errorf("Callback got result %v, expected 99", callbackResult)
	}
	if callbackID != pumperID {
		t.Errorf("Callback ran on goroutine %d, expected pumping goroutine %d", callbackID, pumperID)
	}
	if result, _ := exec.Handle().Result(); result != 99 {
		t.Errorf("Handle result %v, expected 99", result)
	}
}

func TestExecuteBackgroundErrorViaHandle(t *testing.T) {
	r, host := newExecuteRuntime(t)
	defer r.Stop()

	wantErr := errors.New("background failure")
	opts := DefaultExecuteOptions()
	opts.Wait = false
	opts.Visible = false
	opts.ShowStdout = false

	exec, err := r.Execute(func(ctx context.Context) (interface{}, error) {
		return nil, wantErr
	}, opts)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	deadline := time.After(5 * time.Second)
	for !exec.Handle().Completed() {
		select {
		case <-deadline:
			t.Fatal("Task never completed")
		default:
		}
		host.Pump()
		time.Sleep(time.Millisecond)
	}

	_, taskErr := exec.Handle().Result()
	if !errors.Is(taskErr, wantErr) {
		t.Errorf("Expected task error via handle, got %v", taskErr)
	}
	if exec.Window().Showing() {
		t.Error("Invisible window should not report showing")
	}
}

func TestExecuteMirrorsStdout(t *testing.T) {
	r, host := newExecuteRuntime(t)
	defer r.Stop()

	_, err := r.Execute(func(ctx context.Context) (interface{}, error) {
		fmt.Println("line one")
		fmt.Println("line two")
		return nil, nil
	}, nil)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	// AppendOutput arrives as posted work; the final pump in the wait loop
	// races the copier goroutine, so allow a grace period.
	deadline := time.After(5 * time.Second)
	for {
		output, _, _, _ := host.window(0).snapshot()
		if strings.Contains(output, "line one") && strings.Contains(output, "line two") {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("Window never saw the task's stdout; got %q", output)
		default:
		}
		host.Pump()
		time.Sleep(time.Millisecond)
	}

	if CapturingStdout() {
		t.Error("Stdout capture should be released after the task")
	}
}

func TestExecuteNilOptionsUsesDefaults(t *testing.T) {
	r, host := newExecuteRuntime(t)
	defer r.Stop()

	_, err := r.Execute(func(ctx context.Context) (interface{}, error) {
		return nil, nil
	}, nil)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	w := host.window(0)
	if w == nil {
		t.Fatal("Expected a window with default options")
	}
	if !w.opts.ShowProgressBar || !w.opts.ShowStdout || !w.opts.ShowExceptions {
		t.Error("Default window options should show progress, stdout and exceptions")
	}
	if w.opts.Title != "Async execution" {
		t.Errorf("Default title: got %q", w.opts.Title)
	}
	if w.opts.StatusPrefix != "Last status: " {
		t.Errorf("Default status prefix: got %q", w.opts.StatusPrefix)
	}
	if !strings.HasPrefix(w.opts.Message, "Executing ") {
		t.Errorf("Default message: got %q", w.opts.Message)
	}
}

func TestExecuteWithoutToolkit(t *testing.T) {
	r := New(&Config{})
	if err := r.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer r.Stop()

	_, err := r.Execute(func(ctx context.Context) (interface{}, error) {
		return nil, nil
	}, nil)
	if !errors.Is(err, ErrNoToolkit) {
		t.Errorf("Expected ErrNoToolkit, got %v", err)
	}
}

func TestExecuteWindowlessToolkit(t *testing.T) {
	// A plain Toolkit without WindowHost still runs tasks; there is just no
	// progress window.
	config := DefaultConfig()
	config.Toolkit = NewManualToolkit()
	config.WaitTick = time.Millisecond
	r := New(config)
	if err := r.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer r.Stop()

	exec, err := r.Execute(func(ctx context.Context) (interface{}, error) {
		return "ran anyway", nil
	}, nil)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if exec.Window() != nil {
		t.Error("Expected no window from a windowless toolkit")
	}
	if result, _ := exec.Handle().Result(); result != "ran anyway" {
		t.Errorf("Expected \"ran anyway\", got %v", result)
	}
}

func TestExecuteAfterStop(t *testing.T) {
	r, host := newExecuteRuntime(t)
	if err := r.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	opts := DefaultExecuteOptions()
	opts.ShowStdout = false
	_, err := r.Execute(func(ctx context.Context) (interface{}, error) {
		return nil, nil
	}, opts)
	if !errors.Is(err, ErrNotRunning) {
		t.Errorf("Expected ErrNotRunning, got %v", err)
	}

	// The eagerly-created window must be torn down on the failure path.
	if w := host.window(0); w != nil {
		if _, _, _, closed := w.snapshot(); !closed {
			t.Error("Window should be closed when submission fails")
		}
	}
}

func TestDefaultRuntimeLifecycle(t *testing.T) {
	if err := Stop(); !errors.Is(err, ErrNotRunning) {
		t.Errorf("Stop without Start: expected ErrNotRunning, got %v", err)
	}
	if Default() != nil {
		t.Error("Default should be nil before Start")
	}

	tk := NewManualToolkit()
	if err := Start(tk, nil); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := Start(tk, nil); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("Second Start: expected ErrAlreadyRunning, got %v", err)
	}
	if Default() == nil {
		t.Error("Default should be set after Start")
	}

	h, err := Schedule(func(ctx context.Context) (interface{}, error) {
		return "via default", nil
	})
	if err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}
	if result, _ := h.Wait(); result != "via default" {
		t.Errorf("Expected \"via default\", got %v", result)
	}

	if err := Stop(); err != nil {
		t.Errorf("Stop failed: %v", err)
	}
	if Default() != nil {
		t.Error("Default should be nil after Stop")
	}

	if _, err := Schedule(namedTestTask); !errors.Is(err, ErrNotRunning) {
		t.Errorf("Schedule after Stop: expected ErrNotRunning, got %v", err)
	}
	if _, err := Execute(namedTestTask, nil); !errors.Is(err, ErrNotRunning) {
		t.Errorf("Execute after Stop: expected ErrNotRunning, got %v", err)
	}
	if _, err := UICall(func() (interface{}, error) { return nil, nil }); !errors.Is(err, ErrNotRunning) {
		t.Errorf("UICall after Stop: expected ErrNotRunning, got %v", err)
	}
	if err := UIDo(func() {}); !errors.Is(err, ErrNotRunning) {
		t.Errorf("UIDo after Stop: expected ErrNotRunning, got %v", err)
	}
}

func TestWindowSinkMarshalsToToolkit(t *testing.T) {
	host := newRecordingHost()
	w := host.NewTaskWindow(nil, &WindowOptions{})
	sink := &windowSink{toolkit: host, window: w}

	n, err := sink.Write([]byte("chunk"))
	if err != nil || n != 5 {
		t.Errorf("Write returned %d, %v", n, err)
	}

	if output, _, _, _ := w.(*recordingWindow).snapshot(); output != "" {
		t.Error("Sink should not touch the window before a pump")
	}

	host.Pump()

	if output, _, _, _ := w.(*recordingWindow).snapshot(); output != "chunk" {
		t.Errorf("Expected \"chunk\" after pump, got %q", output)
	}
}
