package uitask

import (
	"io"
	"os"
	"sync"
)

// stdoutCapture is the process-wide stdout mirror. The first installed sink
// swaps os.Stdout for a pipe and starts a copier goroutine; every chunk read
// from the pipe is forwarded to the real stdout and broadcast to all sinks.
// Removing the last sink restores os.Stdout and joins the copier, so no
// output is lost. With several windows open, each one sees everything
// printed while it is capturing.
var stdoutCapture = &captureController{}

type captureController struct {
	mu         sync.Mutex
	sinks      map[int]io.Writer
	nextID     int
	orig       *os.File
	pw         *os.File
	copierDone chan struct{}
}

// CaptureStdout registers sink to receive everything written to os.Stdout
// until the returned release function is called. Text still reaches the real
// stdout. Sinks are invoked on the copier goroutine and must marshal their
// own GUI work. The release function is idempotent.
func CaptureStdout(sink io.Writer) (func(), error) {
	return stdoutCapture.add(sink)
}

func (c *captureController) add(sink io.Writer) (func(), error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.sinks) == 0 {
		pr, pw, err := os.Pipe()
		if err != nil {
			return nil, err
		}
		c.sinks = make(map[int]io.Writer)
		c.orig = os.Stdout
		c.pw = pw
		c.copierDone = make(chan struct{})
		os.Stdout = pw
		go c.copier(pr, c.orig, c.copierDone)
	}

	id := c.nextID
	c.nextID++
	c.sinks[id] = sink

	var once sync.Once
	return func() {
		once.Do(func() { c.remove(id) })
	}, nil
}

func (c *captureController) remove(id int) {
	c.mu.Lock()
	delete(c.sinks, id)
	if len(c.sinks) > 0 {
		c.mu.Unlock()
		return
	}

	// Last sink gone: restore stdout and let the copier flush out.
	os.Stdout = c.orig
	pw := c.pw
	done := c.copierDone
	c.orig = nil
	c.pw = nil
	c.copierDone = nil
	c.mu.Unlock()

	pw.Close()
	<-done
}

// copier pumps the capture pipe to the real stdout and every current sink.
func (c *captureController) copier(pr *os.File, orig *os.File, done chan struct{}) {
	defer close(done)
	defer pr.Close()

	buf := make([]byte, 4096)
	for {
		n, err := pr.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			_, _ = orig.Write(chunk)

			c.mu.Lock()
			targets := make([]io.Writer, 0, len(c.sinks))
			for _, w := range c.sinks {
				targets = append(targets, w)
			}
			c.mu.Unlock()

			for _, w := range targets {
				_, _ = w.Write(chunk)
			}
		}
		if err != nil {
			return
		}
	}
}

// CapturingStdout reports whether a capture pipe is currently installed.
func CapturingStdout() bool {
	stdoutCapture.mu.Lock()
	defer stdoutCapture.mu.Unlock()
	return len(stdoutCapture.sinks) > 0
}
