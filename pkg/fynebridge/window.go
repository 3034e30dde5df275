package fynebridge

import (
	"fmt"
	"io"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
	"github.com/fyne-io/terminal"

	"github.com/phroun/uitask"
)

// windowState tracks the progress window's lifecycle:
// created -> running -> {completed | errored} -> closed.
type windowState int

const (
	stateCreated windowState = iota
	stateRunning
	stateCompleted
	stateErrored
	stateClosed
)

const (
	defaultOutputWidth  = 460
	defaultOutputHeight = 240
)

// ExecWindow is the Fyne progress window for one in-flight task. All methods
// must run on the Fyne event loop; the bridge routes them there.
type ExecWindow struct {
	bridge *Bridge
	handle *uitask.TaskHandle
	opts   *uitask.WindowOptions

	win   fyne.Window    // independent-window mode
	popup *widget.PopUp  // modal pop-up mode (PopUp with a master window)

	message  *widget.Label
	status   *widget.Label
	progress *widget.ProgressBarInfinite
	closeBtn *widget.Button

	// Plain output view.
	outText   *widget.TextGrid
	outScroll *container.Scroll
	outBuf    strings.Builder

	// Console output view (ANSI terminal).
	term       *terminal.Terminal
	termWriter *io.PipeWriter

	state   windowState
	showing bool
}

func newExecWindow(b *Bridge, h *uitask.TaskHandle, opts *uitask.WindowOptions) *ExecWindow {
	w := &ExecWindow{
		bridge: b,
		handle: h,
		opts:   opts,
		state:  stateCreated,
	}

	w.message = widget.NewLabel(opts.Message)
	w.status = widget.NewLabel("")

	items := []fyne.CanvasObject{
		container.NewHBox(widget.NewLabel(opts.StatusPrefix), w.status),
		w.message,
	}

	if opts.ShowProgressBar {
		w.progress = widget.NewProgressBarInfinite()
		items = append(items, w.progress)
	}

	if opts.ShowStdout {
		items = append(items, w.buildOutputArea())
	}

	w.closeBtn = widget.NewButton("Close", w.Close)
	w.closeBtn.Hide()
	items = append(items, w.closeBtn)

	content := container.NewVBox(items...)

	if opts.PopUp && b.master != nil {
		w.popup = widget.NewModalPopUp(content, b.master.Canvas())
		if opts.Visible {
			w.popup.Show()
			w.showing = true
		}
	} else {
		w.win = b.app.NewWindow(opts.Title)
		w.win.SetContent(content)
		w.win.SetFixedSize(!opts.Resizable)
		// Closing is inert while a modal task runs; otherwise it hides
		// the window without cancelling the task.
		w.win.SetCloseIntercept(func() {
			if w.state == stateRunning && w.opts.PopUp {
				return
			}
			w.Close()
		})
		if opts.Visible {
			w.win.Show()
			w.showing = true
		}
	}

	w.state = stateRunning
	return w
}

// buildOutputArea creates either the ANSI console view or the plain
// scrolling text view.
func (w *ExecWindow) buildOutputArea() fyne.CanvasObject {
	width := float32(w.opts.Width)
	if width <= 0 {
		width = defaultOutputWidth
	}
	height := float32(w.opts.Height)
	if height <= 0 {
		height = defaultOutputHeight
	}

	if w.opts.Console {
		w.term = terminal.New()

		// The terminal reads its display stream from one pipe and
		// writes keyboard input to another; input is discarded.
		outReader, outWriter := io.Pipe()
		inReader, inWriter := io.Pipe()
		go func() { _, _ = io.Copy(io.Discard, inReader) }()
		go func() { _ = w.term.RunWithConnection(inWriter, outReader) }()
		w.termWriter = outWriter

		return newMinSizeWrap(w.term, fyne.NewSize(width, height))
	}

	w.outText = widget.NewTextGrid()
	w.outScroll = container.NewVScroll(w.outText)
	w.outScroll.SetMinSize(fyne.NewSize(width, height))
	return w.outScroll
}

// Handle returns the underlying task handle, so callers holding only the
// window can inspect completion, result and error.
func (w *ExecWindow) Handle() *uitask.TaskHandle {
	return w.handle
}

// Showing reports whether the window is currently on screen.
func (w *ExecWindow) Showing() bool {
	return w.showing
}

// AppendOutput adds captured stdout text to the output area and shows the
// last non-empty line in the status label.
func (w *ExecWindow) AppendOutput(text string) {
	if w.state == stateClosed {
		return
	}

	if line := lastLine(text); line != "" {
		w.status.SetText(line)
	}

	switch {
	case w.termWriter != nil:
		// Terminals want CRLF line endings.
		crlf := strings.ReplaceAll(text, "\r\n", "\n")
		crlf = strings.ReplaceAll(crlf, "\n", "\r\n")
		_, _ = w.termWriter.Write([]byte(crlf))
	case w.outText != nil:
		w.outBuf.WriteString(text)
		w.outText.SetText(w.outBuf.String())
		w.outScroll.ScrollToBottom()
	}
}

// Finish transitions the window out of the running state. A completed
// window that was shown closes itself; an errored one stays open with the
// failure on display (when ShowExceptions) and a Close button.
func (w *ExecWindow) Finish(err error) {
	if w.state != stateRunning {
		return
	}

	if w.progress != nil {
		w.progress.Stop()
	}

	if err == nil {
		w.state = stateCompleted
		w.Close()
		return
	}

	w.state = stateErrored
	if !w.opts.ShowExceptions || !w.showing {
		return
	}
	w.status.SetText("Failed")
	w.AppendOutputError(err)
	w.closeBtn.Show()
}

// AppendOutputError renders the task error into the output area and the
// message label.
func (w *ExecWindow) AppendOutputError(err error) {
	w.message.SetText(fmt.Sprintf("Error while running %s:", w.handle.Name()))
	text := fmt.Sprintf("\n%v\n", err)
	switch {
	case w.termWriter != nil:
		crlf := strings.ReplaceAll(text, "\n", "\r\n")
		_, _ = w.termWriter.Write([]byte(crlf))
	case w.outText != nil:
		w.outBuf.WriteString(text)
		w.outText.SetText(w.outBuf.String())
		w.outScroll.ScrollToBottom()
	default:
		w.status.SetText(err.Error())
	}
}

// Close destroys the window. Closing never cancels the task.
func (w *ExecWindow) Close() {
	if w.state == stateClosed {
		return
	}
	w.state = stateClosed
	w.showing = false

	if w.termWriter != nil {
		_ = w.termWriter.Close()
	}
	if w.popup != nil {
		w.popup.Hide()
	}
	if w.win != nil {
		w.win.Close()
	}
}

// lastLine extracts the trailing non-empty line of a chunk, for the status
// label.
func lastLine(text string) string {
	trimmed := strings.TrimRight(text, "\r\n")
	if trimmed == "" {
		return ""
	}
	if idx := strings.LastIndexAny(trimmed, "\r\n"); idx >= 0 {
		trimmed = trimmed[idx+1:]
	}
	return strings.TrimSpace(trimmed)
}

// minSizeWrap enforces a minimum size on a wrapped canvas object, so the
// terminal view gets a usable initial area.
type minSizeWrap struct {
	widget.BaseWidget
	wrapped fyne.CanvasObject
	minSize fyne.Size
}

func newMinSizeWrap(wrapped fyne.CanvasObject, minSize fyne.Size) *minSizeWrap {
	s := &minSizeWrap{wrapped: wrapped, minSize: minSize}
	s.ExtendBaseWidget(s)
	return s
}

func (s *minSizeWrap) CreateRenderer() fyne.WidgetRenderer {
	return &minSizeWrapRenderer{widget: s}
}

func (s *minSizeWrap) MinSize() fyne.Size {
	return s.minSize
}

type minSizeWrapRenderer struct {
	widget *minSizeWrap
}

func (r *minSizeWrapRenderer) Layout(size fyne.Size) {
	r.widget.wrapped.Resize(size)
	r.widget.wrapped.Move(fyne.NewPos(0, 0))
}

func (r *minSizeWrapRenderer) MinSize() fyne.Size {
	return r.widget.minSize
}

func (r *minSizeWrapRenderer) Refresh() {
	r.widget.wrapped.Refresh()
}

func (r *minSizeWrapRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.widget.wrapped}
}

func (r *minSizeWrapRenderer) Destroy() {}
