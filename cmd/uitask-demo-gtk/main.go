// uitask-demo-gtk - GTK3-based demo for the uitask bridge
// This is a proof of concept alternative to the Fyne-based demo. GTK has no
// progress-window host in the bridge, so the demo owns a TextView console and
// tasks write to it through UIDo, with stdout mirrored in via CaptureStdout.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gotk3/gotk3/gtk"

	"github.com/phroun/uitask"
	"github.com/phroun/uitask/pkg/gtkbridge"
)

var (
	mainWindow *gtk.Window
	console    *gtk.TextView
	consoleBuf *gtk.TextBuffer
	nameEntry  *gtk.Entry
	statusBar  *gtk.Label
)

func main() {
	debugMode := len(os.Args) > 1 && os.Args[1] == "-d"

	gtk.Init(nil)

	if err := buildUI(); err != nil {
		fmt.Fprintf(os.Stderr, "Error building UI: %v\n", err)
		os.Exit(1)
	}

	if err := uitask.Start(gtkbridge.New(), &uitask.Config{Debug: debugMode}); err != nil {
		fmt.Fprintf(os.Stderr, "Error starting runtime: %v\n", err)
		os.Exit(1)
	}

	// Everything printed to stdout lands in the console as well.
	release, err := uitask.CaptureStdout(consoleWriter{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error capturing stdout: %v\n", err)
		os.Exit(1)
	}

	appendToConsole("uitask GTK demo\n")
	appendToConsole("Buttons run work on background goroutines.\n\n")

	mainWindow.ShowAll()
	gtk.Main()

	release()
	if err := uitask.Stop(); err != nil {
		fmt.Fprintf(os.Stderr, "Error stopping runtime: %v\n", err)
	}
}

func buildUI() error {
	var err error
	mainWindow, err = gtk.WindowNew(gtk.WINDOW_TOPLEVEL)
	if err != nil {
		return err
	}
	mainWindow.SetTitle("uitask demo (GTK)")
	mainWindow.SetDefaultSize(640, 420)
	mainWindow.Connect("destroy", func() {
		gtk.MainQuit()
	})

	box, err := gtk.BoxNew(gtk.ORIENTATION_VERTICAL, 5)
	if err != nil {
		return err
	}
	box.SetMarginStart(5)
	box.SetMarginEnd(5)
	box.SetMarginTop(5)
	box.SetMarginBottom(5)

	nameEntry, err = gtk.EntryNew()
	if err != nil {
		return err
	}
	nameEntry.SetPlaceholderText("Your name...")
	box.PackStart(nameEntry, false, false, 0)

	buttonRow, err := gtk.BoxNew(gtk.ORIENTATION_HORIZONTAL, 5)
	if err != nil {
		return err
	}

	greetBtn, err := gtk.ButtonNewWithLabel("Greet (wait)")
	if err != nil {
		return err
	}
	greetBtn.Connect("clicked", onGreet)
	buttonRow.PackStart(greetBtn, false, false, 0)

	countBtn, err := gtk.ButtonNewWithLabel("Count to five (background)")
	if err != nil {
		return err
	}
	countBtn.Connect("clicked", onCount)
	buttonRow.PackStart(countBtn, false, false, 0)

	box.PackStart(buttonRow, false, false, 0)

	scroll, err := gtk.ScrolledWindowNew(nil, nil)
	if err != nil {
		return err
	}
	scroll.SetPolicy(gtk.POLICY_AUTOMATIC, gtk.POLICY_AUTOMATIC)

	console, err = gtk.TextViewNew()
	if err != nil {
		return err
	}
	console.SetEditable(false)
	console.SetCursorVisible(false)
	console.SetMonospace(true)
	consoleBuf, err = console.GetBuffer()
	if err != nil {
		return err
	}
	scroll.Add(console)
	box.PackStart(scroll, true, true, 0)

	statusBar, err = gtk.LabelNew("")
	if err != nil {
		return err
	}
	statusBar.SetXAlign(0)
	box.PackStart(statusBar, false, false, 0)

	mainWindow.Add(box)
	return nil
}

// onGreet waits cooperatively: the GTK loop keeps pumping while the task
// runs, and the task reads the entry widget mid-flight through UICall.
func onGreet() {
	opts := uitask.DefaultExecuteOptions()
	opts.Name = "greet"
	exec, err := uitask.Execute(func(ctx context.Context) (interface{}, error) {
		fmt.Println("Looking up name...")
		name, err := uitask.UICall(func() (interface{}, error) {
			text, err := nameEntry.GetText()
			return text, err
		})
		if err != nil {
			return nil, err
		}
		time.Sleep(500 * time.Millisecond)
		return fmt.Sprintf("Hello, %v!", name), nil
	}, opts)
	if err != nil {
		setStatus(fmt.Sprintf("Error: %v", err))
		return
	}
	greeting, _ := exec.Handle().Result()
	setStatus(fmt.Sprintf("%v", greeting))
}

// onCount runs in the background; progress arrives via the stdout mirror and
// the completion callback lands on the GTK main loop.
func onCount() {
	opts := uitask.DefaultExecuteOptions()
	opts.Wait = false
	opts.Name = "countToFive"
	opts.Callback = func(result interface{}, err error) {
		if err != nil {
			setStatus(fmt.Sprintf("Error: %v", err))
			return
		}
		setStatus(fmt.Sprintf("%v", result))
	}
	_, err := uitask.Execute(func(ctx context.Context) (interface{}, error) {
		for i := 1; i <= 5; i++ {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(400 * time.Millisecond):
			}
			fmt.Printf("Counted to %d\n", i)
		}
		return "Counted to five", nil
	}, opts)
	if err != nil {
		setStatus(fmt.Sprintf("Error: %v", err))
	}
}

// appendToConsole adds text to the console buffer. GTK main loop only.
func appendToConsole(text string) {
	consoleBuf.Insert(consoleBuf.GetEndIter(), text)
}

func setStatus(text string) {
	statusBar.SetText(text)
}

// consoleWriter is the stdout-capture sink: chunks arrive on the capture
// goroutine and are marshaled onto the GTK main loop.
type consoleWriter struct{}

func (consoleWriter) Write(p []byte) (int, error) {
	text := string(p)
	if r := uitask.Default(); r != nil {
		r.Toolkit().Post(func() {
			appendToConsole(text)
		})
	}
	return len(p), nil
}
