// uitask-demo - Fyne demo for the uitask bridge
// Shows waiting and background task submission from GUI callbacks, GUI calls
// from task goroutines, and the stdout-mirroring progress window.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
	filedialog "github.com/sqweek/dialog"

	"github.com/phroun/uitask"
	"github.com/phroun/uitask/pkg/fynebridge"
)

func main() {
	debugMode := false
	args := os.Args[1:]
	if len(args) > 0 && args[0] == "-d" {
		debugMode = true
		args = args[1:]
	}
	_ = args

	fyneApp := app.New()
	mainWindow := fyneApp.NewWindow("uitask demo")
	mainWindow.Resize(fyne.NewSize(420, 320))

	bridge := fynebridge.New(fyneApp, mainWindow)
	if err := uitask.Start(bridge, &uitask.Config{Debug: debugMode}); err != nil {
		fmt.Fprintf(os.Stderr, "Error starting runtime: %v\n", err)
		os.Exit(1)
	}

	nameEntry := widget.NewEntry()
	nameEntry.SetPlaceHolder("Your name...")
	resultLabel := widget.NewLabel("")

	// Waits cooperatively on the GUI thread; the task reads the entry
	// widget mid-execution through UICall.
	greetBtn := widget.NewButton("Greet (wait)", func() {
		exec, err := uitask.Execute(func(ctx context.Context) (interface{}, error) {
			fmt.Println("Looking up name...")
			name, err := uitask.UICall(func() (interface{}, error) {
				return nameEntry.Text, nil
			})
			if err != nil {
				return nil, err
			}
			time.Sleep(500 * time.Millisecond)
			fmt.Println("Composing greeting...")
			return fmt.Sprintf("Hello, %v!", name), nil
		}, nil)
		if err != nil {
			resultLabel.SetText(fmt.Sprintf("Error: %v", err))
			return
		}
		greeting, _ := exec.Handle().Result()
		resultLabel.SetText(fmt.Sprintf("%v", greeting))
	})

	// Runs in the background; the callback lands on the GUI thread.
	backgroundBtn := widget.NewButton("Count to five (background)", func() {
		opts := uitask.DefaultExecuteOptions()
		opts.Wait = false
		opts.Callback = func(result interface{}, err error) {
			if err != nil {
				resultLabel.SetText(fmt.Sprintf("Error: %v", err))
				return
			}
			resultLabel.SetText(fmt.Sprintf("%v", result))
		}
		_, err := uitask.Execute(countToFive, opts)
		if err != nil {
			resultLabel.SetText(fmt.Sprintf("Error: %v", err))
		}
	})

	// Demonstrates error display in the progress window.
	failBtn := widget.NewButton("Fail (background)", func() {
		opts := uitask.DefaultExecuteOptions()
		opts.Wait = false
		_, _ = uitask.Execute(func(ctx context.Context) (interface{}, error) {
			fmt.Println("About to fail...")
			time.Sleep(300 * time.Millisecond)
			return nil, errors.New("something went wrong")
		}, opts)
	})

	// Native file chooser feeding a line-counting task.
	countBtn := widget.NewButton("Count file lines...", func() {
		path, err := filedialog.File().Title("Choose a file").Load()
		if err != nil {
			return // cancelled
		}
		opts := uitask.DefaultExecuteOptions()
		opts.Name = "countLines"
		_, err = uitask.Execute(func(ctx context.Context) (interface{}, error) {
			return countLines(ctx, path)
		}, opts)
		if err != nil {
			resultLabel.SetText(fmt.Sprintf("Error: %v", err))
			return
		}
	})

	mainWindow.SetContent(container.NewVBox(
		widget.NewLabel("uitask demo"),
		nameEntry,
		greetBtn,
		backgroundBtn,
		failBtn,
		countBtn,
		resultLabel,
	))

	mainWindow.ShowAndRun()

	if err := uitask.Stop(); err != nil && !errors.Is(err, uitask.ErrNotRunning) {
		fmt.Fprintf(os.Stderr, "Error stopping runtime: %v\n", err)
	}
}

func countToFive(ctx context.Context) (interface{}, error) {
	for i := 1; i <= 5; i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(400 * time.Millisecond):
		}
		fmt.Printf("Counted to %d\n", i)
	}
	return "Counted to five", nil
}

func countLines(ctx context.Context, path string) (interface{}, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	count := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		count++
		if count%1000 == 0 {
			fmt.Printf("%d lines so far...\n", count)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	fmt.Printf("%s: %d lines\n", path, count)
	return count, nil
}
