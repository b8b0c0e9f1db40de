package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"spelgud/internal/report"
	"spelgud/internal/ui"
)

type checkOutcomeMsg struct {
	files []report.File
	err   error
}

// runCheckWithUI runs work while a progress view renders its events.
func runCheckWithUI(ctx context.Context, title string, paths []string, work func(context.Context, progressSink) ([]report.File, error)) ([]report.File, error) {
	events := make(chan ui.Event, 256)
	outcomeCh := make(chan checkOutcomeMsg, 1)

	go func() {
		files, err := work(ctx, func(ev ui.Event) { events <- ev })
		outcomeCh <- checkOutcomeMsg{files: files, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, paths, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stderr))
	_, uiErr := program.Run()
	// the view may quit early; keep the worker from blocking on it
	go func() {
		for range events {
		}
	}()
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.files, uiErr
	}
	return outcome.files, outcome.err
}
