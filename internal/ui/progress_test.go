package ui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func TestProgressModelTracksEvents(t *testing.T) {
	events := make(chan Event)
	m := NewProgressModel("checking", []string{"a.txt", "b.txt"}, events).(*progressModel)

	m.Update(eventMsg(Event{File: "a.txt", Status: StatusChecking}))
	if got := m.fraction(); got != 0.25 {
		t.Fatalf("expected 0.25, got %v", got)
	}
	m.Update(eventMsg(Event{File: "a.txt", Status: StatusDone, Misspellings: 3}))
	m.Update(eventMsg(Event{File: "b.txt", Status: StatusError}))
	m.Update(eventMsg(Event{File: "unknown.txt", Status: StatusDone, Misspellings: 9}))

	if m.found != 3 {
		t.Fatalf("expected 3 misspellings, got %d", m.found)
	}
	if got := m.fraction(); got != 1 {
		t.Fatalf("expected complete, got %v", got)
	}

	_, cmd := m.Update(doneMsg{})
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected quit message")
	}

	view := m.View()
	for _, want := range []string{"done: checking (3 misspellings)", "3 found", "error", "a.txt", "b.txt"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q:\n%s", want, view)
		}
	}
}

func TestProgressModelClosedChannel(t *testing.T) {
	events := make(chan Event)
	close(events)
	m := NewProgressModel("checking", []string{"a.txt"}, events).(*progressModel)
	if _, ok := m.listenForEvent()().(doneMsg); !ok {
		t.Fatalf("expected done message on closed channel")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("unexpected %q", got)
	}
	if got := truncate("a/very/long/path.txt", 10); got != "a/ve..." {
		t.Fatalf("unexpected %q", got)
	}
	if got := truncate("字字字字", 3); got != "字" {
		t.Fatalf("unexpected %q", got)
	}
}
