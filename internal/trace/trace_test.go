package trace

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"off":      LevelOff,
		"":         LevelOff,
		"session":  LevelSession,
		"DOCUMENT": LevelDocument,
		"debug":    LevelDebug,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		if err != nil {
			t.Fatalf("ParseLevel(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestShouldEmit(t *testing.T) {
	if LevelOff.ShouldEmit(ScopeSession) {
		t.Fatalf("off must not emit")
	}
	if !LevelSession.ShouldEmit(ScopeSession) || LevelSession.ShouldEmit(ScopeDocument) {
		t.Fatalf("session level should emit session scope only")
	}
	if !LevelDocument.ShouldEmit(ScopeDocument) || LevelDocument.ShouldEmit(ScopeCheck) {
		t.Fatalf("document level should stop before check scope")
	}
	if !LevelDebug.ShouldEmit(ScopeCheck) {
		t.Fatalf("debug level should emit everything")
	}
}

func TestNewOffIsNop(t *testing.T) {
	tr, err := New(Config{Level: LevelOff})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if tr.Enabled() {
		t.Fatalf("expected disabled tracer")
	}
}

func TestStreamTracerText(t *testing.T) {
	var buf bytes.Buffer
	tr, err := New(Config{Level: LevelDocument, Format: FormatText, Output: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	span := Begin(tr, ScopeDocument, "run", 0)
	Point(tr, ScopeCheck, "check", "hidden", span.ID())
	span.WithExtra("words", "3").WithExtra("diagnostics", "1").End("ok")

	out := buf.String()
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d:\n%s", len(lines), out)
	}
	if !strings.Contains(lines[0], "\u2192 document:run") {
		t.Fatalf("unexpected begin line %q", lines[0])
	}
	if !strings.Contains(lines[1], "(ok) {diagnostics=1, words=3}") {
		t.Fatalf("unexpected end line %q", lines[1])
	}
}

func TestStreamTracerNDJSON(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelDebug, FormatNDJSON)
	ctx := WithTracer(context.Background(), tr)

	span := Begin(FromContext(ctx), ScopeSession, "initialize", 0)
	ctx = WithSpan(ctx, span)
	Point(FromContext(ctx), ScopeCheck, "check", "word", CurrentSpan(ctx))
	span.End("")

	dec := json.NewDecoder(&buf)
	var kinds []string
	for dec.More() {
		var ev map[string]any
		if err := dec.Decode(&ev); err != nil {
			t.Fatalf("decode: %v", err)
		}
		kinds = append(kinds, ev["kind"].(string))
		if ev["kind"] == "point" && uint64(ev["parent_id"].(float64)) != span.ID() {
			t.Fatalf("point not parented to span: %v", ev)
		}
	}
	if strings.Join(kinds, ",") != "begin,point,end" {
		t.Fatalf("unexpected kinds %v", kinds)
	}
}

func TestFromContextDefaultsToNop(t *testing.T) {
	if FromContext(context.Background()).Enabled() {
		t.Fatalf("expected nop tracer")
	}
	if CurrentSpan(context.Background()) != 0 {
		t.Fatalf("expected no current span")
	}
}
