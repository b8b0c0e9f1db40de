package lsp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"spelgud/internal/checker"
	"spelgud/internal/diagnose"
)

// docTask serialises runs for one document. generation is bumped by every
// trigger and acts as the cancellation token: a run whose generation is no
// longer current is discarded when it finishes.
type docTask struct {
	generation uint64
	running    bool
	timer      *time.Timer

	published        bool
	publishedVersion int
	diagnostics      []diagnose.Diagnostic
}

func (t *docTask) stop() {
	t.generation++
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

func (s *Server) schedule(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shutdownRequested || s.closed {
		return
	}
	t := s.tasks[id]
	if t == nil {
		t = &docTask{}
		s.tasks[id] = t
	}
	t.generation++
	if t.running {
		// picked up when the current run finishes
		return
	}
	s.startLocked(id, t)
}

func (s *Server) startLocked(id string, t *docTask) {
	if s.closed {
		return
	}
	if s.debounce <= 0 {
		s.launchLocked(id, t)
		return
	}
	if t.timer != nil {
		t.timer.Stop()
	}
	gen := t.generation
	t.timer = time.AfterFunc(s.debounce, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed || s.tasks[id] != t || t.generation != gen || t.running {
			return
		}
		t.timer = nil
		s.launchLocked(id, t)
	})
}

func (s *Server) launchLocked(id string, t *docTask) {
	t.running = true
	gen := t.generation
	ctx := s.baseCtx
	s.runs.Add(1)
	go s.run(ctx, id, t, gen)
}

func (s *Server) run(ctx context.Context, id string, t *docTask, gen uint64) {
	defer s.runs.Done()
	res, err := s.engine.Run(ctx, id)

	s.mu.Lock()
	defer s.mu.Unlock()
	t.running = false
	if s.tasks[id] != t || ctx.Err() != nil || s.shutdownRequested {
		return
	}
	if err != nil {
		// the document vanished between scheduling and the run
		s.logger.Debug("run skipped", "uri", id, "error", err)
		return
	}

	current, open := s.docs.Version(id)
	stale := gen != t.generation || res.Version != current || res.Version < t.publishedVersion
	if stale {
		s.tracef("discard: uri=%s version=%d current=%d generation=%d/%d", id, res.Version, current, gen, t.generation)
		if open {
			s.startLocked(id, t)
		}
		return
	}

	t.published = true
	t.publishedVersion = res.Version
	t.diagnostics = res.Diagnostics
	s.tracef("publish: uri=%s version=%d diagnostics=%d", id, res.Version, len(res.Diagnostics))

	clientVersion := res.ClientVersion
	if err := s.sendPublish(id, &clientVersion, toLSPDiagnostics(res.Diagnostics)); err != nil {
		s.logger.Error("failed to publish diagnostics", "uri", id, "error", err)
		return
	}
	s.reportWarningLocked(id, res.Warning)
}

// reportWarningLocked tells the user once when the checker stops working and
// stays quiet until a run succeeds again.
func (s *Server) reportWarningLocked(id string, warning error) {
	if warning == nil {
		s.backendWarned = false
		return
	}
	if errors.Is(warning, context.Canceled) || s.backendWarned {
		return
	}
	s.backendWarned = true
	text := fmt.Sprintf("spelling check of %s is incomplete: %v", displayName(id), warning)
	if errors.Is(warning, checker.ErrBackendUnavailable) {
		s.logger.Warn("checker unavailable", "uri", id, "error", warning)
	}
	if err := s.showMessage(messageWarning, text); err != nil {
		s.logger.Error("failed to show message", "error", err)
	}
}

func toLSPDiagnostics(diags []diagnose.Diagnostic) []lspDiagnostic {
	out := make([]lspDiagnostic, 0, len(diags))
	for _, d := range diags {
		out = append(out, toLSPDiagnostic(d))
	}
	return out
}

func toLSPDiagnostic(d diagnose.Diagnostic) lspDiagnostic {
	suggestions := d.Suggestions
	if suggestions == nil {
		suggestions = []string{}
	}
	return lspDiagnostic{
		Range:    rangeForSpan(d.Span),
		Severity: severityWarning,
		Code:     diagnosticCode,
		Source:   diagnosticSource,
		Message:  d.Word(),
		Data:     &diagnosticData{Word: d.Word(), Suggestions: suggestions},
	}
}
