package lsp

import (
	"encoding/json"
	"errors"

	"spelgud/internal/diagnose"
	"spelgud/internal/docstore"
	"spelgud/internal/fix"
)

const codeActionKindQuickFix = "quickfix"

func (s *Server) handleCodeAction(msg *rpcMessage) error {
	var params codeActionParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return s.sendError(msg.ID, codeInvalidParams, "invalid params")
	}
	id := documentID(params.TextDocument.URI)
	if _, err := s.docs.Get(id); err != nil {
		if errors.Is(err, docstore.ErrUnknownDocument) {
			return s.sendError(msg.ID, codeRequestFailed, err.Error())
		}
		return err
	}
	if !wantsQuickFix(params.Context.Only) {
		return s.sendResponse(msg.ID, []codeAction{})
	}

	s.mu.Lock()
	var diags []diagnose.Diagnostic
	if t := s.tasks[id]; t != nil {
		diags = t.diagnostics
	}
	s.mu.Unlock()

	actions := []codeAction{}
	for _, d := range diags {
		r := rangeForSpan(d.Span)
		if !rangesTouch(r, params.Range) {
			continue
		}
		actions = append(actions, codeActionsFor(id, d)...)
	}
	return s.sendResponse(msg.ID, actions)
}

func wantsQuickFix(only []string) bool {
	if len(only) == 0 {
		return true
	}
	for _, kind := range only {
		if kind == codeActionKindQuickFix || kind == "" {
			return true
		}
	}
	return false
}

func codeActionsFor(uri string, d diagnose.Diagnostic) []codeAction {
	wire := toLSPDiagnostic(d)
	actions := fix.ActionsFor(d)
	out := make([]codeAction, 0, len(actions))
	for _, a := range actions {
		ca := codeAction{
			Title:       a.Title,
			Kind:        codeActionKindQuickFix,
			Diagnostics: []lspDiagnostic{wire},
			IsPreferred: a.IsPreferred,
		}
		switch a.Kind {
		case fix.KindReplace:
			ca.Edit = &workspaceEdit{
				Changes: map[string][]textEdit{
					uri: {{Range: rangeForSpan(a.Span), NewText: a.NewText}},
				},
			}
		case fix.KindAddToDictionary:
			ca.Command = &command{
				Title:     a.Title,
				Command:   commandAddToDictionary,
				Arguments: []any{a.Word},
			}
		}
		out = append(out, ca)
	}
	return out
}
