package lsp

import "encoding/json"

func (s *Server) handleDidChangeConfiguration(msg *rpcMessage) error {
	if len(msg.Params) == 0 {
		return nil
	}
	var params didChangeConfigurationParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return nil
	}
	if s.applySettings(params.Settings) {
		s.RecheckAll()
	}
	return nil
}

// applySettings reports whether the change affects diagnostics.
func (s *Server) applySettings(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}
	var settings lspSettings
	if err := json.Unmarshal(raw, &settings); err != nil {
		s.logger.Debug("ignoring malformed settings", "error", err)
		return false
	}
	if settings.Spelgud.Trace != nil {
		s.traceLSP.Store(*settings.Spelgud.Trace)
	}
	if n := settings.Spelgud.MinWordLength; n != nil {
		opts := s.engine.Options()
		if max(*n, 1) != opts.MinWordLength {
			opts.MinWordLength = *n
			s.engine.SetOptions(opts)
			return true
		}
	}
	return false
}
