package lsp

import (
	"encoding/json"
	"errors"
	"fmt"

	"spelgud/internal/dictionary"
	"spelgud/internal/trace"
)

const commandAddToDictionary = "addToDictionary"

func (s *Server) handleExecuteCommand(msg *rpcMessage) error {
	var params executeCommandParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return s.sendError(msg.ID, codeInvalidParams, "invalid params")
	}
	if params.Command != commandAddToDictionary {
		return s.sendError(msg.ID, codeInvalidParams, fmt.Sprintf("unknown command %q", params.Command))
	}
	if len(params.Arguments) != 1 {
		return s.sendError(msg.ID, codeInvalidParams, "addToDictionary expects one word")
	}
	var word string
	if err := json.Unmarshal(params.Arguments[0], &word); err != nil {
		return s.sendError(msg.ID, codeInvalidParams, "addToDictionary expects a string")
	}

	added, err := s.dict.Add(word)
	switch {
	case errors.Is(err, dictionary.ErrInvalidWord):
		return s.sendError(msg.ID, codeInvalidParams, err.Error())
	case errors.Is(err, dictionary.ErrPersistence):
		// the word is accepted for this session even if the file is not
		s.logger.Warn("dictionary not saved", "word", word, "error", err)
		if err := s.showMessage(messageWarning, fmt.Sprintf("%q was not saved to the dictionary: %v", word, err)); err != nil {
			return err
		}
	case err != nil:
		return err
	}
	trace.Point(trace.FromContext(s.context()), trace.ScopeSession, "addToDictionary", word, 0)
	s.logger.Info("word added to dictionary", "word", word, "new", added)

	if err := s.sendResponse(msg.ID, nil); err != nil {
		return err
	}
	if added {
		s.RecheckAll()
	}
	return nil
}
