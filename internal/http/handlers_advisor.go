package http

import (
	"net/http"
	"strings"
)

type advisorChatRequest struct {
	Message string `json:"message"`
	APIKey  string `json:"apiKey"`
}

type advisorChatResponse struct {
	Reply string `json:"reply"`
}

// handleAdvisorChat forwards a question plus recent history to the
// model. The API key is the caller's own and is used only for this
// request.
func (s *Server) handleAdvisorChat(w http.ResponseWriter, r *http.Request) {
	if s.advisor == nil {
		writeError(w, http.StatusServiceUnavailable, "advisor is not configured")
		return
	}

	var req advisorChatRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message must not be empty")
		return
	}

	client, err := s.sessions.Session(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	reply, err := s.advisor.Chat(r.Context(), req.APIKey, req.Message, client.Snapshot())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, advisorChatResponse{Reply: reply})
}
