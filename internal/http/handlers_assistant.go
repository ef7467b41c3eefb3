package http

import (
	"net/http"
	"strings"

	"spendwise/internal/llm"
)

type chatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type assistantRequest struct {
	Message string     `json:"message"`
	History []chatTurn `json:"history"`
}

func (s *Server) handleAssistant(w http.ResponseWriter, r *http.Request) {
	var req assistantRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeRequestError(w, err)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		BadRequestError("Message is required").Write(w)
		return
	}

	history := make([]llm.Turn, 0, len(req.History))
	for _, t := range req.History {
		role, err := llm.ParseRole(t.Role)
		if err != nil {
			BadRequestError("History roles must be 'user' or 'assistant'").Write(w)
			return
		}
		history = append(history, llm.Turn{Role: role, Content: t.Content})
	}

	reply, err := s.svc.Assistant.Ask(r.Context(), principal(r).UserID, req.Message, history)
	if err != nil {
		status, msg := assistantStatus(err)
		ErrorResponse(status, msg).Write(w)
		return
	}
	NewJSONResponse().Body(map[string]string{"response": reply}).Write(w)
}
