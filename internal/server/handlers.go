package server

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/clawdbot/claudebridge/internal/llm/openai"
	"github.com/clawdbot/claudebridge/internal/respond"
)

// healthPayload is the /health response body.
type healthPayload struct {
	// Status is always "ok" while the server is up.
	Status string `json:"status"`
	// Provider names the wrapped backend.
	Provider string `json:"provider"`
	// Timestamp is the current time in ISO-8601.
	Timestamp string `json:"timestamp"`
}

// handleHealth reports liveness.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, healthPayload{
		Status:    "ok",
		Provider:  ProviderName,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// handleModels lists the three normalized model identifiers.
func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	created := time.Now().Unix()
	list := openai.ModelList{Object: "list"}
	for _, id := range respond.ModelIDs() {
		list.Data = append(list.Data, openai.Model{
			ID:      id,
			Object:  "model",
			Created: created,
			OwnedBy: "anthropic",
		})
	}
	s.writeJSON(w, http.StatusOK, list)
}

// handleNotFound answers unknown routes with an OpenAI-style envelope.
func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.writeError(w, http.StatusNotFound, "unknown route: "+r.URL.Path, "invalid_request_error", "not_found")
}

// writeJSON writes one JSON body. The response must not have been written.
func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn("write response body", zap.Error(err))
	}
}

// writeError writes an OpenAI-style error envelope.
func (s *Server) writeError(w http.ResponseWriter, status int, message string, errType string, code string) {
	s.writeJSON(w, status, openai.ErrorEnvelope{
		Error: openai.ErrorDetail{
			Message: message,
			Type:    errType,
			Code:    code,
		},
	})
}
