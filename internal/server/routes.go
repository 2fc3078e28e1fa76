package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/carwise/gearbox/internal/capability"
	"github.com/carwise/gearbox/internal/orchestrator"
)

type invokeRequest struct {
	ConversationID string          `json:"conversation_id"`
	Capability     string          `json:"capability"`
	Args           capability.Args `json:"args"`
}

type invalidateRequest struct {
	Capability string          `json:"capability"`
	Args       capability.Args `json:"args"`
}

type capabilityInfo struct {
	Name                  string `json:"name"`
	Classification        string `json:"classification"`
	ConfidenceThreshold   int    `json:"confidence_threshold"`
	MaxRefinementAttempts int    `json:"max_refinement_attempts"`
	Cacheable             bool   `json:"cacheable"`
}

func registerRoutes(r chi.Router, orch *orchestrator.Orchestrator) {
	r.Post("/api/invoke", invokeHandler(orch))
	r.Get("/api/capabilities", capabilitiesHandler(orch))
	r.Get("/api/sessions/{conversationID}", sessionHandler(orch))
	r.Post("/api/cache/invalidate", invalidateHandler(orch))
}

func invokeHandler(orch *orchestrator.Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req invokeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body: " + err.Error()})
			return
		}
		if req.ConversationID == "" || req.Capability == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "conversation_id and capability are required"})
			return
		}
		if req.Args == nil {
			req.Args = capability.Args{}
		}

		res, err := orch.Invoke(r.Context(), req.ConversationID, req.Capability, req.Args)
		if err != nil {
			if errors.Is(err, capability.ErrUnknownCapability) {
				writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
				return
			}
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func capabilitiesHandler(orch *orchestrator.Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		descs := orch.Registry().List()
		infos := make([]capabilityInfo, len(descs))
		for i, d := range descs {
			infos[i] = capabilityInfo{
				Name:                  d.Name,
				Classification:        string(d.Classification),
				ConfidenceThreshold:   d.Threshold(),
				MaxRefinementAttempts: d.MaxAttempts(),
				Cacheable:             d.Cacheable,
			}
		}
		writeJSON(w, http.StatusOK, infos)
	}
}

func sessionHandler(orch *orchestrator.Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conversationID := chi.URLParam(r, "conversationID")

		sc, err := orch.Sessions().Load(r.Context(), conversationID)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, sc)
	}
}

func invalidateHandler(orch *orchestrator.Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req invalidateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body: " + err.Error()})
			return
		}
		if req.Capability == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "capability is required"})
			return
		}

		orch.Invalidate(req.Capability, req.Args)
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
