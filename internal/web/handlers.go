package web

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/catalog/internal/core"
	"github.com/JonMunkholm/catalog/internal/logging"
)

const healthTimeout = 2 * time.Second

// EntityInfo describes a served entity.
type EntityInfo struct {
	Name       string   `json:"name"`
	Group      string   `json:"group"`
	Label      string   `json:"label"`
	Collection string   `json:"collection"`
	Unique     []string `json:"unique,omitempty"`
	Required   []string `json:"required,omitempty"`
	Timestamps bool     `json:"timestamps"`
}

func entityInfo(def core.EntityDefinition) EntityInfo {
	return EntityInfo{
		Name:       def.Entity.Name,
		Group:      def.Entity.Group,
		Label:      def.Entity.Label,
		Collection: def.Collection,
		Unique:     def.Unique,
		Required:   def.Required,
		Timestamps: def.Timestamps,
	}
}

// handleVerb dispatches verb against the {entity} path segment and writes the
// envelope with its own status.
func (s *Server) handleVerb(verb core.Verb) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entity := chi.URLParam(r, "entity")

		req, err := decodeRequest(r)
		if err != nil {
			s.respondError(w, r, err)
			return
		}

		resp, err := s.handlers.Dispatch(verb, entity, req)
		if err != nil {
			s.respondError(w, r, err)
			return
		}

		logging.WithFields(r.Context(), "entity", entity, "verb", string(verb)).Debug("dispatched",
			"status", resp.Status,
			"success", resp.Success,
		)
		writeEnvelope(w, r, resp.Status, resp)
	}
}

// handleListEntities returns every registered entity, grouped and sorted.
func (s *Server) handleListEntities(w http.ResponseWriter, r *http.Request) {
	defs := core.All()
	out := make([]EntityInfo, 0, len(defs))
	for _, def := range defs {
		out = append(out, entityInfo(def))
	}
	writeJSON(w, out)
}

// handleGetEntity returns a single entity definition.
func (s *Server) handleGetEntity(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "entity")
	def, ok := core.Get(name)
	if !ok {
		s.respondError(w, r, core.ErrUnknownEntity)
		return
	}
	writeJSON(w, entityInfo(def))
}

// handleHealth reports liveness and, when a store is wired, its reachability.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Writes: s.writes.Status()}
	if s.health == nil {
		writeJSON(w, resp)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	if err := s.health.Ping(ctx); err != nil {
		logging.FromContext(r.Context()).Error("health check failed", "error", err)
		resp.Status = "unavailable"
		resp.Error = err.Error()
		writeJSONStatus(w, http.StatusServiceUnavailable, resp)
		return
	}
	writeJSON(w, resp)
}

type healthResponse struct {
	Status string             `json:"status"`
	Error  string             `json:"error,omitempty"`
	Writes WriteLimiterStatus `json:"writes"`
}
