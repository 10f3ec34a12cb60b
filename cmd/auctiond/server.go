package main

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

func setupServer(services *Services) *http.Server {
	mux := http.NewServeMux()

	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
		},
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
	})

	services.Gateway.RegisterRoutes(mux)
	registerDraftControl(mux, services)
	setupHealthCheck(mux)

	mux.HandleFunc("GET /stats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(services.Gateway.Stats()); err != nil {
			log.Error().Err(err).Msg("failed to encode stats")
		}
	})

	handler := c.Handler(mux)
	return &http.Server{
		Addr:    fmt.Sprintf(":%s", getEnv("PORT", "8080")),
		Handler: h2c.NewHandler(handler, &http2.Server{}),
	}
}

// registerDraftControl exposes the commissioner operations. Everything else
// goes over the WebSocket command surface.
func registerDraftControl(mux *http.ServeMux, services *Services) {
	handle := func(pattern string, op func(r *http.Request, id uuid.UUID) error) {
		mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
			id, err := uuid.Parse(r.PathValue("id"))
			if err != nil {
				http.Error(w, "invalid id", http.StatusBadRequest)
				return
			}
			if err := op(r, id); err != nil {
				log.Error().Err(err).Str("id", id.String()).Str("pattern", pattern).Msg("draft control failed")
				http.Error(w, err.Error(), http.StatusConflict)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		})
	}

	handle("POST /drafts/{id}/start", func(r *http.Request, draftID uuid.UUID) error {
		return services.Drafts.StartAuction(r.Context(), draftID)
	})
	handle("POST /drafts/{id}/pause", func(r *http.Request, draftID uuid.UUID) error {
		reason := r.URL.Query().Get("reason")
		if reason == "" {
			reason = "manual pause"
		}
		return services.Drafts.PauseAuction(r.Context(), draftID, reason)
	})
	handle("POST /drafts/{id}/resume", func(r *http.Request, draftID uuid.UUID) error {
		return services.Drafts.ResumeAuction(r.Context(), draftID)
	})
	// Cancelling through the scheduler runs the same turn-advance and
	// completion follow-ups as a deadline expiry.
	handle("POST /nominations/{id}/cancel", func(r *http.Request, nominationID uuid.UUID) error {
		_, err := services.Scheduler.CancelNomination(r.Context(), nominationID)
		return err
	})
}

func setupHealthCheck(mux *http.ServeMux) {
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			log.Error().Err(err).Msg("failed to write health check response")
		}
	})
}
