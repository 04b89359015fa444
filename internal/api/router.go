package api

import (
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/urchin-core/internal/process"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.withRequestID, s.withAccessLog, s.withCORS, s.withBodyLimit)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/state", s.handleState)
		r.Get("/yakkers", s.handleYakkers)
		r.Post("/speech/interrupt", s.handleInterrupt)
		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// handleHealth returns the server health status. It reports "degraded"
// while any supervised helper is not running.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	status := "ok"
	procs := make([]process.Stats, 0, len(s.procs))
	for _, p := range s.procs {
		st := p.Stats()
		if st.Status != process.StatusRunning {
			status = "degraded"
		}
		procs = append(procs, st)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    status,
		"version":   s.version,
		"processes": procs,
	})
}

// handleState returns the brain's state map plus queue and mute status.
func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"state":    s.mind.Snapshot(),
		"queue":    s.mind.QueueLen(),
		"silenced": s.mind.Silenced(),
	})
}

// Yakker is one entry of the yakkers listing.
type Yakker struct {
	ID    string    `json:"id"`
	Since time.Time `json:"since"`
}

// handleYakkers lists the instruments currently talking, oldest first.
func (s *Server) handleYakkers(w http.ResponseWriter, _ *http.Request) {
	snap := s.mind.Yakkers().Snapshot()
	out := make([]Yakker, 0, len(snap))
	for id, since := range snap {
		out = append(out, Yakker{ID: id, Since: since.UTC()})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Since.Equal(out[j].Since) {
			return out[i].ID < out[j].ID
		}
		return out[i].Since.Before(out[j].Since)
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"yakkers": out,
		"count":   len(out),
	})
}

// handleInterrupt cuts off current speech.
func (s *Server) handleInterrupt(w http.ResponseWriter, _ *http.Request) {
	if s.speech == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "speech is not configured")
		return
	}
	interrupted := s.speech.Interrupt()
	s.logger.Info("speech interrupt requested", "interrupted", interrupted)
	writeJSON(w, http.StatusOK, map[string]any{
		"interrupted": interrupted,
	})
}
