// Package api exposes the application over HTTP: a JSON API for login,
// analysis, mentor chat and history, plus a websocket bridge for live voice.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/salesbrain-ai/salesbrain/pkg/app"
	"github.com/salesbrain-ai/salesbrain/pkg/core"
)

// Server routes HTTP traffic to the controller.
type Server struct {
	router     *chi.Mux
	controller *app.Controller
	voice      *VoiceBridge
}

// NewServer builds the router. static serves the UI at / when non-nil.
func NewServer(controller *app.Controller, voice *VoiceBridge, static http.Handler) *Server {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)

	s := &Server{router: router, controller: controller, voice: voice}

	router.Post("/api/login", s.login)
	router.Post("/api/logout", s.logout)

	router.Group(func(r chi.Router) {
		r.Use(s.requireUnlock)
		r.Get("/api/state", s.state)
		r.Post("/api/analyze", s.analyze)
		r.Post("/api/ask", s.ask)
		r.Post("/api/reset", s.reset)
		r.Get("/api/history", s.history)
		r.Post("/api/history/{id}/load", s.loadHistory)
		r.Delete("/api/history/{id}", s.deleteHistory)
		r.Delete("/api/history", s.clearHistory)
		if voice != nil {
			r.Get("/ws/voice", voice.Handle)
		}
	})

	if static != nil {
		router.Handle("/*", static)
	}
	return s
}

func (s *Server) Handler() http.Handler { return s.router }

// requireUnlock is the passphrase soft gate. Not a security boundary; it
// keeps casual visitors out of the tool.
func (s *Server) requireUnlock(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.controller.Authenticated() {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "locked"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Passphrase string `json:"passphrase"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if !s.controller.Login(req.Passphrase) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "口令不对"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	s.controller.Logout()
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) state(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.controller.Snapshot())
}

func (s *Server) analyze(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text      string `json:"text"`
		ImageData string `json:"imageData"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	result, err := s.controller.Analyze(r.Context(), req.Text, req.ImageData)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) ask(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Lane     app.Lane `json:"lane"`
		Question string   `json:"question"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	answer, err := s.controller.Ask(r.Context(), req.Lane, req.Question)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"answer": answer})
}

func (s *Server) reset(w http.ResponseWriter, r *http.Request) {
	s.controller.Reset()
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) history(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.controller.History())
}

func (s *Server) loadHistory(w http.ResponseWriter, r *http.Request) {
	if !s.controller.LoadHistoryItem(chi.URLParam(r, "id")) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "history item not found"})
		return
	}
	writeJSON(w, http.StatusOK, s.controller.Snapshot())
}

func (s *Server) deleteHistory(w http.ResponseWriter, r *http.Request) {
	if !s.controller.DeleteHistoryItem(chi.URLParam(r, "id")) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "history item not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) clearHistory(w http.ResponseWriter, r *http.Request) {
	s.controller.ClearHistory()
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("encode response failed", "error", err)
	}
}

// writeError maps the domain error taxonomy onto HTTP status codes and a
// stable JSON shape the UI can render directly.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	payload := map[string]string{"error": err.Error()}

	var ce *core.Error
	if errors.As(err, &ce) {
		payload["error"] = ce.Message
		payload["type"] = string(ce.Type)
		switch ce.Type {
		case core.ErrInvalidInput:
			status = http.StatusBadRequest
		case core.ErrMissingCredential:
			status = http.StatusUnauthorized
		case core.ErrRateLimit:
			status = http.StatusTooManyRequests
		case core.ErrOverloaded:
			status = http.StatusServiceUnavailable
		case core.ErrAnalysisParse:
			status = http.StatusBadGateway
		default:
			status = http.StatusBadGateway
		}
	}
	if errors.Is(err, app.ErrSuperseded) {
		status = http.StatusConflict
		payload["type"] = "superseded"
	}
	writeJSON(w, status, payload)
}
