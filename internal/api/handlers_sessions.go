package api

import (
	"errors"
	"net/http"

	"github.com/dgallion1/paperchat/internal/sections"
	"github.com/dgallion1/paperchat/internal/session"
	"github.com/go-chi/chi/v5"
)

type sessionResponse struct {
	*session.Session
	MessageCount int `json:"message_count"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.store.Create(r.Context())
	if err != nil {
		s.log.Error("create session failed", "error", err)
		jsonError(w, "failed to create session", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse{Session: sess})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.loadSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Session: sess, MessageCount: len(sess.Messages)})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	if err := s.store.Delete(r.Context(), id); err != nil {
		s.sessionError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSessionSections returns the current SectionMap. Before any upload
// every section is present and empty.
func (s *Server) handleSessionSections(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.loadSession(w, r)
	if !ok {
		return
	}

	secs := sess.Sections()
	if secs == nil {
		secs = sections.New()
	}
	found := secs.Found()
	if found == nil {
		found = []sections.Section{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"document": sess.Document,
		"sections": secs,
		"found":    found,
	})
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.loadSession(w, r)
	if !ok {
		return
	}
	msgs := sess.Messages
	if msgs == nil {
		msgs = []session.Message{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": sess.ID,
		"messages":   msgs,
	})
}

func (s *Server) loadSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := s.store.Get(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		s.sessionError(w, err)
		return nil, false
	}
	return sess, true
}

func (s *Server) sessionError(w http.ResponseWriter, err error) {
	if errors.Is(err, session.ErrSessionNotFound) {
		jsonError(w, "session not found", http.StatusNotFound)
		return
	}
	s.log.Error("session store error", "error", err)
	jsonError(w, "session store error", http.StatusInternalServerError)
}
