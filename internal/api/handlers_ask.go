package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/dgallion1/paperchat/internal/completion"
	"github.com/dgallion1/paperchat/internal/sections"
	"github.com/go-chi/chi/v5"
)

type askRequest struct {
	Query string `json:"query"`
	Model string `json:"model"`
}

type askResponse struct {
	Answer   string              `json:"answer"`
	Failed   bool                `json:"failed"`
	Failure  *completion.Failure `json:"failure,omitempty"`
	Target   string              `json:"target"`
	Question string              `json:"question"`
	Model    string              `json:"model"`
}

// handleAsk answers one query. A completion failure is still a 200: the
// answer field carries the readable error line.
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		jsonError(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		jsonError(w, "query is required", http.StatusBadRequest)
		return
	}

	ex, err := s.chat.Ask(r.Context(), chi.URLParam(r, "sessionID"), req.Query, req.Model)
	switch {
	case errors.Is(err, completion.ErrUnknownModel):
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	case err != nil:
		s.sessionError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, askResponse{
		Answer:   ex.Reply.Content,
		Failed:   ex.Reply.Failed,
		Failure:  ex.Result.Failure,
		Target:   ex.Target,
		Question: ex.Question,
		Model:    ex.Reply.Model,
	})
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"models":  s.catalog.Models(),
		"default": s.catalog.Default(),
	})
}

// handleSectionUsage lists the query prefixes a user can type.
func (s *Server) handleSectionUsage(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"sections":  sections.All,
		"delimiter": sections.Delimiter,
		"usage":     sections.Usage(),
	})
}
