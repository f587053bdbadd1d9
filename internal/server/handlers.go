package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/orgball2608/story-playback-engine/internal/domain"
	"github.com/orgball2608/story-playback-engine/internal/session"
)

type errorResponse struct {
	Error string `json:"error"`
}

type openSessionRequest struct {
	GroupIndex int `json:"group_index"`
	ItemIndex  int `json:"item_index"`
}

// sessionEventRequest carries one platform or tap event.
// Types: media_ready, position, finished, error, pause, resume, next, prev.
type sessionEventRequest struct {
	Type       string `json:"type"`
	StoryID    string `json:"story_id,omitempty"`
	PositionMs int64  `json:"position_ms,omitempty"`
	DurationMs int64  `json:"duration_ms,omitempty"`
	Error      string `json:"error,omitempty"`
}

type catalogGroupResponse struct {
	domain.PublisherGroup
	IsFullyViewed bool `json:"is_fully_viewed"`
}

func (s *Server) handleGetCatalog(w http.ResponseWriter, _ *http.Request) {
	groups := s.catalog.Groups()
	resp := make([]catalogGroupResponse, 0, len(groups))
	for _, g := range groups {
		resp = append(resp, catalogGroupResponse{
			PublisherGroup: g,
			IsFullyViewed:  g.FullyViewed(),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRefreshCatalog(w http.ResponseWriter, r *http.Request) {
	if err := s.catalog.Refresh(r.Context()); err != nil {
		s.logger.Error("Catalog refresh failed", "error", err)
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "failed to refresh catalog"})
		return
	}
	s.handleGetCatalog(w, r)
}

func (s *Server) handleOpenSession(w http.ResponseWriter, r *http.Request) {
	var req openSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	if err := s.controller.Open(req.GroupIndex, req.ItemIndex); err != nil {
		switch {
		case errors.Is(err, session.ErrSessionOpen):
			writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
		case errors.Is(err, session.ErrEmptyCatalog), errors.Is(err, session.ErrInvalidIndex):
			writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
		default:
			writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
		}
		return
	}

	s.writeSnapshot(w, http.StatusCreated)
}

func (s *Server) handleGetSession(w http.ResponseWriter, _ *http.Request) {
	s.writeSnapshot(w, http.StatusOK)
}

func (s *Server) handleCloseSession(w http.ResponseWriter, _ *http.Request) {
	s.controller.Close()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSessionEvent(w http.ResponseWriter, r *http.Request) {
	var req sessionEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	pl, err := s.controller.CurrentPlayer()
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
		return
	}

	switch req.Type {
	case "media_ready":
		pl.MediaReady(req.StoryID, req.DurationMs)
	case "position":
		pl.ReportPosition(req.StoryID, req.PositionMs, req.DurationMs)
	case "finished":
		pl.MediaFinished(req.StoryID)
	case "error":
		pl.MediaError(req.StoryID, errors.New(req.Error))
	case "pause":
		pl.Pause()
	case "resume":
		pl.Resume()
	case "next":
		pl.Advance()
	case "prev":
		pl.Rewind()
	default:
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "unknown event type"})
		return
	}

	// The event may have closed the session; report what is left.
	snapshot, err := s.controller.Snapshot()
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]string{"state": "closed"})
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (s *Server) writeSnapshot(w http.ResponseWriter, status int) {
	snapshot, err := s.controller.Snapshot()
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, status, snapshot)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
