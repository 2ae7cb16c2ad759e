package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/taiga-contrib/relay/internal/events"
	"github.com/taiga-contrib/relay/internal/subscription"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, HealthResponse{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(s.startedAt) / time.Second),
		Network:       s.config.Network,
		Channels:      len(s.joined()),
	})
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	channel := chi.URLParam(r, "channel")

	subs, err := s.registry.List(r.Context(), channel)
	if err != nil {
		s.logger.Error("list projects failed", "channel", channel, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to list projects")
		return
	}

	resp := ProjectListResponse{
		Channel:  channel,
		Projects: make([]ProjectEntry, 0, len(subs)),
	}
	for _, sub := range subs {
		resp.Projects = append(resp.Projects, ProjectEntry{
			ProjectID: sub.ProjectID,
			Slug:      sub.Slug,
			URL:       sub.BaseURL,
		})
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAddProject(w http.ResponseWriter, r *http.Request) {
	channel := chi.URLParam(r, "channel")

	var req AddProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.ProjectID == "" || req.Slug == "" || req.URL == "" {
		s.writeError(w, http.StatusBadRequest, "project_id, slug and url are required")
		return
	}

	err := s.registry.Add(r.Context(), channel, req.ProjectID, req.Slug, req.URL)
	if errors.Is(err, subscription.ErrAlreadyExists) {
		s.writeError(w, http.StatusConflict, "project already registered")
		return
	}
	if err != nil {
		s.logger.Error("add project failed", "channel", channel, "project", req.ProjectID, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to add project")
		return
	}

	s.logger.Info("project registered", "channel", channel, "project", req.ProjectID, "slug", req.Slug)
	s.hub.Publish(events.TypeSubscriptionAdded, map[string]any{
		"channel": channel,
		"project": req.ProjectID,
		"slug":    req.Slug,
	})
	s.writeJSON(w, http.StatusCreated, ProjectEntry{
		ProjectID: req.ProjectID,
		Slug:      req.Slug,
		URL:       req.URL,
	})
}

func (s *Server) handleRemoveProject(w http.ResponseWriter, r *http.Request) {
	channel := chi.URLParam(r, "channel")
	projectID := chi.URLParam(r, "projectID")

	err := s.registry.Remove(r.Context(), channel, projectID)
	if errors.Is(err, subscription.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "project not registered")
		return
	}
	if err != nil {
		s.logger.Error("remove project failed", "channel", channel, "project", projectID, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to remove project")
		return
	}

	s.logger.Info("project unregistered", "channel", channel, "project", projectID)
	s.hub.Publish(events.TypeSubscriptionRemoved, map[string]any{
		"channel": channel,
		"project": projectID,
	})
	w.WriteHeader(http.StatusNoContent)
}
