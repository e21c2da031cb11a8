package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"bugtracker/internal/apperr"
	"bugtracker/internal/auth"
	"bugtracker/internal/db"
)

type createProjectReq struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	GitURL      string `json:"gitUrl"`
	GitBranch   string `json:"gitBranch"`
	GitProvider string `json:"gitProvider"`
	CreatorID   string `json:"creatorId"`
}

type projectResp struct {
	*db.Project
	// APIKey is only ever returned when a key is issued.
	APIKey string `json:"apiKey,omitempty"`
}

func (s *Server) createProject(w http.ResponseWriter, r *http.Request) {
	var req createProjectReq
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, r, apperr.BadRequest("name is required"))
		return
	}
	p := &db.Project{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		GitURL:      req.GitURL,
		GitBranch:   req.GitBranch,
		GitProvider: req.GitProvider,
	}
	if p.GitURL != "" && p.GitBranch == "" {
		p.GitBranch = "main"
	}

	var key string
	if p.GitURL != "" {
		var err error
		if key, err = auth.GenerateAPIKey(); err != nil {
			writeError(w, r, apperr.Internal("Failed to generate API key", err))
			return
		}
		p.APIKeyHash = auth.HashToken(key)
	}
	if err := s.store.CreateProject(r.Context(), p, req.CreatorID); err != nil {
		writeError(w, r, apperr.Internal("Failed to create project", err))
		return
	}
	writeJSON(w, http.StatusCreated, projectResp{Project: p, APIKey: key})
}

func (s *Server) listProjects(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		writeError(w, r, err)
		return
	}
	projects, err := s.store.ListProjects(r.Context(), r.URL.Query().Get("search"), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

func (s *Server) getProject(w http.ResponseWriter, r *http.Request) {
	p, err := s.store.GetProject(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, projectErr(err))
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) regenerateKey(w http.ResponseWriter, r *http.Request) {
	key, err := auth.GenerateAPIKey()
	if err != nil {
		writeError(w, r, apperr.Internal("Failed to generate API key", err))
		return
	}
	if err := s.store.SetProjectKeyHash(r.Context(), chi.URLParam(r, "id"), auth.HashToken(key)); err != nil {
		writeError(w, r, projectErr(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"apiKey": key})
}

func (s *Server) listProjectBugs(w http.ResponseWriter, r *http.Request) {
	f, err := bugFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	f.ProjectID = chi.URLParam(r, "id")
	bugs, err := s.store.ListBugs(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bugs)
}

func (s *Server) listProjectActivities(w http.ResponseWriter, r *http.Request) {
	acts, err := s.store.ListProjectActivities(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, acts)
}

func projectErr(err error) error {
	if errors.Is(err, db.ErrNotFound) {
		return apperr.NotFound("Project not found")
	}
	return err
}
