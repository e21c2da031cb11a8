package http

import (
	"net/http"
	"strings"

	"bugtracker/internal/apperr"
	"bugtracker/internal/db"
)

type createUserReq struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	var req createUserReq
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	req.Name, req.Email = strings.TrimSpace(req.Name), strings.TrimSpace(req.Email)
	if req.Name == "" || !strings.Contains(req.Email, "@") {
		writeError(w, r, apperr.BadRequest("name and a valid email are required"))
		return
	}
	if req.Role == "" {
		req.Role = db.RoleUser
	}
	if req.Role != db.RoleUser && req.Role != db.RoleAdmin {
		writeError(w, r, apperr.BadRequest("role must be USER or ADMIN"))
		return
	}

	u := &db.User{Name: req.Name, Email: req.Email, Role: req.Role}
	if err := s.store.CreateUser(r.Context(), u); err != nil {
		writeError(w, r, apperr.Internal("Failed to create user", err))
		return
	}
	if u.Role == db.RoleAdmin && s.reporters != nil {
		s.reporters.Forget()
	}
	writeJSON(w, http.StatusCreated, u)
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.store.ListUsers(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}
