package http

import (
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"

	"bugtracker/internal/apperr"
	"bugtracker/internal/db"
)

var (
	statuses   = []string{db.StatusOpen, db.StatusInProgress, db.StatusResolved, db.StatusClosed}
	priorities = []string{db.PriorityLow, db.PriorityMedium, db.PriorityHigh}
	severities = []string{db.SeverityTrivial, db.SeverityMinor, db.SeverityMajor, db.SeverityCritical}
)

func oneOf(field, v string, allowed []string) error {
	if v == "" || slices.Contains(allowed, v) {
		return nil
	}
	return apperr.BadRequest("invalid " + field + ": " + v)
}

// csv splits a comma separated query value, dropping empty items.
func csv(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func bugFilter(r *http.Request) (db.BugFilter, error) {
	q := r.URL.Query()
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		return db.BugFilter{}, err
	}
	f := db.BugFilter{
		ProjectID:  q.Get("projectId"),
		Status:     q.Get("status"),
		Source:     q.Get("source"),
		Search:     q.Get("search"),
		Priorities: csv(q.Get("priority")),
		Severities: csv(q.Get("severity")),
		Limit:      limit,
	}
	switch a := q.Get("assigneeId"); a {
	case "unassigned":
		f.Unassigned = true
	default:
		f.AssigneeID = a
	}
	if err := oneOf("status", f.Status, statuses); err != nil {
		return f, err
	}
	for _, p := range f.Priorities {
		if err := oneOf("priority", p, priorities); err != nil {
			return f, err
		}
	}
	for _, s := range f.Severities {
		if err := oneOf("severity", s, severities); err != nil {
			return f, err
		}
	}
	return f, nil
}

func (s *Server) listBugs(w http.ResponseWriter, r *http.Request) {
	f, err := bugFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	bugs, err := s.store.ListBugs(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bugs)
}

type createBugReq struct {
	Title            string `json:"title"`
	Description      string `json:"description"`
	StepsToReproduce string `json:"stepsToReproduce"`
	Priority         string `json:"priority"`
	Severity         string `json:"severity"`
	ProjectID        string `json:"projectId"`
	ReporterID       string `json:"reporterId"`
	AssigneeID       string `json:"assigneeId"`
}

func (s *Server) createBug(w http.ResponseWriter, r *http.Request) {
	var req createBugReq
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Title == "" || req.Description == "" || req.ProjectID == "" || req.ReporterID == "" {
		writeError(w, r, apperr.BadRequest("title, description, projectId and reporterId are required"))
		return
	}
	if req.Priority == "" {
		req.Priority = db.PriorityMedium
	}
	if req.Severity == "" {
		req.Severity = db.SeverityMinor
	}
	for _, err := range []error{
		oneOf("priority", req.Priority, priorities),
		oneOf("severity", req.Severity, severities),
	} {
		if err != nil {
			writeError(w, r, err)
			return
		}
	}
	if _, err := s.store.GetProject(r.Context(), req.ProjectID); err != nil {
		writeError(w, r, projectErr(err))
		return
	}

	b := &db.Bug{
		Title:            req.Title,
		Description:      req.Description,
		StepsToReproduce: req.StepsToReproduce,
		Status:           db.StatusOpen,
		Priority:         req.Priority,
		Severity:         req.Severity,
		ProjectID:        req.ProjectID,
		ReporterID:       req.ReporterID,
	}
	if req.AssigneeID != "" {
		b.AssigneeID = &req.AssigneeID
	}
	if err := s.store.CreateBugWithActivity(r.Context(), b, "created this bug"); err != nil {
		writeError(w, r, apperr.Internal("Failed to create bug", err))
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

type bugDetail struct {
	*db.Bug
	Comments   []db.Comment  `json:"comments"`
	Activities []db.Activity `json:"activities"`
}

func (s *Server) getBug(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	b, err := s.store.GetBug(ctx, id)
	if err != nil {
		writeError(w, r, bugErr(err))
		return
	}
	comments, err := s.store.ListComments(ctx, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	acts, err := s.store.ListBugActivities(ctx, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bugDetail{Bug: b, Comments: comments, Activities: acts})
}

type updateBugReq struct {
	Title            *string `json:"title"`
	Description      *string `json:"description"`
	StepsToReproduce *string `json:"stepsToReproduce"`
	Status           *string `json:"status"`
	Priority         *string `json:"priority"`
	Severity         *string `json:"severity"`
	AssigneeID       *string `json:"assigneeId"`
	UserID           string  `json:"userId"`
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func (s *Server) updateBug(w http.ResponseWriter, r *http.Request) {
	var req updateBugReq
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	for _, err := range []error{
		oneOf("status", deref(req.Status), statuses),
		oneOf("priority", deref(req.Priority), priorities),
		oneOf("severity", deref(req.Severity), severities),
	} {
		if err != nil {
			writeError(w, r, err)
			return
		}
	}
	b, _, err := s.store.UpdateBug(r.Context(), chi.URLParam(r, "id"), db.BugUpdate{
		Title:            req.Title,
		Description:      req.Description,
		StepsToReproduce: req.StepsToReproduce,
		Status:           req.Status,
		Priority:         req.Priority,
		Severity:         req.Severity,
		AssigneeID:       req.AssigneeID,
	}, req.UserID)
	if err != nil {
		writeError(w, r, bugErr(err))
		return
	}
	writeJSON(w, http.StatusOK, b)
}

type createCommentReq struct {
	Content string `json:"content"`
	BugID   string `json:"bugId"`
	UserID  string `json:"userId"`
}

func (s *Server) createComment(w http.ResponseWriter, r *http.Request) {
	var req createCommentReq
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Content) == "" || req.BugID == "" || req.UserID == "" {
		writeError(w, r, apperr.BadRequest("content, bugId and userId are required"))
		return
	}
	if _, err := s.store.GetBug(r.Context(), req.BugID); err != nil {
		writeError(w, r, bugErr(err))
		return
	}
	c := &db.Comment{Content: req.Content, BugID: req.BugID, UserID: req.UserID}
	if err := s.store.CreateComment(r.Context(), c); err != nil {
		writeError(w, r, apperr.Internal("Failed to create comment", err))
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) listActivities(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 50)
	if err != nil {
		writeError(w, r, err)
		return
	}
	acts, err := s.store.ListActivities(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, acts)
}

func bugErr(err error) error {
	if errors.Is(err, db.ErrNotFound) {
		return apperr.NotFound("Bug not found")
	}
	return err
}
