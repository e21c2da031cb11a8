package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"bugtracker/internal/apperr"
	"bugtracker/internal/auth"
	"bugtracker/internal/cireport"
	"bugtracker/internal/db"
	"bugtracker/internal/worker"
)

type ciReportResp struct {
	Created int                   `json:"created"`
	Bugs    []cireport.CreatedBug `json:"bugs"`
	Failed  []cireport.FailedBug  `json:"failed,omitempty"`
}

type messageResp struct {
	Message string `json:"message"`
}

// projectKey pulls the project API key from the request. The missing header
// is rejected before the body is read.
func projectKey(r *http.Request) (string, error) {
	key, ok := auth.BearerToken(r.Header.Get("Authorization"))
	if !ok {
		return "", apperr.Unauthorized()
	}
	return key, nil
}

func (s *Server) postCIReport(w http.ResponseWriter, r *http.Request) {
	key, err := projectKey(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req cireport.Report
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	sum, err := s.ingest.Ingest(r.Context(), key, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if sum.NoFailures() {
		writeJSON(w, http.StatusOK, messageResp{Message: cireport.NoFailuresMessage})
		return
	}
	writeJSON(w, http.StatusOK, ciReportResp{Created: sum.Created, Bugs: sum.Bugs, Failed: sum.Failed})
}

type queuedResp struct {
	ReportID string `json:"reportId"`
	Status   string `json:"status"`
}

func (s *Server) postCIReportAsync(w http.ResponseWriter, r *http.Request) {
	if s.logs == nil || s.queue == nil {
		writeJSON(w, http.StatusServiceUnavailable, errResp{Error: "Asynchronous ingestion is not configured"})
		return
	}
	key, err := projectKey(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req cireport.Report
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	ctx := r.Context()
	project, err := s.ingest.Authorize(ctx, key, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	text, err := cireport.DecodeLog(req.TestOutput)
	if err != nil {
		writeError(w, r, err)
		return
	}

	rep := &db.CIReport{
		ID:         uuid.NewString(),
		ProjectID:  project.ID,
		Commit:     req.Commit,
		Branch:     req.Branch,
		Repository: req.Repository,
		Status:     db.ReportQueued,
	}
	if rep.LogRef, err = s.logs.PutLog(ctx, project.ID, rep.ID, text); err != nil {
		writeError(w, r, apperr.Internal("Failed to store CI log", err))
		return
	}
	if err := s.store.CreateCIReport(ctx, rep); err != nil {
		writeError(w, r, apperr.Internal("Failed to store CI report", err))
		return
	}
	if err := worker.EnqueueCIReport(ctx, s.queue, rep.ID); err != nil {
		rep.Status, rep.Error = db.ReportFailed, err.Error()
		_ = s.store.UpdateCIReport(ctx, rep)
		writeError(w, r, apperr.Internal("Failed to queue CI report", err))
		return
	}
	s.log.InfoContext(ctx, "ci report queued", "report", rep.ID, "project", project.ID)
	writeJSON(w, http.StatusAccepted, queuedResp{ReportID: rep.ID, Status: rep.Status})
}

type ciReportView struct {
	ID         string          `json:"id"`
	ProjectID  string          `json:"projectId"`
	Commit     string          `json:"commit,omitempty"`
	Branch     string          `json:"branch,omitempty"`
	Repository string          `json:"repository,omitempty"`
	Status     string          `json:"status"`
	Framework  string          `json:"framework,omitempty"`
	Created    int             `json:"created"`
	Result     json.RawMessage `json:"result,omitempty"`
	Error      string          `json:"error,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

func (s *Server) getCIReport(w http.ResponseWriter, r *http.Request) {
	rep, err := s.store.GetCIReport(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ciReportView{
		ID:         rep.ID,
		ProjectID:  rep.ProjectID,
		Commit:     rep.Commit,
		Branch:     rep.Branch,
		Repository: rep.Repository,
		Status:     rep.Status,
		Framework:  rep.Framework,
		Created:    rep.CreatedCount,
		Result:     rep.Result,
		Error:      rep.Error,
		CreatedAt:  rep.CreatedAt,
		UpdatedAt:  rep.UpdatedAt,
	})
}
