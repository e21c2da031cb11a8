package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	m "github.com/go-chi/chi/v5/middleware"

	"bugtracker/internal/apperr"
	"bugtracker/internal/cireport"
	"bugtracker/internal/db"
	"bugtracker/internal/worker"
)

// maxBody caps request bodies; CI logs are the largest.
const maxBody = 16 << 20

// Store is the persistence the API needs. *db.Store implements it.
type Store interface {
	cireport.Store
	Ping(ctx context.Context) error

	CreateUser(ctx context.Context, u *db.User) error
	ListUsers(ctx context.Context) ([]db.User, error)

	CreateProject(ctx context.Context, p *db.Project, creatorID string) error
	ListProjects(ctx context.Context, search string, limit int) ([]db.Project, error)
	SetProjectKeyHash(ctx context.Context, id, hash string) error

	GetBug(ctx context.Context, id string) (*db.Bug, error)
	ListBugs(ctx context.Context, f db.BugFilter) ([]db.Bug, error)
	UpdateBug(ctx context.Context, id string, u db.BugUpdate, userID string) (*db.Bug, []db.Activity, error)

	CreateComment(ctx context.Context, c *db.Comment) error
	ListComments(ctx context.Context, bugID string) ([]db.Comment, error)

	ListActivities(ctx context.Context, limit int) ([]db.Activity, error)
	ListBugActivities(ctx context.Context, bugID string) ([]db.Activity, error)
	ListProjectActivities(ctx context.Context, projectID string) ([]db.Activity, error)

	CreateCIReport(ctx context.Context, r *db.CIReport) error
	UpdateCIReport(ctx context.Context, r *db.CIReport) error
	GetCIReport(ctx context.Context, id string) (*db.CIReport, error)
}

// LogArchive keeps raw CI logs for queued processing.
type LogArchive interface {
	PutLog(ctx context.Context, projectID, reportID, text string) (string, error)
}

// ReporterCache is told when the set of admins changes.
type ReporterCache interface {
	Forget()
}

type Deps struct {
	Store      Store
	Ingest     *cireport.Service
	Logs       LogArchive
	Queue      worker.Enqueuer
	Reporters  ReporterCache
	AdminToken string
	Logger     *slog.Logger
}

type Server struct {
	store     Store
	ingest    *cireport.Service
	logs      LogArchive
	queue     worker.Enqueuer
	reporters ReporterCache
	token     string
	log       *slog.Logger
}

func NewServer(d Deps) *Server {
	log := d.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		store:     d.Store,
		ingest:    d.Ingest,
		logs:      d.Logs,
		queue:     d.Queue,
		reporters: d.Reporters,
		token:     d.AdminToken,
		log:       log,
	}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(m.RequestID, m.RealIP, m.Logger, m.Recoverer)

	// Project API key (Authorization: Bearer <key>)
	r.Post("/api/ci-report", s.postCIReport)
	r.Post("/api/ci-report/async", s.postCIReportAsync)

	r.Group(func(r chi.Router) {
		r.Use(RequireAPIToken(s.token))

		r.Post("/api/users", s.createUser)
		r.Get("/api/users", s.listUsers)

		r.Post("/api/projects", s.createProject)
		r.Get("/api/projects", s.listProjects)
		r.Get("/api/projects/{id}", s.getProject)
		r.Post("/api/projects/{id}/regenerate-key", s.regenerateKey)
		r.Get("/api/projects/{id}/bugs", s.listProjectBugs)
		r.Get("/api/projects/{id}/activities", s.listProjectActivities)

		r.Post("/api/bugs", s.createBug)
		r.Get("/api/bugs", s.listBugs)
		r.Get("/api/bugs/{id}", s.getBug)
		r.Patch("/api/bugs/{id}", s.updateBug)

		r.Post("/api/comments", s.createComment)
		r.Get("/api/activities", s.listActivities)

		r.Get("/api/ci-reports/{id}", s.getCIReport)
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := s.store.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "db error"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return r
}

type errResp struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	ae := apperr.MapError(err)
	if ae.Code >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request failed",
			"path", r.URL.Path, "request_id", m.GetReqID(r.Context()), "err", err)
	}
	writeJSON(w, ae.Code, errResp{Error: ae.Message, Details: ae.Details})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperr.New(http.StatusRequestEntityTooLarge, "Request body too large", err)
		}
		if errors.Is(err, io.EOF) {
			return apperr.BadRequest("Request body is empty")
		}
		return apperr.BadRequest("Invalid JSON body")
	}
	return nil
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, apperr.BadRequest("Invalid " + name)
	}
	return n, nil
}
