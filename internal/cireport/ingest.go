package cireport

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"bugtracker/internal/apperr"
	"bugtracker/internal/auth"
	"bugtracker/internal/db"
)

// NoFailuresMessage answers a report whose log has no failing tests.
const NoFailuresMessage = "No failures detected"

const (
	msgMissingFields = "Missing required fields: projectId and testOutput"
	msgNoReporter    = "No default reporter found"
	msgProcessFailed = "Failed to process CI report"
)

// Report is the body of a CI report request.
type Report struct {
	ProjectID  string `json:"projectId"`
	Commit     string `json:"commit,omitempty"`
	Branch     string `json:"branch,omitempty"`
	Repository string `json:"repository,omitempty"`
	TestOutput string `json:"testOutput"` // base64
}

func (r Report) Validate() error {
	if r.ProjectID == "" || r.TestOutput == "" {
		return apperr.BadRequest(msgMissingFields)
	}
	return nil
}

// DecodeLog base64-decodes a CI log, accepting padded and unpadded input.
// CRLF line endings are normalized and invalid UTF-8 is replaced.
func DecodeLog(b64 string) (string, error) {
	b64 = strings.TrimSpace(b64)
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		var rawErr error
		if raw, rawErr = base64.RawStdEncoding.DecodeString(strings.TrimRight(b64, "=")); rawErr != nil {
			return "", apperr.New(http.StatusBadRequest, "testOutput is not valid base64", err)
		}
	}
	text := strings.ToValidUTF8(string(raw), "�")
	return strings.ReplaceAll(text, "\r\n", "\n"), nil
}

type CreatedBug struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Project string `json:"project"`
}

type FailedBug struct {
	TestName string `json:"testName"`
	Error    string `json:"error"`
}

// Summary is the outcome of one ingestion.
type Summary struct {
	Framework Framework    `json:"framework"`
	Detected  int          `json:"detected"`
	Created   int          `json:"created"`
	Bugs      []CreatedBug `json:"bugs"`
	Failed    []FailedBug  `json:"failed,omitempty"`
}

// NoFailures reports whether the log contained no failing tests.
func (s *Summary) NoFailures() bool { return s.Detected == 0 }

// Store is the persistence the service needs.
type Store interface {
	GetProject(ctx context.Context, id string) (*db.Project, error)
	BugCreator
}

// ReportRecorder keeps an audit row per synchronous ingestion.
type ReportRecorder interface {
	CreateCIReport(ctx context.Context, r *db.CIReport) error
}

type Service struct {
	store     Store
	reporters ReporterResolver
	// verifyKeys compares the bearer token with the project's key hash.
	verifyKeys bool
	recorder   ReportRecorder
	log        *slog.Logger
}

type Option func(*Service)

// WithRecorder records every synchronous ingestion through r.
func WithRecorder(r ReportRecorder) Option {
	return func(s *Service) { s.recorder = r }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.log = l }
}

func NewService(store Store, reporters ReporterResolver, verifyKeys bool, opts ...Option) *Service {
	s := &Service{store: store, reporters: reporters, verifyKeys: verifyKeys, log: slog.Default()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Authorize validates r and resolves its project, checking apiKey against
// the project's stored key when verification is on.
func (s *Service) Authorize(ctx context.Context, apiKey string, r Report) (*db.Project, error) {
	if apiKey == "" {
		return nil, apperr.Unauthorized()
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	project, err := s.store.GetProject(ctx, r.ProjectID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, apperr.NotFound("Project not found")
	}
	if err != nil {
		return nil, apperr.Internal(msgProcessFailed, err)
	}
	if s.verifyKeys && !auth.KeyMatches(apiKey, project.APIKeyHash) {
		s.log.WarnContext(ctx, "ci report rejected: api key mismatch", "project", project.ID)
		return nil, apperr.Unauthorized()
	}
	return project, nil
}

// Ingest runs a synchronous CI report end to end.
func (s *Service) Ingest(ctx context.Context, apiKey string, r Report) (*Summary, error) {
	project, err := s.Authorize(ctx, apiKey, r)
	if err != nil {
		return nil, err
	}
	text, err := DecodeLog(r.TestOutput)
	if err != nil {
		return nil, err
	}
	sum, err := s.Process(ctx, project, r, text)
	s.record(ctx, project, r, sum, err)
	return sum, err
}

// Process extracts failures from text and files one bug per failure, in
// log order. A failure that cannot be saved is reported in Summary.Failed
// and does not stop the others; if none could be saved Process returns an
// error along with the summary.
func (s *Service) Process(ctx context.Context, project *db.Project, r Report, text string) (*Summary, error) {
	fw, failures := ExtractFailures(text)
	sum := &Summary{Framework: fw, Detected: len(failures), Bugs: []CreatedBug{}}
	log := s.log.With("project", project.ID, "framework", fw)
	if len(failures) == 0 {
		log.InfoContext(ctx, "ci report without failures")
		return sum, nil
	}
	log.InfoContext(ctx, "ci report failures detected", "count", len(failures))

	reporterID, err := s.reporters.DefaultReporterID(ctx)
	if errors.Is(err, ErrNoReporter) {
		return sum, apperr.New(http.StatusInternalServerError, msgNoReporter, err)
	}
	if err != nil {
		return sum, apperr.Internal(msgProcessFailed, err)
	}

	target := Target{
		ProjectID:  project.ID,
		ReporterID: reporterID,
		Commit:     r.Commit,
		Branch:     r.Branch,
		Repository: r.Repository,
	}
	var firstErr error
	for _, f := range failures {
		b, err := Materialize(ctx, s.store, f, target)
		if err != nil {
			log.ErrorContext(ctx, "ci bug not created", "test", f.TestName, "err", err)
			sum.Failed = append(sum.Failed, FailedBug{TestName: f.TestName, Error: err.Error()})
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		sum.Bugs = append(sum.Bugs, CreatedBug{ID: b.ID, Title: b.Title, Project: project.Name})
	}
	sum.Created = len(sum.Bugs)

	if sum.Created == 0 {
		return sum, apperr.Internal(msgProcessFailed, firstErr)
	}
	log.InfoContext(ctx, "ci bugs created", "created", sum.Created, "failed", len(sum.Failed))
	return sum, nil
}

func (s *Service) record(ctx context.Context, project *db.Project, r Report, sum *Summary, procErr error) {
	if s.recorder == nil {
		return
	}
	rep := &db.CIReport{
		ProjectID:  project.ID,
		Commit:     r.Commit,
		Branch:     r.Branch,
		Repository: r.Repository,
		Status:     db.ReportDone,
	}
	ApplySummary(rep, sum, procErr)
	if err := s.recorder.CreateCIReport(ctx, rep); err != nil {
		s.log.WarnContext(ctx, "ci report not recorded", "project", project.ID, "err", err)
	}
}

// ApplySummary copies the outcome of Process onto a report row.
func ApplySummary(rep *db.CIReport, sum *Summary, procErr error) {
	rep.Status = db.ReportDone
	rep.Error = ""
	if procErr != nil {
		rep.Status = db.ReportFailed
		rep.Error = procErr.Error()
	}
	if sum == nil {
		return
	}
	rep.Framework = string(sum.Framework)
	rep.CreatedCount = sum.Created
	if b, err := json.Marshal(sum); err == nil {
		rep.Result = b
	} else {
		rep.Error = fmt.Sprintf("encode summary: %v", err)
	}
}
