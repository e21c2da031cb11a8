package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"bugtracker/internal/cireport"
	"bugtracker/internal/db"
)

type ReportStore interface {
	GetCIReport(ctx context.Context, id string) (*db.CIReport, error)
	UpdateCIReport(ctx context.Context, r *db.CIReport) error
	GetProject(ctx context.Context, id string) (*db.Project, error)
}

type LogFetcher interface {
	GetLog(ctx context.Context, ref string) (string, error)
}

// Pipeline turns a decoded log into bugs. *cireport.Service implements it.
type Pipeline interface {
	Process(ctx context.Context, project *db.Project, r cireport.Report, text string) (*cireport.Summary, error)
}

// Handler runs queued CI reports through the ingestion pipeline.
type Handler struct {
	reports  ReportStore
	logs     LogFetcher
	pipeline Pipeline
	log      *slog.Logger
}

func NewHandler(reports ReportStore, logs LogFetcher, pipeline Pipeline, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{reports: reports, logs: logs, pipeline: pipeline, log: log}
}

func (h *Handler) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.Handle(TypeProcessCIReport, h)
	return mux
}

// ProcessTask handles TypeProcessCIReport. Storage errors are returned so
// asynq retries; a report that can never succeed is marked failed and the
// task completes.
func (h *Handler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var p ProcessCIReportPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil || p.ReportID == "" {
		return fmt.Errorf("bad payload %q: %w", t.Payload(), asynq.SkipRetry)
	}
	log := h.log.With("report", p.ReportID)

	rep, err := h.reports.GetCIReport(ctx, p.ReportID)
	if errors.Is(err, db.ErrNotFound) {
		return fmt.Errorf("report %s: %w", p.ReportID, asynq.SkipRetry)
	}
	if err != nil {
		return err
	}
	if rep.Status == db.ReportDone {
		log.InfoContext(ctx, "ci report already processed")
		return nil
	}

	rep.Status = db.ReportProcessing
	if err := h.reports.UpdateCIReport(ctx, rep); err != nil {
		return err
	}

	project, err := h.reports.GetProject(ctx, rep.ProjectID)
	if errors.Is(err, db.ErrNotFound) {
		return h.fail(ctx, rep, fmt.Errorf("project %s no longer exists", rep.ProjectID))
	}
	if err != nil {
		return err
	}
	text, err := h.logs.GetLog(ctx, rep.LogRef)
	if err != nil {
		return err
	}

	sum, procErr := h.pipeline.Process(ctx, project, cireport.Report{
		ProjectID:  rep.ProjectID,
		Commit:     rep.Commit,
		Branch:     rep.Branch,
		Repository: rep.Repository,
	}, text)
	cireport.ApplySummary(rep, sum, procErr)
	if err := h.reports.UpdateCIReport(ctx, rep); err != nil {
		return err
	}
	log.InfoContext(ctx, "ci report processed", "status", rep.Status, "created", rep.CreatedCount)
	return nil
}

func (h *Handler) fail(ctx context.Context, rep *db.CIReport, cause error) error {
	h.log.WarnContext(ctx, "ci report failed", "report", rep.ID, "err", cause)
	cireport.ApplySummary(rep, nil, cause)
	return h.reports.UpdateCIReport(ctx, rep)
}

// Run serves the queue until the process is signalled.
func Run(redisAddr string, concurrency int, h *Handler) error {
	srv := asynq.NewServer(asynq.RedisClientOpt{Addr: redisAddr}, asynq.Config{Concurrency: concurrency})
	return srv.Run(h.Mux())
}
