package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// TypeProcessCIReport processes a queued CI report.
const TypeProcessCIReport = "ci_report:process"

type ProcessCIReportPayload struct {
	ReportID string `json:"reportId"`
}

func NewProcessCIReportTask(reportID string) (*asynq.Task, error) {
	b, err := json.Marshal(ProcessCIReportPayload{ReportID: reportID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeProcessCIReport, b), nil
}

// Enqueuer is satisfied by *asynq.Client.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// EnqueueCIReport schedules processing of a stored report.
func EnqueueCIReport(ctx context.Context, q Enqueuer, reportID string) error {
	task, err := NewProcessCIReportTask(reportID)
	if err != nil {
		return err
	}
	if _, err := q.EnqueueContext(ctx, task, asynq.MaxRetry(3), asynq.Timeout(5*time.Minute)); err != nil {
		return fmt.Errorf("enqueue %s: %w", reportID, err)
	}
	return nil
}
