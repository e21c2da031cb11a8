package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bugtracker/internal/cireport"
	"bugtracker/internal/db"
	"bugtracker/internal/logging"
)

type fakeStore struct {
	reports  map[string]*db.CIReport
	projects map[string]*db.Project
	statuses []string
	bugs     []*db.Bug
}

func (s *fakeStore) GetCIReport(_ context.Context, id string) (*db.CIReport, error) {
	r, ok := s.reports[id]
	if !ok {
		return nil, fmt.Errorf("ci report %s: %w", id, db.ErrNotFound)
	}
	return r, nil
}

func (s *fakeStore) UpdateCIReport(_ context.Context, r *db.CIReport) error {
	s.statuses = append(s.statuses, r.Status)
	return nil
}

func (s *fakeStore) GetProject(_ context.Context, id string) (*db.Project, error) {
	p, ok := s.projects[id]
	if !ok {
		return nil, fmt.Errorf("project %s: %w", id, db.ErrNotFound)
	}
	return p, nil
}

func (s *fakeStore) CreateBugWithActivity(_ context.Context, b *db.Bug, _ string) error {
	b.ID = fmt.Sprintf("bug-%d", len(s.bugs)+1)
	s.bugs = append(s.bugs, b)
	return nil
}

type fakeLogs map[string]string

func (f fakeLogs) GetLog(_ context.Context, ref string) (string, error) {
	text, ok := f[ref]
	if !ok {
		return "", errors.New("no such object")
	}
	return text, nil
}

func setup() (*fakeStore, *Handler) {
	store := &fakeStore{
		reports: map[string]*db.CIReport{
			"r1": {ID: "r1", ProjectID: "p1", LogRef: "s3://ci-logs/logs/p1/r1.log", Status: db.ReportQueued},
		},
		projects: map[string]*db.Project{"p1": {ID: "p1", Name: "Web"}},
	}
	logs := fakeLogs{"s3://ci-logs/logs/p1/r1.log": "FAILED tests/test_a.py::test_one - boom\npytest\n"}
	svc := cireport.NewService(store, cireport.StaticReporter("admin"), true, cireport.WithLogger(logging.Discard()))
	return store, NewHandler(store, logs, svc, logging.Discard())
}

func task(t *testing.T, id string) *asynq.Task {
	t.Helper()
	tk, err := NewProcessCIReportTask(id)
	require.NoError(t, err)
	return tk
}

func TestNewProcessCIReportTask(t *testing.T) {
	tk := task(t, "r1")
	assert.Equal(t, TypeProcessCIReport, tk.Type())
	var p ProcessCIReportPayload
	require.NoError(t, json.Unmarshal(tk.Payload(), &p))
	assert.Equal(t, "r1", p.ReportID)
}

func TestProcessTask_CreatesBugs(t *testing.T) {
	store, h := setup()

	require.NoError(t, h.ProcessTask(context.Background(), task(t, "r1")))

	assert.Equal(t, []string{db.ReportProcessing, db.ReportDone}, store.statuses)
	require.Len(t, store.bugs, 1)
	assert.Equal(t, "Test Failure: test_one", store.bugs[0].Title)
	rep := store.reports["r1"]
	assert.Equal(t, 1, rep.CreatedCount)
	assert.Equal(t, "pytest", rep.Framework)
}

func TestProcessTask_UnknownReportSkipsRetry(t *testing.T) {
	_, h := setup()
	err := h.ProcessTask(context.Background(), task(t, "missing"))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestProcessTask_BadPayload(t *testing.T) {
	_, h := setup()
	err := h.ProcessTask(context.Background(), asynq.NewTask(TypeProcessCIReport, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestProcessTask_MissingProjectMarksFailed(t *testing.T) {
	store, h := setup()
	store.reports["r1"].ProjectID = "gone"

	require.NoError(t, h.ProcessTask(context.Background(), task(t, "r1")))

	assert.Equal(t, db.ReportFailed, store.reports["r1"].Status)
	assert.Contains(t, store.reports["r1"].Error, "gone")
}

func TestProcessTask_LogFetchErrorRetries(t *testing.T) {
	store, h := setup()
	store.reports["r1"].LogRef = "s3://ci-logs/other"

	err := h.ProcessTask(context.Background(), task(t, "r1"))

	require.Error(t, err)
	assert.NotErrorIs(t, err, asynq.SkipRetry)
}

func TestProcessTask_AlreadyDone(t *testing.T) {
	store, h := setup()
	store.reports["r1"].Status = db.ReportDone

	require.NoError(t, h.ProcessTask(context.Background(), task(t, "r1")))
	assert.Empty(t, store.statuses)
	assert.Empty(t, store.bugs)
}

type fakeQueue struct{ tasks []*asynq.Task }

func (q *fakeQueue) EnqueueContext(_ context.Context, t *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	q.tasks = append(q.tasks, t)
	return &asynq.TaskInfo{ID: "t1", Type: t.Type()}, nil
}

func TestEnqueueCIReport(t *testing.T) {
	q := &fakeQueue{}
	require.NoError(t, EnqueueCIReport(context.Background(), q, "r9"))
	require.Len(t, q.tasks, 1)
	assert.JSONEq(t, `{"reportId":"r9"}`, string(q.tasks[0].Payload()))
}
