package http

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hibiken/asynq"

	"bugtracker/internal/db"
)

type memStore struct {
	users      []db.User
	projects   map[string]*db.Project
	bugs       map[string]*db.Bug
	comments   []db.Comment
	activities []db.Activity
	reports    map[string]*db.CIReport
	pingErr    error
	seq        int
}

func newMemStore() *memStore {
	return &memStore{
		projects: map[string]*db.Project{},
		bugs:     map[string]*db.Bug{},
		reports:  map[string]*db.CIReport{},
	}
}

func (s *memStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

func missing(what string) error { return fmt.Errorf("%s: %w", what, db.ErrNotFound) }

func (s *memStore) Ping(context.Context) error { return s.pingErr }

func (s *memStore) CreateUser(_ context.Context, u *db.User) error {
	u.ID = s.nextID("user")
	s.users = append(s.users, *u)
	return nil
}

func (s *memStore) ListUsers(context.Context) ([]db.User, error) { return s.users, nil }

func (s *memStore) CreateProject(_ context.Context, p *db.Project, creatorID string) error {
	p.ID = s.nextID("project")
	s.projects[p.ID] = p
	if creatorID != "" {
		s.activities = append(s.activities, db.Activity{Action: "created this project", ProjectID: &p.ID, UserID: creatorID})
	}
	return nil
}

func (s *memStore) GetProject(_ context.Context, id string) (*db.Project, error) {
	p, ok := s.projects[id]
	if !ok {
		return nil, missing("project " + id)
	}
	return p, nil
}

func (s *memStore) ListProjects(_ context.Context, search string, _ int) ([]db.Project, error) {
	out := []db.Project{}
	for _, p := range s.projects {
		if search == "" || strings.Contains(strings.ToLower(p.Name), strings.ToLower(search)) {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (s *memStore) SetProjectKeyHash(_ context.Context, id, hash string) error {
	p, ok := s.projects[id]
	if !ok {
		return missing("project " + id)
	}
	p.APIKeyHash = hash
	return nil
}

func (s *memStore) CreateBugWithActivity(_ context.Context, b *db.Bug, action string) error {
	if strings.Contains(b.Title, "explode") {
		return errors.New("insert bug: disk full")
	}
	b.ID = s.nextID("bug")
	s.bugs[b.ID] = b
	s.activities = append(s.activities, db.Activity{Action: action, BugID: &b.ID, UserID: b.ReporterID})
	return nil
}

func (s *memStore) GetBug(_ context.Context, id string) (*db.Bug, error) {
	b, ok := s.bugs[id]
	if !ok {
		return nil, missing("bug " + id)
	}
	return b, nil
}

func (s *memStore) ListBugs(_ context.Context, f db.BugFilter) ([]db.Bug, error) {
	out := []db.Bug{}
	for _, b := range s.bugs {
		if f.ProjectID != "" && b.ProjectID != f.ProjectID {
			continue
		}
		if f.Source != "" && b.Source != f.Source {
			continue
		}
		out = append(out, *b)
	}
	return out, nil
}

func (s *memStore) UpdateBug(_ context.Context, id string, u db.BugUpdate, userID string) (*db.Bug, []db.Activity, error) {
	b, ok := s.bugs[id]
	if !ok {
		return nil, nil, missing("bug " + id)
	}
	var acts []db.Activity
	if u.Status != nil && *u.Status != b.Status {
		a := db.Activity{Action: fmt.Sprintf("changed status from '%s' to '%s'", b.Status, *u.Status), BugID: &b.ID, UserID: userID}
		acts = append(acts, a)
		s.activities = append(s.activities, a)
		b.Status = *u.Status
	}
	return b, acts, nil
}

func (s *memStore) CreateComment(_ context.Context, c *db.Comment) error {
	c.ID = s.nextID("comment")
	s.comments = append(s.comments, *c)
	s.activities = append(s.activities, db.Activity{Action: "added comment", BugID: &c.BugID, UserID: c.UserID})
	return nil
}

func (s *memStore) ListComments(_ context.Context, bugID string) ([]db.Comment, error) {
	out := []db.Comment{}
	for _, c := range s.comments {
		if c.BugID == bugID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *memStore) ListActivities(context.Context, int) ([]db.Activity, error) {
	return s.activities, nil
}

func (s *memStore) ListBugActivities(_ context.Context, bugID string) ([]db.Activity, error) {
	out := []db.Activity{}
	for _, a := range s.activities {
		if a.BugID != nil && *a.BugID == bugID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *memStore) ListProjectActivities(_ context.Context, projectID string) ([]db.Activity, error) {
	out := []db.Activity{}
	for _, a := range s.activities {
		if a.ProjectID != nil && *a.ProjectID == projectID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *memStore) CreateCIReport(_ context.Context, r *db.CIReport) error {
	if r.ID == "" {
		r.ID = s.nextID("report")
	}
	s.reports[r.ID] = r
	return nil
}

func (s *memStore) UpdateCIReport(_ context.Context, r *db.CIReport) error {
	s.reports[r.ID] = r
	return nil
}

func (s *memStore) GetCIReport(_ context.Context, id string) (*db.CIReport, error) {
	r, ok := s.reports[id]
	if !ok {
		return nil, missing("ci report " + id)
	}
	return r, nil
}

type memLogs map[string]string

func (m memLogs) PutLog(_ context.Context, projectID, reportID, text string) (string, error) {
	ref := "s3://ci-logs/logs/" + projectID + "/" + reportID + ".log"
	m[ref] = text
	return ref, nil
}

type memQueue struct{ tasks []*asynq.Task }

func (q *memQueue) EnqueueContext(_ context.Context, t *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	q.tasks = append(q.tasks, t)
	return &asynq.TaskInfo{ID: "task-1", Type: t.Type()}, nil
}

type countingCache struct{ forgets int }

func (c *countingCache) Forget() { c.forgets++ }
