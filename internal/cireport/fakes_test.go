package cireport

import (
	"context"
	"fmt"

	"bugtracker/internal/db"
)

type fakeStore struct {
	projects   map[string]*db.Project
	bugs       []*db.Bug
	activities []db.Activity
	reports    []*db.CIReport
	lookups    int
	// failTitles makes CreateBugWithActivity fail for these bug titles.
	failTitles map[string]bool
}

func newFakeStore(projects ...*db.Project) *fakeStore {
	s := &fakeStore{projects: map[string]*db.Project{}, failTitles: map[string]bool{}}
	for _, p := range projects {
		s.projects[p.ID] = p
	}
	return s
}

func (s *fakeStore) GetProject(_ context.Context, id string) (*db.Project, error) {
	s.lookups++
	p, ok := s.projects[id]
	if !ok {
		return nil, fmt.Errorf("project %s: %w", id, db.ErrNotFound)
	}
	return p, nil
}

func (s *fakeStore) CreateBugWithActivity(_ context.Context, b *db.Bug, action string) error {
	if s.failTitles[b.Title] {
		return fmt.Errorf("insert bug: connection reset")
	}
	b.ID = fmt.Sprintf("bug-%d", len(s.bugs)+1)
	s.bugs = append(s.bugs, b)
	bugID := b.ID
	s.activities = append(s.activities, db.Activity{Action: action, BugID: &bugID, UserID: b.ReporterID})
	return nil
}

func (s *fakeStore) CreateCIReport(_ context.Context, r *db.CIReport) error {
	s.reports = append(s.reports, r)
	return nil
}

type fakeAdmins struct {
	user  *db.User
	calls int
}

func (f *fakeAdmins) FirstAdmin(context.Context) (*db.User, error) {
	f.calls++
	if f.user == nil {
		return nil, fmt.Errorf("admin user: %w", db.ErrNotFound)
	}
	return f.user, nil
}
