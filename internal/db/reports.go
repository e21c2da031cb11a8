package db

import (
	"context"
	"time"

	"github.com/google/uuid"
)

func (s *Store) CreateCIReport(ctx context.Context, r *CIReport) error {
	now := time.Now().UTC()
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	r.CreatedAt, r.UpdatedAt = now, now
	if r.Status == "" {
		r.Status = ReportQueued
	}
	_, err := s.DB.ExecContext(ctx, `insert into ci_reports(id, project_id, commit_sha, branch,
		repository, log_ref, status, framework, created_count, result, error, created_at, updated_at)
		values($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		r.ID, r.ProjectID, r.Commit, r.Branch, r.Repository, r.LogRef, r.Status, r.Framework,
		r.CreatedCount, nullJSON(r.Result), r.Error, r.CreatedAt, r.UpdatedAt)
	return err
}

func (s *Store) GetCIReport(ctx context.Context, id string) (*CIReport, error) {
	var r CIReport
	if err := s.DB.GetContext(ctx, &r, `select * from ci_reports where id=$1`, id); err != nil {
		return nil, notFound(err, "ci report "+id)
	}
	return &r, nil
}

// UpdateCIReport persists the mutable fields of r: status, framework,
// created count, result and error.
func (s *Store) UpdateCIReport(ctx context.Context, r *CIReport) error {
	r.UpdatedAt = time.Now().UTC()
	_, err := s.DB.ExecContext(ctx, `update ci_reports set status=$1, framework=$2, created_count=$3,
		result=$4, error=$5, updated_at=$6 where id=$7`,
		r.Status, r.Framework, r.CreatedCount, nullJSON(r.Result), r.Error, r.UpdatedAt, r.ID)
	return err
}

func nullJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
