package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const projectColumns = `p.id, p.name, p.description, p.status, p.git_url, p.git_branch,
	p.git_provider, p.api_key_hash, p.created_at, p.updated_at,
	(select count(1) from bugs b where b.project_id = p.id) as bug_count`

// CreateProject inserts p and logs the creation, and the git connection if
// any, as activities by creatorID.
func (s *Store) CreateProject(ctx context.Context, p *Project, creatorID string) error {
	now := time.Now().UTC()
	p.ID = uuid.NewString()
	p.CreatedAt, p.UpdatedAt = now, now
	if p.Status == "" {
		p.Status = "ACTIVE"
	}
	return WithTx(ctx, s.DB, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `insert into projects(id, name, description, status, git_url,
			git_branch, git_provider, api_key_hash, created_at, updated_at)
			values($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
			p.ID, p.Name, p.Description, p.Status, p.GitURL, p.GitBranch, p.GitProvider,
			p.APIKeyHash, p.CreatedAt, p.UpdatedAt)
		if err != nil {
			return err
		}
		if creatorID == "" {
			return nil
		}
		if err := insertActivity(ctx, tx, &Activity{Action: "created this project", ProjectID: &p.ID, UserID: creatorID}); err != nil {
			return err
		}
		if p.GitURL != "" {
			return insertActivity(ctx, tx, &Activity{Action: "connected Git repository: " + p.GitURL, ProjectID: &p.ID, UserID: creatorID})
		}
		return nil
	})
}

func (s *Store) GetProject(ctx context.Context, id string) (*Project, error) {
	var p Project
	err := s.DB.GetContext(ctx, &p, `select `+projectColumns+` from projects p where p.id=$1`, id)
	if err != nil {
		return nil, notFound(err, "project "+id)
	}
	return &p, nil
}

// ListProjects returns projects, most recently updated first. search
// matches name or description, case-insensitively.
func (s *Store) ListProjects(ctx context.Context, search string, limit int) ([]Project, error) {
	q := `select ` + projectColumns + ` from projects p`
	var args []any
	if search != "" {
		q += ` where p.name ilike ? or p.description ilike ?`
		args = append(args, "%"+search+"%", "%"+search+"%")
	}
	q += ` order by p.updated_at desc`
	if limit > 0 {
		q += ` limit ?`
		args = append(args, limit)
	}
	projects := make([]Project, 0)
	err := s.DB.SelectContext(ctx, &projects, s.DB.Rebind(q), args...)
	return projects, err
}

func (s *Store) SetProjectKeyHash(ctx context.Context, id, hash string) error {
	res, err := s.DB.ExecContext(ctx,
		`update projects set api_key_hash=$1, updated_at=now() where id=$2`, hash, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound(sql.ErrNoRows, "project "+id)
	}
	return nil
}
