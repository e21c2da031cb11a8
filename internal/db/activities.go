package db

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const activityColumns = `a.id, a.action, a.bug_id, a.project_id, a.user_id, a.created_at,
	u.name as user_name, coalesce(b.title, '') as bug_title`

const activityJoins = ` from activities a
	join users u on u.id = a.user_id
	left join bugs b on b.id = a.bug_id`

func insertActivity(ctx context.Context, tx *sqlx.Tx, a *Activity) error {
	a.ID = uuid.NewString()
	a.CreatedAt = time.Now().UTC()
	_, err := tx.ExecContext(ctx,
		`insert into activities(id, action, bug_id, project_id, user_id, created_at) values($1,$2,$3,$4,$5,$6)`,
		a.ID, a.Action, a.BugID, a.ProjectID, a.UserID, a.CreatedAt)
	return err
}

// ListActivities returns the most recent activities across all projects.
func (s *Store) ListActivities(ctx context.Context, limit int) ([]Activity, error) {
	q := `select ` + activityColumns + activityJoins + ` order by a.created_at desc`
	var args []any
	if limit > 0 {
		q += ` limit $1`
		args = append(args, limit)
	}
	out := make([]Activity, 0)
	err := s.DB.SelectContext(ctx, &out, q, args...)
	return out, err
}

// ListBugActivities returns a bug's activities in the order they happened.
func (s *Store) ListBugActivities(ctx context.Context, bugID string) ([]Activity, error) {
	out := make([]Activity, 0)
	err := s.DB.SelectContext(ctx, &out,
		`select `+activityColumns+activityJoins+` where a.bug_id=$1 order by a.created_at asc, a.id asc`, bugID)
	return out, err
}

// ListProjectActivities merges the project's own activities with those of
// its bugs, newest first.
func (s *Store) ListProjectActivities(ctx context.Context, projectID string) ([]Activity, error) {
	out := make([]Activity, 0)
	err := s.DB.SelectContext(ctx, &out,
		`select `+activityColumns+activityJoins+`
		where a.project_id=$1 or b.project_id=$1
		order by a.created_at desc`, projectID)
	return out, err
}
