package db

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// CreateComment inserts c and an "added comment" activity.
func (s *Store) CreateComment(ctx context.Context, c *Comment) error {
	c.ID = uuid.NewString()
	c.CreatedAt = time.Now().UTC()
	return WithTx(ctx, s.DB, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx,
			`insert into comments(id, content, bug_id, user_id, created_at) values($1,$2,$3,$4,$5)`,
			c.ID, c.Content, c.BugID, c.UserID, c.CreatedAt)
		if err != nil {
			return err
		}
		return insertActivity(ctx, tx, &Activity{Action: "added comment", BugID: &c.BugID, UserID: c.UserID})
	})
}

func (s *Store) ListComments(ctx context.Context, bugID string) ([]Comment, error) {
	out := make([]Comment, 0)
	err := s.DB.SelectContext(ctx, &out, `select c.id, c.content, c.bug_id, c.user_id, c.created_at,
		u.name as user_name
		from comments c join users u on u.id = c.user_id
		where c.bug_id=$1 order by c.created_at asc`, bugID)
	return out, err
}
