package db

import (
	"context"
	"time"

	"github.com/google/uuid"
)

func (s *Store) CreateUser(ctx context.Context, u *User) error {
	u.ID = uuid.NewString()
	u.CreatedAt = time.Now().UTC()
	if u.Role == "" {
		u.Role = RoleUser
	}
	_, err := s.DB.ExecContext(ctx,
		`insert into users(id, name, email, role, created_at) values($1,$2,$3,$4,$5)`,
		u.ID, u.Name, u.Email, u.Role, u.CreatedAt)
	return err
}

func (s *Store) GetUser(ctx context.Context, id string) (*User, error) {
	var u User
	if err := s.DB.GetContext(ctx, &u, `select * from users where id=$1`, id); err != nil {
		return nil, notFound(err, "user "+id)
	}
	return &u, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]User, error) {
	users := make([]User, 0)
	err := s.DB.SelectContext(ctx, &users, `select * from users order by created_at asc`)
	return users, err
}

// FirstAdmin returns the earliest-created ADMIN account.
func (s *Store) FirstAdmin(ctx context.Context) (*User, error) {
	var u User
	err := s.DB.GetContext(ctx, &u,
		`select * from users where role=$1 order by created_at asc, id asc limit 1`, RoleAdmin)
	if err != nil {
		return nil, notFound(err, "admin user")
	}
	return &u, nil
}
