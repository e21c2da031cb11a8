package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"bugtracker/internal/apperr"
)

const bugColumns = `b.id, b.title, b.description, b.steps_to_reproduce, b.status, b.priority,
	b.severity, b.source, b.project_id, b.reporter_id, b.assignee_id, b.created_at,
	b.updated_at, p.name as project_name`

// CreateBugWithActivity inserts b and one activity by b.ReporterID with the
// given action, in a single transaction.
func (s *Store) CreateBugWithActivity(ctx context.Context, b *Bug, action string) error {
	now := time.Now().UTC()
	b.ID = uuid.NewString()
	b.CreatedAt, b.UpdatedAt = now, now
	return WithTx(ctx, s.DB, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `insert into bugs(id, title, description, steps_to_reproduce,
			status, priority, severity, source, project_id, reporter_id, assignee_id, created_at, updated_at)
			values($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
			b.ID, b.Title, b.Description, b.StepsToReproduce, b.Status, b.Priority, b.Severity,
			b.Source, b.ProjectID, b.ReporterID, b.AssigneeID, b.CreatedAt, b.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert bug: %w", err)
		}
		if err := insertActivity(ctx, tx, &Activity{Action: action, BugID: &b.ID, UserID: b.ReporterID}); err != nil {
			return fmt.Errorf("insert activity: %w", err)
		}
		return nil
	})
}

func (s *Store) GetBug(ctx context.Context, id string) (*Bug, error) {
	var b Bug
	err := s.DB.GetContext(ctx, &b,
		`select `+bugColumns+` from bugs b join projects p on p.id = b.project_id where b.id=$1`, id)
	if err != nil {
		return nil, notFound(err, "bug "+id)
	}
	return &b, nil
}

type BugFilter struct {
	ProjectID  string
	Status     string
	Source     string
	Search     string
	AssigneeID string
	Unassigned bool
	Priorities []string
	Severities []string
	Limit      int
}

// ListBugs returns bugs matching f, most recently updated first.
func (s *Store) ListBugs(ctx context.Context, f BugFilter) ([]Bug, error) {
	var where []string
	var args []any
	add := func(cond string, vals ...any) {
		where = append(where, cond)
		args = append(args, vals...)
	}
	if f.ProjectID != "" {
		add(`b.project_id = ?`, f.ProjectID)
	}
	if f.Status != "" {
		add(`b.status = ?`, f.Status)
	}
	if f.Source != "" {
		add(`b.source = ?`, f.Source)
	}
	if f.Search != "" {
		add(`(b.title ilike ? or b.description ilike ?)`, "%"+f.Search+"%", "%"+f.Search+"%")
	}
	if f.Unassigned {
		add(`b.assignee_id is null`)
	} else if f.AssigneeID != "" {
		add(`b.assignee_id = ?`, f.AssigneeID)
	}
	if len(f.Priorities) > 0 {
		add(`b.priority in (?)`, f.Priorities)
	}
	if len(f.Severities) > 0 {
		add(`b.severity in (?)`, f.Severities)
	}

	q := `select ` + bugColumns + ` from bugs b join projects p on p.id = b.project_id`
	if len(where) > 0 {
		q += ` where ` + strings.Join(where, ` and `)
	}
	q += ` order by b.updated_at desc`
	if f.Limit > 0 {
		q += ` limit ?`
		args = append(args, f.Limit)
	}

	q, args, err := sqlx.In(q, args...)
	if err != nil {
		return nil, err
	}
	bugs := make([]Bug, 0)
	err = s.DB.SelectContext(ctx, &bugs, s.DB.Rebind(q), args...)
	return bugs, err
}

// BugUpdate holds the fields a PATCH may change; nil means unchanged.
type BugUpdate struct {
	Title            *string
	Description      *string
	StepsToReproduce *string
	Status           *string
	Priority         *string
	Severity         *string
	AssigneeID       *string
}

// UpdateBug applies u and, when userID is set, records an activity for each
// status, priority or assignee change.
func (s *Store) UpdateBug(ctx context.Context, id string, u BugUpdate, userID string) (*Bug, []Activity, error) {
	var activities []Activity
	err := WithTx(ctx, s.DB, func(tx *sqlx.Tx) error {
		var cur Bug
		if err := tx.GetContext(ctx, &cur, `select * from bugs where id=$1 for update`, id); err != nil {
			return notFound(err, "bug "+id)
		}
		next := cur
		set := func(dst *string, v *string) {
			if v != nil && *v != "" {
				*dst = *v
			}
		}
		set(&next.Title, u.Title)
		set(&next.Description, u.Description)
		set(&next.StepsToReproduce, u.StepsToReproduce)
		set(&next.Status, u.Status)
		set(&next.Priority, u.Priority)
		set(&next.Severity, u.Severity)
		if u.AssigneeID != nil {
			if *u.AssigneeID == "" {
				next.AssigneeID = nil
			} else {
				next.AssigneeID = u.AssigneeID
			}
		}

		_, err := tx.ExecContext(ctx, `update bugs set title=$1, description=$2, steps_to_reproduce=$3,
			status=$4, priority=$5, severity=$6, assignee_id=$7, updated_at=now() where id=$8`,
			next.Title, next.Description, next.StepsToReproduce, next.Status, next.Priority,
			next.Severity, next.AssigneeID, id)
		if err != nil {
			return err
		}
		if userID == "" {
			return nil
		}

		var actions []string
		if next.Status != cur.Status {
			actions = append(actions, fmt.Sprintf("changed status from '%s' to '%s'", cur.Status, next.Status))
		}
		if next.Priority != cur.Priority {
			actions = append(actions, fmt.Sprintf("changed priority from '%s' to '%s'", cur.Priority, next.Priority))
		}
		if next.AssigneeID != nil && (cur.AssigneeID == nil || *cur.AssigneeID != *next.AssigneeID) {
			var name string
			if err := tx.GetContext(ctx, &name, `select name from users where id=$1`, *next.AssigneeID); err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return apperr.BadRequest("assignee " + *next.AssigneeID + " does not exist")
				}
				return err
			}
			actions = append(actions, "assigned this bug to "+name)
		}
		for _, action := range actions {
			a := Activity{Action: action, BugID: &cur.ID, UserID: userID}
			if err := insertActivity(ctx, tx, &a); err != nil {
				return err
			}
			activities = append(activities, a)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	b, err := s.GetBug(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return b, activities, nil
}
