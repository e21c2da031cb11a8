package cireport

import (
	"context"
	"fmt"
	"strings"

	"bugtracker/internal/db"
)

// CreatedFromCIAction is the activity recorded for every CI bug.
const CreatedFromCIAction = "created this bug from CI test failure"

// BugCreator persists a bug together with its first activity.
type BugCreator interface {
	CreateBugWithActivity(ctx context.Context, b *db.Bug, action string) error
}

// Target is where a CI report's bugs go and what they link to.
type Target struct {
	ProjectID  string
	ReporterID string
	Commit     string
	Branch     string
	Repository string // GitHub "owner/name"
}

// BuildBug maps a failure to an unsaved bug.
func BuildBug(f Failure, t Target) *db.Bug {
	priority, severity := db.PriorityMedium, db.SeverityMinor
	if f.TestType == TestIntegration {
		priority, severity = db.PriorityHigh, db.SeverityMajor
	}
	return &db.Bug{
		Title:       "Test Failure: " + f.TestName,
		Description: describe(f, t),
		Status:      db.StatusOpen,
		Priority:    priority,
		Severity:    severity,
		Source:      db.SourceCI,
		ProjectID:   t.ProjectID,
		ReporterID:  t.ReporterID,
	}
}

// Materialize saves the bug for f along with its CI activity.
func Materialize(ctx context.Context, store BugCreator, f Failure, t Target) (*db.Bug, error) {
	b := BuildBug(f, t)
	if err := store.CreateBugWithActivity(ctx, b, CreatedFromCIAction); err != nil {
		return nil, fmt.Errorf("materialize %q: %w", f.TestName, err)
	}
	return b, nil
}

func describe(f Failure, t Target) string {
	var sb strings.Builder
	sb.WriteString("## Test Failure Details\n\n")
	sb.WriteString("**Error Message:**\n```\n")
	sb.WriteString(f.Error)
	sb.WriteString("\n```\n\n")

	file := f.File
	if file == "" {
		file = "Unknown"
	}
	fmt.Fprintf(&sb, "**File:** %s", file)
	if f.Line > 0 {
		fmt.Fprintf(&sb, " (line %d)", f.Line)
	}
	sb.WriteString("\n")
	if t.Repository != "" && f.File != "" && f.File != unknownFile {
		ref := t.Commit
		if ref == "" {
			ref = "HEAD"
		}
		fmt.Fprintf(&sb, "**View File:** [%s](https://github.com/%s/blob/%s/%s)\n", f.File, t.Repository, ref, f.File)
	}

	branch := t.Branch
	if branch == "" {
		branch = "unknown"
	}
	fmt.Fprintf(&sb, "\n**Branch:** %s\n", branch)
	if t.Commit == "" {
		sb.WriteString("**Commit:** unknown\n")
	} else {
		short := shortCommit(t.Commit)
		fmt.Fprintf(&sb, "**Commit:** %s\n", short)
		if t.Repository != "" {
			fmt.Fprintf(&sb, "**View Commit:** [%s](https://github.com/%s/commit/%s)\n", short, t.Repository, t.Commit)
		}
	}

	sb.WriteString("\nThis bug was automatically created from CI test failures.\n")
	return sb.String()
}

func shortCommit(c string) string {
	if len(c) > 7 {
		return c[:7]
	}
	return c
}
