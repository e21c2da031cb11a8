package db

import "time"

const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"

	StatusOpen       = "OPEN"
	StatusInProgress = "IN_PROGRESS"
	StatusResolved   = "RESOLVED"
	StatusClosed     = "CLOSED"

	PriorityLow    = "LOW"
	PriorityMedium = "MEDIUM"
	PriorityHigh   = "HIGH"

	SeverityTrivial  = "TRIVIAL"
	SeverityMinor    = "MINOR"
	SeverityMajor    = "MAJOR"
	SeverityCritical = "CRITICAL"

	// SourceCI marks bugs filed automatically from CI output.
	SourceCI = "ci"

	ReportQueued     = "queued"
	ReportProcessing = "processing"
	ReportDone       = "done"
	ReportFailed     = "failed"
)

type User struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Email     string    `db:"email" json:"email"`
	Role      string    `db:"role" json:"role"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

type Project struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	Status      string    `db:"status" json:"status"`
	GitURL      string    `db:"git_url" json:"gitUrl,omitempty"`
	GitBranch   string    `db:"git_branch" json:"gitBranch,omitempty"`
	GitProvider string    `db:"git_provider" json:"gitProvider,omitempty"`
	APIKeyHash  string    `db:"api_key_hash" json:"-"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`

	BugCount int `db:"bug_count" json:"bugCount"`
}

type Bug struct {
	ID               string    `db:"id" json:"id"`
	Title            string    `db:"title" json:"title"`
	Description      string    `db:"description" json:"description"`
	StepsToReproduce string    `db:"steps_to_reproduce" json:"stepsToReproduce,omitempty"`
	Status           string    `db:"status" json:"status"`
	Priority         string    `db:"priority" json:"priority"`
	Severity         string    `db:"severity" json:"severity"`
	Source           string    `db:"source" json:"source,omitempty"`
	ProjectID        string    `db:"project_id" json:"projectId"`
	ReporterID       string    `db:"reporter_id" json:"reporterId"`
	AssigneeID       *string   `db:"assignee_id" json:"assigneeId"`
	CreatedAt        time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time `db:"updated_at" json:"updatedAt"`

	// Filled by list/get queries.
	ProjectName string `db:"project_name" json:"projectName,omitempty"`
}

type Comment struct {
	ID        string    `db:"id" json:"id"`
	Content   string    `db:"content" json:"content"`
	BugID     string    `db:"bug_id" json:"bugId"`
	UserID    string    `db:"user_id" json:"userId"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`

	UserName string `db:"user_name" json:"userName,omitempty"`
}

// Activity is an audit record attached to a bug or a project.
type Activity struct {
	ID        string    `db:"id" json:"id"`
	Action    string    `db:"action" json:"action"`
	BugID     *string   `db:"bug_id" json:"bugId,omitempty"`
	ProjectID *string   `db:"project_id" json:"projectId,omitempty"`
	UserID    string    `db:"user_id" json:"userId"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`

	UserName string `db:"user_name" json:"userName,omitempty"`
	BugTitle string `db:"bug_title" json:"bugTitle,omitempty"`
}

// CIReport records one CI ingestion, synchronous or queued.
type CIReport struct {
	ID           string    `db:"id"`
	ProjectID    string    `db:"project_id"`
	Commit       string    `db:"commit_sha"`
	Branch       string    `db:"branch"`
	Repository   string    `db:"repository"`
	LogRef       string    `db:"log_ref"`
	Status       string    `db:"status"`
	Framework    string    `db:"framework"`
	CreatedCount int       `db:"created_count"`
	Result       []byte    `db:"result"`
	Error        string    `db:"error"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}
