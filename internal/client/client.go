// Package client talks to the bug tracker API.
package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"bugtracker/internal/cireport"
	"bugtracker/internal/db"
)

type Client struct {
	base string
	http *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: timeout},
	}
}

// APIError is a non-2xx answer.
type APIError struct {
	Method  string
	URL     string
	Status  int
	Message string
	Details string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("%s %s -> %d: %s", e.Method, e.URL, e.Status, e.Message)
	if e.Details != "" {
		msg += " (" + e.Details + ")"
	}
	return msg
}

func (c *Client) do(ctx context.Context, method, path, bearer string, body, out any) error {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		r = bytes.NewReader(b)
	}
	url := c.base + path
	req, err := http.NewRequestWithContext(ctx, method, url, r)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode/100 != 2 {
		b, _ := io.ReadAll(io.LimitReader(res.Body, 64<<10))
		apiErr := &APIError{Method: method, URL: url, Status: res.StatusCode}
		var e struct {
			Error   string `json:"error"`
			Details string `json:"details"`
		}
		if json.Unmarshal(b, &e) == nil && e.Error != "" {
			apiErr.Message, apiErr.Details = e.Error, e.Details
		} else {
			apiErr.Message = strings.TrimSpace(string(b))
		}
		return apiErr
	}
	if out != nil {
		return json.NewDecoder(res.Body).Decode(out)
	}
	return nil
}

// CIReport is a test log plus where it came from. Output is sent base64
// encoded.
type CIReport struct {
	ProjectID  string
	Commit     string
	Branch     string
	Repository string
	Output     string
}

func (r CIReport) body() cireport.Report {
	return cireport.Report{
		ProjectID:  r.ProjectID,
		Commit:     r.Commit,
		Branch:     r.Branch,
		Repository: r.Repository,
		TestOutput: base64.StdEncoding.EncodeToString([]byte(r.Output)),
	}
}

// CIReportResult is the answer to a synchronous report. Message is set
// instead of Bugs when nothing failed.
type CIReportResult struct {
	Message string                `json:"message,omitempty"`
	Created int                   `json:"created"`
	Bugs    []cireport.CreatedBug `json:"bugs"`
	Failed  []cireport.FailedBug  `json:"failed,omitempty"`
}

// ReportCI posts a CI log with the project's API key.
func (c *Client) ReportCI(ctx context.Context, apiKey string, r CIReport) (*CIReportResult, error) {
	var out CIReportResult
	if err := c.do(ctx, http.MethodPost, "/api/ci-report", apiKey, r.body(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type QueuedReport struct {
	ReportID string `json:"reportId"`
	Status   string `json:"status"`
}

// ReportCIAsync queues a CI log for background processing.
func (c *Client) ReportCIAsync(ctx context.Context, apiKey string, r CIReport) (*QueuedReport, error) {
	var out QueuedReport
	if err := c.do(ctx, http.MethodPost, "/api/ci-report/async", apiKey, r.body(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Admin calls authenticate with the service's admin token.
type Admin struct {
	*Client
	Token string
}

func (a *Admin) CreateUser(ctx context.Context, name, email, role string) (*db.User, error) {
	var u db.User
	err := a.do(ctx, http.MethodPost, "/api/users", a.Token,
		map[string]string{"name": name, "email": email, "role": role}, &u)
	return &u, err
}

// NewProject is a created project and, when issued, its plain API key.
type NewProject struct {
	db.Project
	APIKey string `json:"apiKey"`
}

func (a *Admin) CreateProject(ctx context.Context, name, gitURL, creatorID string) (*NewProject, error) {
	var p NewProject
	err := a.do(ctx, http.MethodPost, "/api/projects", a.Token,
		map[string]string{"name": name, "gitUrl": gitURL, "creatorId": creatorID}, &p)
	return &p, err
}

func (a *Admin) ProjectBugs(ctx context.Context, projectID string) ([]db.Bug, error) {
	var bugs []db.Bug
	err := a.do(ctx, http.MethodGet, "/api/projects/"+projectID+"/bugs", a.Token, nil, &bugs)
	return bugs, err
}

// CIReportStatus is the stored state of a queued report.
type CIReportStatus struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	Created int    `json:"created"`
	Error   string `json:"error,omitempty"`
}

func (a *Admin) CIReport(ctx context.Context, id string) (*CIReportStatus, error) {
	var st CIReportStatus
	err := a.do(ctx, http.MethodGet, "/api/ci-reports/"+id, a.Token, nil, &st)
	return &st, err
}
