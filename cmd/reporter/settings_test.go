package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestSettings_Precedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultSettingsFile)
	require.NoError(t, os.WriteFile(path, []byte(`
url = "http://file:8000"
api_key = "file-key"
project_id = "file-project"
branch = "file-branch"
image = "node:20"
`), 0o644))

	s := defaultSettings()
	require.NoError(t, loadSettingsFile(&s, path, true))
	applyEnv(&s, envMap(map[string]string{
		"BUG_TRACKER_API_KEY": "env-key",
		"GITHUB_REPOSITORY":   "acme/web",
		"GITHUB_SHA":          "abc123",
		"GITHUB_REF_NAME":     "main",
	}))

	assert.Equal(t, "http://file:8000", s.URL)
	assert.Equal(t, "env-key", s.APIKey)
	assert.Equal(t, "file-project", s.ProjectID)
	assert.Equal(t, "acme/web", s.Repository)
	assert.Equal(t, "abc123", s.Commit)
	assert.Equal(t, "main", s.Branch)
	assert.Equal(t, "node:20", s.Image)
	assert.Equal(t, "npm test", s.Command)
	assert.NoError(t, s.validate())
}

func TestLoadSettingsFile_Missing(t *testing.T) {
	s := defaultSettings()
	missing := filepath.Join(t.TempDir(), "nope.toml")
	assert.NoError(t, loadSettingsFile(&s, missing, false))
	assert.Error(t, loadSettingsFile(&s, missing, true))
}

func TestSettings_Validate(t *testing.T) {
	base := defaultSettings()
	base.APIKey, base.ProjectID = "k", "p"
	require.NoError(t, base.validate())

	noKey := base
	noKey.APIKey = ""
	assert.ErrorContains(t, noKey.validate(), "api key")

	imageNoRepo := base
	imageNoRepo.Image = "node:20"
	assert.Error(t, imageNoRepo.validate())

	badTimeout := base
	badTimeout.Timeout = "soon"
	assert.Error(t, badTimeout.validate())
}

func TestRootCmd_ReportsFileOutput(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer flag-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"created":1,"bugs":[{"id":"b1","title":"Test Failure: adds","project":"Web"}]}`))
		got = map[string]string{"path": r.URL.Path}
	}))
	defer srv.Close()

	logFile := filepath.Join(t.TempDir(), "out.log")
	require.NoError(t, os.WriteFile(logFile, []byte("FAIL a.test.js\n● adds\nboom\n\n"), 0o644))

	cmd := newRootCmd(envMap(map[string]string{"BUG_TRACKER_PROJECT_ID": "p1"}))
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{
		"--url", srv.URL, "--api-key", "flag-key", "--file", logFile, "--fail-on-bugs",
	})

	err := cmd.Execute()

	assert.ErrorContains(t, err, "1 failing test(s) reported")
	assert.Equal(t, "/api/ci-report", got["path"])
	assert.Contains(t, out.String(), "b1  Test Failure: adds")
}
