package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// DefaultSettingsFile is read from the working directory when present.
const DefaultSettingsFile = ".bugtracker.toml"

// defaultOutputFile is where a CI step usually tees its test output.
const defaultOutputFile = "test-output.log"

// Settings configures one report. Values come from the settings file, then
// the environment, then flags, each overriding the previous.
type Settings struct {
	URL        string `toml:"url"`
	APIKey     string `toml:"api_key"`
	ProjectID  string `toml:"project_id"`
	Repository string `toml:"repository"`
	Branch     string `toml:"branch"`
	Commit     string `toml:"commit"`
	Async      bool   `toml:"async"`
	Timeout    string `toml:"timeout"`

	// Output selects where test output comes from: a file, or a command run
	// locally or, when Image is set, in Docker.
	OutputFile string `toml:"output_file"`
	Command    string `toml:"command"`
	Image      string `toml:"image"`

	// FailOnBugs makes the command exit non-zero when bugs were filed.
	FailOnBugs bool `toml:"fail_on_bugs"`
}

func defaultSettings() Settings {
	return Settings{
		URL:     "http://localhost:8000",
		Timeout: "30s",
		Command: "npm test",
	}
}

// loadSettingsFile overlays path onto s. A missing file is not an error
// unless required.
func loadSettingsFile(s *Settings, path string, required bool) error {
	if _, err := toml.DecodeFile(path, s); err != nil {
		if !required && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}
	return nil
}

// applyEnv overlays BUG_TRACKER_* and the GitHub Actions variables.
func applyEnv(s *Settings, getenv func(string) string) {
	set := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v := getenv(k); v != "" {
				*dst = v
				return
			}
		}
	}
	set(&s.URL, "BUG_TRACKER_URL")
	set(&s.APIKey, "BUG_TRACKER_API_KEY")
	set(&s.ProjectID, "BUG_TRACKER_PROJECT_ID")
	set(&s.Repository, "BUG_TRACKER_REPOSITORY", "GITHUB_REPOSITORY")
	set(&s.Branch, "BUG_TRACKER_BRANCH", "GITHUB_HEAD_REF", "GITHUB_REF_NAME")
	set(&s.Commit, "BUG_TRACKER_COMMIT", "GITHUB_SHA")
}

func (s Settings) validate() error {
	switch {
	case s.URL == "":
		return errors.New("url is required (--url or BUG_TRACKER_URL)")
	case s.APIKey == "":
		return errors.New("api key is required (--api-key or BUG_TRACKER_API_KEY)")
	case s.ProjectID == "":
		return errors.New("project id is required (--project or BUG_TRACKER_PROJECT_ID)")
	case s.Image != "" && s.Repository == "":
		return errors.New("--image needs a repository to clone")
	}
	_, err := s.timeout()
	return err
}

func (s Settings) timeout() (time.Duration, error) {
	d, err := time.ParseDuration(s.Timeout)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid timeout %q", s.Timeout)
	}
	return d, nil
}
