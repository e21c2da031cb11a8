// Command reporter runs in CI, collects test output and files it with the
// bug tracker, which opens one bug per failing test.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"bugtracker/internal/client"
	"bugtracker/internal/logging"
	"bugtracker/internal/runner"
)

func main() {
	if err := newRootCmd(os.Getenv).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(getenv func(string) string) *cobra.Command {
	var (
		configPath string
		flags      Settings
		verbose    bool
	)
	cmd := &cobra.Command{
		Use:   "reporter",
		Short: "Report failing CI tests to the bug tracker",
		Long: `Collects test output and posts it to the bug tracker's CI endpoint.

Output is read from --file, or from test-output.log when it exists, or by
running --run locally. With --image the command runs in that Docker image
against a fresh clone of repository@commit.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := defaultSettings()
			if err := loadSettingsFile(&s, configPath, cmd.Flags().Changed("config")); err != nil {
				return err
			}
			applyEnv(&s, getenv)
			applyFlags(cmd, &s, flags)
			if err := s.validate(); err != nil {
				return err
			}
			level := "warn"
			if verbose {
				level = "debug"
			}
			log := logging.New(cmd.ErrOrStderr(), level)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return report(ctx, cmd.OutOrStdout(), log, s)
		},
	}

	f := cmd.Flags()
	f.StringVar(&configPath, "config", DefaultSettingsFile, "settings file")
	f.StringVar(&flags.URL, "url", "", "bug tracker base URL")
	f.StringVar(&flags.APIKey, "api-key", "", "project API key")
	f.StringVar(&flags.ProjectID, "project", "", "project id")
	f.StringVar(&flags.Repository, "repository", "", "GitHub owner/name or clone URL")
	f.StringVar(&flags.Branch, "branch", "", "branch under test")
	f.StringVar(&flags.Commit, "commit", "", "commit under test")
	f.StringVar(&flags.OutputFile, "file", "", "read test output from this file")
	f.StringVar(&flags.Command, "run", "", "test command to run")
	f.StringVar(&flags.Image, "image", "", "run the test command in this Docker image")
	f.StringVar(&flags.Timeout, "timeout", "", "request and run timeout")
	f.BoolVar(&flags.Async, "async", false, "queue the report instead of waiting for bugs")
	f.BoolVar(&flags.FailOnBugs, "fail-on-bugs", false, "exit non-zero when bugs were filed")
	f.BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	return cmd
}

// applyFlags overlays only the flags the user actually set.
func applyFlags(cmd *cobra.Command, s *Settings, f Settings) {
	str := map[string][2]*string{
		"url":        {&s.URL, &f.URL},
		"api-key":    {&s.APIKey, &f.APIKey},
		"project":    {&s.ProjectID, &f.ProjectID},
		"repository": {&s.Repository, &f.Repository},
		"branch":     {&s.Branch, &f.Branch},
		"commit":     {&s.Commit, &f.Commit},
		"file":       {&s.OutputFile, &f.OutputFile},
		"run":        {&s.Command, &f.Command},
		"image":      {&s.Image, &f.Image},
		"timeout":    {&s.Timeout, &f.Timeout},
	}
	for name, p := range str {
		if cmd.Flags().Changed(name) {
			*p[0] = *p[1]
		}
	}
	if cmd.Flags().Changed("async") {
		s.Async = f.Async
	}
	if cmd.Flags().Changed("fail-on-bugs") {
		s.FailOnBugs = f.FailOnBugs
	}
}

func collectOutput(ctx context.Context, log *slog.Logger, s Settings) (string, error) {
	file := s.OutputFile
	if file == "" && s.Image == "" {
		if _, err := os.Stat(defaultOutputFile); err == nil {
			file = defaultOutputFile
		}
	}
	if file != "" {
		b, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read test output: %w", err)
		}
		return string(b), nil
	}

	timeout, _ := s.timeout()
	var (
		res *runner.Result
		err error
	)
	if s.Image != "" {
		d, derr := runner.NewDocker(ctx, log)
		if derr != nil {
			return "", derr
		}
		defer d.Close()
		res, err = d.Run(ctx, runner.Suite{
			Repository: s.Repository,
			Commit:     s.Commit,
			Image:      s.Image,
			Command:    s.Command,
			Timeout:    timeout,
		})
	} else {
		log.Debug("running tests locally", "command", s.Command)
		res, err = runner.Local(ctx, "", s.Command)
	}
	if err != nil {
		return "", err
	}
	log.Debug("tests finished", "exit_code", res.ExitCode, "bytes", len(res.Output))
	return res.Output, nil
}

func report(ctx context.Context, out io.Writer, log *slog.Logger, s Settings) error {
	text, err := collectOutput(ctx, log, s)
	if err != nil {
		return err
	}
	timeout, _ := s.timeout()
	c := client.New(s.URL, timeout)
	r := client.CIReport{
		ProjectID:  s.ProjectID,
		Commit:     s.Commit,
		Branch:     s.Branch,
		Repository: s.Repository,
		Output:     text,
	}

	if s.Async {
		q, err := c.ReportCIAsync(ctx, s.APIKey, r)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "queued report %s\n", q.ReportID)
		return nil
	}

	res, err := c.ReportCI(ctx, s.APIKey, r)
	if err != nil {
		return err
	}
	if res.Message != "" {
		fmt.Fprintln(out, res.Message)
		return nil
	}
	fmt.Fprintf(out, "created %d bug(s)\n", res.Created)
	for _, b := range res.Bugs {
		fmt.Fprintf(out, "  %s  %s\n", b.ID, b.Title)
	}
	for _, f := range res.Failed {
		fmt.Fprintf(out, "  not filed: %s: %s\n", f.TestName, f.Error)
	}
	if s.FailOnBugs && res.Created > 0 {
		return fmt.Errorf("%d failing test(s) reported", res.Created)
	}
	return nil
}
