// Package runner produces CI test output for the reporter CLI, either from a
// local shell command or from a throwaway Docker container.
package runner

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/api/types/volume"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
)

const gitImage = "alpine/git:latest"

// Suite describes a test command run against repository@commit.
type Suite struct {
	Repository string // clone URL or GitHub "owner/name"
	Commit     string // empty or HEAD keeps the default branch
	Image      string
	Command    string
	Timeout    time.Duration
}

// Result is what the test command printed, stdout and stderr interleaved.
type Result struct {
	Output   string
	ExitCode int
}

// Failed reports whether the test command exited non-zero.
func (r *Result) Failed() bool { return r.ExitCode != 0 }

// Docker runs suites through a Docker daemon found from the environment
// (DOCKER_HOST and friends).
type Docker struct {
	cli *client.Client
	log *slog.Logger
}

func NewDocker(ctx context.Context, log *slog.Logger) (*Docker, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("docker client: %w", err)
	}
	if _, err := cli.Ping(ctx); err != nil {
		return nil, fmt.Errorf("cannot reach docker daemon: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Docker{cli: cli, log: log}, nil
}

func (d *Docker) Close() error { return d.cli.Close() }

// Run clones the suite's repository into a scratch volume, checks out the
// commit and runs the command in the suite image with networking off. A
// non-zero exit of the command is not an error.
func (d *Docker) Run(ctx context.Context, s Suite) (*Result, error) {
	if s.Timeout <= 0 {
		s.Timeout = 15 * time.Minute
	}
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	for _, ref := range []string{gitImage, s.Image} {
		if err := d.pull(ctx, ref); err != nil {
			return nil, fmt.Errorf("pull %s: %w", ref, err)
		}
	}

	vol := fmt.Sprintf("bugtracker-run-%d", time.Now().UnixNano())
	if _, err := d.cli.VolumeCreate(ctx, volume.CreateOptions{Name: vol}); err != nil {
		return nil, fmt.Errorf("volume create: %w", err)
	}
	defer func() {
		if err := d.cli.VolumeRemove(context.Background(), vol, true); err != nil {
			d.log.Warn("volume not removed", "volume", vol, "err", err)
		}
	}()

	d.log.Info("cloning", "repository", s.Repository, "commit", s.Commit)
	if err := d.mustSucceed(ctx, gitImage, vol, true, "clone", CloneURL(s.Repository), "/repo"); err != nil {
		return nil, fmt.Errorf("git clone: %w", err)
	}
	if c := strings.TrimSpace(s.Commit); c != "" && c != "HEAD" {
		if err := d.mustSucceed(ctx, gitImage, vol, false, "-C", "/repo", "checkout", c); err != nil {
			return nil, fmt.Errorf("git checkout %q: %w", c, err)
		}
	}

	d.log.Info("running tests", "image", s.Image, "command", s.Command)
	out, code, err := d.run(ctx, s.Image, vol, false, &container.Resources{
		Memory:   1 << 30,
		NanoCPUs: 2e9,
	}, "sh", "-c", "cd /repo && "+s.Command)
	if err != nil {
		return nil, fmt.Errorf("test run: %w", err)
	}
	return &Result{Output: out, ExitCode: code}, nil
}

func (d *Docker) pull(ctx context.Context, ref string) error {
	rc, err := d.cli.ImagePull(ctx, ImageRef(ref), image.PullOptions{})
	if err != nil {
		return err
	}
	defer rc.Close()
	_, err = io.Copy(io.Discard, rc)
	return err
}

func (d *Docker) mustSucceed(ctx context.Context, img, vol string, network bool, cmd ...string) error {
	out, code, err := d.run(ctx, img, vol, network, nil, cmd...)
	if err != nil {
		return err
	}
	if code != 0 {
		return fmt.Errorf("%s exited %d:\n%s", strings.Join(cmd, " "), code, out)
	}
	return nil
}

// run starts a container with vol mounted at /repo, waits for it and returns
// its combined output and exit code. The container is always removed.
func (d *Docker) run(ctx context.Context, img, vol string, network bool, res *container.Resources, cmd ...string) (string, int, error) {
	host := &container.HostConfig{
		NetworkMode: container.NetworkMode("none"),
		Mounts:      []mount.Mount{{Type: mount.TypeVolume, Source: vol, Target: "/repo"}},
	}
	if network {
		host.NetworkMode = ""
	}
	if res != nil {
		host.Resources = *res
	}

	created, err := d.cli.ContainerCreate(ctx, &container.Config{Image: img, Cmd: cmd}, host, nil, nil, "")
	if err != nil {
		return "", 0, fmt.Errorf("create: %w", err)
	}
	id := created.ID
	defer func() {
		_ = d.cli.ContainerRemove(context.Background(), id, container.RemoveOptions{Force: true})
	}()

	if err := d.cli.ContainerStart(ctx, id, container.StartOptions{}); err != nil {
		return "", 0, fmt.Errorf("start: %w", err)
	}
	var code int
	statusCh, errCh := d.cli.ContainerWait(ctx, id, container.WaitConditionNotRunning)
	select {
	case err := <-errCh:
		if err != nil {
			return "", 0, fmt.Errorf("wait: %w", err)
		}
	case st := <-statusCh:
		code = int(st.StatusCode)
	}

	logs, err := d.cli.ContainerLogs(ctx, id, container.LogsOptions{ShowStdout: true, ShowStderr: true})
	if err != nil {
		return "", code, fmt.Errorf("logs: %w", err)
	}
	defer logs.Close()
	var out bytes.Buffer
	if _, err := stdcopy.StdCopy(&out, &out, logs); err != nil {
		return out.String(), code, fmt.Errorf("read logs: %w", err)
	}
	return out.String(), code, nil
}

// ImageRef qualifies bare image names with the Docker Hub library prefix.
func ImageRef(img string) string {
	if strings.Contains(img, "/") || strings.Contains(img, ":") {
		return img
	}
	return "docker.io/library/" + img + ":latest"
}

// CloneURL turns a GitHub "owner/name" into an https clone URL and leaves
// anything that already looks like a URL alone.
func CloneURL(repo string) string {
	if strings.Contains(repo, "://") || strings.HasPrefix(repo, "git@") {
		return repo
	}
	return "https://github.com/" + strings.TrimSuffix(repo, ".git") + ".git"
}
