package runner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImageRef(t *testing.T) {
	assert.Equal(t, "docker.io/library/node:latest", ImageRef("node"))
	assert.Equal(t, "node:20", ImageRef("node:20"))
	assert.Equal(t, "alpine/git:latest", ImageRef("alpine/git:latest"))
}

func TestCloneURL(t *testing.T) {
	assert.Equal(t, "https://github.com/acme/web.git", CloneURL("acme/web"))
	assert.Equal(t, "https://github.com/acme/web.git", CloneURL("acme/web.git"))
	assert.Equal(t, "https://gitlab.com/acme/web.git", CloneURL("https://gitlab.com/acme/web.git"))
	assert.Equal(t, "git@github.com:acme/web.git", CloneURL("git@github.com:acme/web.git"))
}

func TestLocal_CapturesBothStreams(t *testing.T) {
	res, err := Local(context.Background(), t.TempDir(), "echo out; echo err 1>&2; exit 3")

	require.NoError(t, err)
	assert.Equal(t, 3, res.ExitCode)
	assert.True(t, res.Failed())
	assert.Contains(t, res.Output, "out\n")
	assert.Contains(t, res.Output, "err\n")
}

func TestLocal_Success(t *testing.T) {
	res, err := Local(context.Background(), "", "printf ok")
	require.NoError(t, err)
	assert.False(t, res.Failed())
	assert.Equal(t, "ok", res.Output)
}
