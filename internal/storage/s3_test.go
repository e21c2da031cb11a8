package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseS3Ref(t *testing.T) {
	bucket, key, err := parseS3Ref("s3://ci-logs/logs/p1/r1.log")
	require.NoError(t, err)
	assert.Equal(t, "ci-logs", bucket)
	assert.Equal(t, "logs/p1/r1.log", key)

	for _, bad := range []string{"ci-logs/x", "s3://", "s3:///key", "s3://bucket/"} {
		_, _, err := parseS3Ref(bad)
		assert.Error(t, err, bad)
	}
}

func TestLogKey(t *testing.T) {
	assert.Equal(t, "logs/p1/r1.log", LogKey("p1", "r1"))
}

func TestEndpointURL(t *testing.T) {
	assert.Equal(t, "http://minio:9000", endpointURL("minio:9000"))
	assert.Equal(t, "https://s3.example.com", endpointURL("https://s3.example.com"))
}
