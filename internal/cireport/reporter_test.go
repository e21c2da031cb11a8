package cireport

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bugtracker/internal/db"
)

func TestStaticReporter(t *testing.T) {
	id, err := StaticReporter("u1").DefaultReporterID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "u1", id)

	_, err = StaticReporter("").DefaultReporterID(context.Background())
	assert.ErrorIs(t, err, ErrNoReporter)
}

func TestAdminReporter_CachesHit(t *testing.T) {
	admins := &fakeAdmins{user: &db.User{ID: "admin-1", Role: db.RoleAdmin}}
	r := NewAdminReporter(admins, time.Minute)

	for range 3 {
		id, err := r.DefaultReporterID(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "admin-1", id)
	}
	assert.Equal(t, 1, admins.calls)

	r.Forget()
	_, err := r.DefaultReporterID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, admins.calls)
}

func TestAdminReporter_NoAdmin(t *testing.T) {
	admins := &fakeAdmins{}
	r := NewAdminReporter(admins, time.Minute)

	_, err := r.DefaultReporterID(context.Background())
	assert.ErrorIs(t, err, ErrNoReporter)

	admins.user = &db.User{ID: "late-admin"}
	id, err := r.DefaultReporterID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "late-admin", id)
}

func TestNewReporterResolver(t *testing.T) {
	admins := &fakeAdmins{user: &db.User{ID: "admin-1"}}

	assert.Equal(t, StaticReporter("u9"), NewReporterResolver("u9", admins, time.Minute))

	r := NewReporterResolver("", admins, time.Minute)
	require.IsType(t, &AdminReporter{}, r)
	id, err := r.DefaultReporterID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "admin-1", id)
}
