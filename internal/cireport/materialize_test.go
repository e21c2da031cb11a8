package cireport

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bugtracker/internal/db"
)

func TestBuildBug_PriorityAndSeverity(t *testing.T) {
	tests := []struct {
		testType string
		priority string
		severity string
	}{
		{TestIntegration, db.PriorityHigh, db.SeverityMajor},
		{TestUnit, db.PriorityMedium, db.SeverityMinor},
		{TestUnknown, db.PriorityMedium, db.SeverityMinor},
	}
	for _, tt := range tests {
		t.Run(tt.testType, func(t *testing.T) {
			b := BuildBug(Failure{TestName: "t", Error: "e", TestType: tt.testType}, Target{ProjectID: "p1", ReporterID: "u1"})
			assert.Equal(t, tt.priority, b.Priority)
			assert.Equal(t, tt.severity, b.Severity)
			assert.Equal(t, db.StatusOpen, b.Status)
			assert.Equal(t, db.SourceCI, b.Source)
			assert.Equal(t, "p1", b.ProjectID)
			assert.Equal(t, "u1", b.ReporterID)
		})
	}
}

func TestBuildBug_DescriptionWithLinks(t *testing.T) {
	f := Failure{TestName: "renders", File: "src/x.test.js", Line: 12, Error: "Expected 200 got 404", TestType: TestUnit}
	tgt := Target{Repository: "acme/web", Commit: "0123456789abcdef", Branch: "main"}

	b := BuildBug(f, tgt)

	assert.Equal(t, "Test Failure: renders", b.Title)
	d := b.Description
	assert.Contains(t, d, "```\nExpected 200 got 404\n```")
	assert.Contains(t, d, "**File:** src/x.test.js (line 12)")
	assert.Contains(t, d, "[src/x.test.js](https://github.com/acme/web/blob/0123456789abcdef/src/x.test.js)")
	assert.Contains(t, d, "**Branch:** main")
	assert.Contains(t, d, "**Commit:** 0123456")
	assert.Contains(t, d, "[0123456](https://github.com/acme/web/commit/0123456789abcdef)")
	assert.Contains(t, d, "automatically created from CI")
}

func TestBuildBug_DescriptionWithoutRepository(t *testing.T) {
	b := BuildBug(Failure{TestName: "t", Error: "boom"}, Target{})

	d := b.Description
	assert.Contains(t, d, "**File:** Unknown\n")
	assert.Contains(t, d, "**Branch:** unknown")
	assert.Contains(t, d, "**Commit:** unknown")
	assert.NotContains(t, d, "https://github.com")
	assert.NotContains(t, d, "(line")
}

func TestBuildBug_NoFileLinkForUnknownFile(t *testing.T) {
	b := BuildBug(Failure{TestName: "t", File: unknownFile, Error: "boom"}, Target{Repository: "acme/web", Commit: "abc"})
	assert.NotContains(t, b.Description, "/blob/")
	assert.Contains(t, b.Description, "[abc](https://github.com/acme/web/commit/abc)")
}

func TestMaterialize_PersistsBugAndOneActivity(t *testing.T) {
	store := newFakeStore()

	b, err := Materialize(context.Background(), store, Failure{TestName: "t", Error: "e"}, Target{ProjectID: "p1", ReporterID: "admin"})

	require.NoError(t, err)
	assert.Equal(t, "bug-1", b.ID)
	require.Len(t, store.activities, 1)
	assert.Equal(t, CreatedFromCIAction, store.activities[0].Action)
	assert.Equal(t, "admin", store.activities[0].UserID)
	assert.Equal(t, b.ID, *store.activities[0].BugID)
}

func TestMaterialize_WrapsStoreError(t *testing.T) {
	store := newFakeStore()
	store.failTitles["Test Failure: t"] = true

	_, err := Materialize(context.Background(), store, Failure{TestName: "t"}, Target{})

	assert.ErrorContains(t, err, `materialize "t"`)
	assert.Empty(t, store.activities)
}
