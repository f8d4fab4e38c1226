package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finanze/internal/core"
)

func TestJobs_Lifecycle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	user := createUser(t, repo, "jobs")

	id, err := repo.CreateJob(ctx, core.ReportJob{
		UserID: user, ReportType: core.ReportSummary, Format: core.FormatPDF,
		Start: core.NewDate(2024, 1, 1), End: core.NewDate(2024, 1, 31),
	})
	require.NoError(t, err)

	pending, err := repo.PendingJobs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, core.JobPending, pending[0].Status)

	job, claimed, err := repo.ClaimJob(ctx, id)
	require.NoError(t, err)
	require.True(t, claimed)
	assert.Equal(t, core.JobProcessing, job.Status)
	assert.Equal(t, 1, job.Attempts)

	_, claimed, err = repo.ClaimJob(ctx, id)
	require.NoError(t, err)
	assert.False(t, claimed)

	status, err := repo.FailJob(ctx, id, "boom", 2)
	require.NoError(t, err)
	assert.Equal(t, core.JobPending, status)

	_, claimed, err = repo.ClaimJob(ctx, id)
	require.NoError(t, err)
	require.True(t, claimed)
	status, err = repo.FailJob(ctx, id, "boom again", 2)
	require.NoError(t, err)
	assert.Equal(t, core.JobFailed, status)

	job, err = repo.GetUserJob(ctx, user, id)
	require.NoError(t, err)
	assert.Equal(t, "boom again", job.Error)

	other := createUser(t, repo, "other")
	_, err = repo.GetUserJob(ctx, other, id)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestJobs_CompleteAndPurge(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	user := createUser(t, repo, "purge")

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }

	id, err := repo.CreateJob(ctx, core.ReportJob{
		UserID: user, ReportType: core.ReportTrend, Format: core.FormatXLSX,
		Start: core.NewDate(2024, 1, 1), End: core.NewDate(2024, 5, 31),
	})
	require.NoError(t, err)
	_, _, err = repo.ClaimJob(ctx, id)
	require.NoError(t, err)
	require.NoError(t, repo.CompleteJob(ctx, id, "/exports/1/report.xlsx"))

	jobs, err := repo.ListUserJobs(ctx, user, 20)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, core.JobDone, jobs[0].Status)

	locs, err := repo.PurgeFinishedJobs(ctx, now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Empty(t, locs)

	locs, err = repo.PurgeFinishedJobs(ctx, now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []string{"/exports/1/report.xlsx"}, locs)

	_, err = repo.GetJob(ctx, id)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestJobs_ResetStale(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	user := createUser(t, repo, "stale")

	start := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return start }
	id, err := repo.CreateJob(ctx, core.ReportJob{
		UserID: user, ReportType: core.ReportSummary, Format: core.FormatPDF,
		Start: core.NewDate(2024, 1, 1), End: core.NewDate(2024, 1, 31),
	})
	require.NoError(t, err)
	_, _, err = repo.ClaimJob(ctx, id)
	require.NoError(t, err)

	repo.now = func() time.Time { return start.Add(time.Hour) }
	n, err := repo.ResetStaleJobs(ctx, start.Add(30*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	job, err := repo.GetJob(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, core.JobPending, job.Status)
}

func TestSessions(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	user := createUser(t, repo, "sess")
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.CreateSession(ctx, core.Session{
		TokenHash: "live", UserID: user, CreatedAt: now, ExpiresAt: now.Add(time.Hour), LastSeenAt: now,
	}))
	require.NoError(t, repo.CreateSession(ctx, core.Session{
		TokenHash: "old", UserID: user, CreatedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour), LastSeenAt: now,
	}))

	s, err := repo.GetSession(ctx, "live", now)
	require.NoError(t, err)
	assert.Equal(t, user, s.UserID)
	assert.Equal(t, now.Add(time.Hour), s.ExpiresAt)

	_, err = repo.GetSession(ctx, "old", now)
	assert.ErrorIs(t, err, core.ErrNotFound)

	n, err := repo.PurgeExpiredSessions(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, repo.DeleteSession(ctx, "live"))
	_, err = repo.GetSession(ctx, "live", now)
	assert.ErrorIs(t, err, core.ErrNotFound)
}
