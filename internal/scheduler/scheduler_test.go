package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sieng/factor-engine/pkg/logger"
)

type stubJob struct {
	name     string
	schedule string
	runs     atomic.Int32
	failures int32 // fail the first N runs
}

func (j *stubJob) Name() string     { return j.name }
func (j *stubJob) Schedule() string { return j.schedule }

func (j *stubJob) Run(context.Context) error {
	n := j.runs.Add(1)
	if n <= j.failures {
		return errors.New("stub failure")
	}
	return nil
}

func TestAddJobRejectsDuplicates(t *testing.T) {
	s := New(logger.NewNop())
	job := &stubJob{name: "daily_ingest", schedule: "0 30 18 * * MON-FRI"}

	require.NoError(t, s.AddJob(job))
	err := s.AddJob(job)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	assert.Equal(t, []string{"daily_ingest"}, s.GetAllJobs())
}

func TestAddJobRejectsBadSchedule(t *testing.T) {
	s := New(logger.NewNop())
	err := s.AddJob(&stubJob{name: "broken", schedule: "not a cron spec"})
	require.Error(t, err)
}

func TestRunJobSyncRecordsHistory(t *testing.T) {
	s := New(logger.NewNop()).WithRetry(0, 0)
	job := &stubJob{name: "monthly_research", schedule: "0 0 7 1 * *"}
	require.NoError(t, s.AddJob(job))

	require.NoError(t, s.RunJobSync("monthly_research"))

	history, err := s.GetJobHistory("monthly_research")
	require.NoError(t, err)
	require.Len(t, history.Results, 1)
	assert.True(t, history.Results[0].Success)
	assert.Empty(t, history.Results[0].Error)
	assert.Equal(t, 1.0, history.GetSuccessRate())
}

func TestRunJobRetriesUntilSuccess(t *testing.T) {
	s := New(logger.NewNop()).WithRetry(2, time.Millisecond)
	job := &stubJob{name: "flaky", schedule: "@hourly", failures: 2}
	require.NoError(t, s.AddJob(job))

	require.NoError(t, s.RunJobSync("flaky"))

	assert.Equal(t, int32(3), job.runs.Load())
	history, err := s.GetJobHistory("flaky")
	require.NoError(t, err)
	require.Len(t, history.Results, 1)
	assert.True(t, history.Results[0].Success)
}

func TestRunJobExhaustedRetriesRecordsFailure(t *testing.T) {
	s := New(logger.NewNop()).WithRetry(1, time.Millisecond)
	job := &stubJob{name: "doomed", schedule: "@daily", failures: 10}
	require.NoError(t, s.AddJob(job))

	require.NoError(t, s.RunJobSync("doomed"))

	history, err := s.GetJobHistory("doomed")
	require.NoError(t, err)
	require.Len(t, history.Results, 1)
	assert.False(t, history.Results[0].Success)
	assert.Equal(t, "stub failure", history.Results[0].Error)
	assert.Len(t, history.GetFailedResults(), 1)

	stats := s.GetJobStats()
	require.Contains(t, stats, "doomed")
	assert.Equal(t, 1, stats["doomed"].FailureCount)
	assert.NotNil(t, stats["doomed"].LastFailure)
}

func TestRunJobUnknownName(t *testing.T) {
	s := New(logger.NewNop())
	require.Error(t, s.RunJob("missing"))
	require.Error(t, s.RunJobSync("missing"))

	_, err := s.GetJobHistory("missing")
	require.Error(t, err)
}

func TestRemoveJob(t *testing.T) {
	s := New(logger.NewNop())
	job := &stubJob{name: "overrides_sync", schedule: "0 0 * * * *"}
	require.NoError(t, s.AddJob(job))

	require.NoError(t, s.RemoveJob("overrides_sync"))
	require.Error(t, s.RemoveJob("overrides_sync"))
	assert.Empty(t, s.GetAllJobs())
}
