package state

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xzemt/OmniAlpha/types"
)

func TestStart_RefusesWhileRunning(t *testing.T) {
	s := startScan(t, 1)

	_, err := Start(s, types.Job{ID: "job-2", Generation: 2, Kind: types.JobKindScan}, "", t0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrJobRunning))
}

func TestStart_RequiresAdvancingGeneration(t *testing.T) {
	s := startScan(t, 3)
	s = Finish(s, 3, types.JobStatusCancelled, "", t0)

	_, err := Start(s, types.Job{ID: "job-3", Generation: 3, Kind: types.JobKindScan}, "", t0)
	assert.Error(t, err)
}

func TestStart_ClearsPerJobState(t *testing.T) {
	s := startScan(t, 1)
	s = ApplyAll(s, 1, []types.Event{
		types.Meta{Message: "m", Total: intPtr(5)},
		types.Progress{Current: 3},
		types.Match{Record: types.Record{"code": "600000"}},
		types.ReportedError{Message: "x"},
	}, t0)
	s = DecodeFailed(s, 1)
	s = Finish(s, 1, types.JobStatusFailed, "boom", t0)
	logsBefore := len(s.Logs)

	next, err := Start(s, types.Job{ID: "job-2", Generation: 2, Kind: types.JobKindScan}, "", t0.Add(time.Second))
	require.NoError(t, err)

	assert.Equal(t, types.JobStatusRunning, next.Job.Status)
	assert.Equal(t, t0.Add(time.Second), next.Job.StartedAt)
	assert.Nil(t, next.Job.EndedAt)
	assert.Empty(t, next.Results)
	assert.Equal(t, types.ProgressState{}, next.Progress)
	assert.Zero(t, next.DecodeErrors)
	assert.Zero(t, next.ReportedErrors)
	assert.Empty(t, next.FailureReason)
	assert.Len(t, next.Logs, logsBefore+1, "log history is kept")
	assert.Equal(t, "starting scan", next.Logs[0].Message)
}

func TestFinish_SetsTerminalOnce(t *testing.T) {
	s := startScan(t, 1)
	s = Finish(s, 1, types.JobStatusFailed, "connection reset", t0)
	s = Finish(s, 1, types.JobStatusCancelled, "", t0)
	s = Finish(s, 1, types.JobStatusSucceeded, "", t0)

	assert.Equal(t, types.JobStatusFailed, s.Job.Status)
	assert.Equal(t, "connection reset", s.FailureReason)
	assert.Equal(t, "connection reset", s.Logs[0].Message)
	assert.Equal(t, types.LogLevelError, s.Logs[0].Level)
}

func TestFinish_CancelIsSilent(t *testing.T) {
	s := startScan(t, 1)
	logs := len(s.Logs)
	s = Finish(s, 1, types.JobStatusCancelled, "context canceled", t0)

	assert.Equal(t, types.JobStatusCancelled, s.Job.Status)
	assert.Len(t, s.Logs, logs)
	assert.Empty(t, s.FailureReason)
}

func TestFinish_IgnoresNonTerminalStatus(t *testing.T) {
	s := startScan(t, 1)
	s = Finish(s, 1, types.JobStatusIdle, "", t0)
	assert.Equal(t, types.JobStatusRunning, s.Job.Status)
}

func TestEndOfStream_ScenarioB(t *testing.T) {
	s := startScan(t, 1)
	s = ApplyAll(s, 1, []types.Event{
		types.Meta{Message: "Starting scan", Total: intPtr(2)},
		types.Progress{Current: 1},
		types.Match{Record: types.Record{"code": "600000"}},
	}, t0)

	s = EndOfStream(s, 1, t0)

	assert.Equal(t, types.JobStatusFailed, s.Job.Status)
	assert.Equal(t, []types.Record{{"code": "600000"}}, s.Results, "partial results retained")

	var errorsLogged int
	for _, e := range s.Logs {
		if e.Level == types.LogLevelError {
			errorsLogged++
		}
	}
	assert.Equal(t, 1, errorsLogged)
	assert.Contains(t, s.FailureReason, "stream ended before done")
}

func TestEndOfStream_SucceedsWithoutDeclaredShortfall(t *testing.T) {
	tests := []struct {
		name   string
		events []types.Event
	}{
		{"no total", []types.Event{types.Match{Record: types.Record{"code": "1"}}}},
		{"empty pool", []types.Event{types.Meta{Message: "No stocks in pool", Total: intPtr(0)}}},
		{"total reached", []types.Event{types.Meta{Total: intPtr(2)}, types.Progress{Current: 2}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := ApplyAll(startScan(t, 1), 1, tt.events, t0)
			s = EndOfStream(s, 1, t0)
			assert.Equal(t, types.JobStatusSucceeded, s.Job.Status)
		})
	}
}

func TestEndOfStream_ChatWithoutSentinelSucceeds(t *testing.T) {
	s := startChat(t, Idle(), 1, "hi")
	s = Apply(s, 1, types.Fragment{Text: "partial"}, t0)
	s = EndOfStream(s, 1, t0)

	assert.Equal(t, types.JobStatusSucceeded, s.Job.Status)
	assert.Equal(t, "partial", s.Transcript[1].Content)
}

func TestClone_IsDeep(t *testing.T) {
	s := startChat(t, Idle(), 1, "hi")
	s = Apply(s, 1, types.Fragment{Text: "x"}, t0)
	s = Finish(s, 1, types.JobStatusSucceeded, "", t0)

	c := s.Clone()
	c.Transcript[0].Content = "changed"
	*c.Job.EndedAt = t0.Add(time.Hour)

	assert.Equal(t, "hi", s.Transcript[0].Content)
	assert.Equal(t, t0, *s.Job.EndedAt)
}
