package state

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xzemt/OmniAlpha/types"
)

var t0 = time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)

func intPtr(v int) *int { return &v }

func startScan(t *testing.T, gen uint64) State {
	t.Helper()
	s, err := Start(Idle(), types.Job{ID: fmt.Sprintf("job-%d", gen), Generation: gen, Kind: types.JobKindScan}, "", t0)
	require.NoError(t, err)
	return s
}

func startChat(t *testing.T, prev State, gen uint64, prompt string) State {
	t.Helper()
	s, err := Start(prev, types.Job{ID: fmt.Sprintf("job-%d", gen), Generation: gen, Kind: types.JobKindChat}, prompt, t0)
	require.NoError(t, err)
	return s
}

func TestApply_ScenarioA(t *testing.T) {
	s := startScan(t, 1)
	events := []types.Event{
		types.Meta{Message: "Starting scan", Total: intPtr(2)},
		types.Progress{Current: 1},
		types.Match{Record: types.Record{"code": "600000"}},
		types.Progress{Current: 2},
		types.Match{Record: types.Record{"code": "000001"}},
		types.Done{},
	}

	s = ApplyAll(s, 1, events, t0)

	assert.Equal(t, []types.Record{{"code": "600000"}, {"code": "000001"}}, s.Results)
	assert.Equal(t, types.ProgressState{Current: 2, Total: 2, TotalKnown: true}, s.Progress)
	assert.Equal(t, types.JobStatusSucceeded, s.Job.Status)
	require.NotNil(t, s.Job.EndedAt)
	require.NotEmpty(t, s.Logs)
	assert.Equal(t, types.LogLevelSuccess, s.Logs[0].Level)
	assert.Equal(t, "scan complete: 2 matches", s.Logs[0].Message)
}

func TestApply_OrderPreserved(t *testing.T) {
	s := startScan(t, 1)
	var want []types.Record
	for i := range 100 {
		rec := types.Record{"code": fmt.Sprintf("%06d", 999-i)}
		want = append(want, rec)
		s = Apply(s, 1, types.Match{Record: rec}, t0)
	}

	assert.Equal(t, want, s.Results)
}

func TestApply_ProgressIsMonotonic(t *testing.T) {
	s := startScan(t, 1)
	seq := []int{1, 5, 3, 5, 0, 9, 2}
	want := []int{1, 5, 5, 5, 5, 9, 9}

	for i, cur := range seq {
		s = Apply(s, 1, types.Progress{Current: cur}, t0)
		assert.Equal(t, want[i], s.Progress.Current, "after progress %d", cur)
	}
}

func TestApply_FirstTotalWins(t *testing.T) {
	s := startScan(t, 1)
	s = Apply(s, 1, types.Meta{Message: "a", Total: intPtr(300)}, t0)
	s = Apply(s, 1, types.Meta{Message: "b"}, t0)
	s = Apply(s, 1, types.Meta{Message: "c", Total: intPtr(20)}, t0)

	assert.True(t, s.Progress.TotalKnown)
	assert.Equal(t, 300, s.Progress.Total)
}

func TestApply_ReportedErrorDoesNotTransition(t *testing.T) {
	s := startScan(t, 1)
	s = Apply(s, 1, types.ReportedError{Code: "600000", Message: "no data"}, t0)

	assert.Equal(t, types.JobStatusRunning, s.Job.Status)
	assert.Equal(t, 1, s.ReportedErrors)
	assert.Equal(t, types.LogLevelError, s.Logs[0].Level)
	assert.Equal(t, "error: 600000: no data", s.Logs[0].Message)
}

func TestDecodeFailed_CountsWithoutTransition(t *testing.T) {
	s := startScan(t, 1)
	s = Apply(s, 1, types.Match{Record: types.Record{"code": "1"}}, t0)
	s = DecodeFailed(s, 1)
	s = Apply(s, 1, types.Match{Record: types.Record{"code": "2"}}, t0)

	assert.Equal(t, 1, s.DecodeErrors)
	assert.Len(t, s.Results, 2)
	assert.Equal(t, types.JobStatusRunning, s.Job.Status)
}

func TestApply_TerminalIsSink(t *testing.T) {
	s := startScan(t, 1)
	s = Apply(s, 1, types.Match{Record: types.Record{"code": "600000"}}, t0)
	s = Apply(s, 1, types.Progress{Current: 1}, t0)
	s = Apply(s, 1, types.Done{}, t0)
	frozen := s.Clone()

	late := []types.Event{
		types.Match{Record: types.Record{"code": "000001"}},
		types.Progress{Current: 7},
		types.Meta{Message: "again", Total: intPtr(9)},
		types.ReportedError{Message: "late"},
		types.Fragment{Text: "late"},
		types.Done{},
		types.End{},
	}
	s = ApplyAll(s, 1, late, t0.Add(time.Minute))
	s = DecodeFailed(s, 1)
	s = Finish(s, 1, types.JobStatusFailed, "late failure", t0.Add(time.Minute))
	s = EndOfStream(s, 1, t0.Add(time.Minute))

	assert.Equal(t, frozen, s)
}

func TestApply_StaleGenerationRejected(t *testing.T) {
	s := startScan(t, 2)
	before := s.Clone()

	s = Apply(s, 1, types.Match{Record: types.Record{"code": "stale"}}, t0)
	s = DecodeFailed(s, 1)
	s = Finish(s, 1, types.JobStatusCancelled, "", t0)

	assert.Equal(t, before, s)
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	s := startScan(t, 1)
	s = Apply(s, 1, types.Match{Record: types.Record{"code": "1"}}, t0)
	s = Apply(s, 1, types.Meta{Message: "m"}, t0)
	snapshot := s.Clone()

	// Two independent folds from the same state must not see each other.
	a := Apply(s, 1, types.Match{Record: types.Record{"code": "a"}}, t0)
	b := Apply(s, 1, types.Match{Record: types.Record{"code": "b"}}, t0)
	_ = Apply(s, 1, types.ReportedError{Message: "x"}, t0)

	assert.Equal(t, snapshot, s)
	assert.Equal(t, "a", a.Results[1].Code())
	assert.Equal(t, "b", b.Results[1].Code())
}

func TestApply_LogRingIsBounded(t *testing.T) {
	s := startScan(t, 1)
	for i := range MaxLogEntries + 25 {
		s = Apply(s, 1, types.ReportedError{Message: fmt.Sprintf("e%d", i)}, t0)
	}

	require.Len(t, s.Logs, MaxLogEntries)
	assert.Equal(t, fmt.Sprintf("error: e%d", MaxLogEntries+24), s.Logs[0].Message, "most recent first")
	assert.Equal(t, MaxLogEntries+25, s.ReportedErrors)
}

func TestApply_ScenarioC_ChatFragments(t *testing.T) {
	s := startChat(t, Idle(), 1, "hi")
	s = ApplyAll(s, 1, []types.Event{
		types.Fragment{Text: "Hel"},
		types.Fragment{Text: "lo"},
		types.End{},
	}, t0)

	require.Len(t, s.Transcript, 2)
	assert.Equal(t, types.RoleUser, s.Transcript[0].Role)
	assert.Equal(t, "hi", s.Transcript[0].Content)
	assert.Equal(t, types.RoleAssistant, s.Transcript[1].Role)
	assert.Equal(t, "Hello", s.Transcript[1].Content)
	assert.Equal(t, types.JobStatusSucceeded, s.Job.Status)
}

func TestApply_ChatNewTurnPerJob(t *testing.T) {
	s := startChat(t, Idle(), 1, "first")
	s = ApplyAll(s, 1, []types.Event{types.Fragment{Text: "one"}, types.End{}}, t0)

	s = startChat(t, s, 2, "second")
	s = ApplyAll(s, 2, []types.Event{types.Fragment{Text: "tw"}, types.Fragment{Text: "o"}}, t0)

	require.Len(t, s.Transcript, 4)
	assert.Equal(t, "one", s.Transcript[1].Content)
	assert.Equal(t, "second", s.Transcript[2].Content)
	assert.Equal(t, "two", s.Transcript[3].Content)
	assert.Equal(t, uint64(2), s.Transcript[3].Generation)
}
