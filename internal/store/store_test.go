package store

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tracelab/internal/artifact"
	"tracelab/internal/diagnosis"
	"tracelab/internal/telemetry"
)

func newRun(mode string, timestamp string, duration float64) artifact.RunResult {
	workload := telemetry.WorkloadOutcome{ExitClassification: telemetry.ExitClassExitCode, WallTimeSeconds: duration}
	perf := telemetry.PerfResult{Status: telemetry.CollectorStatus{Status: telemetry.StatusOK}}
	perf.Counters.Set(telemetry.CounterCycles, 100)
	perf.Counters.Set(telemetry.CounterInstructions, 150)
	strace := telemetry.StraceResult{Status: telemetry.CollectorStatus{Status: telemetry.StatusUnavailable}}
	run := artifact.NewRunResult(artifact.RunInput{
		Mode:      mode,
		Arch:      "aarch64",
		Command:   "./bench",
		Workload:  workload,
		Perf:      perf,
		Strace:    strace,
		Diagnosis: diagnosis.DiagnoseRun(workload, perf, strace, mode),
	})
	run.TimestampUTC = timestamp
	return run
}

func openTemp(t *testing.T) *Store {
	s, err := Open(filepath.Join(t.TempDir(), "history", DefaultPath))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestAddAndList(t *testing.T) {
	s := openTemp(t)
	runs := []artifact.RunResult{
		newRun(telemetry.ModeNative, "2025-01-01T00:00:00Z", 1),
		newRun(telemetry.ModeQEMU, "2025-01-02T00:00:00Z", 3),
		newRun(telemetry.ModeNative, "2025-01-03T00:00:00Z", 2),
	}
	for i, run := range runs {
		id, err := s.Add(run, "run"+string(rune('a'+i))+".json")
		require.NoError(t, err)
		assert.Equal(t, run.RunID, id)
	}

	tests := []struct {
		name    string
		filter  ListFilter
		wantIDs []string
	}{
		{name: "all newest first", filter: ListFilter{}, wantIDs: []string{runs[2].RunID, runs[1].RunID, runs[0].RunID}},
		{name: "native only", filter: ListFilter{Mode: telemetry.ModeNative}, wantIDs: []string{runs[2].RunID, runs[0].RunID}},
		{name: "limit", filter: ListFilter{Limit: 1}, wantIDs: []string{runs[2].RunID}},
		{name: "no match", filter: ListFilter{Mode: "other"}, wantIDs: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, err := s.List(tt.filter)
			require.NoError(t, err)
			ids := []string{}
			for _, e := range entries {
				ids = append(ids, e.RunID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}

	entries, err := s.List(ListFilter{Mode: telemetry.ModeQEMU})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "aarch64", entries[0].Arch)
	assert.Equal(t, diagnosis.LabelCPUBound, entries[0].Label)
	require.NotNil(t, entries[0].DurationSec)
	assert.InDelta(t, 3.0, *entries[0].DurationSec, 1e-12)
	assert.Equal(t, "runb.json", entries[0].SourcePath)
}

func TestAddReplacesSameRunID(t *testing.T) {
	s := openTemp(t)
	run := newRun(telemetry.ModeNative, "2025-01-01T00:00:00Z", 1)
	_, err := s.Add(run, "first.json")
	require.NoError(t, err)
	_, err = s.Add(run, "second.json")
	require.NoError(t, err)
	entries, err := s.List(ListFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "second.json", entries[0].SourcePath)
}

func TestAddAssignsRunID(t *testing.T) {
	s := openTemp(t)
	run := newRun(telemetry.ModeNative, "2025-01-01T00:00:00Z", 1)
	run.RunID = ""
	id, err := s.Add(run, "")
	require.NoError(t, err)
	_, err = uuid.Parse(id)
	assert.NoError(t, err)
}

func TestAllRoundTrip(t *testing.T) {
	s := openTemp(t)
	first := newRun(telemetry.ModeNative, "2025-01-02T00:00:00Z", 1)
	second := newRun(telemetry.ModeQEMU, "2025-01-01T00:00:00Z", 2)
	_, err := s.Add(first, "")
	require.NoError(t, err)
	_, err = s.Add(second, "")
	require.NoError(t, err)

	runs, err := s.All()
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, first.RunID, runs[0].RunID)
	assert.Equal(t, second.RunID, runs[1].RunID)
	assert.Equal(t, "aarch64", runs[1].Arch())
	in := runs[1].Rebuild()
	assert.Equal(t, *second.Diagnosis, diagnosis.DiagnoseRun(in.Workload, in.Perf, in.Strace, in.Mode))
}

func TestReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultPath)
	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.Add(newRun(telemetry.ModeNative, "2025-01-01T00:00:00Z", 1), "")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	entries, err := s.List(ListFilter{})
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
