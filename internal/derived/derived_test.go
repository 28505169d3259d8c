package derived

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tracelab/internal/telemetry"
)

var okStatus = telemetry.CollectorStatus{Status: telemetry.StatusOK}

func perfWith(status telemetry.CollectorStatus, counters map[string]float64) telemetry.PerfResult {
	perf := telemetry.PerfResult{Status: status}
	for name, v := range counters {
		perf.Counters.Set(name, v)
	}
	return perf
}

func TestComputeAllMetrics(t *testing.T) {
	workload := telemetry.WorkloadOutcome{
		WallTimeSeconds: 2.0,
		Proc: telemetry.ProcSample{
			MaxResidentKB:     telemetry.Int64(2048),
			VoluntarySwitches: telemetry.Int64(400),
		},
		ProcStatus: okStatus,
	}
	perf := perfWith(okStatus, map[string]float64{
		telemetry.CounterCycles:       1e9,
		telemetry.CounterInstructions: 2e9,
		telemetry.CounterCacheMisses:  1e6,
		telemetry.CounterPageFaults:   100,
	})
	strace := telemetry.StraceResult{
		Status: okStatus,
		Summary: telemetry.SyscallSummary{
			Entries: []telemetry.SyscallEntry{
				{Name: "futex", TimeSeconds: 0.5},
				{Name: "READ", TimeSeconds: 0.3},
				{Name: "write", TimeSeconds: 0.2},
			},
			TotalTimeSeconds: telemetry.Float64(1.0),
		},
	}
	m := Compute(workload, perf, strace)

	expected := map[string]float64{
		IPC:                 2.0,
		CacheMissRate:       0.0005,
		SyscallShare:        0.5,
		IOShare:             0.5,
		TopSyscallShare:     0.5,
		PageFaultRate:       50,
		VoluntarySwitchRate: 200,
		MaxRSSMB:            2,
	}
	for name, want := range expected {
		got, ok := m.Value(name)
		require.True(t, ok, "metric %s", name)
		assert.InDelta(t, want, got, 1e-9, "metric %s", name)
	}
	assert.Equal(t, "futex", m.TopSyscallName)
	assert.InDelta(t, 0.5, m.TopSyscallTimeSeconds, 1e-9)
	assert.Len(t, m.Names(), len(Definitions()))
}

func TestComputeGuards(t *testing.T) {
	tests := []struct {
		name    string
		wall    float64
		perf    telemetry.PerfResult
		strace  telemetry.StraceResult
		absent  []string
		present []string
	}{
		{
			name:    "perf not ok suppresses counter metrics",
			wall:    1,
			perf:    perfWith(telemetry.CollectorStatus{Status: telemetry.StatusError}, map[string]float64{telemetry.CounterCycles: 10, telemetry.CounterInstructions: 10, telemetry.CounterPageFaults: 5}),
			absent:  []string{IPC, CacheMissRate, PageFaultRate},
			present: []string{},
		},
		{
			name:   "zero cycles",
			wall:   1,
			perf:   perfWith(okStatus, map[string]float64{telemetry.CounterCycles: 0, telemetry.CounterInstructions: 10}),
			absent: []string{IPC},
		},
		{
			name:   "missing instructions",
			wall:   1,
			perf:   perfWith(okStatus, map[string]float64{telemetry.CounterCycles: 10, telemetry.CounterCacheMisses: 5}),
			absent: []string{IPC, CacheMissRate},
		},
		{
			name: "strace error keeps io share but drops syscall share",
			wall: 1,
			strace: telemetry.StraceResult{
				Status: telemetry.CollectorStatus{Status: telemetry.StatusError},
				Summary: telemetry.SyscallSummary{
					Entries:          []telemetry.SyscallEntry{{Name: "read", TimeSeconds: 0.1}},
					TotalTimeSeconds: telemetry.Float64(0.1),
				},
			},
			absent:  []string{SyscallShare},
			present: []string{IOShare, TopSyscallShare},
		},
		{
			name: "zero wall time",
			wall: 0,
			strace: telemetry.StraceResult{
				Status:  okStatus,
				Summary: telemetry.SyscallSummary{TotalTimeSeconds: telemetry.Float64(0.1)},
			},
			absent: []string{SyscallShare, IOShare, TopSyscallShare},
		},
		{
			name: "zero syscall total",
			wall: 1,
			strace: telemetry.StraceResult{
				Status: okStatus,
				Summary: telemetry.SyscallSummary{
					Entries:          []telemetry.SyscallEntry{{Name: "read", TimeSeconds: 0}},
					TotalTimeSeconds: telemetry.Float64(0),
				},
			},
			absent:  []string{IOShare, TopSyscallShare},
			present: []string{SyscallShare},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := Compute(telemetry.WorkloadOutcome{WallTimeSeconds: tt.wall}, tt.perf, tt.strace)
			for _, name := range tt.absent {
				assert.False(t, m.Has(name), "metric %s should be absent", name)
			}
			for _, name := range tt.present {
				assert.True(t, m.Has(name), "metric %s should be present", name)
			}
			assert.False(t, m.Has(MaxRSSMB))
			assert.False(t, m.Has(VoluntarySwitchRate))
		})
	}
}

func TestIOShareIgnoresNegativeTimes(t *testing.T) {
	strace := telemetry.StraceResult{
		Status: okStatus,
		Summary: telemetry.SyscallSummary{
			Entries: []telemetry.SyscallEntry{
				{Name: "read", TimeSeconds: 0.4},
				{Name: "write", TimeSeconds: -0.1},
			},
			TotalTimeSeconds: telemetry.Float64(0.5),
		},
	}
	m := Compute(telemetry.WorkloadOutcome{WallTimeSeconds: 1}, telemetry.PerfResult{}, strace)
	got, ok := m.Value(IOShare)
	require.True(t, ok)
	assert.InDelta(t, 0.8, got, 1e-9)
}

func TestIsIOSyscall(t *testing.T) {
	tests := []struct {
		name     string
		expected bool
	}{
		{"read", true},
		{"OpenAt", true},
		{"getdents64", true},
		{"newfstatat", true},
		{"futex", false},
		{"epoll_wait", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, IsIOSyscall(tt.name), "syscall %q", tt.name)
	}
}
