package parse

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tracelab/internal/telemetry"
)

func TestCanonicalizeNumber(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected float64
	}{
		{"thousands comma with three trailing digits", "1,234", 1234},
		{"decimal comma", "12,5", 12.5},
		{"european grouping", "1.234,56", 1234.56},
		{"us grouping", "1,234.56", 1234.56},
		{"multiple commas", "1,234,567", 1234567},
		{"spaces as grouping", " 1 234 567 ", 1234567},
		{"plain integer", "987654", 987654},
		{"exponent", "1.5e9", 1.5e9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseCounterValue(tt.input)
			require.True(t, ok)
			assert.InDelta(t, tt.expected, got, 1e-9)
		})
	}
}

func TestParseCounterValueRejects(t *testing.T) {
	for _, input := range []string{"", "<not counted>", "<not supported>", "abc"} {
		_, ok := ParseCounterValue(input)
		assert.False(t, ok, "input %q", input)
	}
}

func TestPerfStat(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected map[string]float64
		wantErr  bool
	}{
		{
			name: "comma delimited",
			input: "1000000000,,cycles,1000000,100.00,,\n" +
				"1500000000,,instructions,1000000,100.00,1.50,insn per cycle\n" +
				"6000000,,cache-misses,1000000,100.00,,\n" +
				"3000,,page-faults,1000000,100.00,,\n",
			expected: map[string]float64{
				telemetry.CounterCycles:       1e9,
				telemetry.CounterInstructions: 1.5e9,
				telemetry.CounterCacheMisses:  6e6,
				telemetry.CounterPageFaults:   3000,
			},
		},
		{
			name:  "semicolon delimited with localized values",
			input: "1.234,56;;branches;100;100,00;;\n12;;branch-misses;100;100,00;;\n",
			expected: map[string]float64{
				telemetry.CounterBranches:     1234.56,
				telemetry.CounterBranchMisses: 12,
			},
		},
		{
			name:  "unknown events and unparsable rows are skipped",
			input: "<not counted>,,cycles,0,0.00,,\n42,,task-clock,1,100.00,,\n7,,instructions,1,100.00,,\nshort,row\n",
			expected: map[string]float64{
				telemetry.CounterInstructions: 7,
			},
		},
		{
			name:    "no recognized counters",
			input:   "# started on Mon\n\n<not supported>,,cycles,0,0.00,,\n",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			counters, err := PerfStat(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrNoData)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, len(tt.expected), counters.Len())
			for name, want := range tt.expected {
				got, ok := counters.Get(name)
				require.True(t, ok, "counter %s", name)
				assert.InDelta(t, want, got, 1e-6, "counter %s", name)
			}
		})
	}
}

const straceSample = `% time     seconds  usecs/call     calls    errors syscall
------ ----------- ----------- --------- --------- ----------------
 45.00    0.180000          18     10000           read
 20.00    0.080000          40      2000        15 openat
 12.50    0.050000           5     10000           fstat
  5.00    0.020000         100       200           futex
------ ----------- ----------- --------- --------- ----------------
100.00    0.400000                 22200        15 total
`

func TestStraceSummary(t *testing.T) {
	summary, err := StraceSummary(straceSample)
	require.NoError(t, err)
	require.NotNil(t, summary.TotalTimeSeconds)
	assert.InDelta(t, 0.4, *summary.TotalTimeSeconds, 1e-9)
	require.Len(t, summary.Entries, 4)
	assert.Equal(t, telemetry.SyscallEntry{Name: "read", Calls: 10000, TimeSeconds: 0.18, Errors: 0}, summary.Entries[0])
	assert.Equal(t, telemetry.SyscallEntry{Name: "openat", Calls: 2000, TimeSeconds: 0.08, Errors: 15}, summary.Entries[1])
	assert.Equal(t, "futex", summary.Entries[3].Name)
}

func TestStraceSummaryEdgeCases(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		entries     int
		total       *float64
		wantErr     bool
		firstSecond float64
	}{
		{
			name:        "localized decimal comma",
			input:       " 90,00    0,550000          18     10000           futex\n100,00    0,600000          55     10000           total\n",
			entries:     1,
			total:       telemetry.Float64(0.6),
			firstSecond: 0.55,
		},
		{
			name:        "comma and dot drop the commas",
			input:       " 90.00    1.234,5          18        10           futex\n",
			entries:     1,
			firstSecond: 1.2345,
		},
		{
			name:    "total row only",
			input:   "100.00    0.000000           0         0           total\n",
			entries: 0,
			total:   telemetry.Float64(0),
		},
		{
			name:        "non numeric call count skipped",
			input:       " 50.00    0.100000          18     many           read\n 50.00    0.100000          18     10           write\n",
			entries:     1,
			firstSecond: 0.1,
		},
		{
			name:    "no rows",
			input:   "% time     seconds  usecs/call     calls    errors syscall\n------ -----------\nworkload output\n",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			summary, err := StraceSummary(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrNoData)
				return
			}
			require.NoError(t, err)
			assert.Len(t, summary.Entries, tt.entries)
			if tt.total == nil {
				assert.Nil(t, summary.TotalTimeSeconds)
			} else {
				require.NotNil(t, summary.TotalTimeSeconds)
				assert.InDelta(t, *tt.total, *summary.TotalTimeSeconds, 1e-9)
			}
			if tt.entries > 0 {
				assert.InDelta(t, tt.firstSecond, summary.Entries[0].TimeSeconds, 1e-9)
			}
		})
	}
}
