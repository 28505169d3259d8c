package compare

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tracelab/internal/artifact"
	"tracelab/internal/compare"
	"tracelab/internal/telemetry"
)

func writeRun(t *testing.T, dir, name, mode string, duration float64) string {
	t.Helper()
	ok := telemetry.CollectorStatus{Status: telemetry.StatusOK}
	in := artifact.RunInput{
		Mode:     mode,
		Command:  "./bench 10",
		Workload: telemetry.WorkloadOutcome{WallTimeSeconds: duration, ProcStatus: ok},
		Perf:     telemetry.PerfResult{Status: ok},
		Strace:   telemetry.StraceResult{Status: ok},
	}
	if mode == telemetry.ModeQEMU {
		in.Arch = "aarch64"
	}
	in.Perf.Counters.Set(telemetry.CounterCycles, duration*1e9)
	path := filepath.Join(dir, name)
	require.NoError(t, artifact.Write(path, artifact.NewRunResult(in)))
	return path
}

func TestLoadPair(t *testing.T) {
	dir := t.TempDir()
	native := writeRun(t, dir, "native.json", telemetry.ModeNative, 1.0)
	emulated := writeRun(t, dir, "qemu.json", telemetry.ModeQEMU, 3.0)
	other := writeRun(t, dir, "native2.json", telemetry.ModeNative, 2.0)

	tests := []struct {
		name       string
		first      string
		second     string
		wantNative string
		wantQEMU   string
		wantErr    bool
	}{
		{name: "native first", first: native, second: emulated, wantNative: native, wantQEMU: emulated},
		{name: "qemu first", first: emulated, second: native, wantNative: native, wantQEMU: emulated},
		{name: "two native", first: native, second: other, wantErr: true},
		{name: "missing file", first: native, second: filepath.Join(dir, "missing.json"), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := loadPair(tt.first, tt.second)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, []string{tt.wantNative}, c.nativeFiles)
			assert.Equal(t, []string{tt.wantQEMU}, c.qemuFiles)
			require.Len(t, c.native, 1)
			assert.Equal(t, telemetry.ModeNative, c.native[0].Mode)
		})
	}
	_, err := loadPair(native, other)
	assert.ErrorIs(t, err, compare.ErrValidation)
}

func TestPrintComparison(t *testing.T) {
	dir := t.TempDir()
	c, err := loadLists(
		[]string{writeRun(t, dir, "n.json", telemetry.ModeNative, 2.0)},
		[]string{writeRun(t, dir, "q.json", telemetry.ModeQEMU, 6.0)},
	)
	require.NoError(t, err)
	result, err := compare.Compare(c.native, c.qemu)
	require.NoError(t, err)
	var out bytes.Buffer
	printComparison(&out, artifact.NewCompareResult(result, c.nativeFiles, c.qemuFiles))
	for _, want := range []string{
		"TraceLab Compare\n",
		"  Native samples: 1\n",
		"  Native median duration: 2.000000s\n",
		"  QEMU median duration: 6.000000s\n",
		"  Delta duration (qemu-native): 4.000000s\n",
		"  Slowdown factor (qemu/native): 3.000x\n",
		"  Throughput ratio (qemu/native): 0.333x\n",
		"  Throughput change vs native: -66.67%\n",
		"  Commands match: yes\n",
		"  QEMU arch(es): aarch64\n",
		"    - cycles: 3.000x\n",
		"  Caveats:\n    - Wall-clock and throughput are primary metrics for native vs QEMU comparison.\n",
	} {
		assert.Contains(t, out.String(), want)
	}
}

func TestPrintComparisonNoCounters(t *testing.T) {
	var out bytes.Buffer
	printComparison(&out, artifact.CompareResult{})
	assert.Contains(t, out.String(), "    - unavailable\n")
	assert.Contains(t, out.String(), "  QEMU arch(es): unknown\n")
}
