package run

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tracelab/internal/artifact"
	"tracelab/internal/diagnosis"
	"tracelab/internal/telemetry"
)

func TestWorkloadArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    []string
		wantErr string
	}{
		{name: "command", args: []string{"--", "./bench", "10"}, want: []string{"./bench", "10"}},
		{name: "command flags are not parsed", args: []string{"--", "ls", "-la"}, want: []string{"ls", "-la"}},
		{name: "no separator", args: []string{"./bench"}, wantErr: "missing workload separator '--'"},
		{name: "empty command", args: []string{"--"}, wantErr: "missing workload command after '--'"},
		{name: "argument before separator", args: []string{"extra", "--", "./bench"}, wantErr: "unexpected argument before '--': extra"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := &cobra.Command{Use: "run"}
			require.NoError(t, cmd.Flags().Parse(tt.args))
			got, err := workloadArgs(cmd, cmd.Flags().Args())
			if tt.wantErr != "" {
				assert.EqualError(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveMode(t *testing.T) {
	onlyAArch64 := func(name string) bool { return name == "qemu-aarch64" }
	tests := []struct {
		name     string
		native   bool
		qemuArch string
		wantMode string
		wantArch string
		wantErr  string
	}{
		{name: "default native", wantMode: telemetry.ModeNative},
		{name: "explicit native", native: true, wantMode: telemetry.ModeNative},
		{name: "qemu alias", qemuArch: "arm64", wantMode: telemetry.ModeQEMU, wantArch: "aarch64"},
		{name: "both", native: true, qemuArch: "aarch64", wantErr: "--native and --qemu are mutually exclusive"},
		{name: "unsupported", qemuArch: "mips", wantErr: "unsupported qemu arch 'mips' (supported: x86_64, aarch64, riscv64)"},
		{name: "emulator missing", qemuArch: "riscv64", wantErr: "missing qemu-riscv64 in PATH"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mode, arch, err := resolveMode(tt.native, tt.qemuArch, onlyAArch64)
			if tt.wantErr != "" {
				assert.EqualError(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantMode, mode)
			assert.Equal(t, tt.wantArch, arch)
		})
	}
}

func TestCollectorsUsable(t *testing.T) {
	ok := telemetry.CollectorStatus{Status: telemetry.StatusOK}
	unavailable := telemetry.CollectorStatus{Status: telemetry.StatusUnavailable, Reason: "perf not found in PATH"}
	workload := telemetry.WorkloadOutcome{ProcStatus: ok}
	assert.True(t, collectorsUsable(workload, telemetry.PerfResult{Status: ok}, telemetry.StraceResult{Status: ok}))
	assert.False(t, collectorsUsable(workload, telemetry.PerfResult{Status: unavailable}, telemetry.StraceResult{Status: ok}))
	assert.False(t, collectorsUsable(telemetry.WorkloadOutcome{}, telemetry.PerfResult{Status: ok}, telemetry.StraceResult{Status: ok}))
}

func TestPrintRun(t *testing.T) {
	workload := telemetry.WorkloadOutcome{
		ExitCode:           1,
		ExitClassification: telemetry.ExitClassExitCode,
		WallTimeSeconds:    0.5,
		Proc:               telemetry.ProcSample{MaxResidentKB: telemetry.Int64(2048), VoluntarySwitches: telemetry.Int64(7)},
		ProcStatus:         telemetry.CollectorStatus{Status: telemetry.StatusOK},
	}
	perf := telemetry.PerfResult{Status: telemetry.CollectorStatus{Status: telemetry.StatusUnavailable}}
	strace := telemetry.StraceResult{Status: telemetry.CollectorStatus{Status: telemetry.StatusError}}
	run := artifact.NewRunResult(artifact.RunInput{
		Mode:      telemetry.ModeQEMU,
		Arch:      "aarch64",
		Command:   "./bench 10",
		Workload:  workload,
		Perf:      perf,
		Strace:    strace,
		Diagnosis: diagnosis.DiagnoseRun(workload, perf, strace, telemetry.ModeQEMU),
	})
	var out bytes.Buffer
	printRun(&out, run)
	for _, want := range []string{
		"TraceLab Run\n",
		"  Mode: qemu\n",
		"  QEMU arch: aarch64\n",
		"  Command: ./bench 10\n",
		"  Duration: 0.500000s\n",
		"  Exit code: 1 (exit_code)\n",
		"  Fallback max RSS: 2048 kB\n",
		"  Fallback context switches: voluntary=7, nonvoluntary=n/a\n",
		"  Collector perf_stat: unavailable\n",
		"  Collector strace_summary: error\n",
		"  Collector proc_status: ok\n",
		"  Diagnosis: " + run.Diagnosis.Label,
	} {
		assert.Contains(t, out.String(), want)
	}
}
