package export

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tracelab/internal/artifact"
	"tracelab/internal/compare"
	"tracelab/internal/diagnosis"
	"tracelab/internal/telemetry"
)

// sampleLine returns the exposition line of the named metric that carries all labels.
func sampleLine(t *testing.T, text string, name string, labels ...string) string {
	for line := range strings.SplitSeq(text, "\n") {
		if !strings.HasPrefix(line, name+"{") {
			continue
		}
		matched := true
		for _, label := range labels {
			if !strings.Contains(line, label) {
				matched = false
				break
			}
		}
		if matched {
			return line
		}
	}
	t.Fatalf("no %s sample with labels %v in:\n%s", name, labels, text)
	return ""
}

func writeAndRead(t *testing.T, write func(string) error) string {
	path := filepath.Join(t.TempDir(), "metrics", "tracelab.prom")
	require.NoError(t, write(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestRunTextfile(t *testing.T) {
	ok := telemetry.CollectorStatus{Status: telemetry.StatusOK}
	workload := telemetry.WorkloadOutcome{
		ExitCode:           3,
		ExitClassification: telemetry.ExitClassExitCode,
		WallTimeSeconds:    2.5,
		Proc:               telemetry.ProcSample{MaxResidentKB: telemetry.Int64(2048)},
		ProcStatus:         ok,
	}
	perf := telemetry.PerfResult{Status: ok}
	perf.Counters.Set(telemetry.CounterCycles, 1000)
	perf.Counters.Set(telemetry.CounterInstructions, 2000)
	strace := telemetry.StraceResult{Status: telemetry.CollectorStatus{Status: telemetry.StatusError, Reason: "strace collector timed out"}}
	run := artifact.NewRunResult(artifact.RunInput{
		Mode:      telemetry.ModeQEMU,
		Arch:      "aarch64",
		Command:   "./bench",
		Workload:  workload,
		Perf:      perf,
		Strace:    strace,
		Diagnosis: diagnosis.DiagnoseRun(workload, perf, strace, telemetry.ModeQEMU),
	})

	text := writeAndRead(t, func(path string) error { return WriteTextfile(path, RunRegistry(run)) })
	assert.True(t, strings.HasSuffix(sampleLine(t, text, "tracelab_run_duration_seconds", `mode="qemu"`, `arch="aarch64"`), " 2.5"))
	assert.True(t, strings.HasSuffix(sampleLine(t, text, "tracelab_run_exit_code"), " 3"))
	assert.True(t, strings.HasSuffix(sampleLine(t, text, "tracelab_run_max_rss_kb"), " 2048"))
	assert.True(t, strings.HasSuffix(sampleLine(t, text, "tracelab_run_collector_ok", `collector="perf_stat"`), " 1"))
	assert.True(t, strings.HasSuffix(sampleLine(t, text, "tracelab_run_collector_ok", `collector="strace_summary"`), " 0"))
	assert.True(t, strings.HasSuffix(sampleLine(t, text, "tracelab_run_perf_counter", `counter="instructions"`), " 2000"))
	assert.True(t, strings.HasSuffix(sampleLine(t, text, "tracelab_run_derived_metric", `metric="ipc"`), " 2"))
	sampleLine(t, text, "tracelab_run_diagnosis", `label="cpu-bound"`)
	assert.NotContains(t, text, `counter="branches"`)
}

func TestCompareTextfile(t *testing.T) {
	d := func(v float64) *float64 { return &v }
	native := compare.Sample{Mode: "native", Command: "./bench", DurationSeconds: d(1), PerfStatus: "ok", StraceStatus: "ok", ProcStatus: "ok"}
	native.Counters.Set(telemetry.CounterCycles, 100)
	emulated := compare.Sample{Mode: "qemu", Command: "./bench", DurationSeconds: d(4), PerfStatus: "ok", StraceStatus: "ok", ProcStatus: "ok", Arch: "x86_64"}
	emulated.Counters.Set(telemetry.CounterCycles, 250)
	result, err := compare.Compare([]compare.Sample{native}, []compare.Sample{emulated})
	require.NoError(t, err)
	doc := artifact.NewCompareResult(result, []string{"n.json"}, []string{"q.json"})

	text := writeAndRead(t, func(path string) error { return WriteTextfile(path, CompareRegistry(doc)) })
	assert.True(t, strings.HasSuffix(sampleLine(t, text, "tracelab_compare_slowdown_factor"), " 4"))
	assert.True(t, strings.HasSuffix(sampleLine(t, text, "tracelab_compare_throughput_ratio"), " 0.25"))
	assert.True(t, strings.HasSuffix(sampleLine(t, text, "tracelab_compare_throughput_change_percent"), " -75"))
	assert.True(t, strings.HasSuffix(sampleLine(t, text, "tracelab_compare_counter_ratio", `counter="cycles"`), " 2.5"))
	assert.True(t, strings.HasSuffix(sampleLine(t, text, "tracelab_compare_median_duration_seconds", `cohort="qemu"`), " 4"))
	assert.True(t, strings.HasSuffix(sampleLine(t, text, "tracelab_compare_samples", `cohort="native"`), " 1"))
	assert.True(t, strings.HasSuffix(sampleLine(t, text, "tracelab_compare_commands_match"), " 1"))
}
