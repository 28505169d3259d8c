// Package gate evaluates compare and run results against regression thresholds.
package gate

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"io"
	"os"

	mstats "github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"tracelab/internal/artifact"
	"tracelab/internal/telemetry"
)

// Thresholds is the regression threshold document. JSON threshold files are
// valid YAML and load unchanged. A nil threshold is reported as missing when
// the check that needs it runs.
type Thresholds struct {
	Duration struct {
		MaxSlowdownFactorQEMUVsNative *float64 `yaml:"max_slowdown_factor_qemu_vs_native"`
	} `yaml:"duration"`
	CacheMisses struct {
		MaxRatioQEMUVsNative *float64 `yaml:"max_ratio_qemu_vs_native"`
	} `yaml:"cache_misses"`
	SyscallTime struct {
		MaxMedianShareNative *float64 `yaml:"max_median_share_native"`
		MaxMedianShareQEMU   *float64 `yaml:"max_median_share_qemu"`
	} `yaml:"syscall_time"`
	ColdWarm struct {
		MaxWarmToColdDurationRatio   *float64 `yaml:"max_warm_to_cold_duration_ratio"`
		MaxWarmMinusColdSyscallShare *float64 `yaml:"max_warm_minus_cold_syscall_share"`
		MaxWarmToColdPageFaultRatio  *float64 `yaml:"max_warm_to_cold_page_fault_ratio"`
	} `yaml:"cold_warm"`
}

// LoadThresholds reads a threshold document.
func LoadThresholds(path string) (Thresholds, error) {
	var t Thresholds
	data, err := os.ReadFile(path) // #nosec G304
	if err != nil {
		return t, errors.Wrapf(err, "failed to read %s", path)
	}
	if err := yaml.Unmarshal(data, &t); err != nil {
		return t, errors.Wrapf(err, "failed to parse %s", path)
	}
	return t, nil
}

// RunFile is a run result together with the path it was read from.
type RunFile struct {
	Path string
	Run  artifact.RunResult
}

// Input collects the artifacts checked by the gate.
type Input struct {
	Compare    artifact.CompareResult
	NativeRuns []RunFile
	QEMURuns   []RunFile
	ColdRun    *RunFile
	WarmRun    *RunFile
}

// Result is the gate verdict.
type Result struct {
	Reports       []string
	Failures      []string
	Warnings      []string
	NativeChecked int
	QEMUChecked   int
}

// Passed reports whether no check failed.
func (r Result) Passed() bool {
	return len(r.Failures) == 0
}

func (r *Result) fail(format string, args ...any) {
	r.Failures = append(r.Failures, fmt.Sprintf(format, args...))
}

func (r *Result) warn(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

// Evaluate runs every check against the thresholds.
func Evaluate(th Thresholds, in Input) Result {
	r := Result{NativeChecked: len(in.NativeRuns), QEMUChecked: len(in.QEMURuns)}
	checkSlowdown(&r, th, in)
	checkCacheMisses(&r, th, in)
	if len(in.NativeRuns) > 0 {
		checkSyscallShare(&r, in.NativeRuns, telemetry.ModeNative, "syscall_time.max_median_share_native", th.SyscallTime.MaxMedianShareNative)
	}
	if len(in.QEMURuns) > 0 {
		checkSyscallShare(&r, in.QEMURuns, telemetry.ModeQEMU, "syscall_time.max_median_share_qemu", th.SyscallTime.MaxMedianShareQEMU)
	}
	checkColdWarm(&r, th, in)
	return r
}

func checkSlowdown(r *Result, th Thresholds, in Input) {
	slowdown := in.Compare.Comparison.SlowdownFactorQEMUVsNative
	limit := th.Duration.MaxSlowdownFactorQEMUVsNative
	switch {
	case slowdown <= 0:
		r.fail("compare JSON missing comparison.slowdown_factor_qemu_vs_native")
	case limit == nil:
		r.fail("config missing duration.max_slowdown_factor_qemu_vs_native")
	case slowdown > *limit:
		r.fail("slowdown_factor_qemu_vs_native=%.6f exceeds threshold %.6f", slowdown, *limit)
	}
}

func medianCounter(runs []RunFile, counter string) (float64, bool) {
	var values []float64
	for _, rf := range runs {
		if v, ok := rf.Run.Collectors.PerfStat.Counters.Get(counter); ok {
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return 0, false
	}
	m, err := mstats.Median(values)
	return m, err == nil
}

func checkCacheMisses(r *Result, th Thresholds, in Input) {
	ratio, ok := in.Compare.Comparison.PerfCounterRatioQEMUVsNative[telemetry.CounterCacheMisses]
	if !ok {
		native, nativeOK := medianCounter(in.NativeRuns, telemetry.CounterCacheMisses)
		emulated, emulatedOK := medianCounter(in.QEMURuns, telemetry.CounterCacheMisses)
		if !nativeOK || native <= 0 || !emulatedOK {
			r.warn("skipping cache-miss ratio gate: no usable cache_misses perf counter data")
			return
		}
		ratio = emulated / native
	}
	limit := th.CacheMisses.MaxRatioQEMUVsNative
	switch {
	case limit == nil:
		r.fail("config missing cache_misses.max_ratio_qemu_vs_native")
	case ratio > *limit:
		r.fail("cache_miss_ratio_qemu_vs_native=%.6f exceeds threshold %.6f", ratio, *limit)
	}
}

// syscallShare is the strace total divided by the run duration.
func syscallShare(rf RunFile) (float64, error) {
	run := rf.Run
	if run.DurationSec == nil || *run.DurationSec <= 0 {
		return 0, errors.Errorf("%s missing valid duration_sec", rf.Path)
	}
	total := run.Collectors.StraceSummary.TotalTimeSec
	if total == nil {
		return 0, errors.Errorf("%s missing collectors.strace_summary.total_time_sec", rf.Path)
	}
	return *total / *run.DurationSec, nil
}

func checkSyscallShare(r *Result, runs []RunFile, cohort string, key string, limit *float64) {
	shares := make([]float64, 0, len(runs))
	for _, rf := range runs {
		share, err := syscallShare(rf)
		if err != nil {
			r.fail("%s", err.Error())
			return
		}
		shares = append(shares, share)
	}
	median, err := mstats.Median(shares)
	switch {
	case err != nil:
		r.fail("unable to compute %s syscall share", cohort)
	case limit == nil:
		r.fail("config missing %s", key)
	case median > *limit:
		r.fail("%s median syscall share=%.6f exceeds threshold %.6f", cohort, median, *limit)
	}
}

func metadata(run artifact.RunResult) (label, cacheState string, hasLabel bool) {
	if run.RunMetadata == nil {
		return "", "", false
	}
	return run.RunMetadata.ScenarioLabel, run.RunMetadata.CacheState, run.RunMetadata.ScenarioLabel != ""
}

func checkColdWarm(r *Result, th Thresholds, in Input) {
	if (in.ColdRun == nil) != (in.WarmRun == nil) {
		r.fail("cold/warm guard requires both --cold-run and --warm-run")
		return
	}
	if in.ColdRun == nil {
		return
	}
	cold, warm := in.ColdRun.Run, in.WarmRun.Run
	for _, rf := range []*RunFile{in.ColdRun, in.WarmRun} {
		if rf.Run.DurationSec == nil || *rf.Run.DurationSec <= 0 {
			r.fail("%s missing valid duration_sec", rf.Path)
			return
		}
	}

	coldLabel, coldState, coldHasLabel := metadata(cold)
	warmLabel, warmState, warmHasLabel := metadata(warm)
	switch {
	case !coldHasLabel || !warmHasLabel:
		r.fail("cold/warm run metadata missing scenario_label")
	case coldLabel != warmLabel:
		r.fail("cold/warm scenario_label mismatch: cold='%s', warm='%s'", coldLabel, warmLabel)
	}
	if coldState != "cold" {
		r.fail("cold-run cache_state must be 'cold' (got '%s')", coldState)
	}
	if warmState != "warm" {
		r.fail("warm-run cache_state must be 'warm' (got '%s')", warmState)
	}

	coldDuration, warmDuration := *cold.DurationSec, *warm.DurationSec
	durationRatio := warmDuration / coldDuration
	r.Reports = append(r.Reports, fmt.Sprintf("cold_vs_warm duration: cold=%.6fs warm=%.6fs ratio=%.6f delta=%.6fs",
		coldDuration, warmDuration, durationRatio, warmDuration-coldDuration))
	switch limit := th.ColdWarm.MaxWarmToColdDurationRatio; {
	case limit == nil:
		r.fail("config missing cold_warm.max_warm_to_cold_duration_ratio")
	case durationRatio > *limit:
		r.fail("warm_to_cold_duration_ratio=%.6f exceeds threshold %.6f", durationRatio, *limit)
	}

	coldTotal, warmTotal := cold.Collectors.StraceSummary.TotalTimeSec, warm.Collectors.StraceSummary.TotalTimeSec
	if coldTotal != nil && warmTotal != nil {
		coldShare := *coldTotal / coldDuration
		warmShare := *warmTotal / warmDuration
		delta := warmShare - coldShare
		r.Reports = append(r.Reports, fmt.Sprintf("cold_vs_warm syscall_share: cold=%.6f warm=%.6f delta=%.6f", coldShare, warmShare, delta))
		switch limit := th.ColdWarm.MaxWarmMinusColdSyscallShare; {
		case limit == nil:
			r.fail("config missing cold_warm.max_warm_minus_cold_syscall_share")
		case delta > *limit:
			r.fail("warm_minus_cold_syscall_share=%.6f exceeds threshold %.6f", delta, *limit)
		}
	} else {
		r.warn("skipping cold/warm syscall-share gate: missing strace total_time_sec")
	}

	coldFaults, coldOK := cold.Collectors.PerfStat.Counters.Get(telemetry.CounterPageFaults)
	warmFaults, warmOK := warm.Collectors.PerfStat.Counters.Get(telemetry.CounterPageFaults)
	switch {
	case !coldOK || !warmOK:
		r.warn("skipping cold/warm page-fault gate: no usable perf page_faults data")
	case coldFaults <= 0:
		r.warn("skipping cold/warm page-fault gate: cold run has zero page_faults")
	default:
		ratio := warmFaults / coldFaults
		r.Reports = append(r.Reports, fmt.Sprintf("cold_vs_warm page_fault_ratio: cold=%.0f warm=%.0f ratio=%.6f", coldFaults, warmFaults, ratio))
		switch limit := th.ColdWarm.MaxWarmToColdPageFaultRatio; {
		case limit == nil:
			r.fail("config missing cold_warm.max_warm_to_cold_page_fault_ratio")
		case ratio > *limit:
			r.fail("warm_to_cold_page_fault_ratio=%.6f exceeds threshold %.6f", ratio, *limit)
		}
	}
}

// Print writes the verdict. A failing gate is written to stderr, a passing one to stdout.
func (r Result) Print(stdout io.Writer, stderr io.Writer) {
	if !r.Passed() {
		fmt.Fprintln(stderr, "regression gate: FAIL")
		for _, line := range r.Reports {
			fmt.Fprintf(stderr, "  - report: %s\n", line)
		}
		for _, line := range r.Failures {
			fmt.Fprintf(stderr, "  - %s\n", line)
		}
		for _, line := range r.Warnings {
			fmt.Fprintf(stderr, "  - warning: %s\n", line)
		}
		return
	}
	fmt.Fprintln(stdout, "regression gate: PASS")
	if r.NativeChecked > 0 {
		fmt.Fprintf(stdout, "  native samples checked: %d\n", r.NativeChecked)
	}
	if r.QEMUChecked > 0 {
		fmt.Fprintf(stdout, "  qemu samples checked: %d\n", r.QEMUChecked)
	}
	for _, line := range r.Reports {
		fmt.Fprintf(stdout, "  report: %s\n", line)
	}
	for _, line := range r.Warnings {
		fmt.Fprintf(stdout, "  warning: %s\n", line)
	}
}
