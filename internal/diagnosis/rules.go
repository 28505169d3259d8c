package diagnosis

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"strconv"

	"tracelab/internal/derived"
	"tracelab/internal/telemetry"
)

// Rule thresholds.
const (
	memoryRSSMBMin             = 512.0
	memoryPageFaultRateMin     = 500.0
	memoryPageFaultRateHigh    = 2000.0
	memoryVoluntarySwitchesMin = 5000.0

	syscallShareMin      = 0.15
	ioShareMin           = 0.60
	ioSyscallShareHigh   = 0.30
	ioShareHigh          = 0.75
	syscallHeavyHigh     = 0.35
	cpuIPCMin            = 0.90
	cpuIPCHigh           = 1.20
	cpuSyscallShareMax   = 0.10
	cpuSyscallShareHigh  = 0.05
	cpuCacheMissRateMax  = 0.05
	shortRunWallTimeSecs = 0.05
)

// Evidence metric names.
const (
	MetricMaxRSSMB             = "max_rss_mb"
	MetricPageFaultsPerSec     = "page_faults_per_sec"
	MetricVoluntarySwitchesSec = "voluntary_ctx_switches_per_sec"
	MetricSyscallTimeShare     = "syscall_time_share"
	MetricIOSyscallShare       = "io_syscall_share"
	MetricTopSyscall           = "top_syscall"
	MetricTopSyscallShare      = "top_syscall_share"
	MetricIPC                  = "ipc"
	MetricCacheMissPerInstr    = "cache_miss_per_instruction"
	MetricWallTimeSeconds      = "wall_time_seconds"
	MetricExitCode             = "exit_code"
	MetricCollectorStatuses    = "collector_statuses"
)

// input is everything a rule may look at.
type input struct {
	metrics  derived.Metrics
	workload telemetry.WorkloadOutcome
}

// rule is one entry of the ordered decision chain.
type rule struct {
	label      string
	matches    func(in input) bool
	confidence func(in input) string
	evidence   func(in input) []Evidence
}

// rules are evaluated in order and the first match wins. io-bound precedes
// syscall-heavy, so a profile crossing both share thresholds is io-bound.
var rules = []rule{
	{
		label:      LabelMemoryPressure,
		matches:    memoryPressureMatches,
		confidence: memoryPressureConfidence,
		evidence:   memoryPressureEvidence,
	},
	{
		label:      LabelIOBound,
		matches:    ioBoundMatches,
		confidence: ioBoundConfidence,
		evidence:   ioBoundEvidence,
	},
	{
		label:      LabelSyscallHeavy,
		matches:    syscallHeavyMatches,
		confidence: syscallHeavyConfidence,
		evidence:   syscallHeavyEvidence,
	},
	{
		label:      LabelCPUBound,
		matches:    cpuBoundMatches,
		confidence: cpuBoundConfidence,
		evidence:   cpuBoundEvidence,
	},
	{
		label:      LabelInconclusive,
		matches:    func(input) bool { return true },
		confidence: func(input) string { return ConfidenceLow },
		evidence:   inconclusiveEvidence,
	},
}

// atLeast reports whether the metric was computed and is >= threshold.
func atLeast(m derived.Metrics, name string, threshold float64) bool {
	v, ok := m.Value(name)
	return ok && v >= threshold
}

// absentOrAtMost reports whether the metric is absent or <= threshold.
func absentOrAtMost(m derived.Metrics, name string, threshold float64) bool {
	v, ok := m.Value(name)
	return !ok || v <= threshold
}

func formatNumber(v float64, precision int) string {
	return strconv.FormatFloat(v, 'f', precision, 64)
}

func metricEvidence(m derived.Metrics, name string, metric string, precision int, detail string) []Evidence {
	v, ok := m.Value(name)
	if !ok {
		return nil
	}
	return []Evidence{{Metric: metric, Value: formatNumber(v, precision), Detail: detail}}
}

func topSyscallEvidence(m derived.Metrics) []Evidence {
	if !m.Has(derived.TopSyscallShare) {
		return nil
	}
	return []Evidence{{
		Metric: MetricTopSyscall,
		Value:  fmt.Sprintf("%s (%ss)", m.TopSyscallName, formatNumber(m.TopSyscallTimeSeconds, 6)),
		Detail: "Most expensive syscall entry in strace summary.",
	}}
}

func memoryPressureMatches(in input) bool {
	m := in.metrics
	return atLeast(m, derived.MaxRSSMB, memoryRSSMBMin) &&
		(atLeast(m, derived.PageFaultRate, memoryPageFaultRateMin) || atLeast(m, derived.VoluntarySwitchRate, memoryVoluntarySwitchesMin))
}

func memoryPressureConfidence(in input) string {
	if atLeast(in.metrics, derived.PageFaultRate, memoryPageFaultRateHigh) {
		return ConfidenceHigh
	}
	return ConfidenceMedium
}

func memoryPressureEvidence(in input) (evidence []Evidence) {
	m := in.metrics
	evidence = append(evidence, metricEvidence(m, derived.MaxRSSMB, MetricMaxRSSMB, 1, "Peak RSS sampled from /proc/<pid>/status.")...)
	evidence = append(evidence, metricEvidence(m, derived.PageFaultRate, MetricPageFaultsPerSec, 1, "Page fault activity is elevated for this runtime.")...)
	evidence = append(evidence, metricEvidence(m, derived.VoluntarySwitchRate, MetricVoluntarySwitchesSec, 1, "High switching can indicate stalls around memory activity.")...)
	return
}

func ioBoundMatches(in input) bool {
	m := in.metrics
	return atLeast(m, derived.SyscallShare, syscallShareMin) && atLeast(m, derived.IOShare, ioShareMin)
}

func ioBoundConfidence(in input) string {
	m := in.metrics
	if atLeast(m, derived.SyscallShare, ioSyscallShareHigh) && atLeast(m, derived.IOShare, ioShareHigh) {
		return ConfidenceHigh
	}
	return ConfidenceMedium
}

func ioBoundEvidence(in input) (evidence []Evidence) {
	m := in.metrics
	evidence = append(evidence, metricEvidence(m, derived.SyscallShare, MetricSyscallTimeShare, 3, "Share of wall time spent inside syscalls.")...)
	evidence = append(evidence, metricEvidence(m, derived.IOShare, MetricIOSyscallShare, 3, "I/O-related syscalls dominate syscall time.")...)
	evidence = append(evidence, topSyscallEvidence(m)...)
	return
}

func syscallHeavyMatches(in input) bool {
	return atLeast(in.metrics, derived.SyscallShare, syscallShareMin)
}

func syscallHeavyConfidence(in input) string {
	if atLeast(in.metrics, derived.SyscallShare, syscallHeavyHigh) {
		return ConfidenceHigh
	}
	return ConfidenceMedium
}

func syscallHeavyEvidence(in input) (evidence []Evidence) {
	m := in.metrics
	evidence = append(evidence, metricEvidence(m, derived.SyscallShare, MetricSyscallTimeShare, 3, "Share of wall time spent inside syscalls.")...)
	evidence = append(evidence, metricEvidence(m, derived.TopSyscallShare, MetricTopSyscallShare, 3, "Top syscall concentration within strace summary.")...)
	evidence = append(evidence, topSyscallEvidence(m)...)
	return
}

func cpuBoundMatches(in input) bool {
	m := in.metrics
	return atLeast(m, derived.IPC, cpuIPCMin) &&
		absentOrAtMost(m, derived.SyscallShare, cpuSyscallShareMax) &&
		absentOrAtMost(m, derived.CacheMissRate, cpuCacheMissRateMax)
}

func cpuBoundConfidence(in input) string {
	m := in.metrics
	if atLeast(m, derived.IPC, cpuIPCHigh) && absentOrAtMost(m, derived.SyscallShare, cpuSyscallShareHigh) {
		return ConfidenceHigh
	}
	return ConfidenceMedium
}

func cpuBoundEvidence(in input) (evidence []Evidence) {
	m := in.metrics
	evidence = append(evidence, metricEvidence(m, derived.IPC, MetricIPC, 3, "Instructions per cycle from perf counters.")...)
	evidence = append(evidence, metricEvidence(m, derived.SyscallShare, MetricSyscallTimeShare, 3, "Low syscall share suggests compute-heavy execution.")...)
	evidence = append(evidence, metricEvidence(m, derived.CacheMissRate, MetricCacheMissPerInstr, 6, "Cache-miss density from perf counters.")...)
	return
}

func wallTimeEvidence(workload telemetry.WorkloadOutcome) Evidence {
	return Evidence{
		Metric: MetricWallTimeSeconds,
		Value:  formatNumber(workload.WallTimeSeconds, 6),
		Detail: "Elapsed runtime from fallback timer.",
	}
}

func inconclusiveEvidence(in input) []Evidence {
	return []Evidence{
		wallTimeEvidence(in.workload),
		{
			Metric: MetricExitCode,
			Value:  strconv.Itoa(in.workload.ExitCode),
			Detail: "Non-zero exit or limited telemetry can prevent clear attribution.",
		},
	}
}
