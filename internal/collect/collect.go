// Package collect gathers workload telemetry: the main run with /proc sampling,
// then replays under perf stat and strace.
package collect

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"
	"strings"

	"tracelab/internal/parse"
	"tracelab/internal/target"
	"tracelab/internal/telemetry"
)

// goos is the operating system the collectors believe they run on.
var goos = runtime.GOOS

// IsLinux reports whether the Linux-only collectors can run.
func IsLinux() bool {
	return goos == "linux"
}

// replay is the outcome of running a workload under a collector tool.
type replay struct {
	status   telemetry.CollectorStatus
	exitCode int
	timedOut bool
	output   string
}

// replayUnder runs argv under the named tool and assigns a status following
// the collector ladder: platform, argv, tool presence, timeout, parse, exit code.
// The tool writes its report to stderr, which is what parseFn receives.
func replayUnder(t target.Target, tool string, toolArgs []string, argv []string, timeout int, parseFn func(string) bool, missingMsg string) (r replay) {
	if !IsLinux() {
		r.status = telemetry.CollectorStatus{Status: telemetry.StatusUnavailable, Reason: fmt.Sprintf("%s collector is Linux-only", tool)}
		return
	}
	if len(argv) == 0 {
		r.status = telemetry.CollectorStatus{Status: telemetry.StatusError, Reason: "empty command"}
		return
	}
	if !t.CommandExists(tool) {
		r.status = telemetry.CollectorStatus{Status: telemetry.StatusUnavailable, Reason: fmt.Sprintf("%s not found in PATH", tool)}
		slog.Warn("collector unavailable", slog.String("collector", tool), slog.String("reason", r.status.Reason))
		return
	}
	args := append(append(append([]string{}, toolArgs...), "--"), argv...)
	cmd := exec.Command(tool, args...) // #nosec G204 // nosemgrep
	slog.Debug("running collector", slog.String("collector", tool), slog.String("cmd", cmd.String()))
	_, stderr, exitCode, timedOut, err := t.RunCommand(cmd, timeout)
	if err != nil {
		slog.Debug("collector command returned error", slog.String("collector", tool), slog.String("error", err.Error()))
	}
	r.exitCode = exitCode
	r.timedOut = timedOut
	r.output = stderr
	parsed := parseFn(stderr)
	switch {
	case timedOut:
		r.status = telemetry.CollectorStatus{Status: telemetry.StatusError, Reason: fmt.Sprintf("%s collector timed out", tool)}
	case parsed:
		r.status = telemetry.CollectorStatus{Status: telemetry.StatusOK}
	case exitCode == 0:
		r.status = telemetry.CollectorStatus{Status: telemetry.StatusError, Reason: missingMsg}
	default:
		r.status = telemetry.CollectorStatus{Status: telemetry.StatusError, Reason: fmt.Sprintf("%s command failed with exit code %d", tool, exitCode)}
	}
	if !r.status.OK() {
		slog.Warn("collector not ok", slog.String("collector", tool), slog.String("reason", r.status.Reason), slog.Int("exit_code", exitCode))
	}
	return
}

// PerfStat replays argv under perf stat and parses the counters it reports.
func PerfStat(t target.Target, argv []string, timeout int) telemetry.PerfResult {
	var counters telemetry.CounterSet
	r := replayUnder(t, "perf", []string{"stat", "-x,", "-e", strings.Join(parse.PerfEvents(), ",")}, argv, timeout,
		func(out string) bool {
			var err error
			counters, err = parse.PerfStat(out)
			return err == nil
		}, "perf output missing expected counters")
	result := telemetry.PerfResult{
		Status:          r.status,
		CommandExitCode: r.exitCode,
		TimedOut:        r.timedOut,
	}
	if r.status.OK() {
		result.Counters = counters
	}
	return result
}

// StraceSummary replays argv under strace -c and parses the syscall summary.
func StraceSummary(t target.Target, argv []string, timeout int) telemetry.StraceResult {
	var summary telemetry.SyscallSummary
	r := replayUnder(t, "strace", []string{"-qq", "-c"}, argv, timeout,
		func(out string) bool {
			var err error
			summary, err = parse.StraceSummary(out)
			return err == nil
		}, "strace output missing expected summary rows")
	result := telemetry.StraceResult{
		Status:          r.status,
		CommandExitCode: r.exitCode,
		TimedOut:        r.timedOut,
	}
	if r.status.OK() {
		result.Summary = summary
	}
	return result
}
