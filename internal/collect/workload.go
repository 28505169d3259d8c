package collect

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/prometheus/procfs"

	"tracelab/internal/telemetry"
)

// SampleInterval is the /proc/<pid>/status polling period.
const SampleInterval = 20 * time.Millisecond

// procSampler accumulates /proc/<pid>/status readings.
type procSampler struct {
	pid    int
	sample telemetry.ProcSample
	seen   bool
}

func (s *procSampler) read() {
	proc, err := procfs.NewProc(s.pid)
	if err != nil {
		return
	}
	status, err := proc.NewStatus()
	if err != nil {
		return
	}
	s.seen = true
	rssKB := int64(status.VmRSS / 1024) // #nosec G115
	if s.sample.MaxResidentKB == nil || rssKB > *s.sample.MaxResidentKB {
		s.sample.MaxResidentKB = telemetry.Int64(rssKB)
	}
	s.sample.VoluntarySwitches = telemetry.Int64(int64(status.VoluntaryCtxtSwitches))       // #nosec G115
	s.sample.NonvoluntarySwitches = telemetry.Int64(int64(status.NonVoluntaryCtxtSwitches)) // #nosec G115
}

// RunWorkload executes argv once with inherited stdio. On Linux the process's
// /proc status is sampled until it exits. The outcome carries the exit code
// mapped to shell conventions: 128+N for a signal, 127 when the process could
// not be started and 2 for an empty command.
func RunWorkload(ctx context.Context, argv []string) telemetry.WorkloadOutcome {
	var out telemetry.WorkloadOutcome
	if len(argv) == 0 {
		out.ExitCode = 2
		out.ExitClassification = telemetry.ExitClassArgumentError
		out.ProcStatus = telemetry.CollectorStatus{Status: telemetry.StatusError, Reason: "empty command"}
		return out
	}
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...) // #nosec G204 // nosemgrep
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	slog.Debug("starting workload", slog.String("cmd", cmd.String()))
	start := time.Now()
	if err := cmd.Start(); err != nil {
		out.WallTimeSeconds = time.Since(start).Seconds()
		out.ExitCode = 127
		out.ExitClassification = telemetry.ExitClassSpawnError
		out.ProcStatus = telemetry.CollectorStatus{Status: telemetry.StatusError, Reason: "failed to start workload"}
		slog.Error("failed to start workload", slog.String("cmd", argv[0]), slog.String("error", err.Error()))
		return out
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	sampler := procSampler{pid: cmd.Process.Pid}
	var waitErr error
	if IsLinux() {
		sampler.read()
		ticker := time.NewTicker(SampleInterval)
	loop:
		for {
			select {
			case waitErr = <-done:
				break loop
			case <-ticker.C:
				sampler.read()
			}
		}
		ticker.Stop()
	} else {
		waitErr = <-done
	}
	out.WallTimeSeconds = time.Since(start).Seconds()
	out.ExitCode, out.ExitClassification = classifyExit(cmd.ProcessState, waitErr)
	out.Proc = sampler.sample
	switch {
	case !IsLinux():
		out.ProcStatus = telemetry.CollectorStatus{Status: telemetry.StatusUnavailable, Reason: "/proc collector is Linux-only"}
	case sampler.seen:
		out.ProcStatus = telemetry.CollectorStatus{Status: telemetry.StatusOK}
	default:
		out.ProcStatus = telemetry.CollectorStatus{Status: telemetry.StatusUnavailable, Reason: "unable to read /proc/<pid>/status"}
	}
	slog.Debug("workload finished", slog.Int("exit_code", out.ExitCode), slog.String("exit_classification", out.ExitClassification),
		slog.Float64("wall_time_sec", out.WallTimeSeconds))
	return out
}

func classifyExit(state *os.ProcessState, waitErr error) (int, string) {
	if state == nil {
		if waitErr != nil && !errors.As(waitErr, new(*exec.ExitError)) {
			return 2, telemetry.ExitClassUnknown
		}
		return 0, telemetry.ExitClassUnknown
	}
	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return 128 + int(ws.Signal()), telemetry.ExitClassSignal
	}
	if state.Exited() {
		return state.ExitCode(), telemetry.ExitClassExitCode
	}
	return state.ExitCode(), telemetry.ExitClassUnknown
}
