package artifact

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"github.com/google/uuid"

	"tracelab/internal/compare"
	"tracelab/internal/diagnosis"
	"tracelab/internal/telemetry"
)

// CollectionStrategy names how collectors relate to the measured run.
const CollectionStrategy = "main_run_plus_replay_collectors"

// RunResult is the run_result document.
type RunResult struct {
	Header
	RunID               string            `json:"run_id"`
	Mode                string            `json:"mode"`
	CollectionStrategy  string            `json:"collection_strategy"`
	CollectorTimeoutSec int               `json:"collector_timeout_sec"`
	Command             string            `json:"command"`
	ExecCommand         string            `json:"exec_command"`
	DurationSec         *float64          `json:"duration_sec"`
	ExitCode            int               `json:"exit_code"`
	Strict              bool              `json:"strict"`
	Fallback            Fallback          `json:"fallback"`
	QEMU                *QEMU             `json:"qemu,omitempty"`
	Host                Host              `json:"host"`
	RunMetadata         *RunMetadata      `json:"run_metadata,omitempty"`
	Collectors          Collectors        `json:"collectors"`
	Diagnosis           *diagnosis.Result `json:"diagnosis,omitempty"`
}

// Fallback holds the measurements of the main (non-replayed) run.
type Fallback struct {
	WallTimeSec              float64 `json:"wall_time_sec"`
	ExitClassification       string  `json:"exit_classification"`
	MaxRSSKB                 *int64  `json:"max_rss_kb"`
	VoluntaryCtxtSwitches    *int64  `json:"voluntary_ctxt_switches"`
	NonvoluntaryCtxtSwitches *int64  `json:"nonvoluntary_ctxt_switches"`
}

// QEMU records the emulator selector of a qemu run.
type QEMU struct {
	Arch string `json:"arch"`
}

// Host describes the machine that produced a run.
type Host struct {
	OS            string `json:"os"`
	Arch          string `json:"arch"`
	GitSHA        string `json:"git_sha"`
	KernelVersion string `json:"kernel_version,omitempty"`
	CPUModel      string `json:"cpu_model,omitempty"`
}

// RunMetadata labels a run for cold/warm comparisons.
type RunMetadata struct {
	ScenarioLabel string `json:"scenario_label,omitempty"`
	CacheState    string `json:"cache_state,omitempty"`
}

// Collectors groups the per-collector sections.
type Collectors struct {
	PerfStat      PerfStat      `json:"perf_stat"`
	StraceSummary StraceSummary `json:"strace_summary"`
	ProcStatus    ProcStatus    `json:"proc_status"`
}

// PerfStat is the perf_stat collector section.
type PerfStat struct {
	Status          string               `json:"status"`
	Reason          string               `json:"reason,omitempty"`
	CommandExitCode int                  `json:"command_exit_code"`
	TimedOut        bool                 `json:"timed_out"`
	Counters        telemetry.CounterSet `json:"counters"`
}

// StraceSummary is the strace_summary collector section. Every parsed
// syscall row is kept so a stored run re-diagnoses identically.
type StraceSummary struct {
	Status          string                   `json:"status"`
	Reason          string                   `json:"reason,omitempty"`
	CommandExitCode int                      `json:"command_exit_code"`
	TimedOut        bool                     `json:"timed_out"`
	TopSyscalls     []telemetry.SyscallEntry `json:"top_syscalls"`
	TotalTimeSec    *float64                 `json:"total_time_sec,omitempty"`
}

// ProcStatus is the proc_status collector section.
type ProcStatus struct {
	Status                   string `json:"status"`
	Reason                   string `json:"reason,omitempty"`
	MaxRSSKB                 *int64 `json:"max_rss_kb"`
	VoluntaryCtxtSwitches    *int64 `json:"voluntary_ctxt_switches"`
	NonvoluntaryCtxtSwitches *int64 `json:"nonvoluntary_ctxt_switches"`
}

// RunInput carries everything needed to build a run_result.
type RunInput struct {
	Mode                string
	Arch                string
	CollectorTimeoutSec int
	Command             string
	ExecCommand         string
	Strict              bool
	Workload            telemetry.WorkloadOutcome
	Perf                telemetry.PerfResult
	Strace              telemetry.StraceResult
	Host                Host
	ScenarioLabel       string
	CacheState          string
	Diagnosis           diagnosis.Result
}

// NewRunResult builds a run_result document with a fresh run id.
func NewRunResult(in RunInput) RunResult {
	proc := in.Workload.Proc
	r := RunResult{
		Header:              NewHeader(KindRun),
		RunID:               uuid.NewString(),
		Mode:                telemetry.NormalizeMode(in.Mode),
		CollectionStrategy:  CollectionStrategy,
		CollectorTimeoutSec: in.CollectorTimeoutSec,
		Command:             in.Command,
		ExecCommand:         in.ExecCommand,
		DurationSec:         telemetry.Float64(in.Workload.WallTimeSeconds),
		ExitCode:            in.Workload.ExitCode,
		Strict:              in.Strict,
		Fallback: Fallback{
			WallTimeSec:              in.Workload.WallTimeSeconds,
			ExitClassification:       in.Workload.ExitClassification,
			MaxRSSKB:                 proc.MaxResidentKB,
			VoluntaryCtxtSwitches:    proc.VoluntarySwitches,
			NonvoluntaryCtxtSwitches: proc.NonvoluntarySwitches,
		},
		Host: in.Host,
		Collectors: Collectors{
			PerfStat: PerfStat{
				Status:          in.Perf.Status.Status,
				Reason:          in.Perf.Status.Reason,
				CommandExitCode: in.Perf.CommandExitCode,
				TimedOut:        in.Perf.TimedOut,
				Counters:        in.Perf.Counters,
			},
			StraceSummary: StraceSummary{
				Status:          in.Strace.Status.Status,
				Reason:          in.Strace.Status.Reason,
				CommandExitCode: in.Strace.CommandExitCode,
				TimedOut:        in.Strace.TimedOut,
				TopSyscalls:     in.Strace.Summary.Entries,
				TotalTimeSec:    in.Strace.Summary.TotalTimeSeconds,
			},
			ProcStatus: ProcStatus{
				Status:                   in.Workload.ProcStatus.Status,
				Reason:                   in.Workload.ProcStatus.Reason,
				MaxRSSKB:                 proc.MaxResidentKB,
				VoluntaryCtxtSwitches:    proc.VoluntarySwitches,
				NonvoluntaryCtxtSwitches: proc.NonvoluntarySwitches,
			},
		},
	}
	if r.Collectors.StraceSummary.TopSyscalls == nil {
		r.Collectors.StraceSummary.TopSyscalls = []telemetry.SyscallEntry{}
	}
	if r.Mode == telemetry.ModeQEMU {
		r.QEMU = &QEMU{Arch: in.Arch}
	}
	if in.ScenarioLabel != "" || in.CacheState != "" {
		r.RunMetadata = &RunMetadata{ScenarioLabel: in.ScenarioLabel, CacheState: in.CacheState}
	}
	d := in.Diagnosis
	r.Diagnosis = &d
	return r
}

// LoadRunResult reads a run_result document.
func LoadRunResult(path string) (RunResult, error) {
	var r RunResult
	err := load(path, KindRun, &r)
	return r, err
}

// Arch returns the recorded qemu arch, empty for native runs.
func (r RunResult) Arch() string {
	if r.QEMU == nil {
		return ""
	}
	return r.QEMU.Arch
}

// Sample converts the run into a comparison sample.
func (r RunResult) Sample(path string) compare.Sample {
	return compare.Sample{
		Path:            path,
		Mode:            r.Mode,
		Command:         r.Command,
		DurationSeconds: r.DurationSec,
		Counters:        r.Collectors.PerfStat.Counters,
		PerfStatus:      r.Collectors.PerfStat.Status,
		StraceStatus:    r.Collectors.StraceSummary.Status,
		ProcStatus:      r.Collectors.ProcStatus.Status,
		Arch:            r.Arch(),
	}
}

// Rebuild reconstructs the collector outputs recorded in the document so the
// run can be diagnosed again.
func (r RunResult) Rebuild() diagnosis.Input {
	c := r.Collectors
	wall := r.Fallback.WallTimeSec
	if wall == 0 && r.DurationSec != nil {
		wall = *r.DurationSec
	}
	return diagnosis.Input{
		Workload: telemetry.WorkloadOutcome{
			ExitCode:           r.ExitCode,
			ExitClassification: r.Fallback.ExitClassification,
			WallTimeSeconds:    wall,
			Proc: telemetry.ProcSample{
				MaxResidentKB:        c.ProcStatus.MaxRSSKB,
				VoluntarySwitches:    c.ProcStatus.VoluntaryCtxtSwitches,
				NonvoluntarySwitches: c.ProcStatus.NonvoluntaryCtxtSwitches,
			},
			ProcStatus: telemetry.CollectorStatus{Status: c.ProcStatus.Status, Reason: c.ProcStatus.Reason},
		},
		Perf: telemetry.PerfResult{
			Status:          telemetry.CollectorStatus{Status: c.PerfStat.Status, Reason: c.PerfStat.Reason},
			Counters:        c.PerfStat.Counters,
			CommandExitCode: c.PerfStat.CommandExitCode,
			TimedOut:        c.PerfStat.TimedOut,
		},
		Strace: telemetry.StraceResult{
			Status: telemetry.CollectorStatus{Status: c.StraceSummary.Status, Reason: c.StraceSummary.Reason},
			Summary: telemetry.SyscallSummary{
				Entries:          c.StraceSummary.TopSyscalls,
				TotalTimeSeconds: c.StraceSummary.TotalTimeSec,
			},
			CommandExitCode: c.StraceSummary.CommandExitCode,
			TimedOut:        c.StraceSummary.TimedOut,
		},
		Mode: r.Mode,
	}
}
