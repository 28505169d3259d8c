// Package telemetry defines the typed structures produced by the collectors and
// consumed by the analysis packages.
package telemetry

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import "strings"

// Execution modes as written to run artifacts.
const (
	ModeNative = "native"
	ModeQEMU   = "qemu"
	// ModeEmulated is accepted as an alias of ModeQEMU when reading a mode.
	ModeEmulated = "emulated"
)

// NormalizeMode maps mode aliases to the mode written in artifacts.
func NormalizeMode(mode string) string {
	m := strings.ToLower(strings.TrimSpace(mode))
	if m == ModeEmulated {
		return ModeQEMU
	}
	return m
}

// IsEmulated reports whether the mode denotes execution under an emulator.
func IsEmulated(mode string) bool {
	return NormalizeMode(mode) == ModeQEMU
}

// Collector status values.
const (
	StatusOK          = "ok"
	StatusError       = "error"
	StatusUnavailable = "unavailable"
)

// CollectorStatus is the quality flag of one telemetry source.
type CollectorStatus struct {
	Status string
	Reason string
}

// OK reports whether the collector produced usable data.
func (s CollectorStatus) OK() bool {
	return s.Status == StatusOK
}

// ReasonOrStatus returns the reason, falling back to the status when no reason was recorded.
func (s CollectorStatus) ReasonOrStatus() string {
	if s.Reason != "" {
		return s.Reason
	}
	return s.Status
}

// Counter names, in the order they are reported.
const (
	CounterCycles       = "cycles"
	CounterInstructions = "instructions"
	CounterBranches     = "branches"
	CounterBranchMisses = "branch_misses"
	CounterCacheMisses  = "cache_misses"
	CounterPageFaults   = "page_faults"
)

// CounterNames returns the fixed counter vocabulary.
func CounterNames() []string {
	return []string{CounterCycles, CounterInstructions, CounterBranches, CounterBranchMisses, CounterCacheMisses, CounterPageFaults}
}

// CounterSet holds hardware and software counter values. A nil field means the
// counter was not captured, which is distinct from a zero measurement.
type CounterSet struct {
	Cycles       *float64 `json:"cycles,omitempty"`
	Instructions *float64 `json:"instructions,omitempty"`
	Branches     *float64 `json:"branches,omitempty"`
	BranchMisses *float64 `json:"branch_misses,omitempty"`
	CacheMisses  *float64 `json:"cache_misses,omitempty"`
	PageFaults   *float64 `json:"page_faults,omitempty"`
}

func (c *CounterSet) field(name string) **float64 {
	switch name {
	case CounterCycles:
		return &c.Cycles
	case CounterInstructions:
		return &c.Instructions
	case CounterBranches:
		return &c.Branches
	case CounterBranchMisses:
		return &c.BranchMisses
	case CounterCacheMisses:
		return &c.CacheMisses
	case CounterPageFaults:
		return &c.PageFaults
	}
	return nil
}

// Get returns the value of the named counter and whether it is present.
func (c CounterSet) Get(name string) (float64, bool) {
	f := c.field(name)
	if f == nil || *f == nil {
		return 0, false
	}
	return **f, true
}

// Set stores a value for the named counter. Unknown names are ignored.
func (c *CounterSet) Set(name string, value float64) {
	if f := c.field(name); f != nil {
		v := value
		*f = &v
	}
}

// Len returns the number of counters present.
func (c CounterSet) Len() int {
	n := 0
	for _, name := range CounterNames() {
		if _, ok := c.Get(name); ok {
			n++
		}
	}
	return n
}

// SyscallEntry is one row of a syscall summary.
type SyscallEntry struct {
	Name        string  `json:"name"`
	Calls       int64   `json:"calls"`
	TimeSeconds float64 `json:"time_sec"`
	Errors      int64   `json:"errors"`
}

// SyscallSummary keeps entries in the collector's order (time descending).
type SyscallSummary struct {
	Entries          []SyscallEntry
	TotalTimeSeconds *float64
}

// ProcSample holds values sampled from /proc/<pid>/status.
type ProcSample struct {
	MaxResidentKB        *int64
	VoluntarySwitches    *int64
	NonvoluntarySwitches *int64
}

// Exit classifications of the workload process.
const (
	ExitClassExitCode      = "exit_code"
	ExitClassSignal        = "signal"
	ExitClassSpawnError    = "spawn_error"
	ExitClassArgumentError = "argument_error"
	ExitClassUnknown       = "unknown"
)

// WorkloadOutcome describes the main (non-replayed) execution of the workload.
type WorkloadOutcome struct {
	ExitCode           int
	ExitClassification string
	WallTimeSeconds    float64
	Proc               ProcSample
	ProcStatus         CollectorStatus
}

// PerfResult is the outcome of the counter collector.
type PerfResult struct {
	Status          CollectorStatus
	Counters        CounterSet
	CommandExitCode int
	TimedOut        bool
}

// StraceResult is the outcome of the syscall collector.
type StraceResult struct {
	Status          CollectorStatus
	Summary         SyscallSummary
	CommandExitCode int
	TimedOut        bool
}

// Float64 returns a pointer to v.
func Float64(v float64) *float64 {
	return &v
}

// Int64 returns a pointer to v.
func Int64(v int64) *int64 {
	return &v
}
