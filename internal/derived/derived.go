// Package derived computes dimensionless ratios from collector outputs.
//
// Each metric is a formula plus a guard, both govaluate expressions. A metric is
// computed only when every variable it references is present and its guard
// holds; otherwise it is absent, never zero.
package derived

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/casbin/govaluate"
	mapset "github.com/deckarep/golang-set/v2"

	"tracelab/internal/telemetry"
)

// Metric names.
const (
	IPC                 = "ipc"
	CacheMissRate       = "cache_miss_rate"
	SyscallShare        = "syscall_share"
	IOShare             = "io_share"
	TopSyscallShare     = "top_syscall_share"
	PageFaultRate       = "page_fault_rate"
	VoluntarySwitchRate = "voluntary_switch_rate"
	MaxRSSMB            = "max_rss_mb"
)

// variable names available to formulas
const (
	varWallTime          = "wall_time"
	varPerfOK            = "perf_ok"
	varStraceOK          = "strace_ok"
	varCycles            = "cycles"
	varInstructions      = "instructions"
	varCacheMisses       = "cache_misses"
	varPageFaults        = "page_faults"
	varSyscallTotal      = "syscall_total"
	varIOTime            = "io_time"
	varTopTime           = "top_time"
	varMaxRSSKB          = "max_rss_kb"
	varVoluntarySwitches = "voluntary_switches"
)

// Definition is a derived metric formula.
type Definition struct {
	Name            string
	Expression      string // value formula
	GuardExpression string // boolean precondition, empty when none
	evaluable       *govaluate.EvaluableExpression
	guardEvaluable  *govaluate.EvaluableExpression
	variables       mapset.Set[string]
}

var definitions = []Definition{
	{Name: IPC, Expression: "instructions / cycles", GuardExpression: "perf_ok && cycles > 0"},
	{Name: CacheMissRate, Expression: "cache_misses / instructions", GuardExpression: "perf_ok && instructions > 0"},
	{Name: SyscallShare, Expression: "syscall_total / wall_time", GuardExpression: "strace_ok && wall_time > 0"},
	{Name: IOShare, Expression: "io_time / syscall_total", GuardExpression: "syscall_total > 0"},
	{Name: TopSyscallShare, Expression: "top_time / syscall_total", GuardExpression: "syscall_total > 0"},
	{Name: PageFaultRate, Expression: "page_faults / wall_time", GuardExpression: "perf_ok && wall_time > 0"},
	{Name: VoluntarySwitchRate, Expression: "voluntary_switches / wall_time", GuardExpression: "wall_time > 0"},
	{Name: MaxRSSMB, Expression: "max_rss_kb / 1024"},
}

// ioSyscalls are the syscalls attributed to filesystem I/O.
var ioSyscalls = mapset.NewThreadUnsafeSet(
	"read", "write", "pread64", "pwrite64", "preadv", "pwritev", "readv", "writev",
	"open", "openat", "close", "fsync", "fdatasync",
	"stat", "fstat", "lstat", "newfstatat", "getdents", "getdents64",
)

func init() {
	for i := range definitions {
		if err := compileDefinition(&definitions[i]); err != nil {
			panic(err)
		}
	}
}

func compileDefinition(def *Definition) (err error) {
	if def.evaluable, err = govaluate.NewEvaluableExpression(def.Expression); err != nil {
		return fmt.Errorf("failed to create evaluable expression for metric %s: %w", def.Name, err)
	}
	def.variables = mapset.NewThreadUnsafeSet(def.evaluable.Vars()...)
	if def.GuardExpression != "" {
		if def.guardEvaluable, err = govaluate.NewEvaluableExpression(def.GuardExpression); err != nil {
			return fmt.Errorf("failed to create guard expression for metric %s: %w", def.Name, err)
		}
		def.variables.Append(def.guardEvaluable.Vars()...)
	}
	return nil
}

// Definitions returns the metric formulas in evaluation order.
func Definitions() []Definition {
	return definitions
}

// IsIOSyscall reports whether the syscall is attributed to filesystem I/O.
func IsIOSyscall(name string) bool {
	return ioSyscalls.Contains(strings.ToLower(name))
}

// Metrics holds the derived metrics that could be computed for one run.
type Metrics struct {
	values                map[string]float64
	TopSyscallName        string
	TopSyscallTimeSeconds float64
}

// NewMetrics builds a Metrics value from already computed values.
func NewMetrics(values map[string]float64, topSyscallName string, topSyscallTimeSeconds float64) Metrics {
	m := Metrics{values: make(map[string]float64, len(values)), TopSyscallName: topSyscallName, TopSyscallTimeSeconds: topSyscallTimeSeconds}
	for k, v := range values {
		m.values[k] = v
	}
	return m
}

// Value returns the metric and whether it was computed.
func (m Metrics) Value(name string) (float64, bool) {
	v, ok := m.values[name]
	return v, ok
}

// Has reports whether the metric was computed.
func (m Metrics) Has(name string) bool {
	_, ok := m.values[name]
	return ok
}

// Names returns the computed metric names in definition order.
func (m Metrics) Names() []string {
	var names []string
	for _, def := range definitions {
		if m.Has(def.Name) {
			names = append(names, def.Name)
		}
	}
	return names
}

// Compute evaluates every metric definition against the collector outputs.
func Compute(workload telemetry.WorkloadOutcome, perf telemetry.PerfResult, strace telemetry.StraceResult) Metrics {
	variables := buildVariables(workload, perf, strace)
	available := mapset.NewThreadUnsafeSetFromMapKeys(variables)
	m := Metrics{values: make(map[string]float64)}
	if entries := strace.Summary.Entries; len(entries) > 0 {
		m.TopSyscallName = entries[0].Name
		m.TopSyscallTimeSeconds = entries[0].TimeSeconds
	}
	for _, def := range definitions {
		if !def.variables.IsSubset(available) {
			continue
		}
		value, ok, err := evaluate(def, variables)
		if err != nil {
			slog.Debug("failed to evaluate derived metric", slog.String("metric", def.Name), slog.String("error", err.Error()))
			continue
		}
		if ok {
			m.values[def.Name] = value
		}
	}
	return m
}

func buildVariables(workload telemetry.WorkloadOutcome, perf telemetry.PerfResult, strace telemetry.StraceResult) map[string]any {
	variables := map[string]any{
		varWallTime: workload.WallTimeSeconds,
		varPerfOK:   perf.Status.OK(),
		varStraceOK: strace.Status.OK(),
	}
	counterVars := map[string]string{
		varCycles:       telemetry.CounterCycles,
		varInstructions: telemetry.CounterInstructions,
		varCacheMisses:  telemetry.CounterCacheMisses,
		varPageFaults:   telemetry.CounterPageFaults,
	}
	for variable, counter := range counterVars {
		if v, ok := perf.Counters.Get(counter); ok {
			variables[variable] = v
		}
	}
	summary := strace.Summary
	if summary.TotalTimeSeconds != nil {
		variables[varSyscallTotal] = *summary.TotalTimeSeconds
	}
	if len(summary.Entries) > 0 {
		ioTime := 0.0
		for _, entry := range summary.Entries {
			if IsIOSyscall(entry.Name) {
				ioTime += max(0, entry.TimeSeconds)
			}
		}
		variables[varIOTime] = ioTime
		variables[varTopTime] = summary.Entries[0].TimeSeconds
	}
	if workload.Proc.MaxResidentKB != nil {
		variables[varMaxRSSKB] = float64(*workload.Proc.MaxResidentKB)
	}
	if workload.Proc.VoluntarySwitches != nil {
		variables[varVoluntarySwitches] = float64(*workload.Proc.VoluntarySwitches)
	}
	return variables
}

// evaluate runs the guard and the formula, catching panics from the evaluator.
func evaluate(def Definition, variables map[string]any) (value float64, ok bool, err error) {
	defer func() {
		if errx := recover(); errx != nil {
			err = fmt.Errorf("%v : %s : %s", errx, def.Name, def.Expression)
		}
	}()
	if def.guardEvaluable != nil {
		var guard any
		if guard, err = def.guardEvaluable.Evaluate(variables); err != nil {
			err = fmt.Errorf("%v : %s : %s", err, def.Name, def.GuardExpression)
			return
		}
		if pass, isBool := guard.(bool); !isBool || !pass {
			return
		}
	}
	var result any
	if result, err = def.evaluable.Evaluate(variables); err != nil {
		err = fmt.Errorf("%v : %s : %s", err, def.Name, def.Expression)
		return
	}
	value, ok = result.(float64)
	return
}
