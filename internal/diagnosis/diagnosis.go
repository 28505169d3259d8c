// Package diagnosis classifies a single run into one bottleneck label with
// supporting evidence and limitations.
//
// Rules are evaluated in a fixed order and the first match wins. The engine
// holds no state, so runs can be diagnosed concurrently.
package diagnosis

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"sync"

	"tracelab/internal/derived"
	"tracelab/internal/telemetry"
	"tracelab/internal/util"
)

// Labels.
const (
	LabelMemoryPressure = "memory-pressure"
	LabelIOBound        = "io-bound"
	LabelSyscallHeavy   = "syscall-heavy"
	LabelCPUBound       = "cpu-bound"
	LabelInconclusive   = "inconclusive"
)

// Confidence tiers.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

const minimumEvidence = 2

// Evidence is one metric supporting a label.
type Evidence struct {
	Metric string `json:"metric"`
	Value  string `json:"value"`
	Detail string `json:"detail"`
}

// Result is the outcome of diagnosing one run.
type Result struct {
	Label       string     `json:"label"`
	Confidence  string     `json:"confidence"`
	Evidence    []Evidence `json:"evidence"`
	Limitations []string   `json:"limitations"`
}

// Labels returns every label in rule order.
func Labels() []string {
	labels := make([]string, 0, len(rules))
	for _, r := range rules {
		labels = append(labels, r.label)
	}
	return labels
}

// DiagnoseRun classifies a run from its collector outputs. It never fails;
// missing telemetry lowers confidence or yields inconclusive.
func DiagnoseRun(workload telemetry.WorkloadOutcome, perf telemetry.PerfResult, strace telemetry.StraceResult, mode string) Result {
	in := input{
		metrics:  derived.Compute(workload, perf, strace),
		workload: workload,
	}
	result := Result{
		Evidence:    []Evidence{},
		Limitations: limitations(workload, perf, strace, mode),
	}
	for _, r := range rules {
		if !r.matches(in) {
			continue
		}
		result.Label = r.label
		result.Confidence = r.confidence(in)
		result.Evidence = append(result.Evidence, r.evidence(in)...)
		if r.label == LabelInconclusive {
			result.Limitations = util.UniqueAppend(result.Limitations, "No rule crossed confidence thresholds for CPU, syscall, I/O, or memory pressure.")
		}
		break
	}
	result.Evidence = ensureMinimumEvidence(result.Evidence, workload, perf, strace)
	return result
}

func limitations(workload telemetry.WorkloadOutcome, perf telemetry.PerfResult, strace telemetry.StraceResult, mode string) []string {
	list := []string{}
	if telemetry.IsEmulated(mode) {
		list = util.UniqueAppend(list, "Perf counters captured under QEMU emulation; compare primarily by wall time and throughput.")
	}
	if !perf.Status.OK() {
		list = util.UniqueAppend(list, "perf collector not fully usable: "+perf.Status.ReasonOrStatus())
	}
	if !strace.Status.OK() {
		list = util.UniqueAppend(list, "strace collector not fully usable: "+strace.Status.ReasonOrStatus())
	}
	if !workload.ProcStatus.OK() {
		list = util.UniqueAppend(list, "proc status sampler not fully usable: "+workload.ProcStatus.ReasonOrStatus())
	}
	if workload.WallTimeSeconds > 0 && workload.WallTimeSeconds < shortRunWallTimeSecs {
		list = util.UniqueAppend(list, "Workload completed in under 50ms; startup noise may dominate.")
	}
	return list
}

func ensureMinimumEvidence(evidence []Evidence, workload telemetry.WorkloadOutcome, perf telemetry.PerfResult, strace telemetry.StraceResult) []Evidence {
	if len(evidence) >= minimumEvidence {
		return evidence
	}
	pushUnique := func(item Evidence) {
		for _, existing := range evidence {
			if existing.Metric == item.Metric {
				return
			}
		}
		evidence = append(evidence, item)
	}
	pushUnique(wallTimeEvidence(workload))
	pushUnique(Evidence{
		Metric: MetricCollectorStatuses,
		Value:  fmt.Sprintf("perf=%s, strace=%s, proc=%s", perf.Status.Status, strace.Status.Status, workload.ProcStatus.Status),
		Detail: "Collector availability influences diagnosis confidence.",
	})
	return evidence
}

// Input bundles the collector outputs of one stored run.
type Input struct {
	Workload telemetry.WorkloadOutcome
	Perf     telemetry.PerfResult
	Strace   telemetry.StraceResult
	Mode     string
}

// DiagnoseAll diagnoses many runs using at most workers goroutines. Results are
// returned in input order.
func DiagnoseAll(inputs []Input, workers int) []Result {
	results := make([]Result, len(inputs))
	if len(inputs) == 0 {
		return results
	}
	workers = max(1, min(workers, len(inputs)))
	jobs := make(chan int)
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				in := inputs[i]
				results[i] = DiagnoseRun(in.Workload, in.Perf, in.Strace, in.Mode)
			}
		}()
	}
	for i := range inputs {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	return results
}
