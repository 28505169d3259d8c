package parse

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"bufio"
	"strings"

	"tracelab/internal/telemetry"
)

// perfEventCounters maps perf event names to counter names.
var perfEventCounters = map[string]string{
	"cycles":        telemetry.CounterCycles,
	"instructions":  telemetry.CounterInstructions,
	"branches":      telemetry.CounterBranches,
	"branch-misses": telemetry.CounterBranchMisses,
	"cache-misses":  telemetry.CounterCacheMisses,
	"page-faults":   telemetry.CounterPageFaults,
}

// PerfEvents returns the perf event list requested from `perf stat -e`.
func PerfEvents() []string {
	return []string{"cycles", "instructions", "branches", "branch-misses", "cache-misses", "page-faults"}
}

// splitPerfRow splits a `perf stat -x` row. Some locales emit ';' instead of ','.
func splitPerfRow(line string) []string {
	if strings.Contains(line, ";") {
		return strings.Split(line, ";")
	}
	return strings.Split(line, ",")
}

// PerfStat parses `perf stat -x,` output. The first field of a row is the
// value and the third is the event name. Unknown events are ignored.
func PerfStat(text string) (counters telemetry.CounterSet, err error) {
	parsedAny := false
	scanner := bufio.NewScanner(strings.NewReader(text))
	for scanner.Scan() {
		fields := splitPerfRow(scanner.Text())
		if len(fields) < 3 {
			continue
		}
		name, ok := perfEventCounters[strings.TrimSpace(fields[2])]
		if !ok {
			continue
		}
		value, ok := ParseCounterValue(fields[0])
		if !ok {
			continue
		}
		counters.Set(name, value)
		parsedAny = true
	}
	if !parsedAny {
		err = ErrNoData
	}
	return
}
