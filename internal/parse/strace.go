package parse

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"bufio"
	"strconv"
	"strings"

	"tracelab/internal/telemetry"
)

const straceTotalRow = "total"

// StraceSummary parses `strace -c` summary output.
//
// Rows look like:
//
//	% time     seconds  usecs/call     calls    errors syscall
//	------ ----------- ----------- --------- --------- ----------------
//	 45.00    0.180000          18     10000           read
//	100.00    0.400000                 10250        12 total
func StraceSummary(text string) (summary telemetry.SyscallSummary, err error) {
	parsedAny := false
	scanner := bufio.NewScanner(strings.NewReader(text))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "% time") || strings.HasPrefix(line, "------") {
			continue
		}
		tokens := strings.Fields(line)
		if len(tokens) < 5 {
			continue
		}
		name := tokens[len(tokens)-1]
		seconds, ok := parseSeconds(tokens[1])
		if !ok {
			continue
		}
		if name == straceTotalRow {
			summary.TotalTimeSeconds = telemetry.Float64(seconds)
			parsedAny = true
			continue
		}
		calls, convErr := strconv.ParseInt(tokens[3], 10, 64)
		if convErr != nil {
			continue
		}
		var errorCount int64
		if len(tokens) >= 6 {
			if n, convErr := strconv.ParseInt(tokens[4], 10, 64); convErr == nil {
				errorCount = n
			}
		}
		summary.Entries = append(summary.Entries, telemetry.SyscallEntry{
			Name:        name,
			Calls:       calls,
			TimeSeconds: seconds,
			Errors:      errorCount,
		})
		parsedAny = true
	}
	if !parsedAny {
		err = ErrNoData
	}
	return
}
