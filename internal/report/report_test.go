package report

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"tracelab/internal/artifact"
	"tracelab/internal/compare"
	"tracelab/internal/diagnosis"
	"tracelab/internal/table"
	"tracelab/internal/telemetry"
)

func sampleRun(mode string) artifact.RunResult {
	ok := telemetry.CollectorStatus{Status: telemetry.StatusOK}
	workload := telemetry.WorkloadOutcome{
		ExitClassification: telemetry.ExitClassExitCode,
		WallTimeSeconds:    2.0,
		Proc:               telemetry.ProcSample{MaxResidentKB: telemetry.Int64(20480)},
		ProcStatus:         ok,
	}
	perf := telemetry.PerfResult{Status: ok}
	perf.Counters.Set(telemetry.CounterCycles, 2e9)
	perf.Counters.Set(telemetry.CounterInstructions, 3e9)
	strace := telemetry.StraceResult{Status: telemetry.CollectorStatus{Status: telemetry.StatusUnavailable, Reason: "strace not found in PATH"}}
	return artifact.NewRunResult(artifact.RunInput{
		Mode:      mode,
		Arch:      "riscv64",
		Command:   "./bench",
		Workload:  workload,
		Perf:      perf,
		Strace:    strace,
		Host:      artifact.Host{OS: "linux", Arch: "x86_64", GitSHA: "unknown"},
		Diagnosis: diagnosis.DiagnoseRun(workload, perf, strace, mode),
	})
}

func TestRunTables(t *testing.T) {
	run := sampleRun(telemetry.ModeNative)
	tables := Tables(table.Source{Run: &run})
	require.Len(t, tables, len(runTables))

	out, err := Create(FormatTxt, tables)
	require.NoError(t, err)
	text := string(out)
	assert.Contains(t, text, "Run Summary\n===========\n")
	assert.Contains(t, text, "3,000,000,000")
	assert.Contains(t, text, "strace not found in PATH")
	assert.Contains(t, text, "No syscall summary captured.")
	assert.Contains(t, text, diagnosis.LabelCPUBound)
	assert.Contains(t, text, "- strace collector not fully usable: strace not found in PATH")
	assert.NotContains(t, text, "QEMU Arch")
}

func TestRunTablesQEMU(t *testing.T) {
	run := sampleRun(telemetry.ModeQEMU)
	out, err := Create(FormatTxt, Tables(table.Source{Run: &run}))
	require.NoError(t, err)
	assert.Contains(t, string(out), "QEMU Arch")
	assert.Contains(t, string(out), "riscv64")
}

func TestJsonReport(t *testing.T) {
	run := sampleRun(telemetry.ModeNative)
	out, err := Create(FormatJson, Tables(table.Source{Run: &run}))
	require.NoError(t, err)
	var doc map[string][]map[string]string
	require.NoError(t, json.Unmarshal(out, &doc))
	require.Len(t, doc[PerfCountersTableName], 2)
	assert.Equal(t, "cycles", doc[PerfCountersTableName][0]["Counter"])
	assert.Equal(t, "2,000,000,000", doc[PerfCountersTableName][0]["Value"])
	assert.Empty(t, doc[SyscallsTableName])
	require.Len(t, doc[DiagnosisTableName], 1)
	assert.Equal(t, diagnosis.LabelCPUBound, doc[DiagnosisTableName][0]["Label"])
}

func TestCompareTables(t *testing.T) {
	d := func(v float64) *float64 { return &v }
	result, err := compare.Compare(
		[]compare.Sample{{Mode: "native", Command: "./bench", DurationSeconds: d(1), PerfStatus: "ok", StraceStatus: "ok", ProcStatus: "ok"}},
		[]compare.Sample{{Mode: "qemu", Command: "./bench", DurationSeconds: d(3), PerfStatus: "ok", StraceStatus: "ok", ProcStatus: "ok", Arch: "aarch64"}},
	)
	require.NoError(t, err)
	doc := artifact.NewCompareResult(result, []string{"n.json"}, []string{"q.json"})
	out, err := Create(FormatTxt, Tables(table.Source{Compare: &doc}))
	require.NoError(t, err)
	text := string(out)
	assert.Contains(t, text, "3.000x")
	assert.Contains(t, text, "-66.67%")
	assert.Contains(t, text, "No counter ratios available.")
	assert.Contains(t, text, "- Wall-clock and throughput are primary metrics for native vs QEMU comparison.")
}

func TestXlsxReport(t *testing.T) {
	run := sampleRun(telemetry.ModeNative)
	out, err := Create(FormatXlsx, Tables(table.Source{Run: &run}))
	require.NoError(t, err)
	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()
	assert.ElementsMatch(t, []string{XlsxPrimarySheetName, XlsxBriefSheetName}, f.GetSheetList())
	v, err := f.GetCellValue(XlsxBriefSheetName, "A1")
	require.NoError(t, err)
	assert.Equal(t, RunSummaryTableName, v)

	rows, err := f.GetRows(XlsxPrimarySheetName)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(rows), 2)
	assert.Equal(t, []string{RunSummaryTableName}, rows[0])
	assert.Equal(t, []string{"Run ID", run.RunID}, rows[1])
	var collectorHeadings []string
	for i, r := range rows {
		if len(r) == 1 && r[0] == CollectorsTableName {
			collectorHeadings = rows[i+1]
			break
		}
	}
	require.NotEmpty(t, collectorHeadings)
	assert.Empty(t, collectorHeadings[0], "row tables start in the second column")
}

func TestCreateRowMismatch(t *testing.T) {
	tv := table.TableValues{
		TableDefinition: table.TableDefinition{Name: "T"},
		Fields:          []table.Field{table.Column("a", []string{"1"}), table.Column("b", []string{"1", "2"})},
	}
	_, err := Create(FormatTxt, []table.TableValues{tv})
	assert.Error(t, err)
}

func TestGetValueForCell(t *testing.T) {
	assert.Equal(t, 42, getValueForCell("42"))
	assert.Equal(t, 0.5, getValueForCell("0.5"))
	assert.Equal(t, "1,234", getValueForCell("1,234"))
}
