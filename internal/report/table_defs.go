package report

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

// table_defs.go defines the tables rendered for each artifact kind.

import (
	"fmt"
	"sort"
	"strings"

	"tracelab/internal/table"
	"tracelab/internal/telemetry"
)

const (
	RunSummaryTableName     = "Run Summary"
	HostTableName           = "Host"
	CollectorsTableName     = "Collectors"
	FallbackTableName       = "Fallback"
	PerfCountersTableName   = "Perf Counters"
	SyscallsTableName       = "Syscalls"
	DiagnosisTableName      = "Diagnosis"
	EvidenceTableName       = "Evidence"
	LimitationsTableName    = "Limitations"
	CompareSummaryTableName = "Comparison"
	CohortsTableName        = "Cohorts"
	CounterRatiosTableName  = "Counter Ratios"
	CaveatsTableName        = "Caveats"
)

// maxSyscallRows limits the syscall table, stored runs keep every row.
const maxSyscallRows = 15

var runTables = []table.TableDefinition{
	{Name: RunSummaryTableName, FieldsFunc: runSummaryTableValues},
	{Name: HostTableName, FieldsFunc: hostTableValues},
	{Name: CollectorsTableName, HasRows: true, FieldsFunc: collectorsTableValues},
	{Name: FallbackTableName, FieldsFunc: fallbackTableValues},
	{Name: PerfCountersTableName, HasRows: true, FieldsFunc: perfCountersTableValues, NoDataFound: "No perf counters captured."},
	{Name: SyscallsTableName, HasRows: true, FieldsFunc: syscallsTableValues, NoDataFound: "No syscall summary captured."},
	{Name: DiagnosisTableName, FieldsFunc: diagnosisTableValues, NoDataFound: "Run was not diagnosed."},
	{Name: EvidenceTableName, HasRows: true, FieldsFunc: evidenceTableValues},
	{Name: LimitationsTableName, FieldsFunc: limitationsTableValues, TextTableRendererFunc: bulletListTextRenderer, NoDataFound: "None."},
}

var compareTables = []table.TableDefinition{
	{Name: CompareSummaryTableName, FieldsFunc: compareSummaryTableValues},
	{Name: CohortsTableName, HasRows: true, FieldsFunc: cohortsTableValues},
	{Name: CounterRatiosTableName, HasRows: true, FieldsFunc: counterRatiosTableValues, NoDataFound: "No counter ratios available."},
	{Name: CaveatsTableName, FieldsFunc: caveatsTableValues, TextTableRendererFunc: bulletListTextRenderer},
}

// Tables returns the table values for the artifact held by source.
func Tables(source table.Source) []table.TableValues {
	switch {
	case source.Run != nil:
		return table.ProcessTables(runTables, source)
	case source.Compare != nil:
		return table.ProcessTables(compareTables, source)
	}
	return nil
}

func runSummaryTableValues(s table.Source) []table.Field {
	r := s.Run
	fields := []table.Field{
		table.Pair("Run ID", r.RunID),
		table.Pair("Timestamp (UTC)", r.TimestampUTC),
		table.Pair("Mode", r.Mode),
	}
	if r.QEMU != nil {
		fields = append(fields, table.Pair("QEMU Arch", r.QEMU.Arch))
	}
	fields = append(fields,
		table.Pair("Command", r.Command),
		table.Pair("Exec Command", r.ExecCommand),
		table.Pair("Duration (s)", table.FormatOptionalFloat(r.DurationSec, 6)),
		table.Pair("Exit Code", fmt.Sprintf("%d (%s)", r.ExitCode, r.Fallback.ExitClassification)),
		table.Pair("Strict", table.FormatBool(r.Strict)),
		table.Pair("Collection Strategy", r.CollectionStrategy),
		table.Pair("Collector Timeout (s)", fmt.Sprintf("%d", r.CollectorTimeoutSec)),
	)
	if r.RunMetadata != nil {
		fields = append(fields,
			table.Pair("Scenario", r.RunMetadata.ScenarioLabel),
			table.Pair("Cache State", r.RunMetadata.CacheState),
		)
	}
	return fields
}

func hostTableValues(s table.Source) []table.Field {
	h := s.Run.Host
	return []table.Field{
		table.Pair("OS", h.OS),
		table.Pair("Arch", h.Arch),
		table.Pair("Kernel", orNotAvailable(h.KernelVersion)),
		table.Pair("CPU Model", orNotAvailable(h.CPUModel)),
		table.Pair("Git SHA", h.GitSHA),
	}
}

func orNotAvailable(s string) string {
	if s == "" {
		return table.NotAvailable
	}
	return s
}

func collectorsTableValues(s table.Source) []table.Field {
	c := s.Run.Collectors
	return []table.Field{
		table.Column("Collector", []string{"perf_stat", "strace_summary", "proc_status"}),
		table.Column("Status", []string{c.PerfStat.Status, c.StraceSummary.Status, c.ProcStatus.Status}),
		table.Column("Exit Code", []string{fmt.Sprintf("%d", c.PerfStat.CommandExitCode), fmt.Sprintf("%d", c.StraceSummary.CommandExitCode), "-"}),
		table.Column("Timed Out", []string{table.FormatBool(c.PerfStat.TimedOut), table.FormatBool(c.StraceSummary.TimedOut), "-"}),
		table.Column("Reason", []string{c.PerfStat.Reason, c.StraceSummary.Reason, c.ProcStatus.Reason}),
	}
}

func fallbackTableValues(s table.Source) []table.Field {
	f := s.Run.Fallback
	return []table.Field{
		table.Pair("Wall Time (s)", table.FormatFloat(f.WallTimeSec, 6)),
		table.Pair("Max RSS (kB)", table.FormatOptionalInt(f.MaxRSSKB)),
		table.Pair("Voluntary Context Switches", table.FormatOptionalInt(f.VoluntaryCtxtSwitches)),
		table.Pair("Nonvoluntary Context Switches", table.FormatOptionalInt(f.NonvoluntaryCtxtSwitches)),
	}
}

func perfCountersTableValues(s table.Source) []table.Field {
	counters := s.Run.Collectors.PerfStat.Counters
	names := []string{}
	values := []string{}
	for _, name := range telemetry.CounterNames() {
		if v, ok := counters.Get(name); ok {
			names = append(names, name)
			values = append(values, table.FormatCount(v))
		}
	}
	if len(names) == 0 {
		return []table.Field{}
	}
	return []table.Field{table.Column("Counter", names), table.Column("Value", values)}
}

func syscallsTableValues(s table.Source) []table.Field {
	summary := s.Run.Collectors.StraceSummary
	entries := summary.TopSyscalls
	if len(entries) > maxSyscallRows {
		entries = entries[:maxSyscallRows]
	}
	if len(entries) == 0 {
		return []table.Field{}
	}
	fields := []table.Field{
		table.Column("Syscall", nil),
		table.Column("Calls", nil),
		table.Column("Time (s)", nil),
		table.Column("Errors", nil),
		table.Column("Share of Syscall Time", nil),
	}
	for _, e := range entries {
		share := table.NotAvailable
		if summary.TotalTimeSec != nil && *summary.TotalTimeSec > 0 {
			share = table.FormatFloat(e.TimeSeconds / *summary.TotalTimeSec * 100, 2) + "%"
		}
		fields[0].Values = append(fields[0].Values, e.Name)
		fields[1].Values = append(fields[1].Values, table.FormatCount(float64(e.Calls)))
		fields[2].Values = append(fields[2].Values, table.FormatFloat(e.TimeSeconds, 6))
		fields[3].Values = append(fields[3].Values, fmt.Sprintf("%d", e.Errors))
		fields[4].Values = append(fields[4].Values, share)
	}
	return fields
}

func diagnosisTableValues(s table.Source) []table.Field {
	d := s.Run.Diagnosis
	if d == nil {
		return []table.Field{}
	}
	return []table.Field{
		table.Pair("Label", d.Label),
		table.Pair("Confidence", d.Confidence),
	}
}

func evidenceTableValues(s table.Source) []table.Field {
	d := s.Run.Diagnosis
	if d == nil || len(d.Evidence) == 0 {
		return []table.Field{}
	}
	fields := []table.Field{table.Column("Metric", nil), table.Column("Value", nil), table.Column("Detail", nil)}
	for _, e := range d.Evidence {
		fields[0].Values = append(fields[0].Values, e.Metric)
		fields[1].Values = append(fields[1].Values, e.Value)
		fields[2].Values = append(fields[2].Values, e.Detail)
	}
	return fields
}

func limitationsTableValues(s table.Source) []table.Field {
	d := s.Run.Diagnosis
	if d == nil || len(d.Limitations) == 0 {
		return []table.Field{}
	}
	return []table.Field{table.Column("Limitation", d.Limitations)}
}

func compareSummaryTableValues(s table.Source) []table.Field {
	c := s.Compare
	return []table.Field{
		table.Pair("Command", c.Inputs.Command),
		table.Pair("Commands Match", table.FormatBool(c.Inputs.CommandsMatch)),
		table.Pair("QEMU Arches", archesText(c.QEMU.Arches)),
		table.Pair("Delta Duration (s)", table.FormatFloat(c.Comparison.DeltaDurationSec, 6)),
		table.Pair("Slowdown (qemu/native)", table.FormatFloat(c.Comparison.SlowdownFactorQEMUVsNative, 3)+"x"),
		table.Pair("Throughput Ratio (qemu/native)", table.FormatFloat(c.Comparison.ThroughputRatioQEMUVsNative, 3)+"x"),
		table.Pair("Throughput Change", table.FormatFloat(c.Comparison.ThroughputChangePercentQEMUVsNative, 2)+"%"),
		table.Pair("Recommended Sample Count", table.FormatBool(c.Protocol.UsesRecommendedSampleCount)),
	}
}

func archesText(arches []string) string {
	if len(arches) == 0 {
		return "unknown"
	}
	return strings.Join(arches, ", ")
}

func cohortsTableValues(s table.Source) []table.Field {
	c := s.Compare
	return []table.Field{
		table.Column("Cohort", []string{"native", "qemu"}),
		table.Column("Samples", []string{fmt.Sprintf("%d", c.Native.SampleCount), fmt.Sprintf("%d", c.QEMU.SampleCount)}),
		table.Column("Median Duration (s)", []string{table.FormatFloat(c.Native.MedianDurationSec, 6), table.FormatFloat(c.QEMU.MedianDurationSec, 6)}),
		table.Column("Files", []string{strings.Join(c.Inputs.NativeFiles, ", "), strings.Join(c.Inputs.QEMUFiles, ", ")}),
	}
}

func counterRatiosTableValues(s table.Source) []table.Field {
	ratios := s.Compare.Comparison.PerfCounterRatioQEMUVsNative
	if len(ratios) == 0 {
		return []table.Field{}
	}
	names := make([]string, 0, len(ratios))
	for name := range ratios {
		names = append(names, name)
	}
	// fixed counter order first, anything else after in name order
	order := map[string]int{}
	for i, name := range telemetry.CounterNames() {
		order[name] = i
	}
	sort.Slice(names, func(i, j int) bool {
		oi, iKnown := order[names[i]]
		oj, jKnown := order[names[j]]
		if iKnown != jKnown {
			return iKnown
		}
		if iKnown {
			return oi < oj
		}
		return names[i] < names[j]
	})
	values := make([]string, 0, len(names))
	for _, name := range names {
		values = append(values, table.FormatFloat(ratios[name], 3))
	}
	return []table.Field{table.Column("Counter", names), table.Column("Ratio (qemu/native)", values)}
}

func caveatsTableValues(s table.Source) []table.Field {
	return []table.Field{table.Column("Caveat", s.Compare.Caveats)}
}
