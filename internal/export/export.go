// Package export writes run and compare results as Prometheus text-format
// files for the node exporter textfile collector.
package export

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"log/slog"
	"math"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"tracelab/internal/artifact"
	"tracelab/internal/derived"
	"tracelab/internal/telemetry"
	"tracelab/internal/util"
)

const promMetricPrefix = "tracelab_"

func newGaugeVec(registry *prometheus.Registry, name string, help string, labels ...string) *prometheus.GaugeVec {
	gauge := prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: promMetricPrefix + name, Help: help}, labels)
	registry.MustRegister(gauge)
	return gauge
}

func setIfFinite(g prometheus.Gauge, v float64) {
	if !math.IsNaN(v) && !math.IsInf(v, 0) {
		g.Set(v)
	}
}

// RunRegistry builds a registry holding the gauges of one run.
func RunRegistry(run artifact.RunResult) *prometheus.Registry {
	registry := prometheus.NewRegistry()
	runLabels := []string{"mode", "arch", "command"}
	labelValues := []string{run.Mode, run.Arch(), run.Command}

	duration := newGaugeVec(registry, "run_duration_seconds", "Wall time of the workload run", runLabels...)
	if run.DurationSec != nil {
		setIfFinite(duration.WithLabelValues(labelValues...), *run.DurationSec)
	}
	newGaugeVec(registry, "run_exit_code", "Exit code of the workload run", runLabels...).
		WithLabelValues(labelValues...).Set(float64(run.ExitCode))

	if run.Fallback.MaxRSSKB != nil {
		newGaugeVec(registry, "run_max_rss_kb", "Maximum resident set size sampled from /proc", runLabels...).
			WithLabelValues(labelValues...).Set(float64(*run.Fallback.MaxRSSKB))
	}

	collectorOK := newGaugeVec(registry, "run_collector_ok", "1 when the collector produced usable data", append(runLabels, "collector")...)
	for collector, status := range map[string]string{
		"perf_stat":      run.Collectors.PerfStat.Status,
		"strace_summary": run.Collectors.StraceSummary.Status,
		"proc_status":    run.Collectors.ProcStatus.Status,
	} {
		v := 0.0
		if status == telemetry.StatusOK {
			v = 1
		}
		collectorOK.WithLabelValues(append(labelValues, collector)...).Set(v)
	}

	counters := newGaugeVec(registry, "run_perf_counter", "Perf counter value of the replayed run", append(runLabels, "counter")...)
	for _, name := range telemetry.CounterNames() {
		if v, ok := run.Collectors.PerfStat.Counters.Get(name); ok {
			setIfFinite(counters.WithLabelValues(append(labelValues, name)...), v)
		}
	}

	in := run.Rebuild()
	metrics := derived.Compute(in.Workload, in.Perf, in.Strace)
	derivedGauge := newGaugeVec(registry, "run_derived_metric", "Derived metric used by the diagnosis rules", append(runLabels, "metric")...)
	for _, name := range metrics.Names() {
		v, _ := metrics.Value(name)
		setIfFinite(derivedGauge.WithLabelValues(append(labelValues, name)...), v)
	}

	if run.Diagnosis != nil {
		newGaugeVec(registry, "run_diagnosis", "Diagnosis label of the run", append(runLabels, "label", "confidence")...).
			WithLabelValues(append(labelValues, run.Diagnosis.Label, run.Diagnosis.Confidence)...).Set(1)
	}
	return registry
}

// CompareRegistry builds a registry holding the gauges of one comparison.
func CompareRegistry(result artifact.CompareResult) *prometheus.Registry {
	registry := prometheus.NewRegistry()
	command := []string{"command"}
	commandValue := []string{result.Inputs.Command}

	samples := newGaugeVec(registry, "compare_samples", "Number of runs in the cohort", "command", "cohort")
	samples.WithLabelValues(result.Inputs.Command, telemetry.ModeNative).Set(float64(result.Native.SampleCount))
	samples.WithLabelValues(result.Inputs.Command, telemetry.ModeQEMU).Set(float64(result.QEMU.SampleCount))

	median := newGaugeVec(registry, "compare_median_duration_seconds", "Median wall time of the cohort", "command", "cohort")
	setIfFinite(median.WithLabelValues(result.Inputs.Command, telemetry.ModeNative), result.Native.MedianDurationSec)
	setIfFinite(median.WithLabelValues(result.Inputs.Command, telemetry.ModeQEMU), result.QEMU.MedianDurationSec)

	c := result.Comparison
	setIfFinite(newGaugeVec(registry, "compare_slowdown_factor", "QEMU median duration divided by native median duration", command...).
		WithLabelValues(commandValue...), c.SlowdownFactorQEMUVsNative)
	setIfFinite(newGaugeVec(registry, "compare_throughput_ratio", "Native median duration divided by QEMU median duration", command...).
		WithLabelValues(commandValue...), c.ThroughputRatioQEMUVsNative)
	setIfFinite(newGaugeVec(registry, "compare_throughput_change_percent", "Throughput change of QEMU relative to native", command...).
		WithLabelValues(commandValue...), c.ThroughputChangePercentQEMUVsNative)

	ratios := newGaugeVec(registry, "compare_counter_ratio", "QEMU to native ratio of the counter medians", "command", "counter")
	for name, v := range c.PerfCounterRatioQEMUVsNative {
		setIfFinite(ratios.WithLabelValues(result.Inputs.Command, name), v)
	}

	match := 0.0
	if result.Inputs.CommandsMatch {
		match = 1
	}
	newGaugeVec(registry, "compare_commands_match", "1 when every compared run used the same command", command...).
		WithLabelValues(commandValue...).Set(match)
	return registry
}

// WriteTextfile writes the gathered registry to path.
func WriteTextfile(path string, registry *prometheus.Registry) error {
	if err := util.CreateParentDirectory(path); err != nil {
		return errors.Wrapf(err, "failed to create directory for %s", path)
	}
	if err := prometheus.WriteToTextfile(path, registry); err != nil {
		return errors.Wrapf(err, "failed to write prometheus textfile %s", path)
	}
	slog.Debug("wrote prometheus textfile", slog.String("path", path))
	return nil
}
