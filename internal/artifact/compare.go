package artifact

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import "tracelab/internal/compare"

// CompareResult is the compare_result document.
type CompareResult struct {
	Header
	Inputs     CompareInputs `json:"inputs"`
	Native     CohortSummary `json:"native"`
	QEMU       CohortSummary `json:"qemu"`
	Comparison Comparison    `json:"comparison"`
	Protocol   Protocol      `json:"protocol"`
	Caveats    []string      `json:"caveats"`
}

// CompareInputs records which run documents were compared.
type CompareInputs struct {
	NativeFiles   []string `json:"native_files"`
	QEMUFiles     []string `json:"qemu_files"`
	CommandsMatch bool     `json:"commands_match"`
	Command       string   `json:"command"`
}

// CohortSummary summarizes one cohort.
type CohortSummary struct {
	SampleCount       int      `json:"sample_count"`
	MedianDurationSec float64  `json:"median_duration_sec"`
	Arches            []string `json:"arches,omitempty"`
}

// Comparison holds the derived figures.
type Comparison struct {
	DeltaDurationSec                    float64            `json:"delta_duration_sec"`
	SlowdownFactorQEMUVsNative          float64            `json:"slowdown_factor_qemu_vs_native"`
	ThroughputRatioQEMUVsNative         float64            `json:"throughput_ratio_qemu_vs_native"`
	ThroughputChangePercentQEMUVsNative float64            `json:"throughput_change_percent_qemu_vs_native"`
	PerfCounterRatioQEMUVsNative        map[string]float64 `json:"perf_counter_ratio_qemu_vs_native"`
}

// Protocol describes the recommended sampling protocol and whether it was met.
type Protocol struct {
	RecommendedWarmupRuns      int  `json:"recommended_warmup_runs"`
	RecommendedMeasuredRuns    int  `json:"recommended_measured_runs"`
	ProvidedNativeSamples      int  `json:"provided_native_samples"`
	ProvidedQEMUSamples        int  `json:"provided_qemu_samples"`
	UsesRecommendedSampleCount bool `json:"uses_recommended_sample_count"`
}

// NewCompareResult builds a compare_result document.
func NewCompareResult(result compare.Result, nativeFiles, qemuFiles []string) CompareResult {
	arches := result.Arches
	if arches == nil {
		arches = []string{}
	}
	return CompareResult{
		Header: NewHeader(KindCompare),
		Inputs: CompareInputs{
			NativeFiles:   nativeFiles,
			QEMUFiles:     qemuFiles,
			CommandsMatch: result.CommandsMatch,
			Command:       result.BaselineCommand,
		},
		Native: CohortSummary{
			SampleCount:       result.NativeSampleCount,
			MedianDurationSec: result.NativeMedian,
		},
		QEMU: CohortSummary{
			SampleCount:       result.EmulatedSampleCount,
			MedianDurationSec: result.EmulatedMedian,
			Arches:            arches,
		},
		Comparison: Comparison{
			DeltaDurationSec:                    result.Delta,
			SlowdownFactorQEMUVsNative:          result.SlowdownFactor,
			ThroughputRatioQEMUVsNative:         result.ThroughputRatio,
			ThroughputChangePercentQEMUVsNative: result.ThroughputChangePct,
			PerfCounterRatioQEMUVsNative:        result.CounterRatios,
		},
		Protocol: Protocol{
			RecommendedWarmupRuns:      compare.RecommendedWarmupRuns,
			RecommendedMeasuredRuns:    compare.RecommendedMeasuredRuns,
			ProvidedNativeSamples:      result.NativeSampleCount,
			ProvidedQEMUSamples:        result.EmulatedSampleCount,
			UsesRecommendedSampleCount: result.UsesRecommendedCount,
		},
		Caveats: result.Caveats,
	}
}

// LoadCompareResult reads a compare_result document.
func LoadCompareResult(path string) (CompareResult, error) {
	var r CompareResult
	err := load(path, KindCompare, &r)
	return r, err
}
