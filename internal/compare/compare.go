// Package compare aggregates a native cohort and an emulated cohort of runs
// into median based slowdown and throughput figures with validity caveats.
package compare

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"slices"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	mstats "github.com/montanaflynn/stats"
	"github.com/pkg/errors"

	"tracelab/internal/qemu"
	"tracelab/internal/telemetry"
)

// ErrValidation is wrapped by every hard comparison failure.
var ErrValidation = errors.New("comparison validation failed")

// Recommended protocol: one warm-up run followed by this many measured runs per mode.
const (
	RecommendedWarmupRuns   = 1
	RecommendedMeasuredRuns = 5
)

// Sample is the subset of a run artifact used for comparison.
type Sample struct {
	Path            string
	Mode            string
	Command         string
	DurationSeconds *float64
	Counters        telemetry.CounterSet
	PerfStatus      string
	StraceStatus    string
	ProcStatus      string
	Arch            string // raw qemu.arch, empty when absent
}

func (s Sample) hasNonOKCollector() bool {
	return s.PerfStatus != telemetry.StatusOK || s.StraceStatus != telemetry.StatusOK || s.ProcStatus != telemetry.StatusOK
}

// Result holds the comparison figures.
type Result struct {
	NativeSampleCount    int
	EmulatedSampleCount  int
	NativeMedian         float64
	EmulatedMedian       float64
	Delta                float64
	SlowdownFactor       float64
	ThroughputRatio      float64
	ThroughputChangePct  float64
	CounterRatios        map[string]float64
	CommandsMatch        bool
	BaselineCommand      string
	Arches               []string
	Caveats              []string
	UsesRecommendedCount bool
}

// Median returns the median of values: the middle element for an odd count,
// the mean of the two central elements for an even count.
func Median(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, errors.New("median of empty set")
	}
	return mstats.Median(values)
}

// ValidateSample checks that a sample carries the required fields and the mode
// expected for its cohort. For emulated samples Arch is replaced by its
// normalized selector.
func ValidateSample(sample *Sample, expectedMode string) error {
	if sample.Mode == "" || sample.Command == "" || sample.DurationSeconds == nil {
		return errors.Wrap(ErrValidation, "artifact missing one of required fields: mode, command, duration_sec")
	}
	mode := telemetry.NormalizeMode(sample.Mode)
	if expectedMode != "" && mode != telemetry.NormalizeMode(expectedMode) {
		return errors.Wrapf(ErrValidation, "expected mode '%s' but got '%s'", expectedMode, sample.Mode)
	}
	if mode != telemetry.ModeQEMU {
		return nil
	}
	if strings.TrimSpace(sample.Arch) == "" {
		return errors.Wrap(ErrValidation, "qemu run artifact missing qemu.arch")
	}
	arch, ok := qemu.NormalizeArch(sample.Arch)
	if !ok {
		return errors.Wrapf(ErrValidation, "unsupported qemu arch '%s' in artifact; supported: %s", sample.Arch, qemu.SupportedArchesText())
	}
	sample.Arch = arch
	return nil
}

// Compare validates both cohorts and computes the comparison.
func Compare(native, emulated []Sample) (Result, error) {
	if len(native) == 0 || len(emulated) == 0 {
		return Result{}, errors.Wrap(ErrValidation, "both native and qemu cohorts need at least one sample")
	}
	native = slices.Clone(native)
	emulated = slices.Clone(emulated)
	for i := range native {
		if err := ValidateSample(&native[i], telemetry.ModeNative); err != nil {
			return Result{}, errors.WithMessage(err, native[i].Path)
		}
	}
	for i := range emulated {
		if err := ValidateSample(&emulated[i], telemetry.ModeQEMU); err != nil {
			return Result{}, errors.WithMessage(err, emulated[i].Path)
		}
	}

	nativeMedian, err := Median(durations(native))
	if err != nil {
		return Result{}, err
	}
	emulatedMedian, err := Median(durations(emulated))
	if err != nil {
		return Result{}, err
	}
	if nativeMedian <= 0 || emulatedMedian <= 0 {
		return Result{}, errors.Wrap(ErrValidation, "duration medians must be positive")
	}

	r := Result{
		NativeSampleCount:   len(native),
		EmulatedSampleCount: len(emulated),
		NativeMedian:        nativeMedian,
		EmulatedMedian:      emulatedMedian,
		Delta:               emulatedMedian - nativeMedian,
		SlowdownFactor:      emulatedMedian / nativeMedian,
		ThroughputRatio:     nativeMedian / emulatedMedian,
		BaselineCommand:     native[0].Command,
		CounterRatios:       counterRatios(native, emulated),
	}
	r.ThroughputChangePct = (r.ThroughputRatio - 1) * 100
	r.UsesRecommendedCount = len(native) == RecommendedMeasuredRuns && len(emulated) == RecommendedMeasuredRuns
	r.CommandsMatch = commandsMatch(r.BaselineCommand, native, emulated)

	arches := mapset.NewThreadUnsafeSet[string]()
	for _, s := range emulated {
		arches.Add(s.Arch)
	}
	r.Arches = arches.ToSlice()
	slices.Sort(r.Arches)

	r.Caveats = caveats(r, native, emulated)
	return r, nil
}

func durations(samples []Sample) []float64 {
	values := make([]float64, 0, len(samples))
	for _, s := range samples {
		values = append(values, *s.DurationSeconds)
	}
	return values
}

func commandsMatch(baseline string, cohorts ...[]Sample) bool {
	for _, cohort := range cohorts {
		for _, s := range cohort {
			if s.Command != baseline {
				return false
			}
		}
	}
	return true
}

func counterValues(samples []Sample, counter string) []float64 {
	var values []float64
	for _, s := range samples {
		if v, ok := s.Counters.Get(counter); ok {
			values = append(values, v)
		}
	}
	return values
}

func counterRatios(native, emulated []Sample) map[string]float64 {
	ratios := make(map[string]float64)
	for _, counter := range telemetry.CounterNames() {
		nativeValues := counterValues(native, counter)
		emulatedValues := counterValues(emulated, counter)
		if len(nativeValues) == 0 || len(emulatedValues) == 0 {
			continue
		}
		nativeMedian, err := Median(nativeValues)
		if err != nil || nativeMedian <= 0 {
			continue
		}
		emulatedMedian, err := Median(emulatedValues)
		if err != nil {
			continue
		}
		ratios[counter] = emulatedMedian / nativeMedian
	}
	return ratios
}

func caveats(r Result, native, emulated []Sample) []string {
	list := []string{"Wall-clock and throughput are primary metrics for native vs QEMU comparison."}
	if !r.UsesRecommendedCount {
		list = append(list, fmt.Sprintf("Protocol note: the measurement protocol recommends %d warm-up plus %d measured runs per mode; provided native=%d, qemu=%d.",
			RecommendedWarmupRuns, RecommendedMeasuredRuns, len(native), len(emulated)))
	}
	if slices.ContainsFunc(emulated, func(s Sample) bool { return s.PerfStatus == telemetry.StatusOK }) {
		list = append(list, "Perf counters in QEMU mode are emulation-affected and not directly equivalent to native counters.")
	}
	if !r.CommandsMatch {
		list = append(list, "Input artifacts do not share an identical command string.")
	}
	if slices.ContainsFunc(native, Sample.hasNonOKCollector) || slices.ContainsFunc(emulated, Sample.hasNonOKCollector) {
		list = append(list, "At least one collector was not 'ok' in the compared artifacts.")
	}
	if len(r.Arches) > 1 {
		list = append(list, "Compared QEMU samples include multiple target architectures: "+strings.Join(r.Arches, ", ")+".")
	}
	return list
}
