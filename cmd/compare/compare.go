// Package compare is a subcommand of the root command. It compares a native
// cohort of run results with a qemu cohort.
package compare

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"tracelab/internal/artifact"
	"tracelab/internal/common"
	"tracelab/internal/compare"
	"tracelab/internal/export"
	"tracelab/internal/table"
	"tracelab/internal/telemetry"
)

const cmdName = "compare"

var examples = []string{
	fmt.Sprintf("  Compare two runs:                 $ %s %s native.json qemu.json", common.AppName, cmdName),
	fmt.Sprintf("  Compare cohorts:                  $ %s %s --native n1.json,n2.json,n3.json --qemu q1.json,q2.json,q3.json", common.AppName, cmdName),
	fmt.Sprintf("  Save the comparison:              $ %s %s --json compare.json native.json qemu.json", common.AppName, cmdName),
}

var Cmd = &cobra.Command{
	Use:           cmdName + " [flags] [<native_result.json> <qemu_result.json>]",
	Short:         "Compare native and qemu run results",
	Long:          "",
	Example:       strings.Join(examples, "\n"),
	RunE:          runCmd,
	PreRunE:       validateFlags,
	GroupID:       "primary",
	Args:          cobra.ArbitraryArgs,
	SilenceErrors: true,
}

var (
	flagNative       []string
	flagQEMU         []string
	flagJSON         string
	flagPromTextfile string
)

const (
	flagNativeName       = "native"
	flagQEMUName         = "qemu"
	flagPromTextfileName = "prom-textfile"
)

func init() {
	Cmd.Flags().StringSliceVar(&flagNative, flagNativeName, nil, "")
	Cmd.Flags().StringSliceVar(&flagQEMU, flagQEMUName, nil, "")
	Cmd.Flags().StringVar(&flagJSON, common.FlagJSONName, "", "")
	Cmd.Flags().StringVar(&flagPromTextfile, flagPromTextfileName, "", "")

	Cmd.SetUsageFunc(common.UsageFunc(getFlagGroups))
}

func getFlagGroups() []common.FlagGroup {
	var groups []common.FlagGroup
	groups = append(groups, common.FlagGroup{
		GroupName: "Cohort Options",
		Flags: []common.Flag{
			{
				Name: flagNativeName,
				Help: "native run_result file(s), repeatable or comma separated",
			},
			{
				Name: flagQEMUName,
				Help: "qemu run_result file(s), repeatable or comma separated",
			},
		},
	})
	groups = append(groups, common.FlagGroup{
		GroupName: "Output Options",
		Flags: []common.Flag{
			{
				Name: common.FlagJSONName,
				Help: "write a compare_result JSON document to this path",
			},
			{
				Name: flagPromTextfileName,
				Help: "write comparison metrics in Prometheus text format to this path",
			},
		},
	})
	return groups
}

func validateFlags(cmd *cobra.Command, args []string) error {
	listMode := len(flagNative) > 0 || len(flagQEMU) > 0
	if listMode && len(args) > 0 {
		return common.FlagValidationError(cmd, "use either positional mode (2 files) or --native/--qemu lists, not both")
	}
	if listMode && (len(flagNative) == 0 || len(flagQEMU) == 0) {
		return common.FlagValidationError(cmd, "both --native and --qemu inputs are required")
	}
	if !listMode && len(args) != 2 {
		return common.FlagValidationError(cmd, "expected either two positional files or explicit --native/--qemu lists")
	}
	return common.ExpandPathFlags(cmd, &flagJSON, &flagPromTextfile)
}

// cohorts holds the loaded samples of both modes with their source files.
type cohorts struct {
	native      []compare.Sample
	qemu        []compare.Sample
	nativeFiles []string
	qemuFiles   []string
}

func loadSample(path string) (compare.Sample, error) {
	run, err := artifact.LoadRunResult(path)
	if err != nil {
		return compare.Sample{}, err
	}
	return run.Sample(path), nil
}

// loadLists loads cohorts given as explicit lists. Modes are checked by compare.Compare.
func loadLists(nativePaths, qemuPaths []string) (cohorts, error) {
	var c cohorts
	for _, path := range nativePaths {
		sample, err := loadSample(path)
		if err != nil {
			return c, errors.WithMessage(err, "failed to parse native artifact")
		}
		c.native = append(c.native, sample)
	}
	for _, path := range qemuPaths {
		sample, err := loadSample(path)
		if err != nil {
			return c, errors.WithMessage(err, "failed to parse qemu artifact")
		}
		c.qemu = append(c.qemu, sample)
	}
	c.nativeFiles = nativePaths
	c.qemuFiles = qemuPaths
	return c, nil
}

// loadPair loads two positional files, one native and one qemu in either order.
func loadPair(first, second string) (cohorts, error) {
	a, err := loadSample(first)
	if err != nil {
		return cohorts{}, errors.WithMessage(err, "failed to parse artifact")
	}
	b, err := loadSample(second)
	if err != nil {
		return cohorts{}, errors.WithMessage(err, "failed to parse artifact")
	}
	modeA, modeB := telemetry.NormalizeMode(a.Mode), telemetry.NormalizeMode(b.Mode)
	switch {
	case modeA == telemetry.ModeNative && modeB == telemetry.ModeQEMU:
		return cohorts{native: []compare.Sample{a}, qemu: []compare.Sample{b}, nativeFiles: []string{first}, qemuFiles: []string{second}}, nil
	case modeA == telemetry.ModeQEMU && modeB == telemetry.ModeNative:
		return cohorts{native: []compare.Sample{b}, qemu: []compare.Sample{a}, nativeFiles: []string{second}, qemuFiles: []string{first}}, nil
	}
	return cohorts{}, errors.Wrap(compare.ErrValidation, "positional inputs must include exactly one native and one qemu artifact")
}

func runCmd(cmd *cobra.Command, args []string) error {
	var c cohorts
	var err error
	if len(args) == 2 {
		c, err = loadPair(args[0], args[1])
	} else {
		c, err = loadLists(flagNative, flagQEMU)
	}
	if err != nil {
		return common.CommandError(cmd, err, common.ExitCodeFailure)
	}
	result, err := compare.Compare(c.native, c.qemu)
	if err != nil {
		return common.CommandError(cmd, err, common.ExitCodeFailure)
	}
	doc := artifact.NewCompareResult(result, c.nativeFiles, c.qemuFiles)
	printComparison(os.Stdout, doc)
	if flagJSON != "" {
		if err := artifact.Write(flagJSON, doc); err != nil {
			return common.CommandError(cmd, err, common.ExitCodeFailure)
		}
		fmt.Printf("  JSON: %s\n", flagJSON)
	}
	if flagPromTextfile != "" {
		if err := export.WriteTextfile(flagPromTextfile, export.CompareRegistry(doc)); err != nil {
			return common.CommandError(cmd, err, common.ExitCodeFailure)
		}
		fmt.Printf("  Prometheus textfile: %s\n", flagPromTextfile)
	}
	return nil
}

func printComparison(w io.Writer, doc artifact.CompareResult) {
	c := doc.Comparison
	fmt.Fprintln(w, "TraceLab Compare")
	fmt.Fprintf(w, "  Native samples: %d\n", doc.Native.SampleCount)
	fmt.Fprintf(w, "  QEMU samples: %d\n", doc.QEMU.SampleCount)
	fmt.Fprintf(w, "  Native median duration: %.6fs\n", doc.Native.MedianDurationSec)
	fmt.Fprintf(w, "  QEMU median duration: %.6fs\n", doc.QEMU.MedianDurationSec)
	fmt.Fprintf(w, "  Delta duration (qemu-native): %.6fs\n", c.DeltaDurationSec)
	fmt.Fprintf(w, "  Slowdown factor (qemu/native): %.3fx\n", c.SlowdownFactorQEMUVsNative)
	fmt.Fprintf(w, "  Throughput ratio (qemu/native): %.3fx\n", c.ThroughputRatioQEMUVsNative)
	fmt.Fprintf(w, "  Throughput change vs native: %.2f%%\n", c.ThroughputChangePercentQEMUVsNative)
	fmt.Fprintf(w, "  Commands match: %s\n", table.FormatBool(doc.Inputs.CommandsMatch))
	arches := "unknown"
	if len(doc.QEMU.Arches) > 0 {
		arches = strings.Join(doc.QEMU.Arches, ", ")
	}
	fmt.Fprintf(w, "  QEMU arch(es): %s\n", arches)
	fmt.Fprintln(w, "  Counter ratios (qemu/native, caveated):")
	if len(c.PerfCounterRatioQEMUVsNative) == 0 {
		fmt.Fprintln(w, "    - unavailable")
	}
	for _, name := range slices.Sorted(maps.Keys(c.PerfCounterRatioQEMUVsNative)) {
		fmt.Fprintf(w, "    - %s: %.3fx\n", name, c.PerfCounterRatioQEMUVsNative[name])
	}
	fmt.Fprintln(w, "  Caveats:")
	for _, caveat := range doc.Caveats {
		fmt.Fprintf(w, "    - %s\n", caveat)
	}
}
