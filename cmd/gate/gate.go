// Package gate is a subcommand of the root command. It checks compare and run
// results against regression thresholds.
package gate

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"tracelab/internal/artifact"
	"tracelab/internal/common"
	"tracelab/internal/gate"
)

const cmdName = "gate"

// exitFail is the exit code of a failing gate.
const exitFail = 1

var examples = []string{
	fmt.Sprintf("  Gate a comparison:                $ %s %s --config thresholds.yaml --compare compare.json", common.AppName, cmdName),
	fmt.Sprintf("  Include syscall share checks:     $ %s %s --config thresholds.yaml --compare compare.json --native-run n1.json --qemu-run q1.json", common.AppName, cmdName),
	fmt.Sprintf("  Include the cold/warm guard:      $ %s %s --config thresholds.yaml --compare compare.json --cold-run cold.json --warm-run warm.json", common.AppName, cmdName),
}

var Cmd = &cobra.Command{
	Use:           cmdName,
	Short:         "Check results against regression thresholds",
	Long:          "",
	Example:       strings.Join(examples, "\n"),
	RunE:          runCmd,
	PreRunE:       validateFlags,
	GroupID:       "other",
	Args:          cobra.NoArgs,
	SilenceErrors: true,
}

var (
	flagConfig    string
	flagCompare   string
	flagNativeRun []string
	flagQEMURun   []string
	flagColdRun   string
	flagWarmRun   string
)

const (
	flagConfigName    = "config"
	flagCompareName   = "compare"
	flagNativeRunName = "native-run"
	flagQEMURunName   = "qemu-run"
	flagColdRunName   = "cold-run"
	flagWarmRunName   = "warm-run"
)

func init() {
	Cmd.Flags().StringVar(&flagConfig, flagConfigName, "", "")
	Cmd.Flags().StringVar(&flagCompare, flagCompareName, "", "")
	Cmd.Flags().StringSliceVar(&flagNativeRun, flagNativeRunName, nil, "")
	Cmd.Flags().StringSliceVar(&flagQEMURun, flagQEMURunName, nil, "")
	Cmd.Flags().StringVar(&flagColdRun, flagColdRunName, "", "")
	Cmd.Flags().StringVar(&flagWarmRun, flagWarmRunName, "", "")

	Cmd.SetUsageFunc(common.UsageFunc(getFlagGroups))
}

func getFlagGroups() []common.FlagGroup {
	var groups []common.FlagGroup
	groups = append(groups, common.FlagGroup{
		GroupName: "Options",
		Flags: []common.Flag{
			{
				Name: flagConfigName,
				Help: "threshold document, YAML or JSON (required)",
			},
			{
				Name: flagCompareName,
				Help: "compare_result JSON path (required)",
			},
			{
				Name: flagNativeRunName,
				Help: "native run_result JSON path(s) for the syscall share check",
			},
			{
				Name: flagQEMURunName,
				Help: "qemu run_result JSON path(s) for the syscall share check",
			},
		},
	})
	groups = append(groups, common.FlagGroup{
		GroupName: "Cold/Warm Options",
		Flags: []common.Flag{
			{
				Name: flagColdRunName,
				Help: "cold-cache run_result JSON path",
			},
			{
				Name: flagWarmRunName,
				Help: "warm-cache run_result JSON path",
			},
		},
	})
	return groups
}

func validateFlags(cmd *cobra.Command, args []string) error {
	if flagConfig == "" {
		return common.FlagValidationError(cmd, fmt.Sprintf("--%s is required", flagConfigName))
	}
	if flagCompare == "" {
		return common.FlagValidationError(cmd, fmt.Sprintf("--%s is required", flagCompareName))
	}
	return common.ExpandPathFlags(cmd, &flagConfig, &flagCompare, &flagColdRun, &flagWarmRun)
}

func loadRunFiles(paths []string) ([]gate.RunFile, error) {
	var files []gate.RunFile
	for _, path := range paths {
		run, err := artifact.LoadRunResult(path)
		if err != nil {
			return nil, err
		}
		files = append(files, gate.RunFile{Path: path, Run: run})
	}
	return files, nil
}

func loadOptionalRunFile(path string) (*gate.RunFile, error) {
	if path == "" {
		return nil, nil
	}
	files, err := loadRunFiles([]string{path})
	if err != nil {
		return nil, err
	}
	return &files[0], nil
}

func loadInput() (gate.Input, error) {
	var in gate.Input
	var err error
	if in.Compare, err = artifact.LoadCompareResult(flagCompare); err != nil {
		return in, err
	}
	if in.NativeRuns, err = loadRunFiles(flagNativeRun); err != nil {
		return in, err
	}
	if in.QEMURuns, err = loadRunFiles(flagQEMURun); err != nil {
		return in, err
	}
	if in.ColdRun, err = loadOptionalRunFile(flagColdRun); err != nil {
		return in, err
	}
	if in.WarmRun, err = loadOptionalRunFile(flagWarmRun); err != nil {
		return in, err
	}
	return in, nil
}

func runCmd(cmd *cobra.Command, args []string) error {
	thresholds, err := gate.LoadThresholds(flagConfig)
	if err != nil {
		return common.CommandError(cmd, err, common.ExitCodeFailure)
	}
	in, err := loadInput()
	if err != nil {
		return common.CommandError(cmd, err, common.ExitCodeFailure)
	}
	result := gate.Evaluate(thresholds, in)
	result.Print(os.Stdout, os.Stderr)
	if !result.Passed() {
		slog.Warn("regression gate failed", slog.Int("failures", len(result.Failures)))
		cmd.SilenceUsage = true
		return common.ExitCodeError{Code: exitFail}
	}
	slog.Info("regression gate passed", slog.Int("warnings", len(result.Warnings)))
	return nil
}
