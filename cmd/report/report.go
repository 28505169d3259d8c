// Package report is a subcommand of the root command. It renders a run_result or
// compare_result document as tables.
package report

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"tracelab/internal/artifact"
	"tracelab/internal/common"
	"tracelab/internal/report"
	"tracelab/internal/table"
	"tracelab/internal/util"
)

const cmdName = "report"

var examples = []string{
	fmt.Sprintf("  Print a run report:               $ %s %s run.json", common.AppName, cmdName),
	fmt.Sprintf("  Spreadsheet of a comparison:      $ %s %s --format xlsx --output-file compare.xlsx compare.json", common.AppName, cmdName),
	fmt.Sprintf("  All formats:                      $ %s %s --format all --output-file out/run run.json", common.AppName, cmdName),
}

var Cmd = &cobra.Command{
	Use:           cmdName + " [flags] <result.json>",
	Short:         "Render a run or compare result as tables",
	Long:          "",
	Example:       strings.Join(examples, "\n"),
	RunE:          runCmd,
	PreRunE:       validateFlags,
	GroupID:       "primary",
	Args:          cobra.ArbitraryArgs,
	SilenceErrors: true,
}

var (
	flagFormat     []string
	flagOutputFile string
)

const (
	flagFormatName     = "format"
	flagOutputFileName = "output-file"
)

func init() {
	Cmd.Flags().StringSliceVar(&flagFormat, flagFormatName, []string{report.FormatTxt}, "")
	Cmd.Flags().StringVar(&flagOutputFile, flagOutputFileName, "", "")

	Cmd.SetUsageFunc(common.UsageFunc(getFlagGroups))
}

func getFlagGroups() []common.FlagGroup {
	return []common.FlagGroup{
		{
			GroupName: "Options",
			Flags: []common.Flag{
				{
					Name: flagFormatName,
					Help: fmt.Sprintf("choose output format(s) from: %s", strings.Join(append([]string{report.FormatAll}, report.FormatOptions...), ", ")),
				},
				{
					Name: flagOutputFileName,
					Help: "write the report to this file instead of stdout, required for xlsx. With several formats, the format's extension replaces the file's",
				},
			},
		},
	}
}

// selectedFormats expands "all" into every format.
func selectedFormats(formats []string) []string {
	if slices.Contains(formats, report.FormatAll) {
		return report.FormatOptions
	}
	var selected []string
	for _, format := range formats {
		selected = util.UniqueAppend(selected, format)
	}
	return selected
}

func validateFlags(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return common.FlagValidationError(cmd, "expected exactly one argument")
	}
	formatOptions := append([]string{report.FormatAll}, report.FormatOptions...)
	for _, format := range flagFormat {
		if !slices.Contains(formatOptions, format) {
			return common.FlagValidationError(cmd, fmt.Sprintf("format options are: %s", strings.Join(formatOptions, ", ")))
		}
	}
	if flagOutputFile == "" && slices.Contains(selectedFormats(flagFormat), report.FormatXlsx) {
		return common.FlagValidationError(cmd, fmt.Sprintf("xlsx format requires --%s", flagOutputFileName))
	}
	return common.ExpandPathFlags(cmd, &flagOutputFile)
}

// loadSource reads the document at path as a table source.
func loadSource(path string) (table.Source, error) {
	kind, err := artifact.Kind(path)
	if err != nil {
		return table.Source{}, err
	}
	switch kind {
	case artifact.KindRun:
		run, err := artifact.LoadRunResult(path)
		if err != nil {
			return table.Source{}, err
		}
		return table.Source{Run: &run}, nil
	case artifact.KindCompare:
		result, err := artifact.LoadCompareResult(path)
		if err != nil {
			return table.Source{}, err
		}
		return table.Source{Compare: &result}, nil
	}
	return table.Source{}, errors.Errorf("unsupported or missing kind field in %s", path)
}

// outputPath returns where the report in format is written. An empty path
// means stdout.
func outputPath(outputFile string, format string, formatCount int) string {
	if outputFile == "" || formatCount == 1 {
		return outputFile
	}
	return strings.TrimSuffix(outputFile, filepath.Ext(outputFile)) + report.FileExtension(format)
}

func runCmd(cmd *cobra.Command, args []string) error {
	source, err := loadSource(args[0])
	if err != nil {
		return common.CommandError(cmd, err, common.ExitCodeFailure)
	}
	tables := report.Tables(source)
	formats := selectedFormats(flagFormat)
	var written []string
	for _, format := range formats {
		reportBytes, err := report.Create(format, tables)
		if err != nil {
			return common.CommandError(cmd, errors.Wrap(err, "failed to create report"), common.ExitCodeFailure)
		}
		path := outputPath(flagOutputFile, format, len(formats))
		if path == "" {
			fmt.Print(string(reportBytes))
			continue
		}
		if err := util.WriteFile(path, reportBytes); err != nil {
			return common.CommandError(cmd, errors.Wrap(err, "failed to write report"), common.ExitCodeFailure)
		}
		slog.Info("report written", slog.String("format", format), slog.String("path", path))
		written = append(written, path)
	}
	if len(written) > 0 {
		fmt.Println("Report files:")
	}
	for _, path := range written {
		fmt.Printf("  %s\n", path)
	}
	return nil
}
