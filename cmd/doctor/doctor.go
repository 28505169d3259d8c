// Package doctor is a subcommand of the root command. It checks the host for the
// tools used by the baseline collection workflow.
package doctor

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"tracelab/internal/artifact"
	"tracelab/internal/collect"
	"tracelab/internal/common"
	"tracelab/internal/doctor"
	"tracelab/internal/target"
)

const cmdName = "doctor"

// exitMissingRequired is the exit code when a required tool is missing.
const exitMissingRequired = 2

var examples = []string{
	fmt.Sprintf("  Check the host:                 $ %s %s", common.AppName, cmdName),
	fmt.Sprintf("  Check and save the result:      $ %s %s --json doctor.json", common.AppName, cmdName),
}

var Cmd = &cobra.Command{
	Use:           cmdName,
	Short:         "Check the host for required and optional tools",
	Long:          "",
	Example:       strings.Join(examples, "\n"),
	RunE:          runCmd,
	PreRunE:       validateFlags,
	GroupID:       "primary",
	Args:          cobra.NoArgs,
	SilenceErrors: true,
}

var (
	flagJSON string
)

func init() {
	Cmd.Flags().StringVar(&flagJSON, common.FlagJSONName, "", "")
	Cmd.SetUsageFunc(common.UsageFunc(getFlagGroups))
}

func getFlagGroups() []common.FlagGroup {
	return []common.FlagGroup{
		{
			GroupName: "Options",
			Flags: []common.Flag{
				{
					Name: common.FlagJSONName,
					Help: "write a doctor_result JSON document to this path",
				},
			},
		},
	}
}

func validateFlags(cmd *cobra.Command, args []string) error {
	return common.ExpandPathFlags(cmd, &flagJSON)
}

func runCmd(cmd *cobra.Command, args []string) error {
	t := target.NewLocalTarget()
	report := doctor.Probe(t)
	host := collect.Host(t)
	printReport(os.Stdout, host, report)
	if flagJSON != "" {
		if err := artifact.Write(flagJSON, report.Artifact(host)); err != nil {
			return common.CommandError(cmd, err, common.ExitCodeFailure)
		}
		fmt.Printf("Doctor JSON written to %s\n", flagJSON)
	}
	if report.MissingRequired {
		slog.Warn("required tools missing")
		cmd.SilenceUsage = true
		return common.ExitCodeError{Code: exitMissingRequired}
	}
	return nil
}

func printReport(w io.Writer, host artifact.Host, report doctor.Report) {
	fmt.Fprintln(w, "TraceLab Doctor")
	fmt.Fprintf(w, "Host: %s (%s)\n\n", host.OS, host.Arch)
	fmt.Fprintln(w, "Required checks:")
	for _, c := range report.Required {
		fmt.Fprintf(w, "  %s: %s\n", c.Label, c.State)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Optional checks:")
	for _, c := range report.Optional {
		fmt.Fprintf(w, "  %s: %s\n", c.Label, c.State)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Result: %s\n", report.Summary())
}
