// Package inspect is a subcommand of the root command. It reports ELF metadata of
// a workload binary and the qemu selectors that can run it.
package inspect

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"tracelab/internal/artifact"
	"tracelab/internal/common"
	"tracelab/internal/inspect"
	"tracelab/internal/target"
)

const cmdName = "inspect"

var examples = []string{
	fmt.Sprintf("  Inspect a binary:                $ %s %s ./bench", common.AppName, cmdName),
	fmt.Sprintf("  Inspect and save the result:     $ %s %s --json inspect.json ./bench", common.AppName, cmdName),
}

var Cmd = &cobra.Command{
	Use:           cmdName + " [flags] <binary>",
	Short:         "Inspect a workload binary",
	Long:          "",
	Example:       strings.Join(examples, "\n"),
	RunE:          runCmd,
	PreRunE:       validateFlags,
	GroupID:       "primary",
	Args:          cobra.ArbitraryArgs,
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
					Help: "write an inspect_result JSON document to this path",
				},
			},
		},
	}
}

func validateFlags(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return common.FlagValidationError(cmd, "missing <binary>")
	}
	if len(args) > 1 {
		return common.FlagValidationError(cmd, "expected one binary path")
	}
	return common.ExpandPathFlags(cmd, &flagJSON)
}

func runCmd(cmd *cobra.Command, args []string) error {
	result, err := inspect.Binary(target.NewLocalTarget(), args[0])
	if err != nil {
		return common.CommandError(cmd, err, common.ExitCodeFailure)
	}
	printResult(os.Stdout, result)
	if flagJSON != "" {
		if err := artifact.Write(flagJSON, result); err != nil {
			return common.CommandError(cmd, err, common.ExitCodeFailure)
		}
		fmt.Printf("  JSON: %s\n", flagJSON)
	}
	return nil
}

func printResult(w io.Writer, r artifact.InspectResult) {
	fmt.Fprintln(w, "TraceLab Inspect")
	fmt.Fprintf(w, "  Binary: %s\n", r.Binary)
	fmt.Fprintf(w, "  ISA/arch: %s\n", r.ISAArch)
	fmt.Fprintf(w, "  ABI: %s\n", r.ABI)
	fmt.Fprintf(w, "  Linkage: %s\n", r.Linkage)
	fmt.Fprintf(w, "  Symbols: %s\n", r.Symbols)
	fmt.Fprintf(w, "  PLT/GOT: %s\n", r.PLTGOT)
	fmt.Fprintf(w, "  Disassembler: %s\n", r.Disassembler)
	fmt.Fprintf(w, "  QEMU selectors (supported): %s\n", strings.Join(r.QEMUSupportedSelectors, ", "))
	hints := "none"
	if len(r.QEMUSelectorHints) > 0 {
		hints = strings.Join(r.QEMUSelectorHints, ", ")
	}
	fmt.Fprintf(w, "  QEMU selector hints: %s\n", hints)
	if len(r.Notes) > 0 {
		fmt.Fprintln(w, "  Notes:")
		for _, note := range r.Notes {
			fmt.Fprintf(w, "    - %s\n", note)
		}
	}
}
