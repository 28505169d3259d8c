// Package history is a subcommand of the root command. It stores run results in a
// SQLite database, lists them and re-diagnoses them.
package history

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"tracelab/internal/artifact"
	"tracelab/internal/common"
	"tracelab/internal/diagnosis"
	"tracelab/internal/report"
	"tracelab/internal/store"
	"tracelab/internal/table"
	"tracelab/internal/telemetry"
)

const cmdName = "history"

var examples = []string{
	fmt.Sprintf("  Store run results:                $ %s %s add native.json qemu.json", common.AppName, cmdName),
	fmt.Sprintf("  List the latest qemu runs:        $ %s %s list --mode qemu --limit 10", common.AppName, cmdName),
	fmt.Sprintf("  Re-diagnose every stored run:     $ %s %s diagnose --workers 8", common.AppName, cmdName),
}

var Cmd = &cobra.Command{
	Use:           cmdName,
	Short:         "Store, list and re-diagnose run results",
	Long:          "",
	Example:       strings.Join(examples, "\n"),
	GroupID:       "other",
	Args:          cobra.NoArgs,
	SilenceErrors: true,
}

var AddCmd = &cobra.Command{
	Use:           "add <run.json>...",
	Short:         "Store run_result documents",
	RunE:          runAddCmd,
	Args:          cobra.MinimumNArgs(1),
	SilenceErrors: true,
}

var ListCmd = &cobra.Command{
	Use:           "list",
	Short:         "List stored runs, newest first",
	RunE:          runListCmd,
	PreRunE:       validateListFlags,
	Args:          cobra.NoArgs,
	SilenceErrors: true,
}

var DiagnoseCmd = &cobra.Command{
	Use:           "diagnose",
	Short:         "Re-diagnose stored runs and report label changes",
	RunE:          runDiagnoseCmd,
	PreRunE:       validateDiagnoseFlags,
	Args:          cobra.NoArgs,
	SilenceErrors: true,
}

// HistoryTableName is the title of the list output.
const HistoryTableName = "Run History"

var (
	flagDB      string
	flagMode    string
	flagLimit   int
	flagFormat  string
	flagWorkers int
)

const (
	flagDBName      = "db"
	flagModeName    = "mode"
	flagLimitName   = "limit"
	flagFormatName  = "format"
	flagWorkersName = "workers"
)

func init() {
	Cmd.PersistentFlags().StringVar(&flagDB, flagDBName, store.DefaultPath, "history database path")
	Cmd.AddCommand(AddCmd)
	Cmd.AddCommand(ListCmd)
	Cmd.AddCommand(DiagnoseCmd)

	ListCmd.Flags().StringVar(&flagMode, flagModeName, "", "")
	ListCmd.Flags().IntVar(&flagLimit, flagLimitName, 20, "")
	ListCmd.Flags().StringVar(&flagFormat, flagFormatName, report.FormatTxt, "")
	DiagnoseCmd.Flags().IntVar(&flagWorkers, flagWorkersName, runtime.NumCPU(), "")

	ListCmd.SetUsageFunc(common.UsageFunc(getListFlagGroups))
	DiagnoseCmd.SetUsageFunc(common.UsageFunc(getDiagnoseFlagGroups))
}

func getListFlagGroups() []common.FlagGroup {
	return []common.FlagGroup{
		{
			GroupName: "Options",
			Flags: []common.Flag{
				{Name: flagModeName, Help: fmt.Sprintf("only list runs of this mode: %s or %s", telemetry.ModeNative, telemetry.ModeQEMU)},
				{Name: flagLimitName, Help: "maximum number of runs to list, 0 for all"},
				{Name: flagFormatName, Help: fmt.Sprintf("output format: %s or %s", report.FormatTxt, report.FormatJson)},
			},
		},
	}
}

func getDiagnoseFlagGroups() []common.FlagGroup {
	return []common.FlagGroup{
		{
			GroupName: "Options",
			Flags: []common.Flag{
				{Name: flagWorkersName, Help: "number of concurrent diagnosis workers"},
			},
		},
	}
}

func validateListFlags(cmd *cobra.Command, args []string) error {
	if flagMode != "" {
		flagMode = telemetry.NormalizeMode(flagMode)
		if flagMode != telemetry.ModeNative && flagMode != telemetry.ModeQEMU {
			return common.FlagValidationError(cmd, fmt.Sprintf("--%s must be %s or %s", flagModeName, telemetry.ModeNative, telemetry.ModeQEMU))
		}
	}
	if flagLimit < 0 {
		return common.FlagValidationError(cmd, fmt.Sprintf("--%s must be >= 0", flagLimitName))
	}
	if !slices.Contains([]string{report.FormatTxt, report.FormatJson}, flagFormat) {
		return common.FlagValidationError(cmd, fmt.Sprintf("--%s must be %s or %s", flagFormatName, report.FormatTxt, report.FormatJson))
	}
	return nil
}

func validateDiagnoseFlags(cmd *cobra.Command, args []string) error {
	if flagWorkers <= 0 {
		return common.FlagValidationError(cmd, fmt.Sprintf("--%s must be > 0", flagWorkersName))
	}
	return nil
}

// openStore opens the database named by --db, expanding '~' in its path.
func openStore(cmd *cobra.Command) (*store.Store, error) {
	if err := common.ExpandPathFlags(cmd, &flagDB); err != nil {
		return nil, err
	}
	s, err := store.Open(flagDB)
	if err != nil {
		return nil, common.CommandError(cmd, err, common.ExitCodeFailure)
	}
	return s, nil
}

// addRuns stores each run_result document and returns the assigned run ids.
func addRuns(s *store.Store, paths []string) ([]string, error) {
	var ids []string
	for _, path := range paths {
		run, err := artifact.LoadRunResult(path)
		if err != nil {
			return ids, err
		}
		id, err := s.Add(run, path)
		if err != nil {
			return ids, err
		}
		slog.Info("stored run", slog.String("run_id", id), slog.String("path", path))
		ids = append(ids, id)
	}
	return ids, nil
}

func runAddCmd(cmd *cobra.Command, args []string) error {
	s, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer s.Close()
	ids, err := addRuns(s, args)
	for i, id := range ids {
		fmt.Printf("Stored %s as %s\n", args[i], id)
	}
	if err != nil {
		return common.CommandError(cmd, err, common.ExitCodeFailure)
	}
	return nil
}

// historyTable converts stored entries to a row table.
func historyTable(entries []store.Entry) table.TableValues {
	tv := table.TableValues{
		TableDefinition: table.TableDefinition{Name: HistoryTableName, HasRows: true, NoDataFound: "No stored runs."},
		Fields: []table.Field{
			{Name: "Run ID"},
			{Name: "Timestamp"},
			{Name: "Mode"},
			{Name: "Arch"},
			{Name: "Duration (s)"},
			{Name: "Exit"},
			{Name: "Diagnosis"},
			{Name: "Confidence"},
			{Name: "Command"},
		},
	}
	for _, e := range entries {
		arch := e.Arch
		if arch == "" {
			arch = table.NotAvailable
		}
		values := []string{e.RunID, e.TimestampUTC, e.Mode, arch, table.FormatOptionalFloat(e.DurationSec, 6),
			strconv.Itoa(e.ExitCode), e.Label, e.Confidence, e.Command}
		for i, v := range values {
			tv.Fields[i].Values = append(tv.Fields[i].Values, v)
		}
	}
	return tv
}

func runListCmd(cmd *cobra.Command, args []string) error {
	s, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer s.Close()
	entries, err := s.List(store.ListFilter{Mode: flagMode, Limit: flagLimit})
	if err != nil {
		return common.CommandError(cmd, err, common.ExitCodeFailure)
	}
	out, err := report.Create(flagFormat, []table.TableValues{historyTable(entries)})
	if err != nil {
		return common.CommandError(cmd, err, common.ExitCodeFailure)
	}
	fmt.Print(string(out))
	return nil
}

// labelChange is a stored run whose diagnosis label differs from a fresh one.
type labelChange struct {
	RunID    string
	Command  string
	Previous string
	Current  diagnosis.Result
}

// rediagnose diagnoses every run again and returns the runs whose label changed.
// Runs stored without a diagnosis are reported with an empty previous label.
func rediagnose(runs []artifact.RunResult, workers int) []labelChange {
	inputs := make([]diagnosis.Input, 0, len(runs))
	for _, run := range runs {
		inputs = append(inputs, run.Rebuild())
	}
	results := diagnosis.DiagnoseAll(inputs, workers)
	var changes []labelChange
	for i, run := range runs {
		previous := ""
		if run.Diagnosis != nil {
			previous = run.Diagnosis.Label
		}
		if previous != results[i].Label {
			changes = append(changes, labelChange{RunID: run.RunID, Command: run.Command, Previous: previous, Current: results[i]})
		}
	}
	return changes
}

func printChanges(w io.Writer, total int, changes []labelChange) {
	fmt.Fprintf(w, "Re-diagnosed %d run(s), %d label change(s)\n", total, len(changes))
	for _, c := range changes {
		previous := c.Previous
		if previous == "" {
			previous = "none"
		}
		fmt.Fprintf(w, "  %s: %s -> %s (%s confidence) %s\n", c.RunID, previous, c.Current.Label, c.Current.Confidence, c.Command)
	}
}

func runDiagnoseCmd(cmd *cobra.Command, args []string) error {
	s, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer s.Close()
	runs, err := s.All()
	if err != nil {
		return common.CommandError(cmd, err, common.ExitCodeFailure)
	}
	slog.Info("re-diagnosing stored runs", slog.Int("runs", len(runs)), slog.Int("workers", flagWorkers))
	printChanges(os.Stdout, len(runs), rediagnose(runs, flagWorkers))
	return nil
}
