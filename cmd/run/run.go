// Package run is a subcommand of the root command. It runs a workload natively or
// under QEMU user-mode emulation, collects telemetry and diagnoses the run.
package run

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"tracelab/internal/artifact"
	"tracelab/internal/collect"
	"tracelab/internal/common"
	"tracelab/internal/diagnosis"
	"tracelab/internal/export"
	"tracelab/internal/progress"
	"tracelab/internal/qemu"
	"tracelab/internal/store"
	"tracelab/internal/table"
	"tracelab/internal/target"
	"tracelab/internal/telemetry"
	"tracelab/internal/util"
)

const cmdName = "run"

var examples = []string{
	fmt.Sprintf("  Native run:                       $ %s %s --json native.json -- ./bench 10", common.AppName, cmdName),
	fmt.Sprintf("  Emulated run:                     $ %s %s --qemu aarch64 --json qemu.json -- ./bench-arm64 10", common.AppName, cmdName),
	fmt.Sprintf("  Cold-cache run in strict mode:    $ %s %s --strict --scenario-label startup --cache-state cold -- ./app", common.AppName, cmdName),
	fmt.Sprintf("  Record the run in history:        $ %s %s --history tracelab.db -- ./bench 10", common.AppName, cmdName),
}

var Cmd = &cobra.Command{
	Use:           cmdName + " [flags] -- <command...>",
	Short:         "Run a workload and collect telemetry",
	Long:          "",
	Example:       strings.Join(examples, "\n"),
	RunE:          runCmd,
	PreRunE:       validateFlags,
	GroupID:       "primary",
	Args:          cobra.ArbitraryArgs,
	SilenceErrors: true,
}

// DefaultCollectorTimeout is the default replay timeout of each collector, in seconds.
const DefaultCollectorTimeout = 120

// cache states accepted by --cache-state
var cacheStates = []string{"cold", "warm"}

var (
	flagNative           bool
	flagQEMU             string
	flagStrict           bool
	flagJSON             string
	flagCollectorTimeout int
	flagScenarioLabel    string
	flagCacheState       string
	flagPromTextfile     string
	flagHistory          string
)

const (
	flagNativeName           = "native"
	flagQEMUName             = "qemu"
	flagStrictName           = "strict"
	flagCollectorTimeoutName = "collector-timeout-sec"
	flagScenarioLabelName    = "scenario-label"
	flagCacheStateName       = "cache-state"
	flagPromTextfileName     = "prom-textfile"
	flagHistoryName          = "history"
)

func init() {
	Cmd.Flags().BoolVar(&flagNative, flagNativeName, false, "")
	Cmd.Flags().StringVar(&flagQEMU, flagQEMUName, "", "")
	Cmd.Flags().BoolVar(&flagStrict, flagStrictName, false, "")
	Cmd.Flags().StringVar(&flagJSON, common.FlagJSONName, "", "")
	Cmd.Flags().IntVar(&flagCollectorTimeout, flagCollectorTimeoutName, DefaultCollectorTimeout, "")
	Cmd.Flags().StringVar(&flagScenarioLabel, flagScenarioLabelName, "", "")
	Cmd.Flags().StringVar(&flagCacheState, flagCacheStateName, "", "")
	Cmd.Flags().StringVar(&flagPromTextfile, flagPromTextfileName, "", "")
	Cmd.Flags().StringVar(&flagHistory, flagHistoryName, "", "")

	Cmd.SetUsageFunc(common.UsageFunc(getFlagGroups))
}

func getFlagGroups() []common.FlagGroup {
	var groups []common.FlagGroup
	flags := []common.Flag{
		{
			Name: flagNativeName,
			Help: "run the workload natively (default)",
		},
		{
			Name: flagQEMUName,
			Help: fmt.Sprintf("run the workload under qemu user-mode emulation for this arch, one of: %s", qemu.SupportedArchesText()),
		},
		{
			Name: flagStrictName,
			Help: "require Linux with perf and strace, and fail when any collector is not usable",
		},
		{
			Name: flagCollectorTimeoutName,
			Help: "timeout in seconds for each collector replay",
		},
	}
	groups = append(groups, common.FlagGroup{
		GroupName: "Options",
		Flags:     flags,
	})
	flags = []common.Flag{
		{
			Name: flagScenarioLabelName,
			Help: "scenario label recorded in run metadata, used to pair cold and warm runs",
		},
		{
			Name: flagCacheStateName,
			Help: fmt.Sprintf("cache state recorded in run metadata, one of: %s", strings.Join(cacheStates, ", ")),
		},
	}
	groups = append(groups, common.FlagGroup{
		GroupName: "Run Metadata Options",
		Flags:     flags,
	})
	flags = []common.Flag{
		{
			Name: common.FlagJSONName,
			Help: "write a run_result JSON document to this path",
		},
		{
			Name: flagPromTextfileName,
			Help: "write run metrics in Prometheus text format to this path",
		},
		{
			Name: flagHistoryName,
			Help: fmt.Sprintf("record the run in this history database, e.g., %s", store.DefaultPath),
		},
	}
	groups = append(groups, common.FlagGroup{
		GroupName: "Output Options",
		Flags:     flags,
	})
	return groups
}

// workloadArgs returns the arguments after "--".
func workloadArgs(cmd *cobra.Command, args []string) ([]string, error) {
	dash := cmd.ArgsLenAtDash()
	if dash < 0 {
		return nil, errors.New("missing workload separator '--'")
	}
	if dash >= len(args) {
		return nil, errors.New("missing workload command after '--'")
	}
	if dash > 0 {
		return nil, errors.Errorf("unexpected argument before '--': %s", args[0])
	}
	return args[dash:], nil
}

// resolveMode returns the execution mode and normalized qemu arch.
func resolveMode(native bool, qemuArch string, commandExists func(string) bool) (mode string, arch string, err error) {
	if qemuArch == "" {
		return telemetry.ModeNative, "", nil
	}
	if native {
		return "", "", errors.New("--native and --qemu are mutually exclusive")
	}
	arch, ok := qemu.NormalizeArch(qemuArch)
	if !ok {
		return "", "", errors.Errorf("unsupported qemu arch '%s' (supported: %s)", qemuArch, qemu.SupportedArchesText())
	}
	if !commandExists(qemu.Binary(arch)) {
		return "", "", errors.Errorf("missing %s in PATH", qemu.Binary(arch))
	}
	return telemetry.ModeQEMU, arch, nil
}

// checkStrictPrerequisites fails when strict mode cannot be satisfied before the run.
func checkStrictPrerequisites(commandExists func(string) bool) error {
	if !collect.IsLinux() {
		return errors.New("strict mode requires Linux collectors")
	}
	if !commandExists("perf") || !commandExists("strace") {
		return errors.New("strict mode requires perf and strace in PATH")
	}
	return nil
}

// collectorsUsable reports whether every collector is ok, as strict mode requires.
func collectorsUsable(workload telemetry.WorkloadOutcome, perf telemetry.PerfResult, strace telemetry.StraceResult) bool {
	return workload.ProcStatus.OK() && perf.Status.OK() && strace.Status.OK()
}

func validateFlags(cmd *cobra.Command, args []string) error {
	if _, err := workloadArgs(cmd, args); err != nil {
		return common.FlagValidationError(cmd, err.Error())
	}
	if flagCollectorTimeout <= 0 {
		return common.FlagValidationError(cmd, fmt.Sprintf("--%s must be > 0", flagCollectorTimeoutName))
	}
	if flagCacheState != "" && !slices.Contains(cacheStates, flagCacheState) {
		return common.FlagValidationError(cmd, fmt.Sprintf("--%s must be one of: %s", flagCacheStateName, strings.Join(cacheStates, ", ")))
	}
	t := target.NewLocalTarget()
	if _, _, err := resolveMode(flagNative, flagQEMU, t.CommandExists); err != nil {
		return common.FlagValidationError(cmd, err.Error())
	}
	if flagStrict {
		if err := checkStrictPrerequisites(t.CommandExists); err != nil {
			return common.FlagValidationError(cmd, err.Error())
		}
	}
	return common.ExpandPathFlags(cmd, &flagJSON, &flagPromTextfile, &flagHistory)
}

func runCmd(cmd *cobra.Command, args []string) error {
	argv, _ := workloadArgs(cmd, args)
	t := target.NewLocalTarget()
	mode, arch, _ := resolveMode(flagNative, flagQEMU, t.CommandExists)
	execArgs := argv
	if mode == telemetry.ModeQEMU {
		execArgs = append([]string{qemu.Binary(arch)}, argv...)
	}
	slog.Info("running workload", slog.String("mode", mode), slog.String("command", util.JoinRaw(execArgs)))

	stopSignals := common.HandleSignals()
	defer stopSignals()

	multiSpinner := progress.NewMultiSpinner()
	for _, label := range []string{"workload", "perf", "strace"} {
		if err := multiSpinner.AddSpinner(label); err != nil {
			return common.CommandError(cmd, err, common.ExitCodeFailure)
		}
	}
	multiSpinner.Start()
	_ = multiSpinner.Status("workload", "running")
	_ = multiSpinner.Status("perf", "waiting")
	_ = multiSpinner.Status("strace", "waiting")
	workload := collect.RunWorkload(cmd.Context(), execArgs)
	_ = multiSpinner.Status("workload", fmt.Sprintf("exit %d (%s)", workload.ExitCode, workload.ExitClassification))
	_ = multiSpinner.Status("perf", "replaying")
	perf := collect.PerfStat(t, execArgs, flagCollectorTimeout)
	_ = multiSpinner.Status("perf", perf.Status.ReasonOrStatus())
	_ = multiSpinner.Status("strace", "replaying")
	strace := collect.StraceSummary(t, execArgs, flagCollectorTimeout)
	_ = multiSpinner.Status("strace", strace.Status.ReasonOrStatus())
	multiSpinner.Finish()

	if flagStrict && !collectorsUsable(workload, perf, strace) {
		return common.CommandError(cmd, errors.New("strict mode failed because at least one collector was not usable"), common.ExitCodeFailure)
	}

	run := artifact.NewRunResult(artifact.RunInput{
		Mode:                mode,
		Arch:                arch,
		CollectorTimeoutSec: flagCollectorTimeout,
		Command:             util.JoinRaw(argv),
		ExecCommand:         util.JoinQuoted(execArgs),
		Strict:              flagStrict,
		Workload:            workload,
		Perf:                perf,
		Strace:              strace,
		Host:                collect.Host(t),
		ScenarioLabel:       flagScenarioLabel,
		CacheState:          flagCacheState,
		Diagnosis:           diagnosis.DiagnoseRun(workload, perf, strace, mode),
	})
	printRun(os.Stdout, run)

	if err := writeOutputs(run); err != nil {
		return common.CommandError(cmd, err, common.ExitCodeFailure)
	}
	if run.ExitCode != 0 {
		cmd.SilenceUsage = true
		return common.ExitCodeError{Code: run.ExitCode}
	}
	return nil
}

// writeOutputs writes the optional artifact, textfile and history row.
func writeOutputs(run artifact.RunResult) error {
	if flagJSON != "" {
		if err := artifact.Write(flagJSON, run); err != nil {
			return err
		}
		fmt.Printf("  JSON: %s\n", flagJSON)
	}
	if flagPromTextfile != "" {
		if err := export.WriteTextfile(flagPromTextfile, export.RunRegistry(run)); err != nil {
			return err
		}
		fmt.Printf("  Prometheus textfile: %s\n", flagPromTextfile)
	}
	if flagHistory != "" {
		s, err := store.Open(flagHistory)
		if err != nil {
			return err
		}
		defer s.Close()
		runID, err := s.Add(run, flagJSON)
		if err != nil {
			return err
		}
		fmt.Printf("  History: %s (run %s)\n", flagHistory, runID)
	}
	return nil
}

func printRun(w io.Writer, run artifact.RunResult) {
	fmt.Fprintln(w, "TraceLab Run")
	fmt.Fprintf(w, "  Mode: %s\n", run.Mode)
	if arch := run.Arch(); arch != "" {
		fmt.Fprintf(w, "  QEMU arch: %s\n", arch)
	}
	fmt.Fprintf(w, "  Command: %s\n", run.Command)
	fmt.Fprintf(w, "  Duration: %ss\n", table.FormatOptionalFloat(run.DurationSec, 6))
	fmt.Fprintf(w, "  Exit code: %d (%s)\n", run.ExitCode, run.Fallback.ExitClassification)
	fallback := run.Fallback
	if fallback.MaxRSSKB != nil {
		fmt.Fprintf(w, "  Fallback max RSS: %d kB\n", *fallback.MaxRSSKB)
	}
	if fallback.VoluntaryCtxtSwitches != nil || fallback.NonvoluntaryCtxtSwitches != nil {
		fmt.Fprintf(w, "  Fallback context switches: voluntary=%s, nonvoluntary=%s\n",
			table.FormatOptionalInt(fallback.VoluntaryCtxtSwitches),
			table.FormatOptionalInt(fallback.NonvoluntaryCtxtSwitches))
	}
	fmt.Fprintf(w, "  Collector perf_stat: %s\n", run.Collectors.PerfStat.Status)
	fmt.Fprintf(w, "  Collector strace_summary: %s\n", run.Collectors.StraceSummary.Status)
	fmt.Fprintf(w, "  Collector proc_status: %s\n", run.Collectors.ProcStatus.Status)
	if run.Diagnosis != nil {
		fmt.Fprintf(w, "  Diagnosis: %s (%s confidence)\n", run.Diagnosis.Label, run.Diagnosis.Confidence)
	}
}
