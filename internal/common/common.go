// Package common defines data structures and functions that are used by multiple
// application commands, e.g., run, compare, gate, history.
package common

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"tracelab/internal/util"
)

// AppName is the name of the application, also used for the log file name.
const AppName = "tracelab"

// AppContext represents the application context that can be accessed from all commands.
type AppContext struct {
	Timestamp   string // Timestamp is the application startup time.
	LogFilePath string // LogFilePath is the path to the log file, empty when logging elsewhere.
	Version     string // Version is the version of the application.
	Debug       bool   // Debug is true when debug logging was requested.
}

type Flag struct {
	Name string
	Help string
}
type FlagGroup struct {
	GroupName string
	Flags     []Flag
}

// FlagJSONName is the flag that selects an artifact output path. Several
// commands share it.
const FlagJSONName = "json"

// ExitCodeFailure is the process exit code for invalid arguments, unreadable
// inputs and failed writes.
const ExitCodeFailure = 2

// ExitCodeError asks the root command to exit the process with Code. Commands
// return it after they have printed their own output.
type ExitCodeError struct {
	Code int
	Err  error
}

func (e ExitCodeError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

func (e ExitCodeError) Unwrap() error {
	return e.Err
}

// ExitCode returns the process exit code requested by err, if any.
func ExitCode(err error) (int, bool) {
	var exitErr ExitCodeError
	if errors.As(err, &exitErr) {
		return exitErr.Code, true
	}
	return 0, false
}

// GetAppContext returns the application context stored on the root command.
func GetAppContext(cmd *cobra.Command) AppContext {
	root := cmd.Root()
	if root.Context() == nil {
		return AppContext{}
	}
	appContext, _ := root.Context().Value(AppContext{}).(AppContext)
	return appContext
}

// FlagValidationError is used to report an error with a flag
func FlagValidationError(cmd *cobra.Command, msg string) error {
	err := errors.New(msg)
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	fmt.Fprintf(os.Stderr, "See '%s --help' for usage details.\n", cmd.CommandPath())
	cmd.SilenceUsage = true
	return ExitCodeError{Code: ExitCodeFailure, Err: err}
}

// CommandError prints and logs err and returns an ExitCodeError with code so the
// process exits with it.
func CommandError(cmd *cobra.Command, err error, code int) error {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	slog.Error(err.Error(), slog.String("command", cmd.Name()))
	cmd.SilenceUsage = true
	return ExitCodeError{Code: code, Err: err}
}

// ExpandPathFlags rewrites each non-empty path flag value to an absolute path,
// expanding a leading '~' to the user's home directory.
func ExpandPathFlags(cmd *cobra.Command, paths ...*string) error {
	for _, path := range paths {
		if *path == "" {
			continue
		}
		abs, err := util.AbsPath(*path)
		if err != nil {
			return FlagValidationError(cmd, fmt.Sprintf("invalid path '%s': %v", *path, err))
		}
		*path = abs
	}
	return nil
}

// UsageFunc returns a cobra usage function that prints the flag groups
// returned by getFlagGroups followed by the global flags.
func UsageFunc(getFlagGroups func() []FlagGroup) func(*cobra.Command) error {
	return func(cmd *cobra.Command) error {
		cmd.Printf("Usage: %s\n\n", cmd.UseLine())
		if cmd.Example != "" {
			cmd.Printf("Examples:\n%s\n\n", cmd.Example)
		}
		cmd.Println("Flags:")
		for _, group := range getFlagGroups() {
			cmd.Printf("  %s:\n", group.GroupName)
			for _, flag := range group.Flags {
				flagDefault := ""
				if f := cmd.Flags().Lookup(flag.Name); f != nil && f.DefValue != "" && f.DefValue != "[]" && f.DefValue != "false" {
					flagDefault = fmt.Sprintf(" (default: %s)", f.DefValue)
				}
				cmd.Printf("    --%-24s %s%s\n", flag.Name, flag.Help, flagDefault)
			}
		}
		cmd.Println("\nGlobal Flags:")
		cmd.Root().PersistentFlags().VisitAll(func(pf *pflag.Flag) {
			cmd.Printf("  --%-24s %s\n", pf.Name, pf.Usage)
		})
		return nil
	}
}

// HandleSignals forwards SIGINT and SIGTERM to child processes so that a
// workload or collector started by this process exits with it. The returned
// function stops the forwarding.
func HandleSignals() (stop func()) {
	sigChannel := make(chan os.Signal, 1)
	signal.Notify(sigChannel, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})
	go func() {
		select {
		case sig := <-sigChannel:
			slog.Info("received signal", slog.String("signal", sig.String()))
			// when run in the background or disowned, the shell does not propagate
			// the signal to our children, so we do
			util.SignalChildren(syscall.SIGINT)
		case <-done:
		}
	}()
	return func() {
		signal.Stop(sigChannel)
		close(done)
	}
}
