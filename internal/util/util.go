/*
Package util includes utility/helper functions that may be useful to other modules.
*/
package util

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"os/user"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
)

// ExpandUser expands '~' to user's home directory, if found, otherwise returns original path
func ExpandUser(path string) string {
	usr, err := user.Current()
	if err != nil {
		return path
	}
	if path == "~" {
		return usr.HomeDir
	} else if strings.HasPrefix(path, "~"+string(os.PathSeparator)) {
		return filepath.Join(usr.HomeDir, path[2:])
	}
	return path
}

// AbsPath returns absolute path after expanding '~' to user's home dir
func AbsPath(path string) (string, error) {
	return filepath.Abs(ExpandUser(path))
}

// FileExists checks if a file exists at the given path.
// It returns a boolean indicating whether the file exists, and an error if the
// path refers to a non-regular file, e.g., a directory.
func FileExists(path string) (exists bool, err error) {
	var fileInfo fs.FileInfo
	fileInfo, err = os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			exists = false
			err = nil
			return
		}
		return
	}
	if !fileInfo.Mode().IsRegular() {
		err = fmt.Errorf("%s not a file", path)
		return
	}
	exists = true
	return
}

// CreateParentDirectory creates the directory that will hold the given file
// path if it does not already exist.
func CreateParentDirectory(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil { // #nosec G301
		return fmt.Errorf("failed to create directory: '%s', error: '%s'", dir, err.Error())
	}
	return nil
}

// WriteFile writes data to path, creating the parent directory as needed.
func WriteFile(path string, data []byte) error {
	if err := CreateParentDirectory(path); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644) // #nosec G306
}

// UniqueAppend appends an item to a slice if it is not already present
func UniqueAppend[T comparable](slice []T, item T) []T {
	if slices.Contains(slice, item) {
		return slice
	}
	return append(slice, item)
}

// ShellQuote single-quotes an argument for a POSIX shell.
func ShellQuote(arg string) string {
	if arg == "" {
		return "''"
	}
	return "'" + strings.ReplaceAll(arg, "'", `'\''`) + "'"
}

// JoinQuoted joins argv with shell quoting, producing a string that can be
// pasted into a shell to repeat the command.
func JoinQuoted(argv []string) string {
	quoted := make([]string, len(argv))
	for i, arg := range argv {
		quoted[i] = ShellQuote(arg)
	}
	return strings.Join(quoted, " ")
}

// JoinRaw joins argv with single spaces, for display.
func JoinRaw(argv []string) string {
	return strings.Join(argv, " ")
}

// SignalChildren sends a signal to all children of this process
func SignalChildren(sig os.Signal) {
	// get list of child processes
	cmd := exec.Command("pgrep", "-P", strconv.Itoa(os.Getpid()))
	out, err := cmd.Output()
	if err != nil {
		slog.Debug("no child processes to signal", slog.String("error", err.Error()))
		return
	}
	// send signal to each child
	for pid := range strings.SplitSeq(string(out), "\n") {
		if pid == "" {
			continue
		}
		pidInt, err := strconv.Atoi(pid)
		if err != nil {
			slog.Error("failed to convert pid to int", slog.String("pid", pid), slog.String("error", err.Error()))
			continue
		}
		proc, err := os.FindProcess(pidInt)
		if err != nil {
			slog.Error("failed to find process", slog.Int("pid", pidInt), slog.String("error", err.Error()))
			continue
		}
		slog.Info("sending signal to child process", slog.Int("pid", pidInt), slog.String("signal", sig.String()))
		err = proc.Signal(sig)
		if err != nil {
			slog.Error("failed to send signal to process", slog.Int("pid", pidInt), slog.String("error", err.Error()))
		}
	}
}
