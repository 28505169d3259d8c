package collect

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"log/slog"
	"os/exec"
	"runtime"
	"strings"

	"github.com/prometheus/procfs"
	"golang.org/x/sys/unix"

	"tracelab/internal/artifact"
	"tracelab/internal/target"
)

// UnknownGitSHA is recorded when the working directory is not a git checkout.
const UnknownGitSHA = "unknown"

// Host describes the machine running tracelab.
func Host(t target.Target) artifact.Host {
	h := artifact.Host{
		OS:     goos,
		Arch:   runtime.GOARCH,
		GitSHA: GitSHA(t),
	}
	if arch, err := t.GetArchitecture(); err == nil && arch != "" {
		h.Arch = arch
	}
	h.KernelVersion = kernelVersion()
	h.CPUModel = cpuModel()
	return h
}

// GitSHA returns the short commit of the working directory's checkout.
func GitSHA(t target.Target) string {
	if !t.CommandExists("git") {
		return UnknownGitSHA
	}
	stdout, _, exitCode, _, err := t.RunCommand(exec.Command("git", "rev-parse", "--short", "HEAD"), 10)
	sha := strings.TrimSpace(stdout)
	if err != nil || exitCode != 0 || sha == "" {
		return UnknownGitSHA
	}
	return sha
}

func kernelVersion() string {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		slog.Debug("uname failed", slog.String("error", err.Error()))
		return ""
	}
	return unix.ByteSliceToString(uts.Release[:])
}

func cpuModel() string {
	fs, err := procfs.NewDefaultFS()
	if err != nil {
		return ""
	}
	cpus, err := fs.CPUInfo()
	if err != nil || len(cpus) == 0 {
		return ""
	}
	return strings.TrimSpace(cpus[0].ModelName)
}
