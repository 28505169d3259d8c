// Package target runs commands on the machine that hosts the workload.
package target

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"os"
	"os/exec"
)

// Target is where collectors run their tools. Tests substitute fakes so the
// collectors can be exercised without perf, strace or readelf installed.
type Target interface {
	GetName() (name string)

	// GetArchitecture returns the machine name reported by uname -m.
	GetArchitecture() (arch string, err error)

	CommandExists(name string) bool

	// RunCommand runs cmd and captures its output. A timeout of zero seconds
	// means no limit. timedOut is set when the deadline killed the command.
	RunCommand(cmd *exec.Cmd, timeout int) (stdout string, stderr string, exitCode int, timedOut bool, err error)
}

// LocalTarget runs commands on this host.
type LocalTarget struct {
	host string
	arch string
}

func NewLocalTarget() *LocalTarget {
	hostName, err := os.Hostname()
	if err != nil {
		hostName = "localhost"
	}
	return &LocalTarget{host: hostName}
}
