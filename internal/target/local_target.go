package target

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"os/exec"
)

func (t *LocalTarget) RunCommand(cmd *exec.Cmd, timeout int) (stdout string, stderr string, exitCode int, timedOut bool, err error) {
	return runWithTimeout(cmd, timeout)
}

func (t *LocalTarget) CommandExists(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

// GetArchitecture caches the first uname -m answer.
func (t *LocalTarget) GetArchitecture() (string, error) {
	var err error
	if t.arch == "" {
		t.arch, err = getArchitecture(t)
	}
	return t.arch, err
}

func (t *LocalTarget) GetName() (host string) {
	return t.host
}
