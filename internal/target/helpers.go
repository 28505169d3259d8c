package target

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// runWithTimeout runs cmd, killing it after timeout seconds when timeout > 0.
// exitCode is -1 when the process did not exit normally.
func runWithTimeout(cmd *exec.Cmd, timeout int) (stdout string, stderr string, exitCode int, timedOut bool, err error) {
	slog.Debug("running local command", slog.String("cmd", cmd.String()), slog.Int("timeout", timeout))
	var ctx context.Context
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), time.Duration(timeout)*time.Second)
		defer cancel()
		withDeadline := exec.CommandContext(ctx, cmd.Path, cmd.Args[1:]...) // #nosec G204 // nosemgrep
		withDeadline.Env = cmd.Env
		withDeadline.Dir = cmd.Dir
		// children that inherit the output pipes must not hold Wait open past the deadline
		withDeadline.WaitDelay = time.Second
		cmd = withDeadline
	}
	var outbuf, errbuf strings.Builder
	cmd.Stdout = &outbuf
	cmd.Stderr = &errbuf
	err = cmd.Run()
	stdout, stderr = outbuf.String(), errbuf.String()
	if ctx != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		timedOut = true
	}
	if err != nil {
		var exitError *exec.ExitError
		if errors.As(err, &exitError) {
			exitCode = exitError.ExitCode()
		} else {
			exitCode = -1
		}
	}
	return
}

func getArchitecture(t Target) (string, error) {
	stdout, _, _, _, err := t.RunCommand(exec.Command("uname", "-m"), 0)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(stdout), nil
}
