package common

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"bytes"
	"context"
	"fmt"
	"os/user"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantOK   bool
	}{
		{name: "nil", err: nil},
		{name: "plain", err: fmt.Errorf("boom")},
		{name: "direct", err: ExitCodeError{Code: 3}, wantCode: 3, wantOK: true},
		{name: "wrapped", err: errors.Wrap(ExitCodeError{Code: 137}, "run"), wantCode: 137, wantOK: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, ok := ExitCode(tt.err)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantCode, code)
		})
	}
	assert.Equal(t, "exit status 2", ExitCodeError{Code: 2}.Error())
	assert.Equal(t, "boom", ExitCodeError{Code: 2, Err: fmt.Errorf("boom")}.Error())
}

func TestFlagValidationError(t *testing.T) {
	cmd := &cobra.Command{Use: "run"}
	err := FlagValidationError(cmd, "bad flag")
	assert.EqualError(t, err, "bad flag")
	code, ok := ExitCode(err)
	assert.True(t, ok)
	assert.Equal(t, ExitCodeFailure, code)
	assert.True(t, cmd.SilenceUsage)
}

func TestExpandPathFlags(t *testing.T) {
	usr, err := user.Current()
	require.NoError(t, err)
	cmd := &cobra.Command{Use: "run"}
	jsonPath := "~/runs/native.json"
	promPath := ""
	dbPath := "tracelab.db"
	require.NoError(t, ExpandPathFlags(cmd, &jsonPath, &promPath, &dbPath))
	assert.Equal(t, filepath.Join(usr.HomeDir, "runs", "native.json"), jsonPath)
	assert.Empty(t, promPath)
	assert.True(t, filepath.IsAbs(dbPath))
	assert.Equal(t, "tracelab.db", filepath.Base(dbPath))
}

func TestGetAppContext(t *testing.T) {
	root := &cobra.Command{Use: AppName}
	child := &cobra.Command{Use: "child"}
	root.AddCommand(child)
	assert.Equal(t, AppContext{}, GetAppContext(child))

	want := AppContext{Version: "1.2.3", Debug: true}
	root.SetContext(context.WithValue(context.Background(), AppContext{}, want))
	assert.Equal(t, want, GetAppContext(child))
}

func TestUsageFunc(t *testing.T) {
	root := &cobra.Command{Use: AppName}
	root.PersistentFlags().Bool("debug", false, "enable debug logging")
	child := &cobra.Command{Use: "child", Run: func(*cobra.Command, []string) {}}
	child.Flags().Int("timeout", 120, "")
	root.AddCommand(child)
	var out bytes.Buffer
	child.SetOut(&out)
	child.SetErr(&out)

	usage := UsageFunc(func() []FlagGroup {
		return []FlagGroup{{GroupName: "Options", Flags: []Flag{{Name: "timeout", Help: "seconds"}}}}
	})
	require.NoError(t, usage(child))
	assert.Contains(t, out.String(), "Usage: tracelab child")
	assert.Contains(t, out.String(), "  Options:")
	assert.Contains(t, out.String(), "seconds (default: 120)")
	assert.Contains(t, out.String(), "--debug")
}
