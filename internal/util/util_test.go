package util

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"os"
	"os/user"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUniqueAppend(t *testing.T) {
	tests := []struct {
		name     string
		slice    []string
		item     string
		expected []string
	}{
		{"empty slice", nil, "a", []string{"a"}},
		{"new item", []string{"a"}, "b", []string{"a", "b"}},
		{"duplicate item", []string{"a", "b"}, "a", []string{"a", "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, UniqueAppend(tt.slice, tt.item))
		})
	}
}

func TestJoinQuoted(t *testing.T) {
	tests := []struct {
		name     string
		argv     []string
		expected string
	}{
		{"plain", []string{"ls", "-l"}, "'ls' '-l'"},
		{"empty arg", []string{"echo", ""}, "'echo' ''"},
		{"embedded quote", []string{"echo", "it's"}, `'echo' 'it'\''s'`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, JoinQuoted(tt.argv))
		})
	}
	assert.Equal(t, "echo it's", JoinRaw([]string{"echo", "it's"}))
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")

	exists, err := FileExists(path)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, WriteFile(path, []byte("x")))
	exists, err = FileExists(path)
	require.NoError(t, err)
	assert.True(t, exists)

	_, err = FileExists(dir)
	assert.Error(t, err)
}

func TestWriteFileCreatesParent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deeper", "out.json")
	require.NoError(t, WriteFile(path, []byte("{}")))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))
}

func TestAbsPath(t *testing.T) {
	usr, err := user.Current()
	require.NoError(t, err)
	home := usr.HomeDir
	wd, err := os.Getwd()
	require.NoError(t, err)
	tests := []struct {
		name string
		path string
		want string
	}{
		{name: "home", path: "~", want: home},
		{name: "under home", path: "~/runs/native.json", want: filepath.Join(home, "runs", "native.json")},
		{name: "relative", path: "out/run.json", want: filepath.Join(wd, "out", "run.json")},
		{name: "absolute", path: "/tmp/run.json", want: "/tmp/run.json"},
		{name: "tilde in the middle", path: "a/~/b", want: filepath.Join(wd, "a", "~", "b")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AbsPath(tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
