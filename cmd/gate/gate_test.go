package gate

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tracelab/internal/artifact"
	"tracelab/internal/telemetry"
)

func TestLoadRunFiles(t *testing.T) {
	dir := t.TempDir()
	runPath := filepath.Join(dir, "run.json")
	require.NoError(t, artifact.Write(runPath, artifact.NewRunResult(artifact.RunInput{
		Mode:     telemetry.ModeNative,
		Command:  "./bench",
		Workload: telemetry.WorkloadOutcome{WallTimeSeconds: 1.5},
	})))
	comparePath := filepath.Join(dir, "compare.json")
	require.NoError(t, artifact.Write(comparePath, artifact.CompareResult{Header: artifact.NewHeader(artifact.KindCompare)}))

	files, err := loadRunFiles([]string{runPath})
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, runPath, files[0].Path)
	require.NotNil(t, files[0].Run.DurationSec)
	assert.InDelta(t, 1.5, *files[0].Run.DurationSec, 1e-12)

	_, err = loadRunFiles([]string{comparePath})
	assert.ErrorIs(t, err, artifact.ErrWrongKind)

	none, err := loadOptionalRunFile("")
	require.NoError(t, err)
	assert.Nil(t, none)

	one, err := loadOptionalRunFile(runPath)
	require.NoError(t, err)
	require.NotNil(t, one)
	assert.Equal(t, runPath, one.Path)
}
