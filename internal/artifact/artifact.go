// Package artifact defines the JSON documents written and read by tracelab:
// run, compare, doctor and inspect results.
package artifact

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"encoding/json"
	"os"
	"time"

	"github.com/pkg/errors"

	"tracelab/internal/util"
)

// SchemaVersion is written to every document.
const SchemaVersion = "1"

// Document kinds.
const (
	KindRun     = "run_result"
	KindCompare = "compare_result"
	KindDoctor  = "doctor_result"
	KindInspect = "inspect_result"
)

// ErrWrongKind is returned when a document has an unexpected kind.
var ErrWrongKind = errors.New("unexpected artifact kind")

// Header is common to all documents.
type Header struct {
	SchemaVersion string `json:"schema_version"`
	Kind          string `json:"kind"`
	TimestampUTC  string `json:"timestamp_utc"`
}

// NewHeader returns a header of the given kind stamped with the current time.
func NewHeader(kind string) Header {
	return Header{
		SchemaVersion: SchemaVersion,
		Kind:          kind,
		TimestampUTC:  time.Now().UTC().Format(time.RFC3339),
	}
}

// Write marshals v as indented JSON to path.
func Write(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal artifact")
	}
	data = append(data, '\n')
	if err := util.WriteFile(path, data); err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}
	return nil
}

// Kind returns the kind of the document at path.
func Kind(path string) (string, error) {
	var header Header
	if err := read(path, &header); err != nil {
		return "", err
	}
	return header.Kind, nil
}

func read(path string, v any) error {
	data, err := os.ReadFile(path) // #nosec G304
	if err != nil {
		return errors.Wrapf(err, "failed to read %s", path)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errors.Wrapf(err, "failed to parse %s", path)
	}
	return nil
}

func load(path string, kind string, v any) error {
	actual, err := Kind(path)
	if err != nil {
		return err
	}
	if actual != kind {
		return errors.Wrapf(ErrWrongKind, "%s: expected %s, got '%s'", path, kind, actual)
	}
	return read(path, v)
}
