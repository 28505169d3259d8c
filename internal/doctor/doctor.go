// Package doctor probes the host for the tools tracelab and its baseline
// workflow depend on.
package doctor

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"log/slog"

	mapset "github.com/deckarep/golang-set/v2"

	"tracelab/internal/artifact"
	"tracelab/internal/target"
)

// Tool states.
const (
	Found   = "found"
	Missing = "missing"
)

// Check is one probed capability. It is satisfied when any of its tools is in PATH.
type Check struct {
	Key      string   // key in the doctor_result document
	Label    string   // human readable label
	Tools    []string // alternatives
	Required bool
}

var checks = []Check{
	{Key: "cmake", Label: "cmake", Tools: []string{"cmake"}, Required: true},
	{Key: "build_backend", Label: "build backend (ninja|make)", Tools: []string{"ninja", "make"}, Required: true},
	{Key: "compiler", Label: "compiler (clang|gcc)", Tools: []string{"clang", "gcc"}, Required: true},
	{Key: "ld", Label: "ld", Tools: []string{"ld"}, Required: true},
	{Key: "perf", Label: "perf", Tools: []string{"perf"}, Required: true},
	{Key: "strace", Label: "strace", Tools: []string{"strace"}, Required: true},
	{Key: "readelf", Label: "readelf", Tools: []string{"readelf"}},
	{Key: "disassembler", Label: "disassembler (objdump|llvm-objdump)", Tools: []string{"objdump", "llvm-objdump"}},
	{Key: "nm", Label: "nm", Tools: []string{"nm"}},
	{Key: "strip", Label: "strip", Tools: []string{"strip"}},
	{Key: "qemu-x86_64", Label: "qemu-x86_64", Tools: []string{"qemu-x86_64"}},
	{Key: "qemu-aarch64", Label: "qemu-aarch64", Tools: []string{"qemu-aarch64"}},
	{Key: "qemu-riscv64", Label: "qemu-riscv64", Tools: []string{"qemu-riscv64"}},
	{Key: "gdb", Label: "gdb", Tools: []string{"gdb"}},
	{Key: "lldb", Label: "lldb", Tools: []string{"lldb"}},
}

// Checks returns the probed capabilities in report order.
func Checks() []Check {
	return checks
}

// CheckResult is the state of one check.
type CheckResult struct {
	Check
	State string
}

// Found reports whether the check is satisfied.
func (c CheckResult) Found() bool {
	return c.State == Found
}

// Report is the outcome of probing a host.
type Report struct {
	Required        []CheckResult
	Optional        []CheckResult
	MissingRequired bool
}

// Probe looks up every tool once and evaluates the checks.
func Probe(t target.Target) Report {
	tools := mapset.NewThreadUnsafeSet[string]()
	for _, c := range checks {
		for _, tool := range c.Tools {
			tools.Add(tool)
		}
	}
	found := mapset.NewThreadUnsafeSet[string]()
	for tool := range tools.Iter() {
		if t.CommandExists(tool) {
			found.Add(tool)
		}
	}
	slog.Debug("probed tools", slog.Int("probed", tools.Cardinality()), slog.Int("found", found.Cardinality()))

	var r Report
	for _, c := range checks {
		result := CheckResult{Check: c, State: Missing}
		for _, tool := range c.Tools {
			if found.Contains(tool) {
				result.State = Found
				break
			}
		}
		if c.Required {
			r.Required = append(r.Required, result)
			if !result.Found() {
				r.MissingRequired = true
			}
		} else {
			r.Optional = append(r.Optional, result)
		}
	}
	return r
}

// Summary is the one-line verdict printed after the checks.
func (r Report) Summary() string {
	if r.MissingRequired {
		return "missing required tools"
	}
	return "ready for baseline collection"
}

// Artifact converts the report to a doctor_result document.
func (r Report) Artifact(host artifact.Host) artifact.DoctorResult {
	doc := artifact.DoctorResult{
		Header:          artifact.NewHeader(artifact.KindDoctor),
		Host:            host,
		Required:        map[string]string{},
		Optional:        map[string]string{},
		MissingRequired: r.MissingRequired,
	}
	for _, c := range r.Required {
		doc.Required[c.Key] = c.State
	}
	for _, c := range r.Optional {
		doc.Optional[c.Key] = c.State
	}
	return doc
}
