// Package inspect extracts ELF metadata from a workload binary with readelf
// and maps its ISA to qemu selectors.
package inspect

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"bufio"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/pkg/errors"

	"tracelab/internal/artifact"
	"tracelab/internal/qemu"
	"tracelab/internal/target"
	"tracelab/internal/util"
)

// Unknown is reported for every field readelf could not determine.
const Unknown = "unknown"

// commandTimeout bounds each readelf and disassembler invocation, in seconds.
const commandTimeout = 60

// ErrNotFound is returned when the binary does not exist.
var ErrNotFound = errors.New("file not found")

// labeledField returns the text after label on the first line that starts with it.
func labeledField(text, label string) (string, bool) {
	scanner := bufio.NewScanner(strings.NewReader(text))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, label) {
			return strings.TrimSpace(line[len(label):]), true
		}
	}
	return "", false
}

func fieldOrUnknown(text, label string) string {
	if v, ok := labeledField(text, label); ok {
		return v
	}
	return Unknown
}

// run returns the combined output of a tool and whether it exited cleanly.
func run(t target.Target, name string, args ...string) (string, bool) {
	stdout, stderr, exitCode, _, err := t.RunCommand(exec.Command(name, args...), commandTimeout) // #nosec G204
	if err != nil || exitCode != 0 {
		slog.Debug("inspect command failed", slog.String("cmd", name), slog.Any("args", args), slog.Int("exit_code", exitCode))
		return stdout + stderr, false
	}
	return stdout + stderr, true
}

// Binary inspects the binary at path.
func Binary(t target.Target, path string) (artifact.InspectResult, error) {
	exists, err := util.FileExists(path)
	if err != nil {
		return artifact.InspectResult{}, err
	}
	if !exists {
		return artifact.InspectResult{}, errors.Wrap(ErrNotFound, path)
	}
	r := artifact.InspectResult{
		Header:  artifact.NewHeader(artifact.KindInspect),
		Binary:  path,
		ISAArch: Unknown,
		ABI:     Unknown,
		Linkage: Unknown,
		Symbols: Unknown,
		PLTGOT:  Unknown,
		Notes:   []string{},
	}
	elfType := Unknown

	if t.CommandExists("readelf") {
		if out, ok := run(t, "readelf", "-h", path); ok {
			r.ISAArch = fieldOrUnknown(out, "Machine:")
			r.ABI = fieldOrUnknown(out, "OS/ABI:")
			elfType = fieldOrUnknown(out, "Type:")
		} else {
			r.Notes = append(r.Notes, "readelf -h failed")
		}
		if out, ok := run(t, "readelf", "-l", path); ok {
			lower := strings.ToLower(out)
			if strings.Contains(lower, "interp") || strings.Contains(lower, "dynamic") {
				r.Linkage = "dynamic"
			} else {
				r.Linkage = "static_or_unknown"
			}
		} else {
			r.Notes = append(r.Notes, "readelf -l failed")
		}
		if out, ok := run(t, "readelf", "-s", path); ok {
			lower := strings.ToLower(out)
			switch {
			case strings.Contains(lower, "symbol table '.symtab'"):
				r.Symbols = "symtab_present"
			case strings.Contains(lower, "symbol table '.dynsym'"):
				r.Symbols = "dynsym_only_probably_stripped"
			default:
				r.Symbols = "no_symbols_detected"
			}
		} else {
			r.Notes = append(r.Notes, "readelf -s failed")
		}
		if out, ok := run(t, "readelf", "-S", path); ok {
			lower := strings.ToLower(out)
			if strings.Contains(lower, ".plt") || strings.Contains(lower, ".got") {
				r.PLTGOT = "present"
			} else {
				r.PLTGOT = "not_detected"
			}
		} else {
			r.Notes = append(r.Notes, "readelf -S failed")
		}
	} else {
		r.Notes = append(r.Notes, "readelf missing")
	}

	// program headers were inconclusive, fall back to the ELF type
	if r.Linkage == Unknown {
		elfTypeLower := strings.ToLower(elfType)
		if strings.Contains(elfTypeLower, "dyn") {
			r.Linkage = "dynamic_or_pie"
		} else if strings.Contains(elfTypeLower, "exec") {
			r.Linkage = "exec_unknown_linkage"
		}
	}

	r.Disassembler = "missing"
	for _, d := range []string{"objdump", "llvm-objdump"} {
		if t.CommandExists(d) {
			r.Disassembler = d
			break
		}
	}
	if r.Disassembler != "missing" {
		if _, ok := run(t, r.Disassembler, "-d", path); !ok {
			r.Notes = append(r.Notes, r.Disassembler+" -d failed")
		}
	} else {
		r.Notes = append(r.Notes, "objdump and llvm-objdump missing")
	}

	r.QEMUSelectorHints = qemu.HintsFromISA(r.ISAArch)
	r.QEMUSupportedSelectors = qemu.SupportedArches()
	return r, nil
}
